package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"strings"
	"time"

	"github.com/park285/chess-tui-sync/internal/peer"
)

// peercheck dials a running relay, reports the assigned color and waits
// briefly for the start signal. With PEERCHECK_MOVE set it also sends that
// move and prints whatever comes back.
func main() {
	addr := strings.TrimSpace(os.Getenv("PEER_ADDR"))
	if addr == "" {
		addr = peer.DefaultAddr
	}
	move := strings.TrimSpace(os.Getenv("PEERCHECK_MOVE"))

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	client, err := peer.Dial(ctx, peer.DialConfig{Addr: addr, Attempts: 2, Backoff: 200 * time.Millisecond})
	if err != nil {
		log.Fatalf("dial %s: %v", addr, err)
	}
	defer func() { _ = client.Close() }()
	log.Printf("connected to %s as %s", addr, client.Color().Name())

	wctx, wcancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer wcancel()
	if err := client.WaitForStart(wctx); err != nil {
		log.Printf("no start signal: %v", err)
		return
	}
	log.Println("start signal received")

	if move == "" {
		return
	}
	if err := client.SendMove(context.Background(), move); err != nil {
		log.Printf("send %q: %v", move, err)
		return
	}

	// Observe for a short window
	rctx, rcancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer rcancel()
	for {
		in, err := client.Mailbox().Receive(rctx)
		if err != nil {
			return
		}
		if in.Err != nil {
			fmt.Printf("stream ended: %v\n", in.Err)
			return
		}
		fmt.Printf("peer move %s\n", in.Move)
	}
}
