package archive

import (
	"errors"
	"time"
)

const (
	ModeSolo    = "solo"
	ModeBot     = "bot"
	ModePeer    = "peer"
	ModeLichess = "lichess"
)

// Result tokens.
const (
	ResultWhite = "white"
	ResultBlack = "black"
	ResultDraw  = "draw"
)

var ErrNotFound = errors.New("archive: record not found")

// Record is one match as stored in the archive.
type Record struct {
	ID          string    `json:"id"`
	Mode        string    `json:"mode"`
	White       string    `json:"white"`
	Black       string    `json:"black"`
	LocalColor  string    `json:"local_color"`
	InitialFEN  string    `json:"initial_fen,omitempty"`
	MovesUCI    []string  `json:"moves_uci"`
	MovesSAN    []string  `json:"moves_san,omitempty"`
	FEN         string    `json:"fen"`
	State       string    `json:"state"`
	Result      string    `json:"result,omitempty"`
	Termination string    `json:"termination,omitempty"`
	Finished    bool      `json:"finished"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

func (r *Record) clone() *Record {
	if r == nil {
		return nil
	}
	c := *r
	c.MovesUCI = append([]string(nil), r.MovesUCI...)
	c.MovesSAN = append([]string(nil), r.MovesSAN...)
	return &c
}
