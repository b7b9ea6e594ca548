package lichess

import "strings"

type Player struct {
	ID     string `json:"id"`
	Name   string `json:"name"`
	Rating int    `json:"rating,omitempty"`
	AI     int    `json:"aiLevel,omitempty"`
}

type GameState struct {
	Moves  string `json:"moves"`
	WTime  int64  `json:"wtime"`
	BTime  int64  `json:"btime"`
	WInc   int64  `json:"winc"`
	BInc   int64  `json:"binc"`
	Status string `json:"status"`
	Winner string `json:"winner,omitempty"`
}

// MoveList splits the space separated UCI move list.
func (s GameState) MoveList() []string { return strings.Fields(s.Moves) }

// Finished reports whether the status ends the game.
func (s GameState) Finished() bool {
	switch s.Status {
	case "", "created", "started":
		return false
	}
	return true
}

// Event is one NDJSON line of the board game stream.
type Event struct {
	Type       string     `json:"type"`
	ID         string     `json:"id,omitempty"`
	White      Player     `json:"white"`
	Black      Player     `json:"black"`
	InitialFEN string     `json:"initialFen,omitempty"`
	State      *GameState `json:"state,omitempty"`

	GameState
}

const (
	EventGameFull  = "gameFull"
	EventGameState = "gameState"
	EventChatLine  = "chatLine"
)

// CurrentState returns the embedded state of a gameFull or the event itself.
func (e Event) CurrentState() GameState {
	if e.Type == EventGameFull && e.State != nil {
		return *e.State
	}
	return e.GameState
}

type OpponentInfo struct {
	ID       string `json:"id"`
	Username string `json:"username"`
	Rating   int    `json:"rating"`
}

type OngoingGame struct {
	GameID   string       `json:"gameId"`
	FullID   string       `json:"fullId"`
	Color    string       `json:"color"`
	FEN      string       `json:"fen"`
	Opponent OpponentInfo `json:"opponent"`
	IsMyTurn bool         `json:"isMyTurn"`
}

type ongoingResponse struct {
	NowPlaying []OngoingGame `json:"nowPlaying"`
}

type Profile struct {
	ID       string `json:"id"`
	Username string `json:"username"`
	Title    string `json:"title,omitempty"`
}
