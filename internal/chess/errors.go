package chess

import "errors"

var (
	ErrIllegalMove      = errors.New("illegal move")
	ErrBadNotation      = errors.New("bad move notation")
	ErrGameOver         = errors.New("game is over")
	ErrNotYourTurn      = errors.New("side is not to move")
	ErrNoOpponent       = errors.New("no opponent attached")
	ErrAwaitingOpponent = errors.New("waiting for opponent move")
)
