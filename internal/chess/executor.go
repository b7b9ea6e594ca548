package chess

import "fmt"

// Execute validates req for side against board and history. On success it
// returns the new board and the move record; the input board is never touched.
// Failures wrap ErrIllegalMove. history is read against DefaultOrigin.
func Execute(board Board, history []Move, side Color, req MoveRequest) (Board, Move, error) {
	return execute(board, lineOf(history), side, req)
}

func execute(board Board, ln line, side Color, req MoveRequest) (Board, Move, error) {
	if !req.From.IsValid() || !req.To.IsValid() {
		return board, Move{}, fmt.Errorf("%w: %s-%s is off the board", ErrIllegalMove, req.From, req.To)
	}
	p := board.At(req.From)
	if p.IsEmpty() {
		return board, Move{}, fmt.Errorf("%w: no piece on %s", ErrIllegalMove, req.From)
	}
	if p.Color != side {
		return board, Move{}, fmt.Errorf("%w: piece on %s belongs to %s", ErrIllegalMove, req.From, p.Color.Name())
	}
	switch req.Promotion {
	case NoPieceType, Queen, Rook, Bishop, Knight:
	default:
		return board, Move{}, fmt.Errorf("%w: cannot promote to %s", ErrIllegalMove, req.Promotion)
	}

	promo := req.Promotion
	if promo == NoPieceType {
		promo = Queen
	}
	for _, m := range legalFrom(&board, ln, req.From) {
		if m.To != req.To {
			continue
		}
		if m.Promotion == NoPieceType {
			if req.Promotion != NoPieceType {
				return board, Move{}, fmt.Errorf("%w: %s-%s is not a promotion", ErrIllegalMove, req.From, req.To)
			}
			return applyMove(board, m), m, nil
		}
		if m.Promotion == promo {
			return applyMove(board, m), m, nil
		}
	}
	return board, Move{}, fmt.Errorf("%w: %s %s-%s", ErrIllegalMove, p.Type, req.From, req.To)
}
