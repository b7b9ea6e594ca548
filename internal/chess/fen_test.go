package chess

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFENStartLayoutNextMover(t *testing.T) {
	gb := NewGameBoardFrom(StartingBoard(), nil, White)
	game := NewGameFromBoard(gb, White)
	// the encoded side is the next mover after setup
	got := game.Board().FENPosition(true, game.PlayerTurn().Opposite())
	assert.Equal(t, "rnbqkbnr/pppppppp/8/8/8/8/PPPPPPPP/RNBQKBNR b KQkq - 0 1", got)
}

func TestFENKingsAndRook(t *testing.T) {
	b := mustBoard(t, "2k4R/8/4K3/8/8/8/8/8")
	gb := NewGameBoardFrom(b, nil, Black)
	assert.Equal(t, "2k4R/8/4K3/8/8/8/8/8 b - - 0 1", gb.FENPosition(true, Black))
}

func TestFENEnPassantFromHistory(t *testing.T) {
	b := mustBoard(t, "2k4R/8/4K3/8/2P5/8/8/8")
	history := []Move{{PieceType: Pawn, PieceColor: White, From: NewCoord(6, 2), To: NewCoord(4, 2)}}
	gb := NewGameBoardFrom(b, history, Black)
	assert.Equal(t, "2k4R/8/4K3/8/2P5/8/8/8 b - c3 0 1", gb.FENPosition(true, Black))
	assert.Equal(t, "2k4R/8/4K3/8/2P5/8/8/8 b - c3", gb.FENPosition(false, Black))
}

func TestFENCountersAfterMoves(t *testing.T) {
	g := NewGame()
	playAll(t, g, "e2e4")
	assert.Equal(t, "rnbqkbnr/pppppppp/8/8/4P3/8/PPPP1PPP/RNBQKBNR b KQkq e3 0 1", g.FEN())
	playAll(t, g, "e7e5", "g1f3")
	assert.Equal(t, "rnbqkbnr/pppp1ppp/8/4p3/4P3/5N2/PPPP1PPP/RNBQKB1R b KQkq - 1 2", g.FEN())
	playAll(t, g, "b8c6")
	assert.Equal(t, 2, g.Board().HalfmoveClock())
	assert.Equal(t, 3, g.Board().FullmoveNumber())
}

func TestFENCastlingDerivedFromHistory(t *testing.T) {
	g := NewGame()
	playAll(t, g, "e2e4", "e7e5", "e1e2", "e8e7", "e2e1", "e7e8")
	assert.Contains(t, g.FEN(), " w - - ")
	assert.Equal(t, StartingBoard()[0], g.Board().Board()[0], "back rank restored, rights are not")
}

func TestParsePlacementRoundTrip(t *testing.T) {
	for _, placement := range []string{
		"rnbqkbnr/pppppppp/8/8/8/8/PPPPPPPP/RNBQKBNR",
		"r3k2r/p1ppqpb1/bn2pnp1/3PN3/1p2P3/2N2Q1p/PPPBBPPP/R3K2R",
		"8/2p5/3p4/KP5r/1R3p1k/8/4P1P1/8",
		"8/8/8/8/8/8/8/8",
	} {
		b, err := ParsePlacement(placement)
		require.NoError(t, err)
		assert.Equal(t, placement, b.Placement())
	}
}

func TestParsePlacementErrors(t *testing.T) {
	for _, bad := range []string{"", "8/8/8", "9/8/8/8/8/8/8/8", "x7/8/8/8/8/8/8/8", "ppppppppp/8/8/8/8/8/8/8", "7/8/8/8/8/8/8/8"} {
		_, err := ParsePlacement(bad)
		assert.Error(t, err, bad)
	}
}

func TestParseFEN(t *testing.T) {
	gb, side, err := ParseFEN(StartFEN)
	require.NoError(t, err)
	assert.Equal(t, White, side)
	assert.Equal(t, StartingBoard(), gb.Board())
	assert.Equal(t, StartFEN, gb.FENPosition(true, side))

	_, _, err = ParseFEN("8/8/8/8/8/8/8/8 x")
	assert.Error(t, err)
}

func TestParseFENKeepsOrigin(t *testing.T) {
	cases := []struct {
		name      string
		fen       string
		side      Color
		castling  CastlingRights
		enPassant Coord
		halfmove  int
		fullmove  int
	}{
		{"start", StartFEN, White, AllCastling, Undefined(), 0, 1},
		{"no castling", "r3k2r/8/8/8/8/8/8/R3K2R w - - 0 1", White, NoCastling, Undefined(), 0, 1},
		{"partial castling", "r3k2r/8/8/8/8/8/8/R3K2R b Kq - 7 20", Black, WhiteKingSide | BlackQueenSide, Undefined(), 7, 20},
		{"en passant", "rnbqkbnr/ppp1pppp/8/8/3pP3/8/PPPP1PPP/RNBQKBNR b KQkq e3 0 3", Black, AllCastling, NewCoord(5, 4), 0, 3},
		{"placement and side only", "4k3/8/8/8/8/8/8/4K3 b", Black, AllCastling, Undefined(), 0, 1},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			gb, side, err := ParseFEN(tc.fen)
			require.NoError(t, err)
			assert.Equal(t, tc.side, side)
			assert.Equal(t, tc.side, gb.SideToMove())
			o := gb.Origin()
			assert.Equal(t, tc.castling, o.Castling)
			assert.Equal(t, tc.enPassant, o.EnPassant)
			assert.Equal(t, tc.halfmove, gb.HalfmoveClock())
			assert.Equal(t, tc.fullmove, gb.FullmoveNumber())
			if len(strings.Fields(tc.fen)) == 6 {
				assert.Equal(t, tc.fen, gb.FENPosition(true, side))
			}
		})
	}
}

func TestParseFENWithoutCastlingRejectsCastle(t *testing.T) {
	gb, side, err := ParseFEN("r3k2r/8/8/8/8/8/8/R3K2R w - - 0 1")
	require.NoError(t, err)
	g := NewGameFromBoard(gb, side)
	assert.Contains(t, g.FEN(), " w - - 0 1")
	assert.ErrorIs(t, g.ExecuteMove(NewCoord(7, 4), NewCoord(7, 6)), ErrIllegalMove)
	assert.ErrorIs(t, g.ExecuteMove(NewCoord(7, 4), NewCoord(7, 2)), ErrIllegalMove)

	gb, side, err = ParseFEN("r3k2r/8/8/8/8/8/8/R3K2R w Q - 0 1")
	require.NoError(t, err)
	g = NewGameFromBoard(gb, side)
	assert.ErrorIs(t, g.ExecuteMove(NewCoord(7, 4), NewCoord(7, 6)), ErrIllegalMove)
	require.NoError(t, g.ExecuteMove(NewCoord(7, 4), NewCoord(7, 2)))
	assert.Equal(t, "r3k2r/8/8/8/8/8/8/2KR3R b - - 1 1", g.FEN())
}

func TestParseFENEnPassantCapture(t *testing.T) {
	gb, side, err := ParseFEN("rnbqkbnr/ppp1pppp/8/8/3pP3/8/PPPP1PPP/RNBQKBNR b KQkq e3 0 3")
	require.NoError(t, err)
	g := NewGameFromBoard(gb, side)
	assert.Contains(t, gb.Targets(NewCoord(4, 3)), NewCoord(5, 4))
	require.NoError(t, g.ExecuteMove(NewCoord(4, 3), NewCoord(5, 4)))
	last, _ := g.Board().LastMove()
	assert.True(t, last.EnPassant)
	assert.Equal(t, "rnbqkbnr/ppp1pppp/8/8/8/4p3/PPPP1PPP/RNBQKBNR w KQkq - 0 4", g.FEN())
}

func TestParseFENBlackToMoveCheckmate(t *testing.T) {
	gb, side, err := ParseFEN("k7/1Q6/2K5/8/8/8/8/8 b - - 0 1")
	require.NoError(t, err)
	assert.Equal(t, Black, gb.SideToMove())
	assert.True(t, gb.IsCheckmate())
	assert.Equal(t, Checkmate, NewGameFromBoard(gb, side).State())
}

func TestFullmoveNumberWhenBlackMovesFirst(t *testing.T) {
	gb, side, err := ParseFEN("4k3/8/8/8/8/8/8/4K3 b - - 12 40")
	require.NoError(t, err)
	g := NewGameFromBoard(gb, side)
	playAll(t, g, "e8d8")
	assert.Equal(t, 41, g.Board().FullmoveNumber())
	assert.Equal(t, 13, g.Board().HalfmoveClock())
	playAll(t, g, "e1d1")
	assert.Equal(t, "3k4/8/8/8/8/8/8/3K4 b - - 14 41", g.FEN())

	g = NewGameFromBoard(NewGameBoardFrom(mustBoard(t, "4k3/8/8/8/8/8/8/4K3"), nil, Black), Black)
	playAll(t, g, "e8d8")
	assert.Equal(t, 2, g.Board().FullmoveNumber())
}

func TestParseFENErrors(t *testing.T) {
	for _, bad := range []string{
		"4k3/8/8/8/8/8/8/4K3",
		"4k3/8/8/8/8/8/8/4K3 white",
		"4k3/8/8/8/8/8/8/4K3 w KX - 0 1",
		"4k3/8/8/8/8/8/8/4K3 w KK - 0 1",
		"4k3/8/8/8/8/8/8/4K3 w - e3 0 1",
		"4k3/8/8/8/8/8/8/4K3 w - z9 0 1",
		"4k3/8/8/8/8/8/8/4K3 w - - -1 1",
		"4k3/8/8/8/8/8/8/4K3 w - - 0 0",
		"4k3/8/8/8/8/8/8/4K3 w - - 0 1 extra",
	} {
		_, _, err := ParseFEN(bad)
		assert.Error(t, err, bad)
	}
}

func TestBoardFlipped(t *testing.T) {
	b := StartingBoard()
	f := b.Flipped()
	assert.Equal(t, NewPiece(Rook, White), f.At(NewCoord(0, 7)))
	assert.Equal(t, b, f.Flipped())
}
