package board

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseFENStart(t *testing.T) {
	pos, err := ParseFEN(StartFEN)
	require.NoError(t, err)

	assert.Equal(t, Red, pos.SideToMove)
	assert.Equal(t, RedRook, pos.PieceAt(NewSquare(0, 0)))
	assert.Equal(t, RedKing, pos.PieceAt(NewSquare(4, 0)))
	assert.Equal(t, RedCannon, pos.PieceAt(NewSquare(1, 2)))
	assert.Equal(t, RedPawn, pos.PieceAt(NewSquare(0, 3)))
	assert.Equal(t, BlackKing, pos.PieceAt(NewSquare(4, 9)))
	assert.Equal(t, BlackCannon, pos.PieceAt(NewSquare(7, 7)))
	assert.Equal(t, NoPiece, pos.PieceAt(NewSquare(4, 4)))

	count := 0
	for _, p := range pos.Squares {
		if p != NoPiece {
			count++
		}
	}
	assert.Equal(t, 32, count)
}

func TestFENRoundTrip(t *testing.T) {
	fens := []string{
		"rnbakabnr/9/1c5c1/p1p1p1p1p/9/9/P1P1P1P1P/1C5C1/9/RNBAKABNR w",
		"3k5/9/9/9/9/9/9/4K4/4A4/4C4 w",
		"2bak4/9/3a5/p1p1c1p1p/5r3/2P1P4/P7P/9/4A4/2BK1Ar2 b",
	}
	for _, fen := range fens {
		pos, err := ParseFEN(fen)
		require.NoError(t, err, fen)
		assert.Equal(t, fen, pos.FEN())
	}
}

func TestParseFENAlternativeLetters(t *testing.T) {
	pos, err := ParseFEN("rheakaehr/9/1c5c1/p1p1p1p1p/9/9/P1P1P1P1P/1C5C1/9/RHEAKAEHR b - - 0 1")
	require.NoError(t, err)
	assert.Equal(t, Black, pos.SideToMove)
	assert.Equal(t, RedKnight, pos.PieceAt(NewSquare(1, 0)))
	assert.Equal(t, BlackBishop, pos.PieceAt(NewSquare(2, 9)))
}

func TestParseFENErrors(t *testing.T) {
	cases := map[string]string{
		"empty":      "",
		"few ranks":  "9/9/9 w",
		"bad piece":  "rnbakabnr/9/1c5c1/p1p1p1p1p/9/9/P1P1P1P1P/1C5C1/9/RNBAKQBNR w",
		"short rank": "rnbakabn/9/1c5c1/p1p1p1p1p/9/9/P1P1P1P1P/1C5C1/9/RNBAKABNR w",
		"long rank":  "rnbakabnr1/9/1c5c1/p1p1p1p1p/9/9/P1P1P1P1P/1C5C1/9/RNBAKABNR w",
		"bad side":   "rnbakabnr/9/1c5c1/p1p1p1p1p/9/9/P1P1P1P1P/1C5C1/9/RNBAKABNR x",
	}
	for name, fen := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := ParseFEN(fen)
			assert.Error(t, err)
		})
	}
}

func TestSquare(t *testing.T) {
	sq := NewSquare(4, 0)
	assert.Equal(t, 4, sq.File())
	assert.Equal(t, 0, sq.Rank())
	assert.Equal(t, "e0", sq.String())
	assert.Equal(t, NewSquare(4, 9), sq.Mirror())
	assert.Equal(t, NoSquare, NewSquare(9, 0))
	assert.Equal(t, NoSquare, NewSquare(0, 10))

	parsed, err := ParseSquare("i9")
	require.NoError(t, err)
	assert.Equal(t, NewSquare(8, 9), parsed)

	_, err = ParseSquare("j0")
	assert.Error(t, err)
}

func TestPiece(t *testing.T) {
	for c := Red; c <= Black; c++ {
		for pt := King; pt < NoPieceType; pt++ {
			p := NewPiece(pt, c)
			assert.Equal(t, pt, p.Type())
			assert.Equal(t, c, p.Color())
			assert.Equal(t, p, PieceFromChar(p.String()[0]))
		}
	}
	assert.Equal(t, NoPiece, NewPiece(NoPieceType, Red))
	assert.Equal(t, Black, Red.Other())
}
