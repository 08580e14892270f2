// Package board implements the xiangqi board geometry used by the NNUE input layer.
package board

import "fmt"

// Board dimensions.
const (
	NumFiles   = 9
	NumRanks   = 10
	NumSquares = NumFiles * NumRanks
)

// Square represents a point on the board (0-89).
// Encoded file-major as file*NumRanks + rank, matching the feature layout:
// file 0 is the a-file on red's left, rank 0 is red's back rank.
type Square uint8

// NoSquare represents an invalid or missing square.
const NoSquare Square = NumSquares

// NewSquare creates a square from file (0-8) and rank (0-9).
func NewSquare(file, rank int) Square {
	if file < 0 || file >= NumFiles || rank < 0 || rank >= NumRanks {
		return NoSquare
	}
	return Square(file*NumRanks + rank)
}

// File returns the file (0-8) of the square.
func (sq Square) File() int {
	return int(sq) / NumRanks
}

// Rank returns the rank (0-9) of the square.
func (sq Square) Rank() int {
	return int(sq) % NumRanks
}

// Mirror flips the square to the other side's point of view.
func (sq Square) Mirror() Square {
	if sq >= NoSquare {
		return NoSquare
	}
	return NewSquare(NumFiles-1-sq.File(), NumRanks-1-sq.Rank())
}

// String returns the square in algebraic notation (e.g. "e0").
func (sq Square) String() string {
	if sq >= NoSquare {
		return "-"
	}
	return fmt.Sprintf("%c%d", 'a'+sq.File(), sq.Rank())
}

// ParseSquare parses algebraic notation (e.g. "e0") to a Square.
func ParseSquare(s string) (Square, error) {
	if len(s) != 2 {
		return NoSquare, fmt.Errorf("invalid square: %s", s)
	}
	file := int(s[0] - 'a')
	rank := int(s[1] - '0')
	sq := NewSquare(file, rank)
	if sq == NoSquare {
		return NoSquare, fmt.Errorf("invalid square: %s", s)
	}
	return sq, nil
}
