package board

import (
	"fmt"
	"strings"
)

// StartFEN is the FEN string for the starting position.
const StartFEN = "rnbakabnr/9/1c5c1/p1p1p1p1p/9/9/P1P1P1P1P/1C5C1/9/RNBAKABNR w - - 0 1"

// Position is a piece placement plus the side to move.
// Only what the evaluation input needs is tracked.
type Position struct {
	Squares    [NumSquares]Piece
	SideToMove Color
}

// NewPosition returns the starting position.
func NewPosition() *Position {
	pos, err := ParseFEN(StartFEN)
	if err != nil {
		panic(err)
	}
	return pos
}

// PieceAt returns the piece on the square.
func (p *Position) PieceAt(sq Square) Piece {
	if sq >= NoSquare {
		return NoPiece
	}
	return p.Squares[sq]
}

// ParseFEN parses a xiangqi FEN string and returns a Position.
// Fields after the side to move are accepted and ignored.
func ParseFEN(fen string) (*Position, error) {
	parts := strings.Fields(fen)
	if len(parts) < 1 {
		return nil, fmt.Errorf("invalid FEN: empty")
	}

	pos := &Position{SideToMove: Red}
	for i := range pos.Squares {
		pos.Squares[i] = NoPiece
	}

	if err := parsePiecePlacement(pos, parts[0]); err != nil {
		return nil, err
	}

	if len(parts) > 1 {
		switch parts[1] {
		case "w", "r":
			pos.SideToMove = Red
		case "b":
			pos.SideToMove = Black
		default:
			return nil, fmt.Errorf("invalid side to move: %s", parts[1])
		}
	}

	return pos, nil
}

// parsePiecePlacement fills the board from the first FEN field.
// Ranks are listed from black's back rank (9) down to red's (0).
func parsePiecePlacement(pos *Position, placement string) error {
	ranks := strings.Split(placement, "/")
	if len(ranks) != NumRanks {
		return fmt.Errorf("invalid FEN: need %d ranks, got %d", NumRanks, len(ranks))
	}

	for i, row := range ranks {
		rank := NumRanks - 1 - i
		file := 0
		for j := 0; j < len(row); j++ {
			c := row[j]
			if c >= '1' && c <= '9' {
				file += int(c - '0')
				continue
			}
			piece := PieceFromChar(c)
			if piece == NoPiece {
				return fmt.Errorf("invalid FEN: unknown piece %q", c)
			}
			if file >= NumFiles {
				return fmt.Errorf("invalid FEN: rank %d overflows", rank)
			}
			pos.Squares[NewSquare(file, rank)] = piece
			file++
		}
		if file != NumFiles {
			return fmt.Errorf("invalid FEN: rank %d has %d files", rank, file)
		}
	}
	return nil
}

// FEN returns the piece placement and side to move of the position.
func (p *Position) FEN() string {
	var sb strings.Builder
	for rank := NumRanks - 1; rank >= 0; rank-- {
		empty := 0
		for file := 0; file < NumFiles; file++ {
			piece := p.Squares[NewSquare(file, rank)]
			if piece == NoPiece {
				empty++
				continue
			}
			if empty > 0 {
				sb.WriteByte(byte('0' + empty))
				empty = 0
			}
			sb.WriteString(piece.String())
		}
		if empty > 0 {
			sb.WriteByte(byte('0' + empty))
		}
		if rank > 0 {
			sb.WriteByte('/')
		}
	}
	if p.SideToMove == Black {
		sb.WriteString(" b")
	} else {
		sb.WriteString(" w")
	}
	return sb.String()
}
