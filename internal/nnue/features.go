package nnue

import "github.com/hailam/xqnnue/internal/board"

// FeatureIndex computes the input feature index for a piece type on a square.
// Layout: pieceType * 90 + file * 10 + rank.
func FeatureIndex(pt board.PieceType, sq board.Square) int {
	if pt >= board.NoPieceType || sq >= board.NoSquare {
		return -1
	}
	return int(pt)*board.NumSquares + int(sq)
}

// ActiveFeatures returns the feature indices of every piece on the board,
// split by owner: pieces of perspective add to the accumulator, opposing
// pieces subtract from it.
func ActiveFeatures(pos *board.Position, perspective board.Color) (plus, minus []int) {
	plus = make([]int, 0, 16)
	minus = make([]int, 0, 16)

	for file := 0; file < board.NumFiles; file++ {
		for rank := 0; rank < board.NumRanks; rank++ {
			sq := board.NewSquare(file, rank)
			piece := pos.PieceAt(sq)
			if piece == board.NoPiece {
				continue
			}
			idx := FeatureIndex(piece.Type(), sq)
			if piece.Color() == perspective {
				plus = append(plus, idx)
			} else {
				minus = append(minus, idx)
			}
		}
	}
	return plus, minus
}
