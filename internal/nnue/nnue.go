// Package nnue turns trained evaluation network parameters into the flat text
// layout consumed by the search engine, and reads that layout back.
//
// The network is a small fully-connected stack whose first layer takes the
// 630 sparse board features (7 piece types x 90 points). The first layer's
// weights are exported input-major so the engine can add or subtract one
// contiguous row per changed piece.
package nnue

import "github.com/hailam/xqnnue/internal/board"

// Network architecture constants
const (
	// Input features: piece type * board point
	InputSize = board.NumPieceTypes * board.NumSquares // 630

	L1Size     = 256
	L2Size     = 32
	L3Size     = 32
	OutputSize = 2

	// DefaultQuantScale is the integer scale the engine applies when loading
	// the exported floats.
	DefaultQuantScale = 8
)
