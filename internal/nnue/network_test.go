package nnue

import (
	"context"
	"math"
	"path/filepath"
	"testing"

	"github.com/hailam/xqnnue/internal/board"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"
)

func TestFeatureIndex(t *testing.T) {
	assert.Equal(t, 0, FeatureIndex(board.King, board.NewSquare(0, 0)))
	assert.Equal(t, 4*10+0, FeatureIndex(board.King, board.NewSquare(4, 0)))
	assert.Equal(t, 6*90+8*10+9, FeatureIndex(board.Pawn, board.NewSquare(8, 9)))
	assert.Equal(t, InputSize-1, FeatureIndex(board.Pawn, board.NewSquare(8, 9)))
	assert.Equal(t, -1, FeatureIndex(board.NoPieceType, board.NewSquare(0, 0)))
	assert.Equal(t, -1, FeatureIndex(board.Rook, board.NoSquare))
}

func TestActiveFeatures(t *testing.T) {
	pos := board.NewPosition()

	plus, minus := ActiveFeatures(pos, board.Red)
	assert.Len(t, plus, 16)
	assert.Len(t, minus, 16)
	assert.Contains(t, plus, FeatureIndex(board.King, board.NewSquare(4, 0)))
	assert.Contains(t, minus, FeatureIndex(board.King, board.NewSquare(4, 9)))

	bPlus, bMinus := ActiveFeatures(pos, board.Black)
	assert.ElementsMatch(t, plus, bMinus)
	assert.ElementsMatch(t, minus, bPlus)
}

func TestNetworkQuantisation(t *testing.T) {
	// One input layer 3 -> 2 and an output layer 2 -> 1.
	p, err := NewParams(3, []Layer{
		{Weights: mat.NewDense(2, 3, []float64{0.5, -1.0625, 0.25, 1, 0.1875, -0.5}), Biases: []float64{0.125, -0.3}},
		{Weights: mat.NewDense(1, 2, []float64{1.5, -0.25}), Biases: []float64{0.0625}},
	})
	require.NoError(t, err)

	n, err := NewNetwork(p, DefaultQuantScale)
	require.NoError(t, err)
	assert.Equal(t, 3, n.InputSize())

	// Quantised (x8, rounded): w1 rows by input = [4 8] [-9 2] [2 -4], b1 = [1 -2]
	// w2 = [12 -2], b2 = [1]
	// plus {0, 2}, minus {1}: acc = [1+4+2+9, -2+8-4-2] = [16, 0]
	// out = 1 + 16*12 + 0*-2 = 193
	assert.Equal(t, 193, n.Evaluate([]int{0, 2}, []int{1}))

	// Negative accumulator values are clipped before the output layer.
	// minus {0}: acc = [1-4, -2-8] = [-3, -10] -> [0, 0], out = 1
	assert.Equal(t, 1, n.Evaluate(nil, []int{0}))

	// Out-of-range indices are ignored.
	assert.Equal(t, n.Evaluate(nil, nil), n.Evaluate([]int{-1, 3, 99}, nil))
}

func TestAccumulatorIncremental(t *testing.T) {
	p, err := RandomParams(DefaultArchitecture(), 17)
	require.NoError(t, err)
	n, err := NewNetwork(p, DefaultQuantScale)
	require.NoError(t, err)

	pos := board.NewPosition()
	plus, minus := ActiveFeatures(pos, board.Red)

	full := NewAccumulator(n)
	full.Refresh(n, plus, minus)
	require.True(t, full.Computed)

	// Move the red cannon from b2 to e2 incrementally.
	from := FeatureIndex(board.Cannon, board.NewSquare(1, 2))
	to := FeatureIndex(board.Cannon, board.NewSquare(4, 2))
	inc := NewAccumulator(n)
	inc.Refresh(n, plus, minus)
	inc.Sub(n, from)
	inc.Add(n, to)

	moved, err := board.ParseFEN("rnbakabnr/9/1c5c1/p1p1p1p1p/9/9/P1P1P1P1P/4C2C1/9/RNBAKABNR w")
	require.NoError(t, err)
	mPlus, mMinus := ActiveFeatures(moved, board.Red)
	fresh := NewAccumulator(n)
	fresh.Refresh(n, mPlus, mMinus)

	assert.Equal(t, fresh.Values, inc.Values)
	assert.Equal(t, n.Forward(fresh), n.Forward(inc))
	assert.Equal(t, n.Forward(fresh)[0], n.EvaluatePosition(moved))
}

func TestEvaluateExportedNetwork(t *testing.T) {
	arch := DefaultArchitecture()
	p, err := RandomParams(arch, 2025)
	require.NoError(t, err)

	prefix := t.TempDir() + string(filepath.Separator)
	_, err = Export(context.Background(), p, ExportOptions{Prefix: prefix, Workers: 2})
	require.NoError(t, err)

	loaded, err := LoadExported(prefix, arch.InputSize, arch.OutSizes())
	require.NoError(t, err)

	direct, err := NewNetwork(p, DefaultQuantScale)
	require.NoError(t, err)
	viaText, err := NewNetwork(loaded, DefaultQuantScale)
	require.NoError(t, err)

	pos := board.NewPosition()
	assert.Equal(t, direct.EvaluatePosition(pos), viaText.EvaluatePosition(pos))
}

func TestForwardFloat(t *testing.T) {
	p := scenarioParams(t)
	out, err := Forward(p, []float64{1, -1})
	require.NoError(t, err)
	// Single layer: no activation. [1-2, 3-4, 5-6] + bias
	assert.InDeltaSlice(t, []float64{-0.9, -0.8, -0.7}, out, 1e-12)

	_, err = Forward(p, []float64{1})
	assert.ErrorIs(t, err, ErrShapeMismatch)
}

func TestNewNetworkErrors(t *testing.T) {
	_, err := NewNetwork(scenarioParams(t), 0)
	assert.Error(t, err)

	p, err := NewParams(1, []Layer{{Weights: mat.NewDense(1, 1, []float64{math.NaN()}), Biases: []float64{0}}})
	require.NoError(t, err)
	_, err = NewNetwork(p, DefaultQuantScale)
	assert.Error(t, err)
}

func TestQuantiseRoundsLikeEngine(t *testing.T) {
	// 0.0624999999 is 0.0625 in float32, so x8 lands exactly on 0.5 and
	// rounds away from zero. A float64 product would round to 0.
	p, err := NewParams(1, []Layer{{
		Weights: mat.NewDense(2, 1, []float64{0, 0}),
		Biases:  []float64{0.0624999999, -0.0624999999},
	}})
	require.NoError(t, err)

	prefix := t.TempDir() + string(filepath.Separator)
	_, err = Export(context.Background(), p, ExportOptions{Prefix: prefix})
	require.NoError(t, err)
	assert.Equal(t, []string{"6.249999990e-02", "-6.249999990e-02"}, readLines(t, BiasesPath(prefix, 1)))

	loaded, err := LoadExported(prefix, 1, []int{2})
	require.NoError(t, err)
	n, err := NewNetwork(loaded, DefaultQuantScale)
	require.NoError(t, err)

	acc := NewAccumulator(n)
	acc.Refresh(n, nil, nil)
	assert.Equal(t, []int{1, -1}, n.Forward(acc))
}

// swapSides rotates the board half a turn and swaps every piece's colour
// and the side to move.
func swapSides(pos *board.Position) *board.Position {
	m := &board.Position{SideToMove: pos.SideToMove.Other()}
	for i := range m.Squares {
		m.Squares[i] = board.NoPiece
	}
	for sq := board.Square(0); sq < board.NoSquare; sq++ {
		if p := pos.PieceAt(sq); p != board.NoPiece {
			m.Squares[sq.Mirror()] = board.NewPiece(p.Type(), p.Color().Other())
		}
	}
	return m
}

func mirrorFeature(idx int) int {
	pt := board.PieceType(idx / board.NumSquares)
	sq := board.Square(idx % board.NumSquares)
	return FeatureIndex(pt, sq.Mirror())
}

func mirrorFeatures(idx []int) []int {
	out := make([]int, len(idx))
	for i, f := range idx {
		out[i] = mirrorFeature(f)
	}
	return out
}

// mirrorInvariantNetwork returns a quantised network whose first-layer row
// for a feature equals the row of its mirrored feature.
func mirrorInvariantNetwork(t *testing.T) *Network {
	t.Helper()
	arch := DefaultArchitecture()
	p, err := RandomParams(arch, 99)
	require.NoError(t, err)
	sd, err := StateDictOf(p, arch)
	require.NoError(t, err)

	w := sd["fc.0.weight"]
	for o := 0; o < w.Shape[0]; o++ {
		row := w.Data[o*InputSize : (o+1)*InputSize]
		for idx := range row {
			if m := mirrorFeature(idx); m > idx {
				row[m] = row[idx]
			}
		}
	}
	sym, err := arch.Assemble(sd)
	require.NoError(t, err)
	n, err := NewNetwork(sym, DefaultQuantScale)
	require.NoError(t, err)
	return n
}

func TestSideSwapSymmetry(t *testing.T) {
	start := board.NewPosition()
	n := mirrorInvariantNetwork(t)

	t.Run("StartIsSelfMirrored", func(t *testing.T) {
		assert.Equal(t, start.Squares, swapSides(start).Squares)
	})

	t.Run("StartEvaluation", func(t *testing.T) {
		plus, minus := ActiveFeatures(start, board.Red)
		bPlus, bMinus := ActiveFeatures(start, board.Black)
		assert.ElementsMatch(t, mirrorFeatures(plus), bPlus)
		assert.ElementsMatch(t, mirrorFeatures(minus), bMinus)

		blackToMove := *start
		blackToMove.SideToMove = board.Black
		assert.Equal(t, n.EvaluatePosition(start), n.EvaluatePosition(&blackToMove))
	})

	t.Run("MirroredPosition", func(t *testing.T) {
		pos, err := board.ParseFEN("rnbakabnr/9/1c5c1/p1p1p1p1p/9/9/P1P1P1P1P/4C2C1/9/RNBAKABNR b")
		require.NoError(t, err)
		m := swapSides(pos)
		require.Equal(t, board.Red, m.SideToMove)

		plus, minus := ActiveFeatures(pos, board.Black)
		mPlus, mMinus := ActiveFeatures(m, board.Red)
		assert.ElementsMatch(t, mirrorFeatures(plus), mPlus)
		assert.ElementsMatch(t, mirrorFeatures(minus), mMinus)

		// The same pieces seen from the other colour swap roles.
		oPlus, oMinus := ActiveFeatures(pos, board.Red)
		assert.ElementsMatch(t, plus, oMinus)
		assert.ElementsMatch(t, minus, oPlus)

		assert.Equal(t, n.EvaluatePosition(pos), n.EvaluatePosition(m))
	})
}
