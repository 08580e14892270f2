package nnue

import (
	"fmt"
	"math"

	"github.com/hailam/xqnnue/internal/board"
	"gonum.org/v1/gonum/mat"
)

// denseLayer holds quantised weights in input-major order: w[i][j] is the
// contribution of input i to output j.
type denseLayer struct {
	w    [][]int32
	bias []int32
}

// Network is the quantised, input-major view of a parameter set, as the
// engine builds it from the exported text files.
type Network struct {
	scale  int
	input  denseLayer
	hidden []denseLayer
}

// NewNetwork quantises p by rounding every value times scale to the nearest
// integer, halves away from zero. The product is taken in float32.
func NewNetwork(p *Params, scale int) (*Network, error) {
	if err := p.Validate(); err != nil {
		return nil, err
	}
	if scale <= 0 {
		return nil, fmt.Errorf("invalid quantisation scale %d", scale)
	}

	n := &Network{scale: scale}
	for i, l := range p.layers {
		dl, err := quantiseLayer(l, float64(scale))
		if err != nil {
			return nil, fmt.Errorf("layer %d: %w", i+1, err)
		}
		if i == 0 {
			n.input = dl
		} else {
			n.hidden = append(n.hidden, dl)
		}
	}
	return n, nil
}

func quantiseLayer(l Layer, scale float64) (denseLayer, error) {
	in, out := l.Dims()
	// The engine parses each value as float32 and scales in float32 before
	// rounding, so values near a half step round the way it does.
	q := func(v float64) (int32, error) {
		r := math.Round(float64(float32(v) * float32(scale)))
		if math.IsNaN(r) || r > math.MaxInt32 || r < math.MinInt32 {
			return 0, fmt.Errorf("value %v does not fit the quantised range", v)
		}
		return int32(r), nil
	}

	dl := denseLayer{
		w:    make([][]int32, in),
		bias: make([]int32, out),
	}
	for i := 0; i < in; i++ {
		dl.w[i] = make([]int32, out)
		for j := 0; j < out; j++ {
			v, err := q(l.Weights.At(j, i))
			if err != nil {
				return dl, err
			}
			dl.w[i][j] = v
		}
	}
	for j, b := range l.Biases {
		v, err := q(b)
		if err != nil {
			return dl, err
		}
		dl.bias[j] = v
	}
	return dl, nil
}

// InputSize returns the number of input features.
func (n *Network) InputSize() int { return len(n.input.w) }

// Scale returns the quantisation scale.
func (n *Network) Scale() int { return n.scale }

// Evaluate returns the first network output for the given active features.
// Indices outside the input range are ignored.
func (n *Network) Evaluate(plus, minus []int) int {
	acc := NewAccumulator(n)
	acc.Refresh(n, plus, minus)
	return n.Forward(acc)[0]
}

// EvaluatePosition evaluates pos from the side to move's perspective.
func (n *Network) EvaluatePosition(pos *board.Position) int {
	plus, minus := ActiveFeatures(pos, pos.SideToMove)
	return n.Evaluate(plus, minus)
}

// Forward runs the dense layers on a computed accumulator and returns every
// output. ReLU is applied after each layer except the last.
func (n *Network) Forward(acc *Accumulator) []int {
	cur := make([]int, len(acc.Values))
	copy(cur, acc.Values)
	if len(n.hidden) > 0 {
		relu(cur)
	}

	for k, l := range n.hidden {
		next := make([]int, len(l.bias))
		for j := range next {
			sum := int(l.bias[j])
			for i, x := range cur {
				sum += x * int(l.w[i][j])
			}
			next[j] = sum
		}
		if k < len(n.hidden)-1 {
			relu(next)
		}
		cur = next
	}
	return cur
}

func relu(v []int) {
	for i, x := range v {
		if x < 0 {
			v[i] = 0
		}
	}
}

// Forward runs the unquantised network on a dense input vector.
func Forward(p *Params, x []float64) ([]float64, error) {
	if len(x) != p.inputSize {
		return nil, &ShapeError{What: "input length", Want: p.inputSize, Got: len(x)}
	}
	cur := mat.NewVecDense(len(x), append([]float64(nil), x...))
	for k, l := range p.layers {
		_, out := l.Dims()
		next := mat.NewVecDense(out, append([]float64(nil), l.Biases...))
		var prod mat.VecDense
		prod.MulVec(l.Weights, cur)
		next.AddVec(next, &prod)
		if k < len(p.layers)-1 {
			for i := 0; i < out; i++ {
				if next.AtVec(i) < 0 {
					next.SetVec(i, 0)
				}
			}
		}
		cur = next
	}
	return append([]float64(nil), cur.RawVector().Data...), nil
}
