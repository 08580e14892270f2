package nnue

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/mat"
)

// RandomParams builds a parameter set for arch with small reproducible
// values, uniform in +-1/sqrt(fan_in). Intended for tests and for smoke
// testing the engine's loader without a trained checkpoint.
func RandomParams(arch Architecture, seed int64) (*Params, error) {
	// Use a simple LCG for reproducibility
	state := uint64(seed)
	next := func() float64 {
		state = state*6364136223846793005 + 1442695040888963407
		return float64(state>>11)/float64(1<<53)*2 - 1
	}

	layers := make([]Layer, len(arch.Layers))
	in := arch.InputSize
	for i, spec := range arch.Layers {
		if spec.Out <= 0 || in <= 0 {
			return nil, fmt.Errorf("layer %d: %w: width must be declared", i+1, ErrShapeMismatch)
		}
		limit := 1 / math.Sqrt(float64(in))

		w := make([]float64, spec.Out*in)
		for j := range w {
			w[j] = float64(float32(next() * limit))
		}
		b := make([]float64, spec.Out)
		for j := range b {
			b[j] = float64(float32(next() * limit))
		}

		layers[i] = Layer{Weights: mat.NewDense(spec.Out, in, w), Biases: b}
		in = spec.Out
	}
	return NewParams(arch.InputSize, layers)
}
