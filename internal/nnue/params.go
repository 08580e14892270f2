package nnue

import (
	"fmt"

	"gonum.org/v1/gonum/mat"
)

// Layer is one linear transformation as produced by training.
// Weights has shape (out, in); Biases has length out.
type Layer struct {
	Weights *mat.Dense
	Biases  []float64
}

// Dims returns the input and output widths of the layer.
func (l Layer) Dims() (in, out int) {
	if l.Weights == nil || l.Weights.IsEmpty() {
		return 0, 0
	}
	out, in = l.Weights.Dims()
	return in, out
}

// Shape describes one layer's (in, out) widths.
type Shape struct {
	In  int `json:"in" yaml:"in"`
	Out int `json:"out" yaml:"out"`
}

// Params is a validated, immutable parameter set.
// Construct it with NewParams or Architecture.Assemble; it is safe to share.
type Params struct {
	inputSize int
	layers    []Layer
}

// NewParams validates the layer chain against inputSize and returns a
// parameter set holding private copies of every tensor.
func NewParams(inputSize int, layers []Layer) (*Params, error) {
	if err := validateLayers(inputSize, layers); err != nil {
		return nil, err
	}

	p := &Params{
		inputSize: inputSize,
		layers:    make([]Layer, len(layers)),
	}
	for i, l := range layers {
		p.layers[i] = Layer{
			Weights: mat.DenseCopyOf(l.Weights),
			Biases:  append([]float64(nil), l.Biases...),
		}
	}
	return p, nil
}

// validateLayers checks that every layer's weight rows match its bias length
// and that widths chain from inputSize through the stack.
func validateLayers(inputSize int, layers []Layer) error {
	if inputSize <= 0 {
		return &ShapeError{What: "input size", Want: 1, Got: inputSize}
	}
	if len(layers) == 0 {
		return fmt.Errorf("%w: no layers", ErrShapeMismatch)
	}

	prev := inputSize
	for i, l := range layers {
		in, out := l.Dims()
		if out == 0 {
			return &ShapeError{Layer: i + 1, What: "weight rows", Want: len(l.Biases), Got: 0}
		}
		if out != len(l.Biases) {
			return &ShapeError{Layer: i + 1, What: "bias length", Want: out, Got: len(l.Biases)}
		}
		if in != prev {
			return &ShapeError{Layer: i + 1, What: "weight columns", Want: prev, Got: in}
		}
		prev = out
	}
	return nil
}

// Validate re-checks the parameter set. A zero Params is invalid.
func (p *Params) Validate() error {
	if p == nil {
		return fmt.Errorf("%w: nil parameter set", ErrShapeMismatch)
	}
	return validateLayers(p.inputSize, p.layers)
}

// InputSize returns the declared width of the first layer's input.
func (p *Params) InputSize() int { return p.inputSize }

// NumLayers returns the number of layers.
func (p *Params) NumLayers() int { return len(p.layers) }

// Weights returns a read-only view of layer i's (out, in) weight matrix.
func (p *Params) Weights(i int) mat.Matrix { return p.layers[i].Weights }

// Biases returns a copy of layer i's bias vector.
func (p *Params) Biases(i int) []float64 {
	return append([]float64(nil), p.layers[i].Biases...)
}

// Shapes returns the (in, out) widths of every layer in order.
func (p *Params) Shapes() []Shape {
	shapes := make([]Shape, len(p.layers))
	for i, l := range p.layers {
		in, out := l.Dims()
		shapes[i] = Shape{In: in, Out: out}
	}
	return shapes
}

// Equal reports whether two parameter sets hold identical values.
func (p *Params) Equal(o *Params) bool {
	if p.inputSize != o.inputSize || len(p.layers) != len(o.layers) {
		return false
	}
	for i := range p.layers {
		if !mat.Equal(p.layers[i].Weights, o.layers[i].Weights) {
			return false
		}
		a, b := p.layers[i].Biases, o.layers[i].Biases
		if len(a) != len(b) {
			return false
		}
		for j := range a {
			if a[j] != b[j] {
				return false
			}
		}
	}
	return true
}

// LayerSpec names the state dict tensors of one layer.
// Out is the expected output width; zero accepts any width.
type LayerSpec struct {
	WeightKey string `yaml:"weight_key"`
	BiasKey   string `yaml:"bias_key"`
	Out       int    `yaml:"out"`
}

// Architecture is the statically declared layer order of a network.
type Architecture struct {
	InputSize int         `yaml:"input_size"`
	Layers    []LayerSpec `yaml:"layers"`
}

// DefaultArchitecture returns the 630-256-32-32-2 evaluator, keyed the way
// the training module's sequential container names its linear layers.
func DefaultArchitecture() Architecture {
	return Architecture{
		InputSize: InputSize,
		Layers: []LayerSpec{
			{WeightKey: "fc.0.weight", BiasKey: "fc.0.bias", Out: L1Size},
			{WeightKey: "fc.2.weight", BiasKey: "fc.2.bias", Out: L2Size},
			{WeightKey: "fc.4.weight", BiasKey: "fc.4.bias", Out: L3Size},
			{WeightKey: "fc.6.weight", BiasKey: "fc.6.bias", Out: OutputSize},
		},
	}
}

// OutSizes returns the declared output width of every layer.
func (a Architecture) OutSizes() []int {
	sizes := make([]int, len(a.Layers))
	for i, l := range a.Layers {
		sizes[i] = l.Out
	}
	return sizes
}

// Assemble looks up every declared tensor in sd once and returns the
// validated parameter set.
func (a Architecture) Assemble(sd StateDict) (*Params, error) {
	layers := make([]Layer, len(a.Layers))
	for i, spec := range a.Layers {
		w, ok := sd[spec.WeightKey]
		if !ok {
			return nil, &MissingTensorError{Key: spec.WeightKey}
		}
		b, ok := sd[spec.BiasKey]
		if !ok {
			return nil, &MissingTensorError{Key: spec.BiasKey}
		}
		if len(w.Shape) != 2 {
			return nil, &ShapeError{Layer: i + 1, What: "weight rank", Want: 2, Got: len(w.Shape)}
		}
		if len(b.Shape) != 1 {
			return nil, &ShapeError{Layer: i + 1, What: "bias rank", Want: 1, Got: len(b.Shape)}
		}
		if err := w.check(); err != nil {
			return nil, fmt.Errorf("tensor %q: %w", spec.WeightKey, err)
		}
		if err := b.check(); err != nil {
			return nil, fmt.Errorf("tensor %q: %w", spec.BiasKey, err)
		}

		rows, cols := w.Shape[0], w.Shape[1]
		if rows == 0 || cols == 0 {
			return nil, &ShapeError{Layer: i + 1, What: "weight size", Want: 1, Got: 0}
		}
		if spec.Out != 0 && rows != spec.Out {
			return nil, &ShapeError{Layer: i + 1, What: "output width", Want: spec.Out, Got: rows}
		}
		layers[i] = Layer{
			Weights: mat.NewDense(rows, cols, w.Data),
			Biases:  b.Data,
		}
	}
	return NewParams(a.InputSize, layers)
}
