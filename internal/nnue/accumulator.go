package nnue

// Accumulator stores the first layer's pre-activation values so a move only
// touches the rows of the features it changes.
type Accumulator struct {
	Values []int

	// Track if accumulator is computed
	Computed bool
}

// NewAccumulator allocates an accumulator sized for n's first layer.
func NewAccumulator(n *Network) *Accumulator {
	return &Accumulator{Values: make([]int, len(n.input.bias))}
}

// Refresh computes the accumulator from scratch: bias plus every plus row
// minus every minus row.
func (acc *Accumulator) Refresh(n *Network, plus, minus []int) {
	for j, b := range n.input.bias {
		acc.Values[j] = int(b)
	}
	for _, idx := range plus {
		acc.Add(n, idx)
	}
	for _, idx := range minus {
		acc.Sub(n, idx)
	}
	acc.Computed = true
}

// Add adds feature idx's row. Out-of-range indices are ignored.
func (acc *Accumulator) Add(n *Network, idx int) {
	if idx < 0 || idx >= len(n.input.w) {
		return
	}
	for j, w := range n.input.w[idx] {
		acc.Values[j] += int(w)
	}
}

// Sub subtracts feature idx's row. Out-of-range indices are ignored.
func (acc *Accumulator) Sub(n *Network, idx int) {
	if idx < 0 || idx >= len(n.input.w) {
		return
	}
	for j, w := range n.input.w[idx] {
		acc.Values[j] -= int(w)
	}
}
