package nnue

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"math"
	"os"
	"strconv"

	"github.com/cespare/xxhash/v2"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"gonum.org/v1/gonum/mat"
)

// valuePrecision is the number of fractional mantissa digits written per value.
const valuePrecision = 9

// ExportOptions controls where and how parameters are written.
type ExportOptions struct {
	// Prefix is prepended verbatim to every file name. It may be a
	// directory with a trailing separator, a name stem, or empty.
	Prefix string

	// Workers is the number of layers written concurrently. Values below 2
	// write layers one after another in order.
	Workers int

	Logger *zap.Logger
}

// LayerFiles records what was written for one layer.
type LayerFiles struct {
	Index        int    `json:"index"`
	In           int    `json:"in"`
	Out          int    `json:"out"`
	WeightsPath  string `json:"weights_path"`
	BiasesPath   string `json:"biases_path"`
	WeightsXXH64 uint64 `json:"weights_xxh64"`
	BiasesXXH64  uint64 `json:"biases_xxh64"`
}

// Manifest describes one complete export run.
type Manifest struct {
	Prefix string       `json:"prefix"`
	Layers []LayerFiles `json:"layers"`
}

// WeightsPath returns the weights file name for 1-indexed layer k.
func WeightsPath(prefix string, k int) string {
	return fmt.Sprintf("%slayer_%d_weights.txt", prefix, k)
}

// BiasesPath returns the biases file name for 1-indexed layer k.
func BiasesPath(prefix string, k int) string {
	return fmt.Sprintf("%slayer_%d_biases.txt", prefix, k)
}

// AppendValue appends v in C "%.9e" notation: one leading digit, nine
// fractional digits and an exponent of at least two digits. Non-finite
// values use the C spelling (nan, inf, -inf).
func AppendValue(dst []byte, v float64) []byte {
	switch {
	case math.IsNaN(v):
		return append(dst, "nan"...)
	case math.IsInf(v, 1):
		return append(dst, "inf"...)
	case math.IsInf(v, -1):
		return append(dst, "-inf"...)
	}
	return strconv.AppendFloat(dst, v, 'e', valuePrecision, 64)
}

// FormatValue returns v in the exported text notation.
func FormatValue(v float64) string {
	return string(AppendValue(nil, v))
}

// Export writes every layer of p as a transposed weights file and a biases
// file named by 1-indexed layer position under opts.Prefix. Existing files
// are overwritten. The parameter set is validated before anything is
// written; an IO failure aborts the remaining layers without removing files
// already written.
func Export(ctx context.Context, p *Params, opts ExportOptions) (*Manifest, error) {
	if err := p.Validate(); err != nil {
		return nil, err
	}
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	m := &Manifest{
		Prefix: opts.Prefix,
		Layers: make([]LayerFiles, p.NumLayers()),
	}

	exportLayer := func(ctx context.Context, i int) error {
		if err := ctx.Err(); err != nil {
			return err
		}
		lf, err := writeLayer(opts.Prefix, i+1, p.layers[i])
		if err != nil {
			return err
		}
		m.Layers[i] = lf
		logger.Debug("layer exported",
			zap.Int("layer", lf.Index),
			zap.Int("in", lf.In),
			zap.Int("out", lf.Out),
			zap.String("weights", lf.WeightsPath),
			zap.String("biases", lf.BiasesPath))
		return nil
	}

	if opts.Workers < 2 {
		for i := range p.layers {
			if err := exportLayer(ctx, i); err != nil {
				return nil, err
			}
		}
	} else {
		g, gctx := errgroup.WithContext(ctx)
		g.SetLimit(opts.Workers)
		for i := range p.layers {
			g.Go(func() error { return exportLayer(gctx, i) })
		}
		if err := g.Wait(); err != nil {
			return nil, err
		}
	}

	logger.Info("parameters exported",
		zap.String("prefix", opts.Prefix),
		zap.Int("layers", p.NumLayers()))
	return m, nil
}

// writeLayer writes the weights and biases files of 1-indexed layer k.
func writeLayer(prefix string, k int, l Layer) (LayerFiles, error) {
	in, out := l.Dims()
	lf := LayerFiles{
		Index:       k,
		In:          in,
		Out:         out,
		WeightsPath: WeightsPath(prefix, k),
		BiasesPath:  BiasesPath(prefix, k),
	}

	var err error
	lf.WeightsXXH64, err = writeFile(lf.WeightsPath, func(w io.Writer) error {
		return WriteWeights(w, l.Weights)
	})
	if err != nil {
		return lf, err
	}
	lf.BiasesXXH64, err = writeFile(lf.BiasesPath, func(w io.Writer) error {
		return WriteBiases(w, l.Biases)
	})
	return lf, err
}

// writeFile creates path, streams fill through a buffer, and returns the
// xxhash64 digest of the bytes written. The file is closed on every path.
func writeFile(path string, fill func(io.Writer) error) (sum uint64, err error) {
	f, err := os.Create(path)
	if err != nil {
		return 0, &IOError{Op: "create", Path: path, Err: err}
	}
	defer func() {
		if cerr := f.Close(); err == nil && cerr != nil {
			err = &IOError{Op: "close", Path: path, Err: cerr}
		}
	}()

	digest := xxhash.New()
	bw := bufio.NewWriter(io.MultiWriter(f, digest))
	if err := fill(bw); err != nil {
		return 0, &IOError{Op: "write", Path: path, Err: err}
	}
	if err := bw.Flush(); err != nil {
		return 0, &IOError{Op: "write", Path: path, Err: err}
	}
	return digest.Sum64(), nil
}

// WriteWeights writes w (out, in) transposed: one line per input index,
// holding that input's contribution to every output in output order.
func WriteWeights(w io.Writer, weights mat.Matrix) error {
	t := weights.T()
	rows, cols := t.Dims()
	line := make([]byte, 0, cols*(valuePrecision+8))
	for i := 0; i < rows; i++ {
		line = line[:0]
		for j := 0; j < cols; j++ {
			if j > 0 {
				line = append(line, ' ')
			}
			line = AppendValue(line, t.At(i, j))
		}
		line = append(line, '\n')
		if _, err := w.Write(line); err != nil {
			return err
		}
	}
	return nil
}

// WriteBiases writes one bias value per line in output order.
func WriteBiases(w io.Writer, biases []float64) error {
	line := make([]byte, 0, valuePrecision+8)
	for _, v := range biases {
		line = AppendValue(line[:0], v)
		line = append(line, '\n')
		if _, err := w.Write(line); err != nil {
			return err
		}
	}
	return nil
}
