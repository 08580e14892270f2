package nnue

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"gonum.org/v1/gonum/mat"
)

const maxLineBytes = 16 << 20

// LoadExported reads the text files written by Export back into a parameter
// set. outSizes gives each layer's output width; the input width of layer k
// is the output width of layer k-1, or inputSize for the first layer.
func LoadExported(prefix string, inputSize int, outSizes []int) (*Params, error) {
	layers := make([]Layer, len(outSizes))
	in := inputSize
	for i, out := range outSizes {
		k := i + 1
		transposed, err := readWeightsFile(WeightsPath(prefix, k), k, in, out)
		if err != nil {
			return nil, err
		}
		biases, err := readBiasesFile(BiasesPath(prefix, k), k, out)
		if err != nil {
			return nil, err
		}
		layers[i] = Layer{Weights: mat.DenseCopyOf(transposed.T()), Biases: biases}
		in = out
	}
	return NewParams(inputSize, layers)
}

func readWeightsFile(path string, k, in, out int) (*mat.Dense, error) {
	if in <= 0 || out <= 0 {
		return nil, &ShapeError{Layer: k, What: "declared width", Want: 1, Got: min(in, out)}
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, &IOError{Op: "open", Path: path, Err: err}
	}
	defer f.Close()

	data := make([]float64, 0, in*out)
	lines, err := scanValues(f, path, func(line int, values []float64) error {
		if line > in {
			return nil
		}
		if len(values) != out {
			return fmt.Errorf("%s line %d: %w", path, line,
				&ShapeError{Layer: k, What: "values per line", Want: out, Got: len(values)})
		}
		data = append(data, values...)
		return nil
	})
	if err != nil {
		return nil, err
	}
	if lines != in {
		return nil, fmt.Errorf("%s: %w", path, &ShapeError{Layer: k, What: "weight lines", Want: in, Got: lines})
	}
	return mat.NewDense(in, out, data), nil
}

func readBiasesFile(path string, k, out int) ([]float64, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, &IOError{Op: "open", Path: path, Err: err}
	}
	defer f.Close()

	biases := make([]float64, 0, out)
	lines, err := scanValues(f, path, func(line int, values []float64) error {
		if len(values) != 1 {
			return fmt.Errorf("%s line %d: %w", path, line,
				&ShapeError{Layer: k, What: "values per line", Want: 1, Got: len(values)})
		}
		biases = append(biases, values[0])
		return nil
	})
	if err != nil {
		return nil, err
	}
	if lines != out {
		return nil, fmt.Errorf("%s: %w", path, &ShapeError{Layer: k, What: "bias lines", Want: out, Got: lines})
	}
	return biases, nil
}

// scanValues parses r line by line and hands each line's values to fn.
// It returns the number of lines seen.
func scanValues(r io.Reader, path string, fn func(line int, values []float64) error) (int, error) {
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64*1024), maxLineBytes)

	line := 0
	var values []float64
	for sc.Scan() {
		line++
		values = values[:0]
		for _, field := range strings.Fields(sc.Text()) {
			v, err := strconv.ParseFloat(field, 64)
			if err != nil {
				return line, &ParseError{Path: path, Line: line, Err: err}
			}
			values = append(values, v)
		}
		if err := fn(line, values); err != nil {
			return line, err
		}
	}
	if err := sc.Err(); err != nil {
		return line, &IOError{Op: "read", Path: path, Err: err}
	}
	return line, nil
}
