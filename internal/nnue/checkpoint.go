package nnue

import (
	"bufio"
	"encoding/binary"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// Checkpoint file format constants
const (
	MagicNumber = 0x4E4E5158 // "XQNN" little-endian
	Version     = 1

	jsonVersion = "1.0"
	maxNameLen  = math.MaxUint16
	maxDims     = 8
	maxElements = 1 << 28
)

// Tensor is a dense row-major array of values.
type Tensor struct {
	Shape []int     `json:"shape"`
	Data  []float64 `json:"data"`
}

// Len returns the number of elements implied by the shape.
func (t Tensor) Len() int {
	n := 1
	for _, d := range t.Shape {
		n *= d
	}
	return n
}

func (t Tensor) check() error {
	for _, d := range t.Shape {
		if d < 0 {
			return fmt.Errorf("%w: negative dimension %d", ErrShapeMismatch, d)
		}
	}
	if t.Len() != len(t.Data) {
		return &ShapeError{What: "element count", Want: t.Len(), Got: len(t.Data)}
	}
	return nil
}

// StateDict maps stable tensor keys to tensors.
type StateDict map[string]Tensor

// Keys returns the tensor keys in sorted order.
func (sd StateDict) Keys() []string {
	keys := make([]string, 0, len(sd))
	for k := range sd {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// StateDictOf flattens a parameter set back into a state dict using the
// keys of arch.
func StateDictOf(p *Params, arch Architecture) (StateDict, error) {
	if len(arch.Layers) != p.NumLayers() {
		return nil, &ShapeError{What: "layer count", Want: len(arch.Layers), Got: p.NumLayers()}
	}
	sd := make(StateDict, 2*len(arch.Layers))
	for i, spec := range arch.Layers {
		l := p.layers[i]
		in, out := l.Dims()
		sd[spec.WeightKey] = Tensor{
			Shape: []int{out, in},
			Data:  append([]float64(nil), l.Weights.RawMatrix().Data...),
		}
		sd[spec.BiasKey] = Tensor{
			Shape: []int{out},
			Data:  append([]float64(nil), l.Biases...),
		}
	}
	return sd, nil
}

// FileHeader is the header of a binary checkpoint.
type FileHeader struct {
	Magic   uint32
	Version uint32
	Count   uint32
}

// isJSON reports whether path selects the JSON encoding.
func isJSON(path string) bool {
	return strings.EqualFold(filepath.Ext(path), ".json")
}

// LoadStateDict loads a checkpoint, choosing the encoding by file extension.
func LoadStateDict(path string) (StateDict, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, &IOError{Op: "open", Path: path, Err: err}
	}
	defer f.Close()

	if isJSON(path) {
		sd, err := ReadStateDictJSON(f)
		if err != nil {
			return nil, fmt.Errorf("failed to load checkpoint %s: %w", path, err)
		}
		return sd, nil
	}
	sd, err := ReadStateDict(bufio.NewReader(f))
	if err != nil {
		return nil, fmt.Errorf("failed to load checkpoint %s: %w", path, err)
	}
	return sd, nil
}

// SaveStateDict writes a checkpoint, choosing the encoding by file extension.
// The file is written to a temporary name and renamed into place.
func SaveStateDict(path string, sd StateDict) error {
	tmp := path + ".tmp"
	f, err := os.Create(tmp)
	if err != nil {
		return &IOError{Op: "create", Path: tmp, Err: err}
	}

	w := bufio.NewWriter(f)
	if isJSON(path) {
		err = WriteStateDictJSON(w, sd)
	} else {
		err = WriteStateDict(w, sd)
	}
	if err == nil {
		if ferr := w.Flush(); ferr != nil {
			err = &IOError{Op: "write", Path: tmp, Err: ferr}
		}
	}
	if cerr := f.Close(); err == nil && cerr != nil {
		err = &IOError{Op: "close", Path: tmp, Err: cerr}
	}
	if err != nil {
		os.Remove(tmp)
		return err
	}

	if err := os.Rename(tmp, path); err != nil {
		return &IOError{Op: "rename", Path: path, Err: err}
	}
	return nil
}

// ReadStateDict reads a binary checkpoint.
// Format:
//   - Header: Magic (4 bytes), Version (4 bytes), Count (4 bytes)
//   - Per tensor: NameLen uint16, name, NDim uint8, dims uint32 x NDim,
//     float32 values in row-major order
func ReadStateDict(r io.Reader) (StateDict, error) {
	var header FileHeader
	if err := binary.Read(r, binary.LittleEndian, &header); err != nil {
		return nil, fmt.Errorf("failed to read header: %w", err)
	}
	if header.Magic != MagicNumber {
		return nil, fmt.Errorf("invalid magic number: expected %x, got %x", MagicNumber, header.Magic)
	}
	if header.Version != Version {
		return nil, fmt.Errorf("unsupported version: expected %d, got %d", Version, header.Version)
	}

	sd := make(StateDict, min(header.Count, 64))
	for i := uint32(0); i < header.Count; i++ {
		name, t, err := readTensor(r)
		if err != nil {
			return nil, fmt.Errorf("failed to read tensor %d: %w", i, err)
		}
		if _, dup := sd[name]; dup {
			return nil, fmt.Errorf("duplicate tensor %q", name)
		}
		sd[name] = t
	}
	return sd, nil
}

func readTensor(r io.Reader) (string, Tensor, error) {
	var nameLen uint16
	if err := binary.Read(r, binary.LittleEndian, &nameLen); err != nil {
		return "", Tensor{}, err
	}
	name := make([]byte, nameLen)
	if _, err := io.ReadFull(r, name); err != nil {
		return "", Tensor{}, err
	}

	var ndim uint8
	if err := binary.Read(r, binary.LittleEndian, &ndim); err != nil {
		return "", Tensor{}, err
	}
	if ndim > maxDims {
		return "", Tensor{}, fmt.Errorf("tensor %q: too many dimensions: %d", name, ndim)
	}
	dims := make([]uint32, ndim)
	if err := binary.Read(r, binary.LittleEndian, dims); err != nil {
		return "", Tensor{}, err
	}

	t := Tensor{Shape: make([]int, ndim)}
	n := 1
	for i, d := range dims {
		t.Shape[i] = int(d)
		n *= int(d)
		if n > maxElements {
			return "", Tensor{}, fmt.Errorf("tensor %q: too many elements", name)
		}
	}
	raw := make([]float32, t.Len())
	if err := binary.Read(r, binary.LittleEndian, raw); err != nil {
		return "", Tensor{}, fmt.Errorf("tensor %q data: %w", name, err)
	}
	t.Data = make([]float64, len(raw))
	for i, v := range raw {
		t.Data[i] = float64(v)
	}
	return string(name), t, nil
}

// WriteStateDict writes a binary checkpoint with tensors in sorted key order.
// Values are narrowed to float32.
func WriteStateDict(w io.Writer, sd StateDict) error {
	header := FileHeader{
		Magic:   MagicNumber,
		Version: Version,
		Count:   uint32(len(sd)),
	}
	if err := binary.Write(w, binary.LittleEndian, &header); err != nil {
		return fmt.Errorf("failed to write header: %w", err)
	}

	for _, name := range sd.Keys() {
		t := sd[name]
		if err := t.check(); err != nil {
			return fmt.Errorf("tensor %q: %w", name, err)
		}
		if err := writeTensor(w, name, t); err != nil {
			return fmt.Errorf("failed to write tensor %q: %w", name, err)
		}
	}
	return nil
}

func writeTensor(w io.Writer, name string, t Tensor) error {
	if len(name) > maxNameLen {
		return errors.New("name too long")
	}
	if len(t.Shape) > maxDims {
		return fmt.Errorf("too many dimensions: %d", len(t.Shape))
	}
	if err := binary.Write(w, binary.LittleEndian, uint16(len(name))); err != nil {
		return err
	}
	if _, err := io.WriteString(w, name); err != nil {
		return err
	}
	if err := binary.Write(w, binary.LittleEndian, uint8(len(t.Shape))); err != nil {
		return err
	}
	dims := make([]uint32, len(t.Shape))
	for i, d := range t.Shape {
		dims[i] = uint32(d)
	}
	if err := binary.Write(w, binary.LittleEndian, dims); err != nil {
		return err
	}
	raw := make([]float32, len(t.Data))
	for i, v := range t.Data {
		raw[i] = float32(v)
	}
	return binary.Write(w, binary.LittleEndian, raw)
}

type stateDictJSON struct {
	Version string            `json:"version"`
	Tensors map[string]Tensor `json:"tensors"`
}

// ReadStateDictJSON reads the JSON checkpoint encoding.
func ReadStateDictJSON(r io.Reader) (StateDict, error) {
	var doc stateDictJSON
	if err := json.NewDecoder(r).Decode(&doc); err != nil {
		return nil, fmt.Errorf("failed to unmarshal checkpoint: %w", err)
	}
	if doc.Version != jsonVersion {
		return nil, fmt.Errorf("unsupported version: expected %s, got %q", jsonVersion, doc.Version)
	}
	sd := StateDict(doc.Tensors)
	for _, name := range sd.Keys() {
		if err := sd[name].check(); err != nil {
			return nil, fmt.Errorf("tensor %q: %w", name, err)
		}
	}
	return sd, nil
}

// WriteStateDictJSON writes the JSON checkpoint encoding.
func WriteStateDictJSON(w io.Writer, sd StateDict) error {
	doc := stateDictJSON{Version: jsonVersion, Tensors: sd}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(doc); err != nil {
		return fmt.Errorf("failed to marshal checkpoint: %w", err)
	}
	return nil
}
