package nnue

import (
	"errors"
	"fmt"
)

// Sentinel errors for errors.Is checks.
var (
	ErrShapeMismatch = errors.New("shape mismatch")
	ErrIO            = errors.New("io error")
	ErrParse         = errors.New("parse error")
	ErrMissingTensor = errors.New("missing tensor")
)

// ShapeError reports inconsistent layer dimensions.
// Layer is 1-indexed; zero means the error is not tied to a layer.
type ShapeError struct {
	Layer int
	What  string
	Want  int
	Got   int
}

func (e *ShapeError) Error() string {
	if e.Layer == 0 {
		return fmt.Sprintf("shape mismatch: %s: want %d, got %d", e.What, e.Want, e.Got)
	}
	return fmt.Sprintf("shape mismatch: layer %d %s: want %d, got %d", e.Layer, e.What, e.Want, e.Got)
}

func (e *ShapeError) Is(target error) bool { return target == ErrShapeMismatch }

// IOError wraps a filesystem failure with the operation and path.
type IOError struct {
	Op   string
	Path string
	Err  error
}

func (e *IOError) Error() string {
	return fmt.Sprintf("%s %s: %v", e.Op, e.Path, e.Err)
}

func (e *IOError) Unwrap() error { return e.Err }

func (e *IOError) Is(target error) bool { return target == ErrIO }

// ParseError reports an unreadable value in an exported text file.
type ParseError struct {
	Path string
	Line int
	Err  error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("parse %s:%d: %v", e.Path, e.Line, e.Err)
}

func (e *ParseError) Unwrap() error { return e.Err }

func (e *ParseError) Is(target error) bool { return target == ErrParse }

// MissingTensorError reports a tensor key absent from a state dict.
type MissingTensorError struct {
	Key string
}

func (e *MissingTensorError) Error() string {
	return fmt.Sprintf("missing tensor %q", e.Key)
}

func (e *MissingTensorError) Is(target error) bool { return target == ErrMissingTensor }
