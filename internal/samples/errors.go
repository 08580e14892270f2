package samples

import (
	"errors"
	"fmt"
)

// Sentinel errors for errors.Is checks.
var (
	ErrParse  = errors.New("parse error")
	ErrSchema = errors.New("schema error")
	ErrIO     = errors.New("io error")
)

// ParseError reports a shard that is not a JSON array of objects.
type ParseError struct {
	Path string
	Err  error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("parse %s: %v", e.Path, e.Err)
}

func (e *ParseError) Unwrap() error { return e.Err }

func (e *ParseError) Is(target error) bool { return target == ErrParse }

// SchemaError reports a record without a data array.
// Record is the 0-indexed position of the record in its shard.
type SchemaError struct {
	Path   string
	Record int
	Reason string
}

func (e *SchemaError) Error() string {
	return fmt.Sprintf("%s: record %d: %s", e.Path, e.Record, e.Reason)
}

func (e *SchemaError) Is(target error) bool { return target == ErrSchema }

// IOError wraps a filesystem failure while reading the corpus.
type IOError struct {
	Path string
	Err  error
}

func (e *IOError) Error() string {
	return fmt.Sprintf("read %s: %v", e.Path, e.Err)
}

func (e *IOError) Unwrap() error { return e.Err }

func (e *IOError) Is(target error) bool { return target == ErrIO }
