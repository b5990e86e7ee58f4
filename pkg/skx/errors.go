package skx

import (
	"errors"
	"fmt"

	"go.uber.org/multierr"
)

// Shape key transfer errors.
var (
	ErrNotAMesh      = errors.New("object is not a mesh")
	ErrNoShapeKeys   = errors.New("no active mesh with shape keys")
	ErrMalformedFile = errors.New("malformed shape key file")
	ErrShapeMismatch = errors.New("mesh vertex count is different")
	ErrBasisInFile   = errors.New("delta file contains the basis shape key")
	ErrInvalidName   = errors.New("invalid shape key name")
)

// IsSkipped reports whether err only describes shape keys an import left
// out, so the rest of the delta file was still applied.
func IsSkipped(err error) bool {
	errs := multierr.Errors(err)
	if len(errs) == 0 {
		return false
	}
	for _, e := range errs {
		if !errors.Is(e, ErrShapeMismatch) && !errors.Is(e, ErrBasisInFile) && !errors.Is(e, ErrInvalidName) {
			return false
		}
	}
	return true
}

// ShapeMismatchError reports a delta record whose length disagrees with the
// basis vertex count. It matches ErrShapeMismatch under errors.Is.
type ShapeMismatchError struct {
	Name string // Shape key name (empty when raised by Decode directly)
	Got  int    // Number of deltas in the record
	Want int    // Number of basis vertices
}

func (e *ShapeMismatchError) Error() string {
	if e.Name == "" {
		return fmt.Sprintf("%s: %d deltas for %d vertices", ErrShapeMismatch, e.Got, e.Want)
	}
	return fmt.Sprintf("%s: %s (%d deltas for %d vertices)", ErrShapeMismatch, e.Name, e.Got, e.Want)
}

func (e *ShapeMismatchError) Unwrap() error {
	return ErrShapeMismatch
}
