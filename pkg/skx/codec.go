// Package skx implements the shape key delta format: the codec turning
// absolute shape key positions into per-vertex offsets and back, and the
// JSON serializer for *.skx.json files.
package skx

import (
	"fmt"
	"sort"

	"github.com/Faultbox/shapekey-exporter/pkg/math"
)

// DeltaFile maps shape key names to their delta records. A record holds one
// offset per basis vertex, in basis vertex order.
type DeltaFile map[string][]math.Vec3

// Encode returns shape[i] - basis[i] for every vertex.
// Both slices must come from the same mesh; a length mismatch panics.
func Encode(basis, shape []math.Vec3) []math.Vec3 {
	if len(basis) != len(shape) {
		panic(fmt.Sprintf("skx: encode length mismatch: basis %d, shape %d", len(basis), len(shape)))
	}

	deltas := make([]math.Vec3, len(basis))
	for i := range basis {
		deltas[i] = shape[i].Sub(basis[i])
	}
	return deltas
}

// Decode returns basis[i] + deltas[i] for every vertex.
// It fails with a *ShapeMismatchError when the lengths differ.
func Decode(basis, deltas []math.Vec3) ([]math.Vec3, error) {
	if len(basis) != len(deltas) {
		return nil, &ShapeMismatchError{Got: len(deltas), Want: len(basis)}
	}

	positions := make([]math.Vec3, len(basis))
	for i := range basis {
		positions[i] = basis[i].Add(deltas[i])
	}
	return positions, nil
}

// Names returns the shape key names in the file, sorted.
func (df DeltaFile) Names() []string {
	names := make([]string, 0, len(df))
	for name := range df {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
