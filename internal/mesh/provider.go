// Package mesh provides the mesh data the shape key exporter reads and
// writes: the Object interface a host implements, an in-memory mesh with
// shape keys, a YAML mesh document and an OBJ vertex reader.
package mesh

import (
	"errors"

	"github.com/Faultbox/shapekey-exporter/pkg/math"
)

// Shape key errors.
var (
	ErrShapeKeyNotFound  = errors.New("shape key not found")
	ErrShapeKeyExists    = errors.New("shape key already exists")
	ErrEmptyShapeKeyName = errors.New("shape key name is empty")
	ErrVertexIndex       = errors.New("vertex index out of range")
	ErrVertexCount       = errors.New("vertex count does not match mesh")
)

// Object is a scene object as seen by the exporter and importer.
// The host owns the data; callers only read and write through these methods.
type Object interface {
	// Name returns the object name, used in log messages.
	Name() string
	// IsMesh reports whether the object carries mesh geometry.
	IsMesh() bool
	// Vertices returns a copy of the current mesh geometry.
	Vertices() []math.Vec3
	// HasShapeKeys reports whether a shape key set (and so a basis) exists.
	HasShapeKeys() bool
	// ReferenceKey returns the basis shape key name, or "" without shape keys.
	ReferenceKey() string
	// ShapeKeyNames returns all shape key names, basis included.
	ShapeKeyNames() []string
	// Positions returns a copy of the vertex positions of a shape key.
	Positions(key string) ([]math.Vec3, error)
	// AddShapeKey creates a shape key. The first key added becomes the basis
	// and takes the current mesh geometry. Later keys start from the basis,
	// or from the current mix of all keys when fromMix is set.
	AddShapeKey(name string, fromMix bool) error
	// SetPosition overwrites one vertex position of a shape key.
	SetPosition(key string, index int, v math.Vec3) error
}
