package mesh

import (
	"fmt"

	"github.com/Faultbox/shapekey-exporter/pkg/math"
)

// TypeMesh is the object type carrying mesh geometry.
const TypeMesh = "mesh"

// ShapeKey is a named set of vertex positions.
type ShapeKey struct {
	Name      string
	Value     float64 // Influence used when mixing (0-1)
	Positions []math.Vec3
}

// Mesh is an in-memory Object.
type Mesh struct {
	name      string
	typ       string
	vertices  []math.Vec3
	shapeKeys []*ShapeKey
}

// New creates a mesh object with the given geometry and no shape keys.
func New(name string, vertices []math.Vec3) *Mesh {
	return &Mesh{
		name:     name,
		typ:      TypeMesh,
		vertices: cloneVectors(vertices),
	}
}

// NewObject creates an object of an arbitrary type without geometry.
func NewObject(name, typ string) *Mesh {
	return &Mesh{name: name, typ: typ}
}

// Name returns the object name.
func (m *Mesh) Name() string {
	return m.name
}

// Type returns the object type.
func (m *Mesh) Type() string {
	return m.typ
}

// IsMesh reports whether the object type is TypeMesh.
func (m *Mesh) IsMesh() bool {
	return m.typ == TypeMesh
}

// VertexCount returns the number of mesh vertices.
func (m *Mesh) VertexCount() int {
	return len(m.vertices)
}

// Vertices returns a copy of the mesh geometry.
func (m *Mesh) Vertices() []math.Vec3 {
	return cloneVectors(m.vertices)
}

// HasShapeKeys reports whether the mesh has a basis.
func (m *Mesh) HasShapeKeys() bool {
	return len(m.shapeKeys) > 0
}

// ReferenceKey returns the basis name. The basis is always the first key.
func (m *Mesh) ReferenceKey() string {
	if len(m.shapeKeys) == 0 {
		return ""
	}
	return m.shapeKeys[0].Name
}

// ShapeKeyNames returns the shape key names in creation order.
func (m *Mesh) ShapeKeyNames() []string {
	names := make([]string, len(m.shapeKeys))
	for i, key := range m.shapeKeys {
		names[i] = key.Name
	}
	return names
}

// ShapeKey returns a shape key by name, or nil if not found.
func (m *Mesh) ShapeKey(name string) *ShapeKey {
	for _, key := range m.shapeKeys {
		if key.Name == name {
			return key
		}
	}
	return nil
}

// Positions returns a copy of a shape key's vertex positions.
func (m *Mesh) Positions(key string) ([]math.Vec3, error) {
	sk := m.ShapeKey(key)
	if sk == nil {
		return nil, fmt.Errorf("%w: %q", ErrShapeKeyNotFound, key)
	}
	return cloneVectors(sk.Positions), nil
}

// AddShapeKey creates a shape key.
func (m *Mesh) AddShapeKey(name string, fromMix bool) error {
	if name == "" {
		return ErrEmptyShapeKeyName
	}
	if m.ShapeKey(name) != nil {
		return fmt.Errorf("%w: %q", ErrShapeKeyExists, name)
	}

	var positions []math.Vec3
	switch {
	case len(m.shapeKeys) == 0:
		positions = cloneVectors(m.vertices)
	case fromMix:
		positions = m.Mix()
	default:
		positions = cloneVectors(m.shapeKeys[0].Positions)
	}

	m.shapeKeys = append(m.shapeKeys, &ShapeKey{Name: name, Positions: positions})
	return nil
}

// SetPosition overwrites one vertex of a shape key. Writing the basis also
// moves the mesh geometry.
func (m *Mesh) SetPosition(key string, index int, v math.Vec3) error {
	sk := m.ShapeKey(key)
	if sk == nil {
		return fmt.Errorf("%w: %q", ErrShapeKeyNotFound, key)
	}
	if index < 0 || index >= len(sk.Positions) {
		return fmt.Errorf("%w: %d (shape key %q has %d vertices)", ErrVertexIndex, index, key, len(sk.Positions))
	}

	sk.Positions[index] = v
	if sk == m.shapeKeys[0] {
		m.vertices[index] = v
	}
	return nil
}

// Mix returns the basis plus every other key's offset scaled by its value.
// Without shape keys it returns the mesh geometry.
func (m *Mesh) Mix() []math.Vec3 {
	if len(m.shapeKeys) == 0 {
		return cloneVectors(m.vertices)
	}

	basis := m.shapeKeys[0].Positions
	mix := cloneVectors(basis)
	for _, key := range m.shapeKeys[1:] {
		if key.Value == 0 {
			continue
		}
		for i := range mix {
			offset := key.Positions[i].Sub(basis[i])
			mix[i] = mix[i].Add(offset.Scale(key.Value))
		}
	}
	return mix
}

func cloneVectors(v []math.Vec3) []math.Vec3 {
	if v == nil {
		return nil
	}
	out := make([]math.Vec3, len(v))
	copy(out, v)
	return out
}
