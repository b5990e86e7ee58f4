package mesh

import (
	"fmt"
	"path/filepath"
	"strconv"

	"github.com/spf13/afero"
	"gopkg.in/yaml.v3"

	"github.com/Faultbox/shapekey-exporter/pkg/math"
)

// DocumentExtension is the conventional extension of mesh documents.
const DocumentExtension = ".skm.yaml"

// Point is a vertex position written as a YAML flow sequence [x, y, z].
type Point [3]float64

// MarshalYAML writes the point on a single line.
func (p Point) MarshalYAML() (interface{}, error) {
	node := &yaml.Node{Kind: yaml.SequenceNode, Style: yaml.FlowStyle}
	for _, c := range p {
		node.Content = append(node.Content, &yaml.Node{
			Kind:  yaml.ScalarNode,
			Value: strconv.FormatFloat(c, 'g', -1, 64),
		})
	}
	return node, nil
}

// UnmarshalYAML reads a 3-element numeric sequence.
func (p *Point) UnmarshalYAML(value *yaml.Node) error {
	if value.Kind != yaml.SequenceNode || len(value.Content) != 3 {
		return fmt.Errorf("line %d: point must be a sequence of 3 numbers", value.Line)
	}
	var comps []float64
	if err := value.Decode(&comps); err != nil {
		return err
	}
	copy(p[:], comps)
	return nil
}

// ShapeKeyDocument is the serialized form of a shape key.
type ShapeKeyDocument struct {
	Name      string  `yaml:"name"`
	Value     float64 `yaml:"value,omitempty"`
	Positions []Point `yaml:"positions"`
}

// Document is the serialized form of an object with its shape keys.
// The first shape key is the basis.
type Document struct {
	Name      string             `yaml:"name"`
	Type      string             `yaml:"type"`
	Vertices  []Point            `yaml:"vertices"`
	ShapeKeys []ShapeKeyDocument `yaml:"shape_keys,omitempty"`
}

// FromDocument builds a mesh from a document, validating that every shape
// key has one position per vertex and that names are unique.
func FromDocument(doc *Document) (*Mesh, error) {
	typ := doc.Type
	if typ == "" {
		typ = TypeMesh
	}

	m := &Mesh{
		name:     doc.Name,
		typ:      typ,
		vertices: pointsToVectors(doc.Vertices),
	}

	for i, skDoc := range doc.ShapeKeys {
		if skDoc.Name == "" {
			return nil, fmt.Errorf("shape key %d: %w", i, ErrEmptyShapeKeyName)
		}
		if m.ShapeKey(skDoc.Name) != nil {
			return nil, fmt.Errorf("%w: %q", ErrShapeKeyExists, skDoc.Name)
		}
		if len(skDoc.Positions) != len(doc.Vertices) {
			return nil, fmt.Errorf("shape key %q: %w (%d positions, %d vertices)",
				skDoc.Name, ErrVertexCount, len(skDoc.Positions), len(doc.Vertices))
		}
		m.shapeKeys = append(m.shapeKeys, &ShapeKey{
			Name:      skDoc.Name,
			Value:     skDoc.Value,
			Positions: pointsToVectors(skDoc.Positions),
		})
	}

	return m, nil
}

// Document returns the serialized form of the mesh.
func (m *Mesh) Document() *Document {
	doc := &Document{
		Name:     m.name,
		Type:     m.typ,
		Vertices: vectorsToPoints(m.vertices),
	}
	for _, key := range m.shapeKeys {
		doc.ShapeKeys = append(doc.ShapeKeys, ShapeKeyDocument{
			Name:      key.Name,
			Value:     key.Value,
			Positions: vectorsToPoints(key.Positions),
		})
	}
	return doc
}

// ParseDocument parses YAML mesh document data into a mesh.
func ParseDocument(data []byte) (*Mesh, error) {
	var doc Document
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("parsing mesh document: %w", err)
	}
	return FromDocument(&doc)
}

// LoadDocument reads a mesh document from disk.
func LoadDocument(fs afero.Fs, path string) (*Mesh, error) {
	data, err := afero.ReadFile(fs, path)
	if err != nil {
		return nil, fmt.Errorf("reading mesh document: %w", err)
	}
	m, err := ParseDocument(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return m, nil
}

// SaveDocument writes the mesh as a YAML document, creating parent
// directories as needed.
func SaveDocument(fs afero.Fs, path string, m *Mesh) error {
	if err := fs.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return err
	}

	data, err := yaml.Marshal(m.Document())
	if err != nil {
		return fmt.Errorf("encoding mesh document: %w", err)
	}

	return afero.WriteFile(fs, path, data, 0644)
}

func pointsToVectors(points []Point) []math.Vec3 {
	out := make([]math.Vec3, len(points))
	for i, p := range points {
		out[i] = math.FromArray(p)
	}
	return out
}

func vectorsToPoints(vectors []math.Vec3) []Point {
	out := make([]Point, len(vectors))
	for i, v := range vectors {
		out[i] = v.Array()
	}
	return out
}
