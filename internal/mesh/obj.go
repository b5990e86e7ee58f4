package mesh

import (
	"bufio"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/spf13/afero"

	"github.com/Faultbox/shapekey-exporter/pkg/math"
)

// ReadOBJ reads the vertex positions ("v" lines) of a Wavefront OBJ stream
// in file order. All other statements are ignored.
func ReadOBJ(r io.Reader) ([]math.Vec3, error) {
	var vertices []math.Vec3

	scanner := bufio.NewScanner(r)
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := scanner.Text()
		if i := strings.IndexByte(line, '#'); i >= 0 {
			line = line[:i]
		}

		fields := strings.Fields(line)
		if len(fields) == 0 || fields[0] != "v" {
			continue
		}
		if len(fields) < 4 {
			return nil, fmt.Errorf("line %d: vertex needs 3 coordinates", lineNo)
		}

		var comps [3]float64
		for i := range comps {
			f, err := strconv.ParseFloat(fields[i+1], 64)
			if err != nil {
				return nil, fmt.Errorf("line %d: %w", lineNo, err)
			}
			comps[i] = f
		}
		vertices = append(vertices, math.FromArray(comps))
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}

	return vertices, nil
}

// ReadOBJFile reads the vertex positions of an OBJ file.
func ReadOBJFile(fs afero.Fs, path string) ([]math.Vec3, error) {
	f, err := fs.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening OBJ file: %w", err)
	}
	defer f.Close()

	vertices, err := ReadOBJ(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return vertices, nil
}

// ShapeSource names a shape key and the OBJ file holding its positions.
type ShapeSource struct {
	Name string
	Path string
}

// BuildFromOBJ assembles a mesh from a basis OBJ and one OBJ per shape key.
// The basis is named basisName; every shape must match its vertex count.
func BuildFromOBJ(fs afero.Fs, name, basisPath, basisName string, shapes []ShapeSource) (*Mesh, error) {
	basis, err := ReadOBJFile(fs, basisPath)
	if err != nil {
		return nil, err
	}

	m := New(name, basis)
	if len(shapes) == 0 {
		return m, nil
	}
	if err := m.AddShapeKey(basisName, false); err != nil {
		return nil, err
	}

	for _, shape := range shapes {
		positions, err := ReadOBJFile(fs, shape.Path)
		if err != nil {
			return nil, err
		}
		if len(positions) != len(basis) {
			return nil, fmt.Errorf("shape key %q from %s: %w (%d vertices, basis has %d)",
				shape.Name, shape.Path, ErrVertexCount, len(positions), len(basis))
		}
		if err := m.AddShapeKey(shape.Name, false); err != nil {
			return nil, err
		}
		for i, p := range positions {
			if err := m.SetPosition(shape.Name, i, p); err != nil {
				return nil, err
			}
		}
	}

	return m, nil
}
