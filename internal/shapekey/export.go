// Package shapekey exports a mesh's shape keys to delta files and imports
// them back onto a (possibly different) mesh.
package shapekey

import (
	"fmt"
	"os"

	"github.com/spf13/afero"
	"go.uber.org/zap"

	"github.com/Faultbox/shapekey-exporter/internal/mesh"
	"github.com/Faultbox/shapekey-exporter/pkg/skx"
)

// Exporter writes the shape keys of a mesh as a delta file.
type Exporter struct {
	fs       afero.Fs
	log      *zap.Logger
	fileMode os.FileMode
}

// NewExporter creates an exporter writing through fs.
// A nil log discards messages; a zero fileMode uses skx.DefaultFileMode.
func NewExporter(fs afero.Fs, log *zap.Logger, fileMode os.FileMode) *Exporter {
	if log == nil {
		log = zap.NewNop()
	}
	if fileMode == 0 {
		fileMode = skx.DefaultFileMode
	}
	return &Exporter{fs: fs, log: log, fileMode: fileMode}
}

// Build computes the delta record of every non-basis shape key.
func (e *Exporter) Build(obj mesh.Object) (skx.DeltaFile, error) {
	if !obj.IsMesh() {
		return nil, fmt.Errorf("%w: %s", skx.ErrNotAMesh, obj.Name())
	}
	if !obj.HasShapeKeys() {
		return nil, fmt.Errorf("%w: %s", skx.ErrNoShapeKeys, obj.Name())
	}

	basisName := obj.ReferenceKey()
	basis, err := obj.Positions(basisName)
	if err != nil {
		return nil, fmt.Errorf("reading basis %q: %w", basisName, err)
	}

	df := skx.DeltaFile{}
	for _, name := range obj.ShapeKeyNames() {
		if name == basisName {
			continue
		}

		positions, err := obj.Positions(name)
		if err != nil {
			return nil, fmt.Errorf("reading shape key %q: %w", name, err)
		}
		if len(positions) != len(basis) {
			return nil, &skx.ShapeMismatchError{Name: name, Got: len(positions), Want: len(basis)}
		}

		df[name] = skx.Encode(basis, positions)
		e.log.Debug("encoded shape key",
			zap.String("shape_key", name),
			zap.Int("vertices", len(positions)))
	}

	return df, nil
}

// Export writes the delta file of obj to path. An empty path is a no-op
// that succeeds without touching obj, matching the file dialog being
// cancelled. Nothing is written unless every shape key encodes.
func (e *Exporter) Export(obj mesh.Object, path string) (skx.DeltaFile, error) {
	if path == "" {
		e.log.Debug("export skipped: no destination path")
		return nil, nil
	}

	df, err := e.Build(obj)
	if err != nil {
		return nil, err
	}

	if err := skx.WriteFile(e.fs, path, df, e.fileMode); err != nil {
		return nil, err
	}

	e.log.Info("exported shape keys",
		zap.String("object", obj.Name()),
		zap.String("basis", obj.ReferenceKey()),
		zap.Int("shape_keys", len(df)),
		zap.String("path", path))
	return df, nil
}
