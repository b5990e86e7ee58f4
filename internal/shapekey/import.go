package shapekey

import (
	"errors"
	"fmt"

	"github.com/spf13/afero"
	"go.uber.org/multierr"
	"go.uber.org/zap"

	"github.com/Faultbox/shapekey-exporter/internal/mesh"
	"github.com/Faultbox/shapekey-exporter/pkg/math"
	"github.com/Faultbox/shapekey-exporter/pkg/skx"
)

// DefaultBasisName names the basis created on meshes without shape keys.
const DefaultBasisName = "basis"

// Report describes what an import changed.
type Report struct {
	Object       string
	Basis        string
	CreatedBasis bool     // Basis was created from the current geometry
	Created      []string // Shape keys that did not exist before
	Applied      []string // Shape keys whose positions were written
	Skipped      []string // Shape keys left untouched because of errors
}

// Importer applies delta files to mesh shape keys.
type Importer struct {
	fs        afero.Fs
	log       *zap.Logger
	basisName string
}

// NewImporter creates an importer reading through fs. A nil log discards
// messages; an empty basisName uses DefaultBasisName.
func NewImporter(fs afero.Fs, log *zap.Logger, basisName string) *Importer {
	if log == nil {
		log = zap.NewNop()
	}
	if basisName == "" {
		basisName = DefaultBasisName
	}
	return &Importer{fs: fs, log: log, basisName: basisName}
}

// Import reads the delta file at path and applies it to obj.
// See Apply for how errors and partial results are reported.
func (im *Importer) Import(obj mesh.Object, path string) (*Report, error) {
	if !obj.IsMesh() {
		return nil, fmt.Errorf("%w: %s", skx.ErrNotAMesh, obj.Name())
	}

	df, err := skx.ReadFile(im.fs, path)
	if err != nil {
		return nil, err
	}

	report, err := im.Apply(obj, df)
	if report != nil {
		im.log.Info("imported shape keys",
			zap.String("object", report.Object),
			zap.String("path", path),
			zap.Int("applied", len(report.Applied)),
			zap.Int("created", len(report.Created)),
			zap.Int("skipped", len(report.Skipped)))
	}
	return report, err
}

// Apply writes basis + delta into a shape key for every record of df,
// creating missing shape keys. A basis is created from the current geometry
// when obj has no shape keys and df holds at least one usable record.
//
// All records are checked before the mesh is touched. Records whose length
// differs from the basis vertex count, that have an empty name or that name
// the basis itself are skipped; the rest are still applied. The returned
// error then combines one error per skipped key (matching
// skx.ErrShapeMismatch, skx.ErrInvalidName or skx.ErrBasisInFile) and the
// report lists what was applied.
func (im *Importer) Apply(obj mesh.Object, df skx.DeltaFile) (*Report, error) {
	if !obj.IsMesh() {
		return nil, fmt.Errorf("%w: %s", skx.ErrNotAMesh, obj.Name())
	}

	report := &Report{Object: obj.Name()}

	// Without shape keys the basis will be the current geometry.
	createBasis := !obj.HasShapeKeys()
	var basis []math.Vec3
	if createBasis {
		report.Basis = im.basisName
		basis = obj.Vertices()
	} else {
		report.Basis = obj.ReferenceKey()
		var err error
		if basis, err = obj.Positions(report.Basis); err != nil {
			return report, fmt.Errorf("reading basis %q: %w", report.Basis, err)
		}
	}

	var skipErr error
	skip := func(name string, err error) {
		skipErr = multierr.Append(skipErr, err)
		report.Skipped = append(report.Skipped, name)
		im.log.Warn("skipping shape key",
			zap.String("shape_key", name),
			zap.Int("deltas", len(df[name])),
			zap.Int("vertices", len(basis)),
			zap.Error(err))
	}

	decoded := make(map[string][]math.Vec3, len(df))
	names := df.Names()
	for _, name := range names {
		switch name {
		case "":
			skip(name, fmt.Errorf("%w: empty shape key name", skx.ErrInvalidName))
			continue
		case report.Basis:
			skip(name, fmt.Errorf("%w: %q", skx.ErrBasisInFile, name))
			continue
		}

		positions, err := skx.Decode(basis, df[name])
		if err != nil {
			var mismatch *skx.ShapeMismatchError
			if errors.As(err, &mismatch) {
				mismatch.Name = name
			}
			skip(name, err)
			continue
		}
		decoded[name] = positions
	}

	if len(decoded) == 0 {
		return report, skipErr
	}

	if createBasis {
		if err := obj.AddShapeKey(im.basisName, false); err != nil {
			return report, multierr.Append(skipErr, fmt.Errorf("creating basis %q: %w", im.basisName, err))
		}
		report.CreatedBasis = true
		im.log.Debug("created basis from mesh geometry", zap.String("basis", im.basisName))
	}

	existing := make(map[string]bool)
	for _, name := range obj.ShapeKeyNames() {
		existing[name] = true
	}

	for _, name := range names {
		positions, ok := decoded[name]
		if !ok {
			continue
		}

		if !existing[name] {
			if err := obj.AddShapeKey(name, false); err != nil {
				return report, multierr.Append(skipErr, fmt.Errorf("creating shape key %q: %w", name, err))
			}
			report.Created = append(report.Created, name)
		}

		for i, p := range positions {
			if err := obj.SetPosition(name, i, p); err != nil {
				return report, multierr.Append(skipErr, fmt.Errorf("writing shape key %q: %w", name, err))
			}
		}
		report.Applied = append(report.Applied, name)
		im.log.Debug("applied shape key", zap.String("shape_key", name), zap.Int("vertices", len(positions)))
	}

	return report, skipErr
}
