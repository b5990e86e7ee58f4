package main

import (
	"errors"
	"fmt"
	"testing"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/multierr"

	"github.com/Faultbox/shapekey-exporter/internal/config"
	"github.com/Faultbox/shapekey-exporter/internal/mesh"
	"github.com/Faultbox/shapekey-exporter/pkg/math"
	"github.com/Faultbox/shapekey-exporter/pkg/skx"
)

const faceDoc = `name: Face
vertices: [[0, 0, 0], [1, 0, 0]]
shape_keys:
  - name: Basis
    positions: [[0, 0, 0], [1, 0, 0]]
  - name: open
    positions: [[0, 0, 0], [1, 0, 1]]
`

func newTestApp(t *testing.T) (*app, afero.Fs) {
	t.Helper()
	fs := afero.NewMemMapFs()
	a, err := newApp(config.Default(), fs)
	require.NoError(t, err)
	return a, fs
}

func TestExportImportCommands(t *testing.T) {
	a, fs := newTestApp(t)
	require.NoError(t, afero.WriteFile(fs, "/face.skm.yaml", []byte(faceDoc), 0644))
	require.NoError(t, afero.WriteFile(fs, "/head.skm.yaml", []byte("name: Head\nvertices: [[2, 2, 2], [3, 2, 2]]\n"), 0644))

	require.NoError(t, a.cmdExport([]string{"/face.skm.yaml", "/out/face"}))

	data, err := afero.ReadFile(fs, "/out/face.skx.json")
	require.NoError(t, err)
	assert.Equal(t, `{"open":[[0,0,0],[0,0,1]]}`, string(data))

	require.NoError(t, a.cmdImport([]string{"-o", "/head_morphs.skm.yaml", "/head.skm.yaml", "/out/face.skx.json"}))

	head, err := mesh.LoadDocument(fs, "/head_morphs.skm.yaml")
	require.NoError(t, err)
	assert.Equal(t, "basis", head.ReferenceKey())
	open, err := head.Positions("open")
	require.NoError(t, err)
	assert.Equal(t, []math.Vec3{{2, 2, 2}, {3, 2, 3}}, open)

	untouched, err := mesh.LoadDocument(fs, "/head.skm.yaml")
	require.NoError(t, err)
	assert.False(t, untouched.HasShapeKeys(), "input document must not change when -o is given")
}

func TestExportWithoutDestination(t *testing.T) {
	a, fs := newTestApp(t)
	require.NoError(t, afero.WriteFile(fs, "/face.skm.yaml", []byte(faceDoc), 0644))

	require.NoError(t, a.cmdExport([]string{"/face.skm.yaml"}))

	entries, err := afero.ReadDir(fs, "/")
	require.NoError(t, err)
	assert.Len(t, entries, 1)
}

func TestImportSavesPartialResult(t *testing.T) {
	a, fs := newTestApp(t)
	require.NoError(t, afero.WriteFile(fs, "/head.skm.yaml", []byte("name: Head\nvertices: [[0, 0, 0]]\n"), 0644))
	require.NoError(t, skx.WriteFile(fs, "/deltas.skx.json", skx.DeltaFile{
		"up":     {{0, 1, 0}},
		"broken": {{0, 1, 0}, {0, 1, 0}},
	}, skx.DefaultFileMode))

	err := a.cmdImport([]string{"/head.skm.yaml", "/deltas.skx.json"})
	require.Error(t, err)
	assert.Equal(t, 2, exitCode(err))

	head, err := mesh.LoadDocument(fs, "/head.skm.yaml")
	require.NoError(t, err)
	assert.Equal(t, []string{"basis", "up"}, head.ShapeKeyNames())
}

func TestImportSkipsEmptyName(t *testing.T) {
	a, fs := newTestApp(t)
	require.NoError(t, afero.WriteFile(fs, "/head.skm.yaml", []byte("name: Head\nvertices: [[0, 0, 0]]\n"), 0644))
	require.NoError(t, afero.WriteFile(fs, "/deltas.skx.json", []byte(`{"":[[0,0,1]],"good":[[0,1,0]]}`), 0644))

	err := a.cmdImport([]string{"/head.skm.yaml", "/deltas.skx.json"})
	require.Error(t, err)
	assert.True(t, errors.Is(err, skx.ErrInvalidName))
	assert.Equal(t, 2, exitCode(err))

	head, err := mesh.LoadDocument(fs, "/head.skm.yaml")
	require.NoError(t, err)
	assert.Equal(t, []string{"basis", "good"}, head.ShapeKeyNames())
}

func TestImportMalformedDoesNotSave(t *testing.T) {
	a, fs := newTestApp(t)
	require.NoError(t, afero.WriteFile(fs, "/head.skm.yaml", []byte("name: Head\nvertices: [[0, 0, 0]]\n"), 0644))
	require.NoError(t, afero.WriteFile(fs, "/bad.skx.json", []byte(`["not", "an", "object"]`), 0644))

	err := a.cmdImport([]string{"/head.skm.yaml", "/bad.skx.json"})
	require.Error(t, err)
	assert.True(t, errors.Is(err, skx.ErrMalformedFile))
	assert.Equal(t, 1, exitCode(err))

	head, err := mesh.LoadDocument(fs, "/head.skm.yaml")
	require.NoError(t, err)
	assert.False(t, head.HasShapeKeys())
}

func TestBuildCommand(t *testing.T) {
	a, fs := newTestApp(t)
	require.NoError(t, afero.WriteFile(fs, "/basis.obj", []byte("v 0 0 0\nv 1 0 0\n"), 0644))
	require.NoError(t, afero.WriteFile(fs, "/open.obj", []byte("v 0 0 0\nv 1 0 1\n"), 0644))

	require.NoError(t, a.cmdBuild([]string{"/face.skm.yaml", "/basis.obj", "open=/open.obj"}))

	m, err := mesh.LoadDocument(fs, "/face.skm.yaml")
	require.NoError(t, err)
	assert.Equal(t, "face", m.Name())
	assert.Equal(t, []string{"basis", "open"}, m.ShapeKeyNames())

	assert.Error(t, a.cmdBuild([]string{"/face.skm.yaml", "/basis.obj", "open"}))
}

func TestInspectCommand(t *testing.T) {
	a, fs := newTestApp(t)
	require.NoError(t, skx.WriteFile(fs, "/face.skx.json", skx.DeltaFile{
		"open": {{0, 0, 0}, {0, 0, 1}},
		"rest": {{0, 0, 0}, {0, 0, 0}},
	}, skx.DefaultFileMode))

	require.NoError(t, a.cmdInspect([]string{"-a", "/face.skx.json"}))
	assert.Error(t, a.cmdInspect([]string{"/missing.skx.json"}))
}

func TestConfigCommand(t *testing.T) {
	a, fs := newTestApp(t)

	require.NoError(t, a.cmdConfig([]string{"/conf/skxtool.yaml"}))

	data, err := afero.ReadFile(fs, "/conf/skxtool.yaml")
	require.NoError(t, err)
	assert.Contains(t, string(data), "basis_name: basis")
	assert.Contains(t, string(data), "file_mode:")
}

func TestExitCode(t *testing.T) {
	mismatch := &skx.ShapeMismatchError{Name: "a", Got: 1, Want: 2}

	tests := []struct {
		name string
		err  error
		want int
	}{
		{"mismatch only", mismatch, 2},
		{"basis in file", fmt.Errorf("%w: %q", skx.ErrBasisInFile, "Basis"), 2},
		{"combined skips", multierr.Combine(mismatch, &skx.ShapeMismatchError{Name: "b"}), 2},
		{"empty name", fmt.Errorf("%w: empty shape key name", skx.ErrInvalidName), 2},
		{"fatal", skx.ErrNotAMesh, 1},
		{"skip and fatal", multierr.Combine(mismatch, errors.New("disk full")), 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, exitCode(tt.err))
		})
	}
}
