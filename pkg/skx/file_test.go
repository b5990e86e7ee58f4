package skx

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Faultbox/shapekey-exporter/pkg/math"
)

func TestMarshal(t *testing.T) {
	df := DeltaFile{
		"smile": {{0, 0.01, -0.02}, {0, 0, 0}},
		"frown": {{0, -0.01, 0}, {0, 0, 0}},
	}

	data, err := Marshal(df)
	require.NoError(t, err)
	assert.Equal(t, `{"frown":[[0,-0.01,0],[0,0,0]],"smile":[[0,0.01,-0.02],[0,0,0]]}`, string(data))
}

func TestMarshalKeepsNonASCIINames(t *testing.T) {
	df := DeltaFile{
		"笑顔":    {{0.5, 0, -0.25}},
		"a<b&c": {{1, 2, 3}},
	}

	data, err := Marshal(df)
	require.NoError(t, err)
	assert.Equal(t, `{"a<b&c":[[1,2,3]],"笑顔":[[0.5,0,-0.25]]}`, string(data))
}

func TestMarshalDeterministic(t *testing.T) {
	df := DeltaFile{}
	for _, name := range []string{"z", "a", "m", "b", "y", "c"} {
		df[name] = []math.Vec3{{1, 2, 3}}
	}

	first, err := Marshal(df)
	require.NoError(t, err)
	for i := 0; i < 10; i++ {
		again, err := Marshal(df)
		require.NoError(t, err)
		assert.Equal(t, first, again)
	}
}

func TestUnmarshal(t *testing.T) {
	data := []byte(`{"smile": [[0.0,0.01,-0.02],[0.0,0.0,0.0]], "frown": [[0.0,-0.01,0.0],[0.0,0.0,0.0]]}`)

	df, err := Unmarshal(data)
	require.NoError(t, err)
	assert.Equal(t, DeltaFile{
		"smile": {{0, 0.01, -0.02}, {0, 0, 0}},
		"frown": {{0, -0.01, 0}, {0, 0, 0}},
	}, df)
}

func TestUnmarshalPrettyPrinted(t *testing.T) {
	data := []byte("{\n\"open\": [\n[0, 0, 0],\n[0, 0, 1e-3]\n]\n}\n")

	df, err := Unmarshal(data)
	require.NoError(t, err)
	assert.Equal(t, DeltaFile{"open": {{0, 0, 0}, {0, 0, 0.001}}}, df)
}

func TestUnmarshalEmpty(t *testing.T) {
	df, err := Unmarshal([]byte(`{}`))
	require.NoError(t, err)
	assert.Empty(t, df)

	df, err = Unmarshal([]byte(`{"flat":[]}`))
	require.NoError(t, err)
	assert.Equal(t, DeltaFile{"flat": {}}, df)
}

func TestUnmarshalMalformed(t *testing.T) {
	tests := []struct {
		name string
		data string
	}{
		{"empty input", ``},
		{"top-level array", `[[0,0,0]]`},
		{"top-level string", `"smile"`},
		{"record is a number", `{"smile":1}`},
		{"record is null", `{"smile":null}`},
		{"record is an object", `{"smile":{"x":0}}`},
		{"vector is a number", `{"smile":[1]}`},
		{"vector is an object", `{"smile":[{"x":0,"y":0,"z":0}]}`},
		{"two components", `{"smile":[[1,2]]}`},
		{"four components", `{"smile":[[1,2,3,4]]}`},
		{"string component", `{"smile":[[1,"2",3]]}`},
		{"null component", `{"smile":[[1,2,null]]}`},
		{"bool component", `{"smile":[[true,2,3]]}`},
		{"second vector broken", `{"smile":[[1,2,3],[1,2]]}`},
		{"truncated", `{"smile":[[1,2,3]]`},
		{"trailing data", `{"smile":[[1,2,3]]} {}`},
		{"not json", `smile = 1`},
		{"invalid UTF-8 key", "{\"sm\xffile\":[[1,2,3]]}"},
		{"invalid UTF-8 after object", "{\"smile\":[[1,2,3]]}\xc3"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Unmarshal([]byte(tt.data))
			require.Error(t, err)
			assert.True(t, errors.Is(err, ErrMalformedFile), "got %v", err)
		})
	}
}

func TestMarshalUnmarshalRoundTrip(t *testing.T) {
	df := DeltaFile{
		"jaw_open":  {{0, -0.125, 0.0625}, {1e-8, 0, -3.75}, {0, 0, 0}},
		"brow_up.L": {{0.1, 0.2, 0.3}, {-0.3, -0.2, -0.1}, {12345.678, 0, 1e20}},
		"ええ":        {{0, 0, 0}, {0, 0, 0}, {0, 0, 0}},
	}

	data, err := Marshal(df)
	require.NoError(t, err)

	got, err := Unmarshal(data)
	require.NoError(t, err)
	assert.Equal(t, df, got)
}

func TestWriteReadFile(t *testing.T) {
	fs := afero.NewMemMapFs()
	df := DeltaFile{"open": {{0, 0, 0}, {0, 0, 1}}}

	require.NoError(t, WriteFile(fs, "/out/face.skx.json", df, DefaultFileMode))

	data, err := afero.ReadFile(fs, "/out/face.skx.json")
	require.NoError(t, err)
	assert.Equal(t, `{"open":[[0,0,0],[0,0,1]]}`, string(data))

	info, err := fs.Stat("/out/face.skx.json")
	require.NoError(t, err)
	assert.Equal(t, DefaultFileMode, info.Mode().Perm())

	entries, err := afero.ReadDir(fs, "/out")
	require.NoError(t, err)
	require.Len(t, entries, 1, "temp file left behind")

	got, err := ReadFile(fs, "/out/face.skx.json")
	require.NoError(t, err)
	assert.Equal(t, df, got)
}

func TestWriteFileOverwrites(t *testing.T) {
	fs := afero.NewMemMapFs()
	require.NoError(t, afero.WriteFile(fs, "/face.skx.json", []byte(`{"old":[[9,9,9]],"padding":[[0,0,0],[0,0,0]]}`), 0644))

	require.NoError(t, WriteFile(fs, "/face.skx.json", DeltaFile{"new": {{1, 1, 1}}}, DefaultFileMode))

	got, err := ReadFile(fs, "/face.skx.json")
	require.NoError(t, err)
	assert.Equal(t, DeltaFile{"new": {{1, 1, 1}}}, got)
}

func TestWriteFileOnDisk(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "face.skx.json")
	fs := afero.NewOsFs()

	require.NoError(t, WriteFile(fs, path, DeltaFile{"open": {{0, 0, 1}}}, 0600))

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0600), info.Mode().Perm())
}

func TestReadFileMissing(t *testing.T) {
	_, err := ReadFile(afero.NewMemMapFs(), "/missing.skx.json")
	require.Error(t, err)
	assert.True(t, errors.Is(err, os.ErrNotExist))
	assert.False(t, errors.Is(err, ErrMalformedFile))
}

func TestReadFileMalformed(t *testing.T) {
	fs := afero.NewMemMapFs()
	require.NoError(t, afero.WriteFile(fs, "/bad.skx.json", []byte(`[1,2,3]`), 0644))

	_, err := ReadFile(fs, "/bad.skx.json")
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrMalformedFile))
	assert.Contains(t, err.Error(), "/bad.skx.json")
}

func TestEnsureExtension(t *testing.T) {
	tests := []struct {
		path string
		want string
	}{
		{"", ""},
		{"face", "face.skx.json"},
		{"face.skx.json", "face.skx.json"},
		{"face.SKX.JSON", "face.SKX.JSON"},
		{"face.json", "face.skx.json"},
		{"dir.v2/face", "dir.v2/face.skx.json"},
		{"face.txt", "face.txt.skx.json"},
	}

	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			assert.Equal(t, tt.want, EnsureExtension(tt.path))
		})
	}
}
