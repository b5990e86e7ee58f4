package skx

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"unicode/utf8"

	jsoniter "github.com/json-iterator/go"
	"github.com/spf13/afero"

	"github.com/Faultbox/shapekey-exporter/pkg/math"
)

// Extension is the file extension of shape key delta files.
const Extension = ".skx.json"

// DefaultFileMode is the permission used for written delta files.
const DefaultFileMode os.FileMode = 0644

// Keys sorted, compact output, non-ASCII and HTML characters written as-is.
var codecJSON = jsoniter.Config{
	SortMapKeys: true,
	EscapeHTML:  false,
}.Froze()

// Marshal encodes a delta file as compact JSON.
// Each vector is written as a [x,y,z] array and keys are sorted by name.
func Marshal(df DeltaFile) ([]byte, error) {
	out := make(map[string][][3]float64, len(df))
	for name, record := range df {
		vectors := make([][3]float64, len(record))
		for i, v := range record {
			vectors[i] = v.Array()
		}
		out[name] = vectors
	}

	data, err := codecJSON.Marshal(out)
	if err != nil {
		return nil, fmt.Errorf("encoding delta file: %w", err)
	}
	return data, nil
}

// Unmarshal parses a delta file. Anything other than a UTF-8 object of
// arrays of 3-element numeric arrays fails with ErrMalformedFile.
func Unmarshal(data []byte) (DeltaFile, error) {
	if !utf8.Valid(data) {
		return nil, fmt.Errorf("%w: invalid UTF-8", ErrMalformedFile)
	}

	iter := jsoniter.ParseBytes(codecJSON, data)

	if iter.WhatIsNext() != jsoniter.ObjectValue {
		return nil, fmt.Errorf("%w: top-level value is not an object", ErrMalformedFile)
	}

	df := DeltaFile{}
	var recordErr error
	iter.ReadMapCB(func(it *jsoniter.Iterator, name string) bool {
		if !utf8.ValidString(name) {
			recordErr = fmt.Errorf("%w: shape key name %q is not valid UTF-8", ErrMalformedFile, name)
			return false
		}
		record, err := readRecord(it)
		if err != nil {
			recordErr = fmt.Errorf("%w: shape key %q: %v", ErrMalformedFile, name, err)
			return false
		}
		df[name] = record
		return true
	})
	if recordErr != nil {
		return nil, recordErr
	}
	if iter.Error != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedFile, iter.Error)
	}

	// Only whitespace may follow the object.
	if iter.WhatIsNext() != jsoniter.InvalidValue || !errors.Is(iter.Error, io.EOF) {
		return nil, fmt.Errorf("%w: unexpected data after top-level object", ErrMalformedFile)
	}

	return df, nil
}

// readRecord reads one delta record: an array of [x,y,z] arrays.
func readRecord(it *jsoniter.Iterator) ([]math.Vec3, error) {
	if it.WhatIsNext() != jsoniter.ArrayValue {
		return nil, errors.New("record is not an array")
	}

	record := []math.Vec3{}
	var vecErr error
	it.ReadArrayCB(func(it *jsoniter.Iterator) bool {
		v, err := readVector(it)
		if err != nil {
			vecErr = fmt.Errorf("vertex %d: %w", len(record), err)
			return false
		}
		record = append(record, v)
		return true
	})
	if vecErr != nil {
		return nil, vecErr
	}
	if it.Error != nil {
		return nil, it.Error
	}
	return record, nil
}

// readVector reads a single [x,y,z] array.
func readVector(it *jsoniter.Iterator) (math.Vec3, error) {
	if it.WhatIsNext() != jsoniter.ArrayValue {
		return math.Vec3{}, errors.New("vector is not an array")
	}

	var comps [3]float64
	n := 0
	var compErr error
	it.ReadArrayCB(func(it *jsoniter.Iterator) bool {
		if n >= len(comps) {
			compErr = errors.New("vector has more than 3 components")
			return false
		}
		if it.WhatIsNext() != jsoniter.NumberValue {
			compErr = fmt.Errorf("component %d is not a number", n)
			return false
		}
		comps[n] = it.ReadFloat64()
		n++
		return true
	})
	if compErr != nil {
		return math.Vec3{}, compErr
	}
	if it.Error != nil {
		return math.Vec3{}, it.Error
	}
	if n != len(comps) {
		return math.Vec3{}, fmt.Errorf("vector has %d components, want 3", n)
	}
	return math.FromArray(comps), nil
}

// ReadFile reads and parses a delta file.
func ReadFile(fs afero.Fs, path string) (DeltaFile, error) {
	data, err := afero.ReadFile(fs, path)
	if err != nil {
		return nil, fmt.Errorf("reading delta file: %w", err)
	}
	df, err := Unmarshal(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return df, nil
}

// WriteFile encodes df and replaces path with it. The data goes to a
// temporary file in the same directory first, so a failed write never
// leaves a truncated delta file behind.
func WriteFile(fs afero.Fs, path string, df DeltaFile, perm os.FileMode) (err error) {
	data, err := Marshal(df)
	if err != nil {
		return err
	}

	dir := filepath.Dir(path)
	if err := fs.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("creating directory: %w", err)
	}

	tmp, err := afero.TempFile(fs, dir, ".skx-*.tmp")
	if err != nil {
		return fmt.Errorf("creating temp file: %w", err)
	}
	tmpName := tmp.Name()
	defer func() {
		if err != nil {
			_ = fs.Remove(tmpName)
		}
	}()

	if _, err = tmp.Write(data); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("writing delta file: %w", err)
	}
	if err = tmp.Close(); err != nil {
		return fmt.Errorf("writing delta file: %w", err)
	}
	if err = fs.Chmod(tmpName, perm); err != nil {
		return fmt.Errorf("setting file mode: %w", err)
	}
	if err = fs.Rename(tmpName, path); err != nil {
		return fmt.Errorf("replacing %s: %w", path, err)
	}
	return nil
}

// HasExtension reports whether path ends with Extension (case-insensitive).
func HasExtension(path string) bool {
	return strings.HasSuffix(strings.ToLower(path), Extension)
}

// EnsureExtension appends Extension unless path already carries it.
// A trailing plain ".json" is extended to ".skx.json". Empty paths stay empty.
func EnsureExtension(path string) string {
	if path == "" || HasExtension(path) {
		return path
	}
	if strings.EqualFold(filepath.Ext(path), ".json") {
		path = path[:len(path)-len(".json")]
	}
	return path + Extension
}
