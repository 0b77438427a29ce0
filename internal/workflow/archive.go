package workflow

import (
	"archive/zip"
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// ArchiveName is the default file name of the exported zip.
const ArchiveName = "cirro-configuration.zip"

// zipEpoch is the earliest timestamp zip can store; entries use it so the
// archive bytes only depend on the configuration.
var zipEpoch = time.Date(1980, 1, 1, 0, 0, 0, 0, time.UTC)

// File is one exported configuration file.
type File struct {
	Key  string
	Name string
	Text string
}

// FileName is the exported file name for a document key.
func FileName(key string) string {
	switch key {
	case KeyPreprocess:
		return "preprocess.py"
	case KeyCompute:
		return "process-compute.config"
	default:
		return "process-" + key + ".json"
	}
}

// Files renders doc as the exported files in Keys order. Text sections are
// written verbatim, the rest as JSON with sorted keys and a 4-space indent.
func Files(doc map[string]any) ([]File, error) {
	files := make([]File, 0, len(Keys))
	for _, key := range Keys {
		text, err := renderValue(doc[key])
		if err != nil {
			return nil, fmt.Errorf("failed to render %s: %w", key, err)
		}
		files = append(files, File{Key: key, Name: FileName(key), Text: text})
	}
	return files, nil
}

func renderValue(v any) (string, error) {
	if s, ok := v.(string); ok {
		return s, nil
	}
	if v == nil {
		v = map[string]any{}
	}
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "    ")
	if err := enc.Encode(v); err != nil {
		return "", err
	}
	return strings.TrimSuffix(buf.String(), "\n"), nil
}

// Export writes doc as a zip archive to w.
func Export(w io.Writer, doc map[string]any) error {
	files, err := Files(doc)
	if err != nil {
		return err
	}

	zw := zip.NewWriter(w)
	for _, f := range files {
		entry, err := zw.CreateHeader(&zip.FileHeader{
			Name:     f.Name,
			Method:   zip.Deflate,
			Modified: zipEpoch,
		})
		if err != nil {
			return fmt.Errorf("failed to add %s: %w", f.Name, err)
		}
		if _, err := io.WriteString(entry, f.Text); err != nil {
			return fmt.Errorf("failed to write %s: %w", f.Name, err)
		}
	}
	if err := zw.Close(); err != nil {
		return fmt.Errorf("failed to finish archive: %w", err)
	}
	return nil
}

// ExportFile writes the zip archive to path.
func ExportFile(path string, doc map[string]any) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o750); err != nil {
		return fmt.Errorf("failed to create directory: %w", err)
	}
	f, err := os.Create(path) // #nosec G304
	if err != nil {
		return fmt.Errorf("failed to create archive: %w", err)
	}
	if err := Export(f, doc); err != nil {
		_ = f.Close()
		return err
	}
	return f.Close()
}

// Import merges uploaded files into a copy of doc. preprocess.py and
// process-compute.config replace the text sections; process-<key>.json
// replaces <key> when the document already has it and <key> is a JSON section.
// Other files, including JSON for the text sections, are ignored.
// It reports whether anything was loaded.
func Import(doc map[string]any, files map[string][]byte) (map[string]any, bool, error) {
	out := clone(doc)
	modified := false

	for name, data := range files {
		base := filepath.Base(name)
		switch {
		case !strings.HasPrefix(base, "process-"):
			if base == FileName(KeyPreprocess) {
				out[KeyPreprocess] = string(data)
				modified = true
			}
		case base == FileName(KeyCompute):
			out[KeyCompute] = string(data)
			modified = true
		case strings.HasSuffix(base, ".json"):
			key := strings.TrimSuffix(strings.TrimPrefix(base, "process-"), ".json")
			if _, ok := out[key]; !ok || FileName(key) != base {
				continue
			}
			var value any
			if err := json.Unmarshal(data, &value); err != nil {
				return nil, false, fmt.Errorf("failed to parse %s: %w", base, err)
			}
			out[key] = value
			modified = true
		}
	}
	return out, modified, nil
}

// ReadArchive reads every file of a zip archive, e.g. one written by Export.
func ReadArchive(path string) (map[string][]byte, error) {
	zr, err := zip.OpenReader(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open archive: %w", err)
	}
	defer func() { _ = zr.Close() }()

	files := make(map[string][]byte, len(zr.File))
	for _, f := range zr.File {
		if f.FileInfo().IsDir() {
			continue
		}
		data, err := readZipEntry(f)
		if err != nil {
			return nil, err
		}
		files[f.Name] = data
	}
	return files, nil
}

func readZipEntry(f *zip.File) ([]byte, error) {
	rc, err := f.Open()
	if err != nil {
		return nil, fmt.Errorf("failed to open %s: %w", f.Name, err)
	}
	defer func() { _ = rc.Close() }()
	data, err := io.ReadAll(rc)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", f.Name, err)
	}
	return data, nil
}

// ReadDir reads the configuration files found directly in dir, or the files
// of a zip archive when dir is one.
func ReadDir(dir string) (map[string][]byte, error) {
	info, err := os.Stat(dir)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", dir, err)
	}
	if !info.IsDir() {
		return ReadArchive(dir)
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("failed to list %s: %w", dir, err)
	}

	files := map[string][]byte{}
	for _, entry := range entries {
		if entry.IsDir() || !isConfigFile(entry.Name()) {
			continue
		}
		data, err := os.ReadFile(filepath.Join(dir, entry.Name())) // #nosec G304
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				continue
			}
			return nil, fmt.Errorf("failed to read %s: %w", entry.Name(), err)
		}
		files[entry.Name()] = data
	}
	return files, nil
}

func isConfigFile(name string) bool {
	for _, key := range Keys {
		if name == FileName(key) {
			return true
		}
	}
	return false
}
