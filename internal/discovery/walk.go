package discovery

import (
	"fmt"
	"io/fs"
	"log/slog"
	"path"
	"path/filepath"
	"strings"

	"github.com/CirroBio/cirro-annotation/internal/model"
)

// Result is the outcome of scanning a dataset directory.
type Result struct {
	Vocabulary *Vocabulary
	Files      []model.FileRecord
}

// Columns returns the vocabulary keys in first-seen order.
func (r *Result) Columns() []string {
	return r.Vocabulary.Keys()
}

// Paths returns the relative paths of every discovered file.
func (r *Result) Paths() []string {
	paths := make([]string, len(r.Files))
	for i, f := range r.Files {
		paths[i] = f.Path
	}
	return paths
}

// File returns the record for a relative path.
func (r *Result) File(path string) (model.FileRecord, bool) {
	for _, f := range r.Files {
		if f.Path == path {
			return f, true
		}
	}
	return model.FileRecord{}, false
}

// ListFiles walks root and returns the slash-separated paths, relative to
// root, of every regular file whose name ends with one of exts. The order is
// the lexical walk order, so it is stable for an unchanged directory.
func ListFiles(root string, exts []string) ([]string, error) {
	var paths []string

	err := filepath.WalkDir(root, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() || !d.Type().IsRegular() {
			return nil
		}
		if !HasExtension(d.Name(), exts) {
			return nil
		}
		rel, err := filepath.Rel(root, p)
		if err != nil {
			return err
		}
		paths = append(paths, filepath.ToSlash(rel))
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to walk %s: %w", root, err)
	}

	return paths, nil
}

// Discover lists the matching files under root, reads each header and builds
// the column vocabulary. Any unreadable header fails the whole scan.
func Discover(root string, exts []string) (*Result, error) {
	paths, err := ListFiles(root, exts)
	if err != nil {
		return nil, err
	}
	return DiscoverPaths(root, paths)
}

// DiscoverPaths reads the header of each slash-separated path under root.
func DiscoverPaths(root string, paths []string) (*Result, error) {
	result := &Result{
		Vocabulary: NewVocabulary(),
		Files:      make([]model.FileRecord, 0, len(paths)),
	}

	for _, rel := range paths {
		columns, err := ReadHeaderFile(filepath.Join(root, filepath.FromSlash(rel)))
		if err != nil {
			return nil, err
		}
		for _, c := range columns {
			result.Vocabulary.Add(c)
		}
		result.Files = append(result.Files, model.FileRecord{Path: rel, Columns: columns})
		slog.Debug("Read file header", "file", rel, "columns", len(columns))
	}

	return result, nil
}

// FilterGlob keeps the paths matching a path.Match pattern. A pattern without
// a slash is matched against the file name alone.
func FilterGlob(paths []string, pattern string) ([]string, error) {
	if _, err := path.Match(pattern, ""); err != nil {
		return nil, fmt.Errorf("invalid file glob %q: %w", pattern, err)
	}

	baseOnly := !strings.Contains(pattern, "/")
	var out []string
	for _, p := range paths {
		target := p
		if baseOnly {
			target = path.Base(p)
		}
		if ok, _ := path.Match(pattern, target); ok {
			out = append(out, p)
		}
	}
	return out, nil
}
