// Package mapping persists the column mapping sidecar (fields.json) that
// carries display names and descriptions across annotation runs.
package mapping

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"

	"github.com/CirroBio/cirro-annotation/internal/common"
	"github.com/CirroBio/cirro-annotation/internal/model"
)

// Indent is the pretty-print indent used for every JSON file the tools write.
const Indent = "    "

// Store is a column mapping bound to the file it was loaded from.
type Store struct {
	mapping model.ColumnMapping
	path    string
	added   []string
}

// Load reads the mapping at path. A missing file yields an empty mapping.
func Load(path string) (*Store, error) {
	s := &Store{path: path, mapping: model.ColumnMapping{}}

	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return s, nil
	}
	if err != nil {
		return nil, common.NewUserError(fmt.Sprintf("failed to read column mapping %s", path), err)
	}
	if len(bytes.TrimSpace(data)) == 0 {
		return s, nil
	}

	if err := json.Unmarshal(data, &s.mapping); err != nil {
		return nil, common.NewUserError(fmt.Sprintf("failed to parse column mapping %s", path), err)
	}
	if s.mapping == nil {
		s.mapping = model.ColumnMapping{}
	}
	return s, nil
}

// Path returns the file the store saves to.
func (s *Store) Path() string { return s.path }

// Get returns the metadata for a sanitized column name.
func (s *Store) Get(key string) (model.FieldInfo, bool) {
	info, ok := s.mapping[key]
	return info, ok
}

// Has reports whether key is mapped.
func (s *Store) Has(key string) bool {
	_, ok := s.mapping[key]
	return ok
}

// Set stores metadata for key, replacing any existing entry.
func (s *Store) Set(key string, info model.FieldInfo) {
	if _, ok := s.mapping[key]; !ok {
		s.added = append(s.added, key)
	}
	s.mapping[key] = info
}

// Ensure returns the entry for key, creating it from def when missing.
func (s *Store) Ensure(key string, def model.FieldInfo) model.FieldInfo {
	if info, ok := s.mapping[key]; ok {
		return info
	}
	s.Set(key, def)
	return def
}

// Missing returns the keys that have no entry, in the given order.
func (s *Store) Missing(keys []string) []string {
	var out []string
	for _, k := range keys {
		if !s.Has(k) {
			out = append(out, k)
		}
	}
	return out
}

// Added returns the keys created since Load, in creation order.
func (s *Store) Added() []string {
	return append([]string(nil), s.added...)
}

// Keys returns every mapped key, sorted.
func (s *Store) Keys() []string {
	keys := make([]string, 0, len(s.mapping))
	for k := range s.mapping {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Mapping returns a copy of the entries restricted to keys. Unknown keys
// are skipped.
func (s *Store) Mapping(keys []string) model.ColumnMapping {
	out := make(model.ColumnMapping, len(keys))
	for _, k := range keys {
		if info, ok := s.mapping[k]; ok {
			out[k] = info
		}
	}
	return out
}

// Save writes the mapping back to its file.
func (s *Store) Save() error {
	return WriteJSON(s.path, s.mapping)
}

// WriteJSON writes v to path pretty-printed with sorted keys and a 4-space
// indent, creating parent directories as needed.
func WriteJSON(path string, v any) error {
	data, err := json.MarshalIndent(v, "", Indent)
	if err != nil {
		return fmt.Errorf("failed to encode %s: %w", path, err)
	}
	data = append(data, '\n')

	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o750); err != nil {
			return fmt.Errorf("failed to create directory %s: %w", dir, err)
		}
	}
	if err := os.WriteFile(path, data, 0o600); err != nil {
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	return nil
}
