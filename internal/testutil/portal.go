package testutil

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/CirroBio/cirro-annotation/internal/model"
	"github.com/CirroBio/cirro-annotation/internal/portal"
)

// PortalFixture builds a local portal directory for flow tests.
type PortalFixture struct {
	t       *testing.T
	Root    string
	catalog portal.Catalog
}

// NewPortalFixture starts an empty portal under a fresh temp directory.
func NewPortalFixture(t *testing.T) *PortalFixture {
	t.Helper()
	return &PortalFixture{t: t, Root: t.TempDir()}
}

// Project registers a project.
func (f *PortalFixture) Project(id, name string) *PortalFixture {
	f.catalog.Projects = append(f.catalog.Projects, model.Project{ID: id, Name: name})
	return f
}

// Process registers a process.
func (f *PortalFixture) Process(id, name string, executor model.Executor) *PortalFixture {
	f.catalog.Processes = append(f.catalog.Processes, model.Process{ID: id, Name: name, Executor: executor})
	return f
}

// Dataset registers a dataset and writes its files. Keys of files are
// slash-separated paths relative to the dataset root.
func (f *PortalFixture) Dataset(d model.Dataset, files map[string]string) *PortalFixture {
	f.t.Helper()
	if d.CreatedAt.IsZero() {
		d.CreatedAt = time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC).Add(time.Duration(len(f.catalog.Datasets)) * time.Hour)
	}
	f.catalog.Datasets = append(f.catalog.Datasets, d)

	dir := filepath.Join(f.Root, d.ProjectID, d.ID)
	if err := os.MkdirAll(dir, 0o750); err != nil {
		f.t.Fatalf("failed to create dataset dir: %v", err)
	}
	for name, content := range files {
		path := filepath.Join(dir, filepath.FromSlash(name))
		if err := os.MkdirAll(filepath.Dir(path), 0o750); err != nil {
			f.t.Fatalf("failed to create %s: %v", filepath.Dir(path), err)
		}
		if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
			f.t.Fatalf("failed to write %s: %v", path, err)
		}
	}
	return f
}

// Client writes the catalog and opens a LocalClient over the fixture.
func (f *PortalFixture) Client() *portal.LocalClient {
	f.t.Helper()
	if err := portal.WriteCatalog(f.Root, f.catalog); err != nil {
		f.t.Fatalf("failed to write catalog: %v", err)
	}
	c, err := portal.NewLocalClient(f.Root)
	if err != nil {
		f.t.Fatalf("failed to open local portal: %v", err)
	}
	return c
}
