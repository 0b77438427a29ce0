package portal

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"sort"

	"github.com/CirroBio/cirro-annotation/internal/common"
	"github.com/CirroBio/cirro-annotation/internal/model"
)

// CatalogFile is the metadata file at the root of a local portal.
const CatalogFile = "catalog.json"

// Catalog is the metadata a LocalClient serves.
type Catalog struct {
	Projects  []model.Project `json:"projects"`
	Processes []model.Process `json:"processes"`
	Datasets  []model.Dataset `json:"datasets"`
}

// LocalClient serves a portal from a directory laid out as
// <root>/catalog.json and <root>/<project>/<dataset>/<files...>.
type LocalClient struct {
	root    string
	catalog Catalog
}

// NewLocalClient reads the catalog under root.
func NewLocalClient(root string) (*LocalClient, error) {
	data, err := os.ReadFile(filepath.Join(root, CatalogFile)) // #nosec G304
	if err != nil {
		return nil, fmt.Errorf("failed to read portal catalog: %w", err)
	}

	c := &LocalClient{root: root}
	if err := json.Unmarshal(data, &c.catalog); err != nil {
		return nil, fmt.Errorf("failed to parse portal catalog: %w", err)
	}
	return c, nil
}

// WriteCatalog stores a catalog under root, creating root if needed.
func WriteCatalog(root string, catalog Catalog) error {
	if err := os.MkdirAll(root, 0o750); err != nil {
		return fmt.Errorf("failed to create %s: %w", root, err)
	}
	data, err := json.MarshalIndent(catalog, "", "    ")
	if err != nil {
		return fmt.Errorf("failed to encode catalog: %w", err)
	}
	if err := os.WriteFile(filepath.Join(root, CatalogFile), data, 0o600); err != nil {
		return fmt.Errorf("failed to write catalog: %w", err)
	}
	return nil
}

// ListProjects implements Client.
func (c *LocalClient) ListProjects(_ context.Context) ([]model.Project, error) {
	return append([]model.Project(nil), c.catalog.Projects...), nil
}

// ListProcesses implements Client.
func (c *LocalClient) ListProcesses(_ context.Context) ([]model.Process, error) {
	return append([]model.Process(nil), c.catalog.Processes...), nil
}

// ListDatasets implements Client.
func (c *LocalClient) ListDatasets(_ context.Context, projectID string) ([]model.Dataset, error) {
	var out []model.Dataset
	for _, d := range c.catalog.Datasets {
		if d.ProjectID == projectID {
			out = append(out, d)
		}
	}
	return out, nil
}

// ListFiles implements Client. Paths are slash-separated and sorted.
func (c *LocalClient) ListFiles(_ context.Context, projectID, datasetID string) ([]model.File, error) {
	dir, err := c.datasetDir(projectID, datasetID)
	if err != nil {
		return nil, err
	}

	var files []model.File
	err = filepath.WalkDir(dir, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.Type().IsRegular() {
			return nil
		}
		info, err := d.Info()
		if err != nil {
			return err
		}
		rel, err := filepath.Rel(dir, p)
		if err != nil {
			return err
		}
		files = append(files, model.File{Name: filepath.ToSlash(rel), Size: info.Size()})
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list files of %s: %w", datasetID, err)
	}

	sort.Slice(files, func(i, j int) bool { return files[i].Name < files[j].Name })
	return files, nil
}

// Open implements Client.
func (c *LocalClient) Open(_ context.Context, projectID, datasetID, file string) (io.ReadCloser, error) {
	dir, err := c.datasetDir(projectID, datasetID)
	if err != nil {
		return nil, err
	}

	local := filepath.FromSlash(file)
	if !filepath.IsLocal(local) {
		return nil, fmt.Errorf("%w: %s", common.ErrNotFound, file)
	}

	f, err := os.Open(filepath.Join(dir, local)) // #nosec G304
	if errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("%w: %s", common.ErrNotFound, file)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to open %s: %w", file, err)
	}
	return f, nil
}

func (c *LocalClient) datasetDir(projectID, datasetID string) (string, error) {
	for _, d := range c.catalog.Datasets {
		if d.ID == datasetID && d.ProjectID == projectID {
			return filepath.Join(c.root, projectID, datasetID), nil
		}
	}
	return "", fmt.Errorf("%w: dataset %s in project %s", common.ErrNotFound, datasetID, projectID)
}
