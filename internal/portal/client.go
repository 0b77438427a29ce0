// Package portal talks to the data portal: listing projects, processes and
// datasets, and fetching dataset files.
package portal

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sort"

	"github.com/CirroBio/cirro-annotation/internal/model"
)

// Client is the data portal surface the tools depend on.
type Client interface {
	ListProjects(ctx context.Context) ([]model.Project, error)
	ListProcesses(ctx context.Context) ([]model.Process, error)
	ListDatasets(ctx context.Context, projectID string) ([]model.Dataset, error)
	ListFiles(ctx context.Context, projectID, datasetID string) ([]model.File, error)
	// Open streams one dataset file addressed by its relative path.
	Open(ctx context.Context, projectID, datasetID, file string) (io.ReadCloser, error)
}

// Progress is advanced once per downloaded file.
type Progress interface {
	Add(n int) error
}

// ProgressFunc starts a progress indicator for total steps.
type ProgressFunc func(total int, description string) Progress

// Download copies files of a dataset into dest. When dest already exists
// nothing is fetched and false is returned; contents are not verified.
func Download(ctx context.Context, c Client, projectID, datasetID string, files []model.File, dest string, progress Progress) (bool, error) {
	if _, err := os.Stat(dest); err == nil {
		slog.Info("Dataset already downloaded", "dataset", datasetID, "dir", dest)
		return false, nil
	} else if !errors.Is(err, fs.ErrNotExist) {
		return false, fmt.Errorf("failed to check %s: %w", dest, err)
	}

	staging := dest + ".partial"
	if err := os.RemoveAll(staging); err != nil {
		return false, fmt.Errorf("failed to clear %s: %w", staging, err)
	}

	if err := fetchAll(ctx, c, projectID, datasetID, files, staging, progress); err != nil {
		_ = os.RemoveAll(staging)
		return false, err
	}

	if err := os.MkdirAll(filepath.Dir(dest), 0o750); err != nil {
		return false, fmt.Errorf("failed to create %s: %w", filepath.Dir(dest), err)
	}
	if len(files) == 0 {
		if err := os.MkdirAll(staging, 0o750); err != nil {
			return false, fmt.Errorf("failed to create %s: %w", staging, err)
		}
	}
	if err := os.Rename(staging, dest); err != nil {
		return false, fmt.Errorf("failed to move download into place: %w", err)
	}

	slog.Info("Downloaded dataset", "dataset", datasetID, "files", len(files), "dir", dest)
	return true, nil
}

func fetchAll(ctx context.Context, c Client, projectID, datasetID string, files []model.File, dir string, progress Progress) error {
	for _, f := range files {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := fetch(ctx, c, projectID, datasetID, f.Name, dir); err != nil {
			return err
		}
		if progress != nil {
			if err := progress.Add(1); err != nil {
				slog.Warn("Failed to update progress bar", "error", err)
			}
		}
	}
	return nil
}

func fetch(ctx context.Context, c Client, projectID, datasetID, name, dir string) error {
	local := filepath.FromSlash(name)
	if !filepath.IsLocal(local) {
		return fmt.Errorf("refusing to download %q outside the dataset directory", name)
	}
	target := filepath.Join(dir, local)

	if err := os.MkdirAll(filepath.Dir(target), 0o750); err != nil {
		return fmt.Errorf("failed to create directory for %s: %w", name, err)
	}

	r, err := c.Open(ctx, projectID, datasetID, name)
	if err != nil {
		return fmt.Errorf("failed to open %s: %w", name, err)
	}
	defer func() { _ = r.Close() }()

	out, err := os.OpenFile(target, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0o600) // #nosec G304
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", target, err)
	}
	if _, err := io.Copy(out, r); err != nil {
		_ = out.Close()
		return fmt.Errorf("failed to download %s: %w", name, err)
	}
	if err := out.Close(); err != nil {
		return fmt.Errorf("failed to write %s: %w", target, err)
	}
	return nil
}

// NewestFirst orders datasets by creation time, most recent first.
func NewestFirst(datasets []model.Dataset) []model.Dataset {
	out := append([]model.Dataset(nil), datasets...)
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	return out
}

// ProcessesUsedBy returns the processes that produced at least one of the datasets.
func ProcessesUsedBy(processes []model.Process, datasets []model.Dataset) []model.Process {
	used := make(map[string]bool, len(datasets))
	for _, d := range datasets {
		used[d.ProcessID] = true
	}
	var out []model.Process
	for _, p := range processes {
		if used[p.ID] {
			out = append(out, p)
		}
	}
	return out
}

// FilterExecutor keeps the processes that run on executor.
func FilterExecutor(processes []model.Process, executor model.Executor) []model.Process {
	var out []model.Process
	for _, p := range processes {
		if p.Executor == executor {
			out = append(out, p)
		}
	}
	return out
}

// DatasetsOf keeps the datasets produced by processID.
func DatasetsOf(datasets []model.Dataset, processID string) []model.Dataset {
	var out []model.Dataset
	for _, d := range datasets {
		if d.ProcessID == processID {
			out = append(out, d)
		}
	}
	return out
}
