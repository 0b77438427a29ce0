// Package config provides configuration utilities for the application.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/CirroBio/cirro-annotation/internal/common"
)

// TempSegment is the path segment downloads are staged under.
const TempSegment = "temp"

// ExpandPath expands ~ and environment variables in a file path.
// It handles both ~ for home directory and $VAR style environment variables.
func ExpandPath(path string) string {
	if path == "" {
		return path
	}

	if strings.HasPrefix(path, "~/") {
		home, err := os.UserHomeDir()
		if err == nil {
			path = filepath.Join(home, path[2:])
		}
	} else if path == "~" {
		home, err := os.UserHomeDir()
		if err == nil {
			path = home
		}
	}

	return os.ExpandEnv(path)
}

// DatasetTempDir resolves the dataset directory for a path somewhere inside
// the download tree of dataDir. The first segment beneath dataDir's "temp"
// directory names the dataset, so with dataDir "work" the path
// "work/temp/ds-1/data/a.csv" becomes "work/temp/ds-1". Any "temp" segment
// inside dataDir itself or inside the dataset is ignored.
func DatasetTempDir(dataDir, path string) (string, error) {
	root := filepath.Join(ExpandPath(dataDir), TempSegment)
	rel, err := filepath.Rel(root, filepath.Clean(path))
	if err != nil || rel == "." || !filepath.IsLocal(rel) {
		return "", fmt.Errorf("%w: %s", common.ErrNoTempDir, path)
	}
	dataset, _, _ := strings.Cut(filepath.ToSlash(rel), "/")
	return filepath.Join(root, dataset), nil
}

// DatasetDownloadDir is where a dataset is staged beneath the data directory.
func DatasetDownloadDir(dataDir, datasetID string) string {
	return filepath.Join(ExpandPath(dataDir), TempSegment, datasetID)
}
