package storage

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/CirroBio/cirro-annotation/internal/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func createTestStorage(t *testing.T) *SQLiteStorage {
	t.Helper()
	store, err := NewSQLiteStorage(filepath.Join(t.TempDir(), "nested", "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })
	require.NoError(t, store.Migrate(context.Background()))
	return store
}

func observation(process, dataset, file, column string) model.Observation {
	return model.Observation{
		ProcessID:   process + "-id",
		ProcessName: process,
		ProjectID:   "proj-1",
		ProjectName: "Project One",
		DatasetID:   dataset,
		DatasetName: dataset + " name",
		File:        file,
		Column:      column,
	}
}

func TestMigrate(t *testing.T) {
	store := createTestStorage(t)
	ctx := context.Background()

	version, err := store.SchemaVersion(ctx)
	require.NoError(t, err)
	assert.Equal(t, ExpectedSchemaVersion, version)

	// Running again is a no-op.
	require.NoError(t, store.Migrate(ctx))

	var indexCount int
	err = store.db.QueryRow(`
		SELECT COUNT(*) FROM sqlite_master
		WHERE type='index' AND name IN ('idx_observations_process', 'idx_observations_column')
	`).Scan(&indexCount)
	require.NoError(t, err)
	assert.Equal(t, 2, indexCount)
}

func TestMemoryDatabase(t *testing.T) {
	store, err := NewSQLiteStorage(":memory:")
	require.NoError(t, err)
	defer func() { _ = store.Close() }()

	ctx := context.Background()
	require.NoError(t, store.Migrate(ctx))

	n, err := store.SaveObservations(ctx, []model.Observation{observation("DE", "ds-1", "data/a.csv", "gene")})
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	got, err := store.ListObservations(ctx)
	require.NoError(t, err)
	assert.Len(t, got, 1)
}

func TestNewSQLiteStorageRejectsEmptyPath(t *testing.T) {
	_, err := NewSQLiteStorage("  ")
	assert.ErrorIs(t, err, ErrEmptyString)
}

func TestSaveObservations(t *testing.T) {
	store := createTestStorage(t)
	ctx := context.Background()

	at := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	first := observation("DE", "ds-1", "data/a.csv", "Gene ID")
	first.ObservedAt = at

	n, err := store.SaveObservations(ctx, []model.Observation{
		first,
		observation("DE", "ds-1", "data/a.csv", "log2FC"),
		observation("GSEA", "ds-2", "out/b.tsv", "pathway"),
	})
	require.NoError(t, err)
	assert.Equal(t, 3, n)

	// Duplicates are ignored, new rows are kept.
	n, err = store.SaveObservations(ctx, []model.Observation{
		observation("DE", "ds-1", "data/a.csv", "Gene ID"),
		observation("DE", "ds-3", "data/a.csv", "Gene ID"),
	})
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	all, err := store.ListObservations(ctx)
	require.NoError(t, err)
	require.Len(t, all, 4)

	columns := make([]string, len(all))
	for i, obs := range all {
		columns[i] = obs.Column
	}
	assert.Equal(t, []string{"Gene ID", "log2FC", "pathway", "Gene ID"}, columns)

	assert.True(t, all[0].ObservedAt.Equal(at), "observed_at = %v", all[0].ObservedAt)
	assert.False(t, all[1].ObservedAt.IsZero())
	assert.Equal(t, "Project One", all[0].ProjectName)
	assert.Equal(t, "ds-1 name", all[0].DatasetName)
	assert.Positive(t, all[0].ID)
}

func TestSaveObservationsValidation(t *testing.T) {
	store := createTestStorage(t)
	ctx := context.Background()

	tests := []struct {
		wantErr error
		name    string
		obs     []model.Observation
	}{
		{
			name:    "empty slice",
			obs:     nil,
			wantErr: ErrEmptySlice,
		},
		{
			name:    "missing column",
			obs:     []model.Observation{observation("DE", "ds-1", "a.csv", "")},
			wantErr: ErrInvalidObservation,
		},
		{
			name:    "missing process",
			obs:     []model.Observation{observation("", "ds-1", "a.csv", "x")},
			wantErr: ErrInvalidObservation,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := store.SaveObservations(ctx, tt.obs)
			assert.ErrorIs(t, err, tt.wantErr)
		})
	}

	all, err := store.ListObservations(ctx)
	require.NoError(t, err)
	assert.Empty(t, all)
}

func TestSaveObservationsIsAtomic(t *testing.T) {
	store := createTestStorage(t)
	ctx := context.Background()

	//nolint:staticcheck // nil context is the case under test
	_, err := store.SaveObservations(nil, []model.Observation{observation("DE", "ds-1", "a.csv", "x")})
	assert.ErrorIs(t, err, ErrNilContext)

	canceled, cancel := context.WithCancel(ctx)
	cancel()
	_, err = store.SaveObservations(canceled, []model.Observation{observation("DE", "ds-1", "a.csv", "x")})
	require.Error(t, err)

	all, err := store.ListObservations(ctx)
	require.NoError(t, err)
	assert.Empty(t, all)
}

func TestProcessQueries(t *testing.T) {
	store := createTestStorage(t)
	ctx := context.Background()

	_, err := store.SaveObservations(ctx, []model.Observation{
		observation("DE", "ds-1", "a.csv", "gene"),
		observation("GSEA", "ds-2", "b.csv", "pathway"),
		observation("DE", "ds-1", "a.csv", "pvalue"),
	})
	require.NoError(t, err)

	de, err := store.ListObservationsByProcess(ctx, "DE")
	require.NoError(t, err)
	require.Len(t, de, 2)
	assert.Equal(t, "gene", de[0].Column)
	assert.Equal(t, "pvalue", de[1].Column)

	has, err := store.HasProcess(ctx, "GSEA")
	require.NoError(t, err)
	assert.True(t, has)

	has, err = store.HasProcess(ctx, "MAGeCK Count")
	require.NoError(t, err)
	assert.False(t, has)

	_, err = store.HasProcess(ctx, "")
	assert.ErrorIs(t, err, ErrEmptyString)

	deleted, err := store.DeleteProcess(ctx, "DE")
	require.NoError(t, err)
	assert.Equal(t, 2, deleted)

	has, err = store.HasProcess(ctx, "DE")
	require.NoError(t, err)
	assert.False(t, has)
}

func TestReopenKeepsObservations(t *testing.T) {
	path := filepath.Join(t.TempDir(), "ledger.db")
	ctx := context.Background()

	store, err := NewSQLiteStorage(path)
	require.NoError(t, err)
	require.NoError(t, store.Migrate(ctx))
	_, err = store.SaveObservations(ctx, []model.Observation{observation("DE", "ds-1", "a.csv", "gene")})
	require.NoError(t, err)
	require.NoError(t, store.Close())

	reopened, err := NewSQLiteStorage(path)
	require.NoError(t, err)
	defer func() { _ = reopened.Close() }()
	require.NoError(t, reopened.Migrate(ctx))

	assert.Equal(t, path, reopened.Path())
	all, err := reopened.ListObservations(ctx)
	require.NoError(t, err)
	assert.Len(t, all, 1)
}
