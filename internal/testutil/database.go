// Package testutil provides test doubles and fixtures shared by the flow tests.
package testutil

import (
	"context"
	"testing"

	"github.com/CirroBio/cirro-annotation/internal/model"
	"github.com/CirroBio/cirro-annotation/internal/storage"
)

// TestDB is a migrated in-memory observation ledger.
type TestDB struct {
	Storage *storage.SQLiteStorage
	t       *testing.T
}

// SetupTestDB creates a new in-memory ledger seeded with observations.
// It automatically handles migrations and cleanup.
func SetupTestDB(t *testing.T, seed ...model.Observation) *TestDB {
	t.Helper()

	store, err := storage.NewSQLiteStorage(":memory:")
	if err != nil {
		t.Fatalf("failed to create test database: %v", err)
	}
	t.Cleanup(func() {
		_ = store.Close()
	})

	ctx := context.Background()
	if err := store.Migrate(ctx); err != nil {
		t.Fatalf("failed to run migrations: %v", err)
	}

	if len(seed) > 0 {
		if _, err := store.SaveObservations(ctx, seed); err != nil {
			t.Fatalf("failed to seed observations: %v", err)
		}
	}

	return &TestDB{
		Storage: store,
		t:       t,
	}
}

// MustObservations returns every recorded observation or fails the test.
func (db *TestDB) MustObservations() []model.Observation {
	db.t.Helper()
	all, err := db.Storage.ListObservations(context.Background())
	if err != nil {
		db.t.Fatalf("failed to list observations: %v", err)
	}
	return all
}
