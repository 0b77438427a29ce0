package storage

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/CirroBio/cirro-annotation/internal/model"
)

const observationColumns = `id, observed_at, process_id, process_name, project_id, project_name,
	dataset_id, dataset_name, file, column_name`

// SaveObservations records observations in one transaction and returns how
// many were new. Re-observing a (dataset, file, column) is a no-op.
func (s *SQLiteStorage) SaveObservations(ctx context.Context, observations []model.Observation) (int, error) {
	if err := validateContext(ctx); err != nil {
		return 0, err
	}
	if err := validateObservations(observations); err != nil {
		return 0, err
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	stmt, err := tx.PrepareContext(ctx, `
		INSERT OR IGNORE INTO observations (
			observed_at, process_id, process_name, project_id, project_name,
			dataset_id, dataset_name, file, column_name
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		return 0, fmt.Errorf("failed to prepare statement: %w", err)
	}
	defer func() { _ = stmt.Close() }()

	now := time.Now().UTC()
	inserted := 0
	for _, obs := range observations {
		observedAt := obs.ObservedAt
		if observedAt.IsZero() {
			observedAt = now
		}
		result, execErr := stmt.ExecContext(ctx,
			observedAt.UTC(), obs.ProcessID, obs.ProcessName, obs.ProjectID, obs.ProjectName,
			obs.DatasetID, obs.DatasetName, obs.File, obs.Column)
		if execErr != nil {
			return 0, fmt.Errorf("failed to save observation %s/%s: %w", obs.File, obs.Column, execErr)
		}
		if n, rowsErr := result.RowsAffected(); rowsErr == nil {
			inserted += int(n)
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("failed to commit observations: %w", err)
	}
	return inserted, nil
}

// ListObservations returns every observation in the order it was first recorded.
func (s *SQLiteStorage) ListObservations(ctx context.Context) ([]model.Observation, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}
	return s.queryObservations(ctx, `SELECT `+observationColumns+` FROM observations ORDER BY id`)
}

// ListObservationsByProcess returns the observations recorded for one process name.
func (s *SQLiteStorage) ListObservationsByProcess(ctx context.Context, processName string) ([]model.Observation, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}
	if err := validateString(processName, "processName"); err != nil {
		return nil, err
	}
	return s.queryObservations(ctx,
		`SELECT `+observationColumns+` FROM observations WHERE process_name = ? ORDER BY id`, processName)
}

// HasProcess reports whether any observation exists for the process name.
func (s *SQLiteStorage) HasProcess(ctx context.Context, processName string) (bool, error) {
	if err := validateContext(ctx); err != nil {
		return false, err
	}
	if err := validateString(processName, "processName"); err != nil {
		return false, err
	}

	var exists int
	err := s.db.QueryRowContext(ctx,
		`SELECT EXISTS(SELECT 1 FROM observations WHERE process_name = ?)`, processName).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("failed to check process %s: %w", processName, err)
	}
	return exists == 1, nil
}

// DeleteProcess removes every observation for the process name and returns
// how many rows were deleted.
func (s *SQLiteStorage) DeleteProcess(ctx context.Context, processName string) (int, error) {
	if err := validateContext(ctx); err != nil {
		return 0, err
	}
	if err := validateString(processName, "processName"); err != nil {
		return 0, err
	}

	result, err := s.db.ExecContext(ctx, `DELETE FROM observations WHERE process_name = ?`, processName)
	if err != nil {
		return 0, fmt.Errorf("failed to delete observations for %s: %w", processName, err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to count deleted observations: %w", err)
	}
	return int(n), nil
}

func (s *SQLiteStorage) queryObservations(ctx context.Context, query string, args ...any) ([]model.Observation, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query observations: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var observations []model.Observation
	for rows.Next() {
		obs, scanErr := scanObservation(rows)
		if scanErr != nil {
			return nil, scanErr
		}
		observations = append(observations, obs)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate observations: %w", err)
	}
	return observations, nil
}

func scanObservation(rows *sql.Rows) (model.Observation, error) {
	var obs model.Observation
	err := rows.Scan(&obs.ID, &obs.ObservedAt, &obs.ProcessID, &obs.ProcessName,
		&obs.ProjectID, &obs.ProjectName, &obs.DatasetID, &obs.DatasetName,
		&obs.File, &obs.Column)
	if err != nil {
		return model.Observation{}, fmt.Errorf("failed to scan observation: %w", err)
	}
	return obs, nil
}
