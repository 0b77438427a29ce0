package storage

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/CirroBio/cirro-annotation/internal/model"
)

// Validation errors.
var (
	ErrNilContext         = errors.New("context cannot be nil")
	ErrEmptyString        = errors.New("string parameter cannot be empty")
	ErrEmptySlice         = errors.New("slice cannot be empty")
	ErrInvalidObservation = errors.New("invalid observation")
)

// validateContext ensures the context is not nil.
func validateContext(ctx context.Context) error {
	if ctx == nil {
		return ErrNilContext
	}
	return nil
}

// validateString ensures a string parameter is not empty.
func validateString(s string, paramName string) error {
	if strings.TrimSpace(s) == "" {
		return fmt.Errorf("%w: %s", ErrEmptyString, paramName)
	}
	return nil
}

func validateObservations(observations []model.Observation) error {
	if len(observations) == 0 {
		return fmt.Errorf("%w: observations", ErrEmptySlice)
	}
	for i := range observations {
		if err := validateObservation(&observations[i]); err != nil {
			return fmt.Errorf("observation at index %d: %w", i, err)
		}
	}
	return nil
}

func validateObservation(obs *model.Observation) error {
	switch {
	case obs.ProcessName == "":
		return fmt.Errorf("%w: missing process name", ErrInvalidObservation)
	case obs.DatasetID == "":
		return fmt.Errorf("%w: missing dataset ID", ErrInvalidObservation)
	case obs.File == "":
		return fmt.Errorf("%w: missing file", ErrInvalidObservation)
	case obs.Column == "":
		return fmt.Errorf("%w: missing column", ErrInvalidObservation)
	}
	return nil
}
