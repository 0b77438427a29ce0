// Package service defines the interfaces shared by the annotation flows.
package service

import (
	"context"
)

// Prompter asks the user questions. Implementations must honor ctx
// cancellation on every call.
type Prompter interface {
	// Select asks for exactly one of choices and returns it.
	Select(ctx context.Context, message string, choices []string) (string, error)
	// Text asks for free text; an empty answer yields def.
	Text(ctx context.Context, message, def string) (string, error)
	// Checkbox asks for any subset of choices. defaults are preselected and
	// returned when the user accepts without changes. The result keeps the
	// order of choices.
	Checkbox(ctx context.Context, message string, choices, defaults []string) ([]string, error)
}

// Notifier receives user-facing status lines that are not questions.
type Notifier interface {
	Info(message string)
	Warn(message string)
	Success(message string)
}
