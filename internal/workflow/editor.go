package workflow

import (
	"github.com/CirroBio/cirro-annotation/internal/common"
)

// Editor is the form state machine. Every effective change moves the current
// document onto the history stack, drops the redo stack and bumps the render
// generation. History is linear: editing after an undo discards the undone
// states.
type Editor struct {
	current    map[string]any
	history    []map[string]any
	future     []map[string]any
	generation int
}

// NewEditor starts an editor from doc, or from DefaultDocument when doc is nil.
func NewEditor(doc map[string]any) (*Editor, error) {
	if doc == nil {
		doc = DefaultDocument()
	}
	normalized, err := Normalize(doc)
	if err != nil {
		return nil, err
	}
	return &Editor{current: normalized}, nil
}

// Document returns a copy of the current configuration document.
func (e *Editor) Document() map[string]any {
	return clone(e.current)
}

// Config returns the typed view of the current document.
func (e *Editor) Config() (*Config, error) {
	return Load(e.current)
}

// Generation increases on every change and is used to key rendered widgets.
func (e *Editor) Generation() int {
	return e.generation
}

// HistoryLen is the number of states Undo can restore.
func (e *Editor) HistoryLen() int { return len(e.history) }

// FutureLen is the number of states Redo can restore.
func (e *Editor) FutureLen() int { return len(e.future) }

// CanUndo reports whether there is history to restore.
func (e *Editor) CanUndo() bool { return len(e.history) > 0 }

// CanRedo reports whether an undone state can be restored.
func (e *Editor) CanRedo() bool { return len(e.future) > 0 }

// Previous returns the state Undo would restore, or nil.
func (e *Editor) Previous() map[string]any {
	if len(e.history) == 0 {
		return nil
	}
	return clone(e.history[len(e.history)-1])
}

// Set updates one source field. It reports whether the document changed.
func (e *Editor) Set(f Field, value string) (bool, error) {
	return e.Update(func(c *Config) error {
		return c.Source.Set(f, value)
	})
}

// SetProcesses updates a process list field from labels.
func (e *Editor) SetProcesses(f Field, labels []string) (bool, error) {
	return e.Update(func(c *Config) error {
		return c.Source.SetProcesses(f, labels)
	})
}

// Update applies fn to the typed state and commits the result. A failing fn
// leaves the editor untouched.
func (e *Editor) Update(fn func(*Config) error) (bool, error) {
	c, err := Load(e.current)
	if err != nil {
		return false, err
	}
	if err := fn(c); err != nil {
		return false, err
	}
	doc, err := c.Dump()
	if err != nil {
		return false, err
	}
	return e.commit(doc), nil
}

// Replace commits doc as a single change, e.g. after importing files.
func (e *Editor) Replace(doc map[string]any) (bool, error) {
	normalized, err := Normalize(doc)
	if err != nil {
		return false, err
	}
	return e.commit(normalized), nil
}

func (e *Editor) commit(doc map[string]any) bool {
	if Equal(doc, e.current) {
		return false
	}
	if n := len(e.history); n == 0 || !Equal(e.history[n-1], e.current) {
		e.history = append(e.history, e.current)
	}
	e.future = nil
	e.current = doc
	e.generation++
	return true
}

// Undo restores the previous state.
func (e *Editor) Undo() error {
	n := len(e.history)
	if n == 0 {
		return common.ErrNothingToUndo
	}
	e.future = append(e.future, e.current)
	e.current = e.history[n-1]
	e.history = e.history[:n-1]
	e.generation++
	return nil
}

// Redo restores the most recently undone state.
func (e *Editor) Redo() error {
	n := len(e.future)
	if n == 0 {
		return common.ErrNothingToRedo
	}
	e.history = append(e.history, e.current)
	e.current = e.future[n-1]
	e.future = e.future[:n-1]
	e.generation++
	return nil
}

// Reset discards history and returns to the default document.
func (e *Editor) Reset() error {
	doc, err := Normalize(DefaultDocument())
	if err != nil {
		return err
	}
	e.current = doc
	e.history = nil
	e.future = nil
	e.generation++
	return nil
}
