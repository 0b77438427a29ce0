package cli

import (
	"bytes"
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestNewInterruptHandler(t *testing.T) {
	handler := NewInterruptHandler(nil, "", "")
	assert.NotNil(t, handler.writer)
	assert.Equal(t, "Operation", handler.operation)
	assert.False(t, handler.WasInterrupted())
}

func TestHandleInterrupts_ParentCancel(t *testing.T) {
	var output bytes.Buffer
	handler := NewInterruptHandler(&output, "Annotation", "")

	parent, cancel := context.WithCancel(context.Background())
	ctx := handler.HandleInterrupts(parent)

	select {
	case <-ctx.Done():
		t.Fatal("context should not be canceled initially")
	default:
	}

	cancel()

	select {
	case <-ctx.Done():
	case <-time.After(time.Second):
		t.Fatal("derived context was not canceled")
	}
	assert.False(t, handler.WasInterrupted())
}

func TestMarkInterrupted_Once(t *testing.T) {
	var output bytes.Buffer
	handler := NewInterruptHandler(&output, "Schema inference", "Sampled processes are kept in the ledger")

	handler.markInterrupted()
	handler.markInterrupted()

	assert.True(t, handler.WasInterrupted())
	assert.Equal(t, 1, bytes.Count(output.Bytes(), []byte("Schema inference interrupted")))
	assert.Contains(t, output.String(), "Sampled processes are kept in the ledger")
}

func TestShowInterruptMessage_NoKept(t *testing.T) {
	var output bytes.Buffer
	handler := NewInterruptHandler(&output, "Annotation", "")

	handler.showInterruptMessage()

	assert.Contains(t, output.String(), "Annotation interrupted")
	assert.NotContains(t, output.String(), "kept")
}
