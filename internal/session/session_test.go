package session

import (
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew(t *testing.T) {
	a, b := New(), New()
	assert.NotEqual(t, uuid.Nil, a.ID)
	assert.NotEqual(t, a.ID, b.ID)
	assert.False(t, a.StartedAt.IsZero())
}

func TestMemo(t *testing.T) {
	s := New()
	calls := 0
	compute := func() ([]string, error) {
		calls++
		return []string{"p-1", "p-2"}, nil
	}

	got, err := Memo(s, "ListDatasets", []any{"p-1"}, compute)
	require.NoError(t, err)
	assert.Equal(t, []string{"p-1", "p-2"}, got)

	got, err = Memo(s, "ListDatasets", []any{"p-1"}, compute)
	require.NoError(t, err)
	assert.Equal(t, []string{"p-1", "p-2"}, got)
	assert.Equal(t, 1, calls)

	_, err = Memo(s, "ListDatasets", []any{"p-2"}, compute)
	require.NoError(t, err)
	assert.Equal(t, 2, calls, "different arguments miss")

	_, err = Memo(s, "ListFiles", []any{"p-1"}, compute)
	require.NoError(t, err)
	assert.Equal(t, 3, calls, "different function misses")

	hits, misses := s.Stats()
	assert.Equal(t, 1, hits)
	assert.Equal(t, 3, misses)
	assert.Equal(t, 3, s.Size())
}

func TestMemo_ErrorsNotCached(t *testing.T) {
	s := New()
	boom := errors.New("boom")
	calls := 0

	_, err := Memo(s, "ListProjects", nil, func() (int, error) {
		calls++
		return 0, boom
	})
	assert.ErrorIs(t, err, boom)

	got, err := Memo(s, "ListProjects", nil, func() (int, error) {
		calls++
		return 7, nil
	})
	require.NoError(t, err)
	assert.Equal(t, 7, got)
	assert.Equal(t, 2, calls)
}

func TestMemo_UnencodableArgs(t *testing.T) {
	_, err := Memo(New(), "f", []any{make(chan int)}, func() (int, error) { return 1, nil })
	assert.Error(t, err)
}

func TestForgetAndClear(t *testing.T) {
	s := New()
	one := func() (int, error) { return 1, nil }
	_, _ = Memo(s, "ListProjects", nil, one)
	_, _ = Memo(s, "ListProcesses", nil, one)

	s.Forget("ListProjects")
	assert.Equal(t, 1, s.Size())

	s.Clear()
	assert.Equal(t, 0, s.Size())
}
