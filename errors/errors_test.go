package errors

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew(t *testing.T) {
	err := New("test error")
	require.NotNil(t, err)
	assert.Equal(t, "test error", err.Error())
}

func TestWrap(t *testing.T) {
	original := New("original")
	wrapped := Wrap(original, "wrapped")

	assert.Contains(t, wrapped.Error(), "wrapped")
	assert.Contains(t, wrapped.Error(), "original")
	assert.True(t, Is(wrapped, original))
}

func TestWrapf(t *testing.T) {
	original := New("original")
	wrapped := Wrapf(original, "wrapped: %d", 42)

	assert.Contains(t, wrapped.Error(), "wrapped: 42")
	assert.Contains(t, wrapped.Error(), "original")
}

func TestUnsupportedBackend(t *testing.T) {
	err := NewUnsupportedBackendError("oracle", "sqlite", "postgres")

	assert.True(t, IsUnsupportedBackend(err))
	assert.True(t, IsUnsupportedBackend(fmt.Errorf("open: %w", err)))
	assert.False(t, IsUnsupportedBackend(New("other")))
	assert.False(t, IsUnsupportedBackend(nil))
	assert.Contains(t, err.Error(), `"oracle"`)

	hints := GetAllHints(err)
	require.Len(t, hints, 1)
	assert.Contains(t, hints[0], "sqlite")
}

func TestMissingConfig(t *testing.T) {
	err := NewMissingConfigError("stage.instance")

	assert.True(t, IsMissingConfig(err))
	assert.Contains(t, err.Error(), "stage.instance")
	assert.False(t, IsMissingConfig(ErrUnsupportedBackend))
}

func TestStackTrace(t *testing.T) {
	err := Wrap(New("base"), "context")
	assert.NotNil(t, GetStack(err))
}
