package tabular

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestResult(t *testing.T) {
	r := New([]string{"id", "name"}, nil)
	assert.Equal(t, 0, r.Len())

	r.Append([]any{1, "ada"})
	r.Append([]any{2, "grace"})

	require.Equal(t, 2, r.Len())
	assert.Equal(t, []string{"id", "name"}, r.Fields())
	assert.Equal(t, map[string]any{"id": 2, "name": "grace"}, r.Row(1))
}

func TestResult_NilLen(t *testing.T) {
	var r *Result
	assert.Equal(t, 0, r.Len())
}

func TestResult_RowShorterThanFields(t *testing.T) {
	r := New([]string{"a", "b", "c"}, [][]any{{1}})
	assert.Equal(t, map[string]any{"a": 1}, r.Row(0))
}

func TestResult_String(t *testing.T) {
	r := New([]string{"id", "name"}, [][]any{{1, "ada"}})

	want := divider + "\n" +
		"id: 1\n" +
		"name: ada\n" +
		divider + "\n"
	assert.Equal(t, want, r.String())
}

func TestResult_StringEmpty(t *testing.T) {
	r := New([]string{"id"}, nil)
	assert.Equal(t, divider+"\n", r.String())
}
