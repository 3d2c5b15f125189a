package chunk

import (
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/teranos/pipestage/errors"
)

func TestPublish(t *testing.T) {
	dir := t.TempDir()

	require.NoError(t, Publish(dir, "a.dat", []byte("hello")))

	data, err := os.ReadFile(filepath.Join(dir, "a.dat"))
	require.NoError(t, err)
	assert.Equal(t, []byte("hello"), data)

	_, err = os.Stat(filepath.Join(dir, "_a.dat"))
	assert.True(t, os.IsNotExist(err), "temp file must not survive publish")
}

func TestPublish_Overwrites(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, Publish(dir, "a.dat", []byte("first")))
	require.NoError(t, Publish(dir, "a.dat", []byte("second")))

	data, err := os.ReadFile(filepath.Join(dir, "a.dat"))
	require.NoError(t, err)
	assert.Equal(t, []byte("second"), data)
}

func TestPublishFrom_WriteFailureLeavesNothing(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, Publish(dir, "a.dat", []byte("previous")))

	err := PublishFrom(dir, "a.dat", func(w io.Writer) error {
		_, _ = w.Write([]byte("partial"))
		return errors.New("encoder blew up")
	})
	require.Error(t, err)

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "a.dat", entries[0].Name())

	data, err := os.ReadFile(filepath.Join(dir, "a.dat"))
	require.NoError(t, err)
	assert.Equal(t, []byte("previous"), data, "earlier output must be untouched")
}

func TestPublish_MissingDir(t *testing.T) {
	err := Publish(filepath.Join(t.TempDir(), "nope"), "a.dat", []byte("x"))
	assert.Error(t, err)
}

func TestTempNameIsNeverCandidate(t *testing.T) {
	for _, name := range []string{"a", "orders.dat", "x.csv"} {
		assert.False(t, IsCandidate(TempName(name)))
	}
}
