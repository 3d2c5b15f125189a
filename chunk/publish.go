package chunk

import (
	"bufio"
	"io"
	"os"
	"path/filepath"

	"github.com/teranos/pipestage/errors"
)

// FilePermissions is used for published output files.
const FilePermissions = 0644

const writeBufferSize = 1 << 20

// TempName returns the in-flight name for name: "_" + name. It is never a
// candidate, so a reader watching the output directory can apply the same
// rule and ignore it.
func TempName(name string) string {
	return "_" + name
}

// Publish writes data as outputDir/name without ever exposing a partial
// file. See PublishFrom.
func Publish(outputDir, name string, data []byte) error {
	return PublishFrom(outputDir, name, func(w io.Writer) error {
		_, err := w.Write(data)
		return err
	})
}

// PublishFrom streams write into outputDir/_name, syncs and closes it, then
// renames it to outputDir/name. The temp file lives in outputDir so the
// rename never crosses a volume. If anything fails the temp file is removed
// and any earlier output for name is left untouched. An existing output with
// the same name is replaced.
func PublishFrom(outputDir, name string, write func(io.Writer) error) error {
	tmpPath := filepath.Join(outputDir, TempName(name))
	dest := filepath.Join(outputDir, name)

	f, err := os.OpenFile(tmpPath, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, FilePermissions)
	if err != nil {
		return errors.Wrapf(err, "create %s", tmpPath)
	}

	bw := bufio.NewWriterSize(f, writeBufferSize)
	if err := write(bw); err != nil {
		_ = f.Close()
		_ = os.Remove(tmpPath)
		return errors.Wrapf(err, "write %s", name)
	}
	if err := bw.Flush(); err != nil {
		_ = f.Close()
		_ = os.Remove(tmpPath)
		return errors.Wrapf(err, "flush %s", name)
	}
	if err := f.Sync(); err != nil {
		_ = f.Close()
		_ = os.Remove(tmpPath)
		return errors.Wrapf(err, "sync %s", name)
	}
	if err := f.Close(); err != nil {
		_ = os.Remove(tmpPath)
		return errors.Wrapf(err, "close %s", name)
	}
	if err := os.Rename(tmpPath, dest); err != nil {
		_ = os.Remove(tmpPath)
		return errors.Wrapf(err, "publish %s", name)
	}
	// Best effort: persist the rename itself
	_ = syncDir(outputDir)
	return nil
}

func syncDir(dir string) error {
	f, err := os.Open(dir)
	if err != nil {
		return err
	}
	defer f.Close()
	return f.Sync()
}
