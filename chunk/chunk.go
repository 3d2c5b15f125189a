// Package chunk keeps a chunk's lifecycle in the filesystem itself.
//
// Each instance owns three directories under a base path:
//
//	{base}/{name}-input/      chunks awaiting processing  (pending)
//	{base}/{name}-output/     published results           (published)
//	{base}/{name}-completed/  archived source chunks      (completed)
//
// A chunk moves pending → processing → published → completed. Output is
// always published before the source is archived, so a crash in between
// leaves the source in input and the chunk is reprocessed on restart.
package chunk

import (
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/teranos/pipestage/errors"
)

// DirPermissions is used for the three managed directories.
const DirPermissions = 0755

// State is a chunk lifecycle state.
type State int

const (
	Pending State = iota
	Processing
	Published
	Completed
)

func (s State) String() string {
	switch s {
	case Pending:
		return "pending"
	case Processing:
		return "processing"
	case Published:
		return "published"
	case Completed:
		return "completed"
	default:
		return "unknown"
	}
}

// IsCandidate reports whether name may be processed. Names starting with
// "_" or ending with ".tmp" are in-flight temporary writes.
func IsCandidate(name string) bool {
	return name != "" && !strings.HasPrefix(name, "_") && !strings.HasSuffix(name, ".tmp")
}

// Dirs is the directory triple of one instance. It is a plain value and
// never changes after construction.
type Dirs struct {
	Instance  string
	Input     string
	Output    string
	Completed string
}

// NewDirs derives the directory triple for instance under base.
func NewDirs(base, instance string) Dirs {
	return Dirs{
		Instance:  instance,
		Input:     filepath.Join(base, instance+"-input"),
		Output:    filepath.Join(base, instance+"-output"),
		Completed: filepath.Join(base, instance+"-completed"),
	}
}

// Ensure creates any missing directory. Existing directories are fine; a
// regular file in the way is an error.
func (d Dirs) Ensure() error {
	for _, dir := range []string{d.Input, d.Output, d.Completed} {
		if err := os.MkdirAll(dir, DirPermissions); err != nil {
			return errors.Wrapf(err, "create %s", dir)
		}
	}
	return nil
}

// InputPath returns the path of name in the input directory.
func (d Dirs) InputPath(name string) string {
	return filepath.Join(d.Input, name)
}

// Exists re-checks that name is still a regular file in the input
// directory. A stale scan may have seen a name that has since been consumed.
func (d Dirs) Exists(name string) (bool, error) {
	info, err := os.Stat(d.InputPath(name))
	if errors.Is(err, fs.ErrNotExist) {
		return false, nil
	}
	if err != nil {
		return false, errors.Wrapf(err, "stat %s", name)
	}
	return info.Mode().IsRegular(), nil
}

// Complete archives name by renaming it from input to completed. Call only
// after the output for name is published. Not retried.
func (d Dirs) Complete(name string) error {
	src := d.InputPath(name)
	dst := filepath.Join(d.Completed, name)
	if err := os.Rename(src, dst); err != nil {
		return errors.Wrapf(err, "archive %s", name)
	}
	return nil
}

// Scan walks the input directory recursively and returns the base name of
// every regular file, in walk (lexical) order. Names are not filtered; the
// caller applies IsCandidate.
func (d Dirs) Scan() ([]string, error) {
	var names []string
	err := filepath.WalkDir(d.Input, func(path string, entry fs.DirEntry, err error) error {
		if err != nil {
			// A file consumed mid-walk is not an error
			if errors.Is(err, fs.ErrNotExist) && path != d.Input {
				return nil
			}
			return err
		}
		if entry.Type().IsRegular() {
			names = append(names, entry.Name())
		}
		return nil
	})
	if err != nil {
		return nil, errors.Wrapf(err, "scan %s", d.Input)
	}
	return names, nil
}
