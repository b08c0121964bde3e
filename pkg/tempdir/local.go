// Package tempdir implements the Temp Resource Directory component: scoped
// acquisition of a filesystem directory with guaranteed release, supporting
// relative-path ingestion of files and directories from the host
// filesystem. Grounded on _examples/original_source/nagoya/temp.py's
// TempDirectory.include, restructured in the teacher's constructor-plus-error
// style (see the original pkg/volume/local.go's NewLocalDriver).
package tempdir

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
)

// ErrRelativePathEscape is returned by Include when the destination path
// contains a ".." parent-escape.
var ErrRelativePathEscape = fmt.Errorf("destination path escapes the temp directory root")

// Dir is a scoped temporary directory. Acquire with New, release with
// Cleanup — typically via defer, so the tree is removed on every exit path
// including a panic that unwinds through the deferred call.
type Dir struct {
	path   string
	closed bool
}

// New creates a new temp directory under the system temp root (or under
// base, if non-empty).
func New(base string) (*Dir, error) {
	prefix := "fleetyard-"
	path, err := os.MkdirTemp(base, prefix)
	if err != nil {
		return nil, fmt.Errorf("create temp directory: %w", err)
	}
	return &Dir{path: path}, nil
}

// Path returns the directory's root on disk.
func (d *Dir) Path() string {
	return d.path
}

// Cleanup removes the directory tree. Safe to call more than once.
func (d *Dir) Cleanup() error {
	if d.closed {
		return nil
	}
	d.closed = true
	return os.RemoveAll(d.path)
}

// Include copies a file or directory from source into the temp directory at
// relDest (created, including parent directories, relative to the temp
// directory root). Directories are copied recursively. When executable is
// true, the destination file's mode is unioned with user/group/other
// execute bits. Paths containing ".." are rejected.
func (d *Dir) Include(source, relDest string, executable bool) error {
	if strings.Contains(relDest, "..") {
		return fmt.Errorf("%w: %q", ErrRelativePathEscape, relDest)
	}

	dest := filepath.Join(d.path, strings.TrimPrefix(relDest, "/"))

	info, err := os.Stat(source)
	if err != nil {
		return fmt.Errorf("stat source %q: %w", source, err)
	}

	if err := os.MkdirAll(filepath.Dir(dest), 0o755); err != nil {
		return fmt.Errorf("create parent directories for %q: %w", dest, err)
	}

	if info.IsDir() {
		if err := copyTree(source, dest); err != nil {
			return fmt.Errorf("copy directory %q: %w", source, err)
		}
	} else {
		if err := copyFile(source, dest, info.Mode()); err != nil {
			return fmt.Errorf("copy file %q: %w", source, err)
		}
	}

	if executable {
		st, err := os.Stat(dest)
		if err != nil {
			return fmt.Errorf("stat copied resource %q: %w", dest, err)
		}
		if err := os.Chmod(dest, st.Mode()|0o111); err != nil {
			return fmt.Errorf("chmod +x %q: %w", dest, err)
		}
	}

	return nil
}

func copyFile(source, dest string, mode os.FileMode) error {
	in, err := os.Open(source)
	if err != nil {
		return err
	}
	defer in.Close()

	out, err := os.OpenFile(dest, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, mode.Perm())
	if err != nil {
		return err
	}
	defer out.Close()

	if _, err := out.ReadFrom(in); err != nil {
		return err
	}
	return nil
}

func copyTree(source, dest string) error {
	return filepath.Walk(source, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		rel, err := filepath.Rel(source, path)
		if err != nil {
			return err
		}
		target := filepath.Join(dest, rel)
		if info.IsDir() {
			return os.MkdirAll(target, info.Mode().Perm())
		}
		return copyFile(path, target, info.Mode())
	})
}

// KeyedDir is the per-container-per-directory variant the Container-System
// Build Driver uses for volume-include operations (§4.2 of SPEC_FULL.md):
// each (container, directory) pair gets its own Dir, so concurrent includes
// from different containers never collide.
type KeyedDir struct {
	base string
	dirs map[string]*Dir
}

// NewKeyedDir creates an empty keyed collection of temp directories rooted
// under base (system default when empty).
func NewKeyedDir(base string) *KeyedDir {
	return &KeyedDir{base: base, dirs: make(map[string]*Dir)}
}

// key combines a container name and an in-image directory into a single
// map key so two containers mounting the same in-image directory path
// still get independent temp directories.
func key(container, dir string) string {
	return container + "\x00" + dir
}

// ForContainerDir returns the Dir for (container, dir), creating it on
// first use.
func (k *KeyedDir) ForContainerDir(container, dir string) (*Dir, error) {
	kk := key(container, dir)
	if d, ok := k.dirs[kk]; ok {
		return d, nil
	}
	d, err := New(k.base)
	if err != nil {
		return nil, err
	}
	k.dirs[kk] = d
	return d, nil
}

// CleanupAll releases every temp directory created through this collection,
// returning the first error encountered (after attempting all of them).
func (k *KeyedDir) CleanupAll() error {
	var firstErr error
	for _, d := range k.dirs {
		if err := d.Cleanup(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

// NewName generates a random temp-resource name: prefix, a dash and eight
// characters of a UUID. pkg/consys uses it to name its extraction
// directory; Container Descriptors that omit a name get a UUID from
// pkg/container instead.
func NewName(prefix string) string {
	return prefix + "-" + uuid.NewString()[:8]
}
