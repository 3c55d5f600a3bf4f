package walk

import (
	"context"
	"errors"
	"io"
	"io/fs"
	"iter"
	"os"
	"path/filepath"
	"strings"
)

// Entry is a regular file found by a walk.
type Entry interface {
	Path() string
	Open() (io.ReadCloser, error)
	Stat() (fs.FileInfo, error)
}

// Options tune a walk. A zero MaxDepth means no limit; Skip is called with a
// slash separated path relative to the walked root for every directory below
// the root, a true return value prunes the subtree.
type Options struct {
	MaxDepth int
	Skip     func(path string) bool
}

// Dirs is a convenience wrapper around FS opening each path as an os.Root.
// Roots which can't be opened are reported as errors and skipped.
func Dirs(ctx context.Context, opts Options, paths ...string) iter.Seq2[Entry, error] {
	return func(yield func(Entry, error) bool) {
		for _, path := range paths {
			root, err := os.OpenRoot(path)
			if err != nil {
				if !yield(fsEntry{abspath: path, infoErr: err}, err) {
					return
				}
				continue
			}
			for entry, err := range FS(ctx, root.FS(), root.Name(), opts) {
				if !yield(entry, err) {
					_ = root.Close()
					return
				}
			}
			_ = root.Close()
		}
	}
}

// FS recursively walks the filesystem rooted at root and return a handle for every regular file found.
// Or an error if file information retrieval fails. Permission errors on
// directories are swallowed and the directory is skipped.
// Each Entry's Path() is prefixed with name of a filesystem. It does not follow symlinks.
func FS(ctx context.Context, root fs.FS, name string, opts Options) iter.Seq2[Entry, error] {
	if root == nil {
		panic("root is nil")
	}

	return func(yield func(Entry, error) bool) {
		fn := func(path string, d fs.DirEntry, err error) error {
			if ctx.Err() != nil {
				return fs.SkipAll
			}
			var entry = fsEntry{
				root:    root,
				abspath: filepath.Join(name, filepath.FromSlash(path)),
				path:    path,
			}
			if err != nil {
				if errors.Is(err, fs.ErrPermission) {
					return skipDir(d)
				}
				entry.infoErr = err
				if !yield(entry, err) {
					return fs.SkipAll
				}
				return skipDir(d)
			}

			if d.IsDir() {
				if path == "." {
					return nil
				}
				if opts.MaxDepth > 0 && depth(path) > opts.MaxDepth {
					return fs.SkipDir
				}
				if opts.Skip != nil && opts.Skip(path) {
					return fs.SkipDir
				}
				return nil
			}

			info, err := d.Info()
			if err != nil {
				if errors.Is(err, fs.ErrNotExist) {
					return nil
				}
				entry.infoErr = err
			} else {
				if !info.Mode().IsRegular() {
					return nil
				}
				entry.info = info
			}

			if !yield(entry, entry.infoErr) {
				return fs.SkipAll
			}
			return nil
		}
		_ = fs.WalkDir(root, ".", fn)
	}
}

func skipDir(d fs.DirEntry) error {
	if d == nil || d.IsDir() {
		return fs.SkipDir
	}
	return nil
}

func depth(path string) int {
	return strings.Count(path, "/") + 1
}

// fsEntry implements Entry for a filesystem
// it uses root.Open to open the file
type fsEntry struct {
	root    fs.FS
	abspath string
	path    string
	info    fs.FileInfo
	infoErr error
}

// returns the absolute path to the file
func (e fsEntry) Path() string {
	return e.abspath
}

func (e fsEntry) Open() (io.ReadCloser, error) {
	if e.infoErr != nil {
		return nil, e.infoErr
	}
	return e.root.Open(e.path)
}

func (e fsEntry) Stat() (fs.FileInfo, error) {
	return e.info, e.infoErr
}
