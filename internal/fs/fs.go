// Package fs defines the filesystem abstraction used by shardpack.
// It provides the FS interface and the FileInfo type shared by the
// container builder, cleanup and the scheduler.
package fs

import (
	"errors"
	"io"
	"os"
	"time"
)

type FileInfo struct {
	Path  string
	Size  int64
	MTime time.Time
	Inode uint64
	Mode  os.FileMode
}

func (fi FileInfo) IsDir() bool { return fi.Mode.IsDir() }

// File is the write side of a file being produced. Sync is called before the
// file is published.
type File interface {
	io.Writer
	Sync() error
	Close() error
}

type FS interface {
	Stat(path string) (FileInfo, error)
	ReadDir(path string) ([]os.DirEntry, error)
	Open(path string) (io.ReadCloser, error)
	Create(path string) (File, error)
	Rename(oldPath, newPath string) error
	Remove(path string) error
}

// Exists reports whether path can be stat'ed. A missing path is not an error.
func Exists(f FS, path string) (bool, error) {
	_, err := f.Stat(path)
	if err == nil {
		return true, nil
	}
	if errors.Is(err, os.ErrNotExist) {
		return false, nil
	}
	return false, err
}
