package fs

import (
	"io"
	"os"
)

// OSFS is the FS backed by the local OS filesystem.
// Platform-specific details (inode extraction) live in build-tagged files.
type OSFS struct{}

func New() *OSFS {
	return &OSFS{}
}

func (o *OSFS) Stat(path string) (FileInfo, error) {
	st, err := os.Stat(path)
	if err != nil {
		return FileInfo{}, err
	}

	return FileInfo{
		Path:  path,
		Size:  st.Size(),
		MTime: st.ModTime(),
		Inode: inodeOf(st),
		Mode:  st.Mode(),
	}, nil
}

func (o *OSFS) ReadDir(path string) ([]os.DirEntry, error) {
	return os.ReadDir(path)
}

func (o *OSFS) Open(path string) (io.ReadCloser, error) {
	return os.Open(path)
}

// Create truncates any leftover file of the same name, e.g. a temp
// container abandoned by a crashed run.
func (o *OSFS) Create(path string) (File, error) {
	return os.OpenFile(path, os.O_RDWR|os.O_CREATE|os.O_TRUNC, 0o644)
}

func (o *OSFS) Rename(oldPath, newPath string) error {
	return os.Rename(oldPath, newPath)
}

func (o *OSFS) Remove(path string) error {
	return os.Remove(path)
}
