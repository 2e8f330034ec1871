package archive

import (
	"archive/tar"
	"os"
	"time"

	"github.com/raoulx24/shardpack/internal/fs"
)

// Entry describes a single file within a container.
type Entry struct {
	Name    string
	Size    int64
	ModTime time.Time
	Mode    os.FileMode
}

// entryOf builds an Entry from a stat of the source file.
func entryOf(name string, info fs.FileInfo) Entry {
	return Entry{
		Name:    name,
		Size:    info.Size,
		ModTime: info.MTime,
		Mode:    info.Mode,
	}
}

func (e Entry) header() *tar.Header {
	return &tar.Header{
		Typeflag: tar.TypeReg,
		Name:     e.Name,
		Size:     e.Size,
		Mode:     int64(e.Mode.Perm()),
		ModTime:  e.ModTime,
	}
}
