// Package cleanup removes a bucket's source files once its container is
// published.
package cleanup

import (
	"path/filepath"

	"github.com/raoulx24/shardpack/internal/fs"
	"github.com/raoulx24/shardpack/internal/logging"
)

type Cleaner struct {
	fs  fs.FS
	log logging.Logger
}

func New(filesystem fs.FS, log logging.Logger) *Cleaner {
	if filesystem == nil {
		filesystem = fs.New()
	}
	return &Cleaner{fs: filesystem, log: log}
}

// Result counts what Clean did. Failures are warnings only: the container
// is already durable, so a half-cleaned bucket is picked up again by the
// next run.
type Result struct {
	Removed    int
	Failed     int
	DirRemoved bool
}

// Clean removes every regular file in dir, then dir itself. It never
// aborts early.
func (c *Cleaner) Clean(dir string) Result {
	var res Result

	entries, err := c.fs.ReadDir(dir)
	if err != nil {
		c.log.Warn("cleanup: reading %s: %v", dir, err)
	}

	for _, e := range entries {
		if !e.Type().IsRegular() {
			continue
		}
		path := filepath.Join(dir, e.Name())
		if err := c.fs.Remove(path); err != nil {
			c.log.Warn("cleanup: deleting %s: %v", path, err)
			res.Failed++
			continue
		}
		res.Removed++
	}

	if err := c.fs.Remove(dir); err != nil {
		c.log.Warn("cleanup: deleting %s: %v", dir, err)
		return res
	}
	res.DirRemoved = true
	return res
}
