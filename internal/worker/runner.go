package worker

import (
	"errors"
	"fmt"
	"path/filepath"

	"github.com/raoulx24/shardpack/internal/archive"
	"github.com/raoulx24/shardpack/internal/cleanup"
	"github.com/raoulx24/shardpack/internal/fs"
	"github.com/raoulx24/shardpack/internal/logging"
)

var (
	// ErrSourceGone means the bucket vanished between listing and
	// processing, usually because another run got there first.
	ErrSourceGone = errors.New("bucket directory unavailable")
	// ErrNotDir means a numeric entry is not a directory.
	ErrNotDir = errors.New("bucket is not a directory")
)

// Runner compacts a single bucket under root: build (or find) its container,
// then remove the sources.
type Runner struct {
	root    string
	fs      fs.FS
	builder *archive.Builder
	cleaner *cleanup.Cleaner
	log     logging.Logger
}

func NewRunner(root string, filesystem fs.FS, builder *archive.Builder, cleaner *cleanup.Cleaner, log logging.Logger) *Runner {
	if filesystem == nil {
		filesystem = fs.New()
	}
	return &Runner{
		root:    root,
		fs:      filesystem,
		builder: builder,
		cleaner: cleaner,
		log:     log,
	}
}

// Run is a Func.
func (r *Runner) Run(name string) (Outcome, error) {
	dir := filepath.Join(r.root, name)

	st, err := r.fs.Stat(dir)
	if err != nil {
		return Outcome{}, fmt.Errorf("%w: %v", ErrSourceGone, err)
	}
	if !st.IsDir() {
		return Outcome{}, fmt.Errorf("%w: %s", ErrNotDir, dir)
	}

	batch, built, err := r.builder.Build(r.root, name)
	if err != nil {
		return Outcome{}, err
	}

	// The container exists at its final name from here on.
	res := r.cleaner.Clean(dir)
	r.log.Debug(3, "cleaned %s: %d removed, %d failed, dir removed=%v", dir, res.Removed, res.Failed, res.DirRemoved)

	return Outcome{Stats: batch, Built: built, Cleanup: res}, nil
}
