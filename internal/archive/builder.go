// Package archive packs one bucket directory into a single container file
// and publishes it atomically.
//
// A container is a tar stream compressed with xz (LZMA2). It is written to
// TempName, synced, and only then renamed to FinalName, so a file at the
// final name is always complete.
package archive

import (
	"archive/tar"
	"errors"
	"fmt"
	"io"
	"path/filepath"

	"github.com/ulikunitz/xz"

	"github.com/raoulx24/shardpack/internal/fs"
	"github.com/raoulx24/shardpack/internal/logging"
	"github.com/raoulx24/shardpack/internal/stats"
)

// DefaultBufferSize is the per-build transfer buffer.
const DefaultBufferSize = 1 << 20

// ErrNotRegular is returned when a bucket holds anything but regular files.
var ErrNotRegular = errors.New("non-regular entry in bucket")

// Builder writes containers. It is safe for concurrent use: every Build
// allocates its own transfer buffer.
type Builder struct {
	fs      fs.FS
	log     logging.Logger
	xzCfg   xz.WriterConfig
	bufSize int
}

// NewBuilder validates level and buffer size. A nil filesystem means the
// OS filesystem.
func NewBuilder(filesystem fs.FS, level, bufSize int, log logging.Logger) (*Builder, error) {
	cfg, err := LevelConfig(level)
	if err != nil {
		return nil, err
	}
	if bufSize <= 0 {
		return nil, fmt.Errorf("buffer size must be positive, got %d", bufSize)
	}
	if filesystem == nil {
		filesystem = fs.New()
	}
	return &Builder{fs: filesystem, log: log, xzCfg: cfg, bufSize: bufSize}, nil
}

// Build packs the regular files of root/name into root/FinalName(name).
// When the final container already exists nothing is built and built is
// false; the caller may still clean up the source.
func (b *Builder) Build(root, name string) (batch stats.Batch, built bool, err error) {
	final := filepath.Join(root, FinalName(name))
	exists, err := fs.Exists(b.fs, final)
	if err != nil {
		return stats.Batch{}, false, fmt.Errorf("checking %s: %w", final, err)
	}
	if exists {
		b.log.Debug(2, "container %s already published, skipping build", final)
		return stats.Batch{}, false, nil
	}

	tmp := filepath.Join(root, TempName(name))
	b.log.Debug(4, "writing %s", tmp)

	batch, err = b.writeTemp(filepath.Join(root, name), tmp)
	if err != nil {
		_ = b.fs.Remove(tmp)
		return stats.Batch{}, false, err
	}

	// Publish.
	if err := b.fs.Rename(tmp, final); err != nil {
		_ = b.fs.Remove(tmp)
		return stats.Batch{}, false, fmt.Errorf("renaming %s to %s: %w", tmp, final, err)
	}

	return batch, true, nil
}

func (b *Builder) writeTemp(dir, tmp string) (stats.Batch, error) {
	var batch stats.Batch

	entries, err := b.fs.ReadDir(dir)
	if err != nil {
		return batch, fmt.Errorf("reading %s: %w", dir, err)
	}
	// os.ReadDir never yields "." or "..", so every non-regular entry is a
	// real one.
	for _, e := range entries {
		if !e.Type().IsRegular() {
			return batch, fmt.Errorf("%w: %s (%s)", ErrNotRegular, filepath.Join(dir, e.Name()), e.Type())
		}
	}

	out, err := b.fs.Create(tmp)
	if err != nil {
		return batch, fmt.Errorf("creating %s: %w", tmp, err)
	}
	closed := false
	defer func() {
		if !closed {
			_ = out.Close()
		}
	}()

	xw, err := b.xzCfg.NewWriter(out)
	if err != nil {
		return batch, fmt.Errorf("starting xz stream for %s: %w", tmp, err)
	}
	tw := tar.NewWriter(xw)

	buf := make([]byte, b.bufSize)
	for _, e := range entries {
		n, err := b.addFile(tw, dir, e.Name(), buf)
		if err != nil {
			return batch, err
		}
		batch.FileCount++
		batch.RawBytes += uint64(n)
	}

	if err := tw.Close(); err != nil {
		return batch, fmt.Errorf("finishing tar stream for %s: %w", tmp, err)
	}
	if err := xw.Close(); err != nil {
		return batch, fmt.Errorf("finishing xz stream for %s: %w", tmp, err)
	}
	if err := out.Sync(); err != nil {
		return batch, fmt.Errorf("syncing %s: %w", tmp, err)
	}
	closed = true
	if err := out.Close(); err != nil {
		return batch, fmt.Errorf("closing %s: %w", tmp, err)
	}

	st, err := b.fs.Stat(tmp)
	if err != nil {
		return batch, fmt.Errorf("stat %s: %w", tmp, err)
	}
	batch.PackedBytes = uint64(st.Size)
	batch.ArchiveCount = 1
	return batch, nil
}

// addFile streams one source file into the tar writer and returns the
// number of bytes it contributed.
func (b *Builder) addFile(tw *tar.Writer, dir, name string, buf []byte) (int64, error) {
	path := filepath.Join(dir, name)

	before, err := b.fs.Stat(path)
	if err != nil {
		return 0, fmt.Errorf("stat %s: %w", path, err)
	}
	in, err := b.fs.Open(path)
	if err != nil {
		return 0, fmt.Errorf("opening %s: %w", path, err)
	}
	defer in.Close()

	if err := tw.WriteHeader(entryOf(name, before).header()); err != nil {
		return 0, fmt.Errorf("writing header for %s: %w", path, err)
	}

	n, err := copyBuffer(tw, io.LimitReader(in, before.Size), buf)
	if err != nil {
		return n, fmt.Errorf("packing %s: %w", path, err)
	}
	if n != before.Size {
		return n, fmt.Errorf("%w: %s read %d of %d bytes", fs.ErrSourceChanged, path, n, before.Size)
	}

	after, err := b.fs.Stat(path)
	if err != nil {
		return n, fmt.Errorf("stat %s: %w", path, err)
	}
	if fs.SourceChanged(before, after) {
		return n, fmt.Errorf("%w: %s", fs.ErrSourceChanged, path)
	}

	b.log.Debug(4, "packed %s (%d bytes)", path, n)
	return n, nil
}

// copyBuffer moves src into dst through buf only, so memory stays bounded
// by the buffer size whatever the file size.
func copyBuffer(dst io.Writer, src io.Reader, buf []byte) (int64, error) {
	var written int64
	for {
		n, readErr := src.Read(buf)
		if n > 0 {
			wn, writeErr := dst.Write(buf[:n])
			written += int64(wn)
			if writeErr != nil {
				return written, writeErr
			}
			if wn != n {
				return written, io.ErrShortWrite
			}
		}
		if readErr != nil {
			if readErr == io.EOF {
				return written, nil
			}
			return written, readErr
		}
	}
}
