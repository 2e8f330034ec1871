package fs

import "errors"

// ErrSourceChanged is returned when a file was modified while it was being
// packed. Buckets that are still being appended to must not be compacted.
var ErrSourceChanged = errors.New("source changed while packing")

// SourceChanged compares two stats of the same path taken before and after
// reading it.
func SourceChanged(orig, now FileInfo) bool {
	if now.Inode != 0 && orig.Inode != 0 && now.Inode != orig.Inode {
		return true
	}
	if now.MTime.After(orig.MTime) {
		return true
	}
	return now.Size != orig.Size
}
