//go:build unix

package fs

import (
	"os"
	"syscall"
)

// inodeOf lets SourceChanged notice a file that was replaced by rename
// while it was being packed.
func inodeOf(info os.FileInfo) uint64 {
	st, ok := info.Sys().(*syscall.Stat_t)
	if !ok {
		return 0
	}
	return uint64(st.Ino)
}
