// Package fsprobe checks whether fsnotify delivers events for a directory.
// Some network and FUSE filesystems accept a watch but never report
// anything, which would leave watch mode silently idle.
package fsprobe

import (
	"fmt"
	"os"
	"time"

	"github.com/fsnotify/fsnotify"
)

// Result reports whether fsnotify is usable and why not.
type Result struct {
	Supported bool
	Reason    string
}

// Probe creates and renames a scratch file in dir and waits up to timeout
// for fsnotify to report it. The scratch name is never numeric, so a
// concurrent pass ignores it.
func Probe(dir string, timeout time.Duration) Result {
	st, err := os.Stat(dir)
	if err != nil {
		return Result{Reason: fmt.Sprintf("stat failed: %v", err)}
	}
	if !st.IsDir() {
		return Result{Reason: "not a directory"}
	}

	w, err := fsnotify.NewWatcher()
	if err != nil {
		return Result{Reason: fmt.Sprintf("fsnotify unavailable: %v", err)}
	}
	defer w.Close()

	if err := w.Add(dir); err != nil {
		return Result{Reason: fmt.Sprintf("cannot watch directory: %v", err)}
	}

	f, err := os.CreateTemp(dir, ".shardpack-probe-*")
	if err != nil {
		return Result{Reason: fmt.Sprintf("cannot create probe file: %v", err)}
	}
	tmp := f.Name()
	f.Close()

	done := tmp + ".done"
	if err := os.Rename(tmp, done); err != nil {
		os.Remove(tmp)
		return Result{Reason: fmt.Sprintf("rename failed: %v", err)}
	}
	defer os.Remove(done)

	deadline := time.After(timeout)
	for {
		select {
		case ev, ok := <-w.Events:
			if !ok {
				return Result{Reason: "event channel closed"}
			}
			if ev.Has(fsnotify.Create) || ev.Has(fsnotify.Rename) {
				return Result{Supported: true}
			}
		case <-deadline:
			return Result{Reason: "no events received within " + timeout.String()}
		}
	}
}
