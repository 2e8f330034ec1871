package trigger

import (
	"context"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/raoulx24/shardpack/internal/bucket"
)

// StartFsNotify posts a request once the working directory has been quiet
// for the debounce window after a numeric bucket appeared in it.
//
// Only Create events count: a pass itself removes buckets and creates
// containers, neither of which may trigger the next pass.
func (t *Trigger) StartFsNotify(ctx context.Context) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer watcher.Close()

	if err := watcher.Add(t.dir); err != nil {
		return err
	}

	debounce := time.NewTimer(time.Hour)
	debounce.Stop()
	defer debounce.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil

		case ev, ok := <-watcher.Events:
			if !ok {
				t.log.Error("fsnotify: events channel closed")
				return nil
			}

			t.log.Debug(4, "fsnotify: %s %s", ev.Op, ev.Name)

			name := filepath.Base(ev.Name)
			if !ev.Has(fsnotify.Create) || !bucket.IsNumeric(name) {
				continue
			}
			debounce.Reset(t.cfg.DebounceWindow)

		case <-debounce.C:
			t.post("fsnotify")

		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			t.log.Error("fsnotify: %v", err)
		}
	}
}
