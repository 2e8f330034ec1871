package trigger

import (
	"context"
	"time"
)

// StartPolling posts a request on a fixed interval.
func (t *Trigger) StartPolling(ctx context.Context) {
	ticker := time.NewTicker(t.cfg.PollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			t.post("poll")
		}
	}
}
