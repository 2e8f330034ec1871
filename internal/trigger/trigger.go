// Package trigger decides when a compaction pass runs and posts pass
// requests into a mailbox for the coordinator.
package trigger

import (
	"context"
	"fmt"
	"time"

	"github.com/raoulx24/shardpack/internal/config"
	"github.com/raoulx24/shardpack/internal/fsprobe"
	"github.com/raoulx24/shardpack/internal/logging"
	"github.com/raoulx24/shardpack/internal/mailbox"
)

// Request asks for one pass.
type Request struct {
	Reason string
	At     time.Time
}

// Trigger feeds pass requests into a mailbox according to the configured
// mode. Requests posted while a pass is running collapse into one.
type Trigger struct {
	dir string
	cfg config.TriggerConfig
	log logging.Logger
	mb  *mailbox.Mailbox[Request]
}

func New(dir string, cfg config.TriggerConfig, log logging.Logger, mb *mailbox.Mailbox[Request]) *Trigger {
	return &Trigger{dir: dir, cfg: cfg, log: log, mb: mb}
}

// Start runs until ctx is done. In once mode it posts a single request and
// returns immediately.
func (t *Trigger) Start(ctx context.Context) error {
	switch t.cfg.Mode {
	case config.ModeOnce:
		t.post("startup")
		return nil

	case config.ModeCron:
		return t.StartCron(ctx)

	case config.ModePoll:
		t.post("startup")
		t.StartPolling(ctx)
		return nil

	case config.ModeWatch:
		t.post("startup")
		return t.StartFsNotify(ctx)

	case config.ModeAuto:
		t.post("startup")
		res := fsprobe.Probe(t.dir, 200*time.Millisecond)
		if res.Supported {
			return t.StartFsNotify(ctx)
		}
		t.log.Warn("fsnotify disabled: %s", res.Reason)
		t.StartPolling(ctx)
		return nil

	default:
		return fmt.Errorf("unknown mode %q", t.cfg.Mode)
	}
}

func (t *Trigger) post(reason string) {
	t.log.Debug(2, "pass requested (%s)", reason)
	t.mb.Put(Request{Reason: reason, At: time.Now()})
}
