package trigger

import (
	"context"
	"fmt"

	"github.com/robfig/cron/v3"

	"github.com/raoulx24/shardpack/internal/logging"
)

// StartCron posts a request on every tick of the configured schedule.
func (t *Trigger) StartCron(ctx context.Context) error {
	c := cron.New(cron.WithLogger(cronLogger{t.log}))
	if _, err := c.AddFunc(t.cfg.Schedule, func() { t.post("cron") }); err != nil {
		return fmt.Errorf("schedule %q: %w", t.cfg.Schedule, err)
	}

	c.Start()
	t.log.Debug(1, "cron schedule %q active", t.cfg.Schedule)
	<-ctx.Done()
	<-c.Stop().Done()
	return nil
}

// cronLogger routes cron's internal logging through ours.
type cronLogger struct{ log logging.Logger }

func (l cronLogger) Info(msg string, kv ...interface{}) {
	l.log.Debug(4, "cron: %s %v", msg, kv)
}

func (l cronLogger) Error(err error, msg string, kv ...interface{}) {
	l.log.Error("cron: %s: %v %v", msg, err, kv)
}
