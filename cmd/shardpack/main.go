package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"sync/atomic"
	"syscall"
	"time"

	"github.com/raoulx24/shardpack/internal/archive"
	"github.com/raoulx24/shardpack/internal/bucket"
	"github.com/raoulx24/shardpack/internal/cleanup"
	"github.com/raoulx24/shardpack/internal/config"
	"github.com/raoulx24/shardpack/internal/history"
	"github.com/raoulx24/shardpack/internal/logging"
	"github.com/raoulx24/shardpack/internal/mailbox"
	"github.com/raoulx24/shardpack/internal/stats"
	"github.com/raoulx24/shardpack/internal/trigger"
	"github.com/raoulx24/shardpack/internal/worker"
)

func main() {
	os.Exit(run(os.Args[1:], os.Stderr))
}

func run(args []string, stderr io.Writer) int {
	cfg, action, err := config.Parse(args, stderr)
	if err != nil {
		fmt.Fprintln(stderr, err)
		return 1
	}

	if action == config.ActionHelp {
		return 0
	}

	logg := logging.StdLogger{Verbosity: cfg.Logging.Verbosity}
	if action == config.ActionSelfTest {
		if bucket.SelfTest(logg) {
			fmt.Fprintln(stderr, "Self-test passed")
			return 0
		}
		fmt.Fprintln(stderr, "Self-test failed")
		return 1
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Graceful shutdown: stop submitting, let running jobs finish.
	go func() {
		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
		select {
		case <-sigCh:
			logg.Info("shutting down...")
			cancel()
		case <-ctx.Done():
		}
		signal.Stop(sigCh)
	}()

	return serve(ctx, cancel, cfg, logg)
}

// serve wires the components and runs passes until the trigger is done.
func serve(ctx context.Context, cancel context.CancelFunc, cfg *config.Config, logg logging.Logger) int {
	builder, err := archive.NewBuilder(nil, cfg.Pack.Level, cfg.Pack.BufferSize, logg)
	if err != nil {
		logg.Error("%v", err)
		return 1
	}
	runner := worker.NewRunner(cfg.Dir, nil, builder, cleanup.New(nil, logg), logg)
	sched := worker.NewScheduler(cfg.Dir, nil, cfg.Pack.Workers, runner.Run, logg)

	if cfg.History.Path != "" {
		store, err := history.Open(cfg.History.Path)
		if err != nil {
			logg.Error("%v", err)
			return 1
		}
		defer store.Close()
		logPreviousPass(store, logg)
		sched.WithHistory(store)
	}

	// Pass requests; bursts collapse into one pending pass.
	mb := mailbox.New[trigger.Request]()
	trig := trigger.New(cfg.Dir, cfg.Trigger, logg, mb)

	var triggerFailed atomic.Bool
	go func() {
		if err := trig.Start(ctx); err != nil {
			logg.Error("trigger: %v", err)
			triggerFailed.Store(true)
			cancel()
		}
	}()

	var total stats.Aggregate
	code := 0
	for {
		req, ok := mb.Take(ctx)
		if !ok {
			break
		}

		rep, err := sched.Run(ctx)
		total.Merge(rep.Totals)
		if err != nil {
			logg.Error("pass %s: %v", rep.RunID, err)
			if cfg.Trigger.Mode == config.ModeOnce || errors.Is(err, worker.ErrProtocol) {
				code = 1
				break
			}
			continue
		}
		logg.Info("pass %s (%s): %d buckets, %d ok, %d failed; %s",
			rep.RunID, req.Reason, rep.Candidates, rep.Completed, rep.Failed, rep.Totals.Summary())

		if cfg.Trigger.Mode == config.ModeOnce {
			break
		}
	}
	cancel()

	if req, ok := mb.TryTake(); ok {
		logg.Debug(1, "dropping pass request (%s) posted at %s", req.Reason, req.At.Format(time.RFC3339))
	}
	if triggerFailed.Load() {
		code = 1
	}
	logg.Info("total: %s", total.Summary())
	return code
}

// logPreviousPass reports how the last recorded pass ended. A pass with no
// finish time was interrupted; its buckets are picked up again by this run.
func logPreviousPass(store *history.Store, logg logging.Logger) {
	run, failed, ok, err := store.LastRun()
	if err != nil {
		logg.Warn("history: reading previous pass: %v", err)
		return
	}
	if !ok {
		return
	}
	if !run.Finished.Valid {
		logg.Debug(1, "previous pass %s started %s did not finish", run.ID, run.Started.Format(time.RFC3339))
		return
	}
	logg.Debug(1, "previous pass %s at %s: %d ok, %d failed", run.ID, run.Started.Format(time.RFC3339), run.Completed, run.Failed)
	if len(failed) > 0 {
		logg.Debug(1, "previous pass failed buckets: %s", strings.Join(failed, ", "))
	}
}
