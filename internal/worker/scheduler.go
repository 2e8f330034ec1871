package worker

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/raoulx24/shardpack/internal/bucket"
	"github.com/raoulx24/shardpack/internal/fs"
	"github.com/raoulx24/shardpack/internal/logging"
	"github.com/raoulx24/shardpack/internal/stats"
)

// Report summarises one pass over the working directory.
type Report struct {
	RunID      string
	Started    time.Time
	Finished   time.Time
	Candidates int
	Completed  int
	Failed     int
	Totals     stats.Aggregate
}

// Recorder persists passes and job outcomes. Errors from it are logged and
// never fail a pass.
type Recorder interface {
	BeginRun(runID string, started time.Time) error
	RecordJob(runID string, res Result) error
	FinishRun(rep Report) error
}

// Scheduler runs passes: list the numeric buckets under root once, push
// each through a fresh Pool, drain it.
type Scheduler struct {
	root    string
	fs      fs.FS
	limit   int
	run     Func
	log     logging.Logger
	history Recorder
}

func NewScheduler(root string, filesystem fs.FS, limit int, run Func, log logging.Logger) *Scheduler {
	if filesystem == nil {
		filesystem = fs.New()
	}
	return &Scheduler{
		root:  root,
		fs:    filesystem,
		limit: limit,
		run:   run,
		log:   log,
	}
}

// WithHistory attaches a recorder for pass history.
func (s *Scheduler) WithHistory(r Recorder) *Scheduler {
	s.history = r
	return s
}

// Run performs one pass. Only a listing failure or a protocol violation is
// returned as an error; failed jobs are counted in the report.
//
// Cancelling ctx stops new submissions. Jobs already started run to
// completion and are drained before Run returns.
func (s *Scheduler) Run(ctx context.Context) (Report, error) {
	rep := Report{RunID: uuid.NewString(), Started: time.Now()}

	names, err := bucket.List(s.fs, s.root, s.log)
	if err != nil {
		return rep, err
	}
	rep.Candidates = len(names)
	s.log.Debug(1, "pass %s: %d buckets in %s", rep.RunID, len(names), s.root)

	if s.history != nil {
		if err := s.history.BeginRun(rep.RunID, rep.Started); err != nil {
			s.log.Warn("history: recording start of %s: %v", rep.RunID, err)
		}
	}

	pool := NewPool(s.limit, s.run, s.log)
	pool.OnResult(func(res Result) {
		s.logResult(res)
		if s.history != nil {
			if err := s.history.RecordJob(rep.RunID, res); err != nil {
				s.log.Warn("history: recording job %s: %v", res.Job.Name, err)
			}
		}
	})

	err = s.submitAll(ctx, pool, names)
	if err == nil {
		err = pool.DrainAll()
	}

	rep.Finished = time.Now()
	rep.Completed = pool.Completed()
	rep.Failed = pool.Failed()
	rep.Totals = pool.Totals()
	if err != nil {
		return rep, err
	}

	if s.history != nil {
		if err := s.history.FinishRun(rep); err != nil {
			s.log.Warn("history: recording end of %s: %v", rep.RunID, err)
		}
	}
	return rep, nil
}

func (s *Scheduler) submitAll(ctx context.Context, pool *Pool, names []string) error {
	for i, name := range names {
		if ctx.Err() != nil {
			s.log.Warn("interrupted, %d buckets not started", len(names)-i)
			return nil
		}
		if err := pool.Submit(Job{Name: name}); err != nil {
			if errors.Is(err, ErrDuplicate) {
				s.log.Warn("%v", err)
				continue
			}
			return err
		}
		if err := pool.ReapAvailable(); err != nil {
			return err
		}
	}
	return nil
}

func (s *Scheduler) logResult(res Result) {
	name := res.Job.Name
	switch {
	case res.State == StateFailed && errors.Is(res.Err, ErrSourceGone):
		s.log.Warn("skipping %s: %v", name, res.Err)
	case res.State == StateFailed:
		s.log.Error("bucket %s failed: %v", name, res.Err)
	case res.Outcome.Built:
		b := res.Outcome.Stats
		s.log.Debug(1, "packed %s: %d files, %s -> %s in %s",
			name, b.FileCount, stats.FormatBytes(b.RawBytes), stats.FormatBytes(b.PackedBytes),
			res.Duration().Round(time.Millisecond))
	default:
		s.log.Debug(1, "container for %s already published, cleaned up", name)
	}

	if c := res.Outcome.Cleanup; res.State == StateCompleted && (c.Failed > 0 || !c.DirRemoved) {
		s.log.Warn("bucket %s only partially cleaned: %d files left", name, c.Failed)
	}
}
