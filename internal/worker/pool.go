// Package worker runs bucket compaction jobs with bounded concurrency and
// folds their results into coordinator-owned totals.
package worker

import (
	"errors"
	"fmt"
	"time"

	"github.com/raoulx24/shardpack/internal/logging"
	"github.com/raoulx24/shardpack/internal/stats"
)

var (
	// ErrProtocol means a worker sent a result the coordinator cannot
	// account for. Totals are no longer trustworthy after it.
	ErrProtocol = errors.New("worker result protocol violation")
	// ErrDuplicate means a bucket was submitted twice to the same pool.
	ErrDuplicate = errors.New("job already submitted")
)

// Func processes one bucket by name.
type Func func(name string) (Outcome, error)

// Pool starts one goroutine per job, never more than limit at once.
//
// All methods must be called from the same goroutine (the coordinator).
// Workers share nothing with it except the results channel; everything
// else in Pool is owned by the coordinator.
type Pool struct {
	limit   int
	run     Func
	log     logging.Logger
	results chan Result

	running map[string]struct{}
	seen    map[string]struct{}

	totals    stats.Aggregate
	completed int
	failed    int
	onResult  func(Result)
}

// NewPool creates a pool. A limit <= 0 runs every job inline on the
// caller's goroutine.
func NewPool(limit int, run Func, log logging.Logger) *Pool {
	size := limit
	if size < 0 {
		size = 0
	}
	return &Pool{
		limit:   limit,
		run:     run,
		log:     log,
		results: make(chan Result, size),
		running: make(map[string]struct{}),
		seen:    make(map[string]struct{}),
	}
}

// OnResult registers a hook called on the coordinator goroutine for every
// reaped result.
func (p *Pool) OnResult(fn func(Result)) {
	p.onResult = fn
}

// Submit blocks until a slot is free, then starts job. A slot is released
// when the job's result is reaped, not when the job returns.
func (p *Pool) Submit(job Job) error {
	if _, dup := p.seen[job.Name]; dup {
		return fmt.Errorf("%w: %s", ErrDuplicate, job.Name)
	}
	p.seen[job.Name] = struct{}{}

	if p.limit <= 0 {
		p.running[job.Name] = struct{}{}
		return p.handle(p.execute(job))
	}

	for len(p.running) >= p.limit {
		if err := p.handle(<-p.results); err != nil {
			return err
		}
	}

	p.running[job.Name] = struct{}{}
	p.log.Debug(3, "starting job %s (%d/%d slots)", job.Name, len(p.running), p.limit)
	go func() {
		// buffered to limit: never blocks
		p.results <- p.execute(job)
	}()
	return nil
}

// ReapAvailable folds every result already waiting without blocking.
func (p *Pool) ReapAvailable() error {
	for {
		select {
		case res := <-p.results:
			if err := p.handle(res); err != nil {
				return err
			}
		default:
			return nil
		}
	}
}

// DrainAll blocks until every running job has been reaped.
func (p *Pool) DrainAll() error {
	for len(p.running) > 0 {
		if err := p.handle(<-p.results); err != nil {
			return err
		}
	}
	return nil
}

func (p *Pool) Outstanding() int        { return len(p.running) }
func (p *Pool) Totals() stats.Aggregate { return p.totals }
func (p *Pool) Completed() int          { return p.completed }
func (p *Pool) Failed() int             { return p.failed }

// execute runs the job and turns any panic into a failed result, so one
// bad bucket cannot take down the coordinator.
func (p *Pool) execute(job Job) (res Result) {
	res = Result{Job: job, State: StateRunning, Started: time.Now()}
	defer func() {
		if r := recover(); r != nil {
			res.State = StateFailed
			res.Outcome = Outcome{}
			res.Err = fmt.Errorf("job %s panicked: %v", job.Name, r)
		}
		res.Finished = time.Now()
	}()

	out, err := p.run(job.Name)
	if err != nil {
		res.State = StateFailed
		res.Err = err
		return res
	}
	res.State = StateCompleted
	res.Outcome = out
	return res
}

func (p *Pool) handle(res Result) error {
	name := res.Job.Name
	if _, ok := p.running[name]; !ok {
		return fmt.Errorf("%w: result for %q, which is not running", ErrProtocol, name)
	}
	delete(p.running, name)

	switch res.State {
	case StateCompleted:
		p.completed++
		p.totals.Add(res.Outcome.Stats)
	case StateFailed:
		p.failed++
	default:
		return fmt.Errorf("%w: job %q reported state %s", ErrProtocol, name, res.State)
	}

	if p.onResult != nil {
		p.onResult(res)
	}
	return nil
}
