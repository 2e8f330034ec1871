package worker

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"testing"
	"time"

	"github.com/raoulx24/shardpack/internal/archive"
	"github.com/raoulx24/shardpack/internal/cleanup"
	"github.com/raoulx24/shardpack/internal/fs"
	"github.com/raoulx24/shardpack/internal/logging"
	"github.com/raoulx24/shardpack/internal/stats"
)

func mkBucket(t *testing.T, root, name string, sizes ...int) {
	t.Helper()
	dir := filepath.Join(root, name)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		t.Fatal(err)
	}
	for i, size := range sizes {
		data := bytes.Repeat([]byte{byte('a' + i)}, size)
		if err := os.WriteFile(filepath.Join(dir, fmt.Sprintf("f%d.log", i)), data, 0o644); err != nil {
			t.Fatal(err)
		}
	}
}

func newRunner(t *testing.T, root string) *Runner {
	t.Helper()
	b, err := archive.NewBuilder(nil, archive.DefaultLevel, archive.DefaultBufferSize, logging.Discard{})
	if err != nil {
		t.Fatal(err)
	}
	return NewRunner(root, nil, b, cleanup.New(nil, logging.Discard{}), logging.Discard{})
}

func newScheduler(t *testing.T, root string, limit int) *Scheduler {
	t.Helper()
	return NewScheduler(root, nil, limit, newRunner(t, root).Run, logging.Discard{})
}

func listRoot(t *testing.T, root string) []string {
	t.Helper()
	entries, err := os.ReadDir(root)
	if err != nil {
		t.Fatal(err)
	}
	var names []string
	for _, e := range entries {
		names = append(names, e.Name())
	}
	sort.Strings(names)
	return names
}

func exists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

func TestScheduler_Scenarios(t *testing.T) {
	root := t.TempDir()
	mkBucket(t, root, "7", 100, 200)
	mkBucket(t, root, "8", 10)
	mkBucket(t, root, "abc", 50)
	mkBucket(t, root, "12", 30)
	if err := os.Mkdir(filepath.Join(root, "12", "nested"), 0o755); err != nil {
		t.Fatal(err)
	}

	rep, err := newScheduler(t, root, 4).Run(context.Background())
	if err != nil {
		t.Fatalf("Run: %v", err)
	}

	// 7: packed and removed.
	if !exists(filepath.Join(root, "7.tar.xz")) || exists(filepath.Join(root, "7")) {
		t.Fatalf("bucket 7 not compacted: %v", listRoot(t, root))
	}
	// abc: never a job.
	if !exists(filepath.Join(root, "abc", "f0.log")) || exists(filepath.Join(root, "abc.tar.xz")) {
		t.Fatal("non-numeric bucket touched")
	}
	// 12: failed, nothing built, nothing deleted.
	if exists(filepath.Join(root, "12.tar.xz")) || exists(filepath.Join(root, "tmp12.tar.xz")) {
		t.Fatal("container created for failing bucket 12")
	}
	if !exists(filepath.Join(root, "12", "f0.log")) {
		t.Fatal("sources of failing bucket 12 deleted")
	}
	// 8: sibling unaffected.
	if !exists(filepath.Join(root, "8.tar.xz")) || exists(filepath.Join(root, "8")) {
		t.Fatal("sibling bucket 8 not compacted")
	}

	if rep.Candidates != 3 || rep.Completed != 2 || rep.Failed != 1 {
		t.Fatalf("report = %+v", rep)
	}
	if rep.Totals.FileCount != 3 || rep.Totals.RawBytes != 310 || rep.Totals.ArchiveCount != 2 {
		t.Fatalf("totals = %+v", rep.Totals)
	}
	var packed uint64
	for _, n := range []string{"7.tar.xz", "8.tar.xz"} {
		st, _ := os.Stat(filepath.Join(root, n))
		packed += uint64(st.Size())
	}
	if rep.Totals.PackedBytes != packed {
		t.Fatalf("PackedBytes = %d, containers on disk = %d", rep.Totals.PackedBytes, packed)
	}
	if rep.RunID == "" || rep.Finished.Before(rep.Started) {
		t.Fatalf("bad report metadata: %+v", rep)
	}
}

func TestScheduler_Idempotent(t *testing.T) {
	root := t.TempDir()
	mkBucket(t, root, "1", 5, 6)
	mkBucket(t, root, "2", 7)
	mkBucket(t, root, "3")

	s := newScheduler(t, root, 2)
	if _, err := s.Run(context.Background()); err != nil {
		t.Fatal(err)
	}
	first := listRoot(t, root)
	mtimes := map[string]time.Time{}
	for _, n := range first {
		st, _ := os.Stat(filepath.Join(root, n))
		mtimes[n] = st.ModTime()
	}

	rep, err := s.Run(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if rep.Candidates != 0 || rep.Totals != (stats.Aggregate{}) {
		t.Fatalf("second run did work: %+v", rep)
	}
	second := listRoot(t, root)
	if fmt.Sprint(first) != fmt.Sprint(second) {
		t.Fatalf("tree changed: %v -> %v", first, second)
	}
	for _, n := range second {
		st, _ := os.Stat(filepath.Join(root, n))
		if !st.ModTime().Equal(mtimes[n]) {
			t.Errorf("%s rewritten by second run", n)
		}
	}
}

func TestScheduler_ResumesCleanupAfterPublish(t *testing.T) {
	root := t.TempDir()
	mkBucket(t, root, "9", 40)
	// A previous run published the container but died before cleanup.
	if err := os.WriteFile(filepath.Join(root, "9.tar.xz"), []byte("published"), 0o644); err != nil {
		t.Fatal(err)
	}

	rep, err := newScheduler(t, root, 1).Run(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if rep.Completed != 1 || rep.Totals.ArchiveCount != 0 || rep.Totals.FileCount != 0 {
		t.Fatalf("report = %+v", rep)
	}
	if exists(filepath.Join(root, "9")) {
		t.Fatal("bucket not cleaned up")
	}
	data, _ := os.ReadFile(filepath.Join(root, "9.tar.xz"))
	if string(data) != "published" {
		t.Fatal("existing container rebuilt")
	}
}

func TestScheduler_TotalsMatchPerJobSums(t *testing.T) {
	for _, limit := range []int{0, 1, 3, 99} {
		t.Run(fmt.Sprintf("limit=%d", limit), func(t *testing.T) {
			root := t.TempDir()
			var wantFiles, wantRaw uint64
			for i := 0; i < 8; i++ {
				sizes := make([]int, i%4)
				for j := range sizes {
					sizes[j] = (i + 1) * (j + 1) * 37
					wantRaw += uint64(sizes[j])
				}
				wantFiles += uint64(len(sizes))
				mkBucket(t, root, fmt.Sprint(100+i), sizes...)
			}

			var perJob stats.Aggregate
			s := newScheduler(t, root, limit)
			inner := s.run
			// Sum each job's own report independently of the pool.
			results := make(chan stats.Batch, 8)
			s.run = func(name string) (Outcome, error) {
				out, err := inner(name)
				if err == nil {
					results <- out.Stats
				}
				return out, err
			}

			rep, err := s.Run(context.Background())
			if err != nil {
				t.Fatal(err)
			}
			close(results)
			for b := range results {
				perJob.Add(b)
			}
			if rep.Totals != perJob {
				t.Fatalf("totals %+v != per-job sum %+v", rep.Totals, perJob)
			}
			if rep.Totals.FileCount != wantFiles || rep.Totals.RawBytes != wantRaw || rep.Totals.ArchiveCount != 8 {
				t.Fatalf("totals = %+v, want files=%d raw=%d", rep.Totals, wantFiles, wantRaw)
			}
		})
	}
}

func TestScheduler_ListingFailure(t *testing.T) {
	_, err := newScheduler(t, filepath.Join(t.TempDir(), "missing"), 4).Run(context.Background())
	if err == nil {
		t.Fatal("expected listing error")
	}
}

func TestScheduler_CancelledBeforeStart(t *testing.T) {
	root := t.TempDir()
	mkBucket(t, root, "1", 10)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	rep, err := newScheduler(t, root, 2).Run(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if rep.Completed+rep.Failed != 0 || !exists(filepath.Join(root, "1")) {
		t.Fatalf("job ran after cancel: %+v", rep)
	}
}

type fakeRecorder struct {
	begun    []string
	jobs     map[string]State
	finished []Report
}

func (f *fakeRecorder) BeginRun(id string, _ time.Time) error {
	f.begun = append(f.begun, id)
	return nil
}

func (f *fakeRecorder) RecordJob(_ string, res Result) error {
	if f.jobs == nil {
		f.jobs = map[string]State{}
	}
	f.jobs[res.Job.Name] = res.State
	return errors.New("ledger full")
}

func (f *fakeRecorder) FinishRun(rep Report) error {
	f.finished = append(f.finished, rep)
	return nil
}

func TestScheduler_RecordsHistory(t *testing.T) {
	root := t.TempDir()
	mkBucket(t, root, "1", 10)
	mkBucket(t, root, "2", 10)
	if err := os.Mkdir(filepath.Join(root, "2", "x"), 0o755); err != nil {
		t.Fatal(err)
	}

	rec := &fakeRecorder{}
	rep, err := newScheduler(t, root, 2).WithHistory(rec).Run(context.Background())
	if err != nil {
		t.Fatalf("recorder errors must not fail the pass: %v", err)
	}
	if len(rec.begun) != 1 || rec.begun[0] != rep.RunID {
		t.Fatalf("begun = %v", rec.begun)
	}
	if rec.jobs["1"] != StateCompleted || rec.jobs["2"] != StateFailed {
		t.Fatalf("jobs = %v", rec.jobs)
	}
	if len(rec.finished) != 1 || rec.finished[0].Completed != 1 {
		t.Fatalf("finished = %+v", rec.finished)
	}
}

func TestRunner_Errors(t *testing.T) {
	root := t.TempDir()
	if err := os.WriteFile(filepath.Join(root, "99"), []byte("not a dir"), 0o644); err != nil {
		t.Fatal(err)
	}
	r := newRunner(t, root)

	if _, err := r.Run("404"); !errors.Is(err, ErrSourceGone) {
		t.Errorf("missing bucket err = %v, want ErrSourceGone", err)
	}
	if _, err := r.Run("99"); !errors.Is(err, ErrNotDir) {
		t.Errorf("file bucket err = %v, want ErrNotDir", err)
	}
}

type refuseDirRemoveFS struct{ *fs.OSFS }

func (r refuseDirRemoveFS) Remove(path string) error {
	if filepath.Base(path) == "5" {
		return errors.New("directory busy")
	}
	return r.OSFS.Remove(path)
}

func TestRunner_CleanupWarningKeepsJobSuccessful(t *testing.T) {
	root := t.TempDir()
	mkBucket(t, root, "5", 20)
	f := refuseDirRemoveFS{fs.New()}
	b, err := archive.NewBuilder(f, archive.DefaultLevel, archive.DefaultBufferSize, logging.Discard{})
	if err != nil {
		t.Fatal(err)
	}
	r := NewRunner(root, f, b, cleanup.New(f, logging.Discard{}), logging.Discard{})

	out, err := r.Run("5")
	if err != nil {
		t.Fatalf("cleanup failure escalated: %v", err)
	}
	if !out.Built || out.Stats.FileCount != 1 || out.Cleanup.DirRemoved || out.Cleanup.Removed != 1 {
		t.Fatalf("outcome = %+v", out)
	}
	if !exists(filepath.Join(root, "5.tar.xz")) {
		t.Fatal("container missing")
	}
}
