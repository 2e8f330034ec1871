// Package stats holds the per-job counters and the coordinator-owned totals.
package stats

import "fmt"

// Batch is what one completed job reports. It travels inside a single
// channel message, so it is never observed half-written.
type Batch struct {
	RawBytes     uint64 // sum of input file sizes
	FileCount    uint64
	ArchiveCount uint64 // 1 when this job built a container, 0 on skip
	PackedBytes  uint64 // size of the produced container
}

// Aggregate is the running sum of every Batch folded in during a pass.
// Only the coordinator goroutine touches it.
type Aggregate struct {
	RawBytes     uint64
	FileCount    uint64
	ArchiveCount uint64
	PackedBytes  uint64
}

// Add folds b into a. Order of calls does not matter.
func (a *Aggregate) Add(b Batch) {
	a.RawBytes += b.RawBytes
	a.FileCount += b.FileCount
	a.ArchiveCount += b.ArchiveCount
	a.PackedBytes += b.PackedBytes
}

// Merge folds another aggregate into a, used to keep process-wide totals
// across passes.
func (a *Aggregate) Merge(o Aggregate) {
	a.Add(Batch(o))
}

// Ratio returns packed/raw, or 0 when nothing was packed.
func (a Aggregate) Ratio() float64 {
	if a.RawBytes == 0 {
		return 0
	}
	return float64(a.PackedBytes) / float64(a.RawBytes)
}

// Summary renders the totals on one line for the end-of-run report.
func (a Aggregate) Summary() string {
	return fmt.Sprintf("%d files (%s) packed into %d containers (%s), ratio %.1f%%",
		a.FileCount, FormatBytes(a.RawBytes),
		a.ArchiveCount, FormatBytes(a.PackedBytes),
		a.Ratio()*100)
}

// FormatBytes returns a human-readable size (B, KiB, MiB, GiB, TiB, PiB, EiB).
func FormatBytes(bytes uint64) string {
	const unit = 1024
	if bytes < unit {
		return fmt.Sprintf("%d B", bytes)
	}
	div, exp := uint64(unit), 0
	for n := bytes / unit; n >= unit; n /= unit {
		div *= unit
		exp++
	}
	suffixes := []string{"KiB", "MiB", "GiB", "TiB", "PiB", "EiB"}
	return fmt.Sprintf("%.1f %s", float64(bytes)/float64(div), suffixes[exp])
}
