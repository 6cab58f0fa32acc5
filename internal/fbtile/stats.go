package fbtile

import (
	"sync"
	"time"
)

// Stats describes one completed tile or detile call. A Converter hands it to
// its Observe callback.
type Stats struct {
	Op       Op
	Layout   Layout
	Walker   Walker
	Unrolled bool
	Width    int
	Height   int // rows processed, after any clamp
	Rows     int // sub-tile rows copied
	Bytes    int
	Skipped  int
	Parallel int
	Elapsed  time.Duration
}

// Throughput returns the copy rate in bytes per second.
func (s Stats) Throughput() float64 {
	if s.Elapsed <= 0 {
		return 0
	}
	return float64(s.Bytes) / s.Elapsed.Seconds()
}

// Perf accumulates Stats. Its Observe method can be used directly as a
// Converter's Observe callback and is safe for concurrent use.
type Perf struct {
	mu    sync.Mutex
	count int
	bytes int64
	total time.Duration
	min   time.Duration
	max   time.Duration
}

// PerfSnapshot is a point in time copy of a Perf.
type PerfSnapshot struct {
	Count   int
	Bytes   int64
	Total   time.Duration
	Min     time.Duration
	Max     time.Duration
	Average time.Duration
}

// Observe records one call.
func (p *Perf) Observe(s Stats) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.count == 0 || s.Elapsed < p.min {
		p.min = s.Elapsed
	}
	if s.Elapsed > p.max {
		p.max = s.Elapsed
	}
	p.count++
	p.bytes += int64(s.Bytes)
	p.total += s.Elapsed
}

// Snapshot returns the accumulated figures.
func (p *Perf) Snapshot() PerfSnapshot {
	p.mu.Lock()
	defer p.mu.Unlock()
	snap := PerfSnapshot{
		Count: p.count,
		Bytes: p.bytes,
		Total: p.total,
		Min:   p.min,
		Max:   p.max,
	}
	if p.count > 0 {
		snap.Average = p.total / time.Duration(p.count)
	}
	return snap
}

// Reset clears the accumulated figures.
func (p *Perf) Reset() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.count, p.bytes = 0, 0
	p.total, p.min, p.max = 0, 0, 0
}
