package reindex

import (
	"fmt"
	"io"
	"sync"
	"time"
)

// progress prints a running count of indexed and failed problems.
// Workers call batchDone concurrently.
type progress struct {
	mu      sync.Mutex
	out     io.Writer
	total   int
	every   int
	indexed int
	failed  int
	batches int
	printed int
	started time.Time
	now     func() time.Time
}

// newProgress returns a reporter that prints whenever at least every
// problems have been handled since the previous line.
func newProgress(out io.Writer, total, every int) *progress {
	if out == nil {
		out = io.Discard
	}
	if every <= 0 {
		every = 1
	}
	p := &progress{out: out, total: total, every: every, now: time.Now}
	p.started = p.now()
	return p
}

// batchDone records the outcome of one pushed batch.
func (p *progress) batchDone(indexed, failed int) {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.indexed += indexed
	p.failed += failed
	p.batches++
	if p.handled()-p.printed >= p.every {
		p.line()
		p.printed = p.handled()
	}
}

// finish prints the last line and ends it.
func (p *progress) finish() {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.line()
	fmt.Fprintln(p.out)
}

func (p *progress) handled() int {
	return min(p.indexed+p.failed, p.total)
}

// eta estimates the time left from the rate so far. Zero means unknown.
func (p *progress) eta(elapsed time.Duration) time.Duration {
	done := p.handled()
	if done == 0 || done >= p.total {
		return 0
	}
	perProblem := elapsed / time.Duration(done)
	return perProblem * time.Duration(p.total-done)
}

// line must be called with mu held.
func (p *progress) line() {
	elapsed := p.now().Sub(p.started)
	done := p.handled()

	pct := 100.0
	if p.total > 0 {
		pct = float64(done) / float64(p.total) * 100
	}
	fmt.Fprintf(p.out, "\rIndexed %d/%d problems (%.1f%%) in %d batches, %d failed",
		p.indexed, p.total, pct, p.batches, p.failed)
	if eta := p.eta(elapsed); eta > 0 {
		fmt.Fprintf(p.out, ", about %v left", eta.Round(time.Second))
	}
}
