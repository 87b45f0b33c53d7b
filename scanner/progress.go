package scanner

import (
	"fmt"
	"time"

	"imagebatch/types"
)

// NewProgressTracker consumes events until the channel is closed and
// prints a progress line periodically
func NewProgressTracker(label string, events <-chan types.Event) *ProgressTracker {
	tracker := &ProgressTracker{
		label:    label,
		ticker:   time.NewTicker(500 * time.Millisecond),
		done:     make(chan struct{}),
		finished: make(chan struct{}),
	}

	// Start progress display goroutine
	go tracker.displayProgress()

	// Start event processor goroutine
	go tracker.processEvents(events)

	return tracker
}

// displayProgress shows the progress periodically
func (p *ProgressTracker) displayProgress() {
	for {
		select {
		case <-p.done:
			return
		case <-p.ticker.C:
			p.printLine()
		}
	}
}

func (p *ProgressTracker) printLine() {
	p.mu.Lock()
	defer p.mu.Unlock()

	if len(p.skips) > 0 {
		fmt.Printf("\r%s: %5.1f%% (Skipped: %d)", p.label, p.fraction*100, len(p.skips))
	} else {
		fmt.Printf("\r%s: %5.1f%%", p.label, p.fraction*100)
	}
}

// processEvents updates the tracker state from the run's events
func (p *ProgressTracker) processEvents(events <-chan types.Event) {
	defer close(p.finished)

	for ev := range events {
		p.mu.Lock()
		switch ev.Kind {
		case types.EventProgress:
			p.fraction = ev.Fraction
		case types.EventSkip:
			p.skips = append(p.skips, ev)
		case types.EventLog:
			p.messages = append(p.messages, ev.Message)
		}
		p.mu.Unlock()
	}
}

// Wait blocks until the event stream is closed, stops the display and
// prints the final progress line
func (p *ProgressTracker) Wait() {
	<-p.finished
	p.ticker.Stop()
	close(p.done)
	p.printLine()
	fmt.Println()
}

// Fraction returns the last reported progress
func (p *ProgressTracker) Fraction() float64 {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.fraction
}

// Skipped returns the number of skip events seen
func (p *ProgressTracker) Skipped() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.skips)
}

// Skips returns one "file: reason" line per skip event, in arrival order
func (p *ProgressTracker) Skips() []string {
	p.mu.Lock()
	defer p.mu.Unlock()

	lines := make([]string, len(p.skips))
	for i, ev := range p.skips {
		lines[i] = ev.File + ": " + ev.Reason
	}
	return lines
}

// Messages returns the log lines seen so far
func (p *ProgressTracker) Messages() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]string(nil), p.messages...)
}
