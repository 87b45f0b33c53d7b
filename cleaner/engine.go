// Package cleaner finds groups of near-duplicate images by perceptual hash.
package cleaner

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"

	"github.com/google/uuid"
	"github.com/spf13/afero"

	"imagebatch/database"
	"imagebatch/imageprocessor"
	"imagebatch/logging"
	"imagebatch/scanner"
	"imagebatch/types"
)

// Options configures one duplicate scan
type Options struct {
	Threshold int
	Strategy  Strategy
	Algorithm types.HashAlgorithm
	Workers   int
	Cache     *database.FingerprintCache
	// Registry is optional; nil decodes with the default loaders
	Registry *imageprocessor.ImageLoaderRegistry
}

// DefaultOptions returns the options of a plain scan
func DefaultOptions() Options {
	return Options{
		Threshold: types.DefaultThreshold,
		Strategy:  StrategyAnchor,
		Algorithm: types.DefaultHashAlgorithm,
		Workers:   1,
	}
}

// ScanResult is the outcome of a duplicate scan
type ScanResult struct {
	RunID  string
	Groups []types.DuplicateGroup
	Total  int
	Hashed int
	Failed int
	Cached int
	State  types.RunState
	// Err is set when State is StateFailed
	Err error
}

// Engine runs duplicate scans, one at a time
type Engine struct {
	fs      afero.Fs
	running atomic.Bool
}

// NewEngine creates an engine reading images from fs
func NewEngine(fs afero.Fs) *Engine {
	return &Engine{fs: fs}
}

// State reports whether a scan is in progress
func (e *Engine) State() types.RunState {
	if e.running.Load() {
		return types.StateRunning
	}
	return types.StateIdle
}

// Scan is one running duplicate scan
type Scan struct {
	id     string
	events chan types.Event
	done   chan struct{}
	result ScanResult
}

// ID returns the run ID of the scan
func (s *Scan) ID() string { return s.id }

// Events returns the event stream. It is closed when the scan ends.
func (s *Scan) Events() <-chan types.Event { return s.events }

// Wait drains any unread events and returns the result once the scan ends
func (s *Scan) Wait() ScanResult {
	for range s.events {
	}
	<-s.done
	return s.result
}

// Start validates the options and begins scanning root in the background.
// The caller must consume Events or call Wait.
func (e *Engine) Start(ctx context.Context, root string, opts Options) (*Scan, error) {
	if opts.Threshold < 0 || opts.Threshold > MaxThreshold {
		return nil, &types.ValidationError{Field: "threshold", Message: fmt.Sprintf("threshold must be between 0 and %d, got %d", MaxThreshold, opts.Threshold)}
	}
	strategy, err := ParseStrategy(string(opts.Strategy))
	if err != nil {
		return nil, err
	}
	algo, err := types.ParseHashAlgorithm(string(opts.Algorithm))
	if err != nil {
		return nil, err
	}
	if err := scanner.CheckRoot(e.fs, root); err != nil {
		return nil, err
	}

	if !e.running.CompareAndSwap(false, true) {
		return nil, types.ErrRunInProgress
	}

	s := &Scan{
		id:     uuid.NewString(),
		events: make(chan types.Event, 64),
		done:   make(chan struct{}),
	}
	s.result.RunID = s.id

	indexOpts := scanner.IndexOptions{
		Fs:        e.fs,
		Algorithm: algo,
		Workers:   opts.Workers,
		Cache:     opts.Cache,
		Registry:  opts.Registry,
	}

	go e.run(ctx, s, root, indexOpts, opts.Threshold, strategy)
	return s, nil
}

func (e *Engine) run(ctx context.Context, s *Scan, root string, indexOpts scanner.IndexOptions, threshold int, strategy Strategy) {
	defer close(s.done)
	defer close(s.events)
	defer e.running.Store(false)

	emit := func(ev types.Event) { s.events <- ev }

	logging.LogInfo("Duplicate scan %s started on %s (algorithm %s, threshold %d, strategy %s)",
		s.id, root, indexOpts.Algorithm, threshold, strategy)

	idx, err := scanner.BuildIndex(ctx, root, indexOpts, emit)
	if idx != nil {
		s.result.Total = idx.Total
		s.result.Hashed = idx.Len()
		s.result.Failed = idx.Failed()
		s.result.Cached = idx.Cached
	}
	if err != nil {
		e.finish(s, emit, err)
		return
	}

	groups, err := Cluster(ctx, idx, threshold, strategy, emit)
	s.result.Groups = groups
	if err != nil {
		e.finish(s, emit, err)
		return
	}

	s.result.State = types.StateCompleted
	logging.LogInfo("Duplicate scan %s completed: %d groups among %d hashed images (%d failed)",
		s.id, len(groups), s.result.Hashed, s.result.Failed)
}

func (e *Engine) finish(s *Scan, emit func(types.Event), err error) {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		s.result.State = types.StateCancelled
		logging.LogWarning("Duplicate scan %s stopped after hashing %d of %d images", s.id, s.result.Hashed, s.result.Total)
		emit(types.LogEvent(types.StoppedMessage))
		return
	}

	s.result.State = types.StateFailed
	s.result.Err = err
	logging.LogError("Duplicate scan %s failed: %v", s.id, err)
}
