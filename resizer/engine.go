// Package resizer batch-resizes an image tree into a destination tree.
package resizer

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"

	"github.com/google/uuid"
	"github.com/spf13/afero"

	"imagebatch/imageprocessor"
	"imagebatch/logging"
	"imagebatch/scanner"
	"imagebatch/types"
)

// Engine runs resize jobs, one at a time
type Engine struct {
	fs       afero.Fs
	registry *imageprocessor.ImageLoaderRegistry
	running  atomic.Bool
}

// NewEngine creates an engine reading and writing through fs
func NewEngine(fs afero.Fs) *Engine {
	return &Engine{
		fs:       fs,
		registry: imageprocessor.NewImageLoaderRegistry(fs),
	}
}

// SetLoaderRegistry replaces the decoders used by later runs
func (e *Engine) SetLoaderRegistry(r *imageprocessor.ImageLoaderRegistry) {
	e.registry = r
}

// State reports whether a run is in progress
func (e *Engine) State() types.RunState {
	if e.running.Load() {
		return types.StateRunning
	}
	return types.StateIdle
}

// Run is one resize job started by Engine.Start
type Run struct {
	id     string
	events chan types.Event
	done   chan struct{}
	stats  types.RunStats
	err    error
}

// ID returns the run ID
func (r *Run) ID() string { return r.id }

// Events returns the event stream. It is closed when the run ends.
func (r *Run) Events() <-chan types.Event { return r.events }

// Wait drains any unread events and returns the tally once the run ends.
// The error is non-nil only when the run failed.
func (r *Run) Wait() (types.RunStats, error) {
	for range r.events {
	}
	<-r.done
	return r.stats, r.err
}

// Start validates params, prepares the destination and begins resizing
// src into dst in the background. The caller must consume Events or call Wait.
func (e *Engine) Start(ctx context.Context, src, dst string, params types.ResizeParams) (*Run, error) {
	if err := params.Validate(); err != nil {
		return nil, err
	}
	if err := scanner.CheckRoot(e.fs, src); err != nil {
		return nil, err
	}

	if !e.running.CompareAndSwap(false, true) {
		return nil, types.ErrRunInProgress
	}

	if err := e.fs.MkdirAll(dst, 0755); err != nil {
		e.running.Store(false)
		return nil, fmt.Errorf("failed to create destination %s: %w", dst, err)
	}

	r := &Run{
		id:     uuid.NewString(),
		events: make(chan types.Event, 64),
		done:   make(chan struct{}),
	}
	r.stats.RunID = r.id
	r.stats.State = types.StateRunning

	go e.run(ctx, r, src, dst, params)
	return r, nil
}

func (e *Engine) run(ctx context.Context, r *Run, src, dst string, params types.ResizeParams) {
	defer close(r.done)
	defer close(r.events)
	defer e.running.Store(false)

	emit := func(ev types.Event) { r.events <- ev }

	logging.LogInfo("Resize run %s started: %s -> %s (mode %s, format %s)", r.id, src, dst, params.Mode, params.OutputFormat)

	total, err := scanner.Count(e.fs, src)
	if err != nil {
		r.fail(err)
		return
	}
	r.stats.Total = total

	p := &pipeline{
		fs:       e.fs,
		registry: e.registry,
		src:      src,
		dst:      dst,
		params:   params,
		stats:    &r.stats,
		emit:     emit,
		dirErrs:  make(map[string]error),
	}

	err = scanner.Walk(e.fs, src, scanner.Visitor{
		Dir: func(rel string) error {
			if err := ctx.Err(); err != nil {
				return err
			}
			p.prepareDir(rel)
			return nil
		},
		Image: func(task types.ImageTask) error {
			if err := ctx.Err(); err != nil {
				return err
			}
			p.process(task)
			return nil
		},
	})

	switch {
	case err == nil:
		r.stats.State = types.StateCompleted
		logging.LogInfo("Resize run %s completed: %d succeeded, %d skipped of %d", r.id, r.stats.Succeeded, r.stats.Skipped, r.stats.Total)
	case errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded):
		r.stats.State = types.StateCancelled
		logging.LogWarning("Resize run %s stopped after %d of %d images", r.id, r.stats.Processed, r.stats.Total)
		emit(types.LogEvent(types.StoppedMessage))
	default:
		r.fail(err)
	}
}

func (r *Run) fail(err error) {
	r.stats.State = types.StateFailed
	r.err = err
	logging.LogError("Resize run %s failed: %v", r.id, err)
}
