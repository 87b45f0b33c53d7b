// Package scanner enumerates image trees and builds fingerprint indexes.
package scanner

import (
	"context"
	"fmt"
	"path/filepath"
	"sync"

	"golang.org/x/sync/errgroup"

	"imagebatch/imageprocessor"
	"imagebatch/logging"
	"imagebatch/types"
)

// HashPhaseEnd is the progress fraction reached when hashing completes.
// Clustering reports the rest of the range.
const HashPhaseEnd = 0.5

type hashResult struct {
	fp     types.Fingerprint
	ok     bool
	cached bool
	err    error
	done   bool
}

// BuildIndex fingerprints every image under root. Files that cannot be
// decoded or hashed are reported through emit and left out of the index.
// Progress runs from 0 to HashPhaseEnd, one event per file. Events are
// emitted in enumeration order whatever the number of workers.
// On cancellation the partial index is returned with ctx.Err().
func BuildIndex(ctx context.Context, root string, opts IndexOptions, emit func(types.Event)) (*Index, error) {
	if emit == nil {
		emit = func(types.Event) {}
	}
	if opts.Algorithm == "" {
		opts.Algorithm = types.DefaultHashAlgorithm
	}
	registry := opts.Registry
	if registry == nil {
		registry = imageprocessor.NewImageLoaderRegistry(opts.Fs)
	}

	tasks, err := List(opts.Fs, root)
	if err != nil {
		return nil, err
	}

	idx := &Index{
		Hashes: make(map[string]types.Fingerprint, len(tasks)),
		Total:  len(tasks),
	}
	if len(tasks) == 0 {
		return idx, nil
	}

	workers := opts.Workers
	if workers < 1 {
		workers = 1
	}
	logging.DebugLog("Hashing %d images under %s with %d workers (%s)", len(tasks), root, workers, opts.Algorithm)

	results := make([]hashResult, len(tasks))
	var (
		mu     sync.Mutex
		cursor int
	)

	// flush reports the finished prefix of results. Callers hold mu.
	flush := func() {
		for cursor < len(results) && results[cursor].done {
			path := tasks[cursor].AbsPath
			if err := results[cursor].err; err != nil {
				logging.LogImageProcessed(path, false, err.Error())
				emit(types.LogEvent(fmt.Sprintf("Error hashing %s: %v", filepath.Base(path), err)))
			} else {
				logging.LogImageProcessed(path, true, "")
			}
			cursor++
			emit(types.ProgressEvent(float64(cursor) / float64(len(tasks)) * HashPhaseEnd))
		}
	}

	var g errgroup.Group
	g.SetLimit(workers)

	for i, task := range tasks {
		if ctx.Err() != nil {
			break
		}
		i, path := i, task.AbsPath
		g.Go(func() error {
			if ctx.Err() != nil {
				return nil
			}

			res, hashErr := hashFile(registry, opts, path)
			res.err = hashErr

			mu.Lock()
			defer mu.Unlock()
			res.done = true
			results[i] = res
			flush()
			return nil
		})
	}
	g.Wait()

	for i, task := range tasks {
		if !results[i].ok {
			continue
		}
		idx.Paths = append(idx.Paths, task.AbsPath)
		idx.Hashes[task.AbsPath] = results[i].fp
		if results[i].cached {
			idx.Cached++
		}
	}

	return idx, ctx.Err()
}

// hashFile computes or reuses the fingerprint of one file
func hashFile(registry *imageprocessor.ImageLoaderRegistry, opts IndexOptions, path string) (hashResult, error) {
	if opts.Cache != nil {
		if fp, ok := lookupCached(opts.Fs, opts.Cache, path, opts.Algorithm); ok {
			return hashResult{fp: fp, ok: true, cached: true}, nil
		}
	}

	img, err := registry.LoadImage(path)
	if err != nil {
		return hashResult{}, err
	}

	fp, err := imageprocessor.ComputeFingerprint(img, opts.Algorithm)
	if err != nil {
		return hashResult{}, err
	}

	if opts.Cache != nil {
		storeCached(opts.Fs, opts.Cache, path, fp)
	}
	return hashResult{fp: fp, ok: true}, nil
}
