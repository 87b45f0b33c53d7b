package scanner

import (
	"sync"
	"time"

	"github.com/spf13/afero"

	"imagebatch/database"
	"imagebatch/imageprocessor"
	"imagebatch/types"
)

// IndexOptions defines the options for building a hash index
type IndexOptions struct {
	Fs        afero.Fs
	Algorithm types.HashAlgorithm
	// Workers bounds concurrent decoding; values below 1 mean one worker
	Workers int
	// Cache is optional; nil disables fingerprint reuse
	Cache *database.FingerprintCache
	// Registry is optional; nil uses a registry reading from Fs
	Registry *imageprocessor.ImageLoaderRegistry
}

// Index is the result of hashing a tree. Paths keeps enumeration order
// and contains only files that were hashed successfully.
type Index struct {
	Paths  []string
	Hashes map[string]types.Fingerprint
	// Total is the number of images enumerated, failures included
	Total int
	// Cached counts fingerprints reused from the cache
	Cached int
}

// Len returns the number of hashed files
func (idx *Index) Len() int {
	return len(idx.Paths)
}

// Failed returns the number of enumerated files that could not be hashed
func (idx *Index) Failed() int {
	return idx.Total - len(idx.Paths)
}

// ProgressTracker displays the progress of a run fed by its event stream
type ProgressTracker struct {
	label    string
	fraction float64
	skips    []types.Event
	messages []string
	ticker   *time.Ticker
	done     chan struct{}
	finished chan struct{}
	mu       sync.Mutex
}
