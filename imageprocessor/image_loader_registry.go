package imageprocessor

import (
	"fmt"
	"image"
	"path/filepath"
	"strings"
	"sync"

	"github.com/spf13/afero"

	"imagebatch/logging"
)

// ImageLoaderRegistry maintains a registry of image loaders keyed by extension
type ImageLoaderRegistry struct {
	fs             afero.Fs
	loaders        map[string]ImageLoader
	fallbackLoader ImageLoader
	mutex          sync.RWMutex
}

// NewImageLoaderRegistry creates a registry reading files from fs
func NewImageLoaderRegistry(fs afero.Fs) *ImageLoaderRegistry {
	registry := &ImageLoaderRegistry{
		fs:      fs,
		loaders: make(map[string]ImageLoader),
	}

	standardLoader := NewStandardImageLoader()
	for ext := range formatExtensions {
		registry.RegisterLoader(ext, standardLoader)
	}

	registry.fallbackLoader = NewOpenCVImageLoader()
	return registry
}

// RegisterLoader registers a new loader for a specific file extension
func (r *ImageLoaderRegistry) RegisterLoader(ext string, loader ImageLoader) {
	r.mutex.Lock()
	defer r.mutex.Unlock()

	r.loaders[strings.ToLower(ext)] = loader
}

// SetFallbackLoader replaces the loader tried when the registered one fails.
// A nil loader disables the fallback.
func (r *ImageLoaderRegistry) SetFallbackLoader(loader ImageLoader) {
	r.mutex.Lock()
	defer r.mutex.Unlock()

	r.fallbackLoader = loader
}

// GetLoader returns the loader registered for the path's extension, or nil
func (r *ImageLoaderRegistry) GetLoader(path string) ImageLoader {
	r.mutex.RLock()
	defer r.mutex.RUnlock()

	return r.loaders[strings.ToLower(filepath.Ext(path))]
}

// CanLoadFile checks if any registered loader can handle the given file
func (r *ImageLoaderRegistry) CanLoadFile(path string) bool {
	loader := r.GetLoader(path)
	return loader != nil && loader.CanLoad(path)
}

// LoadImage reads and decodes path. When the registered loader fails the
// fallback loader gets a try; if both fail the first error is returned.
func (r *ImageLoaderRegistry) LoadImage(path string) (image.Image, error) {
	loader := r.GetLoader(path)
	if loader == nil {
		return nil, fmt.Errorf("no suitable loader found for: %s", path)
	}

	data, err := afero.ReadFile(r.fs, path)
	if err != nil {
		return nil, err
	}

	img, err := loader.LoadImage(data)
	if err == nil {
		return img, nil
	}

	r.mutex.RLock()
	fallback := r.fallbackLoader
	r.mutex.RUnlock()

	if fallback == nil || fallback == loader || !fallback.CanLoad(path) {
		return nil, err
	}

	logging.LogWarning("Standard decoder failed for %s: %v, falling back to OpenCV", path, err)
	fbImg, fbErr := fallback.LoadImage(data)
	if fbErr != nil {
		logging.DebugLog("Fallback decoder failed for %s: %v", path, fbErr)
		return nil, err
	}
	return fbImg, nil
}
