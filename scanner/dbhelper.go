package scanner

import (
	"imagebatch/database"
	"imagebatch/logging"
	"imagebatch/types"

	"github.com/spf13/afero"
)

// lookupCached returns a cached fingerprint when the file is unchanged since it was stored
func lookupCached(fs afero.Fs, cache *database.FingerprintCache, path string, algo types.HashAlgorithm) (types.Fingerprint, bool) {
	info, err := fs.Stat(path)
	if err != nil {
		return types.Fingerprint{}, false
	}

	fp, ok, err := cache.Lookup(path, algo, info.Size(), info.ModTime())
	if err != nil {
		logging.LogWarning("Cache lookup failed for %s: %v", path, err)
		return types.Fingerprint{}, false
	}
	if ok {
		logging.DebugLog("Reusing cached fingerprint for unchanged image: %s", path)
	}
	return fp, ok
}

// storeCached records a freshly computed fingerprint. Failures only cost a recompute next time.
func storeCached(fs afero.Fs, cache *database.FingerprintCache, path string, fp types.Fingerprint) {
	info, err := fs.Stat(path)
	if err != nil {
		return
	}

	err = cache.Store(database.CacheEntry{
		Path:        path,
		Size:        info.Size(),
		ModifiedAt:  info.ModTime(),
		Fingerprint: fp,
	})
	if err != nil {
		logging.LogWarning("Cache store failed for %s: %v", path, err)
	}
}
