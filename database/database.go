package database

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	"imagebatch/types"

	_ "github.com/mattn/go-sqlite3"
)

// FingerprintCache stores fingerprints keyed by path and algorithm so that
// unchanged files are not decoded again on the next scan
type FingerprintCache struct {
	db *sql.DB
}

// CacheEntry is one cached fingerprint with the file state it was computed from
type CacheEntry struct {
	Path        string
	Size        int64
	ModifiedAt  time.Time
	Fingerprint types.Fingerprint
}

// InitDatabase opens or creates the cache at dbPath
func InitDatabase(dbPath string) (*FingerprintCache, error) {
	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return nil, err
	}

	// sqlite serialises writers anyway; one connection avoids SQLITE_BUSY from the hashing workers
	db.SetMaxOpenConns(1)

	createTableSQL := `
	CREATE TABLE IF NOT EXISTS fingerprints (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		path TEXT NOT NULL,
		algorithm TEXT NOT NULL,
		size INTEGER,
		modified_at TEXT,
		hash TEXT NOT NULL,
		updated_at TEXT,
		UNIQUE(path, algorithm)
	);
	CREATE INDEX IF NOT EXISTS idx_fingerprints_path ON fingerprints(path);`

	if _, err = db.Exec(createTableSQL); err != nil {
		db.Close()
		return nil, err
	}

	return &FingerprintCache{db: db}, nil
}

// Close closes the underlying database
func (c *FingerprintCache) Close() error {
	return c.db.Close()
}

// Lookup returns the cached fingerprint for path when the file still has the
// size and modification time it had when the fingerprint was stored
func (c *FingerprintCache) Lookup(path string, algo types.HashAlgorithm, size int64, modTime time.Time) (types.Fingerprint, bool, error) {
	var storedSize int64
	var storedModTime, hash string

	err := c.db.QueryRow(
		"SELECT size, modified_at, hash FROM fingerprints WHERE path = ? AND algorithm = ?",
		path, string(algo),
	).Scan(&storedSize, &storedModTime, &hash)
	if errors.Is(err, sql.ErrNoRows) {
		return types.Fingerprint{}, false, nil
	}
	if err != nil {
		return types.Fingerprint{}, false, fmt.Errorf("database error for %s: %w", path, err)
	}

	storedTime, err := time.Parse(time.RFC3339Nano, storedModTime)
	if err != nil {
		return types.Fingerprint{}, false, fmt.Errorf("cannot parse stored time for %s: %w", path, err)
	}

	if storedSize != size || !storedTime.Equal(modTime) {
		return types.Fingerprint{}, false, nil
	}

	fp, err := types.ParseFingerprint(algo, hash)
	if err != nil {
		return types.Fingerprint{}, false, err
	}
	return fp, true, nil
}

// Store inserts or replaces the fingerprint of one file
func (c *FingerprintCache) Store(entry CacheEntry) error {
	stmt, err := c.db.Prepare(`
		INSERT OR REPLACE INTO fingerprints (
			path, algorithm, size, modified_at, hash, updated_at
		) VALUES (?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		return fmt.Errorf("cannot prepare statement for %s: %w", entry.Path, err)
	}
	defer stmt.Close()

	_, err = stmt.Exec(
		entry.Path,
		string(entry.Fingerprint.Algorithm),
		entry.Size,
		entry.ModifiedAt.UTC().Format(time.RFC3339Nano),
		entry.Fingerprint.String(),
		time.Now().Format(time.RFC3339),
	)
	if err != nil {
		return fmt.Errorf("cannot insert data for %s: %w", entry.Path, err)
	}
	return nil
}

// CacheStats contains statistics about the cache contents
type CacheStats struct {
	TotalEntries int
	UniqueHashes int
	ByAlgorithm  map[types.HashAlgorithm]int
}

// GetCacheStats retrieves statistics about cached fingerprints
func (c *FingerprintCache) GetCacheStats() (*CacheStats, error) {
	stats := CacheStats{ByAlgorithm: make(map[types.HashAlgorithm]int)}

	err := c.db.QueryRow("SELECT COUNT(*) FROM fingerprints").Scan(&stats.TotalEntries)
	if err != nil {
		return nil, fmt.Errorf("failed to get total entries: %w", err)
	}

	err = c.db.QueryRow("SELECT COUNT(DISTINCT algorithm || ':' || hash) FROM fingerprints").Scan(&stats.UniqueHashes)
	if err != nil {
		return nil, fmt.Errorf("failed to get unique hashes: %w", err)
	}

	rows, err := c.db.Query("SELECT algorithm, COUNT(*) FROM fingerprints GROUP BY algorithm")
	if err != nil {
		return nil, fmt.Errorf("failed to count by algorithm: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var algo string
		var count int
		if err := rows.Scan(&algo, &count); err != nil {
			return nil, err
		}
		stats.ByAlgorithm[types.HashAlgorithm(algo)] = count
	}
	return &stats, rows.Err()
}
