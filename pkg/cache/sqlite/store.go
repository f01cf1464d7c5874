// Package sqlite implements the query-translation cache on a SQLite table.
//
// Hit accounting is a single UPDATE ... RETURNING per lookup, so the counter
// is durable and concurrent hits on the same fingerprint never lose updates.
// Expiry is checked at read time; the sweep only bounds storage growth.
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	_ "modernc.org/sqlite"

	"github.com/roastlab/brewfind/pkg/models"
)

// ErrStorageUnavailable wraps any failure of the underlying database.
var ErrStorageUnavailable = errors.New("cache storage unavailable")

const (
	// DefaultTTL is applied when Put is called with a non-positive TTL.
	DefaultTTL = 168 * time.Hour
	// DefaultTopQueries is the popularity ranking size when none is given.
	DefaultTopQueries = 10
)

// Store is the durable entry store for cached query translations.
type Store struct {
	db  *sql.DB
	ttl time.Duration
}

const createCacheTable = `
CREATE TABLE IF NOT EXISTS query_cache (
	fingerprint TEXT PRIMARY KEY,
	query_kind TEXT NOT NULL,
	original_text TEXT,
	result_payload BLOB NOT NULL,
	hit_count INTEGER NOT NULL DEFAULT 1,
	created_at DATETIME NOT NULL,
	last_accessed_at DATETIME NOT NULL,
	expires_at DATETIME NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_query_cache_expires ON query_cache(expires_at);
`

// New opens the cache database, runs migration, and returns a Store with
// the given default TTL (DefaultTTL when ttl <= 0).
func New(dbPath string, ttl time.Duration) (*Store, error) {
	// _time_format=sqlite makes bound time.Time values legible to SQLite's
	// date functions; without it julianday() on a bound timestamp is NULL.
	db, err := sql.Open("sqlite", dbPath+"?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)&_time_format=sqlite")
	if err != nil {
		return nil, fmt.Errorf("open cache db: %w", err)
	}

	if _, err := db.Exec(createCacheTable); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate cache db: %w", err)
	}

	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &Store{db: db, ttl: ttl}, nil
}

// Get returns the entry for a fingerprint if it exists and has not expired.
// On a hit the entry's hit count and last access time are updated atomically
// and the updated row is returned. An expired row behaves exactly like a
// miss; it is left for the sweep.
func (s *Store) Get(ctx context.Context, fp string) (models.CacheEntry, bool, error) {
	now := time.Now().UTC()

	var (
		e        models.CacheEntry
		kind     string
		original sql.NullString
	)
	err := s.db.QueryRowContext(ctx, `
		UPDATE query_cache
		SET hit_count = hit_count + 1, last_accessed_at = ?
		WHERE fingerprint = ? AND julianday(expires_at) > julianday(?)
		RETURNING query_kind, original_text, result_payload, hit_count, created_at, last_accessed_at, expires_at`,
		now, fp, now,
	).Scan(&kind, &original, &e.Payload, &e.HitCount, &e.CreatedAt, &e.LastAccessedAt, &e.ExpiresAt)

	if errors.Is(err, sql.ErrNoRows) {
		return models.CacheEntry{}, false, nil
	}
	if err != nil {
		return models.CacheEntry{}, false, fmt.Errorf("cache get: %w: %w", ErrStorageUnavailable, err)
	}

	e.Fingerprint = fp
	e.Kind = models.QueryKind(kind)
	e.OriginalText = original.String
	return e, true, nil
}

// Put inserts a fresh entry or replaces an existing one for the same
// fingerprint, resetting hit count and timestamps. originalText should be
// the normalized query for text entries and is ignored for image entries.
// A non-positive ttl uses the store default.
func (s *Store) Put(ctx context.Context, fp string, kind models.QueryKind, originalText string, payload []byte, ttl time.Duration) error {
	if !kind.Valid() {
		return fmt.Errorf("cache put: unknown query kind %q", kind)
	}
	if ttl <= 0 {
		ttl = s.ttl
	}

	var original any
	if kind == models.KindText {
		original = originalText
	}

	now := time.Now().UTC()
	_, err := s.db.ExecContext(ctx, `
		INSERT OR REPLACE INTO query_cache
		(fingerprint, query_kind, original_text, result_payload, hit_count, created_at, last_accessed_at, expires_at)
		VALUES (?, ?, ?, ?, 1, ?, ?, ?)`,
		fp, string(kind), original, payload, now, now, now.Add(ttl),
	)
	if err != nil {
		return fmt.Errorf("cache put: %w: %w", ErrStorageUnavailable, err)
	}
	return nil
}

// DeleteExpired removes every entry past its expiry and returns the number
// removed. Live entries are never touched.
func (s *Store) DeleteExpired(ctx context.Context) (int64, error) {
	res, err := s.db.ExecContext(ctx,
		`DELETE FROM query_cache WHERE julianday(expires_at) <= julianday(?)`,
		time.Now().UTC(),
	)
	if err != nil {
		return 0, fmt.Errorf("cache cleanup: %w: %w", ErrStorageUnavailable, err)
	}
	return res.RowsAffected()
}

// DeleteAll removes every entry, or only entries of the given kind when one
// is provided. Returns the number removed.
func (s *Store) DeleteAll(ctx context.Context, kind models.QueryKind) (int64, error) {
	var (
		res sql.Result
		err error
	)
	if kind == "" {
		res, err = s.db.ExecContext(ctx, `DELETE FROM query_cache`)
	} else {
		if !kind.Valid() {
			return 0, fmt.Errorf("cache clear: unknown query kind %q", kind)
		}
		res, err = s.db.ExecContext(ctx, `DELETE FROM query_cache WHERE query_kind = ?`, string(kind))
	}
	if err != nil {
		return 0, fmt.Errorf("cache clear: %w: %w", ErrStorageUnavailable, err)
	}
	return res.RowsAffected()
}

// Stats computes usage statistics directly from the stored entries. topN
// bounds the popularity ranking (DefaultTopQueries when <= 0), which covers
// text entries only, ordered by hit count then recency.
func (s *Store) Stats(ctx context.Context, topN int) (models.CacheStats, error) {
	if topN <= 0 {
		topN = DefaultTopQueries
	}

	stats := models.CacheStats{ByKind: make(map[models.QueryKind]int64)}

	err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*), COALESCE(SUM(hit_count), 0) FROM query_cache`,
	).Scan(&stats.TotalCached, &stats.TotalHits)
	if err != nil {
		return models.CacheStats{}, fmt.Errorf("cache stats: %w: %w", ErrStorageUnavailable, err)
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT query_kind, COUNT(*) FROM query_cache GROUP BY query_kind`)
	if err != nil {
		return models.CacheStats{}, fmt.Errorf("cache stats: %w: %w", ErrStorageUnavailable, err)
	}
	defer rows.Close()
	for rows.Next() {
		var kind string
		var count int64
		if err := rows.Scan(&kind, &count); err != nil {
			return models.CacheStats{}, fmt.Errorf("scan kind count: %w", err)
		}
		stats.ByKind[models.QueryKind(kind)] = count
	}
	if err := rows.Err(); err != nil {
		return models.CacheStats{}, fmt.Errorf("cache stats: %w: %w", ErrStorageUnavailable, err)
	}

	err = s.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM query_cache WHERE julianday(expires_at) <= julianday(?)`,
		time.Now().UTC(),
	).Scan(&stats.ExpiredCount)
	if err != nil {
		return models.CacheStats{}, fmt.Errorf("cache stats: %w: %w", ErrStorageUnavailable, err)
	}

	// Every entry's first hit is its creating insert, so true re-hits are
	// total_hits minus one per entry.
	if stats.TotalHits > 0 {
		stats.HitRate = float64(stats.TotalHits-stats.TotalCached) / float64(stats.TotalHits)
	}

	top, err := s.topQueries(ctx, topN)
	if err != nil {
		return models.CacheStats{}, err
	}
	stats.TopQueries = top
	return stats, nil
}

func (s *Store) topQueries(ctx context.Context, n int) ([]models.TopQuery, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT original_text, hit_count, last_accessed_at
		FROM query_cache
		WHERE query_kind = ?
		ORDER BY hit_count DESC, last_accessed_at DESC
		LIMIT ?`,
		string(models.KindText), n,
	)
	if err != nil {
		return nil, fmt.Errorf("top queries: %w: %w", ErrStorageUnavailable, err)
	}
	defer rows.Close()

	var top []models.TopQuery
	for rows.Next() {
		var q models.TopQuery
		var text sql.NullString
		if err := rows.Scan(&text, &q.HitCount, &q.LastAccessedAt); err != nil {
			return nil, fmt.Errorf("scan top query: %w", err)
		}
		q.Text = text.String
		top = append(top, q)
	}
	return top, rows.Err()
}

// Close releases the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}
