// Package translog records every invocation of the external translator in a
// SQLite table, so the costly calls stay observable and countable (the daily
// budget reads from here). Entries age out on a retention schedule.
package translog

import (
	"context"
	"database/sql"
	"fmt"
	"sync"
	"time"

	_ "modernc.org/sqlite"

	"github.com/roastlab/brewfind/pkg/models"
)

// DefaultRetentionDays bounds how long invocation records are kept.
const DefaultRetentionDays = 30

// Logger writes and queries translator invocation records.
type Logger struct {
	db            *sql.DB
	retentionDays int
	done          chan struct{}
	wg            sync.WaitGroup
}

const createLogTable = `
CREATE TABLE IF NOT EXISTS translation_log (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	fingerprint TEXT NOT NULL,
	query_kind TEXT NOT NULL,
	provider TEXT NOT NULL,
	model TEXT NOT NULL,
	latency_ms INTEGER NOT NULL,
	ok INTEGER NOT NULL,
	error TEXT,
	created_at DATETIME NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_translation_log_created ON translation_log(created_at);
`

// New opens the translation log database and starts the retention loop.
func New(dbPath string, retentionDays int) (*Logger, error) {
	// _time_format=sqlite keeps bound timestamps parseable by julianday().
	db, err := sql.Open("sqlite", dbPath+"?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)&_time_format=sqlite")
	if err != nil {
		return nil, fmt.Errorf("open translation log db: %w", err)
	}

	if _, err := db.Exec(createLogTable); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate translation log db: %w", err)
	}

	if retentionDays <= 0 {
		retentionDays = DefaultRetentionDays
	}

	l := &Logger{
		db:            db,
		retentionDays: retentionDays,
		done:          make(chan struct{}),
	}

	l.wg.Add(1)
	go l.retentionLoop()

	return l, nil
}

// Record inserts one invocation record. Safe to call on a nil Logger so the
// log stays optional at call sites.
func (l *Logger) Record(ctx context.Context, rec models.TranslationRecord) error {
	if l == nil || l.db == nil {
		return nil
	}
	createdAt := rec.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now().UTC()
	}
	_, err := l.db.ExecContext(ctx, `
		INSERT INTO translation_log
		(fingerprint, query_kind, provider, model, latency_ms, ok, error, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		rec.Fingerprint, string(rec.Kind), rec.Provider, rec.Model,
		rec.LatencyMs, rec.OK, rec.Error, createdAt,
	)
	if err != nil {
		return fmt.Errorf("record translation: %w", err)
	}
	return nil
}

// Recent returns the most recent invocation records, newest first.
func (l *Logger) Recent(ctx context.Context, limit int) ([]models.TranslationRecord, error) {
	if limit <= 0 {
		limit = 100
	}
	rows, err := l.db.QueryContext(ctx, `
		SELECT id, fingerprint, query_kind, provider, model, latency_ms, ok, error, created_at
		FROM translation_log ORDER BY created_at DESC, id DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("query translation log: %w", err)
	}
	defer rows.Close()

	var recs []models.TranslationRecord
	for rows.Next() {
		var (
			r       models.TranslationRecord
			kind    string
			errText sql.NullString
		)
		if err := rows.Scan(&r.ID, &r.Fingerprint, &kind, &r.Provider, &r.Model,
			&r.LatencyMs, &r.OK, &errText, &r.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan translation record: %w", err)
		}
		r.Kind = models.QueryKind(kind)
		r.Error = errText.String
		recs = append(recs, r)
	}
	return recs, rows.Err()
}

// CountSince returns the number of translator invocations (successful or
// not) recorded at or after the given instant.
func (l *Logger) CountSince(ctx context.Context, since time.Time) (int64, error) {
	var count int64
	err := l.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM translation_log WHERE julianday(created_at) >= julianday(?)`,
		since.UTC(),
	).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("count translations: %w", err)
	}
	return count, nil
}

// Cleanup deletes records older than the retention period and returns the
// number removed.
func (l *Logger) Cleanup(ctx context.Context) (int64, error) {
	cutoff := time.Now().UTC().AddDate(0, 0, -l.retentionDays)
	res, err := l.db.ExecContext(ctx,
		`DELETE FROM translation_log WHERE julianday(created_at) < julianday(?)`, cutoff)
	if err != nil {
		return 0, fmt.Errorf("translation log cleanup: %w", err)
	}
	return res.RowsAffected()
}

// Close stops the retention goroutine and closes the database.
func (l *Logger) Close() error {
	if l == nil || l.db == nil {
		return nil
	}
	close(l.done)
	l.wg.Wait()
	return l.db.Close()
}

func (l *Logger) retentionLoop() {
	defer l.wg.Done()
	ticker := time.NewTicker(time.Hour)
	defer ticker.Stop()
	for {
		select {
		case <-l.done:
			return
		case <-ticker.C:
			_, _ = l.Cleanup(context.Background())
		}
	}
}
