package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"math"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/roastlab/brewfind/pkg/models"
)

func newTestStore(t *testing.T, ttl time.Duration) *Store {
	t.Helper()
	dbPath := filepath.Join(t.TempDir(), "cache_test.db")
	s, err := New(dbPath, ttl)
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func TestPutAndGet(t *testing.T) {
	s := newTestStore(t, time.Hour)
	ctx := context.Background()

	payload := []byte(`{"search_text":"Ethiopian","confidence":0.9}`)
	if err := s.Put(ctx, "fp1", models.KindText, "fruity ethiopian coffee", payload, 0); err != nil {
		t.Fatal(err)
	}

	e, ok, err := s.Get(ctx, "fp1")
	if err != nil {
		t.Fatal(err)
	}
	if !ok {
		t.Fatal("expected cache hit")
	}
	if string(e.Payload) != string(payload) {
		t.Errorf("unexpected payload: %s", e.Payload)
	}
	if e.Kind != models.KindText {
		t.Errorf("unexpected kind: %s", e.Kind)
	}
	if e.OriginalText != "fruity ethiopian coffee" {
		t.Errorf("unexpected original text: %q", e.OriginalText)
	}
	if e.HitCount != 2 {
		t.Errorf("expected hit count 2 after creating put plus one get, got %d", e.HitCount)
	}

	_, ok, err = s.Get(ctx, "unknown")
	if err != nil {
		t.Fatal(err)
	}
	if ok {
		t.Error("expected miss for unknown fingerprint")
	}
}

func TestHitAccounting(t *testing.T) {
	s := newTestStore(t, time.Hour)
	ctx := context.Background()

	if err := s.Put(ctx, "fp1", models.KindText, "ethiopian", []byte("p"), 0); err != nil {
		t.Fatal(err)
	}

	var last models.CacheEntry
	const n = 5
	for i := 0; i < n; i++ {
		e, ok, err := s.Get(ctx, "fp1")
		if err != nil || !ok {
			t.Fatalf("get %d: ok=%v err=%v", i, ok, err)
		}
		last = e
	}
	if last.HitCount != 1+n {
		t.Errorf("expected hit count %d, got %d", 1+n, last.HitCount)
	}
	if last.LastAccessedAt.Before(last.CreatedAt) {
		t.Error("last_accessed_at should not precede created_at")
	}
}

func TestConcurrentHits(t *testing.T) {
	s := newTestStore(t, time.Hour)
	ctx := context.Background()

	if err := s.Put(ctx, "fp1", models.KindText, "ethiopian", []byte("p"), 0); err != nil {
		t.Fatal(err)
	}

	const workers = 20
	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, _, err := s.Get(ctx, "fp1"); err != nil {
				t.Error(err)
			}
		}()
	}
	wg.Wait()

	e, ok, err := s.Get(ctx, "fp1")
	if err != nil || !ok {
		t.Fatalf("final get: ok=%v err=%v", ok, err)
	}
	if e.HitCount != 1+workers+1 {
		t.Errorf("expected hit count %d, got %d (lost updates)", 1+workers+1, e.HitCount)
	}
}

func TestTTLExpiration(t *testing.T) {
	s := newTestStore(t, time.Hour)
	ctx := context.Background()

	if err := s.Put(ctx, "fp1", models.KindText, "q", []byte("p"), 20*time.Millisecond); err != nil {
		t.Fatal(err)
	}

	if _, ok, _ := s.Get(ctx, "fp1"); !ok {
		t.Fatal("expected hit before expiry")
	}

	time.Sleep(50 * time.Millisecond)

	_, ok, err := s.Get(ctx, "fp1")
	if err != nil {
		t.Fatal(err)
	}
	if ok {
		t.Error("expected miss after TTL expiration")
	}
}

func TestUpsertReplaces(t *testing.T) {
	s := newTestStore(t, time.Hour)
	ctx := context.Background()

	if err := s.Put(ctx, "fp1", models.KindText, "q", []byte("first"), 0); err != nil {
		t.Fatal(err)
	}
	// Bump the counter so the reset is observable.
	if _, _, err := s.Get(ctx, "fp1"); err != nil {
		t.Fatal(err)
	}

	time.Sleep(10 * time.Millisecond)
	if err := s.Put(ctx, "fp1", models.KindText, "q", []byte("second"), 0); err != nil {
		t.Fatal(err)
	}

	stats, err := s.Stats(ctx, 10)
	if err != nil {
		t.Fatal(err)
	}
	if stats.TotalCached != 1 {
		t.Fatalf("expected exactly one entry after upsert, got %d", stats.TotalCached)
	}

	e, ok, err := s.Get(ctx, "fp1")
	if err != nil || !ok {
		t.Fatalf("get after upsert: ok=%v err=%v", ok, err)
	}
	if string(e.Payload) != "second" {
		t.Errorf("expected replaced payload, got %s", e.Payload)
	}
	if e.HitCount != 2 {
		t.Errorf("expected reset hit count 2 (fresh insert plus this get), got %d", e.HitCount)
	}
}

func TestDeleteExpired(t *testing.T) {
	s := newTestStore(t, time.Hour)
	ctx := context.Background()

	_ = s.Put(ctx, "live1", models.KindText, "a", []byte("p"), time.Hour)
	_ = s.Put(ctx, "live2", models.KindImage, "", []byte("p"), time.Hour)
	_ = s.Put(ctx, "dead1", models.KindText, "b", []byte("p"), 10*time.Millisecond)
	_ = s.Put(ctx, "dead2", models.KindText, "c", []byte("p"), 10*time.Millisecond)

	time.Sleep(30 * time.Millisecond)

	removed, err := s.DeleteExpired(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if removed != 2 {
		t.Errorf("expected 2 removed, got %d", removed)
	}

	for _, fp := range []string{"live1", "live2"} {
		if _, ok, _ := s.Get(ctx, fp); !ok {
			t.Errorf("live entry %s was swept", fp)
		}
	}
	for _, fp := range []string{"dead1", "dead2"} {
		if _, ok, _ := s.Get(ctx, fp); ok {
			t.Errorf("expired entry %s survived the sweep", fp)
		}
	}
}

func TestDeleteAllByKind(t *testing.T) {
	s := newTestStore(t, time.Hour)
	ctx := context.Background()

	_ = s.Put(ctx, "t1", models.KindText, "a", []byte("p"), 0)
	_ = s.Put(ctx, "t2", models.KindText, "b", []byte("p"), 0)
	_ = s.Put(ctx, "i1", models.KindImage, "", []byte("p"), 0)

	removed, err := s.DeleteAll(ctx, models.KindText)
	if err != nil {
		t.Fatal(err)
	}
	if removed != 2 {
		t.Errorf("expected 2 text entries removed, got %d", removed)
	}

	// Typed isolation: the image entry survives.
	if _, ok, _ := s.Get(ctx, "i1"); !ok {
		t.Error("image entry should survive a text-only clear")
	}

	removed, err = s.DeleteAll(ctx, "")
	if err != nil {
		t.Fatal(err)
	}
	if removed != 1 {
		t.Errorf("expected 1 remaining entry removed, got %d", removed)
	}
}

func TestStats(t *testing.T) {
	s := newTestStore(t, time.Hour)
	ctx := context.Background()

	// One entry with 5 total hits (insert + 4 gets), one with just its insert.
	_ = s.Put(ctx, "hot", models.KindText, "ethiopian coffee", []byte("p"), 0)
	for i := 0; i < 4; i++ {
		if _, ok, err := s.Get(ctx, "hot"); err != nil || !ok {
			t.Fatalf("get: ok=%v err=%v", ok, err)
		}
	}
	_ = s.Put(ctx, "cold", models.KindImage, "", []byte("p"), 0)

	stats, err := s.Stats(ctx, 10)
	if err != nil {
		t.Fatal(err)
	}
	if stats.TotalCached != 2 {
		t.Errorf("expected 2 cached, got %d", stats.TotalCached)
	}
	if stats.TotalHits != 6 {
		t.Errorf("expected 6 total hits, got %d", stats.TotalHits)
	}
	if math.Abs(stats.HitRate-4.0/6.0) > 1e-9 {
		t.Errorf("expected hit rate %.3f, got %.3f", 4.0/6.0, stats.HitRate)
	}
	if stats.ByKind[models.KindText] != 1 || stats.ByKind[models.KindImage] != 1 {
		t.Errorf("unexpected kind counts: %v", stats.ByKind)
	}
	if stats.ExpiredCount != 0 {
		t.Errorf("expected 0 expired, got %d", stats.ExpiredCount)
	}
}

func TestStatsEmpty(t *testing.T) {
	s := newTestStore(t, time.Hour)

	stats, err := s.Stats(context.Background(), 10)
	if err != nil {
		t.Fatal(err)
	}
	if stats.TotalCached != 0 || stats.TotalHits != 0 || stats.HitRate != 0 {
		t.Errorf("expected zero stats, got %+v", stats)
	}
	if len(stats.TopQueries) != 0 {
		t.Errorf("expected no top queries, got %v", stats.TopQueries)
	}
}

func TestStatsExpiredCount(t *testing.T) {
	s := newTestStore(t, time.Hour)
	ctx := context.Background()

	_ = s.Put(ctx, "live", models.KindText, "a", []byte("p"), time.Hour)
	_ = s.Put(ctx, "dead", models.KindText, "b", []byte("p"), 10*time.Millisecond)
	time.Sleep(30 * time.Millisecond)

	stats, err := s.Stats(ctx, 10)
	if err != nil {
		t.Fatal(err)
	}
	// Expired entries are still present until swept.
	if stats.TotalCached != 2 {
		t.Errorf("expected 2 cached, got %d", stats.TotalCached)
	}
	if stats.ExpiredCount != 1 {
		t.Errorf("expected 1 expired, got %d", stats.ExpiredCount)
	}
}

func TestTopQueries(t *testing.T) {
	s := newTestStore(t, time.Hour)
	ctx := context.Background()

	_ = s.Put(ctx, "a", models.KindText, "ethiopian coffee", []byte("p"), 0)
	_ = s.Put(ctx, "b", models.KindText, "colombian coffee", []byte("p"), 0)
	_ = s.Put(ctx, "c", models.KindText, "kenyan coffee", []byte("p"), 0)
	_ = s.Put(ctx, "img", models.KindImage, "", []byte("p"), 0)

	for i := 0; i < 3; i++ {
		_, _, _ = s.Get(ctx, "b")
	}
	_, _, _ = s.Get(ctx, "c")

	stats, err := s.Stats(ctx, 2)
	if err != nil {
		t.Fatal(err)
	}
	if len(stats.TopQueries) != 2 {
		t.Fatalf("expected 2 top queries, got %d", len(stats.TopQueries))
	}
	if stats.TopQueries[0].Text != "colombian coffee" {
		t.Errorf("expected colombian coffee first, got %q", stats.TopQueries[0].Text)
	}
	if stats.TopQueries[0].HitCount != 4 {
		t.Errorf("expected 4 hits for top query, got %d", stats.TopQueries[0].HitCount)
	}
	if stats.TopQueries[1].Text != "kenyan coffee" {
		t.Errorf("expected kenyan coffee second, got %q", stats.TopQueries[1].Text)
	}
}

func TestStoredTimestampsAreSQLiteLegible(t *testing.T) {
	s := newTestStore(t, time.Hour)
	ctx := context.Background()

	if err := s.Put(ctx, "fp1", models.KindText, "q", []byte("p"), time.Hour); err != nil {
		t.Fatal(err)
	}

	// The date functions must be able to read both stored columns and bound
	// parameters, or every expiry comparison silently evaluates to false.
	var stored, bound sql.NullFloat64
	err := s.db.QueryRowContext(ctx,
		`SELECT julianday(expires_at), julianday(?) FROM query_cache WHERE fingerprint = ?`,
		time.Now().UTC(), "fp1",
	).Scan(&stored, &bound)
	if err != nil {
		t.Fatal(err)
	}
	if !stored.Valid {
		t.Error("julianday cannot parse the stored expires_at")
	}
	if !bound.Valid {
		t.Error("julianday cannot parse a bound time.Time")
	}
	if stored.Valid && bound.Valid && stored.Float64 <= bound.Float64 {
		t.Errorf("entry with 1h TTL should expire in the future: stored=%f bound=%f", stored.Float64, bound.Float64)
	}

	// And the read path agrees: a just-inserted entry is a live hit.
	if _, ok, err := s.Get(ctx, "fp1"); err != nil || !ok {
		t.Errorf("expected live hit immediately after put: ok=%v err=%v", ok, err)
	}
}

func TestGetAfterClose(t *testing.T) {
	s := newTestStore(t, time.Hour)
	_ = s.Close()

	_, _, err := s.Get(context.Background(), "fp")
	if !errors.Is(err, ErrStorageUnavailable) {
		t.Errorf("expected ErrStorageUnavailable, got %v", err)
	}

	err = s.Put(context.Background(), "fp", models.KindText, "q", []byte("p"), 0)
	if !errors.Is(err, ErrStorageUnavailable) {
		t.Errorf("expected ErrStorageUnavailable on put, got %v", err)
	}
}
