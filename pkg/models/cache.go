package models

import "time"

// CacheEntry is one cached query translation, keyed by fingerprint.
type CacheEntry struct {
	Fingerprint    string    `json:"fingerprint"`
	Kind           QueryKind `json:"kind"`
	OriginalText   string    `json:"original_text,omitempty"` // normalized text, empty for image entries
	Payload        []byte    `json:"payload"`
	HitCount       int64     `json:"hit_count"`
	CreatedAt      time.Time `json:"created_at"`
	LastAccessedAt time.Time `json:"last_accessed_at"`
	ExpiresAt      time.Time `json:"expires_at"`
}

// Expired reports whether the entry is past its expiry at the given instant.
func (e CacheEntry) Expired(now time.Time) bool {
	return !now.Before(e.ExpiresAt)
}

// TopQuery is one row of the popularity ranking.
type TopQuery struct {
	Text           string    `json:"text"`
	HitCount       int64     `json:"hit_count"`
	LastAccessedAt time.Time `json:"last_accessed_at"`
}

// CacheStats reports cache contents and effectiveness, derived entirely
// from the stored entries.
type CacheStats struct {
	TotalCached  int64               `json:"total_cached"`
	ByKind       map[QueryKind]int64 `json:"by_kind"`
	TotalHits    int64               `json:"total_hits"`
	HitRate      float64             `json:"hit_rate"`
	ExpiredCount int64               `json:"expired_count"`
	TopQueries   []TopQuery          `json:"top_queries"`
}
