package models

import "time"

// TranslationRecord is one logged invocation of the external translator.
type TranslationRecord struct {
	ID          int64     `json:"id"`
	Fingerprint string    `json:"fingerprint"`
	Kind        QueryKind `json:"kind"`
	Provider    string    `json:"provider"`
	Model       string    `json:"model"`
	LatencyMs   int64     `json:"latency_ms"`
	OK          bool      `json:"ok"`
	Error       string    `json:"error,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
}
