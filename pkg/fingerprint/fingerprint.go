// Package fingerprint derives stable cache keys from search queries.
//
// Text queries are normalized first so that superficially different inputs
// ("Ethiopian Coffee", "  ethiopian   coffee  ") share one key. Image
// payloads are hashed as-is: no normalization is meaningful for bytes.
package fingerprint

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"strings"

	"golang.org/x/text/cases"
)

// ErrInvalidInput is returned when fingerprinting is asked to process an
// absent payload. Empty-but-present inputs are valid and hash normally.
var ErrInvalidInput = errors.New("fingerprint: absent input")

// Normalize case-folds s, trims it, and collapses runs of whitespace to
// single spaces. Idempotent: Normalize(Normalize(s)) == Normalize(s).
func Normalize(s string) string {
	folded := cases.Fold().String(s)
	return strings.Join(strings.Fields(folded), " ")
}

// Text returns the hex-encoded SHA-256 key for a text query, normalizing
// it first.
func Text(s string) string {
	sum := sha256.Sum256([]byte(Normalize(s)))
	return hex.EncodeToString(sum[:])
}

// Image returns the hex-encoded SHA-256 key for a raw image payload.
// A nil slice is rejected; identical bytes always produce identical keys.
func Image(data []byte) (string, error) {
	if data == nil {
		return "", ErrInvalidInput
	}
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:]), nil
}
