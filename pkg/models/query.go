package models

// QueryKind tags a cache entry with the input type that produced it.
type QueryKind string

const (
	// KindText is a natural-language text query.
	KindText QueryKind = "text"
	// KindImage is a raw image payload (label photo).
	KindImage QueryKind = "image"
)

// Valid reports whether k is a known query kind.
func (k QueryKind) Valid() bool {
	return k == KindText || k == KindImage
}

// Query is a single search input: either free-form text or image bytes.
type Query struct {
	Text  string
	Image []byte
}

// Kind returns the query kind. Image takes precedence when both are set.
func (q Query) Kind() QueryKind {
	if q.Image != nil {
		return KindImage
	}
	return KindText
}
