package models

import (
	"errors"
	"fmt"
)

// SearchParams is the structured result of translating a query. The cache
// stores its marshaled form as an opaque blob; Validate is the schema
// boundary enforced before anything is written.
type SearchParams struct {
	SearchText   string   `json:"search_text"`
	Origin       string   `json:"origin,omitempty"`
	Roast        string   `json:"roast,omitempty"`
	Process      string   `json:"process,omitempty"`
	TastingNotes []string `json:"tasting_notes,omitempty"`
	MinPrice     float64  `json:"min_price,omitempty"`
	MaxPrice     float64  `json:"max_price,omitempty"`
	Confidence   float64  `json:"confidence"`
}

// Validate checks that the translated parameters are usable.
func (p SearchParams) Validate() error {
	if p.SearchText == "" {
		return errors.New("search_text is required")
	}
	if p.Confidence < 0 || p.Confidence > 1 {
		return fmt.Errorf("confidence %.2f out of range [0,1]", p.Confidence)
	}
	if p.MinPrice < 0 || p.MaxPrice < 0 {
		return errors.New("prices must be non-negative")
	}
	if p.MaxPrice > 0 && p.MinPrice > p.MaxPrice {
		return fmt.Errorf("min_price %.2f exceeds max_price %.2f", p.MinPrice, p.MaxPrice)
	}
	return nil
}
