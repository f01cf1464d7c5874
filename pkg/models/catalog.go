package models

// Coffee is one catalog row the translated parameters are matched against.
type Coffee struct {
	ID           int64    `json:"id"`
	Name         string   `json:"name"`
	Roaster      string   `json:"roaster"`
	Origin       string   `json:"origin"`
	Roast        string   `json:"roast"`
	Process      string   `json:"process"`
	TastingNotes []string `json:"tasting_notes"`
	PriceUSD     float64  `json:"price_usd"`
}
