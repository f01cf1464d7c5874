package models

// BudgetStatus reports translator-call budget consumption for the current day.
type BudgetStatus struct {
	MaxPerDay int64 `json:"max_per_day"`
	Used      int64 `json:"used"`
	Remaining int64 `json:"remaining"`
}
