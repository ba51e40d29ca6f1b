package models

// DailyStats holds a per-day count for dashboard charts
type DailyStats struct {
	Date  string `json:"date"`
	Count int    `json:"count"`
}

// TierStats holds the member count for a single tier
type TierStats struct {
	Tier  string `json:"tier"`
	Count int64  `json:"count"`
}
