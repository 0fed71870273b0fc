package domain

// ReviewStats is the aggregate payload served by the stats endpoint.
// Overall and Categories are one-decimal means over only the records that
// actually expose a value (nil ratings and absent category keys are excluded
// from the denominator, never counted as zero). An empty input set yields
// Overall 0 — not nil, not NaN — to keep the output shape stable for clients.
type ReviewStats struct {
	Overall      float64            `json:"overall"`
	Categories   map[string]float64 `json:"categories"`
	TotalReviews int                `json:"totalReviews"`
	ReviewTypes  map[string]int     `json:"reviewTypes"`
}
