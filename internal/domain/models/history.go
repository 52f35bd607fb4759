package models

import "time"

const DateLayout = time.DateOnly

// HistoryRecord is one day in a product's price history log.
type HistoryRecord struct {
	Date string  `json:"date"`
	Min  float64 `json:"min"`
	Avg  float64 `json:"avg,omitempty"`
	N    int     `json:"n,omitempty"`
}

func (r HistoryRecord) Day() (time.Time, error) {
	return time.Parse(DateLayout, r.Date)
}
