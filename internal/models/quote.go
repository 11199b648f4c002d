package models

import "time"

// Quote is a cached daily BTC/USD price.
type Quote struct {
	ID        int64     `json:"id"`
	Day       string    `json:"day"` // YYYY-MM-DD
	Price     float64   `json:"price"`
	Source    string    `json:"source"`
	CreatedAt time.Time `json:"createdAt"`
}
