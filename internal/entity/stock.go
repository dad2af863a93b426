package entity

import "time"

// Stock is a watchlist entry. The watchlist is the default candidate universe
// for ranking runs and the set refreshed by the nightly jobs.
type Stock struct {
	ID        int64     `json:"id"`
	Ticker    string    `json:"ticker" gorm:"uniqueIndex"`
	Sector    string    `json:"sector"`
	Active    bool      `json:"active"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (Stock) TableName() string {
	return "stocks"
}
