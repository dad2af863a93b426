package entity

import (
	"time"

	"gorm.io/datatypes"
)

// SignalType classifies a detected market signal.
type SignalType string

const (
	SignalEarningsSurprise     SignalType = "earnings_surprise"
	SignalInstitutionalBuy     SignalType = "institutional_buy"
	SignalInstitutionalSell    SignalType = "institutional_sell"
	SignalInsiderBuy           SignalType = "insider_buy"
	SignalInsiderSell          SignalType = "insider_sell"
	SignalSentimentSpike       SignalType = "sentiment_spike"
	SignalOptionsUnusualVolume SignalType = "options_unusual_volume"
)

// SignalEvent is an append-only classified market event. Events are never
// edited; relevance decays by age during aggregation instead of deletion.
type SignalEvent struct {
	ID         int64          `json:"id"`
	Ticker     string         `json:"ticker"`
	Type       SignalType     `json:"type"`
	Strength   float64        `json:"strength"`
	Confidence float64        `json:"confidence"`
	Rationale  string         `json:"rationale"`
	Source     datatypes.JSON `json:"source" gorm:"type:jsonb"`
	Timestamp  time.Time      `json:"timestamp"`
	CreatedAt  time.Time      `json:"created_at"`
}

func (SignalEvent) TableName() string {
	return "signal_events"
}
