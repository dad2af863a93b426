package entity

import (
	"time"

	"gorm.io/datatypes"
)

// RiskBand is the coarse risk classification derived from a numeric score.
type RiskBand string

const (
	RiskBandConservative RiskBand = "Conservative"
	RiskBandModerate     RiskBand = "Moderate"
	RiskBandAggressive   RiskBand = "Aggressive"
)

// RiskScore is a persisted risk scoring result. Rows are never updated; a
// newer as-of date supersedes older ones.
type RiskScore struct {
	ID          int64          `json:"id"`
	Ticker      string         `json:"ticker"`
	AsOfDate    time.Time      `json:"as_of_date"`
	Score       float64        `json:"score"`
	Band        RiskBand       `json:"band"`
	Components  datatypes.JSON `json:"components" gorm:"type:jsonb"`
	Explanation string         `json:"explanation"`
	CreatedAt   time.Time      `json:"created_at"`
}

func (RiskScore) TableName() string {
	return "risk_scores"
}
