package entity

import (
	"time"

	"gorm.io/datatypes"
)

// ResearchReport is the current structured research report for a ticker.
// There is at most one row per ticker; regeneration replaces it.
type ResearchReport struct {
	ID              int64          `json:"id"`
	Ticker          string         `json:"ticker" gorm:"uniqueIndex"`
	Summary         string         `json:"summary"`
	StructuredJSON  datatypes.JSON `json:"structured_json" gorm:"type:jsonb"`
	ConfidenceScore float64        `json:"confidence_score"`
	SchemaVersion   string         `json:"schema_version"`
	Attempts        int            `json:"attempts"`
	Degraded        bool           `json:"degraded"`
	GeneratedAt     time.Time      `json:"generated_at"`
	CreatedAt       time.Time      `json:"created_at"`
	UpdatedAt       time.Time      `json:"updated_at"`
}

func (ResearchReport) TableName() string {
	return "research_reports"
}
