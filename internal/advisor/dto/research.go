package dto

import "time"

// ResearchReportPayload is the JSON document the completion service must
// return. Every list field must be present (possibly empty) and
// ConfidenceScore must lie in [0,1].
type ResearchReportPayload struct {
	Ticker          string   `json:"ticker"`
	Summary         string   `json:"summary"`
	KeyInsights     []string `json:"key_insights"`
	Strengths       []string `json:"strengths"`
	Weaknesses      []string `json:"weaknesses"`
	Opportunities   []string `json:"opportunities"`
	Threats         []string `json:"threats"`
	ConfidenceScore float64  `json:"confidence_score"`
}

// ResearchReport is a validated report plus generation metadata. Degraded
// reports are structurally valid, carry zero confidence and are produced by
// the fallback path after the retry budget is spent.
type ResearchReport struct {
	ResearchReportPayload

	GeneratedAt   time.Time `json:"generated_at"`
	SchemaVersion string    `json:"schema_version"`
	Attempts      int       `json:"attempts"`
	Degraded      bool      `json:"degraded"`
}

// ResearchContext is the bounded, numeric-only payload handed to the prompt
// stage. No free text beyond the ticker itself enters the prompt context.
type ResearchContext struct {
	Ticker            string  `json:"ticker"`
	AsOfDate          string  `json:"as_of_date"`
	Volatility        float64 `json:"volatility"`
	Beta              float64 `json:"beta"`
	LeverageRatio     float64 `json:"leverage_ratio"`
	EarningsStability float64 `json:"earnings_stability"`
	SectorRisk        float64 `json:"sector_risk"`
	ValuationRisk     float64 `json:"valuation_risk"`
	RiskScore         float64 `json:"risk_score"`
	RiskBand          string  `json:"risk_band"`
	SignalScore       float64 `json:"signal_score"`
	SignalEventCount  int     `json:"signal_event_count"`
	NoSignal          bool    `json:"no_signal"`
}
