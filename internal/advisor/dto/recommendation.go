package dto

import "time"

// Recommendation is one ranked entry of a ranking run. Runs are immutable
// result sets; nothing here is updated after the run completes.
type Recommendation struct {
	UserID             int64                  `json:"user_id"`
	Ticker             string                 `json:"ticker"`
	Rank               int                    `json:"rank"`
	ResearchScore      float64                `json:"research_score"`
	SignalScore        float64                `json:"signal_score"`
	RiskAlignmentScore float64                `json:"risk_alignment_score"`
	MacroFitScore      float64                `json:"macro_fit_score"`
	FinalScore         float64                `json:"final_score"`
	Explanation        string                 `json:"explanation"`
	ReasoningMetadata  map[string]interface{} `json:"reasoning_metadata"`
}

// CandidateDiagnostic records why a candidate was left out of a ranking run.
type CandidateDiagnostic struct {
	Ticker string `json:"ticker"`
	Reason string `json:"reason"`
}

// RecommendationRun bundles the ranked list with its diagnostics.
type RecommendationRun struct {
	UserID          int64                 `json:"user_id"`
	GeneratedAt     time.Time             `json:"generated_at"`
	Recommendations []Recommendation      `json:"recommendations"`
	Diagnostics     []CandidateDiagnostic `json:"diagnostics"`
}

// RecommendRequest is the HTTP payload for a ranking run.
type RecommendRequest struct {
	UserID  int64    `json:"user_id"`
	Tickers []string `json:"tickers,omitempty"`
	TopN    int      `json:"top_n,omitempty"`
}
