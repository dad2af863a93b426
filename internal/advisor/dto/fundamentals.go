package dto

import "time"

// FundamentalsSnapshot holds the raw metrics the data provider reports for a
// ticker at a given as-of date. Fields are pointers so a missing metric is
// distinguishable from a zero value; the risk scorer rejects incomplete
// snapshots instead of substituting defaults.
type FundamentalsSnapshot struct {
	Ticker   string    `json:"ticker"`
	AsOfDate time.Time `json:"as_of_date"`

	// Volatility is the annualized standard deviation of returns (0.25 = 25%).
	Volatility *float64 `json:"volatility"`
	// Beta versus the market; may be negative or well above 3.
	Beta *float64 `json:"beta"`
	// LeverageRatio is debt-to-equity.
	LeverageRatio *float64 `json:"leverage_ratio"`
	// EarningsStability is an index in [0,1]; 1 means perfectly stable earnings.
	EarningsStability *float64 `json:"earnings_stability"`
	// SectorRisk is a coefficient in [0,1] supplied by the provider.
	SectorRisk *float64 `json:"sector_risk"`
	// ValuationRisk is a coefficient in [0,1] supplied by the provider.
	ValuationRisk *float64 `json:"valuation_risk"`
}

// RiskComponents holds the weighted sub-scores of a risk analysis, each on
// the [0,100] scale.
type RiskComponents struct {
	VolatilityScore          float64 `json:"volatility_score"`
	BetaScore                float64 `json:"beta_score"`
	LeverageScore            float64 `json:"leverage_score"`
	EarningsInstabilityScore float64 `json:"earnings_instability_score"`
	SectorRiskScore          float64 `json:"sector_risk_score"`
	ValuationRiskScore       float64 `json:"valuation_risk_score"`
}

// RiskAnalysis is the deterministic result of scoring one snapshot.
type RiskAnalysis struct {
	Ticker      string         `json:"ticker"`
	AsOfDate    time.Time      `json:"as_of_date"`
	Score       float64        `json:"score"`
	Band        string         `json:"band"`
	Components  RiskComponents `json:"components"`
	Explanation string         `json:"explanation"`
}
