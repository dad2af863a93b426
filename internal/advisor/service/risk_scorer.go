package service

import (
	"fmt"
	"sort"

	"golang-invest-advisor/internal/advisor/dto"
	"golang-invest-advisor/internal/entity"
	"golang-invest-advisor/pkg/utils"
)

// Component weights of the risk model. They must sum to 1.
const (
	weightVolatility        = 0.20
	weightBeta              = 0.15
	weightLeverage          = 0.20
	weightEarningsStability = 0.15
	weightSectorRisk        = 0.10
	weightValuationRisk     = 0.20
)

// Band thresholds. Boundary values belong to the higher band.
const (
	conservativeUpperBound = 34.0
	moderateUpperBound     = 67.0
)

// Band target midpoints used for risk alignment.
const (
	targetConservative = 17.0
	targetModerate     = 50.5
	targetAggressive   = 83.5
)

// RiskScorer computes a deterministic risk score from a fundamentals
// snapshot. It is a pure function of its input: no I/O, no hidden state,
// identical output for identical snapshots.
type RiskScorer interface {
	Score(snapshot *dto.FundamentalsSnapshot) (*dto.RiskAnalysis, error)
}

// NewRiskScorer creates a new RiskScorer.
func NewRiskScorer() RiskScorer {
	return &riskScorer{}
}

type riskScorer struct{}

// Score normalizes each raw metric to [0,100], applies the component weights
// and classifies the band. The stored score is rounded to one decimal and the
// band is derived from the rounded value, keeping band a pure function of the
// persisted score.
//
// Normalization is a fixed set of linear clamps:
//   - volatility:   min(vol * 200, 100)           (50% annualized vol saturates)
//   - beta:         beta < 0 -> max(0, 50+beta*25); else min(beta*50, 100)
//   - leverage:     min(debt-to-equity / 3 * 100, 100)
//   - earnings:     stability index in [0,1] scaled to [0,100], then inverted
//   - sector:       coefficient in [0,1] scaled to [0,100]
//   - valuation:    coefficient in [0,1] scaled to [0,100]
func (s *riskScorer) Score(snapshot *dto.FundamentalsSnapshot) (*dto.RiskAnalysis, error) {
	if err := validateSnapshot(snapshot); err != nil {
		return nil, err
	}

	components := dto.RiskComponents{
		VolatilityScore:          normalizeVolatility(*snapshot.Volatility),
		BetaScore:                normalizeBeta(*snapshot.Beta),
		LeverageScore:            normalizeLeverage(*snapshot.LeverageRatio),
		EarningsInstabilityScore: 100 - normalizeUnitCoefficient(*snapshot.EarningsStability),
		SectorRiskScore:          normalizeUnitCoefficient(*snapshot.SectorRisk),
		ValuationRiskScore:       normalizeUnitCoefficient(*snapshot.ValuationRisk),
	}

	raw := weightVolatility*components.VolatilityScore +
		weightBeta*components.BetaScore +
		weightLeverage*components.LeverageScore +
		weightEarningsStability*components.EarningsInstabilityScore +
		weightSectorRisk*components.SectorRiskScore +
		weightValuationRisk*components.ValuationRiskScore

	score := utils.Round1(utils.Clamp(raw, 0, 100))
	band := classifyBand(score)

	return &dto.RiskAnalysis{
		Ticker:      snapshot.Ticker,
		AsOfDate:    snapshot.AsOfDate,
		Score:       score,
		Band:        string(band),
		Components:  components,
		Explanation: explainRisk(snapshot.Ticker, score, band, components),
	}, nil
}

func validateSnapshot(snapshot *dto.FundamentalsSnapshot) error {
	var missing []string
	check := func(name string, v *float64) {
		if v == nil {
			missing = append(missing, name)
		}
	}
	check("volatility", snapshot.Volatility)
	check("beta", snapshot.Beta)
	check("leverage_ratio", snapshot.LeverageRatio)
	check("earnings_stability", snapshot.EarningsStability)
	check("sector_risk", snapshot.SectorRisk)
	check("valuation_risk", snapshot.ValuationRisk)

	if len(missing) > 0 {
		return &dto.IncompleteSnapshotError{Ticker: snapshot.Ticker, Missing: missing}
	}
	return nil
}

func normalizeVolatility(vol float64) float64 {
	return utils.Clamp(vol*200, 0, 100)
}

func normalizeBeta(beta float64) float64 {
	// Negative beta means inverse correlation, which is lower risk.
	if beta < 0 {
		return utils.Clamp(50+beta*25, 0, 100)
	}
	return utils.Clamp(beta*50, 0, 100)
}

func normalizeLeverage(debtToEquity float64) float64 {
	return utils.Clamp(debtToEquity/3*100, 0, 100)
}

func normalizeUnitCoefficient(v float64) float64 {
	return utils.Clamp(v*100, 0, 100)
}

// classifyBand maps a score to its band: [0,34) Conservative, [34,67)
// Moderate, [67,100] Aggressive.
func classifyBand(score float64) entity.RiskBand {
	switch {
	case score < conservativeUpperBound:
		return entity.RiskBandConservative
	case score < moderateUpperBound:
		return entity.RiskBandModerate
	default:
		return entity.RiskBandAggressive
	}
}

// bandTarget returns the midpoint score of a band.
func bandTarget(band entity.RiskBand) float64 {
	switch band {
	case entity.RiskBandConservative:
		return targetConservative
	case entity.RiskBandAggressive:
		return targetAggressive
	default:
		return targetModerate
	}
}

func explainRisk(ticker string, score float64, band entity.RiskBand, c dto.RiskComponents) string {
	type component struct {
		name  string
		score float64
	}
	components := []component{
		{"Volatility", c.VolatilityScore},
		{"Beta", c.BetaScore},
		{"Leverage", c.LeverageScore},
		{"Earnings Stability", c.EarningsInstabilityScore},
		{"Sector", c.SectorRiskScore},
		{"Valuation", c.ValuationRiskScore},
	}
	sort.SliceStable(components, func(i, j int) bool {
		return components[i].score > components[j].score
	})

	return fmt.Sprintf("%s has an overall risk score of %.1f, classified as %s. Primary risk factors are %s (%.1f) and %s (%.1f).",
		ticker, score, band, components[0].name, components[0].score, components[1].name, components[1].score)
}
