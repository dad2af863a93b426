package service

import (
	"errors"
	"testing"
	"time"

	"golang-invest-advisor/internal/advisor/dto"
	"golang-invest-advisor/internal/entity"

	"github.com/stretchr/testify/assert"
)

func floatPtr(v float64) *float64 {
	return &v
}

func completeSnapshot(ticker string) *dto.FundamentalsSnapshot {
	return &dto.FundamentalsSnapshot{
		Ticker:            ticker,
		AsOfDate:          time.Date(2026, 8, 1, 0, 0, 0, 0, time.UTC),
		Volatility:        floatPtr(0.25),
		Beta:              floatPtr(1.1),
		LeverageRatio:     floatPtr(1.5),
		EarningsStability: floatPtr(0.7),
		SectorRisk:        floatPtr(0.4),
		ValuationRisk:     floatPtr(0.5),
	}
}

func TestRiskScorerDeterminism(t *testing.T) {
	scorer := NewRiskScorer()

	first, err := scorer.Score(completeSnapshot("AAPL"))
	assert.NoError(t, err)
	second, err := scorer.Score(completeSnapshot("AAPL"))
	assert.NoError(t, err)

	assert.Equal(t, first.Score, second.Score)
	assert.Equal(t, first.Band, second.Band)
	assert.Equal(t, first.Components, second.Components)
	assert.Equal(t, first.Explanation, second.Explanation)
}

func TestRiskScorerWeightedScore(t *testing.T) {
	tests := []struct {
		name          string
		snapshot      *dto.FundamentalsSnapshot
		expectedScore float64
		expectedBand  string
	}{
		{
			// Every component normalizes to 34, so the weighted sum is 34.
			name: "all components at 34",
			snapshot: &dto.FundamentalsSnapshot{
				Ticker:            "MID",
				AsOfDate:          time.Now(),
				Volatility:        floatPtr(0.17),
				Beta:              floatPtr(0.68),
				LeverageRatio:     floatPtr(1.02),
				EarningsStability: floatPtr(0.66),
				SectorRisk:        floatPtr(0.34),
				ValuationRisk:     floatPtr(0.34),
			},
			expectedScore: 34.0,
			expectedBand:  "Moderate",
		},
		{
			name: "all components at 67",
			snapshot: &dto.FundamentalsSnapshot{
				Ticker:            "HIGH",
				AsOfDate:          time.Now(),
				Volatility:        floatPtr(0.335),
				Beta:              floatPtr(1.34),
				LeverageRatio:     floatPtr(2.01),
				EarningsStability: floatPtr(0.33),
				SectorRisk:        floatPtr(0.67),
				ValuationRisk:     floatPtr(0.67),
			},
			expectedScore: 67.0,
			expectedBand:  "Aggressive",
		},
		{
			name: "extreme inputs clamp to 100",
			snapshot: &dto.FundamentalsSnapshot{
				Ticker:            "WILD",
				AsOfDate:          time.Now(),
				Volatility:        floatPtr(10),
				Beta:              floatPtr(9),
				LeverageRatio:     floatPtr(50),
				EarningsStability: floatPtr(0),
				SectorRisk:        floatPtr(1),
				ValuationRisk:     floatPtr(1),
			},
			expectedScore: 100.0,
			expectedBand:  "Aggressive",
		},
		{
			name: "riskless inputs score zero",
			snapshot: &dto.FundamentalsSnapshot{
				Ticker:            "SAFE",
				AsOfDate:          time.Now(),
				Volatility:        floatPtr(0),
				Beta:              floatPtr(0),
				LeverageRatio:     floatPtr(0),
				EarningsStability: floatPtr(1),
				SectorRisk:        floatPtr(0),
				ValuationRisk:     floatPtr(0),
			},
			expectedScore: 0.0,
			expectedBand:  "Conservative",
		},
	}

	scorer := NewRiskScorer()
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			analysis, err := scorer.Score(tt.snapshot)
			assert.NoError(t, err)
			assert.InDelta(t, tt.expectedScore, analysis.Score, 0.001)
			assert.Equal(t, tt.expectedBand, analysis.Band)
		})
	}
}

func TestRiskScorerIncompleteSnapshot(t *testing.T) {
	snapshot := completeSnapshot("AAPL")
	snapshot.Beta = nil
	snapshot.SectorRisk = nil

	_, err := NewRiskScorer().Score(snapshot)

	var incomplete *dto.IncompleteSnapshotError
	assert.True(t, errors.As(err, &incomplete))
	assert.Equal(t, "AAPL", incomplete.Ticker)
	assert.Equal(t, []string{"beta", "sector_risk"}, incomplete.Missing)
}

func TestClassifyBand(t *testing.T) {
	tests := []struct {
		score    float64
		expected entity.RiskBand
	}{
		{0, entity.RiskBandConservative},
		{33.99, entity.RiskBandConservative},
		{34.0, entity.RiskBandModerate},
		{66.99, entity.RiskBandModerate},
		{67.0, entity.RiskBandAggressive},
		{100, entity.RiskBandAggressive},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.expected, classifyBand(tt.score), "score %.2f", tt.score)
	}
}

func TestNormalizeBeta(t *testing.T) {
	tests := []struct {
		beta     float64
		expected float64
	}{
		{-2, 0},
		{-1, 25},
		{0, 0},
		{1, 50},
		{2, 100},
		{3, 100},
	}

	for _, tt := range tests {
		assert.InDelta(t, tt.expected, normalizeBeta(tt.beta), 0.001, "beta %.1f", tt.beta)
	}
}

func TestBandTarget(t *testing.T) {
	assert.Equal(t, 17.0, bandTarget(entity.RiskBandConservative))
	assert.Equal(t, 50.5, bandTarget(entity.RiskBandModerate))
	assert.Equal(t, 83.5, bandTarget(entity.RiskBandAggressive))
}
