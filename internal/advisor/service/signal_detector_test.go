package service

import (
	"errors"
	"testing"
	"time"

	"golang-invest-advisor/internal/advisor/config"
	"golang-invest-advisor/internal/advisor/dto"
	"golang-invest-advisor/internal/entity"
	"golang-invest-advisor/pkg/logger"

	"github.com/stretchr/testify/assert"
)

func newTestConfig() *config.Config {
	return &config.Config{
		Advisor: config.Advisor{
			GenerationTimeout:           50 * time.Millisecond,
			GenerationMaxAttempts:       3,
			GenerationLeaseTTL:          time.Second,
			ReportMaxAge:                24 * time.Hour,
			SummaryMaxLen:               2000,
			ListItemMaxLen:              500,
			ListMaxItems:                20,
			SignalLookbackWindow:        7 * 24 * time.Hour,
			SignalTTL:                   14 * 24 * time.Hour,
			MaxEventSkipRate:            0.5,
			EarningsSurpriseThreshold:   5,
			InstitutionalDeltaThreshold: 2,
			SentimentSigmaThreshold:     3,
			OptionsVolumeRatioThreshold: 3,
			RankingConcurrency:          4,
			RankingDeadline:             5 * time.Second,
			TopN:                        20,
			RunCacheTTL:                 time.Minute,
			RiskCacheTTL:                time.Minute,
		},
	}
}

func newTestLogger(t *testing.T) *logger.Logger {
	log, err := logger.New("error", "json")
	assert.NoError(t, err)
	return log
}

func newTestDetector(t *testing.T) SignalDetector {
	return NewSignalDetector(newTestConfig(), newTestLogger(t))
}

func intPtr(v int) *int {
	return &v
}

func TestDetectEmptyBatch(t *testing.T) {
	signals, err := newTestDetector(t).Detect(nil, "AAPL")
	assert.NoError(t, err)
	assert.Empty(t, signals)
}

func TestDetectEarnings(t *testing.T) {
	now := time.Now()
	tests := []struct {
		name             string
		event            dto.ProviderEvent
		expectSignal     bool
		expectedType     entity.SignalType
		expectedStrength float64
	}{
		{
			name: "surprise above threshold",
			event: dto.ProviderEvent{
				Kind:         dto.EventKindEarnings,
				Timestamp:    now,
				ActualEPS:    floatPtr(1.2),
				EstimatedEPS: floatPtr(1.0),
			},
			expectSignal:     true,
			expectedType:     entity.SignalEarningsSurprise,
			expectedStrength: 40, // 20% surprise * 2
		},
		{
			name: "negative surprise above threshold",
			event: dto.ProviderEvent{
				Kind:         dto.EventKindEarnings,
				Timestamp:    now,
				ActualEPS:    floatPtr(0.8),
				EstimatedEPS: floatPtr(1.0),
			},
			expectSignal:     true,
			expectedType:     entity.SignalEarningsSurprise,
			expectedStrength: 40,
		},
		{
			name: "surprise below threshold",
			event: dto.ProviderEvent{
				Kind:         dto.EventKindEarnings,
				Timestamp:    now,
				ActualEPS:    floatPtr(1.02),
				EstimatedEPS: floatPtr(1.0),
			},
			expectSignal: false,
		},
	}

	detector := newTestDetector(t)
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			signals, err := detector.Detect([]dto.ProviderEvent{tt.event}, "AAPL")
			assert.NoError(t, err)
			if !tt.expectSignal {
				assert.Empty(t, signals)
				return
			}
			assert.Len(t, signals, 1)
			assert.Equal(t, tt.expectedType, signals[0].Type)
			assert.InDelta(t, tt.expectedStrength, signals[0].Strength, 0.001)
			assert.InDelta(t, 0.95, signals[0].Confidence, 0.001)
		})
	}
}

func TestDetectInstitutionalDirection(t *testing.T) {
	now := time.Now()
	detector := newTestDetector(t)

	buy := dto.ProviderEvent{
		Kind:              dto.EventKindInstitutional,
		Timestamp:         now,
		NetShareDelta:     floatPtr(5_000_000),
		SharesOutstanding: floatPtr(100_000_000),
		InstitutionCount:  intPtr(3),
	}
	sell := buy
	sell.NetShareDelta = floatPtr(-5_000_000)

	signals, err := detector.Detect([]dto.ProviderEvent{buy, sell}, "MSFT")
	assert.NoError(t, err)
	assert.Len(t, signals, 2)
	assert.Equal(t, entity.SignalInstitutionalBuy, signals[0].Type)
	assert.Equal(t, entity.SignalInstitutionalSell, signals[1].Type)
	// |5%| * 10 + 3 institutions * 5
	assert.InDelta(t, 65, signals[0].Strength, 0.001)
	// 0.6 + 3 * 0.05
	assert.InDelta(t, 0.75, signals[0].Confidence, 0.001)
}

func TestDetectSkipRateThreshold(t *testing.T) {
	now := time.Now()
	detector := newTestDetector(t)

	valid := dto.ProviderEvent{
		Kind:         dto.EventKindEarnings,
		Timestamp:    now,
		ActualEPS:    floatPtr(1.5),
		EstimatedEPS: floatPtr(1.0),
	}
	malformed := dto.ProviderEvent{Kind: dto.EventKindEarnings, Timestamp: now}

	// 1 of 2 malformed: rate equals the threshold, which is allowed.
	signals, err := detector.Detect([]dto.ProviderEvent{valid, malformed}, "AAPL")
	assert.NoError(t, err)
	assert.Len(t, signals, 1)

	// 2 of 3 malformed: rate exceeds the threshold.
	_, err = detector.Detect([]dto.ProviderEvent{valid, malformed, malformed}, "AAPL")
	var ingestion *dto.SignalIngestionError
	assert.True(t, errors.As(err, &ingestion))
	assert.Equal(t, 3, ingestion.Total)
	assert.Equal(t, 2, ingestion.Skipped)
}

func TestDetectMalformedEvents(t *testing.T) {
	now := time.Now()
	tests := []struct {
		name  string
		event dto.ProviderEvent
	}{
		{"unknown kind", dto.ProviderEvent{Kind: "dividend", Timestamp: now}},
		{"zero timestamp", dto.ProviderEvent{Kind: dto.EventKindEarnings, ActualEPS: floatPtr(1), EstimatedEPS: floatPtr(1.5)}},
		{"insider invalid side", dto.ProviderEvent{
			Kind:              dto.EventKindInsider,
			Timestamp:         now,
			Side:              "hold",
			TransactionValue:  floatPtr(100_000),
			FilerAverageValue: floatPtr(50_000),
		}},
		{"sentiment zero stdev", dto.ProviderEvent{
			Kind:              dto.EventKindSentiment,
			Timestamp:         now,
			SentimentVelocity: floatPtr(5),
			SentimentStdDev:   floatPtr(0),
			SampleSize:        intPtr(100),
		}},
	}

	detector := newTestDetector(t)
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			// A single malformed event is a 100% skip rate.
			_, err := detector.Detect([]dto.ProviderEvent{tt.event}, "AAPL")
			var ingestion *dto.SignalIngestionError
			assert.True(t, errors.As(err, &ingestion))
		})
	}
}

func TestAggregateEmptyWindow(t *testing.T) {
	agg := newTestDetector(t).Aggregate(nil, "AAPL", time.Now())
	assert.Equal(t, 0.0, agg.Score)
	assert.True(t, agg.NoSignal)
	assert.Equal(t, 0, agg.EventCount)
}

func TestAggregateWeightedDecay(t *testing.T) {
	now := time.Now()
	events := []entity.SignalEvent{
		{Ticker: "AAPL", Strength: 80, Confidence: 0.5, Timestamp: now},
		// Half the TTL old: decay halves the weight.
		{Ticker: "AAPL", Strength: 40, Confidence: 0.5, Timestamp: now.Add(-7 * 24 * time.Hour)},
	}

	agg := newTestDetector(t).Aggregate(events, "AAPL", now)
	assert.False(t, agg.NoSignal)
	assert.Equal(t, 2, agg.EventCount)
	// (80*0.5 + 40*0.25) / (0.5 + 0.25)
	assert.InDelta(t, 66.667, agg.Score, 0.01)
}

func TestAggregateExpiredEventsOnly(t *testing.T) {
	now := time.Now()
	events := []entity.SignalEvent{
		{Ticker: "AAPL", Strength: 90, Confidence: 0.9, Timestamp: now.Add(-15 * 24 * time.Hour)},
	}

	agg := newTestDetector(t).Aggregate(events, "AAPL", now)
	assert.Equal(t, 0.0, agg.Score)
	assert.True(t, agg.NoSignal)
}
