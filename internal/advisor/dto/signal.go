package dto

import (
	"time"

	"golang-invest-advisor/internal/entity"
)

// Provider event kinds accepted by the signal detector.
const (
	EventKindEarnings      = "earnings"
	EventKindInstitutional = "institutional_flow"
	EventKindInsider       = "insider_transaction"
	EventKindSentiment     = "sentiment"
	EventKindOptionsVolume = "options_volume"
)

// ProviderEvent is one raw event from the market-event provider. Which fields
// are required depends on Kind; events missing their required fields are
// counted as malformed and skipped.
type ProviderEvent struct {
	Kind      string    `json:"kind"`
	Timestamp time.Time `json:"timestamp"`

	// earnings
	ActualEPS    *float64 `json:"actual_eps,omitempty"`
	EstimatedEPS *float64 `json:"estimated_eps,omitempty"`

	// institutional_flow: net share-count delta over the reporting window.
	NetShareDelta     *float64 `json:"net_share_delta,omitempty"`
	SharesOutstanding *float64 `json:"shares_outstanding,omitempty"`
	InstitutionCount  *int     `json:"institution_count,omitempty"`

	// insider_transaction (Form-4 equivalent)
	Side              string   `json:"side,omitempty"` // "buy" or "sell"
	TransactionValue  *float64 `json:"transaction_value,omitempty"`
	FilerAverageValue *float64 `json:"filer_average_value,omitempty"`

	// sentiment
	SentimentVelocity *float64 `json:"sentiment_velocity,omitempty"`
	SentimentStdDev   *float64 `json:"sentiment_std_dev,omitempty"`
	SampleSize        *int     `json:"sample_size,omitempty"`

	// options_volume
	OptionsVolume        *float64 `json:"options_volume,omitempty"`
	AverageOptionsVolume *float64 `json:"average_options_volume,omitempty"`
	SessionCount         *int     `json:"session_count,omitempty"`

	Source map[string]interface{} `json:"source,omitempty"`
}

// SignalReadout pairs the stored signals in a lookback window with their
// aggregate score.
type SignalReadout struct {
	Events    []entity.SignalEvent `json:"events"`
	Aggregate *SignalAggregate     `json:"aggregate"`
}

// SignalAggregate is the windowed signal score for a ticker. NoSignal
// distinguishes an empty window from a genuine zero score.
type SignalAggregate struct {
	Ticker      string    `json:"ticker"`
	Score       float64   `json:"score"`
	EventCount  int       `json:"event_count"`
	NoSignal    bool      `json:"no_signal"`
	WindowStart time.Time `json:"window_start"`
	WindowEnd   time.Time `json:"window_end"`
}
