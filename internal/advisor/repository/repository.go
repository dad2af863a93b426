package repository

import (
	"context"
	"time"

	"golang-invest-advisor/internal/advisor/dto"
)

// CompletionRepository abstracts the external completion service behind a
// single capability so orchestration can be tested against deterministic
// fakes. Schema validation downstream is the defense against the provider's
// non-determinism.
type CompletionRepository interface {
	Complete(ctx context.Context, prompt string) (string, error)
}

// FundamentalsRepository returns the current fundamentals snapshot by ticker.
type FundamentalsRepository interface {
	GetSnapshot(ctx context.Context, ticker string) (*dto.FundamentalsSnapshot, error)
}

// MarketEventRepository returns raw, unclassified provider events for a
// ticker within a lookback window.
type MarketEventRepository interface {
	GetRecentEvents(ctx context.Context, ticker string, window time.Duration) ([]dto.ProviderEvent, error)
}

// MacroFitRepository scores sector/theme alignment between a ticker and the
// user's macro preference tags.
type MacroFitRepository interface {
	GetFit(ctx context.Context, ticker string, tags []string) (float64, error)
}

// LeaseRepository is a per-key mutual-exclusion token with a TTL. It is the
// only cross-call shared mutable resource in this core.
type LeaseRepository interface {
	// Acquire returns true if the lease was obtained.
	Acquire(ctx context.Context, key string, ttl time.Duration) (bool, error)
	// Release frees the lease if still held by this owner.
	Release(ctx context.Context, key string) error
}
