package repository

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"golang-invest-advisor/internal/advisor/config"
	"golang-invest-advisor/internal/advisor/dto"
	"golang-invest-advisor/pkg/logger"

	"golang.org/x/time/rate"
)

// fundamentalsRepository fetches fundamentals snapshots from the external
// data provider.
type fundamentalsRepository struct {
	client  *http.Client
	cfg     *config.Config
	logger  *logger.Logger
	limiter *rate.Limiter
}

// NewFundamentalsRepository creates a new instance of fundamentalsRepository.
func NewFundamentalsRepository(cfg *config.Config, log *logger.Logger) (FundamentalsRepository, error) {
	if cfg.Fundamentals.MaxRequestPerMinute <= 0 {
		return nil, fmt.Errorf("fundamentals max_request_per_minute must be positive")
	}
	secondsPerRequest := time.Minute / time.Duration(cfg.Fundamentals.MaxRequestPerMinute)

	return &fundamentalsRepository{
		client: &http.Client{
			Timeout: 30 * time.Second,
		},
		cfg:     cfg,
		logger:  log,
		limiter: rate.NewLimiter(rate.Every(secondsPerRequest), 1),
	}, nil
}

// GetSnapshot fetches the current fundamentals snapshot for a ticker. Missing
// fields stay nil; completeness is the risk scorer's concern.
func (r *fundamentalsRepository) GetSnapshot(ctx context.Context, ticker string) (*dto.FundamentalsSnapshot, error) {
	if err := r.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("failed to wait for request limit: %w", err)
	}

	apiURL := fmt.Sprintf("%s/v1/fundamentals/%s", r.cfg.Fundamentals.BaseURL, ticker)
	req, err := http.NewRequestWithContext(ctx, "GET", apiURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create new http request: %w", err)
	}

	resp, err := r.client.Do(req)
	if err != nil {
		r.logger.Error("Failed to fetch fundamentals", logger.ErrorField(err), logger.StringField("ticker", ticker))
		return nil, fmt.Errorf("failed to fetch fundamentals for %s: %w", ticker, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("received non-OK response from fundamentals provider: %d - %s", resp.StatusCode, string(body))
	}

	var snapshot dto.FundamentalsSnapshot
	if err := json.NewDecoder(resp.Body).Decode(&snapshot); err != nil {
		return nil, fmt.Errorf("failed to decode fundamentals response: %w", err)
	}
	snapshot.Ticker = ticker
	if snapshot.AsOfDate.IsZero() {
		snapshot.AsOfDate = time.Now().UTC().Truncate(24 * time.Hour)
	}

	return &snapshot, nil
}
