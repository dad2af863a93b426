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
)

// marketEventRepository fetches raw, unclassified events from the external
// event provider.
type marketEventRepository struct {
	client *http.Client
	cfg    *config.Config
	logger *logger.Logger
}

// NewMarketEventRepository creates a new instance of marketEventRepository.
func NewMarketEventRepository(cfg *config.Config, log *logger.Logger) MarketEventRepository {
	return &marketEventRepository{
		client: &http.Client{
			Timeout: 30 * time.Second,
		},
		cfg:    cfg,
		logger: log,
	}
}

// GetRecentEvents returns the provider's raw events for a ticker within the
// lookback window. Classification and quality checks happen downstream.
func (r *marketEventRepository) GetRecentEvents(ctx context.Context, ticker string, window time.Duration) ([]dto.ProviderEvent, error) {
	since := time.Now().UTC().Add(-window)
	apiURL := fmt.Sprintf("%s/v1/events/%s?since=%s", r.cfg.MarketEvents.BaseURL, ticker, since.Format(time.RFC3339))

	req, err := http.NewRequestWithContext(ctx, "GET", apiURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create new http request: %w", err)
	}

	resp, err := r.client.Do(req)
	if err != nil {
		r.logger.Error("Failed to fetch market events", logger.ErrorField(err), logger.StringField("ticker", ticker))
		return nil, fmt.Errorf("failed to fetch market events for %s: %w", ticker, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("received non-OK response from event provider: %d - %s", resp.StatusCode, string(body))
	}

	var events []dto.ProviderEvent
	if err := json.NewDecoder(resp.Body).Decode(&events); err != nil {
		return nil, fmt.Errorf("failed to decode event response: %w", err)
	}

	return events, nil
}
