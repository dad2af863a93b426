package repository

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"golang-invest-advisor/internal/advisor/config"
	"golang-invest-advisor/pkg/logger"
)

// macroFitRepository queries the external macro-tagging collaborator for
// sector/theme alignment between a ticker and user preference tags.
type macroFitRepository struct {
	client *http.Client
	cfg    *config.Config
	logger *logger.Logger
}

// NewMacroFitRepository creates a new instance of macroFitRepository.
func NewMacroFitRepository(cfg *config.Config, log *logger.Logger) MacroFitRepository {
	return &macroFitRepository{
		client: &http.Client{
			Timeout: 10 * time.Second,
		},
		cfg:    cfg,
		logger: log,
	}
}

// GetFit returns the macro-fit score in [0,100]. Callers treat any error as
// "provider unavailable" and fall back to the neutral score.
func (r *macroFitRepository) GetFit(ctx context.Context, ticker string, tags []string) (float64, error) {
	apiURL := fmt.Sprintf("%s/v1/macro-fit/%s?tags=%s", r.cfg.MacroFit.BaseURL, ticker, strings.Join(tags, ","))

	req, err := http.NewRequestWithContext(ctx, "GET", apiURL, nil)
	if err != nil {
		return 0, fmt.Errorf("failed to create new http request: %w", err)
	}

	resp, err := r.client.Do(req)
	if err != nil {
		return 0, fmt.Errorf("failed to fetch macro fit for %s: %w", ticker, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return 0, fmt.Errorf("received non-OK response from macro-fit provider: %d", resp.StatusCode)
	}

	var body struct {
		Score float64 `json:"score"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return 0, fmt.Errorf("failed to decode macro-fit response: %w", err)
	}

	return body.Score, nil
}
