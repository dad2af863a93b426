package repository

import (
	"context"

	"golang-invest-advisor/internal/entity"

	"gorm.io/gorm"
)

// WatchlistRepository lists the tickers tracked by the nightly jobs and used
// as the default candidate universe for ranking runs.
type WatchlistRepository interface {
	GetActiveTickers(ctx context.Context) ([]string, error)
}

// NewWatchlistRepository creates a new instance of WatchlistRepository.
func NewWatchlistRepository(db *gorm.DB) WatchlistRepository {
	return &watchlistRepository{db: db}
}

type watchlistRepository struct {
	db *gorm.DB
}

// GetActiveTickers returns all active watchlist tickers in lexical order.
func (r *watchlistRepository) GetActiveTickers(ctx context.Context) ([]string, error) {
	var tickers []string
	result := r.db.WithContext(ctx).
		Model(&entity.Stock{}).
		Where("active = ?", true).
		Order("ticker asc").
		Pluck("ticker", &tickers)
	if result.Error != nil {
		return nil, result.Error
	}
	return tickers, nil
}
