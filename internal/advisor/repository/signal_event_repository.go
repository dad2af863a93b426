package repository

import (
	"context"
	"time"

	"golang-invest-advisor/internal/entity"

	"gorm.io/gorm"
)

// SignalEventRepository is the append-only store of classified signals.
type SignalEventRepository interface {
	Append(ctx context.Context, events []entity.SignalEvent) error
	ListSince(ctx context.Context, ticker string, since time.Time) ([]entity.SignalEvent, error)
}

// NewSignalEventRepository creates a new instance of SignalEventRepository.
func NewSignalEventRepository(db *gorm.DB) SignalEventRepository {
	return &signalEventRepository{db: db}
}

type signalEventRepository struct {
	db *gorm.DB
}

// Append inserts a batch of signal events.
func (r *signalEventRepository) Append(ctx context.Context, events []entity.SignalEvent) error {
	if len(events) == 0 {
		return nil
	}
	return r.db.WithContext(ctx).Create(&events).Error
}

// ListSince returns signals for a ticker newer than the given time, oldest first.
func (r *signalEventRepository) ListSince(ctx context.Context, ticker string, since time.Time) ([]entity.SignalEvent, error) {
	var events []entity.SignalEvent
	result := r.db.WithContext(ctx).
		Where("ticker = ? AND timestamp >= ?", ticker, since).
		Order("timestamp asc").
		Find(&events)
	if result.Error != nil {
		return nil, result.Error
	}
	return events, nil
}
