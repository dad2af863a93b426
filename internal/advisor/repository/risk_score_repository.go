package repository

import (
	"context"

	"golang-invest-advisor/internal/entity"

	"gorm.io/gorm"
)

// RiskScoreRepository persists risk scoring results. Scores are never
// mutated, only superseded by rows with a newer as-of date.
type RiskScoreRepository interface {
	Create(ctx context.Context, score *entity.RiskScore) error
	GetLatest(ctx context.Context, ticker string) (*entity.RiskScore, error)
}

// NewRiskScoreRepository creates a new instance of RiskScoreRepository.
func NewRiskScoreRepository(db *gorm.DB) RiskScoreRepository {
	return &riskScoreRepository{db: db}
}

type riskScoreRepository struct {
	db *gorm.DB
}

// Create appends a new risk score row.
func (r *riskScoreRepository) Create(ctx context.Context, score *entity.RiskScore) error {
	return r.db.WithContext(ctx).Create(score).Error
}

// GetLatest returns the most recent score for a ticker, or nil when none.
func (r *riskScoreRepository) GetLatest(ctx context.Context, ticker string) (*entity.RiskScore, error) {
	var score entity.RiskScore
	result := r.db.WithContext(ctx).Where("ticker = ?", ticker).Order("as_of_date desc").First(&score)
	if result.Error != nil {
		if result.Error == gorm.ErrRecordNotFound {
			return nil, nil
		}
		return nil, result.Error
	}
	return &score, nil
}
