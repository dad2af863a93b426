package repository

import (
	"context"

	"golang-invest-advisor/internal/entity"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// ResearchReportRepository holds the single current report per ticker with
// replace semantics.
type ResearchReportRepository interface {
	Replace(ctx context.Context, report *entity.ResearchReport) error
	GetCurrent(ctx context.Context, ticker string) (*entity.ResearchReport, error)
}

// NewResearchReportRepository creates a new instance of ResearchReportRepository.
func NewResearchReportRepository(db *gorm.DB) ResearchReportRepository {
	return &researchReportRepository{db: db}
}

type researchReportRepository struct {
	db *gorm.DB
}

// Replace upserts the current report for the ticker, overwriting any prior one.
func (r *researchReportRepository) Replace(ctx context.Context, report *entity.ResearchReport) error {
	return r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "ticker"}},
		DoUpdates: clause.AssignmentColumns([]string{
			"summary", "structured_json", "confidence_score", "schema_version",
			"attempts", "degraded", "generated_at", "updated_at",
		}),
	}).Create(report).Error
}

// GetCurrent returns the current report for a ticker, or nil when none.
func (r *researchReportRepository) GetCurrent(ctx context.Context, ticker string) (*entity.ResearchReport, error) {
	var report entity.ResearchReport
	result := r.db.WithContext(ctx).Where("ticker = ?", ticker).First(&report)
	if result.Error != nil {
		if result.Error == gorm.ErrRecordNotFound {
			return nil, nil
		}
		return nil, result.Error
	}
	return &report, nil
}
