package repository

import (
	"context"

	"golang-invest-advisor/internal/entity"

	"gorm.io/gorm"
)

// UserProfileRepository reads user risk profiles. Profiles are owned by the
// user-management service; this core never writes them.
type UserProfileRepository interface {
	GetByUserID(ctx context.Context, userID int64) (*entity.UserRiskProfile, error)
}

// NewUserProfileRepository creates a new instance of UserProfileRepository.
func NewUserProfileRepository(db *gorm.DB) UserProfileRepository {
	return &userProfileRepository{db: db}
}

type userProfileRepository struct {
	db *gorm.DB
}

// GetByUserID returns the risk profile for a user, or nil when none exists.
func (r *userProfileRepository) GetByUserID(ctx context.Context, userID int64) (*entity.UserRiskProfile, error) {
	var profile entity.UserRiskProfile
	result := r.db.WithContext(ctx).Where("user_id = ?", userID).First(&profile)
	if result.Error != nil {
		if result.Error == gorm.ErrRecordNotFound {
			return nil, nil
		}
		return nil, result.Error
	}
	return &profile, nil
}
