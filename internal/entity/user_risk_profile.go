package entity

import (
	"time"

	"gorm.io/datatypes"
)

// UserRiskProfile is owned by the user-management service and read-only here.
type UserRiskProfile struct {
	ID                   int64          `json:"id"`
	UserID               int64          `json:"user_id" gorm:"uniqueIndex"`
	RiskBand             RiskBand       `json:"risk_band"`
	ToleranceOverride    *float64       `json:"tolerance_override"`
	MacroTags            datatypes.JSON `json:"macro_tags" gorm:"type:jsonb"`
	CrossBandExploration bool           `json:"cross_band_exploration"`
	CreatedAt            time.Time      `json:"created_at"`
	UpdatedAt            time.Time      `json:"updated_at"`
}

func (UserRiskProfile) TableName() string {
	return "user_risk_profiles"
}
