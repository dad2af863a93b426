package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"golang-invest-advisor/internal/advisor/dto"
	"golang-invest-advisor/internal/advisor/repository"
	"golang-invest-advisor/internal/entity"

	"github.com/stretchr/testify/assert"
	"gorm.io/datatypes"
)

type stubFundamentalsRepo struct {
	snapshot *dto.FundamentalsSnapshot
	err      error
	calls    int
}

func (r *stubFundamentalsRepo) GetSnapshot(ctx context.Context, ticker string) (*dto.FundamentalsSnapshot, error) {
	r.calls++
	if r.err != nil {
		return nil, r.err
	}
	return r.snapshot, nil
}

type stubRiskScoreRepo struct {
	latest  *entity.RiskScore
	created []*entity.RiskScore
}

func (r *stubRiskScoreRepo) Create(ctx context.Context, score *entity.RiskScore) error {
	r.created = append(r.created, score)
	return nil
}

func (r *stubRiskScoreRepo) GetLatest(ctx context.Context, ticker string) (*entity.RiskScore, error) {
	if r.latest == nil || r.latest.Ticker != ticker {
		return nil, nil
	}
	return r.latest, nil
}

type stubUserProfileRepo struct {
	profile *entity.UserRiskProfile
}

func (r *stubUserProfileRepo) GetByUserID(ctx context.Context, userID int64) (*entity.UserRiskProfile, error) {
	return r.profile, nil
}

func newTestAdvisorService(
	t *testing.T,
	fundamentals repository.FundamentalsRepository,
	riskScores repository.RiskScoreRepository,
	profiles repository.UserProfileRepository,
) AdvisorService {
	return NewAdvisorService(newTestConfig(), newTestLogger(t),
		nil, nil, nil,
		fundamentals, nil, nil, riskScores, nil, nil, profiles, nil,
		nil, nil)
}

func TestGetRiskServesPersistedScoreOnProviderOutage(t *testing.T) {
	fundamentals := &stubFundamentalsRepo{err: errors.New("provider timeout")}
	riskScores := &stubRiskScoreRepo{latest: &entity.RiskScore{
		Ticker:      "AAPL",
		AsOfDate:    time.Date(2026, 8, 1, 0, 0, 0, 0, time.UTC),
		Score:       42.5,
		Band:        entity.RiskBandModerate,
		Components:  datatypes.JSON(`{"volatility_score":12.5}`),
		Explanation: "moderate risk driven by volatility",
	}}
	svc := newTestAdvisorService(t, fundamentals, riskScores, nil)

	analysis, err := svc.GetRisk(context.Background(), "AAPL")

	assert.NoError(t, err)
	assert.Equal(t, "AAPL", analysis.Ticker)
	assert.InDelta(t, 42.5, analysis.Score, 0.001)
	assert.Equal(t, "Moderate", analysis.Band)
	assert.InDelta(t, 12.5, analysis.Components.VolatilityScore, 0.001)

	// The fallback entry is not cached: a recovered provider is retried.
	_, err = svc.GetRisk(context.Background(), "AAPL")
	assert.NoError(t, err)
	assert.Equal(t, 2, fundamentals.calls)
}

func TestGetRiskProviderOutageWithoutHistoryFails(t *testing.T) {
	fundamentals := &stubFundamentalsRepo{err: errors.New("provider timeout")}
	svc := newTestAdvisorService(t, fundamentals, &stubRiskScoreRepo{}, nil)

	_, err := svc.GetRisk(context.Background(), "AAPL")

	assert.Error(t, err)
	assert.Contains(t, err.Error(), "provider timeout")
}

func TestRecommendMissingProfile(t *testing.T) {
	svc := newTestAdvisorService(t, &stubFundamentalsRepo{}, &stubRiskScoreRepo{}, &stubUserProfileRepo{})

	_, err := svc.Recommend(context.Background(), &dto.RecommendRequest{UserID: 7})

	assert.ErrorIs(t, err, ErrProfileNotFound)
	assert.Contains(t, err.Error(), "user 7")
}
