package service

import (
	"context"
	"errors"
	"testing"

	"golang-invest-advisor/internal/advisor/dto"
	"golang-invest-advisor/internal/entity"

	"github.com/stretchr/testify/assert"
)

type stubRiskSource struct {
	analyses map[string]*dto.RiskAnalysis
	errs     map[string]error
}

func (s *stubRiskSource) GetRisk(ctx context.Context, ticker string) (*dto.RiskAnalysis, error) {
	if err, ok := s.errs[ticker]; ok {
		return nil, err
	}
	return s.analyses[ticker], nil
}

type stubResearchSource struct {
	reports map[string]*dto.ResearchReport
	errs    map[string]error
}

func (s *stubResearchSource) GetResearch(ctx context.Context, ticker string, force bool) (*dto.ResearchReport, error) {
	if err, ok := s.errs[ticker]; ok {
		return nil, err
	}
	return s.reports[ticker], nil
}

type stubSignalSource struct {
	aggregates map[string]*dto.SignalAggregate
	errs       map[string]error
}

func (s *stubSignalSource) GetSignalAggregate(ctx context.Context, ticker string) (*dto.SignalAggregate, error) {
	if err, ok := s.errs[ticker]; ok {
		return nil, err
	}
	return s.aggregates[ticker], nil
}

type stubMacroFit struct {
	fits map[string]float64
	err  error
}

func (s *stubMacroFit) GetFit(ctx context.Context, ticker string, tags []string) (float64, error) {
	if s.err != nil {
		return 0, s.err
	}
	return s.fits[ticker], nil
}

// rankingFixture builds stub sources where every ticker shares the same
// moderate-band inputs unless overridden.
type rankingFixture struct {
	risk     *stubRiskSource
	research *stubResearchSource
	signals  *stubSignalSource
	macro    *stubMacroFit
}

func newRankingFixture(tickers ...string) *rankingFixture {
	f := &rankingFixture{
		risk:     &stubRiskSource{analyses: map[string]*dto.RiskAnalysis{}, errs: map[string]error{}},
		research: &stubResearchSource{reports: map[string]*dto.ResearchReport{}, errs: map[string]error{}},
		signals:  &stubSignalSource{aggregates: map[string]*dto.SignalAggregate{}, errs: map[string]error{}},
		macro:    &stubMacroFit{fits: map[string]float64{}},
	}
	for _, ticker := range tickers {
		f.risk.analyses[ticker] = &dto.RiskAnalysis{Ticker: ticker, Score: 50.5, Band: "Moderate"}
		f.research.reports[ticker] = &dto.ResearchReport{
			ResearchReportPayload: dto.ResearchReportPayload{Ticker: ticker, ConfidenceScore: 0.8},
		}
		f.signals.aggregates[ticker] = &dto.SignalAggregate{Ticker: ticker, Score: 60, EventCount: 2}
		f.macro.fits[ticker] = 50
	}
	return f
}

func (f *rankingFixture) engine(t *testing.T) RecommendationEngine {
	return NewRecommendationEngine(newTestConfig(), newTestLogger(t), f.risk, f.research, f.signals, f.macro)
}

func moderateProfile(userID int64) *entity.UserRiskProfile {
	return &entity.UserRiskProfile{UserID: userID, RiskBand: entity.RiskBandModerate}
}

func TestRankCompositeScore(t *testing.T) {
	f := newRankingFixture("AAPL")

	run, err := f.engine(t).Rank(context.Background(), moderateProfile(1), []string{"AAPL"}, 0)

	assert.NoError(t, err)
	assert.Len(t, run.Recommendations, 1)
	rec := run.Recommendations[0]
	assert.Equal(t, 1, rec.Rank)
	assert.InDelta(t, 80, rec.ResearchScore, 0.001)
	assert.InDelta(t, 60, rec.SignalScore, 0.001)
	assert.InDelta(t, 100, rec.RiskAlignmentScore, 0.001)
	assert.InDelta(t, 50, rec.MacroFitScore, 0.001)
	// 0.4*80 + 0.3*60 + 0.2*100 + 0.1*50
	assert.InDelta(t, 75.0, rec.FinalScore, 0.001)
	assert.Empty(t, run.Diagnostics)
}

func TestRankBandMismatchExcluded(t *testing.T) {
	f := newRankingFixture("AAPL", "TSLA")
	f.risk.analyses["TSLA"] = &dto.RiskAnalysis{Ticker: "TSLA", Score: 85, Band: "Aggressive"}

	run, err := f.engine(t).Rank(context.Background(), moderateProfile(1), []string{"AAPL", "TSLA"}, 0)

	assert.NoError(t, err)
	assert.Len(t, run.Recommendations, 1)
	assert.Equal(t, "AAPL", run.Recommendations[0].Ticker)
	assert.Len(t, run.Diagnostics, 1)
	assert.Equal(t, "TSLA", run.Diagnostics[0].Ticker)
	assert.Contains(t, run.Diagnostics[0].Reason, "risk band")
}

func TestRankCrossBandExplorationIncludes(t *testing.T) {
	f := newRankingFixture("AAPL", "TSLA")
	f.risk.analyses["TSLA"] = &dto.RiskAnalysis{Ticker: "TSLA", Score: 85, Band: "Aggressive"}

	profile := moderateProfile(1)
	profile.CrossBandExploration = true

	run, err := f.engine(t).Rank(context.Background(), profile, []string{"AAPL", "TSLA"}, 0)

	assert.NoError(t, err)
	assert.Len(t, run.Recommendations, 2)
	assert.Empty(t, run.Diagnostics)

	// The cross-band candidate pays through risk alignment: |85 - 50.5|.
	var tsla dto.Recommendation
	for _, rec := range run.Recommendations {
		if rec.Ticker == "TSLA" {
			tsla = rec
		}
	}
	assert.InDelta(t, 65.5, tsla.RiskAlignmentScore, 0.001)
}

func TestRankToleranceOverride(t *testing.T) {
	f := newRankingFixture("AAPL")
	f.risk.analyses["AAPL"] = &dto.RiskAnalysis{Ticker: "AAPL", Score: 40, Band: "Moderate"}

	profile := moderateProfile(1)
	profile.ToleranceOverride = floatPtr(40)

	run, err := f.engine(t).Rank(context.Background(), profile, []string{"AAPL"}, 0)

	assert.NoError(t, err)
	assert.Len(t, run.Recommendations, 1)
	assert.InDelta(t, 100, run.Recommendations[0].RiskAlignmentScore, 0.001)
}

func TestRankDeterministicOrderAndContiguousRanks(t *testing.T) {
	f := newRankingFixture("AAA", "BBB", "CCC", "DDD")
	// Spread final scores through research confidence.
	f.research.reports["AAA"].ConfidenceScore = 0.9
	f.research.reports["BBB"].ConfidenceScore = 0.5
	f.research.reports["CCC"].ConfidenceScore = 0.7
	f.research.reports["DDD"].ConfidenceScore = 0.3

	run, err := f.engine(t).Rank(context.Background(), moderateProfile(1), []string{"DDD", "BBB", "AAA", "CCC"}, 0)

	assert.NoError(t, err)
	assert.Len(t, run.Recommendations, 4)
	for i, rec := range run.Recommendations {
		assert.Equal(t, i+1, rec.Rank)
	}
	assert.Equal(t, "AAA", run.Recommendations[0].Ticker)
	assert.Equal(t, "CCC", run.Recommendations[1].Ticker)
	assert.Equal(t, "BBB", run.Recommendations[2].Ticker)
	assert.Equal(t, "DDD", run.Recommendations[3].Ticker)
}

func TestRankRiskAlignmentTieBreak(t *testing.T) {
	// Equal final scores with different risk alignments: alignment decides
	// before the ticker does. BBB aligns better, AAA wins alphabetically, so
	// BBB first proves the alignment comparison ran.
	f := newRankingFixture("AAA", "BBB")
	// BBB: 0.4*80 + 0.3*60 + 0.2*90 + 0.1*50 = 73.0
	f.risk.analyses["BBB"] = &dto.RiskAnalysis{Ticker: "BBB", Score: 40.5, Band: "Moderate"}
	// AAA: 0.4*83.25 + 0.3*60 + 0.2*83.5 + 0.1*50 = 73.0
	f.risk.analyses["AAA"] = &dto.RiskAnalysis{Ticker: "AAA", Score: 34, Band: "Moderate"}
	f.research.reports["AAA"].ConfidenceScore = 0.8325

	run, err := f.engine(t).Rank(context.Background(), moderateProfile(1), []string{"AAA", "BBB"}, 0)

	assert.NoError(t, err)
	assert.Len(t, run.Recommendations, 2)
	assert.InDelta(t, run.Recommendations[0].FinalScore, run.Recommendations[1].FinalScore, 0.001)
	assert.Equal(t, "BBB", run.Recommendations[0].Ticker)
	assert.InDelta(t, 90, run.Recommendations[0].RiskAlignmentScore, 0.001)
	assert.Equal(t, "AAA", run.Recommendations[1].Ticker)
	assert.InDelta(t, 83.5, run.Recommendations[1].RiskAlignmentScore, 0.001)
}

func TestRankModerateUserMixedUniverse(t *testing.T) {
	// A moderate user over a mixed universe: the in-band candidate is scored
	// against the moderate band target of 50.5 and the aggressive candidate is
	// excluded with a diagnostic.
	f := newRankingFixture("AAA", "BBB")
	f.risk.analyses["AAA"] = &dto.RiskAnalysis{Ticker: "AAA", Score: 50, Band: "Moderate"}
	f.risk.analyses["BBB"] = &dto.RiskAnalysis{Ticker: "BBB", Score: 85, Band: "Aggressive"}

	run, err := f.engine(t).Rank(context.Background(), moderateProfile(1), []string{"AAA", "BBB"}, 0)

	assert.NoError(t, err)
	assert.Len(t, run.Recommendations, 1)
	rec := run.Recommendations[0]
	assert.Equal(t, "AAA", rec.Ticker)
	assert.Equal(t, 1, rec.Rank)
	assert.InDelta(t, 99.5, rec.RiskAlignmentScore, 0.001)
	// 0.4*80 + 0.3*60 + 0.2*99.5 + 0.1*50
	assert.InDelta(t, 74.9, rec.FinalScore, 0.001)

	assert.Len(t, run.Diagnostics, 1)
	assert.Equal(t, "BBB", run.Diagnostics[0].Ticker)
	assert.Contains(t, run.Diagnostics[0].Reason, "risk band")
}

func TestRankTickerTieBreak(t *testing.T) {
	// Identical inputs for both candidates: ticker breaks the tie.
	f := newRankingFixture("BBB", "AAA")

	run, err := f.engine(t).Rank(context.Background(), moderateProfile(1), []string{"BBB", "AAA"}, 0)

	assert.NoError(t, err)
	assert.Len(t, run.Recommendations, 2)
	assert.Equal(t, "AAA", run.Recommendations[0].Ticker)
	assert.Equal(t, "BBB", run.Recommendations[1].Ticker)
}

func TestRankFailingCandidateBecomesDiagnostic(t *testing.T) {
	f := newRankingFixture("AAPL", "MSFT")
	f.risk.errs["MSFT"] = errors.New("provider unavailable")

	run, err := f.engine(t).Rank(context.Background(), moderateProfile(1), []string{"AAPL", "MSFT"}, 0)

	assert.NoError(t, err)
	assert.Len(t, run.Recommendations, 1)
	assert.Equal(t, "AAPL", run.Recommendations[0].Ticker)
	assert.Len(t, run.Diagnostics, 1)
	assert.Equal(t, "MSFT", run.Diagnostics[0].Ticker)
}

func TestRankMacroFitFailureUsesNeutral(t *testing.T) {
	f := newRankingFixture("AAPL")
	f.macro.err = errors.New("macro provider down")

	run, err := f.engine(t).Rank(context.Background(), moderateProfile(1), []string{"AAPL"}, 0)

	assert.NoError(t, err)
	assert.Len(t, run.Recommendations, 1)
	assert.InDelta(t, macroFitNeutral, run.Recommendations[0].MacroFitScore, 0.001)
}

func TestRankTopNTruncation(t *testing.T) {
	f := newRankingFixture("AAA", "BBB", "CCC")
	f.research.reports["AAA"].ConfidenceScore = 0.9
	f.research.reports["BBB"].ConfidenceScore = 0.6
	f.research.reports["CCC"].ConfidenceScore = 0.3

	run, err := f.engine(t).Rank(context.Background(), moderateProfile(1), []string{"AAA", "BBB", "CCC"}, 2)

	assert.NoError(t, err)
	assert.Len(t, run.Recommendations, 2)
	assert.Equal(t, "AAA", run.Recommendations[0].Ticker)
	assert.Equal(t, 2, run.Recommendations[1].Rank)
}
