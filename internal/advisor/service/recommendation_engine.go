package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"sort"
	"sync"
	"time"

	"golang-invest-advisor/internal/advisor/config"
	"golang-invest-advisor/internal/advisor/dto"
	"golang-invest-advisor/internal/advisor/repository"
	"golang-invest-advisor/internal/entity"
	"golang-invest-advisor/pkg/logger"
	"golang-invest-advisor/pkg/utils"
)

// Composite score weights. They must sum to 1.
const (
	weightResearch      = 0.4
	weightSignal        = 0.3
	weightRiskAlignment = 0.2
	weightMacroFit      = 0.1
)

// macroFitNeutral is used when the macro-fit provider is unavailable so one
// flaky collaborator cannot exclude an otherwise rankable candidate.
const macroFitNeutral = 50.0

// RiskSource, ResearchSource and SignalSource are the per-ticker score inputs
// of a ranking run. The advisor service implements all three on top of its
// own pipeline.
type RiskSource interface {
	GetRisk(ctx context.Context, ticker string) (*dto.RiskAnalysis, error)
}

type ResearchSource interface {
	GetResearch(ctx context.Context, ticker string, force bool) (*dto.ResearchReport, error)
}

type SignalSource interface {
	GetSignalAggregate(ctx context.Context, ticker string) (*dto.SignalAggregate, error)
}

// RecommendationEngine ranks candidate tickers for a user profile. Candidates
// are evaluated concurrently; any candidate whose risk, research or signal
// input fails is dropped with a diagnostic instead of failing the run.
type RecommendationEngine interface {
	Rank(ctx context.Context, profile *entity.UserRiskProfile, candidates []string, topN int) (*dto.RecommendationRun, error)
}

// NewRecommendationEngine creates a new RecommendationEngine.
func NewRecommendationEngine(
	cfg *config.Config,
	log *logger.Logger,
	riskSource RiskSource,
	researchSource ResearchSource,
	signalSource SignalSource,
	macroFitRepo repository.MacroFitRepository,
) RecommendationEngine {
	return &recommendationEngine{
		cfg:            cfg,
		log:            log,
		riskSource:     riskSource,
		researchSource: researchSource,
		signalSource:   signalSource,
		macroFitRepo:   macroFitRepo,
	}
}

type recommendationEngine struct {
	cfg            *config.Config
	log            *logger.Logger
	riskSource     RiskSource
	researchSource ResearchSource
	signalSource   SignalSource
	macroFitRepo   repository.MacroFitRepository
}

// Rank evaluates every candidate, filters by the user's risk band, sorts
// deterministically and assigns contiguous ranks 1..N. Ordering is final
// score desc, then risk alignment desc, then research score desc, then ticker
// asc, so identical inputs always produce identical runs.
func (e *recommendationEngine) Rank(ctx context.Context, profile *entity.UserRiskProfile, candidates []string, topN int) (*dto.RecommendationRun, error) {
	if profile == nil {
		return nil, fmt.Errorf("user risk profile is required")
	}
	if topN <= 0 {
		topN = e.cfg.Advisor.TopN
	}

	run := &dto.RecommendationRun{
		UserID:          profile.UserID,
		GeneratedAt:     time.Now(),
		Recommendations: []dto.Recommendation{},
		Diagnostics:     []dto.CandidateDiagnostic{},
	}

	var (
		mu  sync.Mutex
		wg  sync.WaitGroup
		sem = make(chan struct{}, e.cfg.Advisor.RankingConcurrency)
	)

	for _, ticker := range candidates {
		wg.Add(1)
		go func(ticker string) {
			defer wg.Done()

			select {
			case sem <- struct{}{}:
				defer func() { <-sem }()
			case <-ctx.Done():
				mu.Lock()
				run.Diagnostics = append(run.Diagnostics, dto.CandidateDiagnostic{
					Ticker: ticker,
					Reason: "ranking deadline exceeded before evaluation",
				})
				mu.Unlock()
				return
			}

			rec, err := e.evaluate(ctx, profile, ticker)
			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				var excluded *dto.CandidateExcludedError
				if !errors.As(err, &excluded) {
					excluded = &dto.CandidateExcludedError{Ticker: ticker, Reason: err.Error()}
				}
				run.Diagnostics = append(run.Diagnostics, dto.CandidateDiagnostic{
					Ticker: excluded.Ticker,
					Reason: excluded.Reason,
				})
				return
			}
			run.Recommendations = append(run.Recommendations, *rec)
		}(ticker)
	}
	wg.Wait()

	sort.SliceStable(run.Recommendations, func(i, j int) bool {
		a, b := run.Recommendations[i], run.Recommendations[j]
		if a.FinalScore != b.FinalScore {
			return a.FinalScore > b.FinalScore
		}
		if a.RiskAlignmentScore != b.RiskAlignmentScore {
			return a.RiskAlignmentScore > b.RiskAlignmentScore
		}
		if a.ResearchScore != b.ResearchScore {
			return a.ResearchScore > b.ResearchScore
		}
		return a.Ticker < b.Ticker
	})
	sort.SliceStable(run.Diagnostics, func(i, j int) bool {
		return run.Diagnostics[i].Ticker < run.Diagnostics[j].Ticker
	})

	if len(run.Recommendations) > topN {
		run.Recommendations = run.Recommendations[:topN]
	}
	for i := range run.Recommendations {
		run.Recommendations[i].Rank = i + 1
	}

	return run, nil
}

// evaluate scores one candidate. A candidate that cannot be ranked returns a
// CandidateExcludedError, which the caller records as a run diagnostic.
func (e *recommendationEngine) evaluate(ctx context.Context, profile *entity.UserRiskProfile, ticker string) (*dto.Recommendation, error) {
	risk, err := e.riskSource.GetRisk(ctx, ticker)
	if err != nil {
		return nil, e.excluded(ticker, fmt.Sprintf("risk scoring failed: %v", err))
	}

	// Hard band filter. With cross-band exploration enabled the mismatch is
	// kept and penalized through risk alignment instead.
	if !profile.CrossBandExploration && risk.Band != string(profile.RiskBand) {
		return nil, e.excluded(ticker, fmt.Sprintf("risk band %s does not match user band %s", risk.Band, profile.RiskBand))
	}

	research, err := e.researchSource.GetResearch(ctx, ticker, false)
	if err != nil {
		return nil, e.excluded(ticker, fmt.Sprintf("research unavailable: %v", err))
	}

	signals, err := e.signalSource.GetSignalAggregate(ctx, ticker)
	if err != nil {
		return nil, e.excluded(ticker, fmt.Sprintf("signal aggregation failed: %v", err))
	}

	macroFit := macroFitNeutral
	if fit, err := e.macroFitRepo.GetFit(ctx, ticker, profileMacroTags(profile)); err != nil {
		e.log.Warn("Macro-fit provider unavailable, using neutral score",
			logger.StringField("ticker", ticker),
			logger.ErrorField(err))
	} else {
		macroFit = utils.Clamp(fit, 0, 100)
	}

	target := bandTarget(profile.RiskBand)
	if profile.ToleranceOverride != nil {
		target = utils.Clamp(*profile.ToleranceOverride, 0, 100)
	}

	researchScore := utils.Clamp(research.ConfidenceScore*100, 0, 100)
	signalScore := signals.Score
	alignmentScore := utils.Clamp(100-math.Abs(risk.Score-target), 0, 100)

	finalScore := utils.Round1(weightResearch*researchScore +
		weightSignal*signalScore +
		weightRiskAlignment*alignmentScore +
		weightMacroFit*macroFit)

	return &dto.Recommendation{
		UserID:             profile.UserID,
		Ticker:             ticker,
		ResearchScore:      researchScore,
		SignalScore:        signalScore,
		RiskAlignmentScore: alignmentScore,
		MacroFitScore:      macroFit,
		FinalScore:         finalScore,
		Explanation:        explainRecommendation(ticker, finalScore, risk, research, signals),
		ReasoningMetadata: map[string]interface{}{
			"risk_score":        risk.Score,
			"risk_band":         risk.Band,
			"risk_target":       target,
			"research_degraded": research.Degraded,
			"signal_events":     signals.EventCount,
			"no_signal":         signals.NoSignal,
			"weights": map[string]float64{
				"research":       weightResearch,
				"signal":         weightSignal,
				"risk_alignment": weightRiskAlignment,
				"macro_fit":      weightMacroFit,
			},
		},
	}, nil
}

func (e *recommendationEngine) excluded(ticker, reason string) *dto.CandidateExcludedError {
	e.log.Warn("Candidate excluded from ranking",
		logger.StringField("ticker", ticker),
		logger.StringField("reason", reason))
	return &dto.CandidateExcludedError{Ticker: ticker, Reason: reason}
}

func explainRecommendation(ticker string, finalScore float64, risk *dto.RiskAnalysis, research *dto.ResearchReport, signals *dto.SignalAggregate) string {
	signalNote := fmt.Sprintf("%d active signals", signals.EventCount)
	if signals.NoSignal {
		signalNote = "no active signals"
	}
	researchNote := fmt.Sprintf("research confidence %.0f%%", research.ConfidenceScore*100)
	if research.Degraded {
		researchNote = "degraded research"
	}
	return fmt.Sprintf("%s scores %.1f overall: risk %.1f (%s), %s, %s.",
		ticker, finalScore, risk.Score, risk.Band, researchNote, signalNote)
}

func profileMacroTags(profile *entity.UserRiskProfile) []string {
	if len(profile.MacroTags) == 0 {
		return nil
	}
	var tags []string
	if err := json.Unmarshal(profile.MacroTags, &tags); err != nil {
		return nil
	}
	return tags
}
