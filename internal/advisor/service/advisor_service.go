package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"golang-invest-advisor/internal/advisor/config"
	"golang-invest-advisor/internal/advisor/dto"
	"golang-invest-advisor/internal/advisor/repository"
	"golang-invest-advisor/internal/entity"
	"golang-invest-advisor/pkg/common"
	"golang-invest-advisor/pkg/logger"
	pkgRedis "golang-invest-advisor/pkg/redis"
	"golang-invest-advisor/pkg/telegram"
	"golang-invest-advisor/pkg/utils"

	"github.com/patrickmn/go-cache"
)

// ErrProfileNotFound is returned by Recommend when the requesting user has no
// stored risk profile.
var ErrProfileNotFound = errors.New("risk profile not found")

// AdvisorService is the application-facing surface of the pipeline: risk
// scoring, signal refresh and aggregation, research generation and ranking
// runs. It also serves as the per-ticker score source for the recommendation
// engine.
type AdvisorService interface {
	GetRisk(ctx context.Context, ticker string) (*dto.RiskAnalysis, error)
	GetSignals(ctx context.Context, ticker string, window time.Duration) (*dto.SignalReadout, error)
	GetSignalAggregate(ctx context.Context, ticker string) (*dto.SignalAggregate, error)
	RefreshSignals(ctx context.Context, ticker string) (int, error)
	GetResearch(ctx context.Context, ticker string, force bool) (*dto.ResearchReport, error)
	Recommend(ctx context.Context, req *dto.RecommendRequest) (*dto.RecommendationRun, error)
}

// NewAdvisorService creates a new AdvisorService and wires the recommendation
// engine to it.
func NewAdvisorService(
	cfg *config.Config,
	log *logger.Logger,
	riskScorer RiskScorer,
	signalDetector SignalDetector,
	orchestrator ResearchOrchestrator,
	fundamentalsRepo repository.FundamentalsRepository,
	marketEventRepo repository.MarketEventRepository,
	macroFitRepo repository.MacroFitRepository,
	riskScoreRepo repository.RiskScoreRepository,
	signalEventRepo repository.SignalEventRepository,
	reportRepo repository.ResearchReportRepository,
	userProfileRepo repository.UserProfileRepository,
	watchlistRepo repository.WatchlistRepository,
	redisClient *pkgRedis.Client,
	notifier telegram.Notifier,
) AdvisorService {
	s := &advisorService{
		cfg:              cfg,
		log:              log,
		riskScorer:       riskScorer,
		signalDetector:   signalDetector,
		orchestrator:     orchestrator,
		fundamentalsRepo: fundamentalsRepo,
		marketEventRepo:  marketEventRepo,
		riskScoreRepo:    riskScoreRepo,
		signalEventRepo:  signalEventRepo,
		reportRepo:       reportRepo,
		userProfileRepo:  userProfileRepo,
		watchlistRepo:    watchlistRepo,
		redisClient:      redisClient,
		notifier:         notifier,
		riskCache:        cache.New(cfg.Advisor.RiskCacheTTL, 10*time.Minute),
	}
	s.engine = NewRecommendationEngine(cfg, log, s, s, s, macroFitRepo)
	return s
}

type advisorService struct {
	cfg              *config.Config
	log              *logger.Logger
	riskScorer       RiskScorer
	signalDetector   SignalDetector
	orchestrator     ResearchOrchestrator
	engine           RecommendationEngine
	fundamentalsRepo repository.FundamentalsRepository
	marketEventRepo  repository.MarketEventRepository
	riskScoreRepo    repository.RiskScoreRepository
	signalEventRepo  repository.SignalEventRepository
	reportRepo       repository.ResearchReportRepository
	userProfileRepo  repository.UserProfileRepository
	watchlistRepo    repository.WatchlistRepository
	redisClient      *pkgRedis.Client
	notifier         telegram.Notifier
	riskCache        *cache.Cache
}

// riskEntry memoizes both the analysis and the snapshot it was computed from
// so research context assembly does not refetch fundamentals.
type riskEntry struct {
	analysis *dto.RiskAnalysis
	snapshot *dto.FundamentalsSnapshot
}

// GetRisk returns the current risk analysis for a ticker, computing and
// persisting a fresh one on cache miss.
func (s *advisorService) GetRisk(ctx context.Context, ticker string) (*dto.RiskAnalysis, error) {
	entry, err := s.getRiskEntry(ctx, ticker)
	if err != nil {
		return nil, err
	}
	return entry.analysis, nil
}

func (s *advisorService) getRiskEntry(ctx context.Context, ticker string) (*riskEntry, error) {
	if cached, found := s.riskCache.Get(ticker); found {
		return cached.(*riskEntry), nil
	}

	snapshot, err := s.fundamentalsRepo.GetSnapshot(ctx, ticker)
	if err != nil {
		// Provider outage: serve the latest persisted score instead of failing
		// the caller. The entry is not cached so a recovered provider is
		// picked up on the next call.
		stored, latestErr := s.riskScoreRepo.GetLatest(ctx, ticker)
		if latestErr != nil || stored == nil {
			return nil, fmt.Errorf("failed to fetch fundamentals for %s: %w", ticker, err)
		}
		s.log.Warn("Fundamentals provider unavailable, serving latest persisted risk score",
			logger.StringField("ticker", ticker),
			logger.ErrorField(err))
		return &riskEntry{analysis: riskAnalysisFromEntity(stored)}, nil
	}

	analysis, err := s.riskScorer.Score(snapshot)
	if err != nil {
		return nil, err
	}
	s.log.Debug("Risk score computed",
		logger.StringField("ticker", ticker),
		logger.Float64Field("score", analysis.Score))

	components, _ := json.Marshal(analysis.Components)
	if err := s.riskScoreRepo.Create(ctx, &entity.RiskScore{
		Ticker:      analysis.Ticker,
		AsOfDate:    analysis.AsOfDate,
		Score:       analysis.Score,
		Band:        entity.RiskBand(analysis.Band),
		Components:  components,
		Explanation: analysis.Explanation,
	}); err != nil {
		return nil, fmt.Errorf("failed to persist risk score for %s: %w", ticker, err)
	}

	entry := &riskEntry{analysis: analysis, snapshot: snapshot}
	s.riskCache.Set(ticker, entry, cache.DefaultExpiration)
	return entry, nil
}

func riskAnalysisFromEntity(stored *entity.RiskScore) *dto.RiskAnalysis {
	var components dto.RiskComponents
	_ = json.Unmarshal(stored.Components, &components)
	return &dto.RiskAnalysis{
		Ticker:      stored.Ticker,
		AsOfDate:    stored.AsOfDate,
		Score:       stored.Score,
		Band:        string(stored.Band),
		Components:  components,
		Explanation: stored.Explanation,
	}
}

// GetSignals returns the stored signals in the lookback window together with
// their aggregate score. A non-positive window falls back to the configured
// default.
func (s *advisorService) GetSignals(ctx context.Context, ticker string, window time.Duration) (*dto.SignalReadout, error) {
	if window <= 0 {
		window = s.cfg.Advisor.SignalLookbackWindow
	}

	now := time.Now()
	events, err := s.signalEventRepo.ListSince(ctx, ticker, now.Add(-window))
	if err != nil {
		return nil, fmt.Errorf("failed to list signals for %s: %w", ticker, err)
	}

	return &dto.SignalReadout{
		Events:    events,
		Aggregate: s.signalDetector.Aggregate(events, ticker, now),
	}, nil
}

// GetSignalAggregate returns just the aggregate score over the default window.
func (s *advisorService) GetSignalAggregate(ctx context.Context, ticker string) (*dto.SignalAggregate, error) {
	readout, err := s.GetSignals(ctx, ticker, 0)
	if err != nil {
		return nil, err
	}
	return readout.Aggregate, nil
}

// RefreshSignals pulls raw events from the provider, classifies them and
// appends the resulting signals. Returns the number of signals stored.
func (s *advisorService) RefreshSignals(ctx context.Context, ticker string) (int, error) {
	events, err := s.marketEventRepo.GetRecentEvents(ctx, ticker, s.cfg.Advisor.SignalLookbackWindow)
	if err != nil {
		return 0, fmt.Errorf("failed to fetch market events for %s: %w", ticker, err)
	}

	signals, err := s.signalDetector.Detect(events, ticker)
	if err != nil {
		return 0, err
	}

	if err := s.signalEventRepo.Append(ctx, signals); err != nil {
		return 0, fmt.Errorf("failed to store signals for %s: %w", ticker, err)
	}
	return len(signals), nil
}

// GetResearch returns the current report for a ticker, regenerating when the
// stored one is older than the configured maximum age or force is set.
func (s *advisorService) GetResearch(ctx context.Context, ticker string, force bool) (*dto.ResearchReport, error) {
	if !force {
		stored, err := s.reportRepo.GetCurrent(ctx, ticker)
		if err != nil {
			return nil, fmt.Errorf("failed to load current report for %s: %w", ticker, err)
		}
		if stored != nil && time.Since(stored.GeneratedAt) < s.cfg.Advisor.ReportMaxAge {
			return reportFromEntity(stored)
		}
	}

	rctx, err := s.buildResearchContext(ctx, ticker)
	if err != nil {
		return nil, err
	}
	return s.orchestrator.Generate(ctx, rctx)
}

// buildResearchContext assembles the bounded numeric prompt context from the
// risk and signal stages. Either stage failing surfaces as MissingContextError
// before any completion call is made.
func (s *advisorService) buildResearchContext(ctx context.Context, ticker string) (*dto.ResearchContext, error) {
	entry, err := s.getRiskEntry(ctx, ticker)
	if err != nil {
		return nil, &dto.MissingContextError{Ticker: ticker, Missing: []string{fmt.Sprintf("risk: %v", err)}}
	}

	signals, err := s.GetSignalAggregate(ctx, ticker)
	if err != nil {
		return nil, &dto.MissingContextError{Ticker: ticker, Missing: []string{fmt.Sprintf("signals: %v", err)}}
	}

	snapshot := entry.snapshot
	if snapshot == nil {
		// The risk entry came from the persisted-score fallback; the prompt
		// context needs live fundamentals.
		return nil, &dto.MissingContextError{Ticker: ticker, Missing: []string{"fundamentals snapshot"}}
	}
	return &dto.ResearchContext{
		Ticker:            ticker,
		AsOfDate:          snapshot.AsOfDate.Format("2006-01-02"),
		Volatility:        *snapshot.Volatility,
		Beta:              *snapshot.Beta,
		LeverageRatio:     *snapshot.LeverageRatio,
		EarningsStability: *snapshot.EarningsStability,
		SectorRisk:        *snapshot.SectorRisk,
		ValuationRisk:     *snapshot.ValuationRisk,
		RiskScore:         entry.analysis.Score,
		RiskBand:          entry.analysis.Band,
		SignalScore:       signals.Score,
		SignalEventCount:  signals.EventCount,
		NoSignal:          signals.NoSignal,
	}, nil
}

// Recommend runs a full ranking for the user. An empty ticker list falls back
// to the active watchlist. Default-universe runs are cached briefly in Redis
// so repeated requests do not redo the fan-out.
func (s *advisorService) Recommend(ctx context.Context, req *dto.RecommendRequest) (*dto.RecommendationRun, error) {
	profile, err := s.userProfileRepo.GetByUserID(ctx, req.UserID)
	if err != nil {
		return nil, fmt.Errorf("failed to load risk profile for user %d: %w", req.UserID, err)
	}
	if profile == nil {
		return nil, fmt.Errorf("user %d: %w", req.UserID, ErrProfileNotFound)
	}

	defaultUniverse := len(req.Tickers) == 0 && req.TopN == 0
	cacheKey := fmt.Sprintf("%s:%d", common.RedisKeyRecommendationRun, req.UserID)
	if defaultUniverse {
		if cached := s.getCachedRun(ctx, cacheKey); cached != nil {
			return cached, nil
		}
	}

	candidates := req.Tickers
	if len(candidates) == 0 {
		candidates, err = s.watchlistRepo.GetActiveTickers(ctx)
		if err != nil {
			return nil, fmt.Errorf("failed to load watchlist: %w", err)
		}
	}

	rankCtx, cancel := context.WithTimeout(ctx, s.cfg.Advisor.RankingDeadline)
	defer cancel()

	run, err := s.engine.Rank(rankCtx, profile, candidates, req.TopN)
	if err != nil {
		return nil, err
	}

	if defaultUniverse {
		s.setCachedRun(ctx, cacheKey, run)
	}

	if len(run.Diagnostics) > 0 && s.notifier != nil {
		message := telegram.FormatExcludedCandidatesMessage(run.GeneratedAt, run.UserID, len(run.Diagnostics))
		utils.GoSafe(func() {
			if err := s.notifier.SendMessage(message); err != nil {
				s.log.Error("Failed to send ranking exclusions alert", logger.ErrorField(err))
			}
		})
	}

	return run, nil
}

func (s *advisorService) getCachedRun(ctx context.Context, key string) *dto.RecommendationRun {
	if s.redisClient == nil {
		return nil
	}
	raw, err := s.redisClient.Get(ctx, key).Result()
	if err != nil {
		return nil
	}
	var run dto.RecommendationRun
	if err := json.Unmarshal([]byte(raw), &run); err != nil {
		s.log.Warn("Failed to decode cached recommendation run", logger.ErrorField(err))
		return nil
	}
	return &run
}

func (s *advisorService) setCachedRun(ctx context.Context, key string, run *dto.RecommendationRun) {
	if s.redisClient == nil {
		return
	}
	raw, err := json.Marshal(run)
	if err != nil {
		return
	}
	if err := s.redisClient.Set(ctx, key, raw, s.cfg.Advisor.RunCacheTTL).Err(); err != nil {
		s.log.Warn("Failed to cache recommendation run", logger.ErrorField(err))
	}
}
