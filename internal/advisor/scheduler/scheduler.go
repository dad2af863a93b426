package scheduler

import (
	"context"
	"time"

	"golang-invest-advisor/internal/advisor/config"
	"golang-invest-advisor/internal/advisor/repository"
	"golang-invest-advisor/internal/advisor/service"
	"golang-invest-advisor/pkg/logger"

	"github.com/robfig/cron/v3"
)

// Default schedules: risk recompute nightly after market close, signal
// refresh hourly.
const (
	defaultRiskRecomputeSpec = "0 2 * * *"
	defaultSignalRefreshSpec = "0 * * * *"
)

const jobTimeout = 10 * time.Minute

// Scheduler runs the periodic pipeline jobs over the active watchlist.
type Scheduler struct {
	cfg           *config.Config
	log           *logger.Logger
	advisor       service.AdvisorService
	watchlistRepo repository.WatchlistRepository
	cron          *cron.Cron
}

// NewScheduler creates a new Scheduler.
func NewScheduler(
	cfg *config.Config,
	log *logger.Logger,
	advisor service.AdvisorService,
	watchlistRepo repository.WatchlistRepository,
) *Scheduler {
	return &Scheduler{
		cfg:           cfg,
		log:           log,
		advisor:       advisor,
		watchlistRepo: watchlistRepo,
		cron:          cron.New(),
	}
}

// Start registers the jobs and starts the cron loop.
func (s *Scheduler) Start() error {
	riskSpec := s.cfg.Scheduler.RiskRecomputeSpec
	if riskSpec == "" {
		riskSpec = defaultRiskRecomputeSpec
	}
	signalSpec := s.cfg.Scheduler.SignalRefreshSpec
	if signalSpec == "" {
		signalSpec = defaultSignalRefreshSpec
	}

	if _, err := s.cron.AddFunc(riskSpec, s.recomputeRiskScores); err != nil {
		return err
	}
	if _, err := s.cron.AddFunc(signalSpec, s.refreshSignals); err != nil {
		return err
	}

	s.cron.Start()
	s.log.Info("Scheduler started",
		logger.StringField("risk_recompute_spec", riskSpec),
		logger.StringField("signal_refresh_spec", signalSpec))
	return nil
}

// Stop stops the cron loop and waits for running jobs to finish.
func (s *Scheduler) Stop() {
	ctx := s.cron.Stop()
	<-ctx.Done()
	s.log.Info("Scheduler stopped")
}

// recomputeRiskScores recomputes and persists the risk score for every active
// watchlist ticker. Per-ticker failures are logged and skipped so one bad
// snapshot cannot stall the whole run.
func (s *Scheduler) recomputeRiskScores() {
	ctx, cancel := context.WithTimeout(context.Background(), jobTimeout)
	defer cancel()

	tickers, err := s.watchlistRepo.GetActiveTickers(ctx)
	if err != nil {
		s.log.Error("Risk recompute failed to load watchlist", logger.ErrorField(err))
		return
	}

	failed := 0
	for _, ticker := range tickers {
		if _, err := s.advisor.GetRisk(ctx, ticker); err != nil {
			failed++
			s.log.Warn("Risk recompute failed for ticker",
				logger.StringField("ticker", ticker),
				logger.ErrorField(err))
		}
	}

	s.log.Info("Risk recompute finished",
		logger.IntField("tickers", len(tickers)),
		logger.IntField("failed", failed))
}

// refreshSignals pulls and classifies fresh provider events for every active
// watchlist ticker.
func (s *Scheduler) refreshSignals() {
	ctx, cancel := context.WithTimeout(context.Background(), jobTimeout)
	defer cancel()

	tickers, err := s.watchlistRepo.GetActiveTickers(ctx)
	if err != nil {
		s.log.Error("Signal refresh failed to load watchlist", logger.ErrorField(err))
		return
	}

	stored, failed := 0, 0
	for _, ticker := range tickers {
		count, err := s.advisor.RefreshSignals(ctx, ticker)
		if err != nil {
			failed++
			s.log.Warn("Signal refresh failed for ticker",
				logger.StringField("ticker", ticker),
				logger.ErrorField(err))
			continue
		}
		stored += count
	}

	s.log.Info("Signal refresh finished",
		logger.IntField("tickers", len(tickers)),
		logger.IntField("signals_stored", stored),
		logger.IntField("failed", failed))
}
