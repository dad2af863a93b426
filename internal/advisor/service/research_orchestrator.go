package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"golang-invest-advisor/internal/advisor/config"
	"golang-invest-advisor/internal/advisor/dto"
	"golang-invest-advisor/internal/advisor/repository"
	"golang-invest-advisor/internal/entity"
	"golang-invest-advisor/pkg/common"
	"golang-invest-advisor/pkg/logger"
	"golang-invest-advisor/pkg/telegram"
	"golang-invest-advisor/pkg/utils"
)

const degradedSummary = "insights unavailable"

// leasePollInterval is how often a waiting caller re-checks the store while
// another process holds the generation lease.
const leasePollInterval = 500 * time.Millisecond

// ResearchOrchestrator drives report generation for one ticker at a time:
// context validation, prompted completion, schema validation with corrective
// retries, then finalize or degrade. Concurrent calls for the same ticker are
// coalesced in-process and serialized across processes with a lease, so the
// completion service sees at most one generation per ticker at any moment.
type ResearchOrchestrator interface {
	Generate(ctx context.Context, rctx *dto.ResearchContext) (*dto.ResearchReport, error)
}

// NewResearchOrchestrator creates a new ResearchOrchestrator.
func NewResearchOrchestrator(
	cfg *config.Config,
	log *logger.Logger,
	completionRepo repository.CompletionRepository,
	reportRepo repository.ResearchReportRepository,
	leaseRepo repository.LeaseRepository,
	notifier telegram.Notifier,
) ResearchOrchestrator {
	return &researchOrchestrator{
		cfg:            cfg,
		log:            log,
		completionRepo: completionRepo,
		reportRepo:     reportRepo,
		leaseRepo:      leaseRepo,
		notifier:       notifier,
		inflight:       make(map[string]*generation),
	}
}

// generation is a single in-process generation shared by every caller that
// asked for the same ticker while it was running.
type generation struct {
	done   chan struct{}
	report *dto.ResearchReport
	err    error
}

type researchOrchestrator struct {
	cfg            *config.Config
	log            *logger.Logger
	completionRepo repository.CompletionRepository
	reportRepo     repository.ResearchReportRepository
	leaseRepo      repository.LeaseRepository
	notifier       telegram.Notifier

	mu       sync.Mutex
	inflight map[string]*generation
}

// Generate produces and persists the current report for the ticker. Callers
// that arrive while a generation for the same ticker is in flight block until
// it finishes and share its result. A degraded report is a success: the error
// return is reserved for precondition and infrastructure failures.
func (o *researchOrchestrator) Generate(ctx context.Context, rctx *dto.ResearchContext) (*dto.ResearchReport, error) {
	if err := validateResearchContext(rctx); err != nil {
		return nil, err
	}

	o.mu.Lock()
	if g, ok := o.inflight[rctx.Ticker]; ok {
		o.mu.Unlock()
		select {
		case <-g.done:
			return g.report, g.err
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	g := &generation{done: make(chan struct{})}
	o.inflight[rctx.Ticker] = g
	o.mu.Unlock()

	g.report, g.err = o.generateLeased(ctx, rctx)

	o.mu.Lock()
	delete(o.inflight, rctx.Ticker)
	o.mu.Unlock()
	close(g.done)

	return g.report, g.err
}

// generateLeased wraps the generation run in the cross-process lease. When
// another process holds the lease, this one polls the store and returns the
// peer's report as soon as it lands.
func (o *researchOrchestrator) generateLeased(ctx context.Context, rctx *dto.ResearchContext) (*dto.ResearchReport, error) {
	key := rctx.Ticker
	startedAt := time.Now()
	waitDeadline := startedAt.Add(o.cfg.Advisor.GenerationLeaseTTL)

	for {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		acquired, err := o.leaseRepo.Acquire(ctx, key, o.cfg.Advisor.GenerationLeaseTTL)
		if err != nil {
			// In-process coalescing still holds; only cross-process
			// serialization is lost until the lease store recovers.
			o.log.Warn("Generation lease unavailable, proceeding without it",
				logger.StringField("ticker", rctx.Ticker),
				logger.ErrorField(err))
			return o.generateAndPersist(ctx, rctx)
		}
		if acquired {
			defer func() {
				if err := o.leaseRepo.Release(context.WithoutCancel(ctx), key); err != nil {
					o.log.Warn("Failed to release generation lease",
						logger.StringField("ticker", rctx.Ticker),
						logger.ErrorField(err))
				}
			}()
			return o.generateAndPersist(ctx, rctx)
		}

		stored, err := o.reportRepo.GetCurrent(ctx, rctx.Ticker)
		if err != nil {
			return nil, fmt.Errorf("failed to check current report while waiting for lease: %w", err)
		}
		if stored != nil && stored.GeneratedAt.After(startedAt) {
			return reportFromEntity(stored)
		}
		if time.Now().After(waitDeadline) {
			// Holder's TTL elapsed without a report landing. Its lease entry
			// expires in the store, so a later acquire attempt takes over.
			// The poll sleep below still applies; every path through this
			// loop yields and observes cancellation.
			o.log.Warn("Generation lease wait exceeded the lease TTL",
				logger.StringField("ticker", rctx.Ticker))
			waitDeadline = time.Now().Add(o.cfg.Advisor.GenerationLeaseTTL)
		}

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(leasePollInterval):
		}
	}
}

func (o *researchOrchestrator) generateAndPersist(ctx context.Context, rctx *dto.ResearchContext) (*dto.ResearchReport, error) {
	report := o.run(ctx, rctx)

	stored := reportToEntity(report)
	if err := o.reportRepo.Replace(ctx, stored); err != nil {
		return nil, fmt.Errorf("failed to persist research report for %s: %w", rctx.Ticker, err)
	}
	return report, nil
}

// run executes the attempt loop: prompt, complete, validate. A validation
// failure feeds its reason back into the next prompt as a correction; timeout
// and transport failures retry with the original prompt. When the attempt
// budget is spent, the degraded fallback report is returned.
func (o *researchOrchestrator) run(ctx context.Context, rctx *dto.ResearchContext) *dto.ResearchReport {
	contextJSON, _ := json.Marshal(rctx)

	var lastErr error
	correction := ""

	for attempt := 1; attempt <= o.cfg.Advisor.GenerationMaxAttempts; attempt++ {
		prompt := BuildResearchPrompt(string(contextJSON), correction)

		attemptCtx, cancel := context.WithTimeout(ctx, o.cfg.Advisor.GenerationTimeout)
		raw, err := o.completionRepo.Complete(attemptCtx, prompt)
		cancel()

		if err != nil {
			if errors.Is(err, context.DeadlineExceeded) {
				lastErr = &dto.GenerationTimeoutError{Ticker: rctx.Ticker, Attempt: attempt}
			} else {
				lastErr = &dto.GenerationTransportError{Ticker: rctx.Ticker, Attempt: attempt, Cause: err}
			}
			correction = ""
			o.log.Warn("Research generation attempt failed",
				logger.StringField("ticker", rctx.Ticker),
				logger.IntField("attempt", attempt),
				logger.ErrorField(lastErr))
			continue
		}

		payload, err := validateReportPayload(raw, &o.cfg.Advisor)
		if err == nil && payload.Ticker != rctx.Ticker {
			err = &dto.ValidationError{Reason: fmt.Sprintf("ticker %q does not match requested %q", payload.Ticker, rctx.Ticker)}
		}
		if err != nil {
			lastErr = err
			var validationErr *dto.ValidationError
			if errors.As(err, &validationErr) {
				correction = validationErr.Reason
			}
			o.log.Warn("Research response failed validation",
				logger.StringField("ticker", rctx.Ticker),
				logger.IntField("attempt", attempt),
				logger.ErrorField(err))
			continue
		}

		return &dto.ResearchReport{
			ResearchReportPayload: *payload,
			GeneratedAt:           time.Now(),
			SchemaVersion:         common.ResearchReportSchemaVersion,
			Attempts:              attempt,
			Degraded:              false,
		}
	}

	return o.fallback(rctx, lastErr)
}

// fallback builds the degraded report after the retry budget is exhausted.
// The report is structurally valid with zero confidence, and downstream
// consumers see it as a terminal success.
func (o *researchOrchestrator) fallback(rctx *dto.ResearchContext, cause error) *dto.ResearchReport {
	reason := "unknown"
	if cause != nil {
		reason = cause.Error()
	}
	o.log.Error("Research generation exhausted retry budget, producing degraded report",
		logger.StringField("ticker", rctx.Ticker),
		logger.IntField("attempts", o.cfg.Advisor.GenerationMaxAttempts),
		logger.StringField("reason", reason))

	if o.notifier != nil {
		message := telegram.FormatDegradedReportMessage(time.Now(), rctx.Ticker, o.cfg.Advisor.GenerationMaxAttempts, reason)
		utils.GoSafe(func() {
			if err := o.notifier.SendMessage(message); err != nil {
				o.log.Error("Failed to send degraded report alert", logger.ErrorField(err))
			}
		})
	}

	return &dto.ResearchReport{
		ResearchReportPayload: dto.ResearchReportPayload{
			Ticker:          rctx.Ticker,
			Summary:         degradedSummary,
			KeyInsights:     []string{},
			Strengths:       []string{},
			Weaknesses:      []string{},
			Opportunities:   []string{},
			Threats:         []string{},
			ConfidenceScore: 0,
		},
		GeneratedAt:   time.Now(),
		SchemaVersion: common.ResearchReportSchemaVersion,
		Attempts:      o.cfg.Advisor.GenerationMaxAttempts,
		Degraded:      true,
	}
}

// validateResearchContext enforces the generation preconditions before any
// external call. Risk data is mandatory; an empty signal window is legal.
func validateResearchContext(rctx *dto.ResearchContext) error {
	var missing []string
	if rctx.Ticker == "" {
		missing = append(missing, "ticker")
	}
	if rctx.AsOfDate == "" {
		missing = append(missing, "as_of_date")
	}
	if rctx.RiskBand == "" {
		missing = append(missing, "risk_band")
	}
	if len(missing) > 0 {
		return &dto.MissingContextError{Ticker: rctx.Ticker, Missing: missing}
	}
	return nil
}

func reportToEntity(report *dto.ResearchReport) *entity.ResearchReport {
	structured, _ := json.Marshal(report.ResearchReportPayload)
	return &entity.ResearchReport{
		Ticker:          report.Ticker,
		Summary:         report.Summary,
		StructuredJSON:  structured,
		ConfidenceScore: report.ConfidenceScore,
		SchemaVersion:   report.SchemaVersion,
		Attempts:        report.Attempts,
		Degraded:        report.Degraded,
		GeneratedAt:     report.GeneratedAt,
	}
}

func reportFromEntity(stored *entity.ResearchReport) (*dto.ResearchReport, error) {
	var payload dto.ResearchReportPayload
	if err := json.Unmarshal(stored.StructuredJSON, &payload); err != nil {
		return nil, fmt.Errorf("failed to decode stored report for %s: %w", stored.Ticker, err)
	}
	return &dto.ResearchReport{
		ResearchReportPayload: payload,
		GeneratedAt:           stored.GeneratedAt,
		SchemaVersion:         stored.SchemaVersion,
		Attempts:              stored.Attempts,
		Degraded:              stored.Degraded,
	}, nil
}
