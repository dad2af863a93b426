package service

import (
	"encoding/json"
	"fmt"
	"math"
	"time"

	"golang-invest-advisor/internal/advisor/config"
	"golang-invest-advisor/internal/advisor/dto"
	"golang-invest-advisor/internal/entity"
	"golang-invest-advisor/pkg/logger"
	"golang-invest-advisor/pkg/utils"
)

// SignalDetector classifies raw provider events into typed signals and
// aggregates stored signals into a windowed score. Stateless: one pass per
// invocation, nothing retained across calls.
//
// Classification rules:
//   - earnings: |surprise %| >= threshold emits EarningsSurprise, strength
//     min(|surprise %| * 2, 100), confidence 0.95 (reported figures).
//   - institutional_flow: |net share delta| / shares outstanding * 100 >=
//     threshold emits InstitutionalBuy or InstitutionalSell by sign, strength
//     min(|delta %| * 10 + institutions * 5, 100), confidence
//     min(0.6 + institutions * 0.05, 0.95).
//   - insider_transaction: every Form-4-equivalent emits InsiderBuy or
//     InsiderSell, strength min(value / filer average * 25, 100), confidence
//     fixed 0.75.
//   - sentiment: velocity / stdev >= sigma threshold emits SentimentSpike,
//     strength min(z * 20, 100), confidence min(0.2 + samples/500 * 0.4, 0.6).
//   - options_volume: volume / average >= ratio threshold emits
//     OptionsUnusualVolume, strength min(ratio * 15, 100), confidence
//     min(0.3 + sessions * 0.02, 0.8).
//
// Confidence always derives from backing-data completeness (sample size,
// session count, reporting quality), never from strength.
type SignalDetector interface {
	Detect(events []dto.ProviderEvent, ticker string) ([]entity.SignalEvent, error)
	Aggregate(events []entity.SignalEvent, ticker string, now time.Time) *dto.SignalAggregate
}

// NewSignalDetector creates a new SignalDetector.
func NewSignalDetector(cfg *config.Config, log *logger.Logger) SignalDetector {
	return &signalDetector{cfg: cfg, log: log}
}

type signalDetector struct {
	cfg *config.Config
	log *logger.Logger
}

// Detect classifies one batch of raw events. Malformed events are skipped and
// counted; when the skip rate exceeds the configured threshold the whole
// batch fails with SignalIngestionError.
func (d *signalDetector) Detect(events []dto.ProviderEvent, ticker string) ([]entity.SignalEvent, error) {
	signals := make([]entity.SignalEvent, 0, len(events))
	skipped := 0

	for _, ev := range events {
		signal, ok := d.classify(ev, ticker)
		if !ok {
			skipped++
			continue
		}
		if signal != nil {
			signals = append(signals, *signal)
		}
	}

	if len(events) > 0 {
		skipRate := float64(skipped) / float64(len(events))
		if skipRate > d.cfg.Advisor.MaxEventSkipRate {
			return nil, &dto.SignalIngestionError{
				Ticker:    ticker,
				Total:     len(events),
				Skipped:   skipped,
				Threshold: d.cfg.Advisor.MaxEventSkipRate,
			}
		}
		if skipped > 0 {
			d.log.Warn("Skipped malformed provider events",
				logger.StringField("ticker", ticker),
				logger.IntField("skipped", skipped),
				logger.IntField("total", len(events)))
		}
	}

	return signals, nil
}

// classify returns (nil, true) for well-formed events below their signal
// threshold and (nil, false) for malformed events.
func (d *signalDetector) classify(ev dto.ProviderEvent, ticker string) (*entity.SignalEvent, bool) {
	switch ev.Kind {
	case dto.EventKindEarnings:
		return d.classifyEarnings(ev, ticker)
	case dto.EventKindInstitutional:
		return d.classifyInstitutional(ev, ticker)
	case dto.EventKindInsider:
		return d.classifyInsider(ev, ticker)
	case dto.EventKindSentiment:
		return d.classifySentiment(ev, ticker)
	case dto.EventKindOptionsVolume:
		return d.classifyOptionsVolume(ev, ticker)
	default:
		return nil, false
	}
}

func (d *signalDetector) classifyEarnings(ev dto.ProviderEvent, ticker string) (*entity.SignalEvent, bool) {
	if ev.ActualEPS == nil || ev.EstimatedEPS == nil || *ev.EstimatedEPS == 0 || ev.Timestamp.IsZero() {
		return nil, false
	}

	surprisePct := (*ev.ActualEPS - *ev.EstimatedEPS) / math.Abs(*ev.EstimatedEPS) * 100
	if math.Abs(surprisePct) < d.cfg.Advisor.EarningsSurpriseThreshold {
		return nil, true
	}

	return newSignal(ticker, entity.SignalEarningsSurprise, ev,
		utils.Clamp(math.Abs(surprisePct)*2, 0, 100),
		0.95,
		fmt.Sprintf("EPS surprise of %.1f%% (actual %.2f vs estimate %.2f)", surprisePct, *ev.ActualEPS, *ev.EstimatedEPS),
	), true
}

func (d *signalDetector) classifyInstitutional(ev dto.ProviderEvent, ticker string) (*entity.SignalEvent, bool) {
	if ev.NetShareDelta == nil || ev.SharesOutstanding == nil || *ev.SharesOutstanding <= 0 ||
		ev.InstitutionCount == nil || ev.Timestamp.IsZero() {
		return nil, false
	}

	deltaPct := *ev.NetShareDelta / *ev.SharesOutstanding * 100
	if math.Abs(deltaPct) < d.cfg.Advisor.InstitutionalDeltaThreshold {
		return nil, true
	}

	signalType := entity.SignalInstitutionalBuy
	if deltaPct < 0 {
		signalType = entity.SignalInstitutionalSell
	}
	institutions := *ev.InstitutionCount

	return newSignal(ticker, signalType, ev,
		utils.Clamp(math.Abs(deltaPct)*10+float64(institutions)*5, 0, 100),
		utils.Clamp(0.6+float64(institutions)*0.05, 0, 0.95),
		fmt.Sprintf("net institutional share delta of %.1f%% across %d institutions", deltaPct, institutions),
	), true
}

func (d *signalDetector) classifyInsider(ev dto.ProviderEvent, ticker string) (*entity.SignalEvent, bool) {
	if ev.TransactionValue == nil || ev.FilerAverageValue == nil || *ev.FilerAverageValue <= 0 ||
		(ev.Side != "buy" && ev.Side != "sell") || ev.Timestamp.IsZero() {
		return nil, false
	}

	signalType := entity.SignalInsiderBuy
	if ev.Side == "sell" {
		signalType = entity.SignalInsiderSell
	}
	relative := *ev.TransactionValue / *ev.FilerAverageValue

	return newSignal(ticker, signalType, ev,
		utils.Clamp(relative*25, 0, 100),
		0.75,
		fmt.Sprintf("insider %s at %.1fx the filer's historical average transaction", ev.Side, relative),
	), true
}

func (d *signalDetector) classifySentiment(ev dto.ProviderEvent, ticker string) (*entity.SignalEvent, bool) {
	if ev.SentimentVelocity == nil || ev.SentimentStdDev == nil || *ev.SentimentStdDev <= 0 ||
		ev.SampleSize == nil || ev.Timestamp.IsZero() {
		return nil, false
	}

	z := math.Abs(*ev.SentimentVelocity / *ev.SentimentStdDev)
	if z < d.cfg.Advisor.SentimentSigmaThreshold {
		return nil, true
	}

	return newSignal(ticker, entity.SignalSentimentSpike, ev,
		utils.Clamp(z*20, 0, 100),
		utils.Clamp(0.2+float64(*ev.SampleSize)/500*0.4, 0, 0.6),
		fmt.Sprintf("sentiment velocity %.1f standard deviations above baseline over %d mentions", z, *ev.SampleSize),
	), true
}

func (d *signalDetector) classifyOptionsVolume(ev dto.ProviderEvent, ticker string) (*entity.SignalEvent, bool) {
	if ev.OptionsVolume == nil || ev.AverageOptionsVolume == nil || *ev.AverageOptionsVolume <= 0 ||
		ev.SessionCount == nil || ev.Timestamp.IsZero() {
		return nil, false
	}

	ratio := *ev.OptionsVolume / *ev.AverageOptionsVolume
	if ratio < d.cfg.Advisor.OptionsVolumeRatioThreshold {
		return nil, true
	}

	return newSignal(ticker, entity.SignalOptionsUnusualVolume, ev,
		utils.Clamp(ratio*15, 0, 100),
		utils.Clamp(0.3+float64(*ev.SessionCount)*0.02, 0, 0.8),
		fmt.Sprintf("options volume at %.1fx the trailing average", ratio),
	), true
}

func newSignal(ticker string, signalType entity.SignalType, ev dto.ProviderEvent, strength, confidence float64, rationale string) *entity.SignalEvent {
	source, _ := json.Marshal(ev.Source)
	return &entity.SignalEvent{
		Ticker:     ticker,
		Type:       signalType,
		Strength:   strength,
		Confidence: confidence,
		Rationale:  rationale,
		Source:     source,
		Timestamp:  ev.Timestamp,
	}
}

// Aggregate computes the windowed signal score: the confidence-weighted mean
// of per-event strengths, with each weight decayed linearly by event age over
// the configured TTL. An empty window yields score 0 with NoSignal set, which
// is distinct from a genuine zero score.
func (d *signalDetector) Aggregate(events []entity.SignalEvent, ticker string, now time.Time) *dto.SignalAggregate {
	agg := &dto.SignalAggregate{
		Ticker:      ticker,
		EventCount:  len(events),
		WindowStart: now.Add(-d.cfg.Advisor.SignalLookbackWindow),
		WindowEnd:   now,
	}

	var weightedSum, weightTotal float64
	for _, ev := range events {
		age := now.Sub(ev.Timestamp)
		decay := 1 - age.Seconds()/d.cfg.Advisor.SignalTTL.Seconds()
		if decay <= 0 {
			continue
		}
		weight := ev.Confidence * decay
		weightedSum += ev.Strength * weight
		weightTotal += weight
	}

	if weightTotal == 0 {
		agg.Score = 0
		agg.NoSignal = true
		return agg
	}

	agg.Score = utils.Clamp(weightedSum/weightTotal, 0, 100)
	return agg
}
