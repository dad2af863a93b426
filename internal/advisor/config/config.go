package config

import (
	"time"

	"golang-invest-advisor/pkg/config"
)

// Advisor holds the tuning knobs for the scoring and orchestration pipeline.
type Advisor struct {
	// Research orchestration
	GenerationTimeout     time.Duration `mapstructure:"generation_timeout"`
	GenerationMaxAttempts int           `mapstructure:"generation_max_attempts"`
	GenerationLeaseTTL    time.Duration `mapstructure:"generation_lease_ttl"`
	ReportMaxAge          time.Duration `mapstructure:"report_max_age"`
	SummaryMaxLen         int           `mapstructure:"summary_max_len"`
	ListItemMaxLen        int           `mapstructure:"list_item_max_len"`
	ListMaxItems          int           `mapstructure:"list_max_items"`

	// Signal detection
	SignalLookbackWindow        time.Duration `mapstructure:"signal_lookback_window"`
	SignalTTL                   time.Duration `mapstructure:"signal_ttl"`
	MaxEventSkipRate            float64       `mapstructure:"max_event_skip_rate"`
	EarningsSurpriseThreshold   float64       `mapstructure:"earnings_surprise_threshold_pct"`
	InstitutionalDeltaThreshold float64       `mapstructure:"institutional_delta_threshold_pct"`
	SentimentSigmaThreshold     float64       `mapstructure:"sentiment_sigma_threshold"`
	OptionsVolumeRatioThreshold float64       `mapstructure:"options_volume_ratio_threshold"`

	// Ranking
	RankingConcurrency int           `mapstructure:"ranking_concurrency"`
	RankingDeadline    time.Duration `mapstructure:"ranking_deadline"`
	TopN               int           `mapstructure:"top_n"`
	RunCacheTTL        time.Duration `mapstructure:"run_cache_ttl"`

	// Risk cache
	RiskCacheTTL time.Duration `mapstructure:"risk_cache_ttl"`
}

// Gemini holds the configuration for the Gemini API.
type Gemini struct {
	APIKey              string `mapstructure:"api_key"`
	Model               string `mapstructure:"model"`
	BaseURL             string `mapstructure:"base_url"`
	MaxRequestPerMinute int    `mapstructure:"max_request_per_minute"`
	MaxTokenPerMinute   int    `mapstructure:"max_token_per_minute"`
}

// Fundamentals holds the configuration for the fundamentals data provider.
type Fundamentals struct {
	BaseURL             string `mapstructure:"base_url"`
	MaxRequestPerMinute int    `mapstructure:"max_request_per_minute"`
}

// MarketEvents holds the configuration for the raw market-event provider.
type MarketEvents struct {
	BaseURL string `mapstructure:"base_url"`
}

// MacroFit holds the configuration for the macro-fit provider.
type MacroFit struct {
	BaseURL string `mapstructure:"base_url"`
}

// Telegram holds configuration for the Telegram notifier.
type Telegram struct {
	BotToken string `mapstructure:"bot_token"`
	ChatID   int64  `mapstructure:"chat_id"`
}

// Scheduler holds cron schedules for the nightly refresh jobs.
type Scheduler struct {
	RiskRecomputeSpec string `mapstructure:"risk_recompute_spec"`
	SignalRefreshSpec string `mapstructure:"signal_refresh_spec"`
}

// Config holds the full configuration for the advisor service.
type Config struct {
	App          config.App      `mapstructure:"app"`
	Logger       config.Logger   `mapstructure:"logger"`
	Database     config.Database `mapstructure:"database"`
	Redis        config.Redis    `mapstructure:"redis"`
	API          config.API      `mapstructure:"api"`
	Advisor      Advisor         `mapstructure:"advisor"`
	Gemini       Gemini          `mapstructure:"gemini"`
	Fundamentals Fundamentals    `mapstructure:"fundamentals"`
	MarketEvents MarketEvents    `mapstructure:"market_events"`
	MacroFit     MacroFit        `mapstructure:"macro_fit"`
	Telegram     Telegram        `mapstructure:"telegram"`
	Scheduler    Scheduler       `mapstructure:"scheduler"`
}

// Load loads the advisor configuration from the given path.
func Load(path string) (*Config, error) {
	var cfg Config
	if err := config.Load(path, &cfg); err != nil {
		return nil, err
	}
	cfg.applyDefaults()
	return &cfg, nil
}

func (c *Config) applyDefaults() {
	a := &c.Advisor
	if a.GenerationTimeout == 0 {
		a.GenerationTimeout = 20 * time.Second
	}
	if a.GenerationMaxAttempts == 0 {
		a.GenerationMaxAttempts = 3
	}
	if a.GenerationLeaseTTL == 0 {
		// Lease must cover the whole generation budget.
		a.GenerationLeaseTTL = time.Duration(a.GenerationMaxAttempts)*a.GenerationTimeout + 5*time.Second
	}
	if a.ReportMaxAge == 0 {
		a.ReportMaxAge = 24 * time.Hour
	}
	if a.SummaryMaxLen == 0 {
		a.SummaryMaxLen = 2000
	}
	if a.ListItemMaxLen == 0 {
		a.ListItemMaxLen = 500
	}
	if a.ListMaxItems == 0 {
		a.ListMaxItems = 20
	}
	if a.SignalLookbackWindow == 0 {
		a.SignalLookbackWindow = 7 * 24 * time.Hour
	}
	if a.SignalTTL == 0 {
		a.SignalTTL = 14 * 24 * time.Hour
	}
	if a.MaxEventSkipRate == 0 {
		a.MaxEventSkipRate = 0.5
	}
	if a.EarningsSurpriseThreshold == 0 {
		a.EarningsSurpriseThreshold = 5
	}
	if a.InstitutionalDeltaThreshold == 0 {
		a.InstitutionalDeltaThreshold = 2
	}
	if a.SentimentSigmaThreshold == 0 {
		a.SentimentSigmaThreshold = 3
	}
	if a.OptionsVolumeRatioThreshold == 0 {
		a.OptionsVolumeRatioThreshold = 3
	}
	if a.RankingConcurrency == 0 {
		a.RankingConcurrency = 8
	}
	if a.RankingDeadline == 0 {
		a.RankingDeadline = 90 * time.Second
	}
	if a.TopN == 0 {
		a.TopN = 20
	}
	if a.RunCacheTTL == 0 {
		a.RunCacheTTL = 15 * time.Minute
	}
	if a.RiskCacheTTL == 0 {
		a.RiskCacheTTL = 6 * time.Hour
	}
}
