// Package config loads application configuration from file and environment
// and owns global logger initialization.
package config

import (
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Config holds the full application configuration.
type Config struct {
	Store    StoreConfig    `yaml:"store" mapstructure:"store"`
	Pipeline PipelineConfig `yaml:"pipeline" mapstructure:"pipeline"`
	Enrich   EnrichConfig   `yaml:"enrich" mapstructure:"enrich"`
	Scoring  ScoringConfig  `yaml:"scoring" mapstructure:"scoring"`
	Pricing  PricingConfig  `yaml:"pricing" mapstructure:"pricing"`
	Market   MarketConfig   `yaml:"market" mapstructure:"market"`
	Server   ServerConfig   `yaml:"server" mapstructure:"server"`
	Log      LogConfig      `yaml:"log" mapstructure:"log"`
}

// StoreConfig configures the lead store backend.
type StoreConfig struct {
	Driver      string `yaml:"driver" mapstructure:"driver"` // "sqlite" or "postgres"
	DatabaseURL string `yaml:"database_url" mapstructure:"database_url"`
}

// PipelineConfig configures the ingestion pipeline.
type PipelineConfig struct {
	QueueSize           int     `yaml:"queue_size" mapstructure:"queue_size"`
	LeadTTLDays         int     `yaml:"lead_ttl_days" mapstructure:"lead_ttl_days"`
	SimilarityThreshold float64 `yaml:"similarity_threshold" mapstructure:"similarity_threshold"`
	// SourcePriority resolves field conflicts during fusion, highest first.
	// Registry-verified data outranks every entry.
	SourcePriority []string `yaml:"source_priority" mapstructure:"source_priority"`
}

// EnrichConfig configures registry enrichment.
type EnrichConfig struct {
	Concurrency       int     `yaml:"concurrency" mapstructure:"concurrency"`
	LookupTimeoutSecs int     `yaml:"lookup_timeout_secs" mapstructure:"lookup_timeout_secs"`
	MaxRetries        int     `yaml:"max_retries" mapstructure:"max_retries"`
	RetryBaseSecs     int     `yaml:"retry_base_secs" mapstructure:"retry_base_secs"`
	RatePerSecond     float64 `yaml:"rate_per_second" mapstructure:"rate_per_second"`

	// FMCSAWebKey authenticates registry lookups. Enrichment is skipped when
	// empty.
	FMCSAWebKey  string `yaml:"fmcsa_web_key" mapstructure:"fmcsa_web_key"`
	FMCSABaseURL string `yaml:"fmcsa_base_url" mapstructure:"fmcsa_base_url"`
}

// LookupTimeout returns the per-call registry lookup timeout.
func (e EnrichConfig) LookupTimeout() time.Duration {
	return time.Duration(e.LookupTimeoutSecs) * time.Second
}

// ScoringConfig configures the composite scoring engine. The five component
// weights are documented to sum to 1.0; Validate in internal/scoring enforces
// this with tolerance.
type ScoringConfig struct {
	IndustryFitWeight       float64 `yaml:"industry_fit_weight" mapstructure:"industry_fit_weight"`
	VolumeWeight            float64 `yaml:"volume_weight" mapstructure:"volume_weight"`
	VerificationWeight      float64 `yaml:"verification_weight" mapstructure:"verification_weight"`
	RecencyWeight           float64 `yaml:"recency_weight" mapstructure:"recency_weight"`
	SourceReliabilityWeight float64 `yaml:"source_reliability_weight" mapstructure:"source_reliability_weight"`

	// IndustryFit maps normalized industry tags to a 0..100 fit value.
	IndustryFit        map[string]float64 `yaml:"industry_fit" mapstructure:"industry_fit"`
	DefaultIndustryFit float64            `yaml:"default_industry_fit" mapstructure:"default_industry_fit"`

	// VolumeCap is the monthly shipment count that saturates the volume signal.
	VolumeCap float64 `yaml:"volume_cap" mapstructure:"volume_cap"`

	// VerificationBonus is the 0..100 component value applied when verified.
	VerificationBonus float64 `yaml:"verification_bonus" mapstructure:"verification_bonus"`

	// RecencyHalfLifeDays controls the exponential recency decay.
	RecencyHalfLifeDays int `yaml:"recency_half_life_days" mapstructure:"recency_half_life_days"`

	// SourceReliability maps source IDs to a 0..100 reliability value.
	SourceReliability        map[string]float64 `yaml:"source_reliability" mapstructure:"source_reliability"`
	DefaultSourceReliability float64            `yaml:"default_source_reliability" mapstructure:"default_source_reliability"`

	// Tier thresholds; tier assignment is monotonic in score.
	HighTierThreshold   float64 `yaml:"high_tier_threshold" mapstructure:"high_tier_threshold"`
	MediumTierThreshold float64 `yaml:"medium_tier_threshold" mapstructure:"medium_tier_threshold"`

	// Logistic transform for conversion probability.
	LogisticMidpoint     float64 `yaml:"logistic_midpoint" mapstructure:"logistic_midpoint"`
	LogisticSteepness    float64 `yaml:"logistic_steepness" mapstructure:"logistic_steepness"`
	VerifiedLogisticBump float64 `yaml:"verified_logistic_bump" mapstructure:"verified_logistic_bump"`

	// AverageLoadValueUSD feeds the expected-revenue estimate.
	AverageLoadValueUSD float64 `yaml:"average_load_value_usd" mapstructure:"average_load_value_usd"`
}

// PricingConfig configures the quote pricing engine.
type PricingConfig struct {
	TablesPath string `yaml:"tables_path" mapstructure:"tables_path"` // optional YAML override

	TargetMargin         float64 `yaml:"target_margin" mapstructure:"target_margin"`
	WinProbabilityTarget float64 `yaml:"win_probability_target" mapstructure:"win_probability_target"`
	MaxPositioningSwing  float64 `yaml:"max_positioning_swing" mapstructure:"max_positioning_swing"` // fraction of base rate

	QuoteValidityHours int `yaml:"quote_validity_hours" mapstructure:"quote_validity_hours"`

	// Confidence weighting over distance certainty, snapshot freshness,
	// and rate-table coverage.
	DistanceConfidenceWeight  float64 `yaml:"distance_confidence_weight" mapstructure:"distance_confidence_weight"`
	FreshnessConfidenceWeight float64 `yaml:"freshness_confidence_weight" mapstructure:"freshness_confidence_weight"`
	CoverageConfidenceWeight  float64 `yaml:"coverage_confidence_weight" mapstructure:"coverage_confidence_weight"`

	// StaleConfidenceCeiling caps confidence when pricing off a snapshot
	// older than the market max age.
	StaleConfidenceCeiling float64 `yaml:"stale_confidence_ceiling" mapstructure:"stale_confidence_ceiling"`

	// Recommendation thresholds.
	PremiumDemandThreshold    float64 `yaml:"premium_demand_threshold" mapstructure:"premium_demand_threshold"`
	MaintainWinProbThreshold  float64 `yaml:"maintain_win_prob_threshold" mapstructure:"maintain_win_prob_threshold"`
	DiscountCapacityThreshold float64 `yaml:"discount_capacity_threshold" mapstructure:"discount_capacity_threshold"`
}

// QuoteValidity returns the quote validity window.
func (p PricingConfig) QuoteValidity() time.Duration {
	return time.Duration(p.QuoteValidityHours) * time.Hour
}

// MarketConfig configures the market snapshot refresher.
type MarketConfig struct {
	RefreshIntervalMins    int `yaml:"refresh_interval_mins" mapstructure:"refresh_interval_mins"`
	FreshnessThresholdMins int `yaml:"freshness_threshold_mins" mapstructure:"freshness_threshold_mins"`
	MaxAgeMins             int `yaml:"max_age_mins" mapstructure:"max_age_mins"`

	// SeedPath points at a YAML snapshot file feeding the static market
	// feed.
	SeedPath string `yaml:"seed_path" mapstructure:"seed_path"`
}

// FreshnessThreshold returns the age past which quote confidence starts to drop.
func (m MarketConfig) FreshnessThreshold() time.Duration {
	return time.Duration(m.FreshnessThresholdMins) * time.Minute
}

// MaxAge returns the age past which a snapshot is considered stale.
func (m MarketConfig) MaxAge() time.Duration {
	return time.Duration(m.MaxAgeMins) * time.Minute
}

// RefreshInterval returns the background refresh cadence.
func (m MarketConfig) RefreshInterval() time.Duration {
	return time.Duration(m.RefreshIntervalMins) * time.Minute
}

// ServerConfig configures the HTTP server.
type ServerConfig struct {
	Port int `yaml:"port" mapstructure:"port"`
}

// LogConfig configures logging.
type LogConfig struct {
	Level  string `yaml:"level" mapstructure:"level"`
	Format string `yaml:"format" mapstructure:"format"`
}

// Load reads configuration from file and environment.
func Load() (*Config, error) {
	v := viper.New()

	// Config file
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")

	// Environment
	v.SetEnvPrefix("LEADFLOW")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	// Read config file (optional)
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, eris.Wrap(err, "config: read file")
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, eris.Wrap(err, "config: unmarshal")
	}

	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("store.driver", "sqlite")
	v.SetDefault("store.database_url", "leadflow.db")
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")
	v.SetDefault("server.port", 8080)

	v.SetDefault("pipeline.queue_size", 256)
	v.SetDefault("pipeline.lead_ttl_days", 180)
	v.SetDefault("pipeline.similarity_threshold", 0.8)
	v.SetDefault("pipeline.source_priority", []string{"fmcsa", "thomas_net", "trucking_db"})

	v.SetDefault("enrich.concurrency", 8)
	v.SetDefault("enrich.lookup_timeout_secs", 10)
	v.SetDefault("enrich.max_retries", 5)
	v.SetDefault("enrich.retry_base_secs", 900)
	v.SetDefault("enrich.rate_per_second", 5.0)

	// Weights sum to 1.0.
	v.SetDefault("scoring.industry_fit_weight", 0.25)
	v.SetDefault("scoring.volume_weight", 0.25)
	v.SetDefault("scoring.verification_weight", 0.20)
	v.SetDefault("scoring.recency_weight", 0.15)
	v.SetDefault("scoring.source_reliability_weight", 0.15)
	v.SetDefault("scoring.default_industry_fit", 40.0)
	v.SetDefault("scoring.volume_cap", 200.0)
	v.SetDefault("scoring.verification_bonus", 100.0)
	v.SetDefault("scoring.recency_half_life_days", 30)
	v.SetDefault("scoring.default_source_reliability", 50.0)
	v.SetDefault("scoring.high_tier_threshold", 85.0)
	v.SetDefault("scoring.medium_tier_threshold", 70.0)
	v.SetDefault("scoring.logistic_midpoint", 55.0)
	v.SetDefault("scoring.logistic_steepness", 0.08)
	v.SetDefault("scoring.verified_logistic_bump", 5.0)
	v.SetDefault("scoring.average_load_value_usd", 1850.0)

	v.SetDefault("pricing.target_margin", 0.18)
	v.SetDefault("pricing.win_probability_target", 0.65)
	v.SetDefault("pricing.max_positioning_swing", 0.10)
	v.SetDefault("pricing.quote_validity_hours", 48)
	v.SetDefault("pricing.distance_confidence_weight", 0.3)
	v.SetDefault("pricing.freshness_confidence_weight", 0.4)
	v.SetDefault("pricing.coverage_confidence_weight", 0.3)
	v.SetDefault("pricing.stale_confidence_ceiling", 0.5)
	v.SetDefault("pricing.premium_demand_threshold", 0.8)
	v.SetDefault("pricing.maintain_win_prob_threshold", 0.85)
	v.SetDefault("pricing.discount_capacity_threshold", 0.35)

	v.SetDefault("market.refresh_interval_mins", 15)
	v.SetDefault("market.freshness_threshold_mins", 30)
	v.SetDefault("market.max_age_mins", 120)
}

// InitLogger initializes the global zap logger.
func InitLogger(cfg LogConfig) error {
	var zapCfg zap.Config
	if cfg.Format == "console" {
		zapCfg = zap.NewDevelopmentConfig()
	} else {
		zapCfg = zap.NewProductionConfig()
	}

	level, err := zapcore.ParseLevel(cfg.Level)
	if err != nil {
		return eris.Wrap(err, "config: parse log level")
	}
	zapCfg.Level.SetLevel(level)

	logger, err := zapCfg.Build()
	if err != nil {
		return eris.Wrap(err, "config: build logger")
	}
	zap.ReplaceGlobals(logger)

	return nil
}
