package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/creasty/defaults"
	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"
)

type Config struct {
	Environment string `yaml:"environment" validate:"required"`
	Server      struct {
		Port            int           `yaml:"port" default:"8080"`
		ReadTimeout     time.Duration `yaml:"read_timeout" default:"10s"`
		WriteTimeout    time.Duration `yaml:"write_timeout" default:"10s"`
		ShutdownTimeout time.Duration `yaml:"shutdown_timeout" default:"10s"`
	} `yaml:"server"`
	Logging struct {
		Level  string `yaml:"level" default:"info"`
		Format string `yaml:"format" default:"console"`
		Output string `yaml:"output" default:"stdout"`
	} `yaml:"logging"`
	Metrics struct {
		Enabled bool   `yaml:"enabled" default:"true"`
		Path    string `yaml:"path" default:"/metrics"`
	} `yaml:"metrics"`
	Models struct {
		Dir         string   `yaml:"dir" validate:"required"`
		Commodities []string `yaml:"commodities"`
		Preload     bool     `yaml:"preload"`
	} `yaml:"models"`
	ClickHouse struct {
		Host             string        `yaml:"host"`
		Port             int           `yaml:"port" default:"9000"`
		Database         string        `yaml:"database" default:"mandicast"`
		User             string        `yaml:"user" default:"default"`
		Password         string        `yaml:"password"`
		UseHTTP          bool          `yaml:"use_http"`
		AsyncInsert      bool          `yaml:"async_insert"`
		WaitForAsync     bool          `yaml:"wait_for_async_insert"`
		DialTimeout      time.Duration `yaml:"dial_timeout" default:"5s"`
		ReadTimeout      time.Duration `yaml:"read_timeout" default:"10s"`
		WriteTimeout     time.Duration `yaml:"write_timeout" default:"10s"`
		MaxExecutionTime time.Duration `yaml:"max_execution_time" default:"30s"`
	} `yaml:"clickhouse"`
	Kafka struct {
		Enabled      bool     `yaml:"enabled"`
		Brokers      []string `yaml:"brokers"`
		AuditTopic   string   `yaml:"audit_topic" default:"overseer.audit"`
		LogTopic     string   `yaml:"log_topic"`
		ActualsTopic string   `yaml:"actuals_topic" default:"market.actuals"`
		RequiredAcks int      `yaml:"required_acks" default:"1"`
		Compression  string   `yaml:"compression" default:"snappy"`
		Consumer     struct {
			GroupID    string        `yaml:"group_id" default:"mandicast-actuals"`
			Workers    int           `yaml:"workers" default:"2"`
			BufferSize int           `yaml:"buffer_size" default:"256"`
			RetryMax   int           `yaml:"retry_max" default:"3"`
			BackoffMin time.Duration `yaml:"backoff_min" default:"100ms"`
			BackoffMax time.Duration `yaml:"backoff_max" default:"2s"`
			DLQTopic   string        `yaml:"dlq_topic"`
			MinBytes   int           `yaml:"min_bytes" default:"1"`
			MaxBytes   int           `yaml:"max_bytes" default:"1048576"`
		} `yaml:"consumer"`
	} `yaml:"kafka"`
	Cache struct {
		Enabled  bool          `yaml:"enabled"`
		Host     string        `yaml:"host" default:"localhost"`
		Port     int           `yaml:"port" default:"6379"`
		Password string        `yaml:"password"`
		DB       int           `yaml:"db"`
		TTL      time.Duration `yaml:"ttl" default:"5m"`
	} `yaml:"cache"`
	Explainer struct {
		URL     string        `yaml:"url"`
		Timeout time.Duration `yaml:"timeout" default:"5s"`
	} `yaml:"explainer"`
	Overseer OverseerConfig `yaml:"overseer"`
}

// PerishableSpec bounds safe storage for a perishable commodity.
type PerishableSpec struct {
	MaxSafeDays    int     `yaml:"max_safe_days"`
	RiskMultiplier float64 `yaml:"risk_multiplier"`
}

// OverseerConfig carries the overseer's hand-tuned thresholds and penalty
// weights. They are deliberately configuration, not literals: the values
// below match the shipped calibration but can be retuned without a rebuild.
type OverseerConfig struct {
	ConfidenceFloor   float64 `yaml:"confidence_floor" default:"0.40"`
	ConfidenceCeiling float64 `yaml:"confidence_ceiling" default:"0.95"`

	SpikePct        float64 `yaml:"spike_pct" default:"20"`
	SpikePenalty    float64 `yaml:"spike_penalty" default:"0.15"`
	DeclinePct      float64 `yaml:"decline_pct" default:"15"`
	DeclinePenalty  float64 `yaml:"decline_penalty" default:"0.10"`
	LongHoldDays    int     `yaml:"long_hold_days" default:"60"`
	LongHoldPenalty float64 `yaml:"long_hold_penalty" default:"0.08"`
	VariationLimit  float64 `yaml:"variation_limit" default:"0.15"`
	VariancePenalty float64 `yaml:"variance_penalty" default:"0.08"`
	HighRiskPenalty float64 `yaml:"high_risk_penalty" default:"0.05"`

	CrossValWindowDays int     `yaml:"crossval_window_days" default:"30"`
	CrossValMinPoints  int     `yaml:"crossval_min_points" default:"7"`
	DivergencePct      float64 `yaml:"divergence_pct" default:"25"`
	DivergencePenalty  float64 `yaml:"divergence_penalty" default:"0.10"`

	PerishableHoldPenalty     float64 `yaml:"perishable_hold_penalty" default:"0.10"`
	PerishableOverridePenalty float64 `yaml:"perishable_override_penalty" default:"0.15"`
	PerishableVolPenalty      float64 `yaml:"perishable_vol_penalty" default:"0.05"`

	MissingFeaturesPenalty float64 `yaml:"missing_features_penalty" default:"0.10"`
	SparseMomentumPenalty  float64 `yaml:"sparse_momentum_penalty" default:"0.05"`
	DefaultSeasonalPenalty float64 `yaml:"default_seasonal_penalty" default:"0.03"`
	NoWeatherPenalty       float64 `yaml:"no_weather_penalty" default:"0.03"`
	MinMomentumPoints      int     `yaml:"min_momentum_points" default:"3"`

	DriftRecentDays   int     `yaml:"drift_recent_days" default:"7"`
	DriftBaselineDays int     `yaml:"drift_baseline_days" default:"30"`
	DriftShiftPct     float64 `yaml:"drift_shift_pct" default:"10"`
	DriftPenalty      float64 `yaml:"drift_penalty" default:"0.10"`
	DriftReactionPct  float64 `yaml:"drift_reaction_pct" default:"15"`
	DriftMaxHoldDays  int     `yaml:"drift_max_hold_days" default:"14"`

	AccuracyWindowDays      int     `yaml:"accuracy_window_days" default:"90"`
	AccuracyHighPct         float64 `yaml:"accuracy_high_pct" default:"25"`
	AccuracyHighPenalty     float64 `yaml:"accuracy_high_penalty" default:"0.15"`
	AccuracyModeratePct     float64 `yaml:"accuracy_moderate_pct" default:"15"`
	AccuracyModeratePenalty float64 `yaml:"accuracy_moderate_penalty" default:"0.08"`

	Perishables map[string]PerishableSpec `yaml:"perishables"`
}

// Load reads and parses a YAML configuration file.
func Load(path string) (*Config, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}

	var c Config
	if err := defaults.Set(&c); err != nil {
		return nil, fmt.Errorf("config defaults: %w", err)
	}
	if err := yaml.Unmarshal(b, &c); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	c.applyFallbacks()

	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}

	return &c, nil
}

// LoadWithEnv loads config from YAML and overrides with environment variables.
func LoadWithEnv(path string) (*Config, error) {
	c, err := Load(path)
	if err != nil {
		return nil, err
	}

	if v := os.Getenv("MODELS_DIR"); v != "" {
		c.Models.Dir = v
	}
	if v := os.Getenv("COMMODITIES"); v != "" {
		c.Models.Commodities = strings.Split(v, ",")
	}
	if v := os.Getenv("CLICKHOUSE_HOST"); v != "" {
		c.ClickHouse.Host = v
	}
	if v := os.Getenv("CLICKHOUSE_PASSWORD"); v != "" {
		c.ClickHouse.Password = v
	}
	if v := os.Getenv("KAFKA_BROKERS"); v != "" {
		c.Kafka.Brokers = strings.Split(v, ",")
		c.Kafka.Enabled = true
	}
	if v := os.Getenv("REDIS_HOST"); v != "" {
		c.Cache.Host = v
		c.Cache.Enabled = true
	}
	if v := os.Getenv("EXPLAINER_URL"); v != "" {
		c.Explainer.URL = v
	}

	return c, nil
}

// applyFallbacks fills values that defaults tags cannot express.
func (c *Config) applyFallbacks() {
	if c.Overseer.Perishables == nil {
		c.Overseer.Perishables = map[string]PerishableSpec{
			"onion":     {MaxSafeDays: 14, RiskMultiplier: 2.5},
			"sugarcane": {MaxSafeDays: 3, RiskMultiplier: 4.0},
			"tomato":    {MaxSafeDays: 7, RiskMultiplier: 3.0},
			"cabbage":   {MaxSafeDays: 7, RiskMultiplier: 3.0},
		}
	}
}

// Validate checks if the configuration is valid.
func (c *Config) Validate() error {
	v := validator.New()
	if err := v.Struct(c); err != nil {
		return err
	}
	if c.Overseer.ConfidenceFloor >= c.Overseer.ConfidenceCeiling {
		return fmt.Errorf("overseer: confidence_floor %.2f must be below confidence_ceiling %.2f",
			c.Overseer.ConfidenceFloor, c.Overseer.ConfidenceCeiling)
	}
	if c.Kafka.Enabled && len(c.Kafka.Brokers) == 0 {
		return fmt.Errorf("kafka.brokers cannot be empty when kafka is enabled")
	}
	if c.Cache.Enabled && c.Cache.Host == "" {
		return fmt.Errorf("cache.host is required when cache is enabled")
	}
	return nil
}
