package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/creasty/defaults"
	"gopkg.in/yaml.v3"
)

// Calendar feature names derived from the trading date.
const (
	FeatureYear      = "year"
	FeatureMonth     = "month"
	FeatureDay       = "day"
	FeatureDayOfWeek = "dayofweek"
)

type Config struct {
	Environment string `yaml:"environment" default:"development"`
	Server      struct {
		Host            string        `yaml:"host" default:"0.0.0.0"`
		Port            int           `yaml:"port" default:"8080"`
		ReadTimeout     time.Duration `yaml:"read_timeout" default:"10s"`
		WriteTimeout    time.Duration `yaml:"write_timeout" default:"30s"`
		ShutdownTimeout time.Duration `yaml:"shutdown_timeout" default:"10s"`
		PredictLimit    struct {
			Burst     float64 `yaml:"burst" default:"10"`
			PerSecond float64 `yaml:"per_second" default:"2"`
		} `yaml:"predict_limit"`
	} `yaml:"server"`
	Metrics struct {
		Enabled       bool          `yaml:"enabled" default:"true"`
		Path          string        `yaml:"path" default:"/metrics"`
		SlowThreshold time.Duration `yaml:"slow_threshold" default:"2s"`
	} `yaml:"metrics"`
	Logging struct {
		Level  string `yaml:"level" default:"info"`
		Format string `yaml:"format" default:"console"`
		Output string `yaml:"output" default:"stdout"`
	} `yaml:"logging"`
	Data struct {
		Source   string        `yaml:"source" default:"csv"`
		Path     string        `yaml:"path" default:"data/IBM_Stock_1980_2025.csv"`
		CacheTTL time.Duration `yaml:"cache_ttl" default:"10m"`
		Symbol   string        `yaml:"symbol" default:"IBM"`
	} `yaml:"data"`
	Schema Schema `yaml:"schema"`
	Models struct {
		Dir       string  `yaml:"dir" default:"models"`
		TestRatio float64 `yaml:"test_ratio" default:"0.2"`
		Seed      int64   `yaml:"seed" default:"42"`
		Forest    struct {
			Trees           int `yaml:"trees" default:"200"`
			MaxDepth        int `yaml:"max_depth"`
			MinSamplesSplit int `yaml:"min_samples_split" default:"2"`
			MinSamplesLeaf  int `yaml:"min_samples_leaf" default:"1"`
			MaxFeatures     int `yaml:"max_features"`
			Workers         int `yaml:"workers"`
		} `yaml:"forest"`
	} `yaml:"models"`
	Redis struct {
		Enabled  bool   `yaml:"enabled"`
		Host     string `yaml:"host" default:"localhost"`
		Port     int    `yaml:"port" default:"6379"`
		Password string `yaml:"password"`
		DB       int    `yaml:"db"`
		Prefix   string `yaml:"prefix" default:"pricelens"`
	} `yaml:"redis"`
	Kafka struct {
		Enabled          bool     `yaml:"enabled"`
		Brokers          []string `yaml:"brokers"`
		PredictionsTopic string   `yaml:"predictions_topic" default:"pricelens.predictions"`
		TrainingTopic    string   `yaml:"training_topic" default:"pricelens.training"`
		LogsTopic        string   `yaml:"logs_topic" default:"pricelens.logs"`
		RequiredAcks     int      `yaml:"required_acks" default:"-1"`
		Compression      string   `yaml:"compression" default:"gzip"`
		Producer         struct {
			MaxAttempts  int           `yaml:"max_attempts" default:"3"`
			Linger       time.Duration `yaml:"linger" default:"1s"`
			BatchSize    int           `yaml:"batch_size" default:"100"`
			BatchBytes   int           `yaml:"batch_bytes" default:"1048576"`
			WriteTimeout time.Duration `yaml:"write_timeout" default:"10s"`
			ReadTimeout  time.Duration `yaml:"read_timeout" default:"10s"`
			Async        bool          `yaml:"async"`
		} `yaml:"producer"`
		LogFlushInterval time.Duration `yaml:"log_flush_interval" default:"30s"`
		LogFlushCount    int           `yaml:"log_flush_count" default:"100"`
	} `yaml:"kafka"`
	ClickHouse struct {
		Host             string        `yaml:"host" default:"localhost"`
		Port             int           `yaml:"port" default:"9000"`
		Database         string        `yaml:"database" default:"pricelens"`
		Table            string        `yaml:"table" default:"daily_prices"`
		User             string        `yaml:"user" default:"default"`
		Password         string        `yaml:"password"`
		UseHTTP          bool          `yaml:"use_http"`
		DialTimeout      time.Duration `yaml:"dial_timeout" default:"5s"`
		ReadTimeout      time.Duration `yaml:"read_timeout" default:"30s"`
		MaxExecutionTime time.Duration `yaml:"max_execution_time" default:"60s"`
	} `yaml:"clickhouse"`
}

// Schema is the feature contract shared by training and serving.
type Schema struct {
	Features    []string `yaml:"features"`
	Categorical []string `yaml:"categorical"`
	Target      string   `yaml:"target" default:"Close"`
}

// DefaultFeatures is used when the config file does not list any.
var DefaultFeatures = []string{"Open", "High", "Low", "Volume", FeatureYear, FeatureMonth, FeatureDay}

// IsCategorical reports whether name was declared as a categorical feature.
func (s Schema) IsCategorical(name string) bool {
	for _, c := range s.Categorical {
		if c == name {
			return true
		}
	}
	return false
}

// Default returns a config populated with default values only.
func Default() *Config {
	var c Config
	_ = defaults.Set(&c)
	c.Schema.Features = append([]string(nil), DefaultFeatures...)
	return &c
}

// Load reads and parses a YAML configuration file.
func Load(path string) (*Config, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}
	return Parse(b)
}

// Parse decodes YAML bytes, applies defaults and validates the result.
func Parse(b []byte) (*Config, error) {
	var c Config
	if err := defaults.Set(&c); err != nil {
		return nil, fmt.Errorf("config defaults: %w", err)
	}
	if err := yaml.Unmarshal(b, &c); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	if len(c.Schema.Features) == 0 {
		c.Schema.Features = append([]string(nil), DefaultFeatures...)
	}

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
	if err := c.applyEnv(); err != nil {
		return nil, err
	}
	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}
	return c, nil
}

func (c *Config) applyEnv() error {
	if v := os.Getenv("PRICELENS_DATA_PATH"); v != "" {
		c.Data.Path = v
	}
	if v := os.Getenv("PRICELENS_MODELS_DIR"); v != "" {
		c.Models.Dir = v
	}
	if v := os.Getenv("PRICELENS_TARGET"); v != "" {
		c.Schema.Target = v
	}
	if v := os.Getenv("REDIS_ADDR"); v != "" {
		host, port, ok := strings.Cut(v, ":")
		if ok {
			p, err := strconv.Atoi(port)
			if err != nil || p <= 0 || p > 65535 {
				return fmt.Errorf("REDIS_ADDR: invalid port %q", port)
			}
			c.Redis.Port = p
		}
		c.Redis.Enabled = true
		c.Redis.Host = host
	}
	if v := os.Getenv("KAFKA_BROKERS"); v != "" {
		c.Kafka.Enabled = true
		c.Kafka.Brokers = strings.Split(v, ",")
	}
	return nil
}

// Validate checks if the configuration is valid.
func (c *Config) Validate() error {
	if c.Environment == "" {
		return fmt.Errorf("environment is required")
	}
	if c.Data.Source != "csv" && c.Data.Source != "clickhouse" {
		return fmt.Errorf("data.source must be 'csv' or 'clickhouse', got '%s'", c.Data.Source)
	}
	if c.Data.Source == "csv" && c.Data.Path == "" {
		return fmt.Errorf("data.path is required for csv source")
	}
	if c.Models.Dir == "" {
		return fmt.Errorf("models.dir is required")
	}
	if c.Models.TestRatio <= 0 || c.Models.TestRatio >= 1 {
		return fmt.Errorf("models.test_ratio must be in (0, 1), got %v", c.Models.TestRatio)
	}
	if c.Models.Forest.Trees <= 0 {
		return fmt.Errorf("models.forest.trees must be positive")
	}
	if c.Kafka.Enabled && len(c.Kafka.Brokers) == 0 {
		return fmt.Errorf("kafka.brokers cannot be empty when kafka is enabled")
	}
	return c.Schema.Validate()
}

// Validate enforces an explicit feature contract: no duplicates, no target
// among the features, and calendar names limited to year/month/day/dayofweek.
func (s Schema) Validate() error {
	if s.Target == "" {
		return fmt.Errorf("schema.target is required")
	}
	if s.Target != "Close" && s.Target != "Adj_Close" {
		return fmt.Errorf("schema.target must be 'Close' or 'Adj_Close', got '%s'", s.Target)
	}
	if len(s.Features) == 0 {
		return fmt.Errorf("schema.features cannot be empty")
	}
	seen := make(map[string]struct{}, len(s.Features))
	for _, f := range s.Features {
		if f == "" {
			return fmt.Errorf("schema.features contains an empty name")
		}
		if _, dup := seen[f]; dup {
			return fmt.Errorf("schema.features contains duplicate '%s'", f)
		}
		seen[f] = struct{}{}
		if f == s.Target {
			return fmt.Errorf("schema.features must not contain the target '%s'", f)
		}
		if isCalendarLike(f) && !isCalendar(f) {
			return fmt.Errorf("schema.features: unknown calendar feature '%s' (use year, month, day or dayofweek)", f)
		}
	}
	for _, cat := range s.Categorical {
		if _, ok := seen[cat]; !ok {
			return fmt.Errorf("schema.categorical '%s' is not listed in schema.features", cat)
		}
		if isCalendar(cat) {
			return fmt.Errorf("schema.categorical '%s' is a numeric calendar feature", cat)
		}
	}
	return nil
}

func isCalendar(name string) bool {
	switch name {
	case FeatureYear, FeatureMonth, FeatureDay, FeatureDayOfWeek:
		return true
	}
	return false
}

// isCalendarLike catches the spellings that drifted between dashboard
// variants (Year, Day, day_of_week, weekday).
func isCalendarLike(name string) bool {
	switch strings.ToLower(strings.ReplaceAll(name, "_", "")) {
	case "year", "month", "day", "dayofweek", "weekday":
		return true
	}
	return false
}
