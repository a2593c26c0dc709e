// Package config loads and validates the application configuration from a
// YAML file overlaid by CARDPULSE_* environment variables.
package config

import (
	"fmt"
	"os"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/kelseyhightower/envconfig"
	"gopkg.in/yaml.v2"
)

// Config represents the complete application configuration
type Config struct {
	Server      ServerConfig      `yaml:"server" envconfig:"SERVER"`
	Logging     LoggingConfig     `yaml:"logging" envconfig:"LOGGING"`
	Paths       PathsConfig       `yaml:"paths" envconfig:"PATHS"`
	FX          FXConfig          `yaml:"fx" envconfig:"FX"`
	Sources     SourcesConfig     `yaml:"sources" envconfig:"SOURCES"`
	Aggregation AggregationConfig `yaml:"aggregation" envconfig:"AGGREGATION"`
	Optimizer   OptimizerConfig   `yaml:"optimizer" envconfig:"OPTIMIZER"`
}

// ServerConfig contains HTTP server configuration
type ServerConfig struct {
	Port            int           `yaml:"port" envconfig:"PORT" default:"8080" validate:"min=1,max=65535"`
	ReadTimeout     time.Duration `yaml:"read_timeout" envconfig:"READ_TIMEOUT" default:"15s"`
	WriteTimeout    time.Duration `yaml:"write_timeout" envconfig:"WRITE_TIMEOUT" default:"15s"`
	IdleTimeout     time.Duration `yaml:"idle_timeout" envconfig:"IDLE_TIMEOUT" default:"60s"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout" envconfig:"SHUTDOWN_TIMEOUT" default:"30s"`
	RateLimit       RateLimitConfig `yaml:"rate_limit" envconfig:"RATE_LIMIT"`
}

// RateLimitConfig contains rate limiting configuration
type RateLimitConfig struct {
	Enabled bool    `yaml:"enabled" envconfig:"ENABLED" default:"true"`
	RPS     float64 `yaml:"rps" envconfig:"RPS" default:"50"`
	Burst   int     `yaml:"burst" envconfig:"BURST" default:"25"`
}

// LoggingConfig contains logging configuration
type LoggingConfig struct {
	Level    string `yaml:"level" envconfig:"LEVEL" default:"info"`
	Format   string `yaml:"format" envconfig:"FORMAT" default:"json"`
	Output   string `yaml:"output" envconfig:"OUTPUT" default:"console"`
	FilePath string `yaml:"file_path" envconfig:"FILE_PATH" default:"logs/cardpulse.log"`
}

// PathsConfig contains file system paths configuration
type PathsConfig struct {
	DataDir      string `yaml:"data_dir" envconfig:"DATA_DIR" default:"data"`
	CatalogFile  string `yaml:"catalog_file" envconfig:"CATALOG_FILE" default:"data/catalog.json"`
	SnapshotFile string `yaml:"snapshot_file" envconfig:"SNAPSHOT_FILE" default:"data/prices.json"`
	ExportDir    string `yaml:"export_dir" envconfig:"EXPORT_DIR" default:"data/exports"`
	LogsDir      string `yaml:"logs_dir" envconfig:"LOGS_DIR" default:"logs"`
}

// FXConfig configures the exchange rate feed. The anchor is the currency
// the feed quotes rates against; published prices are always USD.
type FXConfig struct {
	FeedURL string        `yaml:"feed_url" envconfig:"FEED_URL" validate:"omitempty,url"`
	Anchor  string        `yaml:"anchor" envconfig:"ANCHOR" default:"CAD" validate:"len=3"`
	Timeout time.Duration `yaml:"timeout" envconfig:"TIMEOUT" default:"30s"`
}

// BrowseConfig configures one active-listings marketplace source.
type BrowseConfig struct {
	Name        string        `yaml:"name" envconfig:"NAME"`
	BaseURL     string        `yaml:"base_url" envconfig:"BASE_URL" validate:"omitempty,url"`
	Marketplace string        `yaml:"marketplace" envconfig:"MARKETPLACE"`
	Token       string        `yaml:"token" envconfig:"TOKEN"`
	CategoryID  string        `yaml:"category_id" envconfig:"CATEGORY_ID" default:"212"`
	PageSize    int           `yaml:"page_size" envconfig:"PAGE_SIZE" default:"60" validate:"min=1,max=200"`
	PageLimit   int           `yaml:"page_limit" envconfig:"PAGE_LIMIT" default:"180"`
	PacingDelay time.Duration `yaml:"pacing_delay" envconfig:"PACING_DELAY" default:"250ms"`
	Timeout     time.Duration `yaml:"timeout" envconfig:"TIMEOUT" default:"30s"`
}

// SoldConfig configures the sold-comps source.
type SoldConfig struct {
	Name     string        `yaml:"name" envconfig:"NAME" default:"sold-comps"`
	URL      string        `yaml:"url" envconfig:"URL" validate:"omitempty,url"`
	MaxItems int           `yaml:"max_items" envconfig:"MAX_ITEMS" default:"60" validate:"min=1"`
	Timeout  time.Duration `yaml:"timeout" envconfig:"TIMEOUT" default:"120s"`
}

// SourcesConfig bundles the listing sources and their shared rate limit.
type SourcesConfig struct {
	Browse BrowseConfig `yaml:"browse" envconfig:"BROWSE"`
	Sold   SoldConfig   `yaml:"sold" envconfig:"SOLD"`
	RPS    float64      `yaml:"rps" envconfig:"RPS" default:"2"`
	Burst  int          `yaml:"burst" envconfig:"BURST" default:"1"`
}

// AggregationConfig controls the batch statistics pipeline.
type AggregationConfig struct {
	TrimPercent   float64 `yaml:"trim_percent" envconfig:"TRIM_PERCENT" default:"0.4" validate:"gte=0,lt=0.5"`
	MinSampleSize int     `yaml:"min_sample_size" envconfig:"MIN_SAMPLE_SIZE" default:"4" validate:"min=1"`
	Workers       int     `yaml:"workers" envconfig:"WORKERS" default:"4" validate:"min=1,max=64"`
	MergePolicy   string  `yaml:"merge_policy" envconfig:"MERGE_POLICY" default:"prefer_first" validate:"oneof=prefer_first average"`
}

// OptimizerConfig controls the budget suggestion engine.
type OptimizerConfig struct {
	MaxTableCells int64  `yaml:"max_table_cells" envconfig:"MAX_TABLE_CELLS" default:"50000000" validate:"min=1"`
	TieBreak      string `yaml:"tie_break" envconfig:"TIE_BREAK" default:"leftover_then_count" validate:"oneof=leftover_then_count count_then_leftover"`
}

// Load loads configuration from the YAML file (when present) overlaid by
// environment variables. Env always wins: envconfig is processed last.
func Load() (*Config, error) {
	return LoadFromFile(configFilePath())
}

// LoadFromFile is Load with an explicit config file path, for tests.
func LoadFromFile(path string) (*Config, error) {
	var cfg Config

	// Defaults first so yaml only overrides what it sets.
	if err := envconfig.Process(envPrefix, &cfg); err != nil {
		return nil, fmt.Errorf("failed to load config defaults: %w", err)
	}

	if path != "" {
		if _, err := os.Stat(path); err == nil {
			data, err := os.ReadFile(path)
			if err != nil {
				return nil, fmt.Errorf("failed to read config file: %w", err)
			}
			if err := yaml.Unmarshal(data, &cfg); err != nil {
				return nil, fmt.Errorf("failed to parse config file: %w", err)
			}
		}
	}

	// Env on top of both defaults and file.
	if err := envconfig.Process(envPrefix, &cfg); err != nil {
		return nil, fmt.Errorf("failed to load config from env: %w", err)
	}

	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return &cfg, nil
}

func configFilePath() string {
	if path := os.Getenv(envPrefix + "_CONFIG_FILE"); path != "" {
		return path
	}
	return defaultConfigFile
}

func (c *Config) validate() error {
	return validator.New().Struct(c)
}
