// Package config loads the analysis run configuration: a YAML file for the
// scientific parameters an analyst edits per study, with environment
// variables (BIGDAY_ prefix) overriding individual keys for deployment knobs
// like brokers and log levels.
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds all run settings.
type Config struct {
	// Paths.
	CatalogPath string `mapstructure:"catalog_path"`
	DataDir     string `mapstructure:"data_dir"`
	OutputDir   string `mapstructure:"output_dir"`

	// Study window and filters.
	StartYear int     `mapstructure:"start_year"`
	EndYear   int     `mapstructure:"end_year"`
	LatMin    float64 `mapstructure:"lat_min"`
	LatMax    float64 `mapstructure:"lat_max"`
	LonMin    float64 `mapstructure:"lon_min"`
	LonMax    float64 `mapstructure:"lon_max"`

	// Event definition.
	MinCount int     `mapstructure:"min_count"`
	BufferKm float64 `mapstructure:"buffer_km"`

	// Reanalysis archive.
	ArchiveBaseURL string        `mapstructure:"archive_base_url"`
	ValidHour      int           `mapstructure:"valid_hour"`
	FetchTimeout   time.Duration `mapstructure:"fetch_timeout"`

	// Contrast sample.
	ContrastSize int    `mapstructure:"contrast_size"`
	Seed         uint64 `mapstructure:"seed"`

	// Optional Kafka export; empty brokers disables it.
	KafkaBrokers []string `mapstructure:"kafka_brokers"`
	KafkaTopic   string   `mapstructure:"kafka_topic"`

	// Observability.
	LogLevel    string `mapstructure:"log_level"`
	LogFormat   string `mapstructure:"log_format"`
	MetricsAddr string `mapstructure:"metrics_addr"` // empty disables the sidecar server
}

// Load reads configuration from an optional YAML file and the environment,
// applying defaults where unset. An empty path skips the file and uses
// defaults plus environment only.
func Load(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix("BIGDAY")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config %s: %w", path, err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	// Comma-separated broker lists arrive as a single string from env vars.
	if len(cfg.KafkaBrokers) == 1 && strings.Contains(cfg.KafkaBrokers[0], ",") {
		cfg.KafkaBrokers = strings.Split(cfg.KafkaBrokers[0], ",")
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("catalog_path", "data/tornadoes.csv")
	v.SetDefault("data_dir", "data/grids")
	v.SetDefault("output_dir", "out")

	v.SetDefault("start_year", 1994)
	v.SetDefault("end_year", 2023)
	v.SetDefault("lat_min", 24.0)
	v.SetDefault("lat_max", 50.0)
	v.SetDefault("lon_min", -125.0)
	v.SetDefault("lon_max", -66.0)

	v.SetDefault("min_count", 10)
	v.SetDefault("buffer_km", 75.0)

	v.SetDefault("archive_base_url", "https://reanalysis.couchcryptid.dev/v1")
	v.SetDefault("valid_hour", 18)
	v.SetDefault("fetch_timeout", "60s")

	v.SetDefault("contrast_size", 100)
	v.SetDefault("seed", 42)

	v.SetDefault("kafka_topic", "bigday-events")

	v.SetDefault("log_level", "info")
	v.SetDefault("log_format", "text")
	v.SetDefault("metrics_addr", "")
}

// Validate checks cross-field consistency.
func (c *Config) Validate() error {
	if c.CatalogPath == "" {
		return errors.New("catalog_path is required")
	}
	if c.DataDir == "" {
		return errors.New("data_dir is required")
	}
	if c.OutputDir == "" {
		return errors.New("output_dir is required")
	}
	if c.StartYear > c.EndYear {
		return fmt.Errorf("start_year %d after end_year %d", c.StartYear, c.EndYear)
	}
	if c.LatMin >= c.LatMax || c.LonMin >= c.LonMax {
		return errors.New("bounding box is empty")
	}
	if c.MinCount < 1 {
		return fmt.Errorf("min_count %d must be at least 1", c.MinCount)
	}
	if c.BufferKm < 0 {
		return fmt.Errorf("buffer_km %g must not be negative", c.BufferKm)
	}
	if c.ArchiveBaseURL == "" {
		return errors.New("archive_base_url is required")
	}
	if c.ValidHour < 0 || c.ValidHour > 23 {
		return fmt.Errorf("valid_hour %d outside 0-23", c.ValidHour)
	}
	if c.FetchTimeout <= 0 {
		return errors.New("fetch_timeout must be positive")
	}
	if c.ContrastSize < 1 {
		return fmt.Errorf("contrast_size %d must be at least 1", c.ContrastSize)
	}
	if len(c.KafkaBrokers) > 0 && c.KafkaTopic == "" {
		return errors.New("kafka_topic is required when kafka_brokers is set")
	}
	return nil
}

// KafkaEnabled reports whether event export to Kafka is configured.
func (c *Config) KafkaEnabled() bool { return len(c.KafkaBrokers) > 0 }
