package config

import (
	"errors"
	"fmt"
	"time"

	"github.com/kelseyhightower/envconfig"
)

// Config holds all service settings, populated from environment variables.
type Config struct {
	// Station coordinates for the live reading. Defaults are Boston.
	Latitude  float64 `envconfig:"LATITUDE" default:"42.3601"`
	Longitude float64 `envconfig:"LONGITUDE" default:"-71.0589"`

	// Historical source and published artifact locations.
	AWSRegion      string `envconfig:"AWS_REGION" default:"us-east-1"`
	S3Bucket       string `envconfig:"S3_BUCKET" default:"weather-etl"`
	S3RawPrefix    string `envconfig:"S3_RAW_PREFIX" default:"processed/raw/"`
	S3OutputBucket string `envconfig:"S3_OUTPUT_BUCKET"` // defaults to S3Bucket
	S3OutputKey    string `envconfig:"S3_OUTPUT_KEY" default:"combined/weather_combined.csv"`

	// Live fetch policy: bounded retries with a fixed delay, then degrade to
	// a run without live data.
	FetchTimeout    time.Duration `envconfig:"FETCH_TIMEOUT" default:"10s"`
	FetchRetries    int           `envconfig:"FETCH_RETRIES" default:"3"`
	FetchRetryDelay time.Duration `envconfig:"FETCH_RETRY_DELAY" default:"5s"`

	// Scheduler.
	RunInterval     time.Duration `envconfig:"RUN_INTERVAL" default:"24h"`
	ShutdownTimeout time.Duration `envconfig:"SHUTDOWN_TIMEOUT" default:"10s"`

	HTTPAddr      string        `envconfig:"HTTP_ADDR" default:":8080"`
	DashboardAddr string        `envconfig:"DASHBOARD_ADDR" default:":8081"`
	DashboardTTL  time.Duration `envconfig:"DASHBOARD_CACHE_TTL" default:"5m"`

	// Optional Kafka sink for downstream consumers; enabled when brokers are set.
	KafkaBrokers []string `envconfig:"KAFKA_BROKERS"`
	KafkaTopic   string   `envconfig:"KAFKA_TOPIC" default:"weather-wide-rows"`

	LogLevel  string `envconfig:"LOG_LEVEL" default:"info"`
	LogFormat string `envconfig:"LOG_FORMAT" default:"json"`
}

// Load reads configuration from environment variables, applying defaults where unset.
func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("process environment: %w", err)
	}

	if cfg.S3OutputBucket == "" {
		cfg.S3OutputBucket = cfg.S3Bucket
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// KafkaEnabled reports whether the optional downstream sink is configured.
func (c *Config) KafkaEnabled() bool {
	return len(c.KafkaBrokers) > 0
}

func (c *Config) validate() error {
	if c.Latitude < -90 || c.Latitude > 90 {
		return fmt.Errorf("LATITUDE %v out of range [-90, 90]", c.Latitude)
	}
	if c.Longitude < -180 || c.Longitude > 180 {
		return fmt.Errorf("LONGITUDE %v out of range [-180, 180]", c.Longitude)
	}
	if c.S3Bucket == "" {
		return errors.New("S3_BUCKET is required")
	}
	if c.S3OutputKey == "" {
		return errors.New("S3_OUTPUT_KEY is required")
	}
	if c.FetchRetries < 1 {
		return errors.New("FETCH_RETRIES must be at least 1")
	}
	if c.FetchTimeout <= 0 {
		return errors.New("invalid FETCH_TIMEOUT")
	}
	if c.FetchRetryDelay < 0 {
		return errors.New("invalid FETCH_RETRY_DELAY")
	}
	if c.RunInterval <= 0 {
		return errors.New("invalid RUN_INTERVAL")
	}
	if c.ShutdownTimeout <= 0 {
		return errors.New("invalid SHUTDOWN_TIMEOUT")
	}
	if c.KafkaEnabled() && c.KafkaTopic == "" {
		return errors.New("KAFKA_BROKERS is set but KAFKA_TOPIC is empty")
	}
	switch c.LogFormat {
	case "json", "text":
	default:
		return fmt.Errorf("invalid LOG_FORMAT %q", c.LogFormat)
	}
	return nil
}
