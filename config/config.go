package config

import (
	"log"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Config represents the overall application configuration.
type Config struct {
	Server     ServerConfig     `yaml:"server"`
	Feed       FeedConfig       `yaml:"feed"`
	Hours      HoursConfig      `yaml:"hours"`
	Forecast   ForecastConfig   `yaml:"forecast"`
	Database   DatabaseConfig   `yaml:"database"`
	Push       PushConfig       `yaml:"push"`
	WorkerPool WorkerPoolConfig `yaml:"worker_pool"`
}

// WorkerPoolConfig holds the configuration for the notification worker pool.
type WorkerPoolConfig struct {
	Size int `yaml:"size"`
}

// PushConfig holds the VAPID keys for web push notifications.
type PushConfig struct {
	PublicKey  string `yaml:"vapid_public_key"`
	PrivateKey string `yaml:"vapid_private_key"`
	Subject    string `yaml:"subject"`
	TTL        int    `yaml:"ttl"`
}

// ServerConfig holds the server-related configuration.
type ServerConfig struct {
	Port            int     `yaml:"port"`
	RequestIPHeader string  `yaml:"request_ip_header"`
	RateLimitPerSec float64 `yaml:"rate_limit_per_sec"`
	CacheTTLSeconds int     `yaml:"cache_ttl_seconds"`
}

// FeedConfig holds the occupancy feed connection configuration.
type FeedConfig struct {
	URL                   string        `yaml:"url"`
	Facility              string        `yaml:"facility"`
	ReconnectDelaySeconds int           `yaml:"reconnect_delay_seconds"`
	ReconnectDelay        time.Duration `yaml:"-"`
	MaxReconnectAttempts  int           `yaml:"max_reconnect_attempts"`
	HeartbeatSeconds      int           `yaml:"heartbeat_seconds"`
	HeartbeatInterval     time.Duration `yaml:"-"`
	SampleIntervalMinutes int           `yaml:"sample_interval_minutes"`
	SampleInterval        time.Duration `yaml:"-"`
	Timezone              string        `yaml:"timezone"`
}

// SpecialDate overrides the regular opening hours for a single calendar date.
type SpecialDate struct {
	Closed    bool `yaml:"closed"`
	OpenHour  int  `yaml:"open_hour"`
	CloseHour int  `yaml:"close_hour"`
}

// HoursConfig holds the facility opening hours.
type HoursConfig struct {
	OpenHour             int                    `yaml:"open_hour"`
	CloseHour            int                    `yaml:"close_hour"`
	ClosingSoonMinutes   int                    `yaml:"closing_soon_minutes"`
	ClosingUrgentMinutes int                    `yaml:"closing_urgent_minutes"`
	SpecialDates         map[string]SpecialDate `yaml:"special_dates"`
}

// ForecastConfig holds the forecast source and cache configuration.
type ForecastConfig struct {
	Source          string            `yaml:"source"` // "firestore" or "http"
	URL             string            `yaml:"url"`
	Headers         map[string]string `yaml:"headers"`
	ProjectID       string            `yaml:"project_id"`
	Collection      string            `yaml:"collection"`
	ValidityMinutes int               `yaml:"validity_minutes"`
	Validity        time.Duration     `yaml:"-"`
}

// DatabaseConfig holds the database connection configuration.
type DatabaseConfig struct {
	DSN                    string `yaml:"dsn"`
	MaxOpenConns           int    `yaml:"max_open_conns"`
	MaxIdleConns           int    `yaml:"max_idle_conns"`
	ConnMaxLifetimeMinutes int    `yaml:"conn_max_lifetime_minutes"`
}

// Load reads the configuration from the given path.
func Load(path string) (*Config, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var cfg Config
	decoder := yaml.NewDecoder(f)
	if err := decoder.Decode(&cfg); err != nil {
		return nil, err
	}

	if cfg.Server.RateLimitPerSec <= 0 {
		cfg.Server.RateLimitPerSec = 10
	}
	if cfg.Server.CacheTTLSeconds <= 0 {
		cfg.Server.CacheTTLSeconds = 300
	}

	if cfg.Feed.URL == "" {
		cfg.Feed.URL = "wss://badi-public.crowdmonitor.ch:9591/api"
	}
	if cfg.Feed.Facility == "" {
		cfg.Feed.Facility = "Hallenbad City"
	}
	if cfg.Feed.ReconnectDelaySeconds <= 0 {
		cfg.Feed.ReconnectDelaySeconds = 5
	}
	cfg.Feed.ReconnectDelay = time.Duration(cfg.Feed.ReconnectDelaySeconds) * time.Second

	if cfg.Feed.MaxReconnectAttempts <= 0 {
		cfg.Feed.MaxReconnectAttempts = 5
	}

	if cfg.Feed.HeartbeatSeconds <= 0 {
		cfg.Feed.HeartbeatSeconds = 30
	}
	cfg.Feed.HeartbeatInterval = time.Duration(cfg.Feed.HeartbeatSeconds) * time.Second

	if cfg.Feed.SampleIntervalMinutes <= 0 {
		cfg.Feed.SampleIntervalMinutes = 10
	}
	cfg.Feed.SampleInterval = time.Duration(cfg.Feed.SampleIntervalMinutes) * time.Minute

	if cfg.Feed.Timezone == "" {
		cfg.Feed.Timezone = "Europe/Zurich"
	}

	if cfg.Hours.OpenHour <= 0 {
		cfg.Hours.OpenHour = 6
	}
	if cfg.Hours.CloseHour <= 0 {
		cfg.Hours.CloseHour = 22
	}
	if cfg.Hours.ClosingSoonMinutes <= 0 {
		cfg.Hours.ClosingSoonMinutes = 90
	}
	if cfg.Hours.ClosingUrgentMinutes <= 0 {
		cfg.Hours.ClosingUrgentMinutes = 60
	}

	if cfg.Forecast.Source == "" {
		cfg.Forecast.Source = "firestore"
	}
	if cfg.Forecast.ValidityMinutes <= 0 {
		cfg.Forecast.ValidityMinutes = 30
	}
	cfg.Forecast.Validity = time.Duration(cfg.Forecast.ValidityMinutes) * time.Minute

	if cfg.Push.TTL <= 0 {
		cfg.Push.TTL = 3600
	}

	if cfg.WorkerPool.Size <= 0 {
		log.Printf("worker_pool.size is not set or invalid; defaulting to 1")
		cfg.WorkerPool.Size = 1
	}

	return &cfg, nil
}
