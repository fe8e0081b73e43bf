package config

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// HTTPConfig holds listener settings.
type HTTPConfig struct {
	Port string `yaml:"port" env:"FLEETTRACK_HTTP_PORT"`
}

// DatabaseConfig holds the telemetry store connection.
type DatabaseConfig struct {
	DSN string `yaml:"dsn" env:"FLEETTRACK_POSTGRES_DSN"`
}

// RedisConfig holds the live-position layer connection.
type RedisConfig struct {
	Addr       string `yaml:"addr" env:"FLEETTRACK_REDIS_ADDR"`
	Password   string `yaml:"password" env:"FLEETTRACK_REDIS_PASSWORD"`
	DB         int    `yaml:"db" env:"FLEETTRACK_REDIS_DB"`
	TTLSeconds int    `yaml:"ttlSeconds" env:"FLEETTRACK_REDIS_TTL"`
}

// AuthConfig holds token verification settings. Tokens are minted by
// an external identity service; an empty secret disables verification.
type AuthConfig struct {
	JWTSecret string `yaml:"jwtSecret" env:"FLEETTRACK_JWT_SECRET"`
}

// TrackingConfig tunes the derivation thresholds and the poll loop.
type TrackingConfig struct {
	PollIntervalSeconds  int     `yaml:"pollIntervalSeconds" env:"FLEETTRACK_POLL_INTERVAL"`
	SpeedLimitKmh        float64 `yaml:"speedLimitKmh" env:"FLEETTRACK_SPEED_LIMIT_KMH"`
	ProlongedStopMinutes int     `yaml:"prolongedStopMinutes" env:"FLEETTRACK_PROLONGED_STOP_MINUTES"`
	StoreTimeoutSeconds  int     `yaml:"storeTimeoutSeconds" env:"FLEETTRACK_STORE_TIMEOUT"`
}

// Config defines the fleettrack service configuration.
type Config struct {
	HTTP     HTTPConfig     `yaml:"http"`
	Database DatabaseConfig `yaml:"database"`
	Redis    RedisConfig    `yaml:"redis"`
	Auth     AuthConfig     `yaml:"auth"`
	Tracking TrackingConfig `yaml:"tracking"`
}

// Load reads configuration from the optional YAML file and the
// environment, then validates required fields.
func Load() (*Config, error) {
	cfg := &Config{
		HTTP:  HTTPConfig{Port: "8090"},
		Redis: RedisConfig{Addr: "localhost:6379", TTLSeconds: 120},
	}

	if err := load(cfg); err != nil {
		return nil, err
	}

	if strings.TrimSpace(cfg.Database.DSN) == "" {
		return nil, errors.New("config: database dsn required")
	}
	if strings.TrimSpace(cfg.Redis.Addr) == "" {
		return nil, errors.New("config: redis addr required")
	}
	return cfg, nil
}

// HTTPAddress returns :port style.
func (c *Config) HTTPAddress() string {
	port := strings.TrimSpace(c.HTTP.Port)
	if port == "" {
		port = "8090"
	}
	if strings.HasPrefix(port, ":") {
		return port
	}
	return fmt.Sprintf(":%s", port)
}

// LivePositionTTL returns how long cached last positions stay valid.
func (c *Config) LivePositionTTL() time.Duration {
	if c.Redis.TTLSeconds <= 0 {
		return 2 * time.Minute
	}
	return time.Duration(c.Redis.TTLSeconds) * time.Second
}

// PollInterval returns the snapshot recompute cadence.
func (c *Config) PollInterval() time.Duration {
	if c.Tracking.PollIntervalSeconds <= 0 {
		return 5 * time.Second
	}
	return time.Duration(c.Tracking.PollIntervalSeconds) * time.Second
}

// ProlongedStop returns the stop-duration alert threshold.
func (c *Config) ProlongedStop() time.Duration {
	if c.Tracking.ProlongedStopMinutes <= 0 {
		return 0
	}
	return time.Duration(c.Tracking.ProlongedStopMinutes) * time.Minute
}

// StoreTimeout bounds every telemetry store call.
func (c *Config) StoreTimeout() time.Duration {
	if c.Tracking.StoreTimeoutSeconds <= 0 {
		return 5 * time.Second
	}
	return time.Duration(c.Tracking.StoreTimeoutSeconds) * time.Second
}
