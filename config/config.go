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
	Database   DatabaseConfig   `yaml:"database"`
	Engine     EngineConfig     `yaml:"engine"`
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
	RateLimitBurst  int     `yaml:"rate_limit_burst"`
	CacheTTLSeconds int     `yaml:"cache_ttl_seconds"`
}

// EngineConfig holds the tunables for the queue scheduling engine.
type EngineConfig struct {
	DefaultPaceMinutes   int `yaml:"default_pace_minutes"`    // staff baseline when a category declares none
	MinPaceMinutes       int `yaml:"min_pace_minutes"`        // hard floor for any estimate
	HistoryLimit         int `yaml:"history_limit"`           // completed tickets sampled per estimate
	ExpiryGraceMinutes   int `yaml:"expiry_grace_minutes"`    // how long past its slot a reservation survives
	DueSlotWindowMinutes int `yaml:"due_slot_window_minutes"` // look-ahead for "call next" slot preemption
	FallbackPaceMinutes  int `yaml:"fallback_pace_minutes"`   // pace reported when classification fails
	DefaultDailyCapacity int `yaml:"default_daily_capacity"`  // capacity assumed when operating hours are unknown
}

// DatabaseConfig holds the database connection configuration.
type DatabaseConfig struct {
	DSN                    string `yaml:"dsn"`
	MaxOpenConns           int    `yaml:"max_open_conns"`
	MaxIdleConns           int    `yaml:"max_idle_conns"`
	ConnMaxLifetimeMinutes int    `yaml:"conn_max_lifetime_minutes"`
}

// CacheTTL returns the response cache TTL as a duration.
func (s *ServerConfig) CacheTTL() time.Duration {
	return time.Duration(s.CacheTTLSeconds) * time.Second
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

	cfg.ApplyDefaults()
	return &cfg, nil
}

// ApplyDefaults normalizes zero or invalid values to their documented
// defaults. It is called by Load and by tests building configs by hand.
func (c *Config) ApplyDefaults() {
	if c.Server.RateLimitPerSec <= 0 {
		c.Server.RateLimitPerSec = 10
	}
	if c.Server.RateLimitBurst <= 0 {
		c.Server.RateLimitBurst = 5
	}
	if c.Server.CacheTTLSeconds <= 0 {
		c.Server.CacheTTLSeconds = 15
	}

	if c.Engine.DefaultPaceMinutes <= 0 {
		c.Engine.DefaultPaceMinutes = 5
	}
	if c.Engine.MinPaceMinutes <= 0 {
		c.Engine.MinPaceMinutes = 2
	}
	if c.Engine.HistoryLimit <= 0 {
		c.Engine.HistoryLimit = 10
	}
	if c.Engine.ExpiryGraceMinutes <= 0 {
		c.Engine.ExpiryGraceMinutes = 30
	}
	if c.Engine.DueSlotWindowMinutes <= 0 {
		c.Engine.DueSlotWindowMinutes = 2
	}
	if c.Engine.FallbackPaceMinutes <= 0 {
		c.Engine.FallbackPaceMinutes = 10
	}
	if c.Engine.DefaultDailyCapacity <= 0 {
		c.Engine.DefaultDailyCapacity = 50
	}

	if c.Push.TTL <= 0 {
		c.Push.TTL = 3600
	}

	if c.WorkerPool.Size <= 0 {
		log.Printf("worker_pool.size is not set or invalid; defaulting to 1")
		c.WorkerPool.Size = 1
	}
}
