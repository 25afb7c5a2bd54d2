package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/joho/godotenv"
)

// Config represents ~/.chatline/config.toml.
type Config struct {
	Log       LogConfig       `toml:"log"`
	Store     StoreConfig     `toml:"store"`
	Events    EventsConfig    `toml:"events"`
	Transport TransportConfig `toml:"transport"`
	Gateway   GatewayConfig   `toml:"gateway"`
}

type LogConfig struct {
	Level string `toml:"level"`
}

// StoreConfig sizes the dataset written by SeedDatabase.
type StoreConfig struct {
	SeedChats    int      `toml:"seed_chats"`
	SeedMessages int      `toml:"seed_messages"`
	SeedWindow   Duration `toml:"seed_window"`
}

// EventsConfig configures the embedded event server.
type EventsConfig struct {
	Enabled           bool     `toml:"enabled"`
	Addr              string   `toml:"addr"`
	FirstMessageDelay Duration `toml:"first_message_delay"`
	MinMessageDelay   Duration `toml:"min_message_delay"`
	MaxMessageDelay   Duration `toml:"max_message_delay"`
	HeartbeatInterval Duration `toml:"heartbeat_interval"`
	RefreshInterval   Duration `toml:"refresh_interval"`
}

// TransportConfig configures the reconnecting client.
type TransportConfig struct {
	URL              string   `toml:"url"`
	AutoConnect      bool     `toml:"auto_connect"`
	BackoffBase      Duration `toml:"backoff_base"`
	BackoffMax       Duration `toml:"backoff_max"`
	BackoffJitter    Duration `toml:"backoff_jitter"`
	HeartbeatTimeout Duration `toml:"heartbeat_timeout"`
}

type GatewayConfig struct {
	MaxPageSize int `toml:"max_page_size"`
}

// Duration is a time.Duration written as a string ("30s") in TOML.
type Duration struct {
	time.Duration
}

func (d *Duration) UnmarshalText(text []byte) error {
	v, err := time.ParseDuration(string(text))
	if err != nil {
		return err
	}
	d.Duration = v
	return nil
}

func (d Duration) MarshalText() ([]byte, error) {
	return []byte(d.String()), nil
}

// Default returns the configuration used when no file exists.
func Default() *Config {
	return &Config{
		Log: LogConfig{Level: "info"},
		Store: StoreConfig{
			SeedChats:    200,
			SeedMessages: 20000,
			SeedWindow:   Duration{30 * 24 * time.Hour},
		},
		Events: EventsConfig{
			Enabled:           true,
			Addr:              "127.0.0.1:8765",
			FirstMessageDelay: Duration{time.Second},
			MinMessageDelay:   Duration{time.Second},
			MaxMessageDelay:   Duration{3 * time.Second},
			HeartbeatInterval: Duration{10 * time.Second},
			RefreshInterval:   Duration{30 * time.Second},
		},
		Transport: TransportConfig{
			URL:              "ws://127.0.0.1:8765/ws",
			AutoConnect:      true,
			BackoffBase:      Duration{time.Second},
			BackoffMax:       Duration{30 * time.Second},
			BackoffJitter:    Duration{time.Second},
			HeartbeatTimeout: Duration{30 * time.Second},
		},
		Gateway: GatewayConfig{MaxPageSize: 500},
	}
}

// Load reads config from the given path on top of Default. A missing file
// yields the defaults.
func Load(path string) (*Config, error) {
	cfg := Default()
	_, err := toml.DecodeFile(path, cfg)
	if err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return cfg, nil
}

// ApplyEnv loads .env files (the working directory's .env when none are
// given) and then overrides keys from CHATLINE_* variables.
func ApplyEnv(cfg *Config, files ...string) error {
	_ = godotenv.Load(files...)

	cfg.Log.Level = getEnv("CHATLINE_LOG_LEVEL", cfg.Log.Level)
	cfg.Events.Addr = getEnv("CHATLINE_EVENTS_ADDR", cfg.Events.Addr)
	cfg.Transport.URL = getEnv("CHATLINE_TRANSPORT_URL", cfg.Transport.URL)

	if v := os.Getenv("CHATLINE_EVENTS_ENABLED"); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("CHATLINE_EVENTS_ENABLED: %w", err)
		}
		cfg.Events.Enabled = b
	}
	if v := os.Getenv("CHATLINE_AUTO_CONNECT"); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("CHATLINE_AUTO_CONNECT: %w", err)
		}
		cfg.Transport.AutoConnect = b
	}
	if v := os.Getenv("CHATLINE_HEARTBEAT_TIMEOUT"); v != "" {
		if err := cfg.Transport.HeartbeatTimeout.UnmarshalText([]byte(v)); err != nil {
			return fmt.Errorf("CHATLINE_HEARTBEAT_TIMEOUT: %w", err)
		}
	}
	return cfg.Validate()
}

// Validate rejects settings the daemon cannot run with.
func (c *Config) Validate() error {
	switch {
	case c.Events.MinMessageDelay.Duration <= 0:
		return errors.New("events.min_message_delay must be positive")
	case c.Events.MaxMessageDelay.Duration < c.Events.MinMessageDelay.Duration:
		return errors.New("events.max_message_delay must not be below min_message_delay")
	case c.Events.HeartbeatInterval.Duration <= 0:
		return errors.New("events.heartbeat_interval must be positive")
	case c.Transport.BackoffBase.Duration <= 0:
		return errors.New("transport.backoff_base must be positive")
	case c.Transport.BackoffMax.Duration < c.Transport.BackoffBase.Duration:
		return errors.New("transport.backoff_max must not be below backoff_base")
	case c.Transport.HeartbeatTimeout.Duration <= 0:
		return errors.New("transport.heartbeat_timeout must be positive")
	case c.Gateway.MaxPageSize <= 0:
		return errors.New("gateway.max_page_size must be positive")
	}
	return nil
}

// Save writes config to the given path, creating parent dirs as needed.
func Save(path string, cfg *Config) error {
	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return err
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0600)
	if err != nil {
		return err
	}
	encErr := toml.NewEncoder(f).Encode(cfg)
	if closeErr := f.Close(); closeErr != nil && encErr == nil {
		return closeErr
	}
	return encErr
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
