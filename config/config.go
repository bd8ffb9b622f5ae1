package config

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"gopkg.in/yaml.v3"

	"github.com/rustyeddy/fxforecast/market"
)

// Environment overrides, applied after the config file.
const (
	EnvDBPath     = "FXF_DB_PATH"
	EnvBackendURL = "FXF_BACKEND_URL"
	EnvBackendKey = "FXF_BACKEND_KEY"
	EnvJWTSecret  = "FXF_JWT_SECRET"
	EnvAddr       = "FXF_ADDR"
	EnvLogLevel   = "FXF_LOG_LEVEL"
)

// Config is the complete application configuration
type Config struct {
	Server   ServerConfig   `json:"server" yaml:"server"`
	Store    StoreConfig    `json:"store" yaml:"store"`
	Auth     AuthConfig     `json:"auth" yaml:"auth"`
	Log      LogConfig      `json:"log" yaml:"log"`
	Defaults DefaultsConfig `json:"defaults" yaml:"defaults"`
}

// ServerConfig contains the HTTP API settings
type ServerConfig struct {
	Addr         string `json:"addr" yaml:"addr"`
	ReadTimeout  string `json:"read_timeout" yaml:"read_timeout"`
	WriteTimeout string `json:"write_timeout" yaml:"write_timeout"`

	// Sign-in and sign-up limit per client address
	AuthRate  float64 `json:"auth_rate" yaml:"auth_rate"` // requests per second
	AuthBurst int     `json:"auth_burst" yaml:"auth_burst"`
}

// StoreConfig selects the data store backend
type StoreConfig struct {
	Type       string `json:"type" yaml:"type"` // "sqlite" or "rest"
	DBPath     string `json:"db_path,omitempty" yaml:"db_path,omitempty"`
	BackendURL string `json:"backend_url,omitempty" yaml:"backend_url,omitempty"`
	BackendKey string `json:"backend_key,omitempty" yaml:"backend_key,omitempty"`
	Timeout    string `json:"timeout,omitempty" yaml:"timeout,omitempty"` // e.g. "10s"
}

// AuthConfig contains token signing parameters
type AuthConfig struct {
	JWTSecret string `json:"jwt_secret,omitempty" yaml:"jwt_secret,omitempty"`
	TokenTTL  string `json:"token_ttl" yaml:"token_ttl"` // e.g. "24h"
}

type LogConfig struct {
	Level   string `json:"level" yaml:"level"`
	NoColor bool   `json:"no_color" yaml:"no_color"`
}

// DefaultsConfig pre-fills the calculator forms
type DefaultsConfig struct {
	RiskPercent  float64 `json:"risk_percent" yaml:"risk_percent"`
	InstrumentID string  `json:"instrument_id,omitempty" yaml:"instrument_id,omitempty"`
	CurrencyPair string  `json:"currency_pair" yaml:"currency_pair"`
}

func parseDuration(s string) (time.Duration, error) {
	if s == "" {
		return 0, nil
	}
	return time.ParseDuration(s)
}

// ReadTimeoutDuration converts the read timeout string to time.Duration
func (s ServerConfig) ReadTimeoutDuration() (time.Duration, error) {
	return parseDuration(s.ReadTimeout)
}

func (s ServerConfig) WriteTimeoutDuration() (time.Duration, error) {
	return parseDuration(s.WriteTimeout)
}

func (s StoreConfig) TimeoutDuration() (time.Duration, error) {
	return parseDuration(s.Timeout)
}

func (a AuthConfig) TTL() (time.Duration, error) {
	return parseDuration(a.TokenTTL)
}

// Load reads .env (if present), the config file at path (if any), applies
// environment overrides and validates the result.
func Load(path string) (*Config, error) {
	_ = godotenv.Load()

	cfg := Default()
	if path != "" {
		var err error
		if cfg, err = parse(path); err != nil {
			return nil, err
		}
	}
	cfg.ApplyEnv()

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

func parse(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config file: %w", err)
	}

	// Unset fields keep their defaults
	cfg := Default()

	// Try YAML first, fall back to JSON
	err = yaml.Unmarshal(data, cfg)
	if err != nil {
		cfg = Default()
		err = json.Unmarshal(data, cfg)
		if err != nil {
			return nil, fmt.Errorf("parse config (tried YAML and JSON): %w", err)
		}
	}
	return cfg, nil
}

// LoadFromFile loads configuration from a file (JSON or YAML) without
// environment overrides
func LoadFromFile(path string) (*Config, error) {
	cfg, err := parse(path)
	if err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

// SaveToFile saves configuration to a file (JSON or YAML based on extension)
func (c *Config) SaveToFile(path string) error {
	var data []byte
	var err error

	if strings.HasSuffix(path, ".yaml") || strings.HasSuffix(path, ".yml") {
		data, err = yaml.Marshal(c)
	} else {
		data, err = json.MarshalIndent(c, "", "  ")
	}
	if err != nil {
		return fmt.Errorf("marshal config: %w", err)
	}

	if err := os.WriteFile(path, data, 0600); err != nil {
		return fmt.Errorf("write config file: %w", err)
	}
	return nil
}

// ApplyEnv overrides fields from FXF_* environment variables. Setting
// FXF_BACKEND_URL switches the store to the rest backend.
func (c *Config) ApplyEnv() {
	c.Store.DBPath = getEnvOrDefault(EnvDBPath, c.Store.DBPath)
	if v := os.Getenv(EnvBackendURL); v != "" {
		c.Store.BackendURL = v
		c.Store.Type = "rest"
	}
	c.Store.BackendKey = getEnvOrDefault(EnvBackendKey, c.Store.BackendKey)
	c.Auth.JWTSecret = getEnvOrDefault(EnvJWTSecret, c.Auth.JWTSecret)
	c.Server.Addr = getEnvOrDefault(EnvAddr, c.Server.Addr)
	c.Log.Level = getEnvOrDefault(EnvLogLevel, c.Log.Level)
}

func getEnvOrDefault(key, defaultValue string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return defaultValue
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	if c.Server.Addr == "" {
		return fmt.Errorf("server.addr is required")
	}
	if _, err := c.Server.ReadTimeoutDuration(); err != nil {
		return fmt.Errorf("server.read_timeout: %w", err)
	}
	if _, err := c.Server.WriteTimeoutDuration(); err != nil {
		return fmt.Errorf("server.write_timeout: %w", err)
	}
	if c.Server.AuthRate < 0 || c.Server.AuthBurst < 0 {
		return fmt.Errorf("server.auth_rate and server.auth_burst must not be negative")
	}

	switch c.Store.Type {
	case "sqlite":
		if c.Store.DBPath == "" {
			return fmt.Errorf("store db_path required for sqlite type")
		}
	case "rest":
		if c.Store.BackendURL == "" || c.Store.BackendKey == "" {
			return fmt.Errorf("store backend_url and backend_key required for rest type")
		}
	default:
		return fmt.Errorf("store.type must be 'sqlite' or 'rest'")
	}
	if _, err := c.Store.TimeoutDuration(); err != nil {
		return fmt.Errorf("store.timeout: %w", err)
	}

	if _, err := c.Auth.TTL(); err != nil {
		return fmt.Errorf("auth.token_ttl: %w", err)
	}
	if _, err := zerolog.ParseLevel(strings.ToLower(c.Log.Level)); err != nil {
		return fmt.Errorf("log.level: %w", err)
	}

	if c.Defaults.RiskPercent <= 0 || c.Defaults.RiskPercent > 100 {
		return fmt.Errorf("defaults.risk_percent must be between 0 and 100")
	}
	if c.Defaults.InstrumentID != "" {
		if _, ok := market.FindInstrument(market.Instruments, c.Defaults.InstrumentID); !ok {
			return fmt.Errorf("unknown instrument: %s", c.Defaults.InstrumentID)
		}
	}
	if c.Defaults.CurrencyPair != "" {
		if _, ok := market.FindSymbol(market.Instruments, c.Defaults.CurrencyPair); !ok {
			return fmt.Errorf("unknown currency pair: %s", c.Defaults.CurrencyPair)
		}
	}
	return nil
}

// Default returns a configuration with sensible defaults
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Addr:         ":8080",
			ReadTimeout:  "10s",
			WriteTimeout: "10s",
			AuthRate:     1,
			AuthBurst:    10,
		},
		Store: StoreConfig{
			Type:    "sqlite",
			DBPath:  "./fxforecast.db",
			Timeout: "10s",
		},
		Auth: AuthConfig{
			TokenTTL: "24h",
		},
		Log: LogConfig{
			Level: "info",
		},
		Defaults: DefaultsConfig{
			RiskPercent:  2,
			CurrencyPair: "EURUSD",
		},
	}
}
