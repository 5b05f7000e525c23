package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// DefaultPath is read when no explicit config path is given.
const DefaultPath = "xmlsql.yaml"

// ServerConfig configures the HTTP API.
type ServerConfig struct {
	Addr             string `yaml:"addr"`
	ReadTimeoutSecs  int    `yaml:"read_timeout_secs"`
	WriteTimeoutSecs int    `yaml:"write_timeout_secs"`
	MaxBodyBytes     int64  `yaml:"max_body_bytes"`
}

// LogConfig configures structured logging.
type LogConfig struct {
	Level  string `yaml:"level"`
	Pretty bool   `yaml:"pretty"`
}

// FetchConfig configures loading documents from URLs.
type FetchConfig struct {
	UserAgent     string `yaml:"user_agent"`
	TimeoutSecs   int    `yaml:"timeout_secs"`
	MaxBytes      int64  `yaml:"max_bytes"`
	RespectRobots bool   `yaml:"respect_robots"`
}

// MetricsConfig toggles the Prometheus endpoint.
type MetricsConfig struct {
	Enabled bool `yaml:"enabled"`
}

// AppConfig is the root application configuration structure.
type AppConfig struct {
	Server  ServerConfig  `yaml:"server"`
	Log     LogConfig     `yaml:"log"`
	Fetch   FetchConfig   `yaml:"fetch"`
	Metrics MetricsConfig `yaml:"metrics"`
}

func (s ServerConfig) ReadTimeout() time.Duration {
	return time.Duration(s.ReadTimeoutSecs) * time.Second
}

func (s ServerConfig) WriteTimeout() time.Duration {
	return time.Duration(s.WriteTimeoutSecs) * time.Second
}

func (f FetchConfig) Timeout() time.Duration {
	return time.Duration(f.TimeoutSecs) * time.Second
}

// Load reads a config from path. A missing file yields defaults. Environment
// overrides (XMLSQL_*) are applied last, after loading .env if present.
func Load(path string) (*AppConfig, error) {
	_ = godotenv.Load()

	cfg := Default()
	data, err := os.ReadFile(path)
	switch {
	case errors.Is(err, os.ErrNotExist):
	case err != nil:
		return nil, err
	default:
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse %s: %w", path, err)
		}
	}

	applyConfigDefaults(cfg)
	if err := applyEnv(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Save writes the config to the given path, creating directories as needed.
func Save(path string, cfg *AppConfig) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o644)
}

func Default() *AppConfig {
	return &AppConfig{
		Server: ServerConfig{
			Addr:             ":8080",
			ReadTimeoutSecs:  30,
			WriteTimeoutSecs: 30,
			MaxBodyBytes:     32 << 20,
		},
		Log: LogConfig{Level: "info"},
		Fetch: FetchConfig{
			UserAgent:     "xmlsql/1.0",
			TimeoutSecs:   30,
			MaxBytes:      16 << 20,
			RespectRobots: true,
		},
		Metrics: MetricsConfig{Enabled: true},
	}
}

func applyConfigDefaults(cfg *AppConfig) {
	def := Default()
	if cfg.Server.Addr == "" {
		cfg.Server.Addr = def.Server.Addr
	}
	if cfg.Server.ReadTimeoutSecs <= 0 {
		cfg.Server.ReadTimeoutSecs = def.Server.ReadTimeoutSecs
	}
	if cfg.Server.WriteTimeoutSecs <= 0 {
		cfg.Server.WriteTimeoutSecs = def.Server.WriteTimeoutSecs
	}
	if cfg.Server.MaxBodyBytes <= 0 {
		cfg.Server.MaxBodyBytes = def.Server.MaxBodyBytes
	}
	if cfg.Log.Level == "" {
		cfg.Log.Level = def.Log.Level
	}
	if cfg.Fetch.UserAgent == "" {
		cfg.Fetch.UserAgent = def.Fetch.UserAgent
	}
	if cfg.Fetch.TimeoutSecs <= 0 {
		cfg.Fetch.TimeoutSecs = def.Fetch.TimeoutSecs
	}
	if cfg.Fetch.MaxBytes <= 0 {
		cfg.Fetch.MaxBytes = def.Fetch.MaxBytes
	}
}

func applyEnv(cfg *AppConfig) error {
	if v := os.Getenv("XMLSQL_ADDR"); v != "" {
		cfg.Server.Addr = v
	}
	if v := os.Getenv("XMLSQL_LOG_LEVEL"); v != "" {
		cfg.Log.Level = v
	}
	if v := os.Getenv("XMLSQL_LOG_PRETTY"); v != "" {
		pretty, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("invalid XMLSQL_LOG_PRETTY %q: %w", v, err)
		}
		cfg.Log.Pretty = pretty
	}
	if v := os.Getenv("XMLSQL_USER_AGENT"); v != "" {
		cfg.Fetch.UserAgent = v
	}
	return nil
}
