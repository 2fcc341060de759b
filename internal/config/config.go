package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"runtime"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/MJE43/entropy-casino-engine/internal/logger"
)

// DefaultPath is where Load looks when no path is given.
const DefaultPath = "configs/config.yaml"

type Config struct {
	Server ServerConfig `yaml:"server"`
	Store  StoreConfig  `yaml:"store"`
	Log    LogConfig    `yaml:"log"`
	Scan   ScanConfig   `yaml:"scan"`
}

type ServerConfig struct {
	Addr           string        `yaml:"addr"`
	ReadTimeout    time.Duration `yaml:"read_timeout"`
	WriteTimeout   time.Duration `yaml:"write_timeout"`
	RequestTimeout time.Duration `yaml:"request_timeout"`
}

// StoreConfig points at the SQLite audit log. An empty path disables it.
type StoreConfig struct {
	Path string `yaml:"path"`
}

type LogConfig struct {
	Level      string `yaml:"level"`
	TimeFormat string `yaml:"time_format"`
}

type ScanConfig struct {
	Workers  int           `yaml:"workers"`
	Timeout  time.Duration `yaml:"timeout"`
	MaxCount uint64        `yaml:"max_count"`
	HitLimit int           `yaml:"hit_limit"`
}

// Default returns the built-in configuration.
func Default() Config {
	return Config{
		Server: ServerConfig{
			Addr:           "127.0.0.1:8080",
			ReadTimeout:    10 * time.Second,
			WriteTimeout:   10 * time.Second,
			RequestTimeout: 60 * time.Second,
		},
		Store: StoreConfig{Path: "casino-engine.db"},
		Log:   LogConfig{Level: "info", TimeFormat: time.RFC3339},
		Scan: ScanConfig{
			Workers:  runtime.GOMAXPROCS(0),
			Timeout:  60 * time.Second,
			MaxCount: 1_000_000,
			HitLimit: 1000,
		},
	}
}

// Load reads path over the defaults, then loads .env (if present) and applies
// CASINO_* environment overrides. A missing config file is not an error.
// ${VAR} references in the file are expanded from the environment.
func Load(path string) (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("load .env: %w", err)
	}

	cfg := Default()
	if path == "" {
		path = DefaultPath
	}

	data, err := os.ReadFile(path)
	switch {
	case errors.Is(err, fs.ErrNotExist):
	case err != nil:
		return nil, fmt.Errorf("read config %s: %w", path, err)
	default:
		if err := yaml.Unmarshal([]byte(os.ExpandEnv(string(data))), &cfg); err != nil {
			return nil, fmt.Errorf("parse config %s: %w", path, err)
		}
	}

	if err := cfg.ApplyEnv(os.LookupEnv); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// ApplyEnv overrides fields from lookup, normally os.LookupEnv.
func (c *Config) ApplyEnv(lookup func(string) (string, bool)) error {
	if v, ok := lookup("CASINO_HTTP_ADDR"); ok && v != "" {
		c.Server.Addr = v
	}
	if v, ok := lookup("CASINO_DB_PATH"); ok {
		c.Store.Path = v
	}
	if v, ok := lookup("CASINO_LOG_LEVEL"); ok && v != "" {
		c.Log.Level = v
	}
	if v, ok := lookup("CASINO_SCAN_WORKERS"); ok && v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("CASINO_SCAN_WORKERS: %w", err)
		}
		c.Scan.Workers = n
	}
	if v, ok := lookup("CASINO_SCAN_TIMEOUT"); ok && v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("CASINO_SCAN_TIMEOUT: %w", err)
		}
		c.Scan.Timeout = d
	}
	if v, ok := lookup("CASINO_SCAN_MAX_COUNT"); ok && v != "" {
		n, err := strconv.ParseUint(v, 10, 64)
		if err != nil {
			return fmt.Errorf("CASINO_SCAN_MAX_COUNT: %w", err)
		}
		c.Scan.MaxCount = n
	}
	return nil
}

// ---- validation ----

func (c Config) Validate() error {
	if c.Server.Addr == "" {
		return errors.New("server.addr is required")
	}
	if _, ok := logger.ParseLevel(c.Log.Level); !ok {
		return fmt.Errorf("log.level: unknown level %q", c.Log.Level)
	}
	if c.Scan.MaxCount == 0 {
		return errors.New("scan.max_count must be positive")
	}
	if c.Scan.HitLimit <= 0 {
		return errors.New("scan.hit_limit must be positive")
	}
	if c.Scan.Workers < 0 {
		return errors.New("scan.workers must not be negative")
	}
	return nil
}
