package config

import (
	"fmt"
	"os"
	"strconv"
	"sync"
	"time"

	"gopkg.in/yaml.v3"
)

// Config holds the complete application configuration
type Config struct {
	Server   ServerConfig   `yaml:"server"`
	Database DatabaseConfig `yaml:"database"`
	Auth     AuthConfig     `yaml:"auth"`
	Catalog  CatalogConfig  `yaml:"catalog"`
	Logging  LoggingConfig  `yaml:"logging"`
}

// ServerConfig holds server-related configuration
type ServerConfig struct {
	Host       string `yaml:"host"`
	Port       int    `yaml:"port"`
	EnableCORS bool   `yaml:"enable_cors"`
}

// DatabaseConfig holds database connection configuration
type DatabaseConfig struct {
	Type            string        `yaml:"type"`
	Path            string        `yaml:"path"`
	Host            string        `yaml:"host"`
	Port            int           `yaml:"port"`
	Username        string        `yaml:"username"`
	Password        string        `yaml:"password"`
	Database        string        `yaml:"database"`
	MaxOpenConns    int           `yaml:"max_open_conns"`
	MaxIdleConns    int           `yaml:"max_idle_conns"`
	ConnMaxLifetime time.Duration `yaml:"conn_max_lifetime"`
	LogQueries      bool          `yaml:"log_queries"`
}

// AuthConfig holds token signing configuration
type AuthConfig struct {
	JWTSecret string        `yaml:"jwt_secret"`
	TokenTTL  time.Duration `yaml:"token_ttl"`
}

// CatalogConfig holds catalog presentation configuration
type CatalogConfig struct {
	// NewReleaseWindowDays is the age in days under which a title counts as a new release.
	NewReleaseWindowDays int `yaml:"new_release_window_days"`
	// HighlightsFile points at the YAML allow-list of highlighted title IDs.
	HighlightsFile string `yaml:"highlights_file"`
}

// LoggingConfig holds logging configuration
type LoggingConfig struct {
	Level string `yaml:"level"`
}

var (
	current *Config
	mu      sync.RWMutex
)

// Default returns the built-in configuration defaults
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Host:       "0.0.0.0",
			Port:       8080,
			EnableCORS: true,
		},
		Database: DatabaseConfig{
			Type:            "sqlite",
			Path:            "./filmsearch-data/filmsearch.db",
			Host:            "localhost",
			Port:            5432,
			Username:        "filmsearch",
			Database:        "filmsearch",
			MaxOpenConns:    100,
			MaxIdleConns:    20,
			ConnMaxLifetime: 2 * time.Hour,
		},
		Auth: AuthConfig{
			JWTSecret: "filmsearch-dev-secret",
			TokenTTL:  24 * time.Hour,
		},
		Catalog: CatalogConfig{
			NewReleaseWindowDays: 30,
			HighlightsFile:       "./filmsearch-data/highlights.yml",
		},
		Logging: LoggingConfig{
			Level: "info",
		},
	}
}

// Load builds the configuration from defaults, an optional YAML file and
// environment variable overrides, in that order.
func Load(configPath string) (*Config, error) {
	cfg := Default()

	if configPath != "" {
		if _, err := os.Stat(configPath); err == nil {
			data, err := os.ReadFile(configPath)
			if err != nil {
				return nil, fmt.Errorf("failed to read config file: %w", err)
			}
			if err := yaml.Unmarshal(data, cfg); err != nil {
				return nil, fmt.Errorf("failed to parse config file: %w", err)
			}
		}
	}

	applyEnvOverrides(cfg)

	mu.Lock()
	current = cfg
	mu.Unlock()

	return cfg, nil
}

// Get returns the active configuration, loading defaults if Load was never called
func Get() *Config {
	mu.RLock()
	cfg := current
	mu.RUnlock()
	if cfg != nil {
		return cfg
	}

	mu.Lock()
	defer mu.Unlock()
	if current == nil {
		current = Default()
		applyEnvOverrides(current)
	}
	return current
}

// SetForTesting replaces the active configuration. For use in tests only.
func SetForTesting(cfg *Config) {
	mu.Lock()
	current = cfg
	mu.Unlock()
}

func applyEnvOverrides(cfg *Config) {
	cfg.Server.Host = envString("FILMSEARCH_HOST", cfg.Server.Host)
	cfg.Server.Port = envInt("FILMSEARCH_PORT", cfg.Server.Port)
	cfg.Server.EnableCORS = envBool("FILMSEARCH_ENABLE_CORS", cfg.Server.EnableCORS)

	cfg.Database.Type = envString("DATABASE_TYPE", cfg.Database.Type)
	cfg.Database.Path = envString("SQLITE_PATH", cfg.Database.Path)
	cfg.Database.Host = envString("POSTGRES_HOST", cfg.Database.Host)
	cfg.Database.Port = envInt("POSTGRES_PORT", cfg.Database.Port)
	cfg.Database.Username = envString("POSTGRES_USER", cfg.Database.Username)
	cfg.Database.Password = envString("POSTGRES_PASSWORD", cfg.Database.Password)
	cfg.Database.Database = envString("POSTGRES_DB", cfg.Database.Database)
	cfg.Database.LogQueries = envBool("DB_LOG_QUERIES", cfg.Database.LogQueries)

	cfg.Auth.JWTSecret = envString("FILMSEARCH_JWT_SECRET", cfg.Auth.JWTSecret)
	if ttl := envString("FILMSEARCH_TOKEN_TTL", ""); ttl != "" {
		if d, err := time.ParseDuration(ttl); err == nil {
			cfg.Auth.TokenTTL = d
		}
	}

	cfg.Catalog.NewReleaseWindowDays = envInt("FILMSEARCH_NEW_RELEASE_DAYS", cfg.Catalog.NewReleaseWindowDays)
	cfg.Catalog.HighlightsFile = envString("FILMSEARCH_HIGHLIGHTS_FILE", cfg.Catalog.HighlightsFile)

	cfg.Logging.Level = envString("FILMSEARCH_LOG_LEVEL", cfg.Logging.Level)
}

func envString(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}

func envBool(key string, fallback bool) bool {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			return b
		}
	}
	return fallback
}
