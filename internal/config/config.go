package config

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Version is injected at build time via ldflags.
var Version = "dev"

// Config holds all application configuration.
type Config struct {
	Server    ServerConfig    `mapstructure:"server"`
	Database  DatabaseConfig  `mapstructure:"database"`
	Logging   LoggingConfig   `mapstructure:"logging"`
	TMDB      TMDBConfig      `mapstructure:"tmdb"`
	Locale    LocaleConfig    `mapstructure:"locale"`
	Search    SearchConfig    `mapstructure:"search"`
	Sessions  SessionsConfig  `mapstructure:"sessions"`
	Favorites FavoritesConfig `mapstructure:"favorites"`
}

// ServerConfig holds HTTP server configuration.
type ServerConfig struct {
	Host string `mapstructure:"host"`
	Port int    `mapstructure:"port"`
}

// DatabaseConfig holds database configuration.
type DatabaseConfig struct {
	Path string `mapstructure:"path"`
}

// LoggingConfig holds logging configuration.
type LoggingConfig struct {
	Level      string `mapstructure:"level"`
	Format     string `mapstructure:"format"`
	Path       string `mapstructure:"path"`
	MaxSizeMB  int    `mapstructure:"max_size_mb"`
	MaxBackups int    `mapstructure:"max_backups"`
	MaxAgeDays int    `mapstructure:"max_age_days"`
	Compress   bool   `mapstructure:"compress"`
}

// TMDBConfig holds TMDB API client configuration.
type TMDBConfig struct {
	APIKey            string  `mapstructure:"api_key"`
	BaseURL           string  `mapstructure:"base_url"`
	ImageBaseURL      string  `mapstructure:"image_base_url"`
	Timeout           int     `mapstructure:"timeout"` // seconds
	RequestsPerSecond float64 `mapstructure:"requests_per_second"`
	Burst             int     `mapstructure:"burst"`
	RetryAttempts     uint    `mapstructure:"retry_attempts"`
	HealthCron        string  `mapstructure:"health_cron"`
}

// LocaleConfig holds display language defaults.
type LocaleConfig struct {
	Default string `mapstructure:"default"`
}

// SearchConfig holds multi-category search behaviour switches.
type SearchConfig struct {
	// DedupeLoadMore drops items already present in a category when appending
	// a further page. Off by default: pages are appended exactly as returned.
	DedupeLoadMore bool `mapstructure:"dedupe_load_more"`
}

// SessionsConfig holds settings for search and detail session lifetime.
type SessionsConfig struct {
	IdleTTLMinutes int    `mapstructure:"idle_ttl_minutes"`
	ReaperCron     string `mapstructure:"reaper_cron"`
}

// FavoritesConfig holds favorites refresh settings.
type FavoritesConfig struct {
	RefreshWorkers int `mapstructure:"refresh_workers"`
}

// Default returns a Config with default values.
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Host: "0.0.0.0",
			Port: 8080,
		},
		Database: DatabaseConfig{
			Path: "./data/moviecinema.db",
		},
		Logging: LoggingConfig{
			Level:      "info",
			Format:     "console",
			MaxSizeMB:  10,
			MaxBackups: 5,
			MaxAgeDays: 30,
			Compress:   true,
		},
		TMDB: TMDBConfig{
			BaseURL:           "https://api.themoviedb.org/3",
			ImageBaseURL:      "https://image.tmdb.org/t/p",
			Timeout:           30,
			RequestsPerSecond: 40,
			Burst:             20,
			RetryAttempts:     3,
			HealthCron:        "*/15 * * * *",
		},
		Locale: LocaleConfig{
			Default: "en",
		},
		Sessions: SessionsConfig{
			IdleTTLMinutes: 30,
			ReaperCron:     "*/5 * * * *",
		},
		Favorites: FavoritesConfig{
			RefreshWorkers: 8,
		},
	}
}

// Load reads configuration from file and environment variables.
// Priority: environment variables > .env file > config file > defaults
func Load(configPath string) (*Config, error) {
	// A missing .env is the normal case outside local development.
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("failed to read .env file: %w", err)
	}

	v := viper.New()

	setDefaults(v)

	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("./configs")
		v.AddConfigPath("$HOME/.moviecinema")
	}

	v.SetEnvPrefix("MOVIECINEMA")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if cfg.TMDB.APIKey == "" {
		cfg.TMDB.APIKey = EmbeddedTMDBKey
	}

	return cfg, nil
}

// setDefaults sets default values in viper
func setDefaults(v *viper.Viper) {
	d := Default()

	v.SetDefault("server.host", d.Server.Host)
	v.SetDefault("server.port", d.Server.Port)

	v.SetDefault("database.path", d.Database.Path)

	v.SetDefault("logging.level", d.Logging.Level)
	v.SetDefault("logging.format", d.Logging.Format)
	v.SetDefault("logging.path", d.Logging.Path)
	v.SetDefault("logging.max_size_mb", d.Logging.MaxSizeMB)
	v.SetDefault("logging.max_backups", d.Logging.MaxBackups)
	v.SetDefault("logging.max_age_days", d.Logging.MaxAgeDays)
	v.SetDefault("logging.compress", d.Logging.Compress)

	// api_key has no default but must be registered so AutomaticEnv picks up
	// MOVIECINEMA_TMDB_API_KEY during Unmarshal.
	v.SetDefault("tmdb.api_key", "")
	v.SetDefault("tmdb.base_url", d.TMDB.BaseURL)
	v.SetDefault("tmdb.image_base_url", d.TMDB.ImageBaseURL)
	v.SetDefault("tmdb.timeout", d.TMDB.Timeout)
	v.SetDefault("tmdb.requests_per_second", d.TMDB.RequestsPerSecond)
	v.SetDefault("tmdb.burst", d.TMDB.Burst)
	v.SetDefault("tmdb.retry_attempts", d.TMDB.RetryAttempts)
	v.SetDefault("tmdb.health_cron", d.TMDB.HealthCron)

	v.SetDefault("locale.default", d.Locale.Default)

	v.SetDefault("search.dedupe_load_more", d.Search.DedupeLoadMore)

	v.SetDefault("sessions.idle_ttl_minutes", d.Sessions.IdleTTLMinutes)
	v.SetDefault("sessions.reaper_cron", d.Sessions.ReaperCron)

	v.SetDefault("favorites.refresh_workers", d.Favorites.RefreshWorkers)
}

// Address returns the server address string.
func (c *ServerConfig) Address() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}
