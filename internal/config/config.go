package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/pelletier/go-toml/v2"
)

const (
	StoreMemory   = "memory"
	StoreRedis    = "redis"
	StorePostgres = "postgres"

	defaultSessionSecret = "fallback-secret-key-for-development"
)

type Config struct {
	Env      string `toml:"env"`
	Port     string `toml:"port"`
	LogLevel string `toml:"log_level"`
	Timezone string `toml:"timezone"`

	SessionSecret string        `toml:"session_secret"`
	SessionTTL    time.Duration `toml:"session_ttl"`

	StoreDriver string `toml:"store_driver"`
	RedisURL    string `toml:"redis_url"`
	RedisPass   string `toml:"redis_pass"`
	RedisDB     int    `toml:"redis_db"`
	DatabaseURL string `toml:"database_url"`

	MainBotToken   string `toml:"main_bot_token"`
	ViewBotToken   string `toml:"view_bot_token"`
	AdminID        string `toml:"admin_id"`
	TelegramAPIURL string `toml:"telegram_api_url"`
}

func defaults() *Config {
	return &Config{
		Env:            "development",
		Port:           "8080",
		LogLevel:       "info",
		SessionSecret:  defaultSessionSecret,
		SessionTTL:     24 * time.Hour,
		StoreDriver:    StoreMemory,
		TelegramAPIURL: "https://api.telegram.org",
	}
}

// Load builds the configuration from defaults, the optional TOML file named
// by CONFIG_FILE, and finally environment variables.
func Load() (*Config, error) {
	cfg := defaults()

	if path := os.Getenv("CONFIG_FILE"); path != "" {
		if err := cfg.loadFile(path); err != nil {
			return nil, err
		}
	}

	if err := cfg.applyEnv(); err != nil {
		return nil, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

func (c *Config) loadFile(path string) error {
	file, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("failed to open config: %w", err)
	}
	defer file.Close()

	if err := toml.NewDecoder(file).Decode(c); err != nil {
		return fmt.Errorf("failed to decode config %s: %w", path, err)
	}
	return nil
}

func (c *Config) applyEnv() error {
	setString := func(key string, dst *string) {
		if v := strings.TrimSpace(os.Getenv(key)); v != "" {
			*dst = v
		}
	}

	setString("ENV", &c.Env)
	setString("PORT", &c.Port)
	setString("LOG_LEVEL", &c.LogLevel)
	setString("TIMEZONE", &c.Timezone)
	setString("SESSION_SECRET", &c.SessionSecret)
	setString("STORE_DRIVER", &c.StoreDriver)
	setString("REDIS_URL", &c.RedisURL)
	setString("REDIS_PASS", &c.RedisPass)
	setString("DATABASE_URL", &c.DatabaseURL)
	setString("MAIN_BOT_TOKEN", &c.MainBotToken)
	setString("VIEW_BOT_TOKEN", &c.ViewBotToken)
	setString("ADMIN_ID", &c.AdminID)
	setString("TELEGRAM_API_URL", &c.TelegramAPIURL)

	if v := os.Getenv("REDIS_DB"); v != "" {
		db, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("invalid REDIS_DB %q: %w", v, err)
		}
		c.RedisDB = db
	}

	if v := os.Getenv("SESSION_TTL"); v != "" {
		ttl, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("invalid SESSION_TTL %q: %w", v, err)
		}
		c.SessionTTL = ttl
	}

	return nil
}

func (c *Config) Validate() error {
	switch c.StoreDriver {
	case StoreMemory:
	case StoreRedis:
		if c.RedisURL == "" {
			return fmt.Errorf("REDIS_URL is required for store driver %q", c.StoreDriver)
		}
	case StorePostgres:
		if c.DatabaseURL == "" {
			return fmt.Errorf("DATABASE_URL is required for store driver %q", c.StoreDriver)
		}
	default:
		return fmt.Errorf("unknown store driver: %s", c.StoreDriver)
	}

	if c.SessionTTL <= 0 {
		return fmt.Errorf("session ttl must be positive, got %s", c.SessionTTL)
	}

	if c.IsProduction() && c.SessionSecret == defaultSessionSecret {
		return fmt.Errorf("SESSION_SECRET is required in production")
	}

	if _, err := c.Location(); err != nil {
		return err
	}

	return nil
}

func (c *Config) IsProduction() bool {
	return c.Env == "production"
}

// Location is the zone whose calendar date drives daily resets.
func (c *Config) Location() (*time.Location, error) {
	if c.Timezone == "" {
		return time.Local, nil
	}
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return nil, fmt.Errorf("invalid TIMEZONE %q: %w", c.Timezone, err)
	}
	return loc, nil
}
