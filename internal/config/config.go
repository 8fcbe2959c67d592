// Package config loads server settings from an optional TOML file and the environment.
// Environment variables win over the file.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
)

const (
	StoragePostgres = "postgres"
	StorageMemory   = "memory"

	defaultSessionSecret = "secret_key_change_me"
	defaultJWTSecret     = "jwt_secret_change_me"
)

type Config struct {
	Env         string `toml:"env"`
	Port        string `toml:"port"`
	DatabaseURL string `toml:"databaseURL"`
	Storage     string `toml:"storage"`
	DBDebug     bool   `toml:"dbDebug"`

	SessionSecret string `toml:"sessionSecret"`
	JWTSecret     string `toml:"jwtSecret"`

	GoogleClientID     string `toml:"googleClientID"`
	GoogleClientSecret string `toml:"googleClientSecret"`
	SiteURL            string `toml:"siteURL"`

	KafkaBrokers []string `toml:"kafkaBrokers"`
	KafkaTopic   string   `toml:"kafkaTopic"`

	LogLevel  string `toml:"logLevel"`
	LogFormat string `toml:"logFormat"` // text | json

	CacheSize       int      `toml:"cacheSize"`
	CacheTTL        Duration `toml:"cacheTTL"`
	RankingInterval Duration `toml:"rankingInterval"`
}

// Duration decodes TOML strings such as "30s".
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

func Default() Config {
	return Config{
		Env:             "development",
		Port:            "8080",
		DatabaseURL:     "host=localhost user=postgres password=postgres dbname=lyceum port=5432 sslmode=disable TimeZone=UTC",
		Storage:         StoragePostgres,
		SessionSecret:   defaultSessionSecret,
		JWTSecret:       defaultJWTSecret,
		SiteURL:         "http://localhost:8080",
		KafkaTopic:      "lyceum.activity",
		LogLevel:        "info",
		LogFormat:       "text",
		CacheSize:       128,
		CacheTTL:        Duration{time.Minute},
		RankingInterval: Duration{500 * time.Millisecond},
	}
}

// Load reads path when it exists, then applies environment overrides. An empty path or a
// missing file is not an error.
func Load(path string) (Config, error) {
	cfg := Default()
	if path != "" {
		if _, err := os.Stat(path); err == nil {
			if _, err := toml.DecodeFile(path, &cfg); err != nil {
				return cfg, fmt.Errorf("decode %s: %w", path, err)
			}
		} else if !errors.Is(err, os.ErrNotExist) {
			return cfg, err
		}
	}
	if err := cfg.applyEnv(os.Getenv); err != nil {
		return cfg, err
	}
	return cfg, cfg.Validate()
}

func (c *Config) applyEnv(getenv func(string) string) error {
	str := func(key string, dst *string) {
		if v := strings.TrimSpace(getenv(key)); v != "" {
			*dst = v
		}
	}
	str("APP_ENV", &c.Env)
	str("PORT", &c.Port)
	str("DATABASE_URL", &c.DatabaseURL)
	str("STORAGE", &c.Storage)
	str("SESSION_SECRET", &c.SessionSecret)
	str("JWT_SECRET", &c.JWTSecret)
	str("GOOGLE_CLIENT_ID", &c.GoogleClientID)
	str("GOOGLE_CLIENT_SECRET", &c.GoogleClientSecret)
	str("SITE_URL", &c.SiteURL)
	str("KAFKA_TOPIC", &c.KafkaTopic)
	str("LOG_LEVEL", &c.LogLevel)
	str("LOG_FORMAT", &c.LogFormat)

	if v := getenv("KAFKA_BROKERS"); v != "" {
		c.KafkaBrokers = nil
		for _, b := range strings.Split(v, ",") {
			if b = strings.TrimSpace(b); b != "" {
				c.KafkaBrokers = append(c.KafkaBrokers, b)
			}
		}
	}
	if v := getenv("DB_DEBUG"); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("DB_DEBUG: %w", err)
		}
		c.DBDebug = b
	}
	if v := getenv("CACHE_SIZE"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("CACHE_SIZE: %w", err)
		}
		c.CacheSize = n
	}
	for key, dst := range map[string]*Duration{"CACHE_TTL": &c.CacheTTL, "RANKING_INTERVAL": &c.RankingInterval} {
		if v := getenv(key); v != "" {
			d, err := time.ParseDuration(v)
			if err != nil {
				return fmt.Errorf("%s: %w", key, err)
			}
			dst.Duration = d
		}
	}
	return nil
}

func (c Config) Production() bool {
	return c.Env == "production"
}

func (c Config) Validate() error {
	switch c.Storage {
	case StoragePostgres, StorageMemory:
	default:
		return fmt.Errorf("unknown storage %q (postgres|memory)", c.Storage)
	}
	if c.Port == "" {
		return errors.New("port is required")
	}
	if c.CacheSize <= 0 || c.CacheTTL.Duration <= 0 {
		return errors.New("cache size and ttl must be positive")
	}
	if c.GoogleClientID != "" && c.GoogleClientSecret == "" {
		return errors.New("GOOGLE_CLIENT_SECRET is required with GOOGLE_CLIENT_ID")
	}
	if c.RankingInterval.Duration <= 0 {
		return errors.New("ranking interval must be positive")
	}
	if c.Production() {
		if c.SessionSecret == "" || c.SessionSecret == defaultSessionSecret {
			return errors.New("SESSION_SECRET must be set in production")
		}
		if c.JWTSecret == "" || c.JWTSecret == defaultJWTSecret {
			return errors.New("JWT_SECRET must be set in production")
		}
	}
	return nil
}
