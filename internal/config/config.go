package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config holds runtime configuration values for the API service.
type Config struct {
	AppName     string
	AppEnv      string
	AppPort     string
	DatabaseURL string
	RedisURL    string
	NATSURL     string
	NATSSubject string
	JWTSecret   string

	ComplianceCacheTTL time.Duration
	// CatalogPath optionally points at a JSON document of extra requirement
	// profiles loaded on top of the built-in catalog.
	CatalogPath string
	// RecencyReference pins "today" for recency calculations; zero means the
	// wall clock.
	RecencyReference time.Time

	TransitionRateLimit  int
	TransitionRateWindow time.Duration
}

// HTTPAddress returns the address the HTTP server should listen on.
func (c Config) HTTPAddress() string {
	if strings.HasPrefix(c.AppPort, ":") {
		return c.AppPort
	}

	return fmt.Sprintf(":%s", c.AppPort)
}

// Load reads configuration values from environment variables and optional .env file.
func Load() (Config, error) {
	_ = godotenv.Load()

	v := viper.New()
	v.SetEnvPrefix("PRAXIS")
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	v.SetDefault("app.name", "Praxis API")
	v.SetDefault("app.env", "development")
	v.SetDefault("app.port", "8080")
	v.SetDefault("nats.subject", "praxis")
	v.SetDefault("compliance.cache_ttl", "5m")
	v.SetDefault("transition.rate_limit", 30)
	v.SetDefault("transition.rate_window", "1m")

	return fromViper(v)
}

func fromViper(v *viper.Viper) (Config, error) {
	ttl, err := parseDuration(v.GetString("compliance.cache_ttl"), 5*time.Minute)
	if err != nil {
		return Config{}, fmt.Errorf("invalid compliance cache ttl: %w", err)
	}

	window, err := parseDuration(v.GetString("transition.rate_window"), time.Minute)
	if err != nil {
		return Config{}, fmt.Errorf("invalid transition rate window: %w", err)
	}

	var reference time.Time
	if raw := strings.TrimSpace(v.GetString("compliance.recency_reference")); raw != "" {
		reference, err = time.ParseInLocation("2006-01-02", raw, time.UTC)
		if err != nil {
			return Config{}, fmt.Errorf("invalid compliance recency reference: %w", err)
		}
	}

	cfg := Config{
		AppName:              v.GetString("app.name"),
		AppEnv:               v.GetString("app.env"),
		AppPort:              v.GetString("app.port"),
		DatabaseURL:          v.GetString("database.url"),
		RedisURL:             v.GetString("redis.url"),
		NATSURL:              v.GetString("nats.url"),
		NATSSubject:          strings.Trim(v.GetString("nats.subject"), "."),
		JWTSecret:            v.GetString("jwt.secret"),
		ComplianceCacheTTL:   ttl,
		CatalogPath:          v.GetString("compliance.catalog_path"),
		RecencyReference:     reference,
		TransitionRateLimit:  v.GetInt("transition.rate_limit"),
		TransitionRateWindow: window,
	}

	if cfg.JWTSecret == "" {
		return Config{}, fmt.Errorf("jwt secret must be provided")
	}
	if cfg.DatabaseURL == "" {
		return Config{}, fmt.Errorf("database url must be provided")
	}
	if cfg.NATSSubject == "" {
		cfg.NATSSubject = "praxis"
	}
	if cfg.TransitionRateLimit <= 0 {
		cfg.TransitionRateLimit = 30
	}

	return cfg, nil
}

func parseDuration(raw string, fallback time.Duration) (time.Duration, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return fallback, nil
	}
	return time.ParseDuration(raw)
}
