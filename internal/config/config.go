// Package config loads process configuration from defaults, an optional
// YAML file, a .env file and the environment, in that order of precedence
// (later wins).
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

const (
	DriverPostgres = "postgres"
	DriverMongo    = "mongo"

	StorageLocal = "local"
	StorageGCS   = "gcs"
)

// Config holds all application configuration.
type Config struct {
	Env string `yaml:"env"`

	Server   ServerConfig   `yaml:"server"`
	Database DatabaseConfig `yaml:"database"`
	Storage  StorageConfig  `yaml:"storage"`
	Security SecurityConfig `yaml:"security"`
	Redis    RedisConfig    `yaml:"redis"`
	Payments PaymentsConfig `yaml:"payments"`
	Logging  LoggingConfig  `yaml:"logging"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Port int `yaml:"port"`
	// CORSAllowedOrigin is a comma separated origin list; "*" admits any origin.
	CORSAllowedOrigin string `yaml:"cors_allowed_origin"`
}

// DatabaseConfig selects and locates the catalog store.
type DatabaseConfig struct {
	Driver        string `yaml:"driver"` // postgres, mongo
	URL           string `yaml:"url"`
	MongoURI      string `yaml:"mongo_uri"`
	MongoDatabase string `yaml:"mongo_database"`
}

// StorageConfig selects the audio blob store.
type StorageConfig struct {
	Driver             string `yaml:"driver"` // local, gcs
	GCSBucket          string `yaml:"gcs_bucket"`
	GCSPrefix          string `yaml:"gcs_prefix"`
	GCSCredentialsFile string `yaml:"gcs_credentials_file"`
	ContentDir         string `yaml:"content_dir"`
}

// SecurityConfig holds API keys and identity service settings.
type SecurityConfig struct {
	ServiceAPIKeys    []string      `yaml:"service_api_keys"`
	IdentityURL       string        `yaml:"identity_url"`
	IdentityAPIKey    string        `yaml:"identity_api_key"`
	IdentityJWTSecret string        `yaml:"identity_jwt_secret"`
	IdentityCacheTTL  time.Duration `yaml:"identity_cache_ttl"`
}

type RedisConfig struct {
	URL           string `yaml:"url"`
	EventsChannel string `yaml:"events_channel"`
}

type PaymentsConfig struct {
	URL       string  `yaml:"url"`
	APIKey    string  `yaml:"api_key"`
	Workers   int     `yaml:"workers"`
	QueueSize int     `yaml:"queue_size"`
	Rate      float64 `yaml:"rate"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level  string `yaml:"level"`  // debug, info, warn, error
	Format string `yaml:"format"` // json, text
}

// Default returns the development defaults.
func Default() *Config {
	return &Config{
		Env:    "development",
		Server: ServerConfig{Port: 8080},
		Database: DatabaseConfig{
			Driver:        DriverPostgres,
			MongoDatabase: "spotifiuby",
		},
		Storage: StorageConfig{
			Driver:     StorageLocal,
			ContentDir: "content",
		},
		Security: SecurityConfig{
			IdentityCacheTTL: 60 * time.Second,
		},
		Redis: RedisConfig{
			EventsChannel: "catalog.events",
		},
		Payments: PaymentsConfig{
			Workers:   4,
			QueueSize: 256,
			Rate:      20,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
		},
	}
}

// Load builds the configuration. path may be empty, in which case CONFIG_FILE is consulted.
func Load(path string) (*Config, error) {
	// .env is optional
	_ = godotenv.Load()

	cfg := Default()

	if path == "" {
		path = os.Getenv("CONFIG_FILE")
	}
	if path != "" {
		if err := cfg.loadFile(path); err != nil {
			return nil, err
		}
	}

	if err := cfg.loadEnv(); err != nil {
		return nil, fmt.Errorf("load env config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}
	return cfg, nil
}

func (c *Config) loadFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config file: %w", err)
	}
	if err := yaml.Unmarshal(data, c); err != nil {
		return fmt.Errorf("parse config file: %w", err)
	}
	return nil
}

func (c *Config) loadEnv() error {
	var errs []error

	setString(&c.Env, "ENV")
	setInt(&c.Server.Port, "PORT", &errs)
	setString(&c.Server.CORSAllowedOrigin, "CORS_ALLOWED_ORIGIN")

	setString(&c.Database.Driver, "DATABASE_DRIVER")
	setString(&c.Database.URL, "DATABASE_URL")
	setString(&c.Database.MongoURI, "MONGODB_URI")
	setString(&c.Database.MongoDatabase, "MONGODB_DATABASE")

	setString(&c.Storage.Driver, "STORAGE_DRIVER")
	setString(&c.Storage.GCSBucket, "GCS_BUCKET")
	setString(&c.Storage.GCSPrefix, "GCS_PREFIX")
	setString(&c.Storage.GCSCredentialsFile, "GCS_CREDENTIALS_FILE")
	setString(&c.Storage.ContentDir, "CONTENT_DIR")

	if v := os.Getenv("SERVICE_API_KEYS"); v != "" {
		c.Security.ServiceAPIKeys = splitList(v)
	}
	setString(&c.Security.IdentityURL, "IDENTITY_URL")
	setString(&c.Security.IdentityAPIKey, "IDENTITY_API_KEY")
	setString(&c.Security.IdentityJWTSecret, "IDENTITY_JWT_SECRET")
	if v := os.Getenv("IDENTITY_CACHE_TTL"); v != "" {
		ttl, err := time.ParseDuration(v)
		if err != nil {
			errs = append(errs, fmt.Errorf("invalid IDENTITY_CACHE_TTL: %w", err))
		} else {
			c.Security.IdentityCacheTTL = ttl
		}
	}

	setString(&c.Redis.URL, "REDIS_URL")
	setString(&c.Redis.EventsChannel, "EVENTS_CHANNEL")

	setString(&c.Payments.URL, "PAYMENTS_URL")
	setString(&c.Payments.APIKey, "PAYMENTS_API_KEY")
	setInt(&c.Payments.Workers, "PAYMENTS_WORKERS", &errs)
	setInt(&c.Payments.QueueSize, "PAYMENTS_QUEUE_SIZE", &errs)
	if v := os.Getenv("PAYMENTS_RATE"); v != "" {
		rate, err := strconv.ParseFloat(v, 64)
		if err != nil {
			errs = append(errs, fmt.Errorf("invalid PAYMENTS_RATE: %w", err))
		} else {
			c.Payments.Rate = rate
		}
	}

	setString(&c.Logging.Level, "LOG_LEVEL")
	setString(&c.Logging.Format, "LOG_FORMAT")

	return errors.Join(errs...)
}

// Validate reports every configuration problem at once.
func (c *Config) Validate() error {
	var errs []error

	if c.Server.Port < 1 || c.Server.Port > 65535 {
		errs = append(errs, errors.New("PORT must be between 1 and 65535"))
	}

	switch c.Database.Driver {
	case DriverPostgres:
		if c.Database.URL == "" {
			errs = append(errs, errors.New("DATABASE_URL is required for the postgres driver"))
		}
	case DriverMongo:
		if c.Database.MongoURI == "" {
			errs = append(errs, errors.New("MONGODB_URI is required for the mongo driver"))
		}
		if c.Database.MongoDatabase == "" {
			errs = append(errs, errors.New("MONGODB_DATABASE is required for the mongo driver"))
		}
	default:
		errs = append(errs, fmt.Errorf("DATABASE_DRIVER must be one of: %s, %s", DriverPostgres, DriverMongo))
	}

	switch c.Storage.Driver {
	case StorageLocal:
		if c.Storage.ContentDir == "" {
			errs = append(errs, errors.New("CONTENT_DIR is required for local storage"))
		}
	case StorageGCS:
		if c.Storage.GCSBucket == "" {
			errs = append(errs, errors.New("GCS_BUCKET is required for gcs storage"))
		}
	default:
		errs = append(errs, fmt.Errorf("STORAGE_DRIVER must be one of: %s, %s", StorageLocal, StorageGCS))
	}

	if c.IsProduction() {
		if len(c.Security.ServiceAPIKeys) == 0 {
			errs = append(errs, errors.New("SERVICE_API_KEYS is required in production"))
		}
		if c.Security.IdentityURL == "" && c.Security.IdentityJWTSecret == "" {
			errs = append(errs, errors.New("IDENTITY_URL or IDENTITY_JWT_SECRET is required in production"))
		}
	}
	if s := c.Security.IdentityJWTSecret; s != "" && len(s) < 16 {
		errs = append(errs, errors.New("IDENTITY_JWT_SECRET must be at least 16 characters"))
	}
	if c.Security.IdentityCacheTTL < 0 {
		errs = append(errs, errors.New("IDENTITY_CACHE_TTL must not be negative"))
	}

	if c.Payments.Workers < 1 {
		errs = append(errs, errors.New("PAYMENTS_WORKERS must be at least 1"))
	}
	if c.Payments.QueueSize < 0 {
		errs = append(errs, errors.New("PAYMENTS_QUEUE_SIZE must not be negative"))
	}
	if c.Payments.Rate < 0 {
		errs = append(errs, errors.New("PAYMENTS_RATE must not be negative"))
	}

	validLogLevels := map[string]bool{"debug": true, "info": true, "warn": true, "error": true}
	if !validLogLevels[c.Logging.Level] {
		errs = append(errs, errors.New("LOG_LEVEL must be one of: debug, info, warn, error"))
	}
	validLogFormats := map[string]bool{"json": true, "text": true}
	if !validLogFormats[c.Logging.Format] {
		errs = append(errs, errors.New("LOG_FORMAT must be one of: json, text"))
	}

	return errors.Join(errs...)
}

// IsProduction reports whether Env names a production-like deployment.
func (c *Config) IsProduction() bool {
	switch strings.ToLower(strings.TrimSpace(c.Env)) {
	case "production", "prod", "staging":
		return true
	}
	return false
}

// Addr is the listen address for the HTTP server.
func (c *Config) Addr() string {
	return fmt.Sprintf(":%d", c.Server.Port)
}

func setString(dst *string, key string) {
	if v := os.Getenv(key); v != "" {
		*dst = v
	}
}

func setInt(dst *int, key string, errs *[]error) {
	v := os.Getenv(key)
	if v == "" {
		return
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		*errs = append(*errs, fmt.Errorf("invalid %s: %w", key, err))
		return
	}
	*dst = n
}

func splitList(v string) []string {
	var out []string
	for _, part := range strings.Split(v, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
