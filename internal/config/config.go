// Package config provides application configuration loading and management.
package config

import (
	"errors"
	"fmt"
	"log"
	"log/slog"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

const defaultJWTSecret = "your-secret-key-change-in-production"

// Config holds application configuration values loaded from file or environment variables.
type Config struct {
	JWTSecret      string `mapstructure:"JWT_SECRET"`
	Port           string `mapstructure:"PORT"`
	Env            string `mapstructure:"APP_ENV"`
	AllowedOrigins string `mapstructure:"ALLOWED_ORIGINS"`
	FeatureFlags   string `mapstructure:"FEATURE_FLAGS"`
	LogLevel       string `mapstructure:"LOG_LEVEL"`
	// AdminEmails lists accounts promoted to admin at startup.
	AdminEmails string `mapstructure:"ADMIN_EMAILS"`

	DBHost                   string `mapstructure:"DB_HOST"`
	DBPort                   string `mapstructure:"DB_PORT"`
	DBUser                   string `mapstructure:"DB_USER"`
	DBPassword               string `mapstructure:"DB_PASSWORD"`
	DBName                   string `mapstructure:"DB_NAME"`
	DBSSLMode                string `mapstructure:"DB_SSLMODE"`
	DBSchemaMode             string `mapstructure:"DB_SCHEMA_MODE"`
	DBMaxOpenConns           int    `mapstructure:"DB_MAX_OPEN_CONNS"`
	DBMaxIdleConns           int    `mapstructure:"DB_MAX_IDLE_CONNS"`
	DBConnMaxLifetimeMinutes int    `mapstructure:"DB_CONN_MAX_LIFETIME_MINUTES"`
	// DBAutoMigrateAllowDestructive permits DB_SCHEMA_MODE=auto in production-like envs.
	DBAutoMigrateAllowDestructive bool `mapstructure:"DB_AUTOMIGRATE_ALLOW_DESTRUCTIVE"`

	RedisURL string `mapstructure:"REDIS_URL"`

	// ReadHistoryCapacity caps the per-user list of recently viewed posts.
	ReadHistoryCapacity int `mapstructure:"READ_HISTORY_CAPACITY"`

	ImageUploadDir       string `mapstructure:"IMAGE_UPLOAD_DIR"`
	ImageMaxUploadSizeMB int    `mapstructure:"IMAGE_MAX_UPLOAD_SIZE_MB"`

	TracingEnabled      bool    `mapstructure:"TRACING_ENABLED"`
	TracingExporter     string  `mapstructure:"TRACING_EXPORTER"`
	OTLPEndpoint        string  `mapstructure:"OTLP_ENDPOINT"`
	TracingSamplerRatio float64 `mapstructure:"TRACING_SAMPLER_RATIO"`
}

// defaults covers every key so the API starts with no config file at all.
var defaults = map[string]any{
	"PORT":                             "8375",
	"APP_ENV":                          "development",
	"JWT_SECRET":                       defaultJWTSecret,
	"ALLOWED_ORIGINS":                  "http://localhost:5173,http://localhost:3000",
	"FEATURE_FLAGS":                    "anonymous_posts=on,hot_posts=on",
	"LOG_LEVEL":                        "info",
	"ADMIN_EMAILS":                     "",
	"DB_HOST":                          "localhost",
	"DB_PORT":                          "5432",
	"DB_USER":                          "user",
	"DB_PASSWORD":                      "password",
	"DB_NAME":                          "unitoku",
	"DB_SSLMODE":                       "disable",
	"DB_SCHEMA_MODE":                   "hybrid",
	"DB_MAX_OPEN_CONNS":                25,
	"DB_MAX_IDLE_CONNS":                5,
	"DB_CONN_MAX_LIFETIME_MINUTES":     5,
	"DB_AUTOMIGRATE_ALLOW_DESTRUCTIVE": false,
	"REDIS_URL":                        "localhost:6379",
	"READ_HISTORY_CAPACITY":            100,
	"IMAGE_UPLOAD_DIR":                 "/tmp/unitoku/uploads/images",
	"IMAGE_MAX_UPLOAD_SIZE_MB":         10,
	"TRACING_ENABLED":                  false,
	"TRACING_EXPORTER":                 "stdout",
	"OTLP_ENDPOINT":                    "localhost:4318",
	"TRACING_SAMPLER_RATIO":            1.0,
}

// LoadConfig layers defaults, config.yml, config.<APP_ENV>.yml (required
// outside development), a local .env and the process environment, in
// increasing precedence.
func LoadConfig() (*Config, error) {
	// A missing .env is the normal case outside local development.
	_ = godotenv.Load()

	for key, value := range defaults {
		viper.SetDefault(key, value)
	}
	for _, dir := range []string{".", "..", "../.."} {
		viper.AddConfigPath(dir)
	}
	viper.SetConfigType("yml")
	viper.SetConfigName("config")
	viper.AutomaticEnv()
	_ = viper.ReadInConfig()

	if env := strings.TrimSpace(viper.GetString("APP_ENV")); env != "development" {
		viper.SetConfigName("config." + env)
		if err := viper.MergeInConfig(); err != nil {
			return nil, fmt.Errorf("config.%s.yml is required for APP_ENV=%s: %w", env, env, err)
		}
		log.Printf("Loaded profile-specific configuration: config.%s.yml", env)
	}

	var cfg Config
	if err := viper.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unable to decode config into struct: %w", err)
	}
	cfg.DBSSLMode = strings.ToLower(strings.TrimSpace(cfg.DBSSLMode))
	cfg.LogLevel = strings.ToLower(strings.TrimSpace(cfg.LogLevel))

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return &cfg, nil
}

// IsProduction reports whether the config targets a production deployment.
func (c *Config) IsProduction() bool {
	return c.Env == "production" || c.Env == "prod"
}

// AdminEmailList returns the normalized ADMIN_EMAILS entries.
func (c *Config) AdminEmailList() []string {
	var out []string
	for _, e := range strings.Split(c.AdminEmails, ",") {
		if e = strings.ToLower(strings.TrimSpace(e)); e != "" {
			out = append(out, e)
		}
	}
	return out
}

// Validate reports every invalid setting at once.
func (c *Config) Validate() error {
	var errs []error
	check := func(bad bool, msg string) {
		if bad {
			errs = append(errs, errors.New(msg))
		}
	}

	port, err := strconv.Atoi(c.Port)
	check(err != nil || port <= 0 || port > 65535, "PORT must be a TCP port number")
	check(c.JWTSecret == "", "JWT_SECRET is required")
	check(c.ReadHistoryCapacity < 0, "READ_HISTORY_CAPACITY must not be negative")
	check(c.ImageMaxUploadSizeMB < 0, "IMAGE_MAX_UPLOAD_SIZE_MB must not be negative")
	check(c.TracingSamplerRatio < 0 || c.TracingSamplerRatio > 1, "TRACING_SAMPLER_RATIO must be between 0 and 1")
	if c.LogLevel != "" {
		var lvl slog.Level
		check(lvl.UnmarshalText([]byte(c.LogLevel)) != nil, "LOG_LEVEL must be debug, info, warn or error")
	}

	if c.IsProduction() {
		check(c.JWTSecret == defaultJWTSecret, "JWT_SECRET must be changed from the default value in production")
		check(len(c.JWTSecret) < 32, "JWT_SECRET must be at least 32 characters in production")
		check(c.DBPassword == "" || c.DBPassword == "password", "a strong DB_PASSWORD is required in production")
		check(c.DBSSLMode == "" || c.DBSSLMode == "disable", "DB_SSLMODE must enable TLS in production")
		if c.AllowedOrigins == "*" {
			log.Println("WARNING: ALLOWED_ORIGINS is '*' in production")
		}
	} else if len(c.JWTSecret) < 32 {
		log.Println("WARNING: JWT_SECRET is shorter than 32 characters")
	}

	return errors.Join(errs...)
}
