package cmd

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"reflect"
	"strconv"
	"strings"
	"time"

	"orderadmin/internal/adapters/out/sqlstore"
	"orderadmin/internal/core/application/usecases/queries"

	validatorv10 "github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
)

// Config is the application configuration, read from the environment and an optional
// .env file. Field names in validation errors are the environment variable names.
type Config struct {
	HTTPPort string `env:"HTTP_PORT" validate:"required,numeric"`

	StoreDriver  string `env:"STORE_DRIVER"  validate:"oneof=sqlite postgres"`
	DatabasePath string `env:"DATABASE_PATH" validate:"required_if=StoreDriver sqlite"`
	DBHost       string `env:"DB_HOST"       validate:"required_if=StoreDriver postgres"`
	DBPort       string `env:"DB_PORT"       validate:"omitempty,numeric"`
	DBUser       string `env:"DB_USER"`
	DBPassword   string `env:"DB_PASSWORD"`
	DBName       string `env:"DB_NAME"       validate:"required_if=StoreDriver postgres"`
	DBSslMode    string `env:"DB_SSLMODE"`
	SeedOnStart  bool   `env:"SEED_ON_START"`

	DefaultPageSize int `env:"DEFAULT_PAGE_SIZE" validate:"min=1,max=1000,ltefield=MaxPageSize"`
	MaxPageSize     int `env:"MAX_PAGE_SIZE"     validate:"min=1,max=1000"`

	AllowedOrigins       []string      `env:"ALLOWED_ORIGINS"         validate:"dive,url"`
	RateLimitWindow      time.Duration `env:"RATE_LIMIT_WINDOW"`
	RateLimitMaxRequests int           `env:"RATE_LIMIT_MAX_REQUESTS" validate:"min=0"`

	LogLevel  string `env:"LOG_LEVEL"  validate:"oneof=debug info warn error"`
	LogFormat string `env:"LOG_FORMAT" validate:"oneof=json text"`

	MetricsSink          string `env:"METRICS_SINK"           validate:"oneof=memory cloudwatch none"`
	MetricsNamespace     string `env:"METRICS_NAMESPACE"      validate:"required_if=MetricsSink cloudwatch"`
	MetricsFlushSchedule string `env:"METRICS_FLUSH_SCHEDULE"`
	AWSRegion            string `env:"AWS_REGION"`
}

// DefaultConfig returns the values used for unset variables.
func DefaultConfig() Config {
	return Config{
		HTTPPort:             "3001",
		StoreDriver:          "sqlite",
		DatabasePath:         "data/app.db",
		DBPort:               "5432",
		DBSslMode:            "disable",
		DefaultPageSize:      20,
		MaxPageSize:          100,
		AllowedOrigins:       []string{"http://localhost:5173", "http://localhost:3000"},
		RateLimitWindow:      15 * time.Minute,
		RateLimitMaxRequests: 100,
		LogLevel:             "info",
		LogFormat:            "json",
		MetricsSink:          "memory",
		MetricsNamespace:     "OrderAdmin",
		MetricsFlushSchedule: "0 * * * * *",
		AWSRegion:            "us-east-1",
	}
}

// LoadConfig loads envFile into the environment, when it exists, and builds a validated
// Config. Variables already set in the environment win over the file.
func LoadConfig(envFile string) (Config, error) {
	if envFile != "" {
		if err := godotenv.Load(envFile); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return Config{}, fmt.Errorf("failed to load %s: %w", envFile, err)
		}
	}

	r := envReader{lookup: os.LookupEnv}
	d := DefaultConfig()

	cfg := Config{
		HTTPPort:             r.getString("HTTP_PORT", d.HTTPPort),
		StoreDriver:          strings.ToLower(r.getString("STORE_DRIVER", d.StoreDriver)),
		DatabasePath:         r.getString("DATABASE_PATH", d.DatabasePath),
		DBHost:               r.getString("DB_HOST", d.DBHost),
		DBPort:               r.getString("DB_PORT", d.DBPort),
		DBUser:               r.getString("DB_USER", d.DBUser),
		DBPassword:           r.getString("DB_PASSWORD", d.DBPassword),
		DBName:               r.getString("DB_NAME", d.DBName),
		DBSslMode:            r.getString("DB_SSLMODE", d.DBSslMode),
		SeedOnStart:          r.getBool("SEED_ON_START", d.SeedOnStart),
		DefaultPageSize:      r.getInt("DEFAULT_PAGE_SIZE", d.DefaultPageSize),
		MaxPageSize:          r.getInt("MAX_PAGE_SIZE", d.MaxPageSize),
		AllowedOrigins:       r.getList("ALLOWED_ORIGINS", d.AllowedOrigins),
		RateLimitWindow:      r.getDuration("RATE_LIMIT_WINDOW", d.RateLimitWindow),
		RateLimitMaxRequests: r.getInt("RATE_LIMIT_MAX_REQUESTS", d.RateLimitMaxRequests),
		LogLevel:             strings.ToLower(r.getString("LOG_LEVEL", d.LogLevel)),
		LogFormat:            strings.ToLower(r.getString("LOG_FORMAT", d.LogFormat)),
		MetricsSink:          strings.ToLower(r.getString("METRICS_SINK", d.MetricsSink)),
		MetricsNamespace:     r.getString("METRICS_NAMESPACE", d.MetricsNamespace),
		MetricsFlushSchedule: r.getString("METRICS_FLUSH_SCHEDULE", d.MetricsFlushSchedule),
		AWSRegion:            r.getString("AWS_REGION", d.AWSRegion),
	}
	if err := errors.Join(r.errs...); err != nil {
		return Config{}, fmt.Errorf("invalid configuration: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate checks the struct tags and reports every violation by variable name.
func (c Config) Validate() error {
	v := validatorv10.New()
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		return f.Tag.Get("env")
	})

	err := v.Struct(c)
	if err == nil {
		return nil
	}

	var verrs validatorv10.ValidationErrors
	if !errors.As(err, &verrs) {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	msgs := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		msgs = append(msgs, describe(fe))
	}
	return fmt.Errorf("invalid configuration: %s", strings.Join(msgs, "; "))
}

// SlogLevel maps LogLevel onto slog.
func (c Config) SlogLevel() slog.Level {
	var level slog.Level
	if err := level.UnmarshalText([]byte(c.LogLevel)); err != nil {
		return slog.LevelInfo
	}
	return level
}

func describe(fe validatorv10.FieldError) string {
	name := fe.Field()
	switch fe.Tag() {
	case "required", "required_if":
		return name + " is required"
	case "oneof":
		return fmt.Sprintf("%s must be one of: %s", name, strings.ReplaceAll(fe.Param(), " ", ", "))
	case "numeric":
		return name + " must be numeric"
	case "url":
		return fmt.Sprintf("%s contains an invalid origin %q", name, fe.Value())
	case "ltefield":
		return name + " cannot exceed MAX_PAGE_SIZE"
	default:
		return fmt.Sprintf("%s failed %s=%s", name, fe.Tag(), fe.Param())
	}
}

type envReader struct {
	lookup func(string) (string, bool)
	errs   []error
}

func (r *envReader) getString(key, fallback string) string {
	if v, ok := r.lookup(key); ok && strings.TrimSpace(v) != "" {
		return strings.TrimSpace(v)
	}
	return fallback
}

func (r *envReader) getInt(key string, fallback int) int {
	raw := r.getString(key, "")
	if raw == "" {
		return fallback
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		r.errs = append(r.errs, fmt.Errorf("%s must be an integer, got %q", key, raw))
		return fallback
	}
	return v
}

func (r *envReader) getBool(key string, fallback bool) bool {
	raw := r.getString(key, "")
	if raw == "" {
		return fallback
	}
	v, err := strconv.ParseBool(raw)
	if err != nil {
		r.errs = append(r.errs, fmt.Errorf("%s must be a boolean, got %q", key, raw))
		return fallback
	}
	return v
}

// getDuration accepts Go durations ("15m") and plain milliseconds ("900000").
func (r *envReader) getDuration(key string, fallback time.Duration) time.Duration {
	raw := r.getString(key, "")
	if raw == "" {
		return fallback
	}
	if ms, err := strconv.ParseInt(raw, 10, 64); err == nil {
		return time.Duration(ms) * time.Millisecond
	}
	v, err := time.ParseDuration(raw)
	if err != nil || v < 0 {
		r.errs = append(r.errs, fmt.Errorf("%s must be a duration such as 15m, got %q", key, raw))
		return fallback
	}
	return v
}

func (r *envReader) getList(key string, fallback []string) []string {
	raw := r.getString(key, "")
	if raw == "" {
		return fallback
	}
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

// StoreConfig returns the store connection settings.
func (c Config) StoreConfig() sqlstore.Config {
	return sqlstore.Config{
		Driver:   c.StoreDriver,
		Path:     c.DatabasePath,
		Host:     c.DBHost,
		Port:     c.DBPort,
		User:     c.DBUser,
		Password: c.DBPassword,
		Name:     c.DBName,
		SSLMode:  c.DBSslMode,
	}
}

// PageLimits returns the page size bounds of list requests.
func (c Config) PageLimits() queries.PageLimits {
	return queries.PageLimits{DefaultPageSize: c.DefaultPageSize, MaxPageSize: c.MaxPageSize}
}
