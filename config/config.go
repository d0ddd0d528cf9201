package config

import (
	"log/slog"
	"net/url"
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/spf13/viper"
)

const (
	EnvDev     = "dev"
	EnvStaging = "staging"
	EnvProd    = "prod"
)

const (
	LogLevelDebug = "debug"
	LogLevelInfo  = "info"
	LogLevelWarn  = "warn"
	LogLevelError = "error"
)

// Watcher is the health watcher service configuration, sourced from the
// environment.
type Watcher struct {
	Port           int     `mapstructure:"port"`
	Environment    string  `mapstructure:"environment"`
	LogLevel       string  `mapstructure:"log_level"`
	WindowMS       int64   `mapstructure:"window_ms"`
	P95SLOMS       float64 `mapstructure:"p95_slo_ms"`
	ErrorRateSLO   float64 `mapstructure:"error_rate_slo"`
	ErrorRateAmber float64 `mapstructure:"error_rate_amber"`
	MinSampleCount int     `mapstructure:"min_sample_count"`
}

// Gateway is the circuit-breaking gateway service configuration.
type Gateway struct {
	Port                     int     `mapstructure:"port"`
	Environment              string  `mapstructure:"environment"`
	LogLevel                 string  `mapstructure:"log_level"`
	PrimaryURL               string  `mapstructure:"primary_url"`
	FallbackURL              string  `mapstructure:"fallback_url"`
	PrimaryToken             string  `mapstructure:"primary_token"`
	FallbackToken            string  `mapstructure:"fallback_token"`
	HealthEndpoint           string  `mapstructure:"health_endpoint"`
	HealthIntervalMS         int64   `mapstructure:"health_interval_ms"`
	HalfOpenRatio            float64 `mapstructure:"half_open_ratio"`
	HalfOpenSuccessThreshold int     `mapstructure:"half_open_success_threshold"`
	RequestTimeoutMS         int64   `mapstructure:"request_timeout_ms"`
	IncidentLogPath          string  `mapstructure:"incident_log_path"`
}

// LoadWatcher reads the watcher configuration from the environment,
// applying defaults and validating the result.
func LoadWatcher() (*Watcher, error) {
	v := viper.New()

	v.SetDefault("port", 8080)
	v.SetDefault("environment", EnvDev)
	v.SetDefault("log_level", LogLevelInfo)
	v.SetDefault("window_ms", 300000)
	v.SetDefault("p95_slo_ms", 1200)
	v.SetDefault("error_rate_slo", 0.02)
	v.SetDefault("error_rate_amber", 0.05)
	v.SetDefault("min_sample_count", 20)

	v.AutomaticEnv()

	var cfg Watcher
	if err := v.Unmarshal(&cfg); err != nil {
		slog.Error("failed to unmarshal watcher config", slog.String("error", err.Error()))
		return nil, err
	}

	if err := cfg.Validate(); err != nil {
		slog.Error("invalid watcher configuration", slog.String("error", err.Error()))
		return nil, err
	}

	return &cfg, nil
}

// LoadGateway reads the gateway configuration from the environment,
// applying defaults and validating the result. PRIMARY_URL and FALLBACK_URL
// have no defaults and must be set.
func LoadGateway() (*Gateway, error) {
	v := viper.New()

	v.SetDefault("port", 8090)
	v.SetDefault("environment", EnvDev)
	v.SetDefault("log_level", LogLevelInfo)
	v.SetDefault("primary_url", "")
	v.SetDefault("fallback_url", "")
	v.SetDefault("primary_token", "")
	v.SetDefault("fallback_token", "")
	v.SetDefault("health_endpoint", "http://localhost:8080/healthz")
	v.SetDefault("health_interval_ms", 15000)
	v.SetDefault("half_open_ratio", 0.2)
	v.SetDefault("half_open_success_threshold", 5)
	v.SetDefault("request_timeout_ms", 15000)
	v.SetDefault("incident_log_path", "incidents.jsonl")

	v.AutomaticEnv()

	var cfg Gateway
	if err := v.Unmarshal(&cfg); err != nil {
		slog.Error("failed to unmarshal gateway config", slog.String("error", err.Error()))
		return nil, err
	}

	if err := cfg.Validate(); err != nil {
		slog.Error("invalid gateway configuration", slog.String("error", err.Error()))
		return nil, err
	}

	return &cfg, nil
}

func (c *Watcher) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.Port, validation.Required, validation.Min(1), validation.Max(65535)),
		validation.Field(&c.Environment, validation.Required, validation.In(EnvDev, EnvStaging, EnvProd)),
		validation.Field(&c.LogLevel, validation.Required,
			validation.In(LogLevelDebug, LogLevelInfo, LogLevelWarn, LogLevelError)),
		validation.Field(&c.WindowMS, validation.Required, validation.Min(int64(1))),
		validation.Field(&c.P95SLOMS, validation.Required, validation.Min(1.0)),
		validation.Field(&c.ErrorRateSLO, validation.Min(0.0), validation.Max(1.0)),
		validation.Field(&c.ErrorRateAmber, validation.Min(0.0), validation.Max(1.0)),
		validation.Field(&c.MinSampleCount, validation.Required, validation.Min(1)),
	)
}

func (c *Gateway) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.Port, validation.Required, validation.Min(1), validation.Max(65535)),
		validation.Field(&c.Environment, validation.Required, validation.In(EnvDev, EnvStaging, EnvProd)),
		validation.Field(&c.LogLevel, validation.Required,
			validation.In(LogLevelDebug, LogLevelInfo, LogLevelWarn, LogLevelError)),
		validation.Field(&c.PrimaryURL, validation.Required, validation.By(validateServerURL)),
		validation.Field(&c.FallbackURL, validation.Required, validation.By(validateServerURL)),
		validation.Field(&c.HealthEndpoint, validation.Required, validation.By(validateServerURL)),
		validation.Field(&c.HealthIntervalMS, validation.Required, validation.Min(int64(1))),
		validation.Field(&c.HalfOpenRatio, validation.Min(0.0), validation.Max(1.0)),
		validation.Field(&c.HalfOpenSuccessThreshold, validation.Required, validation.Min(1)),
		validation.Field(&c.RequestTimeoutMS, validation.Required, validation.Min(int64(1))),
		validation.Field(&c.IncidentLogPath, validation.Required),
	)
}

// Window returns the observation span as a duration.
func (c *Watcher) Window() time.Duration {
	return time.Duration(c.WindowMS) * time.Millisecond
}

// HealthInterval returns the poll cadence as a duration.
func (c *Gateway) HealthInterval() time.Duration {
	return time.Duration(c.HealthIntervalMS) * time.Millisecond
}

// RequestTimeout returns the proxied request bound as a duration.
func (c *Gateway) RequestTimeout() time.Duration {
	return time.Duration(c.RequestTimeoutMS) * time.Millisecond
}

func validateServerURL(value interface{}) error {
	serverURL, ok := value.(string)
	if !ok {
		return validation.NewError("validation_invalid_type", "must be a string")
	}

	if serverURL == "" {
		return validation.NewError("validation_empty_url", "server URL cannot be empty")
	}

	parsedURL, err := url.Parse(serverURL)
	if err != nil {
		return validation.NewError("validation_invalid_url", "must be a valid URL")
	}

	if parsedURL.Scheme != "http" && parsedURL.Scheme != "https" {
		return validation.NewError("validation_invalid_scheme", "URL must use http or https scheme")
	}

	if parsedURL.Host == "" {
		return validation.NewError("validation_missing_host", "URL must have a host")
	}

	return nil
}
