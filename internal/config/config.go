// Package config loads and validates app config from env and an optional .env file using Viper.
package config

import (
	"errors"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds application configuration loaded from the environment.
type Config struct {
	// HTTPAddr is the address the HTTP server listens on (e.g. :8080).
	HTTPAddr string `mapstructure:"HTTP_ADDR"`
	// DatabaseURL is the Postgres DSN.
	DatabaseURL string `mapstructure:"DATABASE_URL"`
	// LogLevel is the slog level ("debug", "info", "warn", "error").
	LogLevel string `mapstructure:"LOG_LEVEL"`

	// JWTAccessSecret signs access tokens. Must differ from JWTRefreshSecret so
	// compromise of one key cannot forge the other token type.
	JWTAccessSecret string `mapstructure:"JWT_ACCESS_SECRET"`
	// JWTRefreshSecret signs refresh tokens.
	JWTRefreshSecret string `mapstructure:"JWT_REFRESH_SECRET"`
	// JWTIssuer is the iss claim (e.g. "social-auth").
	JWTIssuer string `mapstructure:"JWT_ISSUER"`
	// JWTAccessTTL is the access token lifetime (e.g. "15m").
	JWTAccessTTL string `mapstructure:"JWT_ACCESS_TTL"`
	// JWTRefreshTTL is the refresh token and session lifetime (e.g. "168h").
	JWTRefreshTTL string `mapstructure:"JWT_REFRESH_TTL"`
	// VerificationCodeTTL is the verification code lifetime (e.g. "15m").
	VerificationCodeTTL string `mapstructure:"VERIFICATION_CODE_TTL"`
	// BcryptCost is the bcrypt cost factor (4-31); default 12.
	BcryptCost int `mapstructure:"BCRYPT_COST"`

	// RequestTimeout bounds a single orchestrator call end to end (e.g. "5s").
	RequestTimeout string `mapstructure:"REQUEST_TIMEOUT"`

	// ConfirmMaxAttempts is how many failed code confirmations per user are
	// allowed inside ConfirmWindow before further attempts are throttled.
	ConfirmMaxAttempts int `mapstructure:"CONFIRM_MAX_ATTEMPTS"`
	// ConfirmWindow is the sliding window for ConfirmMaxAttempts (e.g. "15m").
	ConfirmWindow string `mapstructure:"CONFIRM_WINDOW"`

	// SMTPHost, SMTPPort, SMTPUser, SMTPPassword configure the mailer.
	SMTPHost     string `mapstructure:"SMTP_HOST"`
	SMTPPort     int    `mapstructure:"SMTP_PORT"`
	SMTPUser     string `mapstructure:"SMTP_USER"`
	SMTPPassword string `mapstructure:"SMTP_PASSWORD"`
	// AppName appears in notification subjects and bodies.
	AppName string `mapstructure:"APP_NAME"`

	// SMSAPIKey is the API key for the SMS provider; empty disables SMS delivery.
	SMSAPIKey string `mapstructure:"SMS_API_KEY"`
	// SMSBaseURL is the SMS provider endpoint.
	SMSBaseURL string `mapstructure:"SMS_BASE_URL"`
	// SMSSender is the optional sender ID.
	SMSSender string `mapstructure:"SMS_SENDER"`

	// KafkaBrokers is a comma-separated broker list; empty disables the auth
	// event stream.
	KafkaBrokers string `mapstructure:"KAFKA_BROKERS"`
	// KafkaTopic is the topic for auth lifecycle events.
	KafkaTopic string `mapstructure:"KAFKA_TOPIC"`
	// KafkaGroupID is the consumer group ID for the worker.
	KafkaGroupID string `mapstructure:"KAFKA_GROUP_ID"`

	// SweepInterval is how often the worker deletes expired sessions and codes.
	SweepInterval string `mapstructure:"SWEEP_INTERVAL"`
}

// Load reads .env (if present), then builds and validates Config from the environment via Viper.
// Missing .env is ignored (e.g. in CI). Env vars override .env. Returns an error if required fields are invalid.
func Load() (*Config, error) {
	v := viper.New()

	v.SetConfigFile(".env")
	v.SetConfigType("env")
	_ = v.ReadInConfig() // ignore ErrConfigFileNotFound

	v.AutomaticEnv()

	// AutomaticEnv does not register keys for Unmarshal; keys without a
	// SetDefault below must be bound explicitly or env-only values are lost.
	for _, key := range []string{
		"JWT_ACCESS_SECRET", "JWT_REFRESH_SECRET",
		"SMTP_HOST", "SMTP_USER", "SMTP_PASSWORD",
		"SMS_API_KEY", "SMS_SENDER",
	} {
		_ = v.BindEnv(key)
	}

	v.SetDefault("HTTP_ADDR", ":8080")
	v.SetDefault("DATABASE_URL", "")
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("JWT_ISSUER", "social-auth")
	v.SetDefault("JWT_ACCESS_TTL", "15m")
	v.SetDefault("JWT_REFRESH_TTL", "168h") // 7d
	v.SetDefault("VERIFICATION_CODE_TTL", "15m")
	v.SetDefault("BCRYPT_COST", 12)
	v.SetDefault("REQUEST_TIMEOUT", "5s")
	v.SetDefault("CONFIRM_MAX_ATTEMPTS", 5)
	v.SetDefault("CONFIRM_WINDOW", "15m")
	v.SetDefault("SMTP_PORT", 587)
	v.SetDefault("APP_NAME", "Social Platform")
	v.SetDefault("SMS_BASE_URL", "https://www.smslocal.com/dev/bulkV2")
	v.SetDefault("KAFKA_BROKERS", "")
	v.SetDefault("KAFKA_TOPIC", "auth-events")
	v.SetDefault("KAFKA_GROUP_ID", "auth-events-worker")
	v.SetDefault("SWEEP_INTERVAL", "30m")

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, err
	}

	if cfg.HTTPAddr == "" {
		return nil, errors.New("config: HTTP_ADDR must be set")
	}
	if cfg.JWTAccessSecret == "" || cfg.JWTRefreshSecret == "" {
		return nil, errors.New("config: JWT_ACCESS_SECRET and JWT_REFRESH_SECRET must be set")
	}
	if cfg.JWTAccessSecret == cfg.JWTRefreshSecret {
		return nil, errors.New("config: JWT_ACCESS_SECRET and JWT_REFRESH_SECRET must differ")
	}

	if cfg.BcryptCost == 0 {
		cfg.BcryptCost = 12
	}
	if cfg.BcryptCost < 4 || cfg.BcryptCost > 31 {
		return nil, errors.New("config: BCRYPT_COST must be between 4 and 31")
	}

	return &cfg, nil
}

// AccessTTL parses JWTAccessTTL as a time.Duration. Returns 15m if unset or invalid.
func (c *Config) AccessTTL() time.Duration {
	return durationOr(c.JWTAccessTTL, 15*time.Minute)
}

// RefreshTTL parses JWTRefreshTTL as a time.Duration. Returns 168h if unset or invalid.
func (c *Config) RefreshTTL() time.Duration {
	return durationOr(c.JWTRefreshTTL, 168*time.Hour)
}

// CodeTTL parses VerificationCodeTTL as a time.Duration. Returns 15m if unset or invalid.
func (c *Config) CodeTTL() time.Duration {
	return durationOr(c.VerificationCodeTTL, 15*time.Minute)
}

// Timeout parses RequestTimeout as a time.Duration. Returns 5s if unset or invalid.
func (c *Config) Timeout() time.Duration {
	return durationOr(c.RequestTimeout, 5*time.Second)
}

// ThrottleWindow parses ConfirmWindow as a time.Duration. Returns 15m if unset or invalid.
func (c *Config) ThrottleWindow() time.Duration {
	return durationOr(c.ConfirmWindow, 15*time.Minute)
}

// SweepEvery parses SweepInterval as a time.Duration. Returns 30m if unset or invalid.
func (c *Config) SweepEvery() time.Duration {
	return durationOr(c.SweepInterval, 30*time.Minute)
}

// KafkaBrokersList returns broker addresses from the comma-separated config.
// An empty list means the auth event stream is disabled.
func (c *Config) KafkaBrokersList() []string {
	if c == nil || c.KafkaBrokers == "" {
		return nil
	}
	parts := strings.Split(c.KafkaBrokers, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if s := strings.TrimSpace(p); s != "" {
			out = append(out, s)
		}
	}
	return out
}

func durationOr(s string, def time.Duration) time.Duration {
	d, err := time.ParseDuration(s)
	if err != nil || d <= 0 {
		return def
	}
	return d
}
