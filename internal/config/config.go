package config

import (
	"flag"
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds all runtime configuration for the dispatchgw server.
// Precedence: CLI flags > env vars > defaults.
type Config struct {
	DataDir     string
	HTTPPort    int
	LogLevel    string
	LogFormat   string // log output format: "text" or "json"
	DatabaseURL string // Postgres DSN; empty means embedded SQLite in DataDir

	// Provider (Twilio) credentials.
	AccountSID  string
	AuthToken   string
	APIKey      string
	APISecret   string
	TwiMLAppSID string

	// Routing.
	OperatorNumber     string // the gateway's public provider number, also the outbound caller ID
	OperatorIdentity   string // client identity the operator softphone registers as
	BusinessHoursStart int    // local hour, inclusive
	BusinessHoursEnd   int    // local hour, exclusive
	ClosedMessage      string
	FallbackMessage    string

	// Background work.
	SyncInterval    time.Duration
	SweepInterval   time.Duration
	RetentionDays   int
	ProviderTimeout time.Duration

	// Webhook signature validation. The public base URL is needed to
	// reconstruct the signed webhook URL behind a reverse proxy.
	PublicBaseURL     string
	ValidateSignature bool
}

// defaults
const (
	defaultDataDir            = "./data"
	defaultHTTPPort           = 8080
	defaultLogLevel           = "info"
	defaultLogFormat          = "text"
	defaultOperatorIdentity   = "operator"
	defaultBusinessHoursStart = 9
	defaultBusinessHoursEnd   = 17
	defaultSyncInterval       = time.Minute
	defaultSweepInterval      = time.Hour
	defaultRetentionDays      = 365
	defaultProviderTimeout    = 15 * time.Second
)

// defaultClosedMessage plays when the office is closed and no operator
// client is connected, and when a webhook arrives with no destination.
const defaultClosedMessage = "Thank you for calling. Our office is currently closed. Please call back during business hours."

// defaultFallbackMessage plays when the connect attempt to the operator
// client times out.
const defaultFallbackMessage = "Thank you for calling. One of our representatives will call you back soon."

// envPrefix is the prefix for all dispatchgw environment variables.
const envPrefix = "DISPATCHGW_"

// Load parses configuration from CLI flags and environment variables.
// Precedence: CLI flags > env vars > defaults.
func Load() (*Config, error) {
	cfg := &Config{}

	fs := flag.NewFlagSet("dispatchgw", flag.ContinueOnError)

	fs.StringVar(&cfg.DataDir, "data-dir", defaultDataDir, "data directory for the embedded database")
	fs.IntVar(&cfg.HTTPPort, "http-port", defaultHTTPPort, "HTTP server listen port")
	fs.StringVar(&cfg.LogLevel, "log-level", defaultLogLevel, "log level (debug, info, warn, error)")
	fs.StringVar(&cfg.LogFormat, "log-format", defaultLogFormat, "log output format (text, json)")
	fs.StringVar(&cfg.DatabaseURL, "database-url", "", "Postgres DSN for log storage (empty = embedded SQLite)")
	fs.StringVar(&cfg.AccountSID, "account-sid", "", "provider account SID")
	fs.StringVar(&cfg.AuthToken, "auth-token", "", "provider auth token")
	fs.StringVar(&cfg.APIKey, "api-key", "", "provider API key for access token minting")
	fs.StringVar(&cfg.APISecret, "api-secret", "", "provider API secret for access token minting")
	fs.StringVar(&cfg.TwiMLAppSID, "twiml-app-sid", "", "provider TwiML application SID for outgoing call grants")
	fs.StringVar(&cfg.OperatorNumber, "operator-number", "", "the gateway's public phone number (E.164)")
	fs.StringVar(&cfg.OperatorIdentity, "operator-identity", defaultOperatorIdentity, "client identity the operator registers as")
	fs.IntVar(&cfg.BusinessHoursStart, "business-hours-start", defaultBusinessHoursStart, "local hour the office opens (inclusive)")
	fs.IntVar(&cfg.BusinessHoursEnd, "business-hours-end", defaultBusinessHoursEnd, "local hour the office closes (exclusive)")
	fs.StringVar(&cfg.ClosedMessage, "closed-message", defaultClosedMessage, "spoken message when the office is closed")
	fs.StringVar(&cfg.FallbackMessage, "fallback-message", defaultFallbackMessage, "spoken message when the operator does not answer")
	fs.DurationVar(&cfg.SyncInterval, "sync-interval", defaultSyncInterval, "interval between provider log sync passes")
	fs.DurationVar(&cfg.SweepInterval, "sweep-interval", defaultSweepInterval, "interval between retention sweeps")
	fs.IntVar(&cfg.RetentionDays, "retention-days", defaultRetentionDays, "days to keep call and message logs")
	fs.DurationVar(&cfg.ProviderTimeout, "provider-timeout", defaultProviderTimeout, "timeout for provider API requests")
	fs.StringVar(&cfg.PublicBaseURL, "public-base-url", "", "externally visible base URL for webhook signature validation")
	fs.BoolVar(&cfg.ValidateSignature, "validate-signature", false, "validate provider webhook signatures")

	if err := fs.Parse(os.Args[1:]); err != nil {
		return nil, fmt.Errorf("parsing flags: %w", err)
	}

	// Apply env var overrides for any flags not explicitly set on the
	// command line. CLI flags take precedence over env vars.
	applyEnvOverrides(fs, cfg)

	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return cfg, nil
}

// applyEnvOverrides checks environment variables for any flag that was not
// explicitly provided on the command line. This preserves the precedence:
// CLI flags > env vars > defaults.
func applyEnvOverrides(fs *flag.FlagSet, cfg *Config) {
	// Track which flags were explicitly set via CLI.
	set := make(map[string]bool)
	fs.Visit(func(f *flag.Flag) {
		set[f.Name] = true
	})

	// Map of flag name to env var name.
	envMap := map[string]string{
		"data-dir":             envPrefix + "DATA_DIR",
		"http-port":            envPrefix + "HTTP_PORT",
		"log-level":            envPrefix + "LOG_LEVEL",
		"log-format":           envPrefix + "LOG_FORMAT",
		"database-url":         envPrefix + "DATABASE_URL",
		"account-sid":          envPrefix + "ACCOUNT_SID",
		"auth-token":           envPrefix + "AUTH_TOKEN",
		"api-key":              envPrefix + "API_KEY",
		"api-secret":           envPrefix + "API_SECRET",
		"twiml-app-sid":        envPrefix + "TWIML_APP_SID",
		"operator-number":      envPrefix + "OPERATOR_NUMBER",
		"operator-identity":    envPrefix + "OPERATOR_IDENTITY",
		"business-hours-start": envPrefix + "BUSINESS_HOURS_START",
		"business-hours-end":   envPrefix + "BUSINESS_HOURS_END",
		"closed-message":       envPrefix + "CLOSED_MESSAGE",
		"fallback-message":     envPrefix + "FALLBACK_MESSAGE",
		"sync-interval":        envPrefix + "SYNC_INTERVAL",
		"sweep-interval":       envPrefix + "SWEEP_INTERVAL",
		"retention-days":       envPrefix + "RETENTION_DAYS",
		"provider-timeout":     envPrefix + "PROVIDER_TIMEOUT",
		"public-base-url":      envPrefix + "PUBLIC_BASE_URL",
		"validate-signature":   envPrefix + "VALIDATE_SIGNATURE",
	}

	for flagName, envVar := range envMap {
		if set[flagName] {
			continue
		}
		val, ok := os.LookupEnv(envVar)
		if !ok || val == "" {
			continue
		}
		switch flagName {
		case "data-dir":
			cfg.DataDir = val
		case "http-port":
			if v, err := strconv.Atoi(val); err == nil {
				cfg.HTTPPort = v
			}
		case "log-level":
			cfg.LogLevel = val
		case "log-format":
			cfg.LogFormat = val
		case "database-url":
			cfg.DatabaseURL = val
		case "account-sid":
			cfg.AccountSID = val
		case "auth-token":
			cfg.AuthToken = val
		case "api-key":
			cfg.APIKey = val
		case "api-secret":
			cfg.APISecret = val
		case "twiml-app-sid":
			cfg.TwiMLAppSID = val
		case "operator-number":
			cfg.OperatorNumber = val
		case "operator-identity":
			cfg.OperatorIdentity = val
		case "business-hours-start":
			if v, err := strconv.Atoi(val); err == nil {
				cfg.BusinessHoursStart = v
			}
		case "business-hours-end":
			if v, err := strconv.Atoi(val); err == nil {
				cfg.BusinessHoursEnd = v
			}
		case "closed-message":
			cfg.ClosedMessage = val
		case "fallback-message":
			cfg.FallbackMessage = val
		case "sync-interval":
			if v, err := time.ParseDuration(val); err == nil {
				cfg.SyncInterval = v
			}
		case "sweep-interval":
			if v, err := time.ParseDuration(val); err == nil {
				cfg.SweepInterval = v
			}
		case "retention-days":
			if v, err := strconv.Atoi(val); err == nil {
				cfg.RetentionDays = v
			}
		case "provider-timeout":
			if v, err := time.ParseDuration(val); err == nil {
				cfg.ProviderTimeout = v
			}
		case "public-base-url":
			cfg.PublicBaseURL = val
		case "validate-signature":
			if v, err := strconv.ParseBool(val); err == nil {
				cfg.ValidateSignature = v
			}
		}
	}
}

// validate checks that the config values are sane. Missing routing config
// is fatal here so the process refuses to start rather than route calls
// incorrectly.
func (c *Config) validate() error {
	if c.HTTPPort < 1 || c.HTTPPort > 65535 {
		return fmt.Errorf("http-port must be between 1 and 65535, got %d", c.HTTPPort)
	}
	if c.OperatorNumber == "" {
		return fmt.Errorf("operator-number is required")
	}
	if c.OperatorIdentity == "" {
		return fmt.Errorf("operator-identity is required")
	}
	if c.AccountSID == "" {
		return fmt.Errorf("account-sid is required")
	}
	if c.AuthToken == "" {
		return fmt.Errorf("auth-token is required")
	}
	if c.BusinessHoursStart < 0 || c.BusinessHoursStart > 23 {
		return fmt.Errorf("business-hours-start must be between 0 and 23, got %d", c.BusinessHoursStart)
	}
	if c.BusinessHoursEnd < 1 || c.BusinessHoursEnd > 24 {
		return fmt.Errorf("business-hours-end must be between 1 and 24, got %d", c.BusinessHoursEnd)
	}
	if c.BusinessHoursEnd <= c.BusinessHoursStart {
		return fmt.Errorf("business-hours-end (%d) must be after business-hours-start (%d)",
			c.BusinessHoursEnd, c.BusinessHoursStart)
	}
	if c.SyncInterval < time.Second {
		return fmt.Errorf("sync-interval must be at least 1s, got %s", c.SyncInterval)
	}
	if c.RetentionDays < 1 {
		return fmt.Errorf("retention-days must be at least 1, got %d", c.RetentionDays)
	}
	if c.ValidateSignature && c.PublicBaseURL == "" {
		return fmt.Errorf("public-base-url is required when validate-signature is enabled")
	}

	validLevels := map[string]bool{"debug": true, "info": true, "warn": true, "error": true}
	if !validLevels[strings.ToLower(c.LogLevel)] {
		return fmt.Errorf("log-level must be one of debug, info, warn, error; got %q", c.LogLevel)
	}
	c.LogLevel = strings.ToLower(c.LogLevel)

	validFormats := map[string]bool{"text": true, "json": true}
	if !validFormats[strings.ToLower(c.LogFormat)] {
		return fmt.Errorf("log-format must be one of text, json; got %q", c.LogFormat)
	}
	c.LogFormat = strings.ToLower(c.LogFormat)

	return nil
}

// RetentionHorizon returns the retention window as a duration.
func (c *Config) RetentionHorizon() time.Duration {
	return time.Duration(c.RetentionDays) * 24 * time.Hour
}

// SlogHandler returns a slog.Handler configured with the appropriate format
// (text or json) and log level.
func (c *Config) SlogHandler(w *os.File) slog.Handler {
	opts := &slog.HandlerOptions{Level: c.SlogLevel()}
	if c.LogFormat == "json" {
		return slog.NewJSONHandler(w, opts)
	}
	return slog.NewTextHandler(w, opts)
}

// SlogLevel returns the slog.Level corresponding to the configured log level.
func (c *Config) SlogLevel() slog.Level {
	switch c.LogLevel {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
