package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/notara/billing/internal/types"
	"github.com/spf13/viper"
)

type Configuration struct {
	Deployment DeploymentConfig `validate:"required"`
	Server     ServerConfig     `validate:"required"`
	Logging    LoggingConfig    `validate:"required"`
	Stripe     StripeConfig     `validate:"required"`
	Billing    BillingConfig    `validate:"required"`
	RateLimit  RateLimitConfig
	Sentry     SentryConfig
	SQLite     SQLiteConfig
}

type DeploymentConfig struct {
	Mode types.RunMode `validate:"required"`
}

type ServerConfig struct {
	Address string `validate:"required"`
}

type LoggingConfig struct {
	Level types.LogLevel `validate:"required"`
}

// StripeConfig holds the payment processor credentials and the redirect URLs
// handed to every checkout session.
type StripeConfig struct {
	SecretKey  string `mapstructure:"secret_key"`
	SuccessURL string `mapstructure:"success_url"`
	CancelURL  string `mapstructure:"cancel_url"`
}

// BillingConfig controls reconciliation behavior.
type BillingConfig struct {
	// AllowUnverifiedApply enables the trust-on-request fallback in the live
	// verifier: a plan change is recorded even when the processor could not
	// confirm an active subscription. Must stay off in any deployment
	// connected to a real payment processor.
	AllowUnverifiedApply bool `mapstructure:"allow_unverified_apply"`
	// LedgerPageSize is the page size used when scanning the payment ledger.
	LedgerPageSize int64 `mapstructure:"ledger_page_size"`
}

// RateLimitConfig is the per-call-site rate limit policy for checkout
// initiation, keyed on the client network origin.
type RateLimitConfig struct {
	CheckoutRequests int           `mapstructure:"checkout_requests"`
	CheckoutWindow   time.Duration `mapstructure:"checkout_window"`
}

type SentryConfig struct {
	Enabled     bool    `mapstructure:"enabled"`
	DSN         string  `mapstructure:"dsn"`
	Environment string  `mapstructure:"environment"`
	SampleRate  float64 `mapstructure:"sample_rate"`
}

type SQLiteConfig struct {
	Path string `mapstructure:"path"`
}

func NewConfig() (*Configuration, error) {
	v := viper.New()

	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath("./internal/config")
	v.AddConfigPath(".")
	v.AddConfigPath("./config")
	v.AddConfigPath("/etc/notara")

	// Set up environment variables support
	v.SetEnvPrefix("NOTARA")
	v.SetEnvKeyReplacer(strings.NewReplacer(
		".", "_",
		"-", "_",
	))
	v.AutomaticEnv()

	setDefaults(v)

	// Read config file if exists
	if err := v.ReadInConfig(); err != nil {
		if !errors.As(err, &viper.ConfigFileNotFoundError{}) {
			return nil, err
		}
	} else {
		fmt.Printf("Using config file: %s\n", v.ConfigFileUsed())
	}

	var config Configuration
	if err := v.Unmarshal(&config); err != nil {
		return nil, err
	}

	if err := config.Validate(); err != nil {
		return nil, err
	}

	return &config, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("deployment.mode", string(types.ModeAPI))
	v.SetDefault("server.address", ":8080")
	v.SetDefault("logging.level", string(types.LogLevelInfo))
	v.SetDefault("billing.allow_unverified_apply", false)
	v.SetDefault("billing.ledger_page_size", 100)
	v.SetDefault("ratelimit.checkout_requests", 10)
	v.SetDefault("ratelimit.checkout_window", time.Minute)
	v.SetDefault("sentry.enabled", false)
	v.SetDefault("sentry.sample_rate", 1.0)
	v.SetDefault("sqlite.path", "billing.db")
}

func (c Configuration) Validate() error {
	validate := validator.New()
	return validate.Struct(c)
}

// GetDefaultConfig returns a default configuration for local development
// This is useful for running scripts or other non-web applications
func GetDefaultConfig() *Configuration {
	return &Configuration{
		Deployment: DeploymentConfig{Mode: types.ModeLocal},
		Logging:    LoggingConfig{Level: types.LogLevelDebug},
		Billing: BillingConfig{
			AllowUnverifiedApply: true,
			LedgerPageSize:       100,
		},
		RateLimit: RateLimitConfig{
			CheckoutRequests: 10,
			CheckoutWindow:   time.Minute,
		},
	}
}

func (c SQLiteConfig) GetDSN() string {
	if c.Path == "" {
		return "billing.db"
	}
	return c.Path
}
