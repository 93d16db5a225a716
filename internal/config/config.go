// Package config loads process configuration from the environment, with an
// optional .env file for local development.
package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"

	"github.com/payu-labs/payu-mcp-server/internal/payu"
)

// Config is the full process configuration. Loaded once at startup and
// read-only afterwards.
type Config struct {
	Credentials payu.Credentials

	BaseURL  string
	TokenURL string

	Port         string
	HTTPTimeout  time.Duration
	ExpiryMargin time.Duration
	Retry        payu.RetryPolicy
}

// Load reads the environment (and .env when present) and validates the
// required credentials. Missing credentials are a startup-fatal error.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil {
		logrus.WithField("component", "config").Debug("no .env file found, using system environment")
	}

	creds := payu.Credentials{
		ClientID:     os.Getenv("CLIENT_ID"),
		ClientSecret: os.Getenv("CLIENT_SECRET"),
		MerchantID:   os.Getenv("MERCHANT_ID"),
		AuthToken:    os.Getenv("AUTH_TOKEN"),
	}
	if creds.ClientID == "" || creds.ClientSecret == "" || creds.MerchantID == "" {
		return nil, &payu.Error{
			Code:    payu.ErrCodeConfig,
			Message: "CLIENT_ID, CLIENT_SECRET and MERCHANT_ID must be set",
		}
	}

	cfg := &Config{
		Credentials:  creds,
		BaseURL:      envOr("PAYU_API_BASE", payu.DefaultBaseURL),
		TokenURL:     envOr("PAYU_TOKEN_URL", payu.DefaultTokenURL),
		Port:         envOr("PORT", "8888"),
		HTTPTimeout:  envDuration("PAYU_HTTP_TIMEOUT", 30*time.Second),
		ExpiryMargin: envDuration("PAYU_TOKEN_EXPIRY_MARGIN", payu.DefaultExpiryMargin),
		Retry:        payu.DefaultRetryPolicy(),
	}

	if v := os.Getenv("PAYU_MAX_RETRIES"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			return nil, &payu.Error{
				Code:    payu.ErrCodeConfig,
				Message: fmt.Sprintf("invalid PAYU_MAX_RETRIES %q", v),
			}
		}
		cfg.Retry.MaxRetries = n
	}
	if d := envDuration("PAYU_RETRY_BACKOFF", 0); d > 0 {
		cfg.Retry.Backoff = d
	}

	return cfg, nil
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envDuration(key string, fallback time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		logrus.WithField("component", "config").Warnf("ignoring invalid %s=%q", key, v)
		return fallback
	}
	return d
}
