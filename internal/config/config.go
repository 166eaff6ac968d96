// Package config provides application configuration management.
//
// Configuration is loaded from environment variables, once, at process
// start. Handlers never read the environment at call time — they receive
// this struct (or the fields they need) by injection, which keeps webhook
// verification deterministic in tests: construct a Config with a fake
// secret and you're done.
package config

import (
	"fmt"
	"time"

	"github.com/caarlos0/env/v10"
)

// Config holds all application configuration.
//
// The two webhook secrets are marked `required`: a webhook endpoint that
// starts without its secret would either reject everything or — far worse —
// skip verification. Missing secrets are a fatal configuration error that
// prevents the process from accepting any traffic at all.
type Config struct {
	Port   int    `env:"PORT" envDefault:"8080"`
	DBPath string `env:"DB_PATH" envDefault:"data/codecraft.db"`

	// Billing provider webhook: hex HMAC-SHA256 over the raw body,
	// presented in the X-Signature header.
	BillingWebhookSecret string `env:"BILLING_WEBHOOK_SECRET,required"`

	// Identity provider webhook: svix-signed (svix-id / svix-timestamp /
	// svix-signature headers), secret in the provider's whsec_ format.
	IdentityWebhookSecret string `env:"IDENTITY_WEBHOOK_SECRET,required"`

	// HS256 secret shared with the identity provider for verifying the
	// session tokens it issues to signed-in users.
	AuthSecret string `env:"AUTH_SECRET,required"`

	// Remote code-execution service. The default is the public Piston
	// instance the web client also talks to.
	PistonURL     string        `env:"PISTON_URL" envDefault:"https://emkc.org"`
	PistonTimeout time.Duration `env:"PISTON_TIMEOUT" envDefault:"30s"`

	ReadTimeout     time.Duration `env:"READ_TIMEOUT" envDefault:"15s"`
	WriteTimeout    time.Duration `env:"WRITE_TIMEOUT" envDefault:"60s"`
	ShutdownTimeout time.Duration `env:"SHUTDOWN_TIMEOUT" envDefault:"30s"`

	LogLevel string `env:"LOG_LEVEL" envDefault:"info"`
}

// Load reads configuration from the environment.
// Returns an error if a required variable is missing or a value fails to
// parse — the caller (main) treats any error here as fatal.
func Load() (*Config, error) {
	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("config: parsing environment: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks constraints that tag-level parsing can't express.
func (c *Config) Validate() error {
	if c.Port <= 0 || c.Port > 65535 {
		return fmt.Errorf("config: PORT must be between 1 and 65535, got %d", c.Port)
	}
	if len(c.AuthSecret) < 16 {
		return fmt.Errorf("config: AUTH_SECRET must be at least 16 characters")
	}
	return nil
}
