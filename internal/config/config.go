package config

import (
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/rs/zerolog/log"
)

type Config struct {
	Port        int    `env:"PORT" envDefault:"8080"`
	DatabaseURL string `env:"DATABASE_URL,required"`
	RedisURL    string `env:"REDIS_URL"`

	// AES-256-GCM key (64 hex chars) protecting creator API keys at rest.
	EncryptionKey string `env:"ENCRYPTION_KEY"`

	// Platform-wide upstream API key. Worker runs fall back to it when an
	// agent has no creator-supplied key; the proxy never uses it.
	PlatformAPIKey string `env:"PLATFORM_API_KEY"`

	UpstreamURL string `env:"UPSTREAM_URL" envDefault:"https://api.anthropic.com/v1/messages"`

	PlatformFeeBps int `env:"PLATFORM_FEE_BPS" envDefault:"1000"`

	WorkerPollSeconds int `env:"WORKER_POLL_SECONDS" envDefault:"60"`
	WorkerBatchSize   int `env:"WORKER_BATCH_SIZE" envDefault:"10"`

	SMTPHost   string `env:"SMTP_HOST"`
	SMTPPort   int    `env:"SMTP_PORT" envDefault:"587"`
	SMTPUser   string `env:"SMTP_USERNAME"`
	SMTPPass   string `env:"SMTP_PASSWORD"`
	SMTPSender string `env:"SMTP_SENDER"`

	LogLevel string `env:"LOG_LEVEL" envDefault:"info"`
}

func (c *Config) Addr() string {
	return fmt.Sprintf(":%d", c.Port)
}

func (c *Config) WorkerPollInterval() time.Duration {
	return time.Duration(c.WorkerPollSeconds) * time.Second
}

func (c *Config) Validate(isProduction bool) error {
	if c.PlatformFeeBps < 0 || c.PlatformFeeBps > 10000 {
		return fmt.Errorf("PLATFORM_FEE_BPS must be between 0 and 10000, got %d", c.PlatformFeeBps)
	}

	if isProduction {
		if c.EncryptionKey == "" {
			return fmt.Errorf("ENCRYPTION_KEY is required in production (generate with: openssl rand -hex 32)")
		}
		if c.RedisURL == "" {
			log.Warn().Msg("REDIS_URL is empty in production: proxy rate limiting disabled")
		}
		if c.SMTPHost == "" {
			log.Warn().Msg("SMTP_HOST is empty in production: email notifications disabled")
		}
	}

	return nil
}

func Load() (*Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	return &cfg, nil
}
