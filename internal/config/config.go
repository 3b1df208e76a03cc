package config

import (
	"time"

	"github.com/caarlos0/env/v11"
)

// Config is the process configuration, parsed from the environment.
type Config struct {
	Environment    string        `env:"ENVIRONMENT" envDefault:"development"`
	Addr           string        `env:"ADDR" envDefault:":8080"`
	DatabaseDriver string        `env:"DATABASE_DRIVER" envDefault:"sqlite"`
	DatabaseDSN    string        `env:"DATABASE_DSN" envDefault:"file:sponsord.db"`
	WebhookSecret  string        `env:"WEBHOOK_SECRET"`
	SweepInterval  time.Duration `env:"SWEEP_INTERVAL" envDefault:"24h"`
	OTLPEndpoint   string        `env:"OTEL_EXPORTER_OTLP_ENDPOINT"`
}

func Load() (Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c Config) IsProduction() bool {
	return c.Environment == "production"
}
