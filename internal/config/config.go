// Package config loads server configuration from CREWPLAN_* environment
// variables.
package config

import (
	"fmt"
	"time"

	"github.com/kelseyhightower/envconfig"
)

// Config holds all configuration for the CrewPlan server.
type Config struct {
	Server    ServerConfig
	Database  DatabaseConfig
	LLM       LLMConfig
	Wizard    WizardConfig
	Telemetry TelemetryConfig
}

type ServerConfig struct {
	Port    int    `envconfig:"PORT" default:"8080"`
	Version string `envconfig:"VERSION" default:"0.4.0"`

	// APIKeys is a comma-separated list of accepted API keys. Empty disables
	// authentication (local development).
	APIKeys string `envconfig:"API_KEYS"`
}

type DatabaseConfig struct {
	// URL is a PostgreSQL connection string. Empty selects the in-memory
	// store.
	URL string `envconfig:"URL"`
}

type LLMConfig struct {
	APIKey  string `envconfig:"API_KEY"`
	APIBase string `envconfig:"API_BASE"` // empty = OpenAI
	Model   string `envconfig:"MODEL" default:"gpt-4o"`
}

type WizardConfig struct {
	ConversationTTL time.Duration `envconfig:"CONVERSATION_TTL" default:"30m"`
	SweepInterval   time.Duration `envconfig:"SWEEP_INTERVAL" default:"5m"`
	WindowWeeks     int           `envconfig:"WINDOW_WEEKS" default:"4"`
}

type TelemetryConfig struct {
	Enabled      bool   `envconfig:"ENABLED" default:"false"`
	OTLPEndpoint string `envconfig:"OTLP_ENDPOINT" default:"localhost:4317"`
	ServiceName  string `envconfig:"SERVICE_NAME" default:"crewplan"`
}

// Load reads configuration from the environment, group by group.
func Load() (*Config, error) {
	cfg := &Config{}
	groups := []struct {
		prefix string
		target any
	}{
		{"CREWPLAN_SERVER", &cfg.Server},
		{"CREWPLAN_DATABASE", &cfg.Database},
		{"CREWPLAN_LLM", &cfg.LLM},
		{"CREWPLAN_WIZARD", &cfg.Wizard},
		{"CREWPLAN_OTEL", &cfg.Telemetry},
	}
	for _, g := range groups {
		if err := envconfig.Process(g.prefix, g.target); err != nil {
			return nil, fmt.Errorf("load %s config: %w", g.prefix, err)
		}
	}
	return cfg, nil
}
