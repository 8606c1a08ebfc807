// Package config provides agentstatus configuration from a settings file,
// environment, and flags.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"

	"github.com/BurntSushi/toml"
)

// Config holds agentstatus configuration. Values come from defaults, then
// the TOML settings file, then env vars; the CLI applies flags last.
type Config struct {
	// Namespace is the K8s namespace elastic agent pods run in (env: NAMESPACE).
	// Empty means all namespaces.
	Namespace string `toml:"namespace"`

	// KubeConfig is the path to kubeconfig file (env: KUBECONFIG).
	// Empty means use in-cluster config, then the default loading rules.
	KubeConfig string `toml:"kubeconfig"`

	// LogLevel controls log verbosity: debug, info, warn, error (env: LOG_LEVEL).
	LogLevel string `toml:"log_level"`

	// Format is the report view format: html or markdown (env: REPORT_FORMAT).
	Format string `toml:"format"`

	// LogTailLines is how many container log lines a report includes
	// (env: LOG_TAIL_LINES). Zero leaves logs out.
	LogTailLines int64 `toml:"log_tail_lines"`

	// NatsURL is the NATS server serving status report requests (env: NATS_URL).
	NatsURL string `toml:"nats_url"`

	// NatsToken is the auth token for NATS, optional (env: NATS_TOKEN).
	NatsToken string `toml:"nats_token"`

	// NatsSubject is the request subject to answer on (env: NATS_SUBJECT).
	NatsSubject string `toml:"nats_subject"`
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		Namespace:    "default",
		LogLevel:     "info",
		Format:       "html",
		LogTailLines: 100,
		NatsURL:      "nats://localhost:4222",
		NatsSubject:  "elastic-agent.status-report",
	}
}

// Load builds the configuration from defaults, the settings file at path
// (skipped when path is empty), and the environment.
func Load(path string) (*Config, error) {
	cfg := Default()
	if path != "" {
		if err := cfg.loadFile(path); err != nil {
			return nil, err
		}
	}
	cfg.applyEnv()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) loadFile(path string) error {
	md, err := toml.DecodeFile(path, c)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return fmt.Errorf("settings file %s does not exist", path)
		}
		return fmt.Errorf("reading settings file %s: %w", path, err)
	}
	if undecoded := md.Undecoded(); len(undecoded) > 0 {
		return fmt.Errorf("settings file %s: unknown key %q", path, undecoded[0].String())
	}
	return nil
}

func (c *Config) applyEnv() {
	c.Namespace = envOr("NAMESPACE", c.Namespace)
	c.KubeConfig = envOr("KUBECONFIG", c.KubeConfig)
	c.LogLevel = envOr("LOG_LEVEL", c.LogLevel)
	c.Format = envOr("REPORT_FORMAT", c.Format)
	c.LogTailLines = envInt64Or("LOG_TAIL_LINES", c.LogTailLines)
	c.NatsURL = envOr("NATS_URL", c.NatsURL)
	c.NatsToken = envOr("NATS_TOKEN", c.NatsToken)
	c.NatsSubject = envOr("NATS_SUBJECT", c.NatsSubject)
}

// Validate rejects settings the CLI cannot run with.
func (c *Config) Validate() error {
	switch c.LogLevel {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("invalid log level %q (want debug, info, warn, or error)", c.LogLevel)
	}
	switch c.Format {
	case "html", "markdown":
	default:
		return fmt.Errorf("invalid report format %q (want html or markdown)", c.Format)
	}
	if c.LogTailLines < 0 {
		return fmt.Errorf("log tail lines must not be negative, got %d", c.LogTailLines)
	}
	return nil
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envInt64Or(key string, fallback int64) int64 {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.ParseInt(v, 10, 64); err == nil {
			return n
		}
	}
	return fallback
}
