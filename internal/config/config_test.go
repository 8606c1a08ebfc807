package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestEnvOr(t *testing.T) {
	t.Run("returns env value when set", func(t *testing.T) {
		t.Setenv("TEST_CONFIG_KEY", "from-env")

		got := envOr("TEST_CONFIG_KEY", "default")
		if got != "from-env" {
			t.Errorf("envOr() = %q, want %q", got, "from-env")
		}
	})

	t.Run("returns fallback when unset", func(t *testing.T) {
		os.Unsetenv("TEST_CONFIG_MISSING")

		got := envOr("TEST_CONFIG_MISSING", "default")
		if got != "default" {
			t.Errorf("envOr() = %q, want %q", got, "default")
		}
	})
}

func TestEnvInt64Or(t *testing.T) {
	t.Run("returns parsed int from env", func(t *testing.T) {
		t.Setenv("TEST_TAIL", "250")

		got := envInt64Or("TEST_TAIL", 100)
		if got != 250 {
			t.Errorf("envInt64Or() = %d, want %d", got, 250)
		}
	})

	t.Run("returns fallback for non-numeric", func(t *testing.T) {
		t.Setenv("TEST_TAIL_BAD", "notanumber")

		got := envInt64Or("TEST_TAIL_BAD", 100)
		if got != 100 {
			t.Errorf("envInt64Or() = %d, want %d", got, 100)
		}
	})
}

// clearEnv unsets every variable Load reads for the duration of the test.
func clearEnv(t *testing.T) {
	t.Helper()
	for _, key := range []string{
		"NAMESPACE", "KUBECONFIG", "LOG_LEVEL", "REPORT_FORMAT",
		"LOG_TAIL_LINES", "NATS_URL", "NATS_TOKEN", "NATS_SUBJECT",
	} {
		t.Setenv(key, "")
	}
}

func writeSettings(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "agentstatus.toml")
	if err := os.WriteFile(path, []byte(body), 0o600); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestLoad_Defaults(t *testing.T) {
	clearEnv(t)

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}
	if *cfg != *Default() {
		t.Errorf("Load(\"\") = %+v, want defaults %+v", cfg, Default())
	}
}

func TestLoad_FileThenEnv(t *testing.T) {
	clearEnv(t)
	path := writeSettings(t, `
namespace = "gocd"
log_level = "debug"
format = "markdown"
log_tail_lines = 20
nats_subject = "gocd.status"
`)
	t.Setenv("NAMESPACE", "gocd-agents")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}
	if cfg.Namespace != "gocd-agents" {
		t.Errorf("Namespace = %q, want env to override file", cfg.Namespace)
	}
	if cfg.LogLevel != "debug" || cfg.Format != "markdown" || cfg.LogTailLines != 20 {
		t.Errorf("file values not applied: %+v", cfg)
	}
	if cfg.NatsSubject != "gocd.status" {
		t.Errorf("NatsSubject = %q, want gocd.status", cfg.NatsSubject)
	}
	if cfg.NatsURL != "nats://localhost:4222" {
		t.Errorf("NatsURL = %q, want default kept", cfg.NatsURL)
	}
}

func TestLoad_Errors(t *testing.T) {
	clearEnv(t)

	tests := []struct {
		name string
		body string
		want string
	}{
		{"unknown key", `namepsace = "gocd"`, `unknown key "namepsace"`},
		{"bad toml", `namespace = `, "reading settings file"},
		{"bad log level", `log_level = "loud"`, `invalid log level "loud"`},
		{"bad format", `format = "pdf"`, `invalid report format "pdf"`},
		{"negative tail", `log_tail_lines = -1`, "must not be negative"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Load(writeSettings(t, tt.body))
			if err == nil || !strings.Contains(err.Error(), tt.want) {
				t.Errorf("Load() error = %v, want it to mention %q", err, tt.want)
			}
		})
	}

	t.Run("missing file", func(t *testing.T) {
		_, err := Load(filepath.Join(t.TempDir(), "nope.toml"))
		if err == nil || !strings.Contains(err.Error(), "does not exist") {
			t.Errorf("Load() error = %v, want missing file error", err)
		}
	})
}
