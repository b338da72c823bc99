package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestLoad_ValidConfig(t *testing.T) {
	t.Setenv("TEST_ADZUNA_KEY", "secret-key")
	path := writeConfig(t, `
server:
  addr: ":9090"
store:
  driver: sqlite
  path: /tmp/jobs.db
resilience:
  max_retries: 0
  base_delay: 200ms
  failure_threshold: 3
  cool_down: 1m
rate_limit:
  min_delay: 2s
  overrides:
    Greenhouse: 5s
cache:
  redis_url: redis://localhost:6379/0
  ttl: 10m
aggregation:
  concurrency: 2
reload_interval: 30s
providers:
  - type: adzuna
    app_id: abc
    app_key: ${TEST_ADZUNA_KEY}
    country: de
  - type: greenhouse
    board_token: acme
    company: Acme
    enabled: false
  - name: local
    type: mock
`)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Server.Addr != ":9090" || cfg.Server.ShutdownTimeout != defaultShutdownTimeout {
		t.Errorf("Server = %+v", cfg.Server)
	}
	if cfg.Store.Path != "/tmp/jobs.db" {
		t.Errorf("Store = %+v", cfg.Store)
	}
	if cfg.Resilience.MaxRetries != 0 || cfg.Resilience.BaseDelay != 200*time.Millisecond ||
		cfg.Resilience.FailureThreshold != 3 || cfg.Resilience.CoolDown != time.Minute {
		t.Errorf("Resilience = %+v", cfg.Resilience)
	}
	if got := cfg.RateLimit.MinDelayFor("greenhouse"); got != 5*time.Second {
		t.Errorf("MinDelayFor(greenhouse) = %v, want 5s", got)
	}
	if got := cfg.RateLimit.MinDelayFor("adzuna"); got != 2*time.Second {
		t.Errorf("MinDelayFor(adzuna) = %v, want 2s", got)
	}
	if cfg.Cache.TTL != 10*time.Minute || cfg.Aggregation.Concurrency != 2 || cfg.ReloadInterval != 30*time.Second {
		t.Errorf("cache/aggregation/reload = %+v %+v %v", cfg.Cache, cfg.Aggregation, cfg.ReloadInterval)
	}
	if cfg.Notification.Type != "log" {
		t.Errorf("Notification.Type = %q, want log", cfg.Notification.Type)
	}

	if len(cfg.Providers) != 3 {
		t.Fatalf("Providers = %+v", cfg.Providers)
	}
	adz := cfg.Providers[0]
	if adz.Name != "adzuna" || adz.AppKey != "secret-key" || !adz.Enabled {
		t.Errorf("adzuna = %+v", adz)
	}
	if gh := cfg.Providers[1]; gh.Name != "greenhouse:acme" || gh.Enabled {
		t.Errorf("greenhouse = %+v", gh)
	}
	if cfg.Providers[2].Name != "local" {
		t.Errorf("mock name = %q", cfg.Providers[2].Name)
	}

	want := map[string]bool{"adzuna": true, "greenhouse:acme": false, "local": true}
	for name, on := range cfg.EnabledByName() {
		if want[name] != on {
			t.Errorf("EnabledByName[%s] = %v", name, on)
		}
	}
}

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load(writeConfig(t, "providers:\n  - type: mock\n"))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Server.Addr != defaultAddr || cfg.Store.Driver != "sqlite" || cfg.Store.Path != defaultSQLitePath {
		t.Errorf("defaults not applied: %+v %+v", cfg.Server, cfg.Store)
	}
	if cfg.Resilience.MaxRetries != defaultMaxRetries || cfg.Resilience.FailureThreshold != defaultThreshold ||
		cfg.Resilience.CoolDown != defaultCoolDown || cfg.Resilience.RequestTimeout != defaultRequestTimeout ||
		cfg.Resilience.MaxDelay != defaultMaxDelay {
		t.Errorf("resilience defaults not applied: %+v", cfg.Resilience)
	}
	if cfg.RateLimit.MinDelay != defaultMinDelay || cfg.ReloadInterval != 0 {
		t.Errorf("rate limit / reload defaults: %v %v", cfg.RateLimit.MinDelay, cfg.ReloadInterval)
	}
}

func TestLoad_MissingFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "nonexistent.yaml")); err == nil {
		t.Fatal("Load: expected error for missing file")
	}
}

func TestLoad_InvalidYAML(t *testing.T) {
	if _, err := Load(writeConfig(t, "providers: [broken")); err == nil {
		t.Fatal("Load: expected error for invalid YAML")
	}
}

func TestLoad_Invalid(t *testing.T) {
	tests := []struct {
		name    string
		content string
		wantErr string
	}{
		{"no providers", "store:\n  driver: memory\n", "at least one provider"},
		{"bad duration", "resilience:\n  cool_down: soon\nproviders:\n  - type: mock\n", "resilience.cool_down"},
		{"unknown type", "providers:\n  - type: indeed\n", "unknown type"},
		{"adzuna without creds", "providers:\n  - type: adzuna\n", "app_id and app_key"},
		{"board without token", "providers:\n  - type: lever\n", "board_token"},
		{"duplicate names", "providers:\n  - type: mock\n  - type: mock\n", "duplicate name"},
		{"postgres without dsn", "store:\n  driver: postgres\nproviders:\n  - type: mock\n", "store.dsn"},
		{"unknown driver", "store:\n  driver: mongo\nproviders:\n  - type: mock\n", "store.driver"},
		{"slack without webhook", "notification:\n  type: slack\nproviders:\n  - type: mock\n", "webhook_url is required"},
		{"slack bad webhook", "notification:\n  type: slack\n  webhook_url: https://example.com/x\nproviders:\n  - type: mock\n", "hooks.slack.com"},
		{"amqp without url", "notification:\n  type: amqp\nproviders:\n  - type: mock\n", "amqp_url"},
		{"negative retries", "resilience:\n  max_retries: -1\nproviders:\n  - type: mock\n", "max_retries"},
		{"tiny reload", "reload_interval: 10ms\nproviders:\n  - type: mock\n", "reload_interval"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			_, err := Load(writeConfig(t, tc.content))
			if err == nil {
				t.Fatalf("expected error containing %q", tc.wantErr)
			}
			if !strings.Contains(err.Error(), tc.wantErr) {
				t.Errorf("error = %q, want it to contain %q", err, tc.wantErr)
			}
		})
	}
}

func TestResolvePath(t *testing.T) {
	t.Setenv(EnvPath, "")
	if got := ResolvePath(""); got != "config.yaml" {
		t.Errorf("ResolvePath(\"\") = %q", got)
	}
	t.Setenv(EnvPath, "/etc/jobsight.yaml")
	if got := ResolvePath(""); got != "/etc/jobsight.yaml" {
		t.Errorf("env fallback = %q", got)
	}
	if got := ResolvePath("custom.yaml"); got != "custom.yaml" {
		t.Errorf("flag = %q", got)
	}
}
