package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "netdash.yaml")
	if err := os.WriteFile(path, []byte(body), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.API.ListenAddr != ":5000" {
		t.Errorf("listen addr = %q, want :5000", cfg.API.ListenAddr)
	}
	if cfg.Store.Driver != DriverMemory {
		t.Errorf("driver = %q, want memory", cfg.Store.Driver)
	}
	if cfg.Monitor.Mode != ModeExec {
		t.Errorf("mode = %q, want exec in production", cfg.Monitor.Mode)
	}
	if !cfg.Alerting() {
		t.Error("alerting should default to enabled in production")
	}
	if cfg.Monitor.Interval != time.Minute {
		t.Errorf("interval = %s, want 1m", cfg.Monitor.Interval)
	}
}

func TestLoadDevelopmentDefaults(t *testing.T) {
	path := writeConfig(t, "environment: development\n")
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Monitor.Mode != ModeSimulate {
		t.Errorf("mode = %q, want simulate in development", cfg.Monitor.Mode)
	}
	if cfg.Alerting() {
		t.Error("alerting should default to disabled in development")
	}
}

func TestLoadFile(t *testing.T) {
	path := writeConfig(t, `
environment: development
api:
  listen_addr: ":8080"
monitor:
  mode: exec
  interval: 30s
  alerting_enabled: true
  rules:
    - id: offline
      name: Offline
      enabled: true
      severity: critical
      conditions:
        device_offline: true
        consecutive_failures: 2
      notification_channels: [log]
subnets:
  - name: core
    prefix: 10.0.0.0/8
`)
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.API.ListenAddr != ":8080" {
		t.Errorf("listen addr = %q", cfg.API.ListenAddr)
	}
	if cfg.Monitor.Mode != ModeExec {
		t.Errorf("explicit mode overridden: %q", cfg.Monitor.Mode)
	}
	if cfg.Monitor.Interval != 30*time.Second {
		t.Errorf("interval = %s", cfg.Monitor.Interval)
	}
	if !cfg.Alerting() {
		t.Error("explicit alerting_enabled ignored")
	}
	if len(cfg.Monitor.Rules) != 1 {
		t.Fatalf("got %d rules, want 1", len(cfg.Monitor.Rules))
	}
	r := cfg.Monitor.Rules[0]
	if r.Conditions.ConsecutiveFailures == nil || *r.Conditions.ConsecutiveFailures != 2 {
		t.Errorf("rule conditions = %+v", r.Conditions)
	}
	if len(cfg.Subnets) != 1 || cfg.Subnets[0].Prefix != "10.0.0.0/8" {
		t.Errorf("subnets = %+v", cfg.Subnets)
	}
}

func TestEnvOverrides(t *testing.T) {
	t.Setenv("NETDASH_LISTEN_ADDR", ":7000")
	t.Setenv("DATABASE_URL", "postgres://u:p@db/netdash")
	t.Setenv("NETDASH_MONITOR_MODE", "simulate")
	t.Setenv("NETDASH_WEBHOOK_URL", "http://hooks.example/notify")

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.API.ListenAddr != ":7000" {
		t.Errorf("listen addr = %q", cfg.API.ListenAddr)
	}
	if cfg.Store.Driver != DriverPostgres || cfg.Store.DatabaseURL != "postgres://u:p@db/netdash" {
		t.Errorf("store = %+v", cfg.Store)
	}
	if cfg.Monitor.Mode != ModeSimulate {
		t.Errorf("mode = %q", cfg.Monitor.Mode)
	}
	if cfg.Notifications.WebhookURL != "http://hooks.example/notify" {
		t.Errorf("webhook = %q", cfg.Notifications.WebhookURL)
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{"defaults", func(*Config) {}, ""},
		{"bad environment", func(c *Config) { c.Environment = "staging" }, "environment"},
		{"bad log level", func(c *Config) { c.Log.Level = "loud" }, "log.level"},
		{"tls half set", func(c *Config) { c.TLS.Cert = "cert.pem" }, "tls.cert"},
		{"postgres without url", func(c *Config) { c.Store.Driver = DriverPostgres }, "database_url"},
		{"unknown driver", func(c *Config) { c.Store.Driver = "sqlite" }, "store.driver"},
		{"bad mode", func(c *Config) { c.Monitor.Mode = "icmp" }, "monitor.mode"},
		{"zero interval", func(c *Config) { c.Monitor.Interval = 0 }, "monitor.interval"},
		{"bad subnet", func(c *Config) {
			c.Subnets = []SubnetConfig{{Name: "x", Prefix: "10.0.0.0/33"}}
		}, "subnets[0].prefix"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Defaults()
			cfg.resolve()
			tt.mutate(cfg)
			err := cfg.Validate()
			if tt.wantErr == "" {
				if err != nil {
					t.Fatalf("unexpected error: %v", err)
				}
				return
			}
			if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
				t.Fatalf("error = %v, want containing %q", err, tt.wantErr)
			}
		})
	}
}

func TestLoadMissingFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Fatal("expected error for missing file")
	}
}
