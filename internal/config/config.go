package config

import (
	"errors"
	"fmt"
	"log/slog"
	"net/netip"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/pobradovic08/netdash/internal/model"
)

// Environments. Development enables simulated probes and disables alerting
// unless configured otherwise.
const (
	EnvDevelopment = "development"
	EnvProduction  = "production"
)

// Monitor probe modes.
const (
	ModeSimulate = "simulate"
	ModeExec     = "exec"
)

// Store drivers.
const (
	DriverMemory   = "memory"
	DriverPostgres = "postgres"
)

// Config holds all configuration for the netdash server process.
type Config struct {
	Environment   string              `yaml:"environment"`
	Log           LogConfig           `yaml:"log"`
	API           APIConfig           `yaml:"api"`
	TLS           TLSConfig           `yaml:"tls"`
	GRPC          GRPCConfig          `yaml:"grpc"`
	RateLimit     RateLimitConfig     `yaml:"rate_limit"`
	Store         StoreConfig         `yaml:"store"`
	Monitor       MonitorConfig       `yaml:"monitor"`
	Notifications NotificationsConfig `yaml:"notifications"`
	Metrics       MetricsConfig       `yaml:"metrics"`
	Subnets       []SubnetConfig      `yaml:"subnets"`
}

type LogConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

type APIConfig struct {
	ListenAddr   string        `yaml:"listen_addr"`
	WriteTimeout time.Duration `yaml:"write_timeout"`
	ReadTimeout  time.Duration `yaml:"read_timeout"`
	StaticDir    string        `yaml:"static_dir"`
	CORSOrigin   string        `yaml:"cors_origin"`
}

type TLSConfig struct {
	Cert string `yaml:"cert"`
	Key  string `yaml:"key"`
}

// Enabled reports whether both certificate and key are configured.
func (t TLSConfig) Enabled() bool {
	return t.Cert != "" && t.Key != ""
}

type GRPCConfig struct {
	Enabled    bool   `yaml:"enabled"`
	ListenAddr string `yaml:"listen_addr"`
}

type RateLimitConfig struct {
	Enabled             bool          `yaml:"enabled"`
	RequestsPerInterval int           `yaml:"requests_per_interval"`
	Interval            time.Duration `yaml:"interval"`
	CleanupInterval     time.Duration `yaml:"cleanup_interval"`
	StaleAfter          time.Duration `yaml:"stale_after"`
	TrustedProxies      []string      `yaml:"trusted_proxies"`
}

type StoreConfig struct {
	Driver      string `yaml:"driver"`
	DatabaseURL string `yaml:"database_url"`
	Seed        bool   `yaml:"seed"`
}

type MonitorConfig struct {
	Enabled     bool          `yaml:"enabled"`
	Mode        string        `yaml:"mode"`
	Interval    time.Duration `yaml:"interval"`
	PingTimeout time.Duration `yaml:"ping_timeout"`
	PingBinary  string        `yaml:"ping_binary"`
	// AlertingEnabled defaults to true outside development.
	AlertingEnabled *bool             `yaml:"alerting_enabled"`
	DedupWindow     time.Duration     `yaml:"dedup_window"`
	Rules           []model.AlertRule `yaml:"rules"`
}

type NotificationsConfig struct {
	WebhookURL     string        `yaml:"webhook_url"`
	WebhookTimeout time.Duration `yaml:"webhook_timeout"`
}

type MetricsConfig struct {
	Enabled    bool   `yaml:"enabled"`
	ListenAddr string `yaml:"listen_addr"`
}

type SubnetConfig struct {
	Name   string `yaml:"name"`
	Prefix string `yaml:"prefix"`
}

// Load reads a configuration from a YAML file on top of Defaults and applies
// environment variable overrides. An empty path skips the file.
func Load(path string) (*Config, error) {
	cfg := Defaults()
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read config file: %w", err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config file: %w", err)
		}
	}

	applyEnvOverrides(cfg)
	cfg.resolve()
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("NETDASH_ENV"); v != "" {
		cfg.Environment = v
	}
	if v := os.Getenv("NETDASH_LISTEN_ADDR"); v != "" {
		cfg.API.ListenAddr = v
	}
	if v := os.Getenv("DATABASE_URL"); v != "" {
		cfg.Store.DatabaseURL = v
		cfg.Store.Driver = DriverPostgres
	}
	if v := os.Getenv("NETDASH_MONITOR_MODE"); v != "" {
		cfg.Monitor.Mode = v
	}
	if v := os.Getenv("NETDASH_WEBHOOK_URL"); v != "" {
		cfg.Notifications.WebhookURL = v
	}
	if v := os.Getenv("NETDASH_TLS_CERT"); v != "" {
		cfg.TLS.Cert = v
	}
	if v := os.Getenv("NETDASH_TLS_KEY"); v != "" {
		cfg.TLS.Key = v
	}
}

// resolve fills settings whose defaults depend on the environment.
func (c *Config) resolve() {
	dev := c.Environment == EnvDevelopment
	if c.Monitor.Mode == "" {
		c.Monitor.Mode = ModeExec
		if dev {
			c.Monitor.Mode = ModeSimulate
		}
	}
	if c.Monitor.AlertingEnabled == nil {
		enabled := !dev
		c.Monitor.AlertingEnabled = &enabled
	}
}

// Alerting reports whether the monitor should evaluate alert rules.
func (c *Config) Alerting() bool {
	return c.Monitor.AlertingEnabled != nil && *c.Monitor.AlertingEnabled
}

// Validate checks the configuration for values the server cannot run with.
func (c *Config) Validate() error {
	var errs []error

	switch c.Environment {
	case EnvDevelopment, EnvProduction:
	default:
		errs = append(errs, fmt.Errorf("environment must be %q or %q, got %q", EnvDevelopment, EnvProduction, c.Environment))
	}
	if _, err := c.LogLevel(); err != nil {
		errs = append(errs, err)
	}
	switch c.Log.Format {
	case "json", "text":
	default:
		errs = append(errs, fmt.Errorf("log.format must be json or text, got %q", c.Log.Format))
	}
	if c.API.ListenAddr == "" {
		errs = append(errs, errors.New("api.listen_addr is required"))
	}
	if (c.TLS.Cert == "") != (c.TLS.Key == "") {
		errs = append(errs, errors.New("tls.cert and tls.key must be set together"))
	}
	switch c.Store.Driver {
	case DriverMemory:
	case DriverPostgres:
		if c.Store.DatabaseURL == "" {
			errs = append(errs, errors.New("store.database_url is required for the postgres driver"))
		}
	default:
		errs = append(errs, fmt.Errorf("store.driver must be %q or %q, got %q", DriverMemory, DriverPostgres, c.Store.Driver))
	}
	switch c.Monitor.Mode {
	case ModeSimulate, ModeExec:
	default:
		errs = append(errs, fmt.Errorf("monitor.mode must be %q or %q, got %q", ModeSimulate, ModeExec, c.Monitor.Mode))
	}
	if c.Monitor.Interval <= 0 {
		errs = append(errs, errors.New("monitor.interval must be positive"))
	}
	if c.Monitor.PingTimeout <= 0 {
		errs = append(errs, errors.New("monitor.ping_timeout must be positive"))
	}
	if c.Monitor.DedupWindow < 0 {
		errs = append(errs, errors.New("monitor.dedup_window must not be negative"))
	}
	if c.RateLimit.Enabled {
		if c.RateLimit.RequestsPerInterval <= 0 || c.RateLimit.Interval <= 0 {
			errs = append(errs, errors.New("rate_limit.requests_per_interval and rate_limit.interval must be positive"))
		}
	}
	if c.Notifications.WebhookTimeout <= 0 {
		errs = append(errs, errors.New("notifications.webhook_timeout must be positive"))
	}
	for i, s := range c.Subnets {
		if s.Name == "" {
			errs = append(errs, fmt.Errorf("subnets[%d].name is required", i))
		}
		if _, err := netip.ParsePrefix(s.Prefix); err != nil {
			errs = append(errs, fmt.Errorf("subnets[%d].prefix: %w", i, err))
		}
	}
	return errors.Join(errs...)
}

// LogLevel parses the configured log level.
func (c *Config) LogLevel() (slog.Level, error) {
	var lvl slog.Level
	if err := lvl.UnmarshalText([]byte(strings.ToUpper(c.Log.Level))); err != nil {
		return 0, fmt.Errorf("log.level: %w", err)
	}
	return lvl, nil
}

// Defaults returns a Config with default values.
func Defaults() *Config {
	return &Config{
		Environment: EnvProduction,
		Log: LogConfig{
			Level:  "info",
			Format: "json",
		},
		API: APIConfig{
			ListenAddr:   ":5000",
			WriteTimeout: 30 * time.Second,
			ReadTimeout:  5 * time.Second,
			CORSOrigin:   "*",
		},
		GRPC: GRPCConfig{
			Enabled:    false,
			ListenAddr: ":9090",
		},
		RateLimit: RateLimitConfig{
			Enabled:             true,
			RequestsPerInterval: 30,
			Interval:            1 * time.Minute,
			CleanupInterval:     1 * time.Minute,
			StaleAfter:          5 * time.Minute,
		},
		Store: StoreConfig{
			Driver: DriverMemory,
			Seed:   true,
		},
		Monitor: MonitorConfig{
			Enabled:     true,
			Interval:    60 * time.Second,
			PingTimeout: 5 * time.Second,
			PingBinary:  "ping",
			DedupWindow: 1 * time.Hour,
		},
		Notifications: NotificationsConfig{
			WebhookTimeout: 5 * time.Second,
		},
		Metrics: MetricsConfig{
			Enabled:    true,
			ListenAddr: ":9091",
		},
	}
}
