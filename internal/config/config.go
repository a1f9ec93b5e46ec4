// Package config provides dynamic configuration management for hostdash.
// It uses Viper to load settings from files, environment variables, and CLI flags.
package config

import (
	"fmt"
	"log"
	"os"
	"strings"
	"sync/atomic"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/cast"
	"github.com/spf13/viper"
)

// demoEnv lists the variables that switch demo mode, highest priority first.
// Deployments of the dashboard historically toggle it with a bare DEMO_MODE.
var demoEnv = []string{"HOSTDASH_DEMO_MODE", "DEMO_MODE"}

const (
	overrideUnset int32 = iota
	overrideOff
	overrideOn
)

// Config holds all runtime configuration for hostdash.
type Config struct {
	// ── Server ───────────────────────────────────────────────────────────────
	ServerHost string `mapstructure:"server_host"`
	// HTTPPort: Web UI + JWT-protected JSON API
	HTTPPort int `mapstructure:"http_port"`
	// MetricsPort: Prometheus exporter + health check. 0 disables the engine.
	MetricsPort int    `mapstructure:"metrics_port"`
	DBPath      string `mapstructure:"db_path"`
	DBDriver    string `mapstructure:"db_driver"` // only "sqlite" for now

	// ── Security ──────────────────────────────────────────────────────────────
	// JWTSecret: HS256 signing key for web tokens.
	// Change this in production; the default is a placeholder.
	JWTSecret string `mapstructure:"jwt_secret"`
	// AdminUser / AdminPass: superuser ensured at startup.
	AdminUser string `mapstructure:"admin_user"`
	AdminPass string `mapstructure:"admin_pass"`

	// ── Recorder ──────────────────────────────────────────────────────────────
	HostName        string `mapstructure:"host_name"`
	CollectInterval int    `mapstructure:"collect_interval_seconds"`
	IdlePoll        int    `mapstructure:"idle_poll_seconds"`
	CPUWindowMillis int    `mapstructure:"cpu_window_ms"`

	// ── Views ─────────────────────────────────────────────────────────────────
	ChartPoints     int `mapstructure:"chart_points"`
	ProcessLimit    int `mapstructure:"process_limit"`
	ConnectionLimit int `mapstructure:"connection_limit"`
	StreamInterval  int `mapstructure:"stream_interval_seconds"`

	// ── Terminal ──────────────────────────────────────────────────────────────
	SessionTTLHours int `mapstructure:"session_ttl_hours"`
	// TerminalTimeout bounds a forwarded command. 0 keeps execution unbounded.
	TerminalTimeout int    `mapstructure:"terminal_timeout_seconds"`
	SSHHost         string `mapstructure:"terminal_ssh_host"`
	SSHUser         string `mapstructure:"terminal_ssh_user"`
	SSHPassword     string `mapstructure:"terminal_ssh_password"`
	SSHKeyPath      string `mapstructure:"terminal_ssh_key_path"`

	// demo_mode is read by request goroutines while the config watcher
	// rewrites it, so it lives outside viper.
	demoFile     atomic.Bool
	demoOverride atomic.Int32
}

// Load reads config from file (./config.yaml or ~/.hostdash/config.yaml)
// and falls back to smart defaults. Environment variables with prefix HOSTDASH_
// override file values.
func Load() (*Config, error) {
	v := viper.New()

	// --- Smart Defaults ---
	v.SetDefault("server_host", "0.0.0.0")
	v.SetDefault("http_port", 8000)
	v.SetDefault("metrics_port", 9100)
	v.SetDefault("db_path", "hostdash.db")
	v.SetDefault("db_driver", "sqlite")

	// Security defaults: MUST be overridden in production via config.yaml or env vars.
	v.SetDefault("jwt_secret", "Hd$9qL2!vR7@xT4#nK8^pW3&mZ6*cY1")
	v.SetDefault("admin_user", "admin")
	v.SetDefault("admin_pass", "admin")

	v.SetDefault("demo_mode", false)
	v.SetDefault("host_name", "Localhost")
	v.SetDefault("collect_interval_seconds", 5)
	v.SetDefault("idle_poll_seconds", 5)
	v.SetDefault("cpu_window_ms", 1000)

	v.SetDefault("chart_points", 20)
	v.SetDefault("process_limit", 10)
	v.SetDefault("connection_limit", 50)
	v.SetDefault("stream_interval_seconds", 2)

	v.SetDefault("session_ttl_hours", 24)
	v.SetDefault("terminal_timeout_seconds", 0)
	v.SetDefault("terminal_ssh_host", "")
	v.SetDefault("terminal_ssh_user", "root")
	v.SetDefault("terminal_ssh_password", "")
	v.SetDefault("terminal_ssh_key_path", "")

	// --- Config file ---
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AddConfigPath("$HOME/.hostdash")
	fileLoaded := true
	if err := v.ReadInConfig(); err != nil {
		// config file is optional; ignore "not found" errors
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("reading config file: %w", err)
		}
		fileLoaded = false
	}

	// --- Environment Variables ---
	v.SetEnvPrefix("HOSTDASH")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("unmarshaling config: %w", err)
	}
	cfg.demoFile.Store(v.GetBool("demo_mode"))

	if fileLoaded {
		// The callback runs on viper's watcher goroutine; only it touches v
		// after Load returns.
		v.OnConfigChange(func(e fsnotify.Event) {
			on := v.GetBool("demo_mode")
			cfg.demoFile.Store(on)
			log.Printf("[config] %s changed; demo_mode=%v", e.Name, on)
		})
		v.WatchConfig()
	}
	return cfg, nil
}

// DemoMode reports whether simulation mode is on. It is resolved on every call
// so env and config file changes apply without a restart. Precedence: a
// SetDemoMode override, then the environment, then the config file.
func (c *Config) DemoMode() bool {
	switch c.demoOverride.Load() {
	case overrideOn:
		return true
	case overrideOff:
		return false
	}
	for _, name := range demoEnv {
		if raw, ok := os.LookupEnv(name); ok && raw != "" {
			return cast.ToBool(raw)
		}
	}
	return c.demoFile.Load()
}

// SetDemoMode overrides the demo flag for the lifetime of the process.
func (c *Config) SetDemoMode(on bool) {
	if on {
		c.demoOverride.Store(overrideOn)
		return
	}
	c.demoOverride.Store(overrideOff)
}

// Seconds converts an integer seconds setting to a duration, using def when n <= 0.
func Seconds(n int, def time.Duration) time.Duration {
	if n <= 0 {
		return def
	}
	return time.Duration(n) * time.Second
}
