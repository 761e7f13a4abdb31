package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/sirupsen/logrus"
	"gopkg.in/yaml.v3"
)

const (
	DefaultPingCount     = 2
	DefaultPingTimeout   = 1 * time.Second
	DefaultMaxWorkers    = 32
	DefaultWaitTimeout   = 180 * time.Second
	DefaultPollInterval  = 2 * time.Second
	DefaultStatusTimeout = 12 * time.Second
	DefaultActionTimeout = 20 * time.Second
	DefaultSTUNTimeout   = 3 * time.Second
	DefaultOverlayBin    = "doublezero"
	DefaultGossipBin     = "solana"
	DefaultPingBin       = "ping"
	DefaultExternalIPURL = "https://ifconfig.me"
	DefaultLogLevel      = "info"
)

// DefaultConnectArgs is the overlay action used to bring the tunnel up.
var DefaultConnectArgs = []string{"connect", "ibrl"}

// DefaultSTUNServers are queried in order for the informational external IP.
var DefaultSTUNServers = []string{"stun.l.google.com:19302", "stun.cloudflare.com:3478"}

// Config holds every tunable of a measurement run.
type Config struct {
	Probe  ProbeConfig  `yaml:"probe"`
	Tunnel TunnelConfig `yaml:"tunnel"`
	Tools  ToolsConfig  `yaml:"tools"`

	STUNServers   []string      `yaml:"stun_servers"`
	STUNTimeout   time.Duration `yaml:"stun_timeout"`
	ExternalIPURL string        `yaml:"external_ip_url"`
	LogLevel      string        `yaml:"log_level"`
}

// ProbeConfig bounds the reachability probes.
type ProbeConfig struct {
	Count      int           `yaml:"count"`
	Timeout    time.Duration `yaml:"timeout"`
	MaxWorkers int           `yaml:"max_workers"`
	// Deadline caps one ping process. Zero derives it from Count and Timeout.
	Deadline time.Duration `yaml:"deadline"`
}

// TunnelConfig bounds tunnel actions and state polling.
type TunnelConfig struct {
	WaitTimeout   time.Duration `yaml:"wait_timeout"`
	PollInterval  time.Duration `yaml:"poll_interval"`
	StatusTimeout time.Duration `yaml:"status_timeout"`
	ActionTimeout time.Duration `yaml:"action_timeout"`
	ConnectArgs   []string      `yaml:"connect_args"`
}

// ToolsConfig names the external binaries.
type ToolsConfig struct {
	Overlay string `yaml:"overlay"`
	Gossip  string `yaml:"gossip"`
	Ping    string `yaml:"ping"`
}

// Load reads and parses a YAML config file.
func Load(path string) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, err
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("parse %s: %w", path, err)
	}

	ApplyDefaults(&cfg)
	return cfg, nil
}

// Save writes a YAML config file to disk.
func Save(path string, cfg Config) error {
	ApplyDefaults(&cfg)
	data, err := yaml.Marshal(&cfg)
	if err != nil {
		return err
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}

	return os.WriteFile(path, data, 0o600)
}

// Validate rejects values that would make a run unbounded or meaningless.
func Validate(cfg Config) error {
	if cfg.Probe.Count <= 0 {
		return fmt.Errorf("probe.count must be positive")
	}
	if cfg.Probe.Timeout <= 0 {
		return fmt.Errorf("probe.timeout must be positive")
	}
	if cfg.Probe.MaxWorkers <= 0 {
		return fmt.Errorf("probe.max_workers must be positive")
	}
	if cfg.Tunnel.WaitTimeout <= 0 {
		return fmt.Errorf("tunnel.wait_timeout must be positive")
	}
	if cfg.Tunnel.PollInterval <= 0 {
		return fmt.Errorf("tunnel.poll_interval must be positive")
	}
	if cfg.Tunnel.PollInterval > cfg.Tunnel.WaitTimeout {
		return fmt.Errorf("tunnel.poll_interval must not exceed tunnel.wait_timeout")
	}
	if len(cfg.Tunnel.ConnectArgs) == 0 {
		return fmt.Errorf("tunnel.connect_args is required")
	}
	if cfg.Tools.Overlay == "" || cfg.Tools.Gossip == "" || cfg.Tools.Ping == "" {
		return fmt.Errorf("tools.overlay, tools.gossip and tools.ping are required")
	}
	if _, err := logrus.ParseLevel(cfg.LogLevel); err != nil {
		return fmt.Errorf("log_level: %w", err)
	}
	return nil
}

// ApplyDefaults fills in default values when empty.
func ApplyDefaults(cfg *Config) {
	if cfg.Probe.Count == 0 {
		cfg.Probe.Count = DefaultPingCount
	}
	if cfg.Probe.Timeout == 0 {
		cfg.Probe.Timeout = DefaultPingTimeout
	}
	if cfg.Probe.MaxWorkers == 0 {
		cfg.Probe.MaxWorkers = DefaultMaxWorkers
	}

	if cfg.Tunnel.WaitTimeout == 0 {
		cfg.Tunnel.WaitTimeout = DefaultWaitTimeout
	}
	if cfg.Tunnel.PollInterval == 0 {
		cfg.Tunnel.PollInterval = DefaultPollInterval
	}
	if cfg.Tunnel.StatusTimeout == 0 {
		cfg.Tunnel.StatusTimeout = DefaultStatusTimeout
	}
	if cfg.Tunnel.ActionTimeout == 0 {
		cfg.Tunnel.ActionTimeout = DefaultActionTimeout
	}
	if len(cfg.Tunnel.ConnectArgs) == 0 {
		cfg.Tunnel.ConnectArgs = append([]string(nil), DefaultConnectArgs...)
	}

	if cfg.Tools.Overlay == "" {
		cfg.Tools.Overlay = DefaultOverlayBin
	}
	if cfg.Tools.Gossip == "" {
		cfg.Tools.Gossip = DefaultGossipBin
	}
	if cfg.Tools.Ping == "" {
		cfg.Tools.Ping = DefaultPingBin
	}

	if cfg.STUNServers == nil {
		cfg.STUNServers = append([]string(nil), DefaultSTUNServers...)
	}
	if cfg.STUNTimeout == 0 {
		cfg.STUNTimeout = DefaultSTUNTimeout
	}
	if cfg.ExternalIPURL == "" {
		cfg.ExternalIPURL = DefaultExternalIPURL
	}
	if cfg.LogLevel == "" {
		cfg.LogLevel = DefaultLogLevel
	}
}

// ProbeDeadline is the hard cap on one ping process: every echo may take the
// per-echo timeout plus a second, with two seconds of slack for process start.
func ProbeDeadline(p ProbeConfig) time.Duration {
	if p.Deadline > 0 {
		return p.Deadline
	}
	return time.Duration(p.Count)*(p.Timeout+time.Second) + 2*time.Second
}

// RestoreBudget bounds the closing transition back to the pre-run state: one
// status check, one action, the full wait budget and a final status read.
func RestoreBudget(t TunnelConfig) time.Duration {
	status := t.StatusTimeout
	if status <= 0 {
		status = DefaultStatusTimeout
	}
	action := t.ActionTimeout
	if action <= 0 {
		action = DefaultActionTimeout
	}
	wait := t.WaitTimeout
	if wait <= 0 {
		wait = DefaultWaitTimeout
	}
	return 2*status + action + wait
}
