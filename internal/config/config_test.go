package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestApplyDefaults(t *testing.T) {
	t.Parallel()

	var cfg Config
	ApplyDefaults(&cfg)

	if cfg.Probe.Count != DefaultPingCount || cfg.Probe.MaxWorkers != DefaultMaxWorkers {
		t.Fatalf("probe defaults not set: %+v", cfg.Probe)
	}
	if cfg.Tunnel.WaitTimeout != DefaultWaitTimeout || cfg.Tunnel.PollInterval != DefaultPollInterval {
		t.Fatalf("tunnel defaults not set: %+v", cfg.Tunnel)
	}
	if len(cfg.Tunnel.ConnectArgs) != 2 || cfg.Tunnel.ConnectArgs[0] != "connect" {
		t.Fatalf("connect_args=%v", cfg.Tunnel.ConnectArgs)
	}
	if cfg.Tools.Overlay != DefaultOverlayBin || cfg.Tools.Gossip != DefaultGossipBin || cfg.Tools.Ping != DefaultPingBin {
		t.Fatalf("tools=%+v", cfg.Tools)
	}
	if err := Validate(cfg); err != nil {
		t.Fatalf("defaults should validate: %v", err)
	}
}

func TestApplyDefaults_DoesNotShareConnectArgs(t *testing.T) {
	t.Parallel()

	var cfg Config
	ApplyDefaults(&cfg)
	cfg.Tunnel.ConnectArgs[1] = "edge"
	if DefaultConnectArgs[1] != "ibrl" {
		t.Fatalf("default mutated: %v", DefaultConnectArgs)
	}
}

func TestValidate_Rejects(t *testing.T) {
	t.Parallel()

	cases := map[string]func(*Config){
		"poll beyond wait": func(c *Config) { c.Tunnel.PollInterval = c.Tunnel.WaitTimeout + time.Second },
		"negative workers": func(c *Config) { c.Probe.MaxWorkers = -1 },
		"bad log level":    func(c *Config) { c.LogLevel = "chatty" },
	}
	for name, mutate := range cases {
		var cfg Config
		ApplyDefaults(&cfg)
		mutate(&cfg)
		if err := Validate(cfg); err == nil {
			t.Fatalf("%s: expected error", name)
		}
	}
}

func TestProbeDeadline(t *testing.T) {
	t.Parallel()

	got := ProbeDeadline(ProbeConfig{Count: 2, Timeout: time.Second})
	if got != 6*time.Second {
		t.Fatalf("deadline=%s", got)
	}
	got = ProbeDeadline(ProbeConfig{Count: 2, Timeout: time.Second, Deadline: time.Second})
	if got != time.Second {
		t.Fatalf("override=%s", got)
	}
}

func TestSaveLoad_Writes0600(t *testing.T) {
	t.Parallel()

	tmp := t.TempDir()
	path := filepath.Join(tmp, "dzlatency.yaml")
	cfg := Config{Probe: ProbeConfig{MaxWorkers: 8}}
	if err := Save(path, cfg); err != nil {
		t.Fatalf("Save: %v", err)
	}
	info, err := os.Stat(path)
	if err != nil {
		t.Fatalf("Stat: %v", err)
	}
	if info.Mode().Perm() != 0o600 {
		t.Fatalf("mode=%o", info.Mode().Perm())
	}

	out, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if out.Probe.MaxWorkers != 8 {
		t.Fatalf("max_workers=%d", out.Probe.MaxWorkers)
	}
	if out.Tunnel.PollInterval != DefaultPollInterval {
		t.Fatalf("poll_interval=%s", out.Tunnel.PollInterval)
	}
}

func TestRestoreBudget(t *testing.T) {
	t.Parallel()

	if got := RestoreBudget(TunnelConfig{}); got != 2*DefaultStatusTimeout+DefaultActionTimeout+DefaultWaitTimeout {
		t.Fatalf("got=%s", got)
	}
	got := RestoreBudget(TunnelConfig{StatusTimeout: time.Second, ActionTimeout: 2 * time.Second, WaitTimeout: 10 * time.Second})
	if got != 14*time.Second {
		t.Fatalf("got=%s", got)
	}
}
