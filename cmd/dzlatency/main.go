package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/exec"
	"os/signal"
	"syscall"
	"time"

	"github.com/sirupsen/logrus"

	"dzlatency/internal/config"
	"dzlatency/internal/execx"
	"dzlatency/internal/metrics"
	"dzlatency/internal/model"
	"dzlatency/internal/orchestrator"
	"dzlatency/internal/peers"
	"dzlatency/internal/preflight"
	"dzlatency/internal/probe"
	"dzlatency/internal/report"
	"dzlatency/internal/stunutil"
	"dzlatency/internal/tunnel"
)

const usage = `dzlatency - compare peer latency with the DoubleZero tunnel up and down

Usage:
  dzlatency (--mainnet | --testnet) [flags]

Flags:
  --no-toggle            measure the current tunnel state only
  --yes                  do not ask before toggling the tunnel
  --workers N            concurrent probes (default 32)
  --ping-count N         echo requests per peer (default 2)
  --ping-timeout D       per-echo timeout (default 1s)
  --wait-timeout D       max wait for a tunnel transition (default 3m0s)
  --poll-interval D      tunnel status poll interval (default 2s)
  --config <path>        optional YAML config
  --csv <path>           write per-peer results as CSV
  --chart <path>         write a PNG latency chart
  --log-level <level>    logrus level (default info)
`

type options struct {
	network    model.Network
	noToggle   bool
	yes        bool
	configPath string
	csvPath    string
	chartPath  string

	workers      int
	pingCount    int
	pingTimeout  time.Duration
	waitTimeout  time.Duration
	pollInterval time.Duration
	logLevel     string
}

func (o options) mode() model.Mode {
	if o.noToggle {
		return model.ModeSingleRun
	}
	return model.ModeComparison
}

var errNetworkFlag = errors.New("exactly one of --mainnet or --testnet is required")

func parseFlags(args []string, stderr io.Writer) (options, error) {
	fs := flag.NewFlagSet("dzlatency", flag.ContinueOnError)
	fs.SetOutput(stderr)
	fs.Usage = func() { fmt.Fprint(stderr, usage) }

	var opts options
	mainnet := fs.Bool("mainnet", false, "query mainnet-beta gossip")
	testnet := fs.Bool("testnet", false, "query testnet gossip")
	fs.BoolVar(&opts.noToggle, "no-toggle", false, "measure the current tunnel state only")
	fs.BoolVar(&opts.yes, "yes", false, "do not ask before toggling the tunnel")
	fs.IntVar(&opts.workers, "workers", 0, "concurrent probes")
	fs.IntVar(&opts.pingCount, "ping-count", 0, "echo requests per peer")
	fs.DurationVar(&opts.pingTimeout, "ping-timeout", 0, "per-echo timeout")
	fs.DurationVar(&opts.waitTimeout, "wait-timeout", 0, "max wait for a tunnel transition")
	fs.DurationVar(&opts.pollInterval, "poll-interval", 0, "tunnel status poll interval")
	fs.StringVar(&opts.configPath, "config", "", "optional YAML config")
	fs.StringVar(&opts.csvPath, "csv", "", "write per-peer results as CSV")
	fs.StringVar(&opts.chartPath, "chart", "", "write a PNG latency chart")
	fs.StringVar(&opts.logLevel, "log-level", "", "logrus level")
	if err := fs.Parse(args); err != nil {
		return opts, err
	}
	if fs.NArg() > 0 {
		return opts, fmt.Errorf("unexpected arguments: %v", fs.Args())
	}

	switch {
	case *mainnet == *testnet:
		return opts, errNetworkFlag
	case *mainnet:
		opts.network = model.NetworkMainnet
	default:
		opts.network = model.NetworkTestnet
	}
	return opts, nil
}

// loadConfig reads the optional config file and applies flag overrides.
func loadConfig(opts options) (config.Config, error) {
	var cfg config.Config
	if opts.configPath != "" {
		loaded, err := config.Load(opts.configPath)
		if err != nil {
			return cfg, err
		}
		cfg = loaded
	}
	config.ApplyDefaults(&cfg)

	if opts.workers > 0 {
		cfg.Probe.MaxWorkers = opts.workers
	}
	if opts.pingCount > 0 {
		cfg.Probe.Count = opts.pingCount
	}
	if opts.pingTimeout > 0 {
		cfg.Probe.Timeout = opts.pingTimeout
	}
	if opts.waitTimeout > 0 {
		cfg.Tunnel.WaitTimeout = opts.waitTimeout
	}
	if opts.pollInterval > 0 {
		cfg.Tunnel.PollInterval = opts.pollInterval
	}
	if opts.logLevel != "" {
		cfg.LogLevel = opts.logLevel
	}
	return cfg, config.Validate(cfg)
}

func newLogger(level string) *logrus.Logger {
	log := logrus.New()
	log.SetOutput(os.Stderr)
	log.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	if lvl, err := logrus.ParseLevel(level); err == nil {
		log.SetLevel(lvl)
	}
	return log
}

func main() {
	opts, err := parseFlags(os.Args[1:], os.Stderr)
	if errors.Is(err, flag.ErrHelp) {
		os.Exit(0)
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n\n%s", err, usage)
		os.Exit(2)
	}

	cfg, err := loadConfig(opts)
	if err != nil {
		fatal(err)
	}
	log := newLogger(cfg.LogLevel)

	if err := preflight.Check(exec.LookPath, cfg.Tools.Overlay, cfg.Tools.Gossip, cfg.Tools.Ping); err != nil {
		fmt.Fprintln(os.Stderr, "ERROR: Missing required tools:")
		for _, missing := range preflight.Missing(err) {
			fmt.Fprintf(os.Stderr, "  - %v\n", missing)
		}
		os.Exit(1)
	}

	ctx, cancel := signalContext()
	defer cancel()

	runner := execx.NewOSRunner()
	tunnelOpts := tunnel.OptionsFromConfig(cfg)
	tunnelOpts.Log = log
	ctl := tunnel.NewController(runner, tunnelOpts)
	pinger := probe.NewICMPPinger(runner, cfg.Tools.Ping, cfg.Probe.Count, cfg.Probe.Timeout, config.ProbeDeadline(cfg.Probe))
	source := peers.NewSource(runner, cfg.Tools.Overlay, cfg.Tools.Gossip)

	confirmer := orchestrator.Confirmer(orchestrator.AutoConfirm)
	if !opts.yes {
		confirmer = newPrompt(os.Stdin, os.Stdout)
	}
	orch := orchestrator.New(ctl, probe.NewExecutor(pinger, log), source, orchestrator.Options{
		Network:        opts.network,
		Concurrency:    cfg.Probe.MaxWorkers,
		Confirmer:      confirmer,
		RestoreTimeout: config.RestoreBudget(cfg.Tunnel),
		Log:            log,
	})

	resolver := stunutil.NewResolver(cfg.STUNServers, cfg.STUNTimeout, cfg.ExternalIPURL, log)
	fmt.Printf("External IP: %s\n", resolver.PublicIP(ctx))

	res, err := orch.Run(ctx, opts.mode())
	if err != nil {
		fatal(err)
	}
	fmt.Printf("DZ status: %s (run %s)\n", res.InitialState, res.RunID)

	rep := report.Compare(res.Connected, res.Disconnected)
	report.Render(os.Stdout, rep)

	if opts.csvPath != "" {
		if err := metrics.WriteCSVFile(opts.csvPath, rep.ExportRows(res.RunID, res.StartedAt)); err != nil {
			fatal(fmt.Errorf("write csv: %w", err))
		}
		log.WithField("path", opts.csvPath).Info("csv written")
	}
	if opts.chartPath != "" {
		err := report.WriteChartFile(opts.chartPath, rep)
		switch {
		case errors.Is(err, report.ErrNotEnoughData):
			log.Warn("chart skipped: not enough comparable peers")
		case err != nil:
			fatal(fmt.Errorf("write chart: %w", err))
		default:
			log.WithField("path", opts.chartPath).Info("chart written")
		}
	}

	if res.Degraded() {
		log.WithField("warnings", len(res.Warnings)).Warn("run completed with degraded results")
	}
	if res.Interrupted {
		os.Exit(1)
	}
}

func signalContext() (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(context.Background())
	signals := make(chan os.Signal, 1)
	signal.Notify(signals, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-signals
		cancel()
	}()
	return ctx, cancel
}

func fatal(err error) {
	fmt.Fprintln(os.Stderr, "error:", err)
	os.Exit(1)
}
