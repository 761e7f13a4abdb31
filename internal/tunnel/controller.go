package tunnel

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/sirupsen/logrus"

	"dzlatency/internal/config"
	"dzlatency/internal/execx"
	"dzlatency/internal/model"
)

// ErrTransitionFailed is wrapped by every *TransitionError.
var ErrTransitionFailed = errors.New("tunnel transition not confirmed")

// TransitionError reports a transition whose target state was never observed.
type TransitionError struct {
	Target model.TunnelState
	// Last is the last status seen before giving up.
	Last   string
	Waited time.Duration
	Cause  error
}

func (e *TransitionError) Error() string {
	msg := fmt.Sprintf("tunnel did not reach %q within %s (last seen status: %s)", e.Target, e.Waited, e.Last)
	if e.Cause != nil {
		msg += ": " + e.Cause.Error()
	}
	return msg
}

func (e *TransitionError) Unwrap() error { return ErrTransitionFailed }

// Options configures a Controller. Zero durations fall back to config defaults.
type Options struct {
	Bin           string
	ConnectArgs   []string
	WaitTimeout   time.Duration
	PollInterval  time.Duration
	StatusTimeout time.Duration
	ActionTimeout time.Duration
	Clock         clock.Clock
	Log           logrus.FieldLogger
}

// OptionsFromConfig builds controller options from a run config.
func OptionsFromConfig(cfg config.Config) Options {
	return Options{
		Bin:           cfg.Tools.Overlay,
		ConnectArgs:   cfg.Tunnel.ConnectArgs,
		WaitTimeout:   cfg.Tunnel.WaitTimeout,
		PollInterval:  cfg.Tunnel.PollInterval,
		StatusTimeout: cfg.Tunnel.StatusTimeout,
		ActionTimeout: cfg.Tunnel.ActionTimeout,
	}
}

// Controller is the only component that changes the tunnel state. Transitions
// are serialized; at most one is in flight at a time.
type Controller struct {
	r     execx.Runner
	opts  Options
	clock clock.Clock
	log   logrus.FieldLogger

	mu sync.Mutex

	phaseMu sync.Mutex
	phase   model.Phase
}

func NewController(r execx.Runner, opts Options) *Controller {
	if r == nil {
		r = execx.NewOSRunner()
	}
	if opts.Bin == "" {
		opts.Bin = config.DefaultOverlayBin
	}
	if len(opts.ConnectArgs) == 0 {
		opts.ConnectArgs = config.DefaultConnectArgs
	}
	if opts.WaitTimeout <= 0 {
		opts.WaitTimeout = config.DefaultWaitTimeout
	}
	if opts.PollInterval <= 0 {
		opts.PollInterval = config.DefaultPollInterval
	}
	if opts.StatusTimeout <= 0 {
		opts.StatusTimeout = config.DefaultStatusTimeout
	}
	if opts.ActionTimeout <= 0 {
		opts.ActionTimeout = config.DefaultActionTimeout
	}
	c := &Controller{r: r, opts: opts, clock: opts.Clock, log: opts.Log}
	if c.clock == nil {
		c.clock = clock.New()
	}
	if c.log == nil {
		c.log = logrus.StandardLogger()
	}
	return c
}

// Phase returns the controller's view of the tunnel, including in-flight transitions.
func (c *Controller) Phase() model.Phase {
	c.phaseMu.Lock()
	defer c.phaseMu.Unlock()
	return c.phase
}

func (c *Controller) setPhase(p model.Phase) {
	c.phaseMu.Lock()
	c.phase = p
	c.phaseMu.Unlock()
}

// State queries the status tool. Any failure to run or parse it is StateUnknown.
func (c *Controller) State(ctx context.Context) model.TunnelState {
	st, _ := c.status(ctx)
	return st
}

func (c *Controller) status(ctx context.Context) (model.TunnelState, string) {
	var res execx.Result
	err := execx.WithTimeout(ctx, c.opts.StatusTimeout, func(ctx context.Context) error {
		var err error
		res, err = c.r.Exec(ctx, c.opts.Bin, "status")
		return err
	})
	if err != nil {
		c.log.WithError(err).Debug("tunnel status query failed")
		return model.StateUnknown, "unknown"
	}
	// The table is printed even when the tool exits non-zero.
	if res.ExitCode != 0 {
		c.log.WithFields(logrus.Fields{
			"exit_code": res.ExitCode,
			"stderr":    strings.TrimSpace(res.Stderr),
		}).Debug("tunnel status exited non-zero")
	}
	return ParseStatus(res.Stdout), StatusText(res.Stdout)
}

// TransitionTo drives the tunnel to target (StateUp or StateDown). The action
// is issued once, then status is polled every PollInterval for at most
// WaitTimeout. It returns nil when the tunnel already is, or becomes, target.
func (c *Controller) TransitionTo(ctx context.Context, target model.TunnelState) error {
	if target != model.StateUp && target != model.StateDown {
		return fmt.Errorf("invalid transition target %q", target)
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	log := c.log.WithField("target", target.String())
	if st, _ := c.status(ctx); st == target {
		c.setPhase(settledPhase(target))
		log.Debug("tunnel already in target state")
		return nil
	}

	c.setPhase(transitionalPhase(target))
	if err := c.action(ctx, target); err != nil {
		log.WithError(err).Warn("tunnel action failed; waiting for status anyway")
	}
	return c.waitFor(ctx, target, log)
}

func (c *Controller) action(ctx context.Context, target model.TunnelState) error {
	args := []string{"disconnect"}
	if target == model.StateUp {
		args = c.opts.ConnectArgs
	}
	return execx.WithTimeout(ctx, c.opts.ActionTimeout, func(ctx context.Context) error {
		_, err := execx.Output(ctx, c.r, c.opts.Bin, args...)
		return err
	})
}

func (c *Controller) waitFor(ctx context.Context, target model.TunnelState, log logrus.FieldLogger) error {
	start := c.clock.Now()
	deadline := start.Add(c.opts.WaitTimeout)
	verb := "connected (up)"
	if target == model.StateDown {
		verb = "disconnected"
	}

	for {
		st, raw := c.status(ctx)
		if st == target {
			c.setPhase(settledPhase(target))
			log.WithField("waited", c.clock.Since(start).Round(time.Millisecond)).Info("tunnel state confirmed")
			return nil
		}
		if !c.clock.Now().Before(deadline) {
			c.setPhase(model.PhaseUnknown)
			return &TransitionError{Target: target, Last: raw, Waited: c.opts.WaitTimeout}
		}
		log.Infof("Waiting for tunnel to be %s... current status: %s", verb, raw)

		timer := c.clock.Timer(c.opts.PollInterval)
		select {
		case <-ctx.Done():
			timer.Stop()
			c.setPhase(model.PhaseUnknown)
			return &TransitionError{Target: target, Last: raw, Waited: c.clock.Since(start), Cause: ctx.Err()}
		case <-timer.C:
		}
	}
}

func settledPhase(target model.TunnelState) model.Phase {
	if target == model.StateUp {
		return model.PhaseUp
	}
	return model.PhaseDown
}

func transitionalPhase(target model.TunnelState) model.Phase {
	if target == model.StateUp {
		return model.PhaseConnecting
	}
	return model.PhaseDisconnecting
}
