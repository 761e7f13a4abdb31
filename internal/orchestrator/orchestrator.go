package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"dzlatency/internal/config"
	"dzlatency/internal/model"
	"dzlatency/internal/peers"
)

// ErrCannotDetermineInitialState aborts a run before anything is measured.
var ErrCannotDetermineInitialState = errors.New("cannot determine initial tunnel state")

// Tunnel is the tunnel state controller.
type Tunnel interface {
	State(ctx context.Context) model.TunnelState
	TransitionTo(ctx context.Context, target model.TunnelState) error
}

// Prober runs one latency round.
type Prober interface {
	ProbeAll(ctx context.Context, peers []model.PeerRecord, concurrency int) map[model.PeerRecord]model.Outcome
}

// PeerCollector builds the peer set for a network.
type PeerCollector interface {
	Collect(ctx context.Context, network model.Network) ([]model.PeerRecord, error)
}

// Confirmer asks the operator before the tunnel is touched.
type Confirmer interface {
	Confirm(ctx context.Context) bool
}

// ConfirmFunc adapts a function to Confirmer.
type ConfirmFunc func(ctx context.Context) bool

func (f ConfirmFunc) Confirm(ctx context.Context) bool { return f(ctx) }

// AutoConfirm always agrees.
var AutoConfirm = ConfirmFunc(func(context.Context) bool { return true })

// Result is everything a run produced. Rounds that were not taken are nil.
type Result struct {
	RunID        string
	Network      model.Network
	Mode         model.Mode
	InitialState model.TunnelState
	FinalState   model.TunnelState
	Peers        []model.PeerRecord
	Connected    *model.Round
	Disconnected *model.Round
	// Abandoned names the leg skipped after a failed transition, if any.
	Abandoned model.RoundLabel
	// Restored is false when the closing transition back to InitialState failed.
	Restored bool
	// Interrupted is set when ctx was cancelled mid-run; the cut-short round is dropped.
	Interrupted bool
	Warnings    []string
	StartedAt   time.Time
	FinishedAt  time.Time
}

// Degraded reports whether the run finished with fewer rounds than asked for.
func (r Result) Degraded() bool {
	return r.Abandoned != "" || !r.Restored || r.Interrupted
}

type Options struct {
	Network     model.Network
	Concurrency int
	Confirmer   Confirmer
	// RestoreTimeout bounds the closing transition, which ignores cancellation of the run.
	RestoreTimeout time.Duration
	Clock          clock.Clock
	Log            logrus.FieldLogger
}

// Orchestrator sequences rounds and tunnel transitions. It never runs two
// legs at once: probing completes before a transition starts and vice versa.
type Orchestrator struct {
	tunnel  Tunnel
	prober  Prober
	peers   PeerCollector
	opts    Options
	clock   clock.Clock
	log     logrus.FieldLogger
	confirm Confirmer

	restoreBudget time.Duration
}

func New(t Tunnel, p Prober, pc PeerCollector, opts Options) *Orchestrator {
	o := &Orchestrator{tunnel: t, prober: p, peers: pc, opts: opts, clock: opts.Clock, log: opts.Log, confirm: opts.Confirmer}
	if o.clock == nil {
		o.clock = clock.New()
	}
	if o.log == nil {
		o.log = logrus.StandardLogger()
	}
	if o.confirm == nil {
		o.confirm = AutoConfirm
	}
	o.restoreBudget = opts.RestoreTimeout
	if o.restoreBudget <= 0 {
		o.restoreBudget = config.RestoreBudget(config.TunnelConfig{})
	}
	return o
}

// Run executes one measurement session. Only an undeterminable initial state
// is an error; failed transitions degrade the result instead.
func (o *Orchestrator) Run(ctx context.Context, mode model.Mode) (Result, error) {
	res := Result{
		RunID:     uuid.NewString(),
		Network:   o.opts.Network,
		Mode:      mode,
		StartedAt: o.clock.Now(),
		Restored:  true,
	}
	log := o.log.WithField("run_id", res.RunID)

	initial := o.tunnel.State(ctx)
	res.InitialState, res.FinalState = initial, initial
	if initial == model.StateUnknown {
		res.FinishedAt = o.clock.Now()
		return res, ErrCannotDetermineInitialState
	}
	log.WithField("state", initial.String()).Info("initial tunnel state")

	set, err := o.peers.Collect(ctx, o.opts.Network)
	switch {
	case errors.Is(err, peers.ErrEmptyIntersection):
		res.warn(log, "no peers are both registered on the overlay and visible in gossip")
	case err != nil:
		res.warn(log, fmt.Sprintf("peer set unavailable: %v", err))
	}
	res.Peers = set
	log.WithField("peers", len(set)).Info("peer set built")

	if mode == model.ModeComparison && len(set) > 0 && !o.confirm.Confirm(ctx) {
		log.Info("tunnel toggle declined, measuring current state only")
		mode = model.ModeSingleRun
		res.Mode = mode
	}

	first := o.round(ctx, log, initial.Label(), set)
	if ctx.Err() != nil {
		// Nothing has been toggled yet; discard the cut-short round and stop.
		res.interrupt(log, initial.Label())
		res.FinishedAt = o.clock.Now()
		return res, nil
	}
	res.store(first)
	if mode == model.ModeSingleRun || len(set) == 0 {
		res.FinishedAt = o.clock.Now()
		return res, nil
	}

	other := opposite(initial)
	var terr error
	if ctx.Err() == nil {
		terr = o.tunnel.TransitionTo(ctx, other)
	}
	switch {
	case ctx.Err() != nil:
		res.interrupt(log, other.Label())
	case terr != nil:
		res.Abandoned = other.Label()
		res.warn(log, fmt.Sprintf("could not confirm tunnel is %s, skipping %s test: %v", other, other.Label(), terr))
	default:
		second := o.round(ctx, log, other.Label(), set)
		if ctx.Err() != nil {
			res.interrupt(log, other.Label())
		} else {
			res.store(second)
		}
	}

	// Restore is attempted even after a failed or interrupted leg: the tunnel
	// may have moved anyway. It runs detached from ctx under its own budget.
	restoreCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), o.restoreBudget)
	defer cancel()
	if err := o.tunnel.TransitionTo(restoreCtx, initial); err != nil {
		res.Restored = false
		res.warn(log, fmt.Sprintf("could not confirm tunnel is back %s, please check manually: %v", initial, err))
	}
	res.FinalState = o.tunnel.State(restoreCtx)
	log.WithFields(logrus.Fields{
		"final_state": res.FinalState.String(),
		"restored":    res.Restored,
		"interrupted": res.Interrupted,
	}).Info("run finished")
	res.FinishedAt = o.clock.Now()
	return res, nil
}

func (o *Orchestrator) round(ctx context.Context, log logrus.FieldLogger, label model.RoundLabel, set []model.PeerRecord) *model.Round {
	log = log.WithField("leg", string(label))
	log.Infof("running %s latency test", label)
	start := o.clock.Now()
	results := o.prober.ProbeAll(ctx, set, o.opts.Concurrency)
	log.WithField("took", o.clock.Since(start).Round(time.Millisecond)).Debug("round complete")
	return &model.Round{Label: label, Peers: set, Results: results}
}

func (r *Result) store(round *model.Round) {
	if round.Label == model.LabelConnected {
		r.Connected = round
	} else {
		r.Disconnected = round
	}
}

func (r *Result) interrupt(log logrus.FieldLogger, leg model.RoundLabel) {
	r.Interrupted = true
	r.Abandoned = leg
	r.warn(log, fmt.Sprintf("run interrupted, discarding %s test", leg))
}

func (r *Result) warn(log logrus.FieldLogger, msg string) {
	r.Warnings = append(r.Warnings, msg)
	log.Warn(msg)
}

func opposite(s model.TunnelState) model.TunnelState {
	if s == model.StateUp {
		return model.StateDown
	}
	return model.StateUp
}
