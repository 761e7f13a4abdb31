package model

import (
	"fmt"
	"strconv"
)

// PeerRecord is one probe target: an overlay-registered IP that is also visible in gossip.
type PeerRecord struct {
	IP       string
	Identity string
}

// OutcomeKind tags the variant held by an Outcome.
type OutcomeKind int

const (
	OutcomeNumeric OutcomeKind = iota
	OutcomeTimeout
	OutcomeUnreachable
	OutcomeICMPBlocked
	OutcomeToolMissing
)

// Outcome is the classified result of probing one peer in one round.
// Millis is only meaningful when Kind is OutcomeNumeric.
type Outcome struct {
	Kind   OutcomeKind
	Millis float64
}

func Numeric(ms float64) Outcome { return Outcome{Kind: OutcomeNumeric, Millis: ms} }
func Timeout() Outcome           { return Outcome{Kind: OutcomeTimeout} }
func Unreachable() Outcome       { return Outcome{Kind: OutcomeUnreachable} }
func ICMPBlocked() Outcome       { return Outcome{Kind: OutcomeICMPBlocked} }
func ToolMissing() Outcome       { return Outcome{Kind: OutcomeToolMissing} }

func (o Outcome) IsNumeric() bool { return o.Kind == OutcomeNumeric }

func (o Outcome) String() string {
	switch o.Kind {
	case OutcomeNumeric:
		return strconv.FormatFloat(o.Millis, 'f', 2, 64) + " ms"
	case OutcomeTimeout:
		return "timeout"
	case OutcomeUnreachable:
		return "unreachable"
	case OutcomeICMPBlocked:
		return "icmp blocked"
	case OutcomeToolMissing:
		return "ping not found"
	default:
		return fmt.Sprintf("outcome(%d)", int(o.Kind))
	}
}

// RoundLabel names the tunnel condition a round was measured under.
type RoundLabel string

const (
	LabelConnected    RoundLabel = "connected"
	LabelDisconnected RoundLabel = "disconnected"
)

// Round is one latency pass across the whole peer set.
type Round struct {
	Label   RoundLabel
	Peers   []PeerRecord
	Results map[PeerRecord]Outcome
}

// Complete reports whether every peer in the round has an outcome.
func (r *Round) Complete() bool {
	if r == nil {
		return false
	}
	if len(r.Results) != len(r.Peers) {
		return false
	}
	for _, p := range r.Peers {
		if _, ok := r.Results[p]; !ok {
			return false
		}
	}
	return true
}

// TunnelState is the tunnel condition as reported by the status tool.
type TunnelState int

const (
	StateUnknown TunnelState = iota
	StateUp
	StateDown
)

func (s TunnelState) String() string {
	switch s {
	case StateUp:
		return "up"
	case StateDown:
		return "disconnected"
	default:
		return "unknown"
	}
}

// Label maps a confirmed tunnel state to the round it produces.
func (s TunnelState) Label() RoundLabel {
	if s == StateUp {
		return LabelConnected
	}
	return LabelDisconnected
}

// Phase is the tunnel controller's own view, including in-flight transitions.
type Phase int

const (
	PhaseUnknown Phase = iota
	PhaseConnecting
	PhaseUp
	PhaseDisconnecting
	PhaseDown
)

func (p Phase) String() string {
	switch p {
	case PhaseConnecting:
		return "connecting"
	case PhaseUp:
		return "up"
	case PhaseDisconnecting:
		return "disconnecting"
	case PhaseDown:
		return "down"
	default:
		return "unknown"
	}
}

// Verdict is the per-peer comparison category.
type Verdict int

const (
	VerdictNone Verdict = iota
	VerdictBetter
	VerdictSame
	VerdictWorse
	VerdictSkippedOnlyConnected
	VerdictSkippedOnlyDisconnected
	VerdictSkippedBoth
)

func (v Verdict) String() string {
	switch v {
	case VerdictBetter:
		return "better"
	case VerdictSame:
		return "same"
	case VerdictWorse:
		return "worse"
	case VerdictSkippedOnlyConnected:
		return "skipped_only_connected"
	case VerdictSkippedOnlyDisconnected:
		return "skipped_only_disconnected"
	case VerdictSkippedBoth:
		return "skipped_both"
	default:
		return ""
	}
}

// Network selects which gossip cluster is queried.
type Network string

const (
	NetworkMainnet Network = "mainnet"
	NetworkTestnet Network = "testnet"
)

// GossipFlag returns the cluster selector passed to the gossip tool.
func (n Network) GossipFlag() (string, error) {
	switch n {
	case NetworkMainnet:
		return "-um", nil
	case NetworkTestnet:
		return "-ut", nil
	default:
		return "", fmt.Errorf("unknown network %q", string(n))
	}
}

// Mode selects between a two-round comparison and a single measurement.
type Mode int

const (
	ModeComparison Mode = iota
	ModeSingleRun
)

func (m Mode) String() string {
	if m == ModeSingleRun {
		return "single-run"
	}
	return "comparison"
}
