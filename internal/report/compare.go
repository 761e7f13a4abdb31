package report

import (
	"fmt"
	"sort"

	"dzlatency/internal/addrutil"
	"dzlatency/internal/metrics"
	"dzlatency/internal/model"
)

// Entry is one peer in a report. Connected and Disconnected are nil when the
// corresponding round was not taken or did not cover the peer.
type Entry struct {
	Peer         model.PeerRecord
	Connected    *model.Outcome
	Disconnected *model.Outcome
	Verdict      model.Verdict
	// DeltaMs is connected minus disconnected; only set for comparable entries.
	DeltaMs float64
	Pct     float64
}

// Comparable reports whether both sides produced a latency figure.
func (e Entry) Comparable() bool {
	switch e.Verdict {
	case model.VerdictBetter, model.VerdictSame, model.VerdictWorse:
		return true
	}
	return false
}

// Counts aggregates verdicts across a comparison.
type Counts struct {
	Total            int
	Better           int
	Same             int
	Worse            int
	OnlyConnected    int
	OnlyDisconnected int
	Both             int
}

func (c Counts) Skipped() int { return c.OnlyConnected + c.OnlyDisconnected + c.Both }

func (c Counts) String() string {
	return fmt.Sprintf("Better: %d, Same: %d, Worse: %d, Skipped: %d", c.Better, c.Same, c.Worse, c.Skipped())
}

// Report is the comparator output. Exactly one of Single or the verdict
// blocks is populated, depending on how many rounds were supplied.
type Report struct {
	// Single holds the only round taken, or nil for a comparison.
	Single *model.Round
	Rows   []Entry

	Better  []Entry
	Same    []Entry
	Worse   []Entry
	Skipped []Entry
	Counts  Counts

	ConnectedSummary    metrics.Summary
	DisconnectedSummary metrics.Summary
}

// Comparison reports whether the report carries verdicts.
func (r Report) Comparison() bool { return r.Single == nil && r.Counts.Total > 0 }

// Empty reports whether no round was available.
func (r Report) Empty() bool { return r.Single == nil && r.Counts.Total == 0 }

// Entries returns every entry in display order.
func (r Report) Entries() []Entry {
	if r.Single != nil {
		return r.Rows
	}
	out := make([]Entry, 0, r.Counts.Total)
	out = append(out, r.Better...)
	out = append(out, r.Same...)
	out = append(out, r.Worse...)
	out = append(out, r.Skipped...)
	return out
}

// Judge returns the verdict for one peer. A nil outcome counts as non-numeric.
func Judge(connected, disconnected *model.Outcome) model.Verdict {
	cOK := connected != nil && connected.IsNumeric()
	dOK := disconnected != nil && disconnected.IsNumeric()
	switch {
	case cOK && dOK:
		switch {
		case connected.Millis < disconnected.Millis:
			return model.VerdictBetter
		case connected.Millis > disconnected.Millis:
			return model.VerdictWorse
		default:
			return model.VerdictSame
		}
	case cOK:
		return model.VerdictSkippedOnlyConnected
	case dOK:
		return model.VerdictSkippedOnlyDisconnected
	default:
		return model.VerdictSkippedBoth
	}
}

// Compare builds a report from zero, one or two rounds.
func Compare(connected, disconnected *model.Round) Report {
	rep := Report{
		ConnectedSummary:    metrics.Summarize(connected),
		DisconnectedSummary: metrics.Summarize(disconnected),
	}

	switch {
	case connected == nil && disconnected == nil:
		return rep
	case disconnected == nil:
		return single(rep, connected)
	case connected == nil:
		return single(rep, disconnected)
	}

	peers := unionPeers(connected, disconnected)
	for _, p := range peers {
		e := Entry{Peer: p}
		if o, ok := connected.Results[p]; ok {
			e.Connected = &o
		}
		if o, ok := disconnected.Results[p]; ok {
			e.Disconnected = &o
		}
		e.Verdict = Judge(e.Connected, e.Disconnected)
		if e.Comparable() {
			e.DeltaMs = e.Connected.Millis - e.Disconnected.Millis
			if e.Disconnected.Millis > 0 {
				e.Pct = e.DeltaMs / e.Disconnected.Millis * 100
			}
		}

		rep.Counts.Total++
		switch e.Verdict {
		case model.VerdictBetter:
			rep.Counts.Better++
			rep.Better = append(rep.Better, e)
		case model.VerdictSame:
			rep.Counts.Same++
			rep.Same = append(rep.Same, e)
		case model.VerdictWorse:
			rep.Counts.Worse++
			rep.Worse = append(rep.Worse, e)
		case model.VerdictSkippedOnlyConnected:
			rep.Counts.OnlyConnected++
			rep.Skipped = append(rep.Skipped, e)
		case model.VerdictSkippedOnlyDisconnected:
			rep.Counts.OnlyDisconnected++
			rep.Skipped = append(rep.Skipped, e)
		default:
			rep.Counts.Both++
			rep.Skipped = append(rep.Skipped, e)
		}
	}

	// Entries arrive in IP order, so stable sorts break delta ties by IP.
	sort.SliceStable(rep.Better, func(i, j int) bool { return rep.Better[i].DeltaMs < rep.Better[j].DeltaMs })
	sort.SliceStable(rep.Worse, func(i, j int) bool { return rep.Worse[i].DeltaMs > rep.Worse[j].DeltaMs })
	return rep
}

func single(rep Report, round *model.Round) Report {
	rep.Single = round
	peers := sortedPeers(round.Peers)
	rep.Rows = make([]Entry, 0, len(peers))
	for _, p := range peers {
		e := Entry{Peer: p}
		if o, ok := round.Results[p]; ok {
			if round.Label == model.LabelDisconnected {
				e.Disconnected = &o
			} else {
				e.Connected = &o
			}
		}
		rep.Rows = append(rep.Rows, e)
	}
	return rep
}

func unionPeers(a, b *model.Round) []model.PeerRecord {
	seen := make(map[string]struct{}, len(a.Peers))
	var out []model.PeerRecord
	for _, r := range []*model.Round{a, b} {
		for _, p := range r.Peers {
			if _, ok := seen[p.IP]; ok {
				continue
			}
			seen[p.IP] = struct{}{}
			out = append(out, p)
		}
	}
	return sortedPeers(out)
}

func sortedPeers(in []model.PeerRecord) []model.PeerRecord {
	out := append([]model.PeerRecord(nil), in...)
	sort.SliceStable(out, func(i, j int) bool { return addrutil.Less(out[i].IP, out[j].IP) })
	return out
}
