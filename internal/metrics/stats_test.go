package metrics

import (
	"testing"

	"dzlatency/internal/model"
)

func TestSummarize_Basic(t *testing.T) {
	t.Parallel()

	a := model.PeerRecord{IP: "1.1.1.1"}
	b := model.PeerRecord{IP: "2.2.2.2"}
	c := model.PeerRecord{IP: "3.3.3.3"}
	d := model.PeerRecord{IP: "4.4.4.4"}
	round := &model.Round{
		Label: model.LabelConnected,
		Peers: []model.PeerRecord{a, b, c, d},
		Results: map[model.PeerRecord]model.Outcome{
			a: model.Numeric(10),
			b: model.Numeric(20),
			c: model.Timeout(),
			d: model.ICMPBlocked(),
		},
	}

	s := Summarize(round)
	if s.Peers != 4 || s.Numeric != 2 {
		t.Fatalf("peers=%d numeric=%d", s.Peers, s.Numeric)
	}
	if s.AvgMs != 15 {
		t.Fatalf("avg=%.2f", s.AvgMs)
	}
	if s.MinMs != 10 || s.MaxMs != 20 {
		t.Fatalf("min/max=%.2f/%.2f", s.MinMs, s.MaxMs)
	}
	if s.P50Ms != 10 || s.P95Ms != 20 {
		t.Fatalf("p50/p95=%.2f/%.2f", s.P50Ms, s.P95Ms)
	}
	if s.Failures[model.OutcomeTimeout] != 1 || s.Failures[model.OutcomeICMPBlocked] != 1 {
		t.Fatalf("failures=%v", s.Failures)
	}
}

func TestSummarize_NoNumeric(t *testing.T) {
	t.Parallel()

	if s := Summarize(nil); s.Peers != 0 || s.Numeric != 0 {
		t.Fatalf("nil round: %+v", s)
	}
	p := model.PeerRecord{IP: "1.1.1.1"}
	s := Summarize(&model.Round{Peers: []model.PeerRecord{p}, Results: map[model.PeerRecord]model.Outcome{p: model.Timeout()}})
	if s.Numeric != 0 || s.MinMs != 0 {
		t.Fatalf("summary=%+v", s)
	}
}

func TestPercentile_Edges(t *testing.T) {
	t.Parallel()

	values := []float64{1, 2, 3, 4}
	if got := percentile(values, 0); got != 1 {
		t.Fatalf("p0=%v", got)
	}
	if got := percentile(values, 1); got != 4 {
		t.Fatalf("p100=%v", got)
	}
	if got := percentile(values, 0.5); got != 2 {
		t.Fatalf("p50=%v", got)
	}
}
