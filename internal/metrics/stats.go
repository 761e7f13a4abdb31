package metrics

import (
	"math"
	"sort"

	"dzlatency/internal/model"
)

// Summary is a latency snapshot of one round.
type Summary struct {
	Peers   int
	Numeric int
	AvgMs   float64
	P50Ms   float64
	P95Ms   float64
	MinMs   float64
	MaxMs   float64
	// Failures counts non-numeric outcomes by kind.
	Failures map[model.OutcomeKind]int
}

// Summarize computes latency statistics over the numeric outcomes of a round.
func Summarize(round *model.Round) Summary {
	s := Summary{Failures: map[model.OutcomeKind]int{}}
	if round == nil {
		return s
	}

	values := make([]float64, 0, len(round.Results))
	var sum float64
	minMs := math.MaxFloat64
	maxMs := 0.0
	for _, peer := range round.Peers {
		o, ok := round.Results[peer]
		if !ok {
			continue
		}
		s.Peers++
		if !o.IsNumeric() {
			s.Failures[o.Kind]++
			continue
		}
		values = append(values, o.Millis)
		sum += o.Millis
		if o.Millis < minMs {
			minMs = o.Millis
		}
		if o.Millis > maxMs {
			maxMs = o.Millis
		}
	}

	s.Numeric = len(values)
	if s.Numeric == 0 {
		return s
	}

	sort.Float64s(values)
	s.AvgMs = sum / float64(len(values))
	s.P50Ms = percentile(values, 0.50)
	s.P95Ms = percentile(values, 0.95)
	s.MinMs = minMs
	s.MaxMs = maxMs
	return s
}

func percentile(values []float64, p float64) float64 {
	if len(values) == 0 {
		return 0
	}
	if p <= 0 {
		return values[0]
	}
	if p >= 1 {
		return values[len(values)-1]
	}
	idx := int(math.Ceil(p*float64(len(values)))) - 1
	if idx < 0 {
		idx = 0
	}
	if idx >= len(values) {
		idx = len(values) - 1
	}
	return values[idx]
}
