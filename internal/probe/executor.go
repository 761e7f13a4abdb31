package probe

import (
	"context"
	"time"

	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"dzlatency/internal/model"
)

// Executor probes a peer set through a bounded worker pool.
type Executor struct {
	pinger Pinger
	log    logrus.FieldLogger
}

func NewExecutor(p Pinger, log logrus.FieldLogger) *Executor {
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &Executor{pinger: p, log: log}
}

// ProbeAll pings every peer with at most concurrency probes in flight and
// returns one outcome per peer. It returns only after every probe finished.
// A failed probe is recorded as its outcome and never affects the others.
func (e *Executor) ProbeAll(ctx context.Context, peers []model.PeerRecord, concurrency int) map[model.PeerRecord]model.Outcome {
	results := make(map[model.PeerRecord]model.Outcome, len(peers))
	if len(peers) == 0 {
		return results
	}
	if concurrency <= 0 || concurrency > len(peers) {
		concurrency = len(peers)
	}

	outcomes := make([]model.Outcome, len(peers))
	start := time.Now()

	var g errgroup.Group
	g.SetLimit(concurrency)
	for i, peer := range peers {
		i, peer := i, peer
		g.Go(func() error {
			outcomes[i] = Classify(e.pinger.Ping(ctx, peer.IP))
			return nil
		})
	}
	_ = g.Wait()

	var numeric int
	for i, peer := range peers {
		results[peer] = outcomes[i]
		if outcomes[i].IsNumeric() {
			numeric++
		}
	}
	e.log.WithFields(logrus.Fields{
		"peers":    len(peers),
		"numeric":  numeric,
		"workers":  concurrency,
		"duration": time.Since(start).Round(time.Millisecond),
	}).Info("probe round finished")
	return results
}
