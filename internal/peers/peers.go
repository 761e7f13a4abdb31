package peers

import (
	"errors"

	"dzlatency/internal/model"
)

// ErrEmptyIntersection is returned by Build when no gossip entry is registered
// with the overlay. It is informational: callers still get a valid empty set.
var ErrEmptyIntersection = errors.New("no gossip peers are registered with the overlay")

// GossipEntry is one row of the gossip table.
type GossipEntry struct {
	IP       string
	Identity string
}

// Build intersects the overlay IPs with the gossip table. The result keeps
// gossip order, holds each IP once (first gossip row wins) and takes the
// identity from gossip.
func Build(overlayIPs map[string]struct{}, gossip []GossipEntry) ([]model.PeerRecord, error) {
	out := make([]model.PeerRecord, 0, len(overlayIPs))
	seen := make(map[string]struct{}, len(overlayIPs))
	for _, entry := range gossip {
		if _, ok := overlayIPs[entry.IP]; !ok {
			continue
		}
		if _, dup := seen[entry.IP]; dup {
			continue
		}
		seen[entry.IP] = struct{}{}
		out = append(out, model.PeerRecord{IP: entry.IP, Identity: entry.Identity})
	}
	if len(out) == 0 {
		return out, ErrEmptyIntersection
	}
	return out, nil
}
