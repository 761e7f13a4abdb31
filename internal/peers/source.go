package peers

import (
	"context"
	"fmt"
	"strings"

	"dzlatency/internal/addrutil"
	"dzlatency/internal/execx"
	"dzlatency/internal/model"
)

// userListIPColumn is the client_ip column of `user list` when no header is found.
const userListIPColumn = 6

// Source lists overlay members and gossip peers through the external tools.
type Source struct {
	r          execx.Runner
	overlayBin string
	gossipBin  string
}

func NewSource(r execx.Runner, overlayBin, gossipBin string) *Source {
	if r == nil {
		r = execx.NewOSRunner()
	}
	return &Source{r: r, overlayBin: overlayBin, gossipBin: gossipBin}
}

// OverlayIPs returns the client IPs currently registered with the overlay.
func (s *Source) OverlayIPs(ctx context.Context) (map[string]struct{}, error) {
	out, err := execx.Output(ctx, s.r, s.overlayBin, "user", "list")
	if err != nil {
		return nil, fmt.Errorf("list overlay users: %w", err)
	}
	return ParseUserList(out), nil
}

// Gossip returns the (IP, identity) rows of the gossip table for network.
func (s *Source) Gossip(ctx context.Context, network model.Network) ([]GossipEntry, error) {
	flag, err := network.GossipFlag()
	if err != nil {
		return nil, err
	}
	out, err := execx.Output(ctx, s.r, s.gossipBin, "gossip", flag)
	if err != nil {
		return nil, fmt.Errorf("list %s gossip: %w", network, err)
	}
	return ParseGossip(out), nil
}

// Collect queries both sources and builds the probe set.
func (s *Source) Collect(ctx context.Context, network model.Network) ([]model.PeerRecord, error) {
	ips, err := s.OverlayIPs(ctx)
	if err != nil {
		return nil, err
	}
	gossip, err := s.Gossip(ctx, network)
	if err != nil {
		return nil, err
	}
	return Build(ips, gossip)
}

// ParseUserList extracts client IPs from the `|`-delimited user table.
func ParseUserList(out string) map[string]struct{} {
	ips := map[string]struct{}{}
	col := userListIPColumn
	for _, line := range strings.Split(out, "\n") {
		parts := strings.Split(line, "|")
		if idx := headerIndex(parts, "client_ip"); idx >= 0 {
			col = idx
			continue
		}
		if len(parts) <= col {
			continue
		}
		ip := strings.TrimSpace(parts[col])
		if addrutil.IsIPv4(ip) {
			ips[ip] = struct{}{}
		}
	}
	return ips
}

// ParseGossip extracts (IP, identity) rows from the gossip table, in order.
func ParseGossip(out string) []GossipEntry {
	var entries []GossipEntry
	for _, line := range strings.Split(out, "\n") {
		if !strings.Contains(line, "|") || strings.HasPrefix(line, "-") {
			continue
		}
		if strings.HasPrefix(strings.TrimSpace(line), "IP Address") {
			continue
		}
		parts := strings.Split(line, "|")
		if len(parts) < 2 {
			continue
		}
		ip := strings.TrimSpace(parts[0])
		if !addrutil.IsIPv4(ip) {
			continue
		}
		entries = append(entries, GossipEntry{IP: ip, Identity: strings.TrimSpace(parts[1])})
	}
	return entries
}

func headerIndex(parts []string, name string) int {
	for i, p := range parts {
		if strings.EqualFold(strings.TrimSpace(p), name) {
			return i
		}
	}
	return -1
}
