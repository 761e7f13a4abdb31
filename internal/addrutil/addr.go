package addrutil

import (
	"net/netip"
	"regexp"
	"strconv"
	"strings"
)

var ipv4Pattern = regexp.MustCompile(`^\d+\.\d+\.\d+\.\d+$`)

// IsIPv4 reports whether s is a dotted-quad IPv4 address as printed by the
// overlay and gossip tools.
func IsIPv4(s string) bool {
	if !ipv4Pattern.MatchString(s) {
		return false
	}
	addr, err := netip.ParseAddr(s)
	return err == nil && addr.Is4()
}

// Host strips an optional port from addr. It accepts "host:port",
// bracketed IPv6 with a port, unbracketed IPv6 with a trailing port, and bare hosts.
func Host(addr string) string {
	a := strings.TrimSpace(addr)
	if a == "" {
		return ""
	}

	if ap, err := netip.ParseAddrPort(a); err == nil {
		return ap.Addr().String()
	}

	// Unbracketed IPv6 "host:port": peel off the last ":port".
	if strings.Count(a, ":") > 1 && !strings.HasPrefix(a, "[") {
		if _, err := netip.ParseAddr(a); err == nil {
			return a
		}
		if last := strings.LastIndexByte(a, ':'); last > 0 && last < len(a)-1 {
			if _, err := strconv.Atoi(a[last+1:]); err == nil {
				return a[:last]
			}
		}
	}

	if i := strings.LastIndexByte(a, ':'); i > 0 && !strings.Contains(a[:i], ":") {
		if _, err := strconv.Atoi(a[i+1:]); err == nil {
			return a[:i]
		}
	}
	return strings.Trim(a, "[]")
}

// Less orders IP strings by numeric address, falling back to plain string order
// for values that do not parse. Parseable addresses sort before the rest.
func Less(a, b string) bool {
	aa, errA := netip.ParseAddr(a)
	bb, errB := netip.ParseAddr(b)
	switch {
	case errA == nil && errB == nil:
		if c := aa.Compare(bb); c != 0 {
			return c < 0
		}
		return a < b
	case errA == nil:
		return true
	case errB == nil:
		return false
	default:
		return a < b
	}
}
