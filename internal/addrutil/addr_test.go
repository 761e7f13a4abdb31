package addrutil

import (
	"sort"
	"testing"
)

func TestIsIPv4(t *testing.T) {
	t.Parallel()

	cases := map[string]bool{
		"1.1.1.1":        true,
		"192.168.10.200": true,
		"999.1.1.1":      false,
		"2001:db8::1":    false,
		"1.1.1":          false,
		" 1.1.1.1":       false,
		"IP Address":     false,
		"10.0.0.1:8001":  false,
	}
	for in, want := range cases {
		if got := IsIPv4(in); got != want {
			t.Fatalf("IsIPv4(%q)=%v", in, got)
		}
	}
}

func TestHost(t *testing.T) {
	t.Parallel()

	cases := map[string]string{
		"39.119.108.243:33134": "39.119.108.243",
		"39.119.108.243":       "39.119.108.243",
		"[2001:db8::1]:51820":  "2001:db8::1",
		"2001:db8::1":          "2001:db8::1",
		"example.com:443":      "example.com",
		"":                     "",
	}
	for in, want := range cases {
		if got := Host(in); got != want {
			t.Fatalf("Host(%q)=%q want %q", in, got, want)
		}
	}
}

func TestLess_NumericOrder(t *testing.T) {
	t.Parallel()

	ips := []string{"10.0.0.2", "not-an-ip", "9.9.9.9", "10.0.0.10", "1.1.1.1"}
	sort.Slice(ips, func(i, j int) bool { return Less(ips[i], ips[j]) })
	want := []string{"1.1.1.1", "9.9.9.9", "10.0.0.2", "10.0.0.10", "not-an-ip"}
	for i := range want {
		if ips[i] != want[i] {
			t.Fatalf("order=%v", ips)
		}
	}
}
