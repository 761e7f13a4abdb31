package probe

import (
	"regexp"
	"strconv"
	"strings"

	"dzlatency/internal/model"
)

// Raw is what one ping invocation produced, before classification.
type Raw struct {
	Stdout   string
	Stderr   string
	ExitCode int
	// TimedOut is set when the process was killed at its deadline.
	TimedOut bool
	// NotFound is set when the ping binary could not be started.
	NotFound bool
}

var (
	// Linux iputils: rtt min/avg/max/mdev = 11.1/12.3/13.5/0.4 ms
	rttSummary = regexp.MustCompile(`rtt .* = [\d.]+/([\d.]+)/[\d.]+/[\d.]+ ms`)
	// BSD/macOS: round-trip min/avg/max/stddev = 11.1/12.3/13.5 ms (and busybox)
	roundTripSummary = regexp.MustCompile(`round-trip .* = [\d.]+/([\d.]+)/[\d.]+(?:/[\d.]+)? ms`)
	// Windows: Minimum = 11ms, Maximum = 13ms, Average = 12ms
	averageSummary = regexp.MustCompile(`(?i)average = ([\d.]+)\s*ms`)
	echoTime       = regexp.MustCompile(`time[=<]([\d.]+)\s*ms`)
	// "100% packet loss" (iputils) or "100.0% packet loss" (BSD/macOS)
	totalLoss = regexp.MustCompile(`\b100(?:\.0+)?% packet loss`)
)

// Classify maps a raw probe result to exactly one outcome.
func Classify(raw Raw) model.Outcome {
	if raw.NotFound {
		return model.ToolMissing()
	}
	if raw.TimedOut {
		return model.Timeout()
	}
	if avg, ok := ParseAverageMs(raw.Stdout); ok {
		return model.Numeric(avg)
	}

	combined := strings.ToLower(raw.Stdout + "\n" + raw.Stderr)
	switch {
	case strings.Contains(combined, "unreachable"):
		return model.Unreachable()
	case strings.Contains(combined, "permission denied"):
		return model.ICMPBlocked()
	// macOS prints "Request timeout for icmp_seq N" for every lost echo.
	case strings.Contains(combined, "request timeout"), totalLoss.MatchString(combined):
		return model.Timeout()
	case strings.Contains(combined, "icmp"):
		return model.ICMPBlocked()
	case raw.ExitCode != 0:
		return model.Timeout()
	default:
		return model.ICMPBlocked()
	}
}

// ParseAverageMs extracts the average round-trip time from ping output. The
// summary line is preferred; otherwise the mean of per-echo times is used.
func ParseAverageMs(out string) (float64, bool) {
	for _, re := range []*regexp.Regexp{rttSummary, roundTripSummary, averageSummary} {
		if m := re.FindStringSubmatch(out); len(m) > 1 {
			if v, err := strconv.ParseFloat(m[1], 64); err == nil {
				return v, true
			}
		}
	}

	matches := echoTime.FindAllStringSubmatch(out, -1)
	var sum float64
	n := 0
	for _, m := range matches {
		v, err := strconv.ParseFloat(m[1], 64)
		if err != nil {
			continue
		}
		sum += v
		n++
	}
	if n == 0 {
		return 0, false
	}
	return sum / float64(n), true
}
