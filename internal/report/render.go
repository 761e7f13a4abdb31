package report

import (
	"fmt"
	"io"
	"sort"

	"dzlatency/internal/metrics"
	"dzlatency/internal/model"
)

// Render prints the report as fixed-width tables.
func Render(w io.Writer, rep Report) {
	switch {
	case rep.Empty():
		fmt.Fprintln(w, "\nNo measurements completed.")
	case rep.Single != nil:
		renderSingle(w, rep)
	default:
		renderComparison(w, rep)
	}
}

func renderSingle(w io.Writer, rep Report) {
	label := rep.Single.Label
	fmt.Fprintf(w, "\nOnly '%s' measurements were taken\n", label)
	fmt.Fprintf(w, "%-16s  %-44s  %s\n", "ip_address", "identity", "latency")
	for _, e := range rep.Rows {
		o := e.Connected
		if label == model.LabelDisconnected {
			o = e.Disconnected
		}
		fmt.Fprintf(w, "%-16s  %-44s  %s\n", e.Peer.IP, truncate(e.Peer.Identity, 44), outcomeText(o))
	}

	s := rep.ConnectedSummary
	if label == model.LabelDisconnected {
		s = rep.DisconnectedSummary
	}
	fmt.Fprintln(w)
	renderSummary(w, string(label), s)
}

func renderComparison(w io.Writer, rep Report) {
	c := rep.Counts
	fmt.Fprintln(w, "\n=== Latency comparison summary ===")
	fmt.Fprintf(w, "Total peers: %d\n", c.Total)
	fmt.Fprintf(w, "Better (connected < disconnected): %d\n", c.Better)
	fmt.Fprintf(w, "Same   (equal values)            : %d\n", c.Same)
	fmt.Fprintf(w, "Worse  (connected > disconnected): %d\n", c.Worse)
	fmt.Fprintf(w, "Skipped (non-numeric, ICMP blocked/timeout): %d [only connected measured: %d; only disconnected measured: %d; both: %d]\n",
		c.Skipped(), c.OnlyConnected, c.OnlyDisconnected, c.Both)

	renderBlock(w, "improvements (connected faster):", rep.Better)
	renderBlock(w, "same (exactly equal):", rep.Same)
	renderBlock(w, "regressions (connected slower):", rep.Worse)

	if len(rep.Skipped) > 0 {
		fmt.Fprintln(w, "\nSkipped peers (could not measure with ICMP):")
		fmt.Fprintf(w, "%-16s%-20s%-20s%s\n", "ip_address", "lat_conn", "lat_disc", "identity")
		for _, e := range rep.Skipped {
			fmt.Fprintf(w, "%-16s%-20s%-20s%s\n", e.Peer.IP, outcomeText(e.Connected), outcomeText(e.Disconnected), truncate(e.Peer.Identity, 40))
		}
	}

	fmt.Fprintln(w)
	renderSummary(w, string(model.LabelConnected), rep.ConnectedSummary)
	renderSummary(w, string(model.LabelDisconnected), rep.DisconnectedSummary)
}

func renderBlock(w io.Writer, title string, entries []Entry) {
	fmt.Fprintf(w, "\n%s\n", title)
	if len(entries) == 0 {
		fmt.Fprintln(w, "(no entries)")
		return
	}
	fmt.Fprintf(w, "%-16s%10s%10s%10s%8s  %s\n", "ip_address", "conn_ms", "disc_ms", "delta_ms", "pct", "identity")
	for _, e := range entries {
		fmt.Fprintf(w, "%-16s%10.2f%10.2f%+10.2f%+8.2f  %s\n",
			e.Peer.IP, e.Connected.Millis, e.Disconnected.Millis, e.DeltaMs, e.Pct, truncate(e.Peer.Identity, 40))
	}
}

func renderSummary(w io.Writer, label string, s metrics.Summary) {
	if s.Numeric == 0 {
		fmt.Fprintf(w, "%-13s peers=%d numeric=0%s\n", label+":", s.Peers, failureText(s.Failures))
		return
	}
	fmt.Fprintf(w, "%-13s peers=%d numeric=%d avg=%.2f p50=%.2f p95=%.2f min=%.2f max=%.2f%s\n",
		label+":", s.Peers, s.Numeric, s.AvgMs, s.P50Ms, s.P95Ms, s.MinMs, s.MaxMs, failureText(s.Failures))
}

func failureText(failures map[model.OutcomeKind]int) string {
	if len(failures) == 0 {
		return ""
	}
	kinds := make([]model.OutcomeKind, 0, len(failures))
	for k := range failures {
		kinds = append(kinds, k)
	}
	sort.Slice(kinds, func(i, j int) bool { return kinds[i] < kinds[j] })
	out := ""
	for _, k := range kinds {
		out += fmt.Sprintf(" %s=%d", model.Outcome{Kind: k}.String(), failures[k])
	}
	return out
}

func outcomeText(o *model.Outcome) string {
	if o == nil {
		return "n/a"
	}
	return o.String()
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}
