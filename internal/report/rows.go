package report

import (
	"time"

	"dzlatency/internal/metrics"
)

// ExportRows flattens the report in display order for CSV export.
func (r Report) ExportRows(runID string, ts time.Time) []metrics.Row {
	entries := r.Entries()
	rows := make([]metrics.Row, 0, len(entries))
	for _, e := range entries {
		row := metrics.Row{
			RunID:        runID,
			Timestamp:    ts,
			IP:           e.Peer.IP,
			Identity:     e.Peer.Identity,
			Connected:    outcomeText(e.Connected),
			Disconnected: outcomeText(e.Disconnected),
			Verdict:      e.Verdict.String(),
		}
		if e.Connected != nil && e.Connected.IsNumeric() {
			v := e.Connected.Millis
			row.ConnectedMs = &v
		}
		if e.Disconnected != nil && e.Disconnected.IsNumeric() {
			v := e.Disconnected.Millis
			row.DisconnectedMs = &v
		}
		if e.Comparable() {
			delta, pct := e.DeltaMs, e.Pct
			row.DeltaMs = &delta
			row.Pct = &pct
		}
		rows = append(rows, row)
	}
	return rows
}
