package metrics

import (
	"encoding/csv"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"time"
)

// Row is one peer of one run, flattened for export.
type Row struct {
	RunID        string
	Timestamp    time.Time
	IP           string
	Identity     string
	Connected    string
	Disconnected string
	// Numeric values; nil when the side has no latency figure.
	ConnectedMs    *float64
	DisconnectedMs *float64
	DeltaMs        *float64
	Pct            *float64
	Verdict        string
}

var header = []string{
	"run_id",
	"timestamp",
	"ip_address",
	"identity",
	"connected",
	"disconnected",
	"connected_ms",
	"disconnected_ms",
	"delta_ms",
	"pct",
	"verdict",
}

// WriteCSV writes rows to CSV with a fixed column order.
func WriteCSV(w io.Writer, rows []Row) error {
	writer := csv.NewWriter(w)
	defer writer.Flush()

	if err := writer.Write(header); err != nil {
		return err
	}

	for _, r := range rows {
		record := []string{
			r.RunID,
			r.Timestamp.UTC().Format(time.RFC3339),
			r.IP,
			r.Identity,
			r.Connected,
			r.Disconnected,
			formatOptional(r.ConnectedMs),
			formatOptional(r.DisconnectedMs),
			formatOptional(r.DeltaMs),
			formatOptional(r.Pct),
			r.Verdict,
		}
		if err := writer.Write(record); err != nil {
			return err
		}
	}

	writer.Flush()
	return writer.Error()
}

// WriteCSVFile replaces path with the rows of a single run.
func WriteCSVFile(path string, rows []Row) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	file, err := os.Create(path)
	if err != nil {
		return err
	}
	defer file.Close()

	if err := WriteCSV(file, rows); err != nil {
		return err
	}
	return file.Sync()
}

func formatOptional(v *float64) string {
	if v == nil {
		return ""
	}
	return strconv.FormatFloat(*v, 'f', 3, 64)
}
