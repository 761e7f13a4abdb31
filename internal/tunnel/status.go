package tunnel

import (
	"strings"

	"dzlatency/internal/model"
)

const statusColumn = "tunnel status"

// StatusText returns the lowercased "Tunnel status" cell of the first data row
// of the status table, or "unknown" when there is no such table.
func StatusText(out string) string {
	row, ok := firstStatusRow(out)
	if !ok {
		return "unknown"
	}
	s := strings.ToLower(row[statusColumn])
	if s == "" {
		return "unknown"
	}
	return s
}

// ParseStatus maps the status tool's table output to a tunnel state.
func ParseStatus(out string) model.TunnelState {
	switch StatusText(out) {
	case "up":
		return model.StateUp
	case "disconnected", "down":
		return model.StateDown
	default:
		return model.StateUnknown
	}
}

func firstStatusRow(out string) (map[string]string, bool) {
	var lines []string
	for _, ln := range strings.Split(out, "\n") {
		if strings.TrimSpace(ln) != "" {
			lines = append(lines, ln)
		}
	}

	header := -1
	for i, ln := range lines {
		if strings.Contains(ln, "|") && strings.Contains(strings.ToLower(ln), statusColumn) {
			header = i
			break
		}
	}
	if header < 0 {
		return nil, false
	}

	headers := strings.Split(lines[header], "|")
	for i := range headers {
		headers[i] = strings.ToLower(strings.TrimSpace(headers[i]))
	}

	for _, ln := range lines[header+1:] {
		if strings.Trim(ln, " -+|") == "" {
			continue
		}
		cells := strings.Split(ln, "|")
		row := make(map[string]string, len(headers))
		for i, h := range headers {
			if i < len(cells) {
				row[h] = strings.TrimSpace(cells[i])
			}
		}
		return row, true
	}
	return nil, false
}
