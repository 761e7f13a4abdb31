package report

import (
	"bytes"
	"errors"
	"io"
	"os"
	"path/filepath"
	"sort"

	"github.com/wcharczuk/go-chart/v2"
	"github.com/wcharczuk/go-chart/v2/drawing"

	"dzlatency/internal/addrutil"
)

// ErrNotEnoughData is returned when fewer than two peers are comparable.
var ErrNotEnoughData = errors.New("not enough comparable peers to chart")

// RenderChart draws connected and disconnected latency per comparable peer as a PNG.
func RenderChart(w io.Writer, rep Report) error {
	var points []Entry
	for _, e := range rep.Entries() {
		if e.Comparable() {
			points = append(points, e)
		}
	}
	if len(points) < 2 {
		return ErrNotEnoughData
	}
	points = sortedEntries(points)

	xs := make([]float64, len(points))
	conn := make([]float64, len(points))
	disc := make([]float64, len(points))
	ticks := make([]chart.Tick, len(points))
	for i, e := range points {
		xs[i] = float64(i)
		conn[i] = e.Connected.Millis
		disc[i] = e.Disconnected.Millis
		ticks[i] = chart.Tick{Value: float64(i), Label: e.Peer.IP}
	}

	graph := chart.Chart{
		Title: "Peer latency: connected vs disconnected",
		TitleStyle: chart.Style{
			FontSize: 16,
		},
		Background: chart.Style{
			Padding: chart.Box{
				Top:    40,
				Left:   20,
				Right:  20,
				Bottom: 20,
			},
		},
		Width:  1200,
		Height: 500,
		XAxis: chart.XAxis{
			Name:  "Peer",
			Ticks: ticks,
			Style: chart.Style{
				StrokeColor:         drawing.ColorBlack,
				FontSize:            8,
				TextRotationDegrees: 45,
			},
		},
		YAxis: chart.YAxis{
			Name: "Latency (ms)",
			Style: chart.Style{
				StrokeColor: drawing.ColorBlack,
				FontSize:    10,
			},
			GridMajorStyle: chart.Style{
				StrokeColor: drawing.Color{R: 200, G: 200, B: 200, A: 255},
				StrokeWidth: 1.0,
			},
		},
		Series: []chart.Series{
			chart.ContinuousSeries{
				Name: "connected",
				Style: chart.Style{
					StrokeColor: chart.GetDefaultColor(0),
					StrokeWidth: 2,
					DotWidth:    3,
				},
				XValues: xs,
				YValues: conn,
			},
			chart.ContinuousSeries{
				Name: "disconnected",
				Style: chart.Style{
					StrokeColor: chart.GetDefaultColor(1),
					StrokeWidth: 2,
					DotWidth:    3,
				},
				XValues: xs,
				YValues: disc,
			},
		},
	}

	graph.Elements = []chart.Renderable{
		chart.Legend(&graph),
	}

	return graph.Render(chart.PNG, w)
}

// WriteChartFile renders the chart to path, replacing any existing file.
// Nothing is written when the chart cannot be rendered.
func WriteChartFile(path string, rep Report) error {
	var buf bytes.Buffer
	if err := RenderChart(&buf, rep); err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	return os.WriteFile(path, buf.Bytes(), 0o644)
}

func sortedEntries(in []Entry) []Entry {
	out := append([]Entry(nil), in...)
	sort.SliceStable(out, func(i, j int) bool { return addrutil.Less(out[i].Peer.IP, out[j].Peer.IP) })
	return out
}
