package report

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"dzlatency/internal/model"
)

var testTime = time.Date(2025, 8, 29, 12, 0, 0, 0, time.UTC)

func TestRender_Comparison(t *testing.T) {
	t.Parallel()

	a := model.PeerRecord{IP: "1.1.1.1", Identity: "idA"}
	b := model.PeerRecord{IP: "2.2.2.2", Identity: "idB"}
	rep := Compare(
		round(model.LabelConnected, map[model.PeerRecord]model.Outcome{a: model.Numeric(10), b: model.Timeout()}),
		round(model.LabelDisconnected, map[model.PeerRecord]model.Outcome{a: model.Numeric(15), b: model.Numeric(20)}),
	)

	var buf bytes.Buffer
	Render(&buf, rep)
	out := buf.String()

	assert.Contains(t, out, "Total peers: 2")
	assert.Contains(t, out, "Better (connected < disconnected): 1")
	assert.Contains(t, out, "[only connected measured: 0; only disconnected measured: 1; both: 0]")
	assert.Contains(t, out, "1.1.1.1              10.00     15.00     -5.00  -33.33  idA")
	assert.Contains(t, out, "same (exactly equal):\n(no entries)")
	assert.Contains(t, out, "2.2.2.2         timeout             20.00 ms            idB")
	assert.Contains(t, out, "connected:    peers=2 numeric=1")
}

func TestRender_SingleAndEmpty(t *testing.T) {
	t.Parallel()

	a := model.PeerRecord{IP: "1.1.1.1", Identity: "idA"}
	var buf bytes.Buffer
	Render(&buf, Compare(round(model.LabelConnected, map[model.PeerRecord]model.Outcome{a: model.Numeric(10)}), nil))
	assert.Contains(t, buf.String(), "Only 'connected' measurements were taken")
	assert.Contains(t, buf.String(), "10.00 ms")
	assert.NotContains(t, buf.String(), "Better")

	buf.Reset()
	Render(&buf, Compare(nil, nil))
	assert.Equal(t, "\nNo measurements completed.\n", buf.String())
}

func TestRenderChart(t *testing.T) {
	t.Parallel()

	a := model.PeerRecord{IP: "1.1.1.1", Identity: "idA"}
	b := model.PeerRecord{IP: "2.2.2.2", Identity: "idB"}
	rep := Compare(
		round(model.LabelConnected, map[model.PeerRecord]model.Outcome{a: model.Numeric(10), b: model.Numeric(30)}),
		round(model.LabelDisconnected, map[model.PeerRecord]model.Outcome{a: model.Numeric(15), b: model.Numeric(20)}),
	)

	path := filepath.Join(t.TempDir(), "out", "latency.png")
	require.NoError(t, WriteChartFile(path, rep))
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(string(data), "\x89PNG"))
}

func TestRenderChart_NotEnoughData(t *testing.T) {
	t.Parallel()

	a := model.PeerRecord{IP: "1.1.1.1", Identity: "idA"}
	rep := Compare(
		round(model.LabelConnected, map[model.PeerRecord]model.Outcome{a: model.Numeric(10)}),
		round(model.LabelDisconnected, map[model.PeerRecord]model.Outcome{a: model.Timeout()}),
	)

	path := filepath.Join(t.TempDir(), "latency.png")
	assert.ErrorIs(t, WriteChartFile(path, rep), ErrNotEnoughData)
	_, err := os.Stat(path)
	assert.True(t, os.IsNotExist(err))
}
