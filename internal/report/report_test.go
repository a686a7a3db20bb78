package report

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleInput() Input {
	return Input{
		Title:          "KCUSD 30m (coffee-30m)",
		RunID:          "run-1",
		InitialBalance: 100000,
		Equity: []EquityPoint{
			{TS: 1700000000000, Equity: 100000, Drawdown: 0},
			{TS: 1700001800000, Equity: 100480, Drawdown: 0},
			{TS: 1700003600000, Equity: 99950, Drawdown: 0.0053},
		},
		Trades: []TradeMarker{
			{TS: 1700001800000, Price: 412.5, Side: "long", PnL: 480, Final: false},
			{TS: 1700003600000, Price: 409.0, Side: "long", PnL: -530, Final: true},
		},
	}
}

func TestRenderProducesHTML(t *testing.T) {
	html, err := Render(sampleInput())
	require.NoError(t, err)

	page := string(html)
	assert.Contains(t, page, "<html>")
	assert.Contains(t, page, "KCUSD 30m (coffee-30m)")
	assert.Contains(t, page, "Drawdown")
	assert.Contains(t, page, "Trade PnL")
}

func TestRenderRequiresSnapshots(t *testing.T) {
	_, err := Render(Input{RunID: "empty"})
	require.Error(t, err)
}

func TestRenderSkipsTradePanelWhenEmpty(t *testing.T) {
	input := sampleInput()
	input.Trades = nil
	html, err := Render(input)
	require.NoError(t, err)
	assert.False(t, strings.Contains(string(html), "Trade PnL"))
}

func TestWriteCreatesFile(t *testing.T) {
	dir := t.TempDir()
	path, err := Write(dir, sampleInput())
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "run-1.html"), path)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.NotEmpty(t, data)
}
