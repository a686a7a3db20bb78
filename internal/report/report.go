// Package report renders a completed run into a self-contained HTML page
// with an equity curve, a drawdown curve and per-trade results.
package report

import (
	"bytes"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"time"

	"github.com/go-echarts/go-echarts/v2/charts"
	"github.com/go-echarts/go-echarts/v2/components"
	"github.com/go-echarts/go-echarts/v2/opts"
	"github.com/go-echarts/go-echarts/v2/types"
)

type EquityPoint struct {
	TS       int64
	Equity   float64
	Drawdown float64
}

type TradeMarker struct {
	TS    int64
	Price float64
	Side  string
	PnL   float64
	Final bool
}

type Input struct {
	Title          string
	RunID          string
	InitialBalance float64
	Equity         []EquityPoint
	Trades         []TradeMarker
}

const (
	colorBackground    = "#060c1b"
	colorTextPrimary   = "#eceff4"
	colorTextSecondary = "#9ca3af"
	colorEquity        = "#3b82f6"
	colorBaseline      = "#9ca3af"
	colorDrawdown      = "#f87171"
	colorWin           = "#34d399"
	colorLoss          = "#f87171"

	chartWidthPx   = 1400
	equityHeightPx = 520
	panelHeightPx  = 260
)

// Render builds the report page and returns its HTML bytes.
func Render(input Input) ([]byte, error) {
	if len(input.Equity) == 0 {
		return nil, fmt.Errorf("no equity snapshots to render")
	}
	page := components.NewPage()
	page.SetLayout(components.PageFlexLayout)
	page.AddCharts(
		buildEquityChart(input),
		buildDrawdownChart(input),
	)
	if len(input.Trades) > 0 {
		page.AddCharts(buildTradeChart(input))
	}

	var buf bytes.Buffer
	if err := page.Render(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// Write renders the report and stores it under dir as <runID>.html.
func Write(dir string, input Input) (string, error) {
	html, err := Render(input)
	if err != nil {
		return "", err
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", err
	}
	path := filepath.Join(dir, input.RunID+".html")
	if err := os.WriteFile(path, html, 0o644); err != nil {
		return "", err
	}
	return path, nil
}

func buildEquityChart(input Input) *charts.Line {
	line := charts.NewLine()
	line.SetGlobalOptions(
		charts.WithInitializationOpts(opts.Initialization{
			Theme:           types.ThemeWesteros,
			Width:           fmt.Sprintf("%dpx", chartWidthPx),
			Height:          fmt.Sprintf("%dpx", equityHeightPx),
			BackgroundColor: colorBackground,
		}),
		charts.WithTitleOpts(opts.Title{
			Title:         input.Title,
			Subtitle:      fmt.Sprintf("run %s | start %.2f", input.RunID, input.InitialBalance),
			Left:          "left",
			Top:           "10",
			TitleStyle:    &opts.TextStyle{Color: colorTextPrimary, FontSize: 18},
			SubtitleStyle: &opts.TextStyle{Color: colorTextSecondary},
		}),
		charts.WithLegendOpts(opts.Legend{Show: opts.Bool(true), TextStyle: &opts.TextStyle{Color: colorTextPrimary}}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true), Trigger: "axis"}),
		charts.WithDataZoomOpts(opts.DataZoom{Type: "slider", XAxisIndex: []int{0}}),
		charts.WithXAxisOpts(opts.XAxis{
			Type:      "category",
			AxisLabel: &opts.AxisLabel{Color: colorTextSecondary},
		}),
		charts.WithYAxisOpts(opts.YAxis{
			Scale:     opts.Bool(true),
			AxisLabel: &opts.AxisLabel{Color: colorTextSecondary},
			SplitLine: &opts.SplitLine{Show: opts.Bool(true), LineStyle: &opts.LineStyle{Color: colorTextSecondary, Opacity: opts.Float(0.2)}},
		}),
	)

	xAxis := equityXAxis(input.Equity)
	equity := make([]opts.LineData, len(input.Equity))
	baseline := make([]opts.LineData, len(input.Equity))
	for i, p := range input.Equity {
		equity[i] = opts.LineData{Value: round(p.Equity, 2)}
		baseline[i] = opts.LineData{Value: round(input.InitialBalance, 2)}
	}
	line.SetXAxis(xAxis)
	line.AddSeries("Equity", equity,
		charts.WithLineStyleOpts(opts.LineStyle{Color: colorEquity, Width: 2}),
		charts.WithLineChartOpts(opts.LineChart{ShowSymbol: opts.Bool(false)}),
	)
	line.AddSeries("Initial", baseline,
		charts.WithLineStyleOpts(opts.LineStyle{Color: colorBaseline, Width: 1, Type: "dashed"}),
		charts.WithLineChartOpts(opts.LineChart{ShowSymbol: opts.Bool(false)}),
	)
	return line
}

func buildDrawdownChart(input Input) *charts.Line {
	line := charts.NewLine()
	line.SetGlobalOptions(
		charts.WithInitializationOpts(opts.Initialization{
			Theme:           types.ThemeWesteros,
			Width:           fmt.Sprintf("%dpx", chartWidthPx),
			Height:          fmt.Sprintf("%dpx", panelHeightPx),
			BackgroundColor: colorBackground,
		}),
		charts.WithTitleOpts(opts.Title{Title: "Drawdown %", Left: "left", TitleStyle: &opts.TextStyle{Color: colorTextPrimary}}),
		charts.WithLegendOpts(opts.Legend{Show: opts.Bool(false)}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true), Trigger: "axis"}),
		charts.WithXAxisOpts(opts.XAxis{AxisLabel: &opts.AxisLabel{Show: opts.Bool(false)}}),
		charts.WithYAxisOpts(opts.YAxis{
			AxisLabel: &opts.AxisLabel{Show: opts.Bool(true), Color: colorTextSecondary},
			SplitLine: &opts.SplitLine{Show: opts.Bool(true), LineStyle: &opts.LineStyle{Color: colorTextSecondary, Opacity: opts.Float(0.15)}},
		}),
	)
	data := make([]opts.LineData, len(input.Equity))
	for i, p := range input.Equity {
		data[i] = opts.LineData{Value: round(p.Drawdown*100, 2)}
	}
	line.SetXAxis(equityXAxis(input.Equity))
	line.AddSeries("Drawdown", data,
		charts.WithLineStyleOpts(opts.LineStyle{Color: colorDrawdown, Width: 2}),
		charts.WithLineChartOpts(opts.LineChart{ShowSymbol: opts.Bool(false)}),
		charts.WithAreaStyleOpts(opts.AreaStyle{Opacity: opts.Float(0.2)}),
	)
	return line
}

func buildTradeChart(input Input) *charts.Bar {
	bar := charts.NewBar()
	bar.SetGlobalOptions(
		charts.WithInitializationOpts(opts.Initialization{
			Theme:           types.ThemeWesteros,
			Width:           fmt.Sprintf("%dpx", chartWidthPx),
			Height:          fmt.Sprintf("%dpx", panelHeightPx),
			BackgroundColor: colorBackground,
		}),
		charts.WithTitleOpts(opts.Title{Title: "Trade PnL", Left: "left", TitleStyle: &opts.TextStyle{Color: colorTextPrimary}}),
		charts.WithLegendOpts(opts.Legend{Show: opts.Bool(false)}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true), Trigger: "axis"}),
		charts.WithXAxisOpts(opts.XAxis{AxisLabel: &opts.AxisLabel{Color: colorTextSecondary, Rotate: 40}}),
		charts.WithYAxisOpts(opts.YAxis{
			AxisLabel: &opts.AxisLabel{Show: opts.Bool(true), Color: colorTextSecondary},
			SplitLine: &opts.SplitLine{Show: opts.Bool(true), LineStyle: &opts.LineStyle{Color: colorTextSecondary, Opacity: opts.Float(0.15)}},
		}),
	)
	xAxis := make([]string, len(input.Trades))
	data := make([]opts.BarData, len(input.Trades))
	for i, t := range input.Trades {
		label := formatTS(t.TS) + " " + t.Side
		if !t.Final {
			label += " (partial)"
		}
		xAxis[i] = label
		color := colorLoss
		if t.PnL >= 0 {
			color = colorWin
		}
		data[i] = opts.BarData{
			Value:     round(t.PnL, 2),
			ItemStyle: &opts.ItemStyle{Color: color, Opacity: opts.Float(0.8)},
		}
	}
	bar.SetXAxis(xAxis)
	bar.AddSeries("PnL", data)
	return bar
}

func equityXAxis(points []EquityPoint) []string {
	x := make([]string, len(points))
	for i, p := range points {
		x[i] = formatTS(p.TS)
	}
	return x
}

func formatTS(ts int64) string {
	return time.UnixMilli(ts).UTC().Format("01-02 15:04")
}

func round(val float64, decimals int) float64 {
	scale := math.Pow10(decimals)
	return math.Round(val*scale) / scale
}
