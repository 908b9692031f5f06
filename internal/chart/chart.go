// Package chart renders the flown mission as a standalone HTML page:
// the flight path as a line and the findings as a severity-colored
// scatter overlay.
package chart

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/go-echarts/go-echarts/v2/charts"
	"github.com/go-echarts/go-echarts/v2/opts"

	"github.com/skyspect/inspection/internal/config"
	"github.com/skyspect/inspection/pkg/core"
)

// Render writes the mission chart and returns the output path.
func Render(cfg config.ChartConfig, mission *core.Mission, ticks []core.TickRecord, anomalies []core.Anomaly) (string, error) {
	if len(ticks) == 0 {
		return "", fmt.Errorf("no tick records to chart")
	}

	line := charts.NewLine()
	line.SetGlobalOptions(
		charts.WithInitializationOpts(opts.Initialization{
			PageTitle: mission.Name,
			Width:     "900px",
			Height:    "600px",
		}),
		charts.WithTitleOpts(opts.Title{
			Title:    fmt.Sprintf("Inspection: %s", mission.Name),
			Subtitle: fmt.Sprintf("site=%s ticks=%d anomalies=%d", mission.Site.Name, len(ticks), len(anomalies)),
		}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true)}),
		charts.WithXAxisOpts(opts.XAxis{Name: "X (m)", Type: "value"}),
		charts.WithYAxisOpts(opts.YAxis{Name: "Y (m)", Type: "value"}),
	)

	pathData := make([]opts.LineData, 0, len(ticks))
	for _, rec := range ticks {
		pathData = append(pathData, opts.LineData{Value: []any{rec.Position.X, rec.Position.Y}})
	}
	line.AddSeries("flight path", pathData,
		charts.WithLineChartOpts(opts.LineChart{ShowSymbol: opts.Bool(true)}))

	// One scatter series per severity so each gets its own color and
	// legend entry.
	scatter := charts.NewScatter()
	for _, sev := range core.Severities {
		data := make([]opts.ScatterData, 0)
		for _, a := range anomalies {
			if a.Severity != sev {
				continue
			}
			data = append(data, opts.ScatterData{
				Value: []any{a.Position.X, a.Position.Y, a.Confidence},
			})
		}
		if len(data) == 0 {
			continue
		}
		scatter.AddSeries(string(sev), data,
			charts.WithScatterChartOpts(opts.ScatterChart{SymbolSize: 10}))
	}
	line.Overlap(scatter)

	if err := os.MkdirAll(cfg.OutputDir, 0755); err != nil {
		return "", fmt.Errorf("failed to create chart directory: %w", err)
	}

	name := strings.ReplaceAll(mission.Name, " ", "_")
	name = strings.ReplaceAll(name, ":", "_")
	outputPath := filepath.Join(cfg.OutputDir, fmt.Sprintf("%s_%s.html", name, mission.StartTime.Format("20060102_150405")))

	f, err := os.Create(outputPath)
	if err != nil {
		return "", fmt.Errorf("failed to create chart file: %w", err)
	}
	defer f.Close()

	if err := line.Render(f); err != nil {
		return "", fmt.Errorf("failed to render chart: %w", err)
	}
	return outputPath, nil
}
