package motility

import (
	"errors"
	"fmt"
	"io"

	"github.com/go-echarts/go-echarts/v2/charts"
	"github.com/go-echarts/go-echarts/v2/components"
	"github.com/go-echarts/go-echarts/v2/opts"
)

// RenderHTML writes an interactive page with two bar charts: the mean and SEM
// of each file, and every spine's motility grouped by file.
func RenderHTML(w io.Writer, results []Result, summaries []Summary, yLabel string) error {
	if len(summaries) == 0 {
		return errors.New("no summaries to plot")
	}

	sources := make([]string, len(summaries))
	means := make([]opts.BarData, len(summaries))
	sems := make([]opts.BarData, len(summaries))
	for i, s := range summaries {
		sources[i] = s.Source
		means[i] = opts.BarData{Name: fmt.Sprintf("%s (n=%d)", s.Source, s.Spines), Value: s.Mean}
		sems[i] = opts.BarData{Value: s.SEM}
	}

	summary := charts.NewBar()
	summary.SetGlobalOptions(
		charts.WithInitializationOpts(opts.Initialization{PageTitle: "Spine motility", Width: "100%", Height: "480px"}),
		charts.WithTitleOpts(opts.Title{Title: "Mean motility per file", Subtitle: "error bars: SEM"}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true)}),
		charts.WithYAxisOpts(opts.YAxis{Name: yLabel}),
	)
	summary.SetXAxis(sources).
		AddSeries("mean", means, charts.WithLabelOpts(opts.Label{Show: opts.Bool(true), Position: "top"})).
		AddSeries("sem", sems)

	spines := charts.NewBar()
	spines.SetGlobalOptions(
		charts.WithInitializationOpts(opts.Initialization{Width: "100%", Height: "480px"}),
		charts.WithTitleOpts(opts.Title{Title: "Motility per spine"}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true)}),
		charts.WithYAxisOpts(opts.YAxis{Name: yLabel}),
	)
	var labels []string
	data := make([]opts.BarData, 0, len(results))
	for _, r := range results {
		labels = append(labels, r.Source+"/"+r.Spine)
		data = append(data, opts.BarData{Value: r.Motility})
	}
	spines.SetXAxis(labels).AddSeries("motility", data)

	page := components.NewPage()
	page.PageTitle = "Spine motility"
	page.AddCharts(summary, spines)
	if err := page.Render(w); err != nil {
		return fmt.Errorf("failed to render chart: %w", err)
	}
	return nil
}
