package motility

import (
	"encoding/csv"
	"errors"
	"fmt"
	"image/color"
	"io"
	"math"
	"sort"
	"strconv"
	"strings"

	"gonum.org/v1/gonum/stat"
	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"
)

// Summary is the mean motility of the spines in one source file and its
// standard error.
type Summary struct {
	Source string  `json:"source_file"`
	Spines int     `json:"spines"`
	Mean   float64 `json:"mean"`
	SEM    float64 `json:"sem"`
}

// Summarize groups results by source file, sorted by source name. The SEM
// uses the sample standard deviation and is zero for a single spine.
func Summarize(results []Result) []Summary {
	groups := make(map[string][]float64)
	for _, r := range results {
		groups[r.Source] = append(groups[r.Source], r.Motility)
	}

	sources := make([]string, 0, len(groups))
	for src := range groups {
		sources = append(sources, src)
	}
	sort.Strings(sources)

	out := make([]Summary, 0, len(sources))
	for _, src := range sources {
		vals := groups[src]
		s := Summary{Source: src, Spines: len(vals), Mean: stat.Mean(vals, nil)}
		if len(vals) > 1 {
			s.SEM = stat.StdDev(vals, nil) / math.Sqrt(float64(len(vals)))
		}
		out = append(out, s)
	}
	return out
}

// ResultsHeader is the column layout written by WriteResults.
var ResultsHeader = []string{"spine_name", "source_file", "points", "motility"}

// WriteResults writes one CSV row per result.
func WriteResults(w io.Writer, results []Result) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(ResultsHeader); err != nil {
		return err
	}
	for _, r := range results {
		rec := []string{
			r.Spine,
			r.Source,
			strconv.Itoa(r.Points),
			strconv.FormatFloat(r.Motility, 'f', -1, 64),
		}
		if err := cw.Write(rec); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

// errorBars pairs bar positions with symmetric y errors.
type errorBars struct {
	plotter.XYs
	plotter.YErrors
}

var barColor = color.RGBA{R: 255, G: 192, B: 203, A: 255}

// PlotSummary draws one bar per source file, its height the mean motility
// and its error bar the SEM, and saves it to path. The image format follows
// the file extension.
func PlotSummary(path string, summaries []Summary, yLabel string) error {
	if len(summaries) == 0 {
		return errors.New("no summaries to plot")
	}

	p := plot.New()
	p.Y.Label.Text = yLabel

	values := make(plotter.Values, len(summaries))
	points := errorBars{
		XYs:     make(plotter.XYs, len(summaries)),
		YErrors: make(plotter.YErrors, len(summaries)),
	}
	names := make([]string, len(summaries))
	top, bottom := 0.0, 0.0
	for i, s := range summaries {
		values[i] = s.Mean
		points.XYs[i] = plotter.XY{X: float64(i), Y: s.Mean}
		points.YErrors[i].Low = s.SEM
		points.YErrors[i].High = s.SEM
		names[i] = strings.TrimSuffix(s.Source, ".csv")
		top = math.Max(top, s.Mean+s.SEM)
		bottom = math.Min(bottom, s.Mean-s.SEM)
	}

	bars, err := plotter.NewBarChart(values, vg.Points(30))
	if err != nil {
		return fmt.Errorf("failed to build bar chart: %w", err)
	}
	bars.Color = barColor
	bars.LineStyle.Width = vg.Points(2)
	p.Add(bars)

	errs, err := plotter.NewYErrorBars(points)
	if err != nil {
		return fmt.Errorf("failed to build error bars: %w", err)
	}
	errs.CapWidth = vg.Points(10)
	errs.LineStyle.Width = vg.Points(1.5)
	p.Add(errs)

	p.NominalX(names...)
	p.Y.Min = bottom * 1.3
	if top > 0 {
		p.Y.Max = top * 1.3
	}

	width := vg.Length(math.Max(4, float64(len(summaries))*1.2)) * vg.Inch
	if err := p.Save(width, 4*vg.Inch, path); err != nil {
		return fmt.Errorf("failed to save chart: %w", err)
	}
	return nil
}
