package report

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"math"
	"strings"

	"github.com/KaramelBytes/tumorstat/internal/analysis"
	"github.com/KaramelBytes/tumorstat/internal/pipeline"
	"github.com/KaramelBytes/tumorstat/internal/utils"
	chart "github.com/wcharczuk/go-chart/v2"
	"github.com/wcharczuk/go-chart/v2/drawing"
)

// ChartOptions sizes the rendered PNGs.
type ChartOptions struct {
	Width  int
	Height int
}

// DefaultChartOptions returns the default canvas size.
func DefaultChartOptions() ChartOptions {
	return ChartOptions{Width: 1024, Height: 640}
}

// Artifact is a file written by the reporter.
type Artifact struct {
	Kind  string `yaml:"kind" json:"kind"`
	Title string `yaml:"title" json:"title"`
	Path  string `yaml:"path" json:"path"`
}

type renderable interface {
	Render(rp chart.RendererProvider, w io.Writer) error
}

type chartJob struct {
	kind  string
	file  string
	title string
	// build returns nil when the chart has no input.
	build func(title string) renderable
}

// RenderCharts writes one PNG per chart into dir. Charts whose input is empty
// are skipped. Render failures are joined into the returned error; charts that
// succeeded are still returned.
func RenderCharts(dir string, res *pipeline.Result, opt ChartOptions) ([]Artifact, error) {
	if opt.Width <= 0 || opt.Height <= 0 {
		opt = DefaultChartOptions()
	}
	jobs := []chartJob{
		{kind: "bar", file: "observations_per_regimen.png", title: "Observed Mouse Timepoints per Regimen",
			build: func(t string) renderable { return barChart(t, res.RegimenCounts, opt) }},
		{kind: "pie", file: "sex_distribution.png", title: "Sex Distribution",
			build: func(t string) renderable { return pieChart(t, res.SexCounts, opt) }},
		{kind: "box", file: "final_volume_boxplot.png", title: "Final Tumor Volume by Regimen",
			build: func(t string) renderable { return boxChart(t, res.Outliers, opt) }},
	}
	if ts := res.Series; ts != nil {
		jobs = append(jobs, chartJob{kind: "line", file: "timeseries_" + fileSafe(ts.SubjectID) + ".png",
			title: fmt.Sprintf("%s treatment of mouse %s", ts.Regimen, ts.SubjectID),
			build: func(t string) renderable { return lineChart(t, ts, opt) }})
	}
	if len(res.Averages) > 0 {
		jobs = append(jobs, chartJob{kind: "scatter", file: "weight_vs_volume.png", title: "Mouse Weight vs Average Tumor Volume",
			build: func(t string) renderable { return scatterChart(t, res.Averages, res.Regression, opt) }})
	}

	var out []Artifact
	var errs []error
	for _, j := range jobs {
		r := j.build(j.title)
		if r == nil {
			continue
		}
		var buf bytes.Buffer
		if err := r.Render(chart.PNG, &buf); err != nil {
			errs = append(errs, fmt.Errorf("render %s: %w", j.file, err))
			continue
		}
		p, err := utils.WriteInDir(dir, j.file, buf.Bytes())
		if err != nil {
			errs = append(errs, fmt.Errorf("write %s: %w", j.file, err))
			continue
		}
		out = append(out, Artifact{Kind: j.kind, Title: j.title, Path: p})
	}
	return out, errors.Join(errs...)
}

// pointStyle renders points only, no connecting line.
func pointStyle(col drawing.Color) chart.Style {
	return chart.Style{
		StrokeWidth: chart.Disabled,
		DotWidth:    5,
		DotColor:    col,
	}
}

func lineStyle(col drawing.Color) chart.Style {
	return chart.Style{StrokeColor: col, StrokeWidth: 2}
}

func padding() chart.Style {
	return chart.Style{Padding: chart.Box{Top: 48, Left: 20, Right: 20, Bottom: 20}}
}

// spanRange returns an explicit range around vals when they all coincide, and
// nil otherwise so go-chart picks the range from the data. go-chart refuses to
// draw a zero-width range.
func spanRange(vals ...float64) chart.Range {
	if len(vals) == 0 {
		return nil
	}
	lo, hi := vals[0], vals[0]
	for _, v := range vals[1:] {
		lo = math.Min(lo, v)
		hi = math.Max(hi, v)
	}
	if hi > lo {
		return nil
	}
	pad := math.Max(math.Abs(lo)*0.05, 1)
	return &chart.ContinuousRange{Min: lo - pad, Max: hi + pad}
}

func barChart(title string, counts []analysis.Count, opt ChartOptions) renderable {
	if len(counts) == 0 {
		return nil
	}
	bars := make([]chart.Value, len(counts))
	top := 1.0
	for i, c := range counts {
		bars[i] = chart.Value{Label: c.Label, Value: float64(c.Count)}
		top = math.Max(top, float64(c.Count))
	}
	width := (opt.Width - 120) / (2 * len(bars))
	if width > 60 {
		width = 60
	}
	if width < 4 {
		width = 4
	}
	return chart.BarChart{
		Title:      title,
		Width:      opt.Width,
		Height:     opt.Height,
		Background: padding(),
		BarWidth:   width,
		YAxis: chart.YAxis{
			Name:  "# of Observed Mouse Timepoints",
			Range: &chart.ContinuousRange{Min: 0, Max: top},
		},
		Bars: bars,
	}
}

func pieChart(title string, counts []analysis.Count, opt ChartOptions) renderable {
	total := 0
	for _, c := range counts {
		total += c.Count
	}
	if total == 0 {
		return nil
	}
	values := make([]chart.Value, len(counts))
	for i, c := range counts {
		values[i] = chart.Value{
			Label: fmt.Sprintf("%s %.1f%%", c.Label, float64(c.Count)*100/float64(total)),
			Value: float64(c.Count),
		}
	}
	return chart.PieChart{
		Title:  title,
		Width:  opt.Width,
		Height: opt.Height,
		Values: values,
	}
}

// boxChart draws one box per regimen at x=1..n from quartiles and whiskers,
// with outliers as dots.
func boxChart(title string, bounds []analysis.OutlierBounds, opt ChartOptions) renderable {
	if len(bounds) == 0 {
		return nil
	}
	const half = 0.25
	box := lineStyle(drawing.ColorFromHex("4c72b0"))
	median := lineStyle(chart.ColorOrange)
	var series []chart.Series
	var ys []float64
	// Unlabelled end ticks keep the x range wide when only one box is drawn.
	ticks := []chart.Tick{{Value: 0.5}}
	for i, b := range bounds {
		x := float64(i + 1)
		ticks = append(ticks, chart.Tick{Value: x, Label: b.Regimen})
		ys = append(ys, b.WhiskerLow, b.Q1, b.Q3, b.WhiskerHigh)
		series = append(series,
			chart.ContinuousSeries{
				XValues: []float64{x - half, x + half, x + half, x - half, x - half},
				YValues: []float64{b.Q1, b.Q1, b.Q3, b.Q3, b.Q1},
				Style:   box,
			},
			chart.ContinuousSeries{XValues: []float64{x - half, x + half}, YValues: []float64{b.Median, b.Median}, Style: median},
			chart.ContinuousSeries{XValues: []float64{x, x}, YValues: []float64{b.Q1, b.WhiskerLow}, Style: box},
			chart.ContinuousSeries{XValues: []float64{x, x}, YValues: []float64{b.Q3, b.WhiskerHigh}, Style: box},
			chart.ContinuousSeries{XValues: []float64{x - half/2, x + half/2}, YValues: []float64{b.WhiskerLow, b.WhiskerLow}, Style: box},
			chart.ContinuousSeries{XValues: []float64{x - half/2, x + half/2}, YValues: []float64{b.WhiskerHigh, b.WhiskerHigh}, Style: box},
		)
		if len(b.Outliers) > 0 {
			xs := make([]float64, len(b.Outliers))
			vs := make([]float64, len(b.Outliers))
			for k, o := range b.Outliers {
				xs[k], vs[k] = x, o.Volume
			}
			ys = append(ys, vs...)
			series = append(series, chart.ContinuousSeries{XValues: xs, YValues: vs, Style: pointStyle(chart.ColorRed)})
		}
	}
	ticks = append(ticks, chart.Tick{Value: float64(len(bounds)) + 0.5})
	return chart.Chart{
		Title:      title,
		Width:      opt.Width,
		Height:     opt.Height,
		Background: padding(),
		XAxis: chart.XAxis{
			Name:  "Drug Regimen",
			Range: &chart.ContinuousRange{Min: 0.5, Max: float64(len(bounds)) + 0.5},
			Ticks: ticks,
		},
		YAxis:  chart.YAxis{Name: "Final Tumor Volume (mm3)", Range: spanRange(ys...)},
		Series: series,
	}
}

func lineChart(title string, ts *analysis.TimeSeries, opt ChartOptions) renderable {
	if ts == nil || len(ts.Points) < 2 {
		return nil
	}
	xs := make([]float64, len(ts.Points))
	ys := make([]float64, len(ts.Points))
	for i, p := range ts.Points {
		xs[i], ys[i] = float64(p.Timepoint), p.Volume
	}
	style := lineStyle(chart.ColorBlue)
	style.DotWidth = 3
	style.DotColor = chart.ColorBlue
	return chart.Chart{
		Title:      title,
		Width:      opt.Width,
		Height:     opt.Height,
		Background: padding(),
		XAxis:      chart.XAxis{Name: "Timepoint (days)", Range: spanRange(xs...)},
		YAxis:      chart.YAxis{Name: "Tumor Volume (mm3)", Range: spanRange(ys...)},
		Series:     []chart.Series{chart.ContinuousSeries{Name: ts.SubjectID, XValues: xs, YValues: ys, Style: style}},
	}
}

func scatterChart(title string, avgs []analysis.SubjectAverage, reg *analysis.Regression, opt ChartOptions) renderable {
	if len(avgs) < 2 {
		return nil
	}
	xs := make([]float64, len(avgs))
	ys := make([]float64, len(avgs))
	lo, hi := math.Inf(1), math.Inf(-1)
	for i, a := range avgs {
		xs[i], ys[i] = a.Weight, a.Volume
		lo = math.Min(lo, a.Weight)
		hi = math.Max(hi, a.Weight)
	}
	series := []chart.Series{
		chart.ContinuousSeries{Name: "subjects", XValues: xs, YValues: ys, Style: pointStyle(chart.ColorBlue)},
	}
	if reg != nil {
		series = append(series, chart.ContinuousSeries{
			Name:    fmt.Sprintf("y = %.2fx + %.2f (r=%.2f)", reg.Slope, reg.Intercept, reg.R),
			XValues: []float64{lo, hi},
			YValues: []float64{reg.Predict(lo), reg.Predict(hi)},
			Style:   lineStyle(chart.ColorRed),
		})
	}
	ch := chart.Chart{
		Title:      title,
		Width:      opt.Width,
		Height:     opt.Height,
		Background: padding(),
		XAxis:      chart.XAxis{Name: "Weight (g)", Range: spanRange(xs...)},
		YAxis:      chart.YAxis{Name: "Average Tumor Volume (mm3)", Range: spanRange(ys...)},
		Series:     series,
	}
	ch.Elements = []chart.Renderable{chart.Legend(&ch)}
	return ch
}

func fileSafe(s string) string {
	return strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '-', r == '_':
			return r
		}
		return '_'
	}, s)
}
