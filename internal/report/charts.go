package report

import (
	"fmt"
	"io"
	"math"

	"github.com/go-echarts/go-echarts/v2/charts"
	"github.com/go-echarts/go-echarts/v2/components"
	"github.com/go-echarts/go-echarts/v2/opts"
	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/plotutil"
	"gonum.org/v1/plot/vg"
)

// thresholds returns the union of AP thresholds over classes in first-seen order.
func (r *Report) thresholds() []string {
	var out []string
	seen := make(map[string]bool)
	for _, c := range r.Classes {
		for _, t := range r.Thresholds(c) {
			if !seen[t] {
				seen[t] = true
				out = append(out, t)
			}
		}
	}
	return out
}

// apSeries returns AP×100 per class for threshold. Classes without the
// threshold and non-finite values contribute zero.
func (r *Report) apSeries(threshold string) []float64 {
	out := make([]float64, len(r.Classes))
	for i, c := range r.Classes {
		if v, ok := r.AP(c, threshold); ok && !math.IsNaN(v) && !math.IsInf(v, 0) {
			out[i] = v * 100
		}
	}
	return out
}

// PlotAP writes a PNG of per-class AP grouped by distance threshold.
func PlotAP(r *Report, path string) error {
	if len(r.Classes) == 0 {
		return fmt.Errorf("plot AP: report has no classes")
	}
	p := plot.New()
	p.Title.Text = fmt.Sprintf("Nusc %s AP by class", r.Version)
	p.Y.Label.Text = "AP (%)"
	p.Y.Min = 0
	p.Y.Max = 100

	thresholds := r.thresholds()
	w := vg.Points(60 / float64(max(len(thresholds), 1)))
	for i, t := range thresholds {
		bars, err := plotter.NewBarChart(plotter.Values(r.apSeries(t)), w)
		if err != nil {
			return fmt.Errorf("plot AP threshold %s: %w", t, err)
		}
		bars.LineStyle.Width = vg.Length(0)
		bars.Color = plotutil.Color(i)
		bars.Offset = w * vg.Length(float64(i)-float64(len(thresholds)-1)/2)
		p.Add(bars)
		p.Legend.Add(DistPrefix+t, bars)
	}
	p.Legend.Top = true
	p.NominalX(r.Classes...)

	width := vg.Length(2+len(r.Classes)) * vg.Inch
	if err := p.Save(width, 5*vg.Inch, path); err != nil {
		return fmt.Errorf("save AP plot %s: %w", path, err)
	}
	return nil
}

// RenderHTML writes an interactive bar chart page of per-class AP.
func RenderHTML(r *Report, w io.Writer) error {
	bar := charts.NewBar()
	bar.SetGlobalOptions(
		charts.WithInitializationOpts(opts.Initialization{PageTitle: "UDI Evaluation", Width: "100%", Height: "720px"}),
		charts.WithTitleOpts(opts.Title{Title: fmt.Sprintf("Nusc %s Evaluation", r.Version), Subtitle: "AP (%) by class and distance threshold"}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true)}),
		charts.WithLegendOpts(opts.Legend{Show: opts.Bool(true)}),
	)
	bar.SetXAxis(r.Classes)
	for _, t := range r.thresholds() {
		series := r.apSeries(t)
		data := make([]opts.BarData, len(series))
		for i, v := range series {
			data[i] = opts.BarData{Value: fmt.Sprintf("%.2f", v)}
		}
		bar.AddSeries(DistPrefix+t, data)
	}

	page := components.NewPage()
	page.AddCharts(bar)
	if err := page.Render(w); err != nil {
		return fmt.Errorf("render report page: %w", err)
	}
	return nil
}
