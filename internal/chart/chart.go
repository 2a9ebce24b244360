// Package chart renders the analytics series as PNG files.
package chart

import (
	"errors"
	"image/color"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"

	"github.com/breadwinner/stock-tracer/internal/analytics"
	"github.com/breadwinner/stock-tracer/internal/models"
)

// ErrNoData reports an attempt to render an empty series.
var ErrNoData = errors.New("no closed trades to plot")

var (
	lineBlue  = color.RGBA{R: 0, G: 128, B: 255, A: 255}
	winGreen  = color.RGBA{R: 22, G: 163, B: 74, A: 255}
	lossRed   = color.RGBA{R: 220, G: 38, B: 38, A: 255}
	barWidth  = vg.Points(20)
	plotSizeW = 8 * vg.Inch
	plotSizeH = 4 * vg.Inch
)

// RenderEquityCurve draws cumulative realized P&L over close dates and
// saves it as a PNG at path.
func RenderEquityCurve(points []analytics.EquityPoint, path string) error {
	if len(points) == 0 {
		return ErrNoData
	}

	p := plot.New()
	p.Title.Text = "Equity Curve"
	p.X.Label.Text = "Close Date"
	p.Y.Label.Text = "Cumulative P&L"
	p.X.Tick.Marker = plot.TimeTicks{Format: models.DateFormat}
	p.Add(plotter.NewGrid())

	pts := make(plotter.XYs, len(points))
	for i, ep := range points {
		pts[i].X = float64(ep.Date.Time().Unix())
		pts[i].Y, _ = ep.Cumulative.Float64()
	}

	line, markers, err := plotter.NewLinePoints(pts)
	if err != nil {
		return err
	}
	line.Color = lineBlue
	line.Width = vg.Points(2)
	markers.GlyphStyle.Color = lineBlue

	p.Add(line, markers)
	return p.Save(plotSizeW, plotSizeH, path)
}

// RenderPnLBars draws one bar per closed trade, wins and losses in
// different colors, and saves it as a PNG at path.
func RenderPnLBars(bars []analytics.PnLBar, path string) error {
	if len(bars) == 0 {
		return ErrNoData
	}

	p := plot.New()
	p.Title.Text = "Per-Trade P&L"
	p.Y.Label.Text = "P&L"
	p.Add(plotter.NewGrid())

	// Two overlaid charts, one per color; each position is nonzero in
	// exactly one of them.
	wins := make(plotter.Values, len(bars))
	losses := make(plotter.Values, len(bars))
	labels := make([]string, len(bars))
	for i, b := range bars {
		v, _ := b.PnL.Float64()
		if b.Win {
			wins[i] = v
		} else {
			losses[i] = v
		}
		labels[i] = b.Label
	}

	winBars, err := plotter.NewBarChart(wins, barWidth)
	if err != nil {
		return err
	}
	winBars.Color = winGreen

	lossBars, err := plotter.NewBarChart(losses, barWidth)
	if err != nil {
		return err
	}
	lossBars.Color = lossRed

	p.Add(winBars, lossBars)
	p.NominalX(labels...)
	return p.Save(plotSizeW, plotSizeH, path)
}
