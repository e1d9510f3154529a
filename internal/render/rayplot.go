// Package render turns ray traces into images and charts.
package render

import (
	"bytes"
	"fmt"
	"image/color"
	"math"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"

	"github.com/einzel-data/focal.report/internal/lens"
)

// RayPlotPNG renders the electron ray polyline as a PNG: the trace in green,
// the optical axis in grey, and a dashed vertical marker at each aperture
// labelled with its plate voltage. points must be non-empty and voltages must
// hold at least one entry per aperture after the base voltage.
func RayPlotPNG(stack *lens.Stack, points []lens.TracePoint, voltages []float64) ([]byte, error) {
	if len(points) == 0 {
		return nil, fmt.Errorf("no trace points to plot")
	}

	p := plot.New()
	p.Title.Text = "Electron ray trace"
	p.X.Label.Text = "distance into the system (m)"
	p.Y.Label.Text = "vertical distance (m)"

	// Vertical range covering the ray and the axis, padded so aperture
	// markers do not sit on the frame. Non-finite offsets (stopped
	// electrons) are skipped rather than blowing up the scale.
	minY, maxY := 0.0, 0.0
	xys := make(plotter.XYs, 0, len(points))
	for _, pt := range points {
		if math.IsNaN(pt.Offset) || math.IsInf(pt.Offset, 0) {
			continue
		}
		xys = append(xys, plotter.XY{X: pt.Depth, Y: pt.Offset})
		minY = math.Min(minY, pt.Offset)
		maxY = math.Max(maxY, pt.Offset)
	}
	if len(xys) == 0 {
		return nil, fmt.Errorf("no finite trace points to plot")
	}
	pad := 0.05 * (maxY - minY)
	if pad == 0 {
		pad = 1e-9
	}
	minY -= pad
	maxY += pad

	totalDepth := stack.TotalDepth()

	axis, err := plotter.NewLine(plotter.XYs{{X: 0, Y: 0}, {X: totalDepth, Y: 0}})
	if err != nil {
		return nil, err
	}
	axis.Color = color.RGBA{R: 128, G: 128, B: 128, A: 255}
	axis.Width = vg.Points(1)
	p.Add(axis)
	p.Legend.Add("Optical axis", axis)

	depth := 0.0
	for i, spacing := range stack.Spacings() {
		depth += spacing
		marker, err := plotter.NewLine(plotter.XYs{{X: depth, Y: minY}, {X: depth, Y: maxY}})
		if err != nil {
			return nil, err
		}
		marker.Color = color.RGBA{R: 80, G: 80, B: 160, A: 160}
		marker.Width = vg.Points(1)
		marker.Dashes = []vg.Length{vg.Points(2), vg.Points(4)}
		p.Add(marker)
		if i+1 < len(voltages) {
			p.Legend.Add(fmt.Sprintf("Aperture %d, %gV", i+1, voltages[i+1]), marker)
		}
	}

	ray, err := plotter.NewLine(xys)
	if err != nil {
		return nil, err
	}
	ray.Color = color.RGBA{R: 34, G: 139, B: 34, A: 255}
	ray.Width = vg.Points(1.5)
	p.Add(ray)
	p.Legend.Add("Electron ray", ray)

	p.Legend.Top = true
	p.Legend.Left = false
	p.Legend.XOffs = -10
	p.Legend.YOffs = -10

	w, err := p.WriterTo(10*vg.Inch, 6*vg.Inch, "png")
	if err != nil {
		return nil, fmt.Errorf("render ray plot: %w", err)
	}
	var buf bytes.Buffer
	if _, err := w.WriteTo(&buf); err != nil {
		return nil, fmt.Errorf("write ray plot: %w", err)
	}
	return buf.Bytes(), nil
}
