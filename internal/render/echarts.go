package render

import (
	"bytes"
	"fmt"

	"github.com/go-echarts/go-echarts/v2/charts"
	"github.com/go-echarts/go-echarts/v2/opts"

	"github.com/einzel-data/focal.report/internal/lens"
)

// maxChartPoints bounds the payload size of the interactive chart; denser
// traces are downsampled by stride.
const maxChartPoints = 2000

// RayChartHTML renders the ray trace as a self-contained interactive
// go-echarts line chart.
func RayChartHTML(stack *lens.Stack, points []lens.TracePoint, voltages []float64) ([]byte, error) {
	if len(points) == 0 {
		return nil, fmt.Errorf("no trace points to chart")
	}

	stride := 1
	if len(points) > maxChartPoints {
		stride = (len(points) + maxChartPoints - 1) / maxChartPoints
	}

	data := make([]opts.LineData, 0, len(points)/stride+1)
	for i := 0; i < len(points); i += stride {
		pt := points[i]
		data = append(data, opts.LineData{Value: []interface{}{pt.Depth, pt.Offset}})
	}

	line := charts.NewLine()
	line.SetGlobalOptions(
		charts.WithInitializationOpts(opts.Initialization{
			PageTitle: "Electron ray trace",
			Theme:     "dark",
			Width:     "900px",
			Height:    "500px",
		}),
		charts.WithTitleOpts(opts.Title{
			Title:    "Electron ray trace",
			Subtitle: fmt.Sprintf("apertures=%d samples=%d stride=%d", stack.NumApertures(), len(data), stride),
		}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true)}),
		charts.WithXAxisOpts(opts.XAxis{Type: "value", Name: "depth (m)", NameLocation: "middle", NameGap: 25}),
		charts.WithYAxisOpts(opts.YAxis{Type: "value", Name: "offset (m)", NameLocation: "middle", NameGap: 40}),
	)

	line.AddSeries("electron ray", data,
		charts.WithLineChartOpts(opts.LineChart{ShowSymbol: opts.Bool(false)}))

	var buf bytes.Buffer
	if err := line.Render(&buf); err != nil {
		return nil, fmt.Errorf("render ray chart: %w", err)
	}
	return buf.Bytes(), nil
}
