package perf

import (
	"fmt"
	"io"

	"github.com/aybabtme/uniplot/histogram"
	"github.com/olekukonko/tablewriter"
	"gonum.org/v1/gonum/stat"
)

// WriteReport prints a human-readable performance summary: the score table,
// a bootstrapped render-time interval, and a frame-interval histogram.
func WriteReport(w io.Writer, report Report) error {
	table := tablewriter.NewWriter(w)
	table.SetHeader([]string{"Metric", "Value"})
	table.Append([]string{"Score", fmt.Sprintf("%.0f / 100", report.Score)})
	table.Append([]string{"Avg Frame Rate", fmt.Sprintf("%.1f fps", report.AvgFrameRate)})
	table.Append([]string{"Avg Render Time", report.AvgRenderTime.String()})
	table.Append([]string{"Memory", fmt.Sprintf("%.1f%%", report.MemoryPercent)})

	if len(report.RenderSamples) > 1 {
		interval := Bootstrap(report.RenderSamples, func(samples []float64) float64 {
			return stat.Mean(samples, nil)
		}, 500, 0.95)
		table.Append([]string{
			"Render Time 95% CI",
			fmt.Sprintf("%.2fms - %.2fms", interval.Lower, interval.Upper),
		})
	}
	table.Render()

	if len(report.FrameSamples) > 1 {
		fmt.Fprintln(w, "Frame intervals (ms):")
		hist := histogram.Hist(9, report.FrameSamples)
		return histogram.Fprint(w, hist, histogram.Linear(40))
	}
	return nil
}
