package report

import (
	"errors"
	"io"
	"os"
	"path/filepath"
	"strconv"

	"github.com/go-echarts/go-echarts/v2/charts"
	"github.com/go-echarts/go-echarts/v2/opts"

	"wordvec/internal/domain"
)

// NLLChart renders the checkpoint losses as an HTML line chart. The x axis
// counts checkpoints, each covering interval processed positions.
func NLLChart(w io.Writer, checkpoints []domain.Checkpoint, interval int) error {
	if len(checkpoints) == 0 {
		return errors.New("no checkpoints to plot")
	}
	line := charts.NewLine()
	line.SetGlobalOptions(
		charts.WithInitializationOpts(opts.Initialization{PageTitle: "wordvec training"}),
		charts.WithTitleOpts(opts.Title{
			Title:    "Negative log-likelihood",
			Subtitle: "one point every " + strconv.Itoa(interval) + " positions",
		}),
		charts.WithXAxisOpts(opts.XAxis{Name: "checkpoint"}),
		charts.WithYAxisOpts(opts.YAxis{Name: "nll"}),
		charts.WithTooltipOpts(opts.Tooltip{Trigger: "axis"}),
	)
	xs := make([]string, len(checkpoints))
	ys := make([]opts.LineData, len(checkpoints))
	for i, cp := range checkpoints {
		xs[i] = strconv.Itoa(i + 1)
		ys[i] = opts.LineData{Value: cp.NLL, Name: "epoch " + strconv.Itoa(cp.Epoch)}
	}
	line.SetXAxis(xs).AddSeries("nll", ys)
	return line.Render(w)
}

// WriteNLLChart renders the chart into path.
func WriteNLLChart(path string, checkpoints []domain.Checkpoint, interval int) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := NLLChart(f, checkpoints, interval); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}
