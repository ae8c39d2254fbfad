package renderer

import (
	"errors"
	"fmt"
	"math"

	"github.com/etnz/backtest"
	"github.com/vicanso/go-charts/v2"
)

// Chart draws the value of each strategy asset and of the whole portfolio over time, as a PNG image.
func Chart(r *backtest.Result) ([]byte, error) {
	var labels []string
	names := append([]string{"ALL"}, r.Strategy...)
	values := make([][]float64, len(names))

	yMin, yMax := 0.0, 0.0
	for on, e := range r.History.Values() {
		if !e.Aggregated {
			continue
		}
		labels = append(labels, on.String())
		row := make([]float64, len(names))
		row[0] = e.Total().AsFloat()
		for i, ticker := range r.Strategy {
			if v, ok := e.Assets[ticker]; ok {
				row[i+1] = v.PriceTotal.AsFloat()
			}
		}
		for i, v := range row {
			values[i] = append(values[i], v)
			yMax = math.Max(yMax, v)
		}
	}
	if len(labels) < 2 {
		return nil, errors.New("not enough valuations to draw a chart")
	}
	if yMax <= yMin {
		yMax = yMin + 1
	}
	split := min(len(labels)-1, 10)

	painter, err := charts.LineRender(values,
		charts.TitleTextOptionFunc(fmt.Sprintf("Backtest %s to %s", r.Range.From, r.Range.To)),
		charts.XAxisOptionFunc(charts.XAxisOption{Data: labels, BoundaryGap: charts.FalseFlag(), SplitNumber: split}),
		charts.YAxisOptionFunc(charts.YAxisOption{Min: &yMin, Max: &yMax, DivideCount: 5}),
		charts.LegendOptionFunc(charts.LegendOption{Data: names}),
		charts.ThemeOptionFunc(charts.ThemeLight),
	)
	if err != nil {
		return nil, fmt.Errorf("cannot draw chart: %w", err)
	}
	return painter.Bytes()
}
