package backtest

import (
	"errors"
	"math"

	"github.com/etnz/backtest/date"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"
)

// Performance summarizes a simulation from its total value (assets and cash) over time.
type Performance struct {
	Start, End           date.Date
	StartValue, EndValue Money
	TotalReturn          Percent
	CAGR                 Percent // compound annual growth rate over calendar years.
	Volatility           Percent // annualized standard deviation of daily returns.
	MaxDrawdown          Percent // largest peak to trough drop.
	TradeDaysPerYear     float64 // mean number of trading days per year, used to annualize.
}

// NewPerformance computes the performance of a finished simulation.
func NewPerformance(r *Result) (Performance, error) {
	var days []date.Date
	var values []float64
	var first, last *Entry
	for on, e := range r.History.Values() {
		if !e.Aggregated {
			continue
		}
		if first == nil {
			first = e
		}
		last = e
		days = append(days, on)
		values = append(values, e.Total().AsFloat())
	}
	if len(values) < 2 {
		return Performance{}, errors.New("not enough valuations to compute a performance")
	}
	if values[0] <= 0 {
		return Performance{}, errors.New("initial portfolio value is not positive")
	}

	p := Performance{
		Start:      days[0],
		End:        days[len(days)-1],
		StartValue: first.Total(),
		EndValue:   last.Total(),
	}

	growth := values[len(values)-1] / values[0]
	p.TotalReturn = Percent(100 * (growth - 1))
	if years := float64(p.End.Sub(p.Start)) / 365.25; years > 0 && growth > 0 {
		p.CAGR = Percent(100 * (math.Pow(growth, 1/years) - 1))
	}

	returns := make([]float64, 0, len(values)-1)
	for i := 1; i < len(values); i++ {
		if values[i-1] > 0 {
			returns = append(returns, values[i]/values[i-1]-1)
		}
	}

	counts := make([]float64, 0)
	perYear := r.Calendar.TradeDaysPerYear()
	for y := p.Start.Year(); y <= p.End.Year(); y++ {
		if n, ok := perYear[y]; ok {
			counts = append(counts, float64(n))
		}
	}
	if len(counts) > 0 {
		p.TradeDaysPerYear = stat.Mean(counts, nil)
	}
	if len(returns) > 1 {
		p.Volatility = Percent(100 * stat.StdDev(returns, nil) * math.Sqrt(p.TradeDaysPerYear))
	}

	drawdowns := make([]float64, len(values))
	peak := values[0]
	for i, v := range values {
		peak = math.Max(peak, v)
		if peak > 0 {
			drawdowns[i] = 1 - v/peak
		}
	}
	p.MaxDrawdown = Percent(100 * floats.Max(drawdowns))
	return p, nil
}
