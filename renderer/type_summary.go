package renderer

import (
	"github.com/etnz/backtest"
	"github.com/etnz/backtest/date"
)

// Summary is the headline of a simulation report.
// Numbers are kept in their exact types (Money, Percent) so that they already
// carry their renderers.
type Summary struct {
	Start, Finish   date.Date
	Assets          []string
	InitialCash     backtest.Money
	Rebalance       string
	StopLoss        bool
	StopLossPercent backtest.Percent
	SafeHaven       string

	StartValue  backtest.Money
	EndValue    backtest.Money
	TotalReturn backtest.Percent
	CAGR        backtest.Percent
	Volatility  backtest.Percent
	MaxDrawdown backtest.Percent

	Trades       int
	Rebalancings int
}

// NewSummary collects the summary of a finished simulation.
func NewSummary(r *backtest.Result, p backtest.Performance) *Summary {
	cfg := r.Config
	percent := cfg.StopLossPercent
	if percent == 0 {
		percent = backtest.DefaultStopLossPercent
	}
	return &Summary{
		Start:           r.Range.From,
		Finish:          r.Range.To,
		Assets:          r.Strategy,
		InitialCash:     backtest.M(cfg.Cash, cfg.Currency),
		Rebalance:       cfg.RebalanceMode().String(),
		StopLoss:        cfg.StopLoss,
		StopLossPercent: backtest.Percent(100 * percent),
		SafeHaven:       cfg.SafeHaven,
		StartValue:      p.StartValue,
		EndValue:        p.EndValue,
		TotalReturn:     p.TotalReturn,
		CAGR:            p.CAGR,
		Volatility:      p.Volatility,
		MaxDrawdown:     p.MaxDrawdown,
		Trades:          len(r.Log.Trades()),
		Rebalancings:    len(r.Log.Rebalancings()),
	}
}
