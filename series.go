package backtest

import "github.com/etnz/backtest/date"

// Series is the raw price history of a single asset as delivered by a price source.
type Series struct {
	Ticker string
	Prices date.History[float64]
}

// NewSeries returns an empty series for ticker.
func NewSeries(ticker string) *Series { return &Series{Ticker: ticker} }

// Append adds a daily price to the series.
func (s *Series) Append(on date.Date, price float64) *Series {
	s.Prices.Append(on, price)
	return s
}
