package backtest

import (
	"github.com/etnz/backtest/date"
	"github.com/shopspring/decimal"
)

// DefaultStopLossPercent is the drop, from the first price seen in a quarter, that triggers a stop-loss.
const DefaultStopLossPercent = 0.10

type stopKey struct {
	ticker  string
	year    int
	quarter int
}

// StopLoss holds the stop price of each asset for each quarter.
//
// A stop price is computed the first time it is queried in a quarter and then
// kept for the rest of the quarter, whatever the price does.
type StopLoss struct {
	ratio  decimal.Decimal // 1 - percent
	prices map[stopKey]Money
}

// NewStopLoss returns an empty stop-loss table placing stops percent (0.10 is 10%) below the price.
func NewStopLoss(percent float64) *StopLoss {
	return &StopLoss{
		ratio:  decimal.NewFromInt(1).Sub(decimal.NewFromFloat(percent)),
		prices: make(map[stopKey]Money),
	}
}

// Price returns the stop price of ticker for the quarter of on.
//
// current is the price of the asset on day on; it is only used when the stop
// price of that quarter has not been computed yet.
func (s *StopLoss) Price(ticker string, on date.Date, current Money) Money {
	key := stopKey{ticker: ticker, year: on.Year(), quarter: on.Quarter()}
	if stop, ok := s.prices[key]; ok {
		return stop
	}
	stop := M(current.value.Mul(s.ratio), current.cur)
	s.prices[key] = stop
	return stop
}

// Lookup returns the cached stop price of ticker for a given year and quarter.
func (s *StopLoss) Lookup(ticker string, year, quarter int) (Money, bool) {
	stop, ok := s.prices[stopKey{ticker: ticker, year: year, quarter: quarter}]
	return stop, ok
}
