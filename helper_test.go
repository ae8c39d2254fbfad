package backtest

import (
	"context"
	"fmt"

	"github.com/etnz/backtest/date"
)

// RUB is a helper for test to create ruble money from const
func RUB(v float64) Money { return M(v, "RUB") }

// NO is a helper for test to create money from const with no currency set
func NO(v float64) Money { return M(v, "") }

// day is a helper for test to parse a date from const
func day(s string) date.Date { return date.MustParse(s) }

// newTestSeries builds a series from alternating date strings and prices.
func newTestSeries(ticker string, points ...any) *Series {
	s := NewSeries(ticker)
	for i := 0; i+1 < len(points); i += 2 {
		s.Append(day(points[i].(string)), points[i+1].(float64))
	}
	return s
}

// memorySource serves series kept in memory, by ticker.
type memorySource map[string]*Series

func (m memorySource) Series(ctx context.Context, asset AssetInfo) (*Series, error) {
	s, ok := m[asset.Ticker]
	if !ok {
		return nil, fmt.Errorf("no series for %s", asset.Ticker)
	}
	return s, nil
}
