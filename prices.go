package backtest

import (
	"slices"

	"github.com/etnz/backtest/date"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
)

// BackfillLimit is the number of calendar days a missing price is searched backward.
const BackfillLimit = 60

// PriceTable is the date -> ticker -> price lookup used by the simulation.
//
// It is built once and is read-only afterwards.
type PriceTable struct {
	cur     string
	days    []date.Date
	tickers []string
	cells   map[date.Date]map[string]decimal.Decimal
}

// NewPriceTable assembles the series on the trading days of cal.
//
// Prices on non trading days are ignored. Missing (day, ticker) cells are then
// filled with the most recent price found at most BackfillLimit calendar days
// before; cells with no such price remain missing.
func NewPriceTable(cal *Calendar, currency string, log zerolog.Logger, series ...*Series) *PriceTable {
	t := &PriceTable{
		cur:   currency,
		days:  cal.Dates(),
		cells: make(map[date.Date]map[string]decimal.Decimal, cal.Len()),
	}
	for _, on := range t.days {
		t.cells[on] = make(map[string]decimal.Decimal, len(series))
	}

	for _, s := range series {
		if !slices.Contains(t.tickers, s.Ticker) {
			t.tickers = append(t.tickers, s.Ticker)
		}
		for on, price := range s.Prices.Values() {
			if day, ok := t.cells[on]; ok {
				day[s.Ticker] = decimal.NewFromFloat(price)
			}
		}
	}

	// Ascending order: a filled cell can itself be the source of a later one.
	gaps := 0
	for _, on := range t.days {
		for _, ticker := range t.tickers {
			if _, ok := t.cells[on][ticker]; ok {
				continue
			}
			if price, ok := t.backfill(on, ticker); ok {
				t.cells[on][ticker] = price
				continue
			}
			gaps++
		}
	}
	if gaps > 0 {
		log.Debug().Int("cells", gaps).Int("limit", BackfillLimit).Msg("price gaps left after backfill")
	}
	return t
}

// backfill walks back day by day from on, looking for a table day with a price for ticker.
func (t *PriceTable) backfill(on date.Date, ticker string) (decimal.Decimal, bool) {
	for back := 1; back <= BackfillLimit; back++ {
		day, ok := t.cells[on.Add(-back)]
		if !ok {
			continue
		}
		if price, ok := day[ticker]; ok {
			return price, true
		}
	}
	return decimal.Decimal{}, false
}

// Price returns the price of ticker on day on.
func (t *PriceTable) Price(on date.Date, ticker string) (Money, bool) {
	price, ok := t.cells[on][ticker]
	if !ok {
		return Money{}, false
	}
	return M(price, t.cur), true
}

// Day returns all prices known on day on.
func (t *PriceTable) Day(on date.Date) map[string]Money {
	day := make(map[string]Money, len(t.cells[on]))
	for ticker, price := range t.cells[on] {
		day[ticker] = M(price, t.cur)
	}
	return day
}

// Dates returns the days of the table in ascending order.
func (t *PriceTable) Dates() []date.Date { return slices.Clone(t.days) }

// Tickers returns the tickers of the table in insertion order.
func (t *PriceTable) Tickers() []string { return slices.Clone(t.tickers) }
