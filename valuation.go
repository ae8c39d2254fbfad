package backtest

import (
	"iter"
	"slices"

	"github.com/etnz/backtest/date"
)

// Valuation is the value of a position on a given day.
type Valuation struct {
	PricePerItem Money
	Quantity     Quantity
	PriceTotal   Money
}

// Entry is the valuation of the whole portfolio on a given day.
type Entry struct {
	On     date.Date
	Assets map[string]Valuation
	// AllAssets is the sum of PriceTotal over the strategy assets, cash excluded.
	AllAssets Money
	// Cash is the cash balance when AllAssets was computed.
	Cash       Money
	Aggregated bool
}

// Total returns the aggregated assets value plus cash.
func (e *Entry) Total() Money { return e.AllAssets.Add(e.Cash) }

// Snapshot returns the valuations of the strategy tickers present in the entry.
func (e *Entry) Snapshot(strategy []string) map[string]Valuation {
	snapshot := make(map[string]Valuation, len(strategy))
	for _, ticker := range strategy {
		if v, ok := e.Assets[ticker]; ok {
			snapshot[ticker] = v
		}
	}
	return snapshot
}

// History is the append-only valuation history of a simulation.
//
// Days are kept in the order they were first written, which is chronological
// during a simulation.
type History struct {
	days    []date.Date
	entries map[date.Date]*Entry
}

// NewHistory returns an empty history.
func NewHistory() *History {
	return &History{entries: make(map[date.Date]*Entry)}
}

// entry returns the entry of day on, creating it if needed.
func (h *History) entry(on date.Date) *Entry {
	e, ok := h.entries[on]
	if !ok {
		e = &Entry{On: on, Assets: make(map[string]Valuation)}
		h.entries[on] = e
		h.days = append(h.days, on)
	}
	return e
}

// Record writes the valuation of ticker on day on.
func (h *History) Record(on date.Date, ticker string, price Money, q Quantity) {
	h.entry(on).Assets[ticker] = Valuation{
		PricePerItem: price,
		Quantity:     q,
		PriceTotal:   price.Mul(q),
	}
}

// Aggregate computes the all assets value of day on over the strategy tickers.
func (h *History) Aggregate(on date.Date, strategy []string, cash Money) Money {
	e := h.entry(on)
	total := M(0, cash.Currency())
	for _, ticker := range strategy {
		if v, ok := e.Assets[ticker]; ok {
			total = total.Add(v.PriceTotal)
		}
	}
	e.AllAssets, e.Cash, e.Aggregated = total, cash, true
	return total
}

// Get returns the entry of day on.
func (h *History) Get(on date.Date) (*Entry, bool) {
	e, ok := h.entries[on]
	return e, ok
}

// Len returns the number of recorded days.
func (h *History) Len() int { return len(h.days) }

// Dates returns the recorded days in recording order.
func (h *History) Dates() []date.Date { return slices.Clone(h.days) }

// First returns the first recorded entry, or nil.
func (h *History) First() *Entry {
	if len(h.days) == 0 {
		return nil
	}
	return h.entries[h.days[0]]
}

// Last returns the last recorded entry, or nil.
func (h *History) Last() *Entry {
	if len(h.days) == 0 {
		return nil
	}
	return h.entries[h.days[len(h.days)-1]]
}

// Values returns an iterator over the entries in recording order.
func (h *History) Values() iter.Seq2[date.Date, *Entry] {
	return func(yield func(date.Date, *Entry) bool) {
		for _, on := range h.days {
			if !yield(on, h.entries[on]) {
				return
			}
		}
	}
}
