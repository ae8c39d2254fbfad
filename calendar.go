package backtest

import (
	"errors"
	"fmt"
	"slices"
	"time"

	"github.com/etnz/backtest/date"
)

// ErrNoTradingDay is returned when a requested date cannot be resolved to a trading day.
var ErrNoTradingDay = errors.New("no trading day")

// Span is the first and last trading day of a period.
type Span struct {
	Min, Max date.Date
}

// KeyDates holds the boundary trading days of a year and of its quarters.
//
// A quarter is only populated when there was at least one trading day in its
// closing month (March, June, September or December).
type KeyDates struct {
	Year int
	Span
	Quarters [4]*Span
}

// Quarter returns the span of quarter q (1 to 4), or nil.
func (k *KeyDates) Quarter(q int) *Span {
	if q < 1 || q > 4 {
		return nil
	}
	return k.Quarters[q-1]
}

// Calendar is the authoritative, sorted set of trading days.
//
// A trading day is a day on which at least one of the reference series has a price.
type Calendar struct {
	days  []date.Date
	index map[date.Date]int
	years []*KeyDates // sorted by year
}

// NewCalendar builds the calendar from the dates of the reference series.
func NewCalendar(reference ...*Series) *Calendar {
	histories := make([]*date.History[float64], 0, len(reference))
	for _, s := range reference {
		histories = append(histories, &s.Prices)
	}
	c := &Calendar{index: make(map[date.Date]int)}
	for on := range date.Iterate(histories...) {
		c.index[on] = len(c.days)
		c.days = append(c.days, on)
	}
	c.fillKeyDates()
	return c
}

// fillKeyDates buckets every trading day by year, and by quarter for quarter closing months.
func (c *Calendar) fillKeyDates() {
	var current *KeyDates
	for _, on := range c.days {
		// days are sorted: a new year starts a new bucket.
		if current == nil || current.Year != on.Year() {
			current = &KeyDates{Year: on.Year(), Span: Span{Min: on, Max: on}}
			c.years = append(c.years, current)
		}
		current.Max = on

		switch on.Month() {
		case time.March, time.June, time.September, time.December:
			q := &current.Quarters[on.Quarter()-1]
			if *q == nil {
				*q = &Span{Min: on, Max: on}
			}
			(*q).Max = on
		}
	}
}

// Dates returns the trading days in ascending order.
func (c *Calendar) Dates() []date.Date { return slices.Clone(c.days) }

// Len returns the number of trading days.
func (c *Calendar) Len() int { return len(c.days) }

// Contains reports whether on is a trading day.
func (c *Calendar) Contains(on date.Date) bool {
	_, ok := c.index[on]
	return ok
}

// KeyDates returns the key dates of every year, sorted by year.
func (c *Calendar) KeyDates() []*KeyDates { return slices.Clone(c.years) }

// Year returns the key dates of a single year.
func (c *Calendar) Year(year int) (*KeyDates, bool) {
	i, found := slices.BinarySearchFunc(c.years, year, func(k *KeyDates, y int) int { return k.Year - y })
	if !found {
		return nil, false
	}
	return c.years[i], true
}

// TradeDaysPerYear counts the trading days of each year.
func (c *Calendar) TradeDaysPerYear() map[int]int {
	counts := make(map[int]int, len(c.years))
	for _, on := range c.days {
		counts[on.Year()]++
	}
	return counts
}

// Triggers returns the rebalancing trigger dates for mode, in ascending order.
//
// Yearly triggers on the last trading day of each year, quarterly on the last
// trading day of each populated quarter.
func (c *Calendar) Triggers(mode RebalanceMode) []date.Date {
	var triggers []date.Date
	for _, k := range c.years {
		switch mode {
		case RebalanceYearly:
			triggers = append(triggers, k.Max)
		case RebalanceQuarterly:
			for _, q := range k.Quarters {
				if q != nil {
					triggers = append(triggers, q.Max)
				}
			}
		}
	}
	return triggers
}

// month returns the trading days of the same month as on.
func (c *Calendar) month(on date.Date) []date.Date {
	first, last := on.StartOf(date.Monthly), on.EndOf(date.Monthly)
	i, _ := slices.BinarySearchFunc(c.days, first, date.Date.Compare)
	j, _ := slices.BinarySearchFunc(c.days, last.Add(1), date.Date.Compare)
	return c.days[i:j]
}

// Closest returns the trading day of the same month that is the closest to on.
func (c *Calendar) Closest(on date.Date, tie date.Tie) (date.Date, error) {
	closest, ok := date.Closest(on, c.month(on), tie)
	if !ok {
		return date.Date{}, fmt.Errorf("%w in %s", ErrNoTradingDay, on.Format("2006-01"))
	}
	return closest, nil
}

// Resolve snaps the requested start and finish dates to actual trading days.
//
// Each date is resolved within its own month: ties go to the earliest day for
// the start and to the latest for the finish.
func (c *Calendar) Resolve(start, finish date.Date) (date.Range, error) {
	from, err := c.Closest(start, date.TieMin)
	if err != nil {
		return date.Range{}, fmt.Errorf("cannot resolve start date %s: %w", start, err)
	}
	to, err := c.Closest(finish, date.TieMax)
	if err != nil {
		return date.Range{}, fmt.Errorf("cannot resolve finish date %s: %w", finish, err)
	}
	if to.Before(from) {
		return date.Range{}, fmt.Errorf("finish %s resolves before start %s", to, from)
	}
	return date.Range{From: from, To: to}, nil
}
