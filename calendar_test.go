package backtest

import (
	"errors"
	"slices"
	"testing"

	"github.com/etnz/backtest/date"
)

func testCalendar() *Calendar {
	return NewCalendar(
		newTestSeries("REF1", "2020-01-02", 1.0, "2020-03-31", 1.0, "2020-06-10", 1.0, "2020-12-30", 1.0, "2021-02-01", 1.0),
		newTestSeries("REF2", "2020-03-02", 1.0, "2020-06-10", 1.0, "2020-06-20", 1.0),
	)
}

func TestNewCalendar(t *testing.T) {
	c := testCalendar()
	want := []date.Date{day("2020-01-02"), day("2020-03-02"), day("2020-03-31"), day("2020-06-10"), day("2020-06-20"), day("2020-12-30"), day("2021-02-01")}
	if got := c.Dates(); !slices.Equal(got, want) {
		t.Errorf("Dates() = %v, want %v", got, want)
	}
	if !c.Contains(day("2020-06-20")) {
		t.Errorf("Contains(2020-06-20) = false, want true")
	}
	if c.Contains(day("2020-06-21")) {
		t.Errorf("Contains(2020-06-21) = true, want false")
	}
}

func TestCalendar_KeyDates(t *testing.T) {
	c := testCalendar()

	k, ok := c.Year(2020)
	if !ok {
		t.Fatalf("Year(2020) not found")
	}
	if k.Min != day("2020-01-02") || k.Max != day("2020-12-30") {
		t.Errorf("Year(2020) = [%v, %v], want [2020-01-02, 2020-12-30]", k.Min, k.Max)
	}
	// only the closing month of a quarter counts.
	if q := k.Quarter(1); q == nil || q.Min != day("2020-03-02") || q.Max != day("2020-03-31") {
		t.Errorf("Quarter(1) = %v, want [2020-03-02, 2020-03-31]", q)
	}
	if q := k.Quarter(2); q == nil || q.Min != day("2020-06-10") || q.Max != day("2020-06-20") {
		t.Errorf("Quarter(2) = %v, want [2020-06-10, 2020-06-20]", q)
	}
	if q := k.Quarter(3); q != nil {
		t.Errorf("Quarter(3) = %v, want nil", q)
	}
	if q := k.Quarter(5); q != nil {
		t.Errorf("Quarter(5) = %v, want nil", q)
	}

	k, ok = c.Year(2021)
	if !ok {
		t.Fatalf("Year(2021) not found")
	}
	if k.Min != day("2021-02-01") || k.Max != day("2021-02-01") {
		t.Errorf("Year(2021) = [%v, %v], want [2021-02-01, 2021-02-01]", k.Min, k.Max)
	}
	for q := 1; q <= 4; q++ {
		if k.Quarter(q) != nil {
			t.Errorf("2021 Quarter(%d) = %v, want nil", q, k.Quarter(q))
		}
	}

	if _, ok := c.Year(2019); ok {
		t.Errorf("Year(2019) found, want none")
	}
	if got := c.TradeDaysPerYear(); got[2020] != 6 || got[2021] != 1 {
		t.Errorf("TradeDaysPerYear() = %v, want 2020:6 2021:1", got)
	}
}

func TestCalendar_Triggers(t *testing.T) {
	c := testCalendar()
	tests := []struct {
		mode RebalanceMode
		want []date.Date
	}{
		{RebalanceNone, nil},
		{RebalanceYearly, []date.Date{day("2020-12-30"), day("2021-02-01")}},
		{RebalanceQuarterly, []date.Date{day("2020-03-31"), day("2020-06-20"), day("2020-12-30")}},
	}
	for _, tt := range tests {
		if got := c.Triggers(tt.mode); !slices.Equal(got, tt.want) {
			t.Errorf("Triggers(%v) = %v, want %v", tt.mode, got, tt.want)
		}
	}
}

func TestCalendar_Resolve(t *testing.T) {
	c := testCalendar()
	tests := []struct {
		start, finish string
		want          date.Range
	}{
		{"2020-01-01", "2021-02-28", date.Range{From: day("2020-01-02"), To: day("2021-02-01")}},
		{"2020-03-02", "2020-03-31", date.Range{From: day("2020-03-02"), To: day("2020-03-31")}},
		// 2020-06-15 is 5 days away from both 2020-06-10 and 2020-06-20.
		{"2020-06-15", "2020-06-15", date.Range{From: day("2020-06-10"), To: day("2020-06-20")}},
		{"2020-03-14", "2020-03-20", date.Range{From: day("2020-03-02"), To: day("2020-03-31")}},
	}
	for _, tt := range tests {
		got, err := c.Resolve(day(tt.start), day(tt.finish))
		if err != nil {
			t.Errorf("Resolve(%s, %s) error = %v", tt.start, tt.finish, err)
			continue
		}
		if got != tt.want {
			t.Errorf("Resolve(%s, %s) = %v, want %v", tt.start, tt.finish, got, tt.want)
		}
	}
}

func TestCalendar_ResolveNoTradingDay(t *testing.T) {
	c := testCalendar()
	if _, err := c.Resolve(day("2020-08-01"), day("2020-12-31")); !errors.Is(err, ErrNoTradingDay) {
		t.Errorf("Resolve(August) error = %v, want %v", err, ErrNoTradingDay)
	}
	if _, err := c.Resolve(day("2020-01-01"), day("2021-05-31")); !errors.Is(err, ErrNoTradingDay) {
		t.Errorf("Resolve(finish in May) error = %v, want %v", err, ErrNoTradingDay)
	}
}
