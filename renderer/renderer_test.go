package renderer

import (
	"bytes"
	"context"
	"fmt"
	"regexp"
	"strings"
	"testing"
	"time"

	"github.com/etnz/backtest"
	"github.com/etnz/backtest/date"
	"github.com/etnz/backtest/store"
)

// memorySource serves series kept in memory, by ticker.
type memorySource map[string][]float64

var days = []string{"1999-12-31", "2000-06-30", "2000-12-29", "2015-12-31"}

func (m memorySource) Series(ctx context.Context, asset backtest.AssetInfo) (*backtest.Series, error) {
	prices, ok := m[asset.Ticker]
	if !ok {
		return nil, fmt.Errorf("no series for %s", asset.Ticker)
	}
	s := backtest.NewSeries(asset.Ticker)
	for i, p := range prices {
		s.Append(date.MustParse(days[i]), p)
	}
	return s, nil
}

func testResult(t *testing.T) *backtest.Result {
	t.Helper()
	cfg := backtest.DefaultConfig()
	cfg.Start, cfg.Finish = date.MustParse("1999-12-31"), date.MustParse("2015-12-31")
	cfg.Assets = []string{"DOBR", "MURM"}
	cfg.Rebalance = "yearly"
	src := memorySource{
		"DOBR": {540.08, 600, 610, 7575.45},
		"MURM": {1818.18, 2000, 1900, 24912.61},
	}
	r, err := backtest.Backtest(context.Background(), cfg, src)
	if err != nil {
		t.Fatalf("Backtest() error = %v", err)
	}
	return r
}

var spaces = regexp.MustCompile(` +`)

// squash collapses the padding of markdown tables.
func squash(s string) string { return spaces.ReplaceAllString(s, " ") }

func TestCSV(t *testing.T) {
	r := testResult(t)
	var buf bytes.Buffer
	if err := CSV(&buf, r); err != nil {
		t.Fatalf("CSV() error = %v", err)
	}
	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if got, want := len(lines), 1+len(days); got != want {
		t.Fatalf("CSV() got %d lines, want %d:\n%s", got, want, buf.String())
	}
	if got, want := lines[0], "Year,ALL,DOBR,MURM"; got != want {
		t.Errorf("header = %q, want %q", got, want)
	}
	if got, want := lines[1], "1999-12-31,98778.22,49687.36,49090.86"; got != want {
		t.Errorf("first row = %q, want %q", got, want)
	}
	if got, want := lines[2], "2000-06-30,109200,55200,54000"; got != want {
		t.Errorf("second row = %q, want %q", got, want)
	}
}

func TestYearEnds(t *testing.T) {
	r := testResult(t)
	ends := YearEnds(r.History)
	want := []struct {
		year int
		on   string
	}{
		{1999, "1999-12-31"},
		{2000, "2000-12-29"},
		{2015, "2015-12-31"},
	}
	if len(ends) != len(want) {
		t.Fatalf("YearEnds() = %d years, want %d", len(ends), len(want))
	}
	for i, w := range want {
		if ends[i].Year != w.year || ends[i].Entry.On != date.MustParse(w.on) {
			t.Errorf("YearEnds()[%d] = %d %v, want %d %s", i, ends[i].Year, ends[i].Entry.On, w.year, w.on)
		}
	}
	if !ends[0].Return.Equal(0) {
		t.Errorf("YearEnds()[0].Return = %v, want 0", ends[0].Return)
	}
	if ends[2].Return <= 0 {
		t.Errorf("YearEnds()[2].Return = %v, want positive", ends[2].Return)
	}
}

func TestReportMarkdown(t *testing.T) {
	r := testResult(t)
	p, err := backtest.NewPerformance(r)
	if err != nil {
		t.Fatalf("NewPerformance() error = %v", err)
	}
	report := squash(ReportMarkdown(r, p))
	for _, want := range []string{
		"# Backtest from 1999-12-31 to 2015-12-31",
		"| Assets | DOBR, MURM |",
		"| Rebalancing | yearly |",
		"## Performance",
		"## Yearly",
		"## Holdings",
		"## Rebalancing",
		"- 2000-12-29",
		"## Trades",
		"| 1999-12-31 | buy | DOBR | 92 |",
	} {
		if !strings.Contains(report, want) {
			t.Errorf("ReportMarkdown() does not contain %q:\n%s", want, report)
		}
	}
	if strings.Contains(report, "error") {
		t.Errorf("ReportMarkdown() contains an error:\n%s", report)
	}
}

func TestCalendarMarkdown(t *testing.T) {
	r := testResult(t)
	got := squash(CalendarMarkdown(r.Calendar, backtest.RebalanceQuarterly))
	for _, want := range []string{
		"# Trading Calendar",
		"4 trading days, quarterly rebalancing.",
		"| 2000 |",
		"2000-06-30 to 2000-06-30",
		"## Rebalancing Dates",
		"- 2000-12-29",
	} {
		if !strings.Contains(got, want) {
			t.Errorf("CalendarMarkdown() does not contain %q:\n%s", want, got)
		}
	}
}

func TestHTML(t *testing.T) {
	page, err := HTML("report", "# Title\n\n| A | B |\n|---|---|\n| 1 | 2 |\n")
	if err != nil {
		t.Fatalf("HTML() error = %v", err)
	}
	for _, want := range []string{"<title>report</title>", "<h1>Title</h1>", "<table>", "<td>1</td>"} {
		if !bytes.Contains(page, []byte(want)) {
			t.Errorf("HTML() does not contain %q:\n%s", want, page)
		}
	}
}

func TestChart(t *testing.T) {
	r := testResult(t)
	png, err := Chart(r)
	if err != nil {
		t.Fatalf("Chart() error = %v", err)
	}
	if !bytes.HasPrefix(png, []byte("\x89PNG")) {
		t.Errorf("Chart() is not a png image")
	}
}

func testRun() store.Run {
	return store.Run{
		ID:         "0f8fad5b-d9cb-469f-a165-70867728950e",
		CreatedAt:  time.Date(2024, 8, 16, 10, 0, 0, 0, time.UTC),
		Start:      date.MustParse("1999-12-31"),
		Finish:     date.MustParse("2015-12-31"),
		Currency:   "RUB",
		Assets:     []string{"DOBR", "MURM"},
		Rebalance:  "yearly",
		Config:     "cash: 100000\n",
		Cash:       backtest.M(1221.78, "RUB"),
		FinalValue: backtest.M(1370803.65, "RUB"),
	}
}

func TestRunsMarkdown(t *testing.T) {
	if got := RunsMarkdown(nil); !strings.Contains(got, "No saved run.") {
		t.Errorf("RunsMarkdown(nil) = %q, want the empty message", got)
	}

	got := squash(RunsMarkdown([]store.Run{testRun()}))
	for _, want := range []string{"# Saved Runs", "| 0f8fad5b |", "1999-12-31 to 2015-12-31", "DOBR, MURM", "| yearly |"} {
		if !strings.Contains(got, want) {
			t.Errorf("RunsMarkdown() does not contain %q:\n%s", want, got)
		}
	}
}

func TestRunMarkdown(t *testing.T) {
	rub := func(v float64) backtest.Money { return backtest.M(v, "RUB") }
	values := []store.Value{
		{On: date.MustParse("1999-12-31"), AllAssets: rub(98778.22), Cash: rub(1221.78), Aggregated: true},
		{On: date.MustParse("2000-06-30"), AllAssets: rub(109200), Cash: rub(1221.78), Aggregated: true},
		{On: date.MustParse("2000-12-29"), AllAssets: rub(107000), Cash: rub(1221.78), Aggregated: true},
		{On: date.MustParse("2015-12-31"), AllAssets: rub(1369581.87), Cash: rub(1221.78), Aggregated: true},
	}
	trades := []backtest.Trade{
		{On: date.MustParse("1999-12-31"), Command: backtest.CmdBuy, Ticker: "DOBR", Price: rub(540.08), Quantity: backtest.Q(92)},
	}
	got := squash(RunMarkdown(testRun(), values, trades, []date.Date{date.MustParse("2000-12-29")}))

	for _, want := range []string{
		"# Run 0f8fad5b-d9cb-469f-a165-70867728950e",
		"cash: 100000",
		"| 1999 | 1999-12-31 |",
		"| 2000 | 2000-12-29 |",
		"| 2015 | 2015-12-31 |",
		"- 2000-12-29",
		"| 1999-12-31 | buy | DOBR | 92 |",
	} {
		if !strings.Contains(got, want) {
			t.Errorf("RunMarkdown() does not contain %q:\n%s", want, got)
		}
	}
	if strings.Contains(got, "| 2000 | 2000-06-30 |") {
		t.Errorf("RunMarkdown() lists a mid-year valuation:\n%s", got)
	}
}
