package renderer

import (
	"bytes"
	"fmt"
	"strconv"

	"github.com/etnz/backtest"
	md "github.com/nao1215/markdown"
)

// YearEnd is the valuation of the portfolio on the last recorded day of a year.
type YearEnd struct {
	Year   int
	Entry  *backtest.Entry
	Return backtest.Percent // change since the previous year end, or since the start.
}

// YearEnds returns the last aggregated entry of every year in the history.
func YearEnds(h *backtest.History) []YearEnd {
	var ends []YearEnd
	var start *backtest.Entry
	for on, e := range h.Values() {
		if !e.Aggregated {
			continue
		}
		if start == nil {
			start = e
		}
		if n := len(ends); n > 0 && ends[n-1].Year == on.Year() {
			ends[n-1].Entry = e
			continue
		}
		ends = append(ends, YearEnd{Year: on.Year(), Entry: e})
	}

	previous := start
	for i := range ends {
		if previous != nil && previous.Total().IsPositive() {
			ratio := ends[i].Entry.Total().Decimal().Div(previous.Total().Decimal()).InexactFloat64()
			ends[i].Return = backtest.Percent(100 * (ratio - 1))
		}
		previous = ends[i].Entry
	}
	return ends
}

// ReportMarkdown renders the full report of a simulation.
func ReportMarkdown(r *backtest.Result, p backtest.Performance) string {
	var buf bytes.Buffer
	doc := md.NewMarkdown(&buf)

	doc.H2("Yearly")
	align := []md.TableAlignment{md.AlignLeft, md.AlignLeft}
	header := []string{"Year", "Date"}
	for _, ticker := range r.Strategy {
		align = append(align, md.AlignRight)
		header = append(header, ticker)
	}
	align = append(align, md.AlignRight, md.AlignRight, md.AlignRight)
	header = append(header, "Cash", "Total", "Return")

	table := md.TableSet{Alignment: align, Header: header, Rows: [][]string{}}
	for _, y := range YearEnds(r.History) {
		row := []string{strconv.Itoa(y.Year), y.Entry.On.String()}
		for _, ticker := range r.Strategy {
			v, ok := y.Entry.Assets[ticker]
			if !ok {
				row = append(row, "-")
				continue
			}
			row = append(row, v.PriceTotal.String())
		}
		row = append(row, y.Entry.Cash.String(), y.Entry.Total().String(), y.Return.SignedString())
		table.Rows = append(table.Rows, row)
	}
	doc.Table(table)

	doc.H2("Holdings")
	holdings := md.TableSet{
		Alignment: []md.TableAlignment{md.AlignLeft, md.AlignRight, md.AlignRight, md.AlignRight},
		Header:    []string{"Ticker", "Quantity", "Last Trade Price", "Value"},
		Rows:      [][]string{},
	}
	for _, h := range r.Holdings {
		holdings.Rows = append(holdings.Rows, []string{h.Ticker, h.Quantity.String(), h.Price.String(), h.Value.String()})
	}
	doc.Table(holdings)
	doc.PlainText(fmt.Sprintf("Cash: %s", r.Cash))

	doc.H2("Rebalancing")
	if dates := r.Log.Rebalancings(); len(dates) > 0 {
		items := make([]string, len(dates))
		for i, on := range dates {
			items[i] = on.String()
		}
		doc.BulletList(items...)
	} else {
		doc.PlainText("No rebalancing.")
	}

	doc.H2("Trades")
	trades := md.TableSet{
		Alignment: []md.TableAlignment{md.AlignLeft, md.AlignLeft, md.AlignLeft, md.AlignRight, md.AlignRight, md.AlignRight},
		Header:    []string{"Date", "Command", "Ticker", "Quantity", "Price", "Amount"},
		Rows:      [][]string{},
	}
	for _, t := range r.Log.Trades() {
		trades.Rows = append(trades.Rows, []string{
			t.On.String(),
			string(t.Command),
			t.Ticker,
			t.Quantity.String(),
			t.Price.String(),
			t.Amount().String(),
		})
	}
	doc.Table(trades)

	return RenderSummary(NewSummary(r, p)) + "\n" + doc.String()
}
