package renderer

import (
	"bytes"
	"fmt"
	"strconv"

	"github.com/etnz/backtest"
	md "github.com/nao1215/markdown"
)

// CalendarMarkdown renders the key trade dates of every year and the rebalancing triggers of mode.
func CalendarMarkdown(cal *backtest.Calendar, mode backtest.RebalanceMode) string {
	var buf bytes.Buffer
	doc := md.NewMarkdown(&buf)

	doc.H1("Trading Calendar")
	doc.PlainText(fmt.Sprintf("%d trading days, %s rebalancing.", cal.Len(), mode))

	span := func(s *backtest.Span) string {
		if s == nil {
			return "-"
		}
		return fmt.Sprintf("%s to %s", s.Min, s.Max)
	}

	perYear := cal.TradeDaysPerYear()
	table := md.TableSet{
		Alignment: []md.TableAlignment{md.AlignLeft, md.AlignRight, md.AlignLeft, md.AlignLeft, md.AlignLeft, md.AlignLeft, md.AlignLeft},
		Header:    []string{"Year", "Days", "Year Span", "Q1", "Q2", "Q3", "Q4"},
		Rows:      [][]string{},
	}
	for _, k := range cal.KeyDates() {
		table.Rows = append(table.Rows, []string{
			strconv.Itoa(k.Year),
			strconv.Itoa(perYear[k.Year]),
			span(&k.Span),
			span(k.Quarter(1)),
			span(k.Quarter(2)),
			span(k.Quarter(3)),
			span(k.Quarter(4)),
		})
	}
	doc.Table(table)

	if triggers := cal.Triggers(mode); len(triggers) > 0 {
		doc.H2("Rebalancing Dates")
		items := make([]string, len(triggers))
		for i, on := range triggers {
			items[i] = on.String()
		}
		doc.BulletList(items...)
	}
	return doc.String()
}
