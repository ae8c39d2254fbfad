package renderer

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/etnz/backtest"
	"github.com/etnz/backtest/date"
	"github.com/etnz/backtest/store"
	md "github.com/nao1215/markdown"
)

// RunsMarkdown renders the list of saved runs.
func RunsMarkdown(runs []store.Run) string {
	var buf bytes.Buffer
	doc := md.NewMarkdown(&buf)

	doc.H1("Saved Runs")
	if len(runs) == 0 {
		doc.PlainText("No saved run.")
		return doc.String()
	}
	table := md.TableSet{
		Alignment: []md.TableAlignment{md.AlignLeft, md.AlignLeft, md.AlignLeft, md.AlignLeft, md.AlignLeft, md.AlignRight},
		Header:    []string{"ID", "Saved", "Period", "Assets", "Rebalancing", "Final Value"},
		Rows:      [][]string{},
	}
	for _, r := range runs {
		table.Rows = append(table.Rows, []string{
			r.ID[:8],
			r.CreatedAt.Local().Format("2006-01-02 15:04"),
			fmt.Sprintf("%s to %s", r.Start, r.Finish),
			strings.Join(r.Assets, ", "),
			r.Rebalance,
			r.FinalValue.String(),
		})
	}
	doc.Table(table)
	return doc.String()
}

// RunMarkdown renders a saved run: its settings, its value at each year end and its trades.
func RunMarkdown(run store.Run, values []store.Value, trades []backtest.Trade, rebalancings []date.Date) string {
	var buf bytes.Buffer
	doc := md.NewMarkdown(&buf)

	doc.H1(fmt.Sprintf("Run %s", run.ID))
	doc.PlainText(fmt.Sprintf("Backtest from %s to %s of %s, saved on %s.",
		run.Start, run.Finish, strings.Join(run.Assets, ", "), run.CreatedAt.Local().Format("2006-01-02 15:04")))

	doc.H2("Configuration")
	doc.CodeBlocks(md.SyntaxHighlight("yaml"), strings.TrimSpace(run.Config))

	doc.H2("Yearly")
	yearly := md.TableSet{
		Alignment: []md.TableAlignment{md.AlignLeft, md.AlignLeft, md.AlignRight, md.AlignRight, md.AlignRight},
		Header:    []string{"Year", "Date", "Assets", "Cash", "Total"},
		Rows:      [][]string{},
	}
	var last *store.Value
	flush := func() {
		if last != nil {
			yearly.Rows = append(yearly.Rows, []string{
				fmt.Sprint(last.On.Year()), last.On.String(),
				last.AllAssets.String(), last.Cash.String(), last.Total().String(),
			})
		}
	}
	for i := range values {
		v := &values[i]
		if !v.Aggregated {
			continue
		}
		if last != nil && last.On.Year() != v.On.Year() {
			flush()
		}
		last = v
	}
	flush()
	doc.Table(yearly)
	doc.PlainText(fmt.Sprintf("Final value: %s", run.FinalValue))

	doc.H2("Rebalancing")
	if len(rebalancings) == 0 {
		doc.PlainText("No rebalancing.")
	} else {
		items := make([]string, len(rebalancings))
		for i, on := range rebalancings {
			items[i] = on.String()
		}
		doc.BulletList(items...)
	}

	doc.H2("Trades")
	table := md.TableSet{
		Alignment: []md.TableAlignment{md.AlignLeft, md.AlignLeft, md.AlignLeft, md.AlignRight, md.AlignRight},
		Header:    []string{"Date", "Command", "Ticker", "Quantity", "Price"},
		Rows:      [][]string{},
	}
	for _, t := range trades {
		table.Rows = append(table.Rows, []string{t.On.String(), string(t.Command), t.Ticker, t.Quantity.String(), t.Price.String()})
	}
	doc.Table(table)
	return doc.String()
}
