package renderer

import (
	"encoding/csv"
	"io"

	"github.com/etnz/backtest"
)

// CSV writes the valuation history as a table: one row per recorded day,
// with the aggregated value of all assets (ALL), then the value of each strategy asset.
//
// ALL is 0 on days that were never aggregated, and an asset with no valuation
// on a day has an empty cell.
func CSV(w io.Writer, r *backtest.Result) error {
	writer := csv.NewWriter(w)
	header := append([]string{"Year", "ALL"}, r.Strategy...)
	if err := writer.Write(header); err != nil {
		return err
	}

	for on, e := range r.History.Values() {
		row := make([]string, 0, len(header))
		row = append(row, on.String())
		if e.Aggregated {
			row = append(row, e.AllAssets.Decimal().String())
		} else {
			row = append(row, "0")
		}
		for _, ticker := range r.Strategy {
			v, ok := e.Assets[ticker]
			if !ok {
				row = append(row, "")
				continue
			}
			row = append(row, v.PriceTotal.Decimal().String())
		}
		if err := writer.Write(row); err != nil {
			return err
		}
	}
	writer.Flush()
	return writer.Error()
}
