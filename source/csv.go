package source

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/etnz/backtest"
	"github.com/etnz/backtest/date"
)

// ReadCSV reads "date,price" rows.
//
// Dates are ISO 8601. A first row whose date cannot be parsed is a header and
// is skipped; rows with an empty price are skipped too.
func ReadCSV(ticker string, r io.Reader) (*backtest.Series, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1 // Allow variable number of fields
	reader.TrimLeadingSpace = true

	series := backtest.NewSeries(ticker)
	for line := 1; ; line++ {
		record, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to read csv: %w", err)
		}
		if len(record) < 2 {
			if len(record) == 1 && strings.TrimSpace(record[0]) == "" {
				continue
			}
			return nil, fmt.Errorf("line %d: want a date and a price, got %q", line, record)
		}

		on, err := date.Parse(strings.TrimSpace(record[0]))
		if err != nil {
			if line == 1 {
				continue // header
			}
			return nil, fmt.Errorf("line %d: %w", line, err)
		}
		value := strings.TrimSpace(record[1])
		if value == "" {
			continue
		}
		price, err := strconv.ParseFloat(value, 64)
		if err != nil {
			return nil, fmt.Errorf("line %d: failed to parse price %q for date %q: %w", line, value, record[0], err)
		}
		series.Append(on, price)
	}
	return series, nil
}
