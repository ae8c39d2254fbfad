package source

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/PaesslerAG/jsonpath"
	"github.com/etnz/backtest"
	"github.com/etnz/backtest/date"
)

// Default record properties of a json source.
const (
	DefaultDateKey  = "date"
	DefaultPriceKey = "price"
)

// readJSON reads a json document from a file or a URL and extracts its records.
func (l *Loader) readJSON(ctx context.Context, ticker string, src backtest.SourceInfo) (*backtest.Series, error) {
	var jobj any
	if isRemote(src.File) {
		if err := jwget(ctx, l.client, src.File, &jobj); err != nil {
			return nil, fmt.Errorf("error retrieving %q: %w", ticker, err)
		}
	} else {
		content, err := os.ReadFile(l.path(src.File))
		if err != nil {
			return nil, fmt.Errorf("cannot open prices of %s: %w", ticker, err)
		}
		if err := json.Unmarshal(content, &jobj); err != nil {
			return nil, fmt.Errorf("%s: not a correct json: %w", src.File, err)
		}
	}
	return Extract(ticker, jobj, src.Path, src.Date, src.Price)
}

// ReadJSON decodes a json document from r and extracts its records. See Extract.
func ReadJSON(ticker string, r io.Reader, path, dateKey, priceKey string) (*backtest.Series, error) {
	var jobj any
	if err := json.NewDecoder(r).Decode(&jobj); err != nil {
		return nil, fmt.Errorf("not a correct json: %w", err)
	}
	return Extract(ticker, jobj, path, dateKey, priceKey)
}

// Extract selects the price records of a decoded json document with a JSONPath.
//
// path must select a list of objects; an empty path means the document itself.
// Each object holds a date in dateKey and a price in priceKey (number or
// string). Empty keys default to DefaultDateKey and DefaultPriceKey.
func Extract(ticker string, jobj any, path, dateKey, priceKey string) (*backtest.Series, error) {
	if dateKey == "" {
		dateKey = DefaultDateKey
	}
	if priceKey == "" {
		priceKey = DefaultPriceKey
	}
	if path == "" {
		path = "$"
	}

	jval, err := jsonpath.Get(path, jobj)
	if err != nil {
		return nil, fmt.Errorf("error parsing %q: %q %w", ticker, path, err)
	}
	jlist, ok := jval.([]any)
	if !ok {
		return nil, fmt.Errorf("error parsing %q: %q does not select a list but %T", ticker, path, jval)
	}

	series := backtest.NewSeries(ticker)
	for i, jrecord := range jlist {
		record, ok := jrecord.(map[string]any)
		if !ok {
			return nil, fmt.Errorf("record #%d of %q is not an object", i, ticker)
		}
		jdate, ok := record[dateKey].(string)
		if !ok {
			return nil, fmt.Errorf("record #%d of %q has no %q date", i, ticker, dateKey)
		}
		// accept timestamps, only the day matters.
		on, err := date.Parse(strings.SplitN(jdate, "T", 2)[0])
		if err != nil {
			return nil, fmt.Errorf("record #%d of %q: %w", i, ticker, err)
		}
		jprice, ok := record[priceKey]
		if !ok || jprice == nil {
			continue
		}
		price, err := toFloat(jprice)
		if err != nil {
			return nil, fmt.Errorf("record #%d of %q: property %q: %w", i, ticker, priceKey, err)
		}
		series.Append(on, price)
	}
	return series, nil
}

// toFloat reads a json number, or a number written as a string.
func toFloat(jval any) (float64, error) {
	switch v := jval.(type) {
	case float64:
		return v, nil
	case string:
		// sometimes the value comes as a string with a decimal comma.
		s := strings.ReplaceAll(v, ",", ".")
		s = strings.ReplaceAll(s, " ", "")
		val, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return 0, fmt.Errorf("invalid number %q: %w", v, err)
		}
		return val, nil
	default:
		return 0, fmt.Errorf("not a number: %v", jval)
	}
}
