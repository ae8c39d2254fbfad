package source

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/etnz/backtest"
	"github.com/etnz/backtest/date"
)

const attrOn = "on"

// ReadJSONL reads daily prices stored one day per line:
//
//	{"on":"2020-01-03","DOBR":540.08,"MURM":1818.18}
//
// The price of the series is read from the key property. Lines without it are skipped.
func ReadJSONL(ticker, key string, r io.Reader) (*backtest.Series, error) {
	series := backtest.NewSeries(ticker)
	scanner := bufio.NewScanner(r)
	for i := 1; scanner.Scan(); i++ {
		// Start simply ignoring empty lines.
		txt := scanner.Text()
		if strings.TrimSpace(txt) == "" {
			continue
		}

		jobj := make(map[string]any)
		if err := json.Unmarshal([]byte(txt), &jobj); err != nil {
			return nil, fmt.Errorf("parse error on line %d: not a correct json: %w", i, err)
		}

		jvalue, ok := jobj[attrOn]
		if !ok {
			return nil, fmt.Errorf("parse error on line %d: missing the property %q with a date", i, attrOn)
		}
		jstring, ok := jvalue.(string)
		if !ok {
			return nil, fmt.Errorf("parse error on line %d: property %q must be a string", i, attrOn)
		}
		on, err := date.Parse(jstring)
		if err != nil {
			return nil, fmt.Errorf("parse error on line %d: %w", i, err)
		}

		jprice, ok := jobj[key]
		if !ok {
			continue
		}
		price, err := toFloat(jprice)
		if err != nil {
			return nil, fmt.Errorf("parse error on line %d: property %q: %w", i, key, err)
		}
		series.Append(on, price)
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	return series, nil
}
