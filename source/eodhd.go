package source

import (
	"context"
	"fmt"
	"net/url"
	"os"

	"github.com/etnz/backtest"
)

// EnvEODHDKey is the environment variable holding the EODHD API key.
const EnvEODHDKey = "EODHD_API_KEY"

// eodhdURL is the end of day prices endpoint of EODHD.
const eodhdURL = "https://eodhd.com/api/eod/"

// WithEODHD sets the EODHD API key and endpoint. An empty endpoint keeps the default.
func WithEODHD(apiKey, endpoint string) Option {
	return func(l *Loader) {
		l.eodhdKey = apiKey
		if endpoint != "" {
			l.eodhdURL = endpoint
		}
	}
}

// readEODHD fetches the daily prices of an EODHD ticker ("SYMBOL.EXCHANGE").
//
// The response is a list of records:
//
//	[{"date": "2024-02-13", "open": 675.066, "close": 668.445, "adjusted_close": 67.705, ...}]
//
// src.Price selects the price attribute, close by default.
func (l *Loader) readEODHD(ctx context.Context, ticker string, src backtest.SourceInfo) (*backtest.Series, error) {
	key := l.eodhdKey
	if key == "" {
		key = os.Getenv(EnvEODHDKey)
	}
	if key == "" {
		return nil, fmt.Errorf("asset %s: EODHD source requires an API key (%s)", ticker, EnvEODHDKey)
	}
	price := src.Price
	if price == "" {
		price = "close"
	}

	query := url.Values{"fmt": {"json"}, "api_token": {key}}
	addr := l.eodhdURL + url.PathEscape(src.File) + "?" + query.Encode()

	var records any
	if err := jwget(ctx, l.client, addr, &records); err != nil {
		return nil, fmt.Errorf("error retrieving %s from EODHD: %w", ticker, err)
	}
	return Extract(ticker, records, "", "date", price)
}
