// Package source reads the raw price series of assets.
//
// Three file layouts are supported, selected by the asset's source kind:
//   - csv: "date,price" rows, the layout of the historical data files.
//   - jsonl: one JSON object per day, {"on":"2006-01-02","TICKER":price,...}.
//   - json: a JSON document, local or remote, whose records are selected with a JSONPath.
//   - eodhd: the end of day prices of a ticker, fetched from the EODHD API.
package source

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/etnz/backtest"
	"github.com/rs/zerolog"
)

// Loader reads series from files under a data directory, or from http(s) URLs.
//
// It implements backtest.SeriesSource.
type Loader struct {
	dir    string
	client *http.Client
	log    zerolog.Logger

	eodhdKey string
	eodhdURL string
}

var _ backtest.SeriesSource = (*Loader)(nil)

// Option configures a Loader.
type Option func(*Loader)

// WithLogger sets the loader logger.
func WithLogger(log zerolog.Logger) Option {
	return func(l *Loader) { l.log = log }
}

// WithClient sets the http client used for remote documents.
func WithClient(client *http.Client) Option {
	return func(l *Loader) { l.client = client }
}

// New returns a loader of files relative to dir. Remote documents are fetched
// with a client caching responses on disk for the day.
func New(dir string, opts ...Option) *Loader {
	l := &Loader{dir: dir, log: zerolog.Nop(), eodhdURL: eodhdURL}
	for _, opt := range opts {
		opt(l)
	}
	if l.client == nil {
		l.client = daily(l.log)
	}
	return l
}

// Series reads the price series of asset.
func (l *Loader) Series(ctx context.Context, asset backtest.AssetInfo) (*backtest.Series, error) {
	src := asset.Source
	if src.File == "" {
		return nil, fmt.Errorf("asset %s has no source file", asset.Ticker)
	}

	var (
		series *backtest.Series
		err    error
	)
	switch kind := strings.ToLower(src.Kind); kind {
	case "", backtest.SourceCSV:
		series, err = l.readFile(asset.Ticker, src.File, func(f *os.File) (*backtest.Series, error) {
			return ReadCSV(asset.Ticker, f)
		})
	case backtest.SourceJSONL:
		key := src.Price
		if key == "" {
			key = asset.Ticker
		}
		series, err = l.readFile(asset.Ticker, src.File, func(f *os.File) (*backtest.Series, error) {
			return ReadJSONL(asset.Ticker, key, f)
		})
	case backtest.SourceJSON:
		series, err = l.readJSON(ctx, asset.Ticker, src)
	case backtest.SourceEODHD:
		series, err = l.readEODHD(ctx, asset.Ticker, src)
	default:
		return nil, fmt.Errorf("asset %s: unknown source kind %q", asset.Ticker, kind)
	}
	if err != nil {
		return nil, err
	}

	if series.Prices.Len() == 0 {
		l.log.Warn().Str("ticker", asset.Ticker).Str("file", src.File).Msg("empty price series")
	} else {
		first, _ := series.Prices.First()
		last, _ := series.Prices.Latest()
		l.log.Debug().
			Str("ticker", asset.Ticker).
			Str("file", src.File).
			Int("prices", series.Prices.Len()).
			Str("from", first.String()).
			Str("to", last.String()).
			Msg("series read")
	}
	return series, nil
}

// path resolves a source file against the data directory.
func (l *Loader) path(file string) string {
	if filepath.IsAbs(file) {
		return file
	}
	return filepath.Join(l.dir, file)
}

// readFile opens a local source file and decodes it.
func (l *Loader) readFile(ticker, file string, decode func(*os.File) (*backtest.Series, error)) (*backtest.Series, error) {
	name := l.path(file)
	f, err := os.Open(name)
	if err != nil {
		return nil, fmt.Errorf("cannot open prices of %s: %w", ticker, err)
	}
	defer f.Close()
	series, err := decode(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", name, err)
	}
	return series, nil
}

// isRemote reports whether file is an http(s) URL.
func isRemote(file string) bool {
	return strings.HasPrefix(file, "http://") || strings.HasPrefix(file, "https://")
}
