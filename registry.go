package backtest

import (
	"fmt"
	"slices"
)

// Source kinds understood by the source package.
const (
	SourceCSV   = "csv"
	SourceJSONL = "jsonl"
	SourceJSON  = "json"
	SourceEODHD = "eodhd"
)

// SourceInfo tells a price source where and how to read the series of an asset.
type SourceInfo struct {
	Kind  string `yaml:"kind"`            // csv, jsonl, json or eodhd; defaults to csv.
	File  string `yaml:"file"`            // path relative to the data dir, an http(s) URL for json, the ticker for eodhd.
	Path  string `yaml:"path,omitempty"`  // JSONPath selecting the records (json only).
	Date  string `yaml:"date,omitempty"`  // date attribute in a record (json only).
	Price string `yaml:"price,omitempty"` // price attribute in a record (json, jsonl, eodhd).
}

// AssetInfo is the static reference data of an asset. It never changes during a simulation.
type AssetInfo struct {
	Ticker string     `yaml:"ticker"`
	Name   string     `yaml:"name,omitempty"`
	Source SourceInfo `yaml:"source"`
}

// DefaultUniverse returns the assets known out of the box and their CSV files.
func DefaultUniverse() []AssetInfo {
	return []AssetInfo{
		{Ticker: "LQDT", Name: "Liquidity fund", Source: SourceInfo{Kind: SourceCSV, File: "BBG00RPRPX12.csv"}},
		{Ticker: "GOLD", Name: "Gold", Source: SourceInfo{Kind: SourceCSV, File: "gold.csv"}},
		{Ticker: "DOBR", Name: "Russian equity fund", Source: SourceInfo{Kind: SourceCSV, File: "RU000A0EQ3R3.csv"}},
		{Ticker: "MURM", Name: "Russian bond fund", Source: SourceInfo{Kind: SourceCSV, File: "RU000A0EQ3Q5.csv"}},
		{Ticker: "CBRT", Name: "Synthetic money market (key rate - 3%)", Source: SourceInfo{Kind: SourceCSV, File: "cbrt_history.csv"}},
	}
}

// Registry is the immutable table of assets that can be part of a strategy.
type Registry struct {
	assets []AssetInfo
	index  map[string]int
}

// NewRegistry indexes assets by ticker. Tickers must be unique and non empty.
func NewRegistry(assets ...AssetInfo) (*Registry, error) {
	r := &Registry{
		assets: slices.Clone(assets),
		index:  make(map[string]int, len(assets)),
	}
	for i, a := range r.assets {
		if a.Ticker == "" {
			return nil, fmt.Errorf("asset #%d has no ticker", i)
		}
		if _, exists := r.index[a.Ticker]; exists {
			return nil, fmt.Errorf("asset %q is declared twice", a.Ticker)
		}
		if r.assets[i].Source.Kind == "" {
			r.assets[i].Source.Kind = SourceCSV
		}
		r.index[a.Ticker] = i
	}
	return r, nil
}

func (r *Registry) Has(ticker string) bool {
	_, ok := r.index[ticker]
	return ok
}

// Get returns the reference data of ticker.
func (r *Registry) Get(ticker string) (AssetInfo, bool) {
	i, ok := r.index[ticker]
	if !ok {
		return AssetInfo{}, false
	}
	return r.assets[i], true
}

// Tickers returns all declared tickers in declaration order.
func (r *Registry) Tickers() []string {
	tickers := make([]string, len(r.assets))
	for i, a := range r.assets {
		tickers[i] = a.Ticker
	}
	return tickers
}
