package backtest

import (
	"errors"
	"fmt"
	"io"
	"os"
	"slices"
	"strings"

	"github.com/etnz/backtest/date"
	"gopkg.in/yaml.v3"
)

// RebalanceMode selects when the portfolio is rebalanced.
type RebalanceMode int

const (
	RebalanceNone RebalanceMode = iota
	RebalanceQuarterly
	RebalanceYearly
)

func (m RebalanceMode) String() string {
	switch m {
	case RebalanceQuarterly:
		return "quarterly"
	case RebalanceYearly:
		return "yearly"
	default:
		return "none"
	}
}

// ParseRebalanceMode parses a rebalancing mode.
//
// Quarterly and yearly periods (see date.ParsePeriod) are the active modes;
// "", "none", "off" and "disabled" turn rebalancing off. Any other value falls
// back to yearly, and recovered is then true.
func ParseRebalanceMode(s string) (mode RebalanceMode, recovered bool) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "none", "off", "disabled":
		return RebalanceNone, false
	}
	p, err := date.ParsePeriod(s)
	if err != nil {
		return RebalanceYearly, true
	}
	switch p {
	case date.Quarterly:
		return RebalanceQuarterly, false
	case date.Yearly:
		return RebalanceYearly, false
	default:
		return RebalanceYearly, true
	}
}

// Config is the configuration surface of a simulation.
type Config struct {
	Start    date.Date `yaml:"start"`    // desired first day, resolved to the closest trading day of its month.
	Finish   date.Date `yaml:"finish"`   // desired last day, resolved to the closest trading day of its month.
	Cash     float64   `yaml:"cash"`     // initial cash.
	Currency string    `yaml:"currency"` // currency of cash and prices, for display.
	Assets   []string  `yaml:"assets"`   // the strategy assets.

	Rebalance       string  `yaml:"rebalance"`         // quarterly, yearly or none.
	StopLoss        bool    `yaml:"stop_loss"`         // enable stop-loss liquidation.
	StopLossPercent float64 `yaml:"stop_loss_percent"` // drop that triggers a stop-loss (0.10 is 10%).
	SafeHaven       string  `yaml:"safe_haven"`        // destination of stop-loss proceeds and leftover rebalancing cash.

	Calendar []string    `yaml:"calendar"` // reference assets defining the trading days.
	DataDir  string      `yaml:"data_dir"` // base directory of price files.
	Universe []AssetInfo `yaml:"universe"` // assets that can be used; defaults to DefaultUniverse.
}

// DefaultConfig returns the configuration of the historical reference run.
func DefaultConfig() Config {
	return Config{
		Start:           date.New(2000, 1, 5),
		Finish:          date.New(2024, 8, 15),
		Cash:            100000,
		Currency:        "RUB",
		Assets:          []string{"GOLD", "DOBR", "CBRT"},
		Rebalance:       "none",
		StopLossPercent: DefaultStopLossPercent,
		SafeHaven:       "CBRT",
		Calendar:        []string{"DOBR", "MURM"},
		DataDir:         "data",
	}
}

// LoadConfig reads a YAML configuration on top of the defaults.
func LoadConfig(r io.Reader) (Config, error) {
	cfg := DefaultConfig()
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&cfg); err != nil && !errors.Is(err, io.EOF) {
		return cfg, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

// LoadConfigFile reads a YAML configuration file on top of the defaults.
func LoadConfigFile(filename string) (Config, error) {
	f, err := os.Open(filename)
	if err != nil {
		return DefaultConfig(), fmt.Errorf("cannot open configuration: %w", err)
	}
	defer f.Close()
	cfg, err := LoadConfig(f)
	if err != nil {
		return cfg, fmt.Errorf("%s: %w", filename, err)
	}
	return cfg, nil
}

// RebalanceMode returns the parsed rebalancing mode.
func (c Config) RebalanceMode() RebalanceMode {
	mode, _ := ParseRebalanceMode(c.Rebalance)
	return mode
}

// Registry returns the asset registry of the configured universe.
func (c Config) Registry() (*Registry, error) {
	if len(c.Universe) == 0 {
		return NewRegistry(DefaultUniverse()...)
	}
	return NewRegistry(c.Universe...)
}

// Validate checks the configuration consistency.
func (c Config) Validate() error {
	if c.Start.IsZero() || c.Finish.IsZero() {
		return errors.New("start and finish dates are required")
	}
	if c.Finish.Before(c.Start) {
		return fmt.Errorf("finish %s is before start %s", c.Finish, c.Start)
	}
	if c.Cash <= 0 {
		return fmt.Errorf("initial cash must be positive, got %v", c.Cash)
	}
	if len(c.Assets) == 0 {
		return fmt.Errorf("strategy has no assets: %w", ErrNoAssets)
	}
	if len(c.Calendar) == 0 {
		return errors.New("at least one calendar reference asset is required")
	}
	if c.StopLossPercent < 0 || c.StopLossPercent >= 1 {
		return fmt.Errorf("stop-loss percent must be in [0, 1), got %v", c.StopLossPercent)
	}
	registry, err := c.Registry()
	if err != nil {
		return err
	}
	for _, ticker := range slices.Concat(c.Assets, c.Calendar) {
		if !registry.Has(ticker) {
			return fmt.Errorf("asset %q is not declared in the universe", ticker)
		}
	}
	for i, ticker := range c.Assets {
		if slices.Index(c.Assets, ticker) != i {
			return fmt.Errorf("asset %q is listed twice in the strategy", ticker)
		}
	}
	return nil
}
