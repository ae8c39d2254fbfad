package backtest

import (
	"context"
	"errors"
	"fmt"
	"slices"

	"github.com/etnz/backtest/date"
	"github.com/rs/zerolog"
)

// ErrState is returned when a simulation step is called in the wrong state.
var ErrState = errors.New("invalid simulation state")

// State is the lifecycle state of a Simulation.
type State int

const (
	NotStarted State = iota
	Initialized
	Running
	Finished
)

func (s State) String() string {
	switch s {
	case NotStarted:
		return "not started"
	case Initialized:
		return "initialized"
	case Running:
		return "running"
	case Finished:
		return "finished"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

// SeriesSource provides the raw price series of an asset.
type SeriesSource interface {
	Series(ctx context.Context, asset AssetInfo) (*Series, error)
}

// Result is the outcome of a finished simulation.
type Result struct {
	Config   Config
	Range    date.Range // resolved start and finish trading days.
	Strategy []string
	Calendar *Calendar
	History  *History
	Log      *Log
	Cash     Money
	Holdings []Holding
}

// Simulation walks the trading calendar and applies the strategy to a portfolio.
//
// A Simulation owns all its state and is meant to be used once: New, Init, Run
// and then Result.
type Simulation struct {
	cfg      Config
	log      zerolog.Logger
	state    State
	mode     RebalanceMode
	registry *Registry

	calendar  *Calendar
	prices    *PriceTable
	portfolio *Portfolio
	stops     *StopLoss
	span      date.Range
	triggers  map[date.Date]struct{}
}

// Option configures a Simulation.
type Option func(*Simulation)

// WithLogger sets the logger of the simulation. The default logger discards everything.
func WithLogger(log zerolog.Logger) Option {
	return func(s *Simulation) { s.log = log }
}

// New returns a simulation for a valid configuration.
func New(cfg Config, opts ...Option) (*Simulation, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	registry, err := cfg.Registry()
	if err != nil {
		return nil, err
	}
	s := &Simulation{
		cfg:      cfg,
		log:      zerolog.Nop(),
		registry: registry,
	}
	for _, opt := range opts {
		opt(s)
	}

	mode, recovered := ParseRebalanceMode(cfg.Rebalance)
	if recovered {
		s.log.Warn().Str("rebalance", cfg.Rebalance).Msg("unknown rebalancing mode, using yearly")
	}
	s.mode = mode
	return s, nil
}

// State returns the lifecycle state.
func (s *Simulation) State() State { return s.state }

// Range returns the resolved start and finish trading days. It is set by Init.
func (s *Simulation) Range() date.Range { return s.span }

// Calendar returns the trading calendar. It is set by Init.
func (s *Simulation) Calendar() *Calendar { return s.calendar }

// Portfolio returns the simulated portfolio. It is set by Init.
func (s *Simulation) Portfolio() *Portfolio { return s.portfolio }

// Prices returns the assembled price table. It is set by Init.
func (s *Simulation) Prices() *PriceTable { return s.prices }

// StopLoss returns the stop-loss table. It is set by Init.
func (s *Simulation) StopLoss() *StopLoss { return s.stops }

// transition moves from one state to the next one.
func (s *Simulation) transition(from, to State) error {
	if s.state != from {
		return fmt.Errorf("%w: cannot go to %s from %s", ErrState, to, s.state)
	}
	s.state = to
	return nil
}

// Init loads the price series, builds the calendar and the price table, and funds the portfolio.
func (s *Simulation) Init(ctx context.Context, src SeriesSource) error {
	if s.state != NotStarted {
		return fmt.Errorf("%w: already %s", ErrState, s.state)
	}

	loaded := make(map[string]*Series)
	load := func(ticker string) (*Series, error) {
		if series, ok := loaded[ticker]; ok {
			return series, nil
		}
		info, _ := s.registry.Get(ticker) // Validate checked it is declared.
		series, err := src.Series(ctx, info)
		if err != nil {
			return nil, fmt.Errorf("cannot load prices of %s: %w", ticker, err)
		}
		series.Ticker = ticker
		loaded[ticker] = series
		s.log.Debug().Str("ticker", ticker).Int("prices", series.Prices.Len()).Msg("series loaded")
		return series, nil
	}

	reference := make([]*Series, 0, len(s.cfg.Calendar))
	for _, ticker := range s.cfg.Calendar {
		series, err := load(ticker)
		if err != nil {
			return err
		}
		reference = append(reference, series)
	}
	strategy := make([]*Series, 0, len(s.cfg.Assets))
	for _, ticker := range slices.Concat(s.cfg.Assets, s.cfg.Calendar) {
		series, err := load(ticker)
		if err != nil {
			return err
		}
		if !slices.Contains(strategy, series) {
			strategy = append(strategy, series)
		}
	}

	s.calendar = NewCalendar(reference...)
	if s.calendar.Len() == 0 {
		return fmt.Errorf("reference assets %v have no prices: %w", s.cfg.Calendar, ErrNoTradingDay)
	}
	span, err := s.calendar.Resolve(s.cfg.Start, s.cfg.Finish)
	if err != nil {
		return err
	}
	s.span = span

	s.prices = NewPriceTable(s.calendar, s.cfg.Currency, s.log, strategy...)
	s.portfolio = NewPortfolio(s.cfg.Currency, s.log)
	s.portfolio.Deposit(M(s.cfg.Cash, s.cfg.Currency))

	percent := s.cfg.StopLossPercent
	if percent == 0 {
		percent = DefaultStopLossPercent
	}
	s.stops = NewStopLoss(percent)

	s.triggers = make(map[date.Date]struct{})
	for _, on := range s.calendar.Triggers(s.mode) {
		s.triggers[on] = struct{}{}
	}

	s.log.Info().
		Str("start", span.From.String()).
		Str("finish", span.To.String()).
		Int("trading_days", s.calendar.Len()).
		Str("rebalance", s.mode.String()).
		Bool("stop_loss", s.cfg.StopLoss).
		Msg("simulation initialized")
	return s.transition(NotStarted, Initialized)
}

// Run executes the simulation from the resolved start to the resolved finish.
func (s *Simulation) Run(ctx context.Context) error {
	if err := s.transition(Initialized, Running); err != nil {
		return err
	}
	if err := s.initialPurchase(); err != nil {
		return err
	}

	for _, on := range s.calendar.Dates() {
		if on.Before(s.span.From) {
			continue
		}
		if on.After(s.span.To) {
			break
		}
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := s.step(on); err != nil {
			return err
		}
	}

	s.log.Info().
		Str("cash", s.portfolio.Cash().String()).
		Int("trades", len(s.portfolio.Log().Trades())).
		Int("rebalancings", len(s.portfolio.Log().Rebalancings())).
		Msg("simulation finished")
	return s.transition(Running, Finished)
}

// initialPurchase splits the initial cash equally over the strategy assets on the start day.
func (s *Simulation) initialPurchase() error {
	on := s.span.From
	s.portfolio.SetDate(on)

	prices := make(map[string]Money, len(s.cfg.Assets))
	for _, ticker := range s.cfg.Assets {
		price, ok := s.prices.Price(on, ticker)
		if !ok {
			s.log.Warn().Str("date", on.String()).Str("ticker", ticker).Msg("no price on start date, asset not bought")
			continue
		}
		prices[ticker] = price
	}
	allocation, err := DistributeCash(s.portfolio.Cash(), s.cfg.Assets, prices)
	if err != nil {
		return fmt.Errorf("initial purchase on %s: %w", on, err)
	}
	for _, ticker := range sortedTickers(allocation) {
		q := allocation[ticker]
		if !q.IsPositive() {
			continue
		}
		if err := s.portfolio.Buy(ticker, q, prices[ticker]); err != nil {
			return fmt.Errorf("initial purchase: %w", err)
		}
	}
	return nil
}

// step processes a single trading day.
func (s *Simulation) step(on date.Date) error {
	s.portfolio.SetDate(on)
	for _, ticker := range s.cfg.Assets {
		price, ok := s.prices.Price(on, ticker)
		if !ok {
			s.log.Debug().Str("date", on.String()).Str("ticker", ticker).Msg("no price, skipped")
			continue
		}
		if err := s.checkStopLoss(on, ticker, price); err != nil {
			return err
		}
		s.portfolio.Record(on, ticker, price, s.portfolio.Quantity(ticker))
	}
	s.portfolio.Aggregate(on, s.cfg.Assets)

	if _, ok := s.triggers[on]; !ok {
		return nil
	}
	entry, _ := s.portfolio.History().Get(on)
	if err := s.portfolio.Rebalance(entry.Snapshot(s.cfg.Assets), s.cfg.Assets, s.cfg.SafeHaven); err != nil {
		return err
	}
	s.portfolio.Aggregate(on, s.cfg.Assets)
	return nil
}

// checkStopLoss liquidates ticker into the safe haven when its price falls to its stop price.
func (s *Simulation) checkStopLoss(on date.Date, ticker string, price Money) error {
	if !s.cfg.StopLoss || !slices.Contains(s.cfg.Assets, s.cfg.SafeHaven) {
		return nil
	}
	stop := s.stops.Price(ticker, on, price)
	holding, ok := s.portfolio.Holding(ticker)
	if !ok || !holding.Quantity.IsPositive() || price.GreaterThan(stop) {
		return nil
	}

	s.log.Info().
		Str("date", on.String()).
		Str("ticker", ticker).
		Str("price", price.String()).
		Str("stop", stop.String()).
		Msg("stop-loss triggered")

	// The position is sold at the last observed quote of the asset. A fallen
	// safe haven is sold the same way and bought back at the price of the day.
	if err := s.portfolio.Sell(ticker, holding.Quantity, holding.Price); err != nil {
		return err
	}
	havenPrice, ok := s.prices.Price(on, s.cfg.SafeHaven)
	if !ok || !havenPrice.IsPositive() {
		s.log.Warn().Str("date", on.String()).Str("ticker", s.cfg.SafeHaven).Msg("no safe haven price, proceeds kept in cash")
		return nil
	}
	q := s.portfolio.Cash().DivPrice(havenPrice).Floor()
	if !q.IsPositive() {
		return nil
	}
	return s.portfolio.Buy(s.cfg.SafeHaven, q, havenPrice)
}

// Result returns the outcome of a finished simulation.
func (s *Simulation) Result() (*Result, error) {
	if s.state != Finished {
		return nil, fmt.Errorf("%w: no result while %s", ErrState, s.state)
	}
	return &Result{
		Config:   s.cfg,
		Range:    s.span,
		Strategy: slices.Clone(s.cfg.Assets),
		Calendar: s.calendar,
		History:  s.portfolio.History(),
		Log:      s.portfolio.Log(),
		Cash:     s.portfolio.Cash(),
		Holdings: s.portfolio.Holdings(),
	}, nil
}

// Backtest runs a complete simulation of cfg with prices from src.
func Backtest(ctx context.Context, cfg Config, src SeriesSource, opts ...Option) (*Result, error) {
	s, err := New(cfg, opts...)
	if err != nil {
		return nil, err
	}
	if err := s.Init(ctx, src); err != nil {
		return nil, err
	}
	if err := s.Run(ctx); err != nil {
		return nil, err
	}
	return s.Result()
}
