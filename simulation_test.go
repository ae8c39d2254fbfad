package backtest

import (
	"context"
	"errors"
	"slices"
	"testing"

	"github.com/etnz/backtest/date"
)

// referenceConfig is a two assets strategy over the reference series boundaries.
func referenceConfig() (Config, memorySource) {
	cfg := DefaultConfig()
	cfg.Start, cfg.Finish = day("1999-12-31"), day("2015-12-31")
	cfg.Assets = []string{"DOBR", "MURM"}
	cfg.Calendar = []string{"DOBR", "MURM"}

	src := memorySource{
		"DOBR": newTestSeries("DOBR", "1999-12-31", 540.08, "2000-06-30", 600.0, "2015-12-31", 7575.45),
		"MURM": newTestSeries("MURM", "1999-12-31", 1818.18, "2000-06-30", 2000.0, "2015-12-31", 24912.61),
	}
	return cfg, src
}

func TestBacktest(t *testing.T) {
	cfg, src := referenceConfig()
	r, err := Backtest(context.Background(), cfg, src)
	if err != nil {
		t.Fatalf("Backtest() error = %v", err)
	}

	start, finish := day("1999-12-31"), day("2015-12-31")
	if r.Range.From != start || r.Range.To != finish {
		t.Errorf("Range = %v, want [%v, %v]", r.Range, start, finish)
	}
	if got := r.History.First().On; got != start {
		t.Errorf("History.First() = %v, want %v", got, start)
	}
	if got := r.History.Last().On; got != finish {
		t.Errorf("History.Last() = %v, want %v", got, finish)
	}

	tests := []struct {
		on       date.Date
		ticker   string
		price    float64
		quantity int
	}{
		{start, "DOBR", 540.08, 92},
		{start, "MURM", 1818.18, 27},
		{finish, "DOBR", 7575.45, 92},
		{finish, "MURM", 24912.61, 27},
	}
	for _, tt := range tests {
		e, ok := r.History.Get(tt.on)
		if !ok {
			t.Fatalf("History.Get(%v) found nothing", tt.on)
		}
		v, ok := e.Assets[tt.ticker]
		if !ok {
			t.Errorf("History.Get(%v) has no %s", tt.on, tt.ticker)
			continue
		}
		if !v.PricePerItem.Equal(RUB(tt.price)) {
			t.Errorf("%v %s PricePerItem = %v, want %v", tt.on, tt.ticker, v.PricePerItem, tt.price)
		}
		if !v.Quantity.Equal(Q(tt.quantity)) {
			t.Errorf("%v %s Quantity = %v, want %v", tt.on, tt.ticker, v.Quantity, tt.quantity)
		}
	}

	if got, want := r.Cash, RUB(1221.78); !got.Equal(want) {
		t.Errorf("Cash = %v, want %v", got, want)
	}
	if got, want := r.History.Last().Total(), RUB(1370803.65); !got.Equal(want) {
		t.Errorf("final value = %v, want %v", got, want)
	}
	if got := len(r.Log.Trades()); got != 2 {
		t.Errorf("len(Trades()) = %d, want 2", got)
	}
	if got := len(r.Log.Rebalancings()); got != 0 {
		t.Errorf("len(Rebalancings()) = %d, want 0", got)
	}
}

func TestBacktest_Deterministic(t *testing.T) {
	cfg, src := referenceConfig()
	cfg.Rebalance = "yearly"
	r1, err := Backtest(context.Background(), cfg, src)
	if err != nil {
		t.Fatalf("Backtest() error = %v", err)
	}
	r2, err := Backtest(context.Background(), cfg, src)
	if err != nil {
		t.Fatalf("Backtest() error = %v", err)
	}
	if !slices.Equal(r1.History.Dates(), r2.History.Dates()) {
		t.Errorf("History dates differ: %v and %v", r1.History.Dates(), r2.History.Dates())
	}
	if !r1.History.Last().Total().Equal(r2.History.Last().Total()) {
		t.Errorf("final values differ: %v and %v", r1.History.Last().Total(), r2.History.Last().Total())
	}
	if len(r1.Log.Trades()) != len(r2.Log.Trades()) {
		t.Errorf("trades differ: %d and %d", len(r1.Log.Trades()), len(r2.Log.Trades()))
	}
}

// stopLossConfig holds A and the safe haven C, A falls below its stop on 2020-01-08.
func stopLossConfig() (Config, memorySource) {
	cfg := DefaultConfig()
	cfg.Start, cfg.Finish = day("2020-01-06"), day("2020-01-08")
	cfg.Cash = 1000
	cfg.Assets = []string{"A", "C"}
	cfg.Calendar = []string{"A"}
	cfg.SafeHaven = "C"
	cfg.StopLoss = true
	cfg.Universe = []AssetInfo{{Ticker: "A"}, {Ticker: "C"}}

	src := memorySource{
		"A": newTestSeries("A", "2020-01-06", 100.0, "2020-01-07", 95.0, "2020-01-08", 89.0),
		"C": newTestSeries("C", "2020-01-06", 1.0, "2020-01-07", 1.0, "2020-01-08", 1.0),
	}
	return cfg, src
}

func TestBacktest_StopLoss(t *testing.T) {
	cfg, src := stopLossConfig()
	s, err := New(cfg)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	if err := s.Init(context.Background(), src); err != nil {
		t.Fatalf("Init() error = %v", err)
	}
	if err := s.Run(context.Background()); err != nil {
		t.Fatalf("Run() error = %v", err)
	}

	p := s.Portfolio()
	if got := p.Quantity("A"); !got.IsZero() {
		t.Errorf("Quantity(A) = %v, want 0", got)
	}
	if got := p.Quantity("C"); !got.Equal(Q(1000)) {
		t.Errorf("Quantity(C) = %v, want 1000", got)
	}
	if got := p.Cash(); !got.IsZero() {
		t.Errorf("Cash() = %v, want 0", got)
	}

	// sold at the last trade price of A.
	sell, ok := p.Log().Sells()[day("2020-01-08")]["A"]
	if !ok {
		t.Fatalf("Sells() has no A trade on 2020-01-08")
	}
	if !sell.Quantity.Equal(Q(5)) || !sell.Price.Equal(RUB(100)) {
		t.Errorf("sell = %v x %v, want 5 x 100", sell.Quantity, sell.Price)
	}
	if stop, ok := s.StopLoss().Lookup("A", 2020, 1); !ok || !stop.Equal(RUB(90)) {
		t.Errorf("StopLoss().Lookup(A) = %v, %v, want 90, true", stop, ok)
	}
	// the safe haven has its own stop, C never falls to it.
	if stop, ok := s.StopLoss().Lookup("C", 2020, 1); !ok || !stop.Equal(RUB(0.9)) {
		t.Errorf("StopLoss().Lookup(C) = %v, %v, want 0.9, true", stop, ok)
	}
	if _, ok := p.Log().Sells()[day("2020-01-08")]["C"]; ok {
		t.Errorf("Sells() has a C trade on 2020-01-08, want none")
	}

	e, _ := p.History().Get(day("2020-01-08"))
	if v := e.Assets["A"]; !v.Quantity.IsZero() || !v.PricePerItem.Equal(RUB(89)) {
		t.Errorf("history A = %v x %v, want 0 x 89", v.Quantity, v.PricePerItem)
	}
}

func TestBacktest_StopLossOnSafeHaven(t *testing.T) {
	cfg, src := stopLossConfig()
	src["A"] = newTestSeries("A", "2020-01-06", 100.0, "2020-01-07", 100.0, "2020-01-08", 100.0)
	src["C"] = newTestSeries("C", "2020-01-06", 10.0, "2020-01-07", 10.0, "2020-01-08", 8.0)

	r, err := Backtest(context.Background(), cfg, src)
	if err != nil {
		t.Fatalf("Backtest() error = %v", err)
	}

	// C is bought 50 x 10 on the start day, its stop for the quarter is 9.
	on := day("2020-01-08")
	sell, ok := r.Log.Sells()[on]["C"]
	if !ok {
		t.Fatalf("Sells() has no C trade on %v", on)
	}
	if !sell.Quantity.Equal(Q(50)) || !sell.Price.Equal(RUB(10)) {
		t.Errorf("sell = %v x %v, want 50 x 10", sell.Quantity, sell.Price)
	}
	buy, ok := r.Log.Buys()[on]["C"]
	if !ok {
		t.Fatalf("Buys() has no C trade on %v", on)
	}
	if !buy.Quantity.Equal(Q(62)) || !buy.Price.Equal(RUB(8)) {
		t.Errorf("buy = %v x %v, want 62 x 8", buy.Quantity, buy.Price)
	}
	if _, ok := r.Log.Sells()[on]["A"]; ok {
		t.Errorf("Sells() has an A trade on %v, want none", on)
	}

	e, _ := r.History.Get(on)
	if v := e.Assets["C"]; !v.Quantity.Equal(Q(62)) || !v.PricePerItem.Equal(RUB(8)) {
		t.Errorf("history C = %v x %v, want 62 x 8", v.Quantity, v.PricePerItem)
	}
	if got, want := r.Cash, RUB(4); !got.Equal(want) {
		t.Errorf("Cash = %v, want %v", got, want)
	}
}

func TestBacktest_UnpricedOnStart(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Start, cfg.Finish = day("2020-01-06"), day("2020-01-07")
	cfg.Cash = 300
	cfg.Assets = []string{"A", "B", "C"}
	cfg.Calendar = []string{"A"}
	cfg.Universe = []AssetInfo{{Ticker: "A"}, {Ticker: "B"}, {Ticker: "C"}}
	src := memorySource{
		"A": newTestSeries("A", "2020-01-06", 1.0, "2020-01-07", 1.0),
		"B": newTestSeries("B", "2020-01-06", 1.0, "2020-01-07", 1.0),
		"C": newTestSeries("C", "2020-01-07", 1.0),
	}

	r, err := Backtest(context.Background(), cfg, src)
	if err != nil {
		t.Fatalf("Backtest() error = %v", err)
	}
	e, _ := r.History.Get(day("2020-01-06"))
	for ticker, want := range map[string]Quantity{"A": Q(100), "B": Q(100)} {
		if got := e.Assets[ticker].Quantity; !got.Equal(want) {
			t.Errorf("Quantity(%s) = %v, want %v", ticker, got, want)
		}
	}
	if _, ok := e.Assets["C"]; ok {
		t.Errorf("History has C on the start day, want none")
	}
	// the share of C stays uninvested.
	if got, want := r.Cash, RUB(100); !got.Equal(want) {
		t.Errorf("Cash = %v, want %v", got, want)
	}
	if got := len(r.Log.Trades()); got != 2 {
		t.Errorf("len(Trades()) = %d, want 2", got)
	}
}

func TestBacktest_RebalanceWithoutPrice(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Start, cfg.Finish = day("2020-01-06"), day("2020-03-31")
	cfg.Cash = 300
	cfg.Assets = []string{"A", "B", "C"}
	cfg.Calendar = []string{"A"}
	cfg.SafeHaven = "C"
	cfg.Rebalance = "quarterly"
	cfg.Universe = []AssetInfo{{Ticker: "A"}, {Ticker: "B"}, {Ticker: "C"}}
	// B stops quoting long before the end of the quarter.
	src := memorySource{
		"A": newTestSeries("A", "2020-01-06", 10.0, "2020-03-31", 20.0),
		"B": newTestSeries("B", "2020-01-06", 10.0),
		"C": newTestSeries("C", "2020-01-06", 1.0, "2020-03-31", 1.0),
	}

	r, err := Backtest(context.Background(), cfg, src)
	if err != nil {
		t.Fatalf("Backtest() error = %v", err)
	}

	on := day("2020-03-31")
	if got := r.Log.Rebalancings(); !slices.Equal(got, []date.Date{on}) {
		t.Errorf("Rebalancings() = %v, want [%v]", got, on)
	}
	e, _ := r.History.Get(on)
	if _, ok := e.Assets["B"]; ok {
		t.Errorf("History has B on %v, want none", on)
	}
	// A 200 and C 100 are spread over A and C only: target 150, A 7, C 150
	// and the leftover 10 goes to C.
	for ticker, want := range map[string]Quantity{"A": Q(7), "C": Q(160)} {
		if got := e.Assets[ticker].Quantity; !got.Equal(want) {
			t.Errorf("Quantity(%s) = %v, want %v", ticker, got, want)
		}
	}
	if !e.Cash.IsZero() {
		t.Errorf("Cash = %v, want 0", e.Cash)
	}
	if got := e.Total(); !got.Equal(RUB(300)) {
		t.Errorf("Total() = %v, want 300", got)
	}
	if _, ok := r.Log.Buys()[on]["B"]; ok {
		t.Errorf("Buys() has a B trade on %v, want none", on)
	}
	if _, ok := r.Log.Sells()[on]["B"]; ok {
		t.Errorf("Sells() has a B trade on %v, want none", on)
	}
	for _, h := range r.Holdings {
		if h.Ticker == "B" && !h.Quantity.Equal(Q(10)) {
			t.Errorf("Holding(B) = %v, want 10", h.Quantity)
		}
	}
}

func TestBacktest_StopLossSkipped(t *testing.T) {
	tests := []struct {
		name   string
		modify func(*Config)
	}{
		{"disabled", func(c *Config) { c.StopLoss = false }},
		{"safe haven not in strategy", func(c *Config) {
			c.SafeHaven = "B"
			c.Universe = append(c.Universe, AssetInfo{Ticker: "B"})
		}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg, src := stopLossConfig()
			tt.modify(&cfg)
			r, err := Backtest(context.Background(), cfg, src)
			if err != nil {
				t.Fatalf("Backtest() error = %v", err)
			}
			if got := len(r.Log.Sells()); got != 0 {
				t.Errorf("len(Sells()) = %d, want 0", got)
			}
			if e := r.History.Last(); !e.Assets["A"].Quantity.Equal(Q(5)) {
				t.Errorf("Quantity(A) = %v, want 5", e.Assets["A"].Quantity)
			}
		})
	}
}

func TestBacktest_Quarterly(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Start, cfg.Finish = day("2020-01-06"), day("2020-03-31")
	cfg.Cash = 200
	cfg.Assets = []string{"A", "B"}
	cfg.Calendar = []string{"A"}
	cfg.SafeHaven = "B"
	cfg.Rebalance = "quarterly"
	cfg.Universe = []AssetInfo{{Ticker: "A"}, {Ticker: "B"}}
	src := memorySource{
		"A": newTestSeries("A", "2020-01-06", 10.0, "2020-03-31", 20.0),
		"B": newTestSeries("B", "2020-01-06", 10.0, "2020-03-31", 10.0),
	}

	r, err := Backtest(context.Background(), cfg, src)
	if err != nil {
		t.Fatalf("Backtest() error = %v", err)
	}

	rebalancedOn := day("2020-03-31")
	if got := r.Log.Rebalancings(); !slices.Equal(got, []date.Date{rebalancedOn}) {
		t.Errorf("Rebalancings() = %v, want [%v]", got, rebalancedOn)
	}
	// total 300, target 150: A 7, B 15, and the leftover 10 buys one more B.
	e, _ := r.History.Get(rebalancedOn)
	if got := e.Assets["A"].Quantity; !got.Equal(Q(7)) {
		t.Errorf("Quantity(A) = %v, want 7", got)
	}
	if got := e.Assets["B"].Quantity; !got.Equal(Q(16)) {
		t.Errorf("Quantity(B) = %v, want 16", got)
	}
	if !e.Cash.IsZero() {
		t.Errorf("Cash = %v, want 0", e.Cash)
	}
	if got := e.Total(); !got.Equal(RUB(300)) {
		t.Errorf("Total() = %v, want 300", got)
	}
}

func TestNew_InvalidRebalance(t *testing.T) {
	cfg, _ := referenceConfig()
	cfg.Rebalance = "biweekly"
	s, err := New(cfg)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	if s.mode != RebalanceYearly {
		t.Errorf("mode = %v, want %v", s.mode, RebalanceYearly)
	}
}

func TestNew_InvalidConfig(t *testing.T) {
	cfg, _ := referenceConfig()
	cfg.Assets = nil
	if _, err := New(cfg); !errors.Is(err, ErrNoAssets) {
		t.Errorf("New() error = %v, want %v", err, ErrNoAssets)
	}
}

func TestSimulation_State(t *testing.T) {
	cfg, src := referenceConfig()
	ctx := context.Background()
	s, err := New(cfg)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	if err := s.Run(ctx); !errors.Is(err, ErrState) {
		t.Errorf("Run() before Init() error = %v, want %v", err, ErrState)
	}
	if err := s.Init(ctx, src); err != nil {
		t.Fatalf("Init() error = %v", err)
	}
	if err := s.Init(ctx, src); !errors.Is(err, ErrState) {
		t.Errorf("Init() twice error = %v, want %v", err, ErrState)
	}
	if _, err := s.Result(); !errors.Is(err, ErrState) {
		t.Errorf("Result() before Run() error = %v, want %v", err, ErrState)
	}
	if err := s.Run(ctx); err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if s.State() != Finished {
		t.Errorf("State() = %v, want %v", s.State(), Finished)
	}
	if err := s.Run(ctx); !errors.Is(err, ErrState) {
		t.Errorf("Run() twice error = %v, want %v", err, ErrState)
	}
}

func TestSimulation_Canceled(t *testing.T) {
	cfg, src := referenceConfig()
	ctx, cancel := context.WithCancel(context.Background())
	s, err := New(cfg)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	if err := s.Init(ctx, src); err != nil {
		t.Fatalf("Init() error = %v", err)
	}
	cancel()
	if err := s.Run(ctx); !errors.Is(err, context.Canceled) {
		t.Errorf("Run() error = %v, want %v", err, context.Canceled)
	}
}

func TestSimulation_UnresolvedFinish(t *testing.T) {
	cfg, src := referenceConfig()
	cfg.Finish = day("2015-11-30")
	s, err := New(cfg)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	if err := s.Init(context.Background(), src); !errors.Is(err, ErrNoTradingDay) {
		t.Errorf("Init() error = %v, want %v", err, ErrNoTradingDay)
	}
}
