package backtest

import (
	"errors"
	"fmt"
	"slices"
	"strings"

	"github.com/etnz/backtest/date"
	"github.com/rs/zerolog"
)

// ErrInsufficientCash is returned by a buy that would make the cash balance negative.
var ErrInsufficientCash = errors.New("insufficient cash")

// Holding is the runtime record of an asset in the portfolio.
type Holding struct {
	Ticker   string
	Price    Money    // last trade price, the most recent quote observed for the asset.
	Quantity Quantity // units held.
	Value    Money    // Price * Quantity after the last trade.
}

// Portfolio holds the cash balance, the holdings, and records what happens to them.
//
// Every transaction is recorded at the current date cursor (see SetDate).
type Portfolio struct {
	cur      string
	cash     Money
	holdings map[string]*Holding
	on       date.Date
	history  *History
	log      *Log
	logger   zerolog.Logger
}

// NewPortfolio returns an empty portfolio keeping cash in currency.
func NewPortfolio(currency string, logger zerolog.Logger) *Portfolio {
	return &Portfolio{
		cur:      currency,
		cash:     M(0, currency),
		holdings: make(map[string]*Holding),
		history:  NewHistory(),
		log:      new(Log),
		logger:   logger,
	}
}

// SetDate moves the date cursor used to record transactions.
func (p *Portfolio) SetDate(on date.Date) { p.on = on }

// Date returns the date cursor.
func (p *Portfolio) Date() date.Date { return p.on }

// Deposit adds cash to the portfolio.
func (p *Portfolio) Deposit(amount Money) { p.cash = p.cash.Add(amount) }

// Cash returns the cash balance.
func (p *Portfolio) Cash() Money { return p.cash }

// History returns the valuation history.
func (p *Portfolio) History() *History { return p.history }

// Log returns the transaction log.
func (p *Portfolio) Log() *Log { return p.log }

// holding returns the holding of ticker, creating an empty one if needed.
func (p *Portfolio) holding(ticker string) *Holding {
	h, ok := p.holdings[ticker]
	if !ok {
		h = &Holding{Ticker: ticker, Price: M(0, p.cur), Value: M(0, p.cur)}
		p.holdings[ticker] = h
	}
	return h
}

// Holding returns a copy of the holding of ticker.
func (p *Portfolio) Holding(ticker string) (Holding, bool) {
	h, ok := p.holdings[ticker]
	if !ok {
		return Holding{}, false
	}
	return *h, true
}

// Holdings returns a copy of all holdings sorted by ticker.
func (p *Portfolio) Holdings() []Holding {
	holdings := make([]Holding, 0, len(p.holdings))
	for _, h := range p.holdings {
		holdings = append(holdings, *h)
	}
	slices.SortFunc(holdings, func(a, b Holding) int { return strings.Compare(a.Ticker, b.Ticker) })
	return holdings
}

// Quantity returns the quantity held of ticker.
func (p *Portfolio) Quantity(ticker string) Quantity {
	if h, ok := p.holdings[ticker]; ok {
		return h.Quantity
	}
	return Quantity{}
}

// Buy purchases quantity units of ticker at price.
//
// It fails with ErrInsufficientCash, leaving the portfolio untouched, if the
// cost exceeds the cash balance.
func (p *Portfolio) Buy(ticker string, quantity Quantity, price Money) error {
	return p.Execute(CmdBuy, ticker, quantity, price)
}

// Sell sells quantity units of ticker at price.
//
// Selling more than held is a caller error and is not checked.
func (p *Portfolio) Sell(ticker string, quantity Quantity, price Money) error {
	return p.Execute(CmdSell, ticker, quantity, price)
}

// Execute applies a buy or a sell to the portfolio.
func (p *Portfolio) Execute(cmd CommandType, ticker string, quantity Quantity, price Money) error {
	amount := price.Mul(quantity)
	switch cmd {
	case CmdBuy:
		if p.cash.LessThan(amount) {
			return fmt.Errorf("on %s, cannot buy %s %s for %s, cash balance is %s: %w", p.on, quantity, ticker, amount, p.cash, ErrInsufficientCash)
		}
		h := p.holding(ticker)
		h.Quantity = h.Quantity.Add(quantity)
		p.cash = p.cash.Sub(amount)
	case CmdSell:
		h := p.holding(ticker)
		h.Quantity = h.Quantity.Sub(quantity)
		p.cash = p.cash.Add(amount)
	default:
		return fmt.Errorf("%w: %q", ErrUnknownCommand, cmd)
	}

	h := p.holdings[ticker]
	h.Price = price
	h.Value = price.Mul(h.Quantity)
	p.log.Append(Trade{On: p.on, Command: cmd, Ticker: ticker, Price: price, Quantity: quantity})
	p.history.Record(p.on, ticker, price, h.Quantity)

	p.logger.Debug().
		Str("date", p.on.String()).
		Str("command", string(cmd)).
		Str("ticker", ticker).
		Str("quantity", quantity.String()).
		Str("price", price.String()).
		Str("cash", p.cash.String()).
		Msg("trade")
	return nil
}

// Record writes the valuation of ticker on day on, without trading.
func (p *Portfolio) Record(on date.Date, ticker string, price Money, quantity Quantity) {
	p.history.Record(on, ticker, price, quantity)
}

// Aggregate computes the all assets value of day on over the strategy tickers.
func (p *Portfolio) Aggregate(on date.Date, strategy []string) Money {
	return p.history.Aggregate(on, strategy, p.cash)
}
