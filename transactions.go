package backtest

import (
	"errors"
	"slices"

	"github.com/etnz/backtest/date"
)

// ErrUnknownCommand is returned for a transaction that is neither a buy nor a sell.
var ErrUnknownCommand = errors.New("unknown transaction command")

// CommandType is a typed string for identifying transaction commands.
type CommandType string

// Command types used for identifying transactions.
const (
	CmdBuy  CommandType = "buy"
	CmdSell CommandType = "sell"
)

// Trade is a buy or a sell executed by the simulation.
type Trade struct {
	On       date.Date
	Command  CommandType
	Ticker   string
	Price    Money    // price per unit
	Quantity Quantity // units traded
}

// Amount is the cash value of the trade.
func (t Trade) Amount() Money { return t.Price.Mul(t.Quantity) }

// Log records every trade and every rebalancing event of a simulation. It is append-only.
type Log struct {
	trades       []Trade
	rebalancings []date.Date
}

// Append records a trade.
func (l *Log) Append(t Trade) { l.trades = append(l.trades, t) }

// Trades returns all trades in execution order.
func (l *Log) Trades() []Trade { return slices.Clone(l.trades) }

// Buys returns the buys indexed by date and ticker.
func (l *Log) Buys() map[date.Date]map[string]Trade { return l.byDate(CmdBuy) }

// Sells returns the sells indexed by date and ticker.
func (l *Log) Sells() map[date.Date]map[string]Trade { return l.byDate(CmdSell) }

// byDate indexes trades of a given command. The last trade of a (date, ticker) wins.
func (l *Log) byDate(cmd CommandType) map[date.Date]map[string]Trade {
	index := make(map[date.Date]map[string]Trade)
	for _, t := range l.trades {
		if t.Command != cmd {
			continue
		}
		if index[t.On] == nil {
			index[t.On] = make(map[string]Trade)
		}
		index[t.On][t.Ticker] = t
	}
	return index
}

// AddRebalancing records a rebalancing event on day on. A day is recorded only once.
func (l *Log) AddRebalancing(on date.Date) bool {
	if slices.Contains(l.rebalancings, on) {
		return false
	}
	l.rebalancings = append(l.rebalancings, on)
	return true
}

// Rebalancings returns the days on which a rebalancing happened.
func (l *Log) Rebalancings() []date.Date { return slices.Clone(l.rebalancings) }
