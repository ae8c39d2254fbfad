// Package backtest replays an equal-weight asset allocation strategy over
// historical daily prices.
//
// A simulation is deterministic: given the same price series and the same
// configuration it produces the same trades and the same valuation history.
//
// The main pieces are:
//   - Calendar: the trading days, taken from the union of the dates of
//     reference series, and the key dates (first and last trading days) of
//     every year and quarter.
//   - PriceTable: prices aligned on the calendar, with missing prices filled
//     from the most recent price of the previous 60 days.
//   - Portfolio: cash, holdings, the trade log and the valuation History.
//   - StopLoss: a per quarter stop price that liquidates an asset into the
//     safe haven when its price falls too much.
//   - Rebalance: the equal-weight redistribution run at yearly or quarterly
//     trigger dates.
//   - Simulation: the driver walking the calendar from the resolved start to
//     the resolved finish.
//
// Price series are provided by a SeriesSource; the source package reads them
// from CSV, JSON Lines or JSON documents, or from the EODHD API. This package serves as the
// foundational logic of the `btest` command-line tool.
package backtest
