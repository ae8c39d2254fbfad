package backtest

import (
	"errors"
	"fmt"
	"maps"
	"slices"
)

var (
	// ErrNoAssets is returned when cash must be split over an empty set of assets.
	ErrNoAssets = errors.New("no assets to allocate")
	// ErrZeroPrice is returned when an allocation meets an asset with no positive price.
	ErrZeroPrice = errors.New("asset price is not positive")
)

// DistributeCash splits cash equally over the strategy assets and returns, for
// each priced one, the whole number of units its share can buy at its price.
//
// An asset missing from prices gets nothing, and its share stays in cash.
func DistributeCash(cash Money, strategy []string, prices map[string]Money) (map[string]Quantity, error) {
	if len(strategy) == 0 {
		return nil, ErrNoAssets
	}
	share := cash.Div(Q(len(strategy)))
	distribution := make(map[string]Quantity, len(prices))
	for _, ticker := range strategy {
		price, ok := prices[ticker]
		if !ok {
			continue
		}
		if !price.IsPositive() {
			return nil, fmt.Errorf("%w: %s costs %s", ErrZeroPrice, ticker, price)
		}
		distribution[ticker] = share.DivPrice(price).Floor()
	}
	return distribution, nil
}

// Rebalance redistributes the portfolio value equally over the strategy assets.
//
// snapshot holds the valuation of the assets on the current date; entries that
// are not strategy assets are ignored. Surpluses are sold first, then missing
// units are bought with the available cash, and the remaining cash is swept
// into safeHaven if it is a strategy asset present in the snapshot.
func (p *Portfolio) Rebalance(snapshot map[string]Valuation, strategy []string, safeHaven string) error {
	assets := make(map[string]Valuation, len(strategy))
	for _, ticker := range strategy {
		if v, ok := snapshot[ticker]; ok {
			assets[ticker] = v
		}
	}
	if len(assets) == 0 {
		return fmt.Errorf("cannot rebalance on %s: %w", p.on, ErrNoAssets)
	}
	// strategy order keeps the trades deterministic.
	tickers := slices.DeleteFunc(slices.Clone(strategy), func(t string) bool { _, ok := assets[t]; return !ok })

	total := p.cash
	for _, ticker := range tickers {
		v := assets[ticker]
		if !v.PricePerItem.IsPositive() {
			return fmt.Errorf("cannot rebalance on %s: %w: %s costs %s", p.on, ErrZeroPrice, ticker, v.PricePerItem)
		}
		total = total.Add(v.PricePerItem.Mul(v.Quantity))
	}
	target := total.Div(Q(len(tickers)))

	ideal := make(map[string]Quantity, len(tickers))
	for _, ticker := range tickers {
		ideal[ticker] = target.DivPrice(assets[ticker].PricePerItem).Floor()
	}

	p.log.AddRebalancing(p.on)
	p.logger.Info().
		Str("date", p.on.String()).
		Str("total", total.String()).
		Str("target", target.String()).
		Msg("rebalancing")

	for _, ticker := range tickers {
		v := assets[ticker]
		if v.Quantity.GreaterThan(ideal[ticker]) {
			if err := p.Sell(ticker, v.Quantity.Sub(ideal[ticker]), v.PricePerItem); err != nil {
				return err
			}
		}
	}

	for _, ticker := range tickers {
		v := assets[ticker]
		if !v.Quantity.LessThan(ideal[ticker]) {
			continue
		}
		missing := ideal[ticker].Sub(v.Quantity)
		if p.cash.LessThan(v.PricePerItem.Mul(missing)) {
			// partial rebalance: buy what the cash can afford.
			missing = p.cash.DivPrice(v.PricePerItem).Floor()
		}
		if !missing.IsPositive() {
			continue
		}
		if err := p.Buy(ticker, missing, v.PricePerItem); err != nil {
			return err
		}
	}

	if v, ok := assets[safeHaven]; ok && p.cash.IsPositive() {
		if q := p.cash.DivPrice(v.PricePerItem).Floor(); q.IsPositive() {
			return p.Buy(safeHaven, q, v.PricePerItem)
		}
	}
	return nil
}

// sortedTickers returns the keys of m in lexical order.
func sortedTickers[V any](m map[string]V) []string {
	return slices.Sorted(maps.Keys(m))
}
