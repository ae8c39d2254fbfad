package store

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/etnz/backtest"
	"github.com/etnz/backtest/date"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gopkg.in/yaml.v3"
)

// Run is the summary of a saved simulation.
type Run struct {
	ID         string
	CreatedAt  time.Time
	Start      date.Date
	Finish     date.Date
	Currency   string
	Assets     []string
	Rebalance  string
	Config     string // YAML
	Cash       backtest.Money
	FinalValue backtest.Money
}

// Value is the saved valuation of a run on one day.
type Value struct {
	On         date.Date
	AllAssets  backtest.Money
	Cash       backtest.Money
	Aggregated bool
}

// Total returns the assets value plus cash.
func (v Value) Total() backtest.Money { return v.AllAssets.Add(v.Cash) }

// SaveRun stores a finished simulation and returns its new id.
func (s *Store) SaveRun(ctx context.Context, r *backtest.Result) (string, error) {
	cfg, err := yaml.Marshal(r.Config)
	if err != nil {
		return "", fmt.Errorf("cannot encode configuration: %w", err)
	}
	final := backtest.M(0, r.Config.Currency)
	if last := r.History.Last(); last != nil {
		final = last.Total()
	}

	id := uuid.NewString()
	tx, err := s.conn.BeginTx(ctx, nil)
	if err != nil {
		return "", fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx,
		`INSERT INTO runs (id, created_at, start, finish, currency, assets, rebalance, config, cash, final_value)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		id,
		time.Now().UTC().Format(time.RFC3339),
		r.Range.From.String(),
		r.Range.To.String(),
		r.Config.Currency,
		strings.Join(r.Strategy, ","),
		r.Config.RebalanceMode().String(),
		string(cfg),
		r.Cash.Decimal().String(),
		final.Decimal().String(),
	); err != nil {
		return "", fmt.Errorf("failed to insert run: %w", err)
	}

	for on, e := range r.History.Values() {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO valuations (run_id, day, all_assets, cash, aggregated) VALUES (?, ?, ?, ?, ?)`,
			id, on.String(), e.AllAssets.Decimal().String(), e.Cash.Decimal().String(), e.Aggregated,
		); err != nil {
			return "", fmt.Errorf("failed to insert valuation of %s: %w", on, err)
		}
	}

	for i, t := range r.Log.Trades() {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO trades (run_id, seq, day, command, ticker, price, quantity) VALUES (?, ?, ?, ?, ?, ?, ?)`,
			id, i, t.On.String(), string(t.Command), t.Ticker, t.Price.Decimal().String(), t.Quantity.Decimal().String(),
		); err != nil {
			return "", fmt.Errorf("failed to insert trade %d: %w", i, err)
		}
	}

	for _, on := range r.Log.Rebalancings() {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO rebalancings (run_id, day) VALUES (?, ?)`, id, on.String(),
		); err != nil {
			return "", fmt.Errorf("failed to insert rebalancing of %s: %w", on, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return "", fmt.Errorf("failed to commit run: %w", err)
	}
	s.log.Info().Str("run", id).Int("days", r.History.Len()).Msg("run saved")
	return id, nil
}

const runColumns = `id, created_at, start, finish, currency, assets, rebalance, config, cash, final_value`

// scanner is implemented by *sql.Row and *sql.Rows.
type scanner interface {
	Scan(dest ...any) error
}

func scanRun(row scanner) (Run, error) {
	var (
		r                      Run
		created, start, finish string
		assets, cash, final    string
	)
	if err := row.Scan(&r.ID, &created, &start, &finish, &r.Currency, &assets, &r.Rebalance, &r.Config, &cash, &final); err != nil {
		return r, err
	}
	var err error
	if r.CreatedAt, err = time.Parse(time.RFC3339, created); err != nil {
		return r, fmt.Errorf("run %s: invalid creation time: %w", r.ID, err)
	}
	if r.Start, err = date.Parse(start); err != nil {
		return r, fmt.Errorf("run %s: %w", r.ID, err)
	}
	if r.Finish, err = date.Parse(finish); err != nil {
		return r, fmt.Errorf("run %s: %w", r.ID, err)
	}
	if assets != "" {
		r.Assets = strings.Split(assets, ",")
	}
	if r.Cash, err = money(cash, r.Currency); err != nil {
		return r, fmt.Errorf("run %s: %w", r.ID, err)
	}
	if r.FinalValue, err = money(final, r.Currency); err != nil {
		return r, fmt.Errorf("run %s: %w", r.ID, err)
	}
	return r, nil
}

// Runs lists the saved runs, most recent first.
func (s *Store) Runs(ctx context.Context) ([]Run, error) {
	rows, err := s.conn.QueryContext(ctx, `SELECT `+runColumns+` FROM runs ORDER BY created_at DESC, rowid DESC`)
	if err != nil {
		return nil, fmt.Errorf("failed to query runs: %w", err)
	}
	defer rows.Close()

	var runs []Run
	for rows.Next() {
		r, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		runs = append(runs, r)
	}
	return runs, rows.Err()
}

// Run returns a single run. id may be any unambiguous prefix of the run id.
func (s *Store) Run(ctx context.Context, id string) (Run, error) {
	rows, err := s.conn.QueryContext(ctx, `SELECT `+runColumns+` FROM runs WHERE id LIKE ? || '%' LIMIT 2`, id)
	if err != nil {
		return Run{}, fmt.Errorf("failed to query run: %w", err)
	}
	defer rows.Close()

	var found []Run
	for rows.Next() {
		r, err := scanRun(rows)
		if err != nil {
			return Run{}, err
		}
		found = append(found, r)
	}
	if err := rows.Err(); err != nil {
		return Run{}, err
	}
	switch len(found) {
	case 0:
		return Run{}, fmt.Errorf("%w: %q", ErrNotFound, id)
	case 1:
		return found[0], nil
	default:
		return Run{}, fmt.Errorf("run id %q is ambiguous", id)
	}
}

// Values returns the saved valuation history of a run, in chronological order.
func (s *Store) Values(ctx context.Context, run Run) ([]Value, error) {
	rows, err := s.conn.QueryContext(ctx,
		`SELECT day, all_assets, cash, aggregated FROM valuations WHERE run_id = ? ORDER BY day`, run.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to query valuations: %w", err)
	}
	defer rows.Close()

	var values []Value
	for rows.Next() {
		var (
			v                Value
			on, assets, cash string
		)
		if err := rows.Scan(&on, &assets, &cash, &v.Aggregated); err != nil {
			return nil, err
		}
		if v.On, err = date.Parse(on); err != nil {
			return nil, err
		}
		if v.AllAssets, err = money(assets, run.Currency); err != nil {
			return nil, err
		}
		if v.Cash, err = money(cash, run.Currency); err != nil {
			return nil, err
		}
		values = append(values, v)
	}
	return values, rows.Err()
}

// Trades returns the saved trades of a run, in execution order.
func (s *Store) Trades(ctx context.Context, run Run) ([]backtest.Trade, error) {
	rows, err := s.conn.QueryContext(ctx,
		`SELECT day, command, ticker, price, quantity FROM trades WHERE run_id = ? ORDER BY seq`, run.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to query trades: %w", err)
	}
	defer rows.Close()

	var trades []backtest.Trade
	for rows.Next() {
		var (
			t                        backtest.Trade
			on, cmd, price, quantity string
		)
		if err := rows.Scan(&on, &cmd, &t.Ticker, &price, &quantity); err != nil {
			return nil, err
		}
		t.Command = backtest.CommandType(cmd)
		if t.On, err = date.Parse(on); err != nil {
			return nil, err
		}
		if t.Price, err = money(price, run.Currency); err != nil {
			return nil, err
		}
		q, err := decimal.NewFromString(quantity)
		if err != nil {
			return nil, fmt.Errorf("invalid quantity %q: %w", quantity, err)
		}
		t.Quantity = backtest.Q(q)
		trades = append(trades, t)
	}
	return trades, rows.Err()
}

// Rebalancings returns the days a run rebalanced its portfolio.
func (s *Store) Rebalancings(ctx context.Context, run Run) ([]date.Date, error) {
	rows, err := s.conn.QueryContext(ctx, `SELECT day FROM rebalancings WHERE run_id = ? ORDER BY day`, run.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to query rebalancings: %w", err)
	}
	defer rows.Close()

	var days []date.Date
	for rows.Next() {
		var on string
		if err := rows.Scan(&on); err != nil {
			return nil, err
		}
		d, err := date.Parse(on)
		if err != nil {
			return nil, err
		}
		days = append(days, d)
	}
	return days, rows.Err()
}

// Delete removes a run and everything saved with it.
func (s *Store) Delete(ctx context.Context, run Run) error {
	res, err := s.conn.ExecContext(ctx, `DELETE FROM runs WHERE id = ?`, run.ID)
	if err != nil {
		return fmt.Errorf("failed to delete run: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return fmt.Errorf("%w: %q", ErrNotFound, run.ID)
	}
	s.log.Info().Str("run", run.ID).Msg("run deleted")
	return nil
}

func money(value, currency string) (backtest.Money, error) {
	d, err := decimal.NewFromString(value)
	if err != nil {
		return backtest.Money{}, fmt.Errorf("invalid amount %q: %w", value, err)
	}
	return backtest.M(d, currency), nil
}

