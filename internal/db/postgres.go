package db

import (
	"context"
	"database/sql"
	"fmt"
	"math"
	"time"

	"github.com/finpipe/finpipe/internal/alert"
	"github.com/finpipe/finpipe/internal/backtest"
	"github.com/finpipe/finpipe/internal/db/conf"
	"github.com/finpipe/finpipe/internal/fetch"
	"github.com/finpipe/finpipe/internal/indicator"
	"github.com/finpipe/finpipe/internal/price"
	"github.com/finpipe/finpipe/internal/signal"
	"github.com/finpipe/finpipe/internal/strategy"
	_ "github.com/lib/pq"
)

// Transaction context key
type txKey struct{}

// WithTransaction adds a transaction to the context
func WithTransaction(ctx context.Context, tx *sql.Tx) context.Context {
	return context.WithValue(ctx, txKey{}, tx)
}

// GetTransaction retrieves a transaction from context, or returns nil if not present
func GetTransaction(ctx context.Context) *sql.Tx {
	if tx, ok := ctx.Value(txKey{}).(*sql.Tx); ok {
		return tx
	}
	return nil
}

// executeWithTransaction executes a function with proper transaction management
// If a transaction exists in context, it uses that. Otherwise, it creates a new one.
func (p *Default) executeWithTransaction(ctx context.Context, fn func(*sql.Tx) error) error {
	if tx := GetTransaction(ctx); tx != nil {
		return fn(tx)
	}

	tx, err := p.db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}

	if fnErr := fn(tx); fnErr != nil {
		if rbErr := tx.Rollback(); rbErr != nil {
			return fmt.Errorf("transaction rollback failed: %w (original error: %v)", rbErr, fnErr)
		}
		return fnErr
	}

	if commitErr := tx.Commit(); commitErr != nil {
		return fmt.Errorf("transaction commit failed: %w", commitErr)
	}

	return nil
}

// queryWithTransaction executes a query using transaction from context if available
func (p *Default) queryWithTransaction(ctx context.Context, query string, args ...any) (*sql.Rows, error) {
	if tx := GetTransaction(ctx); tx != nil {
		return tx.QueryContext(ctx, query, args...)
	}
	return p.db.QueryContext(ctx, query, args...)
}

type Default struct {
	db *sql.DB
}

func New(c conf.Config) (*Default, error) {
	return &Default{db: c.DB}, nil
}

func (p *Default) GetDB() *sql.DB {
	return p.db
}

// SaveSymbol upserts one tradable symbol, keyed by ticker.
func (p *Default) SaveSymbol(ctx context.Context, s price.Symbol) error {
	if s.Symbol == "" {
		return fmt.Errorf("symbol ticker cannot be empty")
	}

	return p.executeWithTransaction(ctx, func(tx *sql.Tx) error {
		_, err := tx.ExecContext(ctx, `
		INSERT INTO symbols (symbol, name, sector, industry, market_cap, country, exchange, currency, asset_class)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9)
		ON CONFLICT (symbol) DO UPDATE SET
			name=EXCLUDED.name, sector=EXCLUDED.sector, industry=EXCLUDED.industry,
			market_cap=EXCLUDED.market_cap, country=EXCLUDED.country, exchange=EXCLUDED.exchange,
			currency=EXCLUDED.currency, asset_class=EXCLUDED.asset_class`,
			s.Symbol, s.Name, s.Sector, s.Industry, s.MarketCap, s.Country, s.Exchange, s.Currency, s.AssetClass)
		if err != nil {
			return fmt.Errorf("failed to save symbol %s: %w", s.Symbol, err)
		}
		return nil
	})
}

func (p *Default) GetSymbols(ctx context.Context) ([]price.Symbol, error) {
	rows, err := p.queryWithTransaction(ctx, `
		SELECT symbol, name, sector, industry, market_cap, country, exchange, currency, asset_class
		FROM symbols ORDER BY symbol`)
	if err != nil {
		return nil, fmt.Errorf("failed to query symbols: %w", err)
	}
	defer rows.Close()

	var symbols []price.Symbol
	for rows.Next() {
		var s price.Symbol
		if err := rows.Scan(&s.Symbol, &s.Name, &s.Sector, &s.Industry, &s.MarketCap,
			&s.Country, &s.Exchange, &s.Currency, &s.AssetClass); err != nil {
			return nil, fmt.Errorf("failed to scan symbol: %w", err)
		}
		symbols = append(symbols, s)
	}
	return symbols, rows.Err()
}

// SavePrices upserts a batch of daily bars keyed by (symbol, date, source).
func (p *Default) SavePrices(ctx context.Context, points []price.Point) error {
	if len(points) == 0 {
		return nil
	}

	for i, pt := range points {
		if err := pt.Validate(); err != nil {
			return fmt.Errorf("invalid price at index %d for %s at %s: %w",
				i, pt.Symbol, pt.Date.Format("2006-01-02"), err)
		}
	}

	return p.executeWithTransaction(ctx, func(tx *sql.Tx) error {
		stmt, err := tx.PrepareContext(ctx, `
			INSERT INTO daily_prices (symbol, date, open, high, low, close, volume, source)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
			ON CONFLICT (symbol, date, source) DO UPDATE SET
				open=EXCLUDED.open, high=EXCLUDED.high, low=EXCLUDED.low,
				close=EXCLUDED.close, volume=EXCLUDED.volume
		`)
		if err != nil {
			return fmt.Errorf("failed to prepare insert statement: %w", err)
		}
		defer stmt.Close()

		for i, pt := range points {
			if _, err := stmt.ExecContext(ctx,
				pt.Symbol, pt.Date, pt.Open, pt.High, pt.Low, pt.Close, pt.Volume, pt.Source); err != nil {
				return fmt.Errorf("failed to save price at index %d (%s at %s): %w",
					i, pt.Symbol, pt.Date.Format("2006-01-02"), err)
			}
		}
		return nil
	})
}

func (p *Default) GetPrices(ctx context.Context, symbol string) ([]price.Point, error) {
	return p.scanPrices(ctx, `
		SELECT symbol, date, open, high, low, close, volume, source
		FROM daily_prices WHERE symbol=$1 ORDER BY date ASC`, symbol)
}

func (p *Default) GetPricesRange(ctx context.Context, symbol string, start, end time.Time) ([]price.Point, error) {
	return p.scanPrices(ctx, `
		SELECT symbol, date, open, high, low, close, volume, source
		FROM daily_prices WHERE symbol=$1 AND date >= $2 AND date <= $3 ORDER BY date ASC`,
		symbol, start, end)
}

func (p *Default) scanPrices(ctx context.Context, query string, args ...any) ([]price.Point, error) {
	rows, err := p.queryWithTransaction(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query prices: %w", err)
	}
	defer rows.Close()

	var points []price.Point
	for rows.Next() {
		var pt price.Point
		if err := rows.Scan(&pt.Symbol, &pt.Date, &pt.Open, &pt.High, &pt.Low,
			&pt.Close, &pt.Volume, &pt.Source); err != nil {
			return nil, fmt.Errorf("failed to scan price: %w", err)
		}
		pt.Date = pt.Date.UTC()
		points = append(points, pt)
	}
	return points, rows.Err()
}

func (p *Default) GetLatestPrice(ctx context.Context, symbol string) (*price.Point, error) {
	rows, err := p.queryWithTransaction(ctx, `
		SELECT symbol, date, open, high, low, close, volume, source
		FROM daily_prices WHERE symbol=$1 ORDER BY date DESC LIMIT 1`, symbol)
	if err != nil {
		return nil, fmt.Errorf("failed to query latest price for %s: %w", symbol, err)
	}
	defer rows.Close()

	if !rows.Next() {
		return nil, rows.Err()
	}
	var pt price.Point
	if err := rows.Scan(&pt.Symbol, &pt.Date, &pt.Open, &pt.High, &pt.Low,
		&pt.Close, &pt.Volume, &pt.Source); err != nil {
		return nil, fmt.Errorf("failed to scan latest price for %s: %w", symbol, err)
	}
	pt.Date = pt.Date.UTC()
	return &pt, rows.Err()
}

// SaveIndicatorValues upserts computed indicator values keyed by
// (symbol, date, name), so recomputation over revised history converges.
func (p *Default) SaveIndicatorValues(ctx context.Context, values []indicator.Value) error {
	if len(values) == 0 {
		return nil
	}

	return p.executeWithTransaction(ctx, func(tx *sql.Tx) error {
		stmt, err := tx.PrepareContext(ctx, `
			INSERT INTO technical_indicators (symbol, date, indicator_name, value)
			VALUES ($1, $2, $3, $4)
			ON CONFLICT (symbol, date, indicator_name) DO UPDATE SET value=EXCLUDED.value
		`)
		if err != nil {
			return fmt.Errorf("failed to prepare insert statement: %w", err)
		}
		defer stmt.Close()

		for i, v := range values {
			if _, err := stmt.ExecContext(ctx, v.Symbol, v.Date, v.Name, v.Value); err != nil {
				return fmt.Errorf("failed to save indicator at index %d (%s %s at %s): %w",
					i, v.Symbol, v.Name, v.Date.Format("2006-01-02"), err)
			}
		}
		return nil
	})
}

func (p *Default) GetIndicatorValues(ctx context.Context, symbol string) ([]indicator.Value, error) {
	rows, err := p.queryWithTransaction(ctx, `
		SELECT symbol, date, indicator_name, value
		FROM technical_indicators WHERE symbol=$1 ORDER BY date ASC, indicator_name ASC`, symbol)
	if err != nil {
		return nil, fmt.Errorf("failed to query indicators for %s: %w", symbol, err)
	}
	defer rows.Close()

	var values []indicator.Value
	for rows.Next() {
		var v indicator.Value
		if err := rows.Scan(&v.Symbol, &v.Date, &v.Name, &v.Value); err != nil {
			return nil, fmt.Errorf("failed to scan indicator: %w", err)
		}
		v.Date = v.Date.UTC()
		values = append(values, v)
	}
	return values, rows.Err()
}

// GetLatestIndicatorValues returns the most recent value of each indicator
// name stored for the symbol.
func (p *Default) GetLatestIndicatorValues(ctx context.Context, symbol string) (map[string]float64, error) {
	rows, err := p.queryWithTransaction(ctx, `
		SELECT DISTINCT ON (indicator_name) indicator_name, value
		FROM technical_indicators WHERE symbol=$1
		ORDER BY indicator_name, date DESC`, symbol)
	if err != nil {
		return nil, fmt.Errorf("failed to query latest indicators for %s: %w", symbol, err)
	}
	defer rows.Close()

	latest := make(map[string]float64)
	for rows.Next() {
		var name string
		var value float64
		if err := rows.Scan(&name, &value); err != nil {
			return nil, fmt.Errorf("failed to scan latest indicator: %w", err)
		}
		latest[name] = value
	}
	return latest, rows.Err()
}

// SaveSignals upserts signals keyed by (symbol, signal_type, date). Re-running
// detection over the same history updates strength and trigger fields instead
// of duplicating rows.
func (p *Default) SaveSignals(ctx context.Context, signals []signal.Signal) error {
	if len(signals) == 0 {
		return nil
	}

	return p.executeWithTransaction(ctx, func(tx *sql.Tx) error {
		stmt, err := tx.PrepareContext(ctx, `
			INSERT INTO signals (symbol, signal_type, direction, strength, price_at_signal, triggered_by, trigger_value, date, acknowledged)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
			ON CONFLICT (symbol, signal_type, date) DO UPDATE SET
				direction=EXCLUDED.direction, strength=EXCLUDED.strength,
				price_at_signal=EXCLUDED.price_at_signal, triggered_by=EXCLUDED.triggered_by,
				trigger_value=EXCLUDED.trigger_value
		`)
		if err != nil {
			return fmt.Errorf("failed to prepare insert statement: %w", err)
		}
		defer stmt.Close()

		for i, s := range signals {
			if _, err := stmt.ExecContext(ctx,
				s.Symbol, string(s.Type), string(s.Direction), s.Strength,
				s.PriceAtSignal, s.TriggeredBy, s.TriggerValue, s.Date, s.Acknowledged); err != nil {
				return fmt.Errorf("failed to save signal at index %d (%s %s at %s): %w",
					i, s.Symbol, s.Type, s.Date.Format("2006-01-02"), err)
			}
		}
		return nil
	})
}

func (p *Default) GetSignals(ctx context.Context, symbol string) ([]signal.Signal, error) {
	return p.scanSignals(ctx, `
		SELECT id, symbol, signal_type, direction, strength, price_at_signal, triggered_by, trigger_value, date, acknowledged
		FROM signals WHERE symbol=$1 ORDER BY date ASC`, symbol)
}

func (p *Default) GetUnacknowledgedSignals(ctx context.Context) ([]signal.Signal, error) {
	return p.scanSignals(ctx, `
		SELECT id, symbol, signal_type, direction, strength, price_at_signal, triggered_by, trigger_value, date, acknowledged
		FROM signals WHERE acknowledged=false ORDER BY date ASC`)
}

func (p *Default) scanSignals(ctx context.Context, query string, args ...any) ([]signal.Signal, error) {
	rows, err := p.queryWithTransaction(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query signals: %w", err)
	}
	defer rows.Close()

	var signals []signal.Signal
	for rows.Next() {
		var s signal.Signal
		var typ, dir string
		if err := rows.Scan(&s.ID, &s.Symbol, &typ, &dir, &s.Strength,
			&s.PriceAtSignal, &s.TriggeredBy, &s.TriggerValue, &s.Date, &s.Acknowledged); err != nil {
			return nil, fmt.Errorf("failed to scan signal: %w", err)
		}
		parsed, err := signal.ParseType(typ)
		if err != nil {
			return nil, fmt.Errorf("stored signal %d: %w", s.ID, err)
		}
		s.Type = parsed
		s.Direction = signal.ParseDirection(dir)
		s.Date = s.Date.UTC()
		signals = append(signals, s)
	}
	return signals, rows.Err()
}

func (p *Default) AcknowledgeSignal(ctx context.Context, id int64) error {
	return p.executeWithTransaction(ctx, func(tx *sql.Tx) error {
		res, err := tx.ExecContext(ctx, `UPDATE signals SET acknowledged=true WHERE id=$1`, id)
		if err != nil {
			return fmt.Errorf("failed to acknowledge signal %d: %w", id, err)
		}
		n, err := res.RowsAffected()
		if err != nil {
			return fmt.Errorf("failed to get rows affected for signal %d: %w", id, err)
		}
		if n == 0 {
			return fmt.Errorf("signal %d not found", id)
		}
		return nil
	})
}

// SaveStrategy upserts a strategy definition by name and returns its id.
func (p *Default) SaveStrategy(ctx context.Context, s strategy.Strategy) (int64, error) {
	if err := s.Validate(); err != nil {
		return 0, fmt.Errorf("invalid strategy %q: %w", s.Name, err)
	}

	var id int64
	err := p.executeWithTransaction(ctx, func(tx *sql.Tx) error {
		return tx.QueryRowContext(ctx, `
			INSERT INTO strategies (name, description, entry_condition, entry_threshold, exit_condition, exit_threshold,
				stop_loss_percent, take_profit_percent, position_size_percent)
			VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9)
			ON CONFLICT (name) DO UPDATE SET
				description=EXCLUDED.description,
				entry_condition=EXCLUDED.entry_condition, entry_threshold=EXCLUDED.entry_threshold,
				exit_condition=EXCLUDED.exit_condition, exit_threshold=EXCLUDED.exit_threshold,
				stop_loss_percent=EXCLUDED.stop_loss_percent, take_profit_percent=EXCLUDED.take_profit_percent,
				position_size_percent=EXCLUDED.position_size_percent
			RETURNING id`,
			s.Name, s.Description, string(s.EntryCondition), s.EntryThreshold,
			string(s.ExitCondition), s.ExitThreshold,
			s.StopLossPercent, s.TakeProfitPercent, s.PositionSizePercent).Scan(&id)
	})
	if err != nil {
		return 0, fmt.Errorf("failed to save strategy %q: %w", s.Name, err)
	}
	return id, nil
}

func (p *Default) GetStrategies(ctx context.Context) ([]strategy.Strategy, error) {
	rows, err := p.queryWithTransaction(ctx, `
		SELECT id, name, description, entry_condition, entry_threshold, exit_condition, exit_threshold,
			stop_loss_percent, take_profit_percent, position_size_percent
		FROM strategies ORDER BY name`)
	if err != nil {
		return nil, fmt.Errorf("failed to query strategies: %w", err)
	}
	defer rows.Close()

	var strategies []strategy.Strategy
	for rows.Next() {
		s, err := scanStrategy(rows)
		if err != nil {
			return nil, err
		}
		strategies = append(strategies, *s)
	}
	return strategies, rows.Err()
}

func (p *Default) GetStrategy(ctx context.Context, name string) (*strategy.Strategy, error) {
	rows, err := p.queryWithTransaction(ctx, `
		SELECT id, name, description, entry_condition, entry_threshold, exit_condition, exit_threshold,
			stop_loss_percent, take_profit_percent, position_size_percent
		FROM strategies WHERE name=$1`, name)
	if err != nil {
		return nil, fmt.Errorf("failed to query strategy %q: %w", name, err)
	}
	defer rows.Close()

	if !rows.Next() {
		if err := rows.Err(); err != nil {
			return nil, err
		}
		return nil, fmt.Errorf("strategy %q not found", name)
	}
	return scanStrategy(rows)
}

func scanStrategy(rows *sql.Rows) (*strategy.Strategy, error) {
	var s strategy.Strategy
	var entry, exit string
	if err := rows.Scan(&s.ID, &s.Name, &s.Description, &entry, &s.EntryThreshold,
		&exit, &s.ExitThreshold, &s.StopLossPercent, &s.TakeProfitPercent, &s.PositionSizePercent); err != nil {
		return nil, fmt.Errorf("failed to scan strategy: %w", err)
	}
	entryCond, err := strategy.ParseCondition(entry)
	if err != nil {
		return nil, fmt.Errorf("stored strategy %q: %w", s.Name, err)
	}
	exitCond, err := strategy.ParseCondition(exit)
	if err != nil {
		return nil, fmt.Errorf("stored strategy %q: %w", s.Name, err)
	}
	s.EntryCondition = entryCond
	s.ExitCondition = exitCond
	return &s, nil
}

// SaveResult stores a backtest run and its trades in one transaction and
// returns the generated run id.
// finiteOrNull maps non-finite metric values to SQL NULL. Postgres rejects
// the textual Inf encodings driver-side floats produce.
func finiteOrNull(v float64) sql.NullFloat64 {
	if math.IsInf(v, 0) || math.IsNaN(v) {
		return sql.NullFloat64{}
	}
	return sql.NullFloat64{Float64: v, Valid: true}
}

func (p *Default) SaveResult(ctx context.Context, r backtest.Result) (int64, error) {
	var runID int64
	err := p.executeWithTransaction(ctx, func(tx *sql.Tx) error {
		err := tx.QueryRowContext(ctx, `
			INSERT INTO backtest_runs (strategy_id, strategy_name, symbol, start_date, end_date,
				initial_capital, final_capital, total_return, total_return_dollars, max_drawdown,
				sharpe_ratio, win_rate, total_trades, winning_trades, losing_trades,
				avg_win_percent, avg_loss_percent, profit_factor, avg_trade_duration_days)
			VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16,$17,$18,$19)
			RETURNING id`,
			r.StrategyID, r.StrategyName, r.Symbol, r.StartDate, r.EndDate,
			r.InitialCapital, r.FinalCapital,
			r.Metrics.TotalReturn, r.Metrics.TotalReturnDollars, r.Metrics.MaxDrawdown,
			r.Metrics.SharpeRatio, r.Metrics.WinRate, r.Metrics.TotalTrades,
			r.Metrics.WinningTrades, r.Metrics.LosingTrades,
			r.Metrics.AvgWinPercent, r.Metrics.AvgLossPercent,
			finiteOrNull(r.Metrics.ProfitFactor), r.Metrics.AvgTradeDurationDays).Scan(&runID)
		if err != nil {
			return fmt.Errorf("failed to save backtest run for %q on %s: %w", r.StrategyName, r.Symbol, err)
		}

		if len(r.Trades) == 0 {
			return nil
		}

		stmt, err := tx.PrepareContext(ctx, `
			INSERT INTO backtest_trades (backtest_id, symbol, direction, entry_date, entry_price,
				exit_date, exit_price, shares, entry_reason, exit_reason, profit_loss, profit_loss_percent)
			VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12)
		`)
		if err != nil {
			return fmt.Errorf("failed to prepare trade insert: %w", err)
		}
		defer stmt.Close()

		for i, t := range r.Trades {
			if _, err := stmt.ExecContext(ctx,
				runID, t.Symbol, string(t.Direction), t.EntryDate, t.EntryPrice,
				t.ExitDate, t.ExitPrice, t.Shares, t.EntryReason, t.ExitReason,
				t.ProfitLoss, t.ProfitLossPercent); err != nil {
				return fmt.Errorf("failed to save trade at index %d: %w", i, err)
			}
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	return runID, nil
}

func (p *Default) GetResults(ctx context.Context, symbol string) ([]backtest.Result, error) {
	rows, err := p.queryWithTransaction(ctx, `
		SELECT id, strategy_id, strategy_name, symbol, start_date, end_date,
			initial_capital, final_capital, total_return, total_return_dollars, max_drawdown,
			sharpe_ratio, win_rate, total_trades, winning_trades, losing_trades,
			avg_win_percent, avg_loss_percent, profit_factor, avg_trade_duration_days
		FROM backtest_runs WHERE symbol=$1 ORDER BY id ASC`, symbol)
	if err != nil {
		return nil, fmt.Errorf("failed to query backtest runs for %s: %w", symbol, err)
	}
	defer rows.Close()

	var results []backtest.Result
	for rows.Next() {
		var r backtest.Result
		var profitFactor sql.NullFloat64
		if err := rows.Scan(&r.ID, &r.StrategyID, &r.StrategyName, &r.Symbol, &r.StartDate, &r.EndDate,
			&r.InitialCapital, &r.FinalCapital,
			&r.Metrics.TotalReturn, &r.Metrics.TotalReturnDollars, &r.Metrics.MaxDrawdown,
			&r.Metrics.SharpeRatio, &r.Metrics.WinRate, &r.Metrics.TotalTrades,
			&r.Metrics.WinningTrades, &r.Metrics.LosingTrades,
			&r.Metrics.AvgWinPercent, &r.Metrics.AvgLossPercent,
			&profitFactor, &r.Metrics.AvgTradeDurationDays); err != nil {
			return nil, fmt.Errorf("failed to scan backtest run: %w", err)
		}
		if profitFactor.Valid {
			r.Metrics.ProfitFactor = profitFactor.Float64
		} else {
			r.Metrics.ProfitFactor = math.Inf(1)
		}
		r.StartDate = r.StartDate.UTC()
		r.EndDate = r.EndDate.UTC()
		results = append(results, r)
	}
	return results, rows.Err()
}

func (p *Default) GetTrades(ctx context.Context, backtestID int64) ([]backtest.Trade, error) {
	rows, err := p.queryWithTransaction(ctx, `
		SELECT id, backtest_id, symbol, direction, entry_date, entry_price,
			exit_date, exit_price, shares, entry_reason, exit_reason, profit_loss, profit_loss_percent
		FROM backtest_trades WHERE backtest_id=$1 ORDER BY entry_date ASC`, backtestID)
	if err != nil {
		return nil, fmt.Errorf("failed to query trades for run %d: %w", backtestID, err)
	}
	defer rows.Close()

	var trades []backtest.Trade
	for rows.Next() {
		var t backtest.Trade
		var dir string
		if err := rows.Scan(&t.ID, &t.BacktestID, &t.Symbol, &dir, &t.EntryDate, &t.EntryPrice,
			&t.ExitDate, &t.ExitPrice, &t.Shares, &t.EntryReason, &t.ExitReason,
			&t.ProfitLoss, &t.ProfitLossPercent); err != nil {
			return nil, fmt.Errorf("failed to scan trade: %w", err)
		}
		t.Direction = backtest.Direction(dir)
		t.EntryDate = t.EntryDate.UTC()
		t.ExitDate = t.ExitDate.UTC()
		trades = append(trades, t)
	}
	return trades, rows.Err()
}

func (p *Default) SavePriceAlert(ctx context.Context, a alert.PriceAlert) (int64, error) {
	var id int64
	err := p.executeWithTransaction(ctx, func(tx *sql.Tx) error {
		return tx.QueryRowContext(ctx, `
			INSERT INTO price_alerts (symbol, target_price, condition, triggered)
			VALUES ($1,$2,$3,$4) RETURNING id`,
			a.Symbol, a.TargetPrice, string(a.Condition), a.Triggered).Scan(&id)
	})
	if err != nil {
		return 0, fmt.Errorf("failed to save price alert for %s: %w", a.Symbol, err)
	}
	return id, nil
}

func (p *Default) GetActivePriceAlerts(ctx context.Context) ([]alert.PriceAlert, error) {
	rows, err := p.queryWithTransaction(ctx, `
		SELECT id, symbol, target_price, condition, triggered
		FROM price_alerts WHERE triggered=false ORDER BY id ASC`)
	if err != nil {
		return nil, fmt.Errorf("failed to query price alerts: %w", err)
	}
	defer rows.Close()

	var alerts []alert.PriceAlert
	for rows.Next() {
		var a alert.PriceAlert
		var cond string
		if err := rows.Scan(&a.ID, &a.Symbol, &a.TargetPrice, &cond, &a.Triggered); err != nil {
			return nil, fmt.Errorf("failed to scan price alert: %w", err)
		}
		parsed, err := alert.ParsePriceCondition(cond)
		if err != nil {
			return nil, fmt.Errorf("stored price alert %d: %w", a.ID, err)
		}
		a.Condition = parsed
		alerts = append(alerts, a)
	}
	return alerts, rows.Err()
}

func (p *Default) MarkPriceAlertTriggered(ctx context.Context, id int64) error {
	return p.executeWithTransaction(ctx, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, `UPDATE price_alerts SET triggered=true WHERE id=$1`, id); err != nil {
			return fmt.Errorf("failed to mark price alert %d triggered: %w", id, err)
		}
		return nil
	})
}

func (p *Default) SaveIndicatorAlert(ctx context.Context, a alert.IndicatorAlert) (int64, error) {
	var id int64
	err := p.executeWithTransaction(ctx, func(tx *sql.Tx) error {
		return tx.QueryRowContext(ctx, `
			INSERT INTO indicator_alerts (symbol, alert_type, indicator_name, secondary_indicator,
				condition, threshold, triggered, last_value, message)
			VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9) RETURNING id`,
			a.Symbol, string(a.AlertType), a.IndicatorName, a.SecondaryIndicator,
			string(a.Condition), a.Threshold, a.Triggered, a.LastValue, a.Message).Scan(&id)
	})
	if err != nil {
		return 0, fmt.Errorf("failed to save indicator alert for %s: %w", a.Symbol, err)
	}
	return id, nil
}

func (p *Default) GetActiveIndicatorAlerts(ctx context.Context) ([]alert.IndicatorAlert, error) {
	rows, err := p.queryWithTransaction(ctx, `
		SELECT id, symbol, alert_type, indicator_name, secondary_indicator, condition, threshold, triggered, last_value, message
		FROM indicator_alerts WHERE triggered=false ORDER BY id ASC`)
	if err != nil {
		return nil, fmt.Errorf("failed to query indicator alerts: %w", err)
	}
	defer rows.Close()

	var alerts []alert.IndicatorAlert
	for rows.Next() {
		var a alert.IndicatorAlert
		var typ, cond string
		if err := rows.Scan(&a.ID, &a.Symbol, &typ, &a.IndicatorName, &a.SecondaryIndicator,
			&cond, &a.Threshold, &a.Triggered, &a.LastValue, &a.Message); err != nil {
			return nil, fmt.Errorf("failed to scan indicator alert: %w", err)
		}
		a.AlertType = alert.Type(typ)
		parsed, err := alert.ParseCondition(cond)
		if err != nil {
			return nil, fmt.Errorf("stored indicator alert %d: %w", a.ID, err)
		}
		a.Condition = parsed
		alerts = append(alerts, a)
	}
	return alerts, rows.Err()
}

func (p *Default) MarkIndicatorAlertTriggered(ctx context.Context, id int64, lastValue float64) error {
	return p.executeWithTransaction(ctx, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx,
			`UPDATE indicator_alerts SET triggered=true, last_value=$2 WHERE id=$1`, id, lastValue); err != nil {
			return fmt.Errorf("failed to mark indicator alert %d triggered: %w", id, err)
		}
		return nil
	})
}

// SaveMacroPoints upserts macro observations keyed by (indicator, date).
func (p *Default) SaveMacroPoints(ctx context.Context, points []fetch.MacroPoint) error {
	if len(points) == 0 {
		return nil
	}

	return p.executeWithTransaction(ctx, func(tx *sql.Tx) error {
		stmt, err := tx.PrepareContext(ctx, `
			INSERT INTO macro_data (indicator, date, value, source)
			VALUES ($1, $2, $3, $4)
			ON CONFLICT (indicator, date) DO UPDATE SET value=EXCLUDED.value, source=EXCLUDED.source
		`)
		if err != nil {
			return fmt.Errorf("failed to prepare insert statement: %w", err)
		}
		defer stmt.Close()

		for i, m := range points {
			if _, err := stmt.ExecContext(ctx, m.Indicator, m.Date, m.Value, m.Source); err != nil {
				return fmt.Errorf("failed to save macro point at index %d (%s at %s): %w",
					i, m.Indicator, m.Date.Format("2006-01-02"), err)
			}
		}
		return nil
	})
}

func (p *Default) GetMacroPoints(ctx context.Context, indicatorName string) ([]fetch.MacroPoint, error) {
	rows, err := p.queryWithTransaction(ctx, `
		SELECT indicator, date, value, source
		FROM macro_data WHERE indicator=$1 ORDER BY date ASC`, indicatorName)
	if err != nil {
		return nil, fmt.Errorf("failed to query macro data for %s: %w", indicatorName, err)
	}
	defer rows.Close()

	var points []fetch.MacroPoint
	for rows.Next() {
		var m fetch.MacroPoint
		if err := rows.Scan(&m.Indicator, &m.Date, &m.Value, &m.Source); err != nil {
			return nil, fmt.Errorf("failed to scan macro point: %w", err)
		}
		m.Date = m.Date.UTC()
		points = append(points, m)
	}
	return points, rows.Err()
}
