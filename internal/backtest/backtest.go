// Package backtest
package backtest

import (
	"math"
	"time"

	"github.com/finpipe/finpipe/internal/indicator"
	"github.com/finpipe/finpipe/internal/price"
	"github.com/finpipe/finpipe/internal/strategy"
)

// Config holds simulation parameters. Configs are immutable per engine
// instance.
type Config struct {
	InitialCapital     float64 `yaml:"initial_capital"`
	CommissionPerTrade float64 `yaml:"commission_per_trade"`
}

// DefaultConfig returns the standard simulation parameters.
func DefaultConfig() Config {
	return Config{
		InitialCapital:     10000.0,
		CommissionPerTrade: 0.0,
	}
}

// Direction of a simulated trade. The current entry logic only opens longs.
type Direction string

const (
	Long  Direction = "long"
	Short Direction = "short"
)

// Trade is one closed round trip from a simulation. Immutable once the
// position closes.
type Trade struct {
	ID                int64     `json:"id"`
	BacktestID        int64     `json:"backtest_id"`
	Symbol            string    `json:"symbol"`
	Direction         Direction `json:"direction"`
	EntryDate         time.Time `json:"entry_date"`
	EntryPrice        float64   `json:"entry_price"`
	ExitDate          time.Time `json:"exit_date"`
	ExitPrice         float64   `json:"exit_price"`
	Shares            float64   `json:"shares"`
	EntryReason       string    `json:"entry_reason"`
	ExitReason        string    `json:"exit_reason"`
	ProfitLoss        float64   `json:"profit_loss"`
	ProfitLossPercent float64   `json:"profit_loss_percent"`
}

// Metrics summarizes a backtest run, derived once from the trade list and
// equity curve.
type Metrics struct {
	TotalReturn          float64 `json:"total_return"`
	TotalReturnDollars   float64 `json:"total_return_dollars"`
	MaxDrawdown          float64 `json:"max_drawdown"`
	SharpeRatio          float64 `json:"sharpe_ratio"`
	WinRate              float64 `json:"win_rate"`
	TotalTrades          int     `json:"total_trades"`
	WinningTrades        int     `json:"winning_trades"`
	LosingTrades         int     `json:"losing_trades"`
	AvgWinPercent        float64 `json:"avg_win_percent"`
	AvgLossPercent       float64 `json:"avg_loss_percent"`
	ProfitFactor         float64 `json:"profit_factor"`
	AvgTradeDurationDays float64 `json:"avg_trade_duration_days"`
}

// Result is one complete backtest run, persisted as a unit.
type Result struct {
	ID             int64     `json:"id"`
	StrategyID     int64     `json:"strategy_id"`
	StrategyName   string    `json:"strategy_name"`
	Symbol         string    `json:"symbol"`
	StartDate      time.Time `json:"start_date"`
	EndDate        time.Time `json:"end_date"`
	InitialCapital float64   `json:"initial_capital"`
	FinalCapital   float64   `json:"final_capital"`
	Metrics        Metrics   `json:"metrics"`
	Trades         []Trade   `json:"trades"`
}

// openPosition is simulation-local state between an entry and its exit,
// owned exclusively by the run loop.
type openPosition struct {
	entryDate   time.Time
	entryPrice  float64
	shares      float64
	entryReason string
}

// Engine simulates rule-based strategies against historical daily data. The
// engine holds no mutable state across runs.
type Engine struct {
	cfg Config
}

// NewEngine creates a backtest engine.
func NewEngine(cfg Config) *Engine {
	return &Engine{cfg: cfg}
}

const exitReasonEndOfData = "end_of_data"

// Run simulates one (strategy, symbol) pair over the price series, advancing
// one trading day at a time. See the per-day transition order below; the
// loop never errors; missing indicator coverage skips evaluation for that
// day while still recording equity.
func (e *Engine) Run(strat *strategy.Strategy, symbol string, prices []price.Point, values []indicator.Value) Result {
	index := indicator.BuildByDate(values)

	sorted := make([]price.Point, len(prices))
	copy(sorted, prices)
	price.SortByDate(sorted)

	cash := e.cfg.InitialCapital
	var position *openPosition
	var trades []Trade
	equityCurve := make([]float64, 0, len(sorted))

	for i, bar := range sorted {
		px := bar.Close

		today := index[bar.Date]
		var prev map[string]float64
		if i > 0 {
			prev = index[sorted[i-1].Date]
		}

		// 1. Mark equity first, even on days without indicator coverage.
		equity := cash
		if position != nil {
			equity = cash + position.shares*px
		}
		equityCurve = append(equityCurve, equity)

		// 2. No indicator values for this date: skip evaluation entirely.
		if today == nil {
			continue
		}

		// 3. Exit evaluation; stop-loss and take-profit take priority over
		// the declared exit condition.
		exitedToday := false
		if position != nil {
			if exitReason, ok := e.shouldExit(strat, px, position.entryPrice, today, prev); ok {
				trades = append(trades, e.closePosition(position, symbol, bar.Date, px, exitReason))
				cash += position.shares*px - e.cfg.CommissionPerTrade
				position = nil
				exitedToday = true
			}
		}

		// 4. Entry evaluation. One transition per day: a same-day re-entry
		// after an exit is not permitted.
		if position == nil && !exitedToday {
			if strat.EntryCondition.Met(strat.EntryThreshold, px, today, prev) {
				positionValue := cash * (strat.PositionSizePercent / 100.0)
				shares := math.Floor((positionValue - e.cfg.CommissionPerTrade) / px)

				if shares > 0 {
					cash -= shares*px + e.cfg.CommissionPerTrade
					position = &openPosition{
						entryDate:   bar.Date,
						entryPrice:  px,
						shares:      shares,
						entryReason: string(strat.EntryCondition),
					}
				}
			}
		}
	}

	// 5. Force-close at the final bar if data ends while in position.
	if position != nil && len(sorted) > 0 {
		last := sorted[len(sorted)-1]
		trades = append(trades, e.closePosition(position, symbol, last.Date, last.Close, exitReasonEndOfData))
		cash += position.shares*last.Close - e.cfg.CommissionPerTrade
		position = nil
	}

	var startDate, endDate time.Time
	if len(sorted) > 0 {
		startDate = sorted[0].Date
		endDate = sorted[len(sorted)-1].Date
	}

	return Result{
		StrategyID:     strat.ID,
		StrategyName:   strat.Name,
		Symbol:         symbol,
		StartDate:      startDate,
		EndDate:        endDate,
		InitialCapital: e.cfg.InitialCapital,
		FinalCapital:   cash,
		Metrics:        e.calculateMetrics(trades, equityCurve),
		Trades:         trades,
	}
}

// shouldExit checks exit rules in priority order: stop-loss, take-profit,
// then the strategy's declared exit condition. First match wins.
func (e *Engine) shouldExit(strat *strategy.Strategy, px, entryPrice float64, today, prev map[string]float64) (string, bool) {
	if strat.StopLossPercent != nil {
		stopPrice := entryPrice * (1.0 - *strat.StopLossPercent/100.0)
		if px <= stopPrice {
			return string(strategy.StopLoss), true
		}
	}

	if strat.TakeProfitPercent != nil {
		targetPrice := entryPrice * (1.0 + *strat.TakeProfitPercent/100.0)
		if px >= targetPrice {
			return string(strategy.TakeProfit), true
		}
	}

	if strat.ExitCondition.Met(strat.ExitThreshold, px, today, prev) {
		return string(strat.ExitCondition), true
	}

	return "", false
}

func (e *Engine) closePosition(pos *openPosition, symbol string, date time.Time, px float64, reason string) Trade {
	return Trade{
		Symbol:            symbol,
		Direction:         Long,
		EntryDate:         pos.entryDate,
		EntryPrice:        pos.entryPrice,
		ExitDate:          date,
		ExitPrice:         px,
		Shares:            pos.shares,
		EntryReason:       pos.entryReason,
		ExitReason:        reason,
		ProfitLoss:        (px-pos.entryPrice)*pos.shares - e.cfg.CommissionPerTrade,
		ProfitLossPercent: (px - pos.entryPrice) / pos.entryPrice * 100.0,
	}
}
