package backtest

import (
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/finpipe/finpipe/internal/indicator"
	"github.com/finpipe/finpipe/internal/price"
	"github.com/finpipe/finpipe/internal/strategy"
)

func day(i int) time.Time {
	return time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC).AddDate(0, 0, i)
}

func bar(i int, close float64) price.Point {
	return price.Point{
		Symbol: "TEST",
		Date:   day(i),
		Open:   close,
		High:   close + 1,
		Low:    close - 1,
		Close:  close,
		Volume: 1000,
		Source: "test",
	}
}

func ival(i int, name string, v float64) indicator.Value {
	return indicator.Value{Symbol: "TEST", Date: day(i), Name: name, Value: v}
}

func ptr(v float64) *float64 { return &v }

func rsiStrategy() *strategy.Strategy {
	return &strategy.Strategy{
		ID:                  1,
		Name:                "rsi-reversion",
		EntryCondition:      strategy.RSIOversold,
		EntryThreshold:      30,
		ExitCondition:       strategy.RSIOverbought,
		ExitThreshold:       70,
		PositionSizePercent: 100,
	}
}

func TestRunNoEntryKeepsCapital(t *testing.T) {
	e := NewEngine(Config{InitialCapital: 10000, CommissionPerTrade: 5})

	rsi := indicator.RSIName(14)
	prices := []price.Point{bar(0, 100), bar(1, 101), bar(2, 102), bar(3, 103)}
	// Day 2 deliberately has no indicator coverage.
	values := []indicator.Value{
		ival(0, rsi, 50), ival(1, rsi, 55), ival(3, rsi, 60),
	}

	result := e.Run(rsiStrategy(), "TEST", prices, values)

	assert.Empty(t, result.Trades)
	assert.Equal(t, 10000.0, result.FinalCapital)
	assert.Equal(t, 0, result.Metrics.TotalTrades)
	assert.Equal(t, 0.0, result.Metrics.TotalReturn)
	assert.Equal(t, 0.0, result.Metrics.MaxDrawdown)
	assert.Equal(t, 0.0, result.Metrics.SharpeRatio)
	assert.Equal(t, day(0), result.StartDate)
	assert.Equal(t, day(3), result.EndDate)
}

func TestRunSingleRoundTrip(t *testing.T) {
	e := NewEngine(Config{InitialCapital: 10000, CommissionPerTrade: 5})

	rsi := indicator.RSIName(14)
	prices := []price.Point{bar(0, 100), bar(1, 110), bar(2, 120)}
	values := []indicator.Value{
		ival(0, rsi, 25), // entry
		ival(1, rsi, 50),
		ival(2, rsi, 75), // exit
	}

	result := e.Run(rsiStrategy(), "TEST", prices, values)

	assert.Len(t, result.Trades, 1)
	trade := result.Trades[0]

	// floor((10000 - 5) / 100) = 99 shares.
	assert.Equal(t, 99.0, trade.Shares)
	assert.Equal(t, day(0), trade.EntryDate)
	assert.Equal(t, 100.0, trade.EntryPrice)
	assert.Equal(t, day(2), trade.ExitDate)
	assert.Equal(t, 120.0, trade.ExitPrice)
	assert.Equal(t, "rsi_oversold", trade.EntryReason)
	assert.Equal(t, "rsi_overbought", trade.ExitReason)
	assert.Equal(t, Long, trade.Direction)

	// (120-100)*99 - 5 exit commission.
	assert.InDelta(t, 1975.0, trade.ProfitLoss, 1e-9)
	assert.InDelta(t, 20.0, trade.ProfitLossPercent, 1e-9)

	// Cash: 10000 - 99*100 - 5 = 95 after entry, 95 + 99*120 - 5 after exit.
	assert.InDelta(t, 11970.0, result.FinalCapital, 1e-9)

	assert.Equal(t, 1, result.Metrics.TotalTrades)
	assert.Equal(t, 1, result.Metrics.WinningTrades)
	assert.Equal(t, 0, result.Metrics.LosingTrades)
	assert.Equal(t, 100.0, result.Metrics.WinRate)
	assert.InDelta(t, 20.0, result.Metrics.AvgWinPercent, 1e-9)
	assert.True(t, math.IsInf(result.Metrics.ProfitFactor, 1))
	assert.InDelta(t, 2.0, result.Metrics.AvgTradeDurationDays, 1e-9)
}

func TestRunStopLossBeatsDeclaredExit(t *testing.T) {
	e := NewEngine(Config{InitialCapital: 10000, CommissionPerTrade: 0})

	strat := rsiStrategy()
	strat.StopLossPercent = ptr(5)

	rsi := indicator.RSIName(14)
	prices := []price.Point{bar(0, 100), bar(1, 94)}
	values := []indicator.Value{
		ival(0, rsi, 25),
		ival(1, rsi, 80), // declared exit also true, stop loss must win
	}

	result := e.Run(strat, "TEST", prices, values)

	assert.Len(t, result.Trades, 1)
	trade := result.Trades[0]
	assert.Equal(t, "stop_loss", trade.ExitReason)
	assert.Equal(t, 100.0, trade.Shares)
	assert.InDelta(t, -600.0, trade.ProfitLoss, 1e-9)
	assert.InDelta(t, 9400.0, result.FinalCapital, 1e-9)
	assert.Equal(t, 1, result.Metrics.LosingTrades)
	assert.Equal(t, 0.0, result.Metrics.WinRate)
	assert.Equal(t, 0.0, result.Metrics.ProfitFactor)
}

func TestRunTakeProfit(t *testing.T) {
	e := NewEngine(Config{InitialCapital: 10000, CommissionPerTrade: 0})

	strat := rsiStrategy()
	strat.TakeProfitPercent = ptr(10)

	rsi := indicator.RSIName(14)
	prices := []price.Point{bar(0, 100), bar(1, 111)}
	values := []indicator.Value{
		ival(0, rsi, 25),
		ival(1, rsi, 50), // declared exit false, take profit fires alone
	}

	result := e.Run(strat, "TEST", prices, values)

	assert.Len(t, result.Trades, 1)
	assert.Equal(t, "take_profit", result.Trades[0].ExitReason)
	assert.InDelta(t, 11100.0, result.FinalCapital, 1e-9)
}

func TestRunForcedCloseAtEndOfData(t *testing.T) {
	e := NewEngine(Config{InitialCapital: 10000, CommissionPerTrade: 0})

	rsi := indicator.RSIName(14)
	prices := []price.Point{bar(0, 100), bar(1, 102), bar(2, 105)}
	values := []indicator.Value{
		ival(0, rsi, 25),
		ival(1, rsi, 40),
		ival(2, rsi, 45), // never overbought, data just ends
	}

	result := e.Run(rsiStrategy(), "TEST", prices, values)

	assert.Len(t, result.Trades, 1)
	trade := result.Trades[0]
	assert.Equal(t, "end_of_data", trade.ExitReason)
	assert.Equal(t, day(2), trade.ExitDate)
	assert.Equal(t, 105.0, trade.ExitPrice)
	assert.InDelta(t, 10500.0, result.FinalCapital, 1e-9)
}

func TestRunNoSameDayReentry(t *testing.T) {
	e := NewEngine(Config{InitialCapital: 10000, CommissionPerTrade: 0})

	strat := &strategy.Strategy{
		ID:                  2,
		Name:                "dip-buyer",
		EntryCondition:      strategy.PriceBelowSMA,
		ExitCondition:       strategy.RSIOverbought,
		ExitThreshold:       70,
		PositionSizePercent: 100,
	}

	rsi := indicator.RSIName(14)
	sma := indicator.SMAName(20)
	prices := []price.Point{bar(0, 100), bar(1, 110)}
	values := []indicator.Value{
		ival(0, rsi, 50), ival(0, sma, 200),
		// Day 1: exit fires and the entry condition still holds. The exit
		// must consume the day without opening a new position.
		ival(1, rsi, 75), ival(1, sma, 200),
	}

	result := e.Run(strat, "TEST", prices, values)

	assert.Len(t, result.Trades, 1)
	assert.Equal(t, "rsi_overbought", result.Trades[0].ExitReason)
	assert.InDelta(t, 11000.0, result.FinalCapital, 1e-9)
}

func TestRunDrawdownFromEquityCurve(t *testing.T) {
	e := NewEngine(Config{InitialCapital: 10000, CommissionPerTrade: 0})

	strat := &strategy.Strategy{
		ID:                  3,
		Name:                "hold",
		EntryCondition:      strategy.PriceBelowSMA,
		ExitCondition:       strategy.RSIOverbought,
		ExitThreshold:       70,
		PositionSizePercent: 100,
	}

	rsi := indicator.RSIName(14)
	sma := indicator.SMAName(20)
	prices := []price.Point{bar(0, 100), bar(1, 120), bar(2, 90), bar(3, 110)}
	var values []indicator.Value
	for i := 0; i < 4; i++ {
		values = append(values, ival(i, rsi, 50), ival(i, sma, 200))
	}

	result := e.Run(strat, "TEST", prices, values)

	// Entry day 0 at 100 with 100 shares; equity peaks at 12000 on day 1 and
	// troughs at 9000 on day 2.
	assert.InDelta(t, 25.0, result.Metrics.MaxDrawdown, 1e-9)
	assert.InDelta(t, 11000.0, result.FinalCapital, 1e-9)
	assert.Equal(t, "end_of_data", result.Trades[0].ExitReason)
}

func TestRunEmptyInputs(t *testing.T) {
	e := NewEngine(DefaultConfig())

	result := e.Run(rsiStrategy(), "TEST", nil, nil)

	assert.Empty(t, result.Trades)
	assert.Equal(t, 10000.0, result.FinalCapital)
	assert.True(t, result.StartDate.IsZero())
	assert.True(t, result.EndDate.IsZero())
}

func TestCalculateMetricsMixedTrades(t *testing.T) {
	e := NewEngine(Config{InitialCapital: 10000})

	trades := []Trade{
		{ProfitLoss: 300, ProfitLossPercent: 3, EntryDate: day(0), ExitDate: day(2)},
		{ProfitLoss: -100, ProfitLossPercent: -1, EntryDate: day(3), ExitDate: day(7)},
		{ProfitLoss: 100, ProfitLossPercent: 1, EntryDate: day(8), ExitDate: day(10)},
	}

	m := e.calculateMetrics(trades, []float64{10000, 10300, 10200, 10300})

	assert.Equal(t, 3, m.TotalTrades)
	assert.Equal(t, 2, m.WinningTrades)
	assert.Equal(t, 1, m.LosingTrades)
	assert.InDelta(t, 66.666666, m.WinRate, 1e-4)
	assert.InDelta(t, 2.0, m.AvgWinPercent, 1e-9)
	assert.InDelta(t, 1.0, m.AvgLossPercent, 1e-9)
	assert.InDelta(t, 4.0, m.ProfitFactor, 1e-9) // 400 gross profit / 100 gross loss
	assert.InDelta(t, 8.0/3.0, m.AvgTradeDurationDays, 1e-9)
	assert.InDelta(t, 300.0, m.TotalReturnDollars, 1e-9)
	assert.InDelta(t, 3.0, m.TotalReturn, 1e-9)
}

func TestCalculateMetricsSharpeZeroCases(t *testing.T) {
	e := NewEngine(Config{InitialCapital: 10000})

	// Fewer than two equity points.
	m := e.calculateMetrics(nil, []float64{10000})
	assert.Equal(t, 0.0, m.SharpeRatio)

	// Constant returns give zero variance.
	m = e.calculateMetrics(nil, []float64{10000, 10100, 10201})
	assert.Equal(t, 0.0, m.SharpeRatio)

	// Flat curve.
	m = e.calculateMetrics(nil, []float64{10000, 10000, 10000})
	assert.Equal(t, 0.0, m.SharpeRatio)
	assert.Equal(t, 0.0, m.MaxDrawdown)
}
