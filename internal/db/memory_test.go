package db

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/finpipe/finpipe/internal/alert"
	"github.com/finpipe/finpipe/internal/backtest"
	"github.com/finpipe/finpipe/internal/fetch"
	"github.com/finpipe/finpipe/internal/indicator"
	"github.com/finpipe/finpipe/internal/price"
	"github.com/finpipe/finpipe/internal/signal"
	"github.com/finpipe/finpipe/internal/strategy"
)

func day(i int) time.Time {
	return time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC).AddDate(0, 0, i)
}

func testBar(i int, close float64) price.Point {
	return price.Point{
		Symbol: "AAPL",
		Date:   day(i),
		Open:   close,
		High:   close + 1,
		Low:    close - 1,
		Close:  close,
		Volume: 1000,
		Source: "yahoo",
	}
}

func testStrategy(name string) strategy.Strategy {
	return strategy.Strategy{
		Name:                name,
		EntryCondition:      strategy.RSIOversold,
		EntryThreshold:      30,
		ExitCondition:       strategy.RSIOverbought,
		ExitThreshold:       70,
		PositionSizePercent: 100,
	}
}

func TestMemorySymbols(t *testing.T) {
	ctx := context.Background()
	m := NewMemoryStorage()

	require.NoError(t, m.SaveSymbol(ctx, price.Symbol{Symbol: "MSFT", Name: "Microsoft"}))
	require.NoError(t, m.SaveSymbol(ctx, price.Symbol{Symbol: "AAPL", Name: "Apple"}))
	require.NoError(t, m.SaveSymbol(ctx, price.Symbol{Symbol: "AAPL", Name: "Apple Inc."}))

	assert.Error(t, m.SaveSymbol(ctx, price.Symbol{}))

	symbols, err := m.GetSymbols(ctx)
	require.NoError(t, err)
	require.Len(t, symbols, 2)
	assert.Equal(t, "AAPL", symbols[0].Symbol)
	assert.Equal(t, "Apple Inc.", symbols[0].Name, "second save replaces the first")
	assert.Equal(t, "MSFT", symbols[1].Symbol)
}

func TestMemoryPrices(t *testing.T) {
	ctx := context.Background()
	m := NewMemoryStorage()

	require.NoError(t, m.SavePrices(ctx, []price.Point{testBar(1, 101), testBar(0, 100), testBar(2, 102)}))

	// Same (symbol, date, source) replaces.
	updated := testBar(1, 111)
	require.NoError(t, m.SavePrices(ctx, []price.Point{updated}))

	points, err := m.GetPrices(ctx, "AAPL")
	require.NoError(t, err)
	require.Len(t, points, 3)
	assert.Equal(t, 100.0, points[0].Close)
	assert.Equal(t, 111.0, points[1].Close)

	ranged, err := m.GetPricesRange(ctx, "AAPL", day(1), day(2))
	require.NoError(t, err)
	assert.Len(t, ranged, 2)

	latest, err := m.GetLatestPrice(ctx, "AAPL")
	require.NoError(t, err)
	require.NotNil(t, latest)
	assert.Equal(t, 102.0, latest.Close)

	none, err := m.GetLatestPrice(ctx, "MSFT")
	require.NoError(t, err)
	assert.Nil(t, none)
}

func TestMemorySavePricesRejectsInvalid(t *testing.T) {
	m := NewMemoryStorage()
	bad := testBar(0, 100)
	bad.Close = -5
	assert.Error(t, m.SavePrices(context.Background(), []price.Point{testBar(1, 101), bad}))
}

func TestMemoryIndicators(t *testing.T) {
	ctx := context.Background()
	m := NewMemoryStorage()

	rsi := indicator.RSIName(14)
	sma := indicator.SMAName(20)
	require.NoError(t, m.SaveIndicatorValues(ctx, []indicator.Value{
		{Symbol: "AAPL", Date: day(0), Name: rsi, Value: 40},
		{Symbol: "AAPL", Date: day(1), Name: rsi, Value: 45},
		{Symbol: "AAPL", Date: day(0), Name: sma, Value: 100},
	}))

	// Same (symbol, date, name) replaces.
	require.NoError(t, m.SaveIndicatorValues(ctx, []indicator.Value{
		{Symbol: "AAPL", Date: day(0), Name: rsi, Value: 41},
	}))

	values, err := m.GetIndicatorValues(ctx, "AAPL")
	require.NoError(t, err)
	require.Len(t, values, 3)
	assert.Equal(t, 41.0, values[0].Value) // day 0 RSI, name-sorted before SMA

	latest, err := m.GetLatestIndicatorValues(ctx, "AAPL")
	require.NoError(t, err)
	assert.Equal(t, 45.0, latest[rsi])
	assert.Equal(t, 100.0, latest[sma])
}

func TestMemorySignals(t *testing.T) {
	ctx := context.Background()
	m := NewMemoryStorage()

	s := signal.Signal{
		Symbol:        "AAPL",
		Type:          signal.RSIOversold,
		Direction:     signal.Bullish,
		Strength:      0.5,
		PriceAtSignal: 100,
		Date:          day(0),
	}
	require.NoError(t, m.SaveSignals(ctx, []signal.Signal{s}))

	stored, err := m.GetSignals(ctx, "AAPL")
	require.NoError(t, err)
	require.Len(t, stored, 1)
	id := stored[0].ID
	assert.NotZero(t, id)

	require.NoError(t, m.AcknowledgeSignal(ctx, id))

	// Re-saving the same (symbol, type, date) keeps ID and acknowledgement.
	s.Strength = 0.8
	require.NoError(t, m.SaveSignals(ctx, []signal.Signal{s}))

	stored, err = m.GetSignals(ctx, "AAPL")
	require.NoError(t, err)
	require.Len(t, stored, 1)
	assert.Equal(t, id, stored[0].ID)
	assert.True(t, stored[0].Acknowledged)
	assert.Equal(t, 0.8, stored[0].Strength)

	unacked, err := m.GetUnacknowledgedSignals(ctx)
	require.NoError(t, err)
	assert.Empty(t, unacked)

	assert.Error(t, m.AcknowledgeSignal(ctx, 9999))
}

func TestMemoryStrategies(t *testing.T) {
	ctx := context.Background()
	m := NewMemoryStorage()

	id, err := m.SaveStrategy(ctx, testStrategy("rsi-reversion"))
	require.NoError(t, err)
	assert.NotZero(t, id)

	// Upsert by name keeps the ID.
	s := testStrategy("rsi-reversion")
	s.EntryThreshold = 25
	id2, err := m.SaveStrategy(ctx, s)
	require.NoError(t, err)
	assert.Equal(t, id, id2)

	got, err := m.GetStrategy(ctx, "rsi-reversion")
	require.NoError(t, err)
	assert.Equal(t, 25.0, got.EntryThreshold)

	_, err = m.GetStrategy(ctx, "missing")
	assert.Error(t, err)

	invalid := testStrategy("")
	_, err = m.SaveStrategy(ctx, invalid)
	assert.Error(t, err)

	all, err := m.GetStrategies(ctx)
	require.NoError(t, err)
	assert.Len(t, all, 1)
}

func TestMemoryBacktestResults(t *testing.T) {
	ctx := context.Background()
	m := NewMemoryStorage()

	r := backtest.Result{
		StrategyName:   "rsi-reversion",
		Symbol:         "AAPL",
		StartDate:      day(0),
		EndDate:        day(10),
		InitialCapital: 10000,
		FinalCapital:   11000,
		Trades: []backtest.Trade{
			{Symbol: "AAPL", EntryDate: day(1), ExitDate: day(5), ProfitLoss: 1000},
		},
	}

	id, err := m.SaveResult(ctx, r)
	require.NoError(t, err)
	assert.NotZero(t, id)

	results, err := m.GetResults(ctx, "AAPL")
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, id, results[0].ID)
	assert.Nil(t, results[0].Trades, "trade details load separately")

	trades, err := m.GetTrades(ctx, id)
	require.NoError(t, err)
	require.Len(t, trades, 1)
	assert.Equal(t, id, trades[0].BacktestID)
	assert.NotZero(t, trades[0].ID)

	empty, err := m.GetResults(ctx, "MSFT")
	require.NoError(t, err)
	assert.Empty(t, empty)
}

func TestMemoryPriceAlerts(t *testing.T) {
	ctx := context.Background()
	m := NewMemoryStorage()

	id, err := m.SavePriceAlert(ctx, alert.PriceAlert{Symbol: "AAPL", TargetPrice: 200, Condition: alert.Above})
	require.NoError(t, err)

	active, err := m.GetActivePriceAlerts(ctx)
	require.NoError(t, err)
	require.Len(t, active, 1)

	require.NoError(t, m.MarkPriceAlertTriggered(ctx, id))

	active, err = m.GetActivePriceAlerts(ctx)
	require.NoError(t, err)
	assert.Empty(t, active)

	assert.Error(t, m.MarkPriceAlertTriggered(ctx, 9999))
}

func TestMemoryIndicatorAlerts(t *testing.T) {
	ctx := context.Background()
	m := NewMemoryStorage()

	id, err := m.SaveIndicatorAlert(ctx, alert.IndicatorAlert{
		Symbol:        "AAPL",
		AlertType:     alert.Threshold,
		IndicatorName: indicator.RSIName(14),
		Condition:     alert.CrossesAbove,
	})
	require.NoError(t, err)

	require.NoError(t, m.MarkIndicatorAlertTriggered(ctx, id, 72.5))

	active, err := m.GetActiveIndicatorAlerts(ctx)
	require.NoError(t, err)
	assert.Empty(t, active)
}

func TestMemoryMacroPoints(t *testing.T) {
	ctx := context.Background()
	m := NewMemoryStorage()

	require.NoError(t, m.SaveMacroPoints(ctx, []fetch.MacroPoint{
		{Indicator: "UNRATE", Date: day(31), Value: 3.9, Source: "FRED"},
		{Indicator: "UNRATE", Date: day(0), Value: 3.7, Source: "FRED"},
	}))

	// Same (indicator, date) replaces.
	require.NoError(t, m.SaveMacroPoints(ctx, []fetch.MacroPoint{
		{Indicator: "UNRATE", Date: day(0), Value: 3.8, Source: "FRED"},
	}))

	points, err := m.GetMacroPoints(ctx, "UNRATE")
	require.NoError(t, err)
	require.Len(t, points, 2)
	assert.Equal(t, 3.8, points[0].Value)
	assert.Equal(t, 3.9, points[1].Value)

	empty, err := m.GetMacroPoints(ctx, "CPIAUCSL")
	require.NoError(t, err)
	assert.Empty(t, empty)
}
