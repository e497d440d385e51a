package db

import (
	"context"
	"database/sql"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/finpipe/finpipe/internal/alert"
	"github.com/finpipe/finpipe/internal/backtest"
	"github.com/finpipe/finpipe/internal/fetch"
	"github.com/finpipe/finpipe/internal/indicator"
	"github.com/finpipe/finpipe/internal/price"
	"github.com/finpipe/finpipe/internal/signal"
	"github.com/finpipe/finpipe/internal/strategy"
)

// MemoryStorage is an in-memory Storage used by tests and offline runs. All
// methods are safe for concurrent use.
type MemoryStorage struct {
	mu sync.RWMutex

	symbols    map[string]price.Symbol
	prices     map[string]map[string]price.Point             // symbol -> date|source -> bar
	indicators map[string]map[string]indicator.Value         // symbol -> date|name -> value
	signals    map[string]signal.Signal                      // symbol|type|date -> signal
	macro      map[string]map[time.Time]fetch.MacroPoint     // indicator -> date -> point
	strategies map[string]strategy.Strategy                  // name -> definition
	runs       []backtest.Result
	trades     map[int64][]backtest.Trade
	priceAl    map[int64]alert.PriceAlert
	indAl      map[int64]alert.IndicatorAlert

	nextID int64
}

// NewMemoryStorage creates an empty in-memory store.
func NewMemoryStorage() *MemoryStorage {
	return &MemoryStorage{
		symbols:    make(map[string]price.Symbol),
		prices:     make(map[string]map[string]price.Point),
		indicators: make(map[string]map[string]indicator.Value),
		signals:    make(map[string]signal.Signal),
		macro:      make(map[string]map[time.Time]fetch.MacroPoint),
		strategies: make(map[string]strategy.Strategy),
		trades:     make(map[int64][]backtest.Trade),
		priceAl:    make(map[int64]alert.PriceAlert),
		indAl:      make(map[int64]alert.IndicatorAlert),
	}
}

// GetDB returns nil: there is no SQL handle behind the memory store.
func (m *MemoryStorage) GetDB() *sql.DB { return nil }

func (m *MemoryStorage) nextSeq() int64 {
	m.nextID++
	return m.nextID
}

func dayKey(t time.Time) string {
	return t.UTC().Format("2006-01-02")
}

func (m *MemoryStorage) SaveSymbol(_ context.Context, s price.Symbol) error {
	if s.Symbol == "" {
		return fmt.Errorf("symbol ticker cannot be empty")
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.symbols[s.Symbol] = s
	return nil
}

func (m *MemoryStorage) GetSymbols(_ context.Context) ([]price.Symbol, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]price.Symbol, 0, len(m.symbols))
	for _, s := range m.symbols {
		out = append(out, s)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Symbol < out[j].Symbol })
	return out, nil
}

func (m *MemoryStorage) SavePrices(_ context.Context, points []price.Point) error {
	for i, pt := range points {
		if err := pt.Validate(); err != nil {
			return fmt.Errorf("invalid price at index %d for %s: %w", i, pt.Symbol, err)
		}
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, pt := range points {
		byKey, ok := m.prices[pt.Symbol]
		if !ok {
			byKey = make(map[string]price.Point)
			m.prices[pt.Symbol] = byKey
		}
		byKey[dayKey(pt.Date)+"|"+pt.Source] = pt
	}
	return nil
}

func (m *MemoryStorage) GetPrices(_ context.Context, symbol string) ([]price.Point, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.pricesLocked(symbol), nil
}

func (m *MemoryStorage) pricesLocked(symbol string) []price.Point {
	var out []price.Point
	for _, pt := range m.prices[symbol] {
		out = append(out, pt)
	}
	price.SortByDate(out)
	return out
}

func (m *MemoryStorage) GetPricesRange(_ context.Context, symbol string, start, end time.Time) ([]price.Point, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []price.Point
	for _, pt := range m.prices[symbol] {
		if pt.Date.Before(start) || pt.Date.After(end) {
			continue
		}
		out = append(out, pt)
	}
	price.SortByDate(out)
	return out, nil
}

func (m *MemoryStorage) GetLatestPrice(_ context.Context, symbol string) (*price.Point, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	all := m.pricesLocked(symbol)
	if len(all) == 0 {
		return nil, nil
	}
	latest := all[len(all)-1]
	return &latest, nil
}

func (m *MemoryStorage) SaveIndicatorValues(_ context.Context, values []indicator.Value) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, v := range values {
		byKey, ok := m.indicators[v.Symbol]
		if !ok {
			byKey = make(map[string]indicator.Value)
			m.indicators[v.Symbol] = byKey
		}
		byKey[dayKey(v.Date)+"|"+v.Name] = v
	}
	return nil
}

func (m *MemoryStorage) GetIndicatorValues(_ context.Context, symbol string) ([]indicator.Value, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []indicator.Value
	for _, v := range m.indicators[symbol] {
		out = append(out, v)
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].Date.Equal(out[j].Date) {
			return out[i].Date.Before(out[j].Date)
		}
		return out[i].Name < out[j].Name
	})
	return out, nil
}

func (m *MemoryStorage) GetLatestIndicatorValues(_ context.Context, symbol string) (map[string]float64, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	latestDate := make(map[string]time.Time)
	latest := make(map[string]float64)
	for _, v := range m.indicators[symbol] {
		if seen, ok := latestDate[v.Name]; !ok || v.Date.After(seen) {
			latestDate[v.Name] = v.Date
			latest[v.Name] = v.Value
		}
	}
	return latest, nil
}

func signalKey(s signal.Signal) string {
	return s.Symbol + "|" + string(s.Type) + "|" + dayKey(s.Date)
}

func (m *MemoryStorage) SaveSignals(_ context.Context, signals []signal.Signal) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, s := range signals {
		key := signalKey(s)
		if existing, ok := m.signals[key]; ok {
			s.ID = existing.ID
			s.Acknowledged = existing.Acknowledged
		} else {
			s.ID = m.nextSeq()
		}
		m.signals[key] = s
	}
	return nil
}

func (m *MemoryStorage) GetSignals(_ context.Context, symbol string) ([]signal.Signal, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []signal.Signal
	for _, s := range m.signals {
		if s.Symbol == symbol {
			out = append(out, s)
		}
	}
	sortSignals(out)
	return out, nil
}

func (m *MemoryStorage) GetUnacknowledgedSignals(_ context.Context) ([]signal.Signal, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []signal.Signal
	for _, s := range m.signals {
		if !s.Acknowledged {
			out = append(out, s)
		}
	}
	sortSignals(out)
	return out, nil
}

func sortSignals(out []signal.Signal) {
	sort.Slice(out, func(i, j int) bool {
		if !out[i].Date.Equal(out[j].Date) {
			return out[i].Date.Before(out[j].Date)
		}
		return out[i].Type < out[j].Type
	})
}

func (m *MemoryStorage) AcknowledgeSignal(_ context.Context, id int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for key, s := range m.signals {
		if s.ID == id {
			s.Acknowledged = true
			m.signals[key] = s
			return nil
		}
	}
	return fmt.Errorf("signal %d not found", id)
}

func (m *MemoryStorage) SaveStrategy(_ context.Context, s strategy.Strategy) (int64, error) {
	if err := s.Validate(); err != nil {
		return 0, fmt.Errorf("invalid strategy %q: %w", s.Name, err)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if existing, ok := m.strategies[s.Name]; ok {
		s.ID = existing.ID
	} else {
		s.ID = m.nextSeq()
	}
	m.strategies[s.Name] = s
	return s.ID, nil
}

func (m *MemoryStorage) GetStrategies(_ context.Context) ([]strategy.Strategy, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]strategy.Strategy, 0, len(m.strategies))
	for _, s := range m.strategies {
		out = append(out, s)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (m *MemoryStorage) GetStrategy(_ context.Context, name string) (*strategy.Strategy, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	s, ok := m.strategies[name]
	if !ok {
		return nil, fmt.Errorf("strategy %q not found", name)
	}
	return &s, nil
}

func (m *MemoryStorage) SaveResult(_ context.Context, r backtest.Result) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	r.ID = m.nextSeq()
	for i := range r.Trades {
		r.Trades[i].ID = m.nextSeq()
		r.Trades[i].BacktestID = r.ID
	}
	m.runs = append(m.runs, r)
	m.trades[r.ID] = append([]backtest.Trade(nil), r.Trades...)
	return r.ID, nil
}

func (m *MemoryStorage) GetResults(_ context.Context, symbol string) ([]backtest.Result, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []backtest.Result
	for _, r := range m.runs {
		if r.Symbol == symbol {
			r.Trades = nil
			out = append(out, r)
		}
	}
	return out, nil
}

func (m *MemoryStorage) GetTrades(_ context.Context, backtestID int64) ([]backtest.Trade, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return append([]backtest.Trade(nil), m.trades[backtestID]...), nil
}

func (m *MemoryStorage) SavePriceAlert(_ context.Context, a alert.PriceAlert) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	a.ID = m.nextSeq()
	m.priceAl[a.ID] = a
	return a.ID, nil
}

func (m *MemoryStorage) GetActivePriceAlerts(_ context.Context) ([]alert.PriceAlert, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []alert.PriceAlert
	for _, a := range m.priceAl {
		if !a.Triggered {
			out = append(out, a)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (m *MemoryStorage) MarkPriceAlertTriggered(_ context.Context, id int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	a, ok := m.priceAl[id]
	if !ok {
		return fmt.Errorf("price alert %d not found", id)
	}
	a.Triggered = true
	m.priceAl[id] = a
	return nil
}

func (m *MemoryStorage) SaveIndicatorAlert(_ context.Context, a alert.IndicatorAlert) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	a.ID = m.nextSeq()
	m.indAl[a.ID] = a
	return a.ID, nil
}

func (m *MemoryStorage) GetActiveIndicatorAlerts(_ context.Context) ([]alert.IndicatorAlert, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []alert.IndicatorAlert
	for _, a := range m.indAl {
		if !a.Triggered {
			out = append(out, a)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (m *MemoryStorage) MarkIndicatorAlertTriggered(_ context.Context, id int64, lastValue float64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	a, ok := m.indAl[id]
	if !ok {
		return fmt.Errorf("indicator alert %d not found", id)
	}
	a.Triggered = true
	a.LastValue = &lastValue
	m.indAl[id] = a
	return nil
}

func (m *MemoryStorage) SaveMacroPoints(_ context.Context, points []fetch.MacroPoint) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, p := range points {
		byDate, ok := m.macro[p.Indicator]
		if !ok {
			byDate = make(map[time.Time]fetch.MacroPoint)
			m.macro[p.Indicator] = byDate
		}
		byDate[price.Day(p.Date)] = p
	}
	return nil
}

func (m *MemoryStorage) GetMacroPoints(_ context.Context, indicatorName string) ([]fetch.MacroPoint, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []fetch.MacroPoint
	for _, p := range m.macro[indicatorName] {
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Date.Before(out[j].Date) })
	return out, nil
}
