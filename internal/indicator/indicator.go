// Package indicator
package indicator

import (
	"fmt"
	"sort"
	"time"

	"github.com/finpipe/finpipe/internal/price"
)

// Value is a single computed indicator value for a symbol on a date. Many
// indicator names may share a date; values are never mutated after creation.
type Value struct {
	Symbol string    `json:"symbol"`
	Date   time.Time `json:"date"`
	Name   string    `json:"indicator_name"`
	Value  float64   `json:"value"`
}

// Indicator name formats. The name encodes the family and its parameters so
// that values of different configurations can coexist per date.
func RSIName(period int) string        { return fmt.Sprintf("RSI_%d", period) }
func SMAName(period int) string        { return fmt.Sprintf("SMA_%d", period) }
func EMAName(period int) string        { return fmt.Sprintf("EMA_%d", period) }
func MACDName(fast, slow int) string   { return fmt.Sprintf("MACD_%d_%d", fast, slow) }
func MACDSignalName(period int) string { return fmt.Sprintf("MACD_SIGNAL_%d", period) }
func BBUpperName(period int) string    { return fmt.Sprintf("BB_UPPER_%d", period) }
func BBMiddleName(period int) string   { return fmt.Sprintf("BB_MIDDLE_%d", period) }
func BBLowerName(period int) string    { return fmt.Sprintf("BB_LOWER_%d", period) }
func ATRName(period int) string        { return fmt.Sprintf("ATR_%d", period) }
func StochKName(period int) string     { return fmt.Sprintf("STOCH_K_%d", period) }
func StochDName(period int) string     { return fmt.Sprintf("STOCH_D_%d", period) }
func ADXName(period int) string        { return fmt.Sprintf("ADX_%d", period) }
func PlusDIName(period int) string     { return fmt.Sprintf("+DI_%d", period) }
func MinusDIName(period int) string    { return fmt.Sprintf("-DI_%d", period) }
func WillRName(period int) string      { return fmt.Sprintf("WILLR_%d", period) }
func CCIName(period int) string        { return fmt.Sprintf("CCI_%d", period) }
func MFIName(period int) string        { return fmt.Sprintf("MFI_%d", period) }
func ROCName(period int) string        { return fmt.Sprintf("ROC_%d", period) }

const (
	MACDHistName = "MACD_HIST"
	OBVName      = "OBV"
)

// ByDate indexes indicator values by date, then by indicator name. It is
// built once per run and passed read-only into the signal and backtest
// evaluation loops.
type ByDate map[time.Time]map[string]float64

// BuildByDate builds the date index from a flat value list.
func BuildByDate(values []Value) ByDate {
	m := make(ByDate)
	for _, v := range values {
		if _, ok := m[v.Date]; !ok {
			m[v.Date] = make(map[string]float64)
		}
		m[v.Date][v.Name] = v.Value
	}
	return m
}

// Dates returns the indexed dates in ascending order.
func (m ByDate) Dates() []time.Time {
	dates := make([]time.Time, 0, len(m))
	for d := range m {
		dates = append(dates, d)
	}
	sort.Slice(dates, func(i, j int) bool { return dates[i].Before(dates[j]) })
	return dates
}

// All computes the standard indicator set for a symbol: RSI 14, SMA 20/50,
// EMA 12/26, MACD 12/26/9, Bollinger 20/2, ATR 14, Stochastic 14/3, OBV,
// ADX 14, Williams %R 14, CCI 20, MFI 14 and ROC 12.
func All(prices []price.Point) []Value {
	var all []Value

	all = append(all, RSI(prices, 14)...)
	all = append(all, SMA(prices, 20)...)
	all = append(all, SMA(prices, 50)...)
	all = append(all, EMA(prices, 12)...)
	all = append(all, EMA(prices, 26)...)
	all = append(all, MACD(prices, 12, 26, 9)...)
	all = append(all, Bollinger(prices, 20, 2.0)...)
	all = append(all, ATR(prices, 14)...)
	all = append(all, Stochastic(prices, 14, 3)...)
	all = append(all, OBV(prices)...)
	all = append(all, ADX(prices, 14)...)
	all = append(all, WilliamsR(prices, 14)...)
	all = append(all, CCI(prices, 20)...)
	all = append(all, MFI(prices, 14)...)
	all = append(all, ROC(prices, 12)...)

	return all
}
