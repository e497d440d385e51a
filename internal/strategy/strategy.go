// Package strategy
package strategy

import (
	"errors"
	"fmt"

	"github.com/finpipe/finpipe/internal/indicator"
)

// Condition is one entry/exit rule of a trading strategy.
type Condition string

const (
	RSIOversold   Condition = "rsi_oversold"   // RSI < threshold
	RSIOverbought Condition = "rsi_overbought" // RSI > threshold
	MACDCrossUp   Condition = "macd_cross_up"  // MACD crosses above its signal line
	MACDCrossDown Condition = "macd_cross_down"
	PriceAboveSMA Condition = "price_above_sma"
	PriceBelowSMA Condition = "price_below_sma"
	SMACrossUp    Condition = "sma_cross_up" // fast SMA crosses above slow SMA
	SMACrossDown  Condition = "sma_cross_down"
	StopLoss      Condition = "stop_loss"   // exit-only
	TakeProfit    Condition = "take_profit" // exit-only
)

// ParseCondition maps a stored condition string. Unrecognized strings are an
// error rather than a silent fallback: a bad condition in storage means the
// strategy definition is corrupt, and running it anyway would simulate a
// strategy nobody defined.
func ParseCondition(s string) (Condition, error) {
	switch c := Condition(s); c {
	case RSIOversold, RSIOverbought,
		MACDCrossUp, MACDCrossDown,
		PriceAboveSMA, PriceBelowSMA,
		SMACrossUp, SMACrossDown,
		StopLoss, TakeProfit:
		return c, nil
	default:
		return "", fmt.Errorf("unknown strategy condition %q", s)
	}
}

// Met evaluates the condition against the current close, today's indicator
// map and the previous indexed date's map. Cross-type conditions need prev;
// missing indicator values evaluate false, never an error. StopLoss and
// TakeProfit always evaluate false here: they are priced off the entry and
// handled by the backtest loop before the declared exit condition.
func (c Condition) Met(threshold, px float64, today, prev map[string]float64) bool {
	switch c {
	case RSIOversold:
		rsi, ok := today[indicator.RSIName(14)]
		return ok && rsi < threshold
	case RSIOverbought:
		rsi, ok := today[indicator.RSIName(14)]
		return ok && rsi > threshold
	case MACDCrossUp:
		macd, sig, prevMACD, prevSig, ok := macdPair(today, prev)
		return ok && prevMACD <= prevSig && macd > sig
	case MACDCrossDown:
		macd, sig, prevMACD, prevSig, ok := macdPair(today, prev)
		return ok && prevMACD >= prevSig && macd < sig
	case PriceAboveSMA:
		sma, ok := today[indicator.SMAName(20)]
		return ok && px > sma
	case PriceBelowSMA:
		sma, ok := today[indicator.SMAName(20)]
		return ok && px < sma
	case SMACrossUp:
		fast, slow, prevFast, prevSlow, ok := smaPair(today, prev)
		return ok && prevFast <= prevSlow && fast > slow
	case SMACrossDown:
		fast, slow, prevFast, prevSlow, ok := smaPair(today, prev)
		return ok && prevFast >= prevSlow && fast < slow
	default:
		return false
	}
}

func macdPair(today, prev map[string]float64) (macd, sig, prevMACD, prevSig float64, ok bool) {
	if prev == nil {
		return 0, 0, 0, 0, false
	}
	macd, ok1 := today[indicator.MACDName(12, 26)]
	sig, ok2 := today[indicator.MACDSignalName(9)]
	prevMACD, ok3 := prev[indicator.MACDName(12, 26)]
	prevSig, ok4 := prev[indicator.MACDSignalName(9)]
	return macd, sig, prevMACD, prevSig, ok1 && ok2 && ok3 && ok4
}

func smaPair(today, prev map[string]float64) (fast, slow, prevFast, prevSlow float64, ok bool) {
	if prev == nil {
		return 0, 0, 0, 0, false
	}
	fast, ok1 := today[indicator.SMAName(20)]
	slow, ok2 := today[indicator.SMAName(50)]
	prevFast, ok3 := prev[indicator.SMAName(20)]
	prevSlow, ok4 := prev[indicator.SMAName(50)]
	return fast, slow, prevFast, prevSlow, ok1 && ok2 && ok3 && ok4
}

// Strategy is a rule-based trading strategy definition, persisted by name.
type Strategy struct {
	ID                  int64     `json:"id" yaml:"-"`
	Name                string    `json:"name" yaml:"name"`
	Description         string    `json:"description" yaml:"description"`
	EntryCondition      Condition `json:"entry_condition" yaml:"entry_condition"`
	EntryThreshold      float64   `json:"entry_threshold" yaml:"entry_threshold"`
	ExitCondition       Condition `json:"exit_condition" yaml:"exit_condition"`
	ExitThreshold       float64   `json:"exit_threshold" yaml:"exit_threshold"`
	StopLossPercent     *float64  `json:"stop_loss_percent" yaml:"stop_loss_percent"`
	TakeProfitPercent   *float64  `json:"take_profit_percent" yaml:"take_profit_percent"`
	PositionSizePercent float64   `json:"position_size_percent" yaml:"position_size_percent"`
}

// Validate checks structural correctness of a strategy definition.
func (s *Strategy) Validate() error {
	if s.Name == "" {
		return errors.New("strategy name cannot be empty")
	}
	if _, err := ParseCondition(string(s.EntryCondition)); err != nil {
		return fmt.Errorf("entry condition: %w", err)
	}
	if _, err := ParseCondition(string(s.ExitCondition)); err != nil {
		return fmt.Errorf("exit condition: %w", err)
	}
	if s.EntryCondition == StopLoss || s.EntryCondition == TakeProfit {
		return fmt.Errorf("%s is an exit-only condition", s.EntryCondition)
	}
	if s.PositionSizePercent <= 0 || s.PositionSizePercent > 100 {
		return fmt.Errorf("position size percent must be in (0,100], got %v", s.PositionSizePercent)
	}
	return nil
}
