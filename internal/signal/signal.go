// Package signal
package signal

import (
	"fmt"
	"time"
)

// Type identifies the detector family and zone/direction of a signal.
type Type string

const (
	RSIOverbought       Type = "RSI_OVERBOUGHT"
	RSIOversold         Type = "RSI_OVERSOLD"
	MACDBullishCross    Type = "MACD_BULLISH_CROSS"
	MACDBearishCross    Type = "MACD_BEARISH_CROSS"
	BollingerUpperBreak Type = "BB_UPPER_BREAK"
	BollingerLowerBreak Type = "BB_LOWER_BREAK"
	MACrossoverBullish  Type = "MA_BULLISH_CROSS"
	MACrossoverBearish  Type = "MA_BEARISH_CROSS"
	ADXTrendStrong      Type = "ADX_TREND_STRONG"
	ADXTrendWeak        Type = "ADX_TREND_WEAK"
	StochBullishCross   Type = "STOCH_BULLISH_CROSS"
	StochBearishCross   Type = "STOCH_BEARISH_CROSS"
	WillROverbought     Type = "WILLR_OVERBOUGHT"
	WillROversold       Type = "WILLR_OVERSOLD"
	CCIOverbought       Type = "CCI_OVERBOUGHT"
	CCIOversold         Type = "CCI_OVERSOLD"
	MFIOverbought       Type = "MFI_OVERBOUGHT"
	MFIOversold         Type = "MFI_OVERSOLD"
)

// ParseType validates a stored signal type string.
func ParseType(s string) (Type, error) {
	switch t := Type(s); t {
	case RSIOverbought, RSIOversold,
		MACDBullishCross, MACDBearishCross,
		BollingerUpperBreak, BollingerLowerBreak,
		MACrossoverBullish, MACrossoverBearish,
		ADXTrendStrong, ADXTrendWeak,
		StochBullishCross, StochBearishCross,
		WillROverbought, WillROversold,
		CCIOverbought, CCIOversold,
		MFIOverbought, MFIOversold:
		return t, nil
	default:
		return "", fmt.Errorf("unknown signal type %q", s)
	}
}

// Direction is the market bias a signal carries.
type Direction string

const (
	Bullish Direction = "bullish"
	Bearish Direction = "bearish"
	Neutral Direction = "neutral"
)

// ParseDirection maps a stored direction string, defaulting to Neutral.
func ParseDirection(s string) Direction {
	switch Direction(s) {
	case Bullish:
		return Bullish
	case Bearish:
		return Bearish
	default:
		return Neutral
	}
}

// Signal is one detected trading event. At most one signal exists per
// (symbol, type, date); Acknowledged is mutated only by external consumers.
type Signal struct {
	ID            int64     `json:"id"`
	Symbol        string    `json:"symbol"`
	Type          Type      `json:"signal_type"`
	Direction     Direction `json:"direction"`
	Strength      float64   `json:"strength"`
	PriceAtSignal float64   `json:"price_at_signal"`
	TriggeredBy   string    `json:"triggered_by"`
	TriggerValue  float64   `json:"trigger_value"`
	Date          time.Time `json:"date"`
	Acknowledged  bool      `json:"acknowledged"`
}

// Config holds detector thresholds. Zero-value configs should be replaced by
// DefaultConfig; engines treat the config as immutable.
type Config struct {
	RSIOverbought   float64 `yaml:"rsi_overbought"`
	RSIOversold     float64 `yaml:"rsi_oversold"`
	ADXStrongTrend  float64 `yaml:"adx_strong_trend"`
	ADXWeakTrend    float64 `yaml:"adx_weak_trend"`
	StochOverbought float64 `yaml:"stoch_overbought"`
	StochOversold   float64 `yaml:"stoch_oversold"`
	WillROverbought float64 `yaml:"willr_overbought"`
	WillROversold   float64 `yaml:"willr_oversold"`
	CCIOverbought   float64 `yaml:"cci_overbought"`
	CCIOversold     float64 `yaml:"cci_oversold"`
	MFIOverbought   float64 `yaml:"mfi_overbought"`
	MFIOversold     float64 `yaml:"mfi_oversold"`
}

// DefaultConfig returns the standard detector thresholds.
func DefaultConfig() Config {
	return Config{
		RSIOverbought:   70.0,
		RSIOversold:     30.0,
		ADXStrongTrend:  25.0,
		ADXWeakTrend:    20.0,
		StochOverbought: 80.0,
		StochOversold:   20.0,
		WillROverbought: -20.0,
		WillROversold:   -80.0,
		CCIOverbought:   100.0,
		CCIOversold:     -100.0,
		MFIOverbought:   80.0,
		MFIOversold:     20.0,
	}
}
