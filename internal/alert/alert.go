// Package alert evaluates user-defined price and indicator alerts against
// the latest stored market data.
package alert

import "fmt"

// PriceCondition triggers a price alert above or below a target.
type PriceCondition string

const (
	Above PriceCondition = "above"
	Below PriceCondition = "below"
)

// ParsePriceCondition maps a stored condition string. Unknown strings are an
// error, consistent with strategy-condition parsing.
func ParsePriceCondition(s string) (PriceCondition, error) {
	switch c := PriceCondition(s); c {
	case Above, Below:
		return c, nil
	default:
		return "", fmt.Errorf("unknown price alert condition %q", s)
	}
}

// PriceAlert fires once when the latest close crosses a target price.
type PriceAlert struct {
	ID          int64          `json:"id"`
	Symbol      string         `json:"symbol"`
	TargetPrice float64        `json:"target_price"`
	Condition   PriceCondition `json:"condition"`
	Triggered   bool           `json:"triggered"`
}

// Type classifies an indicator alert.
type Type string

const (
	Threshold Type = "threshold"  // an indicator crosses a fixed level
	Crossover Type = "crossover"  // one indicator crosses another
	BandTouch Type = "band_touch" // price touches a band indicator
)

// Condition is the trigger rule of an indicator alert.
type Condition string

const (
	CrossesAbove     Condition = "crosses_above"
	CrossesBelow     Condition = "crosses_below"
	BullishCrossover Condition = "bullish_crossover"
	BearishCrossover Condition = "bearish_crossover"
)

// ParseCondition maps a stored indicator alert condition string.
func ParseCondition(s string) (Condition, error) {
	switch c := Condition(s); c {
	case CrossesAbove, CrossesBelow, BullishCrossover, BearishCrossover:
		return c, nil
	default:
		return "", fmt.Errorf("unknown indicator alert condition %q", s)
	}
}

// IndicatorAlert fires when an indicator relationship changes. LastValue
// carries the previously observed primary value so threshold alerts are
// edge-triggered across evaluation runs.
type IndicatorAlert struct {
	ID                 int64     `json:"id"`
	Symbol             string    `json:"symbol"`
	AlertType          Type      `json:"alert_type"`
	IndicatorName      string    `json:"indicator_name"`
	SecondaryIndicator string    `json:"secondary_indicator"`
	Condition          Condition `json:"condition"`
	Threshold          *float64  `json:"threshold"`
	Triggered          bool      `json:"triggered"`
	LastValue          *float64  `json:"last_value"`
	Message            string    `json:"message"`
}

// CheckPrice evaluates a price alert against the latest close. Already
// triggered alerts stay quiet until re-armed by the owner.
func CheckPrice(a *PriceAlert, latestClose float64) bool {
	if a.Triggered {
		return false
	}
	switch a.Condition {
	case Above:
		return latestClose > a.TargetPrice
	case Below:
		return latestClose < a.TargetPrice
	default:
		return false
	}
}

// CheckIndicator evaluates an indicator alert against the current date's
// indicator map and close price. It returns whether the alert fires and the
// primary indicator value observed, so the caller can persist LastValue.
func CheckIndicator(a *IndicatorAlert, px float64, today map[string]float64) (bool, float64) {
	if a.Triggered {
		return false, 0
	}

	value, ok := today[a.IndicatorName]
	if !ok {
		return false, 0
	}

	switch a.AlertType {
	case Threshold:
		if a.Threshold == nil {
			return false, value
		}
		switch a.Condition {
		case CrossesAbove:
			return value > *a.Threshold && (a.LastValue == nil || *a.LastValue <= *a.Threshold), value
		case CrossesBelow:
			return value < *a.Threshold && (a.LastValue == nil || *a.LastValue >= *a.Threshold), value
		}

	case Crossover:
		secondary, ok := today[a.SecondaryIndicator]
		if !ok {
			return false, value
		}
		switch a.Condition {
		case BullishCrossover:
			return value > secondary && (a.LastValue == nil || *a.LastValue <= secondary), value
		case BearishCrossover:
			return value < secondary && (a.LastValue == nil || *a.LastValue >= secondary), value
		}

	case BandTouch:
		band, ok := today[a.IndicatorName]
		if !ok {
			return false, value
		}
		switch a.Condition {
		case CrossesAbove:
			return px >= band, value
		case CrossesBelow:
			return px <= band, value
		}
	}

	return false, value
}
