package indicator

import (
	"math"

	"github.com/finpipe/finpipe/internal/price"
)

// WilliamsR calculates Williams %R, a stochastic on an inverted 0..-100
// scale: ((highestHigh - close) / (highestHigh - lowestLow)) * -100.
// Resolves to -50 when the window has no range.
func WilliamsR(prices []price.Point, period int) []Value {
	if period <= 0 || len(prices) < period {
		return nil
	}

	name := WillRName(period)
	values := make([]Value, 0, len(prices)-period+1)

	for i := period - 1; i < len(prices); i++ {
		window := prices[i+1-period : i+1]

		lowestLow := window[0].Low
		highestHigh := window[0].High
		for _, p := range window[1:] {
			if p.Low < lowestLow {
				lowestLow = p.Low
			}
			if p.High > highestHigh {
				highestHigh = p.High
			}
		}

		wr := -50.0 // neutral when the window has no range
		if r := highestHigh - lowestLow; r != 0 {
			wr = (highestHigh - prices[i].Close) / r * -100.0
		}

		values = append(values, Value{
			Symbol: prices[0].Symbol,
			Date:   prices[i].Date,
			Name:   name,
			Value:  wr,
		})
	}

	return values
}

// CCI calculates the Commodity Channel Index:
//
//	(typicalPrice - SMA(typicalPrice)) / (0.015 * meanAbsoluteDeviation)
//
// Resolves to 0 when the mean deviation is zero.
func CCI(prices []price.Point, period int) []Value {
	if period <= 0 || len(prices) < period {
		return nil
	}

	name := CCIName(period)
	values := make([]Value, 0, len(prices)-period+1)

	for i := period - 1; i < len(prices); i++ {
		window := prices[i+1-period : i+1]

		typical := make([]float64, period)
		var sum float64
		for j, p := range window {
			typical[j] = (p.High + p.Low + p.Close) / 3.0
			sum += typical[j]
		}
		tpSMA := sum / float64(period)

		var meanDev float64
		for _, tp := range typical {
			meanDev += math.Abs(tp - tpSMA)
		}
		meanDev /= float64(period)

		var cci float64
		if meanDev != 0 {
			cci = (typical[period-1] - tpSMA) / (0.015 * meanDev)
		}

		values = append(values, Value{
			Symbol: prices[0].Symbol,
			Date:   prices[i].Date,
			Name:   name,
			Value:  cci,
		})
	}

	return values
}

// ROC calculates the Rate of Change, the percentage change of close over the
// close period bars earlier. Resolves to 0 when the past close is zero.
// Needs period+1 bars.
func ROC(prices []price.Point, period int) []Value {
	if period <= 0 || len(prices) <= period {
		return nil
	}

	name := ROCName(period)
	values := make([]Value, 0, len(prices)-period)

	for i := period; i < len(prices); i++ {
		past := prices[i-period].Close

		var roc float64
		if past != 0 {
			roc = (prices[i].Close - past) / past * 100.0
		}

		values = append(values, Value{
			Symbol: prices[0].Symbol,
			Date:   prices[i].Date,
			Name:   name,
			Value:  roc,
		})
	}

	return values
}
