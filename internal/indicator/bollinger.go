package indicator

import (
	"math"

	"github.com/finpipe/finpipe/internal/price"
)

// Bollinger calculates Bollinger Bands and emits upper, middle and lower
// series per date. The middle band is the SMA of closes; the bands sit
// stdDevMult population standard deviations away, computed per window.
func Bollinger(prices []price.Point, period int, stdDevMult float64) []Value {
	if period <= 0 || len(prices) < period {
		return nil
	}

	upperName := BBUpperName(period)
	middleName := BBMiddleName(period)
	lowerName := BBLowerName(period)

	values := make([]Value, 0, 3*(len(prices)-period+1))

	for i := period - 1; i < len(prices); i++ {
		window := prices[i+1-period : i+1]

		var sum float64
		for _, p := range window {
			sum += p.Close
		}
		sma := sum / float64(period)

		var variance float64
		for _, p := range window {
			diff := p.Close - sma
			variance += diff * diff
		}
		variance /= float64(period)
		stdDev := math.Sqrt(variance)

		upper := sma + stdDevMult*stdDev
		lower := sma - stdDevMult*stdDev

		values = append(values,
			Value{Symbol: prices[0].Symbol, Date: prices[i].Date, Name: upperName, Value: upper},
			Value{Symbol: prices[0].Symbol, Date: prices[i].Date, Name: middleName, Value: sma},
			Value{Symbol: prices[0].Symbol, Date: prices[i].Date, Name: lowerName, Value: lower},
		)
	}

	return values
}
