package indicator

import (
	"time"

	"github.com/finpipe/finpipe/internal/price"
)

// Stochastic calculates the stochastic oscillator:
//
//	%K = (close - lowestLow) / (highestHigh - lowestLow) * 100
//	%D = SMA of %K over dPeriod
//
// %K is 50 when the window's high-low range is zero. Needs kPeriod+dPeriod
// bars; %K values start at bar kPeriod-1, %D values dPeriod-1 %K values later.
func Stochastic(prices []price.Point, kPeriod, dPeriod int) []Value {
	if kPeriod <= 0 || dPeriod <= 0 || len(prices) < kPeriod+dPeriod {
		return nil
	}

	kName := StochKName(kPeriod)
	dName := StochDName(dPeriod)

	type kPoint struct {
		date  time.Time
		value float64
	}
	kValues := make([]kPoint, 0, len(prices)-kPeriod+1)

	var values []Value

	for i := kPeriod - 1; i < len(prices); i++ {
		window := prices[i+1-kPeriod : i+1]

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

		k := 50.0 // neutral when the window has no range
		if r := highestHigh - lowestLow; r != 0 {
			k = (prices[i].Close - lowestLow) / r * 100.0
		}

		kValues = append(kValues, kPoint{date: prices[i].Date, value: k})
		values = append(values, Value{
			Symbol: prices[0].Symbol,
			Date:   prices[i].Date,
			Name:   kName,
			Value:  k,
		})
	}

	for i := dPeriod - 1; i < len(kValues); i++ {
		var sum float64
		for j := i + 1 - dPeriod; j <= i; j++ {
			sum += kValues[j].value
		}
		values = append(values, Value{
			Symbol: prices[0].Symbol,
			Date:   kValues[i].date,
			Name:   dName,
			Value:  sum / float64(dPeriod),
		})
	}

	return values
}
