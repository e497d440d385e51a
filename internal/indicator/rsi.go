package indicator

import "github.com/finpipe/finpipe/internal/price"

// RSI calculates the Relative Strength Index over close-to-close changes.
// The first average gain/loss is the simple mean of the first period deltas;
// subsequent averages use Wilder smoothing:
//
//	avg = (avgPrev*(period-1) + new) / period
//
// RSI is 100 when the average loss is zero. Needs period+1 bars.
func RSI(prices []price.Point, period int) []Value {
	if period <= 0 || len(prices) < period+1 {
		return nil
	}

	name := RSIName(period)
	gains := make([]float64, 0, len(prices)-1)
	losses := make([]float64, 0, len(prices)-1)

	for i := 1; i < len(prices); i++ {
		change := prices[i].Close - prices[i-1].Close
		if change > 0 {
			gains = append(gains, change)
			losses = append(losses, 0)
		} else {
			gains = append(gains, 0)
			losses = append(losses, -change)
		}
	}

	var avgGain, avgLoss float64
	for i := 0; i < period; i++ {
		avgGain += gains[i]
		avgLoss += losses[i]
	}
	avgGain /= float64(period)
	avgLoss /= float64(period)

	rsiOf := func(gain, loss float64) float64 {
		if loss == 0 {
			return 100.0
		}
		rs := gain / loss
		return 100.0 - (100.0 / (1.0 + rs))
	}

	values := make([]Value, 0, len(gains)-period+1)
	values = append(values, Value{
		Symbol: prices[0].Symbol,
		Date:   prices[period].Date,
		Name:   name,
		Value:  rsiOf(avgGain, avgLoss),
	})

	for i := period; i < len(gains); i++ {
		avgGain = (avgGain*float64(period-1) + gains[i]) / float64(period)
		avgLoss = (avgLoss*float64(period-1) + losses[i]) / float64(period)
		values = append(values, Value{
			Symbol: prices[0].Symbol,
			Date:   prices[i+1].Date,
			Name:   name,
			Value:  rsiOf(avgGain, avgLoss),
		})
	}

	return values
}
