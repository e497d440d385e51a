package indicator

import "github.com/finpipe/finpipe/internal/price"

// SMA calculates the simple moving average of close prices over a trailing
// window. Emits one value per complete window, dated at the window's last bar.
func SMA(prices []price.Point, period int) []Value {
	if period <= 0 || len(prices) < period {
		return nil
	}

	values := make([]Value, 0, len(prices)-period+1)
	name := SMAName(period)

	// Windowed sum: add the entering bar, drop the leaving one.
	var sum float64
	for i := 0; i < period; i++ {
		sum += prices[i].Close
	}

	for i := period - 1; i < len(prices); i++ {
		if i >= period {
			sum += prices[i].Close - prices[i-period].Close
		}
		values = append(values, Value{
			Symbol: prices[0].Symbol,
			Date:   prices[i].Date,
			Name:   name,
			Value:  sum / float64(period),
		})
	}

	return values
}

// EMA calculates the exponential moving average of close prices. The first
// value is seeded with the SMA of the first period bars, then follows the
// recurrence EMA = (close - prevEMA)*k + prevEMA with k = 2/(period+1).
func EMA(prices []price.Point, period int) []Value {
	if period <= 0 || len(prices) < period {
		return nil
	}

	values := make([]Value, 0, len(prices)-period+1)
	name := EMAName(period)
	multiplier := 2.0 / (float64(period) + 1.0)

	var sum float64
	for i := 0; i < period; i++ {
		sum += prices[i].Close
	}
	ema := sum / float64(period)

	values = append(values, Value{
		Symbol: prices[0].Symbol,
		Date:   prices[period-1].Date,
		Name:   name,
		Value:  ema,
	})

	for i := period; i < len(prices); i++ {
		ema = (prices[i].Close-ema)*multiplier + ema
		values = append(values, Value{
			Symbol: prices[0].Symbol,
			Date:   prices[i].Date,
			Name:   name,
			Value:  ema,
		})
	}

	return values
}
