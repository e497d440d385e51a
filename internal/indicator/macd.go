package indicator

import (
	"time"

	"github.com/finpipe/finpipe/internal/price"
)

// MACD calculates Moving Average Convergence Divergence and emits three named
// series per date: the MACD line (fast EMA - slow EMA), its signal line (an
// EMA of the MACD line) and the histogram (MACD - signal). Both EMAs are
// seeded with simple averages of their first period closes; the MACD line
// starts one bar after the slow seed, the triples start once the signal seed
// is available. Needs slow+signal bars.
func MACD(prices []price.Point, fast, slow, signal int) []Value {
	if fast <= 0 || slow <= 0 || signal <= 0 || len(prices) < slow+signal {
		return nil
	}

	fastMult := 2.0 / (float64(fast) + 1.0)
	slowMult := 2.0 / (float64(slow) + 1.0)
	signalMult := 2.0 / (float64(signal) + 1.0)

	var fastSum, slowSum float64
	for i := 0; i < fast; i++ {
		fastSum += prices[i].Close
	}
	for i := 0; i < slow; i++ {
		slowSum += prices[i].Close
	}

	fastEMA := fastSum / float64(fast)
	slowEMA := slowSum / float64(slow)

	type macdPoint struct {
		date  time.Time
		value float64
	}
	macdLine := make([]macdPoint, 0, len(prices)-slow)

	for i := slow; i < len(prices); i++ {
		fastEMA = (prices[i].Close-fastEMA)*fastMult + fastEMA
		slowEMA = (prices[i].Close-slowEMA)*slowMult + slowEMA
		macdLine = append(macdLine, macdPoint{date: prices[i].Date, value: fastEMA - slowEMA})
	}

	if len(macdLine) < signal {
		return nil
	}

	var signalSum float64
	for i := 0; i < signal; i++ {
		signalSum += macdLine[i].value
	}
	signalEMA := signalSum / float64(signal)

	macdName := MACDName(fast, slow)
	signalName := MACDSignalName(signal)

	values := make([]Value, 0, 3*(len(macdLine)-signal+1))
	for i := signal - 1; i < len(macdLine); i++ {
		if i >= signal {
			signalEMA = (macdLine[i].value-signalEMA)*signalMult + signalEMA
		}

		values = append(values,
			Value{Symbol: prices[0].Symbol, Date: macdLine[i].date, Name: macdName, Value: macdLine[i].value},
			Value{Symbol: prices[0].Symbol, Date: macdLine[i].date, Name: signalName, Value: signalEMA},
			Value{Symbol: prices[0].Symbol, Date: macdLine[i].date, Name: MACDHistName, Value: macdLine[i].value - signalEMA},
		)
	}

	return values
}
