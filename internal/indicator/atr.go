package indicator

import (
	"math"

	"github.com/finpipe/finpipe/internal/price"
)

// trueRange is max(high-low, |high-prevClose|, |low-prevClose|).
func trueRange(p price.Point, prevClose float64) float64 {
	tr := p.High - p.Low
	if hc := math.Abs(p.High - prevClose); hc > tr {
		tr = hc
	}
	if lc := math.Abs(p.Low - prevClose); lc > tr {
		tr = lc
	}
	return tr
}

// ATR calculates the Average True Range. The first ATR is the simple mean of
// the first period true ranges; subsequent values use the same Wilder
// recurrence as RSI's averaging. Needs period+1 bars.
func ATR(prices []price.Point, period int) []Value {
	if period <= 0 || len(prices) < period+1 {
		return nil
	}

	name := ATRName(period)
	trs := make([]float64, 0, len(prices)-1)
	for i := 1; i < len(prices); i++ {
		trs = append(trs, trueRange(prices[i], prices[i-1].Close))
	}

	var atr float64
	for i := 0; i < period; i++ {
		atr += trs[i]
	}
	atr /= float64(period)

	values := make([]Value, 0, len(trs)-period+1)
	values = append(values, Value{
		Symbol: prices[0].Symbol,
		Date:   prices[period].Date,
		Name:   name,
		Value:  atr,
	})

	for i := period; i < len(trs); i++ {
		atr = (atr*float64(period-1) + trs[i]) / float64(period)
		values = append(values, Value{
			Symbol: prices[0].Symbol,
			Date:   prices[i+1].Date,
			Name:   name,
			Value:  atr,
		})
	}

	return values
}
