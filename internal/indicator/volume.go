package indicator

import "github.com/finpipe/finpipe/internal/price"

// OBV calculates On-Balance Volume, a cumulative total seeded at the first
// bar's volume: volume is added on up days, subtracted on down days and left
// unchanged when the close is flat. Needs 2 bars.
func OBV(prices []price.Point) []Value {
	if len(prices) < 2 {
		return nil
	}

	values := make([]Value, 0, len(prices))

	obv := prices[0].Volume
	values = append(values, Value{
		Symbol: prices[0].Symbol,
		Date:   prices[0].Date,
		Name:   OBVName,
		Value:  float64(obv),
	})

	for i := 1; i < len(prices); i++ {
		switch {
		case prices[i].Close > prices[i-1].Close:
			obv += prices[i].Volume
		case prices[i].Close < prices[i-1].Close:
			obv -= prices[i].Volume
		}
		values = append(values, Value{
			Symbol: prices[0].Symbol,
			Date:   prices[i].Date,
			Name:   OBVName,
			Value:  float64(obv),
		})
	}

	return values
}

// MFI calculates the Money Flow Index, a volume-weighted RSI over typical
// price. Raw money flow (typical price * volume) is split into positive and
// negative sums over the trailing window by typical-price direction. MFI is
// 100 when there is no negative flow and 0 when there is no positive flow.
// Needs period+1 bars.
func MFI(prices []price.Point, period int) []Value {
	if period <= 0 || len(prices) < period+1 {
		return nil
	}

	name := MFIName(period)

	typical := make([]float64, len(prices))
	rawFlow := make([]float64, len(prices))
	for i, p := range prices {
		typical[i] = (p.High + p.Low + p.Close) / 3.0
		rawFlow[i] = typical[i] * float64(p.Volume)
	}

	values := make([]Value, 0, len(prices)-period)

	for i := period; i < len(prices); i++ {
		var positive, negative float64
		for j := i + 1 - period; j <= i; j++ {
			if j == 0 {
				continue
			}
			if typical[j] > typical[j-1] {
				positive += rawFlow[j]
			} else if typical[j] < typical[j-1] {
				negative += rawFlow[j]
			}
		}

		var mfi float64
		switch {
		case negative == 0:
			mfi = 100.0
		case positive == 0:
			mfi = 0.0
		default:
			mfr := positive / negative
			mfi = 100.0 - (100.0 / (1.0 + mfr))
		}

		values = append(values, Value{
			Symbol: prices[0].Symbol,
			Date:   prices[i].Date,
			Name:   name,
			Value:  mfi,
		})
	}

	return values
}
