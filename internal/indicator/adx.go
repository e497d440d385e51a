package indicator

import (
	"time"

	"github.com/finpipe/finpipe/internal/price"
)

// ADX calculates the Average Directional Index along with the +DI and -DI
// series. Directional movement and true range are Wilder-smoothed running
// sums; DX = 100*|+DI - -DI|/(+DI + -DI) and ADX is a Wilder-smoothed
// average of DX seeded with the simple mean of the first period DX values.
// Divisions by a zero smoothed TR or DI sum resolve to 0. Needs 2*period+1
// bars; the first ADX lands on bar 2*period.
func ADX(prices []price.Point, period int) []Value {
	if period <= 0 || len(prices) < 2*period+1 {
		return nil
	}

	n := len(prices) - 1
	plusDM := make([]float64, 0, n)
	minusDM := make([]float64, 0, n)
	trs := make([]float64, 0, n)

	for i := 1; i < len(prices); i++ {
		upMove := prices[i].High - prices[i-1].High
		downMove := prices[i-1].Low - prices[i].Low

		var pdm, mdm float64
		if upMove > downMove && upMove > 0 {
			pdm = upMove
		}
		if downMove > upMove && downMove > 0 {
			mdm = downMove
		}

		plusDM = append(plusDM, pdm)
		minusDM = append(minusDM, mdm)
		trs = append(trs, trueRange(prices[i], prices[i-1].Close))
	}

	var smoothPlusDM, smoothMinusDM, smoothTR float64
	for i := 0; i < period; i++ {
		smoothPlusDM += plusDM[i]
		smoothMinusDM += minusDM[i]
		smoothTR += trs[i]
	}

	type dxPoint struct {
		date    time.Time
		dx      float64
		plusDI  float64
		minusDI float64
	}
	dxValues := make([]dxPoint, 0, len(plusDM)-period)

	for i := period; i < len(plusDM); i++ {
		smoothPlusDM = smoothPlusDM - smoothPlusDM/float64(period) + plusDM[i]
		smoothMinusDM = smoothMinusDM - smoothMinusDM/float64(period) + minusDM[i]
		smoothTR = smoothTR - smoothTR/float64(period) + trs[i]

		var plusDI, minusDI float64
		if smoothTR != 0 {
			plusDI = 100.0 * smoothPlusDM / smoothTR
			minusDI = 100.0 * smoothMinusDM / smoothTR
		}

		var dx float64
		if diSum := plusDI + minusDI; diSum != 0 {
			if d := plusDI - minusDI; d >= 0 {
				dx = 100.0 * d / diSum
			} else {
				dx = 100.0 * -d / diSum
			}
		}

		dxValues = append(dxValues, dxPoint{
			date:    prices[i+1].Date,
			dx:      dx,
			plusDI:  plusDI,
			minusDI: minusDI,
		})
	}

	if len(dxValues) < period {
		return nil
	}

	var adx float64
	for i := 0; i < period; i++ {
		adx += dxValues[i].dx
	}
	adx /= float64(period)

	adxName := ADXName(period)
	plusName := PlusDIName(period)
	minusName := MinusDIName(period)

	values := make([]Value, 0, 3*(len(dxValues)-period+1))
	for i := period - 1; i < len(dxValues); i++ {
		if i >= period {
			adx = (adx*float64(period-1) + dxValues[i].dx) / float64(period)
		}

		values = append(values,
			Value{Symbol: prices[0].Symbol, Date: dxValues[i].date, Name: adxName, Value: adx},
			Value{Symbol: prices[0].Symbol, Date: dxValues[i].date, Name: plusName, Value: dxValues[i].plusDI},
			Value{Symbol: prices[0].Symbol, Date: dxValues[i].date, Name: minusName, Value: dxValues[i].minusDI},
		)
	}

	return values
}
