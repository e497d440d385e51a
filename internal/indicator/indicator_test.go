package indicator

import (
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/finpipe/finpipe/internal/price"
)

func day(i int) time.Time {
	return time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC).AddDate(0, 0, i)
}

// bars builds daily bars from closes with a fixed 2-point range around each
// close.
func bars(closes ...float64) []price.Point {
	points := make([]price.Point, len(closes))
	for i, c := range closes {
		points[i] = price.Point{
			Symbol: "TEST",
			Date:   day(i),
			Open:   c,
			High:   c + 1,
			Low:    c - 1,
			Close:  c,
			Volume: 1000,
			Source: "test",
		}
	}
	return points
}

func repeat(c float64, n int) []float64 {
	out := make([]float64, n)
	for i := range out {
		out[i] = c
	}
	return out
}

func rising(start float64, n int) []float64 {
	out := make([]float64, n)
	for i := range out {
		out[i] = start + float64(i)
	}
	return out
}

func falling(start float64, n int) []float64 {
	out := make([]float64, n)
	for i := range out {
		out[i] = start - float64(i)
	}
	return out
}

func TestSMA(t *testing.T) {
	tests := []struct {
		name     string
		closes   []float64
		period   int
		expected []float64
	}{
		{
			name:     "Flat closes yield constant average",
			closes:   repeat(100, 20),
			period:   20,
			expected: []float64{100},
		},
		{
			name:     "Rising closes",
			closes:   []float64{10, 11, 12, 13, 14},
			period:   3,
			expected: []float64{11, 12, 13},
		},
		{
			name:   "Insufficient data",
			closes: []float64{10, 11},
			period: 3,
		},
		{
			name:   "Invalid period",
			closes: []float64{10, 11, 12},
			period: 0,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			values := SMA(bars(tt.closes...), tt.period)
			assert.Len(t, values, len(tt.expected))
			for i, v := range values {
				assert.InDelta(t, tt.expected[i], v.Value, 1e-9)
				assert.Equal(t, SMAName(tt.period), v.Name)
				assert.Equal(t, day(tt.period-1+i), v.Date)
			}
		})
	}
}

func TestEMA(t *testing.T) {
	values := EMA(bars(10, 11, 12, 13, 14), 3)
	assert.Len(t, values, 3)
	// seeded with SMA(3) = 11, then k = 0.5
	assert.InDelta(t, 11.0, values[0].Value, 1e-9)
	assert.InDelta(t, 12.0, values[1].Value, 1e-9)
	assert.InDelta(t, 13.0, values[2].Value, 1e-9)
	assert.Equal(t, day(2), values[0].Date)

	assert.Nil(t, EMA(bars(10, 11), 3))
}

func TestEMAConvergesToFlatPrice(t *testing.T) {
	closes := append(rising(10, 12), repeat(50, 60)...)
	values := EMA(bars(closes...), 12)
	last := values[len(values)-1]
	assert.InDelta(t, 50.0, last.Value, 0.1)
}

func TestRSI(t *testing.T) {
	tests := []struct {
		name     string
		closes   []float64
		period   int
		expected float64
	}{
		{"All gains", rising(100, 16), 14, 100},
		{"All losses", falling(100, 16), 14, 0},
		{"Flat closes", repeat(100, 16), 14, 100},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			values := RSI(bars(tt.closes...), tt.period)
			assert.Len(t, values, len(tt.closes)-tt.period)
			assert.Equal(t, day(tt.period), values[0].Date)
			for _, v := range values {
				assert.InDelta(t, tt.expected, v.Value, 1e-9)
			}
		})
	}

	t.Run("Insufficient data", func(t *testing.T) {
		assert.Nil(t, RSI(bars(repeat(100, 14)...), 14))
	})

	t.Run("Values stay within bounds", func(t *testing.T) {
		closes := []float64{44, 44.3, 44.1, 43.6, 44.3, 44.8, 45.1, 45.4, 45.8, 46.1,
			45.9, 46.3, 46.2, 46.0, 46.5, 46.2, 46.6, 46.3, 46.2, 46.0}
		for _, v := range RSI(bars(closes...), 14) {
			assert.GreaterOrEqual(t, v.Value, 0.0)
			assert.LessOrEqual(t, v.Value, 100.0)
		}
	})
}

func TestMACD(t *testing.T) {
	t.Run("Insufficient data", func(t *testing.T) {
		assert.Nil(t, MACD(bars(rising(100, 34)...), 12, 26, 9))
	})

	t.Run("Emission starts after slow and signal warm up", func(t *testing.T) {
		values := MACD(bars(rising(100, 40)...), 12, 26, 9)
		// 14 MACD line points, 6 complete triples
		assert.Len(t, values, 18)
		assert.Equal(t, day(34), values[0].Date)

		byDate := BuildByDate(values)
		for _, d := range byDate.Dates() {
			m := byDate[d]
			macd, okM := m[MACDName(12, 26)]
			sigLine, okS := m[MACDSignalName(9)]
			hist, okH := m[MACDHistName]
			assert.True(t, okM && okS && okH)
			assert.InDelta(t, macd-sigLine, hist, 1e-9)
		}
	})

	t.Run("Steady uptrend keeps MACD positive", func(t *testing.T) {
		values := MACD(bars(rising(100, 60)...), 12, 26, 9)
		last := values[len(values)-3:]
		assert.Greater(t, last[0].Value, 0.0)
	})
}

func TestBollinger(t *testing.T) {
	t.Run("Flat closes collapse the bands", func(t *testing.T) {
		values := Bollinger(bars(repeat(100, 20)...), 20, 2.0)
		assert.Len(t, values, 3)
		for _, v := range values {
			assert.InDelta(t, 100.0, v.Value, 1e-9)
		}
	})

	t.Run("Band ordering", func(t *testing.T) {
		values := Bollinger(bars(rising(100, 30)...), 20, 2.0)
		byDate := BuildByDate(values)
		for _, d := range byDate.Dates() {
			m := byDate[d]
			assert.Greater(t, m[BBUpperName(20)], m[BBMiddleName(20)])
			assert.Greater(t, m[BBMiddleName(20)], m[BBLowerName(20)])
		}
	})
}

func TestATR(t *testing.T) {
	// constant 2-point range, flat closes: every true range is 2
	values := ATR(bars(repeat(100, 20)...), 14)
	assert.Len(t, values, 6)
	assert.Equal(t, day(14), values[0].Date)
	for _, v := range values {
		assert.InDelta(t, 2.0, v.Value, 1e-9)
	}

	assert.Nil(t, ATR(bars(repeat(100, 14)...), 14))
}

func TestStochastic(t *testing.T) {
	t.Run("Close at window midpoint", func(t *testing.T) {
		values := Stochastic(bars(repeat(100, 20)...), 14, 3)
		for _, v := range values {
			assert.InDelta(t, 50.0, v.Value, 1e-9)
		}
	})

	t.Run("Emission counts", func(t *testing.T) {
		values := Stochastic(bars(rising(100, 20)...), 14, 3)
		var kCount, dCount int
		for _, v := range values {
			switch v.Name {
			case StochKName(14):
				kCount++
			case StochDName(3):
				dCount++
			}
			assert.GreaterOrEqual(t, v.Value, 0.0)
			assert.LessOrEqual(t, v.Value, 100.0)
		}
		assert.Equal(t, 7, kCount)
		assert.Equal(t, 5, dCount)
	})

	t.Run("Insufficient data", func(t *testing.T) {
		assert.Nil(t, Stochastic(bars(repeat(100, 16)...), 14, 3))
	})
}

func TestOBV(t *testing.T) {
	points := bars(10, 12, 11, 11)
	values := OBV(points)
	assert.Len(t, values, 4)
	expected := []float64{1000, 2000, 1000, 1000}
	for i, v := range values {
		assert.InDelta(t, expected[i], v.Value, 1e-9)
	}

	assert.Nil(t, OBV(points[:1]))
}

func TestADX(t *testing.T) {
	t.Run("Steady uptrend maxes out trend strength", func(t *testing.T) {
		values := ADX(bars(rising(100, 40)...), 14)
		assert.NotEmpty(t, values)

		byDate := BuildByDate(values)
		dates := byDate.Dates()
		assert.Equal(t, day(28), dates[0])

		for _, d := range dates {
			m := byDate[d]
			assert.InDelta(t, 100.0, m[ADXName(14)], 1e-6)
			assert.InDelta(t, 50.0, m[PlusDIName(14)], 1e-6)
			assert.InDelta(t, 0.0, m[MinusDIName(14)], 1e-6)
		}
	})

	t.Run("Insufficient data", func(t *testing.T) {
		assert.Nil(t, ADX(bars(rising(100, 28)...), 14))
	})
}

func TestWilliamsR(t *testing.T) {
	values := WilliamsR(bars(rising(100, 20)...), 14)
	assert.Len(t, values, 7)
	for _, v := range values {
		assert.GreaterOrEqual(t, v.Value, -100.0)
		assert.LessOrEqual(t, v.Value, 0.0)
		// close rides near the top of the window in an uptrend
		assert.Greater(t, v.Value, -20.0)
	}
}

func TestCCI(t *testing.T) {
	t.Run("Flat closes resolve to zero", func(t *testing.T) {
		for _, v := range CCI(bars(repeat(100, 25)...), 20) {
			assert.InDelta(t, 0.0, v.Value, 1e-9)
		}
	})

	t.Run("Uptrend is positive", func(t *testing.T) {
		values := CCI(bars(rising(100, 30)...), 20)
		assert.Greater(t, values[len(values)-1].Value, 0.0)
	})
}

func TestMFI(t *testing.T) {
	t.Run("All positive flow", func(t *testing.T) {
		for _, v := range MFI(bars(rising(100, 20)...), 14) {
			assert.InDelta(t, 100.0, v.Value, 1e-9)
		}
	})

	t.Run("All negative flow", func(t *testing.T) {
		for _, v := range MFI(bars(falling(100, 20)...), 14) {
			assert.InDelta(t, 0.0, v.Value, 1e-9)
		}
	})
}

func TestROC(t *testing.T) {
	values := ROC(bars(rising(100, 20)...), 12)
	assert.Len(t, values, 8)
	assert.Equal(t, day(12), values[0].Date)
	// close moved from 100 to 112 over the first span
	assert.InDelta(t, 12.0, values[0].Value, 1e-9)
}

func TestAllComputesFullSet(t *testing.T) {
	values := All(bars(rising(100, 60)...))

	names := make(map[string]bool)
	for _, v := range values {
		assert.False(t, math.IsNaN(v.Value), "NaN for %s at %s", v.Name, v.Date)
		assert.False(t, math.IsInf(v.Value, 0), "Inf for %s at %s", v.Name, v.Date)
		names[v.Name] = true
	}

	expected := []string{
		RSIName(14), SMAName(20), SMAName(50), EMAName(12), EMAName(26),
		MACDName(12, 26), MACDSignalName(9), MACDHistName,
		BBUpperName(20), BBMiddleName(20), BBLowerName(20),
		ATRName(14), StochKName(14), StochDName(3), OBVName,
		ADXName(14), PlusDIName(14), MinusDIName(14),
		WillRName(14), CCIName(20), MFIName(14), ROCName(12),
	}
	for _, name := range expected {
		assert.True(t, names[name], "missing %s", name)
	}
	assert.Len(t, names, len(expected))
}
