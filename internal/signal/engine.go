package signal

import (
	"math"
	"time"

	"github.com/finpipe/finpipe/internal/indicator"
	"github.com/finpipe/finpipe/internal/price"
)

// Engine detects discrete trading signals from an indicator index and its
// price series. The engine holds no mutable state across invocations; a
// single instance may be shared freely.
type Engine struct {
	cfg Config
}

// NewEngine creates an engine with default thresholds.
func NewEngine() *Engine {
	return &Engine{cfg: DefaultConfig()}
}

// NewEngineWithConfig creates an engine with custom thresholds.
func NewEngineWithConfig(cfg Config) *Engine {
	return &Engine{cfg: cfg}
}

// Generate produces the ordered signal set for a symbol. It evaluates each
// indexed date ascending; cross-type detectors compare against the
// immediately preceding indexed date, not the preceding calendar day, so
// gaps in coverage are tolerated. Detectors are edge-triggered except the
// Bollinger break, which is a level check.
func (e *Engine) Generate(symbol string, values []indicator.Value, prices []price.Point) []Signal {
	if len(prices) == 0 || len(values) == 0 {
		return nil
	}

	index := indicator.BuildByDate(values)
	dates := index.Dates()

	closeByDate := make(map[time.Time]float64, len(prices))
	for _, p := range prices {
		closeByDate[p.Date] = p.Close
	}

	detectors := []func(symbol string, date time.Time, px float64, today, prev map[string]float64) *Signal{
		e.detectRSI,
		e.detectMACD,
		e.detectBollinger,
		e.detectMACrossover,
		e.detectADX,
		e.detectStochastic,
		e.detectWillR,
		e.detectCCI,
		e.detectMFI,
	}

	var signals []Signal
	for i, date := range dates {
		today := index[date]
		var prev map[string]float64
		if i > 0 {
			prev = index[dates[i-1]]
		}
		px := closeByDate[date]

		for _, detect := range detectors {
			if sig := detect(symbol, date, px, today, prev); sig != nil {
				signals = append(signals, *sig)
			}
		}
	}

	return signals
}

// clamp01 bounds a strength value to [0,1].
func clamp01(v float64) float64 {
	return math.Min(v, 1.0)
}

func (e *Engine) detectRSI(symbol string, date time.Time, px float64, today, prev map[string]float64) *Signal {
	rsi, ok := today[indicator.RSIName(14)]
	if !ok {
		return nil
	}
	prevRSI, hasPrev := prevValue(prev, indicator.RSIName(14))

	if rsi > e.cfg.RSIOverbought {
		if !hasPrev || prevRSI <= e.cfg.RSIOverbought {
			return &Signal{
				Symbol:        symbol,
				Type:          RSIOverbought,
				Direction:     Bearish,
				Strength:      clamp01((rsi - e.cfg.RSIOverbought) / 30.0),
				PriceAtSignal: px,
				TriggeredBy:   indicator.RSIName(14),
				TriggerValue:  rsi,
				Date:          date,
			}
		}
	} else if rsi < e.cfg.RSIOversold {
		if !hasPrev || prevRSI >= e.cfg.RSIOversold {
			return &Signal{
				Symbol:        symbol,
				Type:          RSIOversold,
				Direction:     Bullish,
				Strength:      clamp01((e.cfg.RSIOversold - rsi) / 30.0),
				PriceAtSignal: px,
				TriggeredBy:   indicator.RSIName(14),
				TriggerValue:  rsi,
				Date:          date,
			}
		}
	}
	return nil
}

func (e *Engine) detectMACD(symbol string, date time.Time, px float64, today, prev map[string]float64) *Signal {
	macd, ok := today[indicator.MACDName(12, 26)]
	if !ok {
		return nil
	}
	sigLine, ok := today[indicator.MACDSignalName(9)]
	if !ok {
		return nil
	}
	prevMACD, ok := prevValue(prev, indicator.MACDName(12, 26))
	if !ok {
		return nil
	}
	prevSig, ok := prevValue(prev, indicator.MACDSignalName(9))
	if !ok {
		return nil
	}

	strength := clamp01(math.Abs(macd-sigLine) / math.Max(px, 1.0) * 100.0)

	if prevMACD <= prevSig && macd > sigLine {
		return &Signal{
			Symbol:        symbol,
			Type:          MACDBullishCross,
			Direction:     Bullish,
			Strength:      strength,
			PriceAtSignal: px,
			TriggeredBy:   "MACD",
			TriggerValue:  macd,
			Date:          date,
		}
	}
	if prevMACD >= prevSig && macd < sigLine {
		return &Signal{
			Symbol:        symbol,
			Type:          MACDBearishCross,
			Direction:     Bearish,
			Strength:      strength,
			PriceAtSignal: px,
			TriggeredBy:   "MACD",
			TriggerValue:  macd,
			Date:          date,
		}
	}
	return nil
}

// detectBollinger is a level check: it fires every day the close sits
// outside a band, not only on the crossing day.
func (e *Engine) detectBollinger(symbol string, date time.Time, px float64, today, _ map[string]float64) *Signal {
	upper, ok := today[indicator.BBUpperName(20)]
	if !ok {
		return nil
	}
	lower, ok := today[indicator.BBLowerName(20)]
	if !ok {
		return nil
	}
	middle, ok := today[indicator.BBMiddleName(20)]
	if !ok {
		return nil
	}

	if px > upper {
		return &Signal{
			Symbol:        symbol,
			Type:          BollingerUpperBreak,
			Direction:     Bearish,
			Strength:      clamp01((px - upper) / math.Max(upper-middle, 0.01)),
			PriceAtSignal: px,
			TriggeredBy:   indicator.BBUpperName(20),
			TriggerValue:  upper,
			Date:          date,
		}
	}
	if px < lower {
		return &Signal{
			Symbol:        symbol,
			Type:          BollingerLowerBreak,
			Direction:     Bullish,
			Strength:      clamp01((lower - px) / math.Max(middle-lower, 0.01)),
			PriceAtSignal: px,
			TriggeredBy:   indicator.BBLowerName(20),
			TriggerValue:  lower,
			Date:          date,
		}
	}
	return nil
}

func (e *Engine) detectMACrossover(symbol string, date time.Time, px float64, today, prev map[string]float64) *Signal {
	fast, ok := today[indicator.SMAName(20)]
	if !ok {
		return nil
	}
	slow, ok := today[indicator.SMAName(50)]
	if !ok {
		return nil
	}
	prevFast, ok := prevValue(prev, indicator.SMAName(20))
	if !ok {
		return nil
	}
	prevSlow, ok := prevValue(prev, indicator.SMAName(50))
	if !ok {
		return nil
	}

	if prevFast <= prevSlow && fast > slow {
		return &Signal{
			Symbol:        symbol,
			Type:          MACrossoverBullish,
			Direction:     Bullish,
			Strength:      clamp01((fast - slow) / slow * 100.0),
			PriceAtSignal: px,
			TriggeredBy:   "SMA_20/50",
			TriggerValue:  fast,
			Date:          date,
		}
	}
	if prevFast >= prevSlow && fast < slow {
		return &Signal{
			Symbol:        symbol,
			Type:          MACrossoverBearish,
			Direction:     Bearish,
			Strength:      clamp01((slow - fast) / slow * 100.0),
			PriceAtSignal: px,
			TriggeredBy:   "SMA_20/50",
			TriggerValue:  fast,
			Date:          date,
		}
	}
	return nil
}

// detectADX fires neutral-direction signals since ADX measures trend
// magnitude, not direction.
func (e *Engine) detectADX(symbol string, date time.Time, px float64, today, prev map[string]float64) *Signal {
	adx, ok := today[indicator.ADXName(14)]
	if !ok {
		return nil
	}
	prevADX, hasPrev := prevValue(prev, indicator.ADXName(14))

	if adx > e.cfg.ADXStrongTrend {
		if !hasPrev || prevADX <= e.cfg.ADXStrongTrend {
			return &Signal{
				Symbol:        symbol,
				Type:          ADXTrendStrong,
				Direction:     Neutral,
				Strength:      clamp01((adx - e.cfg.ADXStrongTrend) / 25.0),
				PriceAtSignal: px,
				TriggeredBy:   indicator.ADXName(14),
				TriggerValue:  adx,
				Date:          date,
			}
		}
	} else if adx < e.cfg.ADXWeakTrend {
		if !hasPrev || prevADX >= e.cfg.ADXWeakTrend {
			return &Signal{
				Symbol:        symbol,
				Type:          ADXTrendWeak,
				Direction:     Neutral,
				Strength:      clamp01((e.cfg.ADXWeakTrend - adx) / 20.0),
				PriceAtSignal: px,
				TriggeredBy:   indicator.ADXName(14),
				TriggerValue:  adx,
				Date:          date,
			}
		}
	}
	return nil
}

// detectStochastic requires the %K/%D cross to occur near the oversold or
// overbought extreme (within 20 points).
func (e *Engine) detectStochastic(symbol string, date time.Time, px float64, today, prev map[string]float64) *Signal {
	k, ok := today[indicator.StochKName(14)]
	if !ok {
		return nil
	}
	d, ok := today[indicator.StochDName(3)]
	if !ok {
		return nil
	}
	prevK, ok := prevValue(prev, indicator.StochKName(14))
	if !ok {
		return nil
	}
	prevD, ok := prevValue(prev, indicator.StochDName(3))
	if !ok {
		return nil
	}

	if prevK <= prevD && k > d && k < e.cfg.StochOversold+20.0 {
		return &Signal{
			Symbol:        symbol,
			Type:          StochBullishCross,
			Direction:     Bullish,
			Strength:      clamp01(math.Abs(d-k) / 20.0),
			PriceAtSignal: px,
			TriggeredBy:   "STOCH",
			TriggerValue:  k,
			Date:          date,
		}
	}
	if prevK >= prevD && k < d && k > e.cfg.StochOverbought-20.0 {
		return &Signal{
			Symbol:        symbol,
			Type:          StochBearishCross,
			Direction:     Bearish,
			Strength:      clamp01(math.Abs(k-d) / 20.0),
			PriceAtSignal: px,
			TriggeredBy:   "STOCH",
			TriggerValue:  k,
			Date:          date,
		}
	}
	return nil
}

func (e *Engine) detectWillR(symbol string, date time.Time, px float64, today, prev map[string]float64) *Signal {
	wr, ok := today[indicator.WillRName(14)]
	if !ok {
		return nil
	}
	prevWR, hasPrev := prevValue(prev, indicator.WillRName(14))

	if wr > e.cfg.WillROverbought {
		if !hasPrev || prevWR <= e.cfg.WillROverbought {
			return &Signal{
				Symbol:        symbol,
				Type:          WillROverbought,
				Direction:     Bearish,
				Strength:      clamp01((wr - e.cfg.WillROverbought) / 20.0),
				PriceAtSignal: px,
				TriggeredBy:   indicator.WillRName(14),
				TriggerValue:  wr,
				Date:          date,
			}
		}
	} else if wr < e.cfg.WillROversold {
		if !hasPrev || prevWR >= e.cfg.WillROversold {
			return &Signal{
				Symbol:        symbol,
				Type:          WillROversold,
				Direction:     Bullish,
				Strength:      clamp01((e.cfg.WillROversold - wr) / 20.0),
				PriceAtSignal: px,
				TriggeredBy:   indicator.WillRName(14),
				TriggerValue:  wr,
				Date:          date,
			}
		}
	}
	return nil
}

func (e *Engine) detectCCI(symbol string, date time.Time, px float64, today, prev map[string]float64) *Signal {
	cci, ok := today[indicator.CCIName(20)]
	if !ok {
		return nil
	}
	prevCCI, hasPrev := prevValue(prev, indicator.CCIName(20))

	if cci > e.cfg.CCIOverbought {
		if !hasPrev || prevCCI <= e.cfg.CCIOverbought {
			return &Signal{
				Symbol:        symbol,
				Type:          CCIOverbought,
				Direction:     Bearish,
				Strength:      clamp01((cci - e.cfg.CCIOverbought) / 100.0),
				PriceAtSignal: px,
				TriggeredBy:   indicator.CCIName(20),
				TriggerValue:  cci,
				Date:          date,
			}
		}
	} else if cci < e.cfg.CCIOversold {
		if !hasPrev || prevCCI >= e.cfg.CCIOversold {
			return &Signal{
				Symbol:        symbol,
				Type:          CCIOversold,
				Direction:     Bullish,
				Strength:      clamp01((e.cfg.CCIOversold - cci) / 100.0),
				PriceAtSignal: px,
				TriggeredBy:   indicator.CCIName(20),
				TriggerValue:  cci,
				Date:          date,
			}
		}
	}
	return nil
}

func (e *Engine) detectMFI(symbol string, date time.Time, px float64, today, prev map[string]float64) *Signal {
	mfi, ok := today[indicator.MFIName(14)]
	if !ok {
		return nil
	}
	prevMFI, hasPrev := prevValue(prev, indicator.MFIName(14))

	if mfi > e.cfg.MFIOverbought {
		if !hasPrev || prevMFI <= e.cfg.MFIOverbought {
			return &Signal{
				Symbol:        symbol,
				Type:          MFIOverbought,
				Direction:     Bearish,
				Strength:      clamp01((mfi - e.cfg.MFIOverbought) / 20.0),
				PriceAtSignal: px,
				TriggeredBy:   indicator.MFIName(14),
				TriggerValue:  mfi,
				Date:          date,
			}
		}
	} else if mfi < e.cfg.MFIOversold {
		if !hasPrev || prevMFI >= e.cfg.MFIOversold {
			return &Signal{
				Symbol:        symbol,
				Type:          MFIOversold,
				Direction:     Bullish,
				Strength:      clamp01((e.cfg.MFIOversold - mfi) / 20.0),
				PriceAtSignal: px,
				TriggeredBy:   indicator.MFIName(14),
				TriggerValue:  mfi,
				Date:          date,
			}
		}
	}
	return nil
}

func prevValue(prev map[string]float64, name string) (float64, bool) {
	if prev == nil {
		return 0, false
	}
	v, ok := prev[name]
	return v, ok
}
