// Package pattern detects candlestick patterns on daily bars. Matches are
// informational annotations alongside indicator-based signals.
package pattern

import (
	"math"
	"time"

	"github.com/finpipe/finpipe/internal/price"
)

// Direction is the bias a pattern carries.
type Direction string

const (
	Bullish Direction = "bullish"
	Bearish Direction = "bearish"
	Neutral Direction = "neutral"
)

// Strength tiers shared by all detectors.
const (
	strengthWeak   = 0.3
	strengthMedium = 0.6
	strengthStrong = 0.9
)

// Match is one detected candlestick pattern.
type Match struct {
	Symbol    string    `json:"symbol"`
	Date      time.Time `json:"date"`
	Name      string    `json:"name"`
	Direction Direction `json:"direction"`
	Strength  float64   `json:"strength"`
}

// bar geometry helpers

func bodySize(p price.Point) float64   { return math.Abs(p.Close - p.Open) }
func totalRange(p price.Point) float64 { return p.High - p.Low }

func upperShadow(p price.Point) float64 { return p.High - math.Max(p.Open, p.Close) }
func lowerShadow(p price.Point) float64 { return math.Min(p.Open, p.Close) - p.Low }

func bodyRatio(p price.Point) float64 {
	if r := totalRange(p); r > 0 {
		return bodySize(p) / r
	}
	return 0
}

func upperShadowRatio(p price.Point) float64 {
	if r := totalRange(p); r > 0 {
		return upperShadow(p) / r
	}
	return 0
}

func lowerShadowRatio(p price.Point) float64 {
	if r := totalRange(p); r > 0 {
		return lowerShadow(p) / r
	}
	return 0
}

func isDojiBar(p price.Point) bool {
	return totalRange(p) > 0 && bodyRatio(p) < 0.1
}

// Detect runs all detectors over the bars, which must be sorted by date.
func Detect(points []price.Point) []Match {
	var matches []Match
	for i, p := range points {
		if p.Validate() != nil {
			continue
		}
		if m := detectDoji(p); m != nil {
			matches = append(matches, *m)
		}
		if m := detectHammer(p); m != nil {
			matches = append(matches, *m)
		}
		if i > 0 {
			if m := detectEngulfing(p, points[i-1]); m != nil {
				matches = append(matches, *m)
			}
		}
		if i > 1 {
			if m := detectStar(p, points[i-1], points[i-2]); m != nil {
				matches = append(matches, *m)
			}
		}
	}
	return matches
}

// detectDoji classifies doji variants, most specific first.
func detectDoji(p price.Point) *Match {
	if !isDojiBar(p) {
		return nil
	}
	upper, lower := upperShadowRatio(p), lowerShadowRatio(p)

	switch {
	case upper <= 0.05 && lower > 0.3:
		return match(p, "Dragonfly Doji", Bullish, dojiStrength(p, lower))
	case lower < 0.05 && upper >= 0.3:
		return match(p, "Gravestone Doji", Bearish, dojiStrength(p, upper))
	case upper > 0.4 && lower > 0.4:
		return match(p, "Long-Legged Doji", Neutral, dojiStrength(p, upper+lower-0.5))
	case upper > 0.1 && lower > 0.1:
		return match(p, "Doji", Neutral, dojiStrength(p, 1-math.Abs(upper-lower)))
	}
	return nil
}

func dojiStrength(p price.Point, boost float64) float64 {
	s := strengthWeak
	if bodyRatio(p) < 0.05 {
		s = strengthStrong
	} else if bodyRatio(p) < 0.1 {
		s = strengthMedium
	}
	if boost > 0.8 {
		s = math.Min(s*1.2, 1.0)
	}
	return s
}

// detectHammer finds hammer-shaped bars: a small body with one shadow at
// least twice the body and almost nothing on the other side. A long lower
// shadow is a Hammer, a long upper shadow a Shooting Star. Doji bodies are
// left to the doji detector.
func detectHammer(p price.Point) *Match {
	body := bodySize(p)
	if body == 0 || bodyRatio(p) > 0.3 || isDojiBar(p) {
		return nil
	}

	if lowerShadow(p)/body >= 2.0 && upperShadowRatio(p) <= 0.1 {
		return match(p, "Hammer", Bullish, hammerStrength(p, lowerShadowRatio(p)))
	}
	if upperShadow(p)/body >= 2.0 && lowerShadowRatio(p) <= 0.1 {
		return match(p, "Shooting Star", Bearish, hammerStrength(p, upperShadowRatio(p)))
	}
	return nil
}

func hammerStrength(p price.Point, shadowRatio float64) float64 {
	s := strengthWeak
	if shadowRatio > 0.6 {
		s = strengthStrong
	} else if shadowRatio > 0.4 {
		s = strengthMedium
	}
	if bodyRatio(p) < 0.1 {
		s = math.Min(s*1.2, 1.0)
	}
	return s
}

// detectEngulfing finds a bar whose body fully engulfs the previous bar's
// opposite-colored body.
func detectEngulfing(cur, prev price.Point) *Match {
	if prev.Validate() != nil {
		return nil
	}
	curHigh, curLow := math.Max(cur.Open, cur.Close), math.Min(cur.Open, cur.Close)
	prevHigh, prevLow := math.Max(prev.Open, prev.Close), math.Min(prev.Open, prev.Close)
	if curHigh < prevHigh || curLow > prevLow {
		return nil
	}

	prevBody := bodySize(prev)
	s := strengthWeak
	if prevBody > 0 {
		s = math.Min(bodySize(cur)/prevBody/2.0, 1.0)
		if float64(cur.Volume) > float64(prev.Volume)*1.5 {
			s = math.Min(s*1.2, 1.0)
		}
		s = math.Max(s, strengthWeak)
	}

	if cur.Close > cur.Open && prev.Close < prev.Open {
		return match(cur, "Bullish Engulfing", Bullish, s)
	}
	if cur.Close < cur.Open && prev.Close > prev.Open {
		return match(cur, "Bearish Engulfing", Bearish, s)
	}
	return nil
}

// detectStar finds morning and evening stars: a long directional bar, a small
// gapped body, then a reversal bar closing past the midpoint of the first.
func detectStar(cur, mid, first price.Point) *Match {
	if mid.Validate() != nil || first.Validate() != nil {
		return nil
	}
	if bodyRatio(mid) > 0.3 || bodyRatio(first) < 0.5 || bodyRatio(cur) < 0.5 {
		return nil
	}

	firstMid := (first.Open + first.Close) / 2

	// morning star: down, pause, up past the midpoint
	if first.Close < first.Open && cur.Close > cur.Open && cur.Close > firstMid &&
		math.Max(mid.Open, mid.Close) < first.Close {
		return match(cur, "Morning Star", Bullish, starStrength(cur, first, firstMid))
	}

	// evening star: up, pause, down past the midpoint
	if first.Close > first.Open && cur.Close < cur.Open && cur.Close < firstMid &&
		math.Min(mid.Open, mid.Close) > first.Close {
		return match(cur, "Evening Star", Bearish, starStrength(cur, first, firstMid))
	}
	return nil
}

func starStrength(cur, first price.Point, firstMid float64) float64 {
	s := strengthMedium
	penetration := math.Abs(cur.Close-firstMid) / math.Max(bodySize(first), 1e-9)
	if penetration > 0.5 {
		s = strengthStrong
	}
	return s
}

func match(p price.Point, name string, dir Direction, strength float64) *Match {
	return &Match{
		Symbol:    p.Symbol,
		Date:      p.Date,
		Name:      name,
		Direction: dir,
		Strength:  strength,
	}
}
