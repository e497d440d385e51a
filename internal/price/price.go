// Package price
package price

import (
	"errors"
	"sort"
	"time"
)

// Point is one daily OHLCV bar for a symbol. Bars are keyed by (symbol, date)
// and immutable once stored.
type Point struct {
	Symbol string    `json:"symbol"`
	Date   time.Time `json:"date"`
	Open   float64   `json:"open"`
	High   float64   `json:"high"`
	Low    float64   `json:"low"`
	Close  float64   `json:"close"`
	Volume int64     `json:"volume"`
	Source string    `json:"source"`
}

// Day truncates a timestamp to its UTC calendar day.
func Day(t time.Time) time.Time {
	return t.UTC().Truncate(24 * time.Hour)
}

// Validate checks if a price point has valid data
func (p *Point) Validate() error {
	if p.Date.IsZero() {
		return errors.New("price date is zero")
	}
	if p.Open <= 0 || p.High <= 0 || p.Low <= 0 || p.Close <= 0 {
		return errors.New("prices must be positive")
	}
	if p.High < p.Low {
		return errors.New("high cannot be less than low")
	}
	if p.Close < p.Low || p.Close > p.High {
		return errors.New("close must be between high and low")
	}
	if p.Volume < 0 {
		return errors.New("volume cannot be negative")
	}
	if p.Symbol == "" {
		return errors.New("symbol cannot be empty")
	}
	return nil
}

// SortByDate sorts points ascending by date in place.
func SortByDate(points []Point) {
	sort.Slice(points, func(i, j int) bool {
		return points[i].Date.Before(points[j].Date)
	})
}

// Dedupe sorts points and eliminates duplicate dates, keeping the first
// occurrence of each calendar day.
func Dedupe(points []Point) []Point {
	if len(points) == 0 {
		return points
	}

	seen := make(map[time.Time]Point, len(points))
	for _, p := range points {
		day := Day(p.Date)
		if _, exists := seen[day]; !exists {
			p.Date = day
			seen[day] = p
		}
	}

	out := make([]Point, 0, len(seen))
	for _, p := range seen {
		out = append(out, p)
	}
	SortByDate(out)
	return out
}

// Closes extracts the close series in input order.
func Closes(points []Point) []float64 {
	closes := make([]float64, len(points))
	for i, p := range points {
		closes[i] = p.Close
	}
	return closes
}
