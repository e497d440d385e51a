package price

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func day(i int) time.Time {
	return time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC).AddDate(0, 0, i)
}

func validPoint() Point {
	return Point{
		Symbol: "AAPL",
		Date:   day(0),
		Open:   100,
		High:   105,
		Low:    95,
		Close:  102,
		Volume: 1000,
		Source: "yahoo",
	}
}

func TestPointValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Point)
		wantErr bool
	}{
		{"Valid point", func(p *Point) {}, false},
		{"Zero date", func(p *Point) { p.Date = time.Time{} }, true},
		{"Zero open", func(p *Point) { p.Open = 0 }, true},
		{"Negative close", func(p *Point) { p.Close = -1 }, true},
		{"High below low", func(p *Point) { p.High = 90 }, true},
		{"Close above high", func(p *Point) { p.Close = 110 }, true},
		{"Close below low", func(p *Point) { p.Close = 90 }, true},
		{"Negative volume", func(p *Point) { p.Volume = -1 }, true},
		{"Zero volume ok", func(p *Point) { p.Volume = 0 }, false},
		{"Empty symbol", func(p *Point) { p.Symbol = "" }, true},
		{"Close at high ok", func(p *Point) { p.Close = p.High }, false},
		{"Close at low ok", func(p *Point) { p.Close = p.Low }, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := validPoint()
			tt.mutate(&p)
			err := p.Validate()
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestDay(t *testing.T) {
	ts := time.Date(2024, 3, 15, 20, 30, 45, 123, time.UTC)
	assert.Equal(t, time.Date(2024, 3, 15, 0, 0, 0, 0, time.UTC), Day(ts))

	// Non-UTC timestamps normalize to the UTC calendar day.
	est := time.FixedZone("EST", -5*3600)
	late := time.Date(2024, 3, 15, 22, 0, 0, 0, est) // 03:00 UTC next day
	assert.Equal(t, time.Date(2024, 3, 16, 0, 0, 0, 0, time.UTC), Day(late))
}

func TestSortByDate(t *testing.T) {
	points := []Point{
		{Date: day(2), Close: 3},
		{Date: day(0), Close: 1},
		{Date: day(1), Close: 2},
	}
	SortByDate(points)
	assert.Equal(t, []float64{1, 2, 3}, Closes(points))
}

func TestDedupe(t *testing.T) {
	morning := day(1).Add(9 * time.Hour)
	evening := day(1).Add(17 * time.Hour)

	points := []Point{
		{Symbol: "A", Date: morning, Close: 10},
		{Symbol: "A", Date: evening, Close: 99}, // same day, dropped
		{Symbol: "A", Date: day(0), Close: 5},
	}

	out := Dedupe(points)

	assert.Len(t, out, 2)
	assert.Equal(t, day(0), out[0].Date)
	assert.Equal(t, 5.0, out[0].Close)
	assert.Equal(t, day(1), out[1].Date)
	assert.Equal(t, 10.0, out[1].Close, "first occurrence per day wins")
}

func TestDedupeEmpty(t *testing.T) {
	assert.Empty(t, Dedupe(nil))
}

func TestCloses(t *testing.T) {
	points := []Point{{Close: 1.5}, {Close: 2.5}}
	assert.Equal(t, []float64{1.5, 2.5}, Closes(points))
}
