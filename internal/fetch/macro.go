package fetch

import "time"

// MacroPoint is one observation of a macroeconomic series.
type MacroPoint struct {
	Indicator string    `json:"indicator"`
	Date      time.Time `json:"date"`
	Value     float64   `json:"value"`
	Source    string    `json:"source"`
}
