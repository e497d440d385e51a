package indicator

import "context"

// Storage is the persistence interface for computed indicator values.
type Storage interface {
	SaveIndicatorValues(ctx context.Context, values []Value) error
	GetIndicatorValues(ctx context.Context, symbol string) ([]Value, error)
	GetLatestIndicatorValues(ctx context.Context, symbol string) (map[string]float64, error)
}
