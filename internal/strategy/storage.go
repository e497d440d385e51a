package strategy

import "context"

// Storage is the persistence interface for strategy definitions.
type Storage interface {
	SaveStrategy(ctx context.Context, s Strategy) (int64, error)
	GetStrategies(ctx context.Context) ([]Strategy, error)
	GetStrategy(ctx context.Context, name string) (*Strategy, error)
}
