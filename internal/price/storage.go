package price

import (
	"context"
	"time"
)

// Storage is the persistence interface for symbols and daily bars.
type Storage interface {
	SaveSymbol(ctx context.Context, s Symbol) error
	GetSymbols(ctx context.Context) ([]Symbol, error)
	SavePrices(ctx context.Context, points []Point) error
	GetPrices(ctx context.Context, symbol string) ([]Point, error)
	GetPricesRange(ctx context.Context, symbol string, start, end time.Time) ([]Point, error)
	GetLatestPrice(ctx context.Context, symbol string) (*Point, error)
}
