package backtest

import "context"

// Storage is the persistence interface for backtest runs. SaveResult stores
// the run and its trades atomically and returns the generated run id.
type Storage interface {
	SaveResult(ctx context.Context, r Result) (int64, error)
	GetResults(ctx context.Context, symbol string) ([]Result, error)
	GetTrades(ctx context.Context, backtestID int64) ([]Trade, error)
}
