// Package db
package db

import (
	"database/sql"

	"github.com/finpipe/finpipe/internal/alert"
	"github.com/finpipe/finpipe/internal/backtest"
	"github.com/finpipe/finpipe/internal/fetch"
	"github.com/finpipe/finpipe/internal/indicator"
	"github.com/finpipe/finpipe/internal/price"
	"github.com/finpipe/finpipe/internal/signal"
	"github.com/finpipe/finpipe/internal/strategy"
)

// Storage is the interface for all persistent storage.
type Storage interface {
	GetDB() *sql.DB
	price.Storage
	indicator.Storage
	signal.Storage
	strategy.Storage
	backtest.Storage
	alert.Storage
	fetch.MacroStorage
}
