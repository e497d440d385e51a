package signal

import "context"

// Storage is the persistence interface for generated signals.
type Storage interface {
	SaveSignals(ctx context.Context, signals []Signal) error
	GetSignals(ctx context.Context, symbol string) ([]Signal, error)
	GetUnacknowledgedSignals(ctx context.Context) ([]Signal, error)
	AcknowledgeSignal(ctx context.Context, id int64) error
}
