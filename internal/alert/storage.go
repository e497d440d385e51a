package alert

import "context"

// Storage is the persistence interface for alerts.
type Storage interface {
	SavePriceAlert(ctx context.Context, a PriceAlert) (int64, error)
	GetActivePriceAlerts(ctx context.Context) ([]PriceAlert, error)
	MarkPriceAlertTriggered(ctx context.Context, id int64) error

	SaveIndicatorAlert(ctx context.Context, a IndicatorAlert) (int64, error)
	GetActiveIndicatorAlerts(ctx context.Context) ([]IndicatorAlert, error)
	MarkIndicatorAlertTriggered(ctx context.Context, id int64, lastValue float64) error
}
