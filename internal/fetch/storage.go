package fetch

import "context"

// MacroStorage is the persistence interface for macroeconomic series.
type MacroStorage interface {
	SaveMacroPoints(ctx context.Context, points []MacroPoint) error
	GetMacroPoints(ctx context.Context, indicator string) ([]MacroPoint, error)
}
