package market

import "context"

// Source is the transport collaborator: it knows how to pull candle history
// for a symbol+interval and which symbol this process should track.
type Source interface {
	FetchHistory(ctx context.Context, symbol, interval string, limit int) ([]Candle, error)

	// CurrentSymbol resolves the symbol to synchronize. Called once at startup.
	CurrentSymbol(ctx context.Context) (string, error)

	Close() error
}
