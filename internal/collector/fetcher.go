package collector

import (
	"context"
	"time"

	"SignalScreener/internal/model"
)

// Fetcher defines the interface for fetching raw daily bars.
// Implementations return at most limit rows dated on or before tradeDate,
// ascending by date.
type Fetcher interface {
	FetchDailyBars(ctx context.Context, symbol string, tradeDate time.Time, limit int) ([]model.RawBar, error)
	Name() string
}

// BarStore accepts bars fetched from an upstream source so later runs can be
// served locally.
type BarStore interface {
	SaveBars(ctx context.Context, bars []model.RawBar) error
}
