package position

import (
	"context"
	"fmt"
	"time"

	"SignalScreener/internal/model"
)

// Book supplies the position context a symbol is evaluated against.
type Book interface {
	// Lookup returns the position symbol carries into tradeDate, or nil when
	// flat. prevDate is the date of the bar before tradeDate and is zero when
	// the series starts on tradeDate.
	Lookup(ctx context.Context, symbol string, tradeDate, prevDate time.Time) (*model.Position, error)
	Name() string
}

// toPosition converts a stored entry into a Position. Flat entries yield nil.
func toPosition(symbol string, e *model.BookEntry) (*model.Position, error) {
	if e == nil || e.Status != model.StatusInPosition {
		return nil, nil
	}
	entry, err := time.Parse(model.DateLayout, e.EntryDate)
	if err != nil {
		return nil, fmt.Errorf("%s: bad entry date %q: %w", symbol, e.EntryDate, err)
	}
	return &model.Position{
		EntryDate:   entry,
		EntryPrice:  e.EntryPrice,
		CurrentStop: e.Exit1,
	}, nil
}
