package position

import (
	"context"
	"encoding/json"
	"log"
	"math"
	"os"
	"sort"
	"sync"
	"time"

	"SignalScreener/internal/model"
)

// FileBook keeps positions in a JSON state file, guarded by a mutex.
type FileBook struct {
	mu       sync.Mutex
	state    *model.BookState
	filePath string
}

// NewFileBook loads the book from filePath, creating an empty one if missing.
func NewFileBook(filePath string) (*FileBook, error) {
	state, err := LoadState(filePath)
	if err != nil {
		return nil, err
	}
	b := &FileBook{state: state, filePath: filePath}
	if err := b.save(); err != nil {
		return nil, err
	}
	return b, nil
}

func (b *FileBook) Name() string { return "file" }

// Lookup returns the open position of symbol. A position opened after
// tradeDate is ignored so that back-dated runs see the book as flat.
func (b *FileBook) Lookup(_ context.Context, symbol string, tradeDate, _ time.Time) (*model.Position, error) {
	b.mu.Lock()
	e := b.state.Entries[symbol]
	b.mu.Unlock()

	pos, err := toPosition(symbol, e)
	if err != nil || pos == nil {
		return nil, err
	}
	if pos.EntryDate.After(tradeDate) {
		return nil, nil
	}
	return pos, nil
}

// Apply updates the book from an evaluation: a buy opens a position at the
// close with the computed stop, a sell closes it.
func (b *FileBook) Apply(res *model.SignalResult) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	e, ok := b.state.Entries[res.Symbol]
	if !ok {
		e = &model.BookEntry{Status: model.StatusFlat}
		b.state.Entries[res.Symbol] = e
	}
	day := res.TradeDate.Format(model.DateLayout)

	switch res.Action {
	case model.ActionBuy:
		if e.Status == model.StatusInPosition {
			return nil
		}
		e.Status = model.StatusInPosition
		e.EntryDate = day
		e.EntryPrice = res.Close
		e.Exit1 = res.StopLoss
		if math.IsNaN(e.Exit1) {
			e.Exit1 = 0
		}
	case model.ActionSell:
		if e.Status != model.StatusInPosition {
			return nil
		}
		e.Status = model.StatusFlat
		e.EntryDate = ""
		e.EntryPrice = 0
		e.Exit1 = 0
	default:
		return nil
	}
	e.LastAction = res.Action
	e.LastTradeAt = day
	log.Printf("[INFO] book %s: %s on %s", res.Symbol, res.Action, day)
	return b.save()
}

// Entries returns a copy of every entry, keyed by symbol.
func (b *FileBook) Entries() map[string]model.BookEntry {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := make(map[string]model.BookEntry, len(b.state.Entries))
	for sym, e := range b.state.Entries {
		out[sym] = *e
	}
	return out
}

// Open lists the symbols currently in a position, sorted.
func (b *FileBook) Open() []string {
	b.mu.Lock()
	defer b.mu.Unlock()
	var syms []string
	for sym, e := range b.state.Entries {
		if e.Status == model.StatusInPosition {
			syms = append(syms, sym)
		}
	}
	sort.Strings(syms)
	return syms
}

func (b *FileBook) save() error {
	return SaveState(b.filePath, b.state)
}

// LoadState reads the book from a JSON file. Returns an empty book if the file doesn't exist.
func LoadState(filePath string) (*model.BookState, error) {
	data, err := os.ReadFile(filePath)
	if err != nil {
		if os.IsNotExist(err) {
			return &model.BookState{Entries: map[string]*model.BookEntry{}}, nil
		}
		return nil, err
	}
	var state model.BookState
	if err := json.Unmarshal(data, &state); err != nil {
		return nil, err
	}
	if state.Entries == nil {
		state.Entries = map[string]*model.BookEntry{}
	}
	return &state, nil
}

// SaveState writes the book to a JSON file.
func SaveState(filePath string, state *model.BookState) error {
	state.UpdatedAt = time.Now()
	data, err := json.MarshalIndent(state, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(filePath, data, 0644)
}
