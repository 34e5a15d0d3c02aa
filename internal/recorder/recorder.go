package recorder

import (
	"time"

	"SignalScreener/internal/model"
)

// RunRecord summarizes one batch run.
type RunRecord struct {
	RunID     string
	TradeDate time.Time
	Started   time.Time
	Finished  time.Time
	Symbols   int
	Buys      int
	Sells     int
	Failed    int
	Status    string // "RUNNING", "DONE", "FAILED"
	Note      string
}

// Recorder persists run results for later analysis.
type Recorder interface {
	RecordRun(run *RunRecord) error
	RecordSignal(runID string, res *model.SignalResult) error
	RecordEnergy(runID, symbol string, score float64, recs []model.EnergyRecord) error
	RecordSnapshot(runID, symbol string, tradeDate time.Time, snap *model.TASnapshot) error
	// LastRun returns the most recently started run, or nil if none.
	LastRun() (*RunRecord, error)
	Close() error
}
