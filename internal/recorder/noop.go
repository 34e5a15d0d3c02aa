package recorder

import (
	"time"

	"SignalScreener/internal/model"
)

// NoopRecorder is a no-op implementation used when SQLite is not configured.
type NoopRecorder struct{}

func NewNoopRecorder() *NoopRecorder { return &NoopRecorder{} }

func (n *NoopRecorder) RecordRun(_ *RunRecord) error                       { return nil }
func (n *NoopRecorder) RecordSignal(_ string, _ *model.SignalResult) error { return nil }
func (n *NoopRecorder) RecordEnergy(_, _ string, _ float64, _ []model.EnergyRecord) error {
	return nil
}
func (n *NoopRecorder) RecordSnapshot(_, _ string, _ time.Time, _ *model.TASnapshot) error {
	return nil
}
func (n *NoopRecorder) LastRun() (*RunRecord, error) { return nil, nil }
func (n *NoopRecorder) Close() error                 { return nil }
