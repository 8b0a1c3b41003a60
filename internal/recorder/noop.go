package recorder

import "stockdash/internal/model"

// NoopRecorder is a no-op implementation used when SQLite is not configured.
type NoopRecorder struct{}

func NewNoopRecorder() *NoopRecorder { return &NoopRecorder{} }

func (n *NoopRecorder) RecordAnalysis(_ *model.Report) error { return nil }
func (n *NoopRecorder) History(_ string, _ int) ([]Snapshot, error) { return nil, nil }
func (n *NoopRecorder) Close() error { return nil }
