// Package journal persists a history of acquisitions and remote provider
// calls for later inspection (quota accounting, cache hit rates).
package journal

import (
	"time"
)

// Acquisition summarizes one orchestrated fetch-with-cache run.
type Acquisition struct {
	ID        string // uuid per run
	Source    string
	RawSymbol string
	Canonical string
	Interval  string
	Start     time.Time
	End       time.Time
	Rows      int
	CacheUsed bool
	Warning   string
}

// RemoteCall records one request against a provider endpoint.
type RemoteCall struct {
	AcquisitionID string
	Source        string
	Endpoint      string // "resolve" or "aggregates"
	Symbol        string
	Status        string // "ok", "empty", "error"
	Rows          int
	Duration      time.Duration
}

// Recorder persists acquisition history.
type Recorder interface {
	RecordAcquisition(a *Acquisition) error
	RecordRemoteCall(c *RemoteCall) error
	Close() error
}

// NoopRecorder is a no-op implementation used when SQLite is not configured.
type NoopRecorder struct{}

func NewNoopRecorder() *NoopRecorder { return &NoopRecorder{} }

func (n *NoopRecorder) RecordAcquisition(_ *Acquisition) error { return nil }
func (n *NoopRecorder) RecordRemoteCall(_ *RemoteCall) error   { return nil }
func (n *NoopRecorder) Close() error                           { return nil }
