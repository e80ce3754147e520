// Package warmup tracks whether the service finished its startup load.
package warmup

import (
	"sync/atomic"
	"time"
)

const (
	reasonLoading   = "location list loading"
	reasonGraceOver = "grace period elapsed (location list not loaded yet)"
)

// ReadinessState reports readiness for the first location load.
// The service becomes ready once the load completes or the grace period
// elapses, whichever comes first. Safe for concurrent use.
type ReadinessState struct {
	loaded atomic.Bool
	start  time.Time
	grace  time.Duration
	now    func() time.Time
}

// ReadinessStatus is the JSON view of a ReadinessState.
type ReadinessStatus struct {
	Ready          bool   `json:"ready"`
	Reason         string `json:"reason,omitempty"`
	ElapsedSeconds int    `json:"elapsed_seconds,omitempty"`
	TimeoutSeconds int    `json:"timeout_seconds,omitempty"`
}

// NewReadinessState starts the grace period clock.
func NewReadinessState(grace time.Duration) *ReadinessState {
	return newReadinessState(grace, time.Now)
}

func newReadinessState(grace time.Duration, now func() time.Time) *ReadinessState {
	return &ReadinessState{
		start: now(),
		grace: grace,
		now:   now,
	}
}

// IsReady reports whether traffic should be accepted.
func (s *ReadinessState) IsReady() bool {
	return s.loaded.Load() || s.elapsed() >= s.grace
}

// MarkReady records a completed location load. Idempotent.
func (s *ReadinessState) MarkReady() {
	s.loaded.Store(true)
}

// WarmupCompleted reports whether MarkReady was called, ignoring the grace period.
func (s *ReadinessState) WarmupCompleted() bool {
	return s.loaded.Load()
}

// Status returns the current readiness status.
func (s *ReadinessState) Status() ReadinessStatus {
	status := ReadinessStatus{
		Ready:          s.IsReady(),
		ElapsedSeconds: int(s.elapsed().Seconds()),
		TimeoutSeconds: int(s.grace.Seconds()),
	}

	switch {
	case !status.Ready:
		status.Reason = reasonLoading
	case !s.loaded.Load():
		status.Reason = reasonGraceOver
	}
	return status
}

func (s *ReadinessState) elapsed() time.Duration {
	return s.now().Sub(s.start)
}
