package ratelimit

import (
	"sync"
	"time"
)

// SlidingWindowCounter approximates a rolling window with two fixed windows:
//
//	effective = curr + prev × (time left in current window / window)
//
// O(1) memory per key, which is what makes a rolling 24h search quota per
// chat affordable.
type SlidingWindowCounter struct {
	mu              sync.Mutex
	currCount       int
	prevCount       int
	currWindowStart time.Time
	windowDuration  time.Duration
	maxRequests     int
	now             func() time.Time
}

// NewSlidingWindowCounter creates a new sliding window counter.
// Returns nil (meaning unlimited) if maxRequests <= 0. All methods accept a
// nil receiver.
func NewSlidingWindowCounter(maxRequests int, windowDuration time.Duration) *SlidingWindowCounter {
	return newSlidingWindowWithClock(maxRequests, windowDuration, time.Now)
}

func newSlidingWindowWithClock(maxRequests int, windowDuration time.Duration, now func() time.Time) *SlidingWindowCounter {
	if maxRequests <= 0 {
		return nil
	}
	return &SlidingWindowCounter{
		currWindowStart: now(),
		windowDuration:  windowDuration,
		maxRequests:     maxRequests,
		now:             now,
	}
}

// Allow counts the request if it fits and reports whether it did.
func (swc *SlidingWindowCounter) Allow() bool {
	if swc == nil {
		return true
	}

	swc.mu.Lock()
	defer swc.mu.Unlock()

	if swc.effective() >= float64(swc.maxRequests) {
		return false
	}
	swc.currCount++
	return true
}

func (swc *SlidingWindowCounter) check() bool {
	if swc == nil {
		return true
	}

	swc.mu.Lock()
	defer swc.mu.Unlock()

	return swc.effective() < float64(swc.maxRequests)
}

func (swc *SlidingWindowCounter) consume() {
	if swc == nil {
		return
	}

	swc.mu.Lock()
	defer swc.mu.Unlock()

	if swc.effective() < float64(swc.maxRequests) {
		swc.currCount++
	}
}

// effective rotates windows if needed and returns the weighted count.
// Must be called with mu held.
func (swc *SlidingWindowCounter) effective() float64 {
	now := swc.now()
	elapsed := now.Sub(swc.currWindowStart)

	if elapsed >= swc.windowDuration {
		windowsPassed := int(elapsed / swc.windowDuration)
		if windowsPassed == 1 {
			swc.prevCount = swc.currCount
		} else {
			swc.prevCount = 0
		}
		swc.currCount = 0
		swc.currWindowStart = swc.currWindowStart.Add(time.Duration(windowsPassed) * swc.windowDuration)
		elapsed = now.Sub(swc.currWindowStart)
	}

	overlap := float64(swc.windowDuration-elapsed) / float64(swc.windowDuration)
	overlap = min(max(overlap, 0), 1)

	return float64(swc.currCount) + float64(swc.prevCount)*overlap
}

// Remaining returns the approximate remaining quota, or -1 when unlimited.
func (swc *SlidingWindowCounter) Remaining() int {
	if swc == nil {
		return -1
	}

	swc.mu.Lock()
	defer swc.mu.Unlock()

	remaining := float64(swc.maxRequests) - swc.effective()
	if remaining < 0 {
		return 0
	}
	return int(remaining)
}

// IsIdle reports whether neither window holds any requests. Only idle
// counters may be discarded without resetting someone's quota.
func (swc *SlidingWindowCounter) IsIdle() bool {
	if swc == nil {
		return true
	}

	swc.mu.Lock()
	defer swc.mu.Unlock()

	return swc.effective() == 0
}
