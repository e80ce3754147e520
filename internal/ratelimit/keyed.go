package ratelimit

import (
	"sync"
	"time"

	"github.com/garyellow/line-foodfinder/internal/metrics"
)

// KeyedConfig configures a KeyedLimiter instance.
type KeyedConfig struct {
	// Name identifies this limiter for metrics (e.g., "user", "search")
	Name string

	// Token bucket settings
	Burst      float64 // Maximum tokens (burst capacity)
	RefillRate float64 // Tokens refilled per second

	// Optional rolling 24h cap (0 = disabled)
	DailyLimit int

	// How often idle keys are dropped
	CleanupPeriod time.Duration

	// Optional metrics reporter
	Metrics *metrics.Metrics
}

// Decision explains the outcome of KeyedLimiter.Reserve.
type Decision int

const (
	// Allowed means tokens were consumed and the request may proceed.
	Allowed Decision = iota
	// DeniedBurst means the token bucket is empty; retry shortly.
	DeniedBurst
	// DeniedDaily means the rolling 24h cap is used up.
	DeniedDaily
)

// KeyedLimiter keeps one token bucket (plus optional daily counter) per key,
// typically a LINE chat ID. Idle keys are cleaned up in the background.
type KeyedLimiter struct {
	mu      sync.RWMutex
	entries map[string]*keyedEntry
	config  KeyedConfig
	stopCh  chan struct{}
	once    sync.Once
	now     func() time.Time
}

// keyedEntry serializes the two-layer check-then-consume for one key.
type keyedEntry struct {
	mu      sync.Mutex
	limiter *Limiter
	daily   *SlidingWindowCounter
}

// NewKeyedLimiter creates a new per-key rate limiter and starts its cleanup
// goroutine. Call Stop when done.
func NewKeyedLimiter(cfg KeyedConfig) *KeyedLimiter {
	kl := newKeyedLimiter(cfg, time.Now)
	if cfg.CleanupPeriod > 0 {
		go kl.cleanupLoop()
	}
	return kl
}

func newKeyedLimiter(cfg KeyedConfig, now func() time.Time) *KeyedLimiter {
	return &KeyedLimiter{
		entries: make(map[string]*keyedEntry),
		config:  cfg,
		stopCh:  make(chan struct{}),
		now:     now,
	}
}

// Allow reports whether a request for key may proceed, consuming quota if so.
// An empty key is always allowed.
func (kl *KeyedLimiter) Allow(key string) bool {
	return kl.Reserve(key) == Allowed
}

// Reserve is Allow with the reason for a denial. Both layers are checked
// before either is consumed, so a burst denial never eats daily quota.
func (kl *KeyedLimiter) Reserve(key string) Decision {
	if key == "" {
		return Allowed
	}

	entry := kl.getOrCreateEntry(key)
	entry.mu.Lock()
	defer entry.mu.Unlock()

	if !entry.daily.check() {
		kl.recordDrop()
		return DeniedDaily
	}
	if !entry.limiter.check() {
		kl.recordDrop()
		return DeniedBurst
	}

	entry.daily.consume()
	entry.limiter.consume()
	return Allowed
}

func (kl *KeyedLimiter) recordDrop() {
	if kl.config.Metrics != nil {
		kl.config.Metrics.RecordRateLimiterDrop(kl.config.Name)
	}
}

func (kl *KeyedLimiter) getOrCreateEntry(key string) *keyedEntry {
	kl.mu.RLock()
	entry, exists := kl.entries[key]
	kl.mu.RUnlock()
	if exists {
		return entry
	}

	kl.mu.Lock()
	defer kl.mu.Unlock()

	if entry, exists = kl.entries[key]; exists {
		return entry
	}
	entry = &keyedEntry{
		limiter: newWithClock(kl.config.Burst, kl.config.RefillRate, kl.now),
		daily:   newSlidingWindowWithClock(kl.config.DailyLimit, 24*time.Hour, kl.now),
	}
	kl.entries[key] = entry
	return entry
}

// DailyRemaining returns the remaining daily quota for a key, or -1 when the
// daily cap is disabled.
func (kl *KeyedLimiter) DailyRemaining(key string) int {
	if kl.config.DailyLimit <= 0 {
		return -1
	}

	kl.mu.RLock()
	entry, exists := kl.entries[key]
	kl.mu.RUnlock()
	if !exists {
		return kl.config.DailyLimit
	}
	return entry.daily.Remaining()
}

// DailyLimit returns the configured daily cap (0 = disabled).
func (kl *KeyedLimiter) DailyLimit() int {
	return kl.config.DailyLimit
}

// Available returns the tokens left in the key's bucket.
func (kl *KeyedLimiter) Available(key string) float64 {
	kl.mu.RLock()
	entry, exists := kl.entries[key]
	kl.mu.RUnlock()
	if !exists {
		return kl.config.Burst
	}
	return entry.limiter.Available()
}

// ActiveCount returns the number of tracked keys.
func (kl *KeyedLimiter) ActiveCount() int {
	kl.mu.RLock()
	defer kl.mu.RUnlock()
	return len(kl.entries)
}

func (kl *KeyedLimiter) cleanupLoop() {
	ticker := time.NewTicker(kl.config.CleanupPeriod)
	defer ticker.Stop()

	for {
		select {
		case <-kl.stopCh:
			return
		case <-ticker.C:
			kl.cleanup()
		}
	}
}

// cleanup drops keys whose bucket is full and whose daily window is empty.
// A key with daily usage is kept, otherwise dropping it would reset the quota.
func (kl *KeyedLimiter) cleanup() {
	kl.mu.Lock()
	defer kl.mu.Unlock()

	for key, entry := range kl.entries {
		if entry.limiter.IsFull() && entry.daily.IsIdle() {
			delete(kl.entries, key)
		}
	}
}

// Stop stops the cleanup goroutine. Safe to call multiple times.
func (kl *KeyedLimiter) Stop() {
	kl.once.Do(func() { close(kl.stopCh) })
}
