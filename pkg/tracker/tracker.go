// Package tracker counts external call outcomes per provider (TTS engines, LLM).
package tracker

import (
	"sync"
	"sync/atomic"
	"time"
)

// Tracker tracks usage statistics per provider.
type Tracker struct {
	mu    sync.RWMutex
	stats map[string]*ProviderStats
}

// ProviderStats holds metrics for a specific provider.
// Fields are accessed atomically.
type ProviderStats struct {
	Success   int64 `json:"success"`
	Failures  int64 `json:"failures"`
	Timeouts  int64 `json:"timeouts"`
	LatencyMS int64 `json:"latency_ms"` // cumulative, successful calls only
}

// AvgLatency returns the mean latency of successful calls.
func (s ProviderStats) AvgLatency() time.Duration {
	if s.Success == 0 {
		return 0
	}
	return time.Duration(s.LatencyMS/s.Success) * time.Millisecond
}

// New creates a new Tracker.
func New() *Tracker {
	return &Tracker{
		stats: make(map[string]*ProviderStats),
	}
}

// getStats returns the stats object for a provider, creating it if needed.
func (t *Tracker) getStats(provider string) *ProviderStats {
	t.mu.RLock()
	s, ok := t.stats[provider]
	t.mu.RUnlock()
	if ok {
		return s
	}

	t.mu.Lock()
	defer t.mu.Unlock()
	if s, ok = t.stats[provider]; ok {
		return s
	}
	s = &ProviderStats{}
	t.stats[provider] = s
	return s
}

// TrackSuccess records a successful call and its latency.
func (t *Tracker) TrackSuccess(provider string, latency time.Duration) {
	s := t.getStats(provider)
	atomic.AddInt64(&s.Success, 1)
	atomic.AddInt64(&s.LatencyMS, latency.Milliseconds())
}

// TrackFailure records a failed call.
func (t *Tracker) TrackFailure(provider string) {
	atomic.AddInt64(&t.getStats(provider).Failures, 1)
}

// TrackTimeout records a call that exceeded its deadline.
// Timeouts are failures too and count towards both.
func (t *Tracker) TrackTimeout(provider string) {
	s := t.getStats(provider)
	atomic.AddInt64(&s.Timeouts, 1)
	atomic.AddInt64(&s.Failures, 1)
}

// Snapshot returns a copy of the current stats.
func (t *Tracker) Snapshot() map[string]ProviderStats {
	t.mu.RLock()
	defer t.mu.RUnlock()

	result := make(map[string]ProviderStats, len(t.stats))
	for k, v := range t.stats {
		result[k] = ProviderStats{
			Success:   atomic.LoadInt64(&v.Success),
			Failures:  atomic.LoadInt64(&v.Failures),
			Timeouts:  atomic.LoadInt64(&v.Timeouts),
			LatencyMS: atomic.LoadInt64(&v.LatencyMS),
		}
	}
	return result
}

// Reset zeroes all counters but keeps known providers listed.
func (t *Tracker) Reset() {
	t.mu.Lock()
	defer t.mu.Unlock()
	for k := range t.stats {
		t.stats[k] = &ProviderStats{}
	}
}
