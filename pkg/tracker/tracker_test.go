package tracker

import (
	"sync"
	"testing"
	"time"
)

func TestTracker(t *testing.T) {
	tr := New()
	provider := "piper"

	stats := tr.Snapshot()
	if len(stats) != 0 {
		t.Errorf("Expected empty stats, got %d", len(stats))
	}

	tr.TrackSuccess(provider, 200*time.Millisecond)
	tr.TrackSuccess(provider, 400*time.Millisecond)
	tr.TrackFailure(provider)
	tr.TrackTimeout(provider)

	stats = tr.Snapshot()
	pStats, ok := stats[provider]
	if !ok {
		t.Fatalf("Expected stats for provider %s", provider)
	}

	if pStats.Success != 2 {
		t.Errorf("Expected 2 Success, got %d", pStats.Success)
	}
	if pStats.Failures != 2 {
		t.Errorf("Expected 2 Failures (timeout included), got %d", pStats.Failures)
	}
	if pStats.Timeouts != 1 {
		t.Errorf("Expected 1 Timeout, got %d", pStats.Timeouts)
	}
	if got := pStats.AvgLatency(); got != 300*time.Millisecond {
		t.Errorf("Expected 300ms average, got %v", got)
	}
}

func TestReset(t *testing.T) {
	tr := New()
	tr.TrackFailure("gemini")
	tr.Reset()

	s, ok := tr.Snapshot()["gemini"]
	if !ok {
		t.Fatal("provider should still exist after reset")
	}
	if s.Failures != 0 {
		t.Errorf("expected failures reset, got %d", s.Failures)
	}
}

func TestConcurrentTracking(t *testing.T) {
	tr := New()
	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			tr.TrackSuccess("edge-tts", time.Millisecond)
		}()
	}
	wg.Wait()

	if got := tr.Snapshot()["edge-tts"].Success; got != 50 {
		t.Errorf("expected 50 successes, got %d", got)
	}
}
