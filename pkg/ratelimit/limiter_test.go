package ratelimit

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"go.uber.org/zap"
)

func newTestManager(t *testing.T, cfg *Config) *Manager {
	t.Helper()

	if cfg == nil {
		cfg = &Config{Default: Limits{Rate: 10, Burst: 10}}
	}
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop()
	}

	m, err := NewManager(cfg)
	if err != nil {
		t.Fatalf("NewManager: %v", err)
	}

	return m
}

func TestNewManager_Validation(t *testing.T) {
	tests := []struct {
		name    string
		cfg     *Config
		wantErr bool
	}{
		{
			name:    "nil_config",
			cfg:     nil,
			wantErr: true,
		},
		{
			name:    "zero_default_rate",
			cfg:     &Config{Default: Limits{Rate: 0, Burst: 10}},
			wantErr: true,
		},
		{
			name: "negative_override",
			cfg: &Config{
				Default:   Limits{Rate: 10, Burst: 10},
				Overrides: map[string]Limits{"kraken": {Rate: -1, Burst: 5}},
			},
			wantErr: true,
		},
		{
			name:    "valid",
			cfg:     &Config{Default: Limits{Rate: 10, Burst: 20}},
			wantErr: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewManager(tt.cfg)
			if (err != nil) != tt.wantErr {
				t.Errorf("NewManager() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestManager_LazyBucketWithOverride(t *testing.T) {
	m := newTestManager(t, &Config{
		Default:   Limits{Rate: 10, Burst: 20},
		Overrides: map[string]Limits{"kraken": {Rate: 15, Burst: 30}},
	})

	if !m.TryAcquire("kraken", 1) {
		t.Fatal("expected first acquisition to succeed")
	}
	if !m.TryAcquire("binance", 1) {
		t.Fatal("expected first acquisition to succeed")
	}

	stats := m.Stats()
	if stats["kraken"].Capacity != 30 || stats["kraken"].Rate != 15 {
		t.Errorf("kraken bucket = %+v, want rate=15 capacity=30", stats["kraken"])
	}
	if stats["binance"].Capacity != 20 || stats["binance"].Rate != 10 {
		t.Errorf("binance bucket = %+v, want default rate=10 capacity=20", stats["binance"])
	}
}

func TestManager_TokensNeverNegative(t *testing.T) {
	m := newTestManager(t, &Config{Default: Limits{Rate: 100, Burst: 10}})

	var wg sync.WaitGroup
	for g := 0; g < 20; g++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 0; i < 10; i++ {
				m.TryAcquire("binance", 3)

				stats := m.Stats()["binance"]
				if stats.Tokens < 0 || stats.Tokens > stats.Capacity {
					t.Errorf("tokens out of bounds: %f not in [0, %f]", stats.Tokens, stats.Capacity)
				}
			}
		}()
	}
	wg.Wait()
}

func TestManager_RefillTiming(t *testing.T) {
	// capacity=10, rate=10/s: after draining the bucket, one more token
	// needs >= 100ms to accrue.
	m := newTestManager(t, &Config{Default: Limits{Rate: 10, Burst: 10}})

	if !m.TryAcquire("binance", 10) {
		t.Fatal("expected to drain the full burst")
	}
	if m.TryAcquire("binance", 1) {
		t.Fatal("expected empty bucket to reject immediately")
	}

	start := time.Now()
	err := m.Acquire(context.Background(), "binance", 1)
	elapsed := time.Since(start)

	if err != nil {
		t.Fatalf("Acquire: %v", err)
	}
	if elapsed < 80*time.Millisecond {
		t.Errorf("token granted after %v, want >= ~100ms of refill", elapsed)
	}
}

func TestManager_FakeClockRefill(t *testing.T) {
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	var mu sync.Mutex
	clock := func() time.Time {
		mu.Lock()
		defer mu.Unlock()

		return now
	}

	m := newTestManager(t, &Config{Default: Limits{Rate: 2, Burst: 10}, Now: clock})

	if !m.TryAcquire("binance", 10) {
		t.Fatal("expected to drain the burst")
	}

	// 3 seconds at 2 tokens/s accrues 6 tokens.
	mu.Lock()
	now = now.Add(3 * time.Second)
	mu.Unlock()

	if !m.TryAcquire("binance", 6) {
		t.Error("expected 6 tokens after 3s of refill")
	}
	if m.TryAcquire("binance", 1) {
		t.Error("expected bucket to be empty again")
	}

	// A long idle period caps at capacity, never beyond.
	mu.Lock()
	now = now.Add(time.Hour)
	mu.Unlock()

	stats := m.Stats()["binance"]
	if stats.Tokens != 10 {
		t.Errorf("tokens after long idle = %f, want capped at 10", stats.Tokens)
	}
}

func TestManager_AcquireExceedsCapacity(t *testing.T) {
	m := newTestManager(t, &Config{Default: Limits{Rate: 10, Burst: 10}})

	start := time.Now()
	err := m.Acquire(context.Background(), "binance", 11)
	if time.Since(start) > 50*time.Millisecond {
		t.Error("capacity error must be immediate, not blocking")
	}

	var capErr *CapacityError
	if !errors.As(err, &capErr) {
		t.Fatalf("expected CapacityError, got %v", err)
	}
	if capErr.Requested != 11 || capErr.Capacity != 10 {
		t.Errorf("CapacityError = %+v, want requested=11 capacity=10", capErr)
	}
}

func TestManager_AcquireHonorsContext(t *testing.T) {
	m := newTestManager(t, &Config{Default: Limits{Rate: 0.1, Burst: 1}})

	// Drain, then wait with a deadline far shorter than the 10s refill.
	if !m.TryAcquire("binance", 1) {
		t.Fatal("expected to drain the burst")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	start := time.Now()
	err := m.Acquire(ctx, "binance", 1)
	elapsed := time.Since(start)

	if !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("expected deadline error, got %v", err)
	}
	if elapsed > time.Second {
		t.Errorf("Acquire returned after %v, want prompt abort on deadline", elapsed)
	}
}

func TestManager_BlockingAcquireEventuallySucceeds(t *testing.T) {
	m := newTestManager(t, &Config{Default: Limits{Rate: 50, Burst: 5}})

	// 3 goroutines x 5 tokens against a burst of 5 at 50/s: everyone must
	// get through within a few hundred ms without starvation.
	var wg sync.WaitGroup
	errCh := make(chan error, 3)

	for g := 0; g < 3; g++ {
		wg.Add(1)
		go func() {
			defer wg.Done()

			ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
			defer cancel()

			errCh <- m.Acquire(ctx, "binance", 5)
		}()
	}
	wg.Wait()
	close(errCh)

	for err := range errCh {
		if err != nil {
			t.Errorf("Acquire: %v", err)
		}
	}

	stats := m.Stats()["binance"]
	if stats.Requests != 3 {
		t.Errorf("requests = %d, want 3", stats.Requests)
	}
}
