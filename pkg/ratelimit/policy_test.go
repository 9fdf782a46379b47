package ratelimit

import (
	"testing"
	"time"

	"followersweep/pkg/models"
)

func TestDelayPolicyWithoutJitter(t *testing.T) {
	policy := NewDelayPolicy(1500*time.Millisecond, 2*time.Second, 0, nil)

	if got := policy.DelayBeforeScroll(); got != 1500*time.Millisecond {
		t.Errorf("Expected scroll delay 1.5s, got %v", got)
	}
	if got := policy.DelayBeforeRemoval(); got != 2*time.Second {
		t.Errorf("Expected removal delay 2s, got %v", got)
	}
}

func TestDelayPolicyJitterBounds(t *testing.T) {
	base := 2 * time.Second
	factor := 0.2
	policy := NewDelayPolicy(base, base, factor, nil)

	min := time.Duration(float64(base) * (1 - factor))
	max := time.Duration(float64(base) * (1 + factor))

	for i := 0; i < 100; i++ {
		d := policy.DelayBeforeRemoval()
		if d < min || d > max {
			t.Fatalf("Jittered delay %v outside [%v, %v]", d, min, max)
		}
	}
}

func TestRemainingBudget(t *testing.T) {
	policy := NewDelayPolicy(0, 0, 0, nil)

	tests := []struct {
		name     string
		limit    int
		dailyCap int
		removed  int
		expected int
	}{
		{"fresh run", 100, 1000, 0, 100},
		{"partially used", 100, 1000, 40, 60},
		{"limit reached", 100, 1000, 100, 0},
		{"daily cap binds", 100, 50, 0, 50},
		{"daily cap partially used", 100, 50, 30, 20},
		{"over budget clamps to zero", 100, 1000, 200, 0},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			state := &models.RunState{
				Limit:        test.limit,
				DailyCap:     test.dailyCap,
				RemovedCount: test.removed,
			}
			if got := policy.RemainingBudget(state); got != test.expected {
				t.Errorf("RemainingBudget = %d, want %d", got, test.expected)
			}
		})
	}
}

func TestRemainingBudgetIgnoresNonRemovalOutcomes(t *testing.T) {
	policy := NewDelayPolicy(0, 0, 0, nil)

	// Failed and skipped followers do not consume removal budget.
	state := &models.RunState{
		Limit:          10,
		DailyCap:       1000,
		RemovedCount:   3,
		FailedCount:    5,
		SkippedCount:   2,
		ProcessedCount: 10,
	}
	if got := policy.RemainingBudget(state); got != 7 {
		t.Errorf("RemainingBudget = %d, want 7", got)
	}
}

func TestWaitActionWithoutLimiter(t *testing.T) {
	policy := NewDelayPolicy(0, 0, 0, nil)

	done := make(chan struct{})
	go func() {
		policy.WaitAction()
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("WaitAction without a limiter should return immediately")
	}
}
