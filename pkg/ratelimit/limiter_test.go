package ratelimit

import (
	"testing"
	"time"
)

func TestSlidingWindowAllow(t *testing.T) {
	limiter := NewSlidingWindow(3, 1*time.Second)

	for i := 0; i < 3; i++ {
		if !limiter.Allow() {
			t.Errorf("Action %d should be allowed", i+1)
		}
	}

	if limiter.Allow() {
		t.Error("Fourth action should be denied")
	}
}

func TestSlidingWindowExpiry(t *testing.T) {
	limiter := NewSlidingWindow(2, 100*time.Millisecond)

	if !limiter.Allow() || !limiter.Allow() {
		t.Fatal("First two actions should be allowed")
	}
	if limiter.Allow() {
		t.Error("Third action should be denied inside the window")
	}

	time.Sleep(150 * time.Millisecond)

	if !limiter.Allow() {
		t.Error("Action should be allowed after the window slides")
	}
}

func TestSlidingWindowReset(t *testing.T) {
	limiter := NewSlidingWindow(1, 1*time.Minute)

	if !limiter.Allow() {
		t.Fatal("First action should be allowed")
	}
	if limiter.Allow() {
		t.Error("Second action should be denied")
	}

	limiter.Reset()

	if !limiter.Allow() {
		t.Error("Action should be allowed after reset")
	}
}

func TestSlidingWindowWait(t *testing.T) {
	limiter := NewSlidingWindow(1, 100*time.Millisecond)

	limiter.Wait() // first action goes through immediately

	start := time.Now()
	limiter.Wait()
	elapsed := time.Since(start)

	if elapsed < 50*time.Millisecond {
		t.Errorf("Expected Wait to block for most of the window, blocked %v", elapsed)
	}
}
