package executor

import (
	"testing"
	"time"
)

func TestExponentialBackoffStrategyMatchesReferenceValues(t *testing.T) {
	cfg := RetryConfig{Strategy: "exponential-backoff", BaseDelayMS: 100, MaxDelayMS: 1000, MaxAttempts: 3}
	s := NewRetryStrategy(cfg)

	d0, ok0 := s.NextDelay(0)
	if !ok0 || d0 != 100*time.Millisecond {
		t.Fatalf("attempt 0: expected 100ms,true got %v,%v", d0, ok0)
	}

	d1, ok1 := s.NextDelay(1)
	if !ok1 || d1 != 200*time.Millisecond {
		t.Fatalf("attempt 1: expected 200ms,true got %v,%v", d1, ok1)
	}

	_, ok3 := s.NextDelay(3)
	if ok3 {
		t.Fatal("attempt 3: expected no more retries (max_attempts=3)")
	}
}

func TestExponentialBackoffStrategyClampsToMaxDelay(t *testing.T) {
	cfg := RetryConfig{Strategy: "exponential-backoff", BaseDelayMS: 1000, MaxDelayMS: 5000, MaxAttempts: 10}
	s := NewRetryStrategy(cfg)

	d, ok := s.NextDelay(5)
	if !ok || d != 5000*time.Millisecond {
		t.Fatalf("expected clamp to 5000ms, got %v,%v", d, ok)
	}
}

func TestLinearStrategyMatchesReferenceValues(t *testing.T) {
	cfg := RetryConfig{Strategy: "linear", BaseDelayMS: 50, MaxDelayMS: 200, MaxAttempts: 4}
	s := NewRetryStrategy(cfg)

	d0, ok0 := s.NextDelay(0)
	if !ok0 || d0 != 50*time.Millisecond {
		t.Fatalf("attempt 0: expected 50ms,true got %v,%v", d0, ok0)
	}

	d2, ok2 := s.NextDelay(2)
	if !ok2 || d2 != 150*time.Millisecond {
		t.Fatalf("attempt 2: expected 150ms,true got %v,%v", d2, ok2)
	}
}

func TestLinearStrategyStopsAtMaxAttempts(t *testing.T) {
	cfg := RetryConfig{Strategy: "linear", BaseDelayMS: 50, MaxDelayMS: 200, MaxAttempts: 4}
	s := NewRetryStrategy(cfg)
	if _, ok := s.NextDelay(4); ok {
		t.Fatal("expected no retry at attempt >= max_attempts")
	}
}

func TestNewRetryStrategyDefaultsToExponential(t *testing.T) {
	s := NewRetryStrategy(RetryConfig{BaseDelayMS: 100, MaxDelayMS: 1000, MaxAttempts: 3})
	if s.Name() != "exponential-backoff" {
		t.Fatalf("expected default strategy exponential-backoff, got %s", s.Name())
	}
}
