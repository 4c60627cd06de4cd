package corpsite

import (
	"testing"
	"time"
)

func TestLoginLimiterBlocksAfterMax(t *testing.T) {
	limiter := NewLoginLimiter(2, 200*time.Millisecond)
	defer limiter.Close()
	ip := "203.0.113.10"

	if !limiter.Allow(ip) {
		t.Fatalf("expected first attempt to be allowed")
	}
	if !limiter.Allow(ip) {
		t.Fatalf("expected second attempt to be allowed")
	}
	if limiter.Allow(ip) {
		t.Fatalf("expected third attempt to be blocked")
	}
	if d := limiter.RetryAfter(ip); d <= 0 || d > 200*time.Millisecond {
		t.Errorf("RetryAfter = %v, want within the window", d)
	}
}

func TestLoginLimiterResetsAfterWindow(t *testing.T) {
	limiter := NewLoginLimiter(1, 150*time.Millisecond)
	defer limiter.Close()
	ip := "203.0.113.20"

	if !limiter.Allow(ip) {
		t.Fatalf("expected first attempt to be allowed")
	}
	if limiter.Allow(ip) {
		t.Fatalf("expected second attempt to be blocked")
	}

	time.Sleep(200 * time.Millisecond)
	if !limiter.Allow(ip) {
		t.Fatalf("expected attempt after window to be allowed")
	}
}

func TestLoginLimiterIsPerIP(t *testing.T) {
	limiter := NewLoginLimiter(1, 200*time.Millisecond)
	defer limiter.Close()

	if !limiter.Allow("203.0.113.30") {
		t.Fatalf("expected first ip to be allowed")
	}
	if !limiter.Allow("203.0.113.31") {
		t.Fatalf("expected second ip to be allowed independently")
	}
	if limiter.Allow("203.0.113.30") {
		t.Fatalf("expected first ip to be blocked after max")
	}
}

func TestLoginLimiterCheckAndReset(t *testing.T) {
	limiter := NewLoginLimiter(1, time.Minute)
	defer limiter.Close()
	ip := "203.0.113.40"

	if !limiter.Check(ip) {
		t.Fatalf("expected check to pass before any failure")
	}
	limiter.Record(ip)
	if limiter.Check(ip) {
		t.Fatalf("expected check to fail after a recorded failure")
	}
	limiter.Reset(ip)
	if !limiter.Check(ip) {
		t.Fatalf("expected check to pass after reset")
	}
	if d := limiter.RetryAfter(ip); d != 0 {
		t.Errorf("RetryAfter = %v, want 0", d)
	}
}
