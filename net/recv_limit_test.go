package net

import (
	"testing"
	"time"
)

func TestRecvLimiterBurst(t *testing.T) {
	l := NewRecvLimiter(1, 3)

	allowed := 0
	for i := 0; i < 10; i++ {
		if l.Allow() {
			allowed++
		}
	}
	// The burst passes; the immediate flood beyond it does not.
	if allowed != 3 {
		t.Errorf("allowed %d messages, want 3", allowed)
	}
}

func TestRecvLimiterRefills(t *testing.T) {
	l := NewRecvLimiter(100, 1)
	if !l.Allow() {
		t.Fatal("first message must pass")
	}
	if l.Allow() {
		t.Fatal("burst of 1 must reject the immediate second message")
	}
	time.Sleep(50 * time.Millisecond)
	if !l.Allow() {
		t.Error("bucket never refilled")
	}
}

func TestRecvLimiterReload(t *testing.T) {
	l := NewRecvLimiter(1, 1)
	l.Allow()
	if l.Allow() {
		t.Fatal("old limit should be exhausted")
	}
	l.Reload(1000, 100)
	if !l.Allow() {
		t.Error("reloaded limiter must start with a fresh bucket")
	}
}

func TestSendPacerSmooths(t *testing.T) {
	p := NewSendPacer(100)
	start := time.Now()
	for i := 0; i < 5; i++ {
		p.Take()
	}
	// 5 takes at 100/s cannot complete much faster than 40ms.
	if elapsed := time.Since(start); elapsed < 30*time.Millisecond {
		t.Errorf("pacer let 5 sends through in %v", elapsed)
	}
}
