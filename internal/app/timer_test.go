package app

import (
	"sync/atomic"
	"testing"
	"time"
)

func TestCountdownTicksDownAndExpiresOnce(t *testing.T) {
	var expirations int32
	timer := newCountdown(3, 5*time.Millisecond, func() {
		atomic.AddInt32(&expirations, 1)
	})
	timer.Start()

	var last int
	deadline := time.After(2 * time.Second)
	for {
		select {
		case remaining, ok := <-timer.Ticks():
			if !ok {
				if last != 0 {
					t.Fatalf("expected final tick to be 0, got %d", last)
				}
				if n := atomic.LoadInt32(&expirations); n != 1 {
					t.Fatalf("expected one expiry, got %d", n)
				}
				return
			}
			if last != 0 && remaining >= last {
				t.Fatalf("ticks should decrease, got %d after %d", remaining, last)
			}
			last = remaining
		case <-deadline:
			t.Fatalf("timer never expired, last tick %d", last)
		}
	}
}

func TestStopCancelsExpiry(t *testing.T) {
	var expirations int32
	timer := newCountdown(2, 5*time.Millisecond, func() {
		atomic.AddInt32(&expirations, 1)
	})
	timer.Start()
	timer.Stop()
	timer.Stop() // idempotent

	deadline := time.After(time.Second)
	for {
		select {
		case _, ok := <-timer.Ticks():
			if !ok {
				if n := atomic.LoadInt32(&expirations); n != 0 {
					t.Fatalf("expected no expiry after stop, got %d", n)
				}
				return
			}
		case <-deadline:
			t.Fatalf("ticks channel never closed after stop")
		}
	}
}

func TestSuspendFreezesRemaining(t *testing.T) {
	timer := newCountdown(100, 5*time.Millisecond, nil)
	timer.Suspend()
	timer.Start()

	time.Sleep(50 * time.Millisecond)
	if got := timer.Remaining(); got != 100 {
		t.Fatalf("expected remaining frozen at 100, got %d", got)
	}

	timer.Resume()
	deadline := time.After(time.Second)
	select {
	case remaining, ok := <-timer.Ticks():
		if !ok {
			t.Fatalf("ticks closed unexpectedly")
		}
		if remaining >= 100 {
			t.Fatalf("expected countdown to resume below 100, got %d", remaining)
		}
	case <-deadline:
		t.Fatalf("no tick after resume")
	}
	timer.Stop()
}
