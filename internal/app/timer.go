package app

import (
	"sync"
	"time"
)

// Timer is the single authoritative countdown for one attempt. It emits the
// remaining whole seconds once per interval and fires the expiry callback
// exactly once when the count reaches zero; the expiry tick is the last tick.
type Timer struct {
	interval time.Duration
	onExpire func()

	mu        sync.Mutex
	remaining int
	suspended bool
	stopped   bool

	ticks    chan int
	done     chan struct{}
	stopOnce sync.Once
}

// NewCountdown builds a timer counting down from the given number of seconds,
// ticking once per second. onExpire may be nil.
func NewCountdown(seconds int, onExpire func()) *Timer {
	return newCountdown(seconds, time.Second, onExpire)
}

// newCountdown allows a shorter tick interval in tests.
func newCountdown(seconds int, interval time.Duration, onExpire func()) *Timer {
	return &Timer{
		interval:  interval,
		onExpire:  onExpire,
		remaining: seconds,
		ticks:     make(chan int, 8),
		done:      make(chan struct{}),
	}
}

// Start launches the tick loop. Call at most once per attempt.
func (t *Timer) Start() {
	go t.run()
}

// Ticks exposes the stream of remaining-seconds values. The channel is closed
// when the countdown stops or expires.
func (t *Timer) Ticks() <-chan int {
	return t.ticks
}

// Remaining returns the seconds left on the clock.
func (t *Timer) Remaining() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.remaining
}

// Suspend freezes the countdown while a submission is in flight. Ticks neither
// decrement nor deliver until Resume.
func (t *Timer) Suspend() {
	t.mu.Lock()
	t.suspended = true
	t.mu.Unlock()
}

// Resume restarts a suspended countdown (after a retryable submission failure).
func (t *Timer) Resume() {
	t.mu.Lock()
	t.suspended = false
	t.mu.Unlock()
}

// Stop cancels the countdown and the pending expiry. Idempotent; safe to call
// after expiry or from any goroutine.
func (t *Timer) Stop() {
	t.mu.Lock()
	t.stopped = true
	t.mu.Unlock()
	t.stopOnce.Do(func() { close(t.done) })
}

func (t *Timer) run() {
	ticker := time.NewTicker(t.interval)
	defer ticker.Stop()
	defer close(t.ticks)

	for {
		select {
		case <-ticker.C:
			t.mu.Lock()
			if t.stopped || t.suspended {
				stopped := t.stopped
				t.mu.Unlock()
				if stopped {
					return
				}
				continue
			}
			if t.remaining > 0 {
				t.remaining--
			}
			rem := t.remaining
			expire := false
			if rem == 0 {
				// Claim the expiry under the lock so a racing Stop cannot
				// double-fire or fire after cancellation.
				t.stopped = true
				expire = true
			}
			t.mu.Unlock()

			select {
			case t.ticks <- rem:
			default:
				// Slow consumer; remaining is re-read at submission time.
			}

			if expire {
				t.stopOnce.Do(func() { close(t.done) })
				if t.onExpire != nil {
					t.onExpire()
				}
				return
			}
		case <-t.done:
			return
		}
	}
}
