package engine

import (
	"sync"
	"time"
)

// frameClock is the single recurring unit of work: a cancellable,
// self-rescheduling per-frame task. Each tick arms the next one itself; the
// loop stops only when cancelled or when the tick callback returns false.
type frameClock struct {
	interval time.Duration

	stopOnce sync.Once
	stop     chan struct{}
	done     chan struct{}
}

func newFrameClock(fps int) *frameClock {
	if fps <= 0 {
		fps = 60
	}
	return &frameClock{
		interval: time.Second / time.Duration(fps),
		stop:     make(chan struct{}),
		done:     make(chan struct{}),
	}
}

// run drives the tick loop until cancellation or a false return from tick.
// Runs on its own goroutine; poses published from here are strictly ordered.
func (c *frameClock) run(tick func(now time.Time) bool) {
	defer close(c.done)

	timer := time.NewTimer(c.interval)
	defer timer.Stop()

	for {
		select {
		case <-c.stop:
			return
		case now := <-timer.C:
			if !tick(now) {
				return
			}
			timer.Reset(c.interval)
		}
	}
}

// cancel signals the loop to stop. Idempotent and non-blocking, so it is
// safe from any goroutine, including the tick itself.
func (c *frameClock) cancel() {
	c.stopOnce.Do(func() { close(c.stop) })
}

// wait blocks until the loop has fully exited. Must not be called from the
// tick callback.
func (c *frameClock) wait() {
	<-c.done
}
