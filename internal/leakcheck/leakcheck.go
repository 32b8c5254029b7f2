// Package leakcheck fails a test when goroutines started during it are
// still running once it is done.
package leakcheck

import (
	"runtime"
	"testing"
	"time"
)

// Checker compares the goroutine count at Verify with the count at Start
type Checker struct {
	tb       testing.TB
	baseline int
	slack    int
	timeout  time.Duration
	interval time.Duration
}

// Option configures a Checker
type Option func(*Checker)

// WithSlack tolerates n goroutines above the baseline
func WithSlack(n int) Option {
	return func(c *Checker) { c.slack = n }
}

// WithTimeout bounds how long Verify waits for goroutines to exit
func WithTimeout(d time.Duration) Option {
	return func(c *Checker) { c.timeout = d }
}

// Start records the current goroutine count as the baseline
func Start(tb testing.TB, opts ...Option) *Checker {
	tb.Helper()
	c := &Checker{
		tb:       tb,
		timeout:  2 * time.Second,
		interval: 20 * time.Millisecond,
	}
	for _, opt := range opts {
		opt(c)
	}
	c.baseline = runtime.NumGoroutine()
	return c
}

// Verify waits until the goroutine count is back within the baseline plus
// slack, and fails the test with every stack if it never gets there.
func (c *Checker) Verify() {
	c.tb.Helper()

	deadline := time.Now().Add(c.timeout)
	count := runtime.NumGoroutine()
	for count > c.baseline+c.slack && time.Now().Before(deadline) {
		time.Sleep(c.interval)
		count = runtime.NumGoroutine()
	}

	if leaked := count - c.baseline; leaked > c.slack {
		buf := make([]byte, 1<<20)
		n := runtime.Stack(buf, true)
		c.tb.Errorf("goroutine leak: %d at start, %d after %s (allowed %d extra)\n%s",
			c.baseline, count, c.timeout, c.slack, buf[:n])
	}
}
