package leakcheck

import (
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

// recorder captures Errorf instead of failing the enclosing test
type recorder struct {
	testing.TB
	errors []string
}

func (r *recorder) Helper() {}

func (r *recorder) Errorf(format string, args ...interface{}) {
	r.errors = append(r.errors, fmt.Sprintf(format, args...))
}

func TestVerifyPassesWhenGoroutinesExit(t *testing.T) {
	c := Start(t)

	done := make(chan struct{})
	go func() { close(done) }()
	<-done

	c.Verify()
}

func TestVerifyReportsLeak(t *testing.T) {
	rec := &recorder{TB: t}
	c := Start(rec, WithTimeout(100*time.Millisecond))

	stop := make(chan struct{})
	defer close(stop)
	go func() { <-stop }()

	c.Verify()
	if assert.Len(t, rec.errors, 1) {
		assert.Contains(t, rec.errors[0], "goroutine leak")
	}
}

func TestVerifyHonoursSlack(t *testing.T) {
	rec := &recorder{TB: t}
	c := Start(rec, WithSlack(1), WithTimeout(50*time.Millisecond))

	stop := make(chan struct{})
	defer close(stop)
	go func() { <-stop }()

	c.Verify()
	assert.Empty(t, rec.errors)
}
