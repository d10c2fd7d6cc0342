package resilience

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeClock struct{ now time.Time }

func (c *fakeClock) Now() time.Time { return c.now }
func (c *fakeClock) advance(d time.Duration) { c.now = c.now.Add(d) }

func newTestBreaker(clk *fakeClock) *CircuitBreaker {
	return NewCircuitBreaker("test", 3, 3, time.Minute, 10*time.Second, WithClock(clk))
}

func TestCircuitBreakerStartsClosed(t *testing.T) {
	clk := &fakeClock{now: time.Now()}
	cb := newTestBreaker(clk)
	assert.Equal(t, StateClosed, cb.GetState())
	assert.True(t, cb.AllowRequest())
}

func TestCircuitBreakerTripsOnFailureThreshold(t *testing.T) {
	clk := &fakeClock{now: time.Now()}
	cb := newTestBreaker(clk)

	for i := 0; i < 3; i++ {
		cb.RecordAttempt()
		cb.RecordTechnicalFailure()
	}

	assert.Equal(t, StateOpen, cb.GetState())
	assert.False(t, cb.AllowRequest())
}

func TestCircuitBreakerStaysClosedBelowMinAttempts(t *testing.T) {
	clk := &fakeClock{now: time.Now()}
	cb := newTestBreaker(clk)

	cb.RecordAttempt()
	cb.RecordTechnicalFailure()
	cb.RecordAttempt()
	cb.RecordTechnicalFailure()

	assert.Equal(t, StateClosed, cb.GetState())
}

func TestCircuitBreakerHalfOpensAfterResetTimeout(t *testing.T) {
	clk := &fakeClock{now: time.Now()}
	cb := newTestBreaker(clk)

	for i := 0; i < 3; i++ {
		cb.RecordAttempt()
		cb.RecordTechnicalFailure()
	}
	require.Equal(t, StateOpen, cb.GetState())

	clk.advance(11 * time.Second)
	assert.True(t, cb.AllowRequest())
	assert.Equal(t, StateHalfOpen, cb.GetState())
}

func TestCircuitBreakerClosesAfterHalfOpenSuccesses(t *testing.T) {
	clk := &fakeClock{now: time.Now()}
	cb := NewCircuitBreaker("test", 3, 3, time.Minute, 10*time.Second, WithClock(clk), WithHalfOpenSuccessThreshold(2))

	for i := 0; i < 3; i++ {
		cb.RecordAttempt()
		cb.RecordTechnicalFailure()
	}
	clk.advance(11 * time.Second)
	require.True(t, cb.AllowRequest())
	require.Equal(t, StateHalfOpen, cb.GetState())

	cb.RecordSuccess()
	assert.Equal(t, StateHalfOpen, cb.GetState())
	cb.RecordSuccess()
	assert.Equal(t, StateClosed, cb.GetState())
}

func TestCircuitBreakerHalfOpenFailureReopens(t *testing.T) {
	clk := &fakeClock{now: time.Now()}
	cb := newTestBreaker(clk)

	for i := 0; i < 3; i++ {
		cb.RecordAttempt()
		cb.RecordTechnicalFailure()
	}
	clk.advance(11 * time.Second)
	require.True(t, cb.AllowRequest())
	require.Equal(t, StateHalfOpen, cb.GetState())

	cb.RecordTechnicalFailure()
	assert.Equal(t, StateOpen, cb.GetState())
}

func TestCircuitBreakerPruneDropsOldEvents(t *testing.T) {
	clk := &fakeClock{now: time.Now()}
	cb := NewCircuitBreaker("test", 3, 3, 5*time.Second, 10*time.Second, WithClock(clk))

	cb.RecordAttempt()
	cb.RecordTechnicalFailure()
	clk.advance(6 * time.Second)
	cb.RecordAttempt()
	cb.RecordTechnicalFailure()
	cb.RecordAttempt()
	cb.RecordTechnicalFailure()

	assert.Equal(t, StateClosed, cb.GetState())
}

func TestCircuitBreakerExecuteReturnsErrCircuitOpenWhenOpen(t *testing.T) {
	clk := &fakeClock{now: time.Now()}
	cb := newTestBreaker(clk)

	for i := 0; i < 3; i++ {
		cb.RecordAttempt()
		cb.RecordTechnicalFailure()
	}

	err := cb.Execute(func() error { return nil })
	assert.ErrorIs(t, err, ErrCircuitOpen)
}

func TestCircuitBreakerExecutePropagatesFunctionError(t *testing.T) {
	clk := &fakeClock{now: time.Now()}
	cb := newTestBreaker(clk)

	boom := errors.New("boom")
	err := cb.Execute(func() error { return boom })
	assert.ErrorIs(t, err, boom)
}

func TestCircuitBreakerExecuteRecoversPanicAsFailure(t *testing.T) {
	clk := &fakeClock{now: time.Now()}
	cb := NewCircuitBreaker("test", 1, 1, time.Minute, 10*time.Second, WithClock(clk), WithPanicRecovery(true))

	assert.Panics(t, func() {
		_ = cb.Execute(func() error { panic("kaboom") })
	})
	assert.Equal(t, StateOpen, cb.GetState())
}
