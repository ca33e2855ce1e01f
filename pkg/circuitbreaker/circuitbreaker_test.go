package circuitbreaker

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var errUpstream = errors.New("upstream down")

type clock struct{ t time.Time }

func (c *clock) now() time.Time          { return c.t }
func (c *clock) advance(d time.Duration) { c.t = c.t.Add(d) }

func newTestBreaker(opts ...Option) (*CircuitBreaker, *clock) {
	clk := &clock{t: time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)}
	cb := New("test", append([]Option{WithFailureThreshold(2), WithTimeout(time.Minute)}, opts...)...)
	cb.now = clk.now
	return cb, clk
}

func fail(ctx context.Context) error { return errUpstream }
func ok(ctx context.Context) error   { return nil }

func TestCircuitBreaker_OpensAfterThreshold(t *testing.T) {
	cb, _ := newTestBreaker()
	ctx := context.Background()

	assert.ErrorIs(t, cb.Execute(ctx, fail), errUpstream)
	assert.Equal(t, StateClosed, cb.State())
	assert.ErrorIs(t, cb.Execute(ctx, fail), errUpstream)
	assert.Equal(t, StateOpen, cb.State())

	called := false
	err := cb.Execute(ctx, func(ctx context.Context) error { called = true; return nil })
	assert.ErrorIs(t, err, ErrCircuitOpen)
	assert.False(t, called)
}

func TestCircuitBreaker_HalfOpenRecovery(t *testing.T) {
	var transitions []string
	cb, clk := newTestBreaker(WithOnStateChange(func(name string, from, to State) {
		transitions = append(transitions, from.String()+"->"+to.String())
	}))
	ctx := context.Background()

	_ = cb.Execute(ctx, fail)
	_ = cb.Execute(ctx, fail)
	clk.advance(time.Minute)

	assert.Equal(t, StateHalfOpen, cb.State())
	require.NoError(t, cb.Execute(ctx, ok))
	require.NoError(t, cb.Execute(ctx, ok))
	assert.Equal(t, StateClosed, cb.State())
	assert.Equal(t, []string{"closed->open", "open->half-open", "half-open->closed"}, transitions)
}

func TestCircuitBreaker_HalfOpenFailureReopens(t *testing.T) {
	cb, clk := newTestBreaker()
	ctx := context.Background()

	_ = cb.Execute(ctx, fail)
	_ = cb.Execute(ctx, fail)
	clk.advance(time.Minute)

	assert.ErrorIs(t, cb.Execute(ctx, fail), errUpstream)
	assert.Equal(t, StateOpen, cb.State())
}

func TestCircuitBreaker_CancellationIsNotFailure(t *testing.T) {
	cb, _ := newTestBreaker()
	ctx := context.Background()
	canceled := func(ctx context.Context) error { return context.Canceled }

	_ = cb.Execute(ctx, canceled)
	_ = cb.Execute(ctx, canceled)
	assert.Equal(t, StateClosed, cb.State())
	assert.Equal(t, 0, cb.Counts().TotalFailures)
}

func TestCircuitBreaker_Reset(t *testing.T) {
	cb, _ := newTestBreaker()
	ctx := context.Background()
	_ = cb.Execute(ctx, fail)
	_ = cb.Execute(ctx, fail)

	cb.Reset()
	assert.Equal(t, StateClosed, cb.State())
	assert.Equal(t, Counts{}, cb.Counts())
}

func TestCoachAPIBreaker(t *testing.T) {
	cb := CoachAPIBreaker()
	assert.Equal(t, "coach-api", cb.Name())
	assert.Equal(t, 3, cb.config.FailureThreshold)
}
