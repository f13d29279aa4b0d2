package ratelimit

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func newTestLimiter(t *testing.T, max int, window time.Duration, now *time.Time) *Limiter {
	t.Helper()
	l := NewLimiter(max, window)
	l.now = func() time.Time { return *now }
	t.Cleanup(l.Stop)
	return l
}

func TestLimiter_SlidingWindow(t *testing.T) {
	now := time.Unix(1_760_000_000, 0)
	l := newTestLimiter(t, 2, time.Minute, &now)

	assert.True(t, l.Allow("t1"))
	assert.True(t, l.Allow("t1"))
	assert.False(t, l.Allow("t1"))
	assert.True(t, l.Allow("t2"), "keys are independent")

	now = now.Add(61 * time.Second)
	assert.True(t, l.Allow("t1"))
}

func TestLimiter_EmptyKeyUnlimited(t *testing.T) {
	now := time.Unix(1_760_000_000, 0)
	l := newTestLimiter(t, 1, time.Minute, &now)
	for i := 0; i < 5; i++ {
		assert.True(t, l.Allow(""))
	}
}

func TestLimiter_Reset(t *testing.T) {
	now := time.Unix(1_760_000_000, 0)
	l := newTestLimiter(t, 1, time.Minute, &now)
	assert.True(t, l.AllowN("k", 1, time.Minute))
	assert.False(t, l.AllowN("k", 1, time.Minute))
	l.Reset("k")
	assert.True(t, l.AllowN("k", 1, time.Minute))
}

func TestLimiter_StopTwice(t *testing.T) {
	l := NewLimiter(1, time.Minute)
	l.Stop()
	assert.NotPanics(t, l.Stop)
}

type fakeCounter struct {
	mu     sync.Mutex
	counts map[string]int64
	err    error
	calls  int
}

func (f *fakeCounter) IncrWindow(_ context.Context, key string, _ time.Duration) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	if f.err != nil {
		return 0, f.err
	}
	f.counts[key]++
	return f.counts[key], nil
}

func (f *fakeCounter) Delete(_ context.Context, key string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.counts, key)
	return f.err
}

func TestLoginThrottle_SharedCounter(t *testing.T) {
	now := time.Unix(1_760_000_000, 0)
	counter := &fakeCounter{counts: map[string]int64{}}
	th := NewLoginThrottle(counter, newTestLimiter(t, 100, time.Minute, &now), 2, time.Minute, nil)
	ctx := context.Background()

	assert.True(t, th.Allow(ctx, "10.0.0.1", "alice"))
	assert.True(t, th.Allow(ctx, "10.0.0.1", "alice"))
	assert.False(t, th.Allow(ctx, "10.0.0.1", "alice"))
	assert.False(t, th.Allow(ctx, "10.0.0.2", "alice"), "username budget is shared across IPs")

	th.Reset(ctx, "alice")
	assert.False(t, th.Allow(ctx, "10.0.0.1", "alice"), "ip budget is still spent")
	assert.True(t, th.Allow(ctx, "10.0.0.3", "alice"))
}

func TestLoginThrottle_FallsBackToLocal(t *testing.T) {
	now := time.Unix(1_760_000_000, 0)
	counter := &fakeCounter{counts: map[string]int64{}, err: errors.New("connection refused")}
	th := NewLoginThrottle(counter, newTestLimiter(t, 100, time.Minute, &now), 1, time.Minute, nil)
	ctx := context.Background()

	assert.True(t, th.Allow(ctx, "10.0.0.1", "bob"))
	assert.False(t, th.Allow(ctx, "10.0.0.1", "bob"))

	// breaker opens after repeated failures and stops calling the counter
	callsBefore := counter.calls
	th.Allow(ctx, "10.0.0.9", "carol")
	th.Allow(ctx, "10.0.0.9", "carol")
	assert.Equal(t, callsBefore, counter.calls)
}

func TestLoginThrottle_NoCounter(t *testing.T) {
	now := time.Unix(1_760_000_000, 0)
	th := NewLoginThrottle(nil, newTestLimiter(t, 100, time.Minute, &now), 1, time.Minute, nil)
	ctx := context.Background()

	assert.True(t, th.Allow(ctx, "ip", "dave"))
	assert.False(t, th.Allow(ctx, "ip", "dave"))
}

func TestLoginThrottle_Disabled(t *testing.T) {
	now := time.Unix(1_760_000_000, 0)
	th := NewLoginThrottle(nil, newTestLimiter(t, 100, time.Minute, &now), 0, time.Minute, nil)
	for i := 0; i < 10; i++ {
		assert.True(t, th.Allow(context.Background(), "ip", "eve"))
	}
}
