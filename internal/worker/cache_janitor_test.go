package worker

import (
	"context"
	"io"
	"log/slog"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aryan0dhankhar/tenantsync/pkg/cache"
)

type countingPurger struct {
	calls atomic.Int32
}

func (p *countingPurger) Purge() int {
	p.calls.Add(1)
	return 0
}

func TestCacheJanitor_SweepsUntilCancelled(t *testing.T) {
	p := &countingPurger{}
	j := NewCacheJanitor(p, "test", 5*time.Millisecond, slog.New(slog.NewTextHandler(io.Discard, nil)))

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		j.Start(ctx)
		close(done)
	}()

	require.Eventually(t, func() bool { return p.calls.Load() >= 2 }, time.Second, 5*time.Millisecond)
	cancel()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("janitor did not stop")
	}
}

func TestCacheJanitor_PurgesExpired(t *testing.T) {
	now := time.Now()
	c := cache.New[string]().WithClock(func() time.Time { return now })
	c.Set("a", "x", time.Second)
	c.Set("b", "y", time.Hour)

	now = now.Add(2 * time.Second)
	NewCacheJanitor(c, "test", 0, nil).sweep()

	assert.Equal(t, 1, c.Len())
}
