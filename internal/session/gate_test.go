package session_test

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gosuda/voxroom/internal/session"
)

func TestGate_CapacityNeverExceeded(t *testing.T) {
	t.Parallel()

	const (
		capacity = 3
		callers  = 10
	)

	gate := session.NewGate(capacity)

	var (
		inFlight atomic.Int32
		peak     atomic.Int32
		wg       sync.WaitGroup
	)

	for range callers {
		wg.Add(1)
		go func() {
			defer wg.Done()

			release, err := gate.Acquire(context.Background())
			require.NoError(t, err)
			defer release()

			n := inFlight.Add(1)
			for {
				p := peak.Load()
				if n <= p || peak.CompareAndSwap(p, n) {
					break
				}
			}
			time.Sleep(10 * time.Millisecond)
			inFlight.Add(-1)
		}()
	}

	wg.Wait()

	assert.LessOrEqual(t, peak.Load(), int32(capacity), "more than %d callers held a permit at once", capacity)
}

func TestGate_AcquireHonorsContext(t *testing.T) {
	t.Parallel()

	gate := session.NewGate(1)

	release, err := gate.Acquire(context.Background())
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	_, err = gate.Acquire(ctx)
	require.Error(t, err)
	assert.ErrorIs(t, err, context.DeadlineExceeded)

	release()

	// Slot is free again.
	release2, err := gate.Acquire(context.Background())
	require.NoError(t, err)
	release2()
}

func TestGate_DefaultCapacity(t *testing.T) {
	t.Parallel()

	assert.Equal(t, session.DefaultGateCapacity, session.NewGate(0).Capacity())
	assert.Equal(t, session.DefaultGateCapacity, session.NewGate(-5).Capacity())
	assert.Equal(t, 8, session.NewGate(8).Capacity())
}
