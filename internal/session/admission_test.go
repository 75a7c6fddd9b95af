package session_test

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gosuda/voxroom/internal/session"
)

func noAgent(context.Context) (bool, error)  { return false, nil }
func hasAgent(context.Context) (bool, error) { return true, nil }

func TestAdmissionRegistry_Admit(t *testing.T) {
	t.Parallel()

	t.Run("admits an empty room", func(t *testing.T) {
		t.Parallel()

		reg := session.NewAdmissionRegistry()

		admitted, err := reg.Admit(context.Background(), "r1", noAgent)

		require.NoError(t, err)
		assert.True(t, admitted)
		assert.True(t, reg.Held("r1"))
	})

	t.Run("denies when an agent is already present", func(t *testing.T) {
		t.Parallel()

		reg := session.NewAdmissionRegistry()

		admitted, err := reg.Admit(context.Background(), "r1", hasAgent)

		require.NoError(t, err)
		assert.False(t, admitted)
		assert.False(t, reg.Held("r1"))
	})

	t.Run("denies while a claim is held", func(t *testing.T) {
		t.Parallel()

		reg := session.NewAdmissionRegistry()

		first, err := reg.Admit(context.Background(), "r1", noAgent)
		require.NoError(t, err)
		require.True(t, first)

		second, err := reg.Admit(context.Background(), "r1", noAgent)
		require.NoError(t, err)
		assert.False(t, second)
	})

	t.Run("probe error denies and surfaces", func(t *testing.T) {
		t.Parallel()

		reg := session.NewAdmissionRegistry()
		probeErr := errors.New("participant list unavailable")

		admitted, err := reg.Admit(context.Background(), "r1", func(context.Context) (bool, error) {
			return false, probeErr
		})

		require.Error(t, err)
		assert.ErrorIs(t, err, probeErr)
		assert.False(t, admitted)
		assert.False(t, reg.Held("r1"))
	})

	t.Run("release reopens the room", func(t *testing.T) {
		t.Parallel()

		reg := session.NewAdmissionRegistry()

		admitted, err := reg.Admit(context.Background(), "r1", noAgent)
		require.NoError(t, err)
		require.True(t, admitted)

		reg.Release("r1")
		assert.False(t, reg.Held("r1"))

		again, err := reg.Admit(context.Background(), "r1", noAgent)
		require.NoError(t, err)
		assert.True(t, again)
	})

	t.Run("rooms are independent", func(t *testing.T) {
		t.Parallel()

		reg := session.NewAdmissionRegistry()

		a, err := reg.Admit(context.Background(), "r1", noAgent)
		require.NoError(t, err)
		b, err := reg.Admit(context.Background(), "r2", noAgent)
		require.NoError(t, err)

		assert.True(t, a)
		assert.True(t, b)
	})
}

// Exactly one of many concurrent Admit calls for the same room may win.
func TestAdmissionRegistry_SingleAdmissionUnderConcurrency(t *testing.T) {
	t.Parallel()

	const callers = 32

	reg := session.NewAdmissionRegistry()

	var (
		admitted atomic.Int32
		wg       sync.WaitGroup
	)

	for range callers {
		wg.Add(1)
		go func() {
			defer wg.Done()

			ok, err := reg.Admit(context.Background(), "r1", noAgent)
			require.NoError(t, err)
			if ok {
				admitted.Add(1)
			}
		}()
	}

	wg.Wait()

	assert.Equal(t, int32(1), admitted.Load(), "exactly one concurrent Admit must win")

	// After release, the next round again admits exactly one.
	reg.Release("r1")

	ok, err := reg.Admit(context.Background(), "r1", noAgent)
	require.NoError(t, err)
	assert.True(t, ok)
}

// The probe runs inside the critical section: a concurrent caller must not
// observe the room unclaimed while another caller's probe is in flight.
func TestAdmissionRegistry_ProbeInsideCriticalSection(t *testing.T) {
	t.Parallel()

	reg := session.NewAdmissionRegistry()

	probeEntered := make(chan struct{})
	probeRelease := make(chan struct{})

	go func() {
		_, _ = reg.Admit(context.Background(), "r1", func(context.Context) (bool, error) {
			close(probeEntered)
			<-probeRelease
			return false, nil
		})
	}()

	<-probeEntered

	secondDone := make(chan bool, 1)
	go func() {
		ok, err := reg.Admit(context.Background(), "r1", noAgent)
		require.NoError(t, err)
		secondDone <- ok
	}()

	// The second caller must block until the first probe finishes.
	time.Sleep(50 * time.Millisecond)
	select {
	case <-secondDone:
		t.Fatal("second Admit completed while first probe was still running")
	default:
	}

	close(probeRelease)

	assert.False(t, <-secondDone, "second Admit must lose once the first claim lands")
}
