package session

import (
	"context"
	"fmt"
	"sync"
)

// LivenessProbe reports whether an agent-kind participant is already
// present in the room. It runs while the admission lock is held, to catch
// duplicate dispatches that originated from a different process or a
// delayed event; the lock alone only protects against races within this
// process.
type LivenessProbe func(ctx context.Context) (bool, error)

// roomEntry holds the per-room admission state. Entries are created lazily
// and never deleted; the set of room keys a process sees is bounded.
type roomEntry struct {
	mu   sync.Mutex
	held bool
}

// AdmissionRegistry grants at most one local session per room. It is an
// injected, process-scoped object: the lifecycle manager receives it
// explicitly rather than reaching for ambient global state.
type AdmissionRegistry struct {
	mu    sync.Mutex
	rooms map[string]*roomEntry
}

func NewAdmissionRegistry() *AdmissionRegistry {
	return &AdmissionRegistry{
		rooms: make(map[string]*roomEntry),
	}
}

func (r *AdmissionRegistry) entry(roomKey string) *roomEntry {
	r.mu.Lock()
	defer r.mu.Unlock()

	e, ok := r.rooms[roomKey]
	if !ok {
		e = &roomEntry{}
		r.rooms[roomKey] = e
	}
	return e
}

// Admit claims the exclusive right to start a session for roomKey. The
// probe runs inside the admission critical section; a probe error denies
// admission and is returned to the caller. On success the claim stays held
// until Release. A denial is a normal outcome, not an error.
func (r *AdmissionRegistry) Admit(ctx context.Context, roomKey string, probe LivenessProbe) (bool, error) {
	e := r.entry(roomKey)

	e.mu.Lock()
	defer e.mu.Unlock()

	if e.held {
		return false, nil
	}

	if probe != nil {
		present, err := probe(ctx)
		if err != nil {
			return false, fmt.Errorf("session.AdmissionRegistry.Admit(%q): liveness probe: %w", roomKey, err)
		}
		if present {
			return false, nil
		}
	}

	e.held = true
	return true, nil
}

// Release frees the room's admission claim. It must be called exactly once
// per successful Admit, from the shutdown path, on every code path: a
// missed Release permanently wedges the room for future dispatches.
func (r *AdmissionRegistry) Release(roomKey string) {
	e := r.entry(roomKey)

	e.mu.Lock()
	e.held = false
	e.mu.Unlock()
}

// Held reports whether the room's admission claim is currently taken.
func (r *AdmissionRegistry) Held(roomKey string) bool {
	e := r.entry(roomKey)

	e.mu.Lock()
	defer e.mu.Unlock()
	return e.held
}
