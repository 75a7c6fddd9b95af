package session

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/gosuda/voxroom/internal/domain"
)

// LogSink is the per-room asynchronous transcript writer. Enqueue never
// blocks the realtime event path: a full queue drops the record and counts
// it. A single background goroutine flushes records to the backing store in
// FIFO order. The sink is owned by the session that created it; nothing
// else may touch it once shutdown begins.
type LogSink struct {
	roomName string
	store    domain.TranscriptRepository

	mu    sync.Mutex
	open  bool
	queue chan *domain.TranscriptEntry

	ctx    context.Context
	cancel context.CancelFunc
	done   chan struct{}

	flushed   atomic.Uint64
	dropped   atomic.Uint64
	discarded atomic.Uint64
}

// NewLogSink creates a sink with the given queue capacity and starts its
// drain goroutine. Non-positive capacity falls back to
// DefaultQueueCapacity.
func NewLogSink(roomName string, store domain.TranscriptRepository, capacity int) *LogSink {
	if capacity <= 0 {
		capacity = DefaultQueueCapacity
	}

	ctx, cancel := context.WithCancel(context.Background())
	s := &LogSink{
		roomName: roomName,
		store:    store,
		open:     true,
		queue:    make(chan *domain.TranscriptEntry, capacity),
		ctx:      ctx,
		cancel:   cancel,
		done:     make(chan struct{}),
	}

	go s.run()

	return s
}

// Enqueue records one transcript line without blocking. It returns false
// when the sink is closed or the queue is full; a full-queue drop is
// counted and logged, never waited out.
func (s *LogSink) Enqueue(role domain.Role, text string, at time.Time) bool {
	entry := &domain.TranscriptEntry{
		ID:        uuid.New(),
		RoomName:  s.roomName,
		Role:      role,
		Text:      text,
		CreatedAt: at,
	}

	s.mu.Lock()
	if !s.open {
		s.mu.Unlock()
		return false
	}

	select {
	case s.queue <- entry:
		s.mu.Unlock()
		return true
	default:
		s.mu.Unlock()
		s.dropped.Add(1)
		log.Warn().Str("room", s.roomName).Str("role", string(role)).Msg("transcript queue full, record dropped")
		return false
	}
}

// Drain closes intake and waits up to timeout for the queue to empty.
// On timeout the write in progress is aborted, the remaining records are
// discarded, and false is returned. Drain is idempotent.
func (s *LogSink) Drain(timeout time.Duration) bool {
	s.mu.Lock()
	if s.open {
		s.open = false
		close(s.queue)
	}
	s.mu.Unlock()

	timer := time.NewTimer(timeout)
	defer timer.Stop()

	select {
	case <-s.done:
		return true
	case <-timer.C:
		s.cancel()
		log.Warn().
			Str("room", s.roomName).
			Dur("timeout", timeout).
			Msg("transcript drain timed out, remaining records discarded")
		<-s.done
		return false
	}
}

// Flushed returns the number of records written to the backing store.
func (s *LogSink) Flushed() uint64 { return s.flushed.Load() }

// Dropped returns the number of records rejected on a full queue.
func (s *LogSink) Dropped() uint64 { return s.dropped.Load() }

// Discarded returns the number of records abandoned by a drain timeout.
func (s *LogSink) Discarded() uint64 { return s.discarded.Load() }

// run is the drain goroutine: it consumes the queue in order until the
// queue is closed and empty. A write failure for one record is logged and
// the next record is attempted; storage trouble never escalates to the
// session.
func (s *LogSink) run() {
	defer close(s.done)

	for entry := range s.queue {
		if s.ctx.Err() != nil {
			s.discarded.Add(1)
			continue
		}

		writeCtx, cancel := context.WithTimeout(s.ctx, 5*time.Second)
		err := s.store.Append(writeCtx, entry)
		cancel()
		if err != nil {
			log.Error().Err(err).Str("room", s.roomName).Msg("transcript write failed, record skipped")
			continue
		}
		s.flushed.Add(1)
	}
}
