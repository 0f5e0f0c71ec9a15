package service

import (
	"context"
	"sync"
	"time"

	"duckdns_agent/internal/logger"
	"duckdns_agent/internal/models"
	"duckdns_agent/internal/repository"

	"github.com/google/uuid"
)

// EventSink is an append-only receiver of log entries. Producers and the
// eventual consumer run in different goroutines; entries are observed in the
// exact order they were emitted and are never dropped while the sink is alive.
type EventSink interface {
	Emit(e models.UpdateEvent)
}

// BufferedSink queues emitted entries without blocking the producer and
// persists them, in emission order, from a single forwarder goroutine. The
// queue is unbounded; the runner produces a handful of lines per tick.
type BufferedSink struct {
	eventRepo repository.EventRepo
	log       *logger.Logger

	mu    sync.Mutex
	queue []models.UpdateEvent

	wake chan struct{}
	quit chan struct{}
	done chan struct{}
}

var _ EventSink = (*BufferedSink)(nil)

func NewBufferedSink(eventRepo repository.EventRepo, log *logger.Logger) *BufferedSink {
	s := &BufferedSink{
		eventRepo: eventRepo,
		log:       log,
		wake:      make(chan struct{}, 1),
		quit:      make(chan struct{}),
		done:      make(chan struct{}),
	}
	go s.forward()
	return s
}

// Emit appends an entry to the queue and nudges the forwarder. Missing IDs and
// timestamps are filled here so ordering and identity are fixed at emission.
func (s *BufferedSink) Emit(e models.UpdateEvent) {
	if e.EventID == "" {
		e.EventID = uuid.NewString()
	}
	if e.OccurredAt.IsZero() {
		e.OccurredAt = time.Now().UTC()
	}

	s.mu.Lock()
	s.queue = append(s.queue, e)
	s.mu.Unlock()

	select {
	case s.wake <- struct{}{}:
	default: // forwarder already signalled
	}
}

// Close flushes everything still queued and stops the forwarder.
func (s *BufferedSink) Close() {
	close(s.quit)
	<-s.done
}

func (s *BufferedSink) forward() {
	defer close(s.done)
	for {
		select {
		case <-s.wake:
			s.flush()
		case <-s.quit:
			s.flush()
			return
		}
	}
}

func (s *BufferedSink) flush() {
	for {
		s.mu.Lock()
		batch := s.queue
		s.queue = nil
		s.mu.Unlock()

		if len(batch) == 0 {
			return
		}
		for _, e := range batch {
			if err := s.eventRepo.Append(context.Background(), e); err != nil && s.log != nil {
				s.log.Errorw("event_append_failed", "err", err, "type", e.Type)
			}
		}
	}
}
