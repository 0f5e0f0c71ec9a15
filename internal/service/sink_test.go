package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"duckdns_agent/internal/models"
)

// sinkEventRepoStub records appended events; the forwarder goroutine is the
// only writer but tests read concurrently, hence the mutex.
type sinkEventRepoStub struct {
	mu        sync.Mutex
	appendErr error
	events    []models.UpdateEvent
}

func (s *sinkEventRepoStub) Append(ctx context.Context, e models.UpdateEvent) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.appendErr != nil {
		return s.appendErr
	}
	s.events = append(s.events, e)
	return nil
}

func (s *sinkEventRepoStub) List(ctx context.Context, from, to time.Time, typ string) ([]models.UpdateEvent, error) {
	return nil, nil
}

func (s *sinkEventRepoStub) all() []models.UpdateEvent {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]models.UpdateEvent, len(s.events))
	copy(out, s.events)
	return out
}

func TestBufferedSink_PersistsAllEntriesInOrder(t *testing.T) {
	repo := &sinkEventRepoStub{}
	sink := NewBufferedSink(repo, nil)

	const n = 50
	for i := 0; i < n; i++ {
		sink.Emit(models.UpdateEvent{Type: EventUpdate, Description: fmt.Sprintf("entry %03d", i)})
	}
	sink.Close()

	got := repo.all()
	if len(got) != n {
		t.Fatalf("expected %d persisted entries, got %d", n, len(got))
	}
	for i, e := range got {
		if want := fmt.Sprintf("entry %03d", i); e.Description != want {
			t.Fatalf("entry %d out of order: got %q, want %q", i, e.Description, want)
		}
		if e.EventID == "" {
			t.Fatalf("entry %d: expected generated event id", i)
		}
		if e.OccurredAt.IsZero() {
			t.Fatalf("entry %d: expected timestamp to be filled", i)
		}
	}
}

func TestBufferedSink_CloseFlushesPendingEntries(t *testing.T) {
	repo := &sinkEventRepoStub{}
	sink := NewBufferedSink(repo, nil)

	sink.Emit(models.UpdateEvent{Type: EventStarted, Description: "Updater started."})
	sink.Emit(models.UpdateEvent{Type: EventStopped, Description: "Updater stopped."})
	sink.Close() // must not return before both entries are persisted

	got := repo.all()
	if len(got) != 2 {
		t.Fatalf("expected 2 entries after Close, got %d", len(got))
	}
	if got[0].Description != "Updater started." || got[1].Description != "Updater stopped." {
		t.Fatalf("entries out of order: %#v", got)
	}
}

func TestBufferedSink_RepoErrorsDoNotBlockTheForwarder(t *testing.T) {
	repo := &sinkEventRepoStub{appendErr: errors.New("db down")}
	sink := NewBufferedSink(repo, nil)

	for i := 0; i < 10; i++ {
		sink.Emit(models.UpdateEvent{Type: EventError, Description: "Error during update: boom"})
	}
	sink.Close() // returns despite every append failing
}

func TestBufferedSink_ConcurrentEmittersAreSafe(t *testing.T) {
	repo := &sinkEventRepoStub{}
	sink := NewBufferedSink(repo, nil)

	var wg sync.WaitGroup
	for g := 0; g < 4; g++ {
		wg.Add(1)
		go func(g int) {
			defer wg.Done()
			for i := 0; i < 25; i++ {
				sink.Emit(models.UpdateEvent{Type: EventUpdate, Description: fmt.Sprintf("g%d-%d", g, i)})
			}
		}(g)
	}
	wg.Wait()
	sink.Close()

	if got := len(repo.all()); got != 100 {
		t.Fatalf("expected 100 persisted entries, got %d", got)
	}
}
