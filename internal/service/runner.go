package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"duckdns_agent/internal/logger"
	"duckdns_agent/internal/models"
	"duckdns_agent/internal/repository"
)

// RunnerState is the lifecycle state of the single process-wide updater task.
type RunnerState int

const (
	StateIdle RunnerState = iota
	StateRunning
	StateStopping
)

func (s RunnerState) String() string {
	switch s {
	case StateRunning:
		return "RUNNING"
	case StateStopping:
		return "STOPPING"
	default:
		return "IDLE"
	}
}

// Event types recorded by the runner.
const (
	EventStarted = "STARTED"
	EventStopped = "STOPPED"
	EventUpdate  = "UPDATE"
	EventError   = "ERROR"
	EventExited  = "EXITED"
)

var (
	ErrInvalidInput   = errors.New("invalid update request")
	ErrAlreadyRunning = errors.New("updater is already running")
	ErrNotRunning     = errors.New("updater is not running")
)

// RunnerService drives the update loop: one Send per tick, then a cancellable
// wait of the configured interval. Exactly one loop goroutine exists while the
// state is not Idle.
type RunnerService struct {
	client     UpdateClient
	sink       EventSink
	statusRepo repository.StatusRepo
	log        *logger.Logger

	mu     sync.Mutex
	state  RunnerState
	cancel context.CancelFunc // cancels the current run only
	done   chan struct{}      // closed when the current loop goroutine exits
}

func NewRunnerService(client UpdateClient, sink EventSink, statusRepo repository.StatusRepo, log *logger.Logger) *RunnerService {
	return &RunnerService{
		client:     client,
		sink:       sink,
		statusRepo: statusRepo,
		log:        log,
	}
}

func validateRequest(req models.UpdateRequest) error {
	if strings.TrimSpace(req.Subdomain) == "" {
		return fmt.Errorf("%w: subdomain is required", ErrInvalidInput)
	}
	if strings.TrimSpace(req.Token) == "" {
		return fmt.Errorf("%w: token is required", ErrInvalidInput)
	}
	if req.Interval <= 0 {
		return fmt.Errorf("%w: interval must be positive", ErrInvalidInput)
	}
	return nil
}

// Start validates the request, transitions Idle→Running and launches the loop
// goroutine. It returns immediately; outcomes are reported through the sink.
// Each run gets its own cancellation token, so a stale Stop from a previous
// run can never affect a newly started one.
func (r *RunnerService) Start(req models.UpdateRequest) error {
	if err := validateRequest(req); err != nil {
		return err
	}

	r.mu.Lock()
	if r.state != StateIdle {
		r.mu.Unlock()
		return ErrAlreadyRunning
	}
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	r.state = StateRunning
	r.cancel = cancel
	r.done = done
	r.mu.Unlock()

	// Emitted before the goroutine spawns so the started line always precedes
	// the first outcome line.
	r.emit(EventStarted, "Updater started.")
	go r.run(ctx, req, done)
	return nil
}

// Stop signals cancellation and transitions Running→Stopping. It does not wait
// for the loop to exit; an in-flight update call runs to completion and its
// outcome is still logged. The terminal Stopping→Idle transition is performed
// by the loop goroutine itself.
func (r *RunnerService) Stop() error {
	r.mu.Lock()
	if r.state != StateRunning {
		r.mu.Unlock()
		return ErrNotRunning
	}
	r.state = StateStopping
	cancel := r.cancel
	r.mu.Unlock()

	// Emitted before cancellation so the stopped line always precedes the
	// loop's exiting line.
	r.emit(EventStopped, "Updater stopped.")
	cancel()
	return nil
}

// State returns the current lifecycle state.
func (r *RunnerService) State() RunnerState {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.state
}

func (r *RunnerService) run(ctx context.Context, req models.UpdateRequest, done chan struct{}) {
	defer close(done)

	ticker := time.NewTicker(time.Second)
	defer ticker.Stop()

	status := models.UpdaterStatus{
		ID:              1,
		Subdomain:       req.Subdomain,
		IntervalSeconds: int(req.Interval / time.Second),
	}
	r.saveStatus(&status)

	for ctx.Err() == nil {
		resp, err := r.client.Send(req.Subdomain, req.Token)
		status.Ticks++
		if err != nil {
			status.LastError = err.Error()
			r.emit(EventError, "Error during update: "+err.Error())
		} else {
			status.LastError = ""
			status.LastResponse = resp
			r.emit(EventUpdate, "Update sent. Response: "+resp)
		}
		r.saveStatus(&status)

		if !r.waitNextTick(ctx, ticker, req.Interval) {
			break
		}
	}

	r.emit(EventExited, "Updater thread exiting.")

	r.mu.Lock()
	r.state = StateIdle
	r.cancel = nil
	r.mu.Unlock()

	r.saveStatus(&status)
}

// waitNextTick waits out the configured interval one second at a time so a
// cancellation is honored within about a second. A fractional remainder of
// the interval is truncated rather than awaited; intervals under a second
// therefore wait not at all.
func (r *RunnerService) waitNextTick(ctx context.Context, ticker *time.Ticker, interval time.Duration) bool {
	for remaining := int(interval / time.Second); remaining > 0; remaining-- {
		select {
		case <-ctx.Done():
			return false
		case <-ticker.C:
		}
	}
	return ctx.Err() == nil
}

func (r *RunnerService) emit(typ, msg string) {
	if r.sink == nil {
		return
	}
	r.sink.Emit(models.UpdateEvent{
		OccurredAt:  time.Now().UTC(),
		Type:        typ,
		Description: msg,
	})
}

// saveStatus persists a best-effort snapshot; persistence failures never
// affect the loop.
func (r *RunnerService) saveStatus(status *models.UpdaterStatus) {
	if r.statusRepo == nil {
		return
	}
	status.State = r.State().String()
	status.UpdatedAt = time.Now().UTC()
	if err := r.statusRepo.Save(context.Background(), *status); err != nil && r.log != nil {
		r.log.Errorw("status_save_failed", "err", err)
	}
}
