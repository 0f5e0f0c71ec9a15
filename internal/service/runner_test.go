package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"duckdns_agent/internal/models"
)

// ---- Test doubles ----

// recordingSink collects emitted entries in order.
type recordingSink struct {
	mu      sync.Mutex
	entries []models.UpdateEvent
}

func (s *recordingSink) Emit(e models.UpdateEvent) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries = append(s.entries, e)
}

func (s *recordingSink) all() []models.UpdateEvent {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]models.UpdateEvent, len(s.entries))
	copy(out, s.entries)
	return out
}

func (s *recordingSink) countByType(typ string) int {
	n := 0
	for _, e := range s.all() {
		if e.Type == typ {
			n++
		}
	}
	return n
}

// fakeClient is a scripted UpdateClient. It tracks the number of calls and the
// maximum number of concurrent calls ever observed.
type fakeClient struct {
	resp      string
	err       error
	alternate bool          // odd calls succeed, even calls fail
	delay     time.Duration // per-call latency
	block     chan struct{} // if non-nil, Send blocks until closed

	calls       int32
	inFlight    int32
	maxInFlight int32
}

func (c *fakeClient) Send(subdomain, token string) (string, error) {
	cur := atomic.AddInt32(&c.inFlight, 1)
	defer atomic.AddInt32(&c.inFlight, -1)
	for {
		seen := atomic.LoadInt32(&c.maxInFlight)
		if cur <= seen || atomic.CompareAndSwapInt32(&c.maxInFlight, seen, cur) {
			break
		}
	}

	if c.block != nil {
		<-c.block
	}
	if c.delay > 0 {
		time.Sleep(c.delay)
	}

	n := atomic.AddInt32(&c.calls, 1)
	if c.err != nil {
		return "", c.err
	}
	if c.alternate && n%2 == 0 {
		return "", errors.New("dial tcp: connection refused")
	}
	return c.resp, nil
}

func (c *fakeClient) callCount() int { return int(atomic.LoadInt32(&c.calls)) }

// fakeStatusRepo records every saved snapshot.
type fakeStatusRepo struct {
	mu    sync.Mutex
	saves []models.UpdaterStatus
}

func (f *fakeStatusRepo) Save(ctx context.Context, s models.UpdaterStatus) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.saves = append(f.saves, s)
	return nil
}
func (f *fakeStatusRepo) Load(ctx context.Context) (models.UpdaterStatus, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.saves) == 0 {
		return models.UpdaterStatus{}, nil
	}
	return f.saves[len(f.saves)-1], nil
}

// ---- Helpers ----

func validReq(minutes float64) models.UpdateRequest {
	return models.RequestFromMinutes("myhome", "t0k3n", minutes)
}

func waitForState(t *testing.T, r *RunnerService, want RunnerState, timeout time.Duration) {
	t.Helper()
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if r.State() == want {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("state %v not reached within %v (still %v)", want, timeout, r.State())
}

func waitForCalls(t *testing.T, c *fakeClient, n int, timeout time.Duration) {
	t.Helper()
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if c.callCount() >= n {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("expected at least %d calls within %v, got %d", n, timeout, c.callCount())
}

// ---- Tests ----

func TestRunner_Start_InvalidInput(t *testing.T) {
	cases := []struct {
		name string
		req  models.UpdateRequest
	}{
		{"empty_subdomain", models.RequestFromMinutes("", "t0k3n", 5)},
		{"blank_subdomain", models.RequestFromMinutes("   ", "t0k3n", 5)},
		{"empty_token", models.RequestFromMinutes("myhome", "", 5)},
		{"zero_interval", models.RequestFromMinutes("myhome", "t0k3n", 0)},
		{"negative_interval", models.RequestFromMinutes("myhome", "t0k3n", -1)},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			client := &fakeClient{resp: "OK"}
			sink := &recordingSink{}
			r := NewRunnerService(client, sink, nil, nil)

			err := r.Start(tc.req)
			if !errors.Is(err, ErrInvalidInput) {
				t.Fatalf("expected ErrInvalidInput, got %v", err)
			}
			if r.State() != StateIdle {
				t.Fatalf("expected state Idle after refused Start, got %v", r.State())
			}
			if client.callCount() != 0 {
				t.Fatalf("expected no network calls, got %d", client.callCount())
			}
			if len(sink.all()) != 0 {
				t.Fatalf("expected no log entries, got %#v", sink.all())
			}
		})
	}
}

func TestRunner_StartStop_EmitsLifecycleLines(t *testing.T) {
	client := &fakeClient{resp: "OK"}
	sink := &recordingSink{}
	r := NewRunnerService(client, sink, nil, nil)

	if err := r.Start(validReq(60)); err != nil { // long interval, stop during wait
		t.Fatalf("Start: %v", err)
	}
	waitForCalls(t, client, 1, 2*time.Second)

	if err := r.Stop(); err != nil {
		t.Fatalf("Stop: %v", err)
	}
	waitForState(t, r, StateIdle, 3*time.Second)

	calls := client.callCount()
	time.Sleep(150 * time.Millisecond) // no further ticks after exiting
	if client.callCount() != calls {
		t.Fatalf("updater kept ticking after exit: %d -> %d", calls, client.callCount())
	}

	entries := sink.all()
	if sink.countByType(EventStarted) != 1 {
		t.Fatalf("expected exactly one started line, entries: %#v", entries)
	}
	if sink.countByType(EventStopped) != 1 {
		t.Fatalf("expected exactly one stopped line, entries: %#v", entries)
	}
	if sink.countByType(EventExited) != 1 {
		t.Fatalf("expected exactly one exiting line, entries: %#v", entries)
	}
	if entries[0].Description != "Updater started." {
		t.Fatalf("expected started line first, got %q", entries[0].Description)
	}
	if last := entries[len(entries)-1]; last.Description != "Updater thread exiting." {
		t.Fatalf("expected exiting line last, got %q", last.Description)
	}
}

func TestRunner_StopDuringWait_ExitsWithinASecond(t *testing.T) {
	client := &fakeClient{resp: "OK"}
	r := NewRunnerService(client, &recordingSink{}, nil, nil)

	if err := r.Start(validReq(60)); err != nil { // one hour wait between ticks
		t.Fatalf("Start: %v", err)
	}
	waitForCalls(t, client, 1, 2*time.Second)

	begin := time.Now()
	if err := r.Stop(); err != nil {
		t.Fatalf("Stop: %v", err)
	}
	waitForState(t, r, StateIdle, 2*time.Second)

	if elapsed := time.Since(begin); elapsed > 1500*time.Millisecond {
		t.Fatalf("loop waited %v after Stop; should exit within ~1s", elapsed)
	}
}

func TestRunner_DoubleStart_Refused(t *testing.T) {
	client := &fakeClient{resp: "OK", delay: 5 * time.Millisecond}
	r := NewRunnerService(client, &recordingSink{}, nil, nil)

	if err := r.Start(validReq(60)); err != nil {
		t.Fatalf("first Start: %v", err)
	}
	if err := r.Start(validReq(60)); !errors.Is(err, ErrAlreadyRunning) {
		t.Fatalf("expected ErrAlreadyRunning, got %v", err)
	}

	if err := r.Stop(); err != nil {
		t.Fatalf("Stop: %v", err)
	}
	waitForState(t, r, StateIdle, 2*time.Second)

	if max := atomic.LoadInt32(&client.maxInFlight); max > 1 {
		t.Fatalf("observed %d concurrent update calls; want at most 1", max)
	}
}

func TestRunner_StopWhenIdle_Refused(t *testing.T) {
	r := NewRunnerService(&fakeClient{resp: "OK"}, &recordingSink{}, nil, nil)
	if err := r.Stop(); !errors.Is(err, ErrNotRunning) {
		t.Fatalf("expected ErrNotRunning, got %v", err)
	}
}

func TestRunner_InFlightCallRunsToCompletion(t *testing.T) {
	block := make(chan struct{})
	client := &fakeClient{resp: "OK", block: block}
	sink := &recordingSink{}
	r := NewRunnerService(client, sink, nil, nil)

	if err := r.Start(validReq(60)); err != nil {
		t.Fatalf("Start: %v", err)
	}

	// Wait until the call is actually in flight.
	deadline := time.Now().Add(2 * time.Second)
	for atomic.LoadInt32(&client.inFlight) == 0 {
		if time.Now().After(deadline) {
			t.Fatalf("update call never went in flight")
		}
		time.Sleep(5 * time.Millisecond)
	}

	if err := r.Stop(); err != nil {
		t.Fatalf("Stop: %v", err)
	}
	// Stop does not abort the dispatched call: the loop is still draining.
	if st := r.State(); st != StateStopping {
		t.Fatalf("expected state Stopping while call in flight, got %v", st)
	}

	close(block)
	waitForState(t, r, StateIdle, 2*time.Second)

	// The completed call's outcome is still logged, before the exiting line.
	var outcomeIdx, exitIdx = -1, -1
	for i, e := range sink.all() {
		switch e.Type {
		case EventUpdate:
			outcomeIdx = i
		case EventExited:
			exitIdx = i
		}
	}
	if outcomeIdx == -1 {
		t.Fatalf("expected the in-flight call's outcome to be logged")
	}
	if exitIdx == -1 || exitIdx < outcomeIdx {
		t.Fatalf("expected exiting line after the outcome line (outcome=%d exit=%d)", outcomeIdx, exitIdx)
	}
}

func TestRunner_AlternatingOutcomes_OrderPreserved(t *testing.T) {
	// Interval under one second truncates to no wait, so ticks follow each
	// other immediately; the small delay keeps the volume bounded.
	client := &fakeClient{resp: "OK", alternate: true, delay: 2 * time.Millisecond}
	sink := &recordingSink{}
	r := NewRunnerService(client, sink, nil, nil)

	if err := r.Start(validReq(0.005)); err != nil {
		t.Fatalf("Start: %v", err)
	}
	waitForCalls(t, client, 6, 3*time.Second)

	if err := r.Stop(); err != nil {
		t.Fatalf("Stop: %v", err)
	}
	waitForState(t, r, StateIdle, 2*time.Second)

	var outcomes []models.UpdateEvent
	for _, e := range sink.all() {
		if e.Type == EventUpdate || e.Type == EventError {
			outcomes = append(outcomes, e)
		}
	}
	if len(outcomes) != client.callCount() {
		t.Fatalf("expected %d outcome lines, got %d", client.callCount(), len(outcomes))
	}
	for i, e := range outcomes {
		if i%2 == 0 { // odd call number: success
			if e.Type != EventUpdate || e.Description != "Update sent. Response: OK" {
				t.Fatalf("outcome %d: expected success line, got %q (%s)", i, e.Description, e.Type)
			}
		} else {
			if e.Type != EventError || e.Description != "Error during update: dial tcp: connection refused" {
				t.Fatalf("outcome %d: expected error line, got %q (%s)", i, e.Description, e.Type)
			}
		}
	}
}

func TestRunner_RestartCycles_NeverLeak(t *testing.T) {
	client := &fakeClient{resp: "OK"}
	sink := &recordingSink{}
	repo := &fakeStatusRepo{}
	r := NewRunnerService(client, sink, repo, nil)

	for cycle := 0; cycle < 2; cycle++ {
		before := client.callCount()
		if err := r.Start(validReq(60)); err != nil {
			t.Fatalf("cycle %d Start: %v", cycle, err)
		}
		waitForCalls(t, client, before+1, 2*time.Second)
		if err := r.Stop(); err != nil {
			t.Fatalf("cycle %d Stop: %v", cycle, err)
		}
		waitForState(t, r, StateIdle, 2*time.Second)
	}

	if got := sink.countByType(EventStarted); got != 2 {
		t.Fatalf("expected 2 started lines, got %d", got)
	}
	if got := sink.countByType(EventStopped); got != 2 {
		t.Fatalf("expected 2 stopped lines, got %d", got)
	}
	if got := sink.countByType(EventExited); got != 2 {
		t.Fatalf("expected 2 exiting lines, got %d", got)
	}
	if r.State() != StateIdle {
		t.Fatalf("expected Idle after cycles, got %v", r.State())
	}

	// Final persisted snapshot reflects the idle runner; the token is not part
	// of the snapshot model at all.
	last, _ := repo.Load(context.Background())
	if last.State != StateIdle.String() {
		t.Fatalf("expected persisted state IDLE, got %q", last.State)
	}
	if last.Subdomain != "myhome" {
		t.Fatalf("expected persisted subdomain, got %q", last.Subdomain)
	}
	if last.Ticks < 1 {
		t.Fatalf("expected at least one persisted tick, got %d", last.Ticks)
	}
}

func TestRunnerState_String(t *testing.T) {
	for st, want := range map[RunnerState]string{
		StateIdle:     "IDLE",
		StateRunning:  "RUNNING",
		StateStopping: "STOPPING",
	} {
		if got := st.String(); got != want {
			t.Fatalf("%d.String() = %q, want %q", st, got, want)
		}
	}
}

func TestRunner_EmitFillsTimestamp(t *testing.T) {
	sink := &recordingSink{}
	r := NewRunnerService(&fakeClient{resp: "OK"}, sink, nil, nil)

	t0 := time.Now().UTC()
	r.emit(EventStarted, "Updater started.")
	t1 := time.Now().UTC()

	entries := sink.all()
	if len(entries) != 1 {
		t.Fatalf("expected 1 entry, got %d", len(entries))
	}
	ts := entries[0].OccurredAt
	if ts.Before(t0) || ts.After(t1) {
		t.Fatalf("timestamp %v not within [%v, %v]", ts, t0, t1)
	}
	if line := entries[0].Line(); line != fmt.Sprintf("[%s] Updater started.", ts.Format("2006-01-02 15:04:05")) {
		t.Fatalf("unexpected rendered line %q", line)
	}
}
