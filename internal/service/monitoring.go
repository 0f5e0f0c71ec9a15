package service

import (
	"context"
	"time"

	"duckdns_agent/internal/models"
	"duckdns_agent/internal/repository"
)

// StateReporter exposes the live runner state to read-side services.
type StateReporter interface {
	State() RunnerState
}

type MonitoringService struct {
	statusRepo repository.StatusRepo
	runner     StateReporter
}

func NewMonitoringService(statusRepo repository.StatusRepo, runner StateReporter) *MonitoringService {
	return &MonitoringService{statusRepo: statusRepo, runner: runner}
}

// GetStatus returns the latest persisted snapshot overlaid with the live
// runner state. The two enablement signals are always complementary: start is
// enabled exactly when the runner is idle.
func (s *MonitoringService) GetStatus(ctx context.Context) (models.UpdaterStatus, error) {
	status, err := s.statusRepo.Load(ctx)
	if err != nil {
		return models.UpdaterStatus{}, err
	}
	if status.ID == 0 {
		status = s.baselineStatus()
	}

	state := StateIdle
	if s.runner != nil {
		state = s.runner.State()
	}
	status.State = state.String()
	status.StartEnabled = state == StateIdle
	status.StopEnabled = !status.StartEnabled
	status.UpdatedAt = toUTC(status.UpdatedAt)
	return status, nil
}

// baselineStatus returns a sensible default snapshot for an uninitialized DB.
func (s *MonitoringService) baselineStatus() models.UpdaterStatus {
	return models.UpdaterStatus{
		ID:        1, // DB schema enforces single-row status with id=1
		State:     StateIdle.String(),
		UpdatedAt: time.Now().UTC(),
	}
}

// toUTC normalizes non-zero time to UTC, preserving zero values.
func toUTC(t time.Time) time.Time {
	if t.IsZero() {
		return t
	}
	return t.UTC()
}
