package service

import (
	"context"

	"duckdns_agent/internal/logger"
	"duckdns_agent/internal/models"
	"duckdns_agent/internal/repository"
)

type Authorization interface {
	SignUp(username, password string) (int, error)
	GenerateToken(username, password string) (string, error)
	ParseToken(accessToken string) (int, error)
}

// Runner owns the single repeating-update lifecycle: idle → running →
// stopping → idle. Start is non-blocking; Stop signals cancellation without
// waiting for the loop to exit.
type Runner interface {
	Start(req models.UpdateRequest) error
	Stop() error
	State() RunnerState
}

// Monitoring exposes the read-only status snapshot (state, last outcome,
// button-enablement signals).
type Monitoring interface {
	GetStatus(ctx context.Context) (models.UpdaterStatus, error)
}

// EventLog exposes append-only logs with filtering access.
type EventLog interface {
	List(ctx context.Context, f LogFilter) ([]models.UpdateEvent, error)
}

// UpdateClient performs the single outbound update call of one tick.
type UpdateClient interface {
	Send(subdomain, token string) (string, error)
}

//
// Root Service aggregates all sub-services.
//

type Service struct {
	Runner
	Monitoring
	EventLog
	Authorization
}

// NewService wires the repository layer, the DuckDNS client and the event
// sink into concrete services.
func NewService(repos *repository.Repository, client UpdateClient, sink EventSink, signingKey string, log *logger.Logger) *Service {
	runner := NewRunnerService(client, sink, repos.StatusRepo, log)
	return &Service{
		Runner:        runner,
		Monitoring:    NewMonitoringService(repos.StatusRepo, runner),
		EventLog:      NewEventLogService(repos.EventRepo),
		Authorization: NewAuthService(repos.Auth, signingKey),
	}
}
