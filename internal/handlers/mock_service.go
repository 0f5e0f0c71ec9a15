package handlers

import (
	"context"
	"net/http"
	"sync"
	"time"

	"duckdns_agent/internal/models"
	"duckdns_agent/internal/service"

	"github.com/gin-gonic/gin"
)

// ---- Service Mocks ----

type mockAuth struct {
	signUpID      int
	signUpErr     error
	genTokenToken string
	genTokenErr   error
	parseID       int
	parseErr      error

	lastSignUpUsername string
	lastSignUpPassword string
	lastGenUsername    string
	lastGenPassword    string
	lastParseToken     string
}

func (m *mockAuth) SignUp(username, password string) (int, error) {
	m.lastSignUpUsername = username
	m.lastSignUpPassword = password
	return m.signUpID, m.signUpErr
}
func (m *mockAuth) GenerateToken(username, password string) (string, error) {
	m.lastGenUsername = username
	m.lastGenPassword = password
	return m.genTokenToken, m.genTokenErr
}
func (m *mockAuth) ParseToken(token string) (int, error) {
	m.lastParseToken = token
	return m.parseID, m.parseErr
}

type mockRunner struct {
	startErr error
	stopErr  error
	state    service.RunnerState

	startCalled int
	stopCalled  int
	lastReq     models.UpdateRequest
}

func (m *mockRunner) Start(req models.UpdateRequest) error {
	m.startCalled++
	m.lastReq = req
	return m.startErr
}
func (m *mockRunner) Stop() error {
	m.stopCalled++
	return m.stopErr
}
func (m *mockRunner) State() service.RunnerState { return m.state }

type mockMonitoring struct {
	status models.UpdaterStatus
	err    error
}

func (m *mockMonitoring) GetStatus(ctx context.Context) (models.UpdaterStatus, error) {
	return m.status, m.err
}

type mockEventLog struct {
	mu       sync.Mutex
	resp     []models.UpdateEvent
	err      error
	lastFrom time.Time
	lastTo   time.Time
	lastType string
}

func (m *mockEventLog) List(ctx context.Context, f service.LogFilter) ([]models.UpdateEvent, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.lastFrom = f.From
	m.lastTo = f.To
	m.lastType = f.Type
	return m.resp, m.err
}

func (m *mockEventLog) setResp(events []models.UpdateEvent) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.resp = events
}

// ---- Shared Test Helpers ----

func newTestRouter(s *service.Service) *gin.Engine {
	h := NewHandler(s, nil)
	gin.SetMode(gin.TestMode)
	return h.InitRoutes()
}

func authHeader(token string) http.Header {
	h := http.Header{}
	if token != "" {
		h.Set("Authorization", "Bearer "+token)
	}
	return h
}
