package handlers

import (
	"context"
	"net/http"
	"time"

	"presence_monitor"
	"presence_monitor/internal/engine"
	"presence_monitor/internal/service"

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

type mockMonitor struct {
	status     presence_monitor.StatusSummary
	thresholds engine.ThresholdConfig
	setErr     error
	degraded   bool

	lastSet       engine.ThresholdConfig
	setCalls      int
	announceCalls int
}

func (m *mockMonitor) ProcessSnapshot(snap presence_monitor.DetectionSnapshot) (presence_monitor.CanonicalState, error) {
	return presence_monitor.CanonicalState{}, nil
}
func (m *mockMonitor) Status() presence_monitor.StatusSummary { return m.status }
func (m *mockMonitor) Thresholds() engine.ThresholdConfig     { return m.thresholds }
func (m *mockMonitor) SetThresholds(cfg engine.ThresholdConfig) error {
	m.setCalls++
	m.lastSet = cfg
	if m.setErr != nil {
		return m.setErr
	}
	m.thresholds = cfg
	return nil
}
func (m *mockMonitor) Degraded() bool { return m.degraded }
func (m *mockMonitor) Announce(ctx context.Context, kind presence_monitor.AlertKind, eventType, message string) {
	m.announceCalls++
}
func (m *mockMonitor) Run(ctx context.Context) {}

type mockSchedules struct {
	listResp  []presence_monitor.ScheduleEntry
	listErr   error
	addResp   presence_monitor.ScheduleEntry
	addErr    error
	delOK     bool
	delErr    error
	lastAddTO string
	lastAddC  string
	lastDelID string
}

func (m *mockSchedules) List(ctx context.Context) ([]presence_monitor.ScheduleEntry, error) {
	return m.listResp, m.listErr
}
func (m *mockSchedules) Add(ctx context.Context, timeOfDay, content string) (presence_monitor.ScheduleEntry, error) {
	m.lastAddTO = timeOfDay
	m.lastAddC = content
	return m.addResp, m.addErr
}
func (m *mockSchedules) Delete(ctx context.Context, id string) (bool, error) {
	m.lastDelID = id
	return m.delOK, m.delErr
}

type mockEventLog struct {
	resp     []presence_monitor.MonitorEvent
	err      error
	lastFrom time.Time
	lastTo   time.Time
	lastType string
}

func (m *mockEventLog) List(ctx context.Context, f service.LogFilter) ([]presence_monitor.MonitorEvent, error) {
	m.lastFrom = f.From
	m.lastTo = f.To
	m.lastType = f.Type
	return m.resp, m.err
}

// ---- Shared Test Helpers ----

func newTestRouter(s *service.Service) *gin.Engine {
	h := NewHandler(s, nil, nil)
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
