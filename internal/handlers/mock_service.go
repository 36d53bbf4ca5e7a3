package handlers

import (
	"context"
	"sync"
	"time"

	"energy_usage/internal/models"
	"energy_usage/internal/service"

	"github.com/gin-gonic/gin"
)

// ---- Service Mocks ----

type mockUsage struct {
	mu       sync.Mutex
	report   models.UsageReport
	err      error
	lastUser int64
	lastDays int
	calls    int
}

func (m *mockUsage) GetXDaysUsageForUser(ctx context.Context, userID int64, days int) (models.UsageReport, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls++
	m.lastUser = userID
	m.lastDays = days
	return m.report, m.err
}

type mockAlertHistory struct {
	resp     []models.AlertRecord
	err      error
	lastUser int64
	lastFrom time.Time
	lastTo   time.Time
}

func (m *mockAlertHistory) List(ctx context.Context, userID int64, from, to time.Time) ([]models.AlertRecord, error) {
	m.lastUser = userID
	m.lastFrom = from
	m.lastTo = to
	return m.resp, m.err
}

// ---- Shared Test Helpers ----

func newTestRouter(s *service.Service) *gin.Engine {
	h := NewHandler(s, nil, 0)
	gin.SetMode(gin.TestMode)
	return h.InitRoutes()
}
