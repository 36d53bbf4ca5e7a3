package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"
	"time"

	"energy_usage/internal/models"
	"energy_usage/internal/service"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
)

// --- parseInterval unit tests ---

func TestParseInterval(t *testing.T) {
	h := NewHandler(&service.Service{}, nil, 0)

	cases := []struct {
		name string
		u    string
		want time.Duration
	}{
		{"default_when_missing", "/ws", defaultInterval},
		{"interval_string_valid", "/ws?interval=2s", 2 * time.Second},
		{"interval_ms_valid", "/ws?interval_ms=1500", 1500 * time.Millisecond},
		{"interval_too_small", "/ws?interval=200ms", defaultInterval},
		{"interval_too_large", "/ws?interval=2m", defaultInterval},
		{"interval_ms_too_large", "/ws?interval_ms=70000", defaultInterval},
		{"interval_invalid_string", "/ws?interval=bogus", defaultInterval},
		{"interval_ms_invalid", "/ws?interval_ms=NaN", defaultInterval},
		{"both_present_interval_wins", "/ws?interval=2s&interval_ms=1500", 2 * time.Second},
		{"both_present_invalid_interval_ms_used", "/ws?interval=bogus&interval_ms=2500", 2500 * time.Millisecond},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			w := httptest.NewRecorder()
			req := httptest.NewRequest(http.MethodGet, tc.u, nil)
			c, _ := gin.CreateTestContext(w)
			c.Request = req
			got := h.parseInterval(c)
			if got != tc.want {
				t.Fatalf("got %v, want %v for %s", got, tc.want, tc.u)
			}
		})
	}
}

// --- websocket integration tests ---

type envelope struct {
	Type  string          `json:"type"`
	Data  json.RawMessage `json:"data"`
	Error string          `json:"error"`
}

func dialUsage(t *testing.T, s *service.Service, query string) *websocket.Conn {
	t.Helper()
	r := newTestRouter(s)
	srv := httptest.NewServer(r)
	t.Cleanup(srv.Close)

	u, _ := url.Parse(srv.URL)
	u.Scheme = "ws"
	u.Path = "/ws/usage/42"
	u.RawQuery = query

	dialer := websocket.Dialer{HandshakeTimeout: 2 * time.Second}
	conn, _, err := dialer.Dial(u.String(), nil)
	if err != nil {
		t.Fatalf("dial error: %v", err)
	}
	t.Cleanup(func() { _ = conn.Close() })
	return conn
}

func TestWebSocket_UsageStream_InitialAndPeriodic(t *testing.T) {
	usage := &mockUsage{report: models.UsageReport{
		UserID:  42,
		Devices: []models.DeviceUsage{{ID: 7, Name: "Fridge", UserID: 42, EnergyConsumed: 12.3}},
	}}
	conn := dialUsage(t, &service.Service{Usage: usage}, "days=2&interval=1s")

	_ = conn.SetReadDeadline(time.Now().Add(1 * time.Second))
	var env envelope
	if err := conn.ReadJSON(&env); err != nil {
		t.Fatalf("read initial: %v", err)
	}
	if env.Type != "usage" || len(env.Data) == 0 {
		t.Fatalf("bad envelope: %+v", env)
	}
	var report models.UsageReport
	if err := json.Unmarshal(env.Data, &report); err != nil {
		t.Fatalf("unmarshal report: %v", err)
	}
	if report.UserID != 42 || len(report.Devices) != 1 || report.Devices[0].Name != "Fridge" {
		t.Fatalf("unexpected report: %+v", report)
	}

	// Read a subsequent tick
	_ = conn.SetReadDeadline(time.Now().Add(3 * time.Second))
	env = envelope{}
	if err := conn.ReadJSON(&env); err != nil {
		t.Fatalf("read second: %v", err)
	}
	if env.Type != "usage" {
		t.Fatalf("expected type=usage, got %+v", env)
	}

	usage.mu.Lock()
	defer usage.mu.Unlock()
	if usage.lastDays != 2 || usage.calls < 2 {
		t.Fatalf("service got days=%d calls=%d", usage.lastDays, usage.calls)
	}
}

func TestWebSocket_ReportError_SendsErrorAndCloses(t *testing.T) {
	usage := &mockUsage{err: errors.New("boom")}
	conn := dialUsage(t, &service.Service{Usage: usage}, "")

	_ = conn.SetReadDeadline(time.Now().Add(500 * time.Millisecond))
	var env envelope
	if err := conn.ReadJSON(&env); err != nil {
		t.Fatalf("expected error envelope, got %v", err)
	}
	if env.Type != "error" || env.Error == "" {
		t.Fatalf("unexpected envelope: %+v", env)
	}

	var raw json.RawMessage
	if err := conn.ReadJSON(&raw); err == nil {
		t.Fatalf("expected read error (closed), got message: %s", string(raw))
	}
}
