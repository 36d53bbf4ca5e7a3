package handlers

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"energy_usage/internal/service"

	"github.com/gin-gonic/gin"
)

// minimal router wiring only the middleware + an echo endpoint
func newMiddlewareOnlyRouter() *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	h := NewHandler(&service.Service{}, nil, 0)
	r.GET("/users/:userId", h.userIdMiddleware, func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"ok": true, "userId": userIDFrom(c)})
	})
	return r
}

func TestUserIDMiddleware_Errors(t *testing.T) {
	cases := []struct {
		name string
		path string
	}{
		{name: "not a number", path: "/users/abc"},
		{name: "zero", path: "/users/0"},
		{name: "negative", path: "/users/-4"},
		{name: "overflow", path: "/users/99999999999999999999"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			r := newMiddlewareOnlyRouter()

			w := httptest.NewRecorder()
			r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, tc.path, nil))

			if w.Code != http.StatusBadRequest {
				t.Fatalf("status: got %d, want 400 (body=%s)", w.Code, w.Body.String())
			}
			var out struct {
				Error string `json:"error"`
			}
			_ = json.Unmarshal(w.Body.Bytes(), &out)
			if out.Error != "invalid user id" {
				t.Fatalf("error message: got %q", out.Error)
			}
		})
	}
}

func TestUserIDMiddleware_SuccessSetsUserIDAndProceeds(t *testing.T) {
	r := newMiddlewareOnlyRouter()

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/users/123", nil))

	if w.Code != http.StatusOK {
		t.Fatalf("status: got %d, want %d; body=%s", w.Code, http.StatusOK, w.Body.String())
	}
	var resp struct {
		OK     bool  `json:"ok"`
		UserID int64 `json:"userId"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if !resp.OK || resp.UserID != 123 {
		t.Fatalf("unexpected response: %+v", resp)
	}
}
