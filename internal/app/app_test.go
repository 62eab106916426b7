package app

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"

	"github.com/yungbote/video-insight-backend/internal/platform/gemini"
)

func newTestApp(t *testing.T) *App {
	t.Helper()
	gin.SetMode(gin.TestMode)
	clearEnv(t)
	t.Setenv("LOG_MODE", "test")
	t.Setenv("DB_DRIVER", "sqlite")
	t.Setenv("SQLITE_PATH", "file:app_wiring_test?mode=memory&cache=shared")
	t.Setenv("GEMINI_API_KEY", "test-key")

	a, err := New(context.Background())
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	t.Cleanup(a.Close)
	return a
}

func TestAppWiresRoutes(t *testing.T) {
	a := newTestApp(t)

	rec := httptest.NewRecorder()
	a.Router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthcheck", nil))
	if rec.Code != http.StatusOK || rec.Body.String() != "ok" {
		t.Fatalf("healthcheck: code=%d body=%q", rec.Code, rec.Body.String())
	}

	rec = httptest.NewRecorder()
	a.Router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/analyze/models", nil))
	var models struct {
		Models []string `json:"models"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &models); err != nil {
		t.Fatalf("decode models: %v", err)
	}
	if len(models.Models) != len(gemini.AllowedModels) {
		t.Fatalf("models: got=%v", models.Models)
	}
}

func TestAppRejectsInvalidURLWithoutNetwork(t *testing.T) {
	a := newTestApp(t)

	for _, path := range []string{"/api/video-analysis", "/api/video-transcript"} {
		req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(`{"videoUrl":"https://example.com/watch?v=abc"}`))
		req.Header.Set("Content-Type", "application/json")
		rec := httptest.NewRecorder()
		a.Router.ServeHTTP(rec, req)

		var body struct {
			Success bool   `json:"success"`
			Message string `json:"message"`
		}
		_ = json.Unmarshal(rec.Body.Bytes(), &body)
		if rec.Code != http.StatusBadRequest || body.Success || body.Message == "" {
			t.Fatalf("%s: code=%d body=%s", path, rec.Code, rec.Body.String())
		}
	}
}

func TestAppRejectsDisallowedModel(t *testing.T) {
	a := newTestApp(t)

	req := httptest.NewRequest(http.MethodPost, "/api/analyze", strings.NewReader(`{"model":"gpt-5","query":"hi"}`))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	a.Router.ServeHTTP(rec, req)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("code=%d body=%s", rec.Code, rec.Body.String())
	}
}
