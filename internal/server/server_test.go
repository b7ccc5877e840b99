package server

import (
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/hostelms/key-module/internal/api/handlers"
	"github.com/hostelms/key-module/internal/config"
)

// newTestServer собирает сервер с пустыми сервисами и без JWT middleware.
// Защищённые маршруты в такой конфигурации отвечают 401 (claims отсутствуют).
func newTestServer(t *testing.T) *Server {
	t.Helper()

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	health := handlers.NewHealthHandler(nil, nil)
	handler := handlers.NewAPIHandler(health, nil, nil, nil, nil, nil, logger)

	cfg := &config.Config{Port: 8000}
	return New(cfg, logger, handler, nil)
}

func TestRouting_Health(t *testing.T) {
	srv := newTestServer(t)

	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health/live", nil))

	if rec.Code != http.StatusOK {
		t.Errorf("GET /health/live: status = %d, ожидался 200", rec.Code)
	}
	if id := rec.Header().Get("X-Request-Id"); id == "" {
		t.Error("ответ должен содержать заголовок X-Request-Id")
	}
}

func TestRouting_Metrics(t *testing.T) {
	srv := newTestServer(t)

	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	if rec.Code != http.StatusOK {
		t.Errorf("GET /metrics: status = %d, ожидался 200", rec.Code)
	}
	if body := rec.Body.String(); !strings.Contains(body, "go_goroutines") {
		t.Error("в ответе /metrics нет стандартных метрик Go")
	}
}

// TestRouting_ProtectedWithoutAuth — маршруты с проверкой роли
// без аутентификации возвращают 401 в стандартном формате ошибки.
func TestRouting_ProtectedWithoutAuth(t *testing.T) {
	paths := []string{
		"/api/v1/give-access",
		"/api/v1/approve-night-pass",
		"/api/v1/manage-student",
		"/api/v1/add-security",
	}

	srv := newTestServer(t)

	for _, path := range paths {
		t.Run(path, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodPost, path, strings.NewReader("{}"))
			rec := httptest.NewRecorder()
			srv.Handler().ServeHTTP(rec, req)

			if rec.Code != http.StatusUnauthorized {
				t.Errorf("status = %d, ожидался 401", rec.Code)
			}

			var body struct {
				Error struct {
					Code string `json:"code"`
				} `json:"error"`
			}
			if err := json.NewDecoder(rec.Body).Decode(&body); err != nil {
				t.Fatalf("декодирование тела: %v", err)
			}
			if body.Error.Code != "UNAUTHORIZED" {
				t.Errorf("code = %q, ожидался UNAUTHORIZED", body.Error.Code)
			}
		})
	}
}

func TestRouting_UnknownPath(t *testing.T) {
	srv := newTestServer(t)

	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/nope", nil))

	if rec.Code != http.StatusNotFound {
		t.Errorf("status = %d, ожидался 404", rec.Code)
	}
}

// TestRouting_RequestIDPropagated — переданный клиентом X-Request-Id сохраняется.
func TestRouting_RequestIDPropagated(t *testing.T) {
	srv := newTestServer(t)

	req := httptest.NewRequest(http.MethodGet, "/health/live", nil)
	req.Header.Set("X-Request-Id", "trace-42")
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)

	if got := rec.Header().Get("X-Request-Id"); got != "trace-42" {
		t.Errorf("X-Request-Id = %q, ожидался trace-42", got)
	}
}
