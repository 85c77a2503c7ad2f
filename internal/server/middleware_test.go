package server

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/prakhar82/stock-analyzer/internal/common"
)

func TestRecoveryMiddleware(t *testing.T) {
	handler := recoveryMiddleware(common.NewSilentLogger())(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		panic("boom")
	}))

	req := httptest.NewRequest(http.MethodGet, "/api/stocks", nil)
	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, req)

	if rr.Code != http.StatusInternalServerError {
		t.Errorf("Expected 500 after panic, got %d", rr.Code)
	}
}

func TestCORSMiddleware_Preflight(t *testing.T) {
	handler := corsMiddleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Error("Handler should not run for OPTIONS preflight")
	}))

	req := httptest.NewRequest(http.MethodOptions, "/api/stocks", nil)
	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, req)

	if rr.Code != http.StatusNoContent {
		t.Errorf("Expected 204 for preflight, got %d", rr.Code)
	}
	if rr.Header().Get("Access-Control-Allow-Origin") != "*" {
		t.Errorf("Expected CORS origin header")
	}
}

func TestCorrelationIDMiddleware_Generated(t *testing.T) {
	handler := correlationIDMiddleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	req := httptest.NewRequest(http.MethodGet, "/api/health", nil)
	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, req)

	if corrID := rr.Header().Get("X-Correlation-ID"); len(corrID) != 8 {
		t.Errorf("Expected generated 8-char correlation ID, got %q", corrID)
	}
}

func TestCorrelationIDMiddleware_Propagated(t *testing.T) {
	handler := correlationIDMiddleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	req := httptest.NewRequest(http.MethodGet, "/api/health", nil)
	req.Header.Set("X-Request-ID", "req-123")
	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, req)

	if corrID := rr.Header().Get("X-Correlation-ID"); corrID != "req-123" {
		t.Errorf("Expected propagated correlation ID req-123, got %q", corrID)
	}
}
