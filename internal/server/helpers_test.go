package server

import (
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestPathParam(t *testing.T) {
	tests := []struct {
		path     string
		prefix   string
		suffix   string
		expected string
	}{
		{"/api/charts/ABC/3", "/api/charts/", "/", "ABC"},
		{"/api/charts/ABC/3", "/api/charts/", "", "ABC"},
		{"/api/charts/ABC", "/api/charts/", "", "ABC"},
		{"/other/path", "/api/charts/", "", ""},
	}

	for _, tt := range tests {
		req := httptest.NewRequest(http.MethodGet, tt.path, nil)
		if got := PathParam(req, tt.prefix, tt.suffix); got != tt.expected {
			t.Errorf("PathParam(%q, %q, %q) = %q, want %q", tt.path, tt.prefix, tt.suffix, got, tt.expected)
		}
	}
}

func TestRequireMethod_SetsAllowHeader(t *testing.T) {
	req := httptest.NewRequest(http.MethodDelete, "/api/stocks", nil)
	rr := httptest.NewRecorder()

	if RequireMethod(rr, req, http.MethodGet, http.MethodPost) {
		t.Error("Expected RequireMethod to reject DELETE")
	}
	if rr.Code != http.StatusMethodNotAllowed {
		t.Errorf("Expected 405, got %d", rr.Code)
	}
	if allow := rr.Header().Get("Allow"); allow != "GET, POST" {
		t.Errorf("Expected Allow header GET, POST, got %q", allow)
	}
}
