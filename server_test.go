package main

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"i4.energy/across/telenode/node"
)

func newTestServer(status node.Status) *Server {
	return &Server{
		Logger: slog.New(slog.DiscardHandler),
		Status: func() node.Status { return status },
	}
}

func TestServer_Status(t *testing.T) {
	s := newTestServer(node.Status{Ready: true, SMSState: "idle", CycleState: "idle", Counter: 4, QueuedReport: 1})

	rec := httptest.NewRecorder()
	s.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/status", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if ct := rec.Header().Get("Content-Type"); ct != "application/json" {
		t.Errorf("unexpected content type %q", ct)
	}

	var got node.Status
	if err := json.NewDecoder(rec.Body).Decode(&got); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if got.Counter != 4 || got.QueuedReport != 1 || !got.Ready {
		t.Errorf("unexpected status %+v", got)
	}
}

func TestServer_Health(t *testing.T) {
	tests := []struct {
		name     string
		status   node.Status
		wantCode int
		wantBody string
	}{
		{name: "ready", status: node.Status{Ready: true}, wantCode: http.StatusOK},
		{name: "starting", status: node.Status{}, wantCode: http.StatusServiceUnavailable, wantBody: "modem not ready"},
		{name: "init failed", status: node.Status{InitError: "modem: open port: no such file"}, wantCode: http.StatusServiceUnavailable, wantBody: "no such file"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			newTestServer(tt.status).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))

			if rec.Code != tt.wantCode {
				t.Errorf("expected %d, got %d", tt.wantCode, rec.Code)
			}
			if !strings.Contains(rec.Body.String(), tt.wantBody) {
				t.Errorf("expected body to contain %q, got %q", tt.wantBody, rec.Body.String())
			}
		})
	}
}

func TestServer_MethodNotAllowed(t *testing.T) {
	rec := httptest.NewRecorder()
	newTestServer(node.Status{}).ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/status", nil))

	if rec.Code != http.StatusMethodNotAllowed {
		t.Errorf("expected 405, got %d", rec.Code)
	}
}
