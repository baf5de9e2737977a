package main

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"i4.energy/across/telenode/node"
)

// Server exposes the node's status snapshot over HTTP
type Server struct {
	Logger *slog.Logger
	// Status returns the current snapshot; it is called from the HTTP goroutines
	Status func() node.Status
}

// ServeHTTP implements the http.Handler interface for the Server struct
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /status", s.handleStatus)
	mux.HandleFunc("GET /healthz", s.handleHealth)
	mux.ServeHTTP(w, r)
}

func (s *Server) sendError(w http.ResponseWriter, message string, statusCode int) {
	if message == "" {
		w.WriteHeader(statusCode)
		return
	}

	type ErrorResponse struct {
		Message string `json:"message"`
	}
	resp := ErrorResponse{Message: message}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	json.NewEncoder(w).Encode(resp)
}

// handleStatus writes the full snapshot as JSON
func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(s.Status()); err != nil {
		s.Logger.Error("Failed to encode status", "error", err)
	}
}

// handleHealth answers 200 once the modem is ready and 503 before that
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	status := s.Status()
	if !status.Ready {
		message := "modem not ready"
		if status.InitError != "" {
			message = status.InitError
		}
		s.sendError(w, message, http.StatusServiceUnavailable)
		return
	}
	w.WriteHeader(http.StatusOK)
}
