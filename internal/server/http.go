package server

import (
	"encoding/json"
	"net/http"
	"time"
)

// NewHTTPHandler returns an http.Handler with all routes registered.
// tokens maps auth tokens to owner ids; when empty, auth is disabled and
// every request runs as the default owner.
func (s *Server) NewHTTPHandler(tokens map[string]string) http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /v1/formats", s.handleCreateFormat)
	mux.HandleFunc("GET /v1/formats", s.handleListFormats)
	mux.HandleFunc("GET /v1/formats/{id}", s.handleGetFormat)
	mux.HandleFunc("PATCH /v1/formats/{id}", s.handleUpdateFormat)
	mux.HandleFunc("DELETE /v1/formats/{id}", s.handleDeleteFormat)
	mux.HandleFunc("POST /v1/instances", s.handleCreateInstance)
	mux.HandleFunc("GET /v1/instances", s.handleListInstances)
	mux.HandleFunc("GET /v1/instances/{id}", s.handleGetInstance)
	mux.HandleFunc("DELETE /v1/instances/{id}", s.handleDeleteInstance)
	mux.HandleFunc("POST /v1/instances/{id}/deploy", s.handleDeploy)
	mux.HandleFunc("GET /v1/deployments", s.handleListDeployments)
	mux.HandleFunc("GET /v1/deployments/updates", s.handleListUpdates)
	mux.HandleFunc("GET /v1/deployments/{id}", s.handleGetDeployment)
	mux.HandleFunc("DELETE /v1/deployments/{id}", s.handleUntrack)
	mux.HandleFunc("GET /v1/health", s.handleHealth)
	return AuthMiddleware(tokens, s.logRequests(mux))
}

// handleHealth handles GET /v1/health.
func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// logRequests logs the method, path, and duration of every request.
func (s *Server) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		next.ServeHTTP(w, r)
		s.logger.Info("request completed",
			"method", r.Method,
			"path", r.URL.Path,
			"duration", time.Since(start),
		)
	})
}

// writeJSON writes a JSON response with the given status code.
func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

// writeError writes a JSON error response.
func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}
