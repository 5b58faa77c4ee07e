package api

import (
	"net/http"
	"time"

	"github.com/goalmateapp/goalmate-server/internal/http/response"
)

// HealthResponse contains health check data in API responses.
type HealthResponse struct {
	Status string `json:"status"`
	Time   string `json:"time"`
}

// handleHealthCheck reports server liveness.
func (s *Server) handleHealthCheck(w http.ResponseWriter, _ *http.Request) {
	response.Success(w, HealthResponse{
		Status: "healthy",
		Time:   time.Now().UTC().Format(time.RFC3339),
	}, s.logger)
}
