package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/goalmateapp/goalmate-server/internal/http/response"
	"github.com/goalmateapp/goalmate-server/internal/service"
)

// handleCreateGoal creates a new goal for the authenticated user.
func (s *Server) handleCreateGoal(w http.ResponseWriter, r *http.Request) {
	userID, ok := userIDFromContext(r.Context())
	if !ok {
		response.Unauthorized(w, "Authentication required", s.logger)
		return
	}

	var req service.CreateGoalRequest
	if err := decodeJSON(r, &req); err != nil {
		response.HandleError(w, err, s.logger)
		return
	}

	goal, err := s.goalService.CreateGoal(r.Context(), userID, req)
	if err != nil {
		response.HandleError(w, err, s.logger)
		return
	}

	response.Created(w, goal, s.logger)
}

// handleListGoals returns the user's own and joined goals.
func (s *Server) handleListGoals(w http.ResponseWriter, r *http.Request) {
	userID, ok := userIDFromContext(r.Context())
	if !ok {
		response.Unauthorized(w, "Authentication required", s.logger)
		return
	}

	goals, err := s.goalService.ListGoals(r.Context(), userID)
	if err != nil {
		response.HandleError(w, err, s.logger)
		return
	}

	response.Success(w, goals, s.logger)
}

// handleGetGoal returns a single goal with freshly derived fields.
func (s *Server) handleGetGoal(w http.ResponseWriter, r *http.Request) {
	userID, ok := userIDFromContext(r.Context())
	if !ok {
		response.Unauthorized(w, "Authentication required", s.logger)
		return
	}

	goal, err := s.goalService.GetGoal(r.Context(), userID, chi.URLParam(r, "id"))
	if err != nil {
		response.HandleError(w, err, s.logger)
		return
	}

	response.Success(w, goal, s.logger)
}

// handleDeleteGoal removes a goal and its sharings.
func (s *Server) handleDeleteGoal(w http.ResponseWriter, r *http.Request) {
	userID, ok := userIDFromContext(r.Context())
	if !ok {
		response.Unauthorized(w, "Authentication required", s.logger)
		return
	}

	resp, err := s.goalService.DeleteGoal(r.Context(), userID, chi.URLParam(r, "id"))
	if err != nil {
		response.HandleError(w, err, s.logger)
		return
	}

	response.Success(w, resp, s.logger)
}

// handleRefreshGoal recomputes a goal's derived status, progress, and stages.
func (s *Server) handleRefreshGoal(w http.ResponseWriter, r *http.Request) {
	userID, ok := userIDFromContext(r.Context())
	if !ok {
		response.Unauthorized(w, "Authentication required", s.logger)
		return
	}

	goal, err := s.goalService.RefreshGoal(r.Context(), userID, chi.URLParam(r, "id"))
	if err != nil {
		response.HandleError(w, err, s.logger)
		return
	}

	response.Success(w, goal, s.logger)
}
