package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/goalmateapp/goalmate-server/internal/http/response"
)

// handleMarkAttendance records today's attendance for the authenticated user.
func (s *Server) handleMarkAttendance(w http.ResponseWriter, r *http.Request) {
	userID, ok := userIDFromContext(r.Context())
	if !ok {
		response.Unauthorized(w, "Authentication required", s.logger)
		return
	}

	resp, err := s.attendanceService.Mark(r.Context(), userID, chi.URLParam(r, "id"))
	if err != nil {
		response.HandleError(w, err, s.logger)
		return
	}

	response.Success(w, resp, s.logger)
}

// handleAttendanceToday reports who has marked the goal today.
func (s *Server) handleAttendanceToday(w http.ResponseWriter, r *http.Request) {
	userID, ok := userIDFromContext(r.Context())
	if !ok {
		response.Unauthorized(w, "Authentication required", s.logger)
		return
	}

	resp, err := s.attendanceService.Today(r.Context(), userID, chi.URLParam(r, "id"))
	if err != nil {
		response.HandleError(w, err, s.logger)
		return
	}

	response.Success(w, resp, s.logger)
}

// handleAttendanceHistory returns the goal's full attendance ledger.
func (s *Server) handleAttendanceHistory(w http.ResponseWriter, r *http.Request) {
	userID, ok := userIDFromContext(r.Context())
	if !ok {
		response.Unauthorized(w, "Authentication required", s.logger)
		return
	}

	resp, err := s.attendanceService.History(r.Context(), userID, chi.URLParam(r, "id"))
	if err != nil {
		response.HandleError(w, err, s.logger)
		return
	}

	response.Success(w, resp, s.logger)
}
