package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/goalmateapp/goalmate-server/internal/http/response"
)

// CreateSharingRequest asks for an invitation code for one of the
// caller's goals.
type CreateSharingRequest struct {
	GoalID string `json:"goal_id"`
}

// RedeemSharingRequest carries the invitation code being accepted or rejected.
type RedeemSharingRequest struct {
	InvitationCode string `json:"invitation_code"`
}

// handleCreateSharing issues a new invitation code for a goal.
func (s *Server) handleCreateSharing(w http.ResponseWriter, r *http.Request) {
	userID, ok := userIDFromContext(r.Context())
	if !ok {
		response.Unauthorized(w, "Authentication required", s.logger)
		return
	}

	var req CreateSharingRequest
	if err := decodeJSON(r, &req); err != nil {
		response.HandleError(w, err, s.logger)
		return
	}
	if req.GoalID == "" {
		response.BadRequest(w, "goal_id is required", s.logger)
		return
	}

	sharing, err := s.sharingService.CreateInvitation(r.Context(), userID, req.GoalID)
	if err != nil {
		response.HandleError(w, err, s.logger)
		return
	}

	response.Created(w, sharing, s.logger)
}

// handleListSharings returns every sharing the user participates in.
func (s *Server) handleListSharings(w http.ResponseWriter, r *http.Request) {
	userID, ok := userIDFromContext(r.Context())
	if !ok {
		response.Unauthorized(w, "Authentication required", s.logger)
		return
	}

	sharings, err := s.sharingService.ListForUser(r.Context(), userID)
	if err != nil {
		response.HandleError(w, err, s.logger)
		return
	}

	response.Success(w, sharings, s.logger)
}

// handlePreviewSharing shows the goal and inviter behind a code.
func (s *Server) handlePreviewSharing(w http.ResponseWriter, r *http.Request) {
	preview, err := s.sharingService.Preview(r.Context(), chi.URLParam(r, "code"))
	if err != nil {
		response.HandleError(w, err, s.logger)
		return
	}

	response.Success(w, preview, s.logger)
}

// handleRedeemSharing accepts an invitation code for the authenticated user.
func (s *Server) handleRedeemSharing(w http.ResponseWriter, r *http.Request) {
	userID, ok := userIDFromContext(r.Context())
	if !ok {
		response.Unauthorized(w, "Authentication required", s.logger)
		return
	}

	var req RedeemSharingRequest
	if err := decodeJSON(r, &req); err != nil {
		response.HandleError(w, err, s.logger)
		return
	}
	if req.InvitationCode == "" {
		response.BadRequest(w, "invitation_code is required", s.logger)
		return
	}

	sharing, err := s.sharingService.Redeem(r.Context(), userID, req.InvitationCode)
	if err != nil {
		response.HandleError(w, err, s.logger)
		return
	}

	response.Success(w, sharing, s.logger)
}

// handleRejectSharing declines an invitation code.
func (s *Server) handleRejectSharing(w http.ResponseWriter, r *http.Request) {
	userID, ok := userIDFromContext(r.Context())
	if !ok {
		response.Unauthorized(w, "Authentication required", s.logger)
		return
	}

	var req RedeemSharingRequest
	if err := decodeJSON(r, &req); err != nil {
		response.HandleError(w, err, s.logger)
		return
	}
	if req.InvitationCode == "" {
		response.BadRequest(w, "invitation_code is required", s.logger)
		return
	}

	sharing, err := s.sharingService.Reject(r.Context(), userID, req.InvitationCode)
	if err != nil {
		response.HandleError(w, err, s.logger)
		return
	}

	response.Success(w, sharing, s.logger)
}
