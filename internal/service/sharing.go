package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/goalmateapp/goalmate-server/internal/domain"
	domainerrors "github.com/goalmateapp/goalmate-server/internal/errors"
	"github.com/goalmateapp/goalmate-server/internal/id"
	"github.com/goalmateapp/goalmate-server/internal/store"
)

// maxCodeAttempts bounds invitation code regeneration when a freshly
// generated code collides with an existing one.
const maxCodeAttempts = 5

// SharingService manages goal sharing invitations: issuing codes,
// previewing, and redemption.
type SharingService struct {
	store  *store.Store
	logger *slog.Logger

	// now is swapped out in tests to pin the calendar.
	now func() time.Time
}

// NewSharingService creates a new sharing service.
func NewSharingService(st *store.Store, logger *slog.Logger) *SharingService {
	return &SharingService{
		store:  st,
		logger: logger,
		now:    time.Now,
	}
}

// SharingPreview describes an invitation to a user deciding whether to join.
type SharingPreview struct {
	InvitationCode string               `json:"invitation_code"`
	Status         domain.SharingStatus `json:"status"`
	InvitedBy      string               `json:"invited_by"`
	Goal           SharingPreviewGoal   `json:"goal"`
}

// SharingPreviewGoal is the subset of goal fields shown before joining.
type SharingPreviewGoal struct {
	ID        string                  `json:"id"`
	Title     string                  `json:"title"`
	Duration  domain.DurationCategory `json:"duration"`
	StartDate string                  `json:"start_date"`
	Status    domain.GoalStatus       `json:"status"`
}

// CreateInvitation issues a new invitation code for a goal.
// Only the owner may invite, and a goal with an accepted partner cannot
// be shared again.
func (s *SharingService) CreateInvitation(ctx context.Context, userID, goalID string) (*domain.Sharing, error) {
	goal, err := s.store.GetGoal(ctx, goalID)
	if errors.Is(err, store.ErrGoalNotFound) {
		return nil, domainerrors.NotFound("goal not found")
	}
	if err != nil {
		return nil, fmt.Errorf("get goal: %w", err)
	}
	if goal.OwnerID != userID {
		return nil, domainerrors.Forbidden("only the goal owner can share it")
	}

	if _, err := s.store.AcceptedSharingForGoal(ctx, goalID); err == nil {
		return nil, domainerrors.Conflict("goal already has a partner")
	} else if !errors.Is(err, store.ErrSharingNotFound) {
		return nil, fmt.Errorf("check accepted sharing: %w", err)
	}

	sharingID, err := id.Generate("sharing")
	if err != nil {
		return nil, fmt.Errorf("generate sharing ID: %w", err)
	}

	sharing := &domain.Sharing{
		GoalID:         goalID,
		SharedByUserID: userID,
		Status:         domain.SharingPending,
	}
	sharing.ID = sharingID
	sharing.InitTimestamps()

	// Codes are short, so regenerate on the rare collision.
	for attempt := 0; ; attempt++ {
		code, err := domain.GenerateInvitationCode()
		if err != nil {
			return nil, err
		}
		sharing.InvitationCode = code

		err = s.store.CreateSharing(ctx, sharing)
		if err == nil {
			break
		}
		if errors.Is(err, store.ErrCodeExists) && attempt < maxCodeAttempts-1 {
			continue
		}
		return nil, fmt.Errorf("create sharing: %w", err)
	}

	s.logger.Info("invitation created",
		"sharing_id", sharing.ID,
		"goal_id", goalID,
		"shared_by", userID,
	)

	return sharing, nil
}

// Preview resolves an invitation code to the goal and inviter behind it,
// without joining anything.
func (s *SharingService) Preview(ctx context.Context, code string) (*SharingPreview, error) {
	sharing, err := s.store.GetSharingByCode(ctx, code)
	if errors.Is(err, store.ErrSharingNotFound) {
		return nil, domainerrors.NotFound("invitation not found")
	}
	if err != nil {
		return nil, fmt.Errorf("get sharing: %w", err)
	}

	goal, err := s.store.GetGoal(ctx, sharing.GoalID)
	if errors.Is(err, store.ErrGoalNotFound) {
		return nil, domainerrors.NotFound("the goal behind this invitation no longer exists")
	}
	if err != nil {
		return nil, fmt.Errorf("get goal: %w", err)
	}

	inviter, err := s.store.GetUser(ctx, sharing.SharedByUserID)
	if err != nil {
		return nil, fmt.Errorf("get inviter: %w", err)
	}

	// The stored status may predate the goal's start; show the current one.
	goal.Refresh(domain.Day(s.now()))

	return &SharingPreview{
		InvitationCode: sharing.InvitationCode,
		Status:         sharing.Status,
		InvitedBy:      inviter.Name(),
		Goal: SharingPreviewGoal{
			ID:        goal.ID,
			Title:     goal.Title,
			Duration:  goal.DurationCategory,
			StartDate: domain.DateKey(goal.StartDate),
			Status:    goal.Status,
		},
	}, nil
}

// Redeem accepts an invitation code on behalf of a user. The pending
// check and the acceptance commit in one transaction, so two users
// racing for the same code cannot both win.
func (s *SharingService) Redeem(ctx context.Context, userID, code string) (*domain.Sharing, error) {
	sharing, err := s.store.GetSharingByCode(ctx, code)
	if errors.Is(err, store.ErrSharingNotFound) {
		return nil, domainerrors.NotFound("invitation not found")
	}
	if err != nil {
		return nil, fmt.Errorf("get sharing: %w", err)
	}

	if sharing.SharedByUserID == userID {
		return nil, domainerrors.Conflict("you cannot accept your own invitation")
	}

	// A goal can hold one partner. The accepted index enforces this inside
	// the transaction below; checking first gives a cleaner message for the
	// common sequential case.
	if _, err := s.store.AcceptedSharingForGoal(ctx, sharing.GoalID); err == nil {
		return nil, domainerrors.Conflict("goal already has a partner")
	} else if !errors.Is(err, store.ErrSharingNotFound) {
		return nil, fmt.Errorf("check accepted sharing: %w", err)
	}

	accepted, err := s.store.MutateSharing(ctx, sharing.ID, func(sh *domain.Sharing) error {
		if !sh.IsPending() {
			return domainerrors.Conflict("invitation has already been used")
		}
		sh.SharedToUserID = userID
		sh.Status = domain.SharingAccepted
		return nil
	})
	if err != nil {
		// A concurrent accept through a different code trips the unique
		// accepted-per-goal index.
		if errors.Is(err, store.ErrAlreadyExists) {
			return nil, domainerrors.Conflict("goal already has a partner")
		}
		var domainErr *domainerrors.Error
		if errors.As(err, &domainErr) {
			return nil, err
		}
		return nil, fmt.Errorf("accept sharing: %w", err)
	}

	for _, partnerID := range []string{accepted.SharedByUserID, accepted.SharedToUserID} {
		if _, err := s.store.AddGoalPartner(ctx, partnerID); err != nil {
			// The sharing is accepted regardless; the counter is cosmetic.
			s.logger.Warn("failed to increment goal partner counter", "user_id", partnerID, "error", err)
		}
	}

	s.logger.Info("invitation accepted",
		"sharing_id", accepted.ID,
		"goal_id", accepted.GoalID,
		"shared_by", accepted.SharedByUserID,
		"shared_to", accepted.SharedToUserID,
	)

	return accepted, nil
}

// Reject declines an invitation code. The code becomes unusable; the
// inviter's access to their goal is untouched.
func (s *SharingService) Reject(ctx context.Context, userID, code string) (*domain.Sharing, error) {
	sharing, err := s.store.GetSharingByCode(ctx, code)
	if errors.Is(err, store.ErrSharingNotFound) {
		return nil, domainerrors.NotFound("invitation not found")
	}
	if err != nil {
		return nil, fmt.Errorf("get sharing: %w", err)
	}

	if sharing.SharedByUserID == userID {
		return nil, domainerrors.Conflict("you cannot reject your own invitation")
	}

	rejected, err := s.store.MutateSharing(ctx, sharing.ID, func(sh *domain.Sharing) error {
		if !sh.IsPending() {
			return domainerrors.Conflict("invitation has already been used")
		}
		sh.SharedToUserID = userID
		sh.Status = domain.SharingRejected
		return nil
	})
	if err != nil {
		var domainErr *domainerrors.Error
		if errors.As(err, &domainErr) {
			return nil, err
		}
		return nil, fmt.Errorf("reject sharing: %w", err)
	}

	s.logger.Info("invitation rejected",
		"sharing_id", rejected.ID,
		"goal_id", rejected.GoalID,
		"rejected_by", userID,
	)

	return rejected, nil
}

// ListForUser returns every sharing the user participates in, on either side.
func (s *SharingService) ListForUser(ctx context.Context, userID string) ([]*domain.Sharing, error) {
	sharings, err := s.store.ListSharingsForUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("list sharings: %w", err)
	}
	return sharings, nil
}
