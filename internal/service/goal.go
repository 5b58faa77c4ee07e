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
	"github.com/goalmateapp/goalmate-server/internal/validation"
)

// GoalService orchestrates goal lifecycle operations: creation, listing,
// deletion, and the derived status/progress/stage refresh.
type GoalService struct {
	store     *store.Store
	validator *validation.Validator
	logger    *slog.Logger

	// now is swapped out in tests to pin the calendar.
	now func() time.Time
}

// NewGoalService creates a new goal service.
func NewGoalService(st *store.Store, validator *validation.Validator, logger *slog.Logger) *GoalService {
	return &GoalService{
		store:     st,
		validator: validator,
		logger:    logger,
		now:       time.Now,
	}
}

// CreateGoalRequest contains the data for a new goal.
type CreateGoalRequest struct {
	Title       string `json:"title" validate:"required,max=200"`
	Description string `json:"description" validate:"max=2000"`
	Message     string `json:"message" validate:"max=500"`
	Duration    string `json:"duration" validate:"required,oneof=week month 3months 6months 12months unlimited"`
	StartDate   string `json:"start_date" validate:"required,datetime=2006-01-02"`
}

// DeleteGoalResponse confirms a deletion with a human-readable message.
type DeleteGoalResponse struct {
	Message string `json:"message"`
}

// CreateGoal creates a goal owned by the given user. Derived fields are
// computed immediately so the response already carries status and stage.
func (s *GoalService) CreateGoal(ctx context.Context, ownerID string, req CreateGoalRequest) (*domain.Goal, error) {
	if err := s.validator.Validate(req); err != nil {
		return nil, err
	}

	duration, ok := domain.ParseDurationCategory(req.Duration)
	if !ok {
		return nil, domainerrors.Validationf("invalid duration %q", req.Duration)
	}

	startDate, err := time.ParseInLocation(time.DateOnly, req.StartDate, time.UTC)
	if err != nil {
		return nil, domainerrors.Validationf("invalid start date %q", req.StartDate)
	}

	goalID, err := id.Generate("goal")
	if err != nil {
		return nil, fmt.Errorf("generate goal ID: %w", err)
	}

	goal := &domain.Goal{
		OwnerID:          ownerID,
		Title:            req.Title,
		Description:      req.Description,
		Message:          req.Message,
		DurationCategory: duration,
		StartDate:        startDate,
	}
	goal.ID = goalID
	goal.InitTimestamps()
	goal.Refresh(s.today())

	if err := s.store.CreateGoal(ctx, goal); err != nil {
		return nil, fmt.Errorf("create goal: %w", err)
	}

	s.logger.Info("goal created",
		"goal_id", goal.ID,
		"owner_id", ownerID,
		"duration", goal.DurationCategory,
		"status", goal.Status,
	)

	return goal, nil
}

// GetGoal loads a goal for a user who owns it or joined it through an
// accepted sharing. Derived fields are refreshed before returning; when
// the calendar moved them, the change is persisted.
func (s *GoalService) GetGoal(ctx context.Context, userID, goalID string) (*domain.Goal, error) {
	goal, err := s.authorizedGoal(ctx, userID, goalID)
	if err != nil {
		return nil, err
	}
	return s.refreshAndPersist(ctx, goal)
}

// ListGoals returns the user's own goals plus the goals shared to them,
// each with derived fields refreshed.
func (s *GoalService) ListGoals(ctx context.Context, userID string) ([]*domain.Goal, error) {
	goals, err := s.store.ListGoalsForOwner(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("list goals: %w", err)
	}

	// Goals joined through accepted sharings.
	sharings, err := s.store.ListSharingsForUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("list sharings: %w", err)
	}
	for _, sharing := range sharings {
		if !sharing.IsAccepted() || sharing.SharedToUserID != userID {
			continue
		}
		goal, err := s.store.GetGoal(ctx, sharing.GoalID)
		if errors.Is(err, store.ErrGoalNotFound) {
			continue // goal deleted after sharing; skip
		}
		if err != nil {
			return nil, fmt.Errorf("get shared goal: %w", err)
		}
		goals = append(goals, goal)
	}

	refreshed := make([]*domain.Goal, 0, len(goals))
	for _, goal := range goals {
		goal, err := s.refreshAndPersist(ctx, goal)
		if err != nil {
			return nil, err
		}
		refreshed = append(refreshed, goal)
	}
	return refreshed, nil
}

// RefreshGoal forces a recomputation of a goal's derived fields.
func (s *GoalService) RefreshGoal(ctx context.Context, userID, goalID string) (*domain.Goal, error) {
	return s.GetGoal(ctx, userID, goalID)
}

// DeleteGoal removes a goal and every sharing attached to it.
// Only the owner may delete.
func (s *GoalService) DeleteGoal(ctx context.Context, userID, goalID string) (*DeleteGoalResponse, error) {
	goal, err := s.store.GetGoal(ctx, goalID)
	if errors.Is(err, store.ErrGoalNotFound) {
		return nil, domainerrors.NotFound("goal not found")
	}
	if err != nil {
		return nil, fmt.Errorf("get goal: %w", err)
	}
	if goal.OwnerID != userID {
		return nil, domainerrors.Forbidden("only the goal owner can delete it")
	}

	sharings, err := s.store.ListSharingsForGoal(ctx, goalID)
	if err != nil {
		return nil, fmt.Errorf("list sharings: %w", err)
	}
	for _, sharing := range sharings {
		if err := s.store.DeleteSharing(ctx, sharing.ID); err != nil {
			return nil, fmt.Errorf("delete sharing: %w", err)
		}
	}

	if err := s.store.DeleteGoal(ctx, goalID); err != nil {
		return nil, fmt.Errorf("delete goal: %w", err)
	}

	s.logger.Info("goal deleted", "goal_id", goalID, "owner_id", userID, "sharings_removed", len(sharings))

	return &DeleteGoalResponse{
		Message: fmt.Sprintf("goal %q was deleted", goal.Title),
	}, nil
}

// RefreshAllGoals recomputes derived fields for every goal in the store.
// Runs periodically in the background so dormant goals do not drift.
func (s *GoalService) RefreshAllGoals(ctx context.Context) (int, error) {
	goals, err := s.store.ListAllGoals(ctx)
	if err != nil {
		return 0, fmt.Errorf("list all goals: %w", err)
	}

	today := s.today()
	updated := 0
	for _, goal := range goals {
		if err := ctx.Err(); err != nil {
			return updated, err
		}
		if !goal.Refresh(today) {
			continue
		}
		_, err := s.store.MutateGoal(ctx, goal.ID, func(g *domain.Goal) error {
			g.Refresh(today)
			return nil
		})
		if errors.Is(err, store.ErrGoalNotFound) {
			continue // deleted while sweeping
		}
		if err != nil {
			return updated, fmt.Errorf("refresh goal %s: %w", goal.ID, err)
		}
		updated++
	}

	if updated > 0 {
		s.logger.Info("goal status sweep finished", "goals", len(goals), "updated", updated)
	}
	return updated, nil
}

// authorizedGoal loads a goal and verifies the user owns it or joined it
// through an accepted sharing.
func (s *GoalService) authorizedGoal(ctx context.Context, userID, goalID string) (*domain.Goal, error) {
	goal, err := s.store.GetGoal(ctx, goalID)
	if errors.Is(err, store.ErrGoalNotFound) {
		return nil, domainerrors.NotFound("goal not found")
	}
	if err != nil {
		return nil, fmt.Errorf("get goal: %w", err)
	}

	if goal.OwnerID == userID {
		return goal, nil
	}

	sharing, err := s.store.AcceptedSharingForGoal(ctx, goalID)
	if err == nil && sharing.SharedToUserID == userID {
		return goal, nil
	}
	if err != nil && !errors.Is(err, store.ErrSharingNotFound) {
		return nil, fmt.Errorf("check sharing: %w", err)
	}

	return nil, domainerrors.Forbidden("you do not have access to this goal")
}

// refreshAndPersist recomputes the goal's derived fields and writes them
// back if anything changed. The returned goal reflects the stored state.
func (s *GoalService) refreshAndPersist(ctx context.Context, goal *domain.Goal) (*domain.Goal, error) {
	today := s.today()
	if !goal.Refresh(today) {
		return goal, nil
	}

	updated, err := s.store.MutateGoal(ctx, goal.ID, func(g *domain.Goal) error {
		g.Refresh(today)
		return nil
	})
	if errors.Is(err, store.ErrGoalNotFound) {
		// Deleted between read and write; the caller's view is still valid.
		return goal, nil
	}
	if err != nil {
		return nil, fmt.Errorf("persist refreshed goal: %w", err)
	}
	return updated, nil
}

func (s *GoalService) today() time.Time {
	return domain.Day(s.now())
}
