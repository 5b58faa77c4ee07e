package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/goalmateapp/goalmate-server/internal/domain"
	"github.com/goalmateapp/goalmate-server/internal/store"
)

// GoalResolver maps a goal ID to the canonical goal row that holds the
// attendance ledger. Partners share one row in this layout, so the
// default resolver is the identity; the indirection keeps the write path
// stable if shared goals ever get per-user rows.
type GoalResolver interface {
	Resolve(ctx context.Context, goalID string) (string, error)
}

// IdentityResolver resolves every goal to itself.
type IdentityResolver struct{}

// Resolve implements GoalResolver.
func (IdentityResolver) Resolve(_ context.Context, goalID string) (string, error) {
	return goalID, nil
}

// AttendanceService records daily attendance against a goal's ledger and
// answers day-level attendance queries.
type AttendanceService struct {
	store    *store.Store
	goals    *GoalService
	resolver GoalResolver
	logger   *slog.Logger

	// now is swapped out in tests to pin the calendar.
	now func() time.Time
}

// NewAttendanceService creates a new attendance service.
func NewAttendanceService(st *store.Store, goals *GoalService, resolver GoalResolver, logger *slog.Logger) *AttendanceService {
	return &AttendanceService{
		store:    st,
		goals:    goals,
		resolver: resolver,
		logger:   logger,
		now:      time.Now,
	}
}

// AttendanceResponse describes the state of a goal's ledger for one day.
type AttendanceResponse struct {
	GoalID    string   `json:"goal_id"`
	Date      string   `json:"date"`
	Attendees []string `json:"attendees"`
	Attended  bool     `json:"attended"`
	// AllAttended reports whether every participant of the goal has
	// marked the day: just the owner for a solo goal, both for a shared one.
	AllAttended bool `json:"all_attended"`
	// Marked is true when this request recorded a new entry, false when
	// the user had already marked the day.
	Marked bool `json:"marked"`
}

// AttendanceDay is one day's entry in the history view.
type AttendanceDay struct {
	Attendees   []string `json:"attendees"`
	Count       int      `json:"count"`
	AllAttended bool     `json:"all_attended"`
}

// AttendanceHistory is the goal's full attendance ledger plus counters.
type AttendanceHistory struct {
	GoalID          string                   `json:"goal_id"`
	AttendanceCount int                      `json:"attendance_count"`
	DaysRecorded    int                      `json:"days_recorded"`
	CompleteDays    int                      `json:"complete_days"`
	Dates           map[string]AttendanceDay `json:"dates"`
}

// Mark records the user's attendance on the goal for today. Marking is
// idempotent: a second call on the same day changes nothing and reports
// Marked=false. The ledger update and counter bump commit atomically.
func (a *AttendanceService) Mark(ctx context.Context, userID, goalID string) (*AttendanceResponse, error) {
	canonicalID, err := a.resolver.Resolve(ctx, goalID)
	if err != nil {
		return nil, fmt.Errorf("resolve goal: %w", err)
	}

	goal, err := a.goals.authorizedGoal(ctx, userID, canonicalID)
	if err != nil {
		return nil, err
	}

	user, err := a.store.GetUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("get user: %w", err)
	}

	today := a.today()
	marked := false
	updated, err := a.store.MutateGoal(ctx, goal.ID, func(g *domain.Goal) error {
		marked = g.MarkAttended(today, user.Username)
		// Unlimited goals derive progress from the count, so re-derive.
		g.Refresh(today)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("mark attendance: %w", err)
	}

	if marked {
		a.logger.Info("attendance marked",
			"goal_id", updated.ID,
			"user_id", userID,
			"date", domain.DateKey(today),
		)
	}

	resp, err := a.dayResponse(ctx, updated, today, user.Username)
	if err != nil {
		return nil, err
	}
	resp.Marked = marked
	return resp, nil
}

// Today reports the state of the goal's ledger for the current day.
func (a *AttendanceService) Today(ctx context.Context, userID, goalID string) (*AttendanceResponse, error) {
	canonicalID, err := a.resolver.Resolve(ctx, goalID)
	if err != nil {
		return nil, fmt.Errorf("resolve goal: %w", err)
	}

	goal, err := a.goals.authorizedGoal(ctx, userID, canonicalID)
	if err != nil {
		return nil, err
	}

	user, err := a.store.GetUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("get user: %w", err)
	}

	return a.dayResponse(ctx, goal, a.today(), user.Username)
}

// History returns the goal's complete ledger with per-day attendees and
// summary counters.
func (a *AttendanceService) History(ctx context.Context, userID, goalID string) (*AttendanceHistory, error) {
	canonicalID, err := a.resolver.Resolve(ctx, goalID)
	if err != nil {
		return nil, fmt.Errorf("resolve goal: %w", err)
	}

	goal, err := a.goals.authorizedGoal(ctx, userID, canonicalID)
	if err != nil {
		return nil, err
	}

	participants, err := a.participantCount(ctx, goal)
	if err != nil {
		return nil, err
	}

	completeDays := 0
	dates := make(map[string]AttendanceDay, len(goal.AttendanceDates))
	for day, attendees := range goal.AttendanceDates {
		all := len(attendees) >= participants
		if all {
			completeDays++
		}
		dates[day] = AttendanceDay{
			Attendees:   attendees,
			Count:       len(attendees),
			AllAttended: all,
		}
	}

	return &AttendanceHistory{
		GoalID:          goal.ID,
		AttendanceCount: goal.AttendanceCount,
		DaysRecorded:    len(goal.AttendanceDates),
		CompleteDays:    completeDays,
		Dates:           dates,
	}, nil
}

// dayResponse builds the per-day view of a goal's ledger.
func (a *AttendanceService) dayResponse(ctx context.Context, goal *domain.Goal, day time.Time, username string) (*AttendanceResponse, error) {
	participants, err := a.participantCount(ctx, goal)
	if err != nil {
		return nil, err
	}

	attendees := goal.AttendeesOn(day)
	return &AttendanceResponse{
		GoalID:      goal.ID,
		Date:        domain.DateKey(day),
		Attendees:   attendees,
		Attended:    goal.HasAttended(day, username),
		AllAttended: len(attendees) >= participants,
	}, nil
}

// participantCount is 1 for a solo goal, 2 once a partner joined.
func (a *AttendanceService) participantCount(ctx context.Context, goal *domain.Goal) (int, error) {
	_, err := a.store.AcceptedSharingForGoal(ctx, goal.ID)
	if errors.Is(err, store.ErrSharingNotFound) {
		return 1, nil
	}
	if err != nil {
		return 0, fmt.Errorf("check sharing: %w", err)
	}
	return 2, nil
}

func (a *AttendanceService) today() time.Time {
	return domain.Day(a.now())
}
