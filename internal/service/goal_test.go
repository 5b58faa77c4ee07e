package service

import (
	"context"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/goalmateapp/goalmate-server/internal/domain"
	domainerrors "github.com/goalmateapp/goalmate-server/internal/errors"
	"github.com/goalmateapp/goalmate-server/internal/store"
	"github.com/goalmateapp/goalmate-server/internal/validation"
)

// testEnv bundles the services under test around one in-memory store.
type testEnv struct {
	store      *store.Store
	goals      *GoalService
	sharings   *SharingService
	attendance *AttendanceService
}

// setupTest creates services backed by an in-memory store with the
// calendar pinned to day.
func setupTest(t *testing.T, day string) *testEnv {
	t.Helper()

	s, err := store.NewInMemory(nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })

	logger := slog.New(slog.DiscardHandler)
	validator := validation.New()

	goals := NewGoalService(s, validator, logger)
	attendance := NewAttendanceService(s, goals, IdentityResolver{}, logger)
	env := &testEnv{
		store:      s,
		goals:      goals,
		sharings:   NewSharingService(s, logger),
		attendance: attendance,
	}
	env.setDay(t, day)
	return env
}

// setDay pins the services' clock to the given calendar date.
func (e *testEnv) setDay(t *testing.T, day string) {
	t.Helper()

	d, err := time.ParseInLocation(time.DateOnly, day, time.UTC)
	require.NoError(t, err)
	now := func() time.Time { return d }
	e.goals.now = now
	e.attendance.now = now
	e.sharings.now = now
}

// createUser inserts a user directly into the store.
func (e *testEnv) createUser(t *testing.T, id, username string) *domain.User {
	t.Helper()

	u := &domain.User{Email: username + "@example.com", Username: username, PasswordHash: "x"}
	u.ID = id
	u.InitTimestamps()
	require.NoError(t, e.store.CreateUser(context.Background(), u))
	return u
}

func TestCreateGoalDerivesFields(t *testing.T) {
	env := setupTest(t, "2024-01-04")
	ctx := context.Background()

	goal, err := env.goals.CreateGoal(ctx, "user-1", CreateGoalRequest{
		Title:     "Run every day",
		Duration:  "week",
		StartDate: "2024-01-01",
	})
	require.NoError(t, err)

	assert.Equal(t, "user-1", goal.OwnerID)
	assert.Equal(t, domain.DurationWeek, goal.DurationCategory)
	assert.Equal(t, domain.GoalInProgress, goal.Status)
	assert.Equal(t, 43, goal.ProgressPercentage)
	assert.Equal(t, domain.StageThree, goal.CurrentStage)
	assert.Equal(t, domain.StageFour, goal.NextStage)
}

func TestCreateGoalFutureStartIsPending(t *testing.T) {
	env := setupTest(t, "2024-01-01")
	ctx := context.Background()

	goal, err := env.goals.CreateGoal(ctx, "user-1", CreateGoalRequest{
		Title:     "Read more",
		Duration:  "month",
		StartDate: "2024-02-01",
	})
	require.NoError(t, err)

	assert.Equal(t, domain.GoalPending, goal.Status)
	assert.Equal(t, 0, goal.ProgressPercentage)
	assert.Equal(t, domain.StageOne, goal.CurrentStage)
}

func TestCreateGoalValidation(t *testing.T) {
	env := setupTest(t, "2024-01-01")
	ctx := context.Background()

	tests := []struct {
		name string
		req  CreateGoalRequest
	}{
		{"missing title", CreateGoalRequest{Duration: "week", StartDate: "2024-01-01"}},
		{"bad duration", CreateGoalRequest{Title: "x", Duration: "decade", StartDate: "2024-01-01"}},
		{"bad date", CreateGoalRequest{Title: "x", Duration: "week", StartDate: "January 1st"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := env.goals.CreateGoal(ctx, "user-1", tt.req)
			require.Error(t, err)
			var domainErr *domainerrors.Error
			require.ErrorAs(t, err, &domainErr)
			assert.Equal(t, domainerrors.CodeValidation, domainErr.Code)
		})
	}
}

func TestGetGoalRefreshesAndPersists(t *testing.T) {
	env := setupTest(t, "2024-01-01")
	ctx := context.Background()

	goal, err := env.goals.CreateGoal(ctx, "user-1", CreateGoalRequest{
		Title:     "Run every day",
		Duration:  "week",
		StartDate: "2024-01-01",
	})
	require.NoError(t, err)
	require.Equal(t, domain.GoalInProgress, goal.Status)

	// The calendar moves past the end date; a read must surface done.
	env.setDay(t, "2024-01-08")

	got, err := env.goals.GetGoal(ctx, "user-1", goal.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.GoalDone, got.Status)
	assert.Equal(t, 100, got.ProgressPercentage)
	assert.Equal(t, domain.StageSix, got.CurrentStage)

	// And the refresh was written back, not just computed on the fly.
	stored, err := env.store.GetGoal(ctx, goal.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.GoalDone, stored.Status)
}

func TestGetGoalAuthorization(t *testing.T) {
	env := setupTest(t, "2024-01-04")
	ctx := context.Background()

	env.createUser(t, "user-1", "alice")
	env.createUser(t, "user-2", "bob")
	env.createUser(t, "user-3", "carol")

	goal, err := env.goals.CreateGoal(ctx, "user-1", CreateGoalRequest{
		Title:     "Run every day",
		Duration:  "week",
		StartDate: "2024-01-01",
	})
	require.NoError(t, err)

	// A stranger cannot read the goal.
	_, err = env.goals.GetGoal(ctx, "user-2", goal.ID)
	var domainErr *domainerrors.Error
	require.ErrorAs(t, err, &domainErr)
	assert.Equal(t, domainerrors.CodeForbidden, domainErr.Code)

	// After accepting an invitation the partner can.
	sharing, err := env.sharings.CreateInvitation(ctx, "user-1", goal.ID)
	require.NoError(t, err)
	_, err = env.sharings.Redeem(ctx, "user-2", sharing.InvitationCode)
	require.NoError(t, err)

	_, err = env.goals.GetGoal(ctx, "user-2", goal.ID)
	assert.NoError(t, err)

	// Third parties still cannot.
	_, err = env.goals.GetGoal(ctx, "user-3", goal.ID)
	require.ErrorAs(t, err, &domainErr)
	assert.Equal(t, domainerrors.CodeForbidden, domainErr.Code)
}

func TestListGoalsIncludesJoinedGoals(t *testing.T) {
	env := setupTest(t, "2024-01-04")
	ctx := context.Background()

	env.createUser(t, "user-1", "alice")
	env.createUser(t, "user-2", "bob")

	own, err := env.goals.CreateGoal(ctx, "user-2", CreateGoalRequest{
		Title:     "Meditate",
		Duration:  "month",
		StartDate: "2024-01-01",
	})
	require.NoError(t, err)

	shared, err := env.goals.CreateGoal(ctx, "user-1", CreateGoalRequest{
		Title:     "Run every day",
		Duration:  "week",
		StartDate: "2024-01-01",
	})
	require.NoError(t, err)

	sharing, err := env.sharings.CreateInvitation(ctx, "user-1", shared.ID)
	require.NoError(t, err)
	_, err = env.sharings.Redeem(ctx, "user-2", sharing.InvitationCode)
	require.NoError(t, err)

	goals, err := env.goals.ListGoals(ctx, "user-2")
	require.NoError(t, err)
	require.Len(t, goals, 2)

	ids := []string{goals[0].ID, goals[1].ID}
	assert.ElementsMatch(t, []string{own.ID, shared.ID}, ids)
}

func TestDeleteGoalCascadesSharings(t *testing.T) {
	env := setupTest(t, "2024-01-04")
	ctx := context.Background()

	env.createUser(t, "user-1", "alice")

	goal, err := env.goals.CreateGoal(ctx, "user-1", CreateGoalRequest{
		Title:     "Run every day",
		Duration:  "week",
		StartDate: "2024-01-01",
	})
	require.NoError(t, err)

	sharing, err := env.sharings.CreateInvitation(ctx, "user-1", goal.ID)
	require.NoError(t, err)

	// Only the owner may delete.
	_, err = env.goals.DeleteGoal(ctx, "user-2", goal.ID)
	var domainErr *domainerrors.Error
	require.ErrorAs(t, err, &domainErr)
	assert.Equal(t, domainerrors.CodeForbidden, domainErr.Code)

	resp, err := env.goals.DeleteGoal(ctx, "user-1", goal.ID)
	require.NoError(t, err)
	assert.Contains(t, resp.Message, "Run every day")

	_, err = env.store.GetGoal(ctx, goal.ID)
	assert.ErrorIs(t, err, store.ErrGoalNotFound)
	_, err = env.store.GetSharingByCode(ctx, sharing.InvitationCode)
	assert.ErrorIs(t, err, store.ErrSharingNotFound)
}

func TestRefreshAllGoals(t *testing.T) {
	env := setupTest(t, "2024-01-01")
	ctx := context.Background()

	first, err := env.goals.CreateGoal(ctx, "user-1", CreateGoalRequest{
		Title:     "Run every day",
		Duration:  "week",
		StartDate: "2024-01-01",
	})
	require.NoError(t, err)
	_, err = env.goals.CreateGoal(ctx, "user-1", CreateGoalRequest{
		Title:     "Keep meditating",
		Duration:  "unlimited",
		StartDate: "2024-01-01",
	})
	require.NoError(t, err)

	// Nothing changed yet.
	updated, err := env.goals.RefreshAllGoals(ctx)
	require.NoError(t, err)
	assert.Equal(t, 0, updated)

	// A week later the bounded goal completes; the unlimited one holds.
	env.setDay(t, "2024-01-08")
	updated, err = env.goals.RefreshAllGoals(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, updated)

	stored, err := env.store.GetGoal(ctx, first.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.GoalDone, stored.Status)
}
