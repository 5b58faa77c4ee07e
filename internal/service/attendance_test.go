package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/goalmateapp/goalmate-server/internal/domain"
	domainerrors "github.com/goalmateapp/goalmate-server/internal/errors"
)

func TestMarkAttendance(t *testing.T) {
	env := setupTest(t, "2024-01-02")
	ctx := context.Background()
	goal := setupSharedGoal(t, env)

	resp, err := env.attendance.Mark(ctx, "user-1", goal.ID)
	require.NoError(t, err)

	assert.True(t, resp.Marked)
	assert.True(t, resp.Attended)
	assert.Equal(t, "2024-01-02", resp.Date)
	assert.Equal(t, []string{"alice"}, resp.Attendees)
	assert.True(t, resp.AllAttended) // solo goal, owner marked

	stored, err := env.store.GetGoal(ctx, goal.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, stored.AttendanceCount)
}

func TestMarkAttendanceIdempotent(t *testing.T) {
	env := setupTest(t, "2024-01-02")
	ctx := context.Background()
	goal := setupSharedGoal(t, env)

	first, err := env.attendance.Mark(ctx, "user-1", goal.ID)
	require.NoError(t, err)
	assert.True(t, first.Marked)

	second, err := env.attendance.Mark(ctx, "user-1", goal.ID)
	require.NoError(t, err)
	assert.False(t, second.Marked)
	assert.True(t, second.Attended)

	stored, err := env.store.GetGoal(ctx, goal.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, stored.AttendanceCount)
	assert.Equal(t, []string{"alice"}, stored.AttendeesOn(env.goals.today()))
}

func TestMarkAttendanceAnyGoalStatus(t *testing.T) {
	env := setupTest(t, "2024-01-02")
	ctx := context.Background()

	env.createUser(t, "user-1", "alice")

	// Marking is not gated on the goal's status: the ledger accepts
	// entries for goals that have not started and goals already done.
	pending, err := env.goals.CreateGoal(ctx, "user-1", CreateGoalRequest{
		Title:     "Starts later",
		Duration:  "week",
		StartDate: "2024-02-01",
	})
	require.NoError(t, err)

	done, err := env.goals.CreateGoal(ctx, "user-1", CreateGoalRequest{
		Title:     "Long over",
		Duration:  "week",
		StartDate: "2023-12-01",
	})
	require.NoError(t, err)

	resp, err := env.attendance.Mark(ctx, "user-1", pending.ID)
	require.NoError(t, err)
	assert.True(t, resp.Marked)

	stored, err := env.store.GetGoal(ctx, pending.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, stored.AttendanceCount)
	assert.Equal(t, domain.GoalPending, stored.Status)
	assert.Equal(t, 0, stored.ProgressPercentage)

	resp, err = env.attendance.Mark(ctx, "user-1", done.ID)
	require.NoError(t, err)
	assert.True(t, resp.Marked)

	stored, err = env.store.GetGoal(ctx, done.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.GoalDone, stored.Status)
	assert.Equal(t, 100, stored.ProgressPercentage)
}

func TestPartnerAttendanceCompletesDay(t *testing.T) {
	env := setupTest(t, "2024-01-02")
	ctx := context.Background()
	goal := setupSharedGoal(t, env)

	sharing, err := env.sharings.CreateInvitation(ctx, "user-1", goal.ID)
	require.NoError(t, err)
	_, err = env.sharings.Redeem(ctx, "user-2", sharing.InvitationCode)
	require.NoError(t, err)

	// Owner marks: day is partial because the partner hasn't.
	resp, err := env.attendance.Mark(ctx, "user-1", goal.ID)
	require.NoError(t, err)
	assert.False(t, resp.AllAttended)

	// Partner marks on the shared goal: same ledger, day complete.
	resp, err = env.attendance.Mark(ctx, "user-2", goal.ID)
	require.NoError(t, err)
	assert.True(t, resp.Marked)
	assert.True(t, resp.AllAttended)
	assert.ElementsMatch(t, []string{"alice", "bob"}, resp.Attendees)

	stored, err := env.store.GetGoal(ctx, goal.ID)
	require.NoError(t, err)
	assert.Equal(t, 2, stored.AttendanceCount)
}

func TestMarkAttendanceDrivesUnlimitedProgress(t *testing.T) {
	env := setupTest(t, "2024-01-01")
	ctx := context.Background()

	env.createUser(t, "user-1", "alice")

	goal, err := env.goals.CreateGoal(ctx, "user-1", CreateGoalRequest{
		Title:     "Keep meditating",
		Duration:  "unlimited",
		StartDate: "2024-01-01",
	})
	require.NoError(t, err)
	assert.Equal(t, 0, goal.ProgressPercentage)

	// Three days of attendance: round(100*3/30) = 10.
	for _, day := range []string{"2024-01-01", "2024-01-02", "2024-01-03"} {
		env.setDay(t, day)
		_, err := env.attendance.Mark(ctx, "user-1", goal.ID)
		require.NoError(t, err)
	}

	stored, err := env.store.GetGoal(ctx, goal.ID)
	require.NoError(t, err)
	assert.Equal(t, 3, stored.AttendanceCount)
	assert.Equal(t, 10, stored.ProgressPercentage)
	assert.Equal(t, domain.StageOne, stored.CurrentStage)
}

func TestToday(t *testing.T) {
	env := setupTest(t, "2024-01-02")
	ctx := context.Background()
	goal := setupSharedGoal(t, env)

	resp, err := env.attendance.Today(ctx, "user-1", goal.ID)
	require.NoError(t, err)
	assert.False(t, resp.Attended)
	assert.Empty(t, resp.Attendees)
	assert.False(t, resp.AllAttended)

	_, err = env.attendance.Mark(ctx, "user-1", goal.ID)
	require.NoError(t, err)

	resp, err = env.attendance.Today(ctx, "user-1", goal.ID)
	require.NoError(t, err)
	assert.True(t, resp.Attended)
	assert.True(t, resp.AllAttended)
}

func TestHistory(t *testing.T) {
	env := setupTest(t, "2024-01-02")
	ctx := context.Background()
	goal := setupSharedGoal(t, env)

	sharing, err := env.sharings.CreateInvitation(ctx, "user-1", goal.ID)
	require.NoError(t, err)
	_, err = env.sharings.Redeem(ctx, "user-2", sharing.InvitationCode)
	require.NoError(t, err)

	// Day one: both mark. Day two: only alice.
	_, err = env.attendance.Mark(ctx, "user-1", goal.ID)
	require.NoError(t, err)
	_, err = env.attendance.Mark(ctx, "user-2", goal.ID)
	require.NoError(t, err)

	env.setDay(t, "2024-01-03")
	_, err = env.attendance.Mark(ctx, "user-1", goal.ID)
	require.NoError(t, err)

	history, err := env.attendance.History(ctx, "user-2", goal.ID)
	require.NoError(t, err)

	assert.Equal(t, 3, history.AttendanceCount)
	assert.Equal(t, 2, history.DaysRecorded)
	assert.Equal(t, 1, history.CompleteDays)

	both := history.Dates["2024-01-02"]
	assert.ElementsMatch(t, []string{"alice", "bob"}, both.Attendees)
	assert.Equal(t, 2, both.Count)
	assert.True(t, both.AllAttended)

	solo := history.Dates["2024-01-03"]
	assert.Equal(t, []string{"alice"}, solo.Attendees)
	assert.Equal(t, 1, solo.Count)
	assert.False(t, solo.AllAttended)
}

func TestAttendanceRequiresAccess(t *testing.T) {
	env := setupTest(t, "2024-01-02")
	ctx := context.Background()
	goal := setupSharedGoal(t, env)
	env.createUser(t, "user-3", "carol")

	var domainErr *domainerrors.Error
	_, err := env.attendance.Mark(ctx, "user-3", goal.ID)
	require.ErrorAs(t, err, &domainErr)
	assert.Equal(t, domainerrors.CodeForbidden, domainErr.Code)

	_, err = env.attendance.History(ctx, "user-3", goal.ID)
	require.ErrorAs(t, err, &domainErr)
	assert.Equal(t, domainerrors.CodeForbidden, domainErr.Code)
}
