package store

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/goalmateapp/goalmate-server/internal/domain"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()

	s, err := NewInMemory(nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func newTestUser(id, email, username string) *domain.User {
	u := &domain.User{Email: email, Username: username, PasswordHash: "x"}
	u.ID = id
	u.InitTimestamps()
	return u
}

func newTestGoal(id, ownerID string) *domain.Goal {
	g := &domain.Goal{
		OwnerID:          ownerID,
		Title:            "Run every day",
		DurationCategory: domain.DurationWeek,
		StartDate:        time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
		Status:           domain.GoalInProgress,
	}
	g.ID = id
	g.InitTimestamps()
	return g
}

func newTestSharing(id, goalID, byUserID, code string) *domain.Sharing {
	sh := &domain.Sharing{
		GoalID:         goalID,
		SharedByUserID: byUserID,
		InvitationCode: code,
		Status:         domain.SharingPending,
	}
	sh.ID = id
	sh.InitTimestamps()
	return sh
}

func TestCreateUserUniqueConstraints(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.CreateUser(ctx, newTestUser("user-1", "alice@example.com", "alice")))

	err := s.CreateUser(ctx, newTestUser("user-2", "Alice@Example.com", "alice2"))
	assert.ErrorIs(t, err, ErrEmailExists)

	err = s.CreateUser(ctx, newTestUser("user-3", "other@example.com", "alice"))
	assert.ErrorIs(t, err, ErrUsernameExists)
}

func TestGetUserByEmailCaseInsensitive(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.CreateUser(ctx, newTestUser("user-1", "alice@example.com", "alice")))

	user, err := s.GetUserByEmail(ctx, "ALICE@example.COM")
	require.NoError(t, err)
	assert.Equal(t, "user-1", user.ID)

	_, err = s.GetUserByEmail(ctx, "nobody@example.com")
	assert.ErrorIs(t, err, ErrUserNotFound)
}

func TestGetUserByUsername(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.CreateUser(ctx, newTestUser("user-1", "alice@example.com", "alice")))

	user, err := s.GetUserByUsername(ctx, "alice")
	require.NoError(t, err)
	assert.Equal(t, "user-1", user.ID)

	_, err = s.GetUserByUsername(ctx, "bob")
	assert.ErrorIs(t, err, ErrUserNotFound)
}

func TestAddGoalPartnerIsAtomic(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.CreateUser(ctx, newTestUser("user-1", "alice@example.com", "alice")))

	var wg sync.WaitGroup
	for range 10 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := s.AddGoalPartner(ctx, "user-1")
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	user, err := s.GetUser(ctx, "user-1")
	require.NoError(t, err)
	assert.Equal(t, 10, user.GoalPartners)
}

func TestListGoalsForOwner(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.CreateGoal(ctx, newTestGoal("goal-1", "user-1")))
	require.NoError(t, s.CreateGoal(ctx, newTestGoal("goal-2", "user-1")))
	require.NoError(t, s.CreateGoal(ctx, newTestGoal("goal-3", "user-2")))

	goals, err := s.ListGoalsForOwner(ctx, "user-1")
	require.NoError(t, err)
	require.Len(t, goals, 2)

	goals, err = s.ListGoalsForOwner(ctx, "user-3")
	require.NoError(t, err)
	assert.Empty(t, goals)
}

func TestMutateGoalSerializesConcurrentWrites(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.CreateGoal(ctx, newTestGoal("goal-1", "user-1")))

	day := time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC)
	var wg sync.WaitGroup
	for _, name := range []string{"alice", "bob"} {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := s.MutateGoal(ctx, "goal-1", func(g *domain.Goal) error {
				g.MarkAttended(day, name)
				return nil
			})
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	goal, err := s.GetGoal(ctx, "goal-1")
	require.NoError(t, err)
	assert.Equal(t, 2, goal.AttendanceCount)
	assert.ElementsMatch(t, []string{"alice", "bob"}, goal.AttendeesOn(day))
}

func TestDeleteGoalIsIdempotent(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.CreateGoal(ctx, newTestGoal("goal-1", "user-1")))
	require.NoError(t, s.DeleteGoal(ctx, "goal-1"))
	require.NoError(t, s.DeleteGoal(ctx, "goal-1"))

	_, err := s.GetGoal(ctx, "goal-1")
	assert.ErrorIs(t, err, ErrGoalNotFound)
}

func TestCreateSharingCodeCollision(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.CreateSharing(ctx, newTestSharing("sharing-1", "goal-1", "user-1", "AAAA1111")))

	err := s.CreateSharing(ctx, newTestSharing("sharing-2", "goal-2", "user-2", "AAAA1111"))
	assert.ErrorIs(t, err, ErrCodeExists)
}

func TestGetSharingByCode(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.CreateSharing(ctx, newTestSharing("sharing-1", "goal-1", "user-1", "AAAA1111")))

	sharing, err := s.GetSharingByCode(ctx, "AAAA1111")
	require.NoError(t, err)
	assert.Equal(t, "sharing-1", sharing.ID)

	_, err = s.GetSharingByCode(ctx, "ZZZZ9999")
	assert.ErrorIs(t, err, ErrSharingNotFound)
}

func TestListSharingsForGoalKeepsHistory(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.CreateSharing(ctx, newTestSharing("sharing-1", "goal-1", "user-1", "AAAA1111")))
	require.NoError(t, s.CreateSharing(ctx, newTestSharing("sharing-2", "goal-1", "user-1", "BBBB2222")))
	require.NoError(t, s.CreateSharing(ctx, newTestSharing("sharing-3", "goal-2", "user-1", "CCCC3333")))

	sharings, err := s.ListSharingsForGoal(ctx, "goal-1")
	require.NoError(t, err)
	assert.Len(t, sharings, 2)
}

func TestListSharingsForUserCoversBothSides(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	sh := newTestSharing("sharing-1", "goal-1", "user-1", "AAAA1111")
	require.NoError(t, s.CreateSharing(ctx, sh))

	// Before redemption only the inviter sees it.
	sharings, err := s.ListSharingsForUser(ctx, "user-2")
	require.NoError(t, err)
	assert.Empty(t, sharings)

	_, err = s.MutateSharing(ctx, "sharing-1", func(sh *domain.Sharing) error {
		sh.SharedToUserID = "user-2"
		sh.Status = domain.SharingAccepted
		return nil
	})
	require.NoError(t, err)

	for _, userID := range []string{"user-1", "user-2"} {
		sharings, err := s.ListSharingsForUser(ctx, userID)
		require.NoError(t, err)
		require.Len(t, sharings, 1, "user %s", userID)
		assert.Equal(t, "sharing-1", sharings[0].ID)
	}
}

func TestAcceptedSharingForGoal(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.CreateSharing(ctx, newTestSharing("sharing-1", "goal-1", "user-1", "AAAA1111")))

	_, err := s.AcceptedSharingForGoal(ctx, "goal-1")
	assert.ErrorIs(t, err, ErrSharingNotFound)

	_, err = s.MutateSharing(ctx, "sharing-1", func(sh *domain.Sharing) error {
		sh.SharedToUserID = "user-2"
		sh.Status = domain.SharingAccepted
		return nil
	})
	require.NoError(t, err)

	sharing, err := s.AcceptedSharingForGoal(ctx, "goal-1")
	require.NoError(t, err)
	assert.Equal(t, "sharing-1", sharing.ID)
}

func TestAcceptedSharingUniquePerGoal(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.CreateSharing(ctx, newTestSharing("sharing-1", "goal-1", "user-1", "AAAA1111")))
	require.NoError(t, s.CreateSharing(ctx, newTestSharing("sharing-2", "goal-1", "user-1", "BBBB2222")))

	// Two invitees accept different codes for the same goal at once.
	// The accepted index admits exactly one.
	accepts := []struct {
		sharingID string
		userID    string
	}{
		{"sharing-1", "user-2"},
		{"sharing-2", "user-3"},
	}

	errs := make([]error, len(accepts))
	var wg sync.WaitGroup
	for i, accept := range accepts {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, errs[i] = s.MutateSharing(ctx, accept.sharingID, func(sh *domain.Sharing) error {
				sh.SharedToUserID = accept.userID
				sh.Status = domain.SharingAccepted
				return nil
			})
		}()
	}
	wg.Wait()

	succeeded, conflicted := 0, 0
	for _, err := range errs {
		switch {
		case err == nil:
			succeeded++
		case errors.Is(err, ErrAlreadyExists):
			conflicted++
		default:
			t.Fatalf("unexpected error: %v", err)
		}
	}
	assert.Equal(t, 1, succeeded)
	assert.Equal(t, 1, conflicted)

	accepted, err := s.AcceptedSharingForGoal(ctx, "goal-1")
	require.NoError(t, err)
	assert.Equal(t, domain.SharingAccepted, accepted.Status)
}

func TestAcceptedIndexClearedOnDelete(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.CreateSharing(ctx, newTestSharing("sharing-1", "goal-1", "user-1", "AAAA1111")))
	_, err := s.MutateSharing(ctx, "sharing-1", func(sh *domain.Sharing) error {
		sh.SharedToUserID = "user-2"
		sh.Status = domain.SharingAccepted
		return nil
	})
	require.NoError(t, err)

	require.NoError(t, s.DeleteSharing(ctx, "sharing-1"))

	// The goal can take a new partner once the old sharing is gone.
	_, err = s.AcceptedSharingForGoal(ctx, "goal-1")
	assert.ErrorIs(t, err, ErrSharingNotFound)

	require.NoError(t, s.CreateSharing(ctx, newTestSharing("sharing-2", "goal-1", "user-1", "BBBB2222")))
	_, err = s.MutateSharing(ctx, "sharing-2", func(sh *domain.Sharing) error {
		sh.SharedToUserID = "user-3"
		sh.Status = domain.SharingAccepted
		return nil
	})
	assert.NoError(t, err)
}

func TestMutateSharingCallbackErrorAbortsWrite(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.CreateSharing(ctx, newTestSharing("sharing-1", "goal-1", "user-1", "AAAA1111")))

	boom := assert.AnError
	_, err := s.MutateSharing(ctx, "sharing-1", func(sh *domain.Sharing) error {
		sh.Status = domain.SharingAccepted
		return boom
	})
	assert.ErrorIs(t, err, boom)

	sharing, err := s.GetSharing(ctx, "sharing-1")
	require.NoError(t, err)
	assert.Equal(t, domain.SharingPending, sharing.Status)
}
