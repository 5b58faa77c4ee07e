package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/goalmateapp/goalmate-server/internal/domain"
)

// CreateSharing persists a new sharing invitation.
// Returns ErrCodeExists if the invitation code collides with an existing
// one so the caller can regenerate and retry.
func (s *Store) CreateSharing(ctx context.Context, sharing *domain.Sharing) error {
	err := s.Sharings.Create(ctx, sharing.ID, sharing)
	if errors.Is(err, ErrAlreadyExists) {
		return ErrCodeExists
	}
	if err != nil {
		return fmt.Errorf("failed to create sharing: %w", err)
	}
	return nil
}

// GetSharing retrieves a sharing by ID.
func (s *Store) GetSharing(ctx context.Context, id string) (*domain.Sharing, error) {
	sharing, err := s.Sharings.Get(ctx, id)
	if errors.Is(err, ErrNotFound) {
		return nil, ErrSharingNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get sharing: %w", err)
	}
	return sharing, nil
}

// GetSharingByCode retrieves a sharing by its invitation code.
func (s *Store) GetSharingByCode(ctx context.Context, code string) (*domain.Sharing, error) {
	sharing, err := s.Sharings.GetByIndex(ctx, "code", code)
	if errors.Is(err, ErrNotFound) {
		return nil, ErrSharingNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get sharing by code: %w", err)
	}
	return sharing, nil
}

// MutateSharing applies fn to the stored sharing in a single transaction.
// Redemption's check-then-set runs through here so two users racing for
// the same code cannot both win.
func (s *Store) MutateSharing(ctx context.Context, id string, fn func(*domain.Sharing) error) (*domain.Sharing, error) {
	sharing, err := s.Sharings.Mutate(ctx, id, func(sh *domain.Sharing) error {
		if err := fn(sh); err != nil {
			return err
		}
		sh.Touch()
		return nil
	})
	if errors.Is(err, ErrNotFound) {
		return nil, ErrSharingNotFound
	}
	if err != nil {
		return nil, err
	}
	return sharing, nil
}

// DeleteSharing removes a sharing. Idempotent.
func (s *Store) DeleteSharing(ctx context.Context, id string) error {
	if err := s.Sharings.Delete(ctx, id); err != nil {
		return fmt.Errorf("failed to delete sharing: %w", err)
	}
	return nil
}

// ListSharingsForGoal returns every invitation ever issued for a goal,
// pending, accepted, and rejected alike.
func (s *Store) ListSharingsForGoal(ctx context.Context, goalID string) ([]*domain.Sharing, error) {
	sharings, err := s.Sharings.ListByIndex(ctx, "goal", goalID)
	if err != nil {
		return nil, fmt.Errorf("failed to list sharings for goal: %w", err)
	}
	return sharings, nil
}

// ListSharingsForUser returns every sharing the user participates in,
// as inviter or invitee.
func (s *Store) ListSharingsForUser(ctx context.Context, userID string) ([]*domain.Sharing, error) {
	sharings, err := s.Sharings.ListByIndex(ctx, "participant", userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list sharings for user: %w", err)
	}
	return sharings, nil
}

// AcceptedSharingForGoal returns the goal's accepted sharing, or
// ErrSharingNotFound when the goal has no partner.
func (s *Store) AcceptedSharingForGoal(ctx context.Context, goalID string) (*domain.Sharing, error) {
	sharing, err := s.Sharings.GetByIndex(ctx, "accepted", goalID)
	if errors.Is(err, ErrNotFound) {
		return nil, ErrSharingNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get accepted sharing: %w", err)
	}
	return sharing, nil
}
