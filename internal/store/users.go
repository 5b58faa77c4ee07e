package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/goalmateapp/goalmate-server/internal/domain"
)

// CreateUser persists a new user.
// Returns ErrEmailExists or ErrUsernameExists on unique index conflicts.
func (s *Store) CreateUser(ctx context.Context, user *domain.User) error {
	err := s.Users.Create(ctx, user.ID, user)
	if err == nil {
		return nil
	}
	if errors.Is(err, ErrAlreadyExists) {
		// Disambiguate which constraint fired for a useful client message.
		if _, lookupErr := s.Users.GetByIndex(ctx, "email", normalizeEmail(user.Email)); lookupErr == nil {
			return ErrEmailExists
		}
		return ErrUsernameExists
	}
	return fmt.Errorf("failed to create user: %w", err)
}

// GetUser retrieves a user by ID.
func (s *Store) GetUser(ctx context.Context, id string) (*domain.User, error) {
	user, err := s.Users.Get(ctx, id)
	if errors.Is(err, ErrNotFound) {
		return nil, ErrUserNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get user: %w", err)
	}
	return user, nil
}

// GetUserByEmail retrieves a user by email, case-insensitively.
func (s *Store) GetUserByEmail(ctx context.Context, email string) (*domain.User, error) {
	user, err := s.Users.GetByIndex(ctx, "email", normalizeEmail(email))
	if errors.Is(err, ErrNotFound) {
		return nil, ErrUserNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get user by email: %w", err)
	}
	return user, nil
}

// GetUserByUsername retrieves a user by username.
func (s *Store) GetUserByUsername(ctx context.Context, username string) (*domain.User, error) {
	user, err := s.Users.GetByIndex(ctx, "username", username)
	if errors.Is(err, ErrNotFound) {
		return nil, ErrUserNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get user by username: %w", err)
	}
	return user, nil
}

// UpdateUser persists changes to an existing user.
// Returns ErrEmailExists or ErrUsernameExists on unique index conflicts.
func (s *Store) UpdateUser(ctx context.Context, user *domain.User) error {
	user.Touch()
	err := s.Users.Update(ctx, user.ID, user)
	if errors.Is(err, ErrNotFound) {
		return ErrUserNotFound
	}
	if errors.Is(err, ErrAlreadyExists) {
		if other, lookupErr := s.Users.GetByIndex(ctx, "email", normalizeEmail(user.Email)); lookupErr == nil && other.ID != user.ID {
			return ErrEmailExists
		}
		return ErrUsernameExists
	}
	if err != nil {
		return fmt.Errorf("failed to update user: %w", err)
	}
	return nil
}

// AddGoalPartner atomically increments a user's goal partner counter.
func (s *Store) AddGoalPartner(ctx context.Context, userID string) (*domain.User, error) {
	user, err := s.Users.Mutate(ctx, userID, func(u *domain.User) error {
		u.GoalPartners++
		u.Touch()
		return nil
	})
	if errors.Is(err, ErrNotFound) {
		return nil, ErrUserNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to add goal partner: %w", err)
	}
	return user, nil
}
