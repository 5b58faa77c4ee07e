package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/goalmateapp/goalmate-server/internal/domain"
)

// CreateGoal persists a new goal.
func (s *Store) CreateGoal(ctx context.Context, goal *domain.Goal) error {
	if err := s.Goals.Create(ctx, goal.ID, goal); err != nil {
		return fmt.Errorf("failed to create goal: %w", err)
	}
	return nil
}

// GetGoal retrieves a goal by ID.
func (s *Store) GetGoal(ctx context.Context, id string) (*domain.Goal, error) {
	goal, err := s.Goals.Get(ctx, id)
	if errors.Is(err, ErrNotFound) {
		return nil, ErrGoalNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get goal: %w", err)
	}
	return goal, nil
}

// UpdateGoal persists changes to an existing goal.
func (s *Store) UpdateGoal(ctx context.Context, goal *domain.Goal) error {
	goal.Touch()
	err := s.Goals.Update(ctx, goal.ID, goal)
	if errors.Is(err, ErrNotFound) {
		return ErrGoalNotFound
	}
	if err != nil {
		return fmt.Errorf("failed to update goal: %w", err)
	}
	return nil
}

// MutateGoal applies fn to the stored goal in a single transaction.
// Concurrent mutations of the same goal serialize; none are lost.
func (s *Store) MutateGoal(ctx context.Context, id string, fn func(*domain.Goal) error) (*domain.Goal, error) {
	goal, err := s.Goals.Mutate(ctx, id, func(g *domain.Goal) error {
		if err := fn(g); err != nil {
			return err
		}
		g.Touch()
		return nil
	})
	if errors.Is(err, ErrNotFound) {
		return nil, ErrGoalNotFound
	}
	if err != nil {
		return nil, err
	}
	return goal, nil
}

// DeleteGoal removes a goal. Idempotent.
func (s *Store) DeleteGoal(ctx context.Context, id string) error {
	if err := s.Goals.Delete(ctx, id); err != nil {
		return fmt.Errorf("failed to delete goal: %w", err)
	}
	return nil
}

// ListGoalsForOwner returns all goals created by the given user.
func (s *Store) ListGoalsForOwner(ctx context.Context, ownerID string) ([]*domain.Goal, error) {
	goals, err := s.Goals.ListByIndex(ctx, "owner", ownerID)
	if err != nil {
		return nil, fmt.Errorf("failed to list goals for owner: %w", err)
	}
	return goals, nil
}

// ListAllGoals returns every goal in the store. Used by the status sweep.
func (s *Store) ListAllGoals(ctx context.Context) ([]*domain.Goal, error) {
	var goals []*domain.Goal
	for goal, err := range s.Goals.List(ctx) {
		if err != nil {
			return nil, fmt.Errorf("failed to list goals: %w", err)
		}
		goals = append(goals, goal)
	}
	return goals, nil
}
