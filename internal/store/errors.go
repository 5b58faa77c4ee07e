package store

import "errors"

// Sentinel errors surfaced by the store layer. Services translate these
// into domain errors at the operation boundary.
var (
	// ErrNotFound is returned when an entity does not exist.
	ErrNotFound = errors.New("not found")
	// ErrAlreadyExists is returned on primary key or unique index conflicts.
	ErrAlreadyExists = errors.New("already exists")
	// ErrUserNotFound is returned when a user cannot be found by ID or username.
	ErrUserNotFound = errors.New("user not found")
	// ErrEmailExists is returned when a user's email is already in use.
	ErrEmailExists = errors.New("email already in use")
	// ErrUsernameExists is returned when a username is already taken.
	ErrUsernameExists = errors.New("username already taken")
	// ErrGoalNotFound is returned when a goal cannot be found by ID.
	ErrGoalNotFound = errors.New("goal not found")
	// ErrSharingNotFound is returned when a sharing cannot be found by ID or code.
	ErrSharingNotFound = errors.New("sharing not found")
	// ErrCodeExists is returned when an invitation code collides with an existing one.
	ErrCodeExists = errors.New("invitation code already exists")
)
