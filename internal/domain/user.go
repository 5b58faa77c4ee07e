package domain

import "time"

// User represents an account in the system.
type User struct {
	Record
	Email        string `json:"email"`
	Username     string `json:"username"`
	PasswordHash string `json:"password_hash,omitempty"` // Stored hashed, filter from API responses
	Bio          string `json:"bio,omitempty"`

	// GoalPartners counts accepted goal sharings this user participates in,
	// on either side. Incremented atomically when an invitation is accepted.
	GoalPartners int `json:"goal_partners"`

	LastLoginAt time.Time `json:"last_login_at"`
}

// Name returns the best available display name for the user.
func (u *User) Name() string {
	if u.Username != "" {
		return u.Username
	}
	return u.Email
}
