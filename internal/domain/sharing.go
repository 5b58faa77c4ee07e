package domain

import (
	"crypto/rand"
	"fmt"
)

// SharingStatus is the lifecycle status of a sharing invitation.
type SharingStatus string

const (
	// SharingPending means the invitation code has not been redeemed yet.
	SharingPending SharingStatus = "pending"
	// SharingAccepted means a second user joined the goal.
	SharingAccepted SharingStatus = "accepted"
	// SharingRejected means the invitee declined. Terminal, never reopened.
	SharingRejected SharingStatus = "rejected"
)

// Sharing links a goal's owner to one invited partner through an
// invitation code. A goal has at most one accepted sharing at a time;
// pending and rejected invitations may accumulate historically.
type Sharing struct {
	Record
	GoalID         string        `json:"goal_id"`
	SharedByUserID string        `json:"shared_by_user_id"`
	SharedToUserID string        `json:"shared_to_user_id,omitempty"` // unset until redeemed
	InvitationCode string        `json:"invitation_code"`
	Status         SharingStatus `json:"status"`
}

// IsPending reports whether the invitation can still be redeemed.
func (s *Sharing) IsPending() bool {
	return s.Status == SharingPending
}

// IsAccepted reports whether the invitation joined a partner to the goal.
func (s *Sharing) IsAccepted() bool {
	return s.Status == SharingAccepted
}

const (
	invitationCodeLength   = 8
	invitationCodeAlphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"
)

// GenerateInvitationCode returns a random 8-character uppercase
// alphanumeric code. Codes are short enough that collisions are possible;
// callers must retry against the store's unique code index.
func GenerateInvitationCode() (string, error) {
	buf := make([]byte, invitationCodeLength)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("generate invitation code: %w", err)
	}
	for i, b := range buf {
		buf[i] = invitationCodeAlphabet[int(b)%len(invitationCodeAlphabet)]
	}
	return string(buf), nil
}
