// Package store persists users, goals, and sharings in Badger.
package store

import (
	"fmt"
	"log/slog"
	"strings"

	"github.com/dgraph-io/badger/v4"

	"github.com/goalmateapp/goalmate-server/internal/domain"
)

// Store wraps a Badger database instance.
type Store struct {
	db     *badger.DB
	logger *slog.Logger

	// Generic entities
	Users    *Entity[domain.User]
	Goals    *Entity[domain.Goal]
	Sharings *Entity[domain.Sharing]
}

// New creates a new Store instance with the given database path.
func New(path string, logger *slog.Logger) (*Store, error) {
	opts := badger.DefaultOptions(path)
	opts.Logger = nil            // Disable Badger's internal logging
	opts.SyncWrites = true       // Ensure writes are synced to disk to prevent corruption on crashes
	opts.CompactL0OnClose = true // Compact L0 tables on close for faster startup

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("failed to open badger db: %w", err)
	}

	store := &Store{
		db:     db,
		logger: logger,
	}

	// Initialize generic entities
	store.initUsers()
	store.initGoals()
	store.initSharings()

	if logger != nil {
		logger.Info("Badger database opened successfully", "path", path)
	}

	return store, nil
}

// NewInMemory creates a Store backed by an in-memory Badger instance.
// Used by tests; nothing is written to disk.
func NewInMemory(logger *slog.Logger) (*Store, error) {
	opts := badger.DefaultOptions("").WithInMemory(true)
	opts.Logger = nil

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("failed to open in-memory badger db: %w", err)
	}

	store := &Store{
		db:     db,
		logger: logger,
	}
	store.initUsers()
	store.initGoals()
	store.initSharings()

	return store, nil
}

// Close gracefully closes the database connection.
func (s *Store) Close() error {
	if s.logger != nil {
		s.logger.Info("Closing database connection")
	}
	return s.db.Close()
}

// normalizeEmail lowercases and trims an email for index storage so
// lookups are case-insensitive.
func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// initUsers initializes the Users entity on the store.
// Email and username are both unique; email indexing is case-insensitive.
func (s *Store) initUsers() {
	s.Users = NewEntity[domain.User](s, "user:").
		WithUniqueIndex("email", func(u *domain.User) []string {
			return []string{normalizeEmail(u.Email)}
		}).
		WithUniqueIndex("username", func(u *domain.User) []string {
			return []string{u.Username}
		})
}

// initGoals initializes the Goals entity on the store.
// Indexed by owner so a user's goal list is a single prefix scan.
func (s *Store) initGoals() {
	s.Goals = NewEntity[domain.Goal](s, "goal:").
		WithIndex("owner", func(g *domain.Goal) []string {
			return []string{g.OwnerID}
		})
}

// initSharings initializes the Sharings entity on the store.
// The invitation code is globally unique; goal and participant indexes
// are non-unique because a goal accumulates historical invitations. The
// accepted index holds at most one entry per goal and is only populated
// while a sharing is accepted, so a second accept on the same goal fails
// inside its own transaction no matter which code it came through.
func (s *Store) initSharings() {
	s.Sharings = NewEntity[domain.Sharing](s, "sharing:").
		WithUniqueIndex("code", func(sh *domain.Sharing) []string {
			return []string{sh.InvitationCode}
		}).
		WithUniqueIndex("accepted", func(sh *domain.Sharing) []string {
			if sh.IsAccepted() {
				return []string{sh.GoalID}
			}
			return nil
		}).
		WithIndex("goal", func(sh *domain.Sharing) []string {
			return []string{sh.GoalID}
		}).
		WithIndex("participant", func(sh *domain.Sharing) []string {
			values := []string{sh.SharedByUserID}
			if sh.SharedToUserID != "" {
				values = append(values, sh.SharedToUserID)
			}
			return values
		})
}
