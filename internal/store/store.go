// Package store provides data persistence interfaces and implementations.
package store

import (
	"context"
	"errors"
	"time"

	"github.com/medassist/medassist/internal/domain"
)

// ErrReminderExists is returned when renaming a reminder onto a name the
// user already uses.
var ErrReminderExists = errors.New("reminder already exists")

// Repository defines the interface for persisting users, dialogue sessions,
// reminders and chat history.
type Repository interface {
	// GetUser retrieves a user by their user ID.
	GetUser(ctx context.Context, userID string) (*domain.User, error)

	// UpsertUser creates or updates a user record.
	UpsertUser(ctx context.Context, user *domain.User) error

	// UpdateLastSeen updates the last_seen_at timestamp for a user.
	UpdateLastSeen(ctx context.Context, userID string, lastSeen time.Time) error

	// GetSession returns the dialogue session of a user, or nil, nil if none exists.
	GetSession(ctx context.Context, userID string) (*domain.Session, error)

	// UpsertSession creates or replaces a dialogue session.
	UpsertSession(ctx context.Context, session *domain.Session) error

	// StaleSessionUsers lists users whose mid-flow session was last touched before cutoff.
	StaleSessionUsers(ctx context.Context, cutoff time.Time) ([]string, error)

	// ResetStaleSession resets the session to idle if it is still mid-flow
	// and older than cutoff. It reports whether a reset happened.
	ResetStaleSession(ctx context.Context, userID string, cutoff time.Time) (bool, error)

	// UpsertReminder creates a reminder or updates the one with the same name.
	UpsertReminder(ctx context.Context, reminder *domain.Reminder) error

	// ListReminders returns the user's reminders in creation order.
	ListReminders(ctx context.Context, userID string) ([]*domain.Reminder, error)

	// UpdateReminder applies update to the named reminder. It reports whether
	// the reminder existed.
	UpdateReminder(ctx context.Context, userID, name string, update domain.ReminderUpdate) (bool, error)

	// DeleteReminder removes the named reminder. It reports whether it existed.
	DeleteReminder(ctx context.Context, userID, name string) (bool, error)

	// AppendMessage appends one chat history entry.
	AppendMessage(ctx context.Context, msg *domain.ChatMessage) error

	// ListMessages returns up to limit of the user's oldest messages, oldest first.
	ListMessages(ctx context.Context, userID string, limit int) ([]*domain.ChatMessage, error)

	// ClearMessages deletes the user's chat history and returns how many rows went.
	ClearMessages(ctx context.Context, userID string) (int64, error)

	// Ping verifies database connectivity and returns an error if the database is unreachable.
	Ping(ctx context.Context) error

	// Close closes the database connection.
	Close() error
}
