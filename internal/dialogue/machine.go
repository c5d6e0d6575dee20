// Package dialogue implements the conversational state machine that drives
// topic questions and the multi-turn reminder flow.
package dialogue

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/medassist/medassist/internal/domain"
	"github.com/medassist/medassist/internal/retrieval"
)

// ErrSessionInconsistent marks a stored session whose step and context
// disagree. The machine resets such sessions instead of returning the error.
var ErrSessionInconsistent = errors.New("session inconsistent")

// SessionStore persists dialogue sessions.
type SessionStore interface {
	// GetSession returns nil, nil when the user has no session yet.
	GetSession(ctx context.Context, userID string) (*domain.Session, error)
	UpsertSession(ctx context.Context, session *domain.Session) error
}

// ReminderStore persists reminders.
type ReminderStore interface {
	UpsertReminder(ctx context.Context, reminder *domain.Reminder) error
	ListReminders(ctx context.Context, userID string) ([]*domain.Reminder, error)
}

// HistoryStore appends and clears chat history.
type HistoryStore interface {
	AppendMessage(ctx context.Context, msg *domain.ChatMessage) error
	ClearMessages(ctx context.Context, userID string) (int64, error)
}

// Retriever answers topic questions.
type Retriever interface {
	DiseaseInfo(ctx context.Context, topic string) retrieval.Result
	MedicationInfo(ctx context.Context, topic string) retrieval.Result
}

// TopicClassifier decides between the disease and medication paths.
type TopicClassifier interface {
	IsDisease(topic string) bool
}

// Observer receives turn level events.
type Observer interface {
	ObserveTurn(input string)
	ObserveReminderSaved()
	ObserveSessionReset(reason string)
}

// Reset reasons reported to an Observer.
const (
	ResetCompleted    = "completed"
	ResetSummary      = "summary"
	ResetWelcome      = "welcome"
	ResetInconsistent = "inconsistent"
	ResetCleared      = "cleared"
)

// Deps are the collaborators of a Machine.
type Deps struct {
	Sessions   SessionStore
	Reminders  ReminderStore
	History    HistoryStore
	Retriever  Retriever
	Classifier TopicClassifier
	Observer   Observer
	Logger     *slog.Logger
	Now        func() time.Time
}

// Machine processes chat turns. Turns of one user are serialized; turns of
// different users run in parallel.
type Machine struct {
	sessions   SessionStore
	reminders  ReminderStore
	history    HistoryStore
	retriever  Retriever
	classifier TopicClassifier
	observer   Observer
	logger     *slog.Logger
	now        func() time.Time

	locks       *userLocks
	transitions map[transitionKey]handler
}

// New creates a Machine.
func New(d Deps) *Machine {
	m := &Machine{
		sessions:   d.Sessions,
		reminders:  d.Reminders,
		history:    d.History,
		retriever:  d.Retriever,
		classifier: d.Classifier,
		observer:   d.Observer,
		logger:     d.Logger,
		now:        d.Now,
		locks:      newUserLocks(),
	}
	if m.logger == nil {
		m.logger = slog.Default()
	}
	if m.now == nil {
		m.now = time.Now
	}
	if m.observer == nil {
		m.observer = nopObserver{}
	}
	m.transitions = m.buildTransitions()
	return m
}

// turn is the mutable state of one message being processed.
type turn struct {
	userID  string
	message string
	session *domain.Session
}

// Handle processes one message and returns the markdown reply. The session
// read, transition, session write and history append all happen while the
// user's lock is held.
func (m *Machine) Handle(ctx context.Context, userID, message string) (string, error) {
	unlock := m.locks.lock(userID)
	defer unlock()

	now := m.now()
	sess, err := m.sessions.GetSession(ctx, userID)
	if err != nil {
		return "", fmt.Errorf("load session: %w", err)
	}
	if sess == nil {
		sess = domain.NewSession(userID, now)
	}

	t := &turn{userID: userID, message: message, session: sess}
	var reply string
	if err := checkSession(sess); err != nil {
		m.logger.Warn("resetting inconsistent session", "user_id", userID, "step", sess.Step.String(), "error", err)
		sess.Reset()
		m.observer.ObserveSessionReset(ResetInconsistent)
		reply = startOverReply
	} else {
		reply = m.dispatch(ctx, t)
	}

	sess.UpdatedAt = now
	if err := m.sessions.UpsertSession(ctx, sess); err != nil {
		return "", fmt.Errorf("save session: %w", err)
	}
	if err := m.appendHistory(ctx, userID, message, reply, now); err != nil {
		return "", err
	}
	return reply, nil
}

func (m *Machine) dispatch(ctx context.Context, t *turn) string {
	in := classify(t.message, t.session.Context)
	m.observer.ObserveTurn(in.String())

	h, ok := m.transitions[transitionKey{step: t.session.Step, input: in}]
	if !ok {
		// Every valid (step, input) pair is in the table.
		t.session.Reset()
		m.observer.ObserveSessionReset(ResetInconsistent)
		return startOverReply
	}

	before := *t.session
	reply, err := h(ctx, t)
	if err != nil {
		m.logger.Error("dialogue handler failed", "user_id", t.userID, "step", before.Step.String(), "input", in.String(), "error", err)
		*t.session = before
	}
	return reply
}

// ResetSession puts the user's session back to idle. It waits for any
// in-flight turn of that user.
func (m *Machine) ResetSession(ctx context.Context, userID string) error {
	return m.WithUserLock(userID, func() error {
		return m.resetLocked(ctx, userID, ResetCleared)
	})
}

// ClearConversation deletes the user's chat history and resets the session
// in one critical section. It returns the number of deleted messages.
func (m *Machine) ClearConversation(ctx context.Context, userID string) (int64, error) {
	var deleted int64
	err := m.WithUserLock(userID, func() error {
		n, err := m.history.ClearMessages(ctx, userID)
		if err != nil {
			return fmt.Errorf("clear history: %w", err)
		}
		deleted = n
		return m.resetLocked(ctx, userID, ResetCleared)
	})
	return deleted, err
}

// WithUserLock runs fn while holding the user's turn lock.
func (m *Machine) WithUserLock(userID string, fn func() error) error {
	unlock := m.locks.lock(userID)
	defer unlock()
	return fn()
}

func (m *Machine) resetLocked(ctx context.Context, userID, reason string) error {
	sess := domain.NewSession(userID, m.now())
	if existing, err := m.sessions.GetSession(ctx, userID); err != nil {
		return fmt.Errorf("load session: %w", err)
	} else if existing != nil {
		sess.CreatedAt = existing.CreatedAt
	}
	if err := m.sessions.UpsertSession(ctx, sess); err != nil {
		return fmt.Errorf("reset session: %w", err)
	}
	m.observer.ObserveSessionReset(reason)
	return nil
}

func (m *Machine) appendHistory(ctx context.Context, userID, message, reply string, now time.Time) error {
	msgs := []*domain.ChatMessage{
		{ID: uuid.NewString(), UserID: userID, Role: domain.RoleUser, Content: message, Timestamp: now},
		{ID: uuid.NewString(), UserID: userID, Role: domain.RoleBot, Content: reply, Timestamp: now.Add(time.Microsecond)},
	}
	for _, msg := range msgs {
		if err := m.history.AppendMessage(ctx, msg); err != nil {
			return fmt.Errorf("append chat message: %w", err)
		}
	}
	return nil
}

type nopObserver struct{}

func (nopObserver) ObserveTurn(string)         {}
func (nopObserver) ObserveReminderSaved()      {}
func (nopObserver) ObserveSessionReset(string) {}
