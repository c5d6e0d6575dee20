package domain

import (
	"time"
)

// Step is the dialogue position of a user's session.
type Step int

const (
	// StepIdle accepts a new turn.
	StepIdle Step = 1
	// StepAwaitingMedicationName waits for the medication a reminder is for.
	StepAwaitingMedicationName Step = 2
	// StepAwaitingTime waits for the time of a reminder.
	StepAwaitingTime Step = 3
)

// String returns a readable name for logs.
func (s Step) String() string {
	switch s {
	case StepIdle:
		return "idle"
	case StepAwaitingMedicationName:
		return "awaiting_medication_name"
	case StepAwaitingTime:
		return "awaiting_time"
	default:
		return "unknown"
	}
}

// Valid reports whether s is one of the known steps.
func (s Step) Valid() bool {
	return s >= StepIdle && s <= StepAwaitingTime
}

// SessionContext holds the flags and pending values carried between turns.
// The JSON keys are the persisted form.
type SessionContext struct {
	AwaitingMedicationName       bool   `json:"awaiting_medication_name,omitempty"`
	AwaitingReminderConfirmation bool   `json:"awaiting_reminder_confirmation,omitempty"`
	MedicationName               string `json:"medication_name,omitempty"`
	CurrentDisease               string `json:"current_disease,omitempty"`
	CurrentMedication            string `json:"current_medication,omitempty"`
}

// IsEmpty reports whether no flag or value is set.
func (c SessionContext) IsEmpty() bool {
	return c == SessionContext{}
}

// Session is the per-user dialogue state.
type Session struct {
	UserID    string
	Step      Step
	Context   SessionContext
	CreatedAt time.Time
	UpdatedAt time.Time
}

// NewSession returns the default idle session for a user.
func NewSession(userID string, now time.Time) *Session {
	return &Session{
		UserID:    userID,
		Step:      StepIdle,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// Reset puts the session back to idle with an empty context.
func (s *Session) Reset() {
	s.Step = StepIdle
	s.Context = SessionContext{}
}
