package domain

import (
	"strings"
	"time"
)

// DefaultCondition labels reminders not linked to a condition.
const DefaultCondition = "general"

// Reminder is a daily medication reminder. One per (UserID, Name).
type Reminder struct {
	UserID    string    `json:"user_id"`
	Name      string    `json:"name"`
	Time      string    `json:"time"`
	Info      string    `json:"info"`
	Condition string    `json:"condition,omitempty"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// ID returns the URL-safe identifier used by the reminder endpoints.
func (r *Reminder) ID() string {
	return ReminderID(r.Name)
}

// HasTime reports whether a reminder time is set.
func (r *Reminder) HasTime() bool {
	return strings.TrimSpace(r.Time) != ""
}

// ReminderID converts a reminder name into its endpoint identifier.
func ReminderID(name string) string {
	return strings.ToLower(strings.ReplaceAll(name, " ", "_"))
}

// ReminderNameFromID reverses ReminderID as far as possible.
func ReminderNameFromID(id string) string {
	return strings.ReplaceAll(strings.ToLower(id), "_", " ")
}

// ReminderUpdate holds optional changes to an existing reminder.
type ReminderUpdate struct {
	Name *string
	Time *string
}

// IsEmpty reports whether the update changes nothing.
func (u ReminderUpdate) IsEmpty() bool {
	return u.Name == nil && u.Time == nil
}
