package api

import (
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/medassist/medassist/internal/domain"
	"github.com/medassist/medassist/internal/extract"
	"github.com/medassist/medassist/internal/identity"
	"github.com/medassist/medassist/internal/store"
)

type reminderView struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	Time      string `json:"time"`
	Condition string `json:"condition"`
	Info      string `json:"info"`
}

type updateReminderRequest struct {
	ID   string  `json:"id" validate:"required,max=100"`
	Time *string `json:"time,omitempty" validate:"omitempty,max=20"`
	Name *string `json:"name,omitempty" validate:"omitempty,max=50"`
}

type deleteReminderRequest struct {
	ID string `json:"id" validate:"required,max=100"`
}

type statusResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
}

// ListReminders returns the user's reminders that have a time set.
func (h *Handler) ListReminders(w http.ResponseWriter, r *http.Request) {
	userID := identity.UserIDFromContext(r.Context())

	list, err := h.reminders.ListReminders(r.Context(), userID)
	if err != nil {
		slog.Error("Failed to list reminders", "user_id", userID, "error", err)
		Error(w, http.StatusInternalServerError, "failed to load reminders")
		return
	}

	views := make([]reminderView, 0, len(list))
	for _, rem := range list {
		if !rem.HasTime() {
			continue
		}
		condition := rem.Condition
		if condition == "" {
			condition = domain.DefaultCondition
		}
		views = append(views, reminderView{
			ID:        rem.ID(),
			Name:      rem.Name,
			Time:      rem.Time,
			Condition: condition,
			Info:      rem.Info,
		})
	}
	JSON(w, http.StatusOK, map[string]interface{}{"reminders": views})
}

// UpdateReminder changes the time and/or name of a reminder.
func (h *Handler) UpdateReminder(w http.ResponseWriter, r *http.Request) {
	userID := identity.UserIDFromContext(r.Context())

	var req updateReminderRequest
	if err := h.decode(w, r, &req); err != nil {
		JSON(w, http.StatusBadRequest, statusResponse{Message: "Invalid request: " + err.Error()})
		return
	}

	var update domain.ReminderUpdate
	if req.Time != nil {
		t := extract.Time(*req.Time)
		if t == "" {
			JSON(w, http.StatusBadRequest, statusResponse{Message: "Invalid time. Use a format like 8:00 AM."})
			return
		}
		update.Time = &t
	}
	if req.Name != nil {
		name := strings.TrimSpace(*req.Name)
		if !extract.ValidMedicationName(name) {
			JSON(w, http.StatusBadRequest, statusResponse{Message: "Invalid medication name."})
			return
		}
		update.Name = &name
	}

	found, err := h.reminders.UpdateReminder(r.Context(), userID, domain.ReminderNameFromID(req.ID), update)
	switch {
	case errors.Is(err, store.ErrReminderExists):
		JSON(w, http.StatusConflict, statusResponse{Message: "A reminder with that name already exists."})
		return
	case err != nil:
		slog.Error("Failed to update reminder", "user_id", userID, "id", req.ID, "error", err)
		JSON(w, http.StatusInternalServerError, statusResponse{Message: "Failed to update reminder."})
		return
	case !found:
		JSON(w, http.StatusNotFound, statusResponse{Message: "Medication not found"})
		return
	}

	JSON(w, http.StatusOK, statusResponse{Success: true, Message: "Reminder updated successfully"})
}

// DeleteReminder removes a reminder.
func (h *Handler) DeleteReminder(w http.ResponseWriter, r *http.Request) {
	userID := identity.UserIDFromContext(r.Context())

	var req deleteReminderRequest
	if err := h.decode(w, r, &req); err != nil {
		JSON(w, http.StatusBadRequest, statusResponse{Message: "Invalid request: " + err.Error()})
		return
	}

	found, err := h.reminders.DeleteReminder(r.Context(), userID, domain.ReminderNameFromID(req.ID))
	if err != nil {
		slog.Error("Failed to delete reminder", "user_id", userID, "id", req.ID, "error", err)
		JSON(w, http.StatusInternalServerError, statusResponse{Message: "Failed to delete reminder."})
		return
	}
	if !found {
		JSON(w, http.StatusNotFound, statusResponse{Message: "Medication not found"})
		return
	}

	JSON(w, http.StatusOK, statusResponse{Success: true, Message: "Reminder deleted successfully"})
}
