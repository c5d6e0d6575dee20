package api

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/medassist/medassist/internal/identity"
)

type chatRequest struct {
	Message string `json:"message" validate:"required,max=2000"`
}

type chatResponse struct {
	Reply string `json:"reply"`
}

type historyEntry struct {
	ID        string `json:"id"`
	Role      string `json:"role"`
	Content   string `json:"content"`
	Timestamp string `json:"timestamp"`
}

// Chat runs one dialogue turn.
func (h *Handler) Chat(w http.ResponseWriter, r *http.Request) {
	userID := identity.UserIDFromContext(r.Context())
	if userID == "" {
		Error(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	var req chatRequest
	if err := h.decode(w, r, &req); err != nil {
		Error(w, http.StatusBadRequest, err.Error())
		return
	}

	reply, err := h.engine.Handle(r.Context(), userID, req.Message)
	if err != nil {
		slog.Error("Chat turn failed", "user_id", userID, "error", err)
		Error(w, http.StatusInternalServerError, "failed to process message")
		return
	}

	JSON(w, http.StatusOK, chatResponse{Reply: reply})
}

// History returns the user's chat history, oldest first.
func (h *Handler) History(w http.ResponseWriter, r *http.Request) {
	userID := identity.UserIDFromContext(r.Context())

	msgs, err := h.history.ListMessages(r.Context(), userID, h.historyLimit)
	if err != nil {
		slog.Error("Failed to list chat history", "user_id", userID, "error", err)
		Error(w, http.StatusInternalServerError, "failed to load chat history")
		return
	}

	history := make([]historyEntry, 0, len(msgs))
	for _, m := range msgs {
		history = append(history, historyEntry{
			ID:        m.ID,
			Role:      string(m.Role),
			Content:   m.Content,
			Timestamp: m.Timestamp.UTC().Format(time.RFC3339Nano),
		})
	}
	JSON(w, http.StatusOK, map[string]interface{}{"history": history})
}

// ClearHistory deletes the user's chat history and resets the dialogue.
func (h *Handler) ClearHistory(w http.ResponseWriter, r *http.Request) {
	userID := identity.UserIDFromContext(r.Context())

	deleted, err := h.engine.ClearConversation(r.Context(), userID)
	if err != nil {
		slog.Error("Failed to clear chat history", "user_id", userID, "error", err)
		JSON(w, http.StatusInternalServerError, statusResponse{Success: false, Message: "An error occurred while clearing history."})
		return
	}

	slog.Info("Chat history cleared", "user_id", userID, "deleted", deleted)
	JSON(w, http.StatusOK, statusResponse{Success: true, Message: "Chat history cleared successfully."})
}
