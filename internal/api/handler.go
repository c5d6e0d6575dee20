// Package api provides HTTP handlers for the MedAssist API.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"reflect"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/medassist/medassist/internal/domain"
)

const (
	defaultHistoryLimit = 50
	defaultMaxBodySize  = 64 << 10
)

// ChatEngine runs dialogue turns.
type ChatEngine interface {
	Handle(ctx context.Context, userID, message string) (string, error)
	ClearConversation(ctx context.Context, userID string) (int64, error)
}

// ReminderStore is the reminder slice of the repository.
type ReminderStore interface {
	ListReminders(ctx context.Context, userID string) ([]*domain.Reminder, error)
	UpdateReminder(ctx context.Context, userID, name string, update domain.ReminderUpdate) (bool, error)
	DeleteReminder(ctx context.Context, userID, name string) (bool, error)
}

// HistoryStore lists chat history.
type HistoryStore interface {
	ListMessages(ctx context.Context, userID string, limit int) ([]*domain.ChatMessage, error)
}

// Pinger checks a dependency is reachable.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Deps are the collaborators of a Handler.
type Deps struct {
	Engine       ChatEngine
	Reminders    ReminderStore
	History      HistoryStore
	DB           Pinger
	HistoryLimit int
	MaxBodySize  int64
}

// Handler serves the chat, reminder and health endpoints.
type Handler struct {
	engine       ChatEngine
	reminders    ReminderStore
	history      HistoryStore
	db           Pinger
	historyLimit int
	maxBodySize  int64
	validate     *validator.Validate
}

// NewHandler creates a new Handler.
func NewHandler(d Deps) *Handler {
	h := &Handler{
		engine:       d.Engine,
		reminders:    d.Reminders,
		history:      d.History,
		db:           d.DB,
		historyLimit: d.HistoryLimit,
		maxBodySize:  d.MaxBodySize,
		validate:     newValidator(),
	}
	if h.historyLimit <= 0 {
		h.historyLimit = defaultHistoryLimit
	}
	if h.maxBodySize <= 0 {
		h.maxBodySize = defaultMaxBodySize
	}
	return h
}

// RegisterRoutes registers the /api routes.
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Route("/api", func(r chi.Router) {
		r.Get("/health", h.Health)

		r.Post("/chat", h.Chat)
		r.Get("/chat/history", h.History)
		r.Post("/chat/clear", h.ClearHistory)

		r.Get("/reminders", h.ListReminders)
		r.Post("/reminders/update", h.UpdateReminder)
		r.Post("/reminders/delete", h.DeleteReminder)
	})
}

// JSON writes a JSON response with the given status code.
func JSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		http.Error(w, `{"error": "failed to encode response"}`, http.StatusInternalServerError)
	}
}

// Error writes a JSON error response.
func Error(w http.ResponseWriter, status int, message string) {
	JSON(w, status, map[string]string{"error": message})
}

func newValidator() *validator.Validate {
	v := validator.New()
	// Report JSON field names in messages.
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

// decode reads a size-limited JSON body into dst and validates it.
func (h *Handler) decode(w http.ResponseWriter, r *http.Request, dst interface{}) error {
	r.Body = http.MaxBytesReader(w, r.Body, h.maxBodySize)
	dec := json.NewDecoder(r.Body)
	if err := dec.Decode(dst); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			return fmt.Errorf("request body too large")
		}
		return fmt.Errorf("invalid JSON body")
	}
	if err := h.validate.Struct(dst); err != nil {
		return validationMessage(err)
	}
	return nil
}

func validationMessage(err error) error {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) || len(verrs) == 0 {
		return err
	}
	e := verrs[0]
	switch e.Tag() {
	case "required":
		return fmt.Errorf("%s is required", e.Field())
	case "max":
		return fmt.Errorf("%s must be at most %s characters", e.Field(), e.Param())
	default:
		return fmt.Errorf("%s is invalid", e.Field())
	}
}
