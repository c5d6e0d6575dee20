// Package identity provides anonymous per-device identity primitives.
package identity

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"regexp"
	"time"

	"github.com/medassist/medassist/internal/domain"
)

const (
	CookieName      = "medassist_uid"
	cookieMaxAge    = 365 * 24 * time.Hour
	lastSeenRefresh = time.Minute
)

type contextKey int

const userIDKey contextKey = iota

var userIDPattern = regexp.MustCompile(`^u_[a-f0-9]{32}$`)

// UserStore is the slice of the repository the middleware needs.
type UserStore interface {
	GetUser(ctx context.Context, userID string) (*domain.User, error)
	UpsertUser(ctx context.Context, user *domain.User) error
	UpdateLastSeen(ctx context.Context, userID string, lastSeen time.Time) error
}

// UserIDFromContext extracts the user ID from the request context.
func UserIDFromContext(ctx context.Context) string {
	if v, ok := ctx.Value(userIDKey).(string); ok {
		return v
	}
	return ""
}

// WithUserID returns a context carrying userID.
func WithUserID(ctx context.Context, userID string) context.Context {
	return context.WithValue(ctx, userIDKey, userID)
}

func generateUserID() (string, error) {
	buf := make([]byte, 16)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("generate user id: %w", err)
	}
	return "u_" + hex.EncodeToString(buf), nil
}

func isValidUserID(id string) bool {
	return userIDPattern.MatchString(id)
}

func displayName(userID string) string {
	if len(userID) > 10 {
		return "guest-" + userID[len(userID)-6:]
	}
	return "guest"
}

// ensureUser creates the user record on first sight and refreshes
// last_seen_at at most once per lastSeenRefresh.
func ensureUser(ctx context.Context, repo UserStore, userID string, now time.Time) error {
	user, err := repo.GetUser(ctx, userID)
	if err != nil {
		return err
	}
	if user == nil {
		return repo.UpsertUser(ctx, &domain.User{
			UserID:      userID,
			DisplayName: displayName(userID),
			LastSeenAt:  now,
			CreatedAt:   now,
			UpdatedAt:   now,
		})
	}
	if user.IdleFor(now) < lastSeenRefresh {
		return nil
	}
	return repo.UpdateLastSeen(ctx, userID, now)
}

func setCookie(w http.ResponseWriter, id string, secure bool) {
	http.SetCookie(w, &http.Cookie{
		Name:     CookieName,
		Value:    id,
		Path:     "/",
		MaxAge:   int(cookieMaxAge.Seconds()),
		Expires:  time.Now().Add(cookieMaxAge),
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
		Secure:   secure,
	})
}

func getOrCreateUserID(w http.ResponseWriter, r *http.Request, isDev bool) (string, error) {
	if c, err := r.Cookie(CookieName); err == nil && isValidUserID(c.Value) {
		setCookie(w, c.Value, !isDev)
		return c.Value, nil
	}

	id, err := generateUserID()
	if err != nil {
		return "", err
	}
	setCookie(w, id, !isDev)
	return id, nil
}

// Middleware assigns every client an anonymous user ID via cookie and makes
// sure the user record exists.
func Middleware(repo UserStore, isDev bool) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			userID, err := getOrCreateUserID(w, r, isDev)
			if err != nil {
				http.Error(w, `{"error":"failed to establish anonymous identity"}`, http.StatusInternalServerError)
				return
			}

			if err := ensureUser(r.Context(), repo, userID, time.Now()); err != nil {
				slog.Error("Failed to initialize anonymous user", "user_id", userID, "error", err)
				http.Error(w, `{"error":"failed to initialize anonymous user"}`, http.StatusInternalServerError)
				return
			}

			next.ServeHTTP(w, r.WithContext(WithUserID(r.Context(), userID)))
		})
	}
}

// IPFromRequest returns a normalized remote IP.
func IPFromRequest(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
