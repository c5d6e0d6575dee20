// Package sweeper resets dialogue sessions that were abandoned mid-flow.
package sweeper

import (
	"context"
	"log/slog"
	"time"
)

// Store finds and resets stale sessions.
type Store interface {
	StaleSessionUsers(ctx context.Context, cutoff time.Time) ([]string, error)
	ResetStaleSession(ctx context.Context, userID string, cutoff time.Time) (bool, error)
}

// Locker serializes the reset with in-flight turns of the same user.
type Locker interface {
	WithUserLock(userID string, fn func() error) error
}

// Observer is told about every session the sweeper resets.
type Observer interface {
	ObserveSessionReset(reason string)
}

// ResetReason is reported to the Observer for swept sessions.
const ResetReason = "idle"

// Sweeper periodically resets sessions idle for longer than the TTL.
type Sweeper struct {
	store    Store
	locker   Locker
	observer Observer
	ttl      time.Duration
	interval time.Duration
	now      func() time.Time
}

// New creates a Sweeper. observer may be nil.
func New(store Store, locker Locker, observer Observer, ttl, interval time.Duration) *Sweeper {
	return &Sweeper{
		store:    store,
		locker:   locker,
		observer: observer,
		ttl:      ttl,
		interval: interval,
		now:      time.Now,
	}
}

// Start runs the sweep loop in a goroutine until ctx is done.
func (s *Sweeper) Start(ctx context.Context) {
	ticker := time.NewTicker(s.interval)
	go func() {
		defer ticker.Stop()
		slog.Info("Session sweeper started", "interval", s.interval, "ttl", s.ttl)

		for {
			select {
			case <-ticker.C:
				s.Sweep(ctx)
			case <-ctx.Done():
				slog.Info("Session sweeper shutting down", "reason", ctx.Err())
				return
			}
		}
	}()
}

// Sweep resets every mid-flow session older than the TTL and returns how
// many were reset. A session that sees a turn between listing and reset is
// left alone.
func (s *Sweeper) Sweep(ctx context.Context) int {
	cutoff := s.now().Add(-s.ttl)
	users, err := s.store.StaleSessionUsers(ctx, cutoff)
	if err != nil {
		slog.Error("Session sweeper failed to list stale sessions", "error", err)
		return 0
	}
	if len(users) == 0 {
		return 0
	}

	reset := 0
	for _, userID := range users {
		if ctx.Err() != nil {
			slog.Debug("Session sweeper canceled, sweep incomplete", "remaining", len(users)-reset)
			break
		}

		err := s.locker.WithUserLock(userID, func() error {
			ok, err := s.store.ResetStaleSession(ctx, userID, cutoff)
			if err != nil {
				return err
			}
			if ok {
				reset++
				if s.observer != nil {
					s.observer.ObserveSessionReset(ResetReason)
				}
			}
			return nil
		})
		if err != nil {
			slog.Warn("Session sweeper failed to reset session", "user_id", userID, "error", err)
		}
	}

	slog.Info("Session sweep completed", "stale", len(users), "reset", reset)
	return reset
}
