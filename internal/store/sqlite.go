package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"

	"github.com/medassist/medassist/internal/domain"
	"github.com/medassist/medassist/internal/shared"
)

// SQLiteStore implements Repository using SQLite.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLite creates a new SQLite-backed repository.
func NewSQLite(dbPath string) (*SQLiteStore, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("create database directory: %w", err)
	}

	// WAL journal, 5s busy timeout.
	dsn := dbPath + "?_pragma=journal_mode(WAL)&_pragma=synchronous(NORMAL)&_pragma=busy_timeout(5000)&_pragma=foreign_keys(1)"
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(5 * time.Minute)

	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	store := &SQLiteStore{db: db}
	if err := store.initSchema(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("initialize schema: %w", err)
	}

	return store, nil
}

func (s *SQLiteStore) initSchema() error {
	query := `
	CREATE TABLE IF NOT EXISTS users (
		user_id TEXT PRIMARY KEY,
		display_name TEXT NOT NULL,
		last_seen_at INTEGER NOT NULL,
		created_at INTEGER NOT NULL,
		updated_at INTEGER NOT NULL
	);

	CREATE TABLE IF NOT EXISTS sessions (
		user_id TEXT PRIMARY KEY,
		step INTEGER NOT NULL DEFAULT 1,
		context_json TEXT NOT NULL DEFAULT '{}',
		created_at INTEGER NOT NULL,
		updated_at INTEGER NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_sessions_stale ON sessions(updated_at) WHERE step != 1;

	CREATE TABLE IF NOT EXISTS reminders (
		user_id TEXT NOT NULL,
		name TEXT NOT NULL COLLATE NOCASE,
		time TEXT NOT NULL DEFAULT '',
		info TEXT NOT NULL DEFAULT '',
		condition TEXT NOT NULL DEFAULT '',
		created_at INTEGER NOT NULL,
		updated_at INTEGER NOT NULL,
		PRIMARY KEY (user_id, name)
	);

	CREATE TABLE IF NOT EXISTS chat_messages (
		id TEXT PRIMARY KEY,
		user_id TEXT NOT NULL,
		role TEXT NOT NULL,
		content TEXT NOT NULL,
		created_at INTEGER NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_chat_messages_user ON chat_messages(user_id, created_at);
	`
	if _, err := s.db.Exec(query); err != nil {
		return fmt.Errorf("create schema: %w", err)
	}
	return nil
}

// exec runs a write statement, retrying on lock contention.
func (s *SQLiteStore) exec(ctx context.Context, op, query string, args ...interface{}) (sql.Result, error) {
	var result sql.Result
	err := shared.RetryOnConflict(ctx, op, func() error {
		var err error
		result, err = s.db.ExecContext(ctx, query, args...)
		return err
	})
	return result, err
}

// Ping verifies database connectivity.
func (s *SQLiteStore) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// Close closes the database connection.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// GetUser retrieves a user by their user ID.
func (s *SQLiteStore) GetUser(ctx context.Context, userID string) (*domain.User, error) {
	query := `
		SELECT user_id, display_name, last_seen_at, created_at, updated_at
		FROM users WHERE user_id = ?`

	var user domain.User
	var lastSeen, createdAt, updatedAt int64
	err := s.db.QueryRowContext(ctx, query, userID).Scan(
		&user.UserID, &user.DisplayName, &lastSeen, &createdAt, &updatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("scan user row: %w", err)
	}

	user.LastSeenAt = time.Unix(lastSeen, 0)
	user.CreatedAt = time.Unix(createdAt, 0)
	user.UpdatedAt = time.Unix(updatedAt, 0)
	return &user, nil
}

// UpsertUser creates or updates a user record.
func (s *SQLiteStore) UpsertUser(ctx context.Context, user *domain.User) error {
	query := `
	INSERT INTO users (user_id, display_name, last_seen_at, created_at, updated_at)
	VALUES (?, ?, ?, ?, ?)
	ON CONFLICT(user_id) DO UPDATE SET
		display_name = excluded.display_name,
		last_seen_at = excluded.last_seen_at,
		updated_at = excluded.updated_at`

	_, err := s.exec(ctx, "upsert_user", query,
		user.UserID, user.DisplayName, user.LastSeenAt.Unix(),
		user.CreatedAt.Unix(), user.UpdatedAt.Unix(),
	)
	if err != nil {
		return fmt.Errorf("upsert user: %w", err)
	}
	return nil
}

// UpdateLastSeen updates the last_seen_at timestamp for a user.
func (s *SQLiteStore) UpdateLastSeen(ctx context.Context, userID string, lastSeen time.Time) error {
	query := `UPDATE users SET last_seen_at = ?, updated_at = ? WHERE user_id = ?`
	result, err := s.exec(ctx, "update_last_seen", query, lastSeen.Unix(), time.Now().Unix(), userID)
	if err != nil {
		return fmt.Errorf("update last_seen: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("get rows affected: %w", err)
	}
	if rows == 0 {
		slog.Warn("UpdateLastSeen affected 0 rows", "user_id", userID)
	}
	return nil
}

// GetSession returns the dialogue session of a user.
func (s *SQLiteStore) GetSession(ctx context.Context, userID string) (*domain.Session, error) {
	query := `SELECT user_id, step, context_json, created_at, updated_at FROM sessions WHERE user_id = ?`

	var sess domain.Session
	var step int
	var contextJSON string
	var createdAt, updatedAt int64
	err := s.db.QueryRowContext(ctx, query, userID).Scan(&sess.UserID, &step, &contextJSON, &createdAt, &updatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("scan session row: %w", err)
	}

	sess.Step = domain.Step(step)
	if contextJSON != "" {
		if err := json.Unmarshal([]byte(contextJSON), &sess.Context); err != nil {
			// A corrupt context is handed back empty; the dialogue layer
			// notices the step/context mismatch and resets.
			slog.Warn("discarding unreadable session context", "user_id", userID, "error", err)
			sess.Context = domain.SessionContext{}
		}
	}
	sess.CreatedAt = time.Unix(createdAt, 0)
	sess.UpdatedAt = time.Unix(updatedAt, 0)
	return &sess, nil
}

// UpsertSession creates or replaces a dialogue session.
func (s *SQLiteStore) UpsertSession(ctx context.Context, session *domain.Session) error {
	contextJSON, err := json.Marshal(session.Context)
	if err != nil {
		return fmt.Errorf("marshal session context: %w", err)
	}

	createdAt := session.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now()
	}
	updatedAt := session.UpdatedAt
	if updatedAt.IsZero() {
		updatedAt = time.Now()
	}

	query := `
	INSERT INTO sessions (user_id, step, context_json, created_at, updated_at)
	VALUES (?, ?, ?, ?, ?)
	ON CONFLICT(user_id) DO UPDATE SET
		step = excluded.step,
		context_json = excluded.context_json,
		updated_at = excluded.updated_at`

	if _, err := s.exec(ctx, "upsert_session", query,
		session.UserID, int(session.Step), string(contextJSON), createdAt.Unix(), updatedAt.Unix(),
	); err != nil {
		return fmt.Errorf("upsert session: %w", err)
	}
	return nil
}

// StaleSessionUsers lists users whose mid-flow session is older than cutoff.
func (s *SQLiteStore) StaleSessionUsers(ctx context.Context, cutoff time.Time) ([]string, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT user_id FROM sessions WHERE step != 1 AND updated_at < ? ORDER BY updated_at`, cutoff.Unix())
	if err != nil {
		return nil, fmt.Errorf("query stale sessions: %w", err)
	}
	defer rows.Close()

	var users []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan stale session: %w", err)
		}
		users = append(users, id)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate stale sessions: %w", err)
	}
	return users, nil
}

// ResetStaleSession resets a still-stale mid-flow session to idle.
func (s *SQLiteStore) ResetStaleSession(ctx context.Context, userID string, cutoff time.Time) (bool, error) {
	result, err := s.exec(ctx, "reset_stale_session",
		`UPDATE sessions SET step = 1, context_json = '{}', updated_at = ?
		 WHERE user_id = ? AND step != 1 AND updated_at < ?`,
		time.Now().Unix(), userID, cutoff.Unix())
	if err != nil {
		return false, fmt.Errorf("reset stale session: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("get rows affected: %w", err)
	}
	return rows > 0, nil
}

// UpsertReminder creates a reminder or updates the existing one with the same
// name. Names compare case-insensitively.
func (s *SQLiteStore) UpsertReminder(ctx context.Context, r *domain.Reminder) error {
	now := time.Now()
	createdAt, updatedAt := r.CreatedAt, r.UpdatedAt
	if createdAt.IsZero() {
		createdAt = now
	}
	if updatedAt.IsZero() {
		updatedAt = now
	}

	query := `
	INSERT INTO reminders (user_id, name, time, info, condition, created_at, updated_at)
	VALUES (?, ?, ?, ?, ?, ?, ?)
	ON CONFLICT(user_id, name) DO UPDATE SET
		name = excluded.name,
		time = excluded.time,
		info = excluded.info,
		condition = excluded.condition,
		updated_at = excluded.updated_at`

	if _, err := s.exec(ctx, "upsert_reminder", query,
		r.UserID, r.Name, r.Time, r.Info, r.Condition, createdAt.Unix(), updatedAt.Unix(),
	); err != nil {
		return fmt.Errorf("upsert reminder: %w", err)
	}
	return nil
}

// ListReminders returns the user's reminders in creation order.
func (s *SQLiteStore) ListReminders(ctx context.Context, userID string) ([]*domain.Reminder, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT user_id, name, time, info, condition, created_at, updated_at
		FROM reminders WHERE user_id = ? ORDER BY created_at, rowid`, userID)
	if err != nil {
		return nil, fmt.Errorf("query reminders: %w", err)
	}
	defer rows.Close()

	var reminders []*domain.Reminder
	for rows.Next() {
		var r domain.Reminder
		var createdAt, updatedAt int64
		if err := rows.Scan(&r.UserID, &r.Name, &r.Time, &r.Info, &r.Condition, &createdAt, &updatedAt); err != nil {
			return nil, fmt.Errorf("scan reminder row: %w", err)
		}
		r.CreatedAt = time.Unix(createdAt, 0)
		r.UpdatedAt = time.Unix(updatedAt, 0)
		reminders = append(reminders, &r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate reminders: %w", err)
	}
	return reminders, nil
}

// UpdateReminder changes the time and/or name of a reminder.
func (s *SQLiteStore) UpdateReminder(ctx context.Context, userID, name string, update domain.ReminderUpdate) (bool, error) {
	if update.IsEmpty() {
		var exists int
		err := s.db.QueryRowContext(ctx,
			`SELECT 1 FROM reminders WHERE user_id = ? AND name = ?`, userID, name).Scan(&exists)
		if errors.Is(err, sql.ErrNoRows) {
			return false, nil
		}
		if err != nil {
			return false, fmt.Errorf("lookup reminder: %w", err)
		}
		return true, nil
	}

	result, err := s.exec(ctx, "update_reminder", `
		UPDATE reminders SET
			time = COALESCE(?, time),
			name = COALESCE(?, name),
			updated_at = ?
		WHERE user_id = ? AND name = ?`,
		nullable(update.Time), nullable(update.Name), time.Now().Unix(), userID, name)
	if err != nil {
		if shared.IsSQLiteConstraintError(err) {
			return false, ErrReminderExists
		}
		return false, fmt.Errorf("update reminder: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("get rows affected: %w", err)
	}
	return rows > 0, nil
}

// DeleteReminder removes a reminder by name.
func (s *SQLiteStore) DeleteReminder(ctx context.Context, userID, name string) (bool, error) {
	result, err := s.exec(ctx, "delete_reminder",
		`DELETE FROM reminders WHERE user_id = ? AND name = ?`, userID, name)
	if err != nil {
		return false, fmt.Errorf("delete reminder: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("get rows affected: %w", err)
	}
	return rows > 0, nil
}

// AppendMessage appends one chat history entry.
func (s *SQLiteStore) AppendMessage(ctx context.Context, msg *domain.ChatMessage) error {
	ts := msg.Timestamp
	if ts.IsZero() {
		ts = time.Now()
	}
	if _, err := s.exec(ctx, "append_message",
		`INSERT INTO chat_messages (id, user_id, role, content, created_at) VALUES (?, ?, ?, ?, ?)`,
		msg.ID, msg.UserID, string(msg.Role), msg.Content, ts.UnixNano(),
	); err != nil {
		return fmt.Errorf("append message: %w", err)
	}
	return nil
}

// ListMessages returns the user's oldest messages first, up to limit.
func (s *SQLiteStore) ListMessages(ctx context.Context, userID string, limit int) ([]*domain.ChatMessage, error) {
	if limit <= 0 {
		limit = -1
	}
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, user_id, role, content, created_at
		FROM chat_messages WHERE user_id = ?
		ORDER BY created_at, rowid LIMIT ?`, userID, limit)
	if err != nil {
		return nil, fmt.Errorf("query messages: %w", err)
	}
	defer rows.Close()

	var msgs []*domain.ChatMessage
	for rows.Next() {
		var m domain.ChatMessage
		var role string
		var ts int64
		if err := rows.Scan(&m.ID, &m.UserID, &role, &m.Content, &ts); err != nil {
			return nil, fmt.Errorf("scan message row: %w", err)
		}
		m.Role = domain.Role(role)
		m.Timestamp = time.Unix(0, ts)
		msgs = append(msgs, &m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate messages: %w", err)
	}
	return msgs, nil
}

// ClearMessages deletes the user's chat history.
func (s *SQLiteStore) ClearMessages(ctx context.Context, userID string) (int64, error) {
	result, err := s.exec(ctx, "clear_messages", `DELETE FROM chat_messages WHERE user_id = ?`, userID)
	if err != nil {
		return 0, fmt.Errorf("clear messages: %w", err)
	}
	return result.RowsAffected()
}

func nullable(s *string) interface{} {
	if s == nil {
		return nil
	}
	return *s
}
