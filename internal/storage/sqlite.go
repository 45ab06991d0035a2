package storage

import (
	"database/sql"
	"embed"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	_ "modernc.org/sqlite"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

// Store wraps a SQLite database holding users and practice sessions.
type Store struct {
	db *sql.DB
}

// Open opens (or creates) a SQLite database in dataDir and runs pending migrations.
// Pass ":memory:" as dataDir for an in-memory database (used by tests).
func Open(dataDir string) (*Store, error) {
	var dsn string
	if dataDir == ":memory:" {
		dsn = ":memory:"
	} else {
		if err := os.MkdirAll(dataDir, 0o755); err != nil {
			return nil, fmt.Errorf("creating data directory: %w", err)
		}
		dsn = filepath.Join(dataDir, "charla.db")
	}

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("pinging database: %w", err)
	}

	// Limit to single connection to avoid "database is locked" errors.
	db.SetMaxOpenConns(1)

	// Set busy timeout so concurrent access waits briefly instead of failing immediately.
	if _, err := db.Exec("PRAGMA busy_timeout = 5000"); err != nil {
		db.Close()
		return nil, fmt.Errorf("setting busy timeout: %w", err)
	}

	// Enable WAL mode for better concurrent read performance.
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("setting journal mode: %w", err)
	}

	s := &Store{db: db}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("running migrations: %w", err)
	}

	return s, nil
}

// Close closes the underlying database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// DB exposes the underlying handle for migrations tooling and tests.
func (s *Store) DB() *sql.DB {
	return s.db
}

// migrate reads embedded SQL migration files and applies any that haven't been run yet.
func (s *Store) migrate() error {
	if _, err := s.db.Exec(`CREATE TABLE IF NOT EXISTS schema_version (
		version INTEGER PRIMARY KEY,
		applied_at DATETIME DEFAULT CURRENT_TIMESTAMP
	)`); err != nil {
		return fmt.Errorf("creating schema_version table: %w", err)
	}

	entries, err := migrationsFS.ReadDir("migrations")
	if err != nil {
		return fmt.Errorf("reading migrations directory: %w", err)
	}

	sort.Slice(entries, func(i, j int) bool {
		return entries[i].Name() < entries[j].Name()
	})

	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".sql") {
			continue
		}

		var version int
		if _, err := fmt.Sscanf(entry.Name(), "%d_", &version); err != nil {
			return fmt.Errorf("parsing migration version from %q: %w", entry.Name(), err)
		}

		var exists int
		if err := s.db.QueryRow("SELECT COUNT(*) FROM schema_version WHERE version = ?", version).Scan(&exists); err != nil {
			return fmt.Errorf("checking migration %d: %w", version, err)
		}
		if exists > 0 {
			continue
		}

		content, err := migrationsFS.ReadFile("migrations/" + entry.Name())
		if err != nil {
			return fmt.Errorf("reading migration %s: %w", entry.Name(), err)
		}

		tx, err := s.db.Begin()
		if err != nil {
			return fmt.Errorf("beginning transaction for migration %d: %w", version, err)
		}
		if _, err := tx.Exec(string(content)); err != nil {
			tx.Rollback()
			return fmt.Errorf("applying migration %d: %w", version, err)
		}
		if _, err := tx.Exec("INSERT INTO schema_version (version) VALUES (?)", version); err != nil {
			tx.Rollback()
			return fmt.Errorf("recording migration %d: %w", version, err)
		}
		if err := tx.Commit(); err != nil {
			return fmt.Errorf("committing migration %d: %w", version, err)
		}
	}

	return nil
}

// --- Users ---

// UpsertUser registers a chat, or refreshes the username if it already exists.
// Existing preferences are left untouched on conflict.
func (s *Store) UpsertUser(chatID int64, username string) (User, error) {
	now := time.Now().UTC().Format(time.RFC3339)
	_, err := s.db.Exec(`
		INSERT INTO users (chat_id, username, created_at) VALUES (?, ?, ?)
		ON CONFLICT(chat_id) DO UPDATE SET username = excluded.username`,
		chatID, username, now,
	)
	if err != nil {
		return User{}, fmt.Errorf("upserting user %d: %w", chatID, err)
	}
	return s.GetUser(chatID)
}

const userColumns = `chat_id, username, preferred_hour, timezone, difficulty, is_subscribed, last_prompt, last_prompt_at, created_at`

// GetUser returns the user for chatID, or ErrNotFound.
func (s *Store) GetUser(chatID int64) (User, error) {
	row := s.db.QueryRow(`SELECT `+userColumns+` FROM users WHERE chat_id = ?`, chatID)
	u, err := scanUser(row)
	if err == sql.ErrNoRows {
		return User{}, ErrNotFound
	}
	if err != nil {
		return User{}, fmt.Errorf("loading user %d: %w", chatID, err)
	}
	return u, nil
}

// UpdateSettings applies the non-nil fields of settings to the user row.
func (s *Store) UpdateSettings(chatID int64, settings Settings) (User, error) {
	var sets []string
	var args []any

	if settings.PreferredHour != nil {
		sets = append(sets, "preferred_hour = ?")
		args = append(args, *settings.PreferredHour)
	}
	if settings.Timezone != nil {
		sets = append(sets, "timezone = ?")
		args = append(args, *settings.Timezone)
	}
	if settings.Difficulty != nil {
		if !ValidDifficulty(*settings.Difficulty) {
			return User{}, fmt.Errorf("invalid difficulty %q", *settings.Difficulty)
		}
		sets = append(sets, "difficulty = ?")
		args = append(args, string(*settings.Difficulty))
	}

	if len(sets) == 0 {
		return s.GetUser(chatID)
	}

	args = append(args, chatID)
	res, err := s.db.Exec(`UPDATE users SET `+strings.Join(sets, ", ")+` WHERE chat_id = ?`, args...)
	if err != nil {
		return User{}, fmt.Errorf("updating settings for user %d: %w", chatID, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return User{}, err
	}
	if n == 0 {
		return User{}, ErrNotFound
	}
	return s.GetUser(chatID)
}

// UpdateLastPrompt records prompt as the user's active practice prompt
// and stamps last_prompt_at with the current time.
func (s *Store) UpdateLastPrompt(chatID int64, prompt string) error {
	now := time.Now().UTC().Format(time.RFC3339)
	res, err := s.db.Exec(`UPDATE users SET last_prompt = ?, last_prompt_at = ? WHERE chat_id = ?`,
		prompt, now, chatID)
	if err != nil {
		return fmt.Errorf("updating last prompt for user %d: %w", chatID, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

// UsersDueForHour returns every subscribed user whose preferred hour is hour
// and who has not been prompted since the start of the current UTC day.
// Eligibility is computed against the process reference clock; the stored
// timezone is display-only.
func (s *Store) UsersDueForHour(hour int) ([]User, error) {
	now := time.Now().UTC()
	dayStart := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC).Format(time.RFC3339)

	rows, err := s.db.Query(`
		SELECT `+userColumns+` FROM users
		WHERE is_subscribed = 1 AND preferred_hour = ?
		AND (last_prompt_at IS NULL OR last_prompt_at < ?)`,
		hour, dayStart,
	)
	if err != nil {
		return nil, fmt.Errorf("selecting due users for hour %d: %w", hour, err)
	}
	defer rows.Close()

	var users []User
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning due user: %w", err)
		}
		users = append(users, u)
	}
	return users, rows.Err()
}

// AllUsers returns every registered user.
func (s *Store) AllUsers() ([]User, error) {
	rows, err := s.db.Query(`SELECT ` + userColumns + ` FROM users ORDER BY created_at ASC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var users []User
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning user: %w", err)
		}
		users = append(users, u)
	}
	return users, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanUser(row rowScanner) (User, error) {
	var u User
	var subscribed int
	var lastPrompt, lastPromptAt sql.NullString
	var createdAt string
	if err := row.Scan(&u.ChatID, &u.Username, &u.PreferredHour, &u.Timezone, &u.Difficulty,
		&subscribed, &lastPrompt, &lastPromptAt, &createdAt); err != nil {
		return User{}, err
	}
	u.IsSubscribed = subscribed != 0
	u.LastPrompt = lastPrompt.String
	if lastPromptAt.Valid && lastPromptAt.String != "" {
		t, err := time.Parse(time.RFC3339, lastPromptAt.String)
		if err != nil {
			return User{}, fmt.Errorf("parsing last_prompt_at: %w", err)
		}
		u.LastPromptAt = t
	}
	t, err := time.Parse(time.RFC3339, createdAt)
	if err != nil {
		return User{}, fmt.Errorf("parsing created_at: %w", err)
	}
	u.CreatedAt = t
	return u, nil
}

// --- Sessions ---

// SaveSession appends one completed analysis to the practice history.
func (s *Store) SaveSession(sess Session) error {
	createdAt := sess.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now().UTC()
	}
	_, err := s.db.Exec(`
		INSERT INTO sessions (id, chat_id, prompt, transcription, mistake_count, created_at)
		VALUES (?, ?, ?, ?, ?, ?)`,
		sess.ID, sess.ChatID, sess.Prompt, sess.Transcription, sess.MistakeCount,
		createdAt.UTC().Format(time.RFC3339),
	)
	if err != nil {
		return fmt.Errorf("saving session %s: %w", sess.ID, err)
	}
	return nil
}

// RecentSessions returns the newest sessions for a chat, most recent first.
func (s *Store) RecentSessions(chatID int64, limit int) ([]Session, error) {
	rows, err := s.db.Query(`
		SELECT id, chat_id, prompt, transcription, mistake_count, created_at
		FROM sessions WHERE chat_id = ? ORDER BY created_at DESC LIMIT ?`,
		chatID, limit,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var sessions []Session
	for rows.Next() {
		var sess Session
		var createdAt string
		if err := rows.Scan(&sess.ID, &sess.ChatID, &sess.Prompt, &sess.Transcription, &sess.MistakeCount, &createdAt); err != nil {
			return nil, err
		}
		t, err := time.Parse(time.RFC3339, createdAt)
		if err != nil {
			return nil, fmt.Errorf("parsing created_at: %w", err)
		}
		sess.CreatedAt = t
		sessions = append(sessions, sess)
	}
	return sessions, rows.Err()
}

// CountSessions returns the total number of stored practice sessions.
func (s *Store) CountSessions() (int, error) {
	var n int
	if err := s.db.QueryRow(`SELECT COUNT(*) FROM sessions`).Scan(&n); err != nil {
		return 0, err
	}
	return n, nil
}
