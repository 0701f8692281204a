package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"path/filepath"
	"strings"
	"time"

	_ "modernc.org/sqlite"
)

// Keys used in session storage.
const (
	KeySession   = "taskflow.session"
	KeyCookies   = "taskflow.cookies"
	KeyTakeovers = "taskflow.takeovers"
	KeyLastPage  = "taskflow.page"
)

const sessionDBFileName = "session.db"

// SessionStorage is a per-profile key/value store holding client session state
// (the signed-in user, backend cookies, local-only drafts). It is cleared on logout.
type SessionStorage struct {
	db   *sql.DB
	path string
}

func OpenSessionStorage(ctx context.Context, profileDir string) (*SessionStorage, error) {
	profileDir = strings.TrimSpace(profileDir)
	if profileDir == "" {
		return nil, errors.New("session storage: missing profile dir")
	}
	path := filepath.Join(profileDir, sessionDBFileName)
	// modernc.org/sqlite driver name is "sqlite".
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	// A CLI run and a TUI may share the profile; busy_timeout avoids "database is locked".
	pragmas := []string{
		"PRAGMA journal_mode=WAL;",
		"PRAGMA synchronous=NORMAL;",
		"PRAGMA busy_timeout=5000;",
	}
	for _, p := range pragmas {
		if _, err := db.ExecContext(ctx, p); err != nil {
			_ = db.Close()
			return nil, err
		}
	}
	if _, err := db.ExecContext(ctx, `CREATE TABLE IF NOT EXISTS session_storage (
		k TEXT PRIMARY KEY,
		v TEXT NOT NULL,
		updated_at_unixms INTEGER NOT NULL
	);`); err != nil {
		_ = db.Close()
		return nil, err
	}
	return &SessionStorage{db: db, path: path}, nil
}

func (s *SessionStorage) Path() string { return s.path }

func (s *SessionStorage) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

// Get returns the value for key; ok is false when the key is absent.
func (s *SessionStorage) Get(ctx context.Context, key string) (string, bool, error) {
	var v string
	err := s.db.QueryRowContext(ctx, `SELECT v FROM session_storage WHERE k = ?`, key).Scan(&v)
	if errors.Is(err, sql.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	return v, true, nil
}

func (s *SessionStorage) Set(ctx context.Context, key, value string) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT OR REPLACE INTO session_storage(k, v, updated_at_unixms) VALUES(?, ?, ?)`,
		key, value, time.Now().UnixMilli())
	return err
}

func (s *SessionStorage) Remove(ctx context.Context, key string) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM session_storage WHERE k = ?`, key)
	return err
}

// Clear removes every key.
func (s *SessionStorage) Clear(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM session_storage`)
	return err
}

// Keys lists stored keys in sorted order.
func (s *SessionStorage) Keys(ctx context.Context) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT k FROM session_storage ORDER BY k`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []string
	for rows.Next() {
		var k string
		if err := rows.Scan(&k); err != nil {
			return nil, err
		}
		out = append(out, k)
	}
	return out, rows.Err()
}

// GetJSON decodes the value for key into v. A corrupt value is treated as missing.
func (s *SessionStorage) GetJSON(ctx context.Context, key string, v any) (bool, error) {
	raw, ok, err := s.Get(ctx, key)
	if err != nil || !ok {
		return false, err
	}
	if err := json.Unmarshal([]byte(raw), v); err != nil {
		return false, nil
	}
	return true, nil
}

func (s *SessionStorage) SetJSON(ctx context.Context, key string, v any) error {
	b, err := json.Marshal(v)
	if err != nil {
		return err
	}
	return s.Set(ctx, key, string(b))
}
