package session

import (
	"database/sql"
	"embed"
	"io/fs"
	"os"
	"path/filepath"

	_ "github.com/mattn/go-sqlite3"
)

// tokenKey is the fixed key the credential token is persisted under.
const tokenKey = "token"

// Storage persists the credential token across restarts. Absence of a token
// means anonymous.
type Storage interface {
	ReadToken() (string, error)
	WriteToken(token string) error
	ClearToken() error
}

//go:embed schema.sql
var schemaFS embed.FS

// SQLiteStorage keeps the token in a one-row sqlite table, the local
// equivalent of the browser's durable key-value storage.
type SQLiteStorage struct {
	db *sql.DB
}

func OpenStorage(path string) (*SQLiteStorage, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, err
		}
	}
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, err
	}
	if err := migrate(db); err != nil {
		db.Close()
		return nil, err
	}
	return &SQLiteStorage{db: db}, nil
}

func migrate(db *sql.DB) error {
	sqlBytes, err := fs.ReadFile(schemaFS, "schema.sql")
	if err != nil {
		return err
	}
	if _, err := db.Exec(string(sqlBytes)); err != nil {
		return err
	}
	return nil
}

func (s *SQLiteStorage) ReadToken() (string, error) {
	var token string
	err := s.db.QueryRow(`SELECT value FROM credentials WHERE key = ?`, tokenKey).Scan(&token)
	if err == sql.ErrNoRows {
		return "", nil
	}
	if err != nil {
		return "", err
	}
	return token, nil
}

func (s *SQLiteStorage) WriteToken(token string) error {
	_, err := s.db.Exec(`INSERT INTO credentials (key, value) VALUES (?, ?)
		ON CONFLICT(key) DO UPDATE SET value = excluded.value`, tokenKey, token)
	return err
}

func (s *SQLiteStorage) ClearToken() error {
	_, err := s.db.Exec(`DELETE FROM credentials WHERE key = ?`, tokenKey)
	return err
}

func (s *SQLiteStorage) Close() error {
	return s.db.Close()
}

// MemoryStorage holds the token in memory only. Used in tests.
type MemoryStorage struct {
	token string
}

func (m *MemoryStorage) ReadToken() (string, error) { return m.token, nil }

func (m *MemoryStorage) WriteToken(token string) error { m.token = token; return nil }

func (m *MemoryStorage) ClearToken() error { m.token = ""; return nil }
