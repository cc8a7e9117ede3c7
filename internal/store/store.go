package store

import (
	"database/sql"
	"os"
	"path/filepath"
	"strings"

	_ "modernc.org/sqlite"

	"github.com/yenceelabs/speak-to-slides/pkg/errors"
)

// Store is the SQLite-backed persistence gateway for decks,
// conversations and usage records. Single process, single writer; WAL
// keeps reads cheap while a turn is writing.
type Store struct {
	db *sql.DB
}

func Open(path string) (*Store, error) {
	p := filepath.Clean(strings.TrimSpace(path))
	if p == "" {
		return nil, errors.New(errors.ErrCodeStorage, "missing db path")
	}
	if err := os.MkdirAll(filepath.Dir(p), 0o700); err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeStorage, "failed to create db directory")
	}

	db, err := sql.Open("sqlite", p)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeStorage, "failed to open sqlite db")
	}
	if err := initSchema(db); err != nil {
		_ = db.Close()
		return nil, errors.Wrap(err, errors.ErrCodeStorage, "failed to init schema")
	}

	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	return &Store{db: db}, nil
}

func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

func initSchema(db *sql.DB) error {
	stmts := []string{
		`PRAGMA journal_mode=WAL`,
		`CREATE TABLE IF NOT EXISTS decks (
			id TEXT PRIMARY KEY,
			user_id TEXT NOT NULL DEFAULT '',
			title TEXT NOT NULL DEFAULT '',
			prompt TEXT NOT NULL DEFAULT '',
			html TEXT NOT NULL DEFAULT '',
			slides_json TEXT NOT NULL DEFAULT '[]',
			slide_count INTEGER NOT NULL DEFAULT 0,
			theme TEXT NOT NULL DEFAULT 'modern',
			is_public INTEGER NOT NULL DEFAULT 1,
			is_pro INTEGER NOT NULL DEFAULT 0,
			conversation_id TEXT NOT NULL DEFAULT '',
			view_count INTEGER NOT NULL DEFAULT 0,
			created_at_unix_ms INTEGER NOT NULL DEFAULT 0,
			updated_at_unix_ms INTEGER NOT NULL DEFAULT 0
		)`,
		`CREATE TABLE IF NOT EXISTS conversations (
			id TEXT PRIMARY KEY,
			chat_id TEXT NOT NULL,
			channel TEXT NOT NULL DEFAULT 'telegram',
			state TEXT NOT NULL DEFAULT 'gathering',
			messages_json TEXT NOT NULL DEFAULT '[]',
			outline_json TEXT NOT NULL DEFAULT '',
			deck_id TEXT NOT NULL DEFAULT '',
			created_at_unix_ms INTEGER NOT NULL DEFAULT 0,
			updated_at_unix_ms INTEGER NOT NULL DEFAULT 0
		)`,
		`CREATE INDEX IF NOT EXISTS idx_conversations_chat_state ON conversations(chat_id, state, created_at_unix_ms)`,
		`CREATE TABLE IF NOT EXISTS usage_records (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			user_id TEXT NOT NULL DEFAULT '',
			ip_address TEXT NOT NULL DEFAULT '',
			created_at_unix_ms INTEGER NOT NULL DEFAULT 0
		)`,
		`CREATE INDEX IF NOT EXISTS idx_usage_ip ON usage_records(ip_address)`,
	}
	for _, stmt := range stmts {
		if _, err := db.Exec(stmt); err != nil {
			return err
		}
	}
	return nil
}
