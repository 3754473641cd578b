package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite" // Register driver
)

// DB wraps the sql.DB connection.
type DB struct {
	*sql.DB
}

// Init opens the database and runs migrations.
func Init(path string) (*DB, error) {
	// Ensure directory exists
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("failed to create db dir: %w", err)
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open db: %w", err)
	}

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("failed to ping db: %w", err)
	}

	// Enable WAL mode for better concurrency and set busy timeout
	if _, err := db.Exec("PRAGMA journal_mode=WAL;"); err != nil {
		return nil, fmt.Errorf("failed to enable WAL mode: %w", err)
	}
	if _, err := db.Exec("PRAGMA busy_timeout=30000;"); err != nil {
		return nil, fmt.Errorf("failed to set busy timeout: %w", err)
	}

	d := &DB{db}
	// Enforce single connection to avoid SQLITE_BUSY errors during concurrent writes
	db.SetMaxOpenConns(1)

	if err := d.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("migration failed: %w", err)
	}

	return d, nil
}

func (d *DB) migrate() error {
	queries := []string{
		`CREATE TABLE IF NOT EXISTS persistent_state (
			key TEXT PRIMARY KEY,
			value TEXT,
			created_at DATETIME DEFAULT CURRENT_TIMESTAMP
		);`,
		`CREATE TABLE IF NOT EXISTS scripts (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			topic TEXT,
			minutes REAL,
			model TEXT,
			script TEXT,
			created_at DATETIME DEFAULT CURRENT_TIMESTAMP
		);`,
	}

	for _, q := range queries {
		if _, err := d.Exec(q); err != nil {
			return fmt.Errorf("exec error: %w query: %s", err, q)
		}
	}
	return nil
}

// GetState returns the stored value for key.
func (d *DB) GetState(ctx context.Context, key string) (string, bool) {
	var val string
	err := d.QueryRowContext(ctx, "SELECT value FROM persistent_state WHERE key = ?", key).Scan(&val)
	if err != nil {
		return "", false
	}
	return val, true
}

// SetState stores val under key, replacing any previous value.
func (d *DB) SetState(ctx context.Context, key, val string) error {
	query := `INSERT OR REPLACE INTO persistent_state (key, value, created_at) VALUES (?, ?, ?)`
	_, err := d.ExecContext(ctx, query, key, val, time.Now())
	return err
}

// DeleteState removes key.
func (d *DB) DeleteState(ctx context.Context, key string) error {
	_, err := d.ExecContext(ctx, "DELETE FROM persistent_state WHERE key = ?", key)
	return err
}

// GeneratedScript is an LLM script as first returned, before any human edit.
type GeneratedScript struct {
	ID        int64
	Topic     string
	Minutes   float64
	Model     string
	Script    string
	CreatedAt time.Time
}

// SaveScript archives a generated script and returns its id.
func (d *DB) SaveScript(ctx context.Context, s GeneratedScript) (int64, error) {
	res, err := d.ExecContext(ctx,
		"INSERT INTO scripts (topic, minutes, model, script, created_at) VALUES (?, ?, ?, ?, ?)",
		s.Topic, s.Minutes, s.Model, s.Script, time.Now().UTC())
	if err != nil {
		return 0, fmt.Errorf("failed to save script: %w", err)
	}
	return res.LastInsertId()
}

// GetScript loads an archived script.
func (d *DB) GetScript(ctx context.Context, id int64) (*GeneratedScript, error) {
	var s GeneratedScript
	err := d.QueryRowContext(ctx,
		"SELECT id, topic, minutes, model, script, created_at FROM scripts WHERE id = ?", id).
		Scan(&s.ID, &s.Topic, &s.Minutes, &s.Model, &s.Script, &s.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load script: %w", err)
	}
	return &s, nil
}
