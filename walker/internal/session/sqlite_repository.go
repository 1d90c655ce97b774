package session

import (
	"context"
	"database/sql"
	"fmt"

	_ "modernc.org/sqlite"
)

var sqliteSchema = []string{
	`PRAGMA foreign_keys = ON`,
	`CREATE TABLE IF NOT EXISTS walk_sessions (
		id TEXT PRIMARY KEY,
		status TEXT NOT NULL,
		started_at TIMESTAMP NOT NULL,
		stopped_at TIMESTAMP,
		saved_at TIMESTAMP,
		total_duration_ms INTEGER NOT NULL DEFAULT 0,
		total_frames INTEGER NOT NULL DEFAULT 0,
		video_duration REAL NOT NULL DEFAULT 0,
		metadata TEXT
	)`,
	`CREATE TABLE IF NOT EXISTS walk_frames (
		session_id TEXT NOT NULL REFERENCES walk_sessions(id) ON DELETE CASCADE,
		frame_index INTEGER NOT NULL,
		ts REAL NOT NULL,
		risk_level TEXT NOT NULL,
		action TEXT NOT NULL,
		direction TEXT NOT NULL,
		data TEXT NOT NULL,
		PRIMARY KEY (session_id, frame_index)
	)`,
	`CREATE TABLE IF NOT EXISTS walk_reports (
		session_id TEXT PRIMARY KEY REFERENCES walk_sessions(id) ON DELETE CASCADE,
		average_risk_level TEXT NOT NULL,
		risk_trend TEXT NOT NULL,
		data TEXT NOT NULL,
		created_at TIMESTAMP NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS idx_walk_sessions_started_at ON walk_sessions (started_at DESC)`,
}

// SQLiteRepository реализует Repository во встроенной базе для
// развёртывания на одном устройстве
type SQLiteRepository struct {
	*sqlRepository
}

// NewSQLiteRepository открывает (или создаёт) файл базы и применяет схему
func NewSQLiteRepository(ctx context.Context, path string) (*SQLiteRepository, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// Одно соединение на файл базы
	db.SetMaxOpenConns(1)

	repo := &SQLiteRepository{
		sqlRepository: &sqlRepository{
			db:     db,
			rebind: rebindQuestion,
			schema: sqliteSchema,
		},
	}

	if err := repo.Migrate(ctx); err != nil {
		db.Close()
		return nil, err
	}

	return repo, nil
}
