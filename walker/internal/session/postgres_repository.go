package session

import (
	"database/sql"
	"fmt"
	"time"

	_ "github.com/lib/pq"
)

var postgresSchema = []string{
	`CREATE TABLE IF NOT EXISTS walk_sessions (
		id TEXT PRIMARY KEY,
		status TEXT NOT NULL,
		started_at TIMESTAMPTZ NOT NULL,
		stopped_at TIMESTAMPTZ,
		saved_at TIMESTAMPTZ,
		total_duration_ms BIGINT NOT NULL DEFAULT 0,
		total_frames BIGINT NOT NULL DEFAULT 0,
		video_duration DOUBLE PRECISION NOT NULL DEFAULT 0,
		metadata JSONB
	)`,
	`CREATE TABLE IF NOT EXISTS walk_frames (
		session_id TEXT NOT NULL REFERENCES walk_sessions(id) ON DELETE CASCADE,
		frame_index INTEGER NOT NULL,
		ts DOUBLE PRECISION NOT NULL,
		risk_level TEXT NOT NULL,
		action TEXT NOT NULL,
		direction TEXT NOT NULL,
		data JSONB NOT NULL,
		PRIMARY KEY (session_id, frame_index)
	)`,
	`CREATE TABLE IF NOT EXISTS walk_reports (
		session_id TEXT PRIMARY KEY REFERENCES walk_sessions(id) ON DELETE CASCADE,
		average_risk_level TEXT NOT NULL,
		risk_trend TEXT NOT NULL,
		data JSONB NOT NULL,
		created_at TIMESTAMPTZ NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS idx_walk_sessions_started_at ON walk_sessions (started_at DESC)`,
}

// PostgresRepository реализует Repository для PostgreSQL (Infrastructure Layer)
type PostgresRepository struct {
	*sqlRepository
}

// NewPostgresRepository создает новый экземпляр PostgresRepository
func NewPostgresRepository(db *sql.DB) *PostgresRepository {
	return &PostgresRepository{
		sqlRepository: &sqlRepository{
			db:     db,
			rebind: rebindPostgres,
			schema: postgresSchema,
		},
	}
}

// NewPostgresRepositoryFromDSN создает репозиторий из строки подключения
func NewPostgresRepositoryFromDSN(dsn string) (*PostgresRepository, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// Проверяем соединение
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	// Настройки пула соединений
	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(5 * time.Minute)

	return NewPostgresRepository(db), nil
}
