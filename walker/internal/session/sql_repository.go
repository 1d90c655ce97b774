package session

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"regexp"
	"time"

	"github.com/Krimson/ai-walker/walker/internal/analysis"
	"github.com/Krimson/ai-walker/walker/internal/video"
)

// dbtx - общее подмножество *sql.DB и *sql.Tx
type dbtx interface {
	ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error)
	PrepareContext(ctx context.Context, query string) (*sql.Stmt, error)
	QueryContext(ctx context.Context, query string, args ...interface{}) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...interface{}) *sql.Row
}

// sqlRepository реализует Repository поверх database/sql.
// Запросы пишутся с плейсхолдерами PostgreSQL ($1, $2 ...), для других
// драйверов их переписывает rebind. JSON-колонки передаются строкой:
// lib/pq кодирует []byte как bytea.
type sqlRepository struct {
	db     *sql.DB
	rebind func(string) string
	schema []string
}

var pgPlaceholder = regexp.MustCompile(`\$\d+`)

func rebindPostgres(query string) string { return query }

// rebindQuestion заменяет $N на ?; параметры в запросах идут по порядку и не повторяются
func rebindQuestion(query string) string {
	return pgPlaceholder.ReplaceAllString(query, "?")
}

func (r *sqlRepository) Ping(ctx context.Context) error {
	return r.db.PingContext(ctx)
}

// Close закрывает соединение с БД
func (r *sqlRepository) Close() error {
	return r.db.Close()
}

// Migrate создаёт таблицы, если их ещё нет
func (r *sqlRepository) Migrate(ctx context.Context) error {
	for _, stmt := range r.schema {
		if _, err := r.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("failed to apply schema: %w", err)
		}
	}
	return nil
}

// ===== Управление сессиями =====

const upsertSessionQuery = `
		INSERT INTO walk_sessions (id, status, started_at, stopped_at, saved_at, total_duration_ms, total_frames, video_duration, metadata)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		ON CONFLICT (id) DO UPDATE SET
			status = EXCLUDED.status,
			stopped_at = EXCLUDED.stopped_at,
			saved_at = EXCLUDED.saved_at,
			total_duration_ms = EXCLUDED.total_duration_ms,
			total_frames = EXCLUDED.total_frames,
			video_duration = EXCLUDED.video_duration,
			metadata = EXCLUDED.metadata
	`

const selectSessionColumns = `id, status, started_at, stopped_at, saved_at, total_duration_ms, total_frames, video_duration, metadata`

func (r *sqlRepository) CreateSession(ctx context.Context, session *Session) error {
	if err := r.upsertSession(ctx, r.db, session); err != nil {
		return fmt.Errorf("failed to create session: %w", err)
	}
	return nil
}

func (r *sqlRepository) upsertSession(ctx context.Context, q dbtx, session *Session) error {
	metadataJSON, err := json.Marshal(session.Metadata)
	if err != nil {
		return fmt.Errorf("failed to marshal metadata: %w", err)
	}

	_, err = q.ExecContext(ctx, r.rebind(upsertSessionQuery),
		session.ID,
		string(session.Status),
		session.StartedAt,
		session.StoppedAt,
		session.SavedAt,
		session.TotalDurationMs,
		session.TotalFrames,
		session.VideoDuration,
		string(metadataJSON),
	)
	return err
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanSession(row rowScanner) (*Session, error) {
	var session Session
	var status string
	var metadataJSON []byte

	err := row.Scan(
		&session.ID,
		&status,
		&session.StartedAt,
		&session.StoppedAt,
		&session.SavedAt,
		&session.TotalDurationMs,
		&session.TotalFrames,
		&session.VideoDuration,
		&metadataJSON,
	)
	if err != nil {
		return nil, err
	}
	session.Status = SessionStatus(status)

	if len(metadataJSON) > 0 {
		if err := json.Unmarshal(metadataJSON, &session.Metadata); err != nil {
			return nil, fmt.Errorf("failed to unmarshal metadata: %w", err)
		}
	}

	return &session, nil
}

func (r *sqlRepository) GetSession(ctx context.Context, sessionID string) (*Session, error) {
	query := `SELECT ` + selectSessionColumns + ` FROM walk_sessions WHERE id = $1`

	session, err := scanSession(r.db.QueryRowContext(ctx, r.rebind(query), sessionID))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("%w: %s", ErrSessionNotFound, sessionID)
		}
		return nil, fmt.Errorf("failed to get session: %w", err)
	}

	return session, nil
}

func (r *sqlRepository) UpdateSession(ctx context.Context, session *Session) error {
	metadataJSON, err := json.Marshal(session.Metadata)
	if err != nil {
		return fmt.Errorf("failed to marshal metadata: %w", err)
	}

	query := `
		UPDATE walk_sessions
		SET status = $1, stopped_at = $2, saved_at = $3, total_duration_ms = $4, total_frames = $5, video_duration = $6, metadata = $7
		WHERE id = $8
	`

	result, err := r.db.ExecContext(ctx, r.rebind(query),
		string(session.Status),
		session.StoppedAt,
		session.SavedAt,
		session.TotalDurationMs,
		session.TotalFrames,
		session.VideoDuration,
		string(metadataJSON),
		session.ID,
	)
	if err != nil {
		return fmt.Errorf("failed to update session: %w", err)
	}

	rowsAffected, _ := result.RowsAffected()
	if rowsAffected == 0 {
		return fmt.Errorf("%w: %s", ErrSessionNotFound, session.ID)
	}

	return nil
}

func (r *sqlRepository) ListSessions(ctx context.Context, limit, offset int) ([]*Session, error) {
	query := `SELECT ` + selectSessionColumns + ` FROM walk_sessions ORDER BY started_at DESC LIMIT $1 OFFSET $2`

	rows, err := r.db.QueryContext(ctx, r.rebind(query), limit, offset)
	if err != nil {
		return nil, fmt.Errorf("failed to list sessions: %w", err)
	}
	defer rows.Close()

	sessions := make([]*Session, 0)

	for rows.Next() {
		session, err := scanSession(rows)
		if err != nil {
			continue // Пропускаем поврежденные записи
		}
		sessions = append(sessions, session)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate sessions: %w", err)
	}

	return sessions, nil
}

func (r *sqlRepository) DeleteSession(ctx context.Context, sessionID string) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	// Удаляем связанные данные явно, не полагаясь на каскад
	queries := []string{
		"DELETE FROM walk_reports WHERE session_id = $1",
		"DELETE FROM walk_frames WHERE session_id = $1",
		"DELETE FROM walk_sessions WHERE id = $1",
	}

	for _, query := range queries {
		if _, err := tx.ExecContext(ctx, r.rebind(query), sessionID); err != nil {
			return fmt.Errorf("failed to delete session data: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}

	return nil
}

// ===== Кадры =====

const upsertFrameQuery = `
		INSERT INTO walk_frames (session_id, frame_index, ts, risk_level, action, direction, data)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (session_id, frame_index) DO UPDATE SET
			ts = EXCLUDED.ts,
			risk_level = EXCLUDED.risk_level,
			action = EXCLUDED.action,
			direction = EXCLUDED.direction,
			data = EXCLUDED.data
	`

func (r *sqlRepository) SaveFrames(ctx context.Context, sessionID string, frames []analysis.FrameAnalysis) error {
	if len(frames) == 0 {
		return nil
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if err := r.saveFrames(ctx, tx, sessionID, frames); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}

	return nil
}

func (r *sqlRepository) saveFrames(ctx context.Context, q dbtx, sessionID string, frames []analysis.FrameAnalysis) error {
	stmt, err := q.PrepareContext(ctx, r.rebind(upsertFrameQuery))
	if err != nil {
		return fmt.Errorf("failed to prepare statement: %w", err)
	}
	defer stmt.Close()

	for _, fa := range frames {
		data, err := json.Marshal(fa)
		if err != nil {
			return fmt.Errorf("failed to marshal frame: %w", err)
		}

		_, err = stmt.ExecContext(ctx,
			sessionID,
			fa.FrameIndex,
			fa.Timestamp,
			string(fa.RiskLevel),
			string(fa.Guidance.Action),
			string(fa.Guidance.Direction),
			string(data),
		)
		if err != nil {
			return fmt.Errorf("failed to insert frame: %w", err)
		}
	}

	return nil
}

func (r *sqlRepository) GetFrames(ctx context.Context, sessionID string) ([]analysis.FrameAnalysis, error) {
	query := `SELECT data FROM walk_frames WHERE session_id = $1 ORDER BY frame_index ASC`

	rows, err := r.db.QueryContext(ctx, r.rebind(query), sessionID)
	if err != nil {
		return nil, fmt.Errorf("failed to get frames: %w", err)
	}
	defer rows.Close()

	frames := make([]analysis.FrameAnalysis, 0)

	for rows.Next() {
		var data []byte
		if err := rows.Scan(&data); err != nil {
			continue
		}

		var fa analysis.FrameAnalysis
		if err := json.Unmarshal(data, &fa); err != nil {
			continue
		}
		frames = append(frames, fa)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate frames: %w", err)
	}

	return frames, nil
}

// ===== Отчёт =====

const upsertReportQuery = `
		INSERT INTO walk_reports (session_id, average_risk_level, risk_trend, data, created_at)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (session_id) DO UPDATE SET
			average_risk_level = EXCLUDED.average_risk_level,
			risk_trend = EXCLUDED.risk_trend,
			data = EXCLUDED.data,
			created_at = EXCLUDED.created_at
	`

func (r *sqlRepository) SaveReport(ctx context.Context, sessionID string, report *video.Report) error {
	if err := r.saveReport(ctx, r.db, sessionID, report); err != nil {
		return fmt.Errorf("failed to save report: %w", err)
	}
	return nil
}

func (r *sqlRepository) saveReport(ctx context.Context, q dbtx, sessionID string, report *video.Report) error {
	data, err := json.Marshal(report)
	if err != nil {
		return fmt.Errorf("failed to marshal report: %w", err)
	}

	_, err = q.ExecContext(ctx, r.rebind(upsertReportQuery),
		sessionID,
		string(report.VideoSummary.AverageRiskLevel),
		string(report.TemporalAnalysis.RiskTrend),
		string(data),
		time.Now().UTC(),
	)
	return err
}

func (r *sqlRepository) GetReport(ctx context.Context, sessionID string) (*video.Report, error) {
	query := `SELECT data FROM walk_reports WHERE session_id = $1`

	var data []byte
	if err := r.db.QueryRowContext(ctx, r.rebind(query), sessionID).Scan(&data); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("%w: %s", ErrReportNotFound, sessionID)
		}
		return nil, fmt.Errorf("failed to get report: %w", err)
	}

	var report video.Report
	if err := json.Unmarshal(data, &report); err != nil {
		return nil, fmt.Errorf("failed to unmarshal report: %w", err)
	}

	return &report, nil
}

// ===== Сохранение полных данных сессии =====

// SaveSessionData сохраняет сессию, кадры и отчёт в одной транзакции
func (r *sqlRepository) SaveSessionData(ctx context.Context, data *SessionData) error {
	if data == nil || data.Session == nil {
		return fmt.Errorf("empty session data")
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	// 1. Сохраняем/обновляем сессию
	if err := r.upsertSession(ctx, tx, data.Session); err != nil {
		return fmt.Errorf("failed to save session: %w", err)
	}

	// 2. Сохраняем кадры
	if len(data.Frames) > 0 {
		if err := r.saveFrames(ctx, tx, data.Session.ID, data.Frames); err != nil {
			return fmt.Errorf("failed to save frames: %w", err)
		}
	}

	// 3. Сохраняем отчёт
	if data.Report != nil {
		if err := r.saveReport(ctx, tx, data.Session.ID, data.Report); err != nil {
			return fmt.Errorf("failed to save report: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}

	return nil
}
