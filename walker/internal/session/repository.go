package session

import (
	"context"

	"github.com/Krimson/ai-walker/walker/internal/advisory"
	"github.com/Krimson/ai-walker/walker/internal/analysis"
	"github.com/Krimson/ai-walker/walker/internal/obstacle"
	"github.com/Krimson/ai-walker/walker/internal/temporal"
	"github.com/Krimson/ai-walker/walker/internal/video"
)

// Repository определяет интерфейс для работы с хранилищем сессий (Domain Layer)
type Repository interface {
	// Управление сессиями
	CreateSession(ctx context.Context, session *Session) error
	GetSession(ctx context.Context, sessionID string) (*Session, error)
	UpdateSession(ctx context.Context, session *Session) error
	ListSessions(ctx context.Context, limit, offset int) ([]*Session, error)
	DeleteSession(ctx context.Context, sessionID string) error

	// Кадры
	SaveFrames(ctx context.Context, sessionID string, frames []analysis.FrameAnalysis) error
	GetFrames(ctx context.Context, sessionID string) ([]analysis.FrameAnalysis, error)

	// Отчёт по сессии
	SaveReport(ctx context.Context, sessionID string, report *video.Report) error
	GetReport(ctx context.Context, sessionID string) (*video.Report, error)

	// Сохранение полных данных сессии
	SaveSessionData(ctx context.Context, data *SessionData) error

	Ping(ctx context.Context) error
	Close() error
}

// CacheStore определяет интерфейс для работы с кэшем (Redis)
type CacheStore interface {
	// Управление сессиями в кэше
	SetSession(ctx context.Context, session *Session) error
	GetSession(ctx context.Context, sessionID string) (*Session, error)
	DeleteSession(ctx context.Context, sessionID string) error

	// Кадры (append-only, хранится не больше лимита)
	AppendFrame(ctx context.Context, sessionID string, fa analysis.FrameAnalysis) error
	GetFrames(ctx context.Context, sessionID string) ([]analysis.FrameAnalysis, error)
	GetFrameCount(ctx context.Context, sessionID string) (int, error)

	// Последнее решение (перезаписывается целиком)
	GetDecision(ctx context.Context, sessionID string) (*advisory.Decision, error)

	// Треки препятствий (Sorted Set по времени кадра)
	GetTrack(ctx context.Context, sessionID string, category obstacle.Category) ([]temporal.Sample, error)

	// Отчёт
	SetReport(ctx context.Context, sessionID string, report *video.Report) error
	GetReport(ctx context.Context, sessionID string) (*video.Report, error)

	// Получение всех данных сессии
	GetSessionData(ctx context.Context, sessionID string) (*SessionData, error)

	// Утилиты
	SessionExists(ctx context.Context, sessionID string) (bool, error)
	SetSessionTTL(ctx context.Context, sessionID string, ttl int) error
	Ping(ctx context.Context) error
}
