package session

import (
	"errors"
	"time"

	"github.com/Krimson/ai-walker/walker/internal/advice"
	"github.com/Krimson/ai-walker/walker/internal/advisory"
	"github.com/Krimson/ai-walker/walker/internal/analysis"
	"github.com/Krimson/ai-walker/walker/internal/video"
)

// SessionStatus представляет статус сессии
type SessionStatus string

const (
	SessionStatusActive  SessionStatus = "ACTIVE"
	SessionStatusStopped SessionStatus = "STOPPED"
	SessionStatusSaved   SessionStatus = "SAVED"
)

// Источники создания сессии
const (
	CreatedFromVideo = "video"
	CreatedFromAuto  = "auto-created"
)

var (
	ErrSessionNotFound = errors.New("session not found")
	ErrReportNotFound  = errors.New("report not found")
	ErrSessionInactive = errors.New("session is not active")
	ErrNoFrames        = errors.New("no frames provided")
)

// Session представляет прогулку: живой стрим детекций или загруженное видео
type Session struct {
	ID              string        `json:"id"`
	Status          SessionStatus `json:"status"`
	StartedAt       time.Time     `json:"started_at"`
	StoppedAt       *time.Time    `json:"stopped_at,omitempty"`
	SavedAt         *time.Time    `json:"saved_at,omitempty"`
	TotalDurationMs int64         `json:"total_duration_ms"`
	TotalFrames     int64         `json:"total_frames"`
	VideoDuration   float64       `json:"video_duration,omitempty"`
	Metadata        Metadata      `json:"metadata,omitempty"`
}

// Metadata содержит дополнительную информацию о сессии
type Metadata struct {
	UserID      string                 `json:"user_id,omitempty"`
	DeviceID    string                 `json:"device_id,omitempty"`
	Notes       string                 `json:"notes,omitempty"`
	CustomData  map[string]interface{} `json:"custom_data,omitempty"`
	CreatedFrom string                 `json:"created_from,omitempty"` // "web", "mobile", "emulator", "video"
}

// SessionData представляет все данные сессии для хранения
type SessionData struct {
	Session      *Session                 `json:"session"`
	Frames       []analysis.FrameAnalysis `json:"frames"`
	LastDecision *advisory.Decision       `json:"last_decision,omitempty"`
	Report       *video.Report            `json:"report,omitempty"`
}

// CreateSessionRequest представляет запрос на создание сессии
type CreateSessionRequest struct {
	UserID      string                 `json:"user_id,omitempty"`
	DeviceID    string                 `json:"device_id,omitempty"`
	Notes       string                 `json:"notes,omitempty"`
	CustomData  map[string]interface{} `json:"custom_data,omitempty"`
	CreatedFrom string                 `json:"created_from,omitempty"`
}

// SessionResponse представляет ответ с информацией о сессии
type SessionResponse struct {
	Session      *Session           `json:"session"`
	LastDecision *advisory.Decision `json:"last_decision,omitempty"`
}

// SaveSessionRequest представляет запрос на сохранение сессии
type SaveSessionRequest struct {
	Notes string `json:"notes,omitempty"`
}

// AnalyzeVideoRequest - кадры загруженного видео с детекциями
type AnalyzeVideoRequest struct {
	Frames        []analysis.FrameInput `json:"frames"`
	VideoDuration float64               `json:"video_duration"`
	UserID        string                `json:"user_id,omitempty"`
	Notes         string                `json:"notes,omitempty"`
}

// AnalyzeVideoResponse возвращает созданную сессию вместе с отчётом
type AnalyzeVideoResponse struct {
	SessionID string        `json:"session_id"`
	Report    *video.Report `json:"report"`
	Summary   string        `json:"summary"`
}

// AnalyzeImagesRequest - несколько снимков одной сцены
type AnalyzeImagesRequest struct {
	Images      []analysis.FrameInput `json:"images"`
	UserContext string                `json:"user_context,omitempty"`
}

// AnalyzeImagesResponse - сводный анализ снимков и совет по нему
type AnalyzeImagesResponse struct {
	Analysis   analysis.SequenceAnalysis `json:"vision_analysis"`
	Advice     advice.Advice             `json:"ai_advice"`
	ImageCount int                       `json:"image_count"`
}

// AdviceRequest - дополнительный контекст пользователя для генерации совета
type AdviceRequest struct {
	UserContext string `json:"user_context,omitempty"`
}
