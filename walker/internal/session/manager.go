package session

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/Krimson/ai-walker/walker/internal/advice"
	"github.com/Krimson/ai-walker/walker/internal/advisory"
	"github.com/Krimson/ai-walker/walker/internal/analysis"
	"github.com/Krimson/ai-walker/walker/internal/obstacle"
	"github.com/Krimson/ai-walker/walker/internal/temporal"
	"github.com/Krimson/ai-walker/walker/internal/video"
)

// Сколько последних кадров уходит в подсказку для генерации совета
const adviceWindow = 10

// Options - необязательные зависимости менеджера
type Options struct {
	Analyzer       *analysis.Analyzer
	Advisor        advice.Generator
	DataTTLSeconds int // TTL данных сессии в Redis после остановки, 0 - без TTL
}

// Manager управляет сессиями прогулок (Application Layer)
type Manager struct {
	cache      CacheStore
	repository Repository
	analyzer   *analysis.Analyzer
	advisor    advice.Generator
	dataTTL    int

	mu             sync.RWMutex
	activeSessions map[string]*Session // Кэш активных сессий в памяти

	now func() time.Time
}

// NewManager создает новый менеджер сессий
func NewManager(cache CacheStore, repository Repository, opts Options) *Manager {
	if opts.Analyzer == nil {
		opts.Analyzer = analysis.NewAnalyzer(analysis.DefaultMinConfidence)
	}
	if opts.Advisor == nil {
		opts.Advisor = advice.NewFallbackGenerator()
	}

	return &Manager{
		cache:          cache,
		repository:     repository,
		analyzer:       opts.Analyzer,
		advisor:        opts.Advisor,
		dataTTL:        opts.DataTTLSeconds,
		activeSessions: make(map[string]*Session),
		now:            time.Now,
	}
}

// Analyzer возвращает анализатор кадров менеджера
func (m *Manager) Analyzer() *analysis.Analyzer {
	return m.analyzer
}

// CreateSession создает новую сессию
func (m *Manager) CreateSession(ctx context.Context, req *CreateSessionRequest) (*Session, error) {
	sessionID := uuid.New().String()

	session := &Session{
		ID:        sessionID,
		Status:    SessionStatusActive,
		StartedAt: m.now().UTC(),
		Metadata: Metadata{
			UserID:      req.UserID,
			DeviceID:    req.DeviceID,
			Notes:       req.Notes,
			CustomData:  req.CustomData,
			CreatedFrom: req.CreatedFrom,
		},
	}

	// Сохраняем в Redis
	if err := m.cache.SetSession(ctx, session); err != nil {
		return nil, fmt.Errorf("failed to save session to cache: %w", err)
	}

	// Добавляем в активные сессии
	m.mu.Lock()
	m.activeSessions[sessionID] = session
	m.mu.Unlock()

	log.Printf("[SESSION] Created new session: %s", sessionID)
	return copySession(session), nil
}

// GetSession получает сессию по ID: память, затем Redis, затем база
func (m *Manager) GetSession(ctx context.Context, sessionID string) (*Session, error) {
	// Сначала проверяем в памяти
	m.mu.RLock()
	if session, ok := m.activeSessions[sessionID]; ok {
		s := copySession(session)
		m.mu.RUnlock()
		return s, nil
	}
	m.mu.RUnlock()

	// Проверяем в Redis
	session, err := m.cache.GetSession(ctx, sessionID)
	if err == nil {
		return session, nil
	}

	// Проверяем в базе данных
	return m.repository.GetSession(ctx, sessionID)
}

// StopSession останавливает сессию и строит отчёт по накопленным кадрам
func (m *Manager) StopSession(ctx context.Context, sessionID string) (*video.Report, error) {
	session, err := m.GetSession(ctx, sessionID)
	if err != nil {
		return nil, fmt.Errorf("failed to stop session: %w", err)
	}

	if session.Status != SessionStatusActive {
		return nil, fmt.Errorf("%w: %s", ErrSessionInactive, session.Status)
	}

	frames, err := m.cache.GetFrames(ctx, sessionID)
	if err != nil {
		return nil, fmt.Errorf("failed to get frames: %w", err)
	}

	now := m.now().UTC()
	session.Status = SessionStatusStopped
	session.StoppedAt = &now
	session.TotalDurationMs = now.Sub(session.StartedAt).Milliseconds()
	session.VideoDuration = float64(session.TotalDurationMs) / 1000

	report := video.Analyze(frames, session.VideoDuration)
	if report.Error == "" {
		if err := m.cache.SetReport(ctx, sessionID, &report); err != nil {
			return nil, fmt.Errorf("failed to save report to cache: %w", err)
		}
	}

	// Обновляем в Redis
	if err := m.cache.SetSession(ctx, session); err != nil {
		return nil, fmt.Errorf("failed to update session in cache: %w", err)
	}

	if m.dataTTL > 0 {
		if err := m.cache.SetSessionTTL(ctx, sessionID, m.dataTTL); err != nil {
			log.Printf("[WARN] Failed to set session TTL: %v", err)
		}
	}

	// Удаляем из активных сессий
	m.mu.Lock()
	delete(m.activeSessions, sessionID)
	m.mu.Unlock()

	log.Printf("[SESSION] Stopped session: %s, duration: %dms, frames: %d, risk: %s",
		sessionID, session.TotalDurationMs, len(frames), report.VideoSummary.AverageRiskLevel)
	return &report, nil
}

// SaveSession сохраняет сессию в базу данных
func (m *Manager) SaveSession(ctx context.Context, sessionID string, notes string) error {
	// Получаем все данные из Redis
	sessionData, err := m.cache.GetSessionData(ctx, sessionID)
	if err != nil {
		return fmt.Errorf("failed to get session data from cache: %w", err)
	}

	// Обновляем метаданные
	if notes != "" {
		sessionData.Session.Metadata.Notes = notes
	}

	now := m.now().UTC()
	sessionData.Session.Status = SessionStatusSaved
	sessionData.Session.SavedAt = &now

	// Сохраняем в базу данных
	if err := m.repository.SaveSessionData(ctx, sessionData); err != nil {
		return fmt.Errorf("failed to save session to database: %w", err)
	}

	// Обновляем статус в Redis
	if err := m.cache.SetSession(ctx, sessionData.Session); err != nil {
		log.Printf("[WARN] Failed to update session status in cache: %v", err)
	}

	m.mu.Lock()
	delete(m.activeSessions, sessionID)
	m.mu.Unlock()

	log.Printf("[SESSION] Saved session to database: %s (%d frames)", sessionID, len(sessionData.Frames))
	return nil
}

// ListSessions возвращает список сохранённых сессий
func (m *Manager) ListSessions(ctx context.Context, limit, offset int) ([]*Session, error) {
	return m.repository.ListSessions(ctx, limit, offset)
}

// DeleteSession удаляет сессию
func (m *Manager) DeleteSession(ctx context.Context, sessionID string) error {
	// Удаляем из памяти
	m.mu.Lock()
	delete(m.activeSessions, sessionID)
	m.mu.Unlock()

	// Удаляем из Redis
	if err := m.cache.DeleteSession(ctx, sessionID); err != nil {
		log.Printf("[WARN] Failed to delete session from cache: %v", err)
	}

	// Удаляем из базы данных
	if err := m.repository.DeleteSession(ctx, sessionID); err != nil {
		return fmt.Errorf("failed to delete session from database: %w", err)
	}

	log.Printf("[SESSION] Deleted session: %s", sessionID)
	return nil
}

// RecordFrame сохраняет анализ кадра в сессию (реализует batch.FrameRecorder).
// Неизвестная сессия создаётся автоматически.
func (m *Manager) RecordFrame(ctx context.Context, sessionID string, fa analysis.FrameAnalysis) error {
	session, err := m.getOrCreateSession(ctx, sessionID)
	if err != nil {
		return fmt.Errorf("failed to get or create session: %w", err)
	}

	if session.Status != SessionStatusActive {
		log.Printf("[WARN] Received frame for non-active session: %s (status: %s)", sessionID, session.Status)
		return nil // Не возвращаем ошибку, просто игнорируем
	}

	if err := m.cache.AppendFrame(ctx, sessionID, fa); err != nil {
		return fmt.Errorf("failed to append frame: %w", err)
	}

	// Обновляем счетчик кадров в сессии
	m.mu.Lock()
	if active, ok := m.activeSessions[sessionID]; ok {
		session = active
	}
	session.TotalFrames++
	snapshot := copySession(session)
	m.mu.Unlock()

	if err := m.cache.SetSession(ctx, snapshot); err != nil {
		log.Printf("[WARN] Failed to update session: %v", err)
	}

	return nil
}

// GetFrames возвращает кадры сессии из Redis, а если их там нет - из базы
func (m *Manager) GetFrames(ctx context.Context, sessionID string) ([]analysis.FrameAnalysis, error) {
	frames, err := m.cache.GetFrames(ctx, sessionID)
	if err == nil && len(frames) > 0 {
		return frames, nil
	}

	return m.repository.GetFrames(ctx, sessionID)
}

// GetLastDecision возвращает последнее решение по сессии
func (m *Manager) GetLastDecision(ctx context.Context, sessionID string) (*advisory.Decision, error) {
	return m.cache.GetDecision(ctx, sessionID)
}

// GetTrack возвращает наблюдения одной категории препятствий по времени
func (m *Manager) GetTrack(ctx context.Context, sessionID string, category obstacle.Category) ([]temporal.Sample, error) {
	return m.cache.GetTrack(ctx, sessionID, category)
}

// GetReport возвращает отчёт по сессии из Redis или базы
func (m *Manager) GetReport(ctx context.Context, sessionID string) (*video.Report, error) {
	report, err := m.cache.GetReport(ctx, sessionID)
	if err == nil {
		return report, nil
	}

	return m.repository.GetReport(ctx, sessionID)
}

// GetSessionData получает все данные сессии
func (m *Manager) GetSessionData(ctx context.Context, sessionID string) (*SessionData, error) {
	data, err := m.cache.GetSessionData(ctx, sessionID)
	if err == nil {
		return data, nil
	}

	// Данные уже вытеснены из Redis - собираем из базы
	session, dbErr := m.repository.GetSession(ctx, sessionID)
	if dbErr != nil {
		return nil, fmt.Errorf("failed to get session data: %w", errors.Join(err, dbErr))
	}

	frames, _ := m.repository.GetFrames(ctx, sessionID)
	report, _ := m.repository.GetReport(ctx, sessionID)

	return &SessionData{
		Session: session,
		Frames:  frames,
		Report:  report,
	}, nil
}

// AnalyzeVideo разово анализирует кадры загруженного видео и сохраняет
// результат как остановленную сессию
func (m *Manager) AnalyzeVideo(ctx context.Context, req *AnalyzeVideoRequest) (*Session, *video.Report, error) {
	if len(req.Frames) == 0 {
		return nil, nil, ErrNoFrames
	}

	report := video.AnalyzeSequence(m.analyzer, req.Frames, req.VideoDuration)

	now := m.now().UTC()
	session := &Session{
		ID:              uuid.New().String(),
		Status:          SessionStatusStopped,
		StartedAt:       now,
		StoppedAt:       &now,
		TotalDurationMs: int64(req.VideoDuration * 1000),
		TotalFrames:     int64(len(req.Frames)),
		VideoDuration:   req.VideoDuration,
		Metadata: Metadata{
			UserID:      req.UserID,
			Notes:       req.Notes,
			CreatedFrom: CreatedFromVideo,
		},
	}

	if err := m.cache.SetSession(ctx, session); err != nil {
		return nil, nil, fmt.Errorf("failed to save session to cache: %w", err)
	}

	for _, fa := range report.FrameAnalyses {
		if err := m.cache.AppendFrame(ctx, session.ID, fa); err != nil {
			return nil, nil, fmt.Errorf("failed to append frame: %w", err)
		}
	}

	if err := m.cache.SetReport(ctx, session.ID, &report); err != nil {
		return nil, nil, fmt.Errorf("failed to save report to cache: %w", err)
	}

	if m.dataTTL > 0 {
		if err := m.cache.SetSessionTTL(ctx, session.ID, m.dataTTL); err != nil {
			log.Printf("[WARN] Failed to set session TTL: %v", err)
		}
	}

	log.Printf("[SESSION] Analyzed video session %s: frames=%d duration=%.1fs risk=%s",
		session.ID, len(req.Frames), req.VideoDuration, report.VideoSummary.AverageRiskLevel)

	return session, &report, nil
}

// GenerateAdvice формирует голосовой совет по последним кадрам сессии
func (m *Manager) GenerateAdvice(ctx context.Context, sessionID, userContext string) (advice.Advice, error) {
	if _, err := m.GetSession(ctx, sessionID); err != nil {
		return advice.Advice{}, err
	}

	frames, err := m.GetFrames(ctx, sessionID)
	if err != nil {
		return advice.Advice{}, fmt.Errorf("failed to get frames: %w", err)
	}

	if len(frames) > adviceWindow {
		frames = frames[len(frames)-adviceWindow:]
	}

	summaries := make([]string, 0, len(frames))
	for _, fa := range frames {
		summaries = append(summaries, fa.SceneSummary)
	}

	return m.advisor.Generate(ctx, summaries, userContext)
}

// AnalyzeImages объединяет анализ нескольких снимков одной сцены и
// генерирует совет по объединённым препятствиям. Сессия не создаётся.
func (m *Manager) AnalyzeImages(ctx context.Context, req *AnalyzeImagesRequest) (*AnalyzeImagesResponse, error) {
	if len(req.Images) == 0 {
		return nil, ErrNoFrames
	}

	result := m.analyzer.AnalyzeImages(req.Images)

	generated, err := m.advisor.Generate(ctx, []string{result.PromptSummary()}, req.UserContext)
	if err != nil {
		return nil, fmt.Errorf("failed to generate advice: %w", err)
	}

	log.Printf("[INFO] Analyzed image sequence: images=%d analyzed=%d obstacles=%d",
		len(req.Images), result.AnalysisCount, len(result.Obstacles))

	return &AnalyzeImagesResponse{
		Analysis:   result,
		Advice:     generated,
		ImageCount: len(req.Images),
	}, nil
}

// IsSessionActive проверяет, активна ли сессия
func (m *Manager) IsSessionActive(sessionID string) bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	_, exists := m.activeSessions[sessionID]
	return exists
}

// getOrCreateSession получает существующую сессию или создает новую.
// Используется для автоматического создания сессий при получении детекций от устройств.
func (m *Manager) getOrCreateSession(ctx context.Context, sessionID string) (*Session, error) {
	// Сначала проверяем в памяти (быстро)
	m.mu.RLock()
	if session, exists := m.activeSessions[sessionID]; exists {
		s := copySession(session)
		m.mu.RUnlock()
		return s, nil
	}
	m.mu.RUnlock()

	// Проверяем в кэше (Redis)
	session, err := m.cache.GetSession(ctx, sessionID)
	if err == nil {
		if session.Status == SessionStatusActive {
			m.mu.Lock()
			m.activeSessions[sessionID] = session
			m.mu.Unlock()
		}
		return copySession(session), nil
	}

	// Проверяем в базе (возможно, сохранённая сессия)
	session, err = m.repository.GetSession(ctx, sessionID)
	if err == nil {
		log.Printf("[SESSION] Loaded existing session from database: %s (status: %s)", sessionID, session.Status)
		if err := m.cache.SetSession(ctx, session); err != nil {
			log.Printf("[WARN] Failed to cache session: %v", err)
		}
		return session, nil
	}

	// Сессия не найдена нигде - создаем новую
	log.Printf("[SESSION] Auto-creating new session from incoming detections: %s", sessionID)

	session = &Session{
		ID:        sessionID,
		Status:    SessionStatusActive,
		StartedAt: m.now().UTC(),
		Metadata: Metadata{
			CreatedFrom: CreatedFromAuto,
			Notes:       "Automatically created from device/emulator detections",
		},
	}

	// Сохраняем в Redis
	if err := m.cache.SetSession(ctx, session); err != nil {
		return nil, fmt.Errorf("failed to save auto-created session to cache: %w", err)
	}

	// Добавляем в активные сессии
	m.mu.Lock()
	if existing, ok := m.activeSessions[sessionID]; ok {
		session = existing
	} else {
		m.activeSessions[sessionID] = session
	}
	s := copySession(session)
	m.mu.Unlock()

	log.Printf("[SESSION] Successfully auto-created session: %s", sessionID)
	return s, nil
}

func copySession(s *Session) *Session {
	c := *s
	return &c
}
