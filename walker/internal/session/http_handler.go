package session

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"strconv"
	"strings"

	"github.com/gorilla/mux"

	"github.com/Krimson/ai-walker/walker/internal/analysis"
	"github.com/Krimson/ai-walker/walker/internal/ingest"
	"github.com/Krimson/ai-walker/walker/internal/obstacle"
	"github.com/Krimson/ai-walker/walker/internal/video"
)

// Максимальный размер загружаемого файла детекций в памяти
const maxUploadMemory = 32 << 20

// HTTPHandler обрабатывает HTTP запросы для управления сессиями (Presentation Layer)
type HTTPHandler struct {
	manager *Manager
}

// NewHTTPHandler создает новый HTTP обработчик
func NewHTTPHandler(manager *Manager) *HTTPHandler {
	return &HTTPHandler{
		manager: manager,
	}
}

// RegisterRoutes регистрирует маршруты в роутере
func (h *HTTPHandler) RegisterRoutes(router *mux.Router) {
	api := router.PathPrefix("/api/sessions").Subrouter()

	api.HandleFunc("", h.CreateSession).Methods("POST")
	api.HandleFunc("", h.ListSessions).Methods("GET")
	api.HandleFunc("/{id}", h.GetSession).Methods("GET")
	api.HandleFunc("/{id}/stop", h.StopSession).Methods("POST")
	api.HandleFunc("/{id}/save", h.SaveSession).Methods("POST")
	api.HandleFunc("/{id}", h.DeleteSession).Methods("DELETE")
	api.HandleFunc("/{id}/frames", h.GetFrames).Methods("GET")
	api.HandleFunc("/{id}/decision", h.GetDecision).Methods("GET")
	api.HandleFunc("/{id}/tracks/{category}", h.GetTrack).Methods("GET")
	api.HandleFunc("/{id}/report", h.GetReport).Methods("GET")
	api.HandleFunc("/{id}/summary", h.GetSummary).Methods("GET")
	api.HandleFunc("/{id}/data", h.GetSessionData).Methods("GET")
	api.HandleFunc("/{id}/advice", h.GenerateAdvice).Methods("POST")

	analyze := router.PathPrefix("/api/analyze").Subrouter()
	analyze.HandleFunc("/frame", h.AnalyzeFrame).Methods("POST")
	analyze.HandleFunc("/obstacles", h.DescribeObstacles).Methods("POST")
	analyze.HandleFunc("/video", h.AnalyzeVideo).Methods("POST")
	analyze.HandleFunc("/images", h.AnalyzeImages).Methods("POST")
}

// CreateSession создает новую сессию
// @Summary Создать сессию
// @Description Создаёт активную сессию прогулки
// @Tags Sessions
// @Accept json
// @Produce json
// @Param request body CreateSessionRequest true "Метаданные сессии"
// @Success 201 {object} SessionResponse
// @Failure 400 {object} map[string]interface{}
// @Failure 500 {object} map[string]interface{}
// @Router /api/sessions [post]
func (h *HTTPHandler) CreateSession(w http.ResponseWriter, r *http.Request) {
	var req CreateSessionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	session, err := h.manager.CreateSession(r.Context(), &req)
	if err != nil {
		log.Printf("[ERROR] Failed to create session: %v", err)
		respondError(w, http.StatusInternalServerError, "Failed to create session")
		return
	}

	respondJSON(w, http.StatusCreated, SessionResponse{Session: session})
}

// ListSessions возвращает список сессий
// @Summary Список сохранённых сессий
// @Tags Sessions
// @Produce json
// @Param limit query int false "Лимит" default(50)
// @Param offset query int false "Смещение" default(0)
// @Success 200 {object} map[string]interface{}
// @Failure 500 {object} map[string]interface{}
// @Router /api/sessions [get]
func (h *HTTPHandler) ListSessions(w http.ResponseWriter, r *http.Request) {
	limit := getQueryInt(r, "limit", 50)
	offset := getQueryInt(r, "offset", 0)

	sessions, err := h.manager.ListSessions(r.Context(), limit, offset)
	if err != nil {
		log.Printf("[ERROR] Failed to list sessions: %v", err)
		respondError(w, http.StatusInternalServerError, "Failed to list sessions")
		return
	}

	respondJSON(w, http.StatusOK, map[string]interface{}{
		"sessions": sessions,
		"limit":    limit,
		"offset":   offset,
		"count":    len(sessions),
	})
}

// GetSession получает информацию о сессии
// @Summary Получить сессию
// @Tags Sessions
// @Produce json
// @Param id path string true "ID сессии"
// @Success 200 {object} SessionResponse
// @Failure 404 {object} map[string]interface{}
// @Router /api/sessions/{id} [get]
func (h *HTTPHandler) GetSession(w http.ResponseWriter, r *http.Request) {
	sessionID := mux.Vars(r)["id"]

	session, err := h.manager.GetSession(r.Context(), sessionID)
	if err != nil {
		respondError(w, http.StatusNotFound, "Session not found")
		return
	}

	// Решения может не быть для новой сессии
	decision, _ := h.manager.GetLastDecision(r.Context(), sessionID)

	respondJSON(w, http.StatusOK, SessionResponse{
		Session:      session,
		LastDecision: decision,
	})
}

// StopSession останавливает сессию и возвращает отчёт
// @Summary Остановить сессию
// @Description Останавливает активную сессию и строит отчёт по накопленным кадрам
// @Tags Sessions
// @Produce json
// @Param id path string true "ID сессии"
// @Success 200 {object} map[string]interface{}
// @Failure 404 {object} map[string]interface{}
// @Failure 409 {object} map[string]interface{}
// @Router /api/sessions/{id}/stop [post]
func (h *HTTPHandler) StopSession(w http.ResponseWriter, r *http.Request) {
	sessionID := mux.Vars(r)["id"]

	report, err := h.manager.StopSession(r.Context(), sessionID)
	if err != nil {
		log.Printf("[ERROR] Failed to stop session %s: %v", sessionID, err)
		respondError(w, statusFor(err), "Failed to stop session")
		return
	}

	respondJSON(w, http.StatusOK, map[string]interface{}{
		"message":    "Session stopped successfully",
		"session_id": sessionID,
		"report":     report,
	})
}

// SaveSession сохраняет сессию в базу данных
// @Summary Сохранить сессию
// @Tags Sessions
// @Accept json
// @Produce json
// @Param id path string true "ID сессии"
// @Param request body SaveSessionRequest false "Заметки"
// @Success 200 {object} map[string]interface{}
// @Failure 404 {object} map[string]interface{}
// @Failure 500 {object} map[string]interface{}
// @Router /api/sessions/{id}/save [post]
func (h *HTTPHandler) SaveSession(w http.ResponseWriter, r *http.Request) {
	sessionID := mux.Vars(r)["id"]

	var req SaveSessionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		// Не критично, если нет body
		req = SaveSessionRequest{}
	}

	if err := h.manager.SaveSession(r.Context(), sessionID, req.Notes); err != nil {
		log.Printf("[ERROR] Failed to save session %s: %v", sessionID, err)
		respondError(w, statusFor(err), "Failed to save session")
		return
	}

	respondJSON(w, http.StatusOK, map[string]interface{}{
		"message":    "Session saved successfully",
		"session_id": sessionID,
	})
}

// DeleteSession удаляет сессию
// @Summary Удалить сессию
// @Tags Sessions
// @Produce json
// @Param id path string true "ID сессии"
// @Success 200 {object} map[string]interface{}
// @Failure 500 {object} map[string]interface{}
// @Router /api/sessions/{id} [delete]
func (h *HTTPHandler) DeleteSession(w http.ResponseWriter, r *http.Request) {
	sessionID := mux.Vars(r)["id"]

	if err := h.manager.DeleteSession(r.Context(), sessionID); err != nil {
		log.Printf("[ERROR] Failed to delete session %s: %v", sessionID, err)
		respondError(w, http.StatusInternalServerError, "Failed to delete session")
		return
	}

	respondJSON(w, http.StatusOK, map[string]interface{}{
		"message":    "Session deleted successfully",
		"session_id": sessionID,
	})
}

// GetFrames возвращает анализы кадров сессии
// @Summary Кадры сессии
// @Tags Sessions
// @Produce json
// @Param id path string true "ID сессии"
// @Param limit query int false "Только последние N кадров" default(0)
// @Success 200 {object} map[string]interface{}
// @Failure 500 {object} map[string]interface{}
// @Router /api/sessions/{id}/frames [get]
func (h *HTTPHandler) GetFrames(w http.ResponseWriter, r *http.Request) {
	sessionID := mux.Vars(r)["id"]

	frames, err := h.manager.GetFrames(r.Context(), sessionID)
	if err != nil {
		log.Printf("[ERROR] Failed to get frames %s: %v", sessionID, err)
		respondError(w, http.StatusInternalServerError, "Failed to get frames")
		return
	}

	if limit := getQueryInt(r, "limit", 0); limit > 0 && len(frames) > limit {
		frames = frames[len(frames)-limit:]
	}

	respondJSON(w, http.StatusOK, map[string]interface{}{
		"session_id": sessionID,
		"frames":     frames,
		"count":      len(frames),
	})
}

// GetDecision возвращает последнее решение по сессии
// @Summary Последнее решение
// @Tags Sessions
// @Produce json
// @Param id path string true "ID сессии"
// @Success 200 {object} advisory.Decision
// @Failure 404 {object} map[string]interface{}
// @Router /api/sessions/{id}/decision [get]
func (h *HTTPHandler) GetDecision(w http.ResponseWriter, r *http.Request) {
	sessionID := mux.Vars(r)["id"]

	decision, err := h.manager.GetLastDecision(r.Context(), sessionID)
	if err != nil {
		respondError(w, http.StatusNotFound, "Decision not found")
		return
	}

	respondJSON(w, http.StatusOK, decision)
}

// GetTrack возвращает наблюдения одной категории препятствий по времени
// @Summary Трек препятствия
// @Tags Sessions
// @Produce json
// @Param id path string true "ID сессии"
// @Param category path string true "Категория препятствия"
// @Success 200 {object} map[string]interface{}
// @Failure 400 {object} map[string]interface{}
// @Failure 500 {object} map[string]interface{}
// @Router /api/sessions/{id}/tracks/{category} [get]
func (h *HTTPHandler) GetTrack(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	sessionID := vars["id"]

	category := obstacle.ParseCategory(vars["category"])
	if category == obstacle.CategoryUnknown && !strings.EqualFold(vars["category"], string(obstacle.CategoryUnknown)) {
		respondError(w, http.StatusBadRequest, "Unknown obstacle category, expected one of: "+categoryNames())
		return
	}

	samples, err := h.manager.GetTrack(r.Context(), sessionID, category)
	if err != nil {
		log.Printf("[ERROR] Failed to get track %s/%s: %v", sessionID, category, err)
		respondError(w, http.StatusInternalServerError, "Failed to get track")
		return
	}

	respondJSON(w, http.StatusOK, map[string]interface{}{
		"session_id": sessionID,
		"category":   category,
		"samples":    samples,
	})
}

// GetReport возвращает отчёт по остановленной сессии
// @Summary Отчёт по сессии
// @Tags Sessions
// @Produce json
// @Param id path string true "ID сессии"
// @Success 200 {object} video.Report
// @Failure 404 {object} map[string]interface{}
// @Router /api/sessions/{id}/report [get]
func (h *HTTPHandler) GetReport(w http.ResponseWriter, r *http.Request) {
	sessionID := mux.Vars(r)["id"]

	report, err := h.manager.GetReport(r.Context(), sessionID)
	if err != nil {
		respondError(w, http.StatusNotFound, "Report not found")
		return
	}

	respondJSON(w, http.StatusOK, report)
}

// GetSummary возвращает текстовую сводку отчёта
// @Summary Текстовая сводка отчёта
// @Tags Sessions
// @Produce plain
// @Param id path string true "ID сессии"
// @Success 200 {string} string
// @Failure 404 {object} map[string]interface{}
// @Router /api/sessions/{id}/summary [get]
func (h *HTTPHandler) GetSummary(w http.ResponseWriter, r *http.Request) {
	sessionID := mux.Vars(r)["id"]

	report, err := h.manager.GetReport(r.Context(), sessionID)
	if err != nil {
		respondError(w, http.StatusNotFound, "Report not found")
		return
	}

	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write([]byte(video.Text(*report))); err != nil {
		log.Printf("[ERROR] Failed to write summary: %v", err)
	}
}

// GetSessionData получает все данные сессии
// @Summary Все данные сессии
// @Tags Sessions
// @Produce json
// @Param id path string true "ID сессии"
// @Success 200 {object} SessionData
// @Failure 404 {object} map[string]interface{}
// @Router /api/sessions/{id}/data [get]
func (h *HTTPHandler) GetSessionData(w http.ResponseWriter, r *http.Request) {
	sessionID := mux.Vars(r)["id"]

	data, err := h.manager.GetSessionData(r.Context(), sessionID)
	if err != nil {
		log.Printf("[ERROR] Failed to get session data %s: %v", sessionID, err)
		respondError(w, http.StatusNotFound, "Session data not found")
		return
	}

	respondJSON(w, http.StatusOK, data)
}

// GenerateAdvice формирует голосовой совет по последним кадрам сессии
// @Summary Совет по навигации
// @Description Генерирует совет по последним кадрам сессии (LLM или запасной текст)
// @Tags Sessions
// @Accept json
// @Produce json
// @Param id path string true "ID сессии"
// @Param request body AdviceRequest false "Контекст пользователя"
// @Success 200 {object} advice.Advice
// @Failure 404 {object} map[string]interface{}
// @Failure 500 {object} map[string]interface{}
// @Router /api/sessions/{id}/advice [post]
func (h *HTTPHandler) GenerateAdvice(w http.ResponseWriter, r *http.Request) {
	sessionID := mux.Vars(r)["id"]

	var req AdviceRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		req = AdviceRequest{}
	}

	result, err := h.manager.GenerateAdvice(r.Context(), sessionID, req.UserContext)
	if err != nil {
		log.Printf("[ERROR] Failed to generate advice %s: %v", sessionID, err)
		respondError(w, statusFor(err), "Failed to generate advice")
		return
	}

	respondJSON(w, http.StatusOK, result)
}

// AnalyzeFrame анализирует один кадр без сессии
// @Summary Анализ кадра
// @Tags Analysis
// @Accept json
// @Produce json
// @Param request body analysis.FrameInput true "Детекции кадра"
// @Success 200 {object} analysis.FrameAnalysis
// @Failure 400 {object} map[string]interface{}
// @Router /api/analyze/frame [post]
func (h *HTTPHandler) AnalyzeFrame(w http.ResponseWriter, r *http.Request) {
	var in analysis.FrameInput
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	if in.Width <= 0 || in.Height <= 0 {
		respondError(w, http.StatusBadRequest, "image_width and image_height must be positive")
		return
	}

	respondJSON(w, http.StatusOK, h.manager.Analyzer().Analyze(in))
}

// ObstaclesRequest - готовые препятствия, например от внешнего детектора
type ObstaclesRequest struct {
	Obstacles []obstacle.Record `json:"obstacles"`
}

// DescribeObstacles строит анализ кадра по уже размеченным препятствиям
// @Summary Анализ списка препятствий
// @Description Нормализует препятствия (значения по умолчанию для пропущенных полей) и строит решение
// @Tags Analysis
// @Accept json
// @Produce json
// @Param request body ObstaclesRequest true "Препятствия"
// @Success 200 {object} analysis.FrameAnalysis
// @Failure 400 {object} map[string]interface{}
// @Router /api/analyze/obstacles [post]
func (h *HTTPHandler) DescribeObstacles(w http.ResponseWriter, r *http.Request) {
	var req ObstaclesRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	respondJSON(w, http.StatusOK, analysis.Describe(obstacle.NormalizeAll(req.Obstacles)))
}

// AnalyzeVideo анализирует кадры загруженного видео
// @Summary Анализ видео
// @Description Принимает JSON с кадрами или multipart-форму с CSV детекций (поле file) и возвращает отчёт
// @Tags Analysis
// @Accept json
// @Accept multipart/form-data
// @Produce json
// @Param request body AnalyzeVideoRequest false "Кадры с детекциями"
// @Param file formData file false "CSV с детекциями"
// @Param video_duration formData number false "Длительность видео, сек"
// @Param user_id formData string false "ID пользователя"
// @Param notes formData string false "Заметки"
// @Success 200 {object} AnalyzeVideoResponse
// @Failure 400 {object} map[string]interface{}
// @Failure 500 {object} map[string]interface{}
// @Router /api/analyze/video [post]
func (h *HTTPHandler) AnalyzeVideo(w http.ResponseWriter, r *http.Request) {
	var req AnalyzeVideoRequest

	if strings.HasPrefix(r.Header.Get("Content-Type"), "multipart/form-data") {
		parsed, err := parseVideoUpload(r)
		if err != nil {
			respondError(w, http.StatusBadRequest, err.Error())
			return
		}
		req = *parsed
	} else if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	session, report, err := h.manager.AnalyzeVideo(r.Context(), &req)
	if err != nil {
		log.Printf("[ERROR] Failed to analyze video: %v", err)
		respondError(w, statusFor(err), "Failed to analyze video")
		return
	}

	respondJSON(w, http.StatusOK, AnalyzeVideoResponse{
		SessionID: session.ID,
		Report:    report,
		Summary:   video.Text(*report),
	})
}

// AnalyzeImages анализирует несколько снимков одной сцены
// @Summary Анализ серии снимков
// @Description Объединяет препятствия до 5 снимков (одинаковые по типу и направлению сливаются), состояние дороги берётся с последнего
// @Tags Analysis
// @Accept json
// @Produce json
// @Param request body AnalyzeImagesRequest true "Снимки с детекциями"
// @Success 200 {object} AnalyzeImagesResponse
// @Failure 400 {object} map[string]interface{}
// @Failure 500 {object} map[string]interface{}
// @Router /api/analyze/images [post]
func (h *HTTPHandler) AnalyzeImages(w http.ResponseWriter, r *http.Request) {
	var req AnalyzeImagesRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	for _, img := range req.Images {
		if img.Width <= 0 || img.Height <= 0 {
			respondError(w, http.StatusBadRequest, "image_width and image_height must be positive")
			return
		}
	}

	result, err := h.manager.AnalyzeImages(r.Context(), &req)
	if err != nil {
		log.Printf("[ERROR] Failed to analyze images: %v", err)
		respondError(w, statusFor(err), "Failed to analyze images")
		return
	}

	respondJSON(w, http.StatusOK, result)
}

// parseVideoUpload читает CSV детекций из multipart-формы
func parseVideoUpload(r *http.Request) (*AnalyzeVideoRequest, error) {
	if err := r.ParseMultipartForm(maxUploadMemory); err != nil {
		return nil, errors.New("Failed to parse form: " + err.Error())
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		return nil, errors.New("Failed to get file: " + err.Error())
	}
	defer file.Close()

	events, err := ingest.ReadCSV(file)
	if err != nil {
		return nil, errors.New("Failed to read detections: " + err.Error())
	}

	duration := ingest.Duration(events)
	if v := r.FormValue("video_duration"); v != "" {
		d, err := strconv.ParseFloat(v, 64)
		if err != nil || d < 0 {
			return nil, errors.New("Invalid video_duration")
		}
		duration = d
	}

	log.Printf("[INFO] Received detections file: %s (%d events)", header.Filename, len(events))

	return &AnalyzeVideoRequest{
		Frames:        ingest.Frames(events),
		VideoDuration: duration,
		UserID:        r.FormValue("user_id"),
		Notes:         r.FormValue("notes"),
	}, nil
}

// ===== Утилиты =====

// statusFor переводит доменные ошибки в HTTP статус
func statusFor(err error) int {
	switch {
	case errors.Is(err, ErrSessionNotFound), errors.Is(err, ErrReportNotFound):
		return http.StatusNotFound
	case errors.Is(err, ErrSessionInactive):
		return http.StatusConflict
	case errors.Is(err, ErrNoFrames):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

func categoryNames() string {
	categories := obstacle.Categories()
	names := make([]string, 0, len(categories)+1)
	for _, c := range categories {
		names = append(names, string(c))
	}
	names = append(names, string(obstacle.CategoryUnknown))
	return strings.Join(names, ", ")
}

func respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(data); err != nil {
		log.Printf("[ERROR] Failed to encode JSON response: %v", err)
	}
}

func respondError(w http.ResponseWriter, status int, message string) {
	respondJSON(w, status, map[string]interface{}{
		"error":  message,
		"status": status,
	})
}

func getQueryInt(r *http.Request, key string, defaultValue int) int {
	valueStr := r.URL.Query().Get(key)
	if valueStr == "" {
		return defaultValue
	}
	value, err := strconv.Atoi(valueStr)
	if err != nil {
		return defaultValue
	}
	return value
}
