package session

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/Krimson/ai-walker/walker/internal/advisory"
	"github.com/Krimson/ai-walker/walker/internal/analysis"
	"github.com/Krimson/ai-walker/walker/internal/obstacle"
	"github.com/Krimson/ai-walker/walker/internal/temporal"
	"github.com/Krimson/ai-walker/walker/internal/video"
)

// RedisStore реализует CacheStore для Redis (Infrastructure Layer)
type RedisStore struct {
	client    *redis.Client
	maxFrames int
}

// NewRedisStore создает новый экземпляр RedisStore.
// maxFrames ограничивает длину списка кадров сессии (0 - без ограничения).
func NewRedisStore(client *redis.Client, maxFrames int) *RedisStore {
	return &RedisStore{
		client:    client,
		maxFrames: maxFrames,
	}
}

// ===== Ключи Redis =====

func sessionKey(sessionID string) string {
	return fmt.Sprintf("walk:%s:metadata", sessionID)
}

func framesKey(sessionID string) string {
	return fmt.Sprintf("walk:%s:frames", sessionID)
}

func decisionKey(sessionID string) string {
	return fmt.Sprintf("walk:%s:decision", sessionID)
}

func trackKey(sessionID string, category obstacle.Category) string {
	return fmt.Sprintf("walk:%s:tracks:%s", sessionID, category)
}

func reportKey(sessionID string) string {
	return fmt.Sprintf("walk:%s:report", sessionID)
}

func (r *RedisStore) Ping(ctx context.Context) error {
	return r.client.Ping(ctx).Err()
}

// ===== Управление сессиями =====

func (r *RedisStore) SetSession(ctx context.Context, session *Session) error {
	data, err := json.Marshal(session)
	if err != nil {
		return fmt.Errorf("failed to marshal session: %w", err)
	}

	return r.client.Set(ctx, sessionKey(session.ID), data, 0).Err()
}

func (r *RedisStore) GetSession(ctx context.Context, sessionID string) (*Session, error) {
	data, err := r.client.Get(ctx, sessionKey(sessionID)).Result()
	if err != nil {
		if err == redis.Nil {
			return nil, fmt.Errorf("%w: %s", ErrSessionNotFound, sessionID)
		}
		return nil, fmt.Errorf("failed to get session: %w", err)
	}

	var session Session
	if err := json.Unmarshal([]byte(data), &session); err != nil {
		return nil, fmt.Errorf("failed to unmarshal session: %w", err)
	}

	return &session, nil
}

func (r *RedisStore) DeleteSession(ctx context.Context, sessionID string) error {
	// Удаляем все ключи, связанные с сессией
	pattern := fmt.Sprintf("walk:%s:*", sessionID)

	iter := r.client.Scan(ctx, 0, pattern, 0).Iterator()
	pipe := r.client.Pipeline()

	for iter.Next(ctx) {
		pipe.Del(ctx, iter.Val())
	}

	if err := iter.Err(); err != nil {
		return fmt.Errorf("failed to scan keys: %w", err)
	}

	_, err := pipe.Exec(ctx)
	return err
}

func (r *RedisStore) SessionExists(ctx context.Context, sessionID string) (bool, error) {
	count, err := r.client.Exists(ctx, sessionKey(sessionID)).Result()
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

func (r *RedisStore) SetSessionTTL(ctx context.Context, sessionID string, ttl int) error {
	pattern := fmt.Sprintf("walk:%s:*", sessionID)
	duration := time.Duration(ttl) * time.Second

	iter := r.client.Scan(ctx, 0, pattern, 0).Iterator()
	pipe := r.client.Pipeline()

	for iter.Next(ctx) {
		pipe.Expire(ctx, iter.Val(), duration)
	}

	if err := iter.Err(); err != nil {
		return fmt.Errorf("failed to scan keys: %w", err)
	}

	_, err := pipe.Exec(ctx)
	return err
}

// ===== Кадры =====

// AppendFrame добавляет анализ кадра в список, перезаписывает последнее
// решение и дописывает наблюдения препятствий в их треки. Всё в одном pipeline.
func (r *RedisStore) AppendFrame(ctx context.Context, sessionID string, fa analysis.FrameAnalysis) error {
	data, err := json.Marshal(fa)
	if err != nil {
		return fmt.Errorf("failed to marshal frame: %w", err)
	}

	pipe := r.client.TxPipeline()

	key := framesKey(sessionID)
	pipe.RPush(ctx, key, data)
	if r.maxFrames > 0 {
		pipe.LTrim(ctx, key, int64(-r.maxFrames), -1)
	}

	// Сохраняем как Hash для эффективного обновления отдельных полей
	pipe.HSet(ctx, decisionKey(sessionID), map[string]interface{}{
		"action":      string(fa.Guidance.Action),
		"direction":   string(fa.Guidance.Direction),
		"message":     fa.Guidance.Message,
		"confidence":  string(fa.Guidance.Confidence),
		"reason":      fa.Guidance.Reason,
		"frame_index": fa.FrameIndex,
	})

	for _, o := range fa.Obstacles {
		sample, err := json.Marshal(temporal.Sample{
			Frame:     fa.FrameIndex,
			Timestamp: fa.Timestamp,
			Distance:  o.DistanceMeters,
			Direction: o.Direction,
			Severity:  o.Severity,
		})
		if err != nil {
			return fmt.Errorf("failed to marshal track sample: %w", err)
		}

		pipe.ZAdd(ctx, trackKey(sessionID, o.Category), redis.Z{
			Score:  fa.Timestamp,
			Member: sample,
		})
	}

	_, err = pipe.Exec(ctx)
	return err
}

func (r *RedisStore) GetFrames(ctx context.Context, sessionID string) ([]analysis.FrameAnalysis, error) {
	data, err := r.client.LRange(ctx, framesKey(sessionID), 0, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to get frames: %w", err)
	}

	frames := make([]analysis.FrameAnalysis, 0, len(data))
	for _, item := range data {
		var fa analysis.FrameAnalysis
		if err := json.Unmarshal([]byte(item), &fa); err != nil {
			continue // Пропускаем поврежденные записи
		}
		frames = append(frames, fa)
	}

	return frames, nil
}

func (r *RedisStore) GetFrameCount(ctx context.Context, sessionID string) (int, error) {
	count, err := r.client.LLen(ctx, framesKey(sessionID)).Result()
	if err != nil {
		return 0, err
	}
	return int(count), nil
}

// ===== Решение =====

func (r *RedisStore) GetDecision(ctx context.Context, sessionID string) (*advisory.Decision, error) {
	data, err := r.client.HGetAll(ctx, decisionKey(sessionID)).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to get decision: %w", err)
	}

	if len(data) == 0 {
		return nil, fmt.Errorf("decision not found for session: %s", sessionID)
	}

	return &advisory.Decision{
		Action:     advisory.Action(data["action"]),
		Direction:  advisory.Heading(data["direction"]),
		Message:    data["message"],
		Confidence: advisory.Confidence(data["confidence"]),
		Reason:     data["reason"],
	}, nil
}

// ===== Треки =====

func (r *RedisStore) GetTrack(ctx context.Context, sessionID string, category obstacle.Category) ([]temporal.Sample, error) {
	// Получаем все элементы, отсортированные по score (timestamp)
	data, err := r.client.ZRange(ctx, trackKey(sessionID, category), 0, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to get track: %w", err)
	}

	samples := make([]temporal.Sample, 0, len(data))
	for _, item := range data {
		var sample temporal.Sample
		if err := json.Unmarshal([]byte(item), &sample); err != nil {
			continue
		}
		samples = append(samples, sample)
	}

	return samples, nil
}

// ===== Отчёт =====

func (r *RedisStore) SetReport(ctx context.Context, sessionID string, report *video.Report) error {
	data, err := json.Marshal(report)
	if err != nil {
		return fmt.Errorf("failed to marshal report: %w", err)
	}

	return r.client.Set(ctx, reportKey(sessionID), data, 0).Err()
}

func (r *RedisStore) GetReport(ctx context.Context, sessionID string) (*video.Report, error) {
	data, err := r.client.Get(ctx, reportKey(sessionID)).Result()
	if err != nil {
		if err == redis.Nil {
			return nil, fmt.Errorf("%w: %s", ErrReportNotFound, sessionID)
		}
		return nil, fmt.Errorf("failed to get report: %w", err)
	}

	var report video.Report
	if err := json.Unmarshal([]byte(data), &report); err != nil {
		return nil, fmt.Errorf("failed to unmarshal report: %w", err)
	}

	return &report, nil
}

// ===== Получение всех данных сессии =====

func (r *RedisStore) GetSessionData(ctx context.Context, sessionID string) (*SessionData, error) {
	session, err := r.GetSession(ctx, sessionID)
	if err != nil {
		return nil, fmt.Errorf("failed to get session: %w", err)
	}

	frames, _ := r.GetFrames(ctx, sessionID)
	decision, _ := r.GetDecision(ctx, sessionID) // Может не быть для новой сессии
	report, _ := r.GetReport(ctx, sessionID)

	return &SessionData{
		Session:      session,
		Frames:       frames,
		LastDecision: decision,
		Report:       report,
	}, nil
}
