package batch

import (
	"context"
	"time"

	"github.com/Krimson/ai-walker/walker/internal/analysis"
	"github.com/Krimson/ai-walker/walker/internal/obstacle"
)

// DetectionEvent - одна детекция, пришедшая по стриму.
// Событие с пустым Label только отмечает кадр (кадр без объектов).
type DetectionEvent struct {
	SessionID   string             // Идентификатор сессии
	FrameIndex  int64              // Номер кадра в сессии
	TsMS        int64              // Временная метка кадра в миллисекундах
	ImageWidth  float64            // Ширина изображения в пикселях
	ImageHeight float64            // Высота изображения в пикселях
	Detection   obstacle.Detection // Сама детекция
}

// FrameKey уникально идентифицирует кадр по сессии и номеру
type FrameKey struct {
	SessionID  string
	FrameIndex int64
}

// Frame представляет собранный кадр со всеми детекциями
type Frame struct {
	Key        FrameKey
	TsMS       int64
	Width      float64
	Height     float64
	Detections []obstacle.Detection
}

// Input переводит кадр во вход анализатора. Время переводится в секунды.
func (f Frame) Input() analysis.FrameInput {
	return analysis.FrameInput{
		FrameIndex: int(f.Key.FrameIndex),
		Timestamp:  float64(f.TsMS) / 1000,
		Width:      f.Width,
		Height:     f.Height,
		Detections: f.Detections,
	}
}

// Sink интерфейс для обработки готовых кадров
type Sink interface {
	Consume(ctx context.Context, f Frame) error
}

// currentFrame - внутренняя структура для накопления детекций кадра
type currentFrame struct {
	Frame
	lastAdded time.Time // Когда в кадр последний раз что-то добавили
}

func newCurrentFrame(ev DetectionEvent) *currentFrame {
	return &currentFrame{
		Frame: Frame{
			Key:        FrameKey{SessionID: ev.SessionID, FrameIndex: ev.FrameIndex},
			TsMS:       ev.TsMS,
			Width:      ev.ImageWidth,
			Height:     ev.ImageHeight,
			Detections: make([]obstacle.Detection, 0, 8),
		},
	}
}

// add добавляет детекцию; пустая метка только продлевает жизнь кадра
func (cf *currentFrame) add(ev DetectionEvent, now time.Time) {
	if ev.Detection.Label != "" {
		cf.Detections = append(cf.Detections, ev.Detection)
	}
	cf.lastAdded = now
}

// shouldFlushBySize проверяет, набрал ли кадр максимум детекций
func (cf *currentFrame) shouldFlushBySize(maxDetections int) bool {
	return maxDetections > 0 && len(cf.Detections) >= maxDetections
}

// clone создает копию кадра для отправки в sink
func (cf *currentFrame) clone() Frame {
	detections := make([]obstacle.Detection, len(cf.Detections))
	copy(detections, cf.Detections)

	f := cf.Frame
	f.Detections = detections
	return f
}
