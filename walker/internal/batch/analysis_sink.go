package batch

import (
	"context"
	"errors"
	"fmt"
	"log"

	"github.com/Krimson/ai-walker/walker/internal/analysis"
)

// FrameRecorder сохраняет результат анализа кадра в сессию
type FrameRecorder interface {
	RecordFrame(ctx context.Context, sessionID string, fa analysis.FrameAnalysis) error
}

// Publisher рассылает результат анализа подписчикам (WebSocket)
type Publisher interface {
	Publish(sessionID string, fa analysis.FrameAnalysis)
}

// MultiPublisher рассылает результат нескольким получателям по очереди
type MultiPublisher []Publisher

func (m MultiPublisher) Publish(sessionID string, fa analysis.FrameAnalysis) {
	for _, p := range m {
		p.Publish(sessionID, fa)
	}
}

// AnalysisSink анализирует собранный кадр, сохраняет его в сессию
// и публикует рекомендацию подписчикам
type AnalysisSink struct {
	analyzer  *analysis.Analyzer
	recorder  FrameRecorder
	publisher Publisher
}

// NewAnalysisSink создает sink; recorder и publisher могут быть nil
func NewAnalysisSink(analyzer *analysis.Analyzer, recorder FrameRecorder, publisher Publisher) *AnalysisSink {
	return &AnalysisSink{
		analyzer:  analyzer,
		recorder:  recorder,
		publisher: publisher,
	}
}

// Consume реализует интерфейс Sink
func (s *AnalysisSink) Consume(ctx context.Context, f Frame) error {
	fa := s.analyzer.Analyze(f.Input())

	log.Printf("[ANALYSIS] session=%s frame=%d obstacles=%d risk=%s action=%s direction=%s",
		f.Key.SessionID, f.Key.FrameIndex, len(fa.Obstacles), fa.RiskLevel,
		fa.Guidance.Action, fa.Guidance.Direction)

	if s.recorder != nil {
		if err := s.recorder.RecordFrame(ctx, f.Key.SessionID, fa); err != nil {
			// Публикуем всё равно: пользователю подсказка важнее истории
			log.Printf("[ERROR] Failed to record frame: session=%s frame=%d: %v",
				f.Key.SessionID, f.Key.FrameIndex, err)
			if s.publisher != nil {
				s.publisher.Publish(f.Key.SessionID, fa)
			}
			return fmt.Errorf("failed to record frame: %w", err)
		}
	}

	if s.publisher != nil {
		s.publisher.Publish(f.Key.SessionID, fa)
	}

	return nil
}

// CompositeSink отдаёт кадр нескольким sink по очереди
type CompositeSink struct {
	sinks []Sink
}

func NewCompositeSink(sinks ...Sink) *CompositeSink {
	return &CompositeSink{sinks: sinks}
}

// Consume вызывает все sink даже если какой-то из них вернул ошибку
func (c *CompositeSink) Consume(ctx context.Context, f Frame) error {
	var errs []error
	for _, s := range c.sinks {
		if err := s.Consume(ctx, f); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
