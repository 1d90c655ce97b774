package ingest

import (
	"context"
	"time"

	"github.com/Krimson/ai-walker/walker/internal/batch"
)

// StreamEvents отправляет детекции в канал в темпе записи: смещение каждой
// детекции считается от первой временной метки и откладывается от startTime.
// Канал закрывается по окончании или отмене контекста.
func StreamEvents(ctx context.Context, events []batch.DetectionEvent, startTime time.Time, out chan<- batch.DetectionEvent) {
	defer close(out)

	if len(events) == 0 {
		return
	}

	base := events[0].TsMS
	for _, ev := range events {
		// Calculate when to send this detection based on its time offset
		offset := time.Duration(ev.TsMS-base) * time.Millisecond
		if sleep := time.Until(startTime.Add(offset)); sleep > 0 {
			timer := time.NewTimer(sleep)
			select {
			case <-timer.C:
			case <-ctx.Done():
				timer.Stop()
				return
			}
		}

		select {
		case out <- ev:
		case <-ctx.Done():
			return
		}
	}
}
