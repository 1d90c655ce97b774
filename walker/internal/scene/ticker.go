package scene

import (
	"context"
	"math/rand"
	"time"

	"github.com/Krimson/ai-walker/walker/internal/batch"
)

// Ticker управляет темпом отправки кадров
type Ticker struct {
	interval time.Duration
	jitter   time.Duration // случайное отклонение, как у настоящей камеры
}

func NewTicker(interval, jitter time.Duration) *Ticker {
	return &Ticker{
		interval: interval,
		jitter:   jitter,
	}
}

// Tick возвращает канал, который отправляет метки времени с заданным интервалом
func (t *Ticker) Tick(ctx context.Context) <-chan time.Time {
	tickChan := make(chan time.Time)

	go func() {
		defer close(tickChan)

		// Первый тик сразу
		select {
		case tickChan <- time.Now():
		case <-ctx.Done():
			return
		}

		ticker := time.NewTicker(t.interval)
		defer ticker.Stop()

		for {
			select {
			case tickTime := <-ticker.C:
				if t.jitter > 0 {
					tickTime = tickTime.Add(time.Duration(float64(t.jitter) * (rand.Float64()*2 - 1)))
				}
				select {
				case tickChan <- tickTime:
				case <-ctx.Done():
					return
				}

			case <-ctx.Done():
				return
			}
		}
	}()

	return tickChan
}

// Stream отправляет кадры генератора по одному на тик. Канал закрывается,
// когда сцена закончилась или отменён контекст.
func Stream(ctx context.Context, g *Generator, t *Ticker, out chan<- batch.DetectionEvent) {
	defer close(out)

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	ticks := t.Tick(ctx)
	for range ticks {
		ev, ok := g.Next()
		if !ok {
			return
		}
		select {
		case out <- ev:
		case <-ctx.Done():
			return
		}
	}
}
