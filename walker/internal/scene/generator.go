// Package scene генерирует синтетические детекции для проверки сервиса без
// записанного видео: один объект, который приближается к пешеходу.
package scene

import (
	"errors"
	"math/rand"
	"sync"
	"time"

	"github.com/Krimson/ai-walker/walker/internal/batch"
	"github.com/Krimson/ai-walker/walker/internal/obstacle"
	"github.com/Krimson/ai-walker/walker/internal/spatial"
)

var ErrInvalidConfig = errors.New("invalid scene configuration")

// Размер рамки объекта в долях кадра
const (
	boxWidthFraction  = 0.15
	boxHeightFraction = 0.2
)

// Config описывает сцену. Положение центра объекта по вертикали задаётся
// в долях высоты кадра и линейно меняется от StartY к EndY.
type Config struct {
	SessionID       string
	Label           string
	Width           float64
	Height          float64
	Frames          int
	FrameIntervalMS int64
	CenterX         float64
	StartY          float64
	EndY            float64
	Jitter          float64 // случайный сдвиг рамки, пикселей
	Confidence      float64
}

// DefaultConfig - машина по центру, приближается за 3 секунды
func DefaultConfig() Config {
	return Config{
		Label:           "car",
		Width:           640,
		Height:          480,
		Frames:          30,
		FrameIntervalMS: 100,
		CenterX:         0.5,
		StartY:          0.8,
		EndY:            0.2,
		Jitter:          4,
		Confidence:      0.9,
	}
}

func (c Config) validate() error {
	switch {
	case c.Label == "":
		return ErrInvalidConfig
	case c.Width <= 0 || c.Height <= 0:
		return ErrInvalidConfig
	case c.Frames <= 0 || c.FrameIntervalMS <= 0:
		return ErrInvalidConfig
	case c.Confidence <= 0 || c.Confidence > 1:
		return ErrInvalidConfig
	case c.Jitter < 0:
		return ErrInvalidConfig
	}
	return nil
}

// Stats содержит статистику генератора
type Stats struct {
	TotalGenerated int
	LastFrame      int64
	LastCenterY    float64
}

type Generator struct {
	rand  *rand.Rand
	cfg   Config
	frame int
	stats Stats
	mu    sync.Mutex
}

func NewGenerator(cfg Config) (*Generator, error) {
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &Generator{
		rand: rand.New(rand.NewSource(time.Now().UnixNano())),
		cfg:  cfg,
	}, nil
}

// Seed устанавливает seed для случайного сдвига рамки
func (g *Generator) Seed(seed int64) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.rand.Seed(seed)
}

// Next возвращает детекцию следующего кадра; false, когда сцена закончилась
func (g *Generator) Next() (batch.DetectionEvent, bool) {
	g.mu.Lock()
	defer g.mu.Unlock()

	if g.frame >= g.cfg.Frames {
		return batch.DetectionEvent{}, false
	}

	progress := 0.0
	if g.cfg.Frames > 1 {
		progress = float64(g.frame) / float64(g.cfg.Frames-1)
	}
	cx := g.cfg.CenterX*g.cfg.Width + g.jitter()
	cy := (g.cfg.StartY+(g.cfg.EndY-g.cfg.StartY)*progress)*g.cfg.Height + g.jitter()

	halfW := boxWidthFraction * g.cfg.Width / 2
	halfH := boxHeightFraction * g.cfg.Height / 2

	ev := batch.DetectionEvent{
		SessionID:   g.cfg.SessionID,
		FrameIndex:  int64(g.frame),
		TsMS:        int64(g.frame) * g.cfg.FrameIntervalMS,
		ImageWidth:  g.cfg.Width,
		ImageHeight: g.cfg.Height,
		Detection: obstacle.Detection{
			Label:      g.cfg.Label,
			Confidence: g.cfg.Confidence,
			Box: spatial.Box{
				XMin: clamp(cx-halfW, 0, g.cfg.Width),
				YMin: clamp(cy-halfH, 0, g.cfg.Height),
				XMax: clamp(cx+halfW, 0, g.cfg.Width),
				YMax: clamp(cy+halfH, 0, g.cfg.Height),
			},
		},
	}

	g.frame++
	g.stats.TotalGenerated++
	g.stats.LastFrame = ev.FrameIndex
	g.stats.LastCenterY = cy / g.cfg.Height

	return ev, true
}

// Events генерирует все оставшиеся кадры сцены
func (g *Generator) Events() []batch.DetectionEvent {
	var events []batch.DetectionEvent
	for {
		ev, ok := g.Next()
		if !ok {
			return events
		}
		events = append(events, ev)
	}
}

// Reset начинает сцену заново
func (g *Generator) Reset() {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.frame = 0
	g.stats = Stats{}
}

func (g *Generator) GetStats() Stats {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.stats
}

func (g *Generator) jitter() float64 {
	if g.cfg.Jitter == 0 {
		return 0
	}
	return g.cfg.Jitter * (g.rand.Float64()*2 - 1)
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
