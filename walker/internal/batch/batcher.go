package batch

import (
	"context"
	"fmt"
	"log"
	"math"
	"sort"
	"sync"
	"time"

	"github.com/Krimson/ai-walker/walker/internal/config"
)

type Batcher struct {
	cfg    *config.Config
	sink   Sink
	mu     sync.Mutex
	frames map[FrameKey]*currentFrame
	latest  map[string]int64 // последний номер кадра по сессии
	flushed map[string]int64 // последний отправленный в sink кадр по сессии

	flushChan chan Frame
	stopChan  chan struct{}
	done      chan struct{}
	stopOnce  sync.Once

	now func() time.Time

	stats struct {
		mu       sync.RWMutex
		received int64
		dropped  int64
		flushed  int64
		late     int64
	}
}

type LogSink struct{}

func (ls *LogSink) Consume(ctx context.Context, f Frame) error {
	log.Printf("[BATCH] session=%s frame=%d detections=%d ts=%d size=%.0fx%.0f",
		f.Key.SessionID,
		f.Key.FrameIndex,
		len(f.Detections),
		f.TsMS,
		f.Width,
		f.Height)
	return nil
}

func NewBatcher(cfg *config.Config, sink Sink) *Batcher {
	b := &Batcher{
		cfg:       cfg,
		sink:      sink,
		frames:    make(map[FrameKey]*currentFrame),
		latest:    make(map[string]int64),
		flushed:   make(map[string]int64),
		flushChan: make(chan Frame, 100),
		stopChan:  make(chan struct{}),
		done:      make(chan struct{}),
		now:       time.Now,
	}

	go b.flushWorker()
	go b.timerFlusher()

	return b
}

// Add кладёт детекцию в кадр. Появление более нового кадра той же сессии
// закрывает все её предыдущие кадры. Детекции для уже отправленного кадра
// отбрасываются: на каждый кадр sink получает ровно один Frame.
func (b *Batcher) Add(ev DetectionEvent) error {
	if err := validateEvent(ev); err != nil {
		b.incrementDropped()
		log.Printf("[WARN] Invalid detection dropped: %v", err)
		return nil
	}

	key := FrameKey{SessionID: ev.SessionID, FrameIndex: ev.FrameIndex}

	b.mu.Lock()
	defer b.mu.Unlock()

	latest, seen := b.latest[ev.SessionID]
	if seen {
		behind := latest - ev.FrameIndex

		if behind > b.cfg.DropTooOldFrames {
			b.incrementDropped()
			log.Printf("[WARN] Detection too old, dropped: session=%s frame=%d latest=%d",
				ev.SessionID, ev.FrameIndex, latest)
			return nil
		}

		if mark, ok := b.flushed[ev.SessionID]; ok && ev.FrameIndex <= mark {
			b.incrementLate()
			b.incrementDropped()
			log.Printf("[WARN] Detection for closed frame dropped: session=%s frame=%d flushed=%d",
				ev.SessionID, ev.FrameIndex, mark)
			return nil
		}

		if behind > 0 {
			b.incrementLate()
			log.Printf("[WARN] Late detection: session=%s frame=%d latest=%d",
				ev.SessionID, ev.FrameIndex, latest)
		}
	}

	if !seen || ev.FrameIndex > latest {
		b.flushSessionBefore(ev.SessionID, ev.FrameIndex)
		b.latest[ev.SessionID] = ev.FrameIndex
	}

	frame, exists := b.frames[key]
	if !exists {
		frame = newCurrentFrame(ev)
		b.frames[key] = frame
	}

	frame.add(ev, b.now())
	b.incrementReceived()

	if frame.shouldFlushBySize(b.cfg.BatchMaxDetections) {
		b.flushFrame(key, frame)
	}

	return nil
}

func validateEvent(ev DetectionEvent) error {
	if ev.SessionID == "" {
		return fmt.Errorf("empty session_id")
	}

	if ev.FrameIndex < 0 {
		return fmt.Errorf("invalid frame index: %d", ev.FrameIndex)
	}

	if !(ev.ImageWidth > 0) || !(ev.ImageHeight > 0) {
		return fmt.Errorf("invalid image size: %.0fx%.0f", ev.ImageWidth, ev.ImageHeight)
	}

	score := ev.Detection.Confidence
	if math.IsNaN(score) || math.IsInf(score, 0) {
		return fmt.Errorf("invalid score: %f", score)
	}

	return nil
}

// flushSessionBefore закрывает кадры сессии с номером меньше frameIndex. Вызывается под b.mu.
func (b *Batcher) flushSessionBefore(sessionID string, frameIndex int64) {
	for _, key := range b.openKeys(func(k FrameKey) bool {
		return k.SessionID == sessionID && k.FrameIndex < frameIndex
	}) {
		b.flushFrame(key, b.frames[key])
	}
}

// openKeys возвращает ключи открытых кадров в порядке (сессия, номер кадра),
// чтобы sink получал кадры одной сессии по возрастанию
func (b *Batcher) openKeys(match func(FrameKey) bool) []FrameKey {
	keys := make([]FrameKey, 0, len(b.frames))
	for key := range b.frames {
		if match(key) {
			keys = append(keys, key)
		}
	}
	sort.Slice(keys, func(i, j int) bool {
		if keys[i].SessionID != keys[j].SessionID {
			return keys[i].SessionID < keys[j].SessionID
		}
		return keys[i].FrameIndex < keys[j].FrameIndex
	})
	return keys
}

// flushFrame отправляет кадр в очередь и удаляет его из открытых. Вызывается под b.mu.
func (b *Batcher) flushFrame(key FrameKey, frame *currentFrame) {
	delete(b.frames, key)

	if mark, ok := b.flushed[key.SessionID]; !ok || key.FrameIndex > mark {
		b.flushed[key.SessionID] = key.FrameIndex
	}

	select {
	case b.flushChan <- frame.clone():
		b.incrementFlushed()
	default:
		log.Printf("[WARN] Flush channel full, frame dropped: session=%s frame=%d",
			key.SessionID, key.FrameIndex)
		b.incrementDropped()
	}
}

func (b *Batcher) consume(frame Frame) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := b.sink.Consume(ctx, frame); err != nil {
		log.Printf("[ERROR] Failed to consume frame: %v", err)
	}
}

func (b *Batcher) flushWorker() {
	defer close(b.done)

	for {
		select {
		case frame := <-b.flushChan:
			b.consume(frame)

		case <-b.stopChan:
			// Дочитываем то, что успели поставить в очередь
			for {
				select {
				case frame := <-b.flushChan:
					b.consume(frame)
				default:
					return
				}
			}
		}
	}
}

func (b *Batcher) timerFlusher() {
	interval := time.Duration(b.cfg.FlushIntervalMS) * time.Millisecond
	if interval <= 0 {
		interval = 200 * time.Millisecond
	}
	ticker := time.NewTicker(interval / 2)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			b.flushIdleFrames()

		case <-b.stopChan:
			return
		}
	}
}

// flushIdleFrames закрывает кадры, в которые ничего не добавляли дольше FlushIntervalMS
func (b *Batcher) flushIdleFrames() {
	idle := time.Duration(b.cfg.FlushIntervalMS) * time.Millisecond
	now := b.now()

	b.mu.Lock()
	defer b.mu.Unlock()

	for _, key := range b.openKeys(func(k FrameKey) bool {
		return now.Sub(b.frames[k].lastAdded) >= idle
	}) {
		b.flushFrame(key, b.frames[key])
	}
}

// Stop сбрасывает все открытые кадры и ждёт, пока sink их обработает
func (b *Batcher) Stop() {
	b.stopOnce.Do(func() {
		log.Printf("[INFO] Stopping batcher...")

		b.flushAllFrames()
		close(b.stopChan)
		<-b.done

		b.logStats()
	})
}

func (b *Batcher) flushAllFrames() {
	b.mu.Lock()
	defer b.mu.Unlock()

	for _, key := range b.openKeys(func(FrameKey) bool { return true }) {
		b.flushFrame(key, b.frames[key])
	}
}

// Методы для работы со статистикой
func (b *Batcher) incrementReceived() {
	b.stats.mu.Lock()
	b.stats.received++
	b.stats.mu.Unlock()
}

func (b *Batcher) incrementDropped() {
	b.stats.mu.Lock()
	b.stats.dropped++
	b.stats.mu.Unlock()
}

func (b *Batcher) incrementFlushed() {
	b.stats.mu.Lock()
	b.stats.flushed++
	b.stats.mu.Unlock()
}

func (b *Batcher) incrementLate() {
	b.stats.mu.Lock()
	b.stats.late++
	b.stats.mu.Unlock()
}

func (b *Batcher) logStats() {
	b.stats.mu.RLock()
	defer b.stats.mu.RUnlock()

	log.Printf("[STATS] received=%d dropped=%d flushed=%d late=%d",
		b.stats.received,
		b.stats.dropped,
		b.stats.flushed,
		b.stats.late)
}

func (b *Batcher) GetStats() (received, dropped, flushed, late int64) {
	b.stats.mu.RLock()
	defer b.stats.mu.RUnlock()

	return b.stats.received, b.stats.dropped, b.stats.flushed, b.stats.late
}
