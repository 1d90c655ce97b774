package batch

import (
	"context"
	"errors"
	"math"
	"sync"
	"testing"
	"time"

	"github.com/Krimson/ai-walker/walker/internal/advisory"
	"github.com/Krimson/ai-walker/walker/internal/analysis"
	"github.com/Krimson/ai-walker/walker/internal/config"
	"github.com/Krimson/ai-walker/walker/internal/obstacle"
	"github.com/Krimson/ai-walker/walker/internal/spatial"
)

// TestSink для тестирования - собирает все кадры
type TestSink struct {
	mu     sync.Mutex
	frames []Frame
	err    error
}

func (ts *TestSink) Consume(ctx context.Context, f Frame) error {
	ts.mu.Lock()
	defer ts.mu.Unlock()
	ts.frames = append(ts.frames, f)
	return ts.err
}

func (ts *TestSink) GetFrames() []Frame {
	ts.mu.Lock()
	defer ts.mu.Unlock()
	result := make([]Frame, len(ts.frames))
	copy(result, ts.frames)
	return result
}

func event(session string, frame int64, label string) DetectionEvent {
	return DetectionEvent{
		SessionID:   session,
		FrameIndex:  frame,
		TsMS:        1000 + frame*100,
		ImageWidth:  640,
		ImageHeight: 480,
		Detection: obstacle.Detection{
			Label:      label,
			Confidence: 0.9,
			Box:        spatial.Box{XMin: 280, YMin: 20, XMax: 360, YMax: 120},
		},
	}
}

func testConfig() *config.Config {
	return &config.Config{
		BatchMaxDetections: 100,
		FlushIntervalMS:    5000,
		AckEveryN:          50,
		DropTooOldFrames:   30,
	}
}

func TestBatcher_FlushBySize(t *testing.T) {
	cfg := testConfig()
	cfg.BatchMaxDetections = 3

	sink := &TestSink{}
	batcher := NewBatcher(cfg, sink)
	defer batcher.Stop()

	for _, label := range []string{"car", "person", "bench"} {
		if err := batcher.Add(event("session1", 1, label)); err != nil {
			t.Fatalf("Failed to add event: %v", err)
		}
	}

	// Даем время для обработки
	time.Sleep(100 * time.Millisecond)

	frames := sink.GetFrames()
	if len(frames) != 1 {
		t.Fatalf("Expected 1 flushed frame, got %d", len(frames))
	}
	if len(frames[0].Detections) != 3 {
		t.Errorf("Expected 3 detections, got %d", len(frames[0].Detections))
	}
}

func TestBatcher_FlushOnNewerFrame(t *testing.T) {
	sink := &TestSink{}
	batcher := NewBatcher(testConfig(), sink)
	defer batcher.Stop()

	events := []DetectionEvent{
		event("session1", 1, "car"),
		event("session1", 1, "person"),
		event("session2", 1, "tree"),
		event("session1", 2, "stairs"), // закрывает кадр 1 первой сессии
	}
	for _, ev := range events {
		if err := batcher.Add(ev); err != nil {
			t.Fatalf("Failed to add event: %v", err)
		}
	}

	time.Sleep(100 * time.Millisecond)

	frames := sink.GetFrames()
	if len(frames) != 1 {
		t.Fatalf("Expected 1 flushed frame, got %d", len(frames))
	}
	if frames[0].Key != (FrameKey{SessionID: "session1", FrameIndex: 1}) {
		t.Errorf("Unexpected flushed frame: %+v", frames[0].Key)
	}
	if len(frames[0].Detections) != 2 || frames[0].TsMS != 1100 {
		t.Errorf("Unexpected frame content: %+v", frames[0])
	}
}

func TestBatcher_TimerFlush(t *testing.T) {
	cfg := testConfig()
	cfg.FlushIntervalMS = 100

	sink := &TestSink{}
	batcher := NewBatcher(cfg, sink)
	defer batcher.Stop()

	if err := batcher.Add(event("session1", 7, "car")); err != nil {
		t.Fatalf("Failed to add event: %v", err)
	}

	// Ждем, пока таймер сработает
	time.Sleep(300 * time.Millisecond)

	frames := sink.GetFrames()
	if len(frames) != 1 {
		t.Fatalf("Expected 1 frame flushed by timer, got %d", len(frames))
	}
	if frames[0].Key.FrameIndex != 7 {
		t.Errorf("Expected frame 7, got %d", frames[0].Key.FrameIndex)
	}
}

func TestBatcher_EmptyFrameMarker(t *testing.T) {
	sink := &TestSink{}
	batcher := NewBatcher(testConfig(), sink)

	if err := batcher.Add(event("session1", 0, "")); err != nil {
		t.Fatalf("Failed to add event: %v", err)
	}
	batcher.Stop()

	frames := sink.GetFrames()
	if len(frames) != 1 {
		t.Fatalf("Expected 1 frame, got %d", len(frames))
	}
	if len(frames[0].Detections) != 0 {
		t.Errorf("Expected frame without detections, got %d", len(frames[0].Detections))
	}
}

func TestBatcher_LateAndTooOld(t *testing.T) {
	cfg := testConfig()
	cfg.DropTooOldFrames = 5

	sink := &TestSink{}
	batcher := NewBatcher(cfg, sink)

	events := []DetectionEvent{
		event("session1", 10, "car"),
		event("session1", 8, "person"), // опоздал, но в пределах окна
		event("session1", 2, "bench"),  // слишком старый
	}
	for _, ev := range events {
		if err := batcher.Add(ev); err != nil {
			t.Fatalf("Failed to add event: %v", err)
		}
	}

	batcher.Stop()

	received, dropped, flushed, late := batcher.GetStats()
	if received != 2 {
		t.Errorf("Expected 2 received events, got %d", received)
	}
	if dropped != 1 {
		t.Errorf("Expected 1 dropped event, got %d", dropped)
	}
	if late != 1 {
		t.Errorf("Expected 1 late event, got %d", late)
	}
	if flushed != 2 {
		t.Errorf("Expected 2 flushed frames, got %d", flushed)
	}

	frames := sink.GetFrames()
	if len(frames) != 2 || frames[0].Key.FrameIndex != 8 || frames[1].Key.FrameIndex != 10 {
		t.Errorf("Expected frames 8 and 10 in order on stop, got %+v", frames)
	}
}

func TestBatcher_LateDetectionForFlushedFrame(t *testing.T) {
	sink := &TestSink{}
	batcher := NewBatcher(testConfig(), sink)

	events := []DetectionEvent{
		event("session1", 0, "car"),
		event("session1", 1, "person"), // закрывает кадр 0
		event("session1", 0, "stairs"), // кадр 0 уже отправлен
	}
	for _, ev := range events {
		if err := batcher.Add(ev); err != nil {
			t.Fatalf("Failed to add event: %v", err)
		}
	}

	batcher.Stop()

	frames := sink.GetFrames()
	if len(frames) != 2 {
		t.Fatalf("Expected 2 frames, got %d: %+v", len(frames), frames)
	}
	if frames[0].Key.FrameIndex != 0 || frames[1].Key.FrameIndex != 1 {
		t.Errorf("Expected frames 0 and 1, got %d and %d", frames[0].Key.FrameIndex, frames[1].Key.FrameIndex)
	}
	if len(frames[0].Detections) != 1 || frames[0].Detections[0].Label != "car" {
		t.Errorf("Expected frame 0 to keep only its original detection, got %+v", frames[0].Detections)
	}

	received, dropped, flushed, late := batcher.GetStats()
	if received != 2 || dropped != 1 || flushed != 2 || late != 1 {
		t.Errorf("Expected 2/1/2/1 received/dropped/flushed/late, got %d/%d/%d/%d",
			received, dropped, flushed, late)
	}
}

func TestBatcher_DetectionAfterSizeFlush(t *testing.T) {
	cfg := testConfig()
	cfg.BatchMaxDetections = 1

	sink := &TestSink{}
	batcher := NewBatcher(cfg, sink)

	for _, label := range []string{"car", "person"} {
		if err := batcher.Add(event("session1", 3, label)); err != nil {
			t.Fatalf("Failed to add event: %v", err)
		}
	}
	batcher.Stop()

	frames := sink.GetFrames()
	if len(frames) != 1 {
		t.Fatalf("Expected frame 3 exactly once, got %d frames", len(frames))
	}
	if frames[0].Key.FrameIndex != 3 || len(frames[0].Detections) != 1 {
		t.Errorf("Unexpected frame: %+v", frames[0])
	}
}

func TestBatcher_InvalidEvents(t *testing.T) {
	sink := &TestSink{}
	batcher := NewBatcher(testConfig(), sink)
	defer batcher.Stop()

	noSession := event("", 1, "car")
	noSize := event("session1", 1, "car")
	noSize.ImageWidth = 0
	nanScore := event("session1", 1, "car")
	nanScore.Detection.Confidence = math.NaN()
	negative := event("session1", -1, "car")

	for _, ev := range []DetectionEvent{noSession, noSize, nanScore, negative} {
		if err := batcher.Add(ev); err != nil {
			t.Fatalf("Invalid events must not return errors: %v", err)
		}
	}

	received, dropped, _, _ := batcher.GetStats()
	if received != 0 || dropped != 4 {
		t.Errorf("Expected 0 received / 4 dropped, got %d / %d", received, dropped)
	}
}

func TestFrame_Input(t *testing.T) {
	f := Frame{
		Key:    FrameKey{SessionID: "s", FrameIndex: 4},
		TsMS:   2500,
		Width:  640,
		Height: 480,
	}
	in := f.Input()
	if in.FrameIndex != 4 || in.Timestamp != 2.5 || in.Width != 640 {
		t.Errorf("Unexpected input: %+v", in)
	}
}

type recorderStub struct {
	mu     sync.Mutex
	frames []analysis.FrameAnalysis
	err    error
}

func (r *recorderStub) RecordFrame(_ context.Context, _ string, fa analysis.FrameAnalysis) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.frames = append(r.frames, fa)
	return r.err
}

type publisherStub struct {
	mu       sync.Mutex
	sessions []string
	actions  []advisory.Action
}

func (p *publisherStub) Publish(sessionID string, fa analysis.FrameAnalysis) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.sessions = append(p.sessions, sessionID)
	p.actions = append(p.actions, fa.Guidance.Action)
}

func TestAnalysisSink(t *testing.T) {
	rec := &recorderStub{}
	pub := &publisherStub{}
	sink := NewAnalysisSink(analysis.NewAnalyzer(0.3), rec, pub)

	f := Frame{
		Key:    FrameKey{SessionID: "walk-1", FrameIndex: 3},
		TsMS:   3000,
		Width:  640,
		Height: 480,
		Detections: []obstacle.Detection{
			{Label: "stairs", Confidence: 0.8, Box: spatial.Box{XMin: 280, YMin: 20, XMax: 360, YMax: 120}},
		},
	}

	if err := sink.Consume(context.Background(), f); err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}

	if len(rec.frames) != 1 || rec.frames[0].FrameIndex != 3 || rec.frames[0].Timestamp != 3 {
		t.Fatalf("Unexpected recorded frames: %+v", rec.frames)
	}
	if len(pub.sessions) != 1 || pub.sessions[0] != "walk-1" || pub.actions[0] != advisory.ActionTurn {
		t.Errorf("Unexpected publications: %v %v", pub.sessions, pub.actions)
	}

	rec.err = errors.New("redis down")
	if err := sink.Consume(context.Background(), f); err == nil {
		t.Error("Expected record error to be returned")
	}
	if len(pub.sessions) != 2 {
		t.Error("Expected advisory to be published even when recording fails")
	}
}

func TestCompositeSink(t *testing.T) {
	first := &TestSink{err: errors.New("boom")}
	second := &TestSink{}
	sink := NewCompositeSink(first, second)

	err := sink.Consume(context.Background(), Frame{Key: FrameKey{SessionID: "s"}})
	if err == nil {
		t.Error("Expected joined error")
	}
	if len(second.GetFrames()) != 1 {
		t.Error("Expected second sink to be called after first failed")
	}
}

func TestMultiPublisher(t *testing.T) {
	first := &publisherStub{}
	second := &publisherStub{}

	MultiPublisher{first, second}.Publish("walk-1", analysis.FrameAnalysis{})

	if len(first.sessions) != 1 || len(second.sessions) != 1 {
		t.Errorf("Expected both publishers to be called, got %d/%d", len(first.sessions), len(second.sessions))
	}
}
