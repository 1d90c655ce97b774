package session

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"

	"github.com/Krimson/ai-walker/walker/internal/advice"
	"github.com/Krimson/ai-walker/walker/internal/analysis"
	"github.com/Krimson/ai-walker/walker/internal/obstacle"
	"github.com/Krimson/ai-walker/walker/internal/spatial"
)

// recordingAdvisor запоминает сводки, переданные в генератор
type recordingAdvisor struct {
	mu        sync.Mutex
	summaries []string
	context   string
}

func (a *recordingAdvisor) Generate(_ context.Context, summaries []string, userContext string) (advice.Advice, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.summaries = append([]string(nil), summaries...)
	a.context = userContext
	return advice.Advice{AdviceType: "navigation", AdviceText: "ok", ModelUsed: "test"}, nil
}

type testClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *testClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *testClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

func newTestManager(t *testing.T, opts Options) (*Manager, *miniredis.Miniredis, *testClock) {
	t.Helper()
	mr, client := newTestRedis(t)
	manager := NewManager(NewRedisStore(client, 0), newSQLiteRepository(t), opts)
	clock := &testClock{now: time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)}
	manager.now = clock.Now
	return manager, mr, clock
}

func TestManager_SessionLifecycle(t *testing.T) {
	manager, mr, clock := newTestManager(t, Options{DataTTLSeconds: 600})
	ctx := context.Background()

	session, err := manager.CreateSession(ctx, &CreateSessionRequest{UserID: "user-1", CreatedFrom: "mobile"})
	if err != nil {
		t.Fatalf("CreateSession failed: %v", err)
	}
	if session.ID == "" || session.Status != SessionStatusActive {
		t.Fatalf("Unexpected session: %+v", session)
	}
	if !manager.IsSessionActive(session.ID) {
		t.Error("Expected session to be active")
	}

	for i := 0; i < 3; i++ {
		if err := manager.RecordFrame(ctx, session.ID, stairsFrame(i, 200-float64(i)*40)); err != nil {
			t.Fatalf("RecordFrame failed: %v", err)
		}
	}

	got, err := manager.GetSession(ctx, session.ID)
	if err != nil {
		t.Fatalf("GetSession failed: %v", err)
	}
	if got.TotalFrames != 3 {
		t.Errorf("Expected 3 frames, got %d", got.TotalFrames)
	}

	decision, err := manager.GetLastDecision(ctx, session.ID)
	if err != nil || decision.Message == "" {
		t.Errorf("Expected last decision, got %+v (%v)", decision, err)
	}

	track, err := manager.GetTrack(ctx, session.ID, obstacle.CategoryStairs)
	if err != nil || len(track) != 3 {
		t.Errorf("Expected 3 stairs samples, got %d (%v)", len(track), err)
	}

	clock.Advance(30 * time.Second)
	report, err := manager.StopSession(ctx, session.ID)
	if err != nil {
		t.Fatalf("StopSession failed: %v", err)
	}
	if report.VideoSummary.TotalFrames != 3 || report.VideoSummary.VideoDuration != 30 {
		t.Errorf("Unexpected report summary: %+v", report.VideoSummary)
	}
	if manager.IsSessionActive(session.ID) {
		t.Error("Expected session to be inactive after stop")
	}
	if ttl := mr.TTL(sessionKey(session.ID)); ttl != 600*time.Second {
		t.Errorf("Expected TTL 600s, got %v", ttl)
	}

	if _, err := manager.StopSession(ctx, session.ID); !errors.Is(err, ErrSessionInactive) {
		t.Errorf("Expected ErrSessionInactive, got %v", err)
	}

	// Кадры неактивной сессии игнорируются
	if err := manager.RecordFrame(ctx, session.ID, stairsFrame(9, 200)); err != nil {
		t.Errorf("Expected frame for stopped session to be ignored, got %v", err)
	}
	frames, err := manager.GetFrames(ctx, session.ID)
	if err != nil || len(frames) != 3 {
		t.Errorf("Expected 3 frames after stop, got %d (%v)", len(frames), err)
	}

	if err := manager.SaveSession(ctx, session.ID, "park loop"); err != nil {
		t.Fatalf("SaveSession failed: %v", err)
	}

	// После вытеснения из Redis данные читаются из базы
	mr.FlushAll()

	saved, err := manager.GetSession(ctx, session.ID)
	if err != nil {
		t.Fatalf("GetSession from database failed: %v", err)
	}
	if saved.Status != SessionStatusSaved || saved.Metadata.Notes != "park loop" || saved.SavedAt == nil {
		t.Errorf("Unexpected saved session: %+v", saved)
	}

	data, err := manager.GetSessionData(ctx, session.ID)
	if err != nil {
		t.Fatalf("GetSessionData failed: %v", err)
	}
	if len(data.Frames) != 3 || data.Report == nil {
		t.Errorf("Expected frames and report from database, got %d frames, report=%v", len(data.Frames), data.Report != nil)
	}

	sessions, err := manager.ListSessions(ctx, 10, 0)
	if err != nil || len(sessions) != 1 {
		t.Errorf("Expected 1 saved session, got %d (%v)", len(sessions), err)
	}

	if err := manager.DeleteSession(ctx, session.ID); err != nil {
		t.Fatalf("DeleteSession failed: %v", err)
	}
	if _, err := manager.GetSession(ctx, session.ID); !errors.Is(err, ErrSessionNotFound) {
		t.Errorf("Expected ErrSessionNotFound, got %v", err)
	}
}

func TestManager_RecordFrameAutoCreates(t *testing.T) {
	manager, _, _ := newTestManager(t, Options{})
	ctx := context.Background()

	if err := manager.RecordFrame(ctx, "device-42", stairsFrame(0, 200)); err != nil {
		t.Fatalf("RecordFrame failed: %v", err)
	}

	session, err := manager.GetSession(ctx, "device-42")
	if err != nil {
		t.Fatalf("GetSession failed: %v", err)
	}
	if session.Status != SessionStatusActive || session.Metadata.CreatedFrom != CreatedFromAuto {
		t.Errorf("Unexpected auto-created session: %+v", session)
	}
	if session.TotalFrames != 1 {
		t.Errorf("Expected 1 frame, got %d", session.TotalFrames)
	}
}

func TestManager_RecordFrameConcurrent(t *testing.T) {
	manager, _, _ := newTestManager(t, Options{})
	ctx := context.Background()

	session, err := manager.CreateSession(ctx, &CreateSessionRequest{})
	if err != nil {
		t.Fatalf("CreateSession failed: %v", err)
	}

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			if err := manager.RecordFrame(ctx, session.ID, stairsFrame(i, 200)); err != nil {
				t.Errorf("RecordFrame failed: %v", err)
			}
		}(i)
	}
	wg.Wait()

	got, err := manager.GetSession(ctx, session.ID)
	if err != nil {
		t.Fatalf("GetSession failed: %v", err)
	}
	if got.TotalFrames != 20 {
		t.Errorf("Expected 20 frames, got %d", got.TotalFrames)
	}
}

func TestManager_AnalyzeVideo(t *testing.T) {
	manager, _, _ := newTestManager(t, Options{})
	ctx := context.Background()

	if _, _, err := manager.AnalyzeVideo(ctx, &AnalyzeVideoRequest{}); !errors.Is(err, ErrNoFrames) {
		t.Errorf("Expected ErrNoFrames, got %v", err)
	}

	req := &AnalyzeVideoRequest{
		VideoDuration: 2,
		UserID:        "user-1",
		Frames: []analysis.FrameInput{
			{Width: 640, Height: 480, Detections: []obstacle.Detection{
				{Label: "person", Confidence: 0.9, Box: spatial.Box{XMin: 280, YMin: 300, XMax: 360, YMax: 460}},
			}},
			{Width: 640, Height: 480, Detections: []obstacle.Detection{
				{Label: "person", Confidence: 0.9, Box: spatial.Box{XMin: 280, YMin: 150, XMax: 360, YMax: 300}},
			}},
		},
	}

	session, report, err := manager.AnalyzeVideo(ctx, req)
	if err != nil {
		t.Fatalf("AnalyzeVideo failed: %v", err)
	}
	if session.Status != SessionStatusStopped || session.Metadata.CreatedFrom != CreatedFromVideo || session.TotalFrames != 2 {
		t.Errorf("Unexpected video session: %+v", session)
	}
	if report.VideoSummary.TotalFrames != 2 || report.FrameAnalyses[1].Timestamp != 1 {
		t.Errorf("Unexpected report: %+v", report.VideoSummary)
	}

	cached, err := manager.GetReport(ctx, session.ID)
	if err != nil || cached.VideoSummary.TotalFrames != 2 {
		t.Errorf("Expected cached report, got %v", err)
	}

	frames, err := manager.GetFrames(ctx, session.ID)
	if err != nil || len(frames) != 2 {
		t.Errorf("Expected 2 cached frames, got %d (%v)", len(frames), err)
	}
}

func TestManager_GenerateAdvice(t *testing.T) {
	advisor := &recordingAdvisor{}
	manager, _, _ := newTestManager(t, Options{Advisor: advisor})
	ctx := context.Background()

	if _, err := manager.GenerateAdvice(ctx, "missing", ""); !errors.Is(err, ErrSessionNotFound) {
		t.Errorf("Expected ErrSessionNotFound, got %v", err)
	}

	session, err := manager.CreateSession(ctx, &CreateSessionRequest{})
	if err != nil {
		t.Fatalf("CreateSession failed: %v", err)
	}
	for i := 0; i < adviceWindow+5; i++ {
		if err := manager.RecordFrame(ctx, session.ID, stairsFrame(i, 200)); err != nil {
			t.Fatalf("RecordFrame failed: %v", err)
		}
	}

	result, err := manager.GenerateAdvice(ctx, session.ID, "heading to the bus stop")
	if err != nil {
		t.Fatalf("GenerateAdvice failed: %v", err)
	}
	if result.ModelUsed != "test" {
		t.Errorf("Expected test model, got %s", result.ModelUsed)
	}

	advisor.mu.Lock()
	defer advisor.mu.Unlock()
	if len(advisor.summaries) != adviceWindow {
		t.Errorf("Expected %d summaries, got %d", adviceWindow, len(advisor.summaries))
	}
	if advisor.context != "heading to the bus stop" {
		t.Errorf("Unexpected user context: %q", advisor.context)
	}
}

func TestManager_DefaultAdvisor(t *testing.T) {
	manager, _, _ := newTestManager(t, Options{})
	ctx := context.Background()

	session, err := manager.CreateSession(ctx, &CreateSessionRequest{})
	if err != nil {
		t.Fatalf("CreateSession failed: %v", err)
	}

	result, err := manager.GenerateAdvice(ctx, session.ID, "")
	if err != nil {
		t.Fatalf("GenerateAdvice failed: %v", err)
	}
	if result.ModelUsed != advice.ModelFallback {
		t.Errorf("Expected fallback model, got %s", result.ModelUsed)
	}
}

func TestManager_AnalyzeImages(t *testing.T) {
	advisor := &recordingAdvisor{}
	manager, _, _ := newTestManager(t, Options{Advisor: advisor})
	ctx := context.Background()

	if _, err := manager.AnalyzeImages(ctx, &AnalyzeImagesRequest{}); !errors.Is(err, ErrNoFrames) {
		t.Errorf("Expected ErrNoFrames, got %v", err)
	}

	stairs := analysis.FrameInput{
		Width:  640,
		Height: 480,
		Detections: []obstacle.Detection{
			{Label: "stairs", Confidence: 0.9, Box: spatial.Box{XMin: 280, YMin: 20, XMax: 360, YMax: 120}},
		},
	}

	resp, err := manager.AnalyzeImages(ctx, &AnalyzeImagesRequest{
		Images:      []analysis.FrameInput{stairs, stairs},
		UserContext: "crossing the park",
	})
	if err != nil {
		t.Fatalf("AnalyzeImages failed: %v", err)
	}
	if len(resp.Analysis.Obstacles) != 1 || resp.Advice.ModelUsed != "test" {
		t.Errorf("Unexpected response: %+v", resp)
	}

	advisor.mu.Lock()
	defer advisor.mu.Unlock()
	if len(advisor.summaries) != 1 {
		t.Fatalf("Expected 1 summary, got %d", len(advisor.summaries))
	}
	want := "Road condition: Stairs detected, look for accessible route\nObstacles:\n- stairs (Distance: 1.0 meters) (Direction: ahead of you) (Danger level: high)"
	if !strings.HasPrefix(advisor.summaries[0], want) {
		t.Errorf("Unexpected advice summary: %q", advisor.summaries[0])
	}
	if advisor.context != "crossing the park" {
		t.Errorf("Unexpected user context: %q", advisor.context)
	}
}
