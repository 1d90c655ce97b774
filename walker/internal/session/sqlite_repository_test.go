package session

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/Krimson/ai-walker/walker/internal/analysis"
	"github.com/Krimson/ai-walker/walker/internal/video"
)

func newSQLiteRepository(t *testing.T) *SQLiteRepository {
	t.Helper()
	repo, err := NewSQLiteRepository(context.Background(), filepath.Join(t.TempDir(), "walker.db"))
	if err != nil {
		t.Fatalf("Failed to open sqlite repository: %v", err)
	}
	t.Cleanup(func() { repo.Close() })
	return repo
}

func TestSQLiteRepository_RoundTrip(t *testing.T) {
	repo := newSQLiteRepository(t)
	ctx := context.Background()

	if err := repo.Ping(ctx); err != nil {
		t.Fatalf("Ping failed: %v", err)
	}

	started := time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)
	stopped := started.Add(90 * time.Second)
	frames := []analysis.FrameAnalysis{stairsFrame(0, 200), stairsFrame(1, 100), stairsFrame(2, 60)}
	report := video.Analyze(frames, 90)

	data := &SessionData{
		Session: &Session{
			ID:              "walk-1",
			Status:          SessionStatusSaved,
			StartedAt:       started,
			StoppedAt:       &stopped,
			TotalDurationMs: 90000,
			TotalFrames:     3,
			VideoDuration:   90,
			Metadata:        Metadata{UserID: "user-1", Notes: "morning walk"},
		},
		Frames: frames,
		Report: &report,
	}

	if err := repo.SaveSessionData(ctx, data); err != nil {
		t.Fatalf("SaveSessionData failed: %v", err)
	}

	// Повторное сохранение обновляет записи, а не дублирует их
	data.Session.Metadata.Notes = "evening walk"
	if err := repo.SaveSessionData(ctx, data); err != nil {
		t.Fatalf("Second SaveSessionData failed: %v", err)
	}

	session, err := repo.GetSession(ctx, "walk-1")
	if err != nil {
		t.Fatalf("GetSession failed: %v", err)
	}
	if session.Status != SessionStatusSaved || session.TotalFrames != 3 || session.VideoDuration != 90 {
		t.Errorf("Unexpected session: %+v", session)
	}
	if !session.StartedAt.Equal(started) || session.StoppedAt == nil || !session.StoppedAt.Equal(stopped) {
		t.Errorf("Unexpected timestamps: %v %v", session.StartedAt, session.StoppedAt)
	}
	if session.Metadata.Notes != "evening walk" {
		t.Errorf("Expected updated notes, got %q", session.Metadata.Notes)
	}

	gotFrames, err := repo.GetFrames(ctx, "walk-1")
	if err != nil {
		t.Fatalf("GetFrames failed: %v", err)
	}
	if len(gotFrames) != 3 || gotFrames[2].FrameIndex != 2 {
		t.Errorf("Expected 3 ordered frames, got %d", len(gotFrames))
	}
	if gotFrames[0].Guidance.Action != frames[0].Guidance.Action {
		t.Errorf("Expected guidance to survive storage, got %+v", gotFrames[0].Guidance)
	}

	gotReport, err := repo.GetReport(ctx, "walk-1")
	if err != nil {
		t.Fatalf("GetReport failed: %v", err)
	}
	if gotReport.VideoSummary.TotalFrames != 3 || gotReport.VideoSummary.VideoDuration != 90 {
		t.Errorf("Unexpected report summary: %+v", gotReport.VideoSummary)
	}
}

func TestSQLiteRepository_ListUpdateDelete(t *testing.T) {
	repo := newSQLiteRepository(t)
	ctx := context.Background()
	base := time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)

	for i, id := range []string{"walk-a", "walk-b", "walk-c"} {
		err := repo.CreateSession(ctx, &Session{
			ID:        id,
			Status:    SessionStatusActive,
			StartedAt: base.Add(time.Duration(i) * time.Hour),
		})
		if err != nil {
			t.Fatalf("CreateSession failed: %v", err)
		}
	}

	sessions, err := repo.ListSessions(ctx, 2, 0)
	if err != nil {
		t.Fatalf("ListSessions failed: %v", err)
	}
	if len(sessions) != 2 || sessions[0].ID != "walk-c" || sessions[1].ID != "walk-b" {
		t.Errorf("Expected newest first, got %+v", sessions)
	}

	sessions, err = repo.ListSessions(ctx, 10, 2)
	if err != nil || len(sessions) != 1 || sessions[0].ID != "walk-a" {
		t.Errorf("Unexpected second page: %+v (%v)", sessions, err)
	}

	saved := base.Add(5 * time.Hour)
	err = repo.UpdateSession(ctx, &Session{ID: "walk-a", Status: SessionStatusSaved, SavedAt: &saved, TotalFrames: 9})
	if err != nil {
		t.Fatalf("UpdateSession failed: %v", err)
	}
	session, err := repo.GetSession(ctx, "walk-a")
	if err != nil {
		t.Fatalf("GetSession failed: %v", err)
	}
	if session.Status != SessionStatusSaved || session.TotalFrames != 9 || session.SavedAt == nil {
		t.Errorf("Unexpected updated session: %+v", session)
	}

	if err := repo.UpdateSession(ctx, &Session{ID: "missing"}); !errors.Is(err, ErrSessionNotFound) {
		t.Errorf("Expected ErrSessionNotFound, got %v", err)
	}

	if err := repo.SaveFrames(ctx, "walk-a", []analysis.FrameAnalysis{stairsFrame(0, 200)}); err != nil {
		t.Fatalf("SaveFrames failed: %v", err)
	}

	if err := repo.DeleteSession(ctx, "walk-a"); err != nil {
		t.Fatalf("DeleteSession failed: %v", err)
	}
	if _, err := repo.GetSession(ctx, "walk-a"); !errors.Is(err, ErrSessionNotFound) {
		t.Errorf("Expected ErrSessionNotFound after delete, got %v", err)
	}
	frames, err := repo.GetFrames(ctx, "walk-a")
	if err != nil || len(frames) != 0 {
		t.Errorf("Expected no frames after delete, got %d (%v)", len(frames), err)
	}
	if _, err := repo.GetReport(ctx, "walk-a"); !errors.Is(err, ErrReportNotFound) {
		t.Errorf("Expected ErrReportNotFound, got %v", err)
	}
}
