package ingest

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/Krimson/ai-walker/walker/internal/batch"
)

const sampleCSV = `frame_index,ts_ms,image_width,image_height,label,score,xmin,ymin,xmax,ymax
0,0,640,480,car,0.9,10,100,110,300
0,0,640,480,person,0.8,300,100,340,300
1,100,640,480,,0,0,0,0,0
2,200,640,480,stairs,0.7,280,200,360,460
`

func TestReadCSV(t *testing.T) {
	events, err := ReadCSV(strings.NewReader(sampleCSV))
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}

	if len(events) != 4 {
		t.Fatalf("Expected 4 events, got %d", len(events))
	}

	first := events[0]
	if first.FrameIndex != 0 || first.Detection.Label != "car" || first.Detection.Confidence != 0.9 {
		t.Errorf("Unexpected first event: %+v", first)
	}
	if first.Detection.Box.XMax != 110 || first.ImageWidth != 640 {
		t.Errorf("Unexpected box or size: %+v", first)
	}
	if events[3].TsMS != 200 {
		t.Errorf("Expected ts 200, got %d", events[3].TsMS)
	}
}

func TestReadCSV_ColumnOrderAndDefaults(t *testing.T) {
	data := `label,score,xmin,ymin,xmax,ymax,image_width,image_height,frame_index,session_id
bench,0.6,0,0,10,10,640,480,3,walk-7
`
	events, err := ReadCSV(strings.NewReader(data))
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}

	ev := events[0]
	if ev.SessionID != "walk-7" || ev.FrameIndex != 3 || ev.Detection.Label != "bench" {
		t.Errorf("Unexpected event: %+v", ev)
	}
	if ev.TsMS != 3*DefaultFrameIntervalMS {
		t.Errorf("Expected derived ts %d, got %d", 3*DefaultFrameIntervalMS, ev.TsMS)
	}
}

func TestReadCSV_Errors(t *testing.T) {
	tests := []struct {
		name string
		data string
	}{
		{"header only", "frame_index,image_width,image_height,label,score,xmin,ymin,xmax,ymax\n"},
		{"missing column", "frame_index,label\n1,car\n"},
		{"bad number", "frame_index,image_width,image_height,label,score,xmin,ymin,xmax,ymax\n1,640,480,car,high,0,0,1,1\n"},
		{"bad frame", "frame_index,image_width,image_height,label,score,xmin,ymin,xmax,ymax\nx,640,480,car,0.5,0,0,1,1\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := ReadCSV(strings.NewReader(tt.data)); err == nil {
				t.Error("Expected error")
			}
		})
	}

	_, err := ReadCSV(strings.NewReader("frame_index,image_width,image_height,label,score,xmin,ymin,xmax,ymax\n"))
	if !errors.Is(err, ErrNoRecords) {
		t.Errorf("Expected ErrNoRecords, got %v", err)
	}
}

func TestReadJSONL(t *testing.T) {
	data := `{"session_id":"s","frame_index":1,"ts_ms":40,"image_width":640,"image_height":480,"label":"tree","score":0.5,"xmin":1,"ymin":2,"xmax":3,"ymax":4}

{"frame_index":2,"image_width":640,"image_height":480,"label":"car","score":0.9,"xmin":1,"ymin":2,"xmax":3,"ymax":4}
`
	events, err := ReadJSONL(strings.NewReader(data))
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}

	if len(events) != 2 {
		t.Fatalf("Expected 2 events, got %d", len(events))
	}
	if events[0].SessionID != "s" || events[0].TsMS != 40 || events[0].Detection.Box.YMax != 4 {
		t.Errorf("Unexpected first event: %+v", events[0])
	}
	if events[1].TsMS != 2*DefaultFrameIntervalMS {
		t.Errorf("Expected derived ts, got %d", events[1].TsMS)
	}

	if _, err := ReadJSONL(strings.NewReader("{broken\n")); err == nil {
		t.Error("Expected error for broken line")
	}
}

func TestReadFile(t *testing.T) {
	dir := t.TempDir()

	csvPath := filepath.Join(dir, "walk.csv")
	if err := os.WriteFile(csvPath, []byte(sampleCSV), 0644); err != nil {
		t.Fatalf("Failed to write file: %v", err)
	}
	events, err := ReadFile(csvPath)
	if err != nil || len(events) != 4 {
		t.Fatalf("Expected 4 events from CSV, got %d (%v)", len(events), err)
	}

	jsonlPath := filepath.Join(dir, "walk.jsonl")
	line := `{"frame_index":0,"image_width":640,"image_height":480,"label":"car","score":0.9,"xmin":1,"ymin":2,"xmax":3,"ymax":4}` + "\n"
	if err := os.WriteFile(jsonlPath, []byte(line), 0644); err != nil {
		t.Fatalf("Failed to write file: %v", err)
	}
	events, err = ReadFile(jsonlPath)
	if err != nil || len(events) != 1 {
		t.Fatalf("Expected 1 event from JSONL, got %d (%v)", len(events), err)
	}

	if _, err := ReadFile(filepath.Join(dir, "missing.csv")); err == nil {
		t.Error("Expected error for missing file")
	}
}

func TestFrames(t *testing.T) {
	events, err := ReadCSV(strings.NewReader(sampleCSV))
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}

	// Кадры приходят не по порядку
	events = append([]batch.DetectionEvent{events[3]}, events[:3]...)

	frames := Frames(events)
	if len(frames) != 3 {
		t.Fatalf("Expected 3 frames, got %d", len(frames))
	}
	if frames[0].FrameIndex != 0 || len(frames[0].Detections) != 2 {
		t.Errorf("Unexpected frame 0: %+v", frames[0])
	}
	if frames[1].FrameIndex != 1 || len(frames[1].Detections) != 0 {
		t.Errorf("Expected empty frame 1, got %+v", frames[1])
	}
	if frames[2].FrameIndex != 2 || frames[2].Timestamp != 0.2 {
		t.Errorf("Unexpected frame 2: %+v", frames[2])
	}

	if d := Duration(events); d != 0.2 {
		t.Errorf("Expected duration 0.2, got %f", d)
	}
}

func TestStreamEvents(t *testing.T) {
	events := []batch.DetectionEvent{
		{SessionID: "s", FrameIndex: 0, TsMS: 1000},
		{SessionID: "s", FrameIndex: 1, TsMS: 1050},
		{SessionID: "s", FrameIndex: 2, TsMS: 1100},
	}

	out := make(chan batch.DetectionEvent, len(events))
	start := time.Now()
	StreamEvents(context.Background(), events, start, out)

	if elapsed := time.Since(start); elapsed < 100*time.Millisecond {
		t.Errorf("Expected replay to take at least 100ms, took %v", elapsed)
	}

	var got []int64
	for ev := range out {
		got = append(got, ev.FrameIndex)
	}
	if len(got) != 3 || got[2] != 2 {
		t.Errorf("Unexpected replay order: %v", got)
	}
}

func TestStreamEvents_Cancel(t *testing.T) {
	events := []batch.DetectionEvent{
		{FrameIndex: 0, TsMS: 0},
		{FrameIndex: 1, TsMS: 60000},
	}

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	out := make(chan batch.DetectionEvent, len(events))
	StreamEvents(ctx, events, time.Now(), out)

	count := 0
	for range out {
		count++
	}
	if count != 1 {
		t.Errorf("Expected 1 event before cancel, got %d", count)
	}
}
