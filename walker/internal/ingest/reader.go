// Package ingest читает записанные детекции (CSV, JSONL) и
// воспроизводит их в реальном времени.
package ingest

import (
	"bufio"
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"github.com/Krimson/ai-walker/walker/internal/analysis"
	"github.com/Krimson/ai-walker/walker/internal/batch"
	"github.com/Krimson/ai-walker/walker/internal/obstacle"
	"github.com/Krimson/ai-walker/walker/internal/spatial"
)

// DefaultFrameIntervalMS - шаг времени между кадрами, если в файле нет ts_ms (10 кадров/с)
const DefaultFrameIntervalMS int64 = 100

// Колонки CSV и поля JSONL
const (
	ColSessionID   = "session_id"
	ColFrameIndex  = "frame_index"
	ColTsMS        = "ts_ms"
	ColImageWidth  = "image_width"
	ColImageHeight = "image_height"
	ColLabel       = "label"
	ColScore       = "score"
	ColXMin        = "xmin"
	ColYMin        = "ymin"
	ColXMax        = "xmax"
	ColYMax        = "ymax"
)

var requiredColumns = []string{
	ColFrameIndex, ColImageWidth, ColImageHeight,
	ColLabel, ColScore, ColXMin, ColYMin, ColXMax, ColYMax,
}

var ErrNoRecords = errors.New("no detection records")

// Record - одна строка JSONL файла
type Record struct {
	SessionID   string  `json:"session_id,omitempty"`
	FrameIndex  int64   `json:"frame_index"`
	TsMS        *int64  `json:"ts_ms,omitempty"`
	ImageWidth  float64 `json:"image_width"`
	ImageHeight float64 `json:"image_height"`
	Label       string  `json:"label"`
	Score       float64 `json:"score"`
	XMin        float64 `json:"xmin"`
	YMin        float64 `json:"ymin"`
	XMax        float64 `json:"xmax"`
	YMax        float64 `json:"ymax"`
}

func (r Record) event() batch.DetectionEvent {
	ts := r.FrameIndex * DefaultFrameIntervalMS
	if r.TsMS != nil {
		ts = *r.TsMS
	}
	return batch.DetectionEvent{
		SessionID:   r.SessionID,
		FrameIndex:  r.FrameIndex,
		TsMS:        ts,
		ImageWidth:  r.ImageWidth,
		ImageHeight: r.ImageHeight,
		Detection: obstacle.Detection{
			Label:      r.Label,
			Confidence: r.Score,
			Box:        spatial.Box{XMin: r.XMin, YMin: r.YMin, XMax: r.XMax, YMax: r.YMax},
		},
	}
}

// ReadFile читает детекции из файла; формат определяется по расширению
func ReadFile(filename string) ([]batch.DetectionEvent, error) {
	file, err := os.Open(filename)
	if err != nil {
		return nil, fmt.Errorf("failed to open file %s: %w", filename, err)
	}
	defer file.Close()

	switch strings.ToLower(filepath.Ext(filename)) {
	case ".jsonl", ".ndjson":
		return ReadJSONL(file)
	default:
		return ReadCSV(file)
	}
}

// ReadCSV читает детекции из CSV с заголовком. Порядок колонок произвольный,
// session_id и ts_ms необязательны. Строка с пустой меткой отмечает кадр без объектов.
func ReadCSV(r io.Reader) ([]batch.DetectionEvent, error) {
	reader := csv.NewReader(r)
	reader.TrimLeadingSpace = true

	records, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("failed to read CSV data: %w", err)
	}

	if len(records) < 2 {
		return nil, ErrNoRecords
	}

	columns := make(map[string]int, len(records[0]))
	for i, name := range records[0] {
		columns[strings.ToLower(strings.TrimSpace(name))] = i
	}
	for _, name := range requiredColumns {
		if _, ok := columns[name]; !ok {
			return nil, fmt.Errorf("missing CSV column: %s", name)
		}
	}

	events := make([]batch.DetectionEvent, 0, len(records)-1)
	for i, row := range records[1:] { // Skip header
		line := i + 2

		rec, err := parseRow(row, columns)
		if err != nil {
			return nil, fmt.Errorf("invalid record at line %d: %w", line, err)
		}
		events = append(events, rec.event())
	}

	return events, nil
}

func parseRow(row []string, columns map[string]int) (Record, error) {
	field := func(name string) string {
		idx, ok := columns[name]
		if !ok || idx >= len(row) {
			return ""
		}
		return strings.TrimSpace(row[idx])
	}

	number := func(name string) (float64, error) {
		value := field(name)
		if value == "" {
			return 0, nil
		}
		f, err := strconv.ParseFloat(value, 64)
		if err != nil {
			return 0, fmt.Errorf("invalid %s: %w", name, err)
		}
		return f, nil
	}

	var rec Record
	var err error

	frameIndex, err := strconv.ParseInt(field(ColFrameIndex), 10, 64)
	if err != nil {
		return rec, fmt.Errorf("invalid %s: %w", ColFrameIndex, err)
	}
	rec.FrameIndex = frameIndex
	rec.SessionID = field(ColSessionID)
	rec.Label = field(ColLabel)

	if ts := field(ColTsMS); ts != "" {
		v, err := strconv.ParseInt(ts, 10, 64)
		if err != nil {
			return rec, fmt.Errorf("invalid %s: %w", ColTsMS, err)
		}
		rec.TsMS = &v
	}

	targets := []struct {
		name string
		dst  *float64
	}{
		{ColImageWidth, &rec.ImageWidth},
		{ColImageHeight, &rec.ImageHeight},
		{ColScore, &rec.Score},
		{ColXMin, &rec.XMin},
		{ColYMin, &rec.YMin},
		{ColXMax, &rec.XMax},
		{ColYMax, &rec.YMax},
	}
	for _, t := range targets {
		if *t.dst, err = number(t.name); err != nil {
			return rec, err
		}
	}

	return rec, nil
}

// ReadJSONL читает детекции по одной JSON записи на строку; пустые строки пропускаются
func ReadJSONL(r io.Reader) ([]batch.DetectionEvent, error) {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	var events []batch.DetectionEvent
	line := 0
	for scanner.Scan() {
		line++
		text := strings.TrimSpace(scanner.Text())
		if text == "" {
			continue
		}

		var rec Record
		if err := json.Unmarshal([]byte(text), &rec); err != nil {
			return nil, fmt.Errorf("invalid record at line %d: %w", line, err)
		}
		events = append(events, rec.event())
	}

	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("failed to read JSONL data: %w", err)
	}

	if len(events) == 0 {
		return nil, ErrNoRecords
	}

	return events, nil
}

// Frames собирает детекции в кадры по возрастанию номера кадра.
// Размер изображения берётся из первой детекции кадра, время переводится в секунды.
func Frames(events []batch.DetectionEvent) []analysis.FrameInput {
	index := make(map[int64]int)
	var frames []analysis.FrameInput

	for _, ev := range events {
		i, ok := index[ev.FrameIndex]
		if !ok {
			i = len(frames)
			index[ev.FrameIndex] = i
			frames = append(frames, analysis.FrameInput{
				FrameIndex: int(ev.FrameIndex),
				Timestamp:  float64(ev.TsMS) / 1000,
				Width:      ev.ImageWidth,
				Height:     ev.ImageHeight,
				Detections: []obstacle.Detection{},
			})
		}
		if ev.Detection.Label != "" {
			frames[i].Detections = append(frames[i].Detections, ev.Detection)
		}
	}

	sort.SliceStable(frames, func(a, b int) bool {
		return frames[a].FrameIndex < frames[b].FrameIndex
	})

	return frames
}

// Duration возвращает длительность записи в секундах по временным меткам
func Duration(events []batch.DetectionEvent) float64 {
	if len(events) == 0 {
		return 0
	}
	minTs, maxTs := events[0].TsMS, events[0].TsMS
	for _, ev := range events[1:] {
		if ev.TsMS < minTs {
			minTs = ev.TsMS
		}
		if ev.TsMS > maxTs {
			maxTs = ev.TsMS
		}
	}
	return float64(maxTs-minTs) / 1000
}
