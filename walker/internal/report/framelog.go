package report

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/Krimson/ai-walker/walker/internal/analysis"
)

// FrameEntry - одна строка журнала кадров
type FrameEntry struct {
	SessionID string                 `json:"session_id"`
	LoggedAt  time.Time              `json:"logged_at"`
	Frame     analysis.FrameAnalysis `json:"frame"`
}

// WriteStats содержит статистику записи
type WriteStats struct {
	TotalLines    int64     `json:"total_lines"`
	TotalBytes    int64     `json:"total_bytes"`
	LastWriteTime time.Time `json:"last_write_time"`
	ErrorsCount   int64     `json:"errors_count"`
}

// FrameLogConfig конфигурация журнала кадров
type FrameLogConfig struct {
	FilePath   string      `json:"file_path"`
	AutoFlush  bool        `json:"auto_flush"`
	BufferSize int         `json:"buffer_size"`
	FilePerm   os.FileMode `json:"file_perm"`
}

// FrameLog дописывает анализы кадров в JSONL файл
type FrameLog struct {
	mu        sync.Mutex
	writer    *bufio.Writer
	file      *os.File
	autoFlush bool

	statsMu sync.RWMutex
	stats   WriteStats

	now func() time.Time
}

// NewFrameLog открывает (или создаёт) файл журнала на дозапись
func NewFrameLog(cfg FrameLogConfig) (*FrameLog, error) {
	if err := os.MkdirAll(filepath.Dir(cfg.FilePath), 0755); err != nil {
		return nil, fmt.Errorf("failed to create directory: %w", err)
	}

	perm := cfg.FilePerm
	if perm == 0 {
		perm = 0644
	}

	file, err := os.OpenFile(cfg.FilePath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, perm)
	if err != nil {
		return nil, fmt.Errorf("failed to open file: %w", err)
	}

	var writer *bufio.Writer
	if cfg.BufferSize > 0 {
		writer = bufio.NewWriterSize(file, cfg.BufferSize)
	} else {
		writer = bufio.NewWriter(file)
	}

	return &FrameLog{
		writer:    writer,
		file:      file,
		autoFlush: cfg.AutoFlush,
		now:       time.Now,
	}, nil
}

// WriteFrame записывает одну строку журнала
func (l *FrameLog) WriteFrame(sessionID string, fa analysis.FrameAnalysis) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.writer == nil {
		return io.ErrClosedPipe
	}

	data, err := marshal(FrameEntry{
		SessionID: sessionID,
		LoggedAt:  l.now().UTC(),
		Frame:     fa,
	}, "")
	if err != nil {
		l.recordError()
		return fmt.Errorf("JSON marshaling failed: %w", err)
	}

	// Записываем в файл с новой строкой
	if _, err := l.writer.Write(append(data, '\n')); err != nil {
		l.recordError()
		return fmt.Errorf("write failed: %w", err)
	}

	if l.autoFlush {
		if err := l.writer.Flush(); err != nil {
			l.recordError()
			return fmt.Errorf("flush failed: %w", err)
		}
	}

	l.recordWrite(len(data) + 1)
	return nil
}

// Publish реализует batch.Publisher: ошибки записи только логируются
func (l *FrameLog) Publish(sessionID string, fa analysis.FrameAnalysis) {
	if err := l.WriteFrame(sessionID, fa); err != nil {
		log.Printf("[ERROR] Failed to write frame log: session=%s frame=%d: %v",
			sessionID, fa.FrameIndex, err)
	}
}

// Flush принудительно сбрасывает буфер в файл
func (l *FrameLog) Flush() error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.writer == nil {
		return io.ErrClosedPipe
	}

	return l.writer.Flush()
}

// Close закрывает файл и освобождает ресурсы
func (l *FrameLog) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.writer != nil {
		if err := l.writer.Flush(); err != nil {
			return fmt.Errorf("final flush failed: %w", err)
		}
	}

	if l.file != nil {
		if err := l.file.Close(); err != nil {
			return fmt.Errorf("file close failed: %w", err)
		}
	}

	l.writer = nil
	l.file = nil

	return nil
}

// GetStats возвращает текущую статистику записи
func (l *FrameLog) GetStats() WriteStats {
	l.statsMu.RLock()
	defer l.statsMu.RUnlock()
	return l.stats
}

func (l *FrameLog) recordWrite(bytes int) {
	l.statsMu.Lock()
	defer l.statsMu.Unlock()

	l.stats.TotalLines++
	l.stats.TotalBytes += int64(bytes)
	l.stats.LastWriteTime = l.now()
}

func (l *FrameLog) recordError() {
	l.statsMu.Lock()
	defer l.statsMu.Unlock()
	l.stats.ErrorsCount++
}

// ReadFrameLog читает журнал кадров целиком
func ReadFrameLog(path string) ([]FrameEntry, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open frame log: %w", err)
	}
	defer file.Close()

	scanner := bufio.NewScanner(file)
	scanner.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)

	var entries []FrameEntry
	for scanner.Scan() {
		if len(scanner.Bytes()) == 0 {
			continue
		}
		var entry FrameEntry
		if err := json.Unmarshal(scanner.Bytes(), &entry); err != nil {
			return nil, fmt.Errorf("failed to parse frame log line %d: %w", len(entries)+1, err)
		}
		entries = append(entries, entry)
	}

	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("failed to read frame log: %w", err)
	}

	return entries, nil
}
