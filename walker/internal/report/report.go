// Package report сохраняет результаты анализа на диск.
package report

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/Krimson/ai-walker/walker/internal/video"
)

// Files - пути к сохранённым файлам отчёта
type Files struct {
	JSON    string `json:"json"`
	Summary string `json:"summary"`
}

// Save пишет отчёт в <dir>/<name>.json (JSON с отступами) и
// текстовую сводку в <dir>/<name>_summary.txt. Директория создаётся при необходимости.
func Save(dir, name string, r *video.Report) (Files, error) {
	if r == nil {
		return Files{}, fmt.Errorf("nil report")
	}

	name = strings.TrimSuffix(name, filepath.Ext(name))
	if name == "" {
		return Files{}, fmt.Errorf("empty report name")
	}

	if err := os.MkdirAll(dir, 0755); err != nil {
		return Files{}, fmt.Errorf("failed to create directory: %w", err)
	}

	files := Files{
		JSON:    filepath.Join(dir, name+".json"),
		Summary: filepath.Join(dir, name+"_summary.txt"),
	}

	data, err := marshal(r, "  ")
	if err != nil {
		return Files{}, fmt.Errorf("failed to marshal report: %w", err)
	}

	if err := os.WriteFile(files.JSON, data, 0644); err != nil {
		return Files{}, fmt.Errorf("failed to write report: %w", err)
	}

	if err := os.WriteFile(files.Summary, []byte(video.Text(*r)), 0644); err != nil {
		return Files{}, fmt.Errorf("failed to write summary: %w", err)
	}

	return files, nil
}

// marshal кодирует v в JSON, не экранируя <, > и & в текстах подсказок
func marshal(v any, indent string) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if indent != "" {
		enc.SetIndent("", indent)
	}
	if err := enc.Encode(v); err != nil {
		return nil, err
	}
	return bytes.TrimSuffix(buf.Bytes(), []byte("\n")), nil
}

// Load читает отчёт, сохранённый Save
func Load(path string) (*video.Report, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read report: %w", err)
	}

	var r video.Report
	if err := json.Unmarshal(data, &r); err != nil {
		return nil, fmt.Errorf("failed to unmarshal report: %w", err)
	}

	return &r, nil
}
