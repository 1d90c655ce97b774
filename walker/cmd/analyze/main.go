// cmd/analyze/main.go
package main

import (
	"flag"
	"fmt"
	"log"
	"path/filepath"

	"github.com/Krimson/ai-walker/walker/internal/analysis"
	"github.com/Krimson/ai-walker/walker/internal/config"
	"github.com/Krimson/ai-walker/walker/internal/ingest"
	"github.com/Krimson/ai-walker/walker/internal/report"
	"github.com/Krimson/ai-walker/walker/internal/video"
)

func main() {
	cfg := config.Load()

	var (
		inputFile     = flag.String("input", "detections.csv", "Файл с детекциями (CSV или JSONL)")
		outputDir     = flag.String("out", cfg.ReportDir, "Директория для отчёта")
		name          = flag.String("name", "", "Имя отчёта (по умолчанию имя входного файла)")
		duration      = flag.Float64("duration", 0, "Длительность видео, сек (0 - по временным меткам)")
		minConfidence = flag.Float64("min-confidence", cfg.MinConfidence, "Минимальная уверенность детекции")
		printSummary  = flag.Bool("print", true, "Печатать текстовую сводку")
	)
	flag.Parse()

	events, err := ingest.ReadFile(*inputFile)
	if err != nil {
		log.Fatalf("❌ Failed to read detections: %v", err)
	}

	frames := ingest.Frames(events)
	log.Printf("✅ Loaded %d detections in %d frames from %s", len(events), len(frames), *inputFile)

	videoDuration := *duration
	if videoDuration <= 0 {
		videoDuration = ingest.Duration(events)
	}

	analyzer := analysis.NewAnalyzer(*minConfidence)
	result := video.AnalyzeSequence(analyzer, frames, videoDuration)
	if result.Error != "" {
		log.Fatalf("❌ Analysis failed: %s", result.Error)
	}

	reportName := *name
	if reportName == "" {
		reportName = filepath.Base(*inputFile)
	}

	files, err := report.Save(*outputDir, reportName, &result)
	if err != nil {
		log.Fatalf("❌ Failed to save report: %v", err)
	}

	log.Printf("📊 Frames: %d, duration: %.1fs, average risk: %s",
		result.VideoSummary.TotalFrames, result.VideoSummary.VideoDuration, result.VideoSummary.AverageRiskLevel)
	log.Printf("💾 Report saved to %s", files.JSON)
	log.Printf("💾 Summary saved to %s", files.Summary)

	if *printSummary {
		fmt.Println(video.Text(result))
	}
}
