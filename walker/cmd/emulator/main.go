// cmd/emulator/main.go
package main

import (
	"context"
	"flag"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/uuid"

	"github.com/Krimson/ai-walker/walker/internal/batch"
	"github.com/Krimson/ai-walker/walker/internal/grpcclient"
	"github.com/Krimson/ai-walker/walker/internal/ingest"
	"github.com/Krimson/ai-walker/walker/internal/scene"
)

func main() {
	var (
		inputFile  = flag.String("input", "detections.csv", "Файл с записанными детекциями (CSV или JSONL)")
		serverAddr = flag.String("server", "localhost:50051", "Адрес gRPC сервера")
		sessionID  = flag.String("session", "", "ID сессии (по умолчанию новый UUID)")
		loop       = flag.Bool("loop", false, "Повторять запись по кругу")
		synthetic  = flag.String("synthetic", "", "Вместо файла сгенерировать приближающийся объект с этой меткой")
		frames     = flag.Int("frames", 30, "Число кадров синтетической сцены")
		interval   = flag.Duration("interval", 100*time.Millisecond, "Интервал между кадрами синтетической сцены")
	)
	flag.Parse()

	if *sessionID == "" {
		*sessionID = uuid.New().String()
	}

	// Создание gRPC клиента
	grpcClient, err := grpcclient.NewGRPCClient(*serverAddr)
	if err != nil {
		log.Fatalf("Failed to create gRPC client: %v", err)
	}
	defer grpcClient.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Обработка сигналов для graceful shutdown
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigCh
		log.Println("Shutting down...")
		cancel()
	}()

	if *synthetic != "" {
		cfg := scene.DefaultConfig()
		cfg.SessionID = *sessionID
		cfg.Label = *synthetic
		cfg.Frames = *frames
		cfg.FrameIntervalMS = interval.Milliseconds()

		generator, err := scene.NewGenerator(cfg)
		if err != nil {
			log.Fatalf("Failed to create scene generator: %v", err)
		}

		log.Printf("Generating %d frames of approaching %q, session %s", cfg.Frames, cfg.Label, *sessionID)

		stream := make(chan batch.DetectionEvent, 100)
		go scene.Stream(ctx, generator, scene.NewTicker(*interval, *interval/10), stream)
		if err := grpcClient.PushDetections(ctx, stream); err != nil {
			log.Fatalf("Failed to push detections: %v", err)
		}

		log.Printf("Done, server acknowledged %d detections", grpcClient.Acked(*sessionID))
		return
	}

	// Чтение записи
	events, err := ingest.ReadFile(*inputFile)
	if err != nil {
		log.Fatalf("Failed to read detections: %v", err)
	}
	for i := range events {
		events[i].SessionID = *sessionID
	}

	log.Printf("Loaded %d detection records, session %s", len(events), *sessionID)

	for {
		if err := replay(ctx, grpcClient, events); err != nil {
			log.Fatalf("Failed to push detections: %v", err)
		}
		if !*loop || ctx.Err() != nil {
			break
		}
		events = shift(events)
	}

	log.Printf("Done, server acknowledged %d detections", grpcClient.Acked(*sessionID))
}

// replay отправляет запись в темпе её временных меток
func replay(ctx context.Context, client *grpcclient.GRPCClient, events []batch.DetectionEvent) error {
	stream := make(chan batch.DetectionEvent, 100)
	go ingest.StreamEvents(ctx, events, time.Now(), stream)

	return client.PushDetections(ctx, stream)
}

// shift сдвигает номера кадров и время следующего круга за конец текущего
func shift(events []batch.DetectionEvent) []batch.DetectionEvent {
	if len(events) == 0 {
		return events
	}
	var lastFrame, lastTs int64
	for _, ev := range events {
		if ev.FrameIndex > lastFrame {
			lastFrame = ev.FrameIndex
		}
		if ev.TsMS > lastTs {
			lastTs = ev.TsMS
		}
	}

	next := make([]batch.DetectionEvent, len(events))
	for i, ev := range events {
		ev.FrameIndex += lastFrame + 1
		ev.TsMS += lastTs + ingest.DefaultFrameIntervalMS
		next[i] = ev
	}
	return next
}
