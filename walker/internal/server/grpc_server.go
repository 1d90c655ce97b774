package server

import (
	"io"
	"log"
	"sync"

	"github.com/Krimson/ai-walker/walker/internal/batch"
	"github.com/Krimson/ai-walker/walker/internal/config"
	"github.com/Krimson/ai-walker/walker/internal/obstacle"
	"github.com/Krimson/ai-walker/walker/internal/spatial"
	detectionv1 "github.com/Krimson/ai-walker/walker/proto/detection"
)

// EventSink принимает детекции из стрима (реализуется batch.Batcher)
type EventSink interface {
	Add(ev batch.DetectionEvent) error
}

// DetectionServer реализует detectionv1.DetectionServiceServer
type DetectionServer struct {
	cfg  *config.Config
	sink EventSink
}

// NewDetectionServer создает новый экземпляр DetectionServer
func NewDetectionServer(cfg *config.Config, sink EventSink) *DetectionServer {
	return &DetectionServer{
		cfg:  cfg,
		sink: sink,
	}
}

// PushDetections обрабатывает стрим детекций от клиента
func (s *DetectionServer) PushDetections(stream detectionv1.DetectionService_PushDetectionsServer) error {
	log.Printf("[INFO] New PushDetections stream started")

	// Счетчики для Ack
	var (
		mu              sync.Mutex
		totalReceived   uint64
		sessionCounters = make(map[string]uint64)
	)

	// Горутина для отправки Ack
	ackChan := make(chan detectionv1.Detection, 100)
	ackDone := make(chan struct{})
	defer func() {
		close(ackChan)
		<-ackDone
	}()

	go func() {
		defer close(ackDone)
		s.ackSender(stream, ackChan, &mu, &totalReceived, sessionCounters)
	}()

	// Основной цикл чтения детекций
	for {
		select {
		case <-stream.Context().Done():
			log.Printf("[INFO] PushDetections stream context cancelled")
			return stream.Context().Err()

		default:
			msg, err := stream.Recv()
			if err != nil {
				if err == io.EOF {
					log.Printf("[INFO] PushDetections stream finished normally")
					return nil
				}
				log.Printf("[ERROR] Failed to receive detection: %v", err)
				return err
			}

			det, err := detectionv1.DetectionFromStruct(msg)
			if err != nil {
				log.Printf("[WARN] Failed to decode detection: %v", err)
				continue
			}

			if err := s.processDetection(det); err != nil {
				log.Printf("[WARN] Failed to process detection: %v", err)
				// Не возвращаем ошибку, продолжаем обработку
				continue
			}

			select {
			case ackChan <- det:
			default:
				log.Printf("[WARN] Ack channel full, skipping ack for detection")
			}
		}
	}
}

// processDetection переводит сообщение в событие батчера
func (s *DetectionServer) processDetection(d detectionv1.Detection) error {
	return s.sink.Add(ToEvent(d))
}

// ToEvent переводит сообщение стрима в batch.DetectionEvent
func ToEvent(d detectionv1.Detection) batch.DetectionEvent {
	return batch.DetectionEvent{
		SessionID:   d.SessionID,
		FrameIndex:  d.FrameIndex,
		TsMS:        d.TsMS,
		ImageWidth:  d.ImageWidth,
		ImageHeight: d.ImageHeight,
		Detection: obstacle.Detection{
			Label:      d.Label,
			Confidence: d.Score,
			Box:        spatial.Box{XMin: d.XMin, YMin: d.YMin, XMax: d.XMax, YMax: d.YMax},
		},
	}
}

// ackSender отправляет Ack сообщения клиенту
func (s *DetectionServer) ackSender(
	stream detectionv1.DetectionService_PushDetectionsServer,
	ackChan <-chan detectionv1.Detection,
	mu *sync.Mutex,
	totalReceived *uint64,
	sessionCounters map[string]uint64,
) {
	every := uint64(s.cfg.AckEveryN)
	if every == 0 {
		every = 1
	}

	for det := range ackChan {
		mu.Lock()
		*totalReceived++
		sessionCounters[det.SessionID]++

		// Отправляем Ack каждые ACK_EVERY_N детекций
		if *totalReceived%every == 0 {
			ack := detectionv1.Ack{
				SessionID:   det.SessionID,
				ReceivedCnt: sessionCounters[det.SessionID],
			}

			if err := stream.Send(ack.ToStruct()); err != nil {
				log.Printf("[ERROR] Failed to send ack: %v", err)
				mu.Unlock()
				// Дочитываем канал, чтобы не блокировать стрим
				for range ackChan {
				}
				return
			}

			log.Printf("[DEBUG] Sent ack: session=%s count=%d",
				ack.SessionID, ack.ReceivedCnt)
		}
		mu.Unlock()
	}
}
