// Package grpcclient отправляет детекции в walker.v1.DetectionService.
package grpcclient

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"sync"

	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"

	"github.com/Krimson/ai-walker/walker/internal/batch"
	detectionv1 "github.com/Krimson/ai-walker/walker/proto/detection"
)

type GRPCClient struct {
	client detectionv1.DetectionServiceClient
	conn   *grpc.ClientConn

	mu   sync.Mutex
	acks map[string]uint64
}

// NewGRPCClient подключается к серверу без TLS. Дополнительные опции
// нужны, например, для подключения через bufconn в тестах.
func NewGRPCClient(serverAddr string, opts ...grpc.DialOption) (*GRPCClient, error) {
	opts = append([]grpc.DialOption{grpc.WithTransportCredentials(insecure.NewCredentials())}, opts...)

	conn, err := grpc.NewClient(serverAddr, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to gRPC server: %w", err)
	}

	return &GRPCClient{
		client: detectionv1.NewDetectionServiceClient(conn),
		conn:   conn,
		acks:   make(map[string]uint64),
	}, nil
}

// PushDetections отправляет события из канала, пока он не закроется, и
// дожидается последних Ack от сервера
func (g *GRPCClient) PushDetections(ctx context.Context, events <-chan batch.DetectionEvent) error {
	stream, err := g.client.PushDetections(ctx)
	if err != nil {
		return fmt.Errorf("failed to create stream: %w", err)
	}

	acksDone := make(chan struct{})
	go func() {
		defer close(acksDone)
		g.receiveAcks(stream)
	}()

	for ev := range events {
		if err := stream.Send(FromEvent(ev).ToStruct()); err != nil {
			return fmt.Errorf("failed to send detection: %w", err)
		}
	}

	if err := stream.CloseSend(); err != nil {
		return fmt.Errorf("failed to close stream: %w", err)
	}

	<-acksDone
	return nil
}

func (g *GRPCClient) receiveAcks(stream detectionv1.DetectionService_PushDetectionsClient) {
	for {
		msg, err := stream.Recv()
		if err != nil {
			if !errors.Is(err, io.EOF) {
				log.Printf("Failed to receive ack: %v", err)
			}
			return
		}

		ack := detectionv1.AckFromStruct(msg)
		g.mu.Lock()
		g.acks[ack.SessionID] = ack.ReceivedCnt
		g.mu.Unlock()

		log.Printf("Received ack for session %s: received_cnt=%d",
			ack.SessionID, ack.ReceivedCnt)
	}
}

// Acked возвращает последний подтверждённый счётчик детекций сессии
func (g *GRPCClient) Acked(sessionID string) uint64 {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.acks[sessionID]
}

func (g *GRPCClient) Close() error {
	return g.conn.Close()
}

// FromEvent переводит событие в сообщение стрима
func FromEvent(ev batch.DetectionEvent) detectionv1.Detection {
	return detectionv1.Detection{
		SessionID:   ev.SessionID,
		FrameIndex:  ev.FrameIndex,
		TsMS:        ev.TsMS,
		ImageWidth:  ev.ImageWidth,
		ImageHeight: ev.ImageHeight,
		Label:       ev.Detection.Label,
		Score:       ev.Detection.Confidence,
		XMin:        ev.Detection.Box.XMin,
		YMin:        ev.Detection.Box.YMin,
		XMax:        ev.Detection.Box.XMax,
		YMax:        ev.Detection.Box.YMax,
	}
}
