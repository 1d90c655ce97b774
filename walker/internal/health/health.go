package health

import (
	"context"
	"log"
	"sort"
	"sync"
	"time"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/status"
)

// Probe проверяет одну зависимость сервиса (redis, база данных)
type Probe func(ctx context.Context) error

type HealthServer struct {
	grpc_health_v1.UnimplementedHealthServer
	mu       sync.RWMutex
	services map[string]grpc_health_v1.HealthCheckResponse_ServingStatus
	probes   map[string]Probe
}

func NewHealthServer() *HealthServer {
	return &HealthServer{
		services: make(map[string]grpc_health_v1.HealthCheckResponse_ServingStatus),
		probes:   make(map[string]Probe),
	}
}

// Check отвечает SERVING для пустого имени сервиса, только если все
// зарегистрированные сервисы и зависимости в порядке
func (h *HealthServer) Check(ctx context.Context, req *grpc_health_v1.HealthCheckRequest) (*grpc_health_v1.HealthCheckResponse, error) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	service := req.GetService()

	if service == "" {
		overall := grpc_health_v1.HealthCheckResponse_SERVING
		for _, st := range h.services {
			if st != grpc_health_v1.HealthCheckResponse_SERVING {
				overall = grpc_health_v1.HealthCheckResponse_NOT_SERVING
				break
			}
		}
		return &grpc_health_v1.HealthCheckResponse{
			Status: overall,
		}, nil
	}

	servingStatus, exists := h.services[service]
	if !exists {
		return nil, status.Error(codes.NotFound, "service not found")
	}

	return &grpc_health_v1.HealthCheckResponse{
		Status: servingStatus,
	}, nil
}

func (h *HealthServer) Watch(req *grpc_health_v1.HealthCheckRequest, stream grpc_health_v1.Health_WatchServer) error {
	response, err := h.Check(stream.Context(), req)
	if err != nil {
		return err
	}

	if err := stream.Send(response); err != nil {
		return err
	}

	<-stream.Context().Done()
	return stream.Context().Err()
}

func (h *HealthServer) SetServingStatus(service string) {
	h.setStatus(service, grpc_health_v1.HealthCheckResponse_SERVING)
}

func (h *HealthServer) SetNotServingStatus(service string) {
	h.setStatus(service, grpc_health_v1.HealthCheckResponse_NOT_SERVING)
}

func (h *HealthServer) setStatus(service string, status grpc_health_v1.HealthCheckResponse_ServingStatus) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.services[service] = status
}

// AddProbe регистрирует проверку зависимости под именем сервиса.
// До первого прогона зависимость считается недоступной.
func (h *HealthServer) AddProbe(service string, probe Probe) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.probes[service] = probe
	if _, ok := h.services[service]; !ok {
		h.services[service] = grpc_health_v1.HealthCheckResponse_NOT_SERVING
	}
}

// RunProbes выполняет все проверки один раз и обновляет статусы
func (h *HealthServer) RunProbes(ctx context.Context) {
	h.mu.RLock()
	names := make([]string, 0, len(h.probes))
	for name := range h.probes {
		names = append(names, name)
	}
	h.mu.RUnlock()
	sort.Strings(names)

	for _, name := range names {
		h.mu.RLock()
		probe := h.probes[name]
		h.mu.RUnlock()

		if err := probe(ctx); err != nil {
			log.Printf("[WARN] Health probe failed: service=%s: %v", name, err)
			h.SetNotServingStatus(name)
			continue
		}
		h.SetServingStatus(name)
	}
}

// Monitor периодически прогоняет проверки до отмены контекста
func (h *HealthServer) Monitor(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		interval = 5 * time.Second
	}

	h.RunProbes(ctx)

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			h.RunProbes(ctx)
		case <-ctx.Done():
			return
		}
	}
}
