package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/gorilla/mux"
	"github.com/redis/go-redis/v9"
	httpSwagger "github.com/swaggo/http-swagger"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/reflection"

	"github.com/Krimson/ai-walker/walker/internal/advice"
	"github.com/Krimson/ai-walker/walker/internal/analysis"
	"github.com/Krimson/ai-walker/walker/internal/batch"
	"github.com/Krimson/ai-walker/walker/internal/config"
	"github.com/Krimson/ai-walker/walker/internal/health"
	"github.com/Krimson/ai-walker/walker/internal/report"
	"github.com/Krimson/ai-walker/walker/internal/server"
	"github.com/Krimson/ai-walker/walker/internal/session"
	"github.com/Krimson/ai-walker/walker/internal/websocket"
	detectionv1 "github.com/Krimson/ai-walker/walker/proto/detection"

	_ "github.com/Krimson/ai-walker/walker/docs" // Swagger docs
)

// @title AI Walker API
// @version 1.0
// @description Сервис подсказок для незрячих пешеходов: принимает детекции объектов,
// @description оценивает препятствия и выдаёт рекомендации по движению.
// @description
// @description Живые детекции приходят по gRPC (walker.v1.DetectionService), подсказки
// @description рассылаются по WebSocket (/ws), сессии и отчёты доступны через REST.

// @contact.name API Support

// @license.name MIT
// @license.url https://opensource.org/licenses/MIT

// @host localhost:8080
// @BasePath /
// @schemes http

const (
	redisProbe    = "redis"
	databaseProbe = "database"
)

func main() {
	log.Printf("[INFO] Starting ai-walker server...")

	cfg := config.Load()
	log.Printf("[INFO] Configuration loaded: grpc_port=%s http_port=%s storage=%s batch_max_detections=%d",
		cfg.GRPCPort, cfg.HTTPPort, cfg.StorageDriver, cfg.BatchMaxDetections)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Redis
	redisClient := redis.NewClient(&redis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	})
	defer redisClient.Close()

	if err := redisClient.Ping(ctx).Err(); err != nil {
		log.Printf("⚠️  Redis unavailable at %s: %v", cfg.RedisAddr, err)
	} else {
		log.Printf("✅ Connected to Redis at %s", cfg.RedisAddr)
	}
	cache := session.NewRedisStore(redisClient, cfg.MaxFramesPerSession)

	// База данных
	repository, err := openRepository(ctx, cfg)
	if err != nil {
		log.Fatalf("[FATAL] Failed to open %s storage: %v", cfg.StorageDriver, err)
	}
	defer repository.Close()
	log.Printf("✅ Connected to %s storage", cfg.StorageDriver)

	analyzer := analysis.NewAnalyzer(cfg.MinConfidence)

	manager := session.NewManager(cache, repository, session.Options{
		Analyzer:       analyzer,
		Advisor:        newAdvisor(ctx, cfg),
		DataTTLSeconds: cfg.SessionDataTTLSeconds,
	})

	hub := websocket.NewHub(cfg.AllowedOrigins)
	go hub.Run(ctx)

	publishers := batch.MultiPublisher{hub}
	if cfg.FrameLogPath != "" {
		frameLog, err := report.NewFrameLog(report.FrameLogConfig{FilePath: cfg.FrameLogPath})
		if err != nil {
			log.Fatalf("[FATAL] Failed to open frame log: %v", err)
		}
		defer frameLog.Close()
		publishers = append(publishers, frameLog)
		log.Printf("✅ Writing frame log to %s", cfg.FrameLogPath)
	}

	sink := batch.NewCompositeSink(
		&batch.LogSink{},
		batch.NewAnalysisSink(analyzer, manager, publishers),
	)
	batcher := batch.NewBatcher(cfg, sink)

	// gRPC
	grpcServer := grpc.NewServer()

	detectionServer := server.NewDetectionServer(cfg, batcher)
	detectionv1.RegisterDetectionServiceServer(grpcServer, detectionServer)

	healthServer := health.NewHealthServer()
	grpc_health_v1.RegisterHealthServer(grpcServer, healthServer)
	healthServer.AddProbe(redisProbe, cache.Ping)
	healthServer.AddProbe(databaseProbe, repository.Ping)
	go healthServer.Monitor(ctx, cfg.HealthProbeInterval)

	reflection.Register(grpcServer)

	address := fmt.Sprintf(":%s", cfg.GRPCPort)
	listener, err := net.Listen("tcp", address)
	if err != nil {
		log.Fatalf("[FATAL] Failed to listen on %s: %v", address, err)
	}

	log.Printf("[INFO] gRPC server listening on %s", address)

	healthServer.SetServingStatus("")
	healthServer.SetServingStatus(detectionv1.ServiceName)

	// HTTP
	router := mux.NewRouter()
	session.NewHTTPHandler(manager).RegisterRoutes(router)
	router.HandleFunc("/ws", hub.HandleWebSocket)
	router.HandleFunc("/health", healthHandler(healthServer, batcher, hub)).Methods("GET")

	if cfg.SwaggerEnabled {
		router.PathPrefix("/swagger/").Handler(httpSwagger.Handler(
			httpSwagger.URL("/swagger/doc.json"),
			httpSwagger.DeepLinking(true),
			httpSwagger.DocExpansion("list"),
			httpSwagger.DomID("swagger-ui"),
		))
	}

	httpServer := &http.Server{
		Addr:         ":" + cfg.HTTPPort,
		Handler:      enableCORS(router, cfg.AllowedOrigins),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	serverErrChan := make(chan error, 2)
	go func() {
		if err := grpcServer.Serve(listener); err != nil {
			serverErrChan <- fmt.Errorf("gRPC server error: %w", err)
		}
	}()

	go func() {
		log.Printf("✅ HTTP API listening on port %s", cfg.HTTPPort)
		if cfg.SwaggerEnabled {
			log.Printf("✅ Swagger UI at http://localhost:%s/swagger/index.html", cfg.HTTPPort)
		}
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			serverErrChan <- fmt.Errorf("HTTP server error: %w", err)
		}
	}()

	shutdownChan := make(chan os.Signal, 1)
	signal.Notify(shutdownChan, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-serverErrChan:
		log.Printf("[ERROR] Server error: %v", err)

	case sig := <-shutdownChan:
		log.Printf("[INFO] Received signal %v, starting graceful shutdown...", sig)
	}

	healthServer.SetNotServingStatus("")
	healthServer.SetNotServingStatus(detectionv1.ServiceName)

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		log.Printf("[WARN] HTTP server forced to shutdown: %v", err)
	}

	stopped := make(chan struct{})
	go func() {
		grpcServer.GracefulStop()
		close(stopped)
	}()

	select {
	case <-stopped:
	case <-shutdownCtx.Done():
		log.Printf("[WARN] Graceful shutdown timeout, forcing stop")
		grpcServer.Stop()
	}

	// Дописываем незавершённые кадры до закрытия хранилищ
	batcher.Stop()
	cancel()

	log.Printf("[INFO] Server stopped")
}

// openRepository открывает хранилище сессий согласно STORAGE_DRIVER
func openRepository(ctx context.Context, cfg *config.Config) (session.Repository, error) {
	switch cfg.StorageDriver {
	case "sqlite":
		return session.NewSQLiteRepository(ctx, cfg.SQLitePath)
	case "postgres", "":
		repo, err := session.NewPostgresRepositoryFromDSN(cfg.PostgresDSN)
		if err != nil {
			return nil, err
		}
		if err := repo.Migrate(ctx); err != nil {
			repo.Close()
			return nil, err
		}
		return repo, nil
	default:
		return nil, fmt.Errorf("unknown storage driver %q", cfg.StorageDriver)
	}
}

// newAdvisor собирает генератор советов: Gemini при наличии ключа, иначе
// только запасные тексты
func newAdvisor(ctx context.Context, cfg *config.Config) advice.Generator {
	fallback := advice.NewFallbackGenerator()
	if cfg.GeminiAPIKey == "" {
		log.Printf("⚠️  GEMINI_API_KEY not set, advice uses fallback texts")
		return fallback
	}

	gemini, err := advice.NewGeminiGenerator(ctx, advice.GeminiConfig{
		APIKey:      cfg.GeminiAPIKey,
		Model:       cfg.GeminiModel,
		Temperature: float32(cfg.GeminiTemperature),
		MaxTokens:   int32(cfg.GeminiMaxTokens),
		Timeout:     cfg.AdviceTimeout,
	})
	if err != nil {
		log.Printf("⚠️  Gemini unavailable, advice uses fallback texts: %v", err)
		return fallback
	}

	log.Printf("✅ Advice generator: %s", cfg.GeminiModel)
	return advice.WithFallback(gemini, fallback)
}

// healthHandler отдаёт состояние зависимостей и статистику батчера
func healthHandler(hs *health.HealthServer, batcher *batch.Batcher, hub *websocket.Hub) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		statuses := make(map[string]string)
		overall := grpc_health_v1.HealthCheckResponse_SERVING
		for _, name := range []string{"", detectionv1.ServiceName, redisProbe, databaseProbe} {
			resp, err := hs.Check(r.Context(), &grpc_health_v1.HealthCheckRequest{Service: name})
			if err != nil {
				continue
			}
			if name == "" {
				overall = resp.GetStatus()
				continue
			}
			statuses[name] = resp.GetStatus().String()
		}

		received, dropped, flushed, late := batcher.GetStats()

		code := http.StatusOK
		if overall != grpc_health_v1.HealthCheckResponse_SERVING {
			code = http.StatusServiceUnavailable
		}

		writeJSON(w, code, map[string]interface{}{
			"status":   overall.String(),
			"services": statuses,
			"batcher": map[string]int64{
				"received": received,
				"dropped":  dropped,
				"flushed":  flushed,
				"late":     late,
			},
			"websocket_clients": hub.ClientCount(),
			"timestamp":         time.Now().Format(time.RFC3339),
		})
	}
}

func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(data); err != nil {
		log.Printf("[ERROR] Failed to encode response: %v", err)
	}
}

func enableCORS(next http.Handler, allowedOrigins []string) http.Handler {
	allowAll := false
	allowed := make(map[string]bool, len(allowedOrigins))
	for _, origin := range allowedOrigins {
		if origin == "*" {
			allowAll = true
		}
		allowed[origin] = true
	}

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		origin := r.Header.Get("Origin")
		switch {
		case allowAll:
			w.Header().Set("Access-Control-Allow-Origin", "*")
		case allowed[origin]:
			w.Header().Set("Access-Control-Allow-Origin", origin)
			w.Header().Add("Vary", "Origin")
		}
		w.Header().Set("Access-Control-Allow-Methods", strings.Join([]string{"GET", "POST", "DELETE", "OPTIONS"}, ", "))
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type")

		if r.Method == http.MethodOptions {
			return
		}

		next.ServeHTTP(w, r)
	})
}
