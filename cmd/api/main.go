package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"runtime"
	"syscall"
	"time"

	"github.com/nats-io/nats.go/jetstream"
	ort "github.com/yalue/onnxruntime_go"

	"github.com/your-org/clockd/internal/api"
	"github.com/your-org/clockd/internal/api/ws"
	"github.com/your-org/clockd/internal/attendance"
	"github.com/your-org/clockd/internal/config"
	"github.com/your-org/clockd/internal/match"
	"github.com/your-org/clockd/internal/models"
	"github.com/your-org/clockd/internal/observability"
	"github.com/your-org/clockd/internal/queue"
	"github.com/your-org/clockd/internal/storage"
	"github.com/your-org/clockd/internal/vision"
	"github.com/your-org/clockd/pkg/dto"
)

func main() {
	configPath := flag.String("config", "configs/config.yaml", "path to config file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "load config: %v\n", err)
		os.Exit(1)
	}

	observability.SetupLogger(cfg.Logging.Level, cfg.Logging.Format)

	slog.Info("starting clockd API service", "port", cfg.Server.Port)

	loc, err := time.LoadLocation(cfg.Server.Timezone)
	if err != nil {
		slog.Error("load timezone", "timezone", cfg.Server.Timezone, "error", err)
		os.Exit(1)
	}

	// Connect to Postgres
	db, err := storage.NewPostgresStore(cfg.Database)
	if err != nil {
		slog.Error("connect to postgres", "error", err)
		os.Exit(1)
	}
	defer db.Close()

	// Connect to MinIO
	minioStore, err := storage.NewMinIOStore(cfg.MinIO)
	if err != nil {
		slog.Error("connect to minio", "error", err)
		os.Exit(1)
	}
	if err := minioStore.EnsureBucket(context.Background()); err != nil {
		slog.Warn("ensure minio bucket", "error", err)
	}

	// Connect to NATS
	producer, err := queue.NewProducer(cfg.NATS.URL)
	if err != nil {
		slog.Error("connect to nats", "error", err)
		os.Exit(1)
	}
	defer producer.Close()

	if err := producer.EnsureStreams(context.Background()); err != nil {
		slog.Warn("ensure nats streams", "error", err)
	}

	// WebSocket hub
	hub := ws.NewHub()
	go hub.Run()

	// Consume accepted events and broadcast them to WebSocket clients.
	consumer, err := queue.NewConsumer(cfg.NATS.URL)
	if err != nil {
		slog.Error("create event consumer", "error", err)
		os.Exit(1)
	}
	defer consumer.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	err = consumer.ConsumeEvents(ctx, "api-events", false, func(ctx context.Context, msg jetstream.Msg) error {
		var em models.EventMessage
		if err := json.Unmarshal(msg.Data(), &em); err != nil {
			return err
		}

		hub.BroadcastEvent(&dto.WSEvent{
			Type:     "attendance_event",
			DeviceID: em.DeviceID,
			Data: dto.EventResponse{
				ID:            em.EventID,
				EmployeeID:    em.EmployeeID,
				DisplayName:   em.DisplayName,
				Timestamp:     em.Timestamp.Format(time.RFC3339),
				EventType:     string(em.EventType),
				Confidence:    em.Confidence,
				MatchDistance: em.MatchDistance,
				IsLate:        em.IsLate,
				IsEarlyLeave:  em.IsEarlyLeave,
				IsOvertime:    em.IsOvertime,
				DeviceID:      em.DeviceID,
				SnapshotURL:   "/v1/attendance/events/" + em.EventID.String() + "/snapshot",
			},
		})

		return nil
	})
	if err != nil {
		slog.Warn("start event consumer", "error", err)
	}

	// Matcher with optional fallback classifier
	var fallback *match.Fallback
	if cfg.Matching.FallbackModelPath != "" {
		fallback, err = match.LoadFallback(cfg.Matching.FallbackModelPath)
		if err != nil {
			slog.Warn("load fallback classifier", "path", cfg.Matching.FallbackModelPath, "error", err)
		} else {
			slog.Info("fallback classifier loaded", "path", cfg.Matching.FallbackModelPath)
		}
	}

	matcher := match.New(db, match.Thresholds{
		Low:             cfg.Matching.LowThreshold,
		High:            cfg.Matching.HighThreshold,
		VarianceCeiling: cfg.Matching.VarianceCeiling,
	}, fallback)

	recorder := attendance.NewRecorder(db, loc)

	// Initialize ONNX Runtime for image-based enrollment (AddProfile endpoint)
	var encodeFn func([]byte) ([]float64, float32, error)

	ort.SetSharedLibraryPath(getONNXLibPath())
	if err := ort.InitializeEnvironment(); err != nil {
		slog.Warn("onnx runtime init failed, image enrollment will be unavailable", "error", err)
	} else {
		encoder, err := vision.NewEncoder(filepath.Join(cfg.Vision.ModelsDir, "encoder.onnx"))
		if err != nil {
			slog.Warn("vision encoder init failed, image enrollment will be unavailable", "error", err)
		} else {
			encodeFn = encoder.Encode
			defer encoder.Close()
			defer ort.DestroyEnvironment()
			slog.Info("vision encoder ready for image enrollment")
		}
	}

	// Setup router
	router := api.NewRouter(api.RouterConfig{
		APIKey:   cfg.Server.APIKey,
		DB:       db,
		MinIO:    minioStore,
		Producer: producer,
		Hub:      hub,
		Matcher:  matcher,
		Recorder: recorder,
		Matching: cfg.Matching,
		EncodeFn: encodeFn,
	})

	// Start HTTP server
	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      router,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		slog.Info("API server listening", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	slog.Info("shutting down API server...")
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		slog.Error("server shutdown error", "error", err)
	}

	slog.Info("API server stopped")
}

// getONNXLibPath returns the ONNX Runtime shared library path.
func getONNXLibPath() string {
	switch runtime.GOOS {
	case "windows":
		return "onnxruntime.dll"
	case "linux":
		return "libonnxruntime.so"
	case "darwin":
		return "libonnxruntime.dylib"
	default:
		return "onnxruntime.dll"
	}
}
