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
	"syscall"
	"time"

	"github.com/nats-io/nats.go/jetstream"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/your-org/clockd/internal/config"
	"github.com/your-org/clockd/internal/models"
	"github.com/your-org/clockd/internal/observability"
	"github.com/your-org/clockd/internal/queue"
	"github.com/your-org/clockd/internal/storage"
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

	slog.Info("starting clockd summary worker")

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

	// Connect to NATS
	producer, err := queue.NewProducer(cfg.NATS.URL)
	if err != nil {
		slog.Error("connect to nats producer", "error", err)
		os.Exit(1)
	}
	defer producer.Close()

	if err := producer.EnsureStreams(context.Background()); err != nil {
		slog.Warn("ensure nats streams", "error", err)
	}

	consumer, err := queue.NewConsumer(cfg.NATS.URL)
	if err != nil {
		slog.Error("create consumer", "error", err)
		os.Exit(1)
	}
	defer consumer.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Fold accepted events into day summaries. DeliverAll replays the stream
	// after a restart; ApplyEventToSummary upserts are idempotent so replays
	// are harmless.
	err = consumer.ConsumeEvents(ctx, "summary-worker", true, func(ctx context.Context, msg jetstream.Msg) error {
		var em models.EventMessage
		if err := json.Unmarshal(msg.Data(), &em); err != nil {
			slog.Error("unmarshal event message", "error", err)
			return nil // Don't retry on unmarshal errors
		}

		if err := db.ApplyEventToSummary(ctx, em, loc); err != nil {
			return fmt.Errorf("apply event %s: %w", em.EventID, err)
		}

		observability.SummaryEventsApplied.Inc()
		return nil
	})
	if err != nil {
		slog.Error("start event consumer", "error", err)
		os.Exit(1)
	}

	// Metrics endpoint
	go func() {
		mux := http.NewServeMux()
		mux.Handle("/metrics", promhttp.Handler())
		mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusOK)
			_, _ = w.Write([]byte(`{"status":"ok"}`))
		})
		slog.Info("worker metrics listening", "addr", ":8082")
		if err := http.ListenAndServe(":8082", mux); err != nil {
			slog.Error("metrics server error", "error", err)
		}
	}()

	// Periodically report queue depth
	go func() {
		ticker := time.NewTicker(10 * time.Second)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				pending, err := producer.PendingEvents(ctx)
				if err == nil {
					observability.PendingQueueEvents.Set(float64(pending))
				}
			}
		}
	}()

	// Wait for shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	slog.Info("shutting down worker...")
	cancel()
	time.Sleep(2 * time.Second)
	slog.Info("worker stopped")
}
