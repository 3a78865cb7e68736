package main

import (
	"context"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	httpapi "github.com/i474232898/velib-indicators/internal/api/http"
	"github.com/i474232898/velib-indicators/internal/config"
	"github.com/i474232898/velib-indicators/internal/db"
	"github.com/i474232898/velib-indicators/internal/export"
	"github.com/i474232898/velib-indicators/internal/metrics"
	"github.com/i474232898/velib-indicators/internal/scheduler"
	"github.com/i474232898/velib-indicators/internal/store"
	"github.com/i474232898/velib-indicators/internal/velib"
	"github.com/i474232898/velib-indicators/internal/velib/opendata"
)

func main() {
	log.SetFlags(log.LstdFlags | log.Lmicroseconds)

	// Load configuration.
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Station feed with resilience (rate limit + backoff + circuit breaker).
	source := opendata.NewClient(opendata.Options{
		URL:               cfg.SourceURL,
		Rows:              cfg.Rows,
		HTTPClient:        &http.Client{Timeout: cfg.HTTPTimeout},
		RequestsPerMinute: cfg.RequestsPerMinute,
	})

	pipeline := velib.NewPipeline(
		velib.WithFields(cfg.Fields),
		velib.WithPreviewRows(cfg.PreviewRows),
	)

	// In-memory store holding the latest batch.
	memStore := store.NewMemoryStore()

	var sinks []velib.Sink
	if cfg.DryRun {
		log.Println("INFO: dry run: batches are not written to any sink")
	} else {
		if cfg.DatabaseURL != "" {
			pg, err := db.New(ctx, cfg.DatabaseURL)
			if err != nil {
				log.Fatalf("failed to connect database: %v", err)
			}
			defer pg.Close()

			if err := pg.EnsureSchema(ctx); err != nil {
				log.Fatalf("failed to prepare database: %v", err)
			}
			sinks = append(sinks, pg)
		}
		if cfg.ExportPath != "" {
			sinks = append(sinks, export.NewXLSXSink(cfg.ExportPath))
		}
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	// Core service running the pipeline and publishing results.
	service := velib.NewService(memStore, source, pipeline, sinks).WithMetrics(metrics.New(reg))

	// Scheduler that periodically runs a batch.
	sched := scheduler.New(cfg.FetchInterval, cfg.Retries, cfg.RetryDelay, cfg.BatchTimeout, service)
	if err := sched.Start(); err != nil {
		log.Fatalf("failed to start scheduler: %v", err)
	}
	defer sched.Stop()

	// Basic app configuration
	app := fiber.New(fiber.Config{
		AppName:               "velib-indicators",
		DisableStartupMessage: true,
		ReadTimeout:           10 * time.Second,
		WriteTimeout:          10 * time.Second,
		ErrorHandler:          httpapi.ErrorHandler,
	})

	// Global middleware
	app.Use(logger.New())
	app.Use(recover.New())

	app.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{
			"status":  "ok",
			"service": "velib-indicators",
		})
	})
	app.Get("/metrics", adaptor.HTTPHandler(promhttp.HandlerFor(reg, promhttp.HandlerOpts{})))

	// API routes.
	httpapi.RegisterRoutes(app, service)

	go func() {
		if err := app.Listen(":" + cfg.Port); err != nil {
			log.Printf("fiber server stopped: %v", err)
		}
	}()

	// Wait for termination signal
	<-ctx.Done()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := app.ShutdownWithContext(shutdownCtx); err != nil {
		log.Printf("error during shutdown: %v", err)
	}
}
