package main

import (
	"context"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	_ "github.com/joho/godotenv/autoload"

	"github.com/gijiroku/minutes/internal/config"
	"github.com/gijiroku/minutes/internal/httpclient"
	"github.com/gijiroku/minutes/internal/logger"
	"github.com/gijiroku/minutes/internal/metrics"
	"github.com/gijiroku/minutes/internal/providers"
	"github.com/gijiroku/minutes/internal/records"
	"github.com/gijiroku/minutes/internal/sentry"
	"github.com/gijiroku/minutes/internal/services/minutes"
	"github.com/gijiroku/minutes/internal/services/storage"
	"github.com/gijiroku/minutes/internal/services/transcription"
	"github.com/gijiroku/minutes/internal/telemetry"
	"github.com/gijiroku/minutes/internal/worker"
)

func main() {
	defer sentry.Recover()

	ctx := context.Background()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}
	if cfg.RedisURL == "" {
		log.Fatal("REDIS_URL is required for the worker")
	}

	serviceName := cfg.ServiceName + "-worker"

	// Initialize telemetry
	if cfg.OtelExporterOTLPEndpoint != "" {
		shutdown, err := telemetry.InitTelemetry(ctx, serviceName, cfg.ServiceVersion, cfg.Env,
			cfg.OtelExporterOTLPEndpoint, telemetry.ParseHeaders(cfg.OtelExporterOTLPHeaders))
		if err != nil {
			slog.Warn("Failed to init telemetry", "error", err)
		} else {
			defer shutdown(ctx)
		}
	}

	// Initialize Sentry
	if err := sentry.Init(cfg.SentryDSN, cfg.Env, serviceName, cfg.ServiceVersion); err != nil {
		slog.Warn("Failed to init Sentry", "error", err)
	} else if cfg.SentryDSN != "" {
		defer sentry.Flush(2 * time.Second)
	}

	if err := metrics.Init(); err != nil {
		slog.Warn("Failed to init business metrics", "error", err)
	}

	logger := logger.New(cfg.Env)
	slog.SetDefault(logger)

	httpClient := httpclient.NewInstrumentedClient(0)
	resolver := providers.NewResolver(providers.DefaultRegistry(), providers.ServerCredentialsFromConfig(cfg))
	grammar := minutes.GrammarFor(cfg.Minutes.Language)

	archive, err := storage.Open(ctx, cfg, httpClient)
	if err != nil {
		log.Fatalf("Failed to open %s archive: %v", cfg.Archive.Backend, err)
	}
	if archive == nil {
		log.Fatal("The worker needs an audio archive; set ARCHIVE_BACKEND to s3 or supabase")
	}

	store, jobs, closeStore, err := records.Open(ctx, cfg, logger)
	if err != nil {
		log.Fatalf("Failed to open %s record store: %v", cfg.Records.Backend, err)
	}
	defer closeStore()

	var progress worker.ProgressReporter = worker.LogReporter{Logger: logger}
	if cfg.SupabaseURL != "" && cfg.SupabaseServiceRoleKey != "" {
		progress = worker.NewProgressBroadcaster(cfg.SupabaseURL, cfg.SupabaseServiceRoleKey, httpClient, logger)
	}
	progress = worker.Reporters{progress, worker.JobStateReporter{Jobs: jobs}}

	processor := worker.NewProcessor(
		transcription.NewOrchestrator(resolver, transcription.NewProviders(httpClient), cfg.Transcription, logger),
		minutes.NewGenerator(resolver, minutes.NewProviders(httpClient), cfg.Minutes, grammar, logger),
		minutes.NewExtractor(grammar, time.Now),
		archive,
		store,
		progress,
		logger,
	)

	workerMetrics, err := worker.NewWorkerMetrics()
	if err != nil {
		slog.Warn("Failed to init worker metrics", "error", err)
	}

	srv, err := worker.NewServer(cfg.RedisURL, 0)
	if err != nil {
		log.Fatalf("Failed to create worker: %v", err)
	}

	slog.Info("Starting worker", "records", cfg.Records.Backend, "archive", cfg.Archive.Backend)

	if err := srv.Start(worker.NewMux(processor, workerMetrics)); err != nil {
		log.Fatalf("Worker failed: %v", err)
	}

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	<-sigChan

	slog.Info("Shutting down worker...")
	srv.Shutdown()
}
