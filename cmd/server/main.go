package main

import (
	"context"
	"errors"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"
	_ "github.com/joho/godotenv/autoload"
	"github.com/riandyrn/otelchi"
	otelchimetric "github.com/riandyrn/otelchi/metric"
	"go.opentelemetry.io/otel"

	"github.com/gijiroku/minutes/internal/api"
	"github.com/gijiroku/minutes/internal/config"
	"github.com/gijiroku/minutes/internal/health"
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

	// Initialize telemetry
	if cfg.OtelExporterOTLPEndpoint != "" {
		shutdown, err := telemetry.InitTelemetry(ctx, cfg.ServiceName, cfg.ServiceVersion, cfg.Env,
			cfg.OtelExporterOTLPEndpoint, telemetry.ParseHeaders(cfg.OtelExporterOTLPHeaders))
		if err != nil {
			slog.Warn("Failed to init telemetry", "error", err)
		} else {
			defer shutdown(ctx)
		}
	}

	// Initialize Sentry
	if err := sentry.Init(cfg.SentryDSN, cfg.Env, cfg.ServiceName, cfg.ServiceVersion); err != nil {
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
	registry := providers.DefaultRegistry()
	resolver := providers.NewResolver(registry, providers.ServerCredentialsFromConfig(cfg))

	sttProviders := transcription.NewProviders(httpClient)
	aiProviders := minutes.NewProviders(httpClient)
	grammar := minutes.GrammarFor(cfg.Minutes.Language)

	checker := health.NewChecker(resolver, cfg.Health.Timeout, logger)
	for id, p := range sttProviders {
		checker.Register(providers.KindTranscription, id, p)
	}
	for id, p := range aiProviders {
		checker.Register(providers.KindAI, id, p)
	}

	store, jobs, closeStore, err := records.Open(ctx, cfg, logger)
	if err != nil {
		log.Fatalf("Failed to open %s record store: %v", cfg.Records.Backend, err)
	}
	defer closeStore()

	deps := api.Deps{
		Registry:     registry,
		Orchestrator: transcription.NewOrchestrator(resolver, sttProviders, cfg.Transcription, logger),
		Generator:    minutes.NewGenerator(resolver, aiProviders, cfg.Minutes, grammar, logger),
		Extractor:    minutes.NewExtractor(grammar, time.Now),
		Checker:      checker,
		Store:        store,
		Logger:       logger,
	}

	archive, err := storage.Open(ctx, cfg, httpClient)
	if err != nil {
		log.Fatalf("Failed to open %s archive: %v", cfg.Archive.Backend, err)
	}
	if archive != nil && cfg.JobsEnabled() {
		queue, err := worker.NewQueue(cfg.RedisURL)
		if err != nil {
			log.Fatalf("Failed to create job queue: %v", err)
		}
		defer queue.Close()
		deps.Archive = archive
		deps.Queue = queue
		deps.Jobs = jobs
	}

	apiServer := api.NewServer(deps)

	r := chi.NewRouter()

	r.Use(otelchi.Middleware(cfg.ServiceName,
		otelchi.WithChiRoutes(r),
		otelchi.WithFilter(func(r *http.Request) bool {
			return r.URL.Path != "/health"
		}),
	))

	metricCfg := otelchimetric.NewBaseConfig(cfg.ServiceName, otelchimetric.WithMeterProvider(otel.GetMeterProvider()))
	r.Use(otelchimetric.NewRequestDurationMillis(metricCfg))
	r.Use(otelchimetric.NewRequestInFlight(metricCfg))
	r.Use(otelchimetric.NewResponseSizeBytes(metricCfg))

	r.Use(sentry.HTTPMiddleware)

	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{"GET", "POST", "DELETE", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Content-Type"},
	}))

	apiServer.Routes(r)

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		sigChan := make(chan os.Signal, 1)
		signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
		<-sigChan

		slog.Info("Shutting down server...")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			slog.Error("Graceful shutdown failed", "error", err)
		}
	}()

	slog.Info("Starting server",
		"port", cfg.Port,
		"records", cfg.Records.Backend,
		"archive", cfg.Archive.Backend,
		"jobs", deps.Queue != nil,
	)

	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		log.Fatalf("Server failed: %v", err)
	}
}
