package metrics

import (
	"context"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

var (
	meter = otel.Meter("gijiroku/business")

	// Pipeline metrics
	TranscriptionsTotal     metric.Int64Counter
	TranscriptionDuration   metric.Float64Histogram
	MinutesGenerationsTotal metric.Int64Counter
	AIGenerationDuration    metric.Float64Histogram

	// External API metrics
	ExternalAPICallsTotal metric.Int64Counter
	ExternalAPIDuration   metric.Float64Histogram

	// Health check metrics
	ProviderChecksTotal metric.Int64Counter

	// Record store metrics
	RecordStoreFailuresTotal metric.Int64Counter
)

func Init() error {
	var err error

	TranscriptionsTotal, err = meter.Int64Counter(
		"transcriptions.total",
		metric.WithDescription("Total number of transcription requests by provider and outcome"),
		metric.WithUnit("1"),
	)
	if err != nil {
		return err
	}

	TranscriptionDuration, err = meter.Float64Histogram(
		"transcription.duration",
		metric.WithDescription("Duration of transcription requests"),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(0.5, 1, 2, 5, 10, 30, 60, 120),
	)
	if err != nil {
		return err
	}

	MinutesGenerationsTotal, err = meter.Int64Counter(
		"minutes.generations.total",
		metric.WithDescription("Total number of minutes generation requests by provider and outcome"),
		metric.WithUnit("1"),
	)
	if err != nil {
		return err
	}

	AIGenerationDuration, err = meter.Float64Histogram(
		"ai.generation.duration",
		metric.WithDescription("Duration of AI minutes generation"),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(0.1, 0.5, 1, 2, 5, 10, 30, 60),
	)
	if err != nil {
		return err
	}

	ExternalAPICallsTotal, err = meter.Int64Counter(
		"external.api.calls.total",
		metric.WithDescription("Total number of external API calls"),
		metric.WithUnit("1"),
	)
	if err != nil {
		return err
	}

	ExternalAPIDuration, err = meter.Float64Histogram(
		"external.api.duration",
		metric.WithDescription("Duration of external API calls"),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(0.1, 0.5, 1, 2, 5, 10, 30),
	)
	if err != nil {
		return err
	}

	ProviderChecksTotal, err = meter.Int64Counter(
		"provider.checks.total",
		metric.WithDescription("Total number of provider health checks by reachability"),
		metric.WithUnit("1"),
	)
	if err != nil {
		return err
	}

	RecordStoreFailuresTotal, err = meter.Int64Counter(
		"records.store.failures.total",
		metric.WithDescription("Record store operations that failed and were skipped"),
		metric.WithUnit("1"),
	)
	if err != nil {
		return err
	}

	return nil
}

// RecordExternalCall records one upstream round trip. Safe to call before Init.
func RecordExternalCall(ctx context.Context, provider, operation string, start time.Time) {
	attrs := metric.WithAttributes(
		attribute.String("provider", provider),
		attribute.String("operation", operation),
	)
	if ExternalAPIDuration != nil {
		ExternalAPIDuration.Record(ctx, time.Since(start).Seconds(), attrs)
	}
	if ExternalAPICallsTotal != nil {
		ExternalAPICallsTotal.Add(ctx, 1, attrs)
	}
}

// RecordTranscription records a finished transcription. Safe to call before Init.
func RecordTranscription(ctx context.Context, provider, outcome string, start time.Time) {
	if TranscriptionsTotal != nil {
		TranscriptionsTotal.Add(ctx, 1, metric.WithAttributes(
			attribute.String("provider", provider),
			attribute.String("outcome", outcome),
		))
	}
	if TranscriptionDuration != nil {
		TranscriptionDuration.Record(ctx, time.Since(start).Seconds(), metric.WithAttributes(
			attribute.String("provider", provider),
		))
	}
}

// RecordGeneration records a finished minutes generation. Safe to call before Init.
func RecordGeneration(ctx context.Context, provider, outcome string, start time.Time) {
	if MinutesGenerationsTotal != nil {
		MinutesGenerationsTotal.Add(ctx, 1, metric.WithAttributes(
			attribute.String("provider", provider),
			attribute.String("outcome", outcome),
		))
	}
	if AIGenerationDuration != nil {
		AIGenerationDuration.Record(ctx, time.Since(start).Seconds(), metric.WithAttributes(
			attribute.String("provider", provider),
		))
	}
}

// RecordProviderCheck records a health probe result. Safe to call before Init.
func RecordProviderCheck(ctx context.Context, kind, provider string, reachable bool) {
	if ProviderChecksTotal == nil {
		return
	}
	ProviderChecksTotal.Add(ctx, 1, metric.WithAttributes(
		attribute.String("kind", kind),
		attribute.String("provider", provider),
		attribute.Bool("reachable", reachable),
	))
}

// RecordStoreFailure counts a swallowed record store error. Safe to call before Init.
func RecordStoreFailure(ctx context.Context, operation string) {
	if RecordStoreFailuresTotal == nil {
		return
	}
	RecordStoreFailuresTotal.Add(ctx, 1, metric.WithAttributes(
		attribute.String("operation", operation),
	))
}
