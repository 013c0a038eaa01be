package worker

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/gijiroku/minutes/internal/httpclient"
	"github.com/gijiroku/minutes/internal/records"
)

const (
	StatusQueued       = "queued"
	StatusTranscribing = "transcribing"
	StatusGenerating   = "generating"
	StatusSaving       = "saving"
	StatusCompleted    = "completed"
	StatusRetrying     = "retrying"
	StatusFailed       = "failed"
)

type ProgressUpdate struct {
	JobID   string `json:"job_id"`
	Status  string `json:"status"`
	Message string `json:"message"`
}

// ProgressReporter publishes job progress. Failures to publish never fail
// the job.
type ProgressReporter interface {
	Report(ctx context.Context, update ProgressUpdate)
}

// LogReporter only logs progress.
type LogReporter struct {
	Logger *slog.Logger
}

func (r LogReporter) Report(ctx context.Context, update ProgressUpdate) {
	r.Logger.InfoContext(ctx, "Progress update", "job_id", update.JobID, "status", update.Status, "message", update.Message)
}

// JobStateReporter persists every update so the server can answer job
// status requests, including for jobs that failed for good.
type JobStateReporter struct {
	Jobs *records.JobStore
}

func (r JobStateReporter) Report(ctx context.Context, update ProgressUpdate) {
	r.Jobs.Set(ctx, update.JobID, update.Status, update.Message)
}

// Reporters sends each update to every reporter in order.
type Reporters []ProgressReporter

func (rs Reporters) Report(ctx context.Context, update ProgressUpdate) {
	for _, r := range rs {
		r.Report(ctx, update)
	}
}

// ProgressBroadcaster sends progress to a Supabase Realtime channel per job,
// so a browser can follow a job without polling.
type ProgressBroadcaster struct {
	supabaseURL string
	serviceKey  string
	httpClient  *http.Client
	logger      *slog.Logger
}

func NewProgressBroadcaster(supabaseURL, serviceKey string, httpClient *http.Client, logger *slog.Logger) *ProgressBroadcaster {
	return &ProgressBroadcaster{
		supabaseURL: supabaseURL,
		serviceKey:  serviceKey,
		httpClient:  httpClient,
		logger:      logger,
	}
}

func (b *ProgressBroadcaster) Report(ctx context.Context, update ProgressUpdate) {
	LogReporter{Logger: b.logger}.Report(ctx, update)
	if err := b.broadcast(ctx, update); err != nil {
		b.logger.WarnContext(ctx, "Progress broadcast failed", "job_id", update.JobID, "error", err)
	}
}

func (b *ProgressBroadcaster) broadcast(ctx context.Context, update ProgressUpdate) error {
	payload := map[string]any{
		"messages": []map[string]any{{
			"topic":   fmt.Sprintf("jobs:%s", update.JobID),
			"event":   "progress",
			"payload": update,
		}},
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to marshal broadcast payload: %w", err)
	}

	url := fmt.Sprintf("%s/realtime/v1/api/broadcast", b.supabaseURL)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+b.serviceKey)
	req.Header.Set("apikey", b.serviceKey)
	req.Header.Set("Content-Type", "application/json")

	_, err = httpclient.Call(ctx, b.httpClient, "supabase", "broadcast", req)
	return err
}
