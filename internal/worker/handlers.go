package worker

import (
	"context"
	"encoding/json"
	stderrors "errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/hibiken/asynq"

	"github.com/gijiroku/minutes/internal/errors"
	"github.com/gijiroku/minutes/internal/logger"
	"github.com/gijiroku/minutes/internal/providers"
	"github.com/gijiroku/minutes/internal/records"
	"github.com/gijiroku/minutes/internal/services/minutes"
	"github.com/gijiroku/minutes/internal/services/storage"
	"github.com/gijiroku/minutes/internal/services/transcription"
	"github.com/gijiroku/minutes/internal/utils"
)

var errEmptyTranscript = stderrors.New("transcription returned no text")

type Transcriber interface {
	Transcribe(ctx context.Context, req transcription.Request) (*transcription.Result, error)
}

type Generator interface {
	Generate(ctx context.Context, req minutes.Request) (*minutes.Draft, error)
}

// Processor runs the whole pipeline for one recording: transcribe, generate,
// extract, save.
type Processor struct {
	transcriber Transcriber
	generator   Generator
	extractor   *minutes.Extractor
	archive     storage.Archive
	store       *records.Store
	progress    ProgressReporter
	retry       utils.RetryConfig
	now         func() time.Time
	logger      *slog.Logger
}

func NewProcessor(
	transcriber Transcriber,
	generator Generator,
	extractor *minutes.Extractor,
	archive storage.Archive,
	store *records.Store,
	progress ProgressReporter,
	logger *slog.Logger,
) *Processor {
	retry := utils.OnceRetryConfig()
	retry.ShouldRetry = func(err error) bool { return stderrors.Is(err, errEmptyTranscript) }
	if progress == nil {
		progress = LogReporter{Logger: logger}
	}
	return &Processor{
		transcriber: transcriber,
		generator:   generator,
		extractor:   extractor,
		archive:     archive,
		store:       store,
		progress:    progress,
		retry:       retry,
		now:         time.Now,
		logger:      logger,
	}
}

func (p *Processor) HandleProcessMinutes(ctx context.Context, t *asynq.Task) error {
	var payload ProcessMinutesPayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		return fmt.Errorf("failed to unmarshal payload: %v: %w", err, asynq.SkipRetry)
	}

	jobID := payload.JobID
	p.logger.InfoContext(ctx, "Processing recording", "job_id", jobID, "file", payload.FileName, logger.WithTraceContext(ctx))

	audio, err := p.archive.Get(ctx, payload.AudioKey)
	if err != nil {
		return p.fail(ctx, jobID, "Failed to load audio", err)
	}

	p.report(ctx, jobID, StatusTranscribing, "Transcribing audio...")
	result, err := utils.WithRetry(ctx, func(ctx context.Context) (*transcription.Result, error) {
		res, err := p.transcriber.Transcribe(ctx, transcription.Request{
			Audio:      transcription.Audio{Data: audio, FileName: payload.FileName, MimeType: payload.MimeType},
			Language:   payload.Language,
			ProviderID: providers.ID(payload.TranscriptionProvider),
		})
		if err != nil {
			return nil, err
		}
		if strings.TrimSpace(res.Text) == "" {
			return nil, errEmptyTranscript
		}
		return res, nil
	}, p.retry)
	if stderrors.Is(err, errEmptyTranscript) {
		err = errors.NewEmptyTranscriptError()
	}
	if err != nil {
		return p.fail(ctx, jobID, "Transcription failed", err)
	}

	p.report(ctx, jobID, StatusGenerating, "Generating minutes...")
	draft, err := p.generator.Generate(ctx, minutes.Request{
		Transcript: result.Text,
		ProviderID: providers.ID(payload.AIProvider),
	})
	if err != nil {
		return p.fail(ctx, jobID, "Minutes generation failed", err)
	}

	p.report(ctx, jobID, StatusSaving, "Saving record...")
	p.store.Save(ctx, records.AudioRecord{
		ID:         jobID,
		FileName:   payload.FileName,
		Transcript: result.Text,
		Minutes:    p.extractor.Extract(draft.Text),
		CreatedAt:  p.now().UTC(),
	})

	if err := p.archive.Delete(ctx, payload.AudioKey); err != nil {
		p.logger.WarnContext(ctx, "Failed to delete archived audio", "job_id", jobID, "key", payload.AudioKey, "error", err)
	}

	p.report(ctx, jobID, StatusCompleted, "Minutes ready")
	return nil
}

func (p *Processor) report(ctx context.Context, jobID, status, message string) {
	p.progress.Report(ctx, ProgressUpdate{JobID: jobID, Status: status, Message: message})
}

// fail reports the failure and decides whether asynq may retry. Only
// transient upstream and storage failures are retried.
func (p *Processor) fail(ctx context.Context, jobID, step string, err error) error {
	p.logger.ErrorContext(ctx, "Job failed", "job_id", jobID, "step", step, "error", err, logger.WithTraceContext(ctx))

	retryable := false
	if appErr, ok := errors.As(err); ok {
		retryable = appErr.IsRetryable() || appErr.Type == errors.ErrorTypeStorage
	}

	status := StatusFailed
	if retryable && !lastAttempt(ctx) {
		status = StatusRetrying
	}
	p.report(ctx, jobID, status, step+": "+err.Error())
	if !retryable {
		return fmt.Errorf("%s: %w", step, stderrors.Join(err, asynq.SkipRetry))
	}
	return fmt.Errorf("%s: %w", step, err)
}

// lastAttempt reports whether asynq will give up on the task after this run.
func lastAttempt(ctx context.Context) bool {
	retried, ok := asynq.GetRetryCount(ctx)
	if !ok {
		return false
	}
	maxRetry, ok := asynq.GetMaxRetry(ctx)
	return ok && retried >= maxRetry
}
