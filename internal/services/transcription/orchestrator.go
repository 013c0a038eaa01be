package transcription

import (
	"context"
	"log/slog"
	"time"

	"github.com/gijiroku/minutes/internal/config"
	"github.com/gijiroku/minutes/internal/errors"
	"github.com/gijiroku/minutes/internal/logger"
	"github.com/gijiroku/minutes/internal/metrics"
	"github.com/gijiroku/minutes/internal/providers"
	"github.com/gijiroku/minutes/internal/telemetry"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

// Request is one transcription call. ProviderID, APIKey and Region are
// optional; empty values fall back to server configuration.
type Request struct {
	Audio      Audio
	Language   string
	Model      string
	ProviderID providers.ID
	APIKey     string
	Region     string
}

type Result struct {
	Text       string       `json:"transcript"`
	ProviderID providers.ID `json:"provider"`
	Warning    string       `json:"warning,omitempty"`
}

// Orchestrator validates a request, resolves its credential and performs a
// single bounded call to the selected provider.
type Orchestrator struct {
	resolver  *providers.Resolver
	providers map[providers.ID]Provider
	cfg       config.TranscriptionConfig
	maxBytes  int64
	logger    *slog.Logger
}

func NewOrchestrator(resolver *providers.Resolver, impls map[providers.ID]Provider, cfg config.TranscriptionConfig, logger *slog.Logger) *Orchestrator {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 60 * time.Second
	}
	if cfg.Language == "" {
		cfg.Language = DefaultLanguage
	}
	return &Orchestrator{
		resolver:  resolver,
		providers: impls,
		cfg:       cfg,
		maxBytes:  MaxAudioBytes,
		logger:    logger,
	}
}

// Provider returns the implementation for id.
func (o *Orchestrator) Provider(id providers.ID) (Provider, bool) {
	p, ok := o.providers[id]
	return p, ok
}

// DefaultProvider picks the configured provider, or the first candidate that
// has a server credential when the configured one does not.
func (o *Orchestrator) DefaultProvider() providers.ID {
	preferred := make([]providers.ID, 0, len(o.cfg.Candidates)+1)
	preferred = append(preferred, providers.ID(o.cfg.Provider))
	for _, c := range o.cfg.Candidates {
		if _, ok := o.providers[providers.ID(c)]; ok {
			preferred = append(preferred, providers.ID(c))
		}
	}
	if id, ok := o.resolver.Select(providers.KindTranscription, preferred...); ok {
		return id
	}
	return providers.ID(o.cfg.Provider)
}

// Transcribe checks the preconditions in order (audio present, size within
// the cap, usable credential) before any remote call is made.
func (o *Orchestrator) Transcribe(ctx context.Context, req Request) (*Result, error) {
	size := int64(len(req.Audio.Data))
	if size == 0 {
		return nil, errors.NewMissingInputError("no audio file was provided", "MISSING_AUDIO")
	}
	if size > o.maxBytes {
		return nil, errors.NewPayloadTooLargeError(size, o.maxBytes)
	}

	id := req.ProviderID
	if id == "" {
		if req.APIKey != "" {
			id = providers.ID(o.cfg.Provider)
		} else {
			id = o.DefaultProvider()
		}
	}

	cred, err := o.resolver.Resolve(providers.KindTranscription, id, req.APIKey, req.Region)
	if err != nil {
		return nil, err
	}
	impl, ok := o.providers[id]
	if !ok {
		return nil, errors.NewUnsupportedProviderError(string(id), "no server implementation")
	}

	lang := req.Language
	if lang == "" {
		lang = o.cfg.Language
	}

	ctx, span := telemetry.Tracer("transcription").Start(ctx, "transcription.Transcribe")
	defer span.End()
	span.SetAttributes(
		attribute.String("provider", string(id)),
		attribute.String("language", lang),
		attribute.Int64("audio.bytes", size),
		attribute.String("key.source", string(cred.Source)),
	)

	callCtx, cancel := context.WithTimeout(ctx, o.cfg.Timeout)
	defer cancel()

	start := time.Now()
	text, err := impl.Transcribe(callCtx, req.Audio, Options{Language: lang, Model: req.Model}, cred)
	if err != nil {
		err = classify(string(id), err)
		metrics.RecordTranscription(ctx, string(id), "error", start)
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		o.logger.WarnContext(ctx, "Transcription failed",
			"provider", id,
			"error", err,
			"duration", time.Since(start),
			logger.WithTraceContext(ctx),
		)
		return nil, err
	}

	metrics.RecordTranscription(ctx, string(id), "success", start)
	o.logger.InfoContext(ctx, "Transcription completed",
		"provider", id,
		"bytes", size,
		"chars", len(text),
		"duration", time.Since(start),
		logger.WithTraceContext(ctx),
	)

	return &Result{Text: text, ProviderID: id, Warning: cred.Warning}, nil
}

// classify makes sure every failure leaving the orchestrator is an AppError.
func classify(providerID string, err error) error {
	if _, ok := errors.As(err); ok {
		return err
	}
	if errors.IsTimeout(err) {
		return errors.NewTimeoutError(providerID, err)
	}
	return errors.NewTransportError(providerID, err)
}
