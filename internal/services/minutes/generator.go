package minutes

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"github.com/gijiroku/minutes/internal/config"
	"github.com/gijiroku/minutes/internal/errors"
	"github.com/gijiroku/minutes/internal/logger"
	"github.com/gijiroku/minutes/internal/metrics"
	"github.com/gijiroku/minutes/internal/providers"
	"github.com/gijiroku/minutes/internal/telemetry"
)

type Request struct {
	Transcript string
	ProviderID providers.ID
	APIKey     string
}

// Draft is the model's untouched output.
type Draft struct {
	Text            string
	ProviderID      providers.ID
	TemplateVersion string
	Warning         string
}

// Generator wraps a single call to an AI provider with the minutes prompt.
// It does not interpret the output.
type Generator struct {
	resolver  *providers.Resolver
	providers map[providers.ID]Provider
	cfg       config.MinutesConfig
	grammar   Grammar
	prompt    string
	logger    *slog.Logger
}

func NewGenerator(resolver *providers.Resolver, impls map[providers.ID]Provider, cfg config.MinutesConfig, grammar Grammar, logger *slog.Logger) *Generator {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 60 * time.Second
	}
	return &Generator{
		resolver:  resolver,
		providers: impls,
		cfg:       cfg,
		grammar:   grammar,
		prompt:    BuildMinutesPrompt(grammar),
		logger:    logger,
	}
}

func (g *Generator) Provider(id providers.ID) (Provider, bool) {
	p, ok := g.providers[id]
	return p, ok
}

// DefaultProvider picks the configured provider, or the first candidate that
// has a server credential when the configured one does not.
func (g *Generator) DefaultProvider() providers.ID {
	preferred := []providers.ID{providers.ID(g.cfg.Provider)}
	for _, c := range g.cfg.Candidates {
		preferred = append(preferred, providers.ID(c))
	}
	if id, ok := g.resolver.Select(providers.KindAI, preferred...); ok {
		return id
	}
	return providers.ID(g.cfg.Provider)
}

// Generate rejects a blank transcript before any remote call and otherwise
// issues exactly one request.
func (g *Generator) Generate(ctx context.Context, req Request) (*Draft, error) {
	if strings.TrimSpace(req.Transcript) == "" {
		return nil, errors.NewEmptyTranscriptError()
	}

	id := req.ProviderID
	if id == "" {
		if req.APIKey != "" {
			id = providers.ID(g.cfg.Provider)
		} else {
			id = g.DefaultProvider()
		}
	}

	cred, err := g.resolver.Resolve(providers.KindAI, id, req.APIKey, "")
	if err != nil {
		return nil, err
	}
	impl, ok := g.providers[id]
	if !ok {
		return nil, errors.NewUnsupportedProviderError(string(id), "no server implementation")
	}

	ctx, span := telemetry.Tracer("minutes").Start(ctx, "minutes.Generate")
	defer span.End()
	span.SetAttributes(
		attribute.String("provider", string(id)),
		attribute.String("template.version", g.grammar.Version),
		attribute.Int("transcript.chars", len(req.Transcript)),
	)

	callCtx, cancel := context.WithTimeout(ctx, g.cfg.Timeout)
	defer cancel()

	start := time.Now()
	text, err := impl.Generate(callCtx, g.prompt, buildUserContent(g.grammar, req.Transcript), cred)
	if err != nil {
		err = classify(string(id), err)
		metrics.RecordGeneration(ctx, string(id), "error", start)
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		g.logger.WarnContext(ctx, "Minutes generation failed",
			"provider", id,
			"error", err,
			logger.WithTraceContext(ctx),
		)
		return nil, err
	}

	metrics.RecordGeneration(ctx, string(id), "success", start)
	g.logger.InfoContext(ctx, "Minutes generated",
		"provider", id,
		"template", g.grammar.Version,
		"chars", len(text),
		"duration", time.Since(start),
		logger.WithTraceContext(ctx),
	)

	return &Draft{
		Text:            text,
		ProviderID:      id,
		TemplateVersion: g.grammar.Version,
		Warning:         cred.Warning,
	}, nil
}

// classify turns any failure into an AppError. Non-2xx responses all surface
// as UpstreamError with the original status kept in the details.
func classify(providerID string, err error) error {
	if appErr, ok := errors.As(err); ok {
		return appErr.AsUpstream()
	}
	if errors.IsTimeout(err) {
		return errors.NewTimeoutError(providerID, err)
	}
	return errors.NewTransportError(providerID, err)
}
