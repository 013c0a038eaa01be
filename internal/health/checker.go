// Package health probes providers for reachability. A check never fails: every
// problem ends up in the returned status.
package health

import (
	"context"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/gijiroku/minutes/internal/errors"
	"github.com/gijiroku/minutes/internal/logger"
	"github.com/gijiroku/minutes/internal/metrics"
	"github.com/gijiroku/minutes/internal/providers"
)

const DefaultTimeout = 15 * time.Second

// Prober is implemented by every server-side provider.
type Prober interface {
	Probe(ctx context.Context, cred providers.Credential) error
}

// ProviderStatus is the result of one check. It is not persisted.
type ProviderStatus struct {
	ProviderID  providers.ID        `json:"providerId"`
	Kind        providers.Kind      `json:"kind"`
	Configured  bool                `json:"configured"`
	ValidFormat bool                `json:"validFormat"`
	Reachable   bool                `json:"reachable"`
	Message     string              `json:"message"`
	KeySource   providers.KeySource `json:"keySource"`
}

type Checker struct {
	resolver *providers.Resolver
	probers  map[providers.Kind]map[providers.ID]Prober
	timeout  time.Duration
	logger   *slog.Logger
}

func NewChecker(resolver *providers.Resolver, timeout time.Duration, logger *slog.Logger) *Checker {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &Checker{
		resolver: resolver,
		probers:  make(map[providers.Kind]map[providers.ID]Prober),
		timeout:  timeout,
		logger:   logger,
	}
}

// Register makes p the prober for (kind, id). It is not safe to call once
// checks are running.
func (c *Checker) Register(kind providers.Kind, id providers.ID, p Prober) {
	if c.probers[kind] == nil {
		c.probers[kind] = make(map[providers.ID]Prober)
	}
	c.probers[kind][id] = p
}

// Check resolves the credential for (kind, id) and probes the provider with it.
func (c *Checker) Check(ctx context.Context, kind providers.Kind, id providers.ID, userKey, region string) (status ProviderStatus) {
	status = ProviderStatus{ProviderID: id, Kind: kind, KeySource: providers.KeySourceNone}

	defer func() {
		if r := recover(); r != nil {
			status.Reachable = false
			status.Message = "check failed unexpectedly"
			c.logger.ErrorContext(ctx, "Provider check panicked", "provider", id, "panic", r)
		}
		metrics.RecordProviderCheck(ctx, string(kind), string(id), status.Reachable)
	}()

	desc, ok := c.resolver.Registry().Get(kind, id)
	if !ok {
		status.Message = "unknown provider"
		return status
	}
	if !desc.ServerSide {
		status.Configured = true
		status.ValidFormat = true
		status.Message = desc.DisplayName + " runs in the browser and is not checked by the server"
		return status
	}

	cred, err := c.resolver.Resolve(kind, id, userKey, region)
	if err != nil {
		status.Message = describe(err)
		return status
	}
	status.Configured = cred.Configured()
	status.KeySource = cred.Source
	status.ValidFormat = cred.Warning == ""

	prober, ok := c.probers[kind][id]
	if !ok {
		status.Message = "no server implementation"
		return status
	}

	probeCtx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	start := time.Now()
	if err := prober.Probe(probeCtx, cred); err != nil {
		if errors.IsTimeout(err) || errors.IsType(err, errors.ErrorTypeTimeout) {
			status.Message = desc.DisplayName + " did not respond within " + c.timeout.String()
		} else {
			status.Message = describe(err)
		}
		c.logger.InfoContext(ctx, "Provider unreachable",
			"provider", id,
			"kind", kind,
			"error", err,
			logger.WithTraceContext(ctx),
		)
		return status
	}

	status.Reachable = true
	status.Message = desc.DisplayName + " is reachable"
	if !status.ValidFormat {
		status.Message += "; " + cred.Warning
	}
	c.logger.DebugContext(ctx, "Provider reachable", "provider", id, "duration", time.Since(start))
	return status
}

// CheckAll checks every provider of kind concurrently with server credentials.
// One failing provider never affects another's status. Results follow registry
// order.
func (c *Checker) CheckAll(ctx context.Context, kind providers.Kind) []ProviderStatus {
	descs := c.resolver.Registry().List(kind)
	results := make([]ProviderStatus, len(descs))

	g, gctx := errgroup.WithContext(ctx)
	for i, d := range descs {
		g.Go(func() error {
			results[i] = c.Check(gctx, kind, d.ID, "", "")
			return nil
		})
	}
	_ = g.Wait()

	return results
}

func describe(err error) string {
	if appErr, ok := errors.As(err); ok {
		return appErr.Message
	}
	return err.Error()
}
