package sentry

import (
	"context"
	"fmt"
	"time"

	"github.com/getsentry/sentry-go"

	apperrors "github.com/gijiroku/minutes/internal/errors"
)

// Init initializes Sentry with the provided configuration.
// If DSN is empty, Sentry initialization is skipped and nil is returned.
func Init(dsn, env, serviceName, serviceVersion string) error {
	if dsn == "" {
		return nil
	}

	options := sentry.ClientOptions{
		Dsn:              dsn,
		Environment:      env,
		ServerName:       serviceName,
		Release:          serviceVersion,
		AttachStacktrace: true,
		TracesSampleRate: 0.0, // tracing goes through OpenTelemetry
		BeforeSend:       scrubCredentials,
	}

	if err := sentry.Init(options); err != nil {
		return fmt.Errorf("failed to initialize Sentry: %w", err)
	}

	return nil
}

// scrubCredentials drops request headers that may carry provider keys.
func scrubCredentials(event *sentry.Event, _ *sentry.EventHint) *sentry.Event {
	if event.Request != nil {
		for k := range event.Request.Headers {
			switch k {
			case "Authorization", "X-Api-Key", "X-Provider-Key":
				event.Request.Headers[k] = "[redacted]"
			}
		}
	}
	return event
}

// Flush waits for all pending Sentry events to be sent.
// Call this during graceful shutdown.
func Flush(timeout time.Duration) {
	sentry.Flush(timeout)
}

// CaptureError reports err unless it is an operational AppError. Client
// mistakes and upstream refusals are expected and stay out of Sentry.
func CaptureError(ctx context.Context, err error) {
	if err == nil {
		return
	}
	if appErr, ok := apperrors.As(err); ok && appErr.IsOperational {
		return
	}
	hub := sentry.GetHubFromContext(ctx)
	if hub == nil {
		hub = sentry.CurrentHub()
	}
	hub.CaptureException(err)
}

// Recover reports a panic on the current goroutine and lets it continue.
func Recover() {
	sentry.Recover()
}
