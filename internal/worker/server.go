package worker

import (
	"github.com/hibiken/asynq"
)

// NewServer creates a new Asynq server for processing tasks
func NewServer(redisURL string, concurrency int) (*asynq.Server, error) {
	opt, err := ParseRedisURL(redisURL)
	if err != nil {
		return nil, err
	}
	if concurrency <= 0 {
		concurrency = 4
	}

	return asynq.NewServer(
		opt,
		asynq.Config{
			Concurrency: concurrency,
		},
	), nil
}

// NewMux routes minutes tasks through the tracing, metrics and Sentry
// middlewares.
func NewMux(p *Processor, m *WorkerMetrics) *asynq.ServeMux {
	mux := asynq.NewServeMux()
	mux.Use(OTelMiddleware, MetricsMiddleware(m), SentryMiddleware)
	mux.HandleFunc(TypeProcessMinutes, p.HandleProcessMinutes)
	return mux
}
