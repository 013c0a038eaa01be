package worker

import (
	"context"
	stderrors "errors"
	"fmt"

	"github.com/hibiken/asynq"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/gijiroku/minutes/internal/errors"
	"github.com/gijiroku/minutes/internal/telemetry"
)

// OTelMiddleware wraps asynq job handlers with OpenTelemetry spans. Failed
// spans carry the error type and whether asynq will try again.
func OTelMiddleware(h asynq.Handler) asynq.Handler {
	return asynq.HandlerFunc(func(ctx context.Context, t *asynq.Task) error {
		tracer := telemetry.Tracer("worker")

		taskID, _ := asynq.GetTaskID(ctx)
		queueName, _ := asynq.GetQueueName(ctx)
		retryCount, _ := asynq.GetRetryCount(ctx)

		ctx, span := tracer.Start(ctx, fmt.Sprintf("job:%s", t.Type()), trace.WithSpanKind(trace.SpanKindConsumer))
		defer span.End()

		span.SetAttributes(
			attribute.String("job.id", taskID),
			attribute.String("job.type", t.Type()),
			attribute.String("job.queue", queueName),
			attribute.Int("job.retry_count", retryCount),
		)

		err := h.ProcessTask(ctx, t)
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
			span.SetAttributes(attribute.Bool("job.skip_retry", stderrors.Is(err, asynq.SkipRetry)))
			if appErr, ok := errors.As(err); ok {
				span.SetAttributes(attribute.String("error.type", string(appErr.Type)))
			}
		}
		return err
	})
}
