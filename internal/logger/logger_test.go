package logger

import (
	"context"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"go.opentelemetry.io/otel/log"
	"go.opentelemetry.io/otel/log/global"
	"go.opentelemetry.io/otel/log/noop"
	"go.opentelemetry.io/otel/trace"
)

type recordingProvider struct {
	noop.LoggerProvider
	logger *recordingLogger
}

func (p *recordingProvider) Logger(string, ...log.LoggerOption) log.Logger {
	return p.logger
}

type recordingLogger struct {
	noop.Logger
	mu      sync.Mutex
	records []log.Record
}

func (l *recordingLogger) Emit(_ context.Context, r log.Record) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.records = append(l.records, r)
}

// capture installs a recording provider for the duration of the test.
func capture(t *testing.T) *recordingLogger {
	t.Helper()
	rec := &recordingLogger{}
	prev := global.GetLoggerProvider()
	global.SetLoggerProvider(&recordingProvider{logger: rec})
	t.Cleanup(func() { global.SetLoggerProvider(prev) })
	return rec
}

func attributes(r log.Record) map[string]log.Value {
	out := map[string]log.Value{}
	r.WalkAttributes(func(kv log.KeyValue) bool {
		out[kv.Key] = kv.Value
		return true
	})
	return out
}

func quietLogger() *slog.Logger {
	return slog.New(&otelHandler{handler: slog.NewTextHandler(io.Discard, &slog.HandlerOptions{Level: slog.LevelDebug})})
}

func TestNew(t *testing.T) {
	for _, env := range []string{"production", "development"} {
		if New(env) == nil {
			t.Fatalf("expected a logger for %s", env)
		}
	}
}

func TestHandle_WithAttrsReachOTelRecord(t *testing.T) {
	rec := capture(t)

	l := quietLogger().With("job_id", "job-1", "attempt", 2)
	l.Warn("Transcription retry", "provider", "whisper")

	if len(rec.records) != 1 {
		t.Fatalf("expected 1 emitted record, got %d", len(rec.records))
	}
	r := rec.records[0]
	if r.Body().AsString() != "Transcription retry" {
		t.Errorf("unexpected body %q", r.Body().AsString())
	}
	if r.Severity() != log.SeverityWarn {
		t.Errorf("expected warn severity, got %v", r.Severity())
	}

	attrs := attributes(r)
	if got := attrs["job_id"].AsString(); got != "job-1" {
		t.Errorf("expected job_id from With, got %q", got)
	}
	if got := attrs["attempt"].AsInt64(); got != 2 {
		t.Errorf("expected attempt 2 from With, got %d", got)
	}
	if got := attrs["provider"].AsString(); got != "whisper" {
		t.Errorf("expected provider from the call site, got %q", got)
	}
}

func TestHandle_WithAttrsAccumulate(t *testing.T) {
	rec := capture(t)

	base := quietLogger().With("service", "minutes")
	base.With("meeting", "m-7").Info("Saved")
	base.Info("Health check")

	if len(rec.records) != 2 {
		t.Fatalf("expected 2 emitted records, got %d", len(rec.records))
	}
	first := attributes(rec.records[0])
	if first["service"].AsString() != "minutes" || first["meeting"].AsString() != "m-7" {
		t.Errorf("expected chained attributes, got %v", first)
	}
	second := attributes(rec.records[1])
	if _, ok := second["meeting"]; ok {
		t.Error("child attributes leaked into the parent logger")
	}
}

func TestHandle_DisabledLevelIsNotEmitted(t *testing.T) {
	rec := capture(t)

	l := slog.New(&otelHandler{handler: slog.NewTextHandler(io.Discard, nil)})
	l.Debug("hidden")

	if len(rec.records) != 0 {
		t.Errorf("expected debug to be dropped at info level, got %d records", len(rec.records))
	}
}

func TestToOTelValue(t *testing.T) {
	if v := toOTelValue(slog.DurationValue(1500 * time.Millisecond)); v.Kind() != log.KindString || v.AsString() != "1.5s" {
		t.Errorf("duration: expected string 1.5s, got %v", v)
	}
	if v := toOTelValue(slog.Uint64Value(42)); v.Kind() != log.KindInt64 || v.AsInt64() != 42 {
		t.Errorf("uint64: expected int64 42, got %v", v)
	}
	if v := toOTelValue(slog.BoolValue(true)); !v.AsBool() {
		t.Errorf("bool: expected true, got %v", v)
	}
	if v := toOTelValue(slog.Float64Value(0.25)); v.AsFloat64() != 0.25 {
		t.Errorf("float: expected 0.25, got %v", v)
	}
}

func TestSeverity(t *testing.T) {
	cases := map[slog.Level]log.Severity{
		slog.LevelDebug:     log.SeverityDebug,
		slog.LevelInfo:      log.SeverityInfo,
		slog.LevelWarn:      log.SeverityWarn,
		slog.LevelError:     log.SeverityError,
		slog.LevelError + 4: log.SeverityError,
	}
	for level, want := range cases {
		if got := severity(level); got != want {
			t.Errorf("severity(%v) = %v, want %v", level, got, want)
		}
	}
}

func TestWithTraceContext(t *testing.T) {
	if attr := WithTraceContext(context.Background()); !attr.Equal(slog.Attr{}) {
		t.Errorf("expected empty attribute without a span, got %+v", attr)
	}

	traceID, _ := trace.TraceIDFromHex("aabbccddeeff00112233445566778899")
	spanID, _ := trace.SpanIDFromHex("1122334455667788")
	ctx := trace.ContextWithSpanContext(context.Background(), trace.NewSpanContext(trace.SpanContextConfig{
		TraceID: traceID,
		SpanID:  spanID,
	}))

	attr := WithTraceContext(ctx)
	got := map[string]string{}
	for _, a := range attr.Value.Group() {
		got[a.Key] = a.Value.String()
	}
	if attr.Key != "trace" || got["trace_id"] != traceID.String() || got["span_id"] != spanID.String() {
		t.Errorf("unexpected trace attribute %+v", attr)
	}
}
