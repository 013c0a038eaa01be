package integration

import (
	"context"
	"net/http"
	"sync"

	"github.com/hibiken/asynq"

	"github.com/gijiroku/minutes/internal/errors"
	"github.com/gijiroku/minutes/internal/providers"
	"github.com/gijiroku/minutes/internal/services/transcription"
	"github.com/gijiroku/minutes/internal/worker"
)

type mockSTT struct {
	mu    sync.Mutex
	texts []string
	calls int
}

func (m *mockSTT) ID() providers.ID { return providers.OpenAI }

func (m *mockSTT) Transcribe(ctx context.Context, audio transcription.Audio, opts transcription.Options, cred providers.Credential) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	text := m.texts[len(m.texts)-1]
	if m.calls < len(m.texts) {
		text = m.texts[m.calls]
	}
	m.calls++
	return text, nil
}

func (m *mockSTT) Probe(ctx context.Context, cred providers.Credential) error { return nil }

type mockLLM struct {
	mu    sync.Mutex
	text  string
	err   error
	calls int
}

func (m *mockLLM) ID() providers.ID { return providers.Gemini }

func (m *mockLLM) Generate(ctx context.Context, systemPrompt, userContent string, cred providers.Credential) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls++
	return m.text, m.err
}

func (m *mockLLM) Probe(ctx context.Context, cred providers.Credential) error { return nil }

// inlineQueue hands every enqueued job straight to the worker mux, the way
// asynq would deliver it, and keeps the handler's result.
type inlineQueue struct {
	mux      *asynq.ServeMux
	payloads []worker.ProcessMinutesPayload
	errs     []error
}

func (q *inlineQueue) EnqueueMinutes(ctx context.Context, payload worker.ProcessMinutesPayload) error {
	task, err := worker.NewProcessMinutesTask(payload)
	if err != nil {
		return err
	}
	q.payloads = append(q.payloads, payload)
	q.errs = append(q.errs, q.mux.ProcessTask(ctx, task))
	return nil
}

type statusLog struct {
	mu      sync.Mutex
	updates []worker.ProgressUpdate
}

func (s *statusLog) Report(ctx context.Context, update worker.ProgressUpdate) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.updates = append(s.updates, update)
}

func (s *statusLog) statuses(jobID string) []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []string
	for _, u := range s.updates {
		if u.JobID == jobID {
			out = append(out, u.Status)
		}
	}
	return out
}

func errUnauthorized() error {
	return errors.NewUpstreamError("gemini", http.StatusUnauthorized, []byte(`{"error":"invalid key"}`))
}
