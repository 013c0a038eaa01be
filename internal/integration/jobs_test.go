package integration

import (
	"bytes"
	"encoding/json"
	stderrors "errors"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/hibiken/asynq"

	"github.com/gijiroku/minutes/internal/api"
	"github.com/gijiroku/minutes/internal/config"
	"github.com/gijiroku/minutes/internal/health"
	"github.com/gijiroku/minutes/internal/providers"
	"github.com/gijiroku/minutes/internal/records"
	"github.com/gijiroku/minutes/internal/services/minutes"
	"github.com/gijiroku/minutes/internal/services/storage"
	"github.com/gijiroku/minutes/internal/services/transcription"
	"github.com/gijiroku/minutes/internal/worker"
)

const draft = "会議名：週次定例\n日時：2025-01-10\n参加者：山田、佐藤\n主な発言：\n・予算確認\n・採用計画\n決定事項：\n来月継続\nTODO：\n山田が議事録送付"

type fixtures struct {
	router  http.Handler
	stt     *mockSTT
	llm     *mockLLM
	store   *records.Store
	archive *storage.MemoryArchive
	queue   *inlineQueue
	status  *statusLog
}

func setupFixtures(t *testing.T, transcripts ...string) *fixtures {
	t.Helper()
	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	registry := providers.DefaultRegistry()
	resolver := providers.NewResolver(registry, providers.ServerCredentials{Keys: map[providers.ID]string{
		providers.OpenAI: "sk-env",
		providers.Gemini: "AIza-env",
	}})

	stt := &mockSTT{texts: transcripts}
	llm := &mockLLM{text: draft}
	orch := transcription.NewOrchestrator(resolver, map[providers.ID]transcription.Provider{providers.OpenAI: stt},
		config.TranscriptionConfig{Provider: "openai", Timeout: time.Second}, log)
	gen := minutes.NewGenerator(resolver, map[providers.ID]minutes.Provider{providers.Gemini: llm},
		config.MinutesConfig{Provider: "gemini", Timeout: time.Second}, minutes.Japanese, log)
	extractor := minutes.NewExtractor(minutes.Japanese, time.Now)

	// Server and worker share one backend, as they do through Redis.
	backend := records.NewMemoryBackend()
	store := records.NewStore(backend, records.DefaultKey, log)
	jobs := records.NewJobStore(backend, log)
	archive := storage.NewMemoryArchive()
	status := &statusLog{}

	processor := worker.NewProcessor(orch, gen, extractor, archive, store,
		worker.Reporters{status, worker.JobStateReporter{Jobs: jobs}}, log)
	queue := &inlineQueue{mux: worker.NewMux(processor, nil)}

	s := api.NewServer(api.Deps{
		Registry:     registry,
		Orchestrator: orch,
		Generator:    gen,
		Extractor:    extractor,
		Checker:      health.NewChecker(resolver, time.Second, log),
		Store:        store,
		Archive:      archive,
		Queue:        queue,
		Jobs:         jobs,
		Logger:       log,
	})
	r := chi.NewRouter()
	s.Routes(r)

	return &fixtures{router: r, stt: stt, llm: llm, store: store, archive: archive, queue: queue, status: status}
}

func uploadJob(t *testing.T, f *fixtures) api.CreateJobResponse {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	part, err := mw.CreateFormFile("file", "meeting.m4a")
	if err != nil {
		t.Fatalf("failed to create form file: %v", err)
	}
	part.Write([]byte("fake audio bytes"))
	mw.WriteField("language", "ja")
	mw.Close()

	req := httptest.NewRequest(http.MethodPost, "/jobs", &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	rec := httptest.NewRecorder()
	f.router.ServeHTTP(rec, req)

	if rec.Code != http.StatusAccepted {
		t.Fatalf("expected 202, got %d: %s", rec.Code, rec.Body.String())
	}
	var resp api.CreateJobResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("failed to decode job response: %v", err)
	}
	return resp
}

func jobStatus(t *testing.T, f *fixtures, id string) api.JobStatusResponse {
	t.Helper()
	rec := httptest.NewRecorder()
	f.router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/jobs/"+id, nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	var resp api.JobStatusResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("failed to decode status: %v", err)
	}
	return resp
}

func TestJob_UploadToCompletedRecord(t *testing.T) {
	f := setupFixtures(t, "今日は予算と採用について話しました")

	job := uploadJob(t, f)
	if job.Status != "queued" {
		t.Errorf("expected status queued, got %s", job.Status)
	}
	if len(f.queue.errs) != 1 || f.queue.errs[0] != nil {
		t.Fatalf("expected job to succeed, got %v", f.queue.errs)
	}

	status := jobStatus(t, f, job.JobID)
	if status.Status != worker.StatusCompleted {
		t.Fatalf("expected completed, got %s", status.Status)
	}
	if status.Record == nil {
		t.Fatal("expected record in status response")
	}
	if status.Record.Minutes.MeetingName != "週次定例" {
		t.Errorf("expected meeting name 週次定例, got %s", status.Record.Minutes.MeetingName)
	}
	if status.Record.Transcript != "今日は予算と採用について話しました" {
		t.Errorf("unexpected transcript %q", status.Record.Transcript)
	}
	if len(status.Record.Minutes.MainPoints) != 2 {
		t.Errorf("expected 2 main points, got %v", status.Record.Minutes.MainPoints)
	}

	got := f.status.statuses(job.JobID)
	want := []string{worker.StatusTranscribing, worker.StatusGenerating, worker.StatusSaving, worker.StatusCompleted}
	if len(got) != len(want) {
		t.Fatalf("expected statuses %v, got %v", want, got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("status %d: expected %s, got %s", i, want[i], got[i])
		}
	}

	if n := len(f.store.List(t.Context())); n != 1 {
		t.Errorf("expected one stored record, got %d", n)
	}
}

func TestJob_EmptyTranscriptRetriedOnceThenRecovered(t *testing.T) {
	if testing.Short() {
		t.Skip("waits for the retry delay")
	}
	f := setupFixtures(t, "　", "二回目で取れた文字起こし")

	job := uploadJob(t, f)
	if f.queue.errs[0] != nil {
		t.Fatalf("expected success after one retry, got %v", f.queue.errs[0])
	}
	if f.stt.calls != 2 {
		t.Errorf("expected 2 transcription calls, got %d", f.stt.calls)
	}
	if jobStatus(t, f, job.JobID).Status != worker.StatusCompleted {
		t.Error("expected job to complete")
	}
}

func TestJob_GenerationFailureIsReportedAsFailed(t *testing.T) {
	f := setupFixtures(t, "今日は予算について話しました")
	f.llm.text = ""
	f.llm.err = errUnauthorized()

	job := uploadJob(t, f)
	err := f.queue.errs[0]
	if err == nil {
		t.Fatal("expected job to fail")
	}
	if !stderrors.Is(err, asynq.SkipRetry) {
		t.Errorf("expected auth failure to skip retries, got %v", err)
	}
	if f.llm.calls != 1 {
		t.Errorf("expected exactly one generation call, got %d", f.llm.calls)
	}
	status := jobStatus(t, f, job.JobID)
	if status.Status != worker.StatusFailed {
		t.Errorf("expected status failed, got %s", status.Status)
	}
	if status.Record != nil {
		t.Error("expected no record for a failed job")
	}
	if !strings.Contains(status.Message, "Minutes generation failed") {
		t.Errorf("expected failure reason in message, got %q", status.Message)
	}

	got := f.status.statuses(job.JobID)
	if len(got) == 0 || got[len(got)-1] != worker.StatusFailed {
		t.Errorf("expected last status failed, got %v", got)
	}
}

func TestJob_CompletedJobRemovesArchivedAudio(t *testing.T) {
	f := setupFixtures(t, "音声")

	uploadJob(t, f)
	if len(f.queue.payloads) != 1 {
		t.Fatalf("expected one queued payload, got %d", len(f.queue.payloads))
	}
	if _, err := f.archive.Get(t.Context(), f.queue.payloads[0].AudioKey); err == nil {
		t.Error("expected archived audio to be removed after completion")
	}
}
