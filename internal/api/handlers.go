package api

import (
	"context"
	"encoding/json"
	stderrors "errors"
	"io"
	"log/slog"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"

	"github.com/gijiroku/minutes/internal/errors"
	"github.com/gijiroku/minutes/internal/health"
	"github.com/gijiroku/minutes/internal/logger"
	"github.com/gijiroku/minutes/internal/providers"
	"github.com/gijiroku/minutes/internal/records"
	"github.com/gijiroku/minutes/internal/sentry"
	"github.com/gijiroku/minutes/internal/services/minutes"
	"github.com/gijiroku/minutes/internal/services/storage"
	"github.com/gijiroku/minutes/internal/services/transcription"
	"github.com/gijiroku/minutes/internal/worker"
)

const (
	// multipartOverhead is the allowance for form fields and part headers on
	// top of the audio itself.
	multipartOverhead = 1 << 20
	maxJSONBody       = 4 << 20
)

// JobQueue enqueues background minutes jobs.
type JobQueue interface {
	EnqueueMinutes(ctx context.Context, payload worker.ProcessMinutesPayload) error
}

type Deps struct {
	Registry     *providers.Registry
	Orchestrator *transcription.Orchestrator
	Generator    *minutes.Generator
	Extractor    *minutes.Extractor
	Checker      *health.Checker
	Store        *records.Store
	// Archive, Queue and Jobs are optional; /jobs is only served when all
	// three are set.
	Archive storage.Archive
	Queue   JobQueue
	Jobs    *records.JobStore
	Logger  *slog.Logger
}

type Server struct {
	registry     *providers.Registry
	orchestrator *transcription.Orchestrator
	generator    *minutes.Generator
	extractor    *minutes.Extractor
	checker      *health.Checker
	store        *records.Store
	archive      storage.Archive
	queue        JobQueue
	jobs         *records.JobStore
	maxAudio     int64
	logger       *slog.Logger
}

func NewServer(d Deps) *Server {
	return &Server{
		registry:     d.Registry,
		orchestrator: d.Orchestrator,
		generator:    d.Generator,
		extractor:    d.Extractor,
		checker:      d.Checker,
		store:        d.Store,
		archive:      d.Archive,
		queue:        d.Queue,
		jobs:         d.Jobs,
		maxAudio:     transcription.MaxAudioBytes,
		logger:       d.Logger,
	}
}

// Routes registers every endpoint on r.
func (s *Server) Routes(r chi.Router) {
	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("OK"))
	})
	r.Get("/providers", s.HandleProviders)

	r.Post("/transcribe", s.HandleTranscribe)
	r.Post("/generate-minutes", s.HandleGenerateMinutes)

	r.Get("/check-{provider}", s.HandleCheckProvider)
	r.Post("/check-{provider}", s.HandleCheckProvider)

	r.Group(func(r chi.Router) {
		r.Use(cors.Handler(cors.Options{
			AllowedOrigins: []string{"*"},
			AllowedMethods: []string{"GET", "OPTIONS"},
		}))
		r.Get("/public-status", s.HandlePublicStatus)
		r.Options("/public-status", func(w http.ResponseWriter, r *http.Request) {})
	})

	r.Route("/records", func(r chi.Router) {
		r.Get("/", s.HandleListRecords)
		r.Post("/", s.HandleSaveRecord)
		r.Delete("/", s.HandleClearRecords)
		r.Get("/{id}", s.HandleGetRecord)
		r.Delete("/{id}", s.HandleDeleteRecord)
	})

	if s.queue != nil && s.archive != nil && s.jobs != nil {
		r.Post("/jobs", s.HandleCreateJob)
		r.Get("/jobs/{id}", s.HandleJobStatus)
	}
}

type TranscribeResponse struct {
	Transcript string       `json:"transcript"`
	Success    bool         `json:"success"`
	Provider   providers.ID `json:"provider"`
	Warning    string       `json:"warning,omitempty"`
}

func (s *Server) HandleTranscribe(w http.ResponseWriter, r *http.Request) {
	upload, err := s.readAudioUpload(w, r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	result, err := s.orchestrator.Transcribe(r.Context(), transcription.Request{
		Audio:      upload.audio,
		Language:   r.FormValue("language"),
		Model:      r.FormValue("model"),
		ProviderID: providers.ID(r.FormValue("provider")),
		APIKey:     r.FormValue("apiKey"),
		Region:     r.FormValue("region"),
	})
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, TranscribeResponse{
		Transcript: result.Text,
		Success:    true,
		Provider:   result.ProviderID,
		Warning:    result.Warning,
	})
}

type GenerateMinutesRequest struct {
	Transcript string `json:"transcript"`
	APIKey     string `json:"apiKey,omitempty"`
	Provider   string `json:"provider,omitempty"`
}

type GenerateMinutesResponse struct {
	Minutes         minutes.Record `json:"minutes"`
	RawText         string         `json:"rawText"`
	Provider        providers.ID   `json:"provider"`
	TemplateVersion string         `json:"templateVersion"`
	Warning         string         `json:"warning,omitempty"`
}

func (s *Server) HandleGenerateMinutes(w http.ResponseWriter, r *http.Request) {
	var req GenerateMinutesRequest
	if err := decodeJSON(w, r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}

	draft, err := s.generator.Generate(r.Context(), minutes.Request{
		Transcript: req.Transcript,
		ProviderID: providers.ID(req.Provider),
		APIKey:     req.APIKey,
	})
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, GenerateMinutesResponse{
		Minutes:         s.extractor.Extract(draft.Text),
		RawText:         draft.Text,
		Provider:        draft.ProviderID,
		TemplateVersion: draft.TemplateVersion,
		Warning:         draft.Warning,
	})
}

type audioUpload struct {
	audio transcription.Audio
}

// readAudioUpload reads the multipart "file" field. Oversized bodies are
// rejected before the upload is read.
func (s *Server) readAudioUpload(w http.ResponseWriter, r *http.Request) (*audioUpload, error) {
	limit := s.maxAudio + multipartOverhead
	if r.ContentLength > limit {
		return nil, errors.NewPayloadTooLargeError(r.ContentLength, s.maxAudio)
	}
	r.Body = http.MaxBytesReader(w, r.Body, limit)

	if err := r.ParseMultipartForm(32 << 20); err != nil {
		var maxErr *http.MaxBytesError
		if stderrors.As(err, &maxErr) {
			// Chunked bodies have no declared length; at least limit+1 bytes arrived.
			observed := r.ContentLength
			if observed < 0 {
				observed = maxErr.Limit + 1
			}
			return nil, errors.NewPayloadTooLargeError(observed, s.maxAudio)
		}
		return nil, errors.NewMissingInputError("expected a multipart form with an audio file", "INVALID_MULTIPART")
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		return nil, errors.NewMissingInputError("audio file is required", "MISSING_AUDIO")
	}
	defer file.Close()

	if header.Size > s.maxAudio {
		return nil, errors.NewPayloadTooLargeError(header.Size, s.maxAudio)
	}

	data, err := io.ReadAll(file)
	if err != nil {
		return nil, errors.NewInternalError("failed to read audio file", "AUDIO_READ_FAILED", err)
	}

	return &audioUpload{audio: transcription.Audio{
		Data:     data,
		FileName: header.Filename,
		MimeType: header.Header.Get("Content-Type"),
	}}, nil
}

type ErrorResponse struct {
	Error    string         `json:"error"`
	Code     string         `json:"code"`
	Recovery string         `json:"recovery,omitempty"`
	Details  map[string]any `json:"details,omitempty"`
}

// writeError renders err as JSON. Non-AppErrors become a generic 500 so no
// internal detail leaks to the client.
func (s *Server) writeError(w http.ResponseWriter, r *http.Request, err error) {
	ctx := r.Context()
	appErr, ok := errors.As(err)
	if !ok {
		appErr = errors.NewInternalError("internal server error", "INTERNAL_ERROR", err)
	}

	if appErr.StatusCode >= 500 {
		s.logger.ErrorContext(ctx, "Request failed",
			"path", r.URL.Path,
			"code", appErr.ErrorCode,
			"error", err,
			logger.WithTraceContext(ctx),
		)
		sentry.CaptureError(ctx, err)
	} else {
		s.logger.InfoContext(ctx, "Request rejected", "path", r.URL.Path, "code", appErr.ErrorCode, "error", appErr.Message)
	}

	message := appErr.Message
	if !appErr.IsOperational {
		message = "internal server error"
	}
	writeJSON(w, appErr.StatusCode, ErrorResponse{
		Error:    message,
		Code:     appErr.ErrorCode,
		Recovery: appErr.Recovery,
		Details:  appErr.Details,
	})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func decodeJSON(w http.ResponseWriter, r *http.Request, v any) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxJSONBody)
	dec := json.NewDecoder(r.Body)
	if err := dec.Decode(v); err != nil {
		var maxErr *http.MaxBytesError
		if stderrors.As(err, &maxErr) {
			return errors.NewPayloadTooLargeError(r.ContentLength, maxJSONBody)
		}
		if stderrors.Is(err, io.EOF) {
			return errors.NewMissingInputError("request body is required", "MISSING_BODY")
		}
		return errors.NewValidationError("request body is not valid JSON", "INVALID_JSON", "Send a JSON object.")
	}
	return nil
}

func pathParam(r *http.Request, name string) string {
	return strings.TrimSpace(chi.URLParam(r, name))
}
