package transcription

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/gijiroku/minutes/internal/errors"
	"github.com/gijiroku/minutes/internal/httpclient"
	"github.com/gijiroku/minutes/internal/providers"
)

// AssemblyAIProvider uses the asynchronous upload / transcript / poll flow.
type AssemblyAIProvider struct {
	httpClient   *http.Client
	baseURL      string
	pollInterval time.Duration
}

// NewAssemblyAIProvider creates a new AssemblyAI transcription provider
func NewAssemblyAIProvider(httpClient *http.Client) *AssemblyAIProvider {
	return &AssemblyAIProvider{
		httpClient:   httpClient,
		baseURL:      "https://api.assemblyai.com/v2",
		pollInterval: 2 * time.Second,
	}
}

type assemblyUploadResponse struct {
	UploadURL string `json:"upload_url"`
}

type assemblyTranscriptRequest struct {
	AudioURL     string `json:"audio_url"`
	LanguageCode string `json:"language_code,omitempty"`
	SpeechModel  string `json:"speech_model,omitempty"`
}

type assemblyTranscript struct {
	ID     string `json:"id"`
	Status string `json:"status"`
	Text   string `json:"text"`
	Error  string `json:"error"`
}

func (p *AssemblyAIProvider) ID() providers.ID {
	return providers.AssemblyAI
}

// Transcribe uploads the audio, creates a transcript job and polls it until it
// finishes or ctx expires. Polling is part of the single attempt.
func (p *AssemblyAIProvider) Transcribe(ctx context.Context, audio Audio, opts Options, cred providers.Credential) (string, error) {
	uploadURL, err := p.upload(ctx, audio.Data, cred)
	if err != nil {
		return "", err
	}

	payload, err := json.Marshal(assemblyTranscriptRequest{
		AudioURL:     uploadURL,
		LanguageCode: opts.Language,
		SpeechModel:  opts.Model,
	})
	if err != nil {
		return "", errors.NewInternalError("failed to encode transcript request", "REQUEST_BUILD_ERROR", err)
	}

	req, err := p.newRequest(ctx, http.MethodPost, "/transcript", bytes.NewReader(payload), cred)
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/json")

	job, err := p.doTranscript(ctx, req, "transcript.create")
	if err != nil {
		return "", err
	}

	ticker := time.NewTicker(p.pollInterval)
	defer ticker.Stop()

	for {
		switch job.Status {
		case "completed":
			return job.Text, nil
		case "error":
			return "", errors.NewUpstreamJobError(string(providers.AssemblyAI), job.Error)
		}

		select {
		case <-ctx.Done():
			return "", errors.NewTimeoutError(string(providers.AssemblyAI), ctx.Err())
		case <-ticker.C:
		}

		req, err := p.newRequest(ctx, http.MethodGet, "/transcript/"+job.ID, nil, cred)
		if err != nil {
			return "", err
		}
		if job, err = p.doTranscript(ctx, req, "transcript.poll"); err != nil {
			return "", err
		}
	}
}

// Probe uploads a few bytes. Uploads are free and expire on their own.
func (p *AssemblyAIProvider) Probe(ctx context.Context, cred providers.Credential) error {
	_, err := p.upload(ctx, []byte("probe"), cred)
	return err
}

func (p *AssemblyAIProvider) upload(ctx context.Context, data []byte, cred providers.Credential) (string, error) {
	req, err := p.newRequest(ctx, http.MethodPost, "/upload", bytes.NewReader(data), cred)
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/octet-stream")

	resp, err := httpclient.Call(ctx, p.httpClient, string(providers.AssemblyAI), "upload", req)
	if err != nil {
		return "", err
	}

	var up assemblyUploadResponse
	if err := json.Unmarshal(resp.Body, &up); err != nil || up.UploadURL == "" {
		return "", errors.NewMalformedResponseError(string(providers.AssemblyAI), resp.Body, err)
	}
	return up.UploadURL, nil
}

func (p *AssemblyAIProvider) doTranscript(ctx context.Context, req *http.Request, operation string) (*assemblyTranscript, error) {
	resp, err := httpclient.Call(ctx, p.httpClient, string(providers.AssemblyAI), operation, req)
	if err != nil {
		return nil, err
	}

	var job assemblyTranscript
	if err := json.Unmarshal(resp.Body, &job); err != nil || job.ID == "" {
		return nil, errors.NewMalformedResponseError(string(providers.AssemblyAI), resp.Body, err)
	}
	return &job, nil
}

func (p *AssemblyAIProvider) newRequest(ctx context.Context, method, path string, body *bytes.Reader, cred providers.Credential) (*http.Request, error) {
	var req *http.Request
	var err error
	if body != nil {
		req, err = http.NewRequestWithContext(ctx, method, p.baseURL+path, body)
	} else {
		req, err = http.NewRequestWithContext(ctx, method, p.baseURL+path, nil)
	}
	if err != nil {
		return nil, errors.NewInternalError("failed to create AssemblyAI request", "REQUEST_BUILD_ERROR", err)
	}
	req.Header.Set("Authorization", cred.Key)
	return req, nil
}
