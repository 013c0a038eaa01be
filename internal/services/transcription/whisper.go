package transcription

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"mime/multipart"
	"net/http"

	"github.com/gijiroku/minutes/internal/errors"
	"github.com/gijiroku/minutes/internal/httpclient"
	"github.com/gijiroku/minutes/internal/providers"
)

// WhisperProvider talks to an OpenAI-compatible /audio/transcriptions API.
type WhisperProvider struct {
	id         providers.ID
	model      string
	httpClient *http.Client
	baseURL    string
}

type transcriptionResponse struct {
	Text string `json:"text"`
}

func (p *WhisperProvider) ID() providers.ID {
	return p.id
}

// Transcribe uploads the audio as multipart form data.
func (p *WhisperProvider) Transcribe(ctx context.Context, audio Audio, opts Options, cred providers.Credential) (string, error) {
	model := p.model
	if opts.Model != "" {
		model = opts.Model
	}
	fileName := audio.FileName
	if fileName == "" {
		fileName = "audio.webm"
	}

	// Stream the form through a pipe so the body is not buffered twice
	pr, pw := io.Pipe()
	writer := multipart.NewWriter(pw)

	go func() {
		part, err := writer.CreateFormFile("file", fileName)
		if err != nil {
			pw.CloseWithError(err)
			return
		}
		if _, err := io.Copy(part, bytes.NewReader(audio.Data)); err != nil {
			pw.CloseWithError(err)
			return
		}
		if err := writer.WriteField("model", model); err != nil {
			pw.CloseWithError(err)
			return
		}
		if opts.Language != "" {
			if err := writer.WriteField("language", opts.Language); err != nil {
				pw.CloseWithError(err)
				return
			}
		}
		if err := writer.WriteField("response_format", "json"); err != nil {
			pw.CloseWithError(err)
			return
		}
		pw.CloseWithError(writer.Close())
	}()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.baseURL+"/audio/transcriptions", pr)
	if err != nil {
		pr.Close()
		return "", errors.NewInternalError("failed to create transcription request", "REQUEST_BUILD_ERROR", err)
	}
	req.Header.Set("Authorization", "Bearer "+cred.Key)
	req.Header.Set("Content-Type", writer.FormDataContentType())

	resp, err := httpclient.Call(ctx, p.httpClient, string(p.id), "transcribe", req)
	if err != nil {
		return "", err
	}

	var transResp transcriptionResponse
	if err := json.Unmarshal(resp.Body, &transResp); err != nil {
		return "", errors.NewMalformedResponseError(string(p.id), resp.Body, err)
	}

	return transResp.Text, nil
}

// Probe lists models, which costs no quota.
func (p *WhisperProvider) Probe(ctx context.Context, cred providers.Credential) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, p.baseURL+"/models", nil)
	if err != nil {
		return errors.NewInternalError("failed to create probe request", "REQUEST_BUILD_ERROR", err)
	}
	req.Header.Set("Authorization", "Bearer "+cred.Key)

	_, err = httpclient.Call(ctx, p.httpClient, string(p.id), "probe", req)
	return err
}
