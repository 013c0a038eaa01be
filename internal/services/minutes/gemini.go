package minutes

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"strings"

	"github.com/gijiroku/minutes/internal/errors"
	"github.com/gijiroku/minutes/internal/httpclient"
	"github.com/gijiroku/minutes/internal/providers"
)

type geminiPart struct {
	Text string `json:"text"`
}

type geminiContent struct {
	Role  string       `json:"role,omitempty"`
	Parts []geminiPart `json:"parts"`
}

type geminiRequest struct {
	SystemInstruction *geminiContent  `json:"systemInstruction,omitempty"`
	Contents          []geminiContent `json:"contents"`
	GenerationConfig  struct {
		Temperature float64 `json:"temperature"`
	} `json:"generationConfig"`
}

type geminiResponse struct {
	Candidates []struct {
		Content geminiContent `json:"content"`
	} `json:"candidates"`
}

// GeminiProvider generates minutes with the Generative Language API.
type GeminiProvider struct {
	httpClient *http.Client
	baseURL    string
	model      string
}

func NewGeminiProvider(httpClient *http.Client) *GeminiProvider {
	return &GeminiProvider{
		httpClient: httpClient,
		baseURL:    "https://generativelanguage.googleapis.com",
		model:      "gemini-2.0-flash",
	}
}

func (p *GeminiProvider) ID() providers.ID {
	return providers.Gemini
}

func (p *GeminiProvider) Generate(ctx context.Context, systemPrompt, userContent string, cred providers.Credential) (string, error) {
	payload := geminiRequest{
		SystemInstruction: &geminiContent{Parts: []geminiPart{{Text: systemPrompt}}},
		Contents:          []geminiContent{{Role: "user", Parts: []geminiPart{{Text: userContent}}}},
	}
	payload.GenerationConfig.Temperature = 0.2

	body, err := json.Marshal(payload)
	if err != nil {
		return "", errors.NewInternalError("failed to encode Gemini request", "REQUEST_BUILD_ERROR", err)
	}

	url := p.baseURL + "/v1beta/models/" + p.model + ":generateContent"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return "", errors.NewInternalError("failed to create Gemini request", "REQUEST_BUILD_ERROR", err)
	}
	req.Header.Set("x-goog-api-key", cred.Key)
	req.Header.Set("Content-Type", "application/json")

	resp, err := httpclient.Call(ctx, p.httpClient, string(providers.Gemini), "generate", req)
	if err != nil {
		return "", err
	}

	var genResp geminiResponse
	if err := json.Unmarshal(resp.Body, &genResp); err != nil || len(genResp.Candidates) == 0 {
		return "", errors.NewMalformedResponseError(string(providers.Gemini), resp.Body, err)
	}

	var sb strings.Builder
	for _, part := range genResp.Candidates[0].Content.Parts {
		sb.WriteString(part.Text)
	}
	return sb.String(), nil
}

func (p *GeminiProvider) Probe(ctx context.Context, cred providers.Credential) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, p.baseURL+"/v1beta/models?pageSize=1", nil)
	if err != nil {
		return errors.NewInternalError("failed to create probe request", "REQUEST_BUILD_ERROR", err)
	}
	req.Header.Set("x-goog-api-key", cred.Key)

	_, err = httpclient.Call(ctx, p.httpClient, string(providers.Gemini), "probe", req)
	return err
}
