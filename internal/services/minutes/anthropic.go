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

const anthropicVersion = "2023-06-01"

type anthropicRequest struct {
	Model     string             `json:"model"`
	MaxTokens int                `json:"max_tokens"`
	System    string             `json:"system"`
	Messages  []anthropicMessage `json:"messages"`
}

type anthropicMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type anthropicResponse struct {
	Content []struct {
		Type string `json:"type"`
		Text string `json:"text"`
	} `json:"content"`
}

// AnthropicProvider generates minutes with the Messages API.
type AnthropicProvider struct {
	httpClient *http.Client
	baseURL    string
	model      string
}

func NewAnthropicProvider(httpClient *http.Client) *AnthropicProvider {
	return &AnthropicProvider{
		httpClient: httpClient,
		baseURL:    "https://api.anthropic.com",
		model:      "claude-haiku-4-5",
	}
}

func (p *AnthropicProvider) ID() providers.ID {
	return providers.Anthropic
}

func (p *AnthropicProvider) setHeaders(req *http.Request, cred providers.Credential) {
	req.Header.Set("x-api-key", cred.Key)
	req.Header.Set("anthropic-version", anthropicVersion)
}

func (p *AnthropicProvider) Generate(ctx context.Context, systemPrompt, userContent string, cred providers.Credential) (string, error) {
	body, err := json.Marshal(anthropicRequest{
		Model:     p.model,
		MaxTokens: 4096,
		System:    systemPrompt,
		Messages:  []anthropicMessage{{Role: "user", Content: userContent}},
	})
	if err != nil {
		return "", errors.NewInternalError("failed to encode Anthropic request", "REQUEST_BUILD_ERROR", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.baseURL+"/v1/messages", bytes.NewReader(body))
	if err != nil {
		return "", errors.NewInternalError("failed to create Anthropic request", "REQUEST_BUILD_ERROR", err)
	}
	p.setHeaders(req, cred)
	req.Header.Set("Content-Type", "application/json")

	resp, err := httpclient.Call(ctx, p.httpClient, string(providers.Anthropic), "generate", req)
	if err != nil {
		return "", err
	}

	var apiResp anthropicResponse
	if err := json.Unmarshal(resp.Body, &apiResp); err != nil {
		return "", errors.NewMalformedResponseError(string(providers.Anthropic), resp.Body, err)
	}

	var sb strings.Builder
	for _, block := range apiResp.Content {
		if block.Type == "text" {
			sb.WriteString(block.Text)
		}
	}
	return sb.String(), nil
}

func (p *AnthropicProvider) Probe(ctx context.Context, cred providers.Credential) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, p.baseURL+"/v1/models?limit=1", nil)
	if err != nil {
		return errors.NewInternalError("failed to create probe request", "REQUEST_BUILD_ERROR", err)
	}
	p.setHeaders(req, cred)

	_, err = httpclient.Call(ctx, p.httpClient, string(providers.Anthropic), "probe", req)
	return err
}
