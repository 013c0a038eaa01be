package minutes

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"

	"github.com/gijiroku/minutes/internal/errors"
	"github.com/gijiroku/minutes/internal/httpclient"
	"github.com/gijiroku/minutes/internal/providers"
)

type chatRequest struct {
	Model       string        `json:"model"`
	Messages    []chatMessage `json:"messages"`
	Temperature float64       `json:"temperature"`
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
}

// OpenAIProvider generates minutes with the chat completions API.
type OpenAIProvider struct {
	httpClient *http.Client
	baseURL    string
	model      string
}

func NewOpenAIProvider(httpClient *http.Client) *OpenAIProvider {
	return &OpenAIProvider{
		httpClient: httpClient,
		baseURL:    "https://api.openai.com/v1",
		model:      "gpt-4o-mini",
	}
}

func (p *OpenAIProvider) ID() providers.ID {
	return providers.OpenAI
}

func (p *OpenAIProvider) Generate(ctx context.Context, systemPrompt, userContent string, cred providers.Credential) (string, error) {
	body, err := json.Marshal(chatRequest{
		Model: p.model,
		Messages: []chatMessage{
			{Role: "system", Content: systemPrompt},
			{Role: "user", Content: userContent},
		},
		Temperature: 0.2,
	})
	if err != nil {
		return "", errors.NewInternalError("failed to encode chat request", "REQUEST_BUILD_ERROR", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.baseURL+"/chat/completions", bytes.NewReader(body))
	if err != nil {
		return "", errors.NewInternalError("failed to create OpenAI request", "REQUEST_BUILD_ERROR", err)
	}
	req.Header.Set("Authorization", "Bearer "+cred.Key)
	req.Header.Set("Content-Type", "application/json")

	resp, err := httpclient.Call(ctx, p.httpClient, string(providers.OpenAI), "generate", req)
	if err != nil {
		return "", err
	}

	var chatResp chatResponse
	if err := json.Unmarshal(resp.Body, &chatResp); err != nil || len(chatResp.Choices) == 0 {
		return "", errors.NewMalformedResponseError(string(providers.OpenAI), resp.Body, err)
	}

	return chatResp.Choices[0].Message.Content, nil
}

func (p *OpenAIProvider) Probe(ctx context.Context, cred providers.Credential) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, p.baseURL+"/models", nil)
	if err != nil {
		return errors.NewInternalError("failed to create probe request", "REQUEST_BUILD_ERROR", err)
	}
	req.Header.Set("Authorization", "Bearer "+cred.Key)

	_, err = httpclient.Call(ctx, p.httpClient, string(providers.OpenAI), "probe", req)
	return err
}
