package minutes

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gijiroku/minutes/internal/errors"
	"github.com/gijiroku/minutes/internal/httpclient"
	"github.com/gijiroku/minutes/internal/providers"
)

func TestOpenAIProvider_Generate(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/chat/completions" {
			t.Errorf("Expected path /chat/completions, got %s", r.URL.Path)
		}
		if got := r.Header.Get("Authorization"); got != "Bearer sk-test" {
			t.Errorf("Expected Authorization 'Bearer sk-test', got '%s'", got)
		}
		var req chatRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Errorf("Failed to decode request: %v", err)
		}
		if len(req.Messages) != 2 || req.Messages[0].Role != "system" || req.Messages[1].Content != "user text" {
			t.Errorf("Unexpected messages: %+v", req.Messages)
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"choices":[{"message":{"content":"会議名：定例"}}]}`))
	}))
	defer server.Close()

	p := NewOpenAIProvider(httpclient.NewInstrumentedClient(0))
	p.baseURL = server.URL

	text, err := p.Generate(context.Background(), "system", "user text", providers.Credential{Key: "sk-test"})
	require.NoError(t, err)
	assert.Equal(t, "会議名：定例", text)
}

func TestOpenAIProvider_NoChoicesIsMalformed(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"choices":[]}`))
	}))
	defer server.Close()

	p := NewOpenAIProvider(httpclient.NewInstrumentedClient(0))
	p.baseURL = server.URL

	_, err := p.Generate(context.Background(), "s", "u", providers.Credential{Key: "sk-test"})
	assert.True(t, errors.IsType(err, errors.ErrorTypeMalformedUpstream))
}

func TestGeminiProvider_Generate(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1beta/models/gemini-2.0-flash:generateContent" {
			t.Errorf("Unexpected path %s", r.URL.Path)
		}
		if got := r.Header.Get("x-goog-api-key"); got != "AIza-test" {
			t.Errorf("Expected x-goog-api-key 'AIza-test', got '%s'", got)
		}
		var req geminiRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Errorf("Failed to decode request: %v", err)
		}
		if req.SystemInstruction == nil || req.SystemInstruction.Parts[0].Text != "system" {
			t.Errorf("Expected system instruction, got %+v", req.SystemInstruction)
		}
		w.Write([]byte(`{"candidates":[{"content":{"parts":[{"text":"会議名："},{"text":"定例"}]}}]}`))
	}))
	defer server.Close()

	p := NewGeminiProvider(httpclient.NewInstrumentedClient(0))
	p.baseURL = server.URL

	text, err := p.Generate(context.Background(), "system", "user", providers.Credential{Key: "AIza-test"})
	require.NoError(t, err)
	assert.Equal(t, "会議名：定例", text)
}

func TestGeminiProvider_UpstreamStatus(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
		w.Write([]byte(`{"error":{"message":"API key not valid"}}`))
	}))
	defer server.Close()

	p := NewGeminiProvider(httpclient.NewInstrumentedClient(0))
	p.baseURL = server.URL

	_, err := p.Generate(context.Background(), "s", "u", providers.Credential{Key: "AIza-test"})
	appErr, ok := errors.As(err)
	require.True(t, ok)
	assert.Equal(t, http.StatusForbidden, appErr.Details["upstreamStatus"])
	assert.Contains(t, appErr.Details["rawBody"], "API key not valid")
}

func TestAnthropicProvider_Generate(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1/messages" {
			t.Errorf("Expected path /v1/messages, got %s", r.URL.Path)
		}
		if got := r.Header.Get("x-api-key"); got != "sk-ant-test" {
			t.Errorf("Expected x-api-key 'sk-ant-test', got '%s'", got)
		}
		if got := r.Header.Get("anthropic-version"); got != anthropicVersion {
			t.Errorf("Expected anthropic-version %s, got '%s'", anthropicVersion, got)
		}
		var req anthropicRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Errorf("Failed to decode request: %v", err)
		}
		if req.System != "system" || req.MaxTokens == 0 {
			t.Errorf("Unexpected request: %+v", req)
		}
		w.Write([]byte(`{"content":[{"type":"text","text":"会議名："},{"type":"tool_use"},{"type":"text","text":"定例"}]}`))
	}))
	defer server.Close()

	p := NewAnthropicProvider(httpclient.NewInstrumentedClient(0))
	p.baseURL = server.URL

	text, err := p.Generate(context.Background(), "system", "user", providers.Credential{Key: "sk-ant-test"})
	require.NoError(t, err)
	assert.Equal(t, "会議名：定例", text)
}

func TestAnthropicProvider_Probe(t *testing.T) {
	tests := []struct {
		name    string
		status  int
		wantErr bool
	}{
		{"reachable", http.StatusOK, false},
		{"bad key", http.StatusUnauthorized, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				if r.Method != http.MethodGet || r.URL.Path != "/v1/models" {
					t.Errorf("Unexpected probe %s %s", r.Method, r.URL.Path)
				}
				w.WriteHeader(tt.status)
				w.Write([]byte(`{"data":[]}`))
			}))
			defer server.Close()

			p := NewAnthropicProvider(httpclient.NewInstrumentedClient(0))
			p.baseURL = server.URL

			err := p.Probe(context.Background(), providers.Credential{Key: "sk-ant-test"})
			assert.Equal(t, tt.wantErr, err != nil)
		})
	}
}
