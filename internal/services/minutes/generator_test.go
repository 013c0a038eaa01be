package minutes

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gijiroku/minutes/internal/config"
	"github.com/gijiroku/minutes/internal/errors"
	"github.com/gijiroku/minutes/internal/providers"
)

type countingProvider struct {
	id         providers.ID
	text       string
	err        error
	delay      time.Duration
	calls      int
	lastSystem string
	lastUser   string
	lastCred   providers.Credential
}

func (p *countingProvider) ID() providers.ID { return p.id }

func (p *countingProvider) Generate(ctx context.Context, systemPrompt, userContent string, cred providers.Credential) (string, error) {
	p.calls++
	p.lastSystem = systemPrompt
	p.lastUser = userContent
	p.lastCred = cred
	if p.delay > 0 {
		select {
		case <-time.After(p.delay):
		case <-ctx.Done():
			return "", ctx.Err()
		}
	}
	return p.text, p.err
}

func (p *countingProvider) Probe(ctx context.Context, cred providers.Credential) error { return nil }

func newTestGenerator(server providers.ServerCredentials, impls ...*countingProvider) *Generator {
	m := make(map[providers.ID]Provider)
	for _, p := range impls {
		m[p.id] = p
	}
	cfg := config.MinutesConfig{Provider: "gemini", Candidates: []string{"openai", "anthropic"}, Timeout: time.Second}
	resolver := providers.NewResolver(providers.DefaultRegistry(), server)
	return NewGenerator(resolver, m, cfg, Japanese, slog.New(slog.NewTextHandler(io.Discard, nil)))
}

func serverKeys(keys map[providers.ID]string) providers.ServerCredentials {
	return providers.ServerCredentials{Keys: keys}
}

func TestGenerate_SingleCall(t *testing.T) {
	fake := &countingProvider{id: providers.Gemini, text: "会議名：定例"}
	g := newTestGenerator(serverKeys(map[providers.ID]string{providers.Gemini: "AIza-env"}), fake)

	draft, err := g.Generate(context.Background(), Request{Transcript: "今日は予算について話しました"})
	require.NoError(t, err)
	assert.Equal(t, "会議名：定例", draft.Text)
	assert.Equal(t, providers.Gemini, draft.ProviderID)
	assert.Equal(t, Japanese.Version, draft.TemplateVersion)
	assert.Empty(t, draft.Warning)
	assert.Equal(t, 1, fake.calls)
	assert.Contains(t, fake.lastSystem, "<DEDUPLICATION>")
	assert.Contains(t, fake.lastUser, "今日は予算について話しました")
	assert.Equal(t, providers.KeySourceEnv, fake.lastCred.Source)
}

func TestGenerate_EmptyTranscriptWithoutRemoteCall(t *testing.T) {
	fake := &countingProvider{id: providers.Gemini}
	g := newTestGenerator(serverKeys(map[providers.ID]string{providers.Gemini: "AIza-env"}), fake)

	for _, transcript := range []string{"", "   ", "\n\t　\n"} {
		_, err := g.Generate(context.Background(), Request{Transcript: transcript})
		assert.True(t, errors.IsType(err, errors.ErrorTypeEmptyTranscript), "transcript %q", transcript)
	}
	assert.Zero(t, fake.calls)
}

func TestGenerate_NoCredentialWithoutRemoteCall(t *testing.T) {
	fake := &countingProvider{id: providers.Gemini}
	g := newTestGenerator(providers.ServerCredentials{}, fake)

	_, err := g.Generate(context.Background(), Request{Transcript: "text"})
	appErr, ok := errors.As(err)
	require.True(t, ok)
	assert.Equal(t, errors.ErrorTypeNoCredential, appErr.Type)
	assert.Equal(t, http.StatusUnauthorized, appErr.StatusCode)
	assert.Zero(t, fake.calls)
}

func TestGenerate_UserKeyWinsAndWarnsOnOddFormat(t *testing.T) {
	fake := &countingProvider{id: providers.Gemini, text: "ok"}
	g := newTestGenerator(serverKeys(map[providers.ID]string{providers.Gemini: "AIza-env"}), fake)

	draft, err := g.Generate(context.Background(), Request{Transcript: "text", APIKey: "not-a-gemini-key"})
	require.NoError(t, err)
	assert.Equal(t, "not-a-gemini-key", fake.lastCred.Key)
	assert.Equal(t, providers.KeySourceUser, fake.lastCred.Source)
	assert.NotEmpty(t, draft.Warning)
}

func TestGenerate_UpstreamStatusCollapsesToUpstreamError(t *testing.T) {
	for _, status := range []int{http.StatusBadRequest, http.StatusUnauthorized, http.StatusTooManyRequests, http.StatusServiceUnavailable} {
		fake := &countingProvider{id: providers.Gemini, err: errors.NewUpstreamError("gemini", status, []byte(`{"error":"x"}`))}
		g := newTestGenerator(serverKeys(map[providers.ID]string{providers.Gemini: "AIza-env"}), fake)

		_, err := g.Generate(context.Background(), Request{Transcript: "text"})
		appErr, ok := errors.As(err)
		require.True(t, ok)
		assert.Equal(t, errors.ErrorTypeUpstream, appErr.Type, "status %d", status)
		assert.Equal(t, http.StatusInternalServerError, appErr.StatusCode)
		assert.Equal(t, status, appErr.Details["upstreamStatus"])
		assert.Equal(t, 1, fake.calls, "no retry on status %d", status)
	}
}

func TestGenerate_MalformedResponseKeepsType(t *testing.T) {
	fake := &countingProvider{id: providers.Gemini, err: errors.NewMalformedResponseError("gemini", []byte("<html>"), nil)}
	g := newTestGenerator(serverKeys(map[providers.ID]string{providers.Gemini: "AIza-env"}), fake)

	_, err := g.Generate(context.Background(), Request{Transcript: "text"})
	assert.True(t, errors.IsType(err, errors.ErrorTypeMalformedUpstream))
}

func TestGenerate_Timeout(t *testing.T) {
	fake := &countingProvider{id: providers.Gemini, delay: time.Minute}
	g := newTestGenerator(serverKeys(map[providers.ID]string{providers.Gemini: "AIza-env"}), fake)
	g.cfg.Timeout = 20 * time.Millisecond

	_, err := g.Generate(context.Background(), Request{Transcript: "text"})
	appErr, ok := errors.As(err)
	require.True(t, ok)
	assert.Equal(t, errors.ErrorTypeTimeout, appErr.Type)
	assert.Equal(t, http.StatusGatewayTimeout, appErr.StatusCode)
}

func TestGenerate_DefaultProviderFallsToCandidate(t *testing.T) {
	gemini := &countingProvider{id: providers.Gemini}
	anthropic := &countingProvider{id: providers.Anthropic, text: "ok"}
	g := newTestGenerator(serverKeys(map[providers.ID]string{providers.Anthropic: "sk-ant-env"}), gemini, anthropic)

	assert.Equal(t, providers.Anthropic, g.DefaultProvider())

	draft, err := g.Generate(context.Background(), Request{Transcript: "text"})
	require.NoError(t, err)
	assert.Equal(t, providers.Anthropic, draft.ProviderID)
	assert.Zero(t, gemini.calls)
	assert.Equal(t, 1, anthropic.calls)
}

func TestGenerate_TranscriptionOnlyProviderIsUnsupported(t *testing.T) {
	g := newTestGenerator(serverKeys(map[providers.ID]string{providers.Groq: "gsk_env"}))

	_, err := g.Generate(context.Background(), Request{Transcript: "text", ProviderID: providers.Groq})
	assert.True(t, errors.IsType(err, errors.ErrorTypeUnsupportedProvider))
}

func TestNewProviders(t *testing.T) {
	impls := NewProviders(http.DefaultClient)
	assert.Len(t, impls, 3)
	for id, p := range impls {
		assert.Equal(t, id, p.ID())
	}
}
