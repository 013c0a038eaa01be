package minutes

import (
	"context"
	"net/http"

	"github.com/gijiroku/minutes/internal/providers"
)

// Provider is one text-generation backend. Generate performs exactly one
// remote call and returns the model's text untouched.
type Provider interface {
	ID() providers.ID
	Generate(ctx context.Context, systemPrompt, userContent string, cred providers.Credential) (string, error)
	Probe(ctx context.Context, cred providers.Credential) error
}

// NewProviders returns one implementation per AI provider.
func NewProviders(httpClient *http.Client) map[providers.ID]Provider {
	set := []Provider{
		NewOpenAIProvider(httpClient),
		NewGeminiProvider(httpClient),
		NewAnthropicProvider(httpClient),
	}
	out := make(map[providers.ID]Provider, len(set))
	for _, p := range set {
		out[p.ID()] = p
	}
	return out
}
