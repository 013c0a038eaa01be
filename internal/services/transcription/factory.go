package transcription

import (
	"net/http"

	"github.com/gijiroku/minutes/internal/providers"
)

// NewProviders returns one implementation per server-side transcription
// provider. The browser provider has no server implementation.
func NewProviders(httpClient *http.Client) map[providers.ID]Provider {
	set := []Provider{
		NewOpenAIProvider(httpClient),
		NewGroqProvider(httpClient),
		NewAssemblyAIProvider(httpClient),
		NewAzureProvider(httpClient),
		NewVoskProvider(),
	}
	out := make(map[providers.ID]Provider, len(set))
	for _, p := range set {
		out[p.ID()] = p
	}
	return out
}
