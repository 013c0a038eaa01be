package transcription

import (
	"net/http"

	"github.com/gijiroku/minutes/internal/providers"
)

// NewOpenAIProvider creates the hosted Whisper provider.
func NewOpenAIProvider(httpClient *http.Client) *WhisperProvider {
	return &WhisperProvider{
		id:         providers.OpenAI,
		model:      "whisper-1",
		httpClient: httpClient,
		baseURL:    "https://api.openai.com/v1",
	}
}
