package transcription

import (
	"net/http"

	"github.com/gijiroku/minutes/internal/providers"
)

// NewGroqProvider creates a Whisper provider backed by Groq's
// OpenAI-compatible endpoint.
func NewGroqProvider(httpClient *http.Client) *WhisperProvider {
	return &WhisperProvider{
		id:         providers.Groq,
		model:      "whisper-large-v3-turbo",
		httpClient: httpClient,
		baseURL:    "https://api.groq.com/openai/v1",
	}
}
