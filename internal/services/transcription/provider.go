package transcription

import (
	"context"

	"github.com/gijiroku/minutes/internal/providers"
)

// MaxAudioBytes is the serving-layer cap. It is lower than any upstream's own
// limit, so it is the one that binds.
const MaxAudioBytes int64 = 10 << 20

// DefaultLanguage is sent when the caller does not pick one.
const DefaultLanguage = "ja"

// Audio is an uploaded recording held in memory.
type Audio struct {
	Data     []byte
	FileName string
	MimeType string
}

// Options are pass-through hints for the upstream.
type Options struct {
	Language string
	Model    string
}

// Provider is one speech-to-text backend.
type Provider interface {
	ID() providers.ID
	// Transcribe performs a single remote transcription attempt.
	Transcribe(ctx context.Context, audio Audio, opts Options, cred providers.Credential) (string, error)
	// Probe performs a cheap round trip that proves the credential works.
	Probe(ctx context.Context, cred providers.Credential) error
}
