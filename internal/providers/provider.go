// Package providers describes the transcription and AI backends the service
// can talk to, and resolves which credential a request should use.
package providers

// ID identifies a provider within its kind. The same ID may exist for both
// kinds (openai transcribes and generates).
type ID string

const (
	Browser    ID = "browser"
	OpenAI     ID = "openai"
	Groq       ID = "groq"
	AssemblyAI ID = "assemblyai"
	Azure      ID = "azure"
	Vosk       ID = "vosk"
	Gemini     ID = "gemini"
	Anthropic  ID = "anthropic"
)

type Kind string

const (
	KindTranscription Kind = "transcription"
	KindAI            Kind = "ai"
)

// KeySource says where the effective credential came from.
type KeySource string

const (
	KeySourceUser KeySource = "user"
	KeySourceEnv  KeySource = "env"
	KeySourceNone KeySource = "none"
)

type CostTier string

const (
	CostFree     CostTier = "free"
	CostFreemium CostTier = "freemium"
	CostPaid     CostTier = "paid"
)

// Descriptor is the immutable capability metadata of one provider.
type Descriptor struct {
	ID          ID        `json:"id"`
	Kind        Kind      `json:"kind"`
	DisplayName string    `json:"displayName"`
	RequiresKey bool      `json:"requiresKey"`
	KeySource   KeySource `json:"keySource"`
	CostTier    CostTier  `json:"costTier"`
	// FreeQuotaHint is shown to users deciding between providers.
	FreeQuotaHint string `json:"freeQuotaHint,omitempty"`
	// MaxUploadBytes is the upstream limit; the serving layer cap is lower.
	MaxUploadBytes int64 `json:"maxUploadBytes,omitempty"`
	// ServerSide is false for providers that only run in the user's browser.
	ServerSide bool `json:"serverSide"`
	// NeedsRegion marks providers whose endpoint depends on a region.
	NeedsRegion bool `json:"needsRegion,omitempty"`
	// NeedsEndpoint marks self-hosted providers reached through a URL.
	NeedsEndpoint bool `json:"needsEndpoint,omitempty"`
}

// Credential is the effective credential for one call.
type Credential struct {
	ProviderID ID
	Key        string
	Source     KeySource
	Region     string
	Endpoint   string
	// Warning is set when the key fails the advisory format check. It never
	// blocks the call.
	Warning string
}

// Configured reports whether the credential carries anything usable.
func (c Credential) Configured() bool {
	return c.Key != "" || c.Endpoint != ""
}
