package providers

import (
	"regexp"
	"strings"

	"github.com/gijiroku/minutes/internal/config"
	"github.com/gijiroku/minutes/internal/errors"
)

var hex32 = regexp.MustCompile(`^[0-9a-fA-F]{32}$`)

// ServerCredentials are the keys configured on the server.
type ServerCredentials struct {
	Keys        map[ID]string
	AzureRegion string
	VoskURL     string
}

// ServerCredentialsFromConfig collects the provider keys from cfg.
func ServerCredentialsFromConfig(cfg *config.Config) ServerCredentials {
	return ServerCredentials{
		Keys: map[ID]string{
			OpenAI:     cfg.OpenAIKey,
			Groq:       cfg.GroqKey,
			AssemblyAI: cfg.AssemblyAIKey,
			Azure:      cfg.AzureSpeechKey,
			Gemini:     cfg.GeminiKey,
			Anthropic:  cfg.AnthropicKey,
		},
		AzureRegion: cfg.AzureSpeechRegion,
		VoskURL:     cfg.VoskURL,
	}
}

// Resolver picks the effective credential per request. A caller-supplied key
// always wins over the server-configured one.
type Resolver struct {
	registry *Registry
	server   ServerCredentials
}

func NewResolver(registry *Registry, server ServerCredentials) *Resolver {
	return &Resolver{
		registry: registry,
		server:   server,
	}
}

// Registry returns the registry the resolver was built with.
func (r *Resolver) Registry() *Registry {
	return r.registry
}

// Resolve returns the credential for (kind, id). userKey and region are the
// optional per-request overrides.
func (r *Resolver) Resolve(kind Kind, id ID, userKey, region string) (Credential, error) {
	desc, ok := r.registry.Get(kind, id)
	if !ok {
		return Credential{}, errors.NewUnsupportedProviderError(string(id), "unknown "+string(kind)+" provider")
	}
	if !desc.ServerSide {
		return Credential{}, errors.NewUnsupportedProviderError(string(id), "runs in the browser only")
	}

	cred := Credential{ProviderID: id, Source: KeySourceNone}

	if key := strings.TrimSpace(userKey); key != "" {
		cred.Key = key
		cred.Source = KeySourceUser
	} else if key := strings.TrimSpace(r.server.Keys[id]); key != "" {
		cred.Key = key
		cred.Source = KeySourceEnv
	}

	if desc.RequiresKey && cred.Key == "" {
		return Credential{}, errors.NewNoCredentialError(string(id))
	}

	if desc.NeedsRegion {
		cred.Region = strings.TrimSpace(region)
		if cred.Region == "" {
			cred.Region = r.server.AzureRegion
		}
		if cred.Region == "" {
			return Credential{}, errors.NewUnsupportedProviderError(string(id), "no region configured")
		}
	}

	if desc.NeedsEndpoint {
		cred.Endpoint = r.server.VoskURL
		if cred.Endpoint == "" {
			return Credential{}, errors.NewUnsupportedProviderError(string(id), "no server URL configured")
		}
	}

	if cred.Key != "" && !ValidateKeyFormat(id, cred.Key) {
		cred.Warning = "API key does not look like a " + desc.DisplayName + " key; it will still be used"
	}

	return cred, nil
}

// Select returns the first preferred provider that is usable with server
// credentials alone. It never calls the network.
func (r *Resolver) Select(kind Kind, preferred ...ID) (ID, bool) {
	for _, id := range preferred {
		if _, err := r.Resolve(kind, id, "", ""); err == nil {
			return id, true
		}
	}
	return "", false
}

// ValidateKeyFormat is an advisory heuristic. Vendors change key formats, so
// a false result must only ever produce a warning.
func ValidateKeyFormat(id ID, key string) bool {
	switch id {
	case Anthropic:
		return strings.HasPrefix(key, "sk-ant-")
	case OpenAI:
		return strings.HasPrefix(key, "sk-")
	case Gemini:
		return strings.HasPrefix(key, "AIza")
	case Groq:
		return strings.HasPrefix(key, "gsk_")
	case AssemblyAI:
		return hex32.MatchString(key)
	case Azure:
		return hex32.MatchString(key) || len(key) == 84
	default:
		return true
	}
}
