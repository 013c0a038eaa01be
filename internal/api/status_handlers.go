package api

import (
	"net/http"
	"strings"

	"github.com/gijiroku/minutes/internal/errors"
	"github.com/gijiroku/minutes/internal/health"
	"github.com/gijiroku/minutes/internal/providers"
)

// providerAliases maps legacy check route names to provider ids.
var providerAliases = map[string]providers.ID{
	"claude": providers.Anthropic,
	"google": providers.Gemini,
}

type ProvidersResponse struct {
	Transcription []providers.Descriptor `json:"transcription"`
	AI            []providers.Descriptor `json:"ai"`
}

func (s *Server) HandleProviders(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, ProvidersResponse{
		Transcription: s.registry.List(providers.KindTranscription),
		AI:            s.registry.List(providers.KindAI),
	})
}

type CheckProviderRequest struct {
	APIKey string `json:"apiKey,omitempty"`
	Region string `json:"region,omitempty"`
}

type CheckProviderResponse struct {
	Available   bool                `json:"available"`
	Success     bool                `json:"success"`
	Message     string              `json:"message"`
	ValidFormat bool                `json:"validFormat"`
	Configured  bool                `json:"configured"`
	KeySource   providers.KeySource `json:"keySource"`
	Provider    providers.ID        `json:"provider"`
	Kind        providers.Kind      `json:"kind"`
}

// HandleCheckProvider probes one provider. GET uses the server credential;
// POST may carry the caller's key. The kind defaults to ai when the provider
// exists for both kinds; pass ?kind=transcription to check the speech side.
func (s *Server) HandleCheckProvider(w http.ResponseWriter, r *http.Request) {
	name := strings.ToLower(pathParam(r, "provider"))
	id := providers.ID(name)
	if alias, ok := providerAliases[name]; ok {
		id = alias
	}

	var req CheckProviderRequest
	if r.Method == http.MethodPost {
		if err := decodeJSON(w, r, &req); err != nil && !errors.IsType(err, errors.ErrorTypeMissingInput) {
			s.writeError(w, r, err)
			return
		}
	}

	kind := s.kindFor(id, providers.Kind(r.URL.Query().Get("kind")))
	status := s.checker.Check(r.Context(), kind, id, req.APIKey, req.Region)

	writeJSON(w, http.StatusOK, CheckProviderResponse{
		Available:   status.Reachable,
		Success:     status.Reachable,
		Message:     status.Message,
		ValidFormat: status.ValidFormat,
		Configured:  status.Configured,
		KeySource:   status.KeySource,
		Provider:    status.ProviderID,
		Kind:        status.Kind,
	})
}

func (s *Server) kindFor(id providers.ID, requested providers.Kind) providers.Kind {
	if requested == providers.KindAI || requested == providers.KindTranscription {
		return requested
	}
	if _, ok := s.registry.Get(providers.KindAI, id); ok {
		return providers.KindAI
	}
	return providers.KindTranscription
}

type PublicStatusResponse struct {
	Providers []health.ProviderStatus `json:"providers"`
}

// HandlePublicStatus reports the AI providers with server credentials only.
func (s *Server) HandlePublicStatus(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, PublicStatusResponse{
		Providers: s.checker.CheckAll(r.Context(), providers.KindAI),
	})
}
