package providers

import "sort"

const (
	mib = 1 << 20
)

// Registry holds the provider descriptors known to the process.
type Registry struct {
	byKind map[Kind]map[ID]Descriptor
	order  map[Kind][]ID
}

// NewRegistry builds a registry from descriptors. Listing order follows the
// argument order.
func NewRegistry(descriptors ...Descriptor) *Registry {
	r := &Registry{
		byKind: make(map[Kind]map[ID]Descriptor),
		order:  make(map[Kind][]ID),
	}
	for _, d := range descriptors {
		if r.byKind[d.Kind] == nil {
			r.byKind[d.Kind] = make(map[ID]Descriptor)
		}
		if _, exists := r.byKind[d.Kind][d.ID]; !exists {
			r.order[d.Kind] = append(r.order[d.Kind], d.ID)
		}
		r.byKind[d.Kind][d.ID] = d
	}
	return r
}

// DefaultRegistry returns the providers this service ships with.
func DefaultRegistry() *Registry {
	return NewRegistry(
		Descriptor{
			ID: Browser, Kind: KindTranscription, DisplayName: "Browser speech recognition",
			KeySource: KeySourceNone, CostTier: CostFree,
			FreeQuotaHint: "unlimited, runs in the browser",
		},
		Descriptor{
			ID: OpenAI, Kind: KindTranscription, DisplayName: "OpenAI Whisper",
			RequiresKey: true, KeySource: KeySourceEnv, CostTier: CostPaid,
			FreeQuotaHint: "no free tier", MaxUploadBytes: 25 * mib, ServerSide: true,
		},
		Descriptor{
			ID: Groq, Kind: KindTranscription, DisplayName: "Groq Whisper",
			RequiresKey: true, KeySource: KeySourceEnv, CostTier: CostFreemium,
			FreeQuotaHint: "free tier with hourly audio limits", MaxUploadBytes: 25 * mib, ServerSide: true,
		},
		Descriptor{
			ID: AssemblyAI, Kind: KindTranscription, DisplayName: "AssemblyAI",
			RequiresKey: true, KeySource: KeySourceEnv, CostTier: CostFreemium,
			FreeQuotaHint: "free credit on sign-up", MaxUploadBytes: 2200 * mib, ServerSide: true,
		},
		Descriptor{
			ID: Azure, Kind: KindTranscription, DisplayName: "Azure Speech",
			RequiresKey: true, KeySource: KeySourceEnv, CostTier: CostFreemium,
			FreeQuotaHint: "5 audio hours per month on F0", MaxUploadBytes: 25 * mib, ServerSide: true,
			NeedsRegion: true,
		},
		Descriptor{
			ID: Vosk, Kind: KindTranscription, DisplayName: "Vosk (offline)",
			KeySource: KeySourceNone, CostTier: CostFree,
			FreeQuotaHint: "self-hosted", ServerSide: true, NeedsEndpoint: true,
		},
		Descriptor{
			ID: OpenAI, Kind: KindAI, DisplayName: "OpenAI",
			RequiresKey: true, KeySource: KeySourceEnv, CostTier: CostPaid,
			FreeQuotaHint: "no free tier", ServerSide: true,
		},
		Descriptor{
			ID: Gemini, Kind: KindAI, DisplayName: "Google Gemini",
			RequiresKey: true, KeySource: KeySourceEnv, CostTier: CostFreemium,
			FreeQuotaHint: "free tier with per-minute limits", ServerSide: true,
		},
		Descriptor{
			ID: Anthropic, Kind: KindAI, DisplayName: "Anthropic Claude",
			RequiresKey: true, KeySource: KeySourceEnv, CostTier: CostPaid,
			FreeQuotaHint: "no free tier", ServerSide: true,
		},
	)
}

// Get returns the descriptor for id within kind.
func (r *Registry) Get(kind Kind, id ID) (Descriptor, bool) {
	d, ok := r.byKind[kind][id]
	return d, ok
}

// List returns the descriptors of kind in registration order.
func (r *Registry) List(kind Kind) []Descriptor {
	ids := r.order[kind]
	out := make([]Descriptor, 0, len(ids))
	for _, id := range ids {
		out = append(out, r.byKind[kind][id])
	}
	return out
}

// Kinds returns the kinds present in the registry, sorted.
func (r *Registry) Kinds() []Kind {
	kinds := make([]Kind, 0, len(r.byKind))
	for k := range r.byKind {
		kinds = append(kinds, k)
	}
	sort.Slice(kinds, func(i, j int) bool { return kinds[i] < kinds[j] })
	return kinds
}
