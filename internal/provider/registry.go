package provider

import (
	"fmt"
	"sort"
	"sync"

	"github.com/polychat/polychat/internal/logging"
	"github.com/polychat/polychat/pkg/types"
)

// ModelRef identifies a model together with the provider that serves it.
type ModelRef struct {
	Provider    string  `json:"provider"`
	Model       string  `json:"model"`
	DisplayName string  `json:"displayName"`
	InputPrice  float64 `json:"inputPrice"`
	OutputPrice float64 `json:"outputPrice"`
}

// Registry manages all configured providers.
type Registry struct {
	mu        sync.RWMutex
	providers map[string]Provider
}

// NewRegistry creates an empty provider registry.
func NewRegistry() *Registry {
	return &Registry{providers: make(map[string]Provider)}
}

// Register adds a provider to the registry.
func (r *Registry) Register(p Provider) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.providers[p.ID()] = p
}

// Get retrieves a provider by ID.
func (r *Registry) Get(providerID string) (Provider, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	p, ok := r.providers[providerID]
	if !ok {
		return nil, fmt.Errorf("provider not found: %s", providerID)
	}
	return p, nil
}

// List returns all registered providers sorted by ID.
func (r *Registry) List() []Provider {
	r.mu.RLock()
	defer r.mu.RUnlock()

	providers := make([]Provider, 0, len(r.providers))
	for _, p := range r.providers {
		providers = append(providers, p)
	}
	sort.Slice(providers, func(i, j int) bool {
		return providers[i].ID() < providers[j].ID()
	})
	return providers
}

// AllModels returns every configured model across providers, sorted by
// provider then model ID.
func (r *Registry) AllModels() []ModelRef {
	var refs []ModelRef
	for _, p := range r.List() {
		for modelID, model := range p.Models() {
			name := model.DisplayName
			if name == "" {
				name = modelID
			}
			refs = append(refs, ModelRef{
				Provider:    p.ID(),
				Model:       modelID,
				DisplayName: name,
				InputPrice:  model.PriceInputTokens,
				OutputPrice: model.PriceOutputTokens,
			})
		}
	}
	sort.Slice(refs, func(i, j int) bool {
		if refs[i].Provider != refs[j].Provider {
			return refs[i].Provider < refs[j].Provider
		}
		return refs[i].Model < refs[j].Model
	})
	return refs
}

// InitializeProviders builds a registry from configuration. Providers
// without an API key are skipped with a warning rather than failing the
// whole startup.
func InitializeProviders(cfg *types.Config) *Registry {
	log := logging.For("provider")
	registry := NewRegistry()

	for providerID, providerCfg := range cfg.Providers {
		p, err := New(providerID, Config{
			APIKey:  providerCfg.APIKey,
			BaseURL: providerCfg.BaseURL,
			Models:  providerCfg.Models,
			Retries: providerCfg.Retries,
		})
		if err != nil {
			log.Warn().Str("provider", providerID).Err(err).Msg("skipping provider")
			continue
		}
		registry.Register(p)
		log.Info().Str("provider", providerID).Int("models", len(providerCfg.Models)).Msg("provider registered")
	}

	return registry
}
