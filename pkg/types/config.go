// Package types provides the core data types shared across the polychat
// packages: messages and their content parts, chats, provider and model
// configuration, and normalized usage accounting.
package types

// Provider identifiers for the supported backends. OpenAI-compatible
// services (Nebius, SambaNova, local gateways) register under their own
// name but use the OpenAI wire format.
const (
	ProviderOpenAI    = "openai"
	ProviderAnthropic = "anthropic"
)

// Config is the process-wide application configuration.
type Config struct {
	Providers   map[string]ProviderConfig `json:"providers" yaml:"providers"`
	RecentModel *RecentModel              `json:"recentModel,omitempty" yaml:"recentModel,omitempty"`

	// MaxContextMessages bounds the context-length setting of the chat
	// manager. Zero means the built-in default applies.
	MaxContextMessages int `json:"maxContextMessages,omitempty" yaml:"maxContextMessages,omitempty"`
}

// ProviderConfig holds credentials and the model catalog for one provider.
type ProviderConfig struct {
	APIKey  string                 `json:"apiKey" yaml:"apiKey"`
	BaseURL string                 `json:"baseURL,omitempty" yaml:"baseURL,omitempty"`
	Models  map[string]ModelConfig `json:"models" yaml:"models"`

	// Retries bounds transient-error retries on blocking completions.
	Retries uint `json:"retries,omitempty" yaml:"retries,omitempty"`
}

// ModelConfig describes one model's pricing and limits. Prices are USD per
// one million tokens.
type ModelConfig struct {
	ModelID            string   `json:"modelId" yaml:"modelId"`
	DisplayName        string   `json:"displayName" yaml:"displayName"`
	PriceInputTokens   float64  `json:"priceInputTokens" yaml:"priceInputTokens"`
	PriceOutputTokens  float64  `json:"priceOutputTokens" yaml:"priceOutputTokens"`
	PriceCachedTokens  float64  `json:"priceCachedTokens,omitempty" yaml:"priceCachedTokens,omitempty"`
	MaxContextTokens   int      `json:"maxContextTokens" yaml:"maxContextTokens"`
	MaxOutputTokens    int      `json:"maxOutputTokens,omitempty" yaml:"maxOutputTokens,omitempty"`
	SupportedFileTypes []string `json:"supportedFileTypes,omitempty" yaml:"supportedFileTypes,omitempty"`
}

// RecentModel records the most recent provider/model selection, used as the
// default on restart.
type RecentModel struct {
	Provider string `json:"provider" yaml:"provider"`
	ModelID  string `json:"modelId" yaml:"modelId"`
}

// GetProvider returns the configuration for a provider, if present.
func (c *Config) GetProvider(id string) (ProviderConfig, bool) {
	pc, ok := c.Providers[id]
	return pc, ok
}

// GetModel returns a model's configuration from a provider's catalog.
func (c *Config) GetModel(providerID, modelID string) (ModelConfig, bool) {
	pc, ok := c.Providers[providerID]
	if !ok {
		return ModelConfig{}, false
	}
	mc, ok := pc.Models[modelID]
	return mc, ok
}

// SetRecentModel records the most recently selected provider and model.
func (c *Config) SetRecentModel(providerID, modelID string) {
	c.RecentModel = &RecentModel{Provider: providerID, ModelID: modelID}
}

// GetRecentModel returns the saved selection, falling back to the first
// configured model of the first provider that has one.
func (c *Config) GetRecentModel() *RecentModel {
	if c.RecentModel != nil {
		return c.RecentModel
	}
	for providerID, pc := range c.Providers {
		for modelID := range pc.Models {
			return &RecentModel{Provider: providerID, ModelID: modelID}
		}
	}
	return nil
}
