package provider

import (
	"github.com/polychat/polychat/pkg/types"
)

// rawUsage is the provider-agnostic shape the adapters extract from a
// response or terminal stream chunk before reconciliation. Field names on
// the wire differ per provider (input_tokens/output_tokens vs
// prompt_tokens/completion_tokens); adapters translate into this one shape.
type rawUsage struct {
	PromptTokens     int
	CompletionTokens int
	ReasoningTokens  int
	CachedTokens     int
}

// reconcileUsage normalizes a raw usage block into types.Usage. Costs come
// from the configured model pricing, never from the provider response, at
// price-per-million-token rates. Cached prompt tokens are priced at the
// cached rate when the model declares one; otherwise they bill as regular
// input. Throughput is guarded against a zero elapsed time.
func reconcileUsage(raw rawUsage, model types.ModelConfig, providerID string, elapsed, delay float64) types.Usage {
	total := raw.PromptTokens + raw.CompletionTokens

	inputCost := float64(raw.PromptTokens) * model.PriceInputTokens / 1_000_000
	if model.PriceCachedTokens > 0 && raw.CachedTokens > 0 && raw.CachedTokens <= raw.PromptTokens {
		uncached := raw.PromptTokens - raw.CachedTokens
		inputCost = float64(uncached)*model.PriceInputTokens/1_000_000 +
			float64(raw.CachedTokens)*model.PriceCachedTokens/1_000_000
	}

	var throughput float64
	if elapsed > 0 {
		throughput = float64(total) / elapsed
	}

	return types.Usage{
		Provider:         providerID,
		Model:            model.DisplayName,
		PromptTokens:     raw.PromptTokens,
		CompletionTokens: raw.CompletionTokens,
		ReasoningTokens:  raw.ReasoningTokens,
		CachedTokens:     raw.CachedTokens,
		TotalTokens:      total,
		InputCost:        inputCost,
		OutputCost:       float64(raw.CompletionTokens) * model.PriceOutputTokens / 1_000_000,
		Throughput:       throughput,
		ResponseTime:     elapsed,
		Delay:            delay,
	}
}
