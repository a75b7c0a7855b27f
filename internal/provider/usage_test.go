package provider

import (
	"math"
	"testing"

	"github.com/polychat/polychat/pkg/types"
)

func almostEqual(a, b float64) bool {
	return math.Abs(a-b) < 1e-12
}

func TestReconcileUsageCosts(t *testing.T) {
	model := types.ModelConfig{
		DisplayName:       "GPT-4o",
		PriceInputTokens:  10.0,
		PriceOutputTokens: 30.0,
	}

	u := reconcileUsage(rawUsage{PromptTokens: 1, CompletionTokens: 1}, model, "openai", 2.0, 0.5)

	if !almostEqual(u.InputCost, 0.00001) {
		t.Errorf("InputCost = %v, want 0.00001", u.InputCost)
	}
	if !almostEqual(u.OutputCost, 0.00003) {
		t.Errorf("OutputCost = %v, want 0.00003", u.OutputCost)
	}
	if !almostEqual(u.TotalCost(), 0.00004) {
		t.Errorf("TotalCost = %v, want 0.00004", u.TotalCost())
	}
	if u.TotalTokens != 2 {
		t.Errorf("TotalTokens = %d, want 2", u.TotalTokens)
	}
	if !almostEqual(u.Throughput, 1.0) {
		t.Errorf("Throughput = %v, want 1.0", u.Throughput)
	}
	if u.Provider != "openai" || u.Model != "GPT-4o" {
		t.Errorf("identity = %s/%s", u.Provider, u.Model)
	}
	if u.Delay != 0.5 {
		t.Errorf("Delay = %v, want 0.5", u.Delay)
	}
}

func TestReconcileUsageCachedPricing(t *testing.T) {
	model := types.ModelConfig{
		PriceInputTokens:  10.0,
		PriceOutputTokens: 30.0,
		PriceCachedTokens: 1.0,
	}

	u := reconcileUsage(rawUsage{PromptTokens: 1000, CompletionTokens: 10, CachedTokens: 600}, model, "openai", 1.0, 0)

	// 400 uncached at 10.0 + 600 cached at 1.0, per million
	want := 400*10.0/1_000_000 + 600*1.0/1_000_000
	if !almostEqual(u.InputCost, want) {
		t.Errorf("InputCost = %v, want %v", u.InputCost, want)
	}
}

func TestReconcileUsageCachedWithoutRate(t *testing.T) {
	model := types.ModelConfig{PriceInputTokens: 10.0}

	u := reconcileUsage(rawUsage{PromptTokens: 1000, CachedTokens: 600}, model, "openai", 1.0, 0)

	if !almostEqual(u.InputCost, 1000*10.0/1_000_000) {
		t.Errorf("InputCost = %v, want full input rate", u.InputCost)
	}
}

func TestReconcileUsageZeroElapsed(t *testing.T) {
	u := reconcileUsage(rawUsage{PromptTokens: 5, CompletionTokens: 5}, types.ModelConfig{}, "openai", 0, 0)
	if u.Throughput != 0 {
		t.Errorf("Throughput = %v with zero elapsed, want 0", u.Throughput)
	}
}

func TestReconcileUsageZeroTokens(t *testing.T) {
	u := reconcileUsage(rawUsage{}, types.ModelConfig{PriceInputTokens: 10, PriceOutputTokens: 30}, "anthropic", 1.0, 0)
	if u.TotalCost() != 0 {
		t.Errorf("TotalCost = %v with zero tokens, want 0", u.TotalCost())
	}
	if u.Throughput != 0 {
		t.Errorf("Throughput = %v with zero tokens, want 0", u.Throughput)
	}
}
