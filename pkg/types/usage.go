package types

// Usage is the normalized token/cost/latency accounting for one completed
// request. Derived by the reconciler, never hand-edited.
type Usage struct {
	Provider string `json:"provider"`
	Model    string `json:"model"`

	PromptTokens     int `json:"promptTokens"`
	CompletionTokens int `json:"completionTokens"`
	ReasoningTokens  int `json:"reasoningTokens"`
	CachedTokens     int `json:"cachedTokens"`
	TotalTokens      int `json:"totalTokens"`

	InputCost  float64 `json:"inputCost"`
	OutputCost float64 `json:"outputCost"`

	// Throughput is total tokens per second of wall-clock response time.
	Throughput   float64 `json:"throughput"`
	ResponseTime float64 `json:"responseTime"` // seconds
	Delay        float64 `json:"delay"`        // seconds to first streamed fragment
}

// TotalCost returns the combined input and output cost.
func (u Usage) TotalCost() float64 {
	return u.InputCost + u.OutputCost
}
