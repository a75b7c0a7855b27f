package provider

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/polychat/polychat/pkg/types"
)

func claudeModels() map[string]types.ModelConfig {
	return map[string]types.ModelConfig{
		"claude-sonnet-4": {
			ModelID:           "claude-sonnet-4",
			DisplayName:       "Claude Sonnet 4",
			PriceInputTokens:  3.0,
			PriceOutputTokens: 15.0,
			MaxOutputTokens:   8192,
		},
	}
}

func newTestAnthropicProvider(t *testing.T, handler http.HandlerFunc) *anthropicProvider {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	return newAnthropicProvider("anthropic", Config{
		APIKey:  "test-key",
		BaseURL: server.URL,
		Models:  claudeModels(),
	})
}

func TestAnthropicComplete(t *testing.T) {
	p := newTestAnthropicProvider(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/messages", r.URL.Path)
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, `{
			"id": "msg_1",
			"type": "message",
			"role": "assistant",
			"model": "claude-sonnet-4",
			"content": [{"type": "text", "text": "Hello there"}],
			"stop_reason": "end_turn",
			"usage": {"input_tokens": 12, "output_tokens": 4, "cache_read_input_tokens": 2, "cache_creation_input_tokens": 0}
		}`)
	})

	msgs := []types.Message{types.NewMessage(types.RoleUser, types.NewTextPart("hi"))}
	got := p.Complete(context.Background(), msgs, "claude-sonnet-4")

	assert.Equal(t, "Hello there", got)

	stats := p.Stats()
	assert.Equal(t, 12, stats.PromptTokens)
	assert.Equal(t, 4, stats.CompletionTokens)
	assert.Equal(t, 2, stats.CachedTokens)
	assert.InDelta(t, 12*3.0/1_000_000, stats.InputCost, 1e-12)
}

func TestAnthropicCompleteAuthError(t *testing.T) {
	p := newTestAnthropicProvider(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusUnauthorized)
		fmt.Fprint(w, `{"type": "error", "error": {"type": "authentication_error", "message": "invalid x-api-key"}}`)
	})

	msgs := []types.Message{types.NewMessage(types.RoleUser, types.NewTextPart("hi"))}
	got := p.Complete(context.Background(), msgs, "claude-sonnet-4")

	require.True(t, IsErrorText(got))
	assert.Contains(t, got, PrefixAuthenticationError)
}

func TestAnthropicCompleteModelNotConfigured(t *testing.T) {
	p := newTestAnthropicProvider(t, func(w http.ResponseWriter, r *http.Request) {
		t.Error("unconfigured model must not reach the network")
	})

	msgs := []types.Message{types.NewMessage(types.RoleUser, types.NewTextPart("hi"))}
	got := p.Complete(context.Background(), msgs, "claude-opus-9")

	require.True(t, IsErrorText(got))
	assert.Contains(t, got, PrefixConfigurationError)
}

func TestAnthropicStream(t *testing.T) {
	p := newTestAnthropicProvider(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/event-stream")
		fmt.Fprint(w, `event: message_start
data: {"type":"message_start","message":{"id":"msg_1","type":"message","role":"assistant","model":"claude-sonnet-4","content":[],"stop_reason":null,"stop_sequence":null,"usage":{"input_tokens":8,"output_tokens":1}}}

event: content_block_start
data: {"type":"content_block_start","index":0,"content_block":{"type":"text","text":""}}

event: content_block_delta
data: {"type":"content_block_delta","index":0,"delta":{"type":"text_delta","text":"Hel"}}

event: content_block_delta
data: {"type":"content_block_delta","index":0,"delta":{"type":"text_delta","text":"lo"}}

event: content_block_stop
data: {"type":"content_block_stop","index":0}

event: message_delta
data: {"type":"message_delta","delta":{"stop_reason":"end_turn","stop_sequence":null},"usage":{"output_tokens":2}}

event: message_stop
data: {"type":"message_stop"}

`)
	})

	msgs := []types.Message{types.NewMessage(types.RoleUser, types.NewTextPart("hi"))}
	stream := p.Stream(context.Background(), msgs, "claude-sonnet-4")
	defer stream.Close()

	var fragments []string
	for {
		frag, err := stream.Recv()
		if err == io.EOF {
			break
		}
		require.NoError(t, err)
		fragments = append(fragments, frag)
	}

	assert.Equal(t, []string{"Hel", "lo"}, fragments)

	stats := p.Stats()
	assert.Equal(t, 8, stats.PromptTokens)
	assert.Equal(t, 2, stats.CompletionTokens)
	assert.Greater(t, stats.Delay, 0.0)
}

func TestToAnthropicTurnsLiftsSystemMessage(t *testing.T) {
	msgs := []types.Message{
		types.NewMessage(types.RoleSystem, types.NewTextPart("be terse")),
		types.NewMessage(types.RoleUser, types.NewTextPart("hi")),
		types.NewMessage(types.RoleAssistant, types.NewTextPart("hello")),
		types.NewMessage(types.RoleSystem, types.NewTextPart("late system, dropped")),
	}

	system, turns := toAnthropicTurns(msgs)

	assert.Equal(t, "be terse", system)
	require.Len(t, turns, 2)
	assert.Equal(t, "user", string(turns[0].Role))
	assert.Equal(t, "assistant", string(turns[1].Role))
}

func TestAnthropicBuildRequestMaxTokens(t *testing.T) {
	p := newAnthropicProvider("anthropic", Config{APIKey: "k", Models: claudeModels()})
	model := p.models["claude-sonnet-4"]
	msgs := []types.Message{types.NewMessage(types.RoleUser, types.NewTextPart("hi"))}

	// model ceiling when the parameter is unset
	params := p.buildRequest("claude-sonnet-4", model, msgs)
	assert.Equal(t, int64(8192), params.MaxTokens)

	// explicit parameter wins
	require.True(t, p.params.Set("max_tokens", 1024))
	params = p.buildRequest("claude-sonnet-4", model, msgs)
	assert.Equal(t, int64(1024), params.MaxTokens)

	// fallback default when neither is set
	p.params.Set("max_tokens", nil)
	params = p.buildRequest("claude-sonnet-4", types.ModelConfig{}, msgs)
	assert.Equal(t, int64(defaultAnthropicMaxTokens), params.MaxTokens)
}

func TestAnthropicAdapterParams(t *testing.T) {
	p := newAnthropicProvider("anthropic", Config{APIKey: "k", Models: claudeModels()})

	assert.True(t, p.Params().Set("temperature", 1.0))
	assert.False(t, p.Params().Set("temperature", 1.5))
	assert.True(t, p.Params().Set("top_k", 0))
	assert.False(t, p.Params().Set("top_k", -1))
	assert.True(t, p.Params().Set("top_k", 500))
}
