package provider

import (
	"context"
	"io"
	"strings"
	"time"

	anthropic "github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
	"github.com/cenkalti/backoff/v4"

	"github.com/polychat/polychat/internal/logging"
	"github.com/polychat/polychat/pkg/types"
)

// defaultAnthropicMaxTokens is used when neither the max_tokens parameter
// nor the model's configured output ceiling is set. The Messages API
// rejects requests without a max_tokens value.
const defaultAnthropicMaxTokens = 4096

type anthropicProvider struct {
	id      string
	client  anthropic.Client
	models  map[string]types.ModelConfig
	params  *ParamSet
	stats   types.Usage
	retries uint
}

func newAnthropicProvider(id string, cfg Config) *anthropicProvider {
	opts := []option.RequestOption{option.WithAPIKey(cfg.APIKey)}
	if cfg.BaseURL != "" {
		opts = append(opts, option.WithBaseURL(cfg.BaseURL))
	}

	return &anthropicProvider{
		id:      id,
		client:  anthropic.NewClient(opts...),
		models:  cfg.Models,
		params:  NewParamSet(anthropicParamSpecs()),
		retries: cfg.Retries,
	}
}

func anthropicParamSpecs() map[string]Constraint {
	return map[string]Constraint{
		"temperature": {Kind: Range, Min: 0.0, Max: 1.0},
		"max_tokens":  {Kind: Range, Min: 1, Max: 200000},
		"top_p":       {Kind: Range, Min: 0.0, Max: 1.0},
		"top_k":       {Kind: MinOnly, Min: 0},
	}
}

func (p *anthropicProvider) ID() string                           { return p.id }
func (p *anthropicProvider) Name() string                         { return "Anthropic" }
func (p *anthropicProvider) Models() map[string]types.ModelConfig { return p.models }
func (p *anthropicProvider) Params() *ParamSet                    { return p.params }
func (p *anthropicProvider) Stats() types.Usage                   { return p.stats }

// toAnthropicTurns converts internal messages to Messages API turns. The
// API has no system role in the turn list: the first system message is
// lifted into the dedicated system field and any further system messages
// are dropped from the conversation.
func toAnthropicTurns(messages []types.Message) (string, []anthropic.MessageParam) {
	var system string
	haveSystem := false
	turns := make([]anthropic.MessageParam, 0, len(messages))

	for _, msg := range messages {
		if msg.Role == types.RoleSystem {
			if !haveSystem {
				system = msg.Text()
				haveSystem = true
			}
			continue
		}

		blocks := toAnthropicBlocks(msg.Content)
		if len(blocks) == 0 {
			continue
		}
		if msg.Role == types.RoleAssistant {
			turns = append(turns, anthropic.NewAssistantMessage(blocks...))
		} else {
			turns = append(turns, anthropic.NewUserMessage(blocks...))
		}
	}

	return system, turns
}

func toAnthropicBlocks(parts []types.ContentPart) []anthropic.ContentBlockParamUnion {
	blocks := make([]anthropic.ContentBlockParamUnion, 0, len(parts))
	for _, part := range parts {
		switch part := part.(type) {
		case *types.TextPart:
			blocks = append(blocks, anthropic.NewTextBlock(part.Text))
		case *types.ImagePart:
			blocks = append(blocks, anthropic.ContentBlockParamUnion{
				OfImage: &anthropic.ImageBlockParam{
					Source: anthropic.ImageBlockParamSourceUnion{
						OfURL: &anthropic.URLImageSourceParam{URL: part.URL},
					},
				},
			})
		case *types.FilePart:
			blocks = append(blocks, anthropic.NewTextBlock(renderFilePart(part)))
		}
	}
	return blocks
}

func (p *anthropicProvider) buildRequest(modelID string, model types.ModelConfig, messages []types.Message) anthropic.MessageNewParams {
	system, turns := toAnthropicTurns(messages)
	vals := p.params.RequestValues()

	maxTokens := defaultAnthropicMaxTokens
	if n, ok := intValue(vals, "max_tokens"); ok {
		maxTokens = n
	} else if model.MaxOutputTokens > 0 {
		maxTokens = model.MaxOutputTokens
	}

	params := anthropic.MessageNewParams{
		Model:     anthropic.Model(modelID),
		MaxTokens: int64(maxTokens),
		Messages:  turns,
	}
	if system != "" {
		params.System = []anthropic.TextBlockParam{{Text: system}}
	}
	if f, ok := floatValue(vals, "temperature"); ok {
		params.Temperature = anthropic.Float(f)
	}
	if f, ok := floatValue(vals, "top_p"); ok {
		params.TopP = anthropic.Float(f)
	}
	if n, ok := intValue(vals, "top_k"); ok {
		params.TopK = anthropic.Int(int64(n))
	}

	return params
}

func extractAnthropicUsage(u anthropic.Usage) rawUsage {
	return rawUsage{
		PromptTokens:     int(u.InputTokens),
		CompletionTokens: int(u.OutputTokens),
		CachedTokens:     int(u.CacheReadInputTokens),
	}
}

// Complete performs a blocking message request with the same retry policy
// as the OpenAI adapter.
func (p *anthropicProvider) Complete(ctx context.Context, messages []types.Message, modelID string) string {
	log := logging.For("provider").With().Str("provider", p.id).Str("model", modelID).Logger()

	model, ok := p.models[modelID]
	if !ok {
		log.Error().Msg("model not configured")
		return modelNotConfigured(p.id, modelID)
	}

	params := p.buildRequest(modelID, model, messages)
	start := time.Now()

	var msg *anthropic.Message
	op := func() error {
		var err error
		msg, err = p.client.Messages.New(ctx, params)
		if err != nil && !isRetryable(err) {
			return backoff.Permanent(err)
		}
		return err
	}

	policy := backoff.WithContext(backoff.WithMaxRetries(backoff.NewExponentialBackOff(), uint64(p.retries)), ctx)
	if err := backoff.Retry(op, policy); err != nil {
		log.Error().Err(err).Msg("completion failed")
		return classifyAnthropicError(err)
	}

	elapsed := time.Since(start).Seconds()
	p.stats = reconcileUsage(extractAnthropicUsage(msg.Usage), model, p.id, elapsed, 0)

	log.Debug().
		Int("promptTokens", p.stats.PromptTokens).
		Int("completionTokens", p.stats.CompletionTokens).
		Float64("responseTime", elapsed).
		Msg("completion finished")

	var sb strings.Builder
	for _, block := range msg.Content {
		if text, ok := block.AsAny().(anthropic.TextBlock); ok {
			sb.WriteString(text.Text)
		}
	}
	return sb.String()
}

// Stream opens a streaming message request. Events are folded into an
// accumulated message so that final usage totals are available once the
// event stream is drained.
func (p *anthropicProvider) Stream(ctx context.Context, messages []types.Message, modelID string) *Stream {
	log := logging.For("provider").With().Str("provider", p.id).Str("model", modelID).Logger()

	model, ok := p.models[modelID]
	if !ok {
		log.Error().Msg("model not configured")
		return errorStream(modelNotConfigured(p.id, modelID))
	}

	params := p.buildRequest(modelID, model, messages)
	start := time.Now()

	sdkStream := p.client.Messages.NewStreaming(ctx, params)
	acc := anthropic.Message{}

	var delay float64
	first := true
	failed := false
	done := false

	return &Stream{
		recv: func() (string, error) {
			if failed || done {
				return "", io.EOF
			}
			for sdkStream.Next() {
				event := sdkStream.Current()
				if err := acc.Accumulate(event); err != nil {
					log.Warn().Err(err).Msg("event accumulation failed")
				}

				deltaEvent, ok := event.AsAny().(anthropic.ContentBlockDeltaEvent)
				if !ok {
					continue
				}
				textDelta, ok := deltaEvent.Delta.AsAny().(anthropic.TextDelta)
				if !ok || textDelta.Text == "" {
					continue
				}
				if first {
					delay = time.Since(start).Seconds()
					first = false
				}
				return textDelta.Text, nil
			}

			if err := sdkStream.Err(); err != nil {
				failed = true
				log.Error().Err(err).Msg("stream failed mid-iteration")
				return classifyAnthropicError(err), nil
			}

			done = true
			elapsed := time.Since(start).Seconds()
			p.stats = reconcileUsage(extractAnthropicUsage(acc.Usage), model, p.id, elapsed, delay)
			return "", io.EOF
		},
		close: func() {
			sdkStream.Close()
		},
	}
}
