package provider

import (
	"context"
	"encoding/base64"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"
	openai "github.com/sashabaranov/go-openai"

	"github.com/polychat/polychat/internal/logging"
	"github.com/polychat/polychat/pkg/types"
)

// openAIProvider adapts the OpenAI chat-completions wire format. It also
// serves OpenAI-compatible gateways (Nebius, SambaNova, local proxies) via
// their base URL.
type openAIProvider struct {
	id      string
	client  *openai.Client
	models  map[string]types.ModelConfig
	params  *ParamSet
	stats   types.Usage
	retries uint
}

func newOpenAIProvider(id string, cfg Config) *openAIProvider {
	clientCfg := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		clientCfg.BaseURL = cfg.BaseURL
	}

	return &openAIProvider{
		id:      id,
		client:  openai.NewClientWithConfig(clientCfg),
		models:  cfg.Models,
		params:  NewParamSet(openAIParamSpecs()),
		retries: cfg.Retries,
	}
}

// openAIParamSpecs is the constraint table for OpenAI-style generation
// parameters. Defaults are nil: unset parameters are omitted from requests.
func openAIParamSpecs() map[string]Constraint {
	return map[string]Constraint{
		"temperature":           {Kind: Range, Min: 0.0, Max: 2.0},
		"max_tokens":            {Kind: Range, Min: 1, Max: 32000},
		"max_completion_tokens": {Kind: Range, Min: 1, Max: 32000},
		"top_p":                 {Kind: Range, Min: 0.0, Max: 1.0},
		"frequency_penalty":     {Kind: Range, Min: -2.0, Max: 2.0},
		"presence_penalty":      {Kind: Range, Min: -2.0, Max: 2.0},
		"reasoning_effort":      {Kind: Categorical, Allowed: []string{"low", "medium", "high"}},
	}
}

func (p *openAIProvider) ID() string                           { return p.id }
func (p *openAIProvider) Name() string                         { return "OpenAI" }
func (p *openAIProvider) Models() map[string]types.ModelConfig { return p.models }
func (p *openAIProvider) Params() *ParamSet                    { return p.params }
func (p *openAIProvider) Stats() types.Usage                   { return p.stats }

// toOpenAIMessages converts internal messages to the OpenAI payload shape.
// A message with exactly one text part flattens to a bare content string;
// anything else becomes a multi-part content list in original order.
func toOpenAIMessages(messages []types.Message) []openai.ChatCompletionMessage {
	out := make([]openai.ChatCompletionMessage, 0, len(messages))

	for _, msg := range messages {
		oaMsg := openai.ChatCompletionMessage{Role: string(msg.Role)}

		if len(msg.Content) == 1 {
			if text, ok := msg.Content[0].(*types.TextPart); ok {
				oaMsg.Content = text.Text
				out = append(out, oaMsg)
				continue
			}
		}

		for _, part := range msg.Content {
			switch part := part.(type) {
			case *types.TextPart:
				oaMsg.MultiContent = append(oaMsg.MultiContent, openai.ChatMessagePart{
					Type: openai.ChatMessagePartTypeText,
					Text: part.Text,
				})
			case *types.ImagePart:
				oaMsg.MultiContent = append(oaMsg.MultiContent, openai.ChatMessagePart{
					Type: openai.ChatMessagePartTypeImageURL,
					ImageURL: &openai.ChatMessageImageURL{
						URL:    part.URL,
						Detail: openai.ImageURLDetail(part.Detail),
					},
				})
			case *types.FilePart:
				oaMsg.MultiContent = append(oaMsg.MultiContent, openai.ChatMessagePart{
					Type: openai.ChatMessagePartTypeText,
					Text: renderFilePart(part),
				})
			}
		}
		out = append(out, oaMsg)
	}

	return out
}

// renderFilePart inlines a file attachment as text. Text payloads are
// decoded; binary payloads stay base64 with the MIME type declared so the
// model knows what it is looking at.
func renderFilePart(part *types.FilePart) string {
	if strings.HasPrefix(part.MimeType, "text/") || part.MimeType == "application/json" {
		if decoded, err := base64.StdEncoding.DecodeString(part.Data); err == nil {
			return fmt.Sprintf("[file %s (%s)]\n%s", part.Name, part.MimeType, decoded)
		}
	}
	return fmt.Sprintf("[file %s (%s), base64]\n%s", part.Name, part.MimeType, part.Data)
}

func (p *openAIProvider) buildRequest(modelID string, messages []types.Message, stream bool) openai.ChatCompletionRequest {
	req := openai.ChatCompletionRequest{
		Model:    modelID,
		Messages: toOpenAIMessages(messages),
	}

	vals := p.params.RequestValues()
	if f, ok := floatValue(vals, "temperature"); ok {
		req.Temperature = float32(f)
	}
	if f, ok := floatValue(vals, "top_p"); ok {
		req.TopP = float32(f)
	}
	if n, ok := intValue(vals, "max_tokens"); ok {
		req.MaxTokens = n
	}
	if n, ok := intValue(vals, "max_completion_tokens"); ok {
		req.MaxCompletionTokens = n
	}
	if f, ok := floatValue(vals, "frequency_penalty"); ok {
		req.FrequencyPenalty = float32(f)
	}
	if f, ok := floatValue(vals, "presence_penalty"); ok {
		req.PresencePenalty = float32(f)
	}
	if s, ok := stringValue(vals, "reasoning_effort"); ok {
		req.ReasoningEffort = s
	}

	if stream {
		req.Stream = true
		req.StreamOptions = &openai.StreamOptions{IncludeUsage: true}
	}

	return req
}

func extractOpenAIUsage(u openai.Usage) rawUsage {
	raw := rawUsage{
		PromptTokens:     u.PromptTokens,
		CompletionTokens: u.CompletionTokens,
	}
	if u.CompletionTokensDetails != nil {
		raw.ReasoningTokens = u.CompletionTokensDetails.ReasoningTokens
	}
	if u.PromptTokensDetails != nil {
		raw.CachedTokens = u.PromptTokensDetails.CachedTokens
	}
	return raw
}

// Complete performs a blocking chat completion. Transient failures are
// retried with exponential backoff up to the configured retry budget before
// classification.
func (p *openAIProvider) Complete(ctx context.Context, messages []types.Message, modelID string) string {
	log := logging.For("provider").With().Str("provider", p.id).Str("model", modelID).Logger()

	model, ok := p.models[modelID]
	if !ok {
		log.Error().Msg("model not configured")
		return modelNotConfigured(p.id, modelID)
	}

	req := p.buildRequest(modelID, messages, false)
	start := time.Now()

	var resp openai.ChatCompletionResponse
	op := func() error {
		var err error
		resp, err = p.client.CreateChatCompletion(ctx, req)
		if err != nil && !isRetryable(err) {
			return backoff.Permanent(err)
		}
		return err
	}

	policy := backoff.WithContext(backoff.WithMaxRetries(backoff.NewExponentialBackOff(), uint64(p.retries)), ctx)
	if err := backoff.Retry(op, policy); err != nil {
		log.Error().Err(err).Msg("completion failed")
		return classifyOpenAIError(err)
	}

	elapsed := time.Since(start).Seconds()
	p.stats = reconcileUsage(extractOpenAIUsage(resp.Usage), model, p.id, elapsed, 0)

	log.Debug().
		Int("promptTokens", p.stats.PromptTokens).
		Int("completionTokens", p.stats.CompletionTokens).
		Float64("responseTime", elapsed).
		Msg("completion finished")

	if len(resp.Choices) == 0 {
		return ""
	}
	return resp.Choices[0].Message.Content
}

// Stream opens a streaming chat completion. The usage totals arrive in a
// final content-less chunk (stream_options include_usage); that terminal
// chunk is fed to the reconciler instead of being yielded.
func (p *openAIProvider) Stream(ctx context.Context, messages []types.Message, modelID string) *Stream {
	log := logging.For("provider").With().Str("provider", p.id).Str("model", modelID).Logger()

	model, ok := p.models[modelID]
	if !ok {
		log.Error().Msg("model not configured")
		return errorStream(modelNotConfigured(p.id, modelID))
	}

	req := p.buildRequest(modelID, messages, true)
	start := time.Now()

	sdkStream, err := p.client.CreateChatCompletionStream(ctx, req)
	if err != nil {
		log.Error().Err(err).Msg("stream open failed")
		return errorStream(classifyOpenAIError(err))
	}

	var delay float64
	first := true
	failed := false

	return &Stream{
		recv: func() (string, error) {
			if failed {
				return "", io.EOF
			}
			for {
				chunk, err := sdkStream.Recv()
				if err == io.EOF {
					return "", io.EOF
				}
				if err != nil {
					failed = true
					log.Error().Err(err).Msg("stream failed mid-iteration")
					return classifyOpenAIError(err), nil
				}

				if len(chunk.Choices) > 0 {
					fragment := chunk.Choices[0].Delta.Content
					if fragment == "" {
						continue
					}
					if first {
						delay = time.Since(start).Seconds()
						first = false
					}
					return fragment, nil
				}

				if chunk.Usage != nil {
					elapsed := time.Since(start).Seconds()
					p.stats = reconcileUsage(extractOpenAIUsage(*chunk.Usage), model, p.id, elapsed, delay)
					continue
				}
			}
		},
		close: func() {
			sdkStream.Close()
		},
	}
}
