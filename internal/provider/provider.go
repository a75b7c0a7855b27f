// Package provider implements the multi-provider completion core: adapters
// that map the internal message model onto each backend's wire format, a
// data-driven generation-parameter system, and normalization of the
// heterogeneous usage accounting providers report.
//
// Adapters never return Go errors for request-level failures. Complete
// returns, and Stream yields, either model output or a human-readable string
// bearing one of the recognized error prefixes (see errors.go), so the chat
// manager can persist successful and failed turns through the same path.
package provider

import (
	"context"
	"fmt"
	"io"

	"github.com/polychat/polychat/pkg/types"
)

// Provider is the uniform completion contract implemented by each backend
// adapter. The set of implementations is closed: construction dispatches on
// the provider identifier rather than relying on external registration.
type Provider interface {
	// ID returns the provider identifier (e.g. "openai", "anthropic").
	ID() string

	// Name returns the human-readable provider name.
	Name() string

	// Models returns the configured model catalog, keyed by model ID.
	Models() map[string]types.ModelConfig

	// Params returns the provider's generation-parameter set.
	Params() *ParamSet

	// Stats returns the usage accounting of the most recent completed
	// request. Zero-valued before the first request completes.
	Stats() types.Usage

	// Complete performs a blocking completion over the given context
	// window and returns the assistant text, or a classified error string.
	Complete(ctx context.Context, messages []types.Message, modelID string) string

	// Stream opens a streaming completion. The returned stream is a
	// finite, forward-only, non-restartable sequence of text fragments.
	Stream(ctx context.Context, messages []types.Message, modelID string) *Stream
}

// Stream is a pull-based lazy sequence of text fragments. The consumer
// calls Recv until io.EOF; Close releases the underlying network stream and
// must be called on every exit path. Usage-only terminal chunks are
// consumed internally and never surface as fragments.
type Stream struct {
	recv   func() (string, error)
	close  func()
	closed bool
}

// Recv returns the next text fragment, or io.EOF when the sequence ends.
// A mid-stream provider failure surfaces as one final classified error
// fragment followed by io.EOF; fragments already delivered stand.
func (s *Stream) Recv() (string, error) {
	return s.recv()
}

// Close releases the underlying network stream. Safe to call more than
// once.
func (s *Stream) Close() {
	if s.closed {
		return
	}
	s.closed = true
	if s.close != nil {
		s.close()
	}
}

// NewStream wraps a pull function and a cleanup hook as a Stream. The pull
// function must return io.EOF when the sequence ends.
func NewStream(recv func() (string, error), close func()) *Stream {
	return &Stream{recv: recv, close: close}
}

// errorStream yields a single error fragment and then terminates.
func errorStream(text string) *Stream {
	delivered := false
	return &Stream{
		recv: func() (string, error) {
			if delivered {
				return "", io.EOF
			}
			delivered = true
			return text, nil
		},
	}
}

// Config carries everything an adapter needs at construction time.
type Config struct {
	APIKey  string
	BaseURL string
	Models  map[string]types.ModelConfig
	// Retries bounds transient-error retries on blocking completions.
	Retries uint
}

// New constructs the adapter for the given provider identifier. Unknown
// identifiers default to the OpenAI-compatible adapter, which is the wire
// format spoken by most hosted gateways.
func New(providerID string, cfg Config) (Provider, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("provider %s: API key not configured", providerID)
	}

	switch providerID {
	case types.ProviderAnthropic:
		return newAnthropicProvider(providerID, cfg), nil
	default:
		return newOpenAIProvider(providerID, cfg), nil
	}
}
