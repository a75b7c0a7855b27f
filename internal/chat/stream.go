package chat

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/polychat/polychat/internal/event"
	"github.com/polychat/polychat/internal/logging"
	"github.com/polychat/polychat/internal/provider"
	"github.com/polychat/polychat/pkg/types"
)

// StreamHandle is the chat-level view of a streaming turn. The caller pulls
// fragments with Recv until io.EOF; the accumulated text is assembled into
// the assistant message and persisted only after the last fragment, never
// mid-stream. Close must be called on every exit path; closing early still
// persists whatever was accumulated.
type StreamHandle struct {
	mgr     *Manager
	stream  *provider.Stream
	prov    provider.Provider
	chat    *types.Chat
	userMsg types.Message
	ctx     context.Context

	acc       strings.Builder
	failed    bool
	finalized bool
}

// SendStream runs one streaming turn. The setup mirrors Send; delivery and
// persistence are deferred to the returned handle.
func (m *Manager) SendStream(ctx context.Context, text string, attachments ...types.ContentPart) (*StreamHandle, error) {
	userMsg, err := buildUserMessage(text, attachments)
	if err != nil {
		return nil, err
	}

	m.mu.Lock()
	p, modelID, err := m.activeProviderLocked()
	if err != nil {
		m.mu.Unlock()
		return nil, err
	}
	chat, err := m.ensureChatLocked(ctx)
	if err != nil {
		m.mu.Unlock()
		return nil, err
	}
	if m.inFlight[chat.ID] {
		m.mu.Unlock()
		return nil, fmt.Errorf("chat %s already has a request in flight", chat.ID)
	}
	m.inFlight[chat.ID] = true
	window := contextWindow(chat.Messages, userMsg, m.contextLength)
	m.mu.Unlock()

	return &StreamHandle{
		mgr:     m,
		stream:  p.Stream(ctx, window, modelID),
		prov:    p,
		chat:    chat,
		userMsg: userMsg,
		ctx:     ctx,
	}, nil
}

// Recv returns the next text fragment, or io.EOF once the turn is complete
// and persisted.
func (h *StreamHandle) Recv() (string, error) {
	if h.finalized {
		return "", io.EOF
	}

	fragment, err := h.stream.Recv()
	if err == io.EOF {
		h.stream.Close()
		h.finalize(true)
		return "", io.EOF
	}
	if err != nil {
		// the provider stream contract yields classified error fragments
		// rather than errors; anything else ends the turn without usage
		h.failed = true
		h.stream.Close()
		h.finalize(true)
		return "", io.EOF
	}

	// A classified error fragment can arrive mid-stream, after real content.
	// The turn still delivers it, but it marks the turn as failed so no
	// usage is attributed.
	if provider.IsErrorText(fragment) {
		h.failed = true
	}
	h.acc.WriteString(fragment)
	return fragment, nil
}

// Close releases the underlying network stream. When the consumer stops
// pulling before io.EOF, the partial text accumulated so far is still
// persisted as the assistant turn, without usage data.
func (h *StreamHandle) Close() {
	h.stream.Close()
	h.finalize(false)
}

func (h *StreamHandle) finalize(completed bool) {
	if h.finalized {
		return
	}
	h.finalized = true

	m := h.mgr
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.inFlight, h.chat.ID)

	text := h.acc.String()
	if text == "" {
		// nothing arrived; leave the chat unchanged
		return
	}

	assistant := types.NewMessage(types.RoleAssistant, types.NewTextPart(text))
	if completed && !h.failed && !provider.IsErrorText(text) {
		stats := h.prov.Stats()
		applyUsage(&h.userMsg, &assistant, stats)
		m.recordUsageLocked(stats)
	}

	h.chat.AddMessage(h.userMsg)
	h.chat.AddMessage(assistant)
	if err := m.persistChatLocked(h.ctx, h.chat); err != nil {
		logging.For("chat").Error().Err(err).Msg("failed to persist streamed turn")
		return
	}

	m.bus.Publish(event.Event{Type: event.MessageAppended, Data: event.MessageAppendedData{ChatID: h.chat.ID, Message: h.userMsg}})
	m.bus.Publish(event.Event{Type: event.MessageAppended, Data: event.MessageAppendedData{ChatID: h.chat.ID, Message: assistant}})
}
