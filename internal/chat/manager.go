// Package chat implements the session orchestrator: it owns the Config and
// ChatHistory state, selects the active provider and model, delegates turns
// to provider adapters, and commits enriched messages to storage.
package chat

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"

	"github.com/polychat/polychat/internal/config"
	"github.com/polychat/polychat/internal/event"
	"github.com/polychat/polychat/internal/logging"
	"github.com/polychat/polychat/internal/provider"
	"github.com/polychat/polychat/internal/storage"
	"github.com/polychat/polychat/internal/usagelog"
	"github.com/polychat/polychat/pkg/types"
)

// maxContextLength bounds how many prior messages SetContextLength will
// accept for the request window.
const maxContextLength = 50

// Manager coordinates chats, providers, and persistence. One Manager owns
// the process-wide Config and ChatHistory; all mutations go through it.
type Manager struct {
	mu       sync.Mutex
	cfg      *types.Config
	cfgPath  string
	history  *types.ChatHistory
	store    *storage.Store
	registry *provider.Registry
	bus      *event.Bus
	usageLog *usagelog.Logger

	currentChatID   string
	currentProvider string
	currentModel    string
	contextLength   int
	inFlight        map[string]bool
}

// NewManager loads the chat history from storage and selects the most
// recently used model (falling back to the first configured one).
func NewManager(cfg *types.Config, cfgPath string, store *storage.Store, registry *provider.Registry, bus *event.Bus) (*Manager, error) {
	m := &Manager{
		cfg:           cfg,
		cfgPath:       cfgPath,
		history:       types.NewChatHistory(),
		store:         store,
		registry:      registry,
		bus:           bus,
		contextLength: cfg.MaxContextMessages,
		inFlight:      make(map[string]bool),
	}
	if m.contextLength > maxContextLength {
		m.contextLength = maxContextLength
	}

	if err := m.loadHistory(); err != nil {
		return nil, err
	}

	if recent := cfg.GetRecentModel(); recent != nil {
		m.currentProvider = recent.Provider
		m.currentModel = recent.ModelID
	}

	logging.For("chat").Info().
		Int("chats", len(m.history.Chats)).
		Str("provider", m.currentProvider).
		Str("model", m.currentModel).
		Msg("chat manager initialized")

	return m, nil
}

// SetUsageLogger attaches a per-request CSV usage logger.
func (m *Manager) SetUsageLogger(l *usagelog.Logger) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.usageLog = l
}

func (m *Manager) loadHistory() error {
	return m.store.Scan(context.Background(), []string{"chats"}, func(key string, data json.RawMessage) error {
		var chat types.Chat
		if err := json.Unmarshal(data, &chat); err != nil {
			logging.For("chat").Warn().Str("chat", key).Err(err).Msg("skipping unreadable chat")
			return nil
		}
		m.history.Add(&chat)
		return nil
	})
}

// CurrentModel returns the active provider and model IDs.
func (m *Manager) CurrentModel() (string, string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.currentProvider, m.currentModel
}

// SelectModel switches the active provider/model, records it as the recent
// model, and persists the configuration.
func (m *Manager) SelectModel(providerID, modelID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	p, err := m.registry.Get(providerID)
	if err != nil {
		return err
	}
	if _, ok := p.Models()[modelID]; !ok {
		return fmt.Errorf("model not configured: %s/%s", providerID, modelID)
	}

	m.currentProvider = providerID
	m.currentModel = modelID
	m.cfg.SetRecentModel(providerID, modelID)

	if err := config.Save(m.cfg, m.cfgPath); err != nil {
		return fmt.Errorf("failed to persist model selection: %w", err)
	}

	m.bus.Publish(event.Event{
		Type: event.ModelSelected,
		Data: event.ModelSelectedData{Provider: providerID, ModelID: modelID},
	})
	logging.For("chat").Info().Str("provider", providerID).Str("model", modelID).Msg("model selected")
	return nil
}

// AllModels lists every configured model across providers.
func (m *Manager) AllModels() []provider.ModelRef {
	return m.registry.AllModels()
}

// Params returns the active provider's parameter set.
func (m *Manager) Params() (*provider.ParamSet, error) {
	m.mu.Lock()
	providerID := m.currentProvider
	m.mu.Unlock()

	p, err := m.registry.Get(providerID)
	if err != nil {
		return nil, err
	}
	return p.Params(), nil
}

// SetParameter validates and stores one generation parameter on the active
// provider.
func (m *Manager) SetParameter(name string, value any) error {
	params, err := m.Params()
	if err != nil {
		return err
	}
	if !params.Set(name, value) {
		return fmt.Errorf("invalid value for parameter %s: %v", name, value)
	}
	return nil
}

// ResetParameters restores every parameter of the active provider to its
// default.
func (m *Manager) ResetParameters() error {
	params, err := m.Params()
	if err != nil {
		return err
	}
	params.ResetAll()
	return nil
}

// ContextLength returns how many prior messages are included per request.
func (m *Manager) ContextLength() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.contextLength
}

// SetContextLength updates the request window size. Values outside
// [0, maxContextLength] are rejected.
func (m *Manager) SetContextLength(n int) error {
	if n < 0 || n > maxContextLength {
		return fmt.Errorf("context length must be between 0 and %d", maxContextLength)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.contextLength != n {
		m.contextLength = n
		logging.For("chat").Info().Int("contextLength", n).Msg("context length updated")
	}
	return nil
}

// Chats returns all chats sorted by last activity, most recent first.
func (m *Manager) Chats() []*types.Chat {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.history.Sorted()
}

// GetChat returns one chat by ID, or nil.
func (m *Manager) GetChat(id string) *types.Chat {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.history.Get(id)
}

// CurrentChat returns the active chat, or nil when the next send will
// create one.
func (m *Manager) CurrentChat() *types.Chat {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.currentChatID == "" {
		return nil
	}
	return m.history.Get(m.currentChatID)
}

// SetCurrentChat switches the active chat.
func (m *Manager) SetCurrentChat(id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.history.Get(id) == nil {
		return fmt.Errorf("chat not found: %s", id)
	}
	m.currentChatID = id
	return nil
}

// NewChat clears the active chat; the next send creates a fresh one.
func (m *Manager) NewChat() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.currentChatID = ""
}

// RenameChat renames a chat. Renaming to a name already in use fails and
// leaves every chat unchanged.
func (m *Manager) RenameChat(ctx context.Context, id, newName string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	chat := m.history.Get(id)
	if chat == nil {
		return fmt.Errorf("chat not found: %s", id)
	}
	if chat.Name == newName {
		return nil
	}
	if m.history.HasName(newName) {
		return fmt.Errorf("chat name already in use: %s", newName)
	}

	chat.Name = newName
	if err := m.persistChatLocked(ctx, chat); err != nil {
		return err
	}

	m.bus.Publish(event.Event{Type: event.ChatRenamed, Data: event.ChatData{ChatID: id, Name: newName}})
	return nil
}

// DeleteChat removes a chat from the history and from storage immediately.
func (m *Manager) DeleteChat(ctx context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if !m.history.Delete(id) {
		return fmt.Errorf("chat not found: %s", id)
	}
	if err := m.store.Delete(ctx, []string{"chats", id}); err != nil {
		return fmt.Errorf("failed to delete chat: %w", err)
	}
	if m.currentChatID == id {
		m.currentChatID = ""
	}

	m.bus.Publish(event.Event{Type: event.ChatDeleted, Data: event.ChatData{ChatID: id}})
	logging.For("chat").Info().Str("chat", id).Msg("chat deleted")
	return nil
}

// NextChatName returns "Chat N" for the lowest N not in use.
func NextChatName(history *types.ChatHistory) string {
	for n := 1; ; n++ {
		name := fmt.Sprintf("Chat %d", n)
		if !history.HasName(name) {
			return name
		}
	}
}

// ensureChatLocked returns the active chat, creating one lazily when no
// chat is active. Caller holds m.mu.
func (m *Manager) ensureChatLocked(ctx context.Context) (*types.Chat, error) {
	if m.currentChatID != "" {
		if chat := m.history.Get(m.currentChatID); chat != nil {
			return chat, nil
		}
	}

	chat := &types.Chat{
		ID:         strings.ToLower(ulid.Make().String()),
		Name:       NextChatName(m.history),
		LastActive: time.Now(),
	}
	m.history.Add(chat)
	m.currentChatID = chat.ID

	if err := m.persistChatLocked(ctx, chat); err != nil {
		return nil, err
	}

	m.bus.Publish(event.Event{Type: event.ChatCreated, Data: event.ChatData{ChatID: chat.ID, Name: chat.Name}})
	logging.For("chat").Info().Str("chat", chat.ID).Str("name", chat.Name).Msg("chat created")
	return chat, nil
}

func (m *Manager) persistChatLocked(ctx context.Context, chat *types.Chat) error {
	// a save with unchanged content skips the disk write
	if _, err := m.store.PutIfChanged(ctx, []string{"chats", chat.ID}, chat); err != nil {
		return fmt.Errorf("failed to persist chat %s: %w", chat.ID, err)
	}
	return nil
}

// activeProviderLocked resolves the current provider and model. Caller
// holds m.mu.
func (m *Manager) activeProviderLocked() (provider.Provider, string, error) {
	if m.currentProvider == "" || m.currentModel == "" {
		return nil, "", fmt.Errorf("no model selected")
	}
	p, err := m.registry.Get(m.currentProvider)
	if err != nil {
		return nil, "", err
	}
	return p, m.currentModel, nil
}

// contextWindow builds the request window: the last n prior messages plus
// the new turn. A leading system message is always preserved, even when the
// slice would drop it.
func contextWindow(prior []types.Message, userMsg types.Message, n int) []types.Message {
	var window []types.Message

	start := len(prior)
	if n > 0 {
		start = len(prior) - n
		if start < 0 {
			start = 0
		}
	}
	if start > 0 && prior[0].Role == types.RoleSystem {
		window = append(window, prior[0])
	}
	window = append(window, prior[start:]...)

	return append(window, userMsg)
}

// applyUsage distributes reconciled usage across the turn pair: prompt
// accounting on the user message, completion accounting on the assistant
// message.
func applyUsage(user, assistant *types.Message, stats types.Usage) {
	promptTokens := stats.PromptTokens
	inputCost := stats.InputCost
	user.TokensUsed = &promptTokens
	user.Cost = &inputCost
	user.Provider = stats.Provider
	user.Model = stats.Model

	completionTokens := stats.CompletionTokens
	outputCost := stats.OutputCost
	throughput := stats.Throughput
	responseTime := stats.ResponseTime
	assistant.TokensUsed = &completionTokens
	assistant.Cost = &outputCost
	assistant.Throughput = &throughput
	assistant.ResponseTime = &responseTime
	assistant.Provider = stats.Provider
	assistant.Model = stats.Model
	if stats.ReasoningTokens > 0 {
		reasoning := stats.ReasoningTokens
		assistant.ReasoningTokens = &reasoning
	}
}

// Send runs one blocking turn: builds the user message, delegates to the
// active adapter, and persists both the user and assistant messages. A
// classified error string from the adapter is stored as an error turn with
// no usage data.
func (m *Manager) Send(ctx context.Context, text string, attachments ...types.ContentPart) (types.Message, error) {
	userMsg, err := buildUserMessage(text, attachments)
	if err != nil {
		logging.For("chat").Error().Err(err).Msg("send aborted")
		return types.Message{}, err
	}

	m.mu.Lock()
	p, modelID, err := m.activeProviderLocked()
	if err != nil {
		m.mu.Unlock()
		return types.Message{}, err
	}
	chat, err := m.ensureChatLocked(ctx)
	if err != nil {
		m.mu.Unlock()
		return types.Message{}, err
	}
	if m.inFlight[chat.ID] {
		m.mu.Unlock()
		return types.Message{}, fmt.Errorf("chat %s already has a request in flight", chat.ID)
	}
	m.inFlight[chat.ID] = true
	window := contextWindow(chat.Messages, userMsg, m.contextLength)
	m.mu.Unlock()

	response := p.Complete(ctx, window, modelID)

	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.inFlight, chat.ID)

	assistant := types.NewMessage(types.RoleAssistant, types.NewTextPart(response))
	if !provider.IsErrorText(response) {
		stats := p.Stats()
		applyUsage(&userMsg, &assistant, stats)
		m.recordUsageLocked(stats)
	}

	chat.AddMessage(userMsg)
	chat.AddMessage(assistant)
	if err := m.persistChatLocked(ctx, chat); err != nil {
		return assistant, err
	}

	m.bus.Publish(event.Event{Type: event.MessageAppended, Data: event.MessageAppendedData{ChatID: chat.ID, Message: userMsg}})
	m.bus.Publish(event.Event{Type: event.MessageAppended, Data: event.MessageAppendedData{ChatID: chat.ID, Message: assistant}})
	return assistant, nil
}

func (m *Manager) recordUsageLocked(stats types.Usage) {
	if m.usageLog == nil {
		return
	}
	if err := m.usageLog.Record(stats); err != nil {
		logging.For("chat").Warn().Err(err).Msg("failed to record usage")
	}
}

// buildUserMessage assembles the user turn from text plus attachment parts.
// An empty turn is a construction failure: nothing is appended to the chat.
func buildUserMessage(text string, attachments []types.ContentPart) (types.Message, error) {
	var parts []types.ContentPart
	if text != "" {
		parts = append(parts, types.NewTextPart(text))
	}
	parts = append(parts, attachments...)

	if len(parts) == 0 {
		return types.Message{}, fmt.Errorf("message must have content")
	}
	return types.NewMessage(types.RoleUser, parts...), nil
}
