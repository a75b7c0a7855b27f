package event

import "github.com/polychat/polychat/pkg/types"

// EventType represents the type of event.
type EventType string

const (
	ChatCreated     EventType = "chat.created"
	ChatRenamed     EventType = "chat.renamed"
	ChatDeleted     EventType = "chat.deleted"
	MessageAppended EventType = "message.appended"
	ModelSelected   EventType = "model.selected"
	ConfigReloaded  EventType = "config.reloaded"
)

// Event represents an event to be published.
type Event struct {
	Type EventType `json:"type"`
	Data any       `json:"data"`
}

// ChatData accompanies chat lifecycle events.
type ChatData struct {
	ChatID string `json:"chatId"`
	Name   string `json:"name,omitempty"`
}

// MessageAppendedData accompanies MessageAppended events.
type MessageAppendedData struct {
	ChatID  string        `json:"chatId"`
	Message types.Message `json:"message"`
}

// ModelSelectedData accompanies ModelSelected events.
type ModelSelectedData struct {
	Provider string `json:"provider"`
	ModelID  string `json:"modelId"`
}
