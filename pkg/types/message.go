package types

import (
	"encoding/json"
	"time"
)

// Role identifies the author of a message.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
	RoleSystem    Role = "system"
)

// Message is one turn in a conversation. Usage fields are nil until a
// provider response has been reconciled; a user message receives its prompt
// accounting only after the paired assistant turn completes, because
// upstream APIs report prompt-token counts together with the completion.
type Message struct {
	Role    Role          `json:"role"`
	Content []ContentPart `json:"content"`

	TokensUsed      *int     `json:"tokensUsed,omitempty"`
	ReasoningTokens *int     `json:"reasoningTokens,omitempty"`
	Cost            *float64 `json:"cost,omitempty"`
	Provider        string   `json:"provider,omitempty"`
	Model           string   `json:"model,omitempty"`
	Throughput      *float64 `json:"throughput,omitempty"`
	ResponseTime    *float64 `json:"responseTime,omitempty"`

	Timestamp time.Time `json:"timestamp"`
}

// NewMessage creates a message with the given role and content parts.
func NewMessage(role Role, parts ...ContentPart) Message {
	return Message{
		Role:      role,
		Content:   parts,
		Timestamp: time.Now(),
	}
}

// Text concatenates the text of all TextParts in the message.
func (m *Message) Text() string {
	var out string
	for _, part := range m.Content {
		if p, ok := part.(*TextPart); ok {
			out += p.Text
		}
	}
	return out
}

// UnmarshalJSON decodes the tagged content part list into concrete types.
func (m *Message) UnmarshalJSON(data []byte) error {
	type alias Message
	aux := struct {
		*alias
		Content []json.RawMessage `json:"content"`
	}{alias: (*alias)(m)}

	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}

	m.Content = make([]ContentPart, 0, len(aux.Content))
	for _, raw := range aux.Content {
		part, err := UnmarshalPart(raw)
		if err != nil {
			return err
		}
		m.Content = append(m.Content, part)
	}
	return nil
}
