package types

import (
	"sort"
	"time"
)

// Chat is an ordered message sequence with metadata. Mutated only via
// AddMessage (which bumps LastActive) and rename.
type Chat struct {
	ID         string    `json:"id"`
	Name       string    `json:"name"`
	Messages   []Message `json:"messages"`
	LastActive time.Time `json:"lastActive"`
}

// AddMessage appends a message and bumps the last-active timestamp.
func (c *Chat) AddMessage(msg Message) {
	c.Messages = append(c.Messages, msg)
	c.LastActive = time.Now()
}

// ChatHistory owns all chats, keyed by chat ID.
type ChatHistory struct {
	Chats map[string]*Chat `json:"chats"`
}

// NewChatHistory creates an empty history.
func NewChatHistory() *ChatHistory {
	return &ChatHistory{Chats: make(map[string]*Chat)}
}

// Add registers a chat in the history.
func (h *ChatHistory) Add(chat *Chat) {
	if h.Chats == nil {
		h.Chats = make(map[string]*Chat)
	}
	h.Chats[chat.ID] = chat
}

// Get returns the chat with the given ID, or nil.
func (h *ChatHistory) Get(id string) *Chat {
	return h.Chats[id]
}

// Delete removes a chat. Returns false when the ID is unknown.
func (h *ChatHistory) Delete(id string) bool {
	if _, ok := h.Chats[id]; !ok {
		return false
	}
	delete(h.Chats, id)
	return true
}

// HasName reports whether any chat carries the given name.
func (h *ChatHistory) HasName(name string) bool {
	for _, chat := range h.Chats {
		if chat.Name == name {
			return true
		}
	}
	return false
}

// Sorted returns all chats ordered by last activity, most recent first.
func (h *ChatHistory) Sorted() []*Chat {
	chats := make([]*Chat, 0, len(h.Chats))
	for _, chat := range h.Chats {
		chats = append(chats, chat)
	}
	sort.Slice(chats, func(i, j int) bool {
		return chats[i].LastActive.After(chats[j].LastActive)
	})
	return chats
}
