package types

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestUnmarshalPart(t *testing.T) {
	tests := []struct {
		name string
		json string
		want ContentPart
	}{
		{
			name: "text",
			json: `{"type":"text","text":"hello"}`,
			want: &TextPart{Type: "text", Text: "hello"},
		},
		{
			name: "image",
			json: `{"type":"image_url","url":"https://example.com/a.png","detail":"high"}`,
			want: &ImagePart{Type: "image_url", URL: "https://example.com/a.png", Detail: "high"},
		},
		{
			name: "file",
			json: `{"type":"file","name":"notes.txt","mimeType":"text/plain","data":"aGk="}`,
			want: &FilePart{Type: "file", Name: "notes.txt", MimeType: "text/plain", Data: "aGk="},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			part, err := UnmarshalPart([]byte(tt.json))
			require.NoError(t, err)
			assert.Equal(t, tt.want, part)
		})
	}
}

func TestUnmarshalPart_UnknownType(t *testing.T) {
	_, err := UnmarshalPart([]byte(`{"type":"video","url":"x"}`))
	assert.Error(t, err)
}

func TestMessage_RoundTrip(t *testing.T) {
	msg := NewMessage(RoleUser,
		NewTextPart("describe this"),
		NewImagePart("https://example.com/cat.jpg", "low"),
	)

	data, err := json.Marshal(msg)
	require.NoError(t, err)

	var decoded Message
	require.NoError(t, json.Unmarshal(data, &decoded))

	require.Len(t, decoded.Content, 2)
	assert.Equal(t, RoleUser, decoded.Role)
	assert.Equal(t, "describe this", decoded.Content[0].(*TextPart).Text)
	assert.Equal(t, "low", decoded.Content[1].(*ImagePart).Detail)
	assert.Nil(t, decoded.TokensUsed)
	assert.Nil(t, decoded.Cost)
}

func TestMessage_Text(t *testing.T) {
	msg := NewMessage(RoleAssistant, NewTextPart("Hel"), NewTextPart("lo"))
	assert.Equal(t, "Hello", msg.Text())
}

func TestChatHistory_SortedAndNames(t *testing.T) {
	h := NewChatHistory()
	old := &Chat{ID: "1", Name: "Chat 1", LastActive: time.Now().Add(-time.Hour)}
	recent := &Chat{ID: "2", Name: "Chat 2", LastActive: time.Now()}
	h.Add(old)
	h.Add(recent)

	sorted := h.Sorted()
	require.Len(t, sorted, 2)
	assert.Equal(t, "2", sorted[0].ID)

	assert.True(t, h.HasName("Chat 1"))
	assert.False(t, h.HasName("Chat 3"))

	assert.True(t, h.Delete("1"))
	assert.False(t, h.Delete("1"))
}

func TestChat_AddMessageBumpsLastActive(t *testing.T) {
	chat := &Chat{ID: "c", Name: "Chat 1", LastActive: time.Now().Add(-time.Hour)}
	before := chat.LastActive

	chat.AddMessage(NewMessage(RoleUser, NewTextPart("hi")))

	require.Len(t, chat.Messages, 1)
	assert.True(t, chat.LastActive.After(before))
}

func TestConfig_RecentModelFallback(t *testing.T) {
	cfg := &Config{
		Providers: map[string]ProviderConfig{
			ProviderOpenAI: {
				APIKey: "k",
				Models: map[string]ModelConfig{
					"gpt-4o": {ModelID: "gpt-4o", DisplayName: "GPT-4o"},
				},
			},
		},
	}

	recent := cfg.GetRecentModel()
	require.NotNil(t, recent)
	assert.Equal(t, ProviderOpenAI, recent.Provider)
	assert.Equal(t, "gpt-4o", recent.ModelID)

	cfg.SetRecentModel(ProviderAnthropic, "claude-sonnet-4-20250514")
	recent = cfg.GetRecentModel()
	assert.Equal(t, ProviderAnthropic, recent.Provider)
}

func TestConfig_RecentModelEmpty(t *testing.T) {
	cfg := &Config{}
	assert.Nil(t, cfg.GetRecentModel())
}
