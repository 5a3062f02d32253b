package llms

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConversationRoundTrip(t *testing.T) {
	c := NewConversation(
		&Message{Role: RoleUser, Content: "Hello"},
		&Message{Role: RoleAssistant, Content: "Hi there"},
	)
	b, err := c.Marshal()
	require.NoError(t, err)
	assert.Contains(t, string(b), `"history"`)

	x, err := UnmarshalConversation(7, b)
	require.NoError(t, err)
	assert.Equal(t, uint64(7), x.ID)
	assert.Equal(t, c.Turns, x.Turns)
	assert.Equal(t, c.Created, x.Created)
}

func TestUnmarshalConversationInvalid(t *testing.T) {
	_, err := UnmarshalConversation(1, []byte("not json"))
	assert.Error(t, err)
}

func TestNewConversationCopiesTurns(t *testing.T) {
	m := &Message{Role: RoleUser, Content: "a"}
	c := NewConversation(m)
	m.Content = "b"
	assert.Equal(t, "a", c.Turns[0].Content)
}

func TestTitle(t *testing.T) {
	c := &Conversation{ID: 3}
	assert.Equal(t, "Chat 3", c.Title())

	c.Turns = []*Message{{Role: RoleUser, Content: "  what   is\ngo  "}}
	assert.Equal(t, "what is go", c.Title())

	c.Turns = []*Message{{Role: RoleUser, Content: strings.Repeat("x", 40)}}
	assert.Equal(t, strings.Repeat("x", 32)+"...", c.Title())
}

func TestChatRequestMarshal(t *testing.T) {
	cr := &ChatRequest{
		Messages: []*Message{{Role: RoleUser, Content: "Hello"}},
		Model:    "llama3",
		Stream:   true,
	}
	b, err := cr.Marshal()
	require.NoError(t, err)
	assert.JSONEq(t, `{"messages":[{"role":"user","content":"Hello"}],"model":"llama3","stream":true}`, string(b))
}
