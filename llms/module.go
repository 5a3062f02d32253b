package llms

import (
	"strconv"
	"strings"
	"time"

	"github.com/xyzj/cherrybot/json"
)

type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
	RoleSystem    Role = "system"
)

const titleLength = 32

// Message one turn of a conversation
type Message struct {
	Role    Role   `json:"role"`
	Content string `json:"content"`
}

// Clone returns a copy, turns are never shared between owners
func (m *Message) Clone() *Message {
	x := *m
	return &x
}

// ChatRequest body of the backend chat call
type ChatRequest struct {
	Messages []*Message `json:"messages"`
	Model    string     `json:"model"`
	Stream   bool       `json:"stream"` // 设置为 false 获取非流式响应
}

func (cr *ChatRequest) Marshal() ([]byte, error) {
	return json.Marshal(cr)
}

// Conversation an ordered list of turns, ID 0 means not saved yet
type Conversation struct {
	Turns   []*Message `json:"history"`
	ID      uint64     `json:"-"`
	Created int64      `json:"created"`
	Updated int64      `json:"updated"`
}

// NewConversation copies turns into a new unsaved conversation
func NewConversation(turns ...*Message) *Conversation {
	c := &Conversation{
		Turns:   make([]*Message, 0, len(turns)),
		Created: time.Now().Unix(),
	}
	for _, t := range turns {
		c.Turns = append(c.Turns, t.Clone())
	}
	return c
}

// Title the first user turn, shortened, or "Chat <id>"
func (c *Conversation) Title() string {
	for _, t := range c.Turns {
		if t.Role != RoleUser {
			continue
		}
		s := strings.Join(strings.Fields(t.Content), " ")
		if r := []rune(s); len(r) > titleLength {
			return string(r[:titleLength]) + "..."
		}
		return s
	}
	return "Chat " + strconv.FormatUint(c.ID, 10)
}

// Marshal the serialized form kept by the stores
func (c *Conversation) Marshal() ([]byte, error) {
	return json.Marshal(c)
}

// UnmarshalConversation parses data written by Marshal
func UnmarshalConversation(id uint64, data []byte) (*Conversation, error) {
	c := &Conversation{}
	if err := json.Unmarshal(data, c); err != nil {
		return nil, err
	}
	if c.Turns == nil {
		c.Turns = make([]*Message, 0)
	}
	c.ID = id
	return c, nil
}

// BackendStatus what the inference backend reports about itself
type BackendStatus struct {
	Version string   `json:"version"`
	Models  []string `json:"models"`
	GPU     bool     `json:"gpu"`
	Online  bool     `json:"online"`
}
