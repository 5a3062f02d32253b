// Package history 当前对话的内存状态，只允许追加
package history

import (
	"strings"
	"sync"

	"github.com/pkg/errors"
	"github.com/xyzj/cherrybot/json"
	"github.com/xyzj/cherrybot/llms"
)

func NewChatHistory() *ChatHistory {
	return &ChatHistory{
		data: make([]*llms.Message, 0, 16),
	}
}

// ChatHistory ordered turns of the conversation being composed
type ChatHistory struct {
	locker sync.RWMutex
	data   []*llms.Message
}

// Store appends a turn. User turns must carry some non-blank content.
func (u *ChatHistory) Store(msg *llms.Message) error {
	if msg.Role == llms.RoleUser && strings.TrimSpace(msg.Content) == "" {
		return errors.Wrap(llms.ErrValidation, "empty user message")
	}
	u.locker.Lock()
	u.data = append(u.data, msg.Clone())
	u.locker.Unlock()
	return nil
}

// Replace drops the current turns and takes a copy of msgs
func (u *ChatHistory) Replace(msgs []*llms.Message) {
	x := make([]*llms.Message, 0, len(msgs))
	for _, m := range msgs {
		x = append(x, m.Clone())
	}
	u.locker.Lock()
	u.data = x
	u.locker.Unlock()
}

func (u *ChatHistory) Clear() {
	u.locker.Lock()
	u.data = make([]*llms.Message, 0, 16)
	u.locker.Unlock()
}

func (u *ChatHistory) Len() int {
	u.locker.RLock()
	defer u.locker.RUnlock()
	return len(u.data)
}

// Slice copies of the turns in append order
func (u *ChatHistory) Slice() []*llms.Message {
	u.locker.RLock()
	defer u.locker.RUnlock()
	x := make([]*llms.Message, 0, len(u.data))
	for _, m := range u.data {
		x = append(x, m.Clone())
	}
	return x
}

func (u *ChatHistory) MarshalJSON() ([]byte, error) {
	return json.Marshal(u.Slice())
}
