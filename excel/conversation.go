package excel

import (
	"time"

	"github.com/xyzj/cherrybot/llms"
)

const (
	SheetConversations = "conversations"
	SheetTurns         = "turns"

	timeFormat = "2006-01-02 15:04:05"
)

func stamp(t int64) string {
	if t == 0 {
		return ""
	}
	return time.Unix(t, 0).Format(timeFormat)
}

// NewConversationBook 两个sheet：会话列表和每一轮对话
func NewConversationBook(filename string, convs []*llms.Conversation) (*FileData, error) {
	fd := NewExcel(filename)
	if _, err := fd.AddSheet(SheetConversations); err != nil {
		return nil, err
	}
	fd.SetColume("id", "title", "turns", "created", "updated")
	fd.SetColWidth(2, 2, 40)
	fd.SetColWidth(4, 5, 20)
	for _, c := range convs {
		fd.AddRow(int64(c.ID), c.Title(), len(c.Turns), stamp(c.Created), stamp(c.Updated))
	}

	if _, err := fd.AddSheet(SheetTurns); err != nil {
		return nil, err
	}
	fd.SetColume("id", "seq", "role", "content")
	fd.SetColWidth(4, 4, 100)
	for _, c := range convs {
		for k, t := range c.Turns {
			fd.AddRow(int64(c.ID), k+1, string(t.Role), t.Content)
		}
	}
	return fd, nil
}
