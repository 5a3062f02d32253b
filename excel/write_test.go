package excel

import (
	"bytes"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xyzj/cherrybot/llms"
)

func TestExcelRoundTrip(t *testing.T) {
	fd := NewExcel("")
	_, err := fd.AddSheet("daily")
	require.NoError(t, err)
	fd.SetColume("name", "value")
	fd.AddRow("a", 1)
	fd.AddRow("=SUM(A1)", 2.5)

	buf := &bytes.Buffer{}
	require.NoError(t, fd.Write(buf))
	rd, err := NewExcelFromBinary(buf.Bytes(), "")
	require.NoError(t, err)
	rows := rd.GetRows("daily")
	require.Len(t, rows, 3)
	assert.Equal(t, []string{"name", "value"}, rows[0])
	assert.Equal(t, "a", rows[1][0])
	assert.Equal(t, "=SUM(A1)", rows[2][0])
	assert.Empty(t, rd.GetRows("missing"))

	_, err = NewExcelFromBinary([]byte("not a zip"), "")
	assert.Error(t, err)
}

func TestConversationBook(t *testing.T) {
	a := llms.NewConversation(
		&llms.Message{Role: llms.RoleUser, Content: "Hello"},
		&llms.Message{Role: llms.RoleAssistant, Content: "Hi there"},
	)
	a.ID = 1
	b := llms.NewConversation(&llms.Message{Role: llms.RoleUser, Content: "Ping"})
	b.ID = 2

	fn := filepath.Join(t.TempDir(), "export", "chats")
	fd, err := NewConversationBook(fn, []*llms.Conversation{a, b})
	require.NoError(t, err)
	saved, err := fd.ToFile("")
	require.NoError(t, err)
	assert.Equal(t, fn+".xlsx", saved)

	buf := &bytes.Buffer{}
	require.NoError(t, fd.Write(buf))
	rd, err := NewExcelFromBinary(buf.Bytes(), "")
	require.NoError(t, err)

	convs := rd.GetRows(SheetConversations)
	require.Len(t, convs, 3)
	assert.Equal(t, "Hello", convs[1][1])
	assert.Equal(t, "2", convs[1][2])
	assert.Equal(t, "Ping", convs[2][1])

	turns := rd.GetRows(SheetTurns)
	require.Len(t, turns, 4)
	assert.Equal(t, []string{"1", "2", "assistant", "Hi there"}, turns[2])
}
