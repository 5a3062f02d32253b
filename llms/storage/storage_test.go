package storage

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xyzj/cherrybot/compressor"
	"github.com/xyzj/cherrybot/llms"
)

func backends(t *testing.T) map[string]llms.Storage {
	dir := t.TempDir()
	file, err := NewFileStorage(filepath.Join(dir, "plain.db"), compressor.None)
	require.NoError(t, err)
	zfile, err := NewFileStorage(filepath.Join(dir, "zstd.db"), compressor.Zstd)
	require.NoError(t, err)
	db, err := NewSQLStorage("sqlite", ":memory:")
	require.NoError(t, err)
	m := map[string]llms.Storage{
		"memory": NewMemStorage(),
		"file":   file,
		"zstd":   zfile,
		"sql":    db,
	}
	t.Cleanup(func() {
		for _, s := range m {
			s.Close()
		}
	})
	return m
}

func conv(texts ...string) *llms.Conversation {
	turns := make([]*llms.Message, 0, len(texts))
	for k, s := range texts {
		r := llms.RoleUser
		if k%2 == 1 {
			r = llms.RoleAssistant
		}
		turns = append(turns, &llms.Message{Role: r, Content: s})
	}
	return llms.NewConversation(turns...)
}

func TestSaveLoad(t *testing.T) {
	ctx := context.Background()
	for name, s := range backends(t) {
		t.Run(name, func(t *testing.T) {
			id, err := s.Save(ctx, 0, conv("Hello", "Hi there"))
			require.NoError(t, err)
			assert.Greater(t, id, uint64(0))

			c, err := s.Load(ctx, id)
			require.NoError(t, err)
			assert.Equal(t, id, c.ID)
			require.Len(t, c.Turns, 2)
			assert.Equal(t, "Hello", c.Turns[0].Content)
			assert.Equal(t, llms.RoleAssistant, c.Turns[1].Role)

			id2, err := s.Save(ctx, 0, conv("second"))
			require.NoError(t, err)
			assert.NotEqual(t, id, id2)
		})
	}
}

func TestOverwrite(t *testing.T) {
	ctx := context.Background()
	for name, s := range backends(t) {
		t.Run(name, func(t *testing.T) {
			id, err := s.Save(ctx, 0, conv("A"))
			require.NoError(t, err)
			got, err := s.Save(ctx, id, conv("A", "B", "C"))
			require.NoError(t, err)
			assert.Equal(t, id, got)

			c, err := s.Load(ctx, id)
			require.NoError(t, err)
			assert.Len(t, c.Turns, 3)

			all, err := s.List(ctx)
			require.NoError(t, err)
			assert.Len(t, all, 1)

			_, err = s.Save(ctx, id+100, conv("X"))
			assert.ErrorIs(t, err, llms.ErrNotFound)
		})
	}
}

func TestListOrderAndDelete(t *testing.T) {
	ctx := context.Background()
	for name, s := range backends(t) {
		t.Run(name, func(t *testing.T) {
			ids := make([]uint64, 0, 3)
			for _, x := range []string{"one", "two", "three"} {
				id, err := s.Save(ctx, 0, conv(x))
				require.NoError(t, err)
				ids = append(ids, id)
			}
			// 更新不改变顺序
			_, err := s.Save(ctx, ids[0], conv("one", "again"))
			require.NoError(t, err)

			all, err := s.List(ctx)
			require.NoError(t, err)
			require.Len(t, all, 3)
			for k, c := range all {
				assert.Equal(t, ids[k], c.ID)
			}
			assert.Equal(t, "two", all[1].Title())

			require.NoError(t, s.Delete(ctx, ids[1]))
			require.NoError(t, s.Delete(ctx, ids[1]))
			require.NoError(t, s.Delete(ctx, 9999))

			_, err = s.Load(ctx, ids[1])
			assert.ErrorIs(t, err, llms.ErrNotFound)
			all, err = s.List(ctx)
			require.NoError(t, err)
			assert.Len(t, all, 2)
		})
	}
}

func TestFileReopen(t *testing.T) {
	ctx := context.Background()
	fn := filepath.Join(t.TempDir(), "chat.db")
	s, err := New(&Config{Type: "file", Filename: fn, Compress: "snappy"})
	require.NoError(t, err)
	id, err := s.Save(ctx, 0, conv("persist me"))
	require.NoError(t, err)
	require.NoError(t, s.Close())

	s, err = New(&Config{Type: "file", Filename: fn, Compress: "snappy"})
	require.NoError(t, err)
	defer s.Close()
	c, err := s.Load(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, "persist me", c.Turns[0].Content)
}

func TestNewErrors(t *testing.T) {
	_, err := New(&Config{Type: "redis"})
	assert.ErrorIs(t, err, llms.ErrStoreUnavailable)
	_, err = New(&Config{Type: "sql", Driver: "oracle"})
	assert.ErrorIs(t, err, llms.ErrStoreUnavailable)
	_, err = New(&Config{Type: "file", Compress: "lz4"})
	assert.ErrorIs(t, err, llms.ErrStoreUnavailable)

	s, err := New(&Config{})
	require.NoError(t, err)
	assert.IsType(t, &MemStorage{}, s)
}

func TestDirErrors(t *testing.T) {
	f := filepath.Join(t.TempDir(), "file")
	require.NoError(t, os.WriteFile(f, nil, 0o664))

	_, err := NewFileStorage(filepath.Join(f, "data", "chat.db"), compressor.None)
	assert.ErrorIs(t, err, llms.ErrStoreUnavailable)
	assert.Contains(t, err.Error(), "create dir")

	_, err = NewSQLStorage("sqlite", filepath.Join(f, "data", "chat.sqlite"))
	assert.ErrorIs(t, err, llms.ErrStoreUnavailable)
	assert.Contains(t, err.Error(), "create dir")
}
