package storage

import (
	"context"
	"sync"
	"time"

	"github.com/xyzj/cherrybot/llms"
)

// MemStorage keeps serialized conversations in memory, lost on exit
type MemStorage struct {
	locker sync.RWMutex
	seq    uint64
	ids    []uint64
	data   map[uint64][]byte
}

func NewMemStorage() llms.Storage {
	return &MemStorage{
		ids:  make([]uint64, 0),
		data: make(map[uint64][]byte),
	}
}

func (s *MemStorage) Save(_ context.Context, id uint64, c *llms.Conversation) (uint64, error) {
	s.locker.Lock()
	defer s.locker.Unlock()
	if id > 0 {
		if _, ok := s.data[id]; !ok {
			return 0, notFound(id)
		}
	}
	c.Updated = time.Now().Unix()
	b, err := c.Marshal()
	if err != nil {
		return 0, storeError(err, "marshal")
	}
	if id == 0 {
		s.seq++
		id = s.seq
		s.ids = append(s.ids, id)
	}
	s.data[id] = b
	return id, nil
}

func (s *MemStorage) Load(_ context.Context, id uint64) (*llms.Conversation, error) {
	s.locker.RLock()
	b, ok := s.data[id]
	s.locker.RUnlock()
	if !ok {
		return nil, notFound(id)
	}
	c, err := llms.UnmarshalConversation(id, b)
	if err != nil {
		return nil, storeError(err, "unmarshal")
	}
	return c, nil
}

func (s *MemStorage) List(_ context.Context) ([]*llms.Conversation, error) {
	s.locker.RLock()
	defer s.locker.RUnlock()
	out := make([]*llms.Conversation, 0, len(s.ids))
	for _, id := range s.ids {
		c, err := llms.UnmarshalConversation(id, s.data[id])
		if err != nil {
			return nil, storeError(err, "unmarshal")
		}
		out = append(out, c)
	}
	return out, nil
}

func (s *MemStorage) Delete(_ context.Context, id uint64) error {
	s.locker.Lock()
	defer s.locker.Unlock()
	if _, ok := s.data[id]; !ok {
		return nil
	}
	delete(s.data, id)
	for k, v := range s.ids {
		if v == id {
			s.ids = append(s.ids[:k], s.ids[k+1:]...)
			break
		}
	}
	return nil
}

func (s *MemStorage) Close() error { return nil }
