package storage

import (
	"context"
	"encoding/binary"
	"os"
	"path/filepath"
	"time"

	"github.com/xyzj/cherrybot/compressor"
	"github.com/xyzj/cherrybot/llms"
	bolt "go.etcd.io/bbolt"
)

var bucketName = []byte("conversations")

// FileStorage one bolt file, one key per conversation
type FileStorage struct {
	f   string
	alg compressor.Algorithm
	db  *bolt.DB
}

func NewFileStorage(filename string, alg compressor.Algorithm) (llms.Storage, error) {
	if filename == "" {
		filename = "cherrybot.db"
	}
	if err := os.MkdirAll(filepath.Dir(filename), 0o775); err != nil {
		return nil, storeError(err, "create dir for "+filename)
	}
	db, err := bolt.Open(filename, 0o664, &bolt.Options{Timeout: time.Second * 3})
	if err != nil {
		return nil, storeError(err, "open "+filename)
	}
	err = db.Update(func(tx *bolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists(bucketName)
		return err
	})
	if err != nil {
		db.Close()
		return nil, storeError(err, "create bucket")
	}
	return &FileStorage{
		f:   filename,
		alg: alg,
		db:  db,
	}, nil
}

func itob(v uint64) []byte {
	b := make([]byte, 8)
	binary.BigEndian.PutUint64(b, v)
	return b
}

func (s *FileStorage) decode(k, v []byte) (*llms.Conversation, error) {
	b, err := compressor.Decompress(s.alg, v)
	if err != nil {
		return nil, storeError(err, "decompress")
	}
	c, err := llms.UnmarshalConversation(binary.BigEndian.Uint64(k), b)
	if err != nil {
		return nil, storeError(err, "unmarshal")
	}
	return c, nil
}

func (s *FileStorage) Save(_ context.Context, id uint64, c *llms.Conversation) (uint64, error) {
	c.Updated = time.Now().Unix()
	b, err := c.Marshal()
	if err != nil {
		return 0, storeError(err, "marshal")
	}
	if b, err = compressor.Compress(s.alg, b); err != nil {
		return 0, storeError(err, "compress")
	}
	var errNotFound error
	err = s.db.Update(func(tx *bolt.Tx) error {
		bucket := tx.Bucket(bucketName)
		if id == 0 {
			if id, err = bucket.NextSequence(); err != nil {
				return err
			}
		} else if bucket.Get(itob(id)) == nil {
			errNotFound = notFound(id)
			return errNotFound
		}
		return bucket.Put(itob(id), b)
	})
	if errNotFound != nil {
		return 0, errNotFound
	}
	if err != nil {
		return 0, storeError(err, "save")
	}
	return id, nil
}

func (s *FileStorage) Load(_ context.Context, id uint64) (*llms.Conversation, error) {
	var v []byte
	err := s.db.View(func(tx *bolt.Tx) error {
		// bolt 的值只在事务内有效
		if x := tx.Bucket(bucketName).Get(itob(id)); x != nil {
			v = append([]byte{}, x...)
		}
		return nil
	})
	if err != nil {
		return nil, storeError(err, "load")
	}
	if v == nil {
		return nil, notFound(id)
	}
	return s.decode(itob(id), v)
}

func (s *FileStorage) List(_ context.Context) ([]*llms.Conversation, error) {
	out := make([]*llms.Conversation, 0)
	var errDecode error
	err := s.db.View(func(tx *bolt.Tx) error {
		return tx.Bucket(bucketName).ForEach(func(k, v []byte) error {
			c, err := s.decode(k, v)
			if err != nil {
				errDecode = err
				return err
			}
			out = append(out, c)
			return nil
		})
	})
	if errDecode != nil {
		return nil, errDecode
	}
	if err != nil {
		return nil, storeError(err, "list")
	}
	return out, nil
}

func (s *FileStorage) Delete(_ context.Context, id uint64) error {
	err := s.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket(bucketName).Delete(itob(id))
	})
	if err != nil {
		return storeError(err, "delete")
	}
	return nil
}

func (s *FileStorage) Close() error {
	return s.db.Close()
}
