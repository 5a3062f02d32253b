// Package storage 会话持久化，支持内存、bolt 文件和 sql 数据库
package storage

import (
	"strings"

	"github.com/pkg/errors"
	"github.com/xyzj/cherrybot/compressor"
	"github.com/xyzj/cherrybot/llms"
)

type StorageType byte

const (
	Memory StorageType = iota
	File               // use bolt storage
	SQL                // use gorm
)

func ParseStorageType(s string) (StorageType, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "memory", "mem":
		return Memory, nil
	case "file", "bolt":
		return File, nil
	case "sql", "db":
		return SQL, nil
	}
	return Memory, errors.Errorf("unknown storage type: %s", s)
}

// Config selects and opens a backend
type Config struct {
	Type     string `yaml:"type"`
	Filename string `yaml:"filename"` // bolt 文件路径
	Compress string `yaml:"compress"` // bolt 数据压缩方式，none, gzip, snappy, zstd
	Driver   string `yaml:"driver"`   // sqlite, mysql, postgres, sqlserver
	DSN      string `yaml:"dsn"`
}

// New opens the backend named by cfg.Type
func New(cfg *Config) (llms.Storage, error) {
	t, err := ParseStorageType(cfg.Type)
	if err != nil {
		return nil, errors.Wrap(llms.ErrStoreUnavailable, err.Error())
	}
	switch t {
	case File:
		alg, err := compressor.ParseAlgorithm(cfg.Compress)
		if err != nil {
			return nil, errors.Wrap(llms.ErrStoreUnavailable, err.Error())
		}
		return NewFileStorage(cfg.Filename, alg)
	case SQL:
		return NewSQLStorage(cfg.Driver, cfg.DSN)
	default:
		return NewMemStorage(), nil
	}
}

func storeError(err error, msg string) error {
	return errors.Wrap(llms.ErrStoreUnavailable, msg+": "+err.Error())
}

func notFound(id uint64) error {
	return errors.Wrapf(llms.ErrNotFound, "id %d", id)
}
