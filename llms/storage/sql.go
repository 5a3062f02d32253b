package storage

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/glebarez/sqlite"
	"github.com/pkg/errors"
	"github.com/xyzj/cherrybot/json"
	"github.com/xyzj/cherrybot/llms"
	"gorm.io/driver/mysql"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlserver"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

type conversationRecord struct {
	ID        uint64 `gorm:"primaryKey;autoIncrement"`
	Data      string `gorm:"type:text;not null"`
	CreatedAt time.Time
	UpdatedAt time.Time
}

func (conversationRecord) TableName() string {
	return "conversations"
}

// SQLStorage one row per conversation, the turns kept as json text
type SQLStorage struct {
	driver string
	db     *gorm.DB
}

func dialector(driver, dsn string) (gorm.Dialector, error) {
	switch strings.ToLower(driver) {
	case "", "sqlite", "sqlite3":
		if dsn == "" {
			dsn = "cherrybot.sqlite"
		}
		if !strings.HasPrefix(dsn, ":memory:") && !strings.HasPrefix(dsn, "file:") {
			if err := os.MkdirAll(filepath.Dir(dsn), 0o775); err != nil {
				return nil, errors.Wrap(err, "create dir for "+dsn)
			}
		}
		return sqlite.Open(dsn), nil
	case "mysql":
		return mysql.Open(dsn), nil
	case "postgres", "postgresql":
		return postgres.Open(dsn), nil
	case "sqlserver", "mssql":
		return sqlserver.Open(dsn), nil
	}
	return nil, errors.Errorf("unsupported sql driver: %s", driver)
}

func NewSQLStorage(driver, dsn string) (llms.Storage, error) {
	d, err := dialector(driver, dsn)
	if err != nil {
		return nil, errors.Wrap(llms.ErrStoreUnavailable, err.Error())
	}
	db, err := gorm.Open(d, &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	if err != nil {
		return nil, storeError(err, "open "+d.Name())
	}
	sqlDB, err := db.DB()
	if err != nil {
		return nil, storeError(err, "open "+d.Name())
	}
	if d.Name() == "sqlite" {
		// sqlite 单连接，避免内存库在不同连接间不可见以及写锁冲突
		sqlDB.SetMaxOpenConns(1)
	} else {
		sqlDB.SetMaxIdleConns(5)
		sqlDB.SetMaxOpenConns(20)
		sqlDB.SetConnMaxLifetime(time.Hour)
	}
	if err = db.AutoMigrate(&conversationRecord{}); err != nil {
		sqlDB.Close()
		return nil, storeError(err, "migrate")
	}
	return &SQLStorage{
		driver: d.Name(),
		db:     db,
	}, nil
}

func (s *SQLStorage) decode(r *conversationRecord) (*llms.Conversation, error) {
	c, err := llms.UnmarshalConversation(r.ID, json.Bytes(r.Data))
	if err != nil {
		return nil, storeError(err, "unmarshal")
	}
	return c, nil
}

func (s *SQLStorage) Save(ctx context.Context, id uint64, c *llms.Conversation) (uint64, error) {
	c.Updated = time.Now().Unix()
	b, err := c.Marshal()
	if err != nil {
		return 0, storeError(err, "marshal")
	}
	if id == 0 {
		r := &conversationRecord{Data: string(b)}
		if err = s.db.WithContext(ctx).Create(r).Error; err != nil {
			return 0, storeError(err, "insert")
		}
		return r.ID, nil
	}
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		r := &conversationRecord{}
		if err := tx.Select("id").First(r, id).Error; err != nil {
			return err
		}
		return tx.Model(r).Update("data", string(b)).Error
	})
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return 0, notFound(id)
	}
	if err != nil {
		return 0, storeError(err, "update")
	}
	return id, nil
}

func (s *SQLStorage) Load(ctx context.Context, id uint64) (*llms.Conversation, error) {
	r := &conversationRecord{}
	err := s.db.WithContext(ctx).First(r, id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, notFound(id)
	}
	if err != nil {
		return nil, storeError(err, "load")
	}
	return s.decode(r)
}

func (s *SQLStorage) List(ctx context.Context) ([]*llms.Conversation, error) {
	rs := make([]*conversationRecord, 0)
	if err := s.db.WithContext(ctx).Order("id").Find(&rs).Error; err != nil {
		return nil, storeError(err, "list")
	}
	out := make([]*llms.Conversation, 0, len(rs))
	for _, r := range rs {
		c, err := s.decode(r)
		if err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, nil
}

func (s *SQLStorage) Delete(ctx context.Context, id uint64) error {
	if err := s.db.WithContext(ctx).Delete(&conversationRecord{}, id).Error; err != nil {
		return storeError(err, "delete")
	}
	return nil
}

func (s *SQLStorage) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
