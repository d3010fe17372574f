package storage

import (
	"context"
	"errors"
	"fmt"
	"time"

	"nutritrack/internal/infrastructure/config"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	"gorm.io/gorm/logger"
)

// Document 文件資料表的一列
type Document struct {
	Key       string    `gorm:"column:doc_key;primaryKey;size:512"`
	Data      []byte    `gorm:"column:data;type:jsonb;not null"`
	UpdatedAt time.Time `gorm:"column:updated_at"`
}

// PostgresStore 將文件存放在 Postgres 的 jsonb 欄位
type PostgresStore struct {
	db    *gorm.DB
	table string
}

// NewPostgresStore 連線並建立文件資料表
func NewPostgresStore(cfg config.PostgresConfig) (*PostgresStore, error) {
	db, err := gorm.Open(postgres.Open(cfg.DSN), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Warn),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}
	return NewPostgresStoreFromDB(db, cfg.Table)
}

// NewPostgresStoreFromDB 使用既有連線
func NewPostgresStoreFromDB(db *gorm.DB, table string) (*PostgresStore, error) {
	if err := db.Table(table).AutoMigrate(&Document{}); err != nil {
		return nil, fmt.Errorf("failed to auto-migrate %s: %w", table, err)
	}
	return &PostgresStore{db: db, table: table}, nil
}

func (p *PostgresStore) Get(ctx context.Context, key string) ([]byte, error) {
	var doc Document
	err := p.db.WithContext(ctx).Table(p.table).Where("doc_key = ?", key).Take(&doc).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to get %s: %w", key, err)
	}
	return doc.Data, nil
}

func (p *PostgresStore) Put(ctx context.Context, key string, data []byte) error {
	if err := validKey(key); err != nil {
		return err
	}
	doc := Document{Key: key, Data: data, UpdatedAt: time.Now().UTC()}
	err := p.db.WithContext(ctx).Table(p.table).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "doc_key"}},
		DoUpdates: clause.AssignmentColumns([]string{"data", "updated_at"}),
	}).Create(&doc).Error
	if err != nil {
		return fmt.Errorf("failed to upsert %s: %w", key, err)
	}
	return nil
}

func (p *PostgresStore) Ping(ctx context.Context) error {
	sqlDB, err := p.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.PingContext(ctx)
}

func (p *PostgresStore) Close() error {
	sqlDB, err := p.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

func (p *PostgresStore) Name() string { return "postgres" }
