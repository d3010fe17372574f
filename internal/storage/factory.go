package storage

import (
	"context"
	"fmt"
	"path/filepath"
	"time"

	"nutritrack/internal/infrastructure/config"
	"nutritrack/internal/pkg/common"

	"go.uber.org/zap"
)

const defaultTimeout = 10 * time.Second

// NewStore 依設定建立儲存後端；遠端後端在 mirror_local 開啟時搭配本機檔案鏡像
func NewStore(ctx context.Context, cfg config.StorageConfig) (Store, error) {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	var (
		primary Store
		err     error
		remote  = true
	)

	switch cfg.Backend {
	case config.BackendMemory:
		primary, remote = NewMemoryStore(), false
	case config.BackendFile:
		primary, err = NewFileStore(cfg.DataDir)
		remote = false
	case config.BackendRedis:
		primary, err = NewRedisStore(ctx, cfg.Redis)
	case config.BackendSupabase:
		primary = NewSupabaseStore(cfg.Supabase, timeout)
	case config.BackendFirestore:
		primary, err = NewFirestoreStore(ctx, cfg.Firestore)
	case config.BackendPostgres:
		primary, err = NewPostgresStore(cfg.Postgres)
	case config.BackendBadger:
		primary, err = NewBadgerStore(cfg.Badger.Dir)
		remote = false
	default:
		return nil, fmt.Errorf("unknown storage backend %q", cfg.Backend)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to initialize %s storage: %w", cfg.Backend, err)
	}

	common.LogInfo("儲存後端已初始化",
		zap.String("backend", primary.Name()),
		zap.Bool("mirror_local", remote && cfg.MirrorLocal),
	)

	if !remote || !cfg.MirrorLocal {
		return Instrument(primary), nil
	}

	local, err := NewFileStore(filepath.Clean(cfg.DataDir))
	if err != nil {
		_ = primary.Close()
		return nil, err
	}
	return NewMirroredStore(Instrument(primary), Instrument(local), BreakerSettings{
		MaxFailures: cfg.Breaker.MaxFailures,
		OpenTimeout: cfg.Breaker.OpenTimeout,
	}), nil
}
