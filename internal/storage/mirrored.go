package storage

import (
	"context"
	"errors"
	"time"

	"nutritrack/internal/metrics"
	"nutritrack/internal/pkg/common"

	gobreaker "github.com/sony/gobreaker/v2"
	"go.uber.org/zap"
)

// MirroredStore 遠端為主、本機為備援的儲存
//
// 讀取：先讀遠端，成功時同步更新本機副本；遠端失敗、熔斷或不存在時改讀本機。
// 寫入：遠端盡力寫入（失敗只記錄），本機一定寫入，以本機結果為準。
type MirroredStore struct {
	remote  Store
	local   Store
	breaker *gobreaker.CircuitBreaker[[]byte]
}

// BreakerSettings 熔斷器參數
type BreakerSettings struct {
	MaxFailures uint32
	OpenTimeout time.Duration
}

// NewMirroredStore 創建遠端加本機鏡像的儲存
func NewMirroredStore(remote, local Store, bs BreakerSettings) *MirroredStore {
	if bs.MaxFailures == 0 {
		bs.MaxFailures = 5
	}
	name := remote.Name()
	settings := gobreaker.Settings{
		Name:        name,
		MaxRequests: 1,
		Timeout:     bs.OpenTimeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= bs.MaxFailures
		},
		// 文件不存在不算失敗
		IsSuccessful: func(err error) bool {
			return err == nil || errors.Is(err, ErrNotFound)
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			metrics.CircuitBreakerState.WithLabelValues(name).Set(breakerStateValue(to))
			common.LogWarn("遠端儲存熔斷器狀態變更",
				zap.String("backend", name),
				zap.String("from", from.String()),
				zap.String("to", to.String()),
			)
		},
	}
	metrics.CircuitBreakerState.WithLabelValues(name).Set(0)

	return &MirroredStore{
		remote:  remote,
		local:   local,
		breaker: gobreaker.NewCircuitBreaker[[]byte](settings),
	}
}

func breakerStateValue(s gobreaker.State) float64 {
	switch s {
	case gobreaker.StateHalfOpen:
		return 1
	case gobreaker.StateOpen:
		return 2
	default:
		return 0
	}
}

func (m *MirroredStore) Get(ctx context.Context, key string) ([]byte, error) {
	data, err := m.breaker.Execute(func() ([]byte, error) {
		return m.remote.Get(ctx, key)
	})
	if err == nil {
		// 更新本機快取副本
		if lerr := m.local.Put(ctx, key, data); lerr != nil {
			common.LogWarn("更新本機副本失敗", zap.String("key", key), zap.Error(lerr))
		}
		return data, nil
	}

	if !errors.Is(err, ErrNotFound) {
		metrics.StoreFallbacks.WithLabelValues("get").Inc()
		common.LogWarn("遠端讀取失敗，改用本機副本",
			zap.String("backend", m.remote.Name()),
			zap.String("key", key),
			zap.Error(err),
		)
	}
	return m.local.Get(ctx, key)
}

func (m *MirroredStore) Put(ctx context.Context, key string, data []byte) error {
	_, rerr := m.breaker.Execute(func() ([]byte, error) {
		return nil, m.remote.Put(ctx, key, data)
	})
	if rerr != nil {
		metrics.StoreFallbacks.WithLabelValues("put").Inc()
		common.LogWarn("遠端寫入失敗，僅保存本機副本",
			zap.String("backend", m.remote.Name()),
			zap.String("key", key),
			zap.Error(rerr),
		)
	}
	return m.local.Put(ctx, key, data)
}

// Ping 本機可用即視為就緒，遠端狀態只記錄
func (m *MirroredStore) Ping(ctx context.Context) error {
	if err := m.remote.Ping(ctx); err != nil {
		common.LogWarn("遠端儲存無法連線", zap.String("backend", m.remote.Name()), zap.Error(err))
	}
	return m.local.Ping(ctx)
}

func (m *MirroredStore) Close() error {
	return errors.Join(m.remote.Close(), m.local.Close())
}

func (m *MirroredStore) Name() string {
	return m.remote.Name() + "+" + m.local.Name()
}

// BreakerState 目前熔斷器狀態
func (m *MirroredStore) BreakerState() string {
	return m.breaker.State().String()
}
