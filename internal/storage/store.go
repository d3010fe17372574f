// Package storage 提供不透明的 key-value 文件儲存：每個 key 對應一份 JSON 文件
// （例如 foods.json、consumption_history/<user>.json），並在其上建立型別化的 repository。
package storage

import (
	"context"
	"errors"
	"strings"
	"time"

	"nutritrack/internal/metrics"
	"nutritrack/internal/pkg/common"
)

// ErrNotFound key 不存在
var ErrNotFound = errors.New("storage: key not found")

// Store 文件儲存介面
type Store interface {
	// Get 讀取文件，不存在時回傳 ErrNotFound
	Get(ctx context.Context, key string) ([]byte, error)
	// Put 覆寫文件
	Put(ctx context.Context, key string, data []byte) error
	// Ping 檢查後端是否可用
	Ping(ctx context.Context) error
	// Close 釋放連線
	Close() error
	// Name 後端名稱（用於日誌與指標）
	Name() string
}

// 文件 key
const (
	KeyFoods          = "foods.json"
	KeyMappings       = "ingredient_food_mapping.json"
	KeyRecipes        = "recipes.json"
	KeyPublicRecipes  = "recipes_public.json"
	prefixPrivate     = "recipes_private/"
	prefixConsumption = "consumption_history/"
	prefixStats       = "nutrition_stats/"
)

// PrivateRecipesKey 使用者私人食譜
func PrivateRecipesKey(userID string) (string, error) { return userKey(prefixPrivate, userID) }

// ConsumptionKey 使用者消費紀錄
func ConsumptionKey(userID string) (string, error) { return userKey(prefixConsumption, userID) }

// StatsKey 使用者統計快取
func StatsKey(userID string) (string, error) { return userKey(prefixStats, userID) }

// userKey 組出使用者文件的 key
// 含路徑分隔符號或 .. 的 ID 直接拒絕，改寫會讓不同使用者落在同一份文件
func userKey(prefix, userID string) (string, error) {
	id := strings.TrimSpace(userID)
	if id == "" || strings.ContainsAny(id, `/\`) || strings.Contains(id, "..") {
		return "", common.NewValidationError("invalid user id: " + userID)
	}
	return prefix + id + ".json", nil
}

// validKey key 不可為空、不可為絕對路徑或包含 ..
func validKey(key string) error {
	if key == "" || strings.HasPrefix(key, "/") || strings.Contains(key, "..") {
		return common.NewValidationError("invalid storage key: " + key)
	}
	return nil
}

// instrumented 為任一後端加上日誌與指標
type instrumented struct {
	Store
}

// Instrument 包裝後端，記錄每次操作的耗時與錯誤
func Instrument(s Store) Store {
	if _, ok := s.(*instrumented); ok {
		return s
	}
	return &instrumented{Store: s}
}

func (i *instrumented) Get(ctx context.Context, key string) ([]byte, error) {
	start := time.Now()
	data, err := i.Store.Get(ctx, key)
	observe(i.Name(), "get", key, start, err)
	return data, err
}

func (i *instrumented) Put(ctx context.Context, key string, data []byte) error {
	start := time.Now()
	err := i.Store.Put(ctx, key, data)
	observe(i.Name(), "put", key, start, err)
	return err
}

func observe(backend, op, key string, start time.Time, err error) {
	d := time.Since(start)
	// 找不到文件是正常情況
	if errors.Is(err, ErrNotFound) {
		err = nil
	}
	metrics.RecordStoreOperation(backend, op, d, err)
	common.LogStoreCall(backend, op, key, d, err)
}
