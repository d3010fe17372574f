package storage

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"nutritrack/internal/core/food"
	"nutritrack/internal/core/recipe"
	"nutritrack/internal/core/stats"
	"nutritrack/internal/pkg/common"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"
)

// readDocument 讀取並解析文件；不存在時回傳 false
func readDocument(ctx context.Context, s Store, key string, v interface{}) (bool, error) {
	data, err := s.Get(ctx, key)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return false, nil
		}
		return false, common.Wrap(common.ErrStoreUnavailable, err)
	}
	if len(bytes.TrimSpace(data)) == 0 {
		return false, nil
	}
	if err := common.ParseJSONBytes(data, v); err != nil {
		return false, fmt.Errorf("failed to decode %s: %w", key, err)
	}
	return true, nil
}

// writeDocument 序列化並寫入文件
func writeDocument(ctx context.Context, s Store, key string, v interface{}) error {
	data, err := common.MarshalJSONIndent(v)
	if err != nil {
		return fmt.Errorf("failed to encode %s: %w", key, err)
	}
	if err := s.Put(ctx, key, data); err != nil {
		return common.Wrap(common.ErrStoreUnavailable, err)
	}
	return nil
}

// CatalogRepository 食物目錄與食材對應表
type CatalogRepository struct {
	store    Store
	cache    *CatalogCache
	validate *validator.Validate

	// mappingsMu 保護對應表的讀改寫流程
	mappingsMu sync.Mutex
}

// NewCatalogRepository 創建目錄 repository；cache 可為 nil
func NewCatalogRepository(s Store, cache *CatalogCache) *CatalogRepository {
	return &CatalogRepository{
		store:    s,
		cache:    cache,
		validate: validator.New(),
	}
}

// LoadFoods 載入食物目錄並依 food_id 排序，不合法的項目會被略過
func (r *CatalogRepository) LoadFoods(ctx context.Context) ([]food.Food, error) {
	if v, ok := r.cache.Get(KeyFoods); ok {
		return v.([]food.Food), nil
	}

	foods, err := r.readFoods(ctx)
	if err != nil {
		return nil, err
	}

	valid := foods[:0]
	for _, f := range foods {
		if err := r.validate.Struct(f); err != nil {
			common.LogWarn("略過不合法的食物資料",
				zap.String("food_id", f.FoodID),
				zap.Error(err),
			)
			continue
		}
		valid = append(valid, f)
	}
	sort.SliceStable(valid, func(i, j int) bool {
		return valid[i].FoodID < valid[j].FoodID
	})

	r.cache.Set(KeyFoods, valid)
	return valid, nil
}

// readFoods 支援陣列與 {"foods": [...]} 兩種格式
func (r *CatalogRepository) readFoods(ctx context.Context) ([]food.Food, error) {
	data, err := r.store.Get(ctx, KeyFoods)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return []food.Food{}, nil
		}
		return nil, common.Wrap(common.ErrStoreUnavailable, err)
	}
	data = bytes.TrimSpace(data)
	if len(data) == 0 {
		return []food.Food{}, nil
	}

	if data[0] == '{' {
		var wrapped struct {
			Foods []food.Food `json:"foods"`
		}
		if err := common.ParseJSONBytes(data, &wrapped); err != nil {
			return nil, fmt.Errorf("failed to decode %s: %w", KeyFoods, err)
		}
		if wrapped.Foods == nil {
			wrapped.Foods = []food.Food{}
		}
		return wrapped.Foods, nil
	}

	foods := []food.Food{}
	if err := common.ParseJSONBytes(data, &foods); err != nil {
		return nil, fmt.Errorf("failed to decode %s: %w", KeyFoods, err)
	}
	return foods, nil
}

// GetFood 依 ID 查詢食物，找不到時回傳 ErrFoodNotFound
func (r *CatalogRepository) GetFood(ctx context.Context, foodID string) (*food.Food, error) {
	foods, err := r.LoadFoods(ctx)
	if err != nil {
		return nil, err
	}
	f := food.FindByID(foods, foodID)
	if f == nil {
		return nil, common.ErrFoodNotFound
	}
	return f, nil
}

// LoadIngredientMappings 載入對應表，key 為正規化後的食材名稱
func (r *CatalogRepository) LoadIngredientMappings(ctx context.Context) (map[string]food.IngredientMapping, error) {
	if v, ok := r.cache.Get(KeyMappings); ok {
		return v.(map[string]food.IngredientMapping), nil
	}

	mappings := make(map[string]food.IngredientMapping)
	if _, err := readDocument(ctx, r.store, KeyMappings, &mappings); err != nil {
		return nil, err
	}
	if mappings == nil {
		mappings = make(map[string]food.IngredientMapping)
	}

	r.cache.Set(KeyMappings, mappings)
	return mappings, nil
}

// SaveIngredientMapping 新增或覆寫一筆對應並使快取失效
func (r *CatalogRepository) SaveIngredientMapping(ctx context.Context, m food.IngredientMapping) error {
	if m.IngredientName == "" {
		return common.NewValidationError("ingredient_name is required")
	}

	r.mappingsMu.Lock()
	defer r.mappingsMu.Unlock()

	// 讀取時略過快取，避免覆寫其他程序的寫入
	mappings := make(map[string]food.IngredientMapping)
	if _, err := readDocument(ctx, r.store, KeyMappings, &mappings); err != nil {
		return err
	}
	if mappings == nil {
		mappings = make(map[string]food.IngredientMapping)
	}
	if m.CreatedAt == "" {
		m.CreatedAt = time.Now().UTC().Format(time.RFC3339)
	}
	mappings[m.IngredientName] = m

	if err := writeDocument(ctx, r.store, KeyMappings, mappings); err != nil {
		return err
	}
	r.cache.Invalidate(KeyMappings)

	common.LogInfo("食材對應已保存",
		zap.String("ingredient", m.IngredientName),
		zap.String("food_id", m.FoodID),
		zap.String("match_type", string(m.MatchType)),
	)
	return nil
}

// RecipeRepository 食譜文件
type RecipeRepository struct {
	store Store
	cache *CatalogCache
}

// NewRecipeRepository 創建食譜 repository；cache 可為 nil
func NewRecipeRepository(s Store, cache *CatalogCache) *RecipeRepository {
	return &RecipeRepository{store: s, cache: cache}
}

// LoadRecipes 載入指定範圍的食譜；general 與 public 會進入快取
func (r *RecipeRepository) LoadRecipes(ctx context.Context, scope recipe.Scope, userID string) ([]recipe.Recipe, error) {
	var key string
	switch scope {
	case recipe.ScopeGeneral:
		key = KeyRecipes
	case recipe.ScopePublic:
		key = KeyPublicRecipes
	case recipe.ScopePrivate:
		if userID == "" {
			return nil, common.ErrUnauthorized
		}
		k, err := PrivateRecipesKey(userID)
		if err != nil {
			return nil, err
		}
		key = k
	default:
		return nil, common.NewValidationError("unknown recipe scope: " + string(scope))
	}

	cacheable := scope != recipe.ScopePrivate
	if cacheable {
		if v, ok := r.cache.Get(key); ok {
			return v.([]recipe.Recipe), nil
		}
	}

	recipes := []recipe.Recipe{}
	if _, err := readDocument(ctx, r.store, key, &recipes); err != nil {
		return nil, err
	}
	if recipes == nil {
		recipes = []recipe.Recipe{}
	}
	for i := range recipes {
		recipes[i].Scope = scope
	}

	if cacheable {
		r.cache.Set(key, recipes)
	}
	return recipes, nil
}

// ConsumptionRepository 使用者消費紀錄，只允許追加
type ConsumptionRepository struct {
	store Store
}

// NewConsumptionRepository 創建消費紀錄 repository
func NewConsumptionRepository(s Store) *ConsumptionRepository {
	return &ConsumptionRepository{store: s}
}

// LoadConsumptionHistory 載入使用者全部紀錄，沒有紀錄時回傳空切片
func (r *ConsumptionRepository) LoadConsumptionHistory(ctx context.Context, userID string) ([]food.ConsumptionEntry, error) {
	key, err := ConsumptionKey(userID)
	if err != nil {
		return nil, err
	}
	entries := []food.ConsumptionEntry{}
	if _, err := readDocument(ctx, r.store, key, &entries); err != nil {
		return nil, err
	}
	if entries == nil {
		entries = []food.ConsumptionEntry{}
	}
	return entries, nil
}

// AppendConsumptionEntry 追加一筆紀錄並回傳追加後的完整紀錄；呼叫端需持有使用者鎖
func (r *ConsumptionRepository) AppendConsumptionEntry(ctx context.Context, userID string, entry food.ConsumptionEntry) ([]food.ConsumptionEntry, error) {
	key, err := ConsumptionKey(userID)
	if err != nil {
		return nil, err
	}
	entries, err := r.LoadConsumptionHistory(ctx, userID)
	if err != nil {
		return nil, err
	}
	entries = append(entries, entry)
	if err := writeDocument(ctx, r.store, key, entries); err != nil {
		return nil, err
	}
	return entries, nil
}

// StatsRepository 使用者統計快取
type StatsRepository struct {
	store Store
}

// NewStatsRepository 創建統計 repository
func NewStatsRepository(s Store) *StatsRepository {
	return &StatsRepository{store: s}
}

// LoadStats 載入統計快取，不存在時回傳空的統計
func (r *StatsRepository) LoadStats(ctx context.Context, userID string) (*stats.UserStats, error) {
	key, err := StatsKey(userID)
	if err != nil {
		return nil, err
	}
	us := stats.NewUserStats(userID)
	found, err := readDocument(ctx, r.store, key, us)
	if err != nil {
		return nil, err
	}
	if !found {
		return stats.NewUserStats(userID), nil
	}
	us.UserID = userID
	return us, nil
}

// SaveStats 覆寫統計快取
func (r *StatsRepository) SaveStats(ctx context.Context, userID string, us *stats.UserStats) error {
	key, err := StatsKey(userID)
	if err != nil {
		return err
	}
	return writeDocument(ctx, r.store, key, us)
}
