// Package catalog 將使用者輸入的食材名稱解析為食物目錄中的食物
package catalog

import (
	"context"
	"strings"
	"time"

	"nutritrack/internal/core/food"
	"nutritrack/internal/core/normalizer"
	"nutritrack/internal/metrics"
	"nutritrack/internal/pkg/common"

	"go.uber.org/zap"
)

const (
	// SuggestionLimit 未命中時回傳的候選名稱數
	SuggestionLimit = 10
	// DefaultQuantity 自動建立對應時的預設份量（克）
	DefaultQuantity = 100.0
	defaultUnit     = "g"
)

// 解析來源
const (
	SourceMapping = "mapping"
	SourceMatcher = "matcher"
)

// Repository 食物目錄與對應表
type Repository interface {
	LoadFoods(ctx context.Context) ([]food.Food, error)
	LoadIngredientMappings(ctx context.Context) (map[string]food.IngredientMapping, error)
	SaveIngredientMapping(ctx context.Context, m food.IngredientMapping) error
}

// Resolution 食材解析結果
type Resolution struct {
	Ingredient  string                  `json:"ingredient"`
	Normalized  string                  `json:"normalized"`
	Matched     bool                    `json:"matched"`
	Source      string                  `json:"source,omitempty"`
	Mapping     *food.IngredientMapping `json:"mapping,omitempty"`
	Food        *food.Food              `json:"food,omitempty"`
	Suggestions []string                `json:"suggestions,omitempty"`
}

// ManualMappingRequest 手動對應請求
type ManualMappingRequest struct {
	IngredientName  string  `json:"ingredient_name" binding:"required"`
	FoodID          string  `json:"food_id" binding:"required"`
	DefaultQuantity float64 `json:"default_quantity" binding:"omitempty,gte=0"`
	DefaultUnit     string  `json:"default_unit"`
}

// Service 食材解析服務
type Service struct {
	repo Repository
}

// NewService 創建食材解析服務
func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

// Foods 完整食物目錄（依 food_id 排序）
func (s *Service) Foods(ctx context.Context) ([]food.Food, error) {
	return s.repo.LoadFoods(ctx)
}

// Food 依 ID 查詢食物
func (s *Service) Food(ctx context.Context, foodID string) (*food.Food, error) {
	foods, err := s.repo.LoadFoods(ctx)
	if err != nil {
		return nil, err
	}
	f := food.FindByID(foods, foodID)
	if f == nil {
		return nil, common.ErrFoodNotFound
	}
	return f, nil
}

// Nutrition 計算指定份量的營養值
func (s *Service) Nutrition(ctx context.Context, foodID string, quantity float64, unit string) (food.Nutrition, float64, error) {
	f, err := s.Food(ctx, foodID)
	if err != nil {
		return food.Nutrition{}, 0, err
	}
	return food.Compute(f, quantity, unit), common.Round1(food.Grams(f, quantity, unit)), nil
}

// Resolve 解析食材名稱
//
// 先查已保存的對應，再交給比對器；比對成功時保存新的對應供下次使用。
// 未命中不是錯誤，回傳 Matched=false 與候選名稱。
func (s *Service) Resolve(ctx context.Context, name string) (*Resolution, error) {
	normalized := normalizer.Normalize(name)
	if normalized == "" {
		return nil, common.NewValidationError("ingredient name is required")
	}

	foods, err := s.repo.LoadFoods(ctx)
	if err != nil {
		return nil, err
	}
	mappings, err := s.repo.LoadIngredientMappings(ctx)
	if err != nil {
		return nil, err
	}

	res := &Resolution{Ingredient: name, Normalized: normalized}

	if m, ok := mappings[normalized]; ok {
		if f := food.FindByID(foods, m.FoodID); f != nil {
			mapping := m
			res.Matched = true
			res.Source = SourceMapping
			res.Mapping = &mapping
			res.Food = f
			metrics.RecordIngredientResolution(SourceMapping)
			return res, nil
		}
		common.LogWarn("對應的食物已不在目錄中，重新比對",
			zap.String("ingredient", normalized),
			zap.String("food_id", m.FoodID),
		)
	}

	match := food.MatchFood(normalized, foods)
	if match == nil {
		if raw := normalizer.Clean(name); raw != normalized {
			match = food.MatchFood(raw, foods)
		}
	}
	if match == nil {
		res.Suggestions = food.SuggestNames(foods, SuggestionLimit)
		metrics.RecordIngredientResolution("miss")
		common.LogDebug("食材未命中", zap.String("ingredient", normalized))
		return res, nil
	}

	mapping := food.IngredientMapping{
		IngredientName:  normalized,
		FoodID:          match.Food.FoodID,
		Confidence:      match.Confidence,
		MatchType:       match.MatchType,
		DefaultQuantity: DefaultQuantity,
		DefaultUnit:     unitOrDefault(match.Food.DefaultUnit),
		CreatedAt:       time.Now().UTC().Format(time.RFC3339),
	}
	// 保存失敗不影響本次結果
	if err := s.repo.SaveIngredientMapping(ctx, mapping); err != nil {
		common.LogWarn("保存食材對應失敗",
			zap.String("ingredient", normalized),
			zap.Error(err),
		)
	}

	res.Matched = true
	res.Source = SourceMatcher
	res.Mapping = &mapping
	res.Food = match.Food
	metrics.RecordIngredientResolution(string(match.MatchType))
	return res, nil
}

// SaveManualMapping 保存使用者指定的對應，食物必須存在
func (s *Service) SaveManualMapping(ctx context.Context, req ManualMappingRequest) (*food.IngredientMapping, error) {
	normalized := normalizer.Normalize(req.IngredientName)
	if normalized == "" {
		return nil, common.NewValidationError("ingredient_name is required")
	}
	if req.DefaultQuantity < 0 {
		return nil, common.NewValidationError("default_quantity must not be negative")
	}

	f, err := s.Food(ctx, strings.TrimSpace(req.FoodID))
	if err != nil {
		return nil, err
	}

	qty := req.DefaultQuantity
	if qty == 0 {
		qty = DefaultQuantity
	}
	unit := req.DefaultUnit
	if unit == "" {
		unit = unitOrDefault(f.DefaultUnit)
	}

	mapping := food.IngredientMapping{
		IngredientName:  normalized,
		FoodID:          f.FoodID,
		Confidence:      food.ConfidenceManual,
		MatchType:       food.MatchManual,
		DefaultQuantity: qty,
		DefaultUnit:     unit,
		CreatedAt:       time.Now().UTC().Format(time.RFC3339),
	}
	if err := s.repo.SaveIngredientMapping(ctx, mapping); err != nil {
		return nil, err
	}
	metrics.RecordIngredientResolution(string(food.MatchManual))
	return &mapping, nil
}

func unitOrDefault(unit string) string {
	if unit == "" {
		return defaultUnit
	}
	return unit
}
