// Package consumption 記錄使用者的飲食消費並維護期間統計
package consumption

import (
	"context"
	"fmt"
	"math"
	"strings"
	"time"

	"nutritrack/internal/core/food"
	"nutritrack/internal/core/stats"
	"nutritrack/internal/metrics"
	"nutritrack/internal/pkg/common"

	"go.uber.org/zap"
)

const (
	// DefaultMealType 未指定餐別時使用
	DefaultMealType = "snack"
	// RecipePrefix 以此開頭的 foodId 代表整份食譜，熱量由呼叫端提供
	RecipePrefix = "recipe_"
	defaultUnit  = "g"
)

// FoodCatalog 食物目錄
type FoodCatalog interface {
	LoadFoods(ctx context.Context) ([]food.Food, error)
}

// HistoryStore 消費紀錄儲存
type HistoryStore interface {
	LoadConsumptionHistory(ctx context.Context, userID string) ([]food.ConsumptionEntry, error)
	AppendConsumptionEntry(ctx context.Context, userID string, entry food.ConsumptionEntry) ([]food.ConsumptionEntry, error)
}

// StatsStore 統計快取儲存
type StatsStore interface {
	LoadStats(ctx context.Context, userID string) (*stats.UserStats, error)
	SaveStats(ctx context.Context, userID string, us *stats.UserStats) error
}

// Item 提交的一項食物
type Item struct {
	FoodID   string   `json:"foodId" binding:"required"`
	Name     string   `json:"name,omitempty"`
	Quantity float64  `json:"quantity"`
	Unit     string   `json:"unit,omitempty"`
	Calories *float64 `json:"calories,omitempty"`
}

// Request 消費紀錄請求
type Request struct {
	Date     string `json:"date"`
	MealType string `json:"mealType"`
	Items    []Item `json:"items" binding:"required,min=1,dive"`
}

// Result 記錄結果
type Result struct {
	Entry        food.ConsumptionEntry `json:"entry"`
	Skipped      []string              `json:"skipped,omitempty"`
	DailySummary stats.DailySummary    `json:"daily_summary"`
}

// Service 消費紀錄服務
type Service struct {
	catalog FoodCatalog
	history HistoryStore
	stats   StatsStore
	locks   *stats.UserLocks
	now     func() time.Time
}

// Option 服務選項
type Option func(*Service)

// WithClock 指定時間來源
func WithClock(now func() time.Time) Option {
	return func(s *Service) {
		s.now = now
	}
}

// WithLocks 共用既有的使用者鎖
func WithLocks(l *stats.UserLocks) Option {
	return func(s *Service) {
		if l != nil {
			s.locks = l
		}
	}
}

// NewService 創建消費紀錄服務
func NewService(catalog FoodCatalog, history HistoryStore, st StatsStore, opts ...Option) *Service {
	s := &Service{
		catalog: catalog,
		history: history,
		stats:   st,
		locks:   stats.NewUserLocks(),
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Record 記錄一餐
//
// 無法解析的食物會被略過；全部都無法解析時回傳 ErrNoResolvableFoods。
// 紀錄追加後，在使用者鎖內重算該日所屬的日、週、月、年統計。
func (s *Service) Record(ctx context.Context, userID string, req Request) (*Result, error) {
	if userID == "" {
		return nil, common.ErrUnauthorized
	}

	now := s.now().UTC()
	date := stats.DayWindow(now).Start
	if strings.TrimSpace(req.Date) != "" {
		d, err := common.ParseDate(req.Date)
		if err != nil {
			return nil, err
		}
		date = d
	}
	mealType := strings.TrimSpace(req.MealType)
	if mealType == "" {
		mealType = DefaultMealType
	}

	foods, err := s.catalog.LoadFoods(ctx)
	if err != nil {
		return nil, err
	}

	consumed, skipped := resolveItems(req.Items, foods)
	if len(skipped) > 0 {
		metrics.ConsumptionSkippedItems.Add(float64(len(skipped)))
		common.LogWarn("略過無法解析的食物",
			zap.String("user_id", userID),
			zap.Strings("food_ids", skipped),
		)
	}
	if len(consumed) == 0 {
		return nil, common.ErrNoResolvableFoods
	}

	var total food.Nutrition
	for _, c := range consumed {
		total = total.Add(c.Nutrition)
	}
	total = food.RoundNutrition(total)

	entry := food.ConsumptionEntry{
		EntryID:        common.GenerateUUID(),
		Date:           common.FormatDate(date),
		MealType:       mealType,
		Foods:          consumed,
		TotalCalories:  total.Calories,
		TotalNutrition: total,
		CreatedAt:      now.Format(time.RFC3339),
	}

	unlock := s.locks.Lock(userID)
	defer unlock()

	entries, err := s.history.AppendConsumptionEntry(ctx, userID, entry)
	if err != nil {
		return nil, err
	}
	metrics.ConsumptionEntries.Inc()

	us := s.recompute(ctx, userID, entries, date, now)
	daily, _ := us.Get(stats.PeriodDaily, entry.Date)

	common.LogInfo("消費紀錄已保存",
		zap.String("user_id", userID),
		zap.String("entry_id", entry.EntryID),
		zap.String("date", entry.Date),
		zap.Int("foods", len(consumed)),
		zap.Float64("total_calories", entry.TotalCalories),
	)

	return &Result{
		Entry:        entry,
		Skipped:      skipped,
		DailySummary: stats.NewDailySummary(daily),
	}, nil
}

// recompute 重算並保存統計；統計只是快取，失敗時記錄後繼續
func (s *Service) recompute(ctx context.Context, userID string, entries []food.ConsumptionEntry, date, now time.Time) *stats.UserStats {
	start := time.Now()
	defer func() {
		metrics.StatsRecomputeDuration.Observe(time.Since(start).Seconds())
	}()

	us, err := s.stats.LoadStats(ctx, userID)
	if err != nil {
		common.LogWarn("讀取統計失敗，由紀錄重建", zap.String("user_id", userID), zap.Error(err))
		us = stats.Rebuild(userID, entries, now)
	}
	us.Recompute(entries, date, now)

	if err := s.stats.SaveStats(ctx, userID, us); err != nil {
		common.LogError("保存統計失敗", zap.String("user_id", userID), zap.Error(err))
	}
	return us
}

// resolveItems 將提交項目轉為消費食物，回傳略過的 foodId
func resolveItems(items []Item, foods []food.Food) ([]food.ConsumedFood, []string) {
	consumed := make([]food.ConsumedFood, 0, len(items))
	var skipped []string

	for _, item := range items {
		id := strings.TrimSpace(item.FoodID)
		if strings.HasPrefix(id, RecipePrefix) {
			c, ok := recipeItem(id, item)
			if !ok {
				skipped = append(skipped, id)
				continue
			}
			consumed = append(consumed, c)
			continue
		}

		f := food.FindByID(foods, id)
		if f == nil {
			skipped = append(skipped, id)
			continue
		}
		unit := item.Unit
		if unit == "" {
			unit = unitOrDefault(f.DefaultUnit)
		}
		n := food.Compute(f, item.Quantity, unit)
		consumed = append(consumed, food.ConsumedFood{
			FoodID:    f.FoodID,
			Name:      f.Name,
			Quantity:  item.Quantity,
			Unit:      unit,
			Grams:     common.Round1(food.Grams(f, item.Quantity, unit)),
			Calories:  n.Calories,
			Nutrition: n,
		})
	}
	return consumed, skipped
}

// recipeItem 食譜捷徑：熱量為整份已計算好的值，其他營養素不提供
func recipeItem(id string, item Item) (food.ConsumedFood, bool) {
	if item.Calories == nil {
		return food.ConsumedFood{}, false
	}
	cal := *item.Calories
	if math.IsNaN(cal) || math.IsInf(cal, 0) || cal < 0 {
		return food.ConsumedFood{}, false
	}

	qty := item.Quantity
	if qty <= 0 || math.IsNaN(qty) || math.IsInf(qty, 0) {
		qty = 1
	}
	unit := item.Unit
	if unit == "" {
		unit = "serving"
	}
	name := strings.TrimSpace(item.Name)
	if name == "" {
		name = strings.TrimPrefix(id, RecipePrefix)
	}
	n := food.Nutrition{Calories: common.Round1(cal)}
	return food.ConsumedFood{
		FoodID:    id,
		Name:      name,
		Quantity:  qty,
		Unit:      unit,
		Calories:  n.Calories,
		Nutrition: n,
	}, true
}

func unitOrDefault(unit string) string {
	if unit == "" {
		return defaultUnit
	}
	return unit
}

// History 查詢 [start, end] 區間的紀錄，空字串代表不限
func (s *Service) History(ctx context.Context, userID, start, end string) ([]food.ConsumptionEntry, error) {
	if userID == "" {
		return nil, common.ErrUnauthorized
	}
	from, to, err := parseRange(start, end)
	if err != nil {
		return nil, err
	}

	entries, err := s.history.LoadConsumptionHistory(ctx, userID)
	if err != nil {
		return nil, err
	}
	out := make([]food.ConsumptionEntry, 0, len(entries))
	for _, e := range entries {
		if (from != "" && e.Date < from) || (to != "" && e.Date > to) {
			continue
		}
		out = append(out, e)
	}
	return out, nil
}

func parseRange(start, end string) (string, string, error) {
	var from, to string
	if strings.TrimSpace(start) != "" {
		d, err := common.ParseDate(start)
		if err != nil {
			return "", "", err
		}
		from = common.FormatDate(d)
	}
	if strings.TrimSpace(end) != "" {
		d, err := common.ParseDate(end)
		if err != nil {
			return "", "", err
		}
		to = common.FormatDate(d)
	}
	if from != "" && to != "" && from > to {
		return "", "", common.Wrap(common.ErrInvalidDate, fmt.Errorf("start %s is after end %s", from, to))
	}
	return from, to, nil
}

// Stats 使用者的統計快取
func (s *Service) Stats(ctx context.Context, userID string) (*stats.UserStats, error) {
	if userID == "" {
		return nil, common.ErrUnauthorized
	}
	return s.stats.LoadStats(ctx, userID)
}

// PeriodStats 單一區間的統計；快取沒有時由紀錄即時計算（不寫回）
func (s *Service) PeriodStats(ctx context.Context, userID string, period stats.Period, label string) (stats.PeriodStats, error) {
	if userID == "" {
		return stats.PeriodStats{}, common.ErrUnauthorized
	}
	w, err := stats.ParseWindow(period, label)
	if err != nil {
		return stats.PeriodStats{}, err
	}

	us, err := s.stats.LoadStats(ctx, userID)
	if err != nil {
		return stats.PeriodStats{}, err
	}
	if ps, ok := us.Get(period, w.Label); ok {
		return ps, nil
	}

	entries, err := s.history.LoadConsumptionHistory(ctx, userID)
	if err != nil {
		return stats.PeriodStats{}, err
	}
	return stats.AggregateWindow(entries, w, s.now()), nil
}

// Range 任意區間的統計，不使用快取
func (s *Service) Range(ctx context.Context, userID, start, end string) (stats.PeriodStats, error) {
	if userID == "" {
		return stats.PeriodStats{}, common.ErrUnauthorized
	}
	from, err := common.ParseDate(start)
	if err != nil {
		return stats.PeriodStats{}, err
	}
	to, err := common.ParseDate(end)
	if err != nil {
		return stats.PeriodStats{}, err
	}
	if to.Before(from) {
		return stats.PeriodStats{}, common.Wrap(common.ErrInvalidDate, fmt.Errorf("start %s is after end %s", start, end))
	}

	entries, err := s.history.LoadConsumptionHistory(ctx, userID)
	if err != nil {
		return stats.PeriodStats{}, err
	}
	ps := stats.Aggregate(entries, from, to)
	ps.UpdatedAt = s.now().UTC().Format(time.RFC3339)
	return ps, nil
}

// Rebuild 由完整紀錄重建統計快取
func (s *Service) Rebuild(ctx context.Context, userID string) (*stats.UserStats, error) {
	if userID == "" {
		return nil, common.ErrUnauthorized
	}

	unlock := s.locks.Lock(userID)
	defer unlock()

	start := time.Now()
	entries, err := s.history.LoadConsumptionHistory(ctx, userID)
	if err != nil {
		return nil, err
	}
	us := stats.Rebuild(userID, entries, s.now())
	metrics.StatsRecomputeDuration.Observe(time.Since(start).Seconds())

	if err := s.stats.SaveStats(ctx, userID, us); err != nil {
		return nil, err
	}
	common.LogInfo("統計已重建",
		zap.String("user_id", userID),
		zap.Int("entries", len(entries)),
		zap.Int("days", len(us.Daily)),
	)
	return us, nil
}
