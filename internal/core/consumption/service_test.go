package consumption

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"nutritrack/internal/core/food"
	"nutritrack/internal/core/stats"
	"nutritrack/internal/pkg/common"
	"nutritrack/internal/storage"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var fixedNow = time.Date(2024, time.March, 10, 15, 30, 0, 0, time.UTC)

const foodsDoc = `[
  {"food_id":"pollo","name":"Pollo","nutrition_per_100g":{"calories":165,"protein":31,"fat":3.6,"sodium":74},"unit_conversions":{"gramos":1,"pieza":120},"default_unit":"gramos"},
  {"food_id":"arroz","name":"Arroz blanco","nutrition_per_100g":{"calories":130,"carbohydrates":28},"unit_conversions":{"taza":158}}
]`

type fixture struct {
	store   *storage.MemoryStore
	history *storage.ConsumptionRepository
	stats   *storage.StatsRepository
	svc     *Service
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	s := storage.NewMemoryStore()
	require.NoError(t, s.Put(context.Background(), storage.KeyFoods, []byte(foodsDoc)))

	f := &fixture{
		store:   s,
		history: storage.NewConsumptionRepository(s),
		stats:   storage.NewStatsRepository(s),
	}
	f.svc = NewService(storage.NewCatalogRepository(s, nil), f.history, f.stats,
		WithClock(func() time.Time { return fixedNow }))
	return f
}

func floatPtr(v float64) *float64 { return &v }

func TestRecord_EndToEnd(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	res, err := f.svc.Record(ctx, "u1", Request{
		Date:     "2024-03-10",
		MealType: "lunch",
		Items:    []Item{{FoodID: "pollo", Quantity: 200, Unit: "gramos"}},
	})
	require.NoError(t, err)

	assert.NotEmpty(t, res.Entry.EntryID)
	assert.Equal(t, "2024-03-10", res.Entry.Date)
	assert.Equal(t, "lunch", res.Entry.MealType)
	assert.Equal(t, 330.0, res.Entry.TotalCalories)
	assert.Equal(t, 62.0, res.Entry.TotalNutrition.Protein)
	assert.Equal(t, 330.0, res.DailySummary.ConsumedCalories)
	assert.Equal(t, 330.0, res.DailySummary.TotalCalories)

	us, err := f.stats.LoadStats(ctx, "u1")
	require.NoError(t, err)

	daily, ok := us.Get(stats.PeriodDaily, "2024-03-10")
	require.True(t, ok)
	assert.Equal(t, 330.0, daily.TotalCalories)
	assert.Equal(t, 1, daily.Days)

	weekly, ok := us.Get(stats.PeriodWeekly, "2024-W10")
	require.True(t, ok)
	assert.Equal(t, 330.0, weekly.TotalCalories)
	assert.Equal(t, 7, weekly.Days)
	assert.Equal(t, 47.1, weekly.AvgDailyCalories)

	monthly, ok := us.Get(stats.PeriodMonthly, "2024-03")
	require.True(t, ok)
	assert.Equal(t, 31, monthly.Days)

	yearly, ok := us.Get(stats.PeriodYearly, "2024")
	require.True(t, ok)
	assert.Equal(t, 366, yearly.Days)
}

func TestRecord_Defaults(t *testing.T) {
	f := newFixture(t)

	res, err := f.svc.Record(context.Background(), "u1", Request{
		Items: []Item{{FoodID: "arroz", Quantity: 1, Unit: "taza"}},
	})
	require.NoError(t, err)
	assert.Equal(t, "2024-03-10", res.Entry.Date)
	assert.Equal(t, DefaultMealType, res.Entry.MealType)
	assert.Equal(t, 158.0, res.Entry.Foods[0].Grams)
	assert.Equal(t, 205.4, res.Entry.TotalCalories)
	assert.Equal(t, fixedNow.Format(time.RFC3339), res.Entry.CreatedAt)
}

func TestRecord_SkipsUnknownFoods(t *testing.T) {
	f := newFixture(t)

	res, err := f.svc.Record(context.Background(), "u1", Request{
		Date: "2024-03-10",
		Items: []Item{
			{FoodID: "pollo", Quantity: 100},
			{FoodID: "dragon", Quantity: 50},
		},
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"dragon"}, res.Skipped)
	require.Len(t, res.Entry.Foods, 1)
	assert.Equal(t, "gramos", res.Entry.Foods[0].Unit)
	assert.Equal(t, 165.0, res.Entry.TotalCalories)
}

func TestRecord_RecipeShortcut(t *testing.T) {
	f := newFixture(t)

	res, err := f.svc.Record(context.Background(), "u1", Request{
		Date: "2024-03-10",
		Items: []Item{
			{FoodID: "recipe_tortilla", Name: "Tortilla española", Calories: floatPtr(412.36)},
			{FoodID: "recipe_sin_calorias"},
		},
	})
	require.NoError(t, err)
	require.Len(t, res.Entry.Foods, 1)
	c := res.Entry.Foods[0]
	assert.Equal(t, "recipe_tortilla", c.FoodID)
	assert.Equal(t, "Tortilla española", c.Name)
	assert.Equal(t, 1.0, c.Quantity)
	assert.Equal(t, 412.4, c.Calories)
	assert.Equal(t, 412.4, res.Entry.TotalCalories)
	assert.Equal(t, []string{"recipe_sin_calorias"}, res.Skipped)
}

func TestRecord_Errors(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.svc.Record(ctx, "u1", Request{Items: []Item{{FoodID: "dragon"}}})
	assert.ErrorIs(t, err, common.ErrNoResolvableFoods)

	_, err = f.svc.Record(ctx, "u1", Request{Date: "10/03/2024", Items: []Item{{FoodID: "pollo"}}})
	assert.ErrorIs(t, err, common.ErrInvalidDate)

	_, err = f.svc.Record(ctx, "", Request{Items: []Item{{FoodID: "pollo"}}})
	assert.ErrorIs(t, err, common.ErrUnauthorized)

	entries, err := f.history.LoadConsumptionHistory(ctx, "u1")
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestRecord_ConcurrentEntriesKeepAllUpdates(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	const n = 20
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := f.svc.Record(ctx, "u1", Request{
				Date:  "2024-03-10",
				Items: []Item{{FoodID: "pollo", Quantity: 100}},
			})
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	entries, err := f.history.LoadConsumptionHistory(ctx, "u1")
	require.NoError(t, err)
	assert.Len(t, entries, n)

	us, err := f.stats.LoadStats(ctx, "u1")
	require.NoError(t, err)
	daily, ok := us.Get(stats.PeriodDaily, "2024-03-10")
	require.True(t, ok)
	assert.Equal(t, 165.0*n, daily.TotalCalories)
	assert.Equal(t, n, daily.EntriesCount)
}

type brokenStats struct{}

func (brokenStats) LoadStats(context.Context, string) (*stats.UserStats, error) {
	return nil, errors.New("unavailable")
}

func (brokenStats) SaveStats(context.Context, string, *stats.UserStats) error {
	return errors.New("unavailable")
}

func TestRecord_StatsFailureDoesNotLoseEntry(t *testing.T) {
	f := newFixture(t)
	svc := NewService(storage.NewCatalogRepository(f.store, nil), f.history, brokenStats{},
		WithClock(func() time.Time { return fixedNow }))

	res, err := svc.Record(context.Background(), "u1", Request{
		Date:  "2024-03-10",
		Items: []Item{{FoodID: "pollo", Quantity: 200}},
	})
	require.NoError(t, err)
	assert.Equal(t, 330.0, res.DailySummary.ConsumedCalories)

	entries, err := f.history.LoadConsumptionHistory(context.Background(), "u1")
	require.NoError(t, err)
	assert.Len(t, entries, 1)
}

func seed(t *testing.T, f *fixture, dates ...string) {
	t.Helper()
	for _, d := range dates {
		_, err := f.svc.Record(context.Background(), "u1", Request{
			Date:  d,
			Items: []Item{{FoodID: "pollo", Quantity: 100}},
		})
		require.NoError(t, err)
	}
}

func TestHistory(t *testing.T) {
	f := newFixture(t)
	seed(t, f, "2024-03-01", "2024-03-05", "2024-03-09")
	ctx := context.Background()

	all, err := f.svc.History(ctx, "u1", "", "")
	require.NoError(t, err)
	assert.Len(t, all, 3)

	some, err := f.svc.History(ctx, "u1", "2024-03-02", "2024-03-09")
	require.NoError(t, err)
	require.Len(t, some, 2)
	assert.Equal(t, "2024-03-05", some[0].Date)

	_, err = f.svc.History(ctx, "u1", "2024-03-09", "2024-03-01")
	assert.ErrorIs(t, err, common.ErrInvalidDate)

	_, err = f.svc.History(ctx, "u1", "yesterday", "")
	assert.ErrorIs(t, err, common.ErrInvalidDate)
}

func TestPeriodStatsAndRange(t *testing.T) {
	f := newFixture(t)
	seed(t, f, "2024-03-04", "2024-03-05")
	ctx := context.Background()

	weekly, err := f.svc.PeriodStats(ctx, "u1", stats.PeriodWeekly, "2024-W10")
	require.NoError(t, err)
	assert.Equal(t, 330.0, weekly.TotalCalories)
	assert.Equal(t, 2, weekly.EntriesCount)

	// 快取沒有的區間即時計算為零
	empty, err := f.svc.PeriodStats(ctx, "u1", stats.PeriodDaily, "2023-01-01")
	require.NoError(t, err)
	assert.Equal(t, 0.0, empty.TotalCalories)
	assert.Equal(t, 1, empty.Days)

	_, err = f.svc.PeriodStats(ctx, "u1", stats.PeriodWeekly, "2024-10")
	assert.ErrorIs(t, err, common.ErrInvalidPeriod)

	r, err := f.svc.Range(ctx, "u1", "2024-03-01", "2024-03-10")
	require.NoError(t, err)
	assert.Equal(t, 330.0, r.TotalCalories)
	assert.Equal(t, 10, r.Days)
	assert.Equal(t, 33.0, r.AvgDailyCalories)

	_, err = f.svc.Range(ctx, "u1", "2024-03-10", "2024-03-01")
	assert.ErrorIs(t, err, common.ErrInvalidDate)
}

func TestRebuild(t *testing.T) {
	f := newFixture(t)
	seed(t, f, "2024-12-30", "2025-01-01")
	ctx := context.Background()

	// 清除快取後重建
	require.NoError(t, f.stats.SaveStats(ctx, "u1", stats.NewUserStats("u1")))

	us, err := f.svc.Rebuild(ctx, "u1")
	require.NoError(t, err)
	assert.Len(t, us.Daily, 2)
	assert.Len(t, us.Yearly, 2)
	assert.Len(t, us.Monthly, 2)

	// 2024-12-30 與 2025-01-01 同屬 ISO 2025-W01
	wk, ok := us.Get(stats.PeriodWeekly, "2025-W01")
	require.True(t, ok)
	assert.Equal(t, 330.0, wk.TotalCalories)

	loaded, err := f.stats.LoadStats(ctx, "u1")
	require.NoError(t, err)
	assert.Len(t, loaded.Daily, 2)
}

func TestResolveItems(t *testing.T) {
	foods := []food.Food{{FoodID: "pollo", Name: "Pollo", NutritionPer100g: food.Nutrition{Calories: 165}}}

	consumed, skipped := resolveItems([]Item{
		{FoodID: " pollo ", Quantity: -5},
		{FoodID: "recipe_x", Calories: floatPtr(-1)},
	}, foods)
	require.Len(t, consumed, 1)
	assert.Equal(t, 0.0, consumed[0].Calories)
	assert.Equal(t, "g", consumed[0].Unit)
	assert.Equal(t, []string{"recipe_x"}, skipped)
}

func ExampleService_Record() {
	s := storage.NewMemoryStore()
	_ = s.Put(context.Background(), storage.KeyFoods, []byte(foodsDoc))
	svc := NewService(
		storage.NewCatalogRepository(s, nil),
		storage.NewConsumptionRepository(s),
		storage.NewStatsRepository(s),
		WithClock(func() time.Time { return fixedNow }),
	)

	res, err := svc.Record(context.Background(), "u1", Request{
		Date:  "2024-03-10",
		Items: []Item{{FoodID: "pollo", Quantity: 200, Unit: "gramos"}},
	})
	if err != nil {
		fmt.Println(err)
		return
	}
	fmt.Println(res.Entry.TotalCalories, res.DailySummary.ConsumedCalories)
	// Output: 330 330
}
