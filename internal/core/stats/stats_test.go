package stats

import (
	"sync"
	"testing"
	"time"

	"nutritrack/internal/core/food"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func date(t *testing.T, s string) time.Time {
	t.Helper()
	d, err := time.Parse("2006-01-02", s)
	require.NoError(t, err)
	return d
}

func entry(d string, cal float64, n food.Nutrition) food.ConsumptionEntry {
	n.Calories = cal
	return food.ConsumptionEntry{Date: d, TotalCalories: cal, TotalNutrition: n}
}

func TestWindows(t *testing.T) {
	tests := []struct {
		name       string
		day        string
		window     func(time.Time) Window
		label      string
		start      string
		end        string
		wantDays   int
		wantPeriod Period
	}{
		{"day", "2024-03-15", DayWindow, "2024-03-15", "2024-03-15", "2024-03-15", 1, PeriodDaily},
		{"week mid", "2024-03-14", WeekWindow, "2024-W11", "2024-03-11", "2024-03-17", 7, PeriodWeekly},
		{"week sunday", "2024-03-17", WeekWindow, "2024-W11", "2024-03-11", "2024-03-17", 7, PeriodWeekly},
		{"week crossing year", "2025-01-01", WeekWindow, "2025-W01", "2024-12-30", "2025-01-05", 7, PeriodWeekly},
		{"week 53", "2021-01-01", WeekWindow, "2020-W53", "2020-12-28", "2021-01-03", 7, PeriodWeekly},
		{"february leap", "2024-02-10", MonthWindow, "2024-02", "2024-02-01", "2024-02-29", 29, PeriodMonthly},
		{"december", "2023-12-31", MonthWindow, "2023-12", "2023-12-01", "2023-12-31", 31, PeriodMonthly},
		{"year", "2023-06-01", YearWindow, "2023", "2023-01-01", "2023-12-31", 365, PeriodYearly},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := tt.window(date(t, tt.day))
			assert.Equal(t, tt.wantPeriod, w.Period)
			assert.Equal(t, tt.label, w.Label)
			assert.Equal(t, tt.start, w.Start.Format("2006-01-02"))
			assert.Equal(t, tt.end, w.End.Format("2006-01-02"))
			assert.Equal(t, tt.wantDays, Days(w.Start, w.End))
		})
	}
}

func TestMonthWindow_DecemberRollsIntoNextYear(t *testing.T) {
	dec := MonthWindow(date(t, "2023-12-05"))
	assert.Equal(t, "2023-12-31", dec.End.Format("2006-01-02"))

	jan := MonthWindow(dec.End.AddDate(0, 0, 1))
	assert.Equal(t, "2024-01", jan.Label)
	assert.Equal(t, "2024-01-01", jan.Start.Format("2006-01-02"))
	assert.Equal(t, "2024-01-31", jan.End.Format("2006-01-02"))
}

func TestParseWindow(t *testing.T) {
	w, err := ParseWindow(PeriodWeekly, "2025-W01")
	require.NoError(t, err)
	assert.Equal(t, "2024-12-30", w.Start.Format("2006-01-02"))

	w, err = ParseWindow(PeriodWeekly, "2020-W53")
	require.NoError(t, err)
	assert.Equal(t, "2020-12-28", w.Start.Format("2006-01-02"))

	_, err = ParseWindow(PeriodWeekly, "2021-W53")
	assert.Error(t, err)

	w, err = ParseWindow(PeriodMonthly, "2024-02")
	require.NoError(t, err)
	assert.Equal(t, "2024-02-29", w.End.Format("2006-01-02"))

	w, err = ParseWindow(PeriodYearly, "2024")
	require.NoError(t, err)
	assert.Equal(t, 366, Days(w.Start, w.End))

	w, err = ParseWindow(PeriodDaily, "2024-05-01")
	require.NoError(t, err)
	assert.Equal(t, "2024-05-01", w.Label)

	_, err = ParseWindow(PeriodDaily, "05/01/2024")
	assert.Error(t, err)
	_, err = ParseWindow(PeriodYearly, "abc")
	assert.Error(t, err)
	_, err = ParseWindow(Period("hourly"), "1")
	assert.Error(t, err)
}

func TestParsePeriod(t *testing.T) {
	p, err := ParsePeriod(" Weekly ")
	require.NoError(t, err)
	assert.Equal(t, PeriodWeekly, p)

	_, err = ParsePeriod("fortnight")
	assert.Error(t, err)
}

func TestDays_Guarded(t *testing.T) {
	d := date(t, "2024-01-10")
	assert.Equal(t, 1, Days(d, d))
	assert.Equal(t, 1, Days(d, d.AddDate(0, 0, -3)))
	assert.Equal(t, 10, Days(d, d.AddDate(0, 0, 9)))

	// 跨度超過 time.Duration 的上限
	assert.Equal(t, 3652059, Days(date(t, "0001-01-01"), date(t, "9999-12-31")))
	assert.Equal(t, 366, Days(date(t, "2024-01-01"), date(t, "2024-12-31")))
}

func TestAggregate(t *testing.T) {
	entries := []food.ConsumptionEntry{
		entry("2024-01-01", 500, food.Nutrition{Protein: 20, Fat: 10.25}),
		entry("2024-01-02", 700, food.Nutrition{Protein: 30, Sodium: 400}),
		entry("2024-01-02", 100, food.Nutrition{Sugar: 5}),
		entry("2024-01-05", 999, food.Nutrition{}),
	}

	s := Aggregate(entries, date(t, "2024-01-01"), date(t, "2024-01-02"))
	assert.Equal(t, 2, s.Days)
	assert.Equal(t, 3, s.EntriesCount)
	assert.Equal(t, 1300.0, s.TotalCalories)
	assert.Equal(t, 650.0, s.AvgDailyCalories)
	assert.Equal(t, 50.0, s.TotalNutrition.Protein)
	assert.Equal(t, 25.0, s.AvgDailyNutrition.Protein)
	assert.Equal(t, 10.3, s.TotalNutrition.Fat)
	assert.Equal(t, 200.0, s.AvgDailyNutrition.Sodium)
	assert.Equal(t, "2024-01-01", s.StartDate)
	assert.Equal(t, "2024-01-02", s.EndDate)
}

func TestAggregate_SingleDayAndEmpty(t *testing.T) {
	d := date(t, "2024-07-04")

	s := Aggregate(nil, d, d)
	assert.Equal(t, 1, s.Days)
	assert.Zero(t, s.TotalCalories)
	assert.Zero(t, s.AvgDailyCalories)
	assert.Equal(t, NutrientTotals{}, s.TotalNutrition)

	s = Aggregate([]food.ConsumptionEntry{entry("2024-07-04", 330, food.Nutrition{})}, d, d)
	assert.Equal(t, 330.0, s.TotalCalories)
	assert.Equal(t, 330.0, s.AvgDailyCalories)
}

func TestAggregate_AveragesOverFullWindow(t *testing.T) {
	entries := []food.ConsumptionEntry{entry("2024-02-10", 2900, food.Nutrition{})}
	s := AggregateWindow(entries, MonthWindow(date(t, "2024-02-10")), time.Now())
	assert.Equal(t, 29, s.Days)
	assert.Equal(t, 100.0, s.AvgDailyCalories)
	assert.Equal(t, "2024-02", s.Label)
	assert.NotEmpty(t, s.UpdatedAt)
}

func TestUserStats_Recompute(t *testing.T) {
	now := time.Date(2024, 1, 3, 12, 0, 0, 0, time.UTC)
	entries := []food.ConsumptionEntry{
		entry("2023-12-31", 400, food.Nutrition{}),
		entry("2024-01-01", 600, food.Nutrition{}),
	}

	u := NewUserStats("u1")
	u.Recompute(entries, date(t, "2024-01-01"), now)

	day, ok := u.Get(PeriodDaily, "2024-01-01")
	require.True(t, ok)
	assert.Equal(t, 600.0, day.TotalCalories)

	// 2024-01-01 是週一，2023-12-31 屬於上一週
	week, ok := u.Get(PeriodWeekly, "2024-W01")
	require.True(t, ok)
	assert.Equal(t, 600.0, week.TotalCalories)

	month, ok := u.Get(PeriodMonthly, "2024-01")
	require.True(t, ok)
	assert.Equal(t, 600.0, month.TotalCalories)
	assert.Equal(t, 31, month.Days)

	year, ok := u.Get(PeriodYearly, "2024")
	require.True(t, ok)
	assert.Equal(t, 366, year.Days)

	_, ok = u.Get(PeriodDaily, "2023-12-31")
	assert.False(t, ok)
	_, ok = u.Get(Period("hourly"), "x")
	assert.False(t, ok)
}

func TestRebuild(t *testing.T) {
	now := time.Now()
	entries := []food.ConsumptionEntry{
		entry("2023-12-31", 400, food.Nutrition{}),
		entry("2024-01-01", 600, food.Nutrition{}),
		entry("2024-01-01", 50, food.Nutrition{}),
		entry("not-a-date", 1000, food.Nutrition{}),
	}

	u := Rebuild("u1", entries, now)
	assert.Len(t, u.Daily, 2)
	assert.Len(t, u.Weekly, 2)
	assert.Len(t, u.Monthly, 2)
	assert.Len(t, u.Yearly, 2)
	assert.Equal(t, 650.0, u.Daily["2024-01-01"].TotalCalories)
	assert.Equal(t, 400.0, u.Yearly["2023"].TotalCalories)
	assert.Equal(t, 400.0, u.Weekly["2023-W52"].TotalCalories)
}

func TestDailySummary(t *testing.T) {
	s := NewDailySummary(PeriodStats{TotalCalories: 330})
	assert.Equal(t, 330.0, s.ConsumedCalories)
}

func TestUserLocks_SerializesPerUser(t *testing.T) {
	locks := NewUserLocks()
	counter := 0
	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			unlock := locks.Lock("u1")
			defer unlock()
			v := counter
			time.Sleep(time.Microsecond)
			counter = v + 1
		}()
	}
	wg.Wait()
	assert.Equal(t, 50, counter)
	assert.Zero(t, locks.Len())
}

func TestUserLocks_IndependentUsers(t *testing.T) {
	locks := NewUserLocks()
	unlockA := locks.Lock("a")
	done := make(chan struct{})
	go func() {
		unlock := locks.Lock("b")
		unlock()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("lock for user b blocked on user a")
	}
	unlockA()
}
