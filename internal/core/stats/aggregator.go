// Package stats 將消費紀錄彙總成日、週、月、年的營養統計。
// 統計只是快取，隨時可由完整的消費紀錄重新計算。
package stats

import (
	"sort"
	"time"

	"nutritrack/internal/core/food"
	"nutritrack/internal/pkg/common"
)

// NutrientTotals 熱量以外的營養素合計
type NutrientTotals struct {
	Protein       float64 `json:"protein"`
	Carbohydrates float64 `json:"carbohydrates"`
	Fat           float64 `json:"fat"`
	Fiber         float64 `json:"fiber"`
	Sugar         float64 `json:"sugar"`
	Sodium        float64 `json:"sodium"`
}

func (n NutrientTotals) add(v food.Nutrition) NutrientTotals {
	return NutrientTotals{
		Protein:       n.Protein + v.Protein,
		Carbohydrates: n.Carbohydrates + v.Carbohydrates,
		Fat:           n.Fat + v.Fat,
		Fiber:         n.Fiber + v.Fiber,
		Sugar:         n.Sugar + v.Sugar,
		Sodium:        n.Sodium + v.Sodium,
	}
}

func (n NutrientTotals) divide(d float64) NutrientTotals {
	return NutrientTotals{
		Protein:       n.Protein / d,
		Carbohydrates: n.Carbohydrates / d,
		Fat:           n.Fat / d,
		Fiber:         n.Fiber / d,
		Sugar:         n.Sugar / d,
		Sodium:        n.Sodium / d,
	}
}

func (n NutrientTotals) round() NutrientTotals {
	return NutrientTotals{
		Protein:       common.Round1(n.Protein),
		Carbohydrates: common.Round1(n.Carbohydrates),
		Fat:           common.Round1(n.Fat),
		Fiber:         common.Round1(n.Fiber),
		Sugar:         common.Round1(n.Sugar),
		Sodium:        common.Round1(n.Sodium),
	}
}

// PeriodStats 單一區間的統計
type PeriodStats struct {
	Label             string         `json:"label,omitempty"`
	StartDate         string         `json:"start_date"`
	EndDate           string         `json:"end_date"`
	TotalCalories     float64        `json:"total_calories"`
	AvgDailyCalories  float64        `json:"avg_daily_calories"`
	TotalNutrition    NutrientTotals `json:"total_nutrition"`
	AvgDailyNutrition NutrientTotals `json:"avg_daily_nutrition"`
	Days              int            `json:"days"`
	EntriesCount      int            `json:"entries_count"`
	UpdatedAt         string         `json:"updated_at,omitempty"`
}

// Aggregate 彙總 [start, end] 區間內的消費紀錄（含起訖）。
// 日期以 YYYY-MM-DD 字串比較；平均值以區間完整天數為分母。
func Aggregate(entries []food.ConsumptionEntry, start, end time.Time) PeriodStats {
	from, to := common.FormatDate(dateOnly(start)), common.FormatDate(dateOnly(end))
	days := Days(start, end)

	var calories float64
	var totals NutrientTotals
	count := 0
	for i := range entries {
		e := &entries[i]
		if e.Date < from || e.Date > to {
			continue
		}
		calories += e.TotalCalories
		totals = totals.add(e.TotalNutrition)
		count++
	}

	return PeriodStats{
		StartDate:         from,
		EndDate:           to,
		TotalCalories:     common.Round1(calories),
		AvgDailyCalories:  common.Round1(calories / float64(days)),
		TotalNutrition:    totals.round(),
		AvgDailyNutrition: totals.divide(float64(days)).round(),
		Days:              days,
		EntriesCount:      count,
	}
}

// AggregateWindow 彙總單一區間並標上標籤
func AggregateWindow(entries []food.ConsumptionEntry, w Window, now time.Time) PeriodStats {
	s := Aggregate(entries, w.Start, w.End)
	s.Label = w.Label
	s.UpdatedAt = now.UTC().Format(time.RFC3339)
	return s
}

// UserStats 使用者的統計快取，依週期與標籤存放
type UserStats struct {
	UserID    string                 `json:"user_id"`
	Daily     map[string]PeriodStats `json:"daily"`
	Weekly    map[string]PeriodStats `json:"weekly"`
	Monthly   map[string]PeriodStats `json:"monthly"`
	Yearly    map[string]PeriodStats `json:"yearly"`
	UpdatedAt string                 `json:"updated_at,omitempty"`
}

// NewUserStats 創建空的統計紀錄
func NewUserStats(userID string) *UserStats {
	u := &UserStats{UserID: userID}
	u.ensure()
	return u
}

// ensure 補上從儲存層讀回時可能缺少的 map
func (u *UserStats) ensure() {
	if u.Daily == nil {
		u.Daily = make(map[string]PeriodStats)
	}
	if u.Weekly == nil {
		u.Weekly = make(map[string]PeriodStats)
	}
	if u.Monthly == nil {
		u.Monthly = make(map[string]PeriodStats)
	}
	if u.Yearly == nil {
		u.Yearly = make(map[string]PeriodStats)
	}
}

func (u *UserStats) bucket(p Period) map[string]PeriodStats {
	u.ensure()
	switch p {
	case PeriodDaily:
		return u.Daily
	case PeriodWeekly:
		return u.Weekly
	case PeriodMonthly:
		return u.Monthly
	case PeriodYearly:
		return u.Yearly
	}
	return nil
}

// Get 取得快取中的統計
func (u *UserStats) Get(p Period, label string) (PeriodStats, bool) {
	b := u.bucket(p)
	if b == nil {
		return PeriodStats{}, false
	}
	s, ok := b[label]
	return s, ok
}

// Put 寫入區間統計
func (u *UserStats) Put(w Window, s PeriodStats) {
	if b := u.bucket(w.Period); b != nil {
		b[w.Label] = s
	}
}

// Recompute 重新計算某日期所屬的四個區間（完整重算，不做增量）
func (u *UserStats) Recompute(entries []food.ConsumptionEntry, date, now time.Time) {
	for _, w := range WindowsFor(date) {
		u.Put(w, AggregateWindow(entries, w, now))
	}
	u.UpdatedAt = now.UTC().Format(time.RFC3339)
}

// Rebuild 由完整紀錄重建全部統計；無法解析日期的紀錄略過
func Rebuild(userID string, entries []food.ConsumptionEntry, now time.Time) *UserStats {
	u := NewUserStats(userID)

	seen := make(map[string]struct{})
	var dates []time.Time
	for i := range entries {
		if _, ok := seen[entries[i].Date]; ok {
			continue
		}
		seen[entries[i].Date] = struct{}{}
		d, err := common.ParseDate(entries[i].Date)
		if err != nil {
			continue
		}
		dates = append(dates, d)
	}
	sort.Slice(dates, func(i, j int) bool { return dates[i].Before(dates[j]) })

	done := make(map[Period]map[string]bool, len(Periods))
	for _, p := range Periods {
		done[p] = make(map[string]bool)
	}
	for _, d := range dates {
		for _, w := range WindowsFor(d) {
			if done[w.Period][w.Label] {
				continue
			}
			done[w.Period][w.Label] = true
			u.Put(w, AggregateWindow(entries, w, now))
		}
	}
	u.UpdatedAt = now.UTC().Format(time.RFC3339)
	return u
}

// DailySummary 單日檢視，額外提供 consumed_calories
type DailySummary struct {
	PeriodStats
	ConsumedCalories float64 `json:"consumed_calories"`
}

// NewDailySummary 由單日統計建立檢視
func NewDailySummary(s PeriodStats) DailySummary {
	return DailySummary{PeriodStats: s, ConsumedCalories: s.TotalCalories}
}
