package stats

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"nutritrack/internal/pkg/common"
)

// Period 統計週期
type Period string

const (
	PeriodDaily   Period = "daily"
	PeriodWeekly  Period = "weekly"
	PeriodMonthly Period = "monthly"
	PeriodYearly  Period = "yearly"
)

// Periods 全部週期，依範圍由小到大
var Periods = []Period{PeriodDaily, PeriodWeekly, PeriodMonthly, PeriodYearly}

// Window 一個統計區間（起訖皆含）
type Window struct {
	Period Period
	Label  string
	Start  time.Time
	End    time.Time
}

const secondsPerDay = 24 * 60 * 60

func dateOnly(t time.Time) time.Time {
	t = t.UTC()
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

// DayWindow 單日
func DayWindow(d time.Time) Window {
	d = dateOnly(d)
	return Window{Period: PeriodDaily, Label: common.FormatDate(d), Start: d, End: d}
}

// WeekWindow ISO 週（週一為第一天），標籤為 YYYY-Wnn
func WeekWindow(d time.Time) Window {
	d = dateOnly(d)
	offset := (int(d.Weekday()) + 6) % 7
	start := d.AddDate(0, 0, -offset)
	year, week := d.ISOWeek()
	return Window{
		Period: PeriodWeekly,
		Label:  fmt.Sprintf("%d-W%02d", year, week),
		Start:  start,
		End:    start.AddDate(0, 0, 6),
	}
}

// MonthWindow 日曆月，月底取下個月第 0 天
func MonthWindow(d time.Time) Window {
	d = dateOnly(d)
	start := time.Date(d.Year(), d.Month(), 1, 0, 0, 0, 0, time.UTC)
	end := time.Date(d.Year(), d.Month()+1, 0, 0, 0, 0, 0, time.UTC)
	return Window{Period: PeriodMonthly, Label: start.Format("2006-01"), Start: start, End: end}
}

// YearWindow 日曆年
func YearWindow(d time.Time) Window {
	d = dateOnly(d)
	return Window{
		Period: PeriodYearly,
		Label:  strconv.Itoa(d.Year()),
		Start:  time.Date(d.Year(), time.January, 1, 0, 0, 0, 0, time.UTC),
		End:    time.Date(d.Year(), time.December, 31, 0, 0, 0, 0, time.UTC),
	}
}

// WindowsFor 某日期所屬的四個區間：日、週、月、年
func WindowsFor(d time.Time) []Window {
	return []Window{DayWindow(d), WeekWindow(d), MonthWindow(d), YearWindow(d)}
}

// ParsePeriod 解析週期名稱
func ParsePeriod(s string) (Period, error) {
	p := Period(strings.ToLower(strings.TrimSpace(s)))
	for _, known := range Periods {
		if p == known {
			return p, nil
		}
	}
	return "", common.Wrap(common.ErrInvalidPeriod, fmt.Errorf("unknown period %q", s))
}

// ParseWindow 由週期與標籤還原區間
func ParseWindow(period Period, label string) (Window, error) {
	label = strings.TrimSpace(label)
	bad := func(err error) (Window, error) {
		return Window{}, common.Wrap(common.ErrInvalidPeriod, fmt.Errorf("invalid %s label %q: %w", period, label, err))
	}

	switch period {
	case PeriodDaily:
		d, err := common.ParseDate(label)
		if err != nil {
			return bad(err)
		}
		return DayWindow(d), nil

	case PeriodWeekly:
		var year, week int
		if _, err := fmt.Sscanf(label, "%d-W%d", &year, &week); err != nil {
			return bad(err)
		}
		if week < 1 || week > 53 {
			return bad(fmt.Errorf("week out of range"))
		}
		// 1 月 4 日必在第 1 週
		jan4 := time.Date(year, time.January, 4, 0, 0, 0, 0, time.UTC)
		monday := jan4.AddDate(0, 0, -((int(jan4.Weekday()) + 6) % 7))
		w := WeekWindow(monday.AddDate(0, 0, (week-1)*7))
		if w.Label != fmt.Sprintf("%d-W%02d", year, week) {
			return bad(fmt.Errorf("year has no week %d", week))
		}
		return w, nil

	case PeriodMonthly:
		d, err := time.ParseInLocation("2006-01", label, time.UTC)
		if err != nil {
			return bad(err)
		}
		return MonthWindow(d), nil

	case PeriodYearly:
		year, err := strconv.Atoi(label)
		if err != nil || year < 1 || year > 9999 {
			return bad(fmt.Errorf("invalid year"))
		}
		return YearWindow(time.Date(year, time.January, 1, 0, 0, 0, 0, time.UTC)), nil
	}

	return Window{}, common.Wrap(common.ErrInvalidPeriod, fmt.Errorf("unknown period %q", period))
}

// Days 區間天數（含起訖），至少為 1
func Days(start, end time.Time) int {
	// 以 Unix 日數相減，time.Duration 只能表示約 292 年
	days := int((dateOnly(end).Unix()-dateOnly(start).Unix())/secondsPerDay) + 1
	if days < 1 {
		return 1
	}
	return days
}
