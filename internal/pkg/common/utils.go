package common

import (
	"math"
	"strings"
	"time"

	"github.com/google/uuid"
)

// DateLayout 日期格式 YYYY-MM-DD
const DateLayout = "2006-01-02"

// GenerateUUID 生成 UUID
func GenerateUUID() string {
	return uuid.New().String()
}

// Round1 四捨五入到小數點後一位，非有限值視為 0
func Round1(v float64) float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0
	}
	return math.Round(v*10) / 10
}

// ParseDate 解析 YYYY-MM-DD
func ParseDate(s string) (time.Time, error) {
	t, err := time.ParseInLocation(DateLayout, strings.TrimSpace(s), time.UTC)
	if err != nil {
		return time.Time{}, Wrap(ErrInvalidDate, err)
	}
	return t, nil
}

// FormatDate 輸出 YYYY-MM-DD
func FormatDate(t time.Time) string {
	return t.Format(DateLayout)
}
