package recipe

import (
	"bytes"
	"strconv"
	"strings"

	"nutritrack/internal/core/normalizer"

	"github.com/goccy/go-json"
)

// ParseCalories 從 nutrients 欄位取出熱量
// 字串格式為 "calories <N> ..."，取空白切分後第二個欄位的整數；
// 物件格式讀取 calories 鍵，缺少時視為 0；null 與其他型別同樣視為 0。
// 回傳 false 表示無法解析，呼叫端應視為熱量條件不符合。
func ParseCalories(raw json.RawMessage) (int, bool) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 {
		// 缺少 nutrients 等同空字串
		return 0, false
	}
	if bytes.Equal(raw, []byte("null")) {
		return 0, true
	}

	switch raw[0] {
	case '"':
		var s string
		if err := json.Unmarshal(raw, &s); err != nil {
			return 0, false
		}
		fields := strings.Fields(s)
		if len(fields) < 2 {
			return 0, false
		}
		cal, err := strconv.Atoi(fields[1])
		if err != nil {
			return 0, false
		}
		return cal, true

	case '{':
		var m map[string]any
		if err := json.Unmarshal(raw, &m); err != nil {
			return 0, false
		}
		v, ok := m["calories"]
		if !ok {
			return 0, true
		}
		switch cal := v.(type) {
		case float64:
			return int(cal), true
		case string:
			n, err := strconv.Atoi(strings.TrimSpace(cal))
			if err != nil {
				return 0, false
			}
			return n, true
		case bool:
			if cal {
				return 1, true
			}
			return 0, true
		default:
			return 0, false
		}

	default:
		// 其他型別（數字、陣列）不帶熱量資訊
		return 0, true
	}
}

// profile 評分用的結構化食譜，只在邊界解析一次
type profile struct {
	title         string
	description   string
	ingredients   string
	ingredientSet []string
	difficulty    string
	tags          string
	timeMinutes   int
	calories      int
	caloriesKnown bool
}

func newProfile(r *Recipe) profile {
	cal, ok := ParseCalories(r.Nutrients)
	return profile{
		title:         strings.ToLower(r.Title),
		description:   strings.ToLower(r.Description),
		ingredients:   strings.ToLower(r.Ingredients),
		ingredientSet: normalizeIngredients(normalizer.SplitList(r.Ingredients)),
		difficulty:    strings.ToLower(strings.TrimSpace(r.Difficulty)),
		tags:          strings.ToLower(r.Tags),
		timeMinutes:   r.TimeMinutes,
		calories:      cal,
		caloriesKnown: ok,
	}
}

func normalizeIngredients(names []string) []string {
	return normalizer.NormalizeAll(names)
}
