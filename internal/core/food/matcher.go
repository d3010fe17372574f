package food

import (
	"strings"

	"nutritrack/internal/core/normalizer"
)

// Match 比對結果
type Match struct {
	Food       *Food     `json:"food"`
	Confidence float64   `json:"confidence"`
	MatchType  MatchType `json:"match_type"`
}

// MatchFood 依優先順序比對食材名稱：完整名稱 > 完整別名 > 部分名稱 > 部分別名。
// 同一層級有多筆符合時取 catalog 中第一筆，呼叫端需保證 catalog 順序固定。
// 全部不符合回傳 nil。
func MatchFood(name string, catalog []Food) *Match {
	query := normalizer.Clean(name)
	if query == "" || len(catalog) == 0 {
		return nil
	}

	// 名稱與別名只小寫一次
	names := make([]string, len(catalog))
	variations := make([][]string, len(catalog))
	for i := range catalog {
		names[i] = normalizer.Clean(catalog[i].Name)
		vs := make([]string, 0, len(catalog[i].NameVariations))
		for _, v := range catalog[i].NameVariations {
			if v = normalizer.Clean(v); v != "" {
				vs = append(vs, v)
			}
		}
		variations[i] = vs
	}

	for i := range catalog {
		if names[i] == query {
			return &Match{Food: &catalog[i], Confidence: ConfidenceExact, MatchType: MatchExactName}
		}
	}

	for i := range catalog {
		for _, v := range variations[i] {
			if v == query {
				return &Match{Food: &catalog[i], Confidence: ConfidenceExact, MatchType: MatchExactVariation}
			}
		}
	}

	for i := range catalog {
		if containsEither(names[i], query) {
			return &Match{Food: &catalog[i], Confidence: ConfidencePartial, MatchType: MatchPartial}
		}
	}

	for i := range catalog {
		for _, v := range variations[i] {
			if containsEither(v, query) {
				return &Match{Food: &catalog[i], Confidence: ConfidencePartial, MatchType: MatchPartialVariation}
			}
		}
	}

	return nil
}

// containsEither 雙向子字串比對，空字串不算符合
func containsEither(a, b string) bool {
	if a == "" || b == "" {
		return false
	}
	return strings.Contains(a, b) || strings.Contains(b, a)
}

// SuggestNames 無法比對時提供前 limit 筆食物名稱給使用者手動選擇
func SuggestNames(catalog []Food, limit int) []string {
	if limit <= 0 || limit > len(catalog) {
		limit = len(catalog)
	}
	out := make([]string, 0, limit)
	for i := 0; i < limit; i++ {
		out = append(out, catalog[i].Name)
	}
	return out
}

// FindByID 依 food_id 查找
func FindByID(catalog []Food, id string) *Food {
	for i := range catalog {
		if catalog[i].FoodID == id {
			return &catalog[i]
		}
	}
	return nil
}
