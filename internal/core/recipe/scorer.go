package recipe

import (
	"math"
	"sort"
	"strings"
)

// 評分權重，分母固定為全部權重總和 1.0（不依啟用條件重新正規化）
const (
	WeightIngredients = 0.4
	WeightTime        = 0.3
	WeightDifficulty  = 0.2
	WeightCalories    = 0.05
	WeightText        = 0.05

	totalWeight = WeightIngredients + WeightTime + WeightDifficulty + WeightCalories + WeightText

	// 超時懲罰係數：每超出要求時間的 100% 扣 10%
	timePenaltyFactor = 0.1
)

// 建議清單預設門檻與上限
const (
	DefaultSuggestionThreshold = 0.3
	DefaultMaxSuggestions      = 20
)

// Score 依搜尋條件評估單一食譜
func Score(r *Recipe, f SearchFilters) MatchResult {
	return scoreProfile(newProfile(r), f, f.criteria())
}

func scoreProfile(p profile, f SearchFilters, c criteria) MatchResult {
	res := MatchResult{
		IngredientMatchRatio: 1,
		IngredientsMatch:     true,
		TimeMatch:            true,
		DifficultyMatch:      true,
		CaloriesMatch:        true,
		TextMatch:            true,
		TagsMatch:            true,
	}
	score := 0.0

	if len(c.ingredients) > 0 {
		matched := 0
		for _, want := range c.ingredients {
			if containsIngredient(p.ingredientSet, want) {
				matched++
			}
		}
		res.IngredientMatchRatio = float64(matched) / float64(len(c.ingredients))
		res.IngredientsMatch = res.IngredientMatchRatio >= 1
		score += WeightIngredients * res.IngredientMatchRatio
	}

	if c.time {
		limit := *f.TimeMinutes
		res.TimeDiff = p.timeMinutes - limit
		res.TimeMatch = p.timeMinutes <= limit
		if res.TimeMatch {
			score += WeightTime
		} else {
			diff := math.Abs(float64(res.TimeDiff))
			penalty := math.Max(0, 1-(diff/math.Max(float64(limit), 1))*timePenaltyFactor)
			score += WeightTime * penalty
		}
	}

	if c.difficulty != "" {
		res.DifficultyMatch = p.difficulty == c.difficulty
		if res.DifficultyMatch {
			score += WeightDifficulty
		}
	}

	if c.calories {
		res.CaloriesMatch = p.caloriesKnown && p.calories <= *f.CaloriesMax
		if res.CaloriesMatch {
			score += WeightCalories
		}
	}

	if c.query != "" {
		res.TextMatch = strings.Contains(p.title, c.query) ||
			strings.Contains(p.ingredients, c.query) ||
			strings.Contains(p.description, c.query)
		if res.TextMatch {
			score += WeightText
		}
	}

	if len(c.tags) > 0 {
		res.TagsMatch = false
		for _, tag := range c.tags {
			if strings.Contains(p.tags, tag) {
				res.TagsMatch = true
				break
			}
		}
	}

	res.IsExactMatch = res.IngredientsMatch && res.TimeMatch && res.DifficultyMatch &&
		res.CaloriesMatch && res.TextMatch && res.TagsMatch
	res.MatchScore = score / totalWeight
	return res
}

// containsIngredient 雙向包含：需求食材是食譜食材的子字串，或反之
func containsIngredient(have []string, want string) bool {
	for _, h := range have {
		if h == "" {
			continue
		}
		if strings.Contains(h, want) || strings.Contains(want, h) {
			return true
		}
	}
	return false
}

// ScoreAll 評分整個語料，保留原始順序
func ScoreAll(recipes []Recipe, f SearchFilters) []ScoredRecipe {
	c := f.criteria()
	out := make([]ScoredRecipe, len(recipes))
	for i := range recipes {
		out[i] = ScoredRecipe{
			Recipe:      recipes[i],
			MatchResult: scoreProfile(newProfile(&recipes[i]), f, c),
		}
	}
	return out
}

// Partition 拆分完全符合與建議清單
// 完全符合保留語料順序；其餘取分數大於門檻者，依分數遞減排序（同分保持原順序）後截斷。
func Partition(scored []ScoredRecipe, threshold float64, limit int) (exact, suggestions []ScoredRecipe) {
	exact = make([]ScoredRecipe, 0)
	suggestions = make([]ScoredRecipe, 0)
	for _, s := range scored {
		if s.IsExactMatch {
			exact = append(exact, s)
			continue
		}
		if s.MatchScore > threshold {
			suggestions = append(suggestions, s)
		}
	}

	sort.SliceStable(suggestions, func(i, j int) bool {
		return suggestions[i].MatchScore > suggestions[j].MatchScore
	})
	if limit >= 0 && len(suggestions) > limit {
		suggestions = suggestions[:limit]
	}
	return exact, suggestions
}
