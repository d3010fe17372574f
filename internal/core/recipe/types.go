package recipe

import (
	"strings"

	"github.com/goccy/go-json"
)

// Difficulty 食譜難度
const (
	DifficultyEasy   = "Fácil"
	DifficultyMedium = "Media"
	DifficultyHard   = "Difícil"
)

// Scope 食譜來源範圍
type Scope string

const (
	ScopeGeneral Scope = "general" // 系統內建食譜
	ScopePublic  Scope = "public"  // 使用者公開分享的食譜
	ScopePrivate Scope = "private" // 呼叫者自己的私人食譜
)

// Valid 檢查範圍是否合法
func (s Scope) Valid() bool {
	switch s {
	case ScopeGeneral, ScopePublic, ScopePrivate:
		return true
	}
	return false
}

// Recipe 食譜（儲存格式）
// ingredients 與 tags 為逗號分隔字串，nutrients 可能是字串或物件，保留原樣輸出
type Recipe struct {
	ID                 string          `json:"id,omitempty"`
	Title              string          `json:"title"`
	Description        string          `json:"description,omitempty"`
	Ingredients        string          `json:"ingredients"`
	TimeMinutes        int             `json:"time_minutes"`
	Difficulty         string          `json:"difficulty"`
	Tags               string          `json:"tags"`
	Nutrients          json.RawMessage `json:"nutrients,omitempty"`
	Servings           int             `json:"servings,omitempty"`
	CaloriesPerServing float64         `json:"calories_per_serving,omitempty"`
	Author             string          `json:"author,omitempty"`
	Scope              Scope           `json:"scope,omitempty"`
}

// SearchFilters 搜尋條件，每個欄位皆可省略，省略即不套用該條件
type SearchFilters struct {
	Query       string   `json:"query"`
	Ingredients []string `json:"ingredients,omitempty"`
	TimeMinutes *int     `json:"time_minutes,omitempty"`
	Difficulty  string   `json:"difficulty,omitempty"`
	Tags        []string `json:"tags,omitempty"`
	CaloriesMax *int     `json:"calories_max,omitempty"`
}

// criteria 條件是否啟用的明確旗標
type criteria struct {
	query       string
	ingredients []string
	time        bool
	difficulty  string
	tags        []string
	calories    bool
}

func (f SearchFilters) criteria() criteria {
	c := criteria{
		query:      strings.ToLower(strings.TrimSpace(f.Query)),
		time:       f.TimeMinutes != nil,
		difficulty: strings.ToLower(strings.TrimSpace(f.Difficulty)),
		calories:   f.CaloriesMax != nil,
	}
	c.ingredients = normalizeIngredients(f.Ingredients)
	for _, t := range f.Tags {
		if t = strings.ToLower(strings.TrimSpace(t)); t != "" {
			c.tags = append(c.tags, t)
		}
	}
	return c
}

// MatchResult 單一食譜的評分結果
type MatchResult struct {
	IsExactMatch         bool    `json:"isExactMatch"`
	MatchScore           float64 `json:"matchScore"`
	IngredientMatchRatio float64 `json:"ingredientMatchRatio"`
	IngredientsMatch     bool    `json:"ingredientsMatch"`
	TimeMatch            bool    `json:"timeMatch"`
	TimeDiff             int     `json:"timeDiff"`
	DifficultyMatch      bool    `json:"difficultyMatch"`
	CaloriesMatch        bool    `json:"caloriesMatch"`
	TextMatch            bool    `json:"textMatch"`
	TagsMatch            bool    `json:"tagsMatch"`
}

// ScoredRecipe 食譜與其評分，JSON 輸出時欄位攤平
type ScoredRecipe struct {
	Recipe
	MatchResult
}
