package food

// Nutrition 營養素數值（calories 為 kcal，其餘為 g，sodium 為 mg）
type Nutrition struct {
	Calories      float64 `json:"calories"`
	Protein       float64 `json:"protein"`
	Carbohydrates float64 `json:"carbohydrates"`
	Fat           float64 `json:"fat"`
	Fiber         float64 `json:"fiber"`
	Sugar         float64 `json:"sugar"`
	Sodium        float64 `json:"sodium"`
}

// Add 逐欄位相加
func (n Nutrition) Add(o Nutrition) Nutrition {
	return Nutrition{
		Calories:      n.Calories + o.Calories,
		Protein:       n.Protein + o.Protein,
		Carbohydrates: n.Carbohydrates + o.Carbohydrates,
		Fat:           n.Fat + o.Fat,
		Fiber:         n.Fiber + o.Fiber,
		Sugar:         n.Sugar + o.Sugar,
		Sodium:        n.Sodium + o.Sodium,
	}
}

// Scale 逐欄位乘上係數
func (n Nutrition) Scale(f float64) Nutrition {
	return Nutrition{
		Calories:      n.Calories * f,
		Protein:       n.Protein * f,
		Carbohydrates: n.Carbohydrates * f,
		Fat:           n.Fat * f,
		Fiber:         n.Fiber * f,
		Sugar:         n.Sugar * f,
		Sodium:        n.Sodium * f,
	}
}

// Food 食物資料庫中的標準食物
type Food struct {
	FoodID           string             `json:"food_id" validate:"required"`
	Name             string             `json:"name" validate:"required"`
	NameVariations   []string           `json:"name_variations,omitempty"`
	NutritionPer100g Nutrition          `json:"nutrition_per_100g"`
	UnitConversions  map[string]float64 `json:"unit_conversions,omitempty" validate:"omitempty,dive,gte=0"`
	DefaultUnit      string             `json:"default_unit,omitempty"`
}

// MatchType 對應方式
type MatchType string

const (
	MatchExactName        MatchType = "exact_name"
	MatchExactVariation   MatchType = "exact_variation"
	MatchPartial          MatchType = "partial"
	MatchPartialVariation MatchType = "partial_variation"
	MatchManual           MatchType = "manual"
)

// 信心分數
const (
	ConfidenceExact   = 1.0
	ConfidencePartial = 0.8
	ConfidenceManual  = 1.0
)

// IngredientMapping 正規化食材名稱到食物的對應
type IngredientMapping struct {
	IngredientName  string    `json:"ingredient_name"`
	FoodID          string    `json:"food_id"`
	Confidence      float64   `json:"confidence"`
	MatchType       MatchType `json:"match_type"`
	DefaultQuantity float64   `json:"default_quantity"`
	DefaultUnit     string    `json:"default_unit"`
	CreatedAt       string    `json:"created_at,omitempty"`
}
