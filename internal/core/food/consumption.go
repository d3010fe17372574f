package food

// ConsumedFood 一筆消費紀錄中已解析的食物
type ConsumedFood struct {
	FoodID    string    `json:"food_id"`
	Name      string    `json:"name"`
	Quantity  float64   `json:"quantity"`
	Unit      string    `json:"unit"`
	Grams     float64   `json:"grams,omitempty"`
	Calories  float64   `json:"calories"`
	Nutrition Nutrition `json:"nutrition"`
}

// ConsumptionEntry 使用者的一筆消費紀錄，建立後不再修改
type ConsumptionEntry struct {
	EntryID        string         `json:"entry_id"`
	Date           string         `json:"date"`
	MealType       string         `json:"meal_type"`
	Foods          []ConsumedFood `json:"foods"`
	TotalCalories  float64        `json:"total_calories"`
	TotalNutrition Nutrition      `json:"total_nutrition"`
	CreatedAt      string         `json:"created_at"`
}
