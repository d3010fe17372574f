package food

import (
	"math"
	"strings"

	"nutritrack/internal/pkg/common"
)

// Grams 將數量與單位換算成公克；未知單位視為數量本身就是公克
func Grams(f *Food, quantity float64, unit string) float64 {
	if math.IsNaN(quantity) || math.IsInf(quantity, 0) || quantity < 0 {
		return 0
	}
	if f == nil || unit == "" {
		return quantity
	}
	if perUnit, ok := f.UnitConversions[unit]; ok {
		return quantity * perUnit
	}
	if perUnit, ok := f.UnitConversions[strings.ToLower(strings.TrimSpace(unit))]; ok {
		return quantity * perUnit
	}
	return quantity
}

// Compute 計算指定數量的營養素，每個欄位四捨五入到小數點後一位
func Compute(f *Food, quantity float64, unit string) Nutrition {
	if f == nil {
		return Nutrition{}
	}
	grams := Grams(f, quantity, unit)
	return RoundNutrition(f.NutritionPer100g.Scale(grams / 100))
}

// RoundNutrition 逐欄位四捨五入到小數點後一位
func RoundNutrition(n Nutrition) Nutrition {
	return Nutrition{
		Calories:      common.Round1(n.Calories),
		Protein:       common.Round1(n.Protein),
		Carbohydrates: common.Round1(n.Carbohydrates),
		Fat:           common.Round1(n.Fat),
		Fiber:         common.Round1(n.Fiber),
		Sugar:         common.Round1(n.Sugar),
		Sodium:        common.Round1(n.Sodium),
	}
}
