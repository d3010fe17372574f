package catalog

import (
	"context"
	"errors"
	"testing"

	"nutritrack/internal/core/food"
	"nutritrack/internal/pkg/common"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeRepo struct {
	foods    []food.Food
	mappings map[string]food.IngredientMapping
	saved    []food.IngredientMapping
	saveErr  error
	loadErr  error
}

func (r *fakeRepo) LoadFoods(context.Context) ([]food.Food, error) {
	if r.loadErr != nil {
		return nil, r.loadErr
	}
	return r.foods, nil
}

func (r *fakeRepo) LoadIngredientMappings(context.Context) (map[string]food.IngredientMapping, error) {
	if r.mappings == nil {
		r.mappings = make(map[string]food.IngredientMapping)
	}
	return r.mappings, nil
}

func (r *fakeRepo) SaveIngredientMapping(_ context.Context, m food.IngredientMapping) error {
	if r.saveErr != nil {
		return r.saveErr
	}
	r.saved = append(r.saved, m)
	if r.mappings == nil {
		r.mappings = make(map[string]food.IngredientMapping)
	}
	r.mappings[m.IngredientName] = m
	return nil
}

func newRepo() *fakeRepo {
	return &fakeRepo{
		foods: []food.Food{
			{
				FoodID:           "arroz",
				Name:             "Arroz blanco",
				NutritionPer100g: food.Nutrition{Calories: 130},
				UnitConversions:  map[string]float64{"taza": 158},
				DefaultUnit:      "taza",
			},
			{
				FoodID:           "pollo",
				Name:             "Pollo",
				NameVariations:   []string{"pechuga"},
				NutritionPer100g: food.Nutrition{Calories: 165, Protein: 31},
			},
			{
				FoodID:           "tomate",
				Name:             "Tomate",
				NutritionPer100g: food.Nutrition{Calories: 18},
			},
		},
	}
}

func TestResolve_MatchAndLazyPersist(t *testing.T) {
	repo := newRepo()
	svc := NewService(repo)
	ctx := context.Background()

	res, err := svc.Resolve(ctx, " Pollos ")
	require.NoError(t, err)
	assert.True(t, res.Matched)
	assert.Equal(t, "pollo", res.Normalized)
	assert.Equal(t, SourceMatcher, res.Source)
	assert.Equal(t, "pollo", res.Food.FoodID)
	assert.Equal(t, food.MatchExactName, res.Mapping.MatchType)
	assert.Equal(t, 1.0, res.Mapping.Confidence)
	assert.Equal(t, "g", res.Mapping.DefaultUnit)
	require.Len(t, repo.saved, 1)

	// 第二次由已保存的對應回應
	res, err = svc.Resolve(ctx, "pollo")
	require.NoError(t, err)
	assert.Equal(t, SourceMapping, res.Source)
	assert.Len(t, repo.saved, 1)
}

func TestResolve_PartialMatch(t *testing.T) {
	repo := newRepo()
	svc := NewService(repo)

	res, err := svc.Resolve(context.Background(), "arroz")
	require.NoError(t, err)
	require.True(t, res.Matched)
	assert.Equal(t, "arroz", res.Food.FoodID)
	assert.Equal(t, food.MatchPartial, res.Mapping.MatchType)
	assert.Equal(t, 0.8, res.Mapping.Confidence)
	assert.Equal(t, "taza", res.Mapping.DefaultUnit)
}

func TestResolve_MissReturnsSuggestions(t *testing.T) {
	repo := newRepo()
	svc := NewService(repo)

	res, err := svc.Resolve(context.Background(), "quinoa")
	require.NoError(t, err)
	assert.False(t, res.Matched)
	assert.Nil(t, res.Mapping)
	assert.Len(t, res.Suggestions, 3)
	assert.Empty(t, repo.saved)
}

func TestResolve_StaleMappingFallsBackToMatcher(t *testing.T) {
	repo := newRepo()
	repo.mappings = map[string]food.IngredientMapping{
		"tomate": {IngredientName: "tomate", FoodID: "borrado", MatchType: food.MatchManual},
	}
	svc := NewService(repo)

	res, err := svc.Resolve(context.Background(), "tomates")
	require.NoError(t, err)
	assert.Equal(t, SourceMatcher, res.Source)
	assert.Equal(t, "tomate", res.Food.FoodID)
}

func TestResolve_SaveFailureStillResolves(t *testing.T) {
	repo := newRepo()
	repo.saveErr = errors.New("disk full")
	svc := NewService(repo)

	res, err := svc.Resolve(context.Background(), "pechuga")
	require.NoError(t, err)
	assert.True(t, res.Matched)
	assert.Equal(t, food.MatchExactVariation, res.Mapping.MatchType)
}

func TestResolve_Errors(t *testing.T) {
	svc := NewService(newRepo())
	_, err := svc.Resolve(context.Background(), "   ")
	assert.True(t, common.IsValidationError(err))

	repo := newRepo()
	repo.loadErr = common.ErrStoreUnavailable
	_, err = NewService(repo).Resolve(context.Background(), "pollo")
	assert.ErrorIs(t, err, common.ErrStoreUnavailable)
}

func TestSaveManualMapping(t *testing.T) {
	repo := newRepo()
	svc := NewService(repo)
	ctx := context.Background()

	m, err := svc.SaveManualMapping(ctx, ManualMappingRequest{IngredientName: "Jitomates", FoodID: "tomate"})
	require.NoError(t, err)
	assert.Equal(t, "jitomate", m.IngredientName)
	assert.Equal(t, food.MatchManual, m.MatchType)
	assert.Equal(t, food.ConfidenceManual, m.Confidence)
	assert.Equal(t, DefaultQuantity, m.DefaultQuantity)

	res, err := svc.Resolve(ctx, "jitomate")
	require.NoError(t, err)
	assert.Equal(t, SourceMapping, res.Source)
	assert.Equal(t, "tomate", res.Food.FoodID)

	_, err = svc.SaveManualMapping(ctx, ManualMappingRequest{IngredientName: "x", FoodID: "nope"})
	assert.ErrorIs(t, err, common.ErrFoodNotFound)

	_, err = svc.SaveManualMapping(ctx, ManualMappingRequest{IngredientName: "x", FoodID: "tomate", DefaultQuantity: -1})
	assert.True(t, common.IsValidationError(err))
}

func TestNutrition(t *testing.T) {
	svc := NewService(newRepo())

	n, grams, err := svc.Nutrition(context.Background(), "arroz", 1, "taza")
	require.NoError(t, err)
	assert.Equal(t, 158.0, grams)
	assert.Equal(t, 205.4, n.Calories)

	_, _, err = svc.Nutrition(context.Background(), "nope", 1, "g")
	assert.ErrorIs(t, err, common.ErrFoodNotFound)
}
