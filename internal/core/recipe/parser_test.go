package recipe

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const omelette = `{"title":"Omelette","description":"Fluffy eggs","ingredients":["2 eggs","salt"],"instructions":["Whisk eggs","Cook in pan"],"prepTime":"5 minutes","cookTime":"5 minutes"}`

func TestParseRecipesShapes(t *testing.T) {
	tests := []struct {
		name  string
		input string
	}{
		{"array", "[" + omelette + "]"},
		{"wrapped", `{"recipes":[` + omelette + `]}`},
		{"single object", omelette},
		{"prose around array", "Here you go:\n[" + omelette + "]\nEnjoy!"},
		{"code fence", "```json\n[" + omelette + "]\n```"},
		{"prose around object", "Sure! " + omelette + " Bon appétit."},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			recipes, err := ParseRecipes(tt.input, "en")
			require.NoError(t, err)
			require.Len(t, recipes, 1)
			assert.Equal(t, "Omelette", recipes[0].Title)
			assert.Equal(t, Steps{"Whisk eggs", "Cook in pan"}, recipes[0].Instructions)
		})
	}
}

func TestParseRecipesFiltersInvalidEntries(t *testing.T) {
	input := `[
		` + omelette + `,
		{"title":"","ingredients":["x"],"instructions":["y"]},
		{"title":"No ingredients","ingredients":[],"instructions":["y"]},
		{"title":"No steps","ingredients":["x"]},
		{"title":"Bad type","ingredients":42,"instructions":["y"]},
		{"title":"Toast","ingredients":[{"ingredient":"bread","quantity":"2 slices"}],"instructions":"1. Toast the bread\n2. Serve"}
	]`

	recipes, err := ParseRecipes(input, "en")
	require.NoError(t, err)
	require.Len(t, recipes, 2)
	assert.Equal(t, "Omelette", recipes[0].Title)
	assert.Equal(t, "Toast", recipes[1].Title)
	assert.Equal(t, Ingredient{Name: "bread", Quantity: "2 slices"}, recipes[1].Ingredients[0])
	assert.Equal(t, Steps{"1. Toast the bread", "2. Serve"}, recipes[1].Instructions)

	for _, r := range recipes {
		assert.True(t, r.Valid())
		assert.NotEmpty(t, r.Title)
		assert.NotEmpty(t, r.Ingredients)
		assert.GreaterOrEqual(t, len(r.Instructions), 1)
	}
}

func TestParseRecipesPlaceholderWhenNothingValid(t *testing.T) {
	recipes, err := ParseRecipes(`[{"title":"","ingredients":[],"instructions":[]}]`, "pl")
	require.NoError(t, err)
	require.Len(t, recipes, 1)
	assert.Equal(t, "Problem z generowaniem przepisu", recipes[0].Title)
	assert.True(t, recipes[0].Valid())

	recipes, err = ParseRecipes(`{"meals":[]}`, "en")
	require.NoError(t, err)
	assert.Equal(t, "Recipe Generation Issue", recipes[0].Title)
}

func TestParseRecipesUnparsable(t *testing.T) {
	_, err := ParseRecipes("The recipe is to boil the eggs.", "en")
	assert.ErrorIs(t, err, ErrUnparsable)

	_, err = ParseRecipes(`[{"title": "Broken"`, "en")
	assert.ErrorIs(t, err, ErrUnparsable)
}

func TestParseRecipesInBandErrors(t *testing.T) {
	_, err := ParseRecipes(`{"error":"Cannot create a recipe from these items"}`, "en")
	require.Error(t, err)
	var inBand *InBandError
	require.ErrorAs(t, err, &inBand)
	assert.Equal(t, "Cannot create a recipe from these items", inBand.Message)

	_, err = ParseRecipes("I'm sorry, but I cannot generate a recipe with only water.", "en")
	assert.True(t, IsInBandError(err))

	// 有效食譜中的道歉字眼不視為錯誤
	recipes, err := ParseRecipes(`[{"title":"I'm Sorry Cake","ingredients":["flour"],"instructions":["Bake"]}]`, "en")
	require.NoError(t, err)
	assert.Equal(t, "I'm Sorry Cake", recipes[0].Title)
}

func TestParseRecipesRepairsUnquotedKeys(t *testing.T) {
	recipes, err := ParseRecipes(`[{title: "Salad", ingredients: ["lettuce"], instructions: ["Toss"]}]`, "en")
	require.NoError(t, err)
	assert.Equal(t, "Salad", recipes[0].Title)
}

func TestDecodeShape(t *testing.T) {
	_, shape, err := DecodeShape([]byte(`[]`))
	require.NoError(t, err)
	assert.Equal(t, ShapeArray, shape)

	items, shape, err := DecodeShape([]byte(`{"recipes":[{},{}]}`))
	require.NoError(t, err)
	assert.Equal(t, ShapeWrapped, shape)
	assert.Len(t, items, 2)

	_, shape, err = DecodeShape([]byte(omelette))
	require.NoError(t, err)
	assert.Equal(t, ShapeSingle, shape)

	_, _, err = DecodeShape([]byte(`{"foo":1}`))
	assert.ErrorIs(t, err, ErrUnknownShape)

	_, _, err = DecodeShape([]byte(`"text"`))
	assert.ErrorIs(t, err, ErrUnparsable)
}

func TestRecipeJSONRoundTripShape(t *testing.T) {
	r := Recipe{
		Title:        "Tea",
		Ingredients:  []Ingredient{{Name: "water"}, {Name: "tea leaves", Quantity: "1 tsp"}},
		Instructions: Steps{"Boil", "Steep"},
		PrepTime:     "1 minute",
	}
	data, err := json.Marshal(r)
	require.NoError(t, err)
	assert.JSONEq(t, `{"title":"Tea","description":"","ingredients":["water",{"ingredient":"tea leaves","quantity":"1 tsp"}],"instructions":["Boil","Steep"],"prepTime":"1 minute","cookTime":""}`, string(data))
}

func TestFlexibleFields(t *testing.T) {
	var r Recipe
	require.NoError(t, json.Unmarshal([]byte(`{"title":"Rice","ingredients":[{"name":"rice","amount":200}],"instructions":[{"step":"Rinse"},"Cook",""],"prepTime":10,"cookTime":null}`), &r))
	assert.Equal(t, Ingredient{Name: "rice", Quantity: "200"}, r.Ingredients[0])
	assert.Equal(t, Steps{"Rinse", "Cook"}, r.Instructions)
	assert.Equal(t, FlexString("10"), r.PrepTime)
	assert.Equal(t, FlexString(""), r.CookTime)

	var steps Steps
	require.NoError(t, json.Unmarshal([]byte(`"1. Chop 2. Fry 3. Serve"`), &steps))
	assert.Equal(t, Steps{"1. Chop", "2. Fry", "3. Serve"}, steps)
}
