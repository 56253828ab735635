package recipe

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/JustynaSek/Fridge-To-Feast/internal/core/ai/provider"
)

func TestServiceGenerate(t *testing.T) {
	ai := &fakeChat{content: "[" + omelette + "]"}
	svc := NewService(ai, WithModel("gpt-4o-mini"), WithGenerationLimits(1024, 0.5))

	recipes, err := svc.Generate(context.Background(), GenerateRequest{
		Ingredients: []string{"eggs", "salt"},
		Language:    "en",
		RequestID:   "req-1",
	})
	require.NoError(t, err)
	require.Len(t, recipes, 1)
	assert.Equal(t, "Omelette", recipes[0].Title)

	require.Len(t, ai.requests, 1)
	req := ai.requests[0]
	assert.Equal(t, "gpt-4o-mini", req.Model)
	assert.Equal(t, 1024, req.MaxTokens)
	assert.Equal(t, 0.5, req.Temperature)
	assert.True(t, req.JSONMode)
	assert.False(t, req.Cacheable)
	assert.Equal(t, "req-1", req.RequestID)
	require.Len(t, req.Messages, 2)
	assert.Equal(t, provider.RoleSystem, req.Messages[0].Role)
	assert.Contains(t, req.Messages[1].Content, "eggs")
}

func TestServiceGenerateDefaults(t *testing.T) {
	ai := &fakeChat{content: "[" + omelette + "]"}
	_, err := NewService(ai).Generate(context.Background(), GenerateRequest{Ingredients: []string{"eggs"}})
	require.NoError(t, err)
	assert.Equal(t, RecipeMaxTokens, ai.requests[0].MaxTokens)
	assert.Equal(t, RecipeTemperature, ai.requests[0].Temperature)
}

func TestServiceGeneratePlaceholder(t *testing.T) {
	svc := NewService(&fakeChat{content: `[{"title":"Incomplete"}]`})
	recipes, err := svc.Generate(context.Background(), GenerateRequest{Ingredients: []string{"eggs"}, Language: "pl"})
	require.NoError(t, err)
	require.Len(t, recipes, 1)
	assert.Equal(t, PlaceholderRecipe("pl"), recipes[0])
}

func TestServiceGenerateErrors(t *testing.T) {
	t.Run("unparsable", func(t *testing.T) {
		svc := NewService(&fakeChat{content: "Boil the eggs."})
		_, err := svc.Generate(context.Background(), GenerateRequest{Ingredients: []string{"eggs"}})
		assert.ErrorIs(t, err, ErrUnparsable)
	})

	t.Run("in-band", func(t *testing.T) {
		svc := NewService(&fakeChat{content: `{"error":"not enough ingredients"}`})
		_, err := svc.Generate(context.Background(), GenerateRequest{Ingredients: []string{"eggs"}})
		assert.True(t, IsInBandError(err))
	})

	t.Run("provider", func(t *testing.T) {
		svc := NewService(&fakeChat{err: provider.ErrNotConfigured})
		_, err := svc.Generate(context.Background(), GenerateRequest{Ingredients: []string{"eggs"}})
		assert.ErrorIs(t, err, provider.ErrNotConfigured)
		assert.Contains(t, err.Error(), "generate recipes")
	})
}

func TestServiceStream(t *testing.T) {
	full := "[" + omelette + "]"
	ai := &fakeChat{chunks: []string{full[:20], full[20:60], full[60:]}}
	svc := NewService(ai)

	var out strings.Builder
	parser, err := svc.Stream(context.Background(), GenerateRequest{Ingredients: []string{"eggs"}}, func(delta string) error {
		out.WriteString(delta)
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, full, out.String())
	assert.Equal(t, StateComplete, parser.State())
	assert.Len(t, parser.Recipes(), 1)

	require.Len(t, ai.requests, 1)
	assert.False(t, ai.requests[0].JSONMode)
}

func TestServiceStreamTransportError(t *testing.T) {
	ai := &fakeChat{chunks: []string{`[{"title":`}, err: errors.New("connection reset")}
	parser, err := NewService(ai).Stream(context.Background(), GenerateRequest{Ingredients: []string{"eggs"}}, func(string) error { return nil })
	require.Error(t, err)
	assert.Contains(t, err.Error(), "connection reset")
	assert.Equal(t, StateError, parser.State())
}

func TestServiceStreamUnparsable(t *testing.T) {
	ai := &fakeChat{chunks: []string{"just ", "some prose"}}
	parser, err := NewService(ai).Stream(context.Background(), GenerateRequest{Ingredients: []string{"eggs"}}, func(string) error { return nil })
	assert.ErrorIs(t, err, ErrUnparsable)
	assert.Equal(t, StateError, parser.State())
}

func TestServiceStreamEmitError(t *testing.T) {
	ai := &fakeChat{chunks: []string{"[", omelette, "]"}}
	calls := 0
	_, err := NewService(ai).Stream(context.Background(), GenerateRequest{Ingredients: []string{"eggs"}}, func(string) error {
		calls++
		return errors.New("client gone")
	})
	require.Error(t, err)
	assert.Equal(t, 1, calls)
}
