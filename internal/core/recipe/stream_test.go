package recipe

import (
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStreamParserCompletesOnFullArray(t *testing.T) {
	p := NewStreamParser()
	full := "[" + omelette + "]"

	// 逐字元餵入，中途不可出現 ERROR
	for i := 0; i < len(full)-1; i++ {
		state := p.Write(full[i : i+1])
		assert.NotEqual(t, StateError, state)
	}
	assert.Equal(t, StateAccumulating, p.State())

	assert.Equal(t, StateComplete, p.Write(full[len(full)-1:]))
	assert.Len(t, p.Recipes(), 1)

	recipes, err := p.Close()
	require.NoError(t, err)
	assert.Len(t, recipes, 1)
	assert.Equal(t, StateComplete, p.State())
}

func TestStreamParserToleratesTrailingProse(t *testing.T) {
	p := NewStreamParser()
	p.Write("Here are your recipes:\n[")
	p.Write(omelette)
	assert.Equal(t, StateAccumulating, p.State())
	p.Write("]")
	assert.Equal(t, StateComplete, p.State())
	p.Write("\nEnjoy your meal!")
	assert.Equal(t, StateAccumulating, p.State())

	recipes, err := p.Close()
	require.NoError(t, err)
	assert.Equal(t, "Omelette", recipes[0].Title)
}

func TestStreamParserErrorOnlyAtClose(t *testing.T) {
	p := NewStreamParser()
	p.Write(`[{"title": "Half`)
	assert.Equal(t, StateAccumulating, p.State())
	assert.NoError(t, p.Err())

	_, err := p.Close()
	assert.ErrorIs(t, err, ErrUnparsable)
	assert.Equal(t, StateError, p.State())
}

func TestStreamParserNoValidRecipes(t *testing.T) {
	p := NewStreamParser()
	p.Write(`[{"title":"Nothing"}]`)
	assert.Equal(t, StateAccumulating, p.State())

	_, err := p.Close()
	assert.ErrorIs(t, err, ErrNoValidRecipes)
	assert.Equal(t, StateError, p.State())
}

func TestStreamParserInlineErrorObject(t *testing.T) {
	p := NewStreamParser()
	p.Write(`[{"title":"Soup","ingredients":["water"]`)
	p.Write("\n" + `{"error":"Failed to generate recipe. Please try again."}`)

	_, err := p.Close()
	require.Error(t, err)
	assert.True(t, IsInBandError(err))
	assert.Contains(t, err.Error(), "Failed to generate recipe")
}

func TestStreamParserFailIsTerminal(t *testing.T) {
	p := NewStreamParser()
	p.Write("[" + omelette)
	transport := errors.New("connection reset")

	assert.Equal(t, StateError, p.Fail(transport))
	assert.Equal(t, StateError, p.Write("]"))

	_, err := p.Close()
	assert.ErrorIs(t, err, transport)
	assert.True(t, strings.HasPrefix(p.Text(), "["))
}

func TestStreamStateString(t *testing.T) {
	assert.Equal(t, "ACCUMULATING", StateAccumulating.String())
	assert.Equal(t, "COMPLETE", StateComplete.String())
	assert.Equal(t, "ERROR", StateError.String())
}
