package i18n

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCode(t *testing.T) {
	tests := []struct {
		input string
		want  string
	}{
		{"", "en"},
		{"English", "en"},
		{"Polish", "pl"},
		{"polish", "pl"},
		{"polski", "pl"},
		{"pl", "pl"},
		{"pt-BR", "pt"},
		{"Deutsch", "de"},
		{"Français", "fr"},
		{"Spanish", "es"},
		{"Italian", "it"},
		{"Japanese", "en"},
		{"ja", "en"},
		{"not a language", "en"},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			assert.Equal(t, tt.want, Code(tt.input))
		})
	}
}

func TestDisplayName(t *testing.T) {
	assert.Equal(t, "English", DisplayName(""))
	assert.Equal(t, "Polish", DisplayName("pl"))
	assert.Equal(t, "Polish", DisplayName("polski"))
	assert.Equal(t, "German", DisplayName("German"))
	assert.Equal(t, "Japanese", DisplayName("Japanese"))
}

func TestFromAcceptLanguage(t *testing.T) {
	assert.Equal(t, "fr", FromAcceptLanguage("fr-CA,fr;q=0.9,en;q=0.8"))
	assert.Equal(t, "de", FromAcceptLanguage("ja;q=0.9,de;q=0.5"))
	assert.Equal(t, "en", FromAcceptLanguage(""))
	assert.Equal(t, "en", FromAcceptLanguage("ja"))
}

func TestResolvePrefersExplicitLanguage(t *testing.T) {
	assert.Equal(t, "es", Resolve("Spanish", "pl"))
	assert.Equal(t, "pl", Resolve("", "pl-PL"))
}

func TestSetFallback(t *testing.T) {
	t.Cleanup(func() { SetFallback(DefaultLanguage) })

	assert.Equal(t, "pl", SetFallback("Polish"))
	assert.Equal(t, "pl", Fallback())
	assert.Equal(t, "Polish", FallbackName())
	assert.Equal(t, "pl", Code(""))
	assert.Equal(t, "pl", Code("Japanese"))
	assert.Equal(t, "pl", FromAcceptLanguage(""))
	assert.Equal(t, "Polish", DisplayName(""))
	assert.Equal(t, "fr", Resolve("", "fr"))

	// 無法辨識的設定退回英文
	assert.Equal(t, "en", SetFallback("Klingon"))
	assert.Equal(t, "English", FallbackName())
	assert.Equal(t, "en", SetFallback(""))
}

func TestMessageFallsBackToEnglish(t *testing.T) {
	assert.Equal(t, "Nie udało się wygenerować przepisu. Spróbuj ponownie.", Message("Polish", MsgStreamFailed))
	// 波蘭文未翻譯的訊息退回英文
	assert.Equal(t, "Please provide at least one ingredient.", Message("pl", MsgNoIngredients))
	assert.Equal(t, "Failed to generate recipes. Please try again.", Message("Klingon", MsgGenerationFailed))
}

func TestEveryLanguageHasCoreMessages(t *testing.T) {
	core := []MessageKey{MsgGenerationFailed, MsgStreamFailed, MsgTimeout, MsgBusy, MsgUnavailable, MsgParseFailed}
	for code, table := range messages {
		for _, key := range core {
			assert.NotEmpty(t, table[key], "language %s missing %s", code, key)
		}
		_, ok := placeholders[code]
		assert.True(t, ok, "language %s missing placeholder", code)
	}
}

func TestPlaceholderRecipe(t *testing.T) {
	p := PlaceholderRecipe("German")
	assert.Equal(t, "Problem bei der Rezepterstellung", p.Title)
	assert.Equal(t, "5 minutes", p.PrepTime)
	assert.Equal(t, "0 minutes", p.CookTime)
	assert.Len(t, p.Instructions, 3)

	// 回傳的切片不可影響共用表格
	p.Ingredients[0] = "mutated"
	assert.NotEqual(t, "mutated", PlaceholderRecipe("de").Ingredients[0])

	assert.Equal(t, "Recipe Generation Issue", PlaceholderRecipe("").Title)
}
