// Package i18n 提供伺服器端的短訊息與佔位食譜翻譯。
//
// 語言以 ISO 639-1 代碼為鍵，英文是必備的預設值；查不到的語言或訊息一律退回英文。
package i18n

// MessageKey 訊息鍵
type MessageKey string

const (
	MsgInvalidRequest        MessageKey = "invalid_request"
	MsgNoIngredients         MessageKey = "no_ingredients"
	MsgInvalidIngredient     MessageKey = "invalid_ingredient"
	MsgGenerationFailed      MessageKey = "generation_failed"
	MsgStreamFailed          MessageKey = "stream_failed"
	MsgTimeout               MessageKey = "timeout"
	MsgBusy                  MessageKey = "busy"
	MsgUnavailable           MessageKey = "unavailable"
	MsgParseFailed           MessageKey = "parse_failed"
	MsgUnableToGenerate      MessageKey = "unable_to_generate"
	MsgNoImages              MessageKey = "no_images"
	MsgTooManyImages         MessageKey = "too_many_images"
	MsgImageTooLarge         MessageKey = "image_too_large"
	MsgImageResolution       MessageKey = "image_resolution"
	MsgImageProcessingFailed MessageKey = "image_processing_failed"
	MsgTooManyRequests       MessageKey = "too_many_requests"
	MsgMissingClientID       MessageKey = "missing_client_id"
	MsgStorageQuotaExceeded  MessageKey = "storage_quota_exceeded"
	MsgNotFound              MessageKey = "not_found"
	MsgInvalidBody           MessageKey = "invalid_body"
	MsgStorageFailed         MessageKey = "storage_failed"
)

// Placeholder 無法產生食譜時回傳的佔位內容
type Placeholder struct {
	Title        string
	Description  string
	Ingredients  []string
	Instructions []string
	PrepTime     string
	CookTime     string
}

var messages = map[string]map[MessageKey]string{
	DefaultLanguage: {
		MsgInvalidRequest:        "Invalid request format. Please provide ingredients as an array.",
		MsgNoIngredients:         "Please provide at least one ingredient.",
		MsgInvalidIngredient:     "All ingredients must be valid text.",
		MsgGenerationFailed:      "Failed to generate recipes. Please try again.",
		MsgStreamFailed:          "Failed to generate recipe. Please try again.",
		MsgTimeout:               "Recipe generation is taking longer than expected. Please try again.",
		MsgBusy:                  "Recipe generation is temporarily unavailable due to high demand. Please try again in a few minutes.",
		MsgUnavailable:           "Recipe generation service is temporarily unavailable. Please try again later.",
		MsgParseFailed:           "Failed to process recipe data. Please try again.",
		MsgUnableToGenerate:      "Unable to generate recipes with the provided ingredients. Please try different ingredients.",
		MsgNoImages:              "No images provided.",
		MsgTooManyImages:         "Too many images. Please upload at most 5 images at a time.",
		MsgImageTooLarge:         "Image is too large. Please upload images smaller than 25MB.",
		MsgImageResolution:       "Image resolution is too high. Please upload a smaller photo.",
		MsgImageProcessingFailed: "Failed to process images. Please try again.",
		MsgTooManyRequests:       "Too many requests. Please slow down and try again shortly.",
		MsgMissingClientID:       "Missing X-Client-ID header.",
		MsgStorageQuotaExceeded:  "Storage is full. Please remove some saved recipes and try again.",
		MsgNotFound:              "The requested item was not found.",
		MsgInvalidBody:           "Invalid request body.",
		MsgStorageFailed:         "Failed to access saved data. Please try again.",
	},
	"pl": {
		MsgGenerationFailed: "Nie udało się wygenerować przepisów. Spróbuj ponownie.",
		MsgStreamFailed:     "Nie udało się wygenerować przepisu. Spróbuj ponownie.",
		MsgTimeout:          "Generowanie przepisu trwa dłużej niż zwykle. Spróbuj ponownie.",
		MsgBusy:             "Generowanie przepisów jest chwilowo niedostępne z powodu dużego obciążenia. Spróbuj za kilka minut.",
		MsgUnavailable:      "Usługa generowania przepisów jest chwilowo niedostępna. Spróbuj później.",
		MsgParseFailed:      "Nie udało się przetworzyć danych przepisu. Spróbuj ponownie.",
	},
	"fr": {
		MsgGenerationFailed: "Échec de la génération des recettes. Veuillez réessayer.",
		MsgStreamFailed:     "Échec de la génération de la recette. Veuillez réessayer.",
		MsgTimeout:          "La génération de la recette prend plus de temps que prévu. Veuillez réessayer.",
		MsgBusy:             "La génération de recettes est temporairement indisponible en raison d'une forte demande. Réessayez dans quelques minutes.",
		MsgUnavailable:      "Le service de génération de recettes est temporairement indisponible. Veuillez réessayer plus tard.",
		MsgParseFailed:      "Impossible de traiter les données de la recette. Veuillez réessayer.",
	},
	"es": {
		MsgGenerationFailed: "No se pudieron generar las recetas. Inténtalo de nuevo.",
		MsgStreamFailed:     "No se pudo generar la receta. Inténtalo de nuevo.",
		MsgTimeout:          "La generación de la receta está tardando más de lo esperado. Inténtalo de nuevo.",
		MsgBusy:             "La generación de recetas no está disponible temporalmente por alta demanda. Inténtalo en unos minutos.",
		MsgUnavailable:      "El servicio de generación de recetas no está disponible temporalmente. Inténtalo más tarde.",
		MsgParseFailed:      "No se pudieron procesar los datos de la receta. Inténtalo de nuevo.",
	},
	"de": {
		MsgGenerationFailed: "Rezepte konnten nicht erstellt werden. Bitte versuche es erneut.",
		MsgStreamFailed:     "Rezept konnte nicht erstellt werden. Bitte versuche es erneut.",
		MsgTimeout:          "Die Rezepterstellung dauert länger als erwartet. Bitte versuche es erneut.",
		MsgBusy:             "Die Rezepterstellung ist wegen hoher Nachfrage vorübergehend nicht verfügbar. Bitte versuche es in ein paar Minuten erneut.",
		MsgUnavailable:      "Der Rezeptdienst ist vorübergehend nicht verfügbar. Bitte versuche es später erneut.",
		MsgParseFailed:      "Die Rezeptdaten konnten nicht verarbeitet werden. Bitte versuche es erneut.",
	},
	"it": {
		MsgGenerationFailed: "Impossibile generare le ricette. Riprova.",
		MsgStreamFailed:     "Impossibile generare la ricetta. Riprova.",
		MsgTimeout:          "La generazione della ricetta sta richiedendo più tempo del previsto. Riprova.",
		MsgBusy:             "La generazione di ricette è temporaneamente non disponibile a causa dell'elevata richiesta. Riprova tra qualche minuto.",
		MsgUnavailable:      "Il servizio di generazione ricette è temporaneamente non disponibile. Riprova più tardi.",
		MsgParseFailed:      "Impossibile elaborare i dati della ricetta. Riprova.",
	},
	"pt": {
		MsgGenerationFailed: "Falha ao gerar receitas. Tente novamente.",
		MsgStreamFailed:     "Falha ao gerar a receita. Tente novamente.",
		MsgTimeout:          "A geração da receita está demorando mais do que o esperado. Tente novamente.",
		MsgBusy:             "A geração de receitas está temporariamente indisponível devido à alta demanda. Tente novamente em alguns minutos.",
		MsgUnavailable:      "O serviço de geração de receitas está temporariamente indisponível. Tente novamente mais tarde.",
		MsgParseFailed:      "Falha ao processar os dados da receita. Tente novamente.",
	},
}

var placeholders = map[string]Placeholder{
	DefaultLanguage: {
		Title:        "Recipe Generation Issue",
		Description:  "I couldn't generate a recipe with the current ingredients. Please try with different ingredients or check your preferences.",
		Ingredients:  []string{"Please try different ingredients"},
		Instructions: []string{"1. Try adding more ingredients", "2. Check your dietary preferences", "3. Try again with a different combination"},
	},
	"pl": {
		Title:        "Problem z generowaniem przepisu",
		Description:  "Nie mogłem wygenerować przepisu z obecnymi składnikami. Spróbuj z innymi składnikami lub sprawdź swoje preferencje.",
		Ingredients:  []string{"Spróbuj innych składników"},
		Instructions: []string{"1. Dodaj więcej składników", "2. Sprawdź swoje preferencje żywieniowe", "3. Spróbuj ponownie z inną kombinacją"},
	},
	"fr": {
		Title:        "Problème de génération de recette",
		Description:  "Je n'ai pas pu générer de recette avec les ingrédients actuels. Essayez avec d'autres ingrédients ou vérifiez vos préférences.",
		Ingredients:  []string{"Essayez d'autres ingrédients"},
		Instructions: []string{"1. Ajoutez plus d'ingrédients", "2. Vérifiez vos préférences alimentaires", "3. Réessayez avec une autre combinaison"},
	},
	"es": {
		Title:        "Problema al generar la receta",
		Description:  "No pude generar una receta con los ingredientes actuales. Prueba con otros ingredientes o revisa tus preferencias.",
		Ingredients:  []string{"Prueba con otros ingredientes"},
		Instructions: []string{"1. Añade más ingredientes", "2. Revisa tus preferencias dietéticas", "3. Inténtalo de nuevo con otra combinación"},
	},
	"de": {
		Title:        "Problem bei der Rezepterstellung",
		Description:  "Ich konnte mit den aktuellen Zutaten kein Rezept erstellen. Versuche es mit anderen Zutaten oder prüfe deine Einstellungen.",
		Ingredients:  []string{"Versuche andere Zutaten"},
		Instructions: []string{"1. Füge weitere Zutaten hinzu", "2. Prüfe deine Ernährungsvorlieben", "3. Versuche es mit einer anderen Kombination"},
	},
	"it": {
		Title:        "Problema nella generazione della ricetta",
		Description:  "Non sono riuscito a generare una ricetta con gli ingredienti attuali. Prova con ingredienti diversi o controlla le tue preferenze.",
		Ingredients:  []string{"Prova ingredienti diversi"},
		Instructions: []string{"1. Aggiungi altri ingredienti", "2. Controlla le tue preferenze alimentari", "3. Riprova con una combinazione diversa"},
	},
	"pt": {
		Title:        "Problema na geração da receita",
		Description:  "Não consegui gerar uma receita com os ingredientes atuais. Tente com ingredientes diferentes ou verifique suas preferências.",
		Ingredients:  []string{"Tente ingredientes diferentes"},
		Instructions: []string{"1. Adicione mais ingredientes", "2. Verifique suas preferências alimentares", "3. Tente novamente com outra combinação"},
	},
}

// Message 取得指定語言的訊息，language 可為代碼或顯示名稱
func Message(language string, key MessageKey) string {
	code := Code(language)
	if msg, ok := messages[code][key]; ok {
		return msg
	}
	return messages[DefaultLanguage][key]
}

// PlaceholderRecipe 取得指定語言的佔位食譜
func PlaceholderRecipe(language string) Placeholder {
	p, ok := placeholders[Code(language)]
	if !ok {
		p = placeholders[DefaultLanguage]
	}
	p.PrepTime = "5 minutes"
	p.CookTime = "0 minutes"
	p.Ingredients = append([]string(nil), p.Ingredients...)
	p.Instructions = append([]string(nil), p.Instructions...)
	return p
}
