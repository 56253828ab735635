package recipe

import (
	"fmt"
	"strings"

	"github.com/JustynaSek/Fridge-To-Feast/internal/pkg/i18n"
)

// 食譜生成的請求參數
const (
	RecipeTemperature = 0.7
	RecipeMaxTokens   = 2048
)

// Prompt 一次對話請求所需的提示詞與參數
type Prompt struct {
	System      string
	User        string
	Temperature float64
	MaxTokens   int
	JSONMode    bool
}

// 飲食限制對應的硬性規則，鍵為正規化後的標籤
var dietaryRules = map[string]string{
	"vegetarian":  "VEGETARIAN: STRICTLY NO MEAT, FISH, OR SEAFOOD. Eggs and dairy are allowed.",
	"vegan":       "VEGAN: STRICTLY NO ANIMAL PRODUCTS - no meat, fish, seafood, dairy, eggs, or honey.",
	"gluten-free": "GLUTEN-FREE: avoid wheat, barley, rye, and any ingredient containing gluten (regular pasta, bread, flour, soy sauce).",
	"dairy-free":  "DAIRY-FREE: avoid milk, cheese, yogurt, butter, and cream.",
	"low-carb":    "LOW-CARB: keep carbohydrates minimal - no pasta, rice, bread, potatoes, or added sugar.",
	"keto":        "KETO: very low carbohydrate, high fat - no grains, sugar, starchy vegetables, or most fruit.",
	"paleo":       "PALEO: no grains, legumes, dairy, refined sugar, or processed foods.",
	"pescatarian": "PESCATARIAN: no meat or poultry; fish and seafood are allowed.",
	"nut-free":    "NUT-FREE: no tree nuts, peanuts, or nut-based oils, butters, or flours.",
}

// 健康狀況對應的硬性規則
var healthRules = map[string]string{
	"diabetes":            "DIABETES: low glycemic index, avoid added sugars, emphasize fiber and complex carbs.",
	"heart-disease":       "HEART DISEASE: low sodium, low saturated fat, favor lean proteins, whole grains, and vegetables.",
	"high-blood-pressure": "HIGH BLOOD PRESSURE: low sodium, no added salt beyond a pinch, favor potassium-rich vegetables.",
	"celiac-disease":      "CELIAC DISEASE: strictly gluten-free, including cross-contamination sources such as soy sauce and malt.",
	"lactose-intolerance": "LACTOSE INTOLERANCE: no lactose-containing dairy; use lactose-free or plant-based alternatives.",
}

// DefaultEquipment 使用者未設定設備時假設擁有的基本設備
var DefaultEquipment = []string{"stovetop", "oven", "microwave", "basic utensils"}

// normalizeTag 將 "Gluten Free"、"gluten_free"、"Gluten-Free" 視為相同
func normalizeTag(tag string) string {
	tag = strings.ToLower(strings.TrimSpace(tag))
	tag = strings.NewReplacer("_", "-", " ", "-").Replace(tag)
	for strings.Contains(tag, "--") {
		tag = strings.ReplaceAll(tag, "--", "-")
	}
	return tag
}

// DietaryRule 取得飲食限制的硬性規則
func DietaryRule(tag string) (string, bool) {
	rule, ok := dietaryRules[normalizeTag(tag)]
	return rule, ok
}

// HealthRule 取得健康狀況的硬性規則
func HealthRule(tag string) (string, bool) {
	rule, ok := healthRules[normalizeTag(tag)]
	return rule, ok
}

// BuildPrompt 根據食材與偏好組出系統與使用者提示詞。
// jsonMode 為 true 時模型必須輸出 JSON 物件，提示詞允許 {"recipes": [...]} 包裝。
func BuildPrompt(ingredients []string, prefs *UserPreferences, jsonMode bool) Prompt {
	p := DefaultPreferences()
	if prefs != nil {
		p = prefs.WithDefaults()
	}
	language := i18n.DisplayName(p.Language)

	return Prompt{
		System:      buildSystemPrompt(language, jsonMode),
		User:        buildUserPrompt(cleanIngredients(ingredients), p, language),
		Temperature: RecipeTemperature,
		MaxTokens:   RecipeMaxTokens,
		JSONMode:    jsonMode,
	}
}

func buildSystemPrompt(language string, jsonMode bool) string {
	var b strings.Builder
	b.WriteString("You are a professional chef and recipe creator. You always create complete, delicious recipes from whatever ingredients are available.\n\n")
	b.WriteString("CRITICAL RULES:\n")
	b.WriteString("1. ALWAYS produce at least one complete recipe. Never refuse and never ask the user for additional ingredients.\n")
	b.WriteString("2. If the ingredient list is short, invent a plausible recipe by adding common pantry staples (oil, salt, pepper, herbs, spices, water).\n")
	b.WriteString("3. Respond ONLY with valid JSON. No markdown, no commentary before or after the JSON.\n")
	b.WriteString("4. The JSON must be an array of recipe objects with exactly these keys: \"title\", \"description\", \"ingredients\", \"instructions\", \"prepTime\", \"cookTime\".\n")
	b.WriteString("5. \"ingredients\" is an array of strings that include quantities, e.g. \"2 cups flour\".\n")
	b.WriteString("6. \"instructions\" MUST be an array of step strings, one step per element. Never return instructions as a single string.\n")
	b.WriteString("7. \"prepTime\" and \"cookTime\" are short text durations such as \"15 minutes\".\n")
	fmt.Fprintf(&b, "8. Write ALL text (titles, descriptions, ingredients, instructions, times) entirely in %s.\n", language)
	b.WriteString("9. Dietary restrictions, health conditions and allergies listed by the user are HARD constraints that must never be violated.\n")
	if jsonMode {
		b.WriteString("10. Because the response must be a JSON object, wrap the array as {\"recipes\": [ ... ]}.\n")
	}
	b.WriteString("\nExample:\n")
	if jsonMode {
		b.WriteString(`{"recipes":[{"title":"Garlic Butter Pasta","description":"A quick weeknight pasta.","ingredients":["200 g spaghetti","2 tbsp butter","2 cloves garlic"],"instructions":["Boil the pasta in salted water.","Melt butter and fry the garlic.","Toss the pasta with the garlic butter."],"prepTime":"5 minutes","cookTime":"15 minutes"}]}`)
	} else {
		b.WriteString(`[{"title":"Garlic Butter Pasta","description":"A quick weeknight pasta.","ingredients":["200 g spaghetti","2 tbsp butter","2 cloves garlic"],"instructions":["Boil the pasta in salted water.","Melt butter and fry the garlic.","Toss the pasta with the garlic butter."],"prepTime":"5 minutes","cookTime":"15 minutes"}]`)
	}
	b.WriteString("\n")
	return b.String()
}

func buildUserPrompt(ingredients []string, p UserPreferences, language string) string {
	var b strings.Builder

	fmt.Fprintf(&b, "Create 1 to 3 recipes using these available ingredients: %s.\n", strings.Join(ingredients, ", "))
	b.WriteString("Use as many of them as sensible; common pantry staples may be added.\n\n")

	b.WriteString("User preferences:\n")
	fmt.Fprintf(&b, "- Cooking skill: %s\n", p.CookingSkill)
	fmt.Fprintf(&b, "- Maximum total cooking time: %s\n", p.MaxCookingTime)
	fmt.Fprintf(&b, "- Serving size: %s\n", p.ServingSize)
	fmt.Fprintf(&b, "- Meal type: %s\n", p.MealType)
	fmt.Fprintf(&b, "- Spice level: %s\n", p.SpiceLevel)
	fmt.Fprintf(&b, "- Cooking style: %s\n", p.CookingStyle)
	fmt.Fprintf(&b, "- Meal pace: %s\n", p.MealPace)
	if len(p.PreferredCuisines) > 0 {
		fmt.Fprintf(&b, "- Preferred cuisines: %s\n", strings.Join(p.PreferredCuisines, ", "))
	}
	if tastes := tasteList(p); len(tastes) > 0 {
		fmt.Fprintf(&b, "- Enjoys %s flavors\n", strings.Join(tastes, ", "))
	}
	if p.BudgetFriendly {
		b.WriteString("- Keep the recipe budget-friendly with inexpensive ingredients\n")
	}
	switch p.OrganicPreference {
	case OrganicPrefer:
		b.WriteString("- Prefer organic ingredients where possible\n")
	case OrganicAvoid:
		b.WriteString("- Organic ingredients are not required\n")
	}
	if p.SeasonalIngredients {
		b.WriteString("- Favor seasonal ingredients\n")
	}

	equipment := p.AvailableEquipment
	if len(equipment) == 0 {
		equipment = DefaultEquipment
	}
	fmt.Fprintf(&b, "\nAvailable equipment: %s. Do not require any specialized equipment that is not listed.\n", strings.Join(equipment, ", "))

	if constraints := constraintLines(p); len(constraints) > 0 {
		b.WriteString("\nHARD CONSTRAINTS (must be followed exactly):\n")
		for _, line := range constraints {
			fmt.Fprintf(&b, "- %s\n", line)
		}
	}

	fmt.Fprintf(&b, "\nRespond entirely in %s.", language)
	return b.String()
}

// constraintLines 依查表產生飲食、健康與過敏的硬性規則
func constraintLines(p UserPreferences) []string {
	var lines []string
	seen := make(map[string]bool)
	add := func(line string) {
		if !seen[line] {
			seen[line] = true
			lines = append(lines, line)
		}
	}

	for _, tag := range p.DietaryRestrictions {
		if strings.TrimSpace(tag) == "" {
			continue
		}
		if rule, ok := DietaryRule(tag); ok {
			add(rule)
		} else {
			add(fmt.Sprintf("Respect the dietary restriction: %s.", strings.TrimSpace(tag)))
		}
	}
	for _, tag := range p.HealthConditions {
		if strings.TrimSpace(tag) == "" {
			continue
		}
		if rule, ok := HealthRule(tag); ok {
			add(rule)
		} else {
			add(fmt.Sprintf("Make the recipe suitable for someone with %s.", strings.TrimSpace(tag)))
		}
	}
	for _, allergen := range p.Allergies {
		if a := strings.TrimSpace(allergen); a != "" {
			add(fmt.Sprintf("ALLERGY: never include %s or anything derived from it.", a))
		}
	}
	return lines
}

func tasteList(p UserPreferences) []string {
	var tastes []string
	if p.LikesSalty {
		tastes = append(tastes, "salty")
	}
	if p.LikesSweet {
		tastes = append(tastes, "sweet")
	}
	if p.LikesSpicy {
		tastes = append(tastes, "spicy")
	}
	if p.LikesSour {
		tastes = append(tastes, "sour")
	}
	if p.LikesBitter {
		tastes = append(tastes, "bitter")
	}
	return tastes
}

func cleanIngredients(ingredients []string) []string {
	out := make([]string, 0, len(ingredients))
	for _, ing := range ingredients {
		if t := strings.TrimSpace(ing); t != "" {
			out = append(out, t)
		}
	}
	return out
}
