package recipe

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/JustynaSek/Fridge-To-Feast/internal/pkg/i18n"
)

// 烹飪技巧等級
const (
	SkillBeginner     = "beginner"
	SkillIntermediate = "intermediate"
	SkillAdvanced     = "advanced"
	SkillExpert       = "expert"
)

// UserPreferences 使用者的飲食、技巧、設備與語言偏好
type UserPreferences struct {
	DietaryRestrictions []string          `json:"dietaryRestrictions,omitempty" binding:"omitempty,max=20,dive,max=100"`
	HealthConditions    []string          `json:"healthConditions,omitempty" binding:"omitempty,max=20,dive,max=100"`
	Allergies           []string          `json:"allergies,omitempty" binding:"omitempty,max=30,dive,max=100"`
	CookingSkill        string            `json:"cookingSkill,omitempty" binding:"max=50"`
	MaxCookingTime      string            `json:"maxCookingTime,omitempty" binding:"max=50"`
	ServingSize         string            `json:"servingSize,omitempty" binding:"max=50"`
	MealType            string            `json:"mealType,omitempty" binding:"max=50"`
	PreferredCuisines   []string          `json:"preferredCuisines,omitempty" binding:"omitempty,max=20,dive,max=100"`
	SpiceLevel          string            `json:"spiceLevel,omitempty" binding:"max=50"`
	CookingStyle        string            `json:"cookingStyle,omitempty" binding:"max=50"`
	MealPace            string            `json:"mealPace,omitempty" binding:"max=50"`
	LikesSalty          bool              `json:"likesSalty,omitempty"`
	LikesSweet          bool              `json:"likesSweet,omitempty"`
	LikesSpicy          bool              `json:"likesSpicy,omitempty"`
	LikesSour           bool              `json:"likesSour,omitempty"`
	LikesBitter         bool              `json:"likesBitter,omitempty"`
	BudgetFriendly      bool              `json:"budgetFriendly,omitempty"`
	OrganicPreference   OrganicPreference `json:"organicPreference,omitempty"`
	SeasonalIngredients bool              `json:"seasonalIngredients,omitempty"`
	AvailableEquipment  []string          `json:"availableEquipment,omitempty" binding:"omitempty,max=30,dive,max=100"`
	Language            string            `json:"language,omitempty" binding:"max=50"`
}

// DefaultPreferences 使用者尚未設定時的預設偏好
func DefaultPreferences() UserPreferences {
	return UserPreferences{
		CookingSkill:   "Beginner",
		MaxCookingTime: "30 minutes",
		ServingSize:    "2-4 people",
		MealType:       "dinner",
		SpiceLevel:     "medium",
		CookingStyle:   "traditional",
		MealPace:       "relaxed",
		Language:       i18n.FallbackName(),
	}
}

// WithDefaults 以預設值補齊空白欄位
func (p UserPreferences) WithDefaults() UserPreferences {
	d := DefaultPreferences()
	if strings.TrimSpace(p.CookingSkill) == "" {
		p.CookingSkill = d.CookingSkill
	}
	if strings.TrimSpace(p.MaxCookingTime) == "" {
		p.MaxCookingTime = d.MaxCookingTime
	}
	if strings.TrimSpace(p.ServingSize) == "" {
		p.ServingSize = d.ServingSize
	}
	if strings.TrimSpace(p.MealType) == "" {
		p.MealType = d.MealType
	}
	if strings.TrimSpace(p.SpiceLevel) == "" {
		p.SpiceLevel = d.SpiceLevel
	}
	if strings.TrimSpace(p.CookingStyle) == "" {
		p.CookingStyle = d.CookingStyle
	}
	if strings.TrimSpace(p.MealPace) == "" {
		p.MealPace = d.MealPace
	}
	if strings.TrimSpace(p.Language) == "" {
		p.Language = d.Language
	}
	return p
}

// OrganicPreference 有機食材偏好：prefer / avoid / no-preference
type OrganicPreference string

const (
	OrganicPrefer       OrganicPreference = "prefer"
	OrganicAvoid        OrganicPreference = "avoid"
	OrganicNoPreference OrganicPreference = "no-preference"
)

// UnmarshalJSON 舊版用戶端以布林值儲存，true 視為 prefer
func (o *OrganicPreference) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	switch {
	case bytes.Equal(data, []byte("true")):
		*o = OrganicPrefer
	case bytes.Equal(data, []byte("false")), bytes.Equal(data, []byte("null")):
		*o = ""
	case len(data) > 0 && data[0] == '"':
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*o = OrganicPreference(strings.ToLower(strings.TrimSpace(s)))
	default:
		return fmt.Errorf("unsupported organicPreference value: %s", data)
	}
	return nil
}
