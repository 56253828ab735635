package recipe

import (
	"errors"
	"fmt"
	"strings"
	"sync"
	"unicode/utf8"

	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	recipeService "github.com/JustynaSek/Fridge-To-Feast/internal/core/recipe"
	"github.com/JustynaSek/Fridge-To-Feast/internal/pkg/common"
	"github.com/JustynaSek/Fridge-To-Feast/internal/pkg/i18n"
)

// maxIngredientLength 單一食材名稱的字元上限
const maxIngredientLength = 200

// GenerateRecipeRequest 食譜生成請求
type GenerateRecipeRequest struct {
	Ingredients []string                       `json:"ingredients" binding:"required,min=1,dive,ingredient"`
	Preferences *recipeService.UserPreferences `json:"preferences"`
}

// rawGenerateRequest 先以寬鬆型別解碼，才能分辨缺欄位、空陣列與非字串項目
type rawGenerateRequest struct {
	Ingredients interface{}                    `json:"ingredients"`
	Preferences *recipeService.UserPreferences `json:"preferences"`
}

var registerOnce sync.Once

// RegisterValidators 向 gin 的驗證引擎註冊自訂標籤
func RegisterValidators() {
	registerOnce.Do(func() {
		v, ok := binding.Validator.Engine().(*validator.Validate)
		if !ok {
			return
		}
		if err := v.RegisterValidation("ingredient", validIngredient); err != nil {
			common.LogError("註冊食材驗證器失敗", zap.Error(err))
		}
	})
}

// validIngredient 非空白且長度合理的食材名稱
func validIngredient(fl validator.FieldLevel) bool {
	s := strings.TrimSpace(fl.Field().String())
	return s != "" && utf8.RuneCountInString(s) <= maxIngredientLength
}

// bindGenerateRequest 解析並驗證請求主體，失敗時同時回傳應顯示的訊息
func bindGenerateRequest(c *gin.Context) (*GenerateRecipeRequest, i18n.MessageKey, error) {
	if c.Request.Body == nil {
		return nil, i18n.MsgInvalidRequest, errors.New("empty request body")
	}

	var raw rawGenerateRequest
	if err := common.DecodeJSON(c.Request.Body, &raw); err != nil {
		return nil, i18n.MsgInvalidRequest, err
	}
	// 缺欄位、null、非陣列與空陣列都視為沒有提供食材
	items, ok := raw.Ingredients.([]interface{})
	if !ok {
		return nil, i18n.MsgNoIngredients, fmt.Errorf("ingredients must be an array, got %T", raw.Ingredients)
	}
	if len(items) == 0 {
		return nil, i18n.MsgNoIngredients, errors.New("ingredients is empty")
	}

	req := &GenerateRecipeRequest{
		Ingredients: make([]string, 0, len(items)),
		Preferences: raw.Preferences,
	}
	for i, item := range items {
		s, ok := item.(string)
		if !ok {
			return nil, i18n.MsgInvalidIngredient, fmt.Errorf("ingredient %d is %T", i, item)
		}
		req.Ingredients = append(req.Ingredients, s)
	}

	if err := binding.Validator.ValidateStruct(req); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) && len(verrs) > 0 && !strings.HasPrefix(verrs[0].StructNamespace(), "GenerateRecipeRequest.Ingredients") {
			return nil, i18n.MsgInvalidRequest, err
		}
		return nil, i18n.MsgInvalidIngredient, err
	}
	return req, "", nil
}
