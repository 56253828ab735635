package recipe

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/JustynaSek/Fridge-To-Feast/internal/pkg/common"
	"github.com/JustynaSek/Fridge-To-Feast/internal/pkg/i18n"
)

var (
	// ErrUnparsable 模型輸出中找不到可解析的 JSON
	ErrUnparsable = errors.New("model output is not valid recipe JSON")
	// ErrUnknownShape JSON 可解析但不是已知的食譜格式
	ErrUnknownShape = errors.New("model output has no recognizable recipe shape")
	// ErrNoValidRecipes 所有候選食譜都缺少必要欄位
	ErrNoValidRecipes = errors.New("model output contains no valid recipe")
)

// InBandError 模型在回應內容中回報的錯誤或拒絕
type InBandError struct {
	Message string
}

func (e *InBandError) Error() string {
	if e.Message == "" {
		return "model declined to generate recipes"
	}
	return "model reported error: " + e.Message
}

var apologyPhrases = []string{
	"i'm sorry",
	"i am sorry",
	"cannot generate",
	"can't generate",
	"unable to generate",
}

// Shape 模型輸出的 JSON 格式
type Shape int

const (
	ShapeUnknown Shape = iota
	ShapeArray
	ShapeWrapped
	ShapeSingle
)

func (s Shape) String() string {
	switch s {
	case ShapeArray:
		return "array"
	case ShapeWrapped:
		return "recipes-object"
	case ShapeSingle:
		return "single-object"
	default:
		return "unknown"
	}
}

// DecodeShape 依序嘗試已知格式：陣列、{"recipes": [...]}、單一食譜物件。
// 每個候選項目保持原始 JSON，交由 decodeCandidates 個別解析。
func DecodeShape(data []byte) ([]json.RawMessage, Shape, error) {
	data = bytes.TrimSpace(data)
	if len(data) == 0 {
		return nil, ShapeUnknown, ErrUnparsable
	}

	switch data[0] {
	case '[':
		var items []json.RawMessage
		if err := json.Unmarshal(data, &items); err != nil {
			return nil, ShapeUnknown, fmt.Errorf("%w: %v", ErrUnparsable, err)
		}
		return items, ShapeArray, nil
	case '{':
		var fields map[string]json.RawMessage
		if err := json.Unmarshal(data, &fields); err != nil {
			return nil, ShapeUnknown, fmt.Errorf("%w: %v", ErrUnparsable, err)
		}
		if raw, ok := fields["recipes"]; ok {
			var items []json.RawMessage
			if err := json.Unmarshal(raw, &items); err == nil {
				return items, ShapeWrapped, nil
			}
		}
		if _, ok := fields["title"]; ok {
			return []json.RawMessage{data}, ShapeSingle, nil
		}
		return nil, ShapeUnknown, ErrUnknownShape
	default:
		return nil, ShapeUnknown, ErrUnparsable
	}
}

// DetectInBandError 判斷模型回應是否為錯誤物件 {"error": "..."}
func DetectInBandError(text string) (*InBandError, bool) {
	if !strings.Contains(text, `"error"`) {
		return nil, false
	}
	candidates := jsonCandidates(text)
	// 串流中途失敗時錯誤物件附加在已輸出內容之後
	if idx := strings.LastIndex(text, `"error"`); idx > 0 {
		if open, end := strings.LastIndex(text[:idx], "{"), strings.LastIndex(text, "}"); open != -1 && end > idx {
			candidates = append(candidates, []byte(text[open:end+1]))
		}
	}
	for _, candidate := range candidates {
		if candidate[0] != '{' {
			continue
		}
		var obj struct {
			Error json.RawMessage `json:"error"`
		}
		if err := json.Unmarshal(candidate, &obj); err != nil || len(obj.Error) == 0 {
			continue
		}
		msg := errorMessage(obj.Error)
		if msg == "" {
			continue
		}
		return &InBandError{Message: msg}, true
	}
	return nil, false
}

func errorMessage(raw json.RawMessage) string {
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return strings.TrimSpace(s)
	}
	var obj struct {
		Message string `json:"message"`
	}
	if err := json.Unmarshal(raw, &obj); err == nil {
		return strings.TrimSpace(obj.Message)
	}
	return ""
}

func containsApology(text string) bool {
	lower := strings.ToLower(text)
	for _, phrase := range apologyPhrases {
		if strings.Contains(lower, phrase) {
			return true
		}
	}
	return false
}

// jsonCandidates 回傳依序嘗試的 JSON 片段：全文、去除程式碼區塊、第一個 [ 到最後一個 ]、第一個 { 到最後一個 }
func jsonCandidates(text string) [][]byte {
	var out [][]byte
	seen := make(map[string]bool)
	add := func(s string) {
		s = strings.TrimSpace(s)
		if s == "" || seen[s] || (s[0] != '[' && s[0] != '{') {
			return
		}
		seen[s] = true
		out = append(out, []byte(s))
	}

	add(text)
	unfenced := common.StripCodeFence(text)
	add(unfenced)
	if start, end := strings.Index(unfenced, "["), strings.LastIndex(unfenced, "]"); start != -1 && end > start {
		add(unfenced[start : end+1])
	}
	if start, end := strings.Index(unfenced, "{"), strings.LastIndex(unfenced, "}"); start != -1 && end > start {
		add(unfenced[start : end+1])
	}
	return out
}

// ExtractRecipes 從模型輸出中擷取並驗證食譜，不做佔位替換。
// 找不到可解析 JSON 時回傳 ErrUnparsable；格式不明時回傳 ErrUnknownShape。
func ExtractRecipes(text string) ([]Recipe, error) {
	recipes, _, err := extractRecipes(text)
	return recipes, err
}

func extractRecipes(text string) ([]Recipe, Shape, error) {
	candidates := jsonCandidates(text)
	if len(candidates) == 0 {
		return nil, ShapeUnknown, ErrUnparsable
	}

	lastErr := ErrUnparsable
	for _, candidate := range candidates {
		items, shape, err := DecodeShape(candidate)
		if err != nil && errors.Is(err, ErrUnparsable) {
			// 鍵未加引號時嘗試修補一次
			if repaired := common.QuoteJSONKeys(string(candidate)); repaired != string(candidate) {
				items, shape, err = DecodeShape([]byte(repaired))
			}
		}
		if err != nil {
			if !errors.Is(lastErr, ErrUnknownShape) {
				lastErr = err
			}
			continue
		}

		recipes := filterValid(decodeCandidates(items))
		common.LogDebug("解析食譜回應",
			zap.String("shape", shape.String()),
			zap.Int("candidates", len(items)),
			zap.Int("valid", len(recipes)),
		)
		return recipes, shape, nil
	}
	return nil, ShapeUnknown, lastErr
}

func decodeCandidates(items []json.RawMessage) []Recipe {
	recipes := make([]Recipe, 0, len(items))
	for i, item := range items {
		var r Recipe
		if err := json.Unmarshal(item, &r); err != nil {
			common.LogDebug("略過無法解析的食譜", zap.Int("index", i), zap.Error(err))
			continue
		}
		recipes = append(recipes, r)
	}
	return recipes
}

func filterValid(recipes []Recipe) []Recipe {
	valid := make([]Recipe, 0, len(recipes))
	for _, r := range recipes {
		if r.Valid() {
			valid = append(valid, r)
		}
	}
	return valid
}

// ParseRecipes 完整的回應解析流程：偵測模型錯誤、擷取 JSON、驗證，
// 沒有任何有效食譜時以 language 對應的佔位食譜替代。
func ParseRecipes(text, language string) ([]Recipe, error) {
	if inBand, ok := DetectInBandError(text); ok {
		return nil, inBand
	}

	recipes, err := ExtractRecipes(text)
	if err != nil && !errors.Is(err, ErrUnknownShape) {
		if containsApology(text) {
			return nil, &InBandError{}
		}
		return nil, err
	}
	if len(recipes) == 0 {
		if containsApology(text) {
			return nil, &InBandError{}
		}
		common.LogWarn("沒有有效的食譜，使用佔位食譜", zap.String("language", language))
		return []Recipe{PlaceholderRecipe(language)}, nil
	}
	return recipes, nil
}

// PlaceholderRecipe 產生本地化的「無法生成」佔位食譜
func PlaceholderRecipe(language string) Recipe {
	p := i18n.PlaceholderRecipe(language)
	ingredients := make([]Ingredient, 0, len(p.Ingredients))
	for _, name := range p.Ingredients {
		ingredients = append(ingredients, Ingredient{Name: name})
	}
	return Recipe{
		Title:        p.Title,
		Description:  p.Description,
		Ingredients:  ingredients,
		Instructions: Steps(p.Instructions),
		PrepTime:     FlexString(p.PrepTime),
		CookTime:     FlexString(p.CookTime),
	}
}
