package recipe

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/JustynaSek/Fridge-To-Feast/internal/core/ai/provider"
	"github.com/JustynaSek/Fridge-To-Feast/internal/pkg/common"
)

// 食材過濾請求參數
const (
	FilterTemperature = 0.1
	FilterMaxTokens   = 200
)

const filterSystemPrompt = "You are a food expert who identifies cooking ingredients from detected objects."

// GenericFoodTerms 過於籠統、不能當作食材的標籤
var GenericFoodTerms = []string{"Food", "Produce", "Ingredient", "Natural foods", "Vegetable", "Fruit"}

// duplicateFamilies 常見重複的食材類別，同一類只保留第一個
var duplicateFamilies = []string{"onion", "potato", "banana"}

// Completer 發送完整的對話請求
type Completer interface {
	Complete(ctx context.Context, req *provider.Request) (*provider.Response, error)
}

// Normalizer 將影像標籤轉成去重後的通用食材名稱
type Normalizer struct {
	ai          Completer
	model       string
	maxTokens   int
	temperature float64
}

// NormalizerOption 設定 Normalizer
type NormalizerOption func(*Normalizer)

// WithFilterModel 指定過濾用的模型
func WithFilterModel(model string) NormalizerOption {
	return func(n *Normalizer) { n.model = model }
}

// WithFilterLimits 指定過濾請求的 token 上限與溫度
func WithFilterLimits(maxTokens int, temperature float64) NormalizerOption {
	return func(n *Normalizer) {
		if maxTokens > 0 {
			n.maxTokens = maxTokens
		}
		n.temperature = temperature
	}
}

// NewNormalizer 創建食材正規化器
func NewNormalizer(ai Completer, opts ...NormalizerOption) *Normalizer {
	n := &Normalizer{
		ai:          ai,
		maxTokens:   FilterMaxTokens,
		temperature: FilterTemperature,
	}
	for _, opt := range opts {
		opt(n)
	}
	return n
}

// Normalize 以模型過濾標籤，失敗時退回原始標籤，最後做本地去重
func (n *Normalizer) Normalize(ctx context.Context, labels []string) []string {
	labels = cleanIngredients(labels)
	if len(labels) == 0 {
		return []string{}
	}

	filtered, err := n.filter(ctx, labels)
	if err != nil {
		common.LogWarn("食材過濾失敗，使用原始標籤",
			zap.Error(err),
			zap.Strings("labels", labels),
		)
		filtered = labels
	}

	result := DedupeIngredients(filtered)
	common.LogInfo("食材正規化完成",
		zap.Int("labels", len(labels)),
		zap.Strings("ingredients", result),
	)
	return result
}

func (n *Normalizer) filter(ctx context.Context, labels []string) ([]string, error) {
	resp, err := n.ai.Complete(ctx, &provider.Request{
		Messages: []provider.Message{
			{Role: provider.RoleSystem, Content: filterSystemPrompt},
			{Role: provider.RoleUser, Content: buildFilterPrompt(labels)},
		},
		Model:       n.model,
		MaxTokens:   n.maxTokens,
		Temperature: n.temperature,
		JSONMode:    true,
		Cacheable:   true,
	})
	if err != nil {
		return nil, err
	}
	return DecodeIngredientList(resp.Content)
}

func buildFilterPrompt(labels []string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Detected objects: %s\n\n", strings.Join(labels, ", "))
	b.WriteString("From these detected objects, return only specific cooking ingredients.\n")
	fmt.Fprintf(&b, "- Remove generic or non-food terms such as: %s, and anything that is not food (rooms, furniture, tableware, brands).\n", strings.Join(GenericFoodTerms, ", "))
	b.WriteString("- Collapse specific varieties into their generic ingredient name, e.g. \"Yukon Gold potato\" -> \"potato\", \"Yellow onion\" -> \"onion\".\n")
	b.WriteString("- Use lowercase singular names and list each ingredient once.\n")
	b.WriteString("Respond with a JSON object of the form {\"ingredients\": [\"...\"]}.")
	return b.String()
}

// DecodeIngredientList 接受陣列、{"ingredients": [...]} 或 {"food": [...]}。
// JSON 無效時回傳錯誤；其他有效 JSON 格式回傳空清單。
func DecodeIngredientList(content string) ([]string, error) {
	text := common.StripCodeFence(content)
	if text == "" {
		return nil, fmt.Errorf("empty filter response")
	}

	var raw interface{}
	if err := json.Unmarshal([]byte(text), &raw); err != nil {
		return nil, fmt.Errorf("invalid filter response: %w", err)
	}

	switch v := raw.(type) {
	case []interface{}:
		return stringItems(v), nil
	case map[string]interface{}:
		for _, key := range []string{"ingredients", "food"} {
			if list, ok := v[key].([]interface{}); ok {
				return stringItems(list), nil
			}
		}
	}
	common.LogWarn("食材過濾回應格式不明", zap.String("preview", common.Truncate(text, 120)))
	return []string{}, nil
}

func stringItems(items []interface{}) []string {
	out := make([]string, 0, len(items))
	for _, item := range items {
		if s, ok := item.(string); ok {
			if t := strings.TrimSpace(s); t != "" {
				out = append(out, t)
			}
		}
	}
	return out
}

// DedupeIngredients 移除大小寫相同的重複項；onion、potato、banana 類別只保留第一個
func DedupeIngredients(items []string) []string {
	out := make([]string, 0, len(items))
	seen := make(map[string]bool, len(items))
	families := make(map[string]bool, len(duplicateFamilies))

	for _, item := range items {
		name := strings.TrimSpace(item)
		if name == "" {
			continue
		}
		lower := strings.ToLower(name)
		if seen[lower] {
			continue
		}

		// 任一類別已出現就略過，否則記錄所有符合的類別
		var matched []string
		duplicate := false
		for _, f := range duplicateFamilies {
			if !strings.Contains(lower, f) {
				continue
			}
			if families[f] {
				duplicate = true
				break
			}
			matched = append(matched, f)
		}
		if duplicate {
			continue
		}
		for _, f := range matched {
			families[f] = true
		}

		seen[lower] = true
		out = append(out, name)
	}
	return out
}
