package recipe

import (
	"bytes"
	"encoding/json"
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

// Recipe 模型產生、驗證後回傳給前端的食譜
type Recipe struct {
	Title        string       `json:"title"`
	Description  string       `json:"description"`
	Ingredients  []Ingredient `json:"ingredients"`
	Instructions Steps        `json:"instructions"`
	PrepTime     FlexString   `json:"prepTime"`
	CookTime     FlexString   `json:"cookTime"`
}

// Valid 檢查食譜是否可以顯示：標題、食材、步驟皆不可為空
func (r Recipe) Valid() bool {
	if strings.TrimSpace(r.Title) == "" {
		return false
	}
	if len(r.Ingredients) == 0 {
		return false
	}
	return len(r.Instructions) > 0
}

// Ingredient 食譜中的一項食材，可為純字串或 {ingredient, quantity}
type Ingredient struct {
	Name     string `json:"ingredient"`
	Quantity string `json:"quantity,omitempty"`
}

// MarshalJSON 沒有份量時輸出為純字串
func (i Ingredient) MarshalJSON() ([]byte, error) {
	if i.Quantity == "" {
		return json.Marshal(i.Name)
	}
	type pair Ingredient
	return json.Marshal(pair(i))
}

// UnmarshalJSON 接受字串或物件兩種格式
func (i *Ingredient) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 {
		return fmt.Errorf("empty ingredient")
	}
	switch data[0] {
	case '"':
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*i = Ingredient{Name: strings.TrimSpace(s)}
		return nil
	case '{':
		var raw struct {
			Ingredient string     `json:"ingredient"`
			Name       string     `json:"name"`
			Quantity   FlexString `json:"quantity"`
			Amount     FlexString `json:"amount"`
		}
		if err := json.Unmarshal(data, &raw); err != nil {
			return err
		}
		name := raw.Ingredient
		if name == "" {
			name = raw.Name
		}
		qty := string(raw.Quantity)
		if qty == "" {
			qty = string(raw.Amount)
		}
		*i = Ingredient{Name: strings.TrimSpace(name), Quantity: strings.TrimSpace(qty)}
		return nil
	default:
		return fmt.Errorf("unsupported ingredient value: %s", data)
	}
}

// String 以 "份量 食材" 形式輸出
func (i Ingredient) String() string {
	if i.Quantity == "" {
		return i.Name
	}
	return i.Quantity + " " + i.Name
}

// Steps 烹飪步驟，永遠以陣列輸出
type Steps []string

var inlineStepPattern = regexp.MustCompile(`\s\d+[.)]\s`)

// UnmarshalJSON 接受字串陣列；模型若回傳單一字串則依行拆成多個步驟
func (s *Steps) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		*s = nil
		return nil
	}

	switch data[0] {
	case '[':
		var items []json.RawMessage
		if err := json.Unmarshal(data, &items); err != nil {
			return err
		}
		steps := make(Steps, 0, len(items))
		for _, item := range items {
			var text FlexString
			if err := json.Unmarshal(item, &text); err != nil {
				// 物件形式的步驟取常見欄位
				var obj struct {
					Step        string `json:"step"`
					Instruction string `json:"instruction"`
					Description string `json:"description"`
				}
				if objErr := json.Unmarshal(item, &obj); objErr != nil {
					return err
				}
				text = FlexString(firstNonEmpty(obj.Step, obj.Instruction, obj.Description))
			}
			if t := strings.TrimSpace(string(text)); t != "" {
				steps = append(steps, t)
			}
		}
		*s = steps
		return nil
	case '"':
		var block string
		if err := json.Unmarshal(data, &block); err != nil {
			return err
		}
		*s = splitSteps(block)
		return nil
	default:
		return fmt.Errorf("unsupported instructions value: %s", data)
	}
}

func splitSteps(block string) Steps {
	lines := strings.Split(block, "\n")
	if len(lines) == 1 {
		// 單行但含編號 "1. ... 2. ..." 時依編號切開
		if locs := inlineStepPattern.FindAllStringIndex(block, -1); len(locs) > 0 {
			lines = lines[:0]
			prev := 0
			for _, loc := range locs {
				lines = append(lines, block[prev:loc[0]])
				prev = loc[0]
			}
			lines = append(lines, block[prev:])
		}
	}
	steps := make(Steps, 0, len(lines))
	for _, line := range lines {
		if t := strings.TrimSpace(line); t != "" {
			steps = append(steps, t)
		}
	}
	return steps
}

// FlexString 接受字串或數字的文字欄位
type FlexString string

// UnmarshalJSON 數字轉為字串，null 視為空字串
func (f *FlexString) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		*f = ""
		return nil
	}
	if data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*f = FlexString(strings.TrimSpace(s))
		return nil
	}
	if n, err := strconv.ParseFloat(string(data), 64); err == nil {
		*f = FlexString(strconv.FormatFloat(n, 'f', -1, 64))
		return nil
	}
	return fmt.Errorf("unsupported text value: %s", data)
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			return v
		}
	}
	return ""
}
