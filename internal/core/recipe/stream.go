package recipe

import (
	"errors"
	"strings"
	"sync"
)

// StreamState 串流解析狀態
type StreamState int

const (
	StateAccumulating StreamState = iota
	StateComplete
	StateError
)

func (s StreamState) String() string {
	switch s {
	case StateAccumulating:
		return "ACCUMULATING"
	case StateComplete:
		return "COMPLETE"
	case StateError:
		return "ERROR"
	default:
		return "UNKNOWN"
	}
}

// StreamParser 逐段累積模型輸出並嘗試解析的狀態機。
//
// 中途的解析失敗不會回報；只有在完整解析出至少一個有效食譜後才進入 COMPLETE。
// Fail 或 Close 時的最終解析失敗會進入 ERROR，ERROR 為終止狀態。
type StreamParser struct {
	mu      sync.Mutex
	buf     strings.Builder
	state   StreamState
	recipes []Recipe
	err     error
	closed  bool
}

// NewStreamParser 建立串流解析器
func NewStreamParser() *StreamParser {
	return &StreamParser{state: StateAccumulating}
}

// Write 附加一段文字並在可能完整時嘗試解析
func (p *StreamParser) Write(chunk string) StreamState {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.state == StateError || p.closed {
		return p.state
	}
	p.buf.WriteString(chunk)

	if !looksTerminated(p.buf.String()) {
		// 已完成後又收到非結尾內容，回到累積狀態等待下一次完整解析
		if p.state == StateComplete && strings.TrimSpace(chunk) != "" {
			p.state = StateAccumulating
		}
		return p.state
	}

	// 只有完整的陣列才算完成，單一物件可能只是陣列中的第一個元素
	recipes, shape, err := p.parse()
	if err == nil && len(recipes) > 0 && (shape == ShapeArray || shape == ShapeWrapped) {
		p.recipes = recipes
		p.state = StateComplete
	}
	return p.state
}

// Fail 傳輸層錯誤，直接進入 ERROR
func (p *StreamParser) Fail(err error) StreamState {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.state != StateError {
		p.state = StateError
		p.err = err
	}
	p.closed = true
	return p.state
}

// Close 串流結束時做最終解析並回報結果
func (p *StreamParser) Close() ([]Recipe, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.closed {
		return p.recipes, p.err
	}
	p.closed = true

	recipes, _, err := p.parse()
	switch {
	case err != nil:
		p.state = StateError
		p.err = err
		p.recipes = nil
	case len(recipes) == 0:
		p.state = StateError
		p.err = ErrNoValidRecipes
		p.recipes = nil
	default:
		p.state = StateComplete
		p.recipes = recipes
	}
	return p.recipes, p.err
}

// State 目前狀態
func (p *StreamParser) State() StreamState {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.state
}

// Text 目前累積的文字
func (p *StreamParser) Text() string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.buf.String()
}

// Recipes 最近一次成功解析的食譜
func (p *StreamParser) Recipes() []Recipe {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]Recipe(nil), p.recipes...)
}

// Err 終止錯誤
func (p *StreamParser) Err() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.err
}

// parse 呼叫前必須持有鎖
func (p *StreamParser) parse() ([]Recipe, Shape, error) {
	text := p.buf.String()
	if inBand, ok := DetectInBandError(text); ok {
		return nil, ShapeUnknown, inBand
	}
	recipes, shape, err := extractRecipes(text)
	if err != nil {
		if containsApology(text) {
			return nil, shape, &InBandError{}
		}
		return nil, shape, err
	}
	if len(recipes) == 0 && containsApology(text) {
		return nil, shape, &InBandError{}
	}
	return recipes, shape, nil
}

func looksTerminated(text string) bool {
	trimmed := strings.TrimSpace(text)
	if trimmed == "" {
		return false
	}
	last := trimmed[len(trimmed)-1]
	return last == ']' || last == '}' || strings.HasSuffix(trimmed, "```")
}

// IsInBandError 判斷錯誤是否為模型回報的錯誤或拒絕
func IsInBandError(err error) bool {
	var inBand *InBandError
	return errors.As(err, &inBand)
}
