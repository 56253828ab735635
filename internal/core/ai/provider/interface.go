package provider

import (
	"context"
	"time"
)

// 對話角色
const (
	RoleSystem    = "system"
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// Message 表示與 AI 模型的對話消息
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// Request 表示發送到 AI 提供者的請求
type Request struct {
	Messages    []Message
	Model       string // 空白時使用提供者預設模型
	MaxTokens   int
	Temperature float64
	JSONMode    bool // 要求模型輸出 JSON 物件
	Cacheable   bool // 結果可被快取（低溫度、確定性的請求）
	RequestID   string
}

// Usage token 用量
type Usage struct {
	PromptTokens     int `json:"prompt_tokens"`
	CompletionTokens int `json:"completion_tokens"`
	TotalTokens      int `json:"total_tokens"`
}

// Response 表示從 AI 提供者收到的響應
type Response struct {
	Content  string
	Model    string
	Usage    Usage
	CacheHit bool
}

// DeltaFunc 串流時每收到一段文字就呼叫一次，回傳錯誤會中止串流
type DeltaFunc func(delta string) error

// Provider 定義 AI 提供者介面
type Provider interface {
	// Generate 生成完整回應
	Generate(ctx context.Context, req *Request) (*Response, error)

	// Stream 以串流方式生成回應
	Stream(ctx context.Context, req *Request, onDelta DeltaFunc) error

	// GetModel 獲取當前使用的模型名稱
	GetModel() string

	// Configured 是否已設定 API 金鑰
	Configured() bool

	// Close 關閉提供者連接
	Close() error
}

// Config 定義 AI 提供者配置
type Config struct {
	APIKey        string
	Model         string
	BaseURL       string
	Timeout       time.Duration
	StreamTimeout time.Duration
}
