package recipe

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/JustynaSek/Fridge-To-Feast/internal/core/ai/provider"
	"github.com/JustynaSek/Fridge-To-Feast/internal/pkg/common"
)

// ChatClient 食譜生成需要的對話能力
type ChatClient interface {
	Completer
	Stream(ctx context.Context, req *provider.Request, onDelta provider.DeltaFunc) error
}

// GenerateRequest 食譜生成請求
type GenerateRequest struct {
	Ingredients []string
	Preferences *UserPreferences
	Language    string // 錯誤訊息與佔位食譜使用的語言代碼
	RequestID   string
}

// Service 食譜生成服務
type Service struct {
	ai          ChatClient
	model       string
	maxTokens   int
	temperature float64
}

// ServiceOption 設定 Service
type ServiceOption func(*Service)

// WithModel 指定生成模型
func WithModel(model string) ServiceOption {
	return func(s *Service) { s.model = model }
}

// WithGenerationLimits 指定 token 上限與溫度
func WithGenerationLimits(maxTokens int, temperature float64) ServiceOption {
	return func(s *Service) {
		if maxTokens > 0 {
			s.maxTokens = maxTokens
		}
		if temperature > 0 {
			s.temperature = temperature
		}
	}
}

// NewService 創建食譜服務
func NewService(ai ChatClient, opts ...ServiceOption) *Service {
	s := &Service{
		ai:          ai,
		maxTokens:   RecipeMaxTokens,
		temperature: RecipeTemperature,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *Service) request(req GenerateRequest, jsonMode bool) *provider.Request {
	prompt := BuildPrompt(req.Ingredients, req.Preferences, jsonMode)
	return &provider.Request{
		Messages: []provider.Message{
			{Role: provider.RoleSystem, Content: prompt.System},
			{Role: provider.RoleUser, Content: prompt.User},
		},
		Model:       s.model,
		MaxTokens:   s.maxTokens,
		Temperature: s.temperature,
		JSONMode:    prompt.JSONMode,
		RequestID:   req.RequestID,
	}
}

// Generate 一次取得完整回應並解析；沒有有效食譜時回傳佔位食譜
func (s *Service) Generate(ctx context.Context, req GenerateRequest) ([]Recipe, error) {
	start := time.Now()
	common.LogInfo("開始生成食譜",
		zap.String("request_id", req.RequestID),
		zap.Strings("ingredients", req.Ingredients),
	)

	resp, err := s.ai.Complete(ctx, s.request(req, true))
	if err != nil {
		return nil, fmt.Errorf("generate recipes: %w", err)
	}

	recipes, err := ParseRecipes(resp.Content, req.Language)
	if err != nil {
		common.LogError("解析食譜失敗",
			zap.String("request_id", req.RequestID),
			zap.Error(err),
			zap.String("preview", common.Truncate(resp.Content, 300)),
		)
		return nil, err
	}

	common.LogInfo("食譜生成完成",
		zap.String("request_id", req.RequestID),
		zap.Int("recipes", len(recipes)),
		zap.Duration("耗時", time.Since(start)),
	)
	return recipes, nil
}

// Stream 將模型輸出逐段交給 emit，同時以 StreamParser 追蹤解析狀態。
// 回傳的 parser 已關閉，可由 State 與 Err 取得最終結果。
func (s *Service) Stream(ctx context.Context, req GenerateRequest, emit func(string) error) (*StreamParser, error) {
	parser := NewStreamParser()
	chunks := 0

	err := s.ai.Stream(ctx, s.request(req, false), func(delta string) error {
		chunks++
		parser.Write(delta)
		return emit(delta)
	})
	if err != nil {
		parser.Fail(err)
		common.LogError("食譜串流失敗",
			zap.String("request_id", req.RequestID),
			zap.Int("chunks", chunks),
			zap.Error(err),
		)
		return parser, fmt.Errorf("stream recipes: %w", err)
	}

	recipes, perr := parser.Close()
	if perr != nil {
		common.LogWarn("串流內容無法解析為食譜",
			zap.String("request_id", req.RequestID),
			zap.Int("chunks", chunks),
			zap.Error(perr),
			zap.String("preview", common.Truncate(parser.Text(), 300)),
		)
		return parser, perr
	}

	common.LogInfo("食譜串流完成",
		zap.String("request_id", req.RequestID),
		zap.Int("chunks", chunks),
		zap.Int("recipes", len(recipes)),
	)
	return parser, nil
}
