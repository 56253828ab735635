package service

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	"go.uber.org/zap"

	"github.com/JustynaSek/Fridge-To-Feast/internal/core/ai/cache"
	"github.com/JustynaSek/Fridge-To-Feast/internal/core/ai/gemini"
	"github.com/JustynaSek/Fridge-To-Feast/internal/core/ai/openai"
	"github.com/JustynaSek/Fridge-To-Feast/internal/core/ai/provider"
	"github.com/JustynaSek/Fridge-To-Feast/internal/infrastructure/config"
	"github.com/JustynaSek/Fridge-To-Feast/internal/pkg/common"
)

// Service AI 服務：包裝提供者並為可快取的請求加上快取
type Service struct {
	provider provider.Provider
	cache    cache.Cache
}

// NewService 創建 AI 服務，cache 可為 nil
func NewService(p provider.Provider, c cache.Cache) *Service {
	return &Service{provider: p, cache: c}
}

// NewProvider 依設定選擇對話模型提供者
func NewProvider(cfg *config.Config) provider.Provider {
	switch cfg.LLM.Provider {
	case "gemini":
		return gemini.NewClient(provider.Config{
			APIKey:        cfg.LLM.GeminiAPIKey,
			Model:         cfg.LLM.GeminiModel,
			Timeout:       cfg.LLM.Timeout,
			StreamTimeout: cfg.LLM.StreamTimeout,
		})
	default:
		return openai.NewClient(provider.Config{
			APIKey:        cfg.LLM.APIKey,
			Model:         cfg.LLM.Model,
			BaseURL:       cfg.LLM.BaseURL,
			Timeout:       cfg.LLM.Timeout,
			StreamTimeout: cfg.LLM.StreamTimeout,
		})
	}
}

// Complete 發送完整請求；Cacheable 請求先查快取
func (s *Service) Complete(ctx context.Context, req *provider.Request) (*provider.Response, error) {
	if !s.provider.Configured() {
		return nil, provider.ErrNotConfigured
	}

	var key string
	if req.Cacheable && s.cache != nil {
		key = cacheKey(s.provider.GetModel(), req)
		if val, err := s.cache.Get(ctx, key); err == nil && val != "" {
			return &provider.Response{Content: val, Model: s.provider.GetModel(), CacheHit: true}, nil
		} else if err != nil && !errors.Is(err, cache.ErrMiss) {
			common.LogWarn("讀取快取失敗", zap.Error(err))
		}
	}

	resp, err := s.provider.Generate(ctx, req)
	if err != nil {
		return nil, err
	}

	if key != "" {
		if err := s.cache.Set(ctx, key, resp.Content); err != nil {
			common.LogWarn("寫入快取失敗", zap.Error(err))
		}
	}
	return resp, nil
}

// Stream 串流請求，不使用快取
func (s *Service) Stream(ctx context.Context, req *provider.Request, onDelta provider.DeltaFunc) error {
	if !s.provider.Configured() {
		return provider.ErrNotConfigured
	}
	return s.provider.Stream(ctx, req, onDelta)
}

// Configured 提供者是否已設定金鑰
func (s *Service) Configured() bool {
	return s.provider.Configured()
}

// Model 目前的模型
func (s *Service) Model() string {
	return s.provider.GetModel()
}

// CacheStats 快取統計；未啟用快取時回傳 nil
func (s *Service) CacheStats() map[string]interface{} {
	if s.cache == nil {
		return nil
	}
	return s.cache.GetStats()
}

// Close 關閉提供者與快取
func (s *Service) Close() error {
	var errs []error
	if err := s.provider.Close(); err != nil {
		errs = append(errs, err)
	}
	if s.cache != nil {
		if err := s.cache.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func cacheKey(model string, req *provider.Request) string {
	parts := []string{
		model,
		req.Model,
		strconv.Itoa(req.MaxTokens),
		strconv.FormatFloat(req.Temperature, 'f', -1, 64),
		fmt.Sprint(req.JSONMode),
	}
	for _, msg := range req.Messages {
		parts = append(parts, msg.Role, msg.Content)
	}
	return cache.Key("ai:response", parts...)
}
