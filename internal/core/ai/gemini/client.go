package gemini

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/iterator"
	"google.golang.org/api/option"

	"github.com/JustynaSek/Fridge-To-Feast/internal/core/ai/provider"
	"github.com/JustynaSek/Fridge-To-Feast/internal/pkg/common"
)

const (
	defaultModel         = "gemini-1.5-flash"
	defaultTimeout       = 30 * time.Second
	defaultStreamTimeout = 120 * time.Second
)

// Client Gemini 對話客戶端，第一次呼叫時才建立連線
type Client struct {
	config provider.Config
	opts   []option.ClientOption

	mu     sync.Mutex
	client *genai.Client
}

// NewClient 創建 Gemini 客戶端
func NewClient(cfg provider.Config, opts ...option.ClientOption) *Client {
	if cfg.Model == "" {
		cfg.Model = defaultModel
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = defaultTimeout
	}
	if cfg.StreamTimeout <= 0 {
		cfg.StreamTimeout = defaultStreamTimeout
	}
	return &Client{config: cfg, opts: opts}
}

func (c *Client) ensureClient(ctx context.Context) (*genai.Client, error) {
	if !c.Configured() {
		return nil, provider.ErrNotConfigured
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.client != nil {
		return c.client, nil
	}

	opts := append([]option.ClientOption{option.WithAPIKey(c.config.APIKey)}, c.opts...)
	client, err := genai.NewClient(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create gemini client: %w", err)
	}
	c.client = client
	return client, nil
}

// model 依請求設定模型參數，system 訊息放入 SystemInstruction
func (c *Client) model(client *genai.Client, req *provider.Request) (*genai.GenerativeModel, []genai.Part) {
	name := req.Model
	if name == "" || !strings.HasPrefix(name, "gemini") {
		name = c.config.Model
	}
	model := client.GenerativeModel(name)
	model.SetTemperature(float32(req.Temperature))
	if req.MaxTokens > 0 {
		model.SetMaxOutputTokens(int32(req.MaxTokens))
	}
	if req.JSONMode {
		model.ResponseMIMEType = "application/json"
	}

	var system []string
	var parts []genai.Part
	for _, msg := range req.Messages {
		switch msg.Role {
		case provider.RoleSystem:
			system = append(system, msg.Content)
		default:
			parts = append(parts, genai.Text(msg.Content))
		}
	}
	if len(system) > 0 {
		model.SystemInstruction = &genai.Content{
			Parts: []genai.Part{genai.Text(strings.Join(system, "\n\n"))},
		}
	}
	return model, parts
}

// Generate 發送一次完整請求
func (c *Client) Generate(ctx context.Context, req *provider.Request) (*provider.Response, error) {
	client, err := c.ensureClient(ctx)
	if err != nil {
		return nil, err
	}

	ctx, cancel := context.WithTimeout(ctx, c.config.Timeout)
	defer cancel()

	model, parts := c.model(client, req)
	start := time.Now()
	resp, err := model.GenerateContent(ctx, parts...)
	if err != nil {
		err = translateError(ctx, err)
		common.LogAICall(c.config.Model, time.Since(start), err, req.RequestID)
		return nil, err
	}

	content := responseText(resp)
	if strings.TrimSpace(content) == "" {
		common.LogAICall(c.config.Model, time.Since(start), provider.ErrEmptyResponse, req.RequestID)
		return nil, provider.ErrEmptyResponse
	}
	common.LogAICall(c.config.Model, time.Since(start), nil, req.RequestID)

	out := &provider.Response{Content: content, Model: c.config.Model}
	if resp.UsageMetadata != nil {
		out.Usage = provider.Usage{
			PromptTokens:     int(resp.UsageMetadata.PromptTokenCount),
			CompletionTokens: int(resp.UsageMetadata.CandidatesTokenCount),
			TotalTokens:      int(resp.UsageMetadata.TotalTokenCount),
		}
	}
	return out, nil
}

// Stream 以串流方式生成回應
func (c *Client) Stream(ctx context.Context, req *provider.Request, onDelta provider.DeltaFunc) error {
	client, err := c.ensureClient(ctx)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(ctx, c.config.StreamTimeout)
	defer cancel()

	model, parts := c.model(client, req)
	start := time.Now()
	iter := model.GenerateContentStream(ctx, parts...)
	for {
		resp, err := iter.Next()
		if errors.Is(err, iterator.Done) {
			break
		}
		if err != nil {
			err = translateError(ctx, err)
			common.LogAICall(c.config.Model, time.Since(start), err, req.RequestID)
			return err
		}
		if text := responseText(resp); text != "" {
			if err := onDelta(text); err != nil {
				return err
			}
		}
	}
	common.LogAICall(c.config.Model, time.Since(start), nil, req.RequestID)
	return nil
}

func responseText(resp *genai.GenerateContentResponse) string {
	if resp == nil {
		return ""
	}
	var b strings.Builder
	for _, cand := range resp.Candidates {
		if cand.Content == nil {
			continue
		}
		for _, part := range cand.Content.Parts {
			if text, ok := part.(genai.Text); ok {
				b.WriteString(string(text))
			}
		}
		// 只取第一個候選
		break
	}
	return b.String()
}

// translateError 將 Google API 錯誤轉為 provider.APIError 以便分類
func translateError(ctx context.Context, err error) error {
	if ctxErr := ctx.Err(); ctxErr != nil {
		return fmt.Errorf("%w: %v", ctxErr, err)
	}
	var gerr *googleapi.Error
	if errors.As(err, &gerr) {
		return &provider.APIError{
			StatusCode: gerr.Code,
			Message:    gerr.Message,
		}
	}
	return fmt.Errorf("gemini request failed: %w", err)
}

// GetModel 獲取當前使用的模型名稱
func (c *Client) GetModel() string {
	return c.config.Model
}

// Configured 是否已設定 API 金鑰
func (c *Client) Configured() bool {
	return c.config.APIKey != ""
}

// Close 關閉連線
func (c *Client) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.client == nil {
		return nil
	}
	err := c.client.Close()
	c.client = nil
	return err
}
