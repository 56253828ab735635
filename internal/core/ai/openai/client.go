package openai

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"go.uber.org/zap"

	"github.com/JustynaSek/Fridge-To-Feast/internal/core/ai/provider"
	"github.com/JustynaSek/Fridge-To-Feast/internal/pkg/common"
)

const (
	defaultBaseURL       = "https://api.openai.com/v1"
	defaultTimeout       = 30 * time.Second
	defaultStreamTimeout = 120 * time.Second
	maxSSELineBytes      = 1 << 20
)

// Client OpenAI 相容的 chat completions 客戶端
type Client struct {
	config provider.Config
	client *resty.Client
}

// NewClient 創建客戶端；金鑰缺少時仍可建立，呼叫時回傳 provider.ErrNotConfigured
func NewClient(cfg provider.Config) *Client {
	if cfg.BaseURL == "" {
		cfg.BaseURL = defaultBaseURL
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = defaultTimeout
	}
	if cfg.StreamTimeout <= 0 {
		cfg.StreamTimeout = defaultStreamTimeout
	}

	client := resty.New().
		SetBaseURL(strings.TrimRight(cfg.BaseURL, "/")).
		SetHeader("Content-Type", "application/json").
		SetHeader("Accept", "application/json")
	if cfg.APIKey != "" {
		client.SetAuthToken(cfg.APIKey)
	}

	return &Client{config: cfg, client: client}
}

type chatRequest struct {
	Model          string             `json:"model"`
	Messages       []provider.Message `json:"messages"`
	MaxTokens      int                `json:"max_tokens,omitempty"`
	Temperature    float64            `json:"temperature"`
	Stream         bool               `json:"stream,omitempty"`
	ResponseFormat *responseFormat    `json:"response_format,omitempty"`
}

type responseFormat struct {
	Type string `json:"type"`
}

type chatResponse struct {
	Model   string `json:"model"`
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
		FinishReason string `json:"finish_reason"`
	} `json:"choices"`
	Usage provider.Usage `json:"usage"`
}

type streamChunk struct {
	Choices []struct {
		Delta struct {
			Content string `json:"content"`
		} `json:"delta"`
		FinishReason *string `json:"finish_reason"`
	} `json:"choices"`
	Error *errorBody `json:"error,omitempty"`
}

type errorEnvelope struct {
	Error errorBody `json:"error"`
}

type errorBody struct {
	Message string          `json:"message"`
	Type    string          `json:"type"`
	Code    json.RawMessage `json:"code"`
}

func (e errorBody) code() string {
	if len(e.Code) == 0 || string(e.Code) == "null" {
		return ""
	}
	var s string
	if err := json.Unmarshal(e.Code, &s); err == nil {
		return s
	}
	return string(e.Code)
}

func (c *Client) buildRequest(req *provider.Request, stream bool) chatRequest {
	model := req.Model
	if model == "" {
		model = c.config.Model
	}
	body := chatRequest{
		Model:       model,
		Messages:    req.Messages,
		MaxTokens:   req.MaxTokens,
		Temperature: req.Temperature,
		Stream:      stream,
	}
	if req.JSONMode {
		body.ResponseFormat = &responseFormat{Type: "json_object"}
	}
	return body
}

// Generate 發送一次完整請求
func (c *Client) Generate(ctx context.Context, req *provider.Request) (*provider.Response, error) {
	if !c.Configured() {
		return nil, provider.ErrNotConfigured
	}

	ctx, cancel := context.WithTimeout(ctx, c.config.Timeout)
	defer cancel()

	body := c.buildRequest(req, false)
	start := time.Now()

	var result chatResponse
	var apiErr errorEnvelope
	resp, err := c.client.R().
		SetContext(ctx).
		SetBody(body).
		SetResult(&result).
		SetError(&apiErr).
		Post("/chat/completions")
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			err = fmt.Errorf("%w: %v", ctxErr, err)
		}
		common.LogAICall(body.Model, time.Since(start), err, req.RequestID)
		return nil, fmt.Errorf("failed to send chat request: %w", err)
	}

	if resp.IsError() {
		e := toAPIError(resp.StatusCode(), apiErr.Error, resp.String())
		common.LogAICall(body.Model, time.Since(start), e, req.RequestID)
		return nil, e
	}

	if len(result.Choices) == 0 || strings.TrimSpace(result.Choices[0].Message.Content) == "" {
		common.LogAICall(body.Model, time.Since(start), provider.ErrEmptyResponse, req.RequestID)
		return nil, provider.ErrEmptyResponse
	}

	common.LogAICall(body.Model, time.Since(start), nil, req.RequestID)
	common.LogDebug("AI 回應預覽",
		zap.String("request_id", req.RequestID),
		zap.String("finish_reason", result.Choices[0].FinishReason),
		zap.Int("total_tokens", result.Usage.TotalTokens),
		zap.String("preview", common.Truncate(result.Choices[0].Message.Content, 200)),
	)

	model := result.Model
	if model == "" {
		model = body.Model
	}
	return &provider.Response{
		Content: result.Choices[0].Message.Content,
		Model:   model,
		Usage:   result.Usage,
	}, nil
}

// Stream 以 SSE 串流接收回應，每段 delta 呼叫 onDelta
func (c *Client) Stream(ctx context.Context, req *provider.Request, onDelta provider.DeltaFunc) error {
	if !c.Configured() {
		return provider.ErrNotConfigured
	}

	ctx, cancel := context.WithTimeout(ctx, c.config.StreamTimeout)
	defer cancel()

	body := c.buildRequest(req, true)
	start := time.Now()

	resp, err := c.client.R().
		SetContext(ctx).
		SetBody(body).
		SetHeader("Accept", "text/event-stream").
		SetDoNotParseResponse(true).
		Post("/chat/completions")
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			err = fmt.Errorf("%w: %v", ctxErr, err)
		}
		common.LogAICall(body.Model, time.Since(start), err, req.RequestID)
		return fmt.Errorf("failed to open chat stream: %w", err)
	}

	raw := resp.RawBody()
	defer raw.Close()

	if resp.StatusCode() != http.StatusOK {
		data, _ := io.ReadAll(io.LimitReader(raw, 64*1024))
		var env errorEnvelope
		_ = json.Unmarshal(data, &env)
		e := toAPIError(resp.StatusCode(), env.Error, string(data))
		common.LogAICall(body.Model, time.Since(start), e, req.RequestID)
		return e
	}

	err = readSSE(ctx, raw, onDelta)
	common.LogAICall(body.Model, time.Since(start), err, req.RequestID)
	return err
}

// readSSE 解析 "data: {...}" 行直到 [DONE]
func readSSE(ctx context.Context, r io.Reader, onDelta provider.DeltaFunc) error {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), maxSSELineBytes)

	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, ":") || !strings.HasPrefix(line, "data:") {
			continue
		}
		payload := strings.TrimSpace(strings.TrimPrefix(line, "data:"))
		if payload == "[DONE]" {
			return nil
		}

		var chunk streamChunk
		if err := json.Unmarshal([]byte(payload), &chunk); err != nil {
			common.LogWarn("無法解析串流片段", zap.Error(err), zap.String("payload", common.Truncate(payload, 120)))
			continue
		}
		if chunk.Error != nil {
			return toAPIError(http.StatusOK, *chunk.Error, payload)
		}
		for _, choice := range chunk.Choices {
			if choice.Delta.Content == "" {
				continue
			}
			if err := onDelta(choice.Delta.Content); err != nil {
				return err
			}
		}
	}

	if err := scanner.Err(); err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return fmt.Errorf("chat stream interrupted: %w", ctxErr)
		}
		return fmt.Errorf("chat stream interrupted: %w", err)
	}
	if ctxErr := ctx.Err(); ctxErr != nil {
		return fmt.Errorf("chat stream interrupted: %w", ctxErr)
	}
	return nil
}

func toAPIError(status int, body errorBody, fallback string) *provider.APIError {
	msg := body.Message
	if msg == "" {
		msg = common.Truncate(strings.TrimSpace(fallback), 300)
	}
	return &provider.APIError{
		StatusCode: status,
		Code:       body.code(),
		Type:       body.Type,
		Message:    msg,
	}
}

// GetModel 獲取當前使用的模型名稱
func (c *Client) GetModel() string {
	return c.config.Model
}

// Configured 是否已設定 API 金鑰
func (c *Client) Configured() bool {
	return c.config.APIKey != ""
}

// Close 關閉客戶端
func (c *Client) Close() error {
	return nil
}
