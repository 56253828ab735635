package provider

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strings"
)

// ErrNotConfigured 缺少 API 金鑰等必要設定
var ErrNotConfigured = errors.New("ai provider is not configured")

// ErrEmptyResponse 模型沒有回傳任何內容
var ErrEmptyResponse = errors.New("ai provider returned an empty response")

// APIError 上游服務回傳的錯誤
type APIError struct {
	StatusCode int
	Code       string
	Type       string
	Message    string
}

func (e *APIError) Error() string {
	if e.Code != "" {
		return fmt.Sprintf("ai provider error (status %d, code %s): %s", e.StatusCode, e.Code, e.Message)
	}
	return fmt.Sprintf("ai provider error (status %d): %s", e.StatusCode, e.Message)
}

// ErrorKind 錯誤分類，決定對外的狀態碼與訊息
type ErrorKind int

const (
	KindUnknown ErrorKind = iota
	KindTimeout
	KindRateLimited
	KindUnauthorized
	KindNotConfigured
	KindCanceled
)

func (k ErrorKind) String() string {
	switch k {
	case KindTimeout:
		return "timeout"
	case KindRateLimited:
		return "rate_limited"
	case KindUnauthorized:
		return "unauthorized"
	case KindNotConfigured:
		return "not_configured"
	case KindCanceled:
		return "canceled"
	default:
		return "unknown"
	}
}

// Classify 將上游錯誤分類
func Classify(err error) ErrorKind {
	if err == nil {
		return KindUnknown
	}
	if errors.Is(err, ErrNotConfigured) {
		return KindNotConfigured
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return KindTimeout
	}
	if errors.Is(err, context.Canceled) {
		return KindCanceled
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return KindTimeout
	}

	var apiErr *APIError
	if errors.As(err, &apiErr) {
		switch {
		case apiErr.StatusCode == http.StatusTooManyRequests:
			return KindRateLimited
		case apiErr.StatusCode == http.StatusUnauthorized, apiErr.StatusCode == http.StatusForbidden:
			return KindUnauthorized
		case apiErr.StatusCode == http.StatusRequestTimeout, apiErr.StatusCode == http.StatusGatewayTimeout:
			return KindTimeout
		}
		if kind := classifyText(apiErr.Code + " " + apiErr.Type + " " + apiErr.Message); kind != KindUnknown {
			return kind
		}
		return KindUnknown
	}

	return classifyText(err.Error())
}

func classifyText(text string) ErrorKind {
	lower := strings.ToLower(text)
	switch {
	case strings.Contains(lower, "insufficient_quota"),
		strings.Contains(lower, "quota"),
		strings.Contains(lower, "rate_limit"),
		strings.Contains(lower, "rate limit"),
		strings.Contains(lower, "resource_exhausted"):
		return KindRateLimited
	case strings.Contains(lower, "invalid_api_key"),
		strings.Contains(lower, "unauthorized"),
		strings.Contains(lower, "authentication"),
		strings.Contains(lower, "permission_denied"):
		return KindUnauthorized
	case strings.Contains(lower, "timeout"), strings.Contains(lower, "timed out"):
		return KindTimeout
	}
	return KindUnknown
}
