package provider

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"testing"

	"github.com/stretchr/testify/assert"
)

type timeoutErr struct{}

func (timeoutErr) Error() string   { return "i/o timeout" }
func (timeoutErr) Timeout() bool   { return true }
func (timeoutErr) Temporary() bool { return true }

func TestClassify(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want ErrorKind
	}{
		{"nil", nil, KindUnknown},
		{"not configured", fmt.Errorf("generate: %w", ErrNotConfigured), KindNotConfigured},
		{"deadline", fmt.Errorf("send: %w", context.DeadlineExceeded), KindTimeout},
		{"url timeout", &url.Error{Op: "Post", URL: "http://x", Err: timeoutErr{}}, KindTimeout},
		{"canceled", context.Canceled, KindCanceled},
		{"429", &APIError{StatusCode: http.StatusTooManyRequests, Message: "slow down"}, KindRateLimited},
		{"quota code", &APIError{StatusCode: http.StatusBadRequest, Code: "insufficient_quota"}, KindRateLimited},
		{"401", &APIError{StatusCode: http.StatusUnauthorized, Message: "bad key"}, KindUnauthorized},
		{"403", &APIError{StatusCode: http.StatusForbidden}, KindUnauthorized},
		{"504", &APIError{StatusCode: http.StatusGatewayTimeout}, KindTimeout},
		{"500", &APIError{StatusCode: http.StatusInternalServerError, Message: "boom"}, KindUnknown},
		{"plain quota text", errors.New("You exceeded your current quota"), KindRateLimited},
		{"plain", errors.New("connection reset"), KindUnknown},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Classify(tt.err))
		})
	}
}
