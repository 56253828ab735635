package common

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStatusAndCodeOf(t *testing.T) {
	tests := []struct {
		name   string
		err    error
		status int
		code   string
	}{
		{"predefined", ErrTooManyRequests, http.StatusTooManyRequests, ErrCodeTooManyRequests},
		{"wrapped", ErrRequestTimeout.Wrap(errors.New("deadline")), http.StatusRequestTimeout, ErrCodeRequestTimeout},
		{"nested", fmt.Errorf("generate: %w", ErrServiceUnavailable.Wrap(errors.New("no key"))), http.StatusInternalServerError, ErrCodeServiceUnavailable},
		{"validation", NewValidationError("bad body"), http.StatusBadRequest, ErrCodeInvalidRequest},
		{"plain", errors.New("boom"), http.StatusInternalServerError, ErrCodeInternalError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.status, StatusOf(tt.err))
			assert.Equal(t, tt.code, CodeOf(tt.err))
		})
	}
}

func TestCustomErrorIsMatchesCode(t *testing.T) {
	err := fmt.Errorf("load: %w", ErrNotFound.Wrap(errors.New("missing key")))
	assert.ErrorIs(t, err, ErrNotFound)
	assert.NotErrorIs(t, err, ErrInternalError)
	assert.Equal(t, "資源不存在: missing key", ErrNotFound.Wrap(errors.New("missing key")).Error())
}

func TestDecodeJSON(t *testing.T) {
	var v struct {
		Name  string      `json:"name"`
		Count interface{} `json:"count"`
	}
	require.NoError(t, ParseJSONBytes([]byte(`{"name":"egg","count":3}`), &v))
	assert.Equal(t, "egg", v.Name)
	assert.Equal(t, "3", fmt.Sprint(v.Count))

	assert.Error(t, DecodeJSON(strings.NewReader(`{"name":"egg"} {"name":"milk"}`), &v))
	assert.Error(t, ParseJSONBytes([]byte(`{"name":`), &v))
}

func TestStripCodeFenceAndQuoteKeys(t *testing.T) {
	assert.Equal(t, `[{"title":"Soup"}]`, StripCodeFence("```json\n[{\"title\":\"Soup\"}]\n```"))
	assert.Equal(t, "plain", StripCodeFence("  plain  "))
	assert.Equal(t, `{"title": "Soup", "cookTime": "5"}`, QuoteJSONKeys(`{title: "Soup", cookTime: "5"}`))
}
