package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/JustynaSek/Fridge-To-Feast/internal/core/ai/cache"
	"github.com/JustynaSek/Fridge-To-Feast/internal/core/ai/gemini"
	"github.com/JustynaSek/Fridge-To-Feast/internal/core/ai/openai"
	"github.com/JustynaSek/Fridge-To-Feast/internal/core/ai/provider"
	"github.com/JustynaSek/Fridge-To-Feast/internal/infrastructure/config"
)

type countingProvider struct {
	calls   int
	content string
	err     error
	key     string
}

func (p *countingProvider) Generate(ctx context.Context, req *provider.Request) (*provider.Response, error) {
	p.calls++
	if p.err != nil {
		return nil, p.err
	}
	return &provider.Response{Content: p.content}, nil
}

func (p *countingProvider) Stream(ctx context.Context, req *provider.Request, onDelta provider.DeltaFunc) error {
	p.calls++
	return onDelta(p.content)
}

func (p *countingProvider) GetModel() string { return "test-model" }
func (p *countingProvider) Configured() bool { return p.key != "" }
func (p *countingProvider) Close() error     { return nil }

func newCache() cache.Cache {
	return cache.NewManager(config.CacheConfig{Enabled: true, MaxSize: 10, TTL: time.Minute})
}

func request(cacheable bool) *provider.Request {
	return &provider.Request{
		Messages:  []provider.Message{{Role: provider.RoleUser, Content: "labels"}},
		Cacheable: cacheable,
	}
}

func TestCompleteCachesCacheableRequests(t *testing.T) {
	p := &countingProvider{content: `{"ingredients":["egg"]}`, key: "k"}
	svc := NewService(p, newCache())
	defer svc.Close()

	first, err := svc.Complete(context.Background(), request(true))
	require.NoError(t, err)
	assert.False(t, first.CacheHit)

	second, err := svc.Complete(context.Background(), request(true))
	require.NoError(t, err)
	assert.True(t, second.CacheHit)
	assert.Equal(t, first.Content, second.Content)
	assert.Equal(t, 1, p.calls)

	stats := svc.CacheStats()
	assert.Equal(t, "memory", stats["backend"])
	assert.Equal(t, int64(1), stats["hits"])
}

func TestCacheStatsWithoutCache(t *testing.T) {
	assert.Nil(t, NewService(&countingProvider{key: "k"}, nil).CacheStats())
}

func TestCompleteSkipsCacheForCreativeRequests(t *testing.T) {
	p := &countingProvider{content: "[]", key: "k"}
	svc := NewService(p, newCache())

	for i := 0; i < 2; i++ {
		_, err := svc.Complete(context.Background(), request(false))
		require.NoError(t, err)
	}
	assert.Equal(t, 2, p.calls)
}

func TestCompleteDoesNotCacheErrors(t *testing.T) {
	p := &countingProvider{err: errors.New("boom"), key: "k"}
	svc := NewService(p, newCache())

	_, err := svc.Complete(context.Background(), request(true))
	require.Error(t, err)

	p.err = nil
	p.content = "ok"
	resp, err := svc.Complete(context.Background(), request(true))
	require.NoError(t, err)
	assert.False(t, resp.CacheHit)
}

func TestNotConfigured(t *testing.T) {
	svc := NewService(&countingProvider{}, nil)

	_, err := svc.Complete(context.Background(), request(false))
	assert.ErrorIs(t, err, provider.ErrNotConfigured)

	err = svc.Stream(context.Background(), request(false), func(string) error { return nil })
	assert.ErrorIs(t, err, provider.ErrNotConfigured)
}

func TestNewProvider(t *testing.T) {
	cfg := &config.Config{LLM: config.LLMConfig{Provider: "openai", Model: "gpt-4o", APIKey: "sk"}}
	_, ok := NewProvider(cfg).(*openai.Client)
	assert.True(t, ok)

	cfg.LLM.Provider = "gemini"
	_, ok = NewProvider(cfg).(*gemini.Client)
	assert.True(t, ok)
}
