package api

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/JustynaSek/Fridge-To-Feast/internal/api/handlers/health"
	"github.com/JustynaSek/Fridge-To-Feast/internal/core/recipe"
	"github.com/JustynaSek/Fridge-To-Feast/internal/core/storage"
	"github.com/JustynaSek/Fridge-To-Feast/internal/infrastructure/config"
)

type stubGenerator struct{}

func (stubGenerator) Generate(ctx context.Context, req recipe.GenerateRequest) ([]recipe.Recipe, error) {
	return []recipe.Recipe{recipe.PlaceholderRecipe(req.Language)}, nil
}

func (stubGenerator) Stream(ctx context.Context, req recipe.GenerateRequest, emit func(string) error) (*recipe.StreamParser, error) {
	p := recipe.NewStreamParser()
	p.Write("[]")
	return p, emit("[]")
}

type stubDetector struct{}

func (stubDetector) DetectIngredients(ctx context.Context, uploads []recipe.UploadedImage) ([]string, error) {
	return []string{"tomato"}, nil
}

func testRouter(t *testing.T, cfg *config.Config) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)
	router, stop := SetupRouter(cfg, Services{
		Generator: stubGenerator{},
		Detector:  stubDetector{},
		Storage:   storage.NewManager(storage.NewMemoryStore()),
		Checks:    map[string]health.Check{"chat": func(context.Context) error { return nil }},
	})
	t.Cleanup(stop)
	return router
}

func testConfig() *config.Config {
	return &config.Config{
		App:    config.AppConfig{Version: "test", Debug: true},
		Server: config.ServerConfig{AllowedOrigins: []string{"*"}},
	}
}

func serve(r http.Handler, req *http.Request) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestRoutesAreRegisteredAtRootAndAPI(t *testing.T) {
	r := testRouter(t, testConfig())

	for _, path := range []string{"/generate-recipe", "/api/generate-recipe"} {
		req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(`{"ingredients":["egg"]}`))
		req.Header.Set("Content-Type", "application/json")
		w := serve(r, req)
		assert.Equal(t, http.StatusOK, w.Code, path)
		assert.Contains(t, w.Body.String(), `"recipes"`, path)
	}

	for _, path := range []string{"/generate-recipe-stream", "/api/generate-recipe-stream"} {
		req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(`{"ingredients":["egg"]}`))
		w := serve(r, req)
		assert.Equal(t, http.StatusOK, w.Code, path)
		assert.Equal(t, "[]", w.Body.String(), path)
	}

	for _, path := range []string{"/health", "/ready", "/live"} {
		w := serve(r, httptest.NewRequest(http.MethodGet, path, nil))
		assert.Equal(t, http.StatusOK, w.Code, path)
	}

	req := httptest.NewRequest(http.MethodGet, "/api/preferences", nil)
	req.Header.Set("X-Client-ID", "alice")
	w := serve(r, req)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.NotEmpty(t, w.Header().Get("X-Request-ID"))
}

func TestGenerationRoutesAreRateLimited(t *testing.T) {
	cfg := testConfig()
	cfg.RateLimit = config.RateLimitConfig{Enabled: true, Requests: 2, Window: time.Hour}
	r := testRouter(t, cfg)

	codes := make([]int, 0, 3)
	for i := 0; i < 3; i++ {
		req := httptest.NewRequest(http.MethodPost, "/generate-recipe", strings.NewReader(`{"ingredients":["egg"]}`))
		codes = append(codes, serve(r, req).Code)
	}
	assert.Equal(t, []int{http.StatusOK, http.StatusOK, http.StatusTooManyRequests}, codes)

	// 健康檢查不受限流影響
	assert.Equal(t, http.StatusOK, serve(r, httptest.NewRequest(http.MethodGet, "/live", nil)).Code)
}

func TestDuplicateGenerationIsRejected(t *testing.T) {
	cfg := testConfig()
	cfg.DedupWindow = time.Minute
	r := testRouter(t, cfg)

	body := `{"ingredients":["egg","milk"]}`
	first := serve(r, httptest.NewRequest(http.MethodPost, "/api/generate-recipe", strings.NewReader(body)))
	second := serve(r, httptest.NewRequest(http.MethodPost, "/api/generate-recipe", strings.NewReader(body)))
	assert.Equal(t, http.StatusOK, first.Code)
	assert.Equal(t, http.StatusTooManyRequests, second.Code)
}

func TestCORSPreflight(t *testing.T) {
	r := testRouter(t, testConfig())

	req := httptest.NewRequest(http.MethodOptions, "/api/generate-recipe", nil)
	req.Header.Set("Origin", "http://localhost:3000")
	req.Header.Set("Access-Control-Request-Method", http.MethodPost)
	w := serve(r, req)

	require.Equal(t, http.StatusNoContent, w.Code)
	assert.Equal(t, "*", w.Header().Get("Access-Control-Allow-Origin"))
}

func TestCORSConfig(t *testing.T) {
	cfg := corsConfig(nil)
	assert.True(t, cfg.AllowAllOrigins)
	assert.False(t, cfg.AllowCredentials)

	cfg = corsConfig([]string{"https://fridge.example.com"})
	assert.False(t, cfg.AllowAllOrigins)
	assert.True(t, cfg.AllowCredentials)
	assert.Equal(t, []string{"https://fridge.example.com"}, cfg.AllowOrigins)
}
