package health

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupRouter(h *Handler) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.GET("/health", h.HealthCheck)
	r.GET("/ready", h.ReadinessCheck)
	r.GET("/live", h.LivenessCheck)
	return r
}

func get(r http.Handler, path string) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, path, nil))
	return w
}

func ok(context.Context) error { return nil }

func TestHealthCheck(t *testing.T) {
	r := setupRouter(NewHandler("1.2.3", map[string]Check{"chat": ok}))

	w := get(r, "/health")
	require.Equal(t, http.StatusOK, w.Code)

	var resp HealthResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "ok", resp.Status)
	assert.Equal(t, "1.2.3", resp.Version)
	assert.Contains(t, resp.Runtime, "goroutines")
	assert.Equal(t, map[string]string{"chat": "ok"}, resp.Checks)
}

func TestHealthCheckDegraded(t *testing.T) {
	r := setupRouter(NewHandler("dev", map[string]Check{
		"chat":   ok,
		"vision": func(context.Context) error { return errors.New("credentials not found") },
	}))

	w := get(r, "/health")
	require.Equal(t, http.StatusOK, w.Code)

	var resp HealthResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "degraded", resp.Status)
	assert.Equal(t, "credentials not found", resp.Checks["vision"])
}

func TestHealthCheckStats(t *testing.T) {
	r := setupRouter(NewHandler("dev", nil, WithStats(map[string]StatsFunc{
		"cache":    func() map[string]interface{} { return map[string]interface{}{"backend": "memory", "hits": 3} },
		"disabled": func() map[string]interface{} { return nil },
	})))

	w := get(r, "/health")
	require.Equal(t, http.StatusOK, w.Code)

	var resp HealthResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	require.Contains(t, resp.Stats, "cache")
	assert.NotContains(t, resp.Stats, "disabled")
	cache := resp.Stats["cache"].(map[string]interface{})
	assert.Equal(t, "memory", cache["backend"])
	assert.Equal(t, float64(3), cache["hits"])
}

func TestReadinessCheck(t *testing.T) {
	w := get(setupRouter(NewHandler("dev", map[string]Check{"chat": ok})), "/ready")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"status":"ready","checks":{"chat":"ok"}}`, w.Body.String())

	w = get(setupRouter(NewHandler("dev", map[string]Check{
		"chat": func(context.Context) error { return errors.New("api key missing") },
	})), "/ready")
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
	assert.JSONEq(t, `{"status":"not_ready","checks":{"chat":"api key missing"}}`, w.Body.String())
}

func TestLivenessCheck(t *testing.T) {
	w := get(setupRouter(NewHandler("dev", nil)), "/live")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"status":"alive"}`, w.Body.String())
}
