package health

import (
	"context"
	"net/http"
	"runtime"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/JustynaSek/Fridge-To-Feast/internal/pkg/common"
)

// checkTimeout 單一依賴檢查的時間上限
const checkTimeout = 3 * time.Second

// HealthResponse 健康檢查響應
type HealthResponse struct {
	Status    string                 `json:"status"`
	Timestamp time.Time              `json:"timestamp"`
	Version   string                 `json:"version"`
	Runtime   map[string]interface{} `json:"runtime"`
	Checks    map[string]string      `json:"checks,omitempty"`
	Stats     map[string]interface{} `json:"stats,omitempty"`
}

// Check 外部依賴檢查，回傳 nil 表示可用
type Check func(ctx context.Context) error

// StatsFunc 回傳元件的統計資訊，nil 表示不顯示
type StatsFunc func() map[string]interface{}

// Handler 健康、就緒與存活檢查
type Handler struct {
	version string
	checks  map[string]Check
	stats   map[string]StatsFunc
}

// Option 設定 Handler
type Option func(*Handler)

// WithStats 在健康檢查中附上元件統計
func WithStats(stats map[string]StatsFunc) Option {
	return func(h *Handler) {
		for name, fn := range stats {
			if fn != nil {
				h.stats[name] = fn
			}
		}
	}
}

// NewHandler 創建健康檢查處理程序
func NewHandler(version string, checks map[string]Check, opts ...Option) *Handler {
	if checks == nil {
		checks = map[string]Check{}
	}
	h := &Handler{version: version, checks: checks, stats: map[string]StatsFunc{}}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

func (h *Handler) collectStats() map[string]interface{} {
	if len(h.stats) == 0 {
		return nil
	}
	out := make(map[string]interface{}, len(h.stats))
	for name, fn := range h.stats {
		if s := fn(); s != nil {
			out[name] = s
		}
	}
	return out
}

// run 依序執行所有檢查
func (h *Handler) run(ctx context.Context) (map[string]string, bool) {
	results := make(map[string]string, len(h.checks))
	ok := true
	for name, check := range h.checks {
		cctx, cancel := context.WithTimeout(ctx, checkTimeout)
		err := check(cctx)
		cancel()
		if err != nil {
			results[name] = err.Error()
			ok = false
			continue
		}
		results[name] = "ok"
	}
	return results, ok
}

// HealthCheck 健康檢查處理器；依賴不可用時狀態為 degraded，但仍回傳 200
func (h *Handler) HealthCheck(c *gin.Context) {
	var m runtime.MemStats
	runtime.ReadMemStats(&m)

	checks, ok := h.run(c.Request.Context())
	status := "ok"
	if !ok {
		status = "degraded"
	}

	response := HealthResponse{
		Status:    status,
		Timestamp: time.Now(),
		Version:   h.version,
		Runtime: map[string]interface{}{
			"goroutines": runtime.NumGoroutine(),
			"memory": map[string]interface{}{
				"alloc":       m.Alloc,
				"total_alloc": m.TotalAlloc,
				"sys":         m.Sys,
				"num_gc":      m.NumGC,
			},
		},
		Checks: checks,
		Stats:  h.collectStats(),
	}

	common.LogDebug("Health check request",
		zap.String("client_ip", c.ClientIP()),
		zap.String("status", status),
	)

	c.JSON(http.StatusOK, response)
}

// ReadinessCheck 就緒檢查處理器；任一依賴不可用時回傳 503
func (h *Handler) ReadinessCheck(c *gin.Context) {
	checks, ok := h.run(c.Request.Context())
	if !ok {
		common.LogWarn("服務尚未就緒", zap.Any("checks", checks))
		c.JSON(http.StatusServiceUnavailable, gin.H{
			"status": "not_ready",
			"checks": checks,
		})
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"status": "ready",
		"checks": checks,
	})
}

// LivenessCheck 存活檢查處理器
func (h *Handler) LivenessCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status": "alive",
	})
}
