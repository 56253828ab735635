package middleware

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func perform(r http.Handler, method, path, body string, headers map[string]string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestRateLimiterRefills(t *testing.T) {
	rl := NewRateLimiter(2, time.Second)
	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	rl.now = func() time.Time { return now }

	ok, _ := rl.Allow("a")
	assert.True(t, ok)
	ok, _ = rl.Allow("a")
	assert.True(t, ok)
	ok, wait := rl.Allow("a")
	assert.False(t, ok)
	assert.Greater(t, wait, time.Duration(0))

	// 其他來源不受影響
	ok, _ = rl.Allow("b")
	assert.True(t, ok)

	// 半秒補一個令牌，頻繁請求也會累積小數
	now = now.Add(250 * time.Millisecond)
	ok, _ = rl.Allow("a")
	assert.False(t, ok)
	now = now.Add(300 * time.Millisecond)
	ok, _ = rl.Allow("a")
	assert.True(t, ok)
}

func TestRateLimitMiddleware(t *testing.T) {
	r := gin.New()
	r.Use(RateLimit(NewRateLimiter(1, time.Minute)))
	r.GET("/ping", func(c *gin.Context) { c.String(http.StatusOK, "pong") })

	assert.Equal(t, http.StatusOK, perform(r, http.MethodGet, "/ping", "", nil).Code)

	w := perform(r, http.MethodGet, "/ping", "", map[string]string{"Accept-Language": "pl"})
	assert.Equal(t, http.StatusTooManyRequests, w.Code)
	assert.NotEmpty(t, w.Header().Get("Retry-After"))
	assert.Contains(t, w.Body.String(), "TOO_MANY_REQUESTS")
}

func TestDeduplication(t *testing.T) {
	d := NewDeduplicator(time.Minute)
	defer d.Stop()

	calls := 0
	r := gin.New()
	r.Use(Deduplication(d))
	r.POST("/generate", func(c *gin.Context) {
		calls++
		body, _ := c.GetRawData()
		c.String(http.StatusOK, string(body))
	})

	w := perform(r, http.MethodPost, "/generate", `{"ingredients":["egg"]}`, map[string]string{"Content-Type": "application/json"})
	require.Equal(t, http.StatusOK, w.Code)
	// 請求體讀取後仍可被處理程序使用
	assert.Equal(t, `{"ingredients":["egg"]}`, w.Body.String())

	w = perform(r, http.MethodPost, "/generate", `{"ingredients":["egg"]}`, map[string]string{"Content-Type": "application/json"})
	assert.Equal(t, http.StatusTooManyRequests, w.Code)

	w = perform(r, http.MethodPost, "/generate", `{"ingredients":["milk"]}`, map[string]string{"Content-Type": "application/json"})
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, 2, calls)
}

func TestDeduplicationWindowExpires(t *testing.T) {
	d := NewDeduplicator(time.Second)
	defer d.Stop()
	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	d.now = func() time.Time { return now }

	assert.False(t, d.seen("fp"))
	assert.True(t, d.seen("fp"))
	now = now.Add(2 * time.Second)
	assert.False(t, d.seen("fp"))

	now = now.Add(time.Hour)
	d.cleanup()
	assert.Empty(t, d.requests)
}

func TestBodySizeLimit(t *testing.T) {
	r := gin.New()
	r.Use(BodySizeLimit(8))
	r.POST("/echo", func(c *gin.Context) {
		if _, err := c.GetRawData(); err != nil {
			c.String(http.StatusRequestEntityTooLarge, "too large")
			return
		}
		c.String(http.StatusOK, "ok")
	})

	assert.Equal(t, http.StatusOK, perform(r, http.MethodPost, "/echo", "small", nil).Code)
	w := perform(r, http.MethodPost, "/echo", "this body is too large", nil)
	assert.Equal(t, http.StatusRequestEntityTooLarge, w.Code)
	assert.Contains(t, w.Body.String(), "PAYLOAD_TOO_LARGE")
}

func TestRecovery(t *testing.T) {
	r := gin.New()
	r.Use(Recovery())
	r.GET("/panic", func(c *gin.Context) { panic("boom") })

	w := perform(r, http.MethodGet, "/panic", "", nil)
	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.Contains(t, w.Body.String(), "INTERNAL_ERROR")
}

func TestTimeout(t *testing.T) {
	r := gin.New()
	r.Use(Timeout(20 * time.Millisecond))
	r.GET("/slow", func(c *gin.Context) {
		<-c.Request.Context().Done()
	})
	r.GET("/fast", func(c *gin.Context) { c.String(http.StatusOK, "ok") })

	w := perform(r, http.MethodGet, "/slow", "", nil)
	assert.Equal(t, http.StatusGatewayTimeout, w.Code)
	assert.Contains(t, w.Body.String(), "GATEWAY_TIMEOUT")

	assert.Equal(t, http.StatusOK, perform(r, http.MethodGet, "/fast", "", nil).Code)
}
