package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"

	"github.com/GriffinCanCode/SceneOS/backend/internal/infrastructure/tracing"
)

func setupTestRouter(handlers ...gin.HandlerFunc) *gin.Engine {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.Use(handlers...)
	router.GET("/test", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"message": "success"})
	})
	return router
}

func get(router *gin.Engine, remote string) int {
	req := httptest.NewRequest(http.MethodGet, "/test", nil)
	req.RemoteAddr = remote
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w.Code
}

func TestCORS(t *testing.T) {
	router := setupTestRouter(CORS(DefaultCORSConfig()))

	tests := []struct {
		name           string
		method         string
		origin         string
		wantStatus     int
		wantCORSHeader bool
	}{
		{
			name:           "simple GET request with origin",
			method:         http.MethodGet,
			origin:         "http://localhost:3000",
			wantStatus:     http.StatusOK,
			wantCORSHeader: true,
		},
		{
			name:           "preflight OPTIONS request",
			method:         http.MethodOptions,
			origin:         "http://localhost:3000",
			wantStatus:     http.StatusNoContent,
			wantCORSHeader: true,
		},
		{
			name:       "no origin header",
			method:     http.MethodGet,
			wantStatus: http.StatusOK,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(tt.method, "/test", nil)
			if tt.origin != "" {
				req.Header.Set("Origin", tt.origin)
			}
			if tt.method == http.MethodOptions {
				req.Header.Set("Access-Control-Request-Method", http.MethodGet)
			}

			w := httptest.NewRecorder()
			router.ServeHTTP(w, req)

			assert.Equal(t, tt.wantStatus, w.Code)
			if tt.wantCORSHeader {
				assert.NotEmpty(t, w.Header().Get("Access-Control-Allow-Origin"))
			} else {
				assert.Empty(t, w.Header().Get("Access-Control-Allow-Origin"))
			}
		})
	}
}

func TestCORSExposesTraceHeaders(t *testing.T) {
	router := setupTestRouter(CORS(DefaultCORSConfig()))

	req := httptest.NewRequest(http.MethodGet, "/test", nil)
	req.Header.Set("Origin", "http://localhost:3000")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	exposed := w.Header().Get("Access-Control-Expose-Headers")
	assert.Contains(t, exposed, tracing.HeaderTraceID)
	assert.Contains(t, exposed, tracing.HeaderSpanID)
}

func TestCORSWithCustomConfig(t *testing.T) {
	cfg := CORSConfig{
		AllowOrigins: []string{"https://app.example.com"},
		AllowMethods: []string{"GET", "POST"},
		AllowHeaders: []string{"Content-Type"},
		MaxAge:       time.Hour,
	}
	router := setupTestRouter(CORS(cfg))

	req := httptest.NewRequest(http.MethodGet, "/test", nil)
	req.Header.Set("Origin", "https://app.example.com")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "https://app.example.com", w.Header().Get("Access-Control-Allow-Origin"))

	req = httptest.NewRequest(http.MethodGet, "/test", nil)
	req.Header.Set("Origin", "https://evil.example")
	w = httptest.NewRecorder()
	router.ServeHTTP(w, req)
	assert.Equal(t, http.StatusForbidden, w.Code)
}

func TestRateLimit(t *testing.T) {
	clock := clockwork.NewFakeClock()
	router := setupTestRouter(RateLimit(RateLimitConfig{
		RequestsPerSecond: 2,
		Burst:             2,
		Clock:             clock,
	}))

	for i := 0; i < 2; i++ {
		assert.Equal(t, http.StatusOK, get(router, "192.168.1.1:1234"), "request %d", i+1)
	}
	assert.Equal(t, http.StatusTooManyRequests, get(router, "192.168.1.1:1234"))

	clock.Advance(time.Second)
	assert.Equal(t, http.StatusOK, get(router, "192.168.1.1:1234"))
}

func TestRateLimitDifferentClients(t *testing.T) {
	router := setupTestRouter(RateLimit(RateLimitConfig{
		RequestsPerSecond: 1,
		Burst:             1,
		Clock:             clockwork.NewFakeClock(),
	}))

	assert.Equal(t, http.StatusOK, get(router, "192.168.1.1:1234"))
	assert.Equal(t, http.StatusOK, get(router, "192.168.1.2:1234"))
	assert.Equal(t, http.StatusTooManyRequests, get(router, "192.168.1.1:1234"))
}

func TestRateLimitEvictsIdleClients(t *testing.T) {
	clock := clockwork.NewFakeClock()
	l := newClientLimiter(RateLimitConfig{
		RequestsPerSecond: 1,
		Burst:             1,
		IdleTTL:           time.Minute,
		Clock:             clock,
	})

	assert.True(t, l.allow("a"))
	assert.True(t, l.allow("b"))
	assert.Equal(t, 2, l.size())

	clock.Advance(30 * time.Second)
	assert.True(t, l.allow("b"))

	clock.Advance(40 * time.Second)
	assert.True(t, l.allow("c"))
	assert.Equal(t, 2, l.size(), "a idle past the TTL is swept")
}

func TestGlobalRateLimit(t *testing.T) {
	router := setupTestRouter(GlobalRateLimit(RateLimitConfig{
		RequestsPerSecond: 1,
		Burst:             2,
	}))

	assert.Equal(t, http.StatusOK, get(router, "192.168.1.1:1234"))
	assert.Equal(t, http.StatusOK, get(router, "192.168.1.2:1234"))
	assert.Equal(t, http.StatusTooManyRequests, get(router, "192.168.1.3:1234"))
}

func TestDefaults(t *testing.T) {
	cors := DefaultCORSConfig()
	assert.Contains(t, cors.AllowOrigins, "*")
	assert.Contains(t, cors.AllowMethods, "POST")
	assert.Equal(t, 12*time.Hour, cors.MaxAge)

	rl := DefaultRateLimitConfig()
	assert.Equal(t, 100, rl.RequestsPerSecond)
	assert.Equal(t, 200, rl.Burst)
}

func BenchmarkRateLimit(b *testing.B) {
	router := setupTestRouter(RateLimit(DefaultRateLimitConfig()))
	req := httptest.NewRequest(http.MethodGet, "/test", nil)
	req.RemoteAddr = "192.168.1.1:1234"

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		router.ServeHTTP(httptest.NewRecorder(), req)
	}
}
