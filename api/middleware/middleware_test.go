package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/use-agent/shelfscan/config"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func newEngine(mw ...gin.HandlerFunc) *gin.Engine {
	r := gin.New()
	r.Use(mw...)
	r.GET("/ping", func(c *gin.Context) {
		c.String(http.StatusOK, c.GetString(IdentityKey))
	})
	return r
}

func do(r http.Handler, header, value string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, "/ping", nil)
	if header != "" {
		req.Header.Set(header, value)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestAuth(t *testing.T) {
	t.Parallel()

	r := newEngine(Auth([]string{"alpha", "beta"}))

	tests := []struct {
		name   string
		header string
		value  string
		want   int
	}{
		{"bearer", "Authorization", "Bearer alpha", http.StatusOK},
		{"api key header", "X-API-Key", "beta", http.StatusOK},
		{"missing", "", "", http.StatusUnauthorized},
		{"wrong token", "Authorization", "Bearer gamma", http.StatusUnauthorized},
		{"wrong scheme", "Authorization", "Basic alpha", http.StatusUnauthorized},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			w := do(r, tt.header, tt.value)
			assert.Equal(t, tt.want, w.Code)
			if tt.want == http.StatusUnauthorized {
				assert.Contains(t, w.Body.String(), `"UNAUTHORIZED"`)
			}
		})
	}
}

func TestAuth_NoTokensIsOpen(t *testing.T) {
	t.Parallel()

	w := do(newEngine(Auth(nil)), "", "")
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestRateLimit_PerIdentity(t *testing.T) {
	t.Parallel()

	// Given a frozen clock and a burst of two
	now := time.Date(2026, 10, 16, 12, 0, 0, 0, time.UTC)
	set := newLimiterSet(config.RateLimitConfig{RequestsPerSecond: 1, Burst: 2}, func() time.Time { return now })
	r := newEngine(Auth([]string{"alpha", "beta"}), rateLimit(set))

	// When / Then
	assert.Equal(t, http.StatusOK, do(r, "X-API-Key", "alpha").Code)
	assert.Equal(t, http.StatusOK, do(r, "X-API-Key", "alpha").Code)
	w := do(r, "X-API-Key", "alpha")
	assert.Equal(t, http.StatusTooManyRequests, w.Code)
	assert.Contains(t, w.Body.String(), `"RATE_LIMITED"`)

	// And another token has its own bucket
	assert.Equal(t, http.StatusOK, do(r, "X-API-Key", "beta").Code)
}

func TestLimiterSet_EvictIdle(t *testing.T) {
	t.Parallel()

	now := time.Date(2026, 10, 16, 12, 0, 0, 0, time.UTC)
	set := newLimiterSet(config.RateLimitConfig{RequestsPerSecond: 1, Burst: 1}, func() time.Time { return now })
	set.allow("a")

	now = now.Add(2 * time.Hour)
	set.evictIdle()

	assert.Empty(t, set.limiters)
}
