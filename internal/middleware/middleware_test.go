package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"tourhub/config"
	"tourhub/internal/auth"
	"tourhub/internal/domain"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func TestInMemoryRateLimiter(t *testing.T) {
	l := NewInMemoryRateLimiter(2, time.Minute)
	defer l.Stop()

	assert.True(t, l.Allow("a"))
	assert.True(t, l.Allow("a"))
	assert.False(t, l.Allow("a"))
	assert.True(t, l.Allow("b"))
}

func TestRateLimitMiddleware(t *testing.T) {
	l := NewInMemoryRateLimiter(1, time.Minute)
	defer l.Stop()
	r := gin.New()
	r.GET("/", RateLimit(l), func(c *gin.Context) { c.Status(http.StatusNoContent) })

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, http.StatusNoContent, w.Code)

	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, http.StatusTooManyRequests, w.Code)
	assert.Contains(t, w.Body.String(), "Too many requests")
}

func TestAuthAndRoleGuards(t *testing.T) {
	cfg := &config.JWTConfig{AccessSecret: "access", AccessExpiry: time.Minute, Issuer: "test"}
	r := gin.New()
	r.GET("/host", AuthRequired(cfg), RequireRole(domain.RoleHost), func(c *gin.Context) {
		c.String(http.StatusOK, "%d", GetUserID(c))
	})

	call := func(header string) *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodGet, "/host", nil)
		if header != "" {
			req.Header.Set("Authorization", header)
		}
		w := httptest.NewRecorder()
		r.ServeHTTP(w, req)
		return w
	}

	assert.Equal(t, http.StatusUnauthorized, call("").Code)
	assert.Equal(t, http.StatusUnauthorized, call("Token abc").Code)

	tourist, err := auth.GenerateAccessToken(cfg, 3, "t@example.com", domain.RoleTourist)
	require.NoError(t, err)
	assert.Equal(t, http.StatusForbidden, call("Bearer "+tourist).Code)

	host, err := auth.GenerateAccessToken(cfg, 9, "h@example.com", domain.RoleHost)
	require.NoError(t, err)
	w := call("Bearer " + host)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "9", w.Body.String())
}
