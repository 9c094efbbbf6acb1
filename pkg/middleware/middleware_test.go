package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"faqdesk/backend/pkg/errors"
	"faqdesk/backend/pkg/jwt"
	"faqdesk/backend/pkg/logger"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func newTestEngine(middleware ...gin.HandlerFunc) *gin.Engine {
	r := gin.New()
	r.Use(errors.ErrorHandler())
	r.Use(middleware...)
	r.GET("/ping", func(c *gin.Context) {
		c.String(http.StatusOK, "pong")
	})
	return r
}

func serve(r http.Handler, req *http.Request) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestRateLimiterRejectsBurst(t *testing.T) {
	limiter := NewRateLimiter(logger.Discard(), RateLimiterOptions{Limit: 1, Burst: 2})
	r := newTestEngine(limiter.Middleware())

	for i := 0; i < 2; i++ {
		w := serve(r, httptest.NewRequest(http.MethodGet, "/ping", nil))
		require.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, "2", w.Header().Get("X-RateLimit-Limit"))
	}

	w := serve(r, httptest.NewRequest(http.MethodGet, "/ping", nil))
	assert.Equal(t, http.StatusTooManyRequests, w.Code)
	assert.Equal(t, "1", w.Header().Get("Retry-After"))
	assert.Contains(t, w.Body.String(), errors.CodeRateLimited)
}

func TestRateLimiterEvictsIdleClients(t *testing.T) {
	limiter := NewRateLimiter(logger.Discard(), RateLimiterOptions{Limit: 1, Burst: 1, ExpiryDuration: time.Minute})
	clock := time.Now()
	limiter.now = func() time.Time { return clock }

	limiter.getLimiter("ip:1")
	limiter.getLimiter("ip:2")
	clock = clock.Add(30 * time.Second)
	limiter.getLimiter("ip:2")
	clock = clock.Add(45 * time.Second)

	assert.Equal(t, 1, limiter.evict())
	assert.Len(t, limiter.clients, 1)
}

func TestJWTAuthMiddleware(t *testing.T) {
	svc := jwt.NewService("middleware-secret", time.Hour)
	token, err := svc.GenerateToken(jwt.Subject{UserID: 7, DisplayName: "hanako", Role: jwt.RoleUser})
	require.NoError(t, err)

	r := gin.New()
	r.Use(errors.ErrorHandler())
	r.Use(JWTAuthMiddleware(svc, logger.Discard()))
	r.GET("/me", func(c *gin.Context) {
		claims, ok := ClaimsFromContext(c)
		require.True(t, ok)
		c.JSON(http.StatusOK, gin.H{"user_id": claims.UserID, "ctx": c.GetUint(UserIDContextKey)})
	})

	w := serve(r, httptest.NewRequest(http.MethodGet, "/me", nil))
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	req := httptest.NewRequest(http.MethodGet, "/me", nil)
	req.Header.Set("Authorization", "Bearer not-a-token")
	w = serve(r, req)
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	req = httptest.NewRequest(http.MethodGet, "/me", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	w = serve(r, req)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"user_id":7,"ctx":7}`, w.Body.String())

	w = serve(r, httptest.NewRequest(http.MethodGet, "/me?token="+token, nil))
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestRequireRoleAndPermission(t *testing.T) {
	svc := jwt.NewService("middleware-secret", time.Hour)
	userToken, err := svc.GenerateToken(jwt.Subject{UserID: 1, Role: jwt.RoleUser})
	require.NoError(t, err)
	staffToken, err := svc.GenerateToken(jwt.Subject{UserID: 2, Role: jwt.RoleStaff})
	require.NoError(t, err)
	adminToken, err := svc.GenerateToken(jwt.Subject{UserID: 3, Role: jwt.RoleAdmin})
	require.NoError(t, err)

	r := gin.New()
	r.Use(errors.ErrorHandler())
	authed := r.Group("/", JWTAuthMiddleware(svc, logger.Discard()))
	authed.GET("/staff", RequireRole(jwt.RoleStaff), func(c *gin.Context) { c.Status(http.StatusNoContent) })
	authed.GET("/users", RequirePermission(jwt.PermissionUserManage), func(c *gin.Context) { c.Status(http.StatusNoContent) })

	tests := []struct {
		path  string
		token string
		want  int
	}{
		{"/staff", userToken, http.StatusForbidden},
		{"/staff", staffToken, http.StatusNoContent},
		{"/staff", adminToken, http.StatusNoContent},
		{"/users", staffToken, http.StatusForbidden},
		{"/users", adminToken, http.StatusNoContent},
	}
	for _, tt := range tests {
		req := httptest.NewRequest(http.MethodGet, tt.path, nil)
		req.Header.Set("Authorization", "Bearer "+tt.token)
		w := serve(r, req)
		assert.Equal(t, tt.want, w.Code, tt.path)
	}
}

func TestCORSPreflight(t *testing.T) {
	r := newTestEngine(CORS([]string{"https://desk.example.com"}))

	req := httptest.NewRequest(http.MethodOptions, "/ping", nil)
	req.Header.Set("Origin", "https://desk.example.com")
	req.Header.Set("Access-Control-Request-Method", http.MethodGet)
	w := serve(r, req)
	assert.Equal(t, "https://desk.example.com", w.Header().Get("Access-Control-Allow-Origin"))
	assert.NotEqual(t, "pong", w.Body.String())

	req = httptest.NewRequest(http.MethodGet, "/ping", nil)
	req.Header.Set("Origin", "https://desk.example.com")
	w = serve(r, req)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "pong", w.Body.String())
	assert.Equal(t, "https://desk.example.com", w.Header().Get("Access-Control-Allow-Origin"))
}

func TestTracingMiddlewarePassesThrough(t *testing.T) {
	r := newTestEngine(TracingMiddleware())
	w := serve(r, httptest.NewRequest(http.MethodGet, "/ping", nil))
	assert.Equal(t, http.StatusOK, w.Code)
}
