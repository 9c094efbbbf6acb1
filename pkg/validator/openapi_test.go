package validator

import (
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"faqdesk/backend/api"
	"faqdesk/backend/pkg/errors"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newEngine(t *testing.T, v *OpenAPIValidator) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(errors.ErrorHandler(), v.Middleware())
	ok := func(c *gin.Context) { c.Status(http.StatusNoContent) }
	r.POST("/api/v1/chat/messages", ok)
	r.POST("/api/v1/escalations/:id/respond", ok)
	r.GET("/api/v1/undocumented", ok)
	return r
}

func post(r http.Handler, path, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestMiddlewareValidatesDocumentedRoutes(t *testing.T) {
	v, err := NewOpenAPIValidatorFromData(api.Schema)
	require.NoError(t, err)
	r := newEngine(t, v)

	w := post(r, "/api/v1/chat/messages", `{"message":"駐車場はどこですか"}`)
	assert.Equal(t, http.StatusNoContent, w.Code)

	w = post(r, "/api/v1/chat/messages", `{}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), errors.CodeValidation)

	w = post(r, "/api/v1/escalations/0/respond", `{"response":"ok"}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = post(r, "/api/v1/escalations/3/respond", `{"response":"ok","staff_name":"Taro"}`)
	assert.Equal(t, http.StatusNoContent, w.Code)
}

func TestMiddlewareSkipsUndocumentedRoutes(t *testing.T) {
	v, err := NewOpenAPIValidatorFromData(api.Schema)
	require.NoError(t, err)
	r := newEngine(t, v)

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/v1/undocumented", nil))
	assert.Equal(t, http.StatusNoContent, w.Code)
}

func TestValidatorFromFileAndReload(t *testing.T) {
	path := filepath.Join(t.TempDir(), "openapi.yaml")
	require.NoError(t, os.WriteFile(path, api.Schema, 0o600))

	v, err := NewOpenAPIValidator(path)
	require.NoError(t, err)
	require.NoError(t, v.ReloadSchema())

	require.NoError(t, os.WriteFile(path, []byte("not: [valid"), 0o600))
	assert.Error(t, v.ReloadSchema())

	_, err = NewOpenAPIValidator(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}
