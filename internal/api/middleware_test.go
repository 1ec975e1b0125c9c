package api

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/coltonheil/email-automation/internal/util"
	"github.com/coltonheil/email-automation/pkg/rbac"
)

const testSecret = "test-secret"

func newTestRouter(permission string) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	group := r.Group("/")
	group.Use(AuthMiddleware(testSecret))
	group.GET("/protected", RequirePermission(permission), func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"actor": actor(c)})
	})
	return r
}

func doRequest(t *testing.T, r *gin.Engine, token string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, "/protected", nil)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestAuthMiddlewareMissingToken(t *testing.T) {
	r := newTestRouter(rbac.PermissionReadDraft)
	w := doRequest(t, r, "")
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestAuthMiddlewareInvalidToken(t *testing.T) {
	r := newTestRouter(rbac.PermissionReadDraft)
	w := doRequest(t, r, "not-a-jwt")
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestAuthMiddlewareWrongSecret(t *testing.T) {
	token, err := util.GenerateJWT(7, rbac.RoleUser, "other-secret")
	require.NoError(t, err)

	r := newTestRouter(rbac.PermissionReadDraft)
	w := doRequest(t, r, token)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestRequirePermissionAllowed(t *testing.T) {
	token, err := util.GenerateJWT(7, rbac.RoleUser, testSecret)
	require.NoError(t, err)

	r := newTestRouter(rbac.PermissionApproveDraft)
	w := doRequest(t, r, token)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "user:7")
}

func TestRequirePermissionDenied(t *testing.T) {
	token, err := util.GenerateJWT(7, rbac.RoleUser, testSecret)
	require.NoError(t, err)

	// 普通用户不能重放 outbox
	r := newTestRouter(rbac.PermissionReplayOutbox)
	w := doRequest(t, r, token)
	assert.Equal(t, http.StatusForbidden, w.Code)
}

func TestRequirePermissionAdmin(t *testing.T) {
	token, err := util.GenerateJWT(1, rbac.RoleAdmin, testSecret)
	require.NoError(t, err)

	r := newTestRouter(rbac.PermissionReplayOutbox)
	w := doRequest(t, r, token)
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestRequirePermissionUnknownRole(t *testing.T) {
	token, err := util.GenerateJWT(2, "intern", testSecret)
	require.NoError(t, err)

	r := newTestRouter(rbac.PermissionReadDraft)
	w := doRequest(t, r, token)
	assert.Equal(t, http.StatusForbidden, w.Code)
}
