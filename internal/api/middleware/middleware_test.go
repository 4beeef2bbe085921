package middleware

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ag21o9/bitnbuild-backend/internal/config"
	"github.com/ag21o9/bitnbuild-backend/internal/constants"
	"github.com/ag21o9/bitnbuild-backend/internal/pkg/jwt"
	"github.com/ag21o9/bitnbuild-backend/pkg/errors"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func setupAuthConfig(t *testing.T) {
	t.Helper()
	config.GlobalConfig = &config.Config{
		JWT: config.JWTConfig{
			Secret:    "test-secret-for-unit-tests",
			ExpiresIn: 24,
			RefreshIn: 168,
			Issuer:    "bitnbuild",
		},
	}
}

// setupAuthRouter 受保护端点回显认证中间件写入的上下文
func setupAuthRouter(extra ...gin.HandlerFunc) *gin.Engine {
	r := gin.New()
	handlers := append([]gin.HandlerFunc{Auth()}, extra...)
	handlers = append(handlers, func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"userId": c.MustGet("user_id").(uuid.UUID),
			"email":  c.GetString("email"),
			"role":   c.GetString("role"),
		})
	})
	r.GET("/protected", handlers...)
	return r
}

func doRequest(r *gin.Engine, path, authHeader string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, path, nil)
	if authHeader != "" {
		req.Header.Set("Authorization", authHeader)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func errorCodeOf(t *testing.T, w *httptest.ResponseRecorder) int {
	t.Helper()
	var resp errors.ErrorResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	return resp.ErrorCode
}

func TestAuthMissingToken(t *testing.T) {
	setupAuthConfig(t)
	r := setupAuthRouter()

	w := doRequest(r, "/protected", "")
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Equal(t, errors.ErrUnauthorized, errorCodeOf(t, w))
}

func TestAuthInvalidToken(t *testing.T) {
	setupAuthConfig(t)
	r := setupAuthRouter()

	w := doRequest(r, "/protected", "Bearer not-a-jwt")
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Equal(t, errors.ErrInvalidToken, errorCodeOf(t, w))
}

func TestAuthTamperedToken(t *testing.T) {
	setupAuthConfig(t)
	pair, err := jwt.GenerateTokenPair(uuid.New(), "user@example.com", constants.RoleUser)
	require.NoError(t, err)

	r := setupAuthRouter()
	w := doRequest(r, "/protected", "Bearer "+pair.AccessToken+"x")
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Equal(t, errors.ErrInvalidToken, errorCodeOf(t, w))
}

func TestAuthRejectsRefreshToken(t *testing.T) {
	setupAuthConfig(t)
	pair, err := jwt.GenerateTokenPair(uuid.New(), "user@example.com", constants.RoleUser)
	require.NoError(t, err)

	// 刷新令牌不能当访问令牌用
	r := setupAuthRouter()
	w := doRequest(r, "/protected", "Bearer "+pair.RefreshToken)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Equal(t, errors.ErrInvalidToken, errorCodeOf(t, w))
}

func TestAuthBearerToken(t *testing.T) {
	setupAuthConfig(t)
	userID := uuid.New()
	pair, err := jwt.GenerateTokenPair(userID, "user@example.com", constants.RoleUser)
	require.NoError(t, err)

	r := setupAuthRouter()
	w := doRequest(r, "/protected", "Bearer "+pair.AccessToken)
	require.Equal(t, http.StatusOK, w.Code)

	var resp struct {
		UserID uuid.UUID `json:"userId"`
		Email  string    `json:"email"`
		Role   string    `json:"role"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, userID, resp.UserID)
	assert.Equal(t, "user@example.com", resp.Email)
	assert.Equal(t, constants.RoleUser, resp.Role)
}

func TestAuthQueryParamToken(t *testing.T) {
	setupAuthConfig(t)
	userID := uuid.New()
	pair, err := jwt.GenerateTokenPair(userID, "user@example.com", constants.RoleUser)
	require.NoError(t, err)

	// SSE连接无法带自定义header，token从query传入
	r := setupAuthRouter()
	w := doRequest(r, "/protected?token="+pair.AccessToken, "")
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestRequireRoleForbidden(t *testing.T) {
	setupAuthConfig(t)
	pair, err := jwt.GenerateTokenPair(uuid.New(), "user@example.com", constants.RoleUser)
	require.NoError(t, err)

	r := setupAuthRouter(RequireRole(constants.RoleAdmin))
	w := doRequest(r, "/protected", "Bearer "+pair.AccessToken)
	assert.Equal(t, http.StatusForbidden, w.Code)
	assert.Equal(t, errors.ErrInsufficientPermission, errorCodeOf(t, w))
}

func TestRequireRoleAdmin(t *testing.T) {
	setupAuthConfig(t)
	pair, err := jwt.GenerateTokenPair(uuid.New(), "admin@example.com", constants.RoleAdmin)
	require.NoError(t, err)

	r := setupAuthRouter(RequireRole(constants.RoleAdmin))
	w := doRequest(r, "/protected", "Bearer "+pair.AccessToken)
	assert.Equal(t, http.StatusOK, w.Code)
}
