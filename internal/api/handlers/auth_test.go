package handlers

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/ag21o9/bitnbuild-backend/pkg/errors"
)

func performJSON(r *gin.Engine, method, path string, body interface{}) *httptest.ResponseRecorder {
	var buf bytes.Buffer
	if body != nil {
		json.NewEncoder(&buf).Encode(body)
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func decodeError(t *testing.T, w *httptest.ResponseRecorder) errors.ErrorResponse {
	t.Helper()
	var resp errors.ErrorResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	return resp
}

func validRegisterBody() map[string]interface{} {
	return map[string]interface{}{
		"email":    "user@example.com",
		"password": "secret123",
		"name":     "张三",
		"age":      28,
		"gender":   "male",
		"heightCm": 175.0,
		"weightKg": 70.0,
		"goal":     "lose_weight",
	}
}

func TestRegisterValidation(t *testing.T) {
	db, _ := setupMockDB(t)
	h := NewAuthHandler(db)

	r := gin.New()
	r.POST("/register", h.Register)

	cases := map[string]func(m map[string]interface{}){
		"missing email":     func(m map[string]interface{}) { delete(m, "email") },
		"bad email":         func(m map[string]interface{}) { m["email"] = "not-an-email" },
		"short password":    func(m map[string]interface{}) { m["password"] = "abc" },
		"underage":          func(m map[string]interface{}) { m["age"] = 12 },
		"age too high":      func(m map[string]interface{}) { m["age"] = 150 },
		"height too low":    func(m map[string]interface{}) { m["heightCm"] = 30.0 },
		"height too high":   func(m map[string]interface{}) { m["heightCm"] = 350.0 },
		"weight too low":    func(m map[string]interface{}) { m["weightKg"] = 10.0 },
		"weight too high":   func(m map[string]interface{}) { m["weightKg"] = 600.0 },
		"bad gender":        func(m map[string]interface{}) { m["gender"] = "unknown" },
		"bad goal":          func(m map[string]interface{}) { m["goal"] = "get_swole" },
	}

	for name, mutate := range cases {
		t.Run(name, func(t *testing.T) {
			body := validRegisterBody()
			mutate(body)

			w := performJSON(r, http.MethodPost, "/register", body)
			assert.Equal(t, http.StatusBadRequest, w.Code)

			resp := decodeError(t, w)
			assert.Equal(t, errors.ErrInvalidParams, resp.ErrorCode)
			// 提示信息里带合法范围
			assert.Contains(t, resp.Message, "年龄13-120")
		})
	}
}

func TestRegisterDuplicateEmail(t *testing.T) {
	db, mock := setupMockDB(t)
	h := NewAuthHandler(db)

	mock.ExpectQuery(`SELECT count\(\*\) FROM "users"`).
		WithArgs("user@example.com").
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(1))

	r := gin.New()
	r.POST("/register", h.Register)

	w := performJSON(r, http.MethodPost, "/register", validRegisterBody())
	assert.Equal(t, http.StatusConflict, w.Code)
	assert.Equal(t, errors.ErrEmailExists, decodeError(t, w).ErrorCode)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestLoginSuccess(t *testing.T) {
	setupTestJWTConfig(t)
	db, mock := setupMockDB(t)
	h := NewAuthHandler(db)

	hash, err := bcrypt.GenerateFromPassword([]byte("secret123"), bcrypt.MinCost)
	require.NoError(t, err)

	userID := uuid.New()
	mock.ExpectQuery(`SELECT \* FROM "users"`).
		WillReturnRows(sqlmock.NewRows([]string{"id", "email", "password_hash", "name", "age", "gender", "height_cm", "weight_kg", "goal", "role", "status"}).
			AddRow(userID, "user@example.com", string(hash), "张三", 28, "male", 175.0, 70.0, "lose_weight", "user", "active"))

	// 更新最后登录时间
	mock.ExpectBegin()
	mock.ExpectExec(`UPDATE "users" SET`).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	r := gin.New()
	r.POST("/login", h.Login)

	w := performJSON(r, http.MethodPost, "/login", map[string]interface{}{
		"email":    "user@example.com",
		"password": "secret123",
	})
	require.Equal(t, http.StatusOK, w.Code)

	var resp struct {
		Success bool `json:"success"`
		Data    struct {
			AccessToken  string   `json:"accessToken"`
			RefreshToken string   `json:"refreshToken"`
			User         UserInfo `json:"user"`
		} `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.True(t, resp.Success)
	assert.NotEmpty(t, resp.Data.AccessToken)
	assert.NotEmpty(t, resp.Data.RefreshToken)
	assert.Equal(t, userID, resp.Data.User.ID)
	assert.Equal(t, "user@example.com", resp.Data.User.Email)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestLoginWrongPassword(t *testing.T) {
	setupTestJWTConfig(t)
	db, mock := setupMockDB(t)
	h := NewAuthHandler(db)

	hash, err := bcrypt.GenerateFromPassword([]byte("secret123"), bcrypt.MinCost)
	require.NoError(t, err)

	mock.ExpectQuery(`SELECT \* FROM "users"`).
		WillReturnRows(sqlmock.NewRows([]string{"id", "email", "password_hash", "status"}).
			AddRow(uuid.New(), "user@example.com", string(hash), "active"))

	r := gin.New()
	r.POST("/login", h.Login)

	w := performJSON(r, http.MethodPost, "/login", map[string]interface{}{
		"email":    "user@example.com",
		"password": "wrong-password",
	})
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Equal(t, errors.ErrInvalidCredentials, decodeError(t, w).ErrorCode)
}

func TestLoginUnknownUser(t *testing.T) {
	db, mock := setupMockDB(t)
	h := NewAuthHandler(db)

	mock.ExpectQuery(`SELECT \* FROM "users"`).
		WillReturnRows(sqlmock.NewRows([]string{"id"}))

	r := gin.New()
	r.POST("/login", h.Login)

	w := performJSON(r, http.MethodPost, "/login", map[string]interface{}{
		"email":    "nobody@example.com",
		"password": "secret123",
	})
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Equal(t, errors.ErrInvalidCredentials, decodeError(t, w).ErrorCode)
}
