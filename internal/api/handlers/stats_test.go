package handlers

import (
	"database/sql"
	"encoding/json"
	"net/http"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ag21o9/bitnbuild-backend/pkg/errors"
)

func setupStatsRouter(h *StatsHandler, userID uuid.UUID) *gin.Engine {
	r := gin.New()
	withUser := func(fn gin.HandlerFunc) gin.HandlerFunc {
		return func(c *gin.Context) {
			c.Set("user_id", userID)
			fn(c)
		}
	}
	r.POST("/stats/activities", withUser(h.CreateActivity))
	r.POST("/stats/health", withUser(h.UpsertHealthData))
	r.POST("/stats/daily", withUser(h.UpsertDailyStat))
	r.GET("/stats/bmi", withUser(h.GetBMI))
	return r
}

func TestCreateActivityUnknownActivity(t *testing.T) {
	db, mock := setupMockDB(t)
	h := NewStatsHandler(db)
	userID := uuid.New()

	// 估算前先取用户体重
	mock.ExpectQuery(`SELECT \* FROM "users"`).
		WillReturnRows(sqlmock.NewRows([]string{"id", "weight_kg"}).AddRow(userID, 70.0))

	r := setupStatsRouter(h, userID)
	w := performJSON(r, http.MethodPost, "/stats/activities", map[string]interface{}{
		"name":    "underwater-basket-weaving",
		"minutes": 30,
	})

	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, errors.ErrNoLocalEstimate, decodeError(t, w).ErrorCode)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCreateActivityValidation(t *testing.T) {
	db, _ := setupMockDB(t)
	h := NewStatsHandler(db)

	r := setupStatsRouter(h, uuid.New())

	cases := map[string]map[string]interface{}{
		"missing name":     {"minutes": 30},
		"zero minutes":     {"name": "running", "minutes": 0},
		"too many minutes": {"name": "running", "minutes": 2000},
	}

	for name, body := range cases {
		t.Run(name, func(t *testing.T) {
			w := performJSON(r, http.MethodPost, "/stats/activities", body)
			assert.Equal(t, http.StatusBadRequest, w.Code)
			assert.Equal(t, errors.ErrInvalidParams, decodeError(t, w).ErrorCode)
		})
	}
}

func TestUpsertHealthDataLookupError(t *testing.T) {
	db, mock := setupMockDB(t)
	h := NewStatsHandler(db)

	// 查询失败不能走创建分支，应直接报数据库错误
	mock.ExpectQuery(`SELECT \* FROM "health_data"`).
		WillReturnError(sql.ErrConnDone)

	r := setupStatsRouter(h, uuid.New())
	w := performJSON(r, http.MethodPost, "/stats/health", map[string]interface{}{
		"date":  "2026-08-30",
		"steps": 8000,
	})

	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.Equal(t, errors.ErrDatabaseError, decodeError(t, w).ErrorCode)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUpsertDailyStatLookupError(t *testing.T) {
	db, mock := setupMockDB(t)
	h := NewStatsHandler(db)

	mock.ExpectQuery(`SELECT \* FROM "daily_stats"`).
		WillReturnError(sql.ErrConnDone)

	r := setupStatsRouter(h, uuid.New())
	w := performJSON(r, http.MethodPost, "/stats/daily", map[string]interface{}{
		"date":           "2026-08-30",
		"workoutMinutes": 45,
	})

	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.Equal(t, errors.ErrDatabaseError, decodeError(t, w).ErrorCode)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGetBMI(t *testing.T) {
	db, mock := setupMockDB(t)
	h := NewStatsHandler(db)
	userID := uuid.New()

	mock.ExpectQuery(`SELECT \* FROM "users"`).
		WillReturnRows(sqlmock.NewRows([]string{"id", "height_cm", "weight_kg"}).
			AddRow(userID, 175.0, 70.0))

	r := setupStatsRouter(h, userID)
	w := performJSON(r, http.MethodGet, "/stats/bmi", nil)
	require.Equal(t, http.StatusOK, w.Code)

	var resp struct {
		Success bool `json:"success"`
		Data    struct {
			BMI      float64 `json:"bmi"`
			Category string  `json:"category"`
			Healthy  bool    `json:"healthy"`
		} `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.True(t, resp.Success)
	assert.InDelta(t, 22.86, resp.Data.BMI, 0.01)
	assert.Equal(t, "Normal", resp.Data.Category)
	assert.True(t, resp.Data.Healthy)
	assert.NoError(t, mock.ExpectationsWereMet())
}
