package handlers

import (
	"encoding/json"
	"net/http"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGetDashboardTodayStat(t *testing.T) {
	db, mock := setupMockDB(t)
	h := NewDashboardHandler(db)
	userID := uuid.New()

	mock.ExpectQuery(`SELECT \* FROM "users"`).
		WillReturnRows(sqlmock.NewRows([]string{"id", "email", "name", "height_cm", "weight_kg", "status"}).
			AddRow(userID, "user@example.com", "张三", 175.0, 70.0, "active"))

	// 无健康数据
	mock.ExpectQuery(`SELECT \* FROM "health_data"`).
		WillReturnRows(sqlmock.NewRows([]string{"id"}))

	// 今日统计必须按本地日历日取键，而不是对UTC纪元取整
	today, err := time.Parse(dateLayout, time.Now().Format(dateLayout))
	require.NoError(t, err)
	mock.ExpectQuery(`SELECT \* FROM "daily_stats"`).
		WithArgs(userID, today, 1).
		WillReturnRows(sqlmock.NewRows([]string{"id", "user_id", "date", "workout_minutes", "goal_progress"}).
			AddRow(uuid.New(), userID, today, 45, 75.0))

	mock.ExpectQuery(`FROM "events"`).
		WillReturnRows(sqlmock.NewRows([]string{"id"}))

	mock.ExpectQuery(`SELECT \* FROM "chatbot_interactions"`).
		WillReturnRows(sqlmock.NewRows([]string{"id"}))

	r := gin.New()
	r.GET("/dashboard", func(c *gin.Context) {
		c.Set("user_id", userID)
		h.GetDashboard(c)
	})

	w := performJSON(r, http.MethodGet, "/dashboard", nil)
	require.Equal(t, http.StatusOK, w.Code)

	var resp struct {
		Success bool `json:"success"`
		Data    struct {
			BMI struct {
				Category string `json:"category"`
			} `json:"bmi"`
			TodayStat *struct {
				WorkoutMinutes int `json:"workout_minutes"`
			} `json:"todayStat"`
		} `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.True(t, resp.Success)
	assert.Equal(t, "Normal", resp.Data.BMI.Category)
	require.NotNil(t, resp.Data.TodayStat)
	assert.Equal(t, 45, resp.Data.TodayStat.WorkoutMinutes)
	assert.NoError(t, mock.ExpectationsWereMet())
}
