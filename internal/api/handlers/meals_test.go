package handlers

import (
	"net/http"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"

	"github.com/ag21o9/bitnbuild-backend/pkg/errors"
)

func setupMealRouter(h *MealHandler, userID uuid.UUID) *gin.Engine {
	r := gin.New()
	withUser := func(fn gin.HandlerFunc) gin.HandlerFunc {
		return func(c *gin.Context) {
			c.Set("user_id", userID)
			fn(c)
		}
	}
	r.POST("/meals", withUser(h.CreateMealPlan))
	r.GET("/meals/:id", withUser(h.GetMealPlan))
	return r
}

func TestCreateMealPlanValidation(t *testing.T) {
	db, _ := setupMockDB(t)
	h := NewMealHandler(db, nil)

	r := setupMealRouter(h, uuid.New())

	cases := map[string]map[string]interface{}{
		"missing date":  {"title": "高蛋白早餐", "mealType": "breakfast"},
		"bad meal type": {"date": "2026-08-30", "title": "高蛋白早餐", "mealType": "brunch"},
		"missing title": {"date": "2026-08-30", "mealType": "breakfast"},
		"bad date":      {"date": "30/08/2026", "title": "高蛋白早餐", "mealType": "breakfast"},
	}

	for name, body := range cases {
		t.Run(name, func(t *testing.T) {
			w := performJSON(r, http.MethodPost, "/meals", body)
			assert.Equal(t, http.StatusBadRequest, w.Code)
			assert.Equal(t, errors.ErrInvalidParams, decodeError(t, w).ErrorCode)
		})
	}
}

func TestGetMealPlanNotFound(t *testing.T) {
	db, mock := setupMockDB(t)
	h := NewMealHandler(db, nil)

	mock.ExpectQuery(`SELECT \* FROM "meal_plans"`).
		WillReturnRows(sqlmock.NewRows([]string{"id"}))

	r := setupMealRouter(h, uuid.New())
	w := performJSON(r, http.MethodGet, "/meals/"+uuid.NewString(), nil)

	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, errors.ErrMealPlanNotFound, decodeError(t, w).ErrorCode)
}
