package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/ag21o9/bitnbuild-backend/internal/constants"
	"github.com/ag21o9/bitnbuild-backend/internal/database/models"
	"github.com/ag21o9/bitnbuild-backend/internal/services/health"
	"github.com/ag21o9/bitnbuild-backend/pkg/errors"
)

type DashboardHandler struct {
	db *gorm.DB
}

func NewDashboardHandler(db *gorm.DB) *DashboardHandler {
	return &DashboardHandler{db: db}
}

type DashboardResponse struct {
	User           *UserInfo              `json:"user"`
	BMI            map[string]interface{} `json:"bmi"`
	LatestHealth   *models.HealthData     `json:"latestHealth"`
	TodayStat      *models.DailyStat      `json:"todayStat"`
	UpcomingEvents []models.Event         `json:"upcomingEvents"`
	LastSuggestion *InteractionResponse   `json:"lastSuggestion"`
}

// GetDashboard 聚合用户首页数据
func (h *DashboardHandler) GetDashboard(c *gin.Context) {
	userID, _ := c.Get("user_id")

	var user models.User
	if err := h.db.Where("id = ? AND status = ?", userID, constants.UserStatusActive).First(&user).Error; err != nil {
		c.JSON(http.StatusNotFound, errors.NewErrorResponse(
			errors.ErrUserNotFound,
			"用户不存在",
			nil,
		))
		return
	}

	bmi := health.BMI(user.WeightKG, user.HeightCM)
	response := DashboardResponse{
		User: toUserInfo(&user),
		BMI: map[string]interface{}{
			"value":    bmi,
			"category": health.ClassifyBMI(bmi),
			"healthy":  health.IsHealthyBMI(bmi),
		},
	}

	// 最近一天健康数据
	var latest models.HealthData
	if err := h.db.Where("user_id = ?", userID).Order("date DESC").First(&latest).Error; err == nil {
		response.LatestHealth = &latest
	}

	// 今日统计，按本地日历日取键，与UpsertDailyStat的写入键一致
	today, _ := time.Parse(dateLayout, time.Now().Format(dateLayout))
	var todayStat models.DailyStat
	if err := h.db.Where("user_id = ? AND date = ?", userID, today).First(&todayStat).Error; err == nil {
		response.TodayStat = &todayStat
	}

	// 已报名且未开始的活动
	var events []models.Event
	h.db.Joins("JOIN event_registrations ON event_registrations.event_id = events.id").
		Where("event_registrations.user_id = ? AND event_registrations.status = ? AND events.starts_at > ?",
			userID, constants.RegistrationActive, time.Now()).
		Order("events.starts_at ASC").
		Limit(5).
		Find(&events)
	response.UpcomingEvents = events

	// 最近一次成功的AI交互
	var last models.ChatbotInteraction
	if err := h.db.Where("user_id = ? AND status = ?", userID, constants.ChatStatusOK).
		Order("created_at DESC").First(&last).Error; err == nil {
		resp := toInteractionResponse(&last)
		response.LastSuggestion = &resp
	}

	c.JSON(http.StatusOK, errors.NewSuccessResponse(response))
}
