package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/lib/pq"
	"gorm.io/gorm"

	"github.com/ag21o9/bitnbuild-backend/internal/constants"
	"github.com/ag21o9/bitnbuild-backend/internal/database/models"
	"github.com/ag21o9/bitnbuild-backend/internal/pkg/logger"
	"github.com/ag21o9/bitnbuild-backend/internal/services/ai"
	"github.com/ag21o9/bitnbuild-backend/pkg/errors"
)

type MealHandler struct {
	db        *gorm.DB
	aiService *ai.AIService
}

func NewMealHandler(db *gorm.DB, aiService *ai.AIService) *MealHandler {
	return &MealHandler{
		db:        db,
		aiService: aiService,
	}
}

type MealPlanRequest struct {
	Date     string         `json:"date" binding:"required"`
	Title    string         `json:"title" binding:"required,max=200"`
	MealType string         `json:"mealType" binding:"required,oneof=breakfast lunch dinner snack"`
	Items    models.JSONMap `json:"items"`
	Calories int            `json:"calories" binding:"gte=0"`
	ProteinG float64        `json:"proteinG" binding:"gte=0"`
	CarbsG   float64        `json:"carbsG" binding:"gte=0"`
	FatG     float64        `json:"fatG" binding:"gte=0"`
	Tags     []string       `json:"tags"`
}

type GenerateMealRequest struct {
	Date     string `json:"date" binding:"required"`
	MealType string `json:"mealType" binding:"required,oneof=breakfast lunch dinner snack"`
}

func (h *MealHandler) CreateMealPlan(c *gin.Context) {
	userID, _ := c.Get("user_id")

	var req MealPlanRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, errors.NewErrorResponse(
			errors.ErrInvalidParams,
			"请求参数错误",
			err.Error(),
		))
		return
	}

	date, err := time.Parse(dateLayout, req.Date)
	if err != nil {
		c.JSON(http.StatusBadRequest, errors.NewErrorResponse(
			errors.ErrInvalidParams,
			"日期格式错误，应为YYYY-MM-DD",
			nil,
		))
		return
	}

	meal := models.MealPlan{
		ID:       uuid.New(),
		UserID:   userID.(uuid.UUID),
		Date:     date,
		Title:    req.Title,
		MealType: req.MealType,
		Items:    req.Items,
		Calories: req.Calories,
		ProteinG: req.ProteinG,
		CarbsG:   req.CarbsG,
		FatG:     req.FatG,
		Tags:     pq.StringArray(req.Tags),
		Source:   constants.MealSourceManual,
	}

	if err := h.db.Create(&meal).Error; err != nil {
		c.JSON(http.StatusInternalServerError, errors.NewErrorResponse(
			errors.ErrDatabaseError,
			"创建餐单失败",
			err.Error(),
		))
		return
	}

	c.JSON(http.StatusCreated, errors.NewSuccessResponse(meal))
}

func (h *MealHandler) GetMealPlans(c *gin.Context) {
	userID, _ := c.Get("user_id")

	query := h.db.Where("user_id = ?", userID)
	if dateStr := c.Query("date"); dateStr != "" {
		date, err := time.Parse(dateLayout, dateStr)
		if err != nil {
			c.JSON(http.StatusBadRequest, errors.NewErrorResponse(
				errors.ErrInvalidParams,
				"日期格式错误，应为YYYY-MM-DD",
				nil,
			))
			return
		}
		query = query.Where("date = ?", date)
	}
	if mealType := c.Query("type"); mealType != "" {
		query = query.Where("meal_type = ?", mealType)
	}

	var meals []models.MealPlan
	if err := query.Order("date DESC, created_at DESC").Limit(100).Find(&meals).Error; err != nil {
		c.JSON(http.StatusInternalServerError, errors.NewErrorResponse(
			errors.ErrDatabaseError,
			"查询餐单失败",
			err.Error(),
		))
		return
	}

	c.JSON(http.StatusOK, errors.NewSuccessResponse(meals))
}

func (h *MealHandler) GetMealPlan(c *gin.Context) {
	userID, _ := c.Get("user_id")

	var meal models.MealPlan
	if err := h.db.Where("id = ? AND user_id = ?", c.Param("id"), userID).First(&meal).Error; err != nil {
		c.JSON(http.StatusNotFound, errors.NewErrorResponse(
			errors.ErrMealPlanNotFound,
			"餐单不存在",
			nil,
		))
		return
	}

	c.JSON(http.StatusOK, errors.NewSuccessResponse(meal))
}

func (h *MealHandler) UpdateMealPlan(c *gin.Context) {
	userID, _ := c.Get("user_id")

	var meal models.MealPlan
	if err := h.db.Where("id = ? AND user_id = ?", c.Param("id"), userID).First(&meal).Error; err != nil {
		c.JSON(http.StatusNotFound, errors.NewErrorResponse(
			errors.ErrMealPlanNotFound,
			"餐单不存在",
			nil,
		))
		return
	}

	var req MealPlanRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, errors.NewErrorResponse(
			errors.ErrInvalidParams,
			"请求参数错误",
			err.Error(),
		))
		return
	}

	date, err := time.Parse(dateLayout, req.Date)
	if err != nil {
		c.JSON(http.StatusBadRequest, errors.NewErrorResponse(
			errors.ErrInvalidParams,
			"日期格式错误，应为YYYY-MM-DD",
			nil,
		))
		return
	}

	updates := map[string]interface{}{
		"date":       date,
		"title":      req.Title,
		"meal_type":  req.MealType,
		"calories":   req.Calories,
		"protein_g":  req.ProteinG,
		"carbs_g":    req.CarbsG,
		"fat_g":      req.FatG,
		"updated_at": time.Now(),
	}
	if req.Items != nil {
		updates["items"] = req.Items
	}
	if req.Tags != nil {
		updates["tags"] = pq.StringArray(req.Tags)
	}

	if err := h.db.Model(&meal).Updates(updates).Error; err != nil {
		c.JSON(http.StatusInternalServerError, errors.NewErrorResponse(
			errors.ErrDatabaseError,
			"更新餐单失败",
			err.Error(),
		))
		return
	}

	h.db.Where("id = ?", meal.ID).First(&meal)
	c.JSON(http.StatusOK, errors.NewSuccessResponse(meal))
}

func (h *MealHandler) DeleteMealPlan(c *gin.Context) {
	userID, _ := c.Get("user_id")

	var meal models.MealPlan
	if err := h.db.Where("id = ? AND user_id = ?", c.Param("id"), userID).First(&meal).Error; err != nil {
		c.JSON(http.StatusNotFound, errors.NewErrorResponse(
			errors.ErrMealPlanNotFound,
			"餐单不存在",
			nil,
		))
		return
	}

	if err := h.db.Delete(&meal).Error; err != nil {
		c.JSON(http.StatusInternalServerError, errors.NewErrorResponse(
			errors.ErrDatabaseError,
			"删除餐单失败",
			err.Error(),
		))
		return
	}

	c.JSON(http.StatusOK, errors.NewSuccessResponseWithMessage("餐单已删除", nil))
}

// GenerateMealPlan AI生成餐单并保存
func (h *MealHandler) GenerateMealPlan(c *gin.Context) {
	userID, _ := c.Get("user_id")

	var req GenerateMealRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, errors.NewErrorResponse(
			errors.ErrInvalidParams,
			"请求参数错误",
			err.Error(),
		))
		return
	}

	date, err := time.Parse(dateLayout, req.Date)
	if err != nil {
		c.JSON(http.StatusBadRequest, errors.NewErrorResponse(
			errors.ErrInvalidParams,
			"日期格式错误，应为YYYY-MM-DD",
			nil,
		))
		return
	}

	uc, err := buildUserContext(h.db, userID.(uuid.UUID))
	if err != nil {
		c.JSON(http.StatusNotFound, errors.NewErrorResponse(
			errors.ErrUserNotFound,
			"用户不存在",
			nil,
		))
		return
	}

	data, err := h.aiService.GenerateMealPlan(c.Request.Context(), uc, req.MealType)
	if err != nil {
		// 模型失败或回复不符合字段结构，返回404兜底文案
		logger.WithRequest(c.GetString("request_id"), userID.(uuid.UUID).String()).
			Errorf("meal plan generation failed: %v", err)
		c.JSON(http.StatusNotFound, errors.NewErrorResponse(
			errors.ErrLLMBadResponse,
			constants.DefaultChatErrorReply,
			nil,
		))
		return
	}

	items := make(models.JSONMap)
	items["list"] = data.Items

	meal := models.MealPlan{
		ID:       uuid.New(),
		UserID:   userID.(uuid.UUID),
		Date:     date,
		Title:    data.Title,
		MealType: data.MealType,
		Items:    items,
		Calories: data.Calories,
		ProteinG: data.ProteinG,
		CarbsG:   data.CarbsG,
		FatG:     data.FatG,
		Tags:     pq.StringArray(uc.MealTags),
		Source:   constants.MealSourceAI,
	}

	if err := h.db.Create(&meal).Error; err != nil {
		c.JSON(http.StatusInternalServerError, errors.NewErrorResponse(
			errors.ErrDatabaseError,
			"保存生成的餐单失败",
			err.Error(),
		))
		return
	}

	c.JSON(http.StatusCreated, errors.NewSuccessResponse(meal))
}
