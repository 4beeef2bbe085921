package handlers

import (
	stderrors "errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/ag21o9/bitnbuild-backend/internal/database/models"
	"github.com/ag21o9/bitnbuild-backend/internal/services/health"
	"github.com/ag21o9/bitnbuild-backend/pkg/errors"
)

type StatsHandler struct {
	db *gorm.DB
}

func NewStatsHandler(db *gorm.DB) *StatsHandler {
	return &StatsHandler{db: db}
}

const dateLayout = "2006-01-02"

type HealthDataRequest struct {
	Date             string  `json:"date" binding:"required"`
	Steps            int     `json:"steps" binding:"gte=0"`
	DistanceKM       float64 `json:"distanceKm" binding:"gte=0"`
	CaloriesBurned   int     `json:"caloriesBurned" binding:"gte=0"`
	SleepHours       float64 `json:"sleepHours" binding:"gte=0,lte=24"`
	WaterML          int     `json:"waterMl" binding:"gte=0"`
	RestingHeartRate int     `json:"restingHeartRate" binding:"gte=0,lte=300"`
	WeightKG         float64 `json:"weightKg" binding:"omitempty,gte=20,lte=500"`
}

type DailyStatRequest struct {
	Date           string `json:"date" binding:"required"`
	WorkoutMinutes int    `json:"workoutMinutes" binding:"gte=0"`
	CaloriesIn     int    `json:"caloriesIn" binding:"gte=0"`
	CaloriesOut    int    `json:"caloriesOut" binding:"gte=0"`
	DailyTarget    int    `json:"dailyTarget" binding:"omitempty,gte=0"`
}

type ActivityRequest struct {
	Name        string `json:"name" binding:"required,max=50"`
	Minutes     int    `json:"minutes" binding:"required,gte=1,lte=1440"`
	Calories    int    `json:"calories" binding:"omitempty,gte=0"`
	Note        string `json:"note"`
	PerformedAt string `json:"performedAt"` // RFC3339，缺省为当前时间
}

type WearableDataRequest struct {
	DeviceType string         `json:"deviceType" binding:"required,max=50"`
	Payload    models.JSONMap `json:"payload" binding:"required"`
	SyncedAt   string         `json:"syncedAt"` // RFC3339，缺省为当前时间
}

type HealthRecordRequest struct {
	RecordType  string `json:"recordType" binding:"required,oneof=injury allergy condition checkup"`
	Description string `json:"description" binding:"required"`
	RecordedAt  string `json:"recordedAt"` // RFC3339，缺省为当前时间
}

// UpsertHealthData 写入某日健康数据，同一天重复提交覆盖更新
func (h *StatsHandler) UpsertHealthData(c *gin.Context) {
	userID, _ := c.Get("user_id")

	var req HealthDataRequest
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

	var data models.HealthData
	err = h.db.Where("user_id = ? AND date = ?", userID, date).First(&data).Error
	if err != nil && !stderrors.Is(err, gorm.ErrRecordNotFound) {
		c.JSON(http.StatusInternalServerError, errors.NewErrorResponse(
			errors.ErrDatabaseError,
			"查询健康数据失败",
			err.Error(),
		))
		return
	}
	if err != nil {
		// 不存在则创建
		data = models.HealthData{
			ID:               uuid.New(),
			UserID:           userID.(uuid.UUID),
			Date:             date,
			Steps:            req.Steps,
			DistanceKM:       req.DistanceKM,
			CaloriesBurned:   req.CaloriesBurned,
			SleepHours:       req.SleepHours,
			WaterML:          req.WaterML,
			RestingHeartRate: req.RestingHeartRate,
			WeightKG:         req.WeightKG,
		}
		if err := h.db.Create(&data).Error; err != nil {
			c.JSON(http.StatusInternalServerError, errors.NewErrorResponse(
				errors.ErrDatabaseError,
				"保存健康数据失败",
				err.Error(),
			))
			return
		}
		c.JSON(http.StatusCreated, errors.NewSuccessResponse(data))
		return
	}

	// 已存在则覆盖更新
	updates := map[string]interface{}{
		"steps":              req.Steps,
		"distance_km":        req.DistanceKM,
		"calories_burned":    req.CaloriesBurned,
		"sleep_hours":        req.SleepHours,
		"water_ml":           req.WaterML,
		"resting_heart_rate": req.RestingHeartRate,
		"updated_at":         time.Now(),
	}
	if req.WeightKG > 0 {
		updates["weight_kg"] = req.WeightKG
	}
	if err := h.db.Model(&data).Updates(updates).Error; err != nil {
		c.JSON(http.StatusInternalServerError, errors.NewErrorResponse(
			errors.ErrDatabaseError,
			"更新健康数据失败",
			err.Error(),
		))
		return
	}

	h.db.Where("id = ?", data.ID).First(&data)
	c.JSON(http.StatusOK, errors.NewSuccessResponse(data))
}

// GetHealthData 按日期区间查询健康数据
func (h *StatsHandler) GetHealthData(c *gin.Context) {
	userID, _ := c.Get("user_id")

	query := h.db.Where("user_id = ?", userID)
	if from := c.Query("from"); from != "" {
		date, err := time.Parse(dateLayout, from)
		if err != nil {
			c.JSON(http.StatusBadRequest, errors.NewErrorResponse(
				errors.ErrInvalidParams,
				"from日期格式错误",
				nil,
			))
			return
		}
		query = query.Where("date >= ?", date)
	}
	if to := c.Query("to"); to != "" {
		date, err := time.Parse(dateLayout, to)
		if err != nil {
			c.JSON(http.StatusBadRequest, errors.NewErrorResponse(
				errors.ErrInvalidParams,
				"to日期格式错误",
				nil,
			))
			return
		}
		query = query.Where("date <= ?", date)
	}

	var data []models.HealthData
	if err := query.Order("date DESC").Limit(90).Find(&data).Error; err != nil {
		c.JSON(http.StatusInternalServerError, errors.NewErrorResponse(
			errors.ErrDatabaseError,
			"查询健康数据失败",
			err.Error(),
		))
		return
	}

	c.JSON(http.StatusOK, errors.NewSuccessResponse(data))
}

// UpsertDailyStat 写入某日统计汇总
func (h *StatsHandler) UpsertDailyStat(c *gin.Context) {
	userID, _ := c.Get("user_id")

	var req DailyStatRequest
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

	progress := health.GoalProgress(req.CaloriesOut, req.DailyTarget)

	var stat models.DailyStat
	err = h.db.Where("user_id = ? AND date = ?", userID, date).First(&stat).Error
	if err != nil && !stderrors.Is(err, gorm.ErrRecordNotFound) {
		c.JSON(http.StatusInternalServerError, errors.NewErrorResponse(
			errors.ErrDatabaseError,
			"查询每日统计失败",
			err.Error(),
		))
		return
	}
	if err != nil {
		stat = models.DailyStat{
			ID:             uuid.New(),
			UserID:         userID.(uuid.UUID),
			Date:           date,
			WorkoutMinutes: req.WorkoutMinutes,
			CaloriesIn:     req.CaloriesIn,
			CaloriesOut:    req.CaloriesOut,
			GoalProgress:   progress,
		}
		if err := h.db.Create(&stat).Error; err != nil {
			c.JSON(http.StatusInternalServerError, errors.NewErrorResponse(
				errors.ErrDatabaseError,
				"保存每日统计失败",
				err.Error(),
			))
			return
		}
		c.JSON(http.StatusCreated, errors.NewSuccessResponse(stat))
		return
	}

	if err := h.db.Model(&stat).Updates(map[string]interface{}{
		"workout_minutes": req.WorkoutMinutes,
		"calories_in":     req.CaloriesIn,
		"calories_out":    req.CaloriesOut,
		"goal_progress":   progress,
		"updated_at":      time.Now(),
	}).Error; err != nil {
		c.JSON(http.StatusInternalServerError, errors.NewErrorResponse(
			errors.ErrDatabaseError,
			"更新每日统计失败",
			err.Error(),
		))
		return
	}

	h.db.Where("id = ?", stat.ID).First(&stat)
	c.JSON(http.StatusOK, errors.NewSuccessResponse(stat))
}

// GetDailyStats 按日期区间查询每日统计
func (h *StatsHandler) GetDailyStats(c *gin.Context) {
	userID, _ := c.Get("user_id")

	query := h.db.Where("user_id = ?", userID)
	if from := c.Query("from"); from != "" {
		if date, err := time.Parse(dateLayout, from); err == nil {
			query = query.Where("date >= ?", date)
		}
	}
	if to := c.Query("to"); to != "" {
		if date, err := time.Parse(dateLayout, to); err == nil {
			query = query.Where("date <= ?", date)
		}
	}

	var stats []models.DailyStat
	if err := query.Order("date DESC").Limit(90).Find(&stats).Error; err != nil {
		c.JSON(http.StatusInternalServerError, errors.NewErrorResponse(
			errors.ErrDatabaseError,
			"查询每日统计失败",
			err.Error(),
		))
		return
	}

	c.JSON(http.StatusOK, errors.NewSuccessResponse(stats))
}

// CreateActivity 记录一次运动；未传calories时按MET常量本地估算
func (h *StatsHandler) CreateActivity(c *gin.Context) {
	userID, _ := c.Get("user_id")

	var req ActivityRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, errors.NewErrorResponse(
			errors.ErrInvalidParams,
			"请求参数错误",
			err.Error(),
		))
		return
	}

	calories := req.Calories
	if calories == 0 {
		// 取用户当前体重做估算
		var user models.User
		if err := h.db.Where("id = ?", userID).First(&user).Error; err != nil {
			c.JSON(http.StatusNotFound, errors.NewErrorResponse(
				errors.ErrUserNotFound,
				"用户不存在",
				nil,
			))
			return
		}

		estimated, ok := health.EstimateCalories(req.Name, req.Minutes, user.WeightKG)
		if !ok {
			c.JSON(http.StatusNotFound, errors.NewErrorResponse(
				errors.ErrNoLocalEstimate,
				"未收录该运动，无法本地估算消耗，请自行填写calories",
				nil,
			))
			return
		}
		calories = estimated
	}

	performedAt := time.Now()
	if req.PerformedAt != "" {
		t, err := time.Parse(time.RFC3339, req.PerformedAt)
		if err != nil {
			c.JSON(http.StatusBadRequest, errors.NewErrorResponse(
				errors.ErrInvalidParams,
				"performedAt格式错误，应为RFC3339",
				nil,
			))
			return
		}
		performedAt = t
	}

	activity := models.Activity{
		ID:          uuid.New(),
		UserID:      userID.(uuid.UUID),
		Name:        req.Name,
		Minutes:     req.Minutes,
		Calories:    calories,
		Note:        req.Note,
		PerformedAt: performedAt,
	}

	if err := h.db.Create(&activity).Error; err != nil {
		c.JSON(http.StatusInternalServerError, errors.NewErrorResponse(
			errors.ErrDatabaseError,
			"保存运动记录失败",
			err.Error(),
		))
		return
	}

	c.JSON(http.StatusCreated, errors.NewSuccessResponse(activity))
}

// GetActivities 分页查询运动记录
func (h *StatsHandler) GetActivities(c *gin.Context) {
	userID, _ := c.Get("user_id")

	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	pageSize, _ := strconv.Atoi(c.DefaultQuery("pageSize", "20"))

	if page < 1 {
		page = 1
	}
	if pageSize < 1 || pageSize > 100 {
		pageSize = 20
	}

	var activities []models.Activity
	var total int64

	h.db.Model(&models.Activity{}).Where("user_id = ?", userID).Count(&total)

	offset := (page - 1) * pageSize
	if err := h.db.Where("user_id = ?", userID).
		Order("performed_at DESC").
		Offset(offset).Limit(pageSize).
		Find(&activities).Error; err != nil {
		c.JSON(http.StatusInternalServerError, errors.NewErrorResponse(
			errors.ErrDatabaseError,
			"查询运动记录失败",
			err.Error(),
		))
		return
	}

	result := map[string]interface{}{
		"data": activities,
		"pagination": map[string]interface{}{
			"page":      page,
			"pageSize":  pageSize,
			"total":     total,
			"totalPage": (total + int64(pageSize) - 1) / int64(pageSize),
		},
	}

	c.JSON(http.StatusOK, errors.NewSuccessResponse(result))
}

// CreateWearableData 存储设备同步原始数据
func (h *StatsHandler) CreateWearableData(c *gin.Context) {
	userID, _ := c.Get("user_id")

	var req WearableDataRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, errors.NewErrorResponse(
			errors.ErrInvalidParams,
			"请求参数错误",
			err.Error(),
		))
		return
	}

	syncedAt := time.Now()
	if req.SyncedAt != "" {
		t, err := time.Parse(time.RFC3339, req.SyncedAt)
		if err != nil {
			c.JSON(http.StatusBadRequest, errors.NewErrorResponse(
				errors.ErrInvalidParams,
				"syncedAt格式错误，应为RFC3339",
				nil,
			))
			return
		}
		syncedAt = t
	}

	data := models.WearableData{
		ID:         uuid.New(),
		UserID:     userID.(uuid.UUID),
		DeviceType: req.DeviceType,
		Payload:    req.Payload,
		SyncedAt:   syncedAt,
	}

	if err := h.db.Create(&data).Error; err != nil {
		c.JSON(http.StatusInternalServerError, errors.NewErrorResponse(
			errors.ErrDatabaseError,
			"保存设备数据失败",
			err.Error(),
		))
		return
	}

	c.JSON(http.StatusCreated, errors.NewSuccessResponse(data))
}

// GetWearableData 查询设备同步记录
func (h *StatsHandler) GetWearableData(c *gin.Context) {
	userID, _ := c.Get("user_id")

	var data []models.WearableData
	if err := h.db.Where("user_id = ?", userID).
		Order("synced_at DESC").Limit(50).
		Find(&data).Error; err != nil {
		c.JSON(http.StatusInternalServerError, errors.NewErrorResponse(
			errors.ErrDatabaseError,
			"查询设备数据失败",
			err.Error(),
		))
		return
	}

	c.JSON(http.StatusOK, errors.NewSuccessResponse(data))
}

// GetBMI 返回当前BMI及分类
func (h *StatsHandler) GetBMI(c *gin.Context) {
	userID, _ := c.Get("user_id")

	var user models.User
	if err := h.db.Where("id = ?", userID).First(&user).Error; err != nil {
		c.JSON(http.StatusNotFound, errors.NewErrorResponse(
			errors.ErrUserNotFound,
			"用户不存在",
			nil,
		))
		return
	}

	bmi := health.BMI(user.WeightKG, user.HeightCM)
	c.JSON(http.StatusOK, errors.NewSuccessResponse(map[string]interface{}{
		"bmi":      bmi,
		"category": health.ClassifyBMI(bmi),
		"healthy":  health.IsHealthyBMI(bmi),
		"heightCm": user.HeightCM,
		"weightKg": user.WeightKG,
	}))
}

// CreateHealthRecord 新增健康档案记录
func (h *StatsHandler) CreateHealthRecord(c *gin.Context) {
	userID, _ := c.Get("user_id")

	var req HealthRecordRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, errors.NewErrorResponse(
			errors.ErrInvalidParams,
			"请求参数错误",
			err.Error(),
		))
		return
	}

	recordedAt := time.Now()
	if req.RecordedAt != "" {
		t, err := time.Parse(time.RFC3339, req.RecordedAt)
		if err != nil {
			c.JSON(http.StatusBadRequest, errors.NewErrorResponse(
				errors.ErrInvalidParams,
				"recordedAt格式错误，应为RFC3339",
				nil,
			))
			return
		}
		recordedAt = t
	}

	record := models.HealthRecord{
		ID:          uuid.New(),
		UserID:      userID.(uuid.UUID),
		RecordType:  req.RecordType,
		Description: req.Description,
		RecordedAt:  recordedAt,
	}

	if err := h.db.Create(&record).Error; err != nil {
		c.JSON(http.StatusInternalServerError, errors.NewErrorResponse(
			errors.ErrDatabaseError,
			"保存健康档案失败",
			err.Error(),
		))
		return
	}

	c.JSON(http.StatusCreated, errors.NewSuccessResponse(record))
}

// GetHealthRecords 查询健康档案
func (h *StatsHandler) GetHealthRecords(c *gin.Context) {
	userID, _ := c.Get("user_id")

	query := h.db.Where("user_id = ?", userID)
	if recordType := c.Query("type"); recordType != "" {
		query = query.Where("record_type = ?", recordType)
	}

	var records []models.HealthRecord
	if err := query.Order("recorded_at DESC").Find(&records).Error; err != nil {
		c.JSON(http.StatusInternalServerError, errors.NewErrorResponse(
			errors.ErrDatabaseError,
			"查询健康档案失败",
			err.Error(),
		))
		return
	}

	c.JSON(http.StatusOK, errors.NewSuccessResponse(records))
}

// DeleteHealthRecord 删除健康档案记录
func (h *StatsHandler) DeleteHealthRecord(c *gin.Context) {
	userID, _ := c.Get("user_id")

	var record models.HealthRecord
	if err := h.db.Where("id = ? AND user_id = ?", c.Param("id"), userID).First(&record).Error; err != nil {
		c.JSON(http.StatusNotFound, errors.NewErrorResponse(
			errors.ErrResourceNotFound,
			"档案记录不存在",
			nil,
		))
		return
	}

	if err := h.db.Delete(&record).Error; err != nil {
		c.JSON(http.StatusInternalServerError, errors.NewErrorResponse(
			errors.ErrDatabaseError,
			"删除档案记录失败",
			err.Error(),
		))
		return
	}

	c.JSON(http.StatusOK, errors.NewSuccessResponseWithMessage("档案记录已删除", nil))
}
