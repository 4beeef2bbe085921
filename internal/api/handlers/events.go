package handlers

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/lib/pq"
	"gorm.io/gorm"

	"github.com/ag21o9/bitnbuild-backend/internal/constants"
	"github.com/ag21o9/bitnbuild-backend/internal/database/models"
	"github.com/ag21o9/bitnbuild-backend/pkg/errors"
)

type EventHandler struct {
	db *gorm.DB
}

func NewEventHandler(db *gorm.DB) *EventHandler {
	return &EventHandler{db: db}
}

type EventRequest struct {
	Title       string   `json:"title" binding:"required,max=200"`
	Description string   `json:"description"`
	Location    string   `json:"location" binding:"max=200"`
	StartsAt    string   `json:"startsAt" binding:"required"` // RFC3339
	Capacity    int      `json:"capacity" binding:"gte=0"`
	Tags        []string `json:"tags"`
}

// CreateEvent 管理员创建活动
func (h *EventHandler) CreateEvent(c *gin.Context) {
	userID, _ := c.Get("user_id")

	var req EventRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, errors.NewErrorResponse(
			errors.ErrInvalidParams,
			"请求参数错误",
			err.Error(),
		))
		return
	}

	startsAt, err := time.Parse(time.RFC3339, req.StartsAt)
	if err != nil {
		c.JSON(http.StatusBadRequest, errors.NewErrorResponse(
			errors.ErrInvalidParams,
			"startsAt格式错误，应为RFC3339",
			nil,
		))
		return
	}

	creator := userID.(uuid.UUID)
	event := models.Event{
		ID:          uuid.New(),
		Title:       req.Title,
		Description: req.Description,
		Location:    req.Location,
		StartsAt:    startsAt,
		Capacity:    req.Capacity,
		Tags:        pq.StringArray(req.Tags),
		CreatedBy:   &creator,
	}

	if err := h.db.Create(&event).Error; err != nil {
		c.JSON(http.StatusInternalServerError, errors.NewErrorResponse(
			errors.ErrDatabaseError,
			"创建活动失败",
			err.Error(),
		))
		return
	}

	c.JSON(http.StatusCreated, errors.NewSuccessResponse(event))
}

// GetEvents 分页查询活动列表
func (h *EventHandler) GetEvents(c *gin.Context) {
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	pageSize, _ := strconv.Atoi(c.DefaultQuery("pageSize", "20"))

	if page < 1 {
		page = 1
	}
	if pageSize < 1 || pageSize > 100 {
		pageSize = 20
	}

	query := h.db.Model(&models.Event{})
	// upcoming=true时只看未开始的活动
	if c.DefaultQuery("upcoming", "false") == "true" {
		query = query.Where("starts_at > ?", time.Now())
	}

	var events []models.Event
	var total int64

	query.Count(&total)

	offset := (page - 1) * pageSize
	if err := query.Order("starts_at ASC").
		Offset(offset).Limit(pageSize).
		Find(&events).Error; err != nil {
		c.JSON(http.StatusInternalServerError, errors.NewErrorResponse(
			errors.ErrDatabaseError,
			"查询活动列表失败",
			err.Error(),
		))
		return
	}

	result := map[string]interface{}{
		"data": events,
		"pagination": map[string]interface{}{
			"page":      page,
			"pageSize":  pageSize,
			"total":     total,
			"totalPage": (total + int64(pageSize) - 1) / int64(pageSize),
		},
	}

	c.JSON(http.StatusOK, errors.NewSuccessResponse(result))
}

// GetEvent 查询单个活动
func (h *EventHandler) GetEvent(c *gin.Context) {
	var event models.Event
	if err := h.db.Where("id = ?", c.Param("id")).First(&event).Error; err != nil {
		c.JSON(http.StatusNotFound, errors.NewErrorResponse(
			errors.ErrEventNotFound,
			"活动不存在",
			nil,
		))
		return
	}

	// 当前报名人数
	var registered int64
	h.db.Model(&models.EventRegistration{}).
		Where("event_id = ? AND status = ?", event.ID, constants.RegistrationActive).
		Count(&registered)

	c.JSON(http.StatusOK, errors.NewSuccessResponse(map[string]interface{}{
		"event":      event,
		"registered": registered,
	}))
}

// UpdateEvent 管理员更新活动
func (h *EventHandler) UpdateEvent(c *gin.Context) {
	var event models.Event
	if err := h.db.Where("id = ?", c.Param("id")).First(&event).Error; err != nil {
		c.JSON(http.StatusNotFound, errors.NewErrorResponse(
			errors.ErrEventNotFound,
			"活动不存在",
			nil,
		))
		return
	}

	var req EventRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, errors.NewErrorResponse(
			errors.ErrInvalidParams,
			"请求参数错误",
			err.Error(),
		))
		return
	}

	startsAt, err := time.Parse(time.RFC3339, req.StartsAt)
	if err != nil {
		c.JSON(http.StatusBadRequest, errors.NewErrorResponse(
			errors.ErrInvalidParams,
			"startsAt格式错误，应为RFC3339",
			nil,
		))
		return
	}

	updates := map[string]interface{}{
		"title":       req.Title,
		"description": req.Description,
		"location":    req.Location,
		"starts_at":   startsAt,
		"capacity":    req.Capacity,
		"tags":        pq.StringArray(req.Tags),
		"updated_at":  time.Now(),
	}

	if err := h.db.Model(&event).Updates(updates).Error; err != nil {
		c.JSON(http.StatusInternalServerError, errors.NewErrorResponse(
			errors.ErrDatabaseError,
			"更新活动失败",
			err.Error(),
		))
		return
	}

	h.db.Where("id = ?", event.ID).First(&event)
	c.JSON(http.StatusOK, errors.NewSuccessResponse(event))
}

// DeleteEvent 管理员删除活动（报名记录级联删除）
func (h *EventHandler) DeleteEvent(c *gin.Context) {
	var event models.Event
	if err := h.db.Where("id = ?", c.Param("id")).First(&event).Error; err != nil {
		c.JSON(http.StatusNotFound, errors.NewErrorResponse(
			errors.ErrEventNotFound,
			"活动不存在",
			nil,
		))
		return
	}

	if err := h.db.Delete(&event).Error; err != nil {
		c.JSON(http.StatusInternalServerError, errors.NewErrorResponse(
			errors.ErrDatabaseError,
			"删除活动失败",
			err.Error(),
		))
		return
	}

	c.JSON(http.StatusOK, errors.NewSuccessResponseWithMessage("活动已删除", nil))
}

// RegisterForEvent 报名活动；重复报名返回409
func (h *EventHandler) RegisterForEvent(c *gin.Context) {
	userID, _ := c.Get("user_id")
	eventID := c.Param("id")

	var event models.Event
	if err := h.db.Where("id = ?", eventID).First(&event).Error; err != nil {
		c.JSON(http.StatusNotFound, errors.NewErrorResponse(
			errors.ErrEventNotFound,
			"活动不存在",
			nil,
		))
		return
	}

	// 幂等检查：同一用户同一活动只能报名一次
	var existing int64
	if err := h.db.Model(&models.EventRegistration{}).
		Where("event_id = ? AND user_id = ? AND status = ?", event.ID, userID, constants.RegistrationActive).
		Count(&existing).Error; err != nil {
		c.JSON(http.StatusInternalServerError, errors.NewErrorResponse(
			errors.ErrDatabaseError,
			"数据库查询失败",
			err.Error(),
		))
		return
	}

	if existing > 0 {
		c.JSON(http.StatusConflict, errors.NewErrorResponse(
			errors.ErrAlreadyRegistered,
			"已报名该活动，请勿重复报名",
			nil,
		))
		return
	}

	// 容量检查，capacity为0表示不限
	if event.Capacity > 0 {
		var registered int64
		h.db.Model(&models.EventRegistration{}).
			Where("event_id = ? AND status = ?", event.ID, constants.RegistrationActive).
			Count(&registered)
		if registered >= int64(event.Capacity) {
			c.JSON(http.StatusConflict, errors.NewErrorResponse(
				errors.ErrEventCapacityFull,
				"活动名额已满",
				nil,
			))
			return
		}
	}

	// 取消过的报名恢复为已报名，否则新建
	var cancelled models.EventRegistration
	if err := h.db.Where("event_id = ? AND user_id = ? AND status = ?",
		event.ID, userID, constants.RegistrationCancelled).First(&cancelled).Error; err == nil {
		if err := h.db.Model(&cancelled).Updates(map[string]interface{}{
			"status":     constants.RegistrationActive,
			"updated_at": time.Now(),
		}).Error; err != nil {
			c.JSON(http.StatusInternalServerError, errors.NewErrorResponse(
				errors.ErrDatabaseError,
				"报名失败",
				err.Error(),
			))
			return
		}
		h.db.Where("id = ?", cancelled.ID).First(&cancelled)
		c.JSON(http.StatusCreated, errors.NewSuccessResponse(cancelled))
		return
	}

	registration := models.EventRegistration{
		ID:      uuid.New(),
		EventID: event.ID,
		UserID:  userID.(uuid.UUID),
		Status:  constants.RegistrationActive,
	}

	if err := h.db.Create(&registration).Error; err != nil {
		c.JSON(http.StatusInternalServerError, errors.NewErrorResponse(
			errors.ErrDatabaseError,
			"报名失败",
			err.Error(),
		))
		return
	}

	c.JSON(http.StatusCreated, errors.NewSuccessResponse(registration))
}

// CancelRegistration 取消报名
func (h *EventHandler) CancelRegistration(c *gin.Context) {
	userID, _ := c.Get("user_id")

	var registration models.EventRegistration
	if err := h.db.Where("event_id = ? AND user_id = ? AND status = ?",
		c.Param("id"), userID, constants.RegistrationActive).First(&registration).Error; err != nil {
		c.JSON(http.StatusNotFound, errors.NewErrorResponse(
			errors.ErrResourceNotFound,
			"未找到报名记录",
			nil,
		))
		return
	}

	if err := h.db.Model(&registration).Updates(map[string]interface{}{
		"status":     constants.RegistrationCancelled,
		"updated_at": time.Now(),
	}).Error; err != nil {
		c.JSON(http.StatusInternalServerError, errors.NewErrorResponse(
			errors.ErrDatabaseError,
			"取消报名失败",
			err.Error(),
		))
		return
	}

	c.JSON(http.StatusOK, errors.NewSuccessResponseWithMessage("已取消报名", nil))
}

// GetRegistrations 管理员查询活动报名列表
func (h *EventHandler) GetRegistrations(c *gin.Context) {
	var event models.Event
	if err := h.db.Where("id = ?", c.Param("id")).First(&event).Error; err != nil {
		c.JSON(http.StatusNotFound, errors.NewErrorResponse(
			errors.ErrEventNotFound,
			"活动不存在",
			nil,
		))
		return
	}

	var registrations []models.EventRegistration
	if err := h.db.Preload("User").
		Where("event_id = ? AND status = ?", event.ID, constants.RegistrationActive).
		Order("created_at ASC").
		Find(&registrations).Error; err != nil {
		c.JSON(http.StatusInternalServerError, errors.NewErrorResponse(
			errors.ErrDatabaseError,
			"查询报名列表失败",
			err.Error(),
		))
		return
	}

	c.JSON(http.StatusOK, errors.NewSuccessResponse(registrations))
}
