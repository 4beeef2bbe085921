package handlers

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/ag21o9/bitnbuild-backend/internal/constants"
	"github.com/ag21o9/bitnbuild-backend/internal/database/models"
	"github.com/ag21o9/bitnbuild-backend/pkg/errors"
)

type UserHandler struct {
	db *gorm.DB
}

func NewUserHandler(db *gorm.DB) *UserHandler {
	return &UserHandler{db: db}
}

type UpdateUserRequest struct {
	Name     string  `json:"name" binding:"omitempty,max=100"`
	Age      int     `json:"age" binding:"omitempty,gte=13,lte=120"`
	Gender   string  `json:"gender" binding:"omitempty,oneof=male female other"`
	HeightCM float64 `json:"heightCm" binding:"omitempty,gte=50,lte=300"`
	WeightKG float64 `json:"weightKg" binding:"omitempty,gte=20,lte=500"`
	Goal     string  `json:"goal" binding:"omitempty,oneof=lose_weight gain_muscle stay_fit"`
}

func (h *UserHandler) GetMe(c *gin.Context) {
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

	c.JSON(http.StatusOK, errors.NewSuccessResponse(toUserInfo(&user)))
}

func (h *UserHandler) UpdateMe(c *gin.Context) {
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

	var req UpdateUserRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, errors.NewErrorResponse(
			errors.ErrInvalidParams,
			"请求参数错误："+profileRangeHint,
			err.Error(),
		))
		return
	}

	// 只更新传入的字段
	updates := map[string]interface{}{
		"updated_at": time.Now(),
	}
	if req.Name != "" {
		updates["name"] = req.Name
	}
	if req.Age != 0 {
		updates["age"] = req.Age
	}
	if req.Gender != "" {
		updates["gender"] = req.Gender
	}
	if req.HeightCM != 0 {
		updates["height_cm"] = req.HeightCM
	}
	if req.WeightKG != 0 {
		updates["weight_kg"] = req.WeightKG
	}
	if req.Goal != "" {
		updates["goal"] = req.Goal
	}

	if err := h.db.Model(&user).Updates(updates).Error; err != nil {
		c.JSON(http.StatusInternalServerError, errors.NewErrorResponse(
			errors.ErrDatabaseError,
			"更新用户失败",
			err.Error(),
		))
		return
	}

	// 重新查询更新后的数据
	h.db.Where("id = ?", userID).First(&user)

	c.JSON(http.StatusOK, errors.NewSuccessResponse(toUserInfo(&user)))
}

func (h *UserHandler) DeleteMe(c *gin.Context) {
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

	// 软删除：更新状态为deleted
	if err := h.db.Model(&user).Update("status", constants.UserStatusDeleted).Error; err != nil {
		c.JSON(http.StatusInternalServerError, errors.NewErrorResponse(
			errors.ErrDatabaseError,
			"注销账号失败",
			err.Error(),
		))
		return
	}

	c.JSON(http.StatusOK, errors.NewSuccessResponseWithMessage("账号已注销", nil))
}

// GetUsers 管理员查询用户列表
func (h *UserHandler) GetUsers(c *gin.Context) {
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	pageSize, _ := strconv.Atoi(c.DefaultQuery("pageSize", "20"))
	status := c.DefaultQuery("status", constants.UserStatusActive)

	if page < 1 {
		page = 1
	}
	if pageSize < 1 || pageSize > 100 {
		pageSize = 20
	}

	var users []models.User
	var total int64

	// 查询总数
	h.db.Model(&models.User{}).Where("status = ?", status).Count(&total)

	// 查询数据
	offset := (page - 1) * pageSize
	if err := h.db.Where("status = ?", status).
		Order("created_at DESC").
		Offset(offset).Limit(pageSize).
		Find(&users).Error; err != nil {
		c.JSON(http.StatusInternalServerError, errors.NewErrorResponse(
			errors.ErrDatabaseError,
			"查询用户列表失败",
			err.Error(),
		))
		return
	}

	responses := make([]*UserInfo, 0, len(users))
	for i := range users {
		responses = append(responses, toUserInfo(&users[i]))
	}

	result := map[string]interface{}{
		"data": responses,
		"pagination": map[string]interface{}{
			"page":      page,
			"pageSize":  pageSize,
			"total":     total,
			"totalPage": (total + int64(pageSize) - 1) / int64(pageSize),
		},
	}

	c.JSON(http.StatusOK, errors.NewSuccessResponse(result))
}

// GetUser 管理员查询单个用户
func (h *UserHandler) GetUser(c *gin.Context) {
	var user models.User
	if err := h.db.Where("id = ?", c.Param("id")).First(&user).Error; err != nil {
		c.JSON(http.StatusNotFound, errors.NewErrorResponse(
			errors.ErrUserNotFound,
			"用户不存在",
			nil,
		))
		return
	}

	c.JSON(http.StatusOK, errors.NewSuccessResponse(toUserInfo(&user)))
}

// DeleteUser 管理员注销用户
func (h *UserHandler) DeleteUser(c *gin.Context) {
	var user models.User
	if err := h.db.Where("id = ?", c.Param("id")).First(&user).Error; err != nil {
		c.JSON(http.StatusNotFound, errors.NewErrorResponse(
			errors.ErrUserNotFound,
			"用户不存在",
			nil,
		))
		return
	}

	if err := h.db.Model(&user).Update("status", constants.UserStatusDeleted).Error; err != nil {
		c.JSON(http.StatusInternalServerError, errors.NewErrorResponse(
			errors.ErrDatabaseError,
			"注销用户失败",
			err.Error(),
		))
		return
	}

	c.JSON(http.StatusOK, errors.NewSuccessResponseWithMessage("用户已注销", nil))
}
