package handlers

import (
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"

	"github.com/ag21o9/bitnbuild-backend/internal/constants"
	"github.com/ag21o9/bitnbuild-backend/internal/database/models"
	"github.com/ag21o9/bitnbuild-backend/internal/pkg/jwt"
	"github.com/ag21o9/bitnbuild-backend/pkg/errors"
)

type AuthHandler struct {
	db *gorm.DB
}

func NewAuthHandler(db *gorm.DB) *AuthHandler {
	return &AuthHandler{db: db}
}

type LoginRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required,min=6"`
}

type RegisterRequest struct {
	Email    string  `json:"email" binding:"required,email"`
	Password string  `json:"password" binding:"required,min=6"`
	Name     string  `json:"name" binding:"required,max=100"`
	Age      int     `json:"age" binding:"required,gte=13,lte=120"`
	Gender   string  `json:"gender" binding:"required,oneof=male female other"`
	HeightCM float64 `json:"heightCm" binding:"required,gte=50,lte=300"`
	WeightKG float64 `json:"weightKg" binding:"required,gte=20,lte=500"`
	Goal     string  `json:"goal" binding:"required,oneof=lose_weight gain_muscle stay_fit"`
}

// profileRangeHint 档案字段的合法范围，校验失败时提示给客户端
var profileRangeHint = fmt.Sprintf("年龄%d-%d，身高%.0f-%.0fcm，体重%.0f-%.0fkg",
	constants.MinAge, constants.MaxAge,
	constants.MinHeightCM, constants.MaxHeightCM,
	constants.MinWeightKG, constants.MaxWeightKG)

type LoginResponse struct {
	AccessToken  string    `json:"accessToken"`
	RefreshToken string    `json:"refreshToken"`
	ExpiresIn    int64     `json:"expiresIn"`
	User         *UserInfo `json:"user"`
}

type UserInfo struct {
	ID          uuid.UUID  `json:"id"`
	Email       string     `json:"email"`
	Name        string     `json:"name"`
	Age         int        `json:"age"`
	Gender      string     `json:"gender"`
	HeightCM    float64    `json:"heightCm"`
	WeightKG    float64    `json:"weightKg"`
	Goal        string     `json:"goal"`
	Role        string     `json:"role"`
	Status      string     `json:"status"`
	LastLoginAt *time.Time `json:"lastLoginAt"`
}

func toUserInfo(user *models.User) *UserInfo {
	return &UserInfo{
		ID:          user.ID,
		Email:       user.Email,
		Name:        user.Name,
		Age:         user.Age,
		Gender:      user.Gender,
		HeightCM:    user.HeightCM,
		WeightKG:    user.WeightKG,
		Goal:        user.Goal,
		Role:        user.Role,
		Status:      user.Status,
		LastLoginAt: user.LastLoginAt,
	}
}

func (h *AuthHandler) Register(c *gin.Context) {
	var req RegisterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, errors.NewErrorResponse(
			errors.ErrInvalidParams,
			"请求参数错误："+profileRangeHint,
			err.Error(),
		))
		return
	}

	// 检查邮箱是否已存在
	var count int64
	if err := h.db.Model(&models.User{}).Where("email = ?", req.Email).Count(&count).Error; err != nil {
		c.JSON(http.StatusInternalServerError, errors.NewErrorResponse(
			errors.ErrDatabaseError,
			"数据库查询失败",
			err.Error(),
		))
		return
	}

	if count > 0 {
		c.JSON(http.StatusConflict, errors.NewErrorResponse(
			errors.ErrEmailExists,
			"邮箱已被注册",
			nil,
		))
		return
	}

	// 加密密码
	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		c.JSON(http.StatusInternalServerError, errors.NewErrorResponse(
			errors.ErrInternalServer,
			"密码加密失败",
			err.Error(),
		))
		return
	}

	// 创建用户
	user := models.User{
		ID:           uuid.New(),
		Email:        req.Email,
		PasswordHash: string(hashedPassword),
		Name:         req.Name,
		Age:          req.Age,
		Gender:       req.Gender,
		HeightCM:     req.HeightCM,
		WeightKG:     req.WeightKG,
		Goal:         req.Goal,
		Role:         constants.RoleUser, // 默认为普通用户
		Status:       constants.UserStatusActive,
	}

	if err := h.db.Create(&user).Error; err != nil {
		c.JSON(http.StatusInternalServerError, errors.NewErrorResponse(
			errors.ErrDatabaseError,
			"创建用户失败",
			err.Error(),
		))
		return
	}

	// 生成JWT令牌
	tokenPair, err := jwt.GenerateTokenPair(user.ID, user.Email, user.Role)
	if err != nil {
		c.JSON(http.StatusInternalServerError, errors.NewErrorResponse(
			errors.ErrInternalServer,
			"生成令牌失败",
			err.Error(),
		))
		return
	}

	response := LoginResponse{
		AccessToken:  tokenPair.AccessToken,
		RefreshToken: tokenPair.RefreshToken,
		ExpiresIn:    tokenPair.ExpiresIn,
		User:         toUserInfo(&user),
	}

	c.JSON(http.StatusCreated, errors.NewSuccessResponse(response))
}

func (h *AuthHandler) Login(c *gin.Context) {
	var req LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, errors.NewErrorResponse(
			errors.ErrInvalidParams,
			"请求参数错误",
			err.Error(),
		))
		return
	}

	// 查找用户
	var user models.User
	if err := h.db.Where("email = ? AND status = ?", req.Email, constants.UserStatusActive).First(&user).Error; err != nil {
		c.JSON(http.StatusUnauthorized, errors.NewErrorResponse(
			errors.ErrInvalidCredentials,
			"邮箱或密码错误",
			nil,
		))
		return
	}

	// 验证密码
	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(req.Password)); err != nil {
		c.JSON(http.StatusUnauthorized, errors.NewErrorResponse(
			errors.ErrInvalidCredentials,
			"邮箱或密码错误",
			nil,
		))
		return
	}

	// 生成JWT令牌
	tokenPair, err := jwt.GenerateTokenPair(user.ID, user.Email, user.Role)
	if err != nil {
		c.JSON(http.StatusInternalServerError, errors.NewErrorResponse(
			errors.ErrInternalServer,
			"生成令牌失败",
			err.Error(),
		))
		return
	}

	// 更新最后登录时间
	now := time.Now()
	h.db.Model(&user).Update("last_login_at", now)

	user.LastLoginAt = &now
	response := LoginResponse{
		AccessToken:  tokenPair.AccessToken,
		RefreshToken: tokenPair.RefreshToken,
		ExpiresIn:    tokenPair.ExpiresIn,
		User:         toUserInfo(&user),
	}

	c.JSON(http.StatusOK, errors.NewSuccessResponse(response))
}

type RefreshTokenRequest struct {
	RefreshToken string `json:"refresh_token" binding:"required"`
}

func (h *AuthHandler) RefreshToken(c *gin.Context) {
	var req RefreshTokenRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, errors.NewErrorResponse(
			errors.ErrInvalidParams,
			"请求参数错误",
			err.Error(),
		))
		return
	}

	// 验证并刷新令牌
	tokenPair, err := jwt.RefreshAccessToken(req.RefreshToken)
	if err != nil {
		c.JSON(http.StatusUnauthorized, errors.NewErrorResponse(
			errors.ErrInvalidToken,
			"刷新令牌无效",
			err.Error(),
		))
		return
	}

	c.JSON(http.StatusOK, errors.NewSuccessResponse(tokenPair))
}

func (h *AuthHandler) Logout(c *gin.Context) {
	// 无状态JWT，服务端不保存会话，登出由客户端丢弃令牌完成
	c.JSON(http.StatusOK, errors.NewSuccessResponseWithMessage("退出登录成功", nil))
}

func (h *AuthHandler) Profile(c *gin.Context) {
	userID, _ := c.Get("user_id")

	// 查询完整用户信息
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
