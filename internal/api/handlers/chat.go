package handlers

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/ag21o9/bitnbuild-backend/internal/config"
	"github.com/ag21o9/bitnbuild-backend/internal/constants"
	"github.com/ag21o9/bitnbuild-backend/internal/database/models"
	"github.com/ag21o9/bitnbuild-backend/internal/pkg/logger"
	"github.com/ag21o9/bitnbuild-backend/internal/services/ai"
	pkgErrors "github.com/ag21o9/bitnbuild-backend/pkg/errors"
)

type ChatHandler struct {
	db        *gorm.DB
	aiService *ai.AIService
}

func NewChatHandler(db *gorm.DB, aiService *ai.AIService) *ChatHandler {
	return &ChatHandler{
		db:        db,
		aiService: aiService,
	}
}

type AskRequest struct {
	Message string `json:"message" binding:"required,max=2000"`
}

type InteractionResponse struct {
	ID         uuid.UUID `json:"id"`
	Message    string    `json:"message"`
	Reply      string    `json:"reply"`
	Model      string    `json:"model"`
	TokenCount *int      `json:"tokenCount"`
	LatencyMs  *int      `json:"latencyMs"`
	Status     string    `json:"status"`
	CreatedAt  time.Time `json:"createdAt"`
}

// SSE事件类型
type SSEEvent struct {
	Type string      `json:"type"`
	Data interface{} `json:"data"`
}

func toInteractionResponse(it *models.ChatbotInteraction) InteractionResponse {
	return InteractionResponse{
		ID:         it.ID,
		Message:    it.Message,
		Reply:      it.Reply,
		Model:      it.Model,
		TokenCount: it.TokenCount,
		LatencyMs:  it.LatencyMs,
		Status:     it.Status,
		CreatedAt:  it.CreatedAt,
	}
}

// Ask 同步提问；每次问答落一条交互记录
func (h *ChatHandler) Ask(c *gin.Context) {
	userID, _ := c.Get("user_id")

	var req AskRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, pkgErrors.NewErrorResponse(
			pkgErrors.ErrInvalidParams,
			"请求参数错误",
			err.Error(),
		))
		return
	}

	uc, err := buildUserContext(h.db, userID.(uuid.UUID))
	if err != nil {
		c.JSON(http.StatusNotFound, pkgErrors.NewErrorResponse(
			pkgErrors.ErrUserNotFound,
			"用户不存在",
			nil,
		))
		return
	}

	messages := h.aiService.BuildHealthContext(uc, req.Message)

	startAt := time.Now()
	resp, err := h.aiService.Chat(c.Request.Context(), messages, nil)
	latency := int(time.Since(startAt).Milliseconds())

	interaction := models.ChatbotInteraction{
		ID:        uuid.New(),
		UserID:    userID.(uuid.UUID),
		Message:   req.Message,
		Model:     h.aiService.Model(),
		LatencyMs: &latency,
	}

	if err != nil {
		// 模型失败：记录失败交互，返回404兜底文案
		logger.WithRequest(c.GetString("request_id"), interaction.UserID.String()).
			Errorf("chat completion failed: %v", err)
		interaction.Status = constants.ChatStatusFailed
		h.db.Create(&interaction)

		c.JSON(http.StatusNotFound, pkgErrors.NewErrorResponse(
			pkgErrors.ErrExternalService,
			constants.DefaultChatErrorReply,
			nil,
		))
		return
	}

	interaction.Reply = resp.Content
	interaction.TokenCount = &resp.TokenCount
	interaction.Status = constants.ChatStatusOK

	if err := h.db.Create(&interaction).Error; err != nil {
		c.JSON(http.StatusInternalServerError, pkgErrors.NewErrorResponse(
			pkgErrors.ErrDatabaseError,
			"保存聊天记录失败",
			err.Error(),
		))
		return
	}

	c.JSON(http.StatusOK, pkgErrors.NewSuccessResponse(toInteractionResponse(&interaction)))
}

// GetHistory 分页查询聊天记录
func (h *ChatHandler) GetHistory(c *gin.Context) {
	userID, _ := c.Get("user_id")

	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	pageSize, _ := strconv.Atoi(c.DefaultQuery("pageSize", "20"))

	if page < 1 {
		page = 1
	}
	if pageSize < 1 || pageSize > 100 {
		pageSize = 20
	}

	var interactions []models.ChatbotInteraction
	var total int64

	h.db.Model(&models.ChatbotInteraction{}).Where("user_id = ?", userID).Count(&total)

	offset := (page - 1) * pageSize
	if err := h.db.Where("user_id = ?", userID).
		Order("created_at DESC").
		Offset(offset).Limit(pageSize).
		Find(&interactions).Error; err != nil {
		c.JSON(http.StatusInternalServerError, pkgErrors.NewErrorResponse(
			pkgErrors.ErrDatabaseError,
			"查询聊天记录失败",
			err.Error(),
		))
		return
	}

	responses := make([]InteractionResponse, 0, len(interactions))
	for i := range interactions {
		responses = append(responses, toInteractionResponse(&interactions[i]))
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

	c.JSON(http.StatusOK, pkgErrors.NewSuccessResponse(result))
}

// ClearHistory 清空聊天记录
func (h *ChatHandler) ClearHistory(c *gin.Context) {
	userID, _ := c.Get("user_id")

	if err := h.db.Where("user_id = ?", userID).Delete(&models.ChatbotInteraction{}).Error; err != nil {
		c.JSON(http.StatusInternalServerError, pkgErrors.NewErrorResponse(
			pkgErrors.ErrDatabaseError,
			"清空聊天记录失败",
			err.Error(),
		))
		return
	}

	c.JSON(http.StatusOK, pkgErrors.NewSuccessResponseWithMessage("聊天记录已清空", nil))
}

// GetSuggestions 生成结构化每日建议
func (h *ChatHandler) GetSuggestions(c *gin.Context) {
	userID, _ := c.Get("user_id")

	uc, err := buildUserContext(h.db, userID.(uuid.UUID))
	if err != nil {
		c.JSON(http.StatusNotFound, pkgErrors.NewErrorResponse(
			pkgErrors.ErrUserNotFound,
			"用户不存在",
			nil,
		))
		return
	}

	suggestions, err := h.aiService.GenerateSuggestions(c.Request.Context(), uc)
	if err != nil {
		// 模型失败或回复不符合字段结构，返回404兜底文案
		logger.WithRequest(c.GetString("request_id"), userID.(uuid.UUID).String()).
			Errorf("suggestions generation failed: %v", err)
		c.JSON(http.StatusNotFound, pkgErrors.NewErrorResponse(
			pkgErrors.ErrLLMBadResponse,
			constants.DefaultChatErrorReply,
			nil,
		))
		return
	}

	c.JSON(http.StatusOK, pkgErrors.NewSuccessResponse(suggestions))
}

// Stream SSE流式回答；token也可从query传入（EventSource不支持自定义header）
func (h *ChatHandler) Stream(c *gin.Context) {
	userID, _ := c.Get("user_id")

	question := c.Query("message")
	if question == "" {
		c.JSON(http.StatusBadRequest, pkgErrors.NewErrorResponse(
			pkgErrors.ErrInvalidParams,
			"缺少message参数",
			nil,
		))
		return
	}

	uc, err := buildUserContext(h.db, userID.(uuid.UUID))
	if err != nil {
		c.JSON(http.StatusNotFound, pkgErrors.NewErrorResponse(
			pkgErrors.ErrUserNotFound,
			"用户不存在",
			nil,
		))
		return
	}

	// 设置SSE响应头
	c.Header("Content-Type", "text/event-stream")
	c.Header("Cache-Control", "no-cache, no-transform")
	c.Header("Connection", "keep-alive")
	c.Header("X-Accel-Buffering", "no")

	w := c.Writer
	flusher, ok := w.(http.Flusher)
	if !ok {
		c.JSON(http.StatusInternalServerError, pkgErrors.NewErrorResponse(
			pkgErrors.ErrInternalServer,
			"不支持流式响应",
			nil,
		))
		return
	}

	interaction := models.ChatbotInteraction{
		ID:      uuid.New(),
		UserID:  userID.(uuid.UUID),
		Message: question,
		Model:   h.aiService.Model(),
	}

	startAt := time.Now()
	h.writeSSEEvent(w, flusher, SSEEvent{
		Type: "message_start",
		Data: map[string]interface{}{
			"interactionId": interaction.ID,
			"timestamp":     time.Now(),
		},
	})

	ctx := c.Request.Context()
	messages := h.aiService.BuildHealthContext(uc, question)
	streamChan, err := h.aiService.ChatStream(ctx, messages, &ai.GenerateOptions{Stream: true})
	if err != nil {
		logger.WithRequest(c.GetString("request_id"), interaction.UserID.String()).
			Errorf("chat stream failed: %v", err)
		latency := int(time.Since(startAt).Milliseconds())
		interaction.Status = constants.ChatStatusFailed
		interaction.LatencyMs = &latency
		h.db.Create(&interaction)

		h.writeSSEEvent(w, flusher, SSEEvent{
			Type: "ai_error",
			Data: map[string]interface{}{
				"interactionId": interaction.ID,
				"message":       constants.DefaultChatErrorReply,
			},
		})
		return
	}

	fullContent := ""
	var finalTokenCount int
	var finalFinishReason string

	// 处理流式响应 + 心跳保持（可配置）
	heartbeatSec := config.GlobalConfig.Server.SSEHeartbeat
	if heartbeatSec <= 0 {
		heartbeatSec = 15
	}
	ticker := time.NewTicker(time.Duration(heartbeatSec) * time.Second)
	defer ticker.Stop()

STREAM_LOOP:
	for {
		select {
		case <-ctx.Done():
			// 客户端断开，保存已生成的内容
			latency := int(time.Since(startAt).Milliseconds())
			interaction.Reply = fullContent
			interaction.Status = constants.ChatStatusFailed
			interaction.LatencyMs = &latency
			h.db.Create(&interaction)
			return
		case <-ticker.C:
			// 周期性心跳，防止代理/连接超时
			fmt.Fprintf(w, ": ping\n\n")
			flusher.Flush()
		case chunk, ok := <-streamChan:
			if !ok {
				// 流结束
				break STREAM_LOOP
			}
			if chunk.Error != nil {
				logger.WithRequest(c.GetString("request_id"), interaction.UserID.String()).
					Errorf("chat stream chunk error: %v", chunk.Error)
				latency := int(time.Since(startAt).Milliseconds())
				interaction.Reply = fullContent
				interaction.Status = constants.ChatStatusFailed
				interaction.LatencyMs = &latency
				h.db.Create(&interaction)

				h.writeSSEEvent(w, flusher, SSEEvent{
					Type: "ai_error",
					Data: map[string]interface{}{
						"interactionId": interaction.ID,
						"message":       constants.DefaultChatErrorReply,
					},
				})
				return
			}
			if chunk.Delta != "" {
				// 发送内容增量
				h.writeSSEEvent(w, flusher, SSEEvent{
					Type: "content_delta",
					Data: map[string]interface{}{
						"interactionId": interaction.ID,
						"delta":         chunk.Delta,
						"content":       chunk.Content,
					},
				})
			}
			fullContent = chunk.Content
			if chunk.Finished {
				finalTokenCount = chunk.TokenCount
				finalFinishReason = chunk.FinishReason
				break STREAM_LOOP
			}
		}
	}

	// 落库完整交互记录
	latency := int(time.Since(startAt).Milliseconds())
	interaction.Reply = fullContent
	interaction.Status = constants.ChatStatusOK
	interaction.TokenCount = &finalTokenCount
	interaction.LatencyMs = &latency
	h.db.Create(&interaction)

	// 发送消息完成事件
	h.writeSSEEvent(w, flusher, SSEEvent{
		Type: "message_complete",
		Data: map[string]interface{}{
			"interactionId": interaction.ID,
			"tokenCount":    finalTokenCount,
			"latencyMs":     latency,
			"finishReason":  finalFinishReason,
			"timestamp":     time.Now(),
		},
	})

	// 发送结束标记
	fmt.Fprintf(w, "event: done\ndata: {}\n\n")
	flusher.Flush()
}

func (h *ChatHandler) writeSSEEvent(w http.ResponseWriter, flusher http.Flusher, event SSEEvent) {
	data, _ := json.Marshal(event)
	fmt.Fprintf(w, "event: %s\ndata: %s\n\n", event.Type, string(data))
	flusher.Flush()
}
