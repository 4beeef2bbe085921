package ai

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/cloudwego/eino-ext/components/model/claude"
	"github.com/cloudwego/eino-ext/components/model/openai"
	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"

	"github.com/ag21o9/bitnbuild-backend/internal/config"
	"github.com/ag21o9/bitnbuild-backend/internal/constants"
	dbmodels "github.com/ag21o9/bitnbuild-backend/internal/database/models"
	"github.com/ag21o9/bitnbuild-backend/internal/services/health"
)

// 枚举值到提示词里中文表述的映射，未知值原样透传
var genderNames = map[string]string{
	constants.GenderMale:   "男",
	constants.GenderFemale: "女",
	constants.GenderOther:  "其他",
}

var goalNames = map[string]string{
	constants.GoalLoseWeight: "减脂",
	constants.GoalGainMuscle: "增肌",
	constants.GoalStayFit:    "保持体型",
}

func displayName(names map[string]string, value string) string {
	if name, ok := names[value]; ok {
		return name
	}
	return value
}

// AIService AI服务接口
type AIService struct {
	chatModel model.BaseChatModel
	config    *config.LLMConfig
}

// ChatMessage 标准化的聊天消息格式
type ChatMessage struct {
	Role     string                 `json:"role"` // system, user, assistant
	Content  string                 `json:"content"`
	Metadata map[string]interface{} `json:"metadata,omitempty"`
}

// ChatResponse 聊天响应
type ChatResponse struct {
	Content      string                 `json:"content"`
	TokenCount   int                    `json:"token_count,omitempty"`
	Metadata     map[string]interface{} `json:"metadata,omitempty"`
	FinishReason string                 `json:"finish_reason,omitempty"`
}

// StreamChunk 流式响应块
type StreamChunk struct {
	ID           string `json:"id"`
	Content      string `json:"content"`  // 完整内容
	Delta        string `json:"delta"`    // 增量内容
	Finished     bool   `json:"finished"` // 是否结束
	TokenCount   int    `json:"token_count,omitempty"`
	Error        error  `json:"error,omitempty"`
	FinishReason string `json:"finish_reason,omitempty"`
}

// GenerateOptions 生成选项
type GenerateOptions struct {
	Temperature *float64 `json:"temperature,omitempty"`
	MaxTokens   *int     `json:"max_tokens,omitempty"`
	Stream      bool     `json:"stream"`
}

// UserContext 构造提示词所需的用户画像
type UserContext struct {
	Name       string
	Age        int
	Gender     string
	HeightCM   float64
	WeightKG   float64
	Goal       string
	Latest     *dbmodels.HealthData
	Records    []dbmodels.HealthRecord
	MealTags   []string
}

// MealPlanData LLM餐单回复的固定字段结构
type MealPlanData struct {
	Title    string   `json:"title"`
	MealType string   `json:"meal_type"`
	Items    []string `json:"items"`
	Calories int      `json:"calories"`
	ProteinG float64  `json:"protein_g"`
	CarbsG   float64  `json:"carbs_g"`
	FatG     float64  `json:"fat_g"`
}

// Suggestion LLM建议回复的固定字段结构
type Suggestion struct {
	Category string `json:"category"` // exercise, diet, sleep, hydration
	Text     string `json:"text"`
}

// NewAIService 创建AI服务实例
func NewAIService(config *config.LLMConfig) (*AIService, error) {
	var chatModel model.BaseChatModel
	var err error

	switch config.Provider {
	case "claude":
		chatModel, err = createClaudeModel(config)
	case "openai":
		chatModel, err = createOpenAIModel(config)
	default:
		return nil, fmt.Errorf("unsupported AI provider: %s", config.Provider)
	}

	if err != nil {
		return nil, fmt.Errorf("failed to create chat model: %w", err)
	}

	return &AIService{
		chatModel: chatModel,
		config:    config,
	}, nil
}

// createClaudeModel 创建Claude模型
func createClaudeModel(config *config.LLMConfig) (model.BaseChatModel, error) {
	claudeConfig := &claude.Config{
		APIKey:    config.APIKey,
		Model:     config.Model,
		MaxTokens: config.MaxTokens,
	}

	if config.BaseURL != "" {
		claudeConfig.BaseURL = &config.BaseURL
	}

	if config.Temperature > 0 {
		temp := float32(config.Temperature)
		claudeConfig.Temperature = &temp
	}

	if config.TopP > 0 {
		topP := float32(config.TopP)
		claudeConfig.TopP = &topP
	}

	if config.TopK > 0 {
		topK := int32(config.TopK)
		claudeConfig.TopK = &topK
	}

	chatModel, err := claude.NewChatModel(context.Background(), claudeConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to create Claude model: %w", err)
	}

	return chatModel, nil
}

// createOpenAIModel 创建OpenAI模型
func createOpenAIModel(config *config.LLMConfig) (model.BaseChatModel, error) {
	openaiConfig := &openai.ChatModelConfig{
		APIKey:  config.APIKey,
		Model:   config.Model,
		BaseURL: config.BaseURL,
	}

	if config.MaxTokens > 0 {
		openaiConfig.MaxTokens = &config.MaxTokens
	}

	if config.Temperature > 0 {
		temp := float32(config.Temperature)
		openaiConfig.Temperature = &temp
	}

	if config.TopP > 0 {
		topP := float32(config.TopP)
		openaiConfig.TopP = &topP
	}

	chatModel, err := openai.NewChatModel(context.Background(), openaiConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to create OpenAI model: %w", err)
	}

	return chatModel, nil
}

// Chat 同步对话
func (s *AIService) Chat(ctx context.Context, messages []ChatMessage, opts *GenerateOptions) (*ChatResponse, error) {
	// 转换消息格式
	einoMessages := s.convertToEinoMessages(messages)

	// 构建选项
	modelOpts := s.buildModelOptions(opts)

	// 调用模型
	response, err := s.chatModel.Generate(ctx, einoMessages, modelOpts...)
	if err != nil {
		return nil, fmt.Errorf("chat model generate error: %w", err)
	}

	// 从ResponseMeta获取信息
	var tokenCount int
	var finishReason string
	if response.ResponseMeta != nil {
		if response.ResponseMeta.Usage != nil {
			tokenCount = response.ResponseMeta.Usage.TotalTokens
		}
		finishReason = response.ResponseMeta.FinishReason
	}

	return &ChatResponse{
		Content:      response.Content,
		TokenCount:   tokenCount,
		FinishReason: finishReason,
		Metadata: map[string]interface{}{
			"model": s.config.Model,
		},
	}, nil
}

// ChatStream 流式对话
func (s *AIService) ChatStream(ctx context.Context, messages []ChatMessage, opts *GenerateOptions) (<-chan StreamChunk, error) {
	// 转换消息格式
	einoMessages := s.convertToEinoMessages(messages)

	// 构建选项
	modelOpts := s.buildModelOptions(opts)

	// 调用流式模型
	streamReader, err := s.chatModel.Stream(ctx, einoMessages, modelOpts...)
	if err != nil {
		return nil, fmt.Errorf("chat model stream error: %w", err)
	}

	// 创建输出通道
	chunkChan := make(chan StreamChunk, 10)

	go func() {
		defer close(chunkChan)
		defer streamReader.Close()

		fullContent := ""
		chunkID := fmt.Sprintf("chat-%d", time.Now().UnixNano())

		for {
			select {
			case <-ctx.Done():
				chunkChan <- StreamChunk{
					ID:       chunkID,
					Content:  fullContent,
					Finished: true,
					Error:    ctx.Err(),
				}
				return

			default:
				chunk, err := streamReader.Recv()
				if err != nil {
					if err.Error() == "EOF" || err.Error() == "stream finished" {
						// 流结束
						var tokenCount int
						var finishReason string
						if chunk != nil && chunk.ResponseMeta != nil {
							if chunk.ResponseMeta.Usage != nil {
								tokenCount = chunk.ResponseMeta.Usage.TotalTokens
							}
							finishReason = chunk.ResponseMeta.FinishReason
						}

						chunkChan <- StreamChunk{
							ID:           chunkID,
							Content:      fullContent,
							Finished:     true,
							TokenCount:   tokenCount,
							FinishReason: finishReason,
						}
						return
					}
					// 错误
					chunkChan <- StreamChunk{
						ID:       chunkID,
						Content:  fullContent,
						Finished: true,
						Error:    err,
					}
					return
				}

				// 检查chunk是否为nil
				if chunk == nil {
					continue
				}

				// 正常块
				delta := chunk.Content
				fullContent += delta

				chunkChan <- StreamChunk{
					ID:       chunkID,
					Content:  fullContent,
					Delta:    delta,
					Finished: false,
				}
			}
		}
	}()

	return chunkChan, nil
}

// HealthCheck 健康检查
func (s *AIService) HealthCheck(ctx context.Context) error {
	testMessages := []ChatMessage{
		{
			Role:    "user",
			Content: "hello",
		},
	}

	// 设置较短的超时时间
	healthCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	_, err := s.Chat(healthCtx, testMessages, &GenerateOptions{
		MaxTokens: intPtr(10),
	})

	return err
}

// BuildHealthContext 根据用户画像构造对话上下文
func (s *AIService) BuildHealthContext(uc *UserContext, question string) []ChatMessage {
	var messages []ChatMessage

	// 系统提示词限定话题范围
	if s.config.SystemPrompt != "" {
		messages = append(messages, ChatMessage{
			Role:    "system",
			Content: s.config.SystemPrompt,
		})
	}

	messages = append(messages, ChatMessage{
		Role:    "user",
		Content: BuildProfilePrompt(uc) + "\n\n用户问题：\n" + question,
	})

	return messages
}

// BuildProfilePrompt 拼装用户画像文本，供各类提示词复用
func BuildProfilePrompt(uc *UserContext) string {
	bmi := health.BMI(uc.WeightKG, uc.HeightCM)

	var b strings.Builder
	b.WriteString("以下是用户档案：\n")
	fmt.Fprintf(&b, "- 姓名：%s\n", uc.Name)
	fmt.Fprintf(&b, "- 年龄：%d，性别：%s\n", uc.Age, displayName(genderNames, uc.Gender))
	fmt.Fprintf(&b, "- 身高：%.1fcm，体重：%.1fkg，BMI：%.1f（%s）\n",
		uc.HeightCM, uc.WeightKG, bmi, health.ClassifyBMI(bmi))
	fmt.Fprintf(&b, "- 健身目标：%s\n", displayName(goalNames, uc.Goal))

	if uc.Latest != nil {
		fmt.Fprintf(&b, "- 最近一天数据：步数%d，消耗%dkcal，睡眠%.1f小时，饮水%dml\n",
			uc.Latest.Steps, uc.Latest.CaloriesBurned, uc.Latest.SleepHours, uc.Latest.WaterML)
	}

	if len(uc.Records) > 0 {
		b.WriteString("- 健康档案：\n")
		for _, rec := range uc.Records {
			fmt.Fprintf(&b, "  - [%s] %s\n", rec.RecordType, rec.Description)
		}
	}

	if len(uc.MealTags) > 0 {
		fmt.Fprintf(&b, "- 饮食偏好：%s\n", strings.Join(uc.MealTags, "、"))
	}

	return b.String()
}

// GenerateMealPlan 生成一份餐单，要求模型返回固定字段的JSON
func (s *AIService) GenerateMealPlan(ctx context.Context, uc *UserContext, mealType string) (*MealPlanData, error) {
	sys := "你是营养师。只输出一个JSON对象，不要输出任何其他文本或markdown代码块。字段：" +
		`{"title":string,"meal_type":string,"items":[string],"calories":int,"protein_g":number,"carbs_g":number,"fat_g":number}`
	prompt := BuildProfilePrompt(uc) +
		fmt.Sprintf("\n请为该用户生成一份%s餐单（meal_type取值：breakfast/lunch/dinner/snack，这里为%s），贴合其健身目标与饮食偏好。", mealType, mealType)

	resp, err := s.Chat(ctx, []ChatMessage{
		{Role: "system", Content: sys},
		{Role: "user", Content: prompt},
	}, nil)
	if err != nil {
		return nil, fmt.Errorf("meal plan generate error: %w", err)
	}

	return ParseMealPlanReply(resp.Content)
}

// GenerateSuggestions 生成每日建议列表，要求模型返回固定字段的JSON数组
func (s *AIService) GenerateSuggestions(ctx context.Context, uc *UserContext) ([]Suggestion, error) {
	sys := "你是健身教练。只输出一个JSON数组，不要输出任何其他文本或markdown代码块。元素字段：" +
		`{"category":"exercise|diet|sleep|hydration","text":string}，3到5条。`
	prompt := BuildProfilePrompt(uc) + "\n请根据档案给出今天的健康建议。"

	resp, err := s.Chat(ctx, []ChatMessage{
		{Role: "system", Content: sys},
		{Role: "user", Content: prompt},
	}, nil)
	if err != nil {
		return nil, fmt.Errorf("suggestions generate error: %w", err)
	}

	return ParseSuggestionsReply(resp.Content)
}

// ParseMealPlanReply 解析并校验餐单JSON，字段缺失或越界视为无效回复
func ParseMealPlanReply(raw string) (*MealPlanData, error) {
	var data MealPlanData
	if err := json.Unmarshal([]byte(extractJSON(raw)), &data); err != nil {
		return nil, fmt.Errorf("invalid meal plan reply: %w", err)
	}

	if data.Title == "" {
		return nil, fmt.Errorf("invalid meal plan reply: missing title")
	}
	switch data.MealType {
	case "breakfast", "lunch", "dinner", "snack":
	default:
		return nil, fmt.Errorf("invalid meal plan reply: unknown meal_type %q", data.MealType)
	}
	if len(data.Items) == 0 {
		return nil, fmt.Errorf("invalid meal plan reply: empty items")
	}
	if data.Calories <= 0 {
		return nil, fmt.Errorf("invalid meal plan reply: calories must be positive")
	}
	if data.ProteinG < 0 || data.CarbsG < 0 || data.FatG < 0 {
		return nil, fmt.Errorf("invalid meal plan reply: negative macro value")
	}

	return &data, nil
}

// ParseSuggestionsReply 解析并校验建议数组JSON
func ParseSuggestionsReply(raw string) ([]Suggestion, error) {
	var suggestions []Suggestion
	if err := json.Unmarshal([]byte(extractJSON(raw)), &suggestions); err != nil {
		return nil, fmt.Errorf("invalid suggestions reply: %w", err)
	}

	if len(suggestions) == 0 {
		return nil, fmt.Errorf("invalid suggestions reply: empty list")
	}
	for i, sg := range suggestions {
		switch sg.Category {
		case "exercise", "diet", "sleep", "hydration":
		default:
			return nil, fmt.Errorf("invalid suggestions reply: unknown category %q at %d", sg.Category, i)
		}
		if strings.TrimSpace(sg.Text) == "" {
			return nil, fmt.Errorf("invalid suggestions reply: empty text at %d", i)
		}
	}

	return suggestions, nil
}

// extractJSON 剥离模型可能带上的markdown代码块标记，截取首个JSON片段
func extractJSON(raw string) string {
	s := strings.TrimSpace(raw)
	if strings.HasPrefix(s, "```") {
		s = strings.TrimPrefix(s, "```json")
		s = strings.TrimPrefix(s, "```")
		if idx := strings.LastIndex(s, "```"); idx >= 0 {
			s = s[:idx]
		}
		s = strings.TrimSpace(s)
	}

	// 兜底：截取首个 { 或 [ 到末尾对应闭合符
	start := strings.IndexAny(s, "{[")
	if start < 0 {
		return s
	}
	var closer byte = '}'
	if s[start] == '[' {
		closer = ']'
	}
	end := strings.LastIndexByte(s, closer)
	if end > start {
		return s[start : end+1]
	}
	return s[start:]
}

// convertToEinoMessages 转换为Eino消息格式
func (s *AIService) convertToEinoMessages(messages []ChatMessage) []*schema.Message {
	var einoMessages []*schema.Message

	for _, msg := range messages {
		var role schema.RoleType
		switch msg.Role {
		case "system":
			role = schema.System
		case "user":
			role = schema.User
		case "assistant", "ai":
			role = schema.Assistant
		default:
			role = schema.User // 默认为用户消息
		}

		einoMessages = append(einoMessages, &schema.Message{
			Role:    role,
			Content: msg.Content,
		})
	}

	return einoMessages
}

// buildModelOptions 构建模型选项
func (s *AIService) buildModelOptions(opts *GenerateOptions) []model.Option {
	var modelOpts []model.Option

	// 使用传入的选项或配置默认值
	temperature := s.config.Temperature
	if opts != nil && opts.Temperature != nil {
		temperature = *opts.Temperature
	}
	if temperature > 0 {
		modelOpts = append(modelOpts, model.WithTemperature(float32(temperature)))
	}

	maxTokens := s.config.MaxTokens
	if opts != nil && opts.MaxTokens != nil {
		maxTokens = *opts.MaxTokens
	}
	if maxTokens > 0 {
		modelOpts = append(modelOpts, model.WithMaxTokens(maxTokens))
	}

	return modelOpts
}

// Model 返回当前配置的模型名，用于写入交互日志
func (s *AIService) Model() string {
	return s.config.Model
}

// intPtr 创建int指针
func intPtr(i int) *int {
	return &i
}
