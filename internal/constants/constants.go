package constants

// 用户枚举值
const (
	GenderMale   = "male"
	GenderFemale = "female"
	GenderOther  = "other"

	GoalLoseWeight = "lose_weight"
	GoalGainMuscle = "gain_muscle"
	GoalStayFit    = "stay_fit"

	RoleAdmin = "admin"
	RoleUser  = "user"

	UserStatusActive  = "active"
	UserStatusDeleted = "deleted"
)

// 注册校验范围
const (
	MinAge      = 13
	MaxAge      = 120
	MinHeightCM = 50.0
	MaxHeightCM = 300.0
	MinWeightKG = 20.0
	MaxWeightKG = 500.0
)

// 聊天相关
const (
	// DefaultChatErrorReply LLM调用或解析失败时返回给用户的兜底文案
	DefaultChatErrorReply = "暂时无法生成回复，请刷新后重试"

	ChatStatusOK     = "ok"
	ChatStatusFailed = "failed"
)

// 报名状态
const (
	RegistrationActive    = "registered"
	RegistrationCancelled = "cancelled"
)

// 餐单来源
const (
	MealSourceManual = "manual"
	MealSourceAI     = "ai"
)
