package routes

import (
	"github.com/gin-gonic/gin"

	"github.com/ag21o9/bitnbuild-backend/internal/api/handlers"
	"github.com/ag21o9/bitnbuild-backend/internal/api/middleware"
	"github.com/ag21o9/bitnbuild-backend/internal/constants"
)

func SetupAuthRoutes(rg *gin.RouterGroup, handler *handlers.AuthHandler) {
	auth := rg.Group("/auth")
	{
		auth.POST("/login", handler.Login)
		auth.POST("/register", handler.Register)
		auth.POST("/refresh", handler.RefreshToken)

		// 需要认证的路由
		authenticated := auth.Group("/")
		authenticated.Use(middleware.Auth())
		{
			authenticated.POST("/logout", handler.Logout)
			authenticated.GET("/profile", handler.Profile)
		}
	}
}

func SetupUserRoutes(rg *gin.RouterGroup, handler *handlers.UserHandler) {
	users := rg.Group("/users")
	users.Use(middleware.Auth())
	{
		users.GET("/me", handler.GetMe)
		users.PUT("/me", handler.UpdateMe)
		users.DELETE("/me", handler.DeleteMe)

		// 管理员用户管理
		admin := users.Group("/")
		admin.Use(middleware.RequireRole(constants.RoleAdmin))
		{
			admin.GET("", handler.GetUsers)
			admin.GET("/:id", handler.GetUser)
			admin.DELETE("/:id", handler.DeleteUser)
		}
	}
}

func SetupStatsRoutes(rg *gin.RouterGroup, handler *handlers.StatsHandler) {
	stats := rg.Group("/stats")
	stats.Use(middleware.Auth()) // 所有数据API都需要认证
	{
		// 每日健康数据
		stats.POST("/health", handler.UpsertHealthData)
		stats.GET("/health", handler.GetHealthData)

		// 每日统计
		stats.POST("/daily", handler.UpsertDailyStat)
		stats.GET("/daily", handler.GetDailyStats)

		// 运动记录
		stats.POST("/activities", handler.CreateActivity)
		stats.GET("/activities", handler.GetActivities)

		// 可穿戴设备数据
		stats.POST("/wearable", handler.CreateWearableData)
		stats.GET("/wearable", handler.GetWearableData)

		// BMI
		stats.GET("/bmi", handler.GetBMI)

		// 健康档案
		stats.POST("/records", handler.CreateHealthRecord)
		stats.GET("/records", handler.GetHealthRecords)
		stats.DELETE("/records/:id", handler.DeleteHealthRecord)
	}
}

func SetupDashboardRoutes(rg *gin.RouterGroup, handler *handlers.DashboardHandler) {
	dashboard := rg.Group("/dashboard")
	dashboard.Use(middleware.Auth())
	{
		dashboard.GET("", handler.GetDashboard)
	}
}

func SetupEventRoutes(rg *gin.RouterGroup, handler *handlers.EventHandler) {
	events := rg.Group("/events")
	{
		// 公开读取
		events.GET("", handler.GetEvents)
		events.GET("/:id", handler.GetEvent)

		authenticated := events.Group("/")
		authenticated.Use(middleware.Auth())
		{
			// 报名
			authenticated.POST("/:id/register", handler.RegisterForEvent)
			authenticated.DELETE("/:id/register", handler.CancelRegistration)

			// 活动管理（仅管理员）
			admin := authenticated.Group("/")
			admin.Use(middleware.RequireRole(constants.RoleAdmin))
			{
				admin.POST("", handler.CreateEvent)
				admin.PUT("/:id", handler.UpdateEvent)
				admin.DELETE("/:id", handler.DeleteEvent)
				admin.GET("/:id/registrations", handler.GetRegistrations)
			}
		}
	}
}

func SetupMealRoutes(rg *gin.RouterGroup, handler *handlers.MealHandler) {
	meals := rg.Group("/meals")
	meals.Use(middleware.Auth())
	{
		meals.POST("", handler.CreateMealPlan)
		meals.GET("", handler.GetMealPlans)
		meals.GET("/:id", handler.GetMealPlan)
		meals.PUT("/:id", handler.UpdateMealPlan)
		meals.DELETE("/:id", handler.DeleteMealPlan)

		// AI生成餐单
		meals.POST("/generate", handler.GenerateMealPlan)
	}
}

func SetupChatRoutes(rg *gin.RouterGroup, handler *handlers.ChatHandler) {
	chat := rg.Group("/chat")
	chat.Use(middleware.Auth()) // 所有聊天API都需要认证
	{
		chat.POST("/ask", handler.Ask)
		chat.GET("/history", handler.GetHistory)
		chat.DELETE("/history", handler.ClearHistory)
		chat.GET("/suggestions", handler.GetSuggestions)
		chat.GET("/stream", handler.Stream)
	}
}
