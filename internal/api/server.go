package api

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/ag21o9/bitnbuild-backend/internal/api/handlers"
	"github.com/ag21o9/bitnbuild-backend/internal/api/middleware"
	"github.com/ag21o9/bitnbuild-backend/internal/api/routes"
	"github.com/ag21o9/bitnbuild-backend/internal/config"
	"github.com/ag21o9/bitnbuild-backend/internal/services/ai"
)

type Server struct {
	db        *gorm.DB
	aiService *ai.AIService
	router    *gin.Engine
}

func NewServer(db *gorm.DB, aiService *ai.AIService) (*Server, error) {
	// 设置Gin模式
	gin.SetMode(config.GlobalConfig.Server.Mode)

	// 创建路由器
	router := gin.New()

	// 添加全局中间件
	router.Use(middleware.Logger())
	router.Use(middleware.Recovery())
	router.Use(middleware.CORS())
	router.Use(middleware.RequestID())

	// 创建服务器实例
	server := &Server{
		db:        db,
		aiService: aiService,
		router:    router,
	}

	// 设置路由
	server.setupRoutes()

	return server, nil
}

func (s *Server) setupRoutes() {
	// 健康检查
	s.router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status":  "ok",
			"message": "Fitness backend is running",
		})
	})

	// API路由组
	api := s.router.Group("/api/v1")

	// 初始化handlers
	authHandler := handlers.NewAuthHandler(s.db)
	userHandler := handlers.NewUserHandler(s.db)
	statsHandler := handlers.NewStatsHandler(s.db)
	dashboardHandler := handlers.NewDashboardHandler(s.db)
	eventHandler := handlers.NewEventHandler(s.db)
	mealHandler := handlers.NewMealHandler(s.db, s.aiService)
	chatHandler := handlers.NewChatHandler(s.db, s.aiService)

	// 设置路由
	routes.SetupAuthRoutes(api, authHandler)
	routes.SetupUserRoutes(api, userHandler)
	routes.SetupStatsRoutes(api, statsHandler)
	routes.SetupDashboardRoutes(api, dashboardHandler)
	routes.SetupEventRoutes(api, eventHandler)
	routes.SetupMealRoutes(api, mealHandler)
	routes.SetupChatRoutes(api, chatHandler)
}

func (s *Server) Router() *gin.Engine {
	return s.router
}
