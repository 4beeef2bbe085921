package main

import (
	"database/sql"
	"fmt"
	"log"

	"github.com/joho/godotenv"
	_ "github.com/lib/pq"

	"github.com/ag21o9/bitnbuild-backend/internal/config"
)

func main() {
	// 加载环境变量与配置
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using system environment variables")
	}
	if err := config.Load(); err != nil {
		log.Fatalf("加载配置失败: %v", err)
	}

	cfg := config.GlobalConfig.Database
	connStr := fmt.Sprintf("host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
		cfg.Host, cfg.Port, cfg.User, cfg.Password, cfg.DBName, cfg.SSLMode)

	fmt.Printf("尝试连接: host=%s port=%s dbname=%s sslmode=%s\n",
		cfg.Host, cfg.Port, cfg.DBName, cfg.SSLMode)

	db, err := sql.Open("postgres", connStr)
	if err != nil {
		log.Fatalf("打开连接失败: %v", err)
	}
	defer db.Close()

	if err := db.Ping(); err != nil {
		log.Fatalf("连接测试失败: %v", err)
	}
	fmt.Println("✅ 连接成功！")

	// 测试查询
	var version string
	if err := db.QueryRow("SELECT version()").Scan(&version); err != nil {
		log.Fatalf("查询失败: %v", err)
	}
	fmt.Printf("PostgreSQL版本: %s\n", version)

	// 检查核心表是否已迁移
	tables := []string{"users", "health_data", "daily_stats", "events", "event_registrations", "meal_plans", "chatbot_interactions"}
	for _, table := range tables {
		var exists bool
		err := db.QueryRow("SELECT EXISTS (SELECT 1 FROM information_schema.tables WHERE table_name = $1)", table).Scan(&exists)
		if err != nil {
			log.Printf("检查表 %s 失败: %v\n", table, err)
			continue
		}
		if exists {
			fmt.Printf("表 %s: 存在\n", table)
		} else {
			fmt.Printf("表 %s: 缺失（请先运行服务完成迁移）\n", table)
		}
	}
}
