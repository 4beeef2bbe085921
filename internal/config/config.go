package config

import (
	"fmt"
	"os"

	"github.com/spf13/viper"
)

type Config struct {
	Server   ServerConfig   `mapstructure:"server"`
	Database DatabaseConfig `mapstructure:"database"`
	AI       AIConfig       `mapstructure:"ai"`
	JWT      JWTConfig      `mapstructure:"jwt"`
}

type ServerConfig struct {
	Host         string `mapstructure:"host"`
	Port         string `mapstructure:"port"`
	Mode         string `mapstructure:"mode"` // debug, release
	ReadTimeout  int    `mapstructure:"read_timeout"`
	WriteTimeout int    `mapstructure:"write_timeout"`
	SSEHeartbeat int    `mapstructure:"sse_heartbeat"` // 秒
}

type DatabaseConfig struct {
	Host     string `mapstructure:"host"`
	Port     string `mapstructure:"port"`
	User     string `mapstructure:"user"`
	Password string `mapstructure:"password"`
	DBName   string `mapstructure:"dbname"`
	SSLMode  string `mapstructure:"sslmode"`
	TimeZone string `mapstructure:"timezone"`
}

type AIConfig struct {
	LLM LLMConfig `mapstructure:"llm"`
}

type LLMConfig struct {
	Provider     string  `mapstructure:"provider"` // openai, claude
	Model        string  `mapstructure:"model"`    // gpt-4o-mini, claude-3-haiku
	APIKey       string  `mapstructure:"api_key"`
	BaseURL      string  `mapstructure:"base_url"`
	Temperature  float64 `mapstructure:"temperature"`
	TopP         float64 `mapstructure:"top_p"`
	TopK         int     `mapstructure:"top_k"`
	MaxTokens    int     `mapstructure:"max_tokens"`
	Timeout      int     `mapstructure:"timeout"`
	SystemPrompt string  `mapstructure:"system_prompt"`
}

type JWTConfig struct {
	Secret    string `mapstructure:"secret"`
	ExpiresIn int    `mapstructure:"expires_in"` // hours
	RefreshIn int    `mapstructure:"refresh_in"` // hours
	Issuer    string `mapstructure:"issuer"`
}

var GlobalConfig *Config

func Load() error {
	viper.SetConfigName("config")
	viper.SetConfigType("json")
	viper.AddConfigPath("./internal/config")
	viper.AddConfigPath("./config")
	viper.AddConfigPath(".")

	// 环境变量支持
	viper.AutomaticEnv()
	viper.SetEnvPrefix("BITNBUILD")

	// 设置默认值
	setDefaults()

	// 读取配置文件
	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); ok {
			// 配置文件未找到，使用默认值和环境变量
		} else {
			return fmt.Errorf("读取配置文件失败: %w", err)
		}
	}

	// 解析配置
	config := &Config{}
	if err := viper.Unmarshal(config); err != nil {
		return fmt.Errorf("解析配置失败: %w", err)
	}

	// 从环境变量覆盖敏感信息
	if dbPassword := os.Getenv("BITNBUILD_DATABASE_PASSWORD"); dbPassword != "" {
		config.Database.Password = dbPassword
	}
	if apiKey := os.Getenv("BITNBUILD_AI_LLM_API_KEY"); apiKey != "" {
		config.AI.LLM.APIKey = apiKey
	}
	if jwtSecret := os.Getenv("BITNBUILD_JWT_SECRET"); jwtSecret != "" {
		config.JWT.Secret = jwtSecret
	}

	GlobalConfig = config
	return nil
}

func setDefaults() {
	// Server defaults
	viper.SetDefault("server.host", "0.0.0.0")
	viper.SetDefault("server.port", "8080")
	viper.SetDefault("server.mode", "debug")
	viper.SetDefault("server.read_timeout", 30)
	viper.SetDefault("server.write_timeout", 30)
	viper.SetDefault("server.sse_heartbeat", 15)

	// Database defaults
	viper.SetDefault("database.host", "localhost")
	viper.SetDefault("database.port", "5432")
	viper.SetDefault("database.user", "postgres")
	viper.SetDefault("database.dbname", "bitnbuild")
	viper.SetDefault("database.sslmode", "disable")
	viper.SetDefault("database.timezone", "UTC")

	// AI defaults
	viper.SetDefault("ai.llm.provider", "openai")
	viper.SetDefault("ai.llm.model", "gpt-4o-mini")
	viper.SetDefault("ai.llm.temperature", 0.7)
	viper.SetDefault("ai.llm.max_tokens", 1024)
	viper.SetDefault("ai.llm.timeout", 60)
	viper.SetDefault("ai.llm.system_prompt", "你是健身助手，只回答与健身、饮食、睡眠、运动数据相关的问题；无关问题请礼貌拒绝。")

	// JWT defaults
	viper.SetDefault("jwt.expires_in", 24)  // 24 hours
	viper.SetDefault("jwt.refresh_in", 168) // 7 days
	viper.SetDefault("jwt.issuer", "bitnbuild")
}
