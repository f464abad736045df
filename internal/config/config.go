package config

import (
	"fmt"
	"os"
	"time"
)

// GatewayConfig 网关连接配置
type GatewayConfig struct {
	BaseURL     string // 网关地址
	AccessToken string // 系统访问令牌
	UserID      int    // 以哪个用户身份操作（New-API-User 头）
}

// DatabaseConfig 本地数据库配置
type DatabaseConfig struct {
	Path            string        // 数据库文件路径
	MaxOpenConns    int           // 最大连接数
	MaxIdleConns    int           // 最大空闲连接数
	ConnMaxLifetime time.Duration // 连接最大生命周期
	AutoMigrate     bool          // 是否自动迁移
}

// Config 应用配置
type Config struct {
	Gateway  GatewayConfig
	Database DatabaseConfig
}

// LoadConfig 加载配置
// 先取默认值，再用环境变量覆盖；.env 文件由入口在此之前加载
func LoadConfig() (*Config, error) {
	config := &Config{
		Gateway: GatewayConfig{
			BaseURL: "http://localhost:3000",
		},
		Database: DatabaseConfig{
			Path:            "./data/console.db",
			MaxOpenConns:    10,
			MaxIdleConns:    5,
			ConnMaxLifetime: time.Hour,
			AutoMigrate:     true,
		},
	}

	if baseURL := os.Getenv("NEWAPI_BASE_URL"); baseURL != "" {
		config.Gateway.BaseURL = baseURL
	}
	if token := os.Getenv("NEWAPI_ACCESS_TOKEN"); token != "" {
		config.Gateway.AccessToken = token
	}
	if userID := os.Getenv("NEWAPI_USER_ID"); userID != "" {
		var id int
		if _, err := fmt.Sscanf(userID, "%d", &id); err == nil {
			config.Gateway.UserID = id
		}
	}
	if dbPath := os.Getenv("CONSOLE_DB_PATH"); dbPath != "" {
		config.Database.Path = dbPath
	}

	return config, nil
}
