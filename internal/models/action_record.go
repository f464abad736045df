package models

import "time"

// ActionRecord 本地操作历史
// 记录控制台发起的每次变更操作，便于回溯误操作
type ActionRecord struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	Type      string    `gorm:"type:varchar(50);not null;index" json:"type"`
	Message   string    `gorm:"type:text;not null" json:"message"`
	Level     string    `gorm:"type:varchar(20);not null;default:'info'" json:"level"`
	Metadata  string    `gorm:"type:json" json:"metadata,omitempty"` // 额外的元数据（JSON 格式）
	CreatedAt time.Time `gorm:"index" json:"created_at"`
}

// TableName 指定表名
func (ActionRecord) TableName() string {
	return "action_records"
}

// ActionType 操作类型常量
const (
	ActionTypeChannel    = "channel"    // 渠道变更
	ActionTypeToken      = "token"      // 令牌变更
	ActionTypeUser       = "user"       // 用户变更
	ActionTypeRedemption = "redemption" // 兑换码变更
	ActionTypeOption     = "option"     // 全局配置变更
	ActionTypeLog        = "log"        // 日志清理
)

// ActionLevel 操作级别常量
const (
	ActionLevelInfo    = "info"
	ActionLevelWarning = "warning"
	ActionLevelError   = "error"
)
