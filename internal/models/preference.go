package models

import "time"

// Preference 本地偏好设置
// 控制台在本地数据库中保存的 key-value 偏好，仅为服务端状态的非权威缓存
type Preference struct {
	Key       string    `gorm:"type:varchar(200);primaryKey" json:"key"`
	Value     string    `gorm:"type:text;not null" json:"value"`
	UpdatedAt time.Time `json:"updated_at"`
}

// TableName 指定表名
func (Preference) TableName() string {
	return "preferences"
}
