// Package history 控制台本地操作历史。
package history

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/sakurapi/newapi-console/internal/models"
	"gorm.io/gorm"
)

// Service 操作历史服务
// 每次变更操作在服务端确认后追加一条记录，只追加不修改
type Service struct {
	db *gorm.DB
}

// NewService 创建 Service 实例
func NewService(db *gorm.DB) *Service {
	return &Service{db: db}
}

// Record 记录一次操作
func (s *Service) Record(actionType, message, level string, metadata map[string]interface{}) error {
	var metadataJSON string
	if metadata != nil {
		data, err := json.Marshal(metadata)
		if err != nil {
			return fmt.Errorf("序列化元数据失败: %w", err)
		}
		metadataJSON = string(data)
	}

	record := &models.ActionRecord{
		Type:      actionType,
		Message:   message,
		Level:     level,
		Metadata:  metadataJSON,
		CreatedAt: time.Now(),
	}
	if err := s.db.Create(record).Error; err != nil {
		return fmt.Errorf("保存操作记录失败: %w", err)
	}
	return nil
}

// RecordInfo 记录普通操作
func (s *Service) RecordInfo(actionType, message string, metadata map[string]interface{}) error {
	return s.Record(actionType, message, models.ActionLevelInfo, metadata)
}

// RecordWarning 记录高危操作（批量删除、日志清理等）
func (s *Service) RecordWarning(actionType, message string, metadata map[string]interface{}) error {
	return s.Record(actionType, message, models.ActionLevelWarning, metadata)
}

// Recent 查询最近的操作记录，按时间倒序
func (s *Service) Recent(limit int) ([]models.ActionRecord, error) {
	if limit < 1 {
		limit = 50
	}
	var records []models.ActionRecord
	err := s.db.Order("created_at DESC").Limit(limit).Find(&records).Error
	if err != nil {
		return nil, err
	}
	return records, nil
}

// RecentByType 查询某类资源最近的操作记录
func (s *Service) RecentByType(actionType string, limit int) ([]models.ActionRecord, error) {
	if limit < 1 {
		limit = 50
	}
	var records []models.ActionRecord
	err := s.db.Where("type = ?", actionType).
		Order("created_at DESC").Limit(limit).Find(&records).Error
	if err != nil {
		return nil, err
	}
	return records, nil
}

// Prune 清理指定时间之前的操作记录，返回删除条数
func (s *Service) Prune(before time.Time) (int64, error) {
	result := s.db.Where("created_at < ?", before).Delete(&models.ActionRecord{})
	return result.RowsAffected, result.Error
}
