// Package prefs 控制台本地偏好设置。
//
// 原版控制台把主题、分页大小、列可见性等状态散落在浏览器 localStorage 里，
// 这里收敛为带类型 getter/setter 的 Preferences 服务，存储后端通过接口注入，
// 测试用内存实现，运行时用本地 sqlite。所有偏好都只是服务端状态的
// 非权威缓存，读不到就回落默认值。
package prefs

import (
	"errors"
	"sync"

	"github.com/sakurapi/newapi-console/internal/models"
	"gorm.io/gorm"
)

// Storage 偏好存储后端
// 所有操作都是同步的本地读写，不触达服务端
type Storage interface {
	// Get 读取一个偏好值，第二个返回值表示是否存在
	Get(key string) (string, bool, error)

	// Set 写入一个偏好值
	Set(key, value string) error

	// Delete 删除一个偏好值
	Delete(key string) error
}

// ==================== 内存实现 ====================

// MemoryStorage 内存存储，测试用
type MemoryStorage struct {
	mu   sync.RWMutex
	data map[string]string
}

// NewMemoryStorage 创建内存存储
func NewMemoryStorage() *MemoryStorage {
	return &MemoryStorage{data: make(map[string]string)}
}

// Get 读取偏好值
func (m *MemoryStorage) Get(key string) (string, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	v, ok := m.data[key]
	return v, ok, nil
}

// Set 写入偏好值
func (m *MemoryStorage) Set(key, value string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.data[key] = value
	return nil
}

// Delete 删除偏好值
func (m *MemoryStorage) Delete(key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.data, key)
	return nil
}

// ==================== 数据库实现 ====================

// GormStorage 基于本地数据库的存储
type GormStorage struct {
	db *gorm.DB
}

// NewGormStorage 创建数据库存储
func NewGormStorage(db *gorm.DB) *GormStorage {
	return &GormStorage{db: db}
}

// Get 读取偏好值
func (g *GormStorage) Get(key string) (string, bool, error) {
	var pref models.Preference
	err := g.db.First(&pref, "key = ?", key).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return "", false, nil
		}
		return "", false, err
	}
	return pref.Value, true, nil
}

// Set 写入偏好值（存在则覆盖）
func (g *GormStorage) Set(key, value string) error {
	pref := models.Preference{Key: key, Value: value}
	return g.db.Save(&pref).Error
}

// Delete 删除偏好值
func (g *GormStorage) Delete(key string) error {
	return g.db.Delete(&models.Preference{}, "key = ?", key).Error
}
