package prefs

import (
	"encoding/json"
	"strconv"

	"github.com/tidwall/gjson"
	"github.com/tidwall/sjson"
)

// 偏好 key 常量
const (
	keyPageSize   = "page_size"
	keyIDSort     = "id_sort"
	keyTheme      = "theme"
	keyLastNotice = "last_notice"
	keyStatusBlob = "status_blob"

	columnPrefix     = "columns:"
	modelCachePrefix = "model_cache:"
)

// DefaultPageSize 未设置时的默认分页大小
const DefaultPageSize = 10

// Service 偏好设置服务
type Service struct {
	storage Storage
}

// NewService 创建 Service 实例
func NewService(storage Storage) *Service {
	return &Service{storage: storage}
}

// PageSize 上次使用的分页大小，读不到或非法时回落默认值
func (s *Service) PageSize() int {
	v, ok, err := s.storage.Get(keyPageSize)
	if err != nil || !ok {
		return DefaultPageSize
	}
	n, err := strconv.Atoi(v)
	if err != nil || n < 1 {
		return DefaultPageSize
	}
	return n
}

// SetPageSize 记录分页大小
func (s *Service) SetPageSize(n int) error {
	return s.storage.Set(keyPageSize, strconv.Itoa(n))
}

// IDSort 渠道列表是否按 id 排序
func (s *Service) IDSort() bool {
	v, ok, err := s.storage.Get(keyIDSort)
	if err != nil || !ok {
		return false
	}
	return v == "true"
}

// SetIDSort 记录 id 排序开关
func (s *Service) SetIDSort(enabled bool) error {
	return s.storage.Set(keyIDSort, strconv.FormatBool(enabled))
}

// Theme 主题偏好，未设置返回空串
func (s *Service) Theme() string {
	v, _, _ := s.storage.Get(keyTheme)
	return v
}

// SetTheme 记录主题偏好
func (s *Service) SetTheme(theme string) error {
	return s.storage.Set(keyTheme, theme)
}

// LastNotice 最近一次展示过的公告内容
func (s *Service) LastNotice() string {
	v, _, _ := s.storage.Get(keyLastNotice)
	return v
}

// SetLastNotice 记录公告内容，避免重复弹出
func (s *Service) SetLastNotice(notice string) error {
	return s.storage.Set(keyLastNotice, notice)
}

// ColumnVisibility 读取某张表的列可见性
//
// defaults 是该表当前版本的全部列。偏好缺失或无法解析时回落为
// 全部可见并持久化该默认值；偏好里缺少的新列一律补为可见，
// 保证版本升级新增的列不会被旧偏好悄悄隐藏。
func (s *Service) ColumnVisibility(tableID string, defaults []string) map[string]bool {
	allVisible := func() map[string]bool {
		visible := make(map[string]bool, len(defaults))
		for _, col := range defaults {
			visible[col] = true
		}
		return visible
	}

	v, ok, err := s.storage.Get(columnPrefix + tableID)
	if err != nil || !ok {
		visible := allVisible()
		_ = s.SetColumnVisibility(tableID, visible)
		return visible
	}

	var saved map[string]bool
	if err := json.Unmarshal([]byte(v), &saved); err != nil {
		visible := allVisible()
		_ = s.SetColumnVisibility(tableID, visible)
		return visible
	}

	// 新列默认可见
	for _, col := range defaults {
		if _, ok := saved[col]; !ok {
			saved[col] = true
		}
	}
	return saved
}

// SetColumnVisibility 持久化某张表的列可见性
func (s *Service) SetColumnVisibility(tableID string, visible map[string]bool) error {
	data, err := json.Marshal(visible)
	if err != nil {
		return err
	}
	return s.storage.Set(columnPrefix+tableID, string(data))
}

// CachedModels 某渠道类型下缓存的模型列表
func (s *Service) CachedModels(channelType int) []string {
	v, ok, err := s.storage.Get(modelCachePrefix + strconv.Itoa(channelType))
	if err != nil || !ok {
		return nil
	}
	var cached []string
	if err := json.Unmarshal([]byte(v), &cached); err != nil {
		return nil
	}
	return cached
}

// SetCachedModels 缓存某渠道类型的模型列表
func (s *Service) SetCachedModels(channelType int, cachedModels []string) error {
	data, err := json.Marshal(cachedModels)
	if err != nil {
		return err
	}
	return s.storage.Set(modelCachePrefix+strconv.Itoa(channelType), string(data))
}

// StatusField 从缓存的状态 JSON 中读取一个字段
func (s *Service) StatusField(path string) gjson.Result {
	v, _, _ := s.storage.Get(keyStatusBlob)
	return gjson.Get(v, path)
}

// SetStatusBlob 整体缓存服务端状态 JSON
func (s *Service) SetStatusBlob(blob string) error {
	return s.storage.Set(keyStatusBlob, blob)
}

// PatchStatusField 原位更新状态 JSON 中的一个字段，其余字段保持不变
func (s *Service) PatchStatusField(path string, value interface{}) error {
	blob, _, err := s.storage.Get(keyStatusBlob)
	if err != nil {
		return err
	}
	patched, err := sjson.Set(blob, path, value)
	if err != nil {
		return err
	}
	return s.storage.Set(keyStatusBlob, patched)
}
