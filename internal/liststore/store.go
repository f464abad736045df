// Package liststore 提供各资源列表（渠道/令牌/用户/兑换码/日志）
// 共用的分页列表状态容器。
package liststore

import "sync"

// Store 单个资源的列表状态
// 维护有序记录集合、分页游标、搜索条件与加载标记
type Store[T any] struct {
	mu       sync.RWMutex
	items    []T
	pageSize int
	total    int64 // 服务端返回的精确总数，0 表示未知
	loading  bool
	filters  map[string]string
	keyFn    func(T) int
}

// New 创建 Store 实例
// keyFn 返回记录的稳定主键，用于按 id 定位
func New[T any](pageSize int, keyFn func(T) int) *Store[T] {
	if pageSize < 1 {
		pageSize = 10
	}
	return &Store[T]{
		pageSize: pageSize,
		filters:  make(map[string]string),
		keyFn:    keyFn,
	}
}

// Replace 整体替换记录集合（第 0 页加载或搜索结果）
func (s *Store[T]) Replace(items []T, serverTotal int64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.items = append([]T(nil), items...)
	s.total = serverTotal
}

// Splice 将第 pageIndex 页的记录写入对应偏移
// 不是严格追加：同一页重复加载会原位覆盖，乱序加载不会产生重复记录
func (s *Store[T]) Splice(pageIndex int, pageItems []T, serverTotal int64) {
	s.mu.Lock()
	defer s.mu.Unlock()

	offset := pageIndex * s.pageSize
	if offset > len(s.items) {
		offset = len(s.items)
	}
	for i, item := range pageItems {
		if offset+i < len(s.items) {
			s.items[offset+i] = item
		} else {
			s.items = append(s.items, item)
		}
	}
	s.total = serverTotal
}

// Items 返回记录集合的副本
func (s *Store[T]) Items() []T {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]T(nil), s.items...)
}

// Len 当前记录数
func (s *Store[T]) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.items)
}

// PageSize 每页记录数
func (s *Store[T]) PageSize() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.pageSize
}

// SetPageSize 调整每页记录数
func (s *Store[T]) SetPageSize(pageSize int) {
	if pageSize < 1 {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.pageSize = pageSize
}

// TotalEstimate 估算总记录数
// 服务端给出精确 total 时直接采用；否则按启发式规则估算：
// 当前记录数达到一页时多报一页，提示可能还有下一页（可能出现空尾页）
func (s *Store[T]) TotalEstimate() int64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.total > 0 {
		return s.total
	}
	if len(s.items) >= s.pageSize {
		return int64(len(s.items) + s.pageSize)
	}
	return int64(len(s.items))
}

// SetLoading 设置加载标记
func (s *Store[T]) SetLoading(loading bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.loading = loading
}

// Loading 是否处于加载中
func (s *Store[T]) Loading() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.loading
}

// SetFilters 整体替换搜索条件
func (s *Store[T]) SetFilters(filters map[string]string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.filters = make(map[string]string, len(filters))
	for k, v := range filters {
		s.filters[k] = v
	}
}

// FiltersEmpty 搜索条件是否全部为空
// 全空的搜索等价于重新加载第 0 页
func (s *Store[T]) FiltersEmpty() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, v := range s.filters {
		if v != "" {
			return false
		}
	}
	return true
}

// Filters 返回搜索条件副本
func (s *Store[T]) Filters() map[string]string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make(map[string]string, len(s.filters))
	for k, v := range s.filters {
		out[k] = v
	}
	return out
}

// MutateByID 按 id 定位记录并应用补丁
// 最多修改一条记录；未命中是空操作而不是错误。
// 元素类型为指针时（各资源 Store 均如此）补丁原位生效
func (s *Store[T]) MutateByID(id int, patch func(T)) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.items {
		if s.keyFn(s.items[i]) == id {
			patch(s.items[i])
			return true
		}
	}
	return false
}

// RemoveByID 按 id 删除记录（硬删除资源在服务端确认后调用）
func (s *Store[T]) RemoveByID(id int) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.items {
		if s.keyFn(s.items[i]) == id {
			s.items = append(s.items[:i], s.items[i+1:]...)
			return true
		}
	}
	return false
}
