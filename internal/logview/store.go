// Package logview 使用日志的只读列表视图与留存清理。
package logview

import (
	"context"
	"fmt"
	"net/url"
	"strconv"

	"github.com/sakurapi/newapi-console/internal/client"
	"github.com/sakurapi/newapi-console/internal/liststore"
	"github.com/sakurapi/newapi-console/internal/models"
)

// Filters 日志查询条件
type Filters struct {
	Type           int    // 0 表示全部类型
	Username       string // 仅管理员视图可用
	TokenName      string
	ModelName      string
	ChannelID      int
	StartTimestamp int64
	EndTimestamp   int64
}

// queryValues 转换为查询参数
func (f Filters) queryValues() url.Values {
	query := url.Values{}
	query.Set("type", strconv.Itoa(f.Type))
	query.Set("username", f.Username)
	query.Set("token_name", f.TokenName)
	query.Set("model_name", f.ModelName)
	if f.ChannelID > 0 {
		query.Set("channel", strconv.Itoa(f.ChannelID))
	}
	if f.StartTimestamp > 0 {
		query.Set("start_timestamp", strconv.FormatInt(f.StartTimestamp, 10))
	}
	if f.EndTimestamp > 0 {
		query.Set("end_timestamp", strconv.FormatInt(f.EndTimestamp, 10))
	}
	return query
}

// Store 日志列表控制器
// 日志是追加写入的只读资源，本地不做任何变更回填
type Store struct {
	api      *client.Client
	list     *liststore.Store[*models.Log]
	selfOnly bool
}

// NewStore 创建 Store 实例
// selfOnly 为 true 时走 /api/log/self/（普通用户仅能看自己的日志）
func NewStore(api *client.Client, pageSize int, selfOnly bool) *Store {
	return &Store{
		api: api,
		list: liststore.New(pageSize, func(l *models.Log) int {
			return l.ID
		}),
		selfOnly: selfOnly,
	}
}

// List 底层列表状态
func (s *Store) List() *liststore.Store[*models.Log] {
	return s.list
}

// Items 当前日志集合
func (s *Store) Items() []*models.Log {
	return s.list.Items()
}

// basePath 日志接口前缀
func (s *Store) basePath() string {
	if s.selfOnly {
		return "/api/log/self/"
	}
	return "/api/log/"
}

// LoadPage 按条件加载第 pageIndex 页
// 条件变化时调用方应从第 0 页重新加载，避免陈旧响应拼接进新条件的结果
func (s *Store) LoadPage(ctx context.Context, pageIndex int, filters Filters) error {
	s.list.SetLoading(true)
	defer s.list.SetLoading(false)

	query := filters.queryValues()
	query.Set("p", strconv.Itoa(pageIndex))
	query.Set("page_size", strconv.Itoa(s.list.PageSize()))

	var logs []*models.Log
	env, err := s.api.Get(ctx, s.basePath()+"?"+query.Encode(), &logs)
	if err != nil {
		return err
	}
	if pageIndex == 0 {
		s.list.Replace(logs, env.Total)
	} else {
		s.list.Splice(pageIndex, logs, env.Total)
	}
	return nil
}

// Stat 查询日志统计（配额消耗、RPM、TPM）
func (s *Store) Stat(ctx context.Context, filters Filters) (*models.LogStat, error) {
	var stat models.LogStat
	if _, err := s.api.Get(ctx, "/api/log/stat?"+filters.queryValues().Encode(), &stat); err != nil {
		return nil, err
	}
	return &stat, nil
}

// Purge 清理指定时间戳之前的日志，返回删除条数
func (s *Store) Purge(ctx context.Context, targetTimestamp int64) (int64, error) {
	var count int64
	path := fmt.Sprintf("/api/log/?target_timestamp=%d", targetTimestamp)
	if _, err := s.api.Delete(ctx, path, &count); err != nil {
		return 0, err
	}
	return count, nil
}
