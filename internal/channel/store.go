package channel

import (
	"context"
	"fmt"
	"net/url"
	"strconv"
	"time"

	"github.com/sakurapi/newapi-console/internal/client"
	"github.com/sakurapi/newapi-console/internal/liststore"
	"github.com/sakurapi/newapi-console/internal/models"
)

// nowUnix 当前 Unix 秒，测试中可替换
var nowUnix = func() int64 {
	return time.Now().Unix()
}

// Store 渠道列表控制器
// 负责分页加载、搜索、单条变更后的本地回填以及标签批量操作
type Store struct {
	api     *client.Client
	list    *liststore.Store[*models.Channel]
	tagMode bool
	idSort  bool
}

// NewStore 创建 Store 实例
func NewStore(api *client.Client, pageSize int) *Store {
	return &Store{
		api: api,
		list: liststore.New(pageSize, func(ch *models.Channel) int {
			return ch.ID
		}),
	}
}

// SetTagMode 切换标签聚合模式
func (s *Store) SetTagMode(enabled bool) {
	s.tagMode = enabled
}

// TagMode 标签聚合模式是否开启
func (s *Store) TagMode() bool {
	return s.tagMode
}

// SetIDSort 切换按 id 排序
func (s *Store) SetIDSort(enabled bool) {
	s.idSort = enabled
}

// List 底层列表状态（分页估算、加载标记）
func (s *Store) List() *liststore.Store[*models.Channel] {
	return s.list
}

// Rows 当前渠道行集合
// 开启标签聚合时共享同一 tag 的渠道折叠为聚合行
func (s *Store) Rows() []Row {
	return Aggregate(s.list.Items(), s.tagMode)
}

// LoadPage 加载第 pageIndex 页
// 第 0 页整体替换，其余页按偏移写入，容忍乱序和重复加载
func (s *Store) LoadPage(ctx context.Context, pageIndex int) error {
	s.list.SetLoading(true)
	defer s.list.SetLoading(false)

	query := url.Values{}
	query.Set("p", strconv.Itoa(pageIndex))
	query.Set("page_size", strconv.Itoa(s.list.PageSize()))
	query.Set("id_sort", strconv.FormatBool(s.idSort))
	query.Set("tag_mode", strconv.FormatBool(s.tagMode))

	var channels []*models.Channel
	env, err := s.api.Get(ctx, "/api/channel/?"+query.Encode(), &channels)
	if err != nil {
		return err
	}
	if pageIndex == 0 {
		s.list.Replace(channels, env.Total)
	} else {
		s.list.Splice(pageIndex, channels, env.Total)
	}
	return nil
}

// Search 按关键字/分组/模型搜索
// 条件全空时退化为重新加载第 0 页；否则走搜索接口并整体替换
func (s *Store) Search(ctx context.Context, keyword, group, model string) error {
	s.list.SetFilters(map[string]string{
		"keyword": keyword,
		"group":   group,
		"model":   model,
	})
	if s.list.FiltersEmpty() {
		return s.LoadPage(ctx, 0)
	}

	s.list.SetLoading(true)
	defer s.list.SetLoading(false)

	query := url.Values{}
	query.Set("keyword", keyword)
	query.Set("group", group)
	query.Set("model", model)
	query.Set("id_sort", strconv.FormatBool(s.idSort))
	query.Set("tag_mode", strconv.FormatBool(s.tagMode))

	var channels []*models.Channel
	_, err := s.api.Get(ctx, "/api/channel/search?"+query.Encode(), &channels)
	if err != nil {
		return err
	}
	s.list.Replace(channels, int64(len(channels)))
	return nil
}

// Update 更新渠道并在服务端确认后回填本地记录
// 只回填请求中实际携带的字段，不触发整页刷新
func (s *Store) Update(ctx context.Context, req UpdateRequest) error {
	if _, err := s.api.Put(ctx, "/api/channel/", req, nil); err != nil {
		return err
	}
	s.list.MutateByID(req.ID, func(ch *models.Channel) {
		applyUpdate(ch, req)
	})
	return nil
}

// applyUpdate 将更新请求中携带的字段回填到本地记录
func applyUpdate(ch *models.Channel, req UpdateRequest) {
	if req.Name != nil {
		ch.Name = *req.Name
	}
	if req.Key != nil {
		ch.Key = *req.Key
	}
	if req.BaseURL != nil {
		ch.BaseURL = *req.BaseURL
	}
	if req.Models != nil {
		ch.Models = *req.Models
	}
	if req.ModelMapping != nil {
		ch.ModelMapping = *req.ModelMapping
	}
	if req.Group != nil {
		ch.Group = *req.Group
	}
	if req.Tag != nil {
		ch.Tag = *req.Tag
	}
	if req.Status != nil {
		ch.Status = *req.Status
	}
	if req.Priority != nil {
		ch.Priority = *req.Priority
	}
	if req.Weight != nil {
		ch.Weight = *req.Weight
	}
}

// SetStatus 启用/禁用单个渠道
func (s *Store) SetStatus(ctx context.Context, id, status int) error {
	return s.Update(ctx, UpdateRequest{ID: id, Status: &status})
}

// SetPriority 行内编辑优先级（失焦提交）
func (s *Store) SetPriority(ctx context.Context, id int, priority int64) error {
	return s.Update(ctx, UpdateRequest{ID: id, Priority: &priority})
}

// SetWeight 行内编辑权重（失焦提交）
func (s *Store) SetWeight(ctx context.Context, id, weight int) error {
	return s.Update(ctx, UpdateRequest{ID: id, Weight: &weight})
}

// Delete 删除渠道，服务端确认后再从本地列表移除
func (s *Store) Delete(ctx context.Context, id int) error {
	if _, err := s.api.Delete(ctx, fmt.Sprintf("/api/channel/%d/", id), nil); err != nil {
		return err
	}
	s.list.RemoveByID(id)
	return nil
}

// DeleteDisabled 清理所有禁用渠道，返回删除数量
func (s *Store) DeleteDisabled(ctx context.Context) (int64, error) {
	var count int64
	if _, err := s.api.Delete(ctx, "/api/channel/disabled", &count); err != nil {
		return 0, err
	}
	return count, nil
}

// BatchDelete 批量删除渠道，返回删除数量
func (s *Store) BatchDelete(ctx context.Context, ids []int) (int64, error) {
	var count int64
	if _, err := s.api.Post(ctx, "/api/channel/batch", BatchRequest{IDs: ids}, &count); err != nil {
		return 0, err
	}
	for _, id := range ids {
		s.list.RemoveByID(id)
	}
	return count, nil
}

// Test 测试单个渠道，成功后回填响应时间与测试时间
func (s *Store) Test(ctx context.Context, id int, model string) (*TestResult, error) {
	path := fmt.Sprintf("/api/channel/test/%d", id)
	if model != "" {
		path += "?model=" + url.QueryEscape(model)
	}
	var result TestResult
	if _, err := s.api.Get(ctx, path, &result); err != nil {
		return nil, err
	}
	s.list.MutateByID(id, func(ch *models.Channel) {
		ch.ResponseTime = int(result.Time * 1000)
		ch.TestTime = nowUnix()
	})
	return &result, nil
}

// TestAll 测试全部启用渠道（结果由后端异步写回，需重新加载观察）
func (s *Store) TestAll(ctx context.Context) error {
	_, err := s.api.Get(ctx, "/api/channel/test", nil)
	return err
}

// UpdateBalance 刷新单个渠道余额
func (s *Store) UpdateBalance(ctx context.Context, id int) (float64, error) {
	var result BalanceResult
	if _, err := s.api.Get(ctx, fmt.Sprintf("/api/channel/update_balance/%d", id), &result); err != nil {
		return 0, err
	}
	s.list.MutateByID(id, func(ch *models.Channel) {
		ch.Balance = result.Balance
		ch.BalanceUpdatedTime = nowUnix()
	})
	return result.Balance, nil
}

// UpdateAllBalances 刷新全部渠道余额
func (s *Store) UpdateAllBalances(ctx context.Context) error {
	_, err := s.api.Get(ctx, "/api/channel/update_balance", nil)
	return err
}

// EnableTag 批量启用某标签下的全部渠道
func (s *Store) EnableTag(ctx context.Context, tag string) error {
	if _, err := s.api.Post(ctx, "/api/channel/tag/enabled", TagRequest{Tag: tag}, nil); err != nil {
		return err
	}
	s.mutateByTag(tag, func(ch *models.Channel) {
		ch.Status = models.ChannelStatusEnabled
	})
	return nil
}

// DisableTag 批量禁用某标签下的全部渠道
func (s *Store) DisableTag(ctx context.Context, tag string) error {
	if _, err := s.api.Post(ctx, "/api/channel/tag/disabled", TagRequest{Tag: tag}, nil); err != nil {
		return err
	}
	s.mutateByTag(tag, func(ch *models.Channel) {
		ch.Status = models.ChannelStatusDisabled
	})
	return nil
}

// EditTag 批量编辑标签（改名/优先级/权重）
// 展开写由服务端的批量接口完成，成功后整页刷新以拿到权威状态
func (s *Store) EditTag(ctx context.Context, req EditTagRequest) error {
	if _, err := s.api.Put(ctx, "/api/channel/tag", req, nil); err != nil {
		return err
	}
	return s.LoadPage(ctx, 0)
}

// mutateByTag 对共享同一标签的所有本地记录应用补丁
// 标签批量接口一次改多条，是行变更引擎“单条命中”规则之外的特例
func (s *Store) mutateByTag(tag string, patch func(*models.Channel)) {
	for _, ch := range s.list.Items() {
		if ch.Tag == tag {
			patch(ch)
		}
	}
}
