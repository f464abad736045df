package redemption

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strconv"

	"github.com/sakurapi/newapi-console/internal/client"
	"github.com/sakurapi/newapi-console/internal/liststore"
	"github.com/sakurapi/newapi-console/internal/models"
)

var (
	// ErrNameRequired 兑换码名称不能为空
	ErrNameRequired = errors.New("redemption name is required")
	// ErrInvalidCount 生成数量必须为正
	ErrInvalidCount = errors.New("count must be positive")
)

// CreateRequest 创建兑换码请求
// 一次可生成多个同额度的兑换码
type CreateRequest struct {
	Name  string `json:"name"`
	Quota int64  `json:"quota"`
	Count int    `json:"count"`
}

// UpdateRequest 更新兑换码请求
// 已使用的兑换码不可再编辑，由服务端拒绝
type UpdateRequest struct {
	ID     int     `json:"id"`
	Name   *string `json:"name,omitempty"`
	Quota  *int64  `json:"quota,omitempty"`
	Status *int    `json:"status,omitempty"`
}

// Store 兑换码列表控制器
type Store struct {
	api  *client.Client
	list *liststore.Store[*models.Redemption]
}

// NewStore 创建 Store 实例
func NewStore(api *client.Client, pageSize int) *Store {
	return &Store{
		api: api,
		list: liststore.New(pageSize, func(r *models.Redemption) int {
			return r.ID
		}),
	}
}

// List 底层列表状态
func (s *Store) List() *liststore.Store[*models.Redemption] {
	return s.list
}

// Items 当前兑换码集合
func (s *Store) Items() []*models.Redemption {
	return s.list.Items()
}

// LoadPage 加载第 pageIndex 页
func (s *Store) LoadPage(ctx context.Context, pageIndex int) error {
	s.list.SetLoading(true)
	defer s.list.SetLoading(false)

	query := url.Values{}
	query.Set("p", strconv.Itoa(pageIndex))
	query.Set("page_size", strconv.Itoa(s.list.PageSize()))

	var redemptions []*models.Redemption
	env, err := s.api.Get(ctx, "/api/redemption/?"+query.Encode(), &redemptions)
	if err != nil {
		return err
	}
	if pageIndex == 0 {
		s.list.Replace(redemptions, env.Total)
	} else {
		s.list.Splice(pageIndex, redemptions, env.Total)
	}
	return nil
}

// Search 按关键字搜索
func (s *Store) Search(ctx context.Context, keyword string) error {
	s.list.SetFilters(map[string]string{"keyword": keyword})
	if s.list.FiltersEmpty() {
		return s.LoadPage(ctx, 0)
	}

	s.list.SetLoading(true)
	defer s.list.SetLoading(false)

	var redemptions []*models.Redemption
	_, err := s.api.Get(ctx, "/api/redemption/search?keyword="+url.QueryEscape(keyword), &redemptions)
	if err != nil {
		return err
	}
	s.list.Replace(redemptions, int64(len(redemptions)))
	return nil
}

// Create 生成兑换码，返回生成的兑换码明文（仅此一次可见）
func (s *Store) Create(ctx context.Context, req CreateRequest) ([]string, error) {
	if req.Name == "" {
		return nil, ErrNameRequired
	}
	if req.Count < 1 {
		return nil, ErrInvalidCount
	}
	var keys []string
	if _, err := s.api.Post(ctx, "/api/redemption/", req, &keys); err != nil {
		return nil, err
	}
	return keys, nil
}

// Update 更新兑换码并在服务端确认后回填本地记录
func (s *Store) Update(ctx context.Context, req UpdateRequest) error {
	if _, err := s.api.Put(ctx, "/api/redemption/", req, nil); err != nil {
		return err
	}
	s.list.MutateByID(req.ID, func(r *models.Redemption) {
		if req.Name != nil {
			r.Name = *req.Name
		}
		if req.Quota != nil {
			r.Quota = *req.Quota
		}
		if req.Status != nil {
			r.Status = *req.Status
		}
	})
	return nil
}

// SetStatus 启用/禁用兑换码（仅未使用时有效）
func (s *Store) SetStatus(ctx context.Context, id, status int) error {
	return s.Update(ctx, UpdateRequest{ID: id, Status: &status})
}

// Delete 删除兑换码，服务端确认后再从本地列表移除
func (s *Store) Delete(ctx context.Context, id int) error {
	if _, err := s.api.Delete(ctx, fmt.Sprintf("/api/redemption/%d", id), nil); err != nil {
		return err
	}
	s.list.RemoveByID(id)
	return nil
}
