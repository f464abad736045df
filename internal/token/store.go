package token

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strconv"
	"time"

	"github.com/sakurapi/newapi-console/internal/client"
	"github.com/sakurapi/newapi-console/internal/liststore"
	"github.com/sakurapi/newapi-console/internal/models"
)

var (
	// ErrNameRequired 令牌名称不能为空
	ErrNameRequired = errors.New("token name is required")
	// ErrInvalidExpiredTime 过期时间必须是未来时间或 -1（永不过期）
	ErrInvalidExpiredTime = errors.New("expired_time must be in the future or -1")
)

// CreateRequest 创建令牌请求
type CreateRequest struct {
	Name           string `json:"name"`
	RemainQuota    int64  `json:"remain_quota"`
	ExpiredTime    int64  `json:"expired_time"`
	UnlimitedQuota bool   `json:"unlimited_quota"`
	Group          string `json:"group,omitempty"`
}

// UpdateRequest 更新令牌请求，body 始终携带 id
type UpdateRequest struct {
	ID             int     `json:"id"`
	Name           *string `json:"name,omitempty"`
	RemainQuota    *int64  `json:"remain_quota,omitempty"`
	ExpiredTime    *int64  `json:"expired_time,omitempty"`
	UnlimitedQuota *bool   `json:"unlimited_quota,omitempty"`
	Status         *int    `json:"status,omitempty"`
	Group          *string `json:"group,omitempty"`
}

// Store 令牌列表控制器
type Store struct {
	api  *client.Client
	list *liststore.Store[*models.Token]
}

// NewStore 创建 Store 实例
func NewStore(api *client.Client, pageSize int) *Store {
	return &Store{
		api: api,
		list: liststore.New(pageSize, func(t *models.Token) int {
			return t.ID
		}),
	}
}

// List 底层列表状态
func (s *Store) List() *liststore.Store[*models.Token] {
	return s.list
}

// Items 当前令牌集合
func (s *Store) Items() []*models.Token {
	return s.list.Items()
}

// LoadPage 加载第 pageIndex 页
func (s *Store) LoadPage(ctx context.Context, pageIndex int) error {
	s.list.SetLoading(true)
	defer s.list.SetLoading(false)

	query := url.Values{}
	query.Set("p", strconv.Itoa(pageIndex))
	query.Set("page_size", strconv.Itoa(s.list.PageSize()))

	var tokens []*models.Token
	env, err := s.api.Get(ctx, "/api/token/?"+query.Encode(), &tokens)
	if err != nil {
		return err
	}
	if pageIndex == 0 {
		s.list.Replace(tokens, env.Total)
	} else {
		s.list.Splice(pageIndex, tokens, env.Total)
	}
	return nil
}

// Search 按关键字搜索，条件为空时退化为重新加载
func (s *Store) Search(ctx context.Context, keyword string) error {
	s.list.SetFilters(map[string]string{"keyword": keyword})
	if s.list.FiltersEmpty() {
		return s.LoadPage(ctx, 0)
	}

	s.list.SetLoading(true)
	defer s.list.SetLoading(false)

	var tokens []*models.Token
	_, err := s.api.Get(ctx, "/api/token/search?keyword="+url.QueryEscape(keyword), &tokens)
	if err != nil {
		return err
	}
	s.list.Replace(tokens, int64(len(tokens)))
	return nil
}

// Create 创建令牌
func (s *Store) Create(ctx context.Context, req CreateRequest) error {
	if req.Name == "" {
		return ErrNameRequired
	}
	if req.ExpiredTime != models.TokenNeverExpires && req.ExpiredTime <= time.Now().Unix() {
		return ErrInvalidExpiredTime
	}
	_, err := s.api.Post(ctx, "/api/token/", req, nil)
	return err
}

// Update 更新令牌并在服务端确认后回填本地记录
func (s *Store) Update(ctx context.Context, req UpdateRequest) error {
	if _, err := s.api.Put(ctx, "/api/token/", req, nil); err != nil {
		return err
	}
	s.list.MutateByID(req.ID, func(t *models.Token) {
		if req.Name != nil {
			t.Name = *req.Name
		}
		if req.RemainQuota != nil {
			t.RemainQuota = *req.RemainQuota
		}
		if req.ExpiredTime != nil {
			t.ExpiredTime = *req.ExpiredTime
		}
		if req.UnlimitedQuota != nil {
			t.UnlimitedQuota = *req.UnlimitedQuota
		}
		if req.Status != nil {
			t.Status = *req.Status
		}
		if req.Group != nil {
			t.Group = *req.Group
		}
	})
	return nil
}

// SetStatus 启用/禁用令牌
func (s *Store) SetStatus(ctx context.Context, id, status int) error {
	return s.Update(ctx, UpdateRequest{ID: id, Status: &status})
}

// Delete 删除令牌，服务端确认后再从本地列表移除
func (s *Store) Delete(ctx context.Context, id int) error {
	if _, err := s.api.Delete(ctx, fmt.Sprintf("/api/token/%d", id), nil); err != nil {
		return err
	}
	s.list.RemoveByID(id)
	return nil
}
