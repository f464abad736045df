package user

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

// ErrUsernameRequired 用户名不能为空
var ErrUsernameRequired = errors.New("username is required")

// CreateRequest 创建用户请求
type CreateRequest struct {
	Username    string `json:"username"`
	Password    string `json:"password"`
	DisplayName string `json:"display_name,omitempty"`
}

// UpdateRequest 更新用户请求
type UpdateRequest struct {
	ID          int     `json:"id"`
	Username    *string `json:"username,omitempty"`
	DisplayName *string `json:"display_name,omitempty"`
	Group       *string `json:"group,omitempty"`
	Quota       *int64  `json:"quota,omitempty"`
	Role        *int    `json:"role,omitempty"`
	Status      *int    `json:"status,omitempty"`
}

// Store 用户列表控制器
// 用户是软删除资源：删除后行保留在列表中，仅打上删除标记
type Store struct {
	api  *client.Client
	list *liststore.Store[*models.User]
}

// NewStore 创建 Store 实例
func NewStore(api *client.Client, pageSize int) *Store {
	return &Store{
		api: api,
		list: liststore.New(pageSize, func(u *models.User) int {
			return u.ID
		}),
	}
}

// List 底层列表状态
func (s *Store) List() *liststore.Store[*models.User] {
	return s.list
}

// Items 当前用户集合
func (s *Store) Items() []*models.User {
	return s.list.Items()
}

// LoadPage 加载第 pageIndex 页
func (s *Store) LoadPage(ctx context.Context, pageIndex int) error {
	s.list.SetLoading(true)
	defer s.list.SetLoading(false)

	query := url.Values{}
	query.Set("p", strconv.Itoa(pageIndex))
	query.Set("page_size", strconv.Itoa(s.list.PageSize()))

	var users []*models.User
	env, err := s.api.Get(ctx, "/api/user/?"+query.Encode(), &users)
	if err != nil {
		return err
	}
	if pageIndex == 0 {
		s.list.Replace(users, env.Total)
	} else {
		s.list.Splice(pageIndex, users, env.Total)
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

	var users []*models.User
	_, err := s.api.Get(ctx, "/api/user/search?keyword="+url.QueryEscape(keyword), &users)
	if err != nil {
		return err
	}
	s.list.Replace(users, int64(len(users)))
	return nil
}

// Create 创建用户
func (s *Store) Create(ctx context.Context, req CreateRequest) error {
	if req.Username == "" {
		return ErrUsernameRequired
	}
	_, err := s.api.Post(ctx, "/api/user/", req, nil)
	return err
}

// Update 更新用户并在服务端确认后回填本地记录
func (s *Store) Update(ctx context.Context, req UpdateRequest) error {
	if _, err := s.api.Put(ctx, "/api/user/", req, nil); err != nil {
		return err
	}
	s.list.MutateByID(req.ID, func(u *models.User) {
		if req.Username != nil {
			u.Username = *req.Username
		}
		if req.DisplayName != nil {
			u.DisplayName = *req.DisplayName
		}
		if req.Group != nil {
			u.Group = *req.Group
		}
		if req.Quota != nil {
			u.Quota = *req.Quota
		}
		if req.Role != nil {
			u.Role = *req.Role
		}
		if req.Status != nil {
			u.Status = *req.Status
		}
	})
	return nil
}

// SetStatus 启用/封禁用户
func (s *Store) SetStatus(ctx context.Context, id, status int) error {
	return s.Update(ctx, UpdateRequest{ID: id, Status: &status})
}

// Delete 软删除用户
// 服务端确认后仅打删除标记，行仍然可见但不再可操作
func (s *Store) Delete(ctx context.Context, id int) error {
	if _, err := s.api.Delete(ctx, fmt.Sprintf("/api/user/%d", id), nil); err != nil {
		return err
	}
	s.list.MutateByID(id, func(u *models.User) {
		u.DeletedAt = time.Now().Unix()
	})
	return nil
}
