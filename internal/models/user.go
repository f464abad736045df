package models

// 用户角色常量，数值越大权限越高
const (
	RoleCommonUser = 1   // 普通用户
	RoleAdminUser  = 10  // 管理员
	RoleRootUser   = 100 // 超级管理员
)

// 用户状态常量
const (
	UserStatusEnabled  = 1 // 正常
	UserStatusDisabled = 2 // 封禁
)

// User 用户
// 软删除：DeletedAt 非零表示已删除，行保留在列表中但不再可操作
type User struct {
	ID              int    `json:"id"`
	Username        string `json:"username"`
	DisplayName     string `json:"display_name"`
	Role            int    `json:"role"`
	Status          int    `json:"status"`
	Email           string `json:"email"`
	Group           string `json:"group"`
	Quota           int64  `json:"quota"`
	UsedQuota       int64  `json:"used_quota"`
	RequestCount    int    `json:"request_count"`
	AffCode         string `json:"aff_code"`
	AffCount        int    `json:"aff_count"`
	AffQuota        int64  `json:"aff_quota"`
	AffHistoryQuota int64  `json:"aff_history"`
	InviterID       int    `json:"inviter_id"`
	DeletedAt       int64  `json:"deleted_at,omitempty"`
}

// Deleted 是否已被软删除
func (u *User) Deleted() bool {
	return u.DeletedAt != 0
}
