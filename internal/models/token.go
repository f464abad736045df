package models

// 令牌状态常量
const (
	TokenStatusEnabled   = 1 // 启用
	TokenStatusDisabled  = 2 // 禁用
	TokenStatusExpired   = 3 // 已过期
	TokenStatusExhausted = 4 // 额度耗尽
)

// TokenNeverExpires 过期时间取 -1 表示永不过期
const TokenNeverExpires int64 = -1

// Token 用户侧 API 令牌
// key 展示时统一加 sk- 前缀
type Token struct {
	ID             int    `json:"id"`
	UserID         int    `json:"user_id"`
	Key            string `json:"key"`
	Status         int    `json:"status"`
	Name           string `json:"name"`
	CreatedTime    int64  `json:"created_time"`
	AccessedTime   int64  `json:"accessed_time"`
	ExpiredTime    int64  `json:"expired_time"` // -1 表示永不过期
	RemainQuota    int64  `json:"remain_quota"`
	UnlimitedQuota bool   `json:"unlimited_quota"` // 为 true 时跳过 remain_quota 检查
	UsedQuota      int64  `json:"used_quota"`
	Group          string `json:"group"`
}

// DisplayKey 带 sk- 前缀的展示形式
func (t *Token) DisplayKey() string {
	return "sk-" + t.Key
}
