package models

import "strings"

// 渠道状态常量
const (
	ChannelStatusEnabled      = 1 // 启用
	ChannelStatusDisabled     = 2 // 手动禁用
	ChannelStatusAutoDisabled = 3 // 自动禁用（由后端监控触发）
)

// Channel 渠道
// 对应网关的上游供应商凭证配置，id 由服务端分配且稳定不变
type Channel struct {
	ID                 int     `json:"id"`
	Type               int     `json:"type"`
	Key                string  `json:"key,omitempty"` // 密钥，客户端视角只写不读
	Status             int     `json:"status"`
	Name               string  `json:"name"`
	Weight             int     `json:"weight"`
	CreatedTime        int64   `json:"created_time"`
	TestTime           int64   `json:"test_time"`
	ResponseTime       int     `json:"response_time"` // 毫秒，0 表示未测试
	BaseURL            string  `json:"base_url"`
	Balance            float64 `json:"balance"`
	BalanceUpdatedTime int64   `json:"balance_updated_time"`
	Models             string  `json:"models"` // 逗号拼接的模型名集合
	Group              string  `json:"group"`  // 逗号拼接的分组集合
	UsedQuota          int64   `json:"used_quota"`
	ModelMapping       string  `json:"model_mapping"`
	Priority           int64   `json:"priority"`
	Tag                string  `json:"tag,omitempty"`
	OtherInfo          string  `json:"other_info,omitempty"` // status==3 时携带自动禁用原因
}

// ModelList 将 Models 字段解析为有序去重的模型名列表
func (c *Channel) ModelList() []string {
	return SplitCommaSet(c.Models)
}

// GroupList 将 Group 字段解析为有序去重的分组列表
func (c *Channel) GroupList() []string {
	return SplitCommaSet(c.Group)
}

// SplitCommaSet 拆分逗号拼接的集合字段，保持首见顺序并去重
func SplitCommaSet(s string) []string {
	if s == "" {
		return nil
	}
	parts := strings.Split(s, ",")
	seen := make(map[string]struct{}, len(parts))
	result := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p == "" {
			continue
		}
		if _, ok := seen[p]; ok {
			continue
		}
		seen[p] = struct{}{}
		result = append(result, p)
	}
	return result
}
