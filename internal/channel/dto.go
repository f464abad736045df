package channel

// TagRequest 标签批量启用/禁用请求
type TagRequest struct {
	Tag string `json:"tag"`
}

// EditTagRequest 标签批量编辑请求
// 为 nil 的字段不改动；NewTag 为空串表示摘除标签
type EditTagRequest struct {
	Tag      string  `json:"tag"`
	NewTag   *string `json:"new_tag,omitempty"`
	Priority *int64  `json:"priority,omitempty"`
	Weight   *int64  `json:"weight,omitempty"`
}

// BatchRequest 批量删除请求
type BatchRequest struct {
	IDs []int `json:"ids"`
}

// TestResult 渠道测试结果
type TestResult struct {
	Time  float64 `json:"time"`  // 耗时，秒
	Model string  `json:"model"` // 实际测试的模型
}

// BalanceResult 余额查询结果
type BalanceResult struct {
	Balance float64 `json:"balance"`
}

// UpdateRequest 渠道更新请求
// 单字段行内编辑与整表单编辑共用，body 始终携带 id
type UpdateRequest struct {
	ID           int     `json:"id"`
	Name         *string `json:"name,omitempty"`
	Key          *string `json:"key,omitempty"`
	BaseURL      *string `json:"base_url,omitempty"`
	Models       *string `json:"models,omitempty"`
	ModelMapping *string `json:"model_mapping,omitempty"`
	Group        *string `json:"group,omitempty"`
	Tag          *string `json:"tag,omitempty"`
	Status       *int    `json:"status,omitempty"`
	Priority     *int64  `json:"priority,omitempty"`
	Weight       *int    `json:"weight,omitempty"`
}
