package models

// 兑换码状态常量
const (
	RedemptionStatusEnabled  = 1 // 未使用
	RedemptionStatusDisabled = 2 // 禁用
	RedemptionStatusUsed     = 3 // 已使用
)

// Redemption 兑换码
// 使用后不可再编辑，启用/禁用仅在未使用时有效
type Redemption struct {
	ID           int    `json:"id"`
	UserID       int    `json:"user_id"`
	Key          string `json:"key,omitempty"`
	Status       int    `json:"status"`
	Name         string `json:"name"`
	Quota        int64  `json:"quota"`
	CreatedTime  int64  `json:"created_time"`
	RedeemedTime int64  `json:"redeemed_time"`
	UsedUserID   int    `json:"used_user_id"`
}
