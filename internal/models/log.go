package models

// 日志类型常量
const (
	LogTypeTopup   = 1 // 充值
	LogTypeConsume = 2 // 消费
	LogTypeManage  = 3 // 管理
	LogTypeSystem  = 4 // 系统
)

// Log 使用日志
// 追加写入，客户端只读；Other 为供应商计费明细 JSON
type Log struct {
	ID               int    `json:"id"`
	UserID           int    `json:"user_id"`
	CreatedAt        int64  `json:"created_at"`
	Type             int    `json:"type"`
	Content          string `json:"content"`
	Username         string `json:"username"`
	TokenName        string `json:"token_name"`
	ModelName        string `json:"model_name"`
	Quota            int64  `json:"quota"`
	PromptTokens     int    `json:"prompt_tokens"`
	CompletionTokens int    `json:"completion_tokens"`
	UseTime          int    `json:"use_time"`
	IsStream         bool   `json:"is_stream"`
	ChannelID        int    `json:"channel"`
	TokenID          int    `json:"token_id"`
	Group            string `json:"group"`
	Other            string `json:"other"`
}

// LogStat 日志统计（GET /api/log/stat）
type LogStat struct {
	Quota int64 `json:"quota"`
	RPM   int64 `json:"rpm"`
	TPM   int64 `json:"tpm"`
}
