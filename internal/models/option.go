package models

// Option 全局配置项
// 服务端以 string key → string value 存储，布尔与 JSON 均编码为字符串
type Option struct {
	Key   string `json:"key"`
	Value string `json:"value"`
}
