// Package settings 全局配置的差量提交引擎。
//
// 客户端同时持有两份配置：current（编辑稿）与 baseline（最近一次落库快照），
// 提交时只对发生变化的 key 逐个下发 PUT，全部成功后才刷新 baseline。
package settings

import (
	"context"
	"fmt"
	"sort"
	"strconv"
	"sync"

	"github.com/sakurapi/newapi-console/internal/client"
	"github.com/sakurapi/newapi-console/internal/models"
	"github.com/tidwall/gjson"
)

// validatedJSONKeys 提交前必须通过 JSON 校验的配置项
// 校验失败会中止整组提交，不发出任何请求
var validatedJSONKeys = map[string]struct{}{
	"ModelRatio":      {},
	"GroupRatio":      {},
	"ModelPrice":      {},
	"TopupGroupRatio": {},
}

// InvalidJSONError 某个 JSON 配置项无法解析
type InvalidJSONError struct {
	Key string
}

func (e *InvalidJSONError) Error() string {
	return fmt.Sprintf("option %s is not valid JSON", e.Key)
}

// SubmitResult 一次提交的结果
type SubmitResult struct {
	NothingChanged bool              // 整组无变化，未发出任何请求
	Submitted      []string          // 实际下发过 PUT 的 key
	Failed         map[string]string // 失败的 key → 服务端/传输层消息
}

// OK 本次提交是否全部成功
func (r *SubmitResult) OK() bool {
	return len(r.Failed) == 0
}

// Engine 配置差量提交引擎
type Engine struct {
	api      *client.Client
	mu       sync.Mutex
	current  map[string]string
	baseline map[string]string
}

// NewEngine 创建 Engine 实例
func NewEngine(api *client.Client) *Engine {
	return &Engine{
		api:      api,
		current:  make(map[string]string),
		baseline: make(map[string]string),
	}
}

// Load 拉取全量配置，current 与 baseline 同步为服务端快照
func (e *Engine) Load(ctx context.Context) error {
	var options []models.Option
	if _, err := e.api.Get(ctx, "/api/option/", &options); err != nil {
		return err
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	e.current = make(map[string]string, len(options))
	e.baseline = make(map[string]string, len(options))
	for _, opt := range options {
		e.current[opt.Key] = opt.Value
		e.baseline[opt.Key] = opt.Value
	}
	return nil
}

// Get 读取编辑稿中的值
func (e *Engine) Get(key string) (string, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	v, ok := e.current[key]
	return v, ok
}

// Keys 返回全部配置项 key（字典序）
func (e *Engine) Keys() []string {
	e.mu.Lock()
	defer e.mu.Unlock()
	keys := make([]string, 0, len(e.current))
	for k := range e.current {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Set 修改编辑稿，不触发网络请求
func (e *Engine) Set(key, value string) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.current[key] = value
}

// SetBool 布尔配置统一序列化为字面量 "true"/"false"
func (e *Engine) SetBool(key string, value bool) {
	e.Set(key, strconv.FormatBool(value))
}

// Changed 返回组内 current 与 baseline 不一致的 key（字典序）
func (e *Engine) Changed(groupKeys []string) []string {
	e.mu.Lock()
	defer e.mu.Unlock()
	var changed []string
	for _, key := range groupKeys {
		if e.current[key] != e.baseline[key] {
			changed = append(changed, key)
		}
	}
	sort.Strings(changed)
	return changed
}

// Submit 提交一组配置
//
// 只对发生变化的 key 各发一个 PUT /api/option/；组内无变化时零请求。
// JSON 配置项先整组校验，任一校验失败立即中止且不发请求。
// 所有请求结束后，若全部成功则把 baseline 刷新为 current；
// 有失败时 baseline 保持陈旧，重试会重新算出同样的差量。
// current 永不回滚，用户的编辑稿保留以便改后重试。
func (e *Engine) Submit(ctx context.Context, groupKeys []string) (*SubmitResult, error) {
	changed := e.Changed(groupKeys)
	if len(changed) == 0 {
		return &SubmitResult{NothingChanged: true}, nil
	}

	// 先整组校验 JSON 配置项，避免部分提交
	e.mu.Lock()
	for _, key := range changed {
		if _, ok := validatedJSONKeys[key]; !ok {
			continue
		}
		if !gjson.Valid(e.current[key]) {
			e.mu.Unlock()
			return nil, &InvalidJSONError{Key: key}
		}
	}
	values := make(map[string]string, len(changed))
	for _, key := range changed {
		values[key] = e.current[key]
	}
	e.mu.Unlock()

	result := &SubmitResult{Failed: make(map[string]string)}
	for _, key := range changed {
		body := models.Option{Key: key, Value: values[key]}
		if _, err := e.api.Put(ctx, "/api/option/", body, nil); err != nil {
			result.Failed[key] = err.Error()
			continue
		}
		result.Submitted = append(result.Submitted, key)
	}

	if result.OK() {
		e.mu.Lock()
		for _, key := range changed {
			e.baseline[key] = values[key]
		}
		e.mu.Unlock()
	}
	return result, nil
}
